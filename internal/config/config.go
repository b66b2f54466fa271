package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Jobs     JobsConfig     `mapstructure:"jobs"`

	Scoring     ScoringConfig     `mapstructure:"scoring"`
	Profiling   ProfilingConfig   `mapstructure:"profiling"`
	Shadow      ShadowConfig      `mapstructure:"shadow"`
	Competition CompetitionConfig `mapstructure:"competition"`
	Validation  ValidationConfig  `mapstructure:"validation"`
	Hypotheses  []HypothesisConfig `mapstructure:"hypotheses"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type ExchangeConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RateLimitRPS float64      `mapstructure:"rate_limit_rps"`
	RateBurst   int           `mapstructure:"rate_burst"`
}

type StreamConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	URL             string        `mapstructure:"url"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	MaxMarkets      int           `mapstructure:"max_markets"`
}

type IngestConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	MaxMarkets        int           `mapstructure:"max_markets"`
	LadderDepth       int           `mapstructure:"ladder_depth"`
	SnapshotRetention time.Duration `mapstructure:"snapshot_retention"`
	ResultLookback    time.Duration `mapstructure:"result_lookback"`
}

// JobsConfig holds the cron cadence for every scheduled pipeline stage.
type JobsConfig struct {
	ProfileMarkets     string `mapstructure:"profile_markets"`
	ScoreMarkets       string `mapstructure:"score_markets"`
	EvaluateHypotheses string `mapstructure:"evaluate_hypotheses"`
	CaptureClosing     string `mapstructure:"capture_closing"`
	SettleDecisions    string `mapstructure:"settle_decisions"`
	AggregateStats     string `mapstructure:"aggregate_stats"`
}

// ScoringConfig is an immutable snapshot once loaded. Version() identifies
// the exact parameter set on every score row it produces.
type ScoringConfig struct {
	Version string `mapstructure:"version"`

	Weights WeightsConfig `mapstructure:"weights"`

	Spread     SpreadNormConfig     `mapstructure:"spread"`
	Volatility VolatilityNormConfig `mapstructure:"volatility"`
	UpdateRate UpdateRateNormConfig `mapstructure:"update_rate"`
	Depth      DepthNormConfig      `mapstructure:"depth"`
	Volume     VolumeNormConfig     `mapstructure:"volume"`
	Guards     GuardsConfig         `mapstructure:"guards"`
}

type WeightsConfig struct {
	Spread        float64 `mapstructure:"spread"`
	Volatility    float64 `mapstructure:"volatility"`
	UpdateRate    float64 `mapstructure:"update_rate"`
	Depth         float64 `mapstructure:"depth"`
	VolumePenalty float64 `mapstructure:"volume_penalty"`
}

type SpreadNormConfig struct {
	MinTicks   float64 `mapstructure:"min_ticks"`
	SweetTicks float64 `mapstructure:"sweet_ticks"`
	MaxTicks   float64 `mapstructure:"max_ticks"`
}

type VolatilityNormConfig struct {
	Target float64 `mapstructure:"target"`
	Max    float64 `mapstructure:"max"`
}

type UpdateRateNormConfig struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

type DepthNormConfig struct {
	Min     float64 `mapstructure:"min"`
	Optimal float64 `mapstructure:"optimal"`
	Max     float64 `mapstructure:"max"`
}

type VolumeNormConfig struct {
	Threshold float64 `mapstructure:"threshold"`
	Max       float64 `mapstructure:"max"`
	HardCap   float64 `mapstructure:"hard_cap"`
}

type GuardsConfig struct {
	MinDepth        float64 `mapstructure:"min_depth"`
	MaxSpreadTicks  float64 `mapstructure:"max_spread_ticks"`
	MinSnapshots    int     `mapstructure:"min_snapshots"`
}

type ProfilingConfig struct {
	MinSnapshots int `mapstructure:"min_snapshots"`
	LadderLevels int `mapstructure:"ladder_levels"`
}

type ShadowConfig struct {
	BaseStake         float64       `mapstructure:"base_stake"`
	CommissionRate    float64       `mapstructure:"commission_rate"`
	SettlementTimeout time.Duration `mapstructure:"settlement_timeout"`
	ClosingWindow     time.Duration `mapstructure:"closing_window"`
}

type CompetitionConfig struct {
	MinMarketsPerDay int      `mapstructure:"min_markets_per_day"`
	Thresholds       []float64 `mapstructure:"thresholds"`
	RollingDays      int      `mapstructure:"rolling_days"`
	ExcludePatterns  []string `mapstructure:"exclude_patterns"`
}

type ValidationConfig struct {
	Alpha           float64 `mapstructure:"alpha"`
	InSampleShare   float64 `mapstructure:"in_sample_share"`
	MinOutSample    int     `mapstructure:"min_out_sample"`
	MinROIPct       float64 `mapstructure:"min_roi_pct"`
	MinAvgCLV       float64 `mapstructure:"min_avg_clv"`
}

// HypothesisConfig is one named strategy under test. All hypotheses run in
// parallel; the validator corrects significance for their count.
type HypothesisConfig struct {
	Name      string         `mapstructure:"name"`
	Enabled   bool           `mapstructure:"enabled"`
	Side      string         `mapstructure:"side"`
	Selection string         `mapstructure:"selection"`
	StakeUSD  float64        `mapstructure:"stake_usd"`
	Criteria  CriteriaConfig `mapstructure:"criteria"`
}

type CriteriaConfig struct {
	MinScore        float64  `mapstructure:"min_score"`
	MinMinutesToOff int      `mapstructure:"min_minutes_to_off"`
	MaxMinutesToOff int      `mapstructure:"max_minutes_to_off"`
	MinTotalMatched float64  `mapstructure:"min_total_matched"`
	MaxTotalMatched float64  `mapstructure:"max_total_matched"`
	MaxSpreadPct    float64  `mapstructure:"max_spread_pct"`
	Direction       string   `mapstructure:"direction"`
	MinPctChange    float64  `mapstructure:"min_pct_change"`
	MomentumWindow  string   `mapstructure:"momentum_window"`
	MarketTypes     []string `mapstructure:"market_types"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")

	v.SetDefault("exchange.base_url", "")
	v.SetDefault("exchange.timeout", "15s")
	v.SetDefault("exchange.rate_limit_rps", 5)
	v.SetDefault("exchange.rate_burst", 10)

	v.SetDefault("stream.enabled", false)
	v.SetDefault("stream.url", "")
	v.SetDefault("stream.refresh_interval", "30s")
	v.SetDefault("stream.max_markets", 200)

	v.SetDefault("ingest.enabled", true)
	v.SetDefault("ingest.poll_interval", "60s")
	v.SetDefault("ingest.max_markets", 200)
	v.SetDefault("ingest.ladder_depth", 3)
	v.SetDefault("ingest.snapshot_retention", "168h")
	v.SetDefault("ingest.result_lookback", "72h")

	// Job cadence mirrors the operator-facing schedule table.
	v.SetDefault("jobs.profile_markets", "@every 1h")
	v.SetDefault("jobs.score_markets", "@every 5m")
	v.SetDefault("jobs.evaluate_hypotheses", "@every 2m")
	v.SetDefault("jobs.capture_closing", "@every 2m")
	v.SetDefault("jobs.settle_decisions", "@every 15m")
	v.SetDefault("jobs.aggregate_stats", "@every 1h")

	v.SetDefault("scoring.version", "")
	v.SetDefault("scoring.weights.spread", 0.25)
	v.SetDefault("scoring.weights.volatility", 0.25)
	v.SetDefault("scoring.weights.update_rate", 0.15)
	v.SetDefault("scoring.weights.depth", 0.20)
	v.SetDefault("scoring.weights.volume_penalty", 0.15)
	v.SetDefault("scoring.spread.min_ticks", 2)
	v.SetDefault("scoring.spread.sweet_ticks", 8)
	v.SetDefault("scoring.spread.max_ticks", 12)
	v.SetDefault("scoring.volatility.target", 0.04)
	v.SetDefault("scoring.volatility.max", 0.12)
	v.SetDefault("scoring.update_rate.min", 0.2)
	v.SetDefault("scoring.update_rate.max", 2.0)
	v.SetDefault("scoring.depth.min", 150)
	v.SetDefault("scoring.depth.optimal", 1000)
	v.SetDefault("scoring.depth.max", 8000)
	v.SetDefault("scoring.volume.threshold", 30000)
	v.SetDefault("scoring.volume.max", 200000)
	v.SetDefault("scoring.volume.hard_cap", 500000)
	v.SetDefault("scoring.guards.min_depth", 100)
	v.SetDefault("scoring.guards.max_spread_ticks", 20)
	v.SetDefault("scoring.guards.min_snapshots", 5)

	v.SetDefault("profiling.min_snapshots", 2)
	v.SetDefault("profiling.ladder_levels", 3)

	v.SetDefault("shadow.base_stake", 10)
	v.SetDefault("shadow.commission_rate", 0.02)
	v.SetDefault("shadow.settlement_timeout", "72h")
	v.SetDefault("shadow.closing_window", "2h")

	v.SetDefault("competition.min_markets_per_day", 3)
	v.SetDefault("competition.thresholds", []float64{40, 55, 70})
	v.SetDefault("competition.rolling_days", 30)

	v.SetDefault("validation.alpha", 0.05)
	v.SetDefault("validation.in_sample_share", 0.6)
	v.SetDefault("validation.min_out_sample", 20)
	v.SetDefault("validation.min_roi_pct", 0)
	v.SetDefault("validation.min_avg_clv", 0)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	if len(cfg.Hypotheses) == 0 {
		cfg.Hypotheses = DefaultHypotheses()
	}

	return cfg, nil
}

// DefaultHypotheses is the built-in strategy set used when the config file
// does not declare any. Each is independently toggleable.
func DefaultHypotheses() []HypothesisConfig {
	return []HypothesisConfig{
		{
			Name:      "steam_follower",
			Enabled:   true,
			Side:      "BACK",
			Selection: "steamer",
			StakeUSD:  10,
			Criteria: CriteriaConfig{
				MinScore:        30,
				MinMinutesToOff: 360,
				MaxMinutesToOff: 1440,
				MinTotalMatched: 5000,
				MaxSpreadPct:    5,
				Direction:       "STEAMING",
				MinPctChange:    0.05,
				MomentumWindow:  "1h",
				MarketTypes:     []string{"MATCH_ODDS"},
			},
		},
		{
			Name:      "drift_fader",
			Enabled:   true,
			Side:      "LAY",
			Selection: "drifter",
			StakeUSD:  10,
			Criteria: CriteriaConfig{
				MinScore:        35,
				MinMinutesToOff: 360,
				MaxMinutesToOff: 1440,
				MinTotalMatched: 5000,
				MaxSpreadPct:    5,
				Direction:       "DRIFTING",
				MinPctChange:    0.05,
				MomentumWindow:  "2h",
				MarketTypes:     []string{"MATCH_ODDS"},
			},
		},
		{
			Name:      "quiet_value",
			Enabled:   true,
			Side:      "BACK",
			Selection: "best_value",
			StakeUSD:  10,
			Criteria: CriteriaConfig{
				MinScore:        45,
				MinMinutesToOff: 360,
				MaxMinutesToOff: 2880,
				MinTotalMatched: 2000,
				MaxTotalMatched: 100000,
				MaxSpreadPct:    5,
			},
		},
	}
}

// Validate refuses configurations that would silently degrade scoring or
// produce undefined hypothesis behaviour. Callers treat an error as fatal.
func Validate(cfg Config) error {
	s := cfg.Scoring
	for name, w := range map[string]float64{
		"spread":         s.Weights.Spread,
		"volatility":     s.Weights.Volatility,
		"update_rate":    s.Weights.UpdateRate,
		"depth":          s.Weights.Depth,
		"volume_penalty": s.Weights.VolumePenalty,
	} {
		if w < 0 {
			return fmt.Errorf("scoring: weight %s is negative (%v)", name, w)
		}
	}
	if s.Spread.MinTicks < 0 || s.Spread.SweetTicks <= s.Spread.MinTicks || s.Spread.MaxTicks <= s.Spread.SweetTicks {
		return fmt.Errorf("scoring: spread range must satisfy 0 <= min < sweet < max, got %v/%v/%v",
			s.Spread.MinTicks, s.Spread.SweetTicks, s.Spread.MaxTicks)
	}
	if s.Volatility.Target <= 0 || s.Volatility.Max <= s.Volatility.Target {
		return fmt.Errorf("scoring: volatility range must satisfy 0 < target < max, got %v/%v",
			s.Volatility.Target, s.Volatility.Max)
	}
	if s.UpdateRate.Min < 0 || s.UpdateRate.Max <= s.UpdateRate.Min {
		return fmt.Errorf("scoring: update_rate range must satisfy 0 <= min < max, got %v/%v",
			s.UpdateRate.Min, s.UpdateRate.Max)
	}
	if s.Depth.Min < 0 || s.Depth.Optimal <= s.Depth.Min || s.Depth.Max <= s.Depth.Optimal {
		return fmt.Errorf("scoring: depth range must satisfy 0 <= min < optimal < max, got %v/%v/%v",
			s.Depth.Min, s.Depth.Optimal, s.Depth.Max)
	}
	if s.Volume.Threshold < 0 || s.Volume.Max <= s.Volume.Threshold || s.Volume.HardCap < s.Volume.Max {
		return fmt.Errorf("scoring: volume thresholds must satisfy 0 <= threshold < max <= hard_cap, got %v/%v/%v",
			s.Volume.Threshold, s.Volume.Max, s.Volume.HardCap)
	}
	if s.Guards.MinDepth < 0 || s.Guards.MaxSpreadTicks <= 0 || s.Guards.MinSnapshots < 1 {
		return fmt.Errorf("scoring: invalid guards %+v", s.Guards)
	}

	if cfg.Profiling.MinSnapshots < 2 {
		return fmt.Errorf("profiling: min_snapshots must be >= 2, got %d", cfg.Profiling.MinSnapshots)
	}

	if cfg.Shadow.BaseStake <= 0 {
		return fmt.Errorf("shadow: base_stake must be positive, got %v", cfg.Shadow.BaseStake)
	}
	if cfg.Shadow.CommissionRate < 0 || cfg.Shadow.CommissionRate >= 1 {
		return fmt.Errorf("shadow: commission_rate must be in [0,1), got %v", cfg.Shadow.CommissionRate)
	}
	if cfg.Shadow.SettlementTimeout <= 0 {
		return fmt.Errorf("shadow: settlement_timeout must be positive")
	}

	if cfg.Validation.Alpha <= 0 || cfg.Validation.Alpha >= 1 {
		return fmt.Errorf("validation: alpha must be in (0,1), got %v", cfg.Validation.Alpha)
	}
	if cfg.Validation.InSampleShare <= 0 || cfg.Validation.InSampleShare >= 1 {
		return fmt.Errorf("validation: in_sample_share must be in (0,1), got %v", cfg.Validation.InSampleShare)
	}

	if len(cfg.Competition.Thresholds) == 0 || len(cfg.Competition.Thresholds) > 3 {
		return fmt.Errorf("competition: thresholds wants 1-3 values, got %d", len(cfg.Competition.Thresholds))
	}
	prev := -1.0
	for _, t := range cfg.Competition.Thresholds {
		if t <= prev || t < 0 || t > 100 {
			return fmt.Errorf("competition: thresholds must be ascending within [0,100], got %v", cfg.Competition.Thresholds)
		}
		prev = t
	}

	seen := map[string]struct{}{}
	for i, h := range cfg.Hypotheses {
		if strings.TrimSpace(h.Name) == "" {
			return fmt.Errorf("hypotheses[%d]: name is required", i)
		}
		if _, ok := seen[h.Name]; ok {
			return fmt.Errorf("hypotheses: duplicate name %q", h.Name)
		}
		seen[h.Name] = struct{}{}
		if h.Side != "BACK" && h.Side != "LAY" {
			return fmt.Errorf("hypothesis %q: side must be BACK or LAY, got %q", h.Name, h.Side)
		}
		c := h.Criteria
		if c.MinScore < 0 || c.MinScore > 100 {
			return fmt.Errorf("hypothesis %q: min_score must be in [0,100], got %v", h.Name, c.MinScore)
		}
		if c.MinMinutesToOff < 0 || (c.MaxMinutesToOff > 0 && c.MaxMinutesToOff <= c.MinMinutesToOff) {
			return fmt.Errorf("hypothesis %q: minutes-to-off window invalid (%d..%d)", h.Name, c.MinMinutesToOff, c.MaxMinutesToOff)
		}
		if c.MinTotalMatched < 0 || (c.MaxTotalMatched > 0 && c.MaxTotalMatched < c.MinTotalMatched) {
			return fmt.Errorf("hypothesis %q: matched-volume bounds invalid (%v..%v)", h.Name, c.MinTotalMatched, c.MaxTotalMatched)
		}
		if c.MaxSpreadPct < 0 {
			return fmt.Errorf("hypothesis %q: max_spread_pct is negative", h.Name)
		}
		switch c.Direction {
		case "", "STEAMING", "DRIFTING":
		default:
			return fmt.Errorf("hypothesis %q: direction must be STEAMING or DRIFTING, got %q", h.Name, c.Direction)
		}
		if c.Direction != "" && c.MomentumWindow == "" {
			return fmt.Errorf("hypothesis %q: momentum_window is required when direction is set", h.Name)
		}
		if h.StakeUSD < 0 {
			return fmt.Errorf("hypothesis %q: stake_usd is negative", h.Name)
		}
	}

	return nil
}
