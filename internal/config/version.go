package config

import (
	"fmt"
	"hash/fnv"
)

// ResolvedVersion returns the identifier recorded on every score row
// produced with this parameter set. An explicit version label wins;
// otherwise the parameters are fingerprinted so that any change to any
// weight or threshold yields a new identifier.
func (s ScoringConfig) ResolvedVersion() string {
	if s.Version != "" {
		return s.Version
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "w:%v,%v,%v,%v,%v|sp:%v,%v,%v|vol:%v,%v|up:%v,%v|d:%v,%v,%v|v:%v,%v,%v|g:%v,%v,%d",
		s.Weights.Spread, s.Weights.Volatility, s.Weights.UpdateRate, s.Weights.Depth, s.Weights.VolumePenalty,
		s.Spread.MinTicks, s.Spread.SweetTicks, s.Spread.MaxTicks,
		s.Volatility.Target, s.Volatility.Max,
		s.UpdateRate.Min, s.UpdateRate.Max,
		s.Depth.Min, s.Depth.Optimal, s.Depth.Max,
		s.Volume.Threshold, s.Volume.Max, s.Volume.HardCap,
		s.Guards.MinDepth, s.Guards.MaxSpreadTicks, s.Guards.MinSnapshots,
	)
	return fmt.Sprintf("auto-%016x", h.Sum64())
}
