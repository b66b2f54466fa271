package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

type marketSubscribeRequest struct {
	Op        string   `json:"op"`
	MarketIDs []string `json:"market_ids"`
}

// StreamEnvelope is the routing header of one stream message; the full
// payload is handed to the consumer as raw JSON.
type StreamEnvelope struct {
	Op        string `json:"op"`
	MarketID  string `json:"market_id"`
	Timestamp string `json:"timestamp"`
}

// MarketIDProvider supplies the current subscription set; it is polled on
// the refresh interval so the stream follows the tracked-market churn.
type MarketIDProvider func(context.Context) ([]string, error)

type wsConn struct {
	url  string
	conn *websocket.Conn
}

func (c *wsConn) connect(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return err
	}
	// Full-book messages for busy markets can exceed the default limit.
	conn.SetReadLimit(2 << 20)
	c.conn = conn
	return nil
}

func (c *wsConn) close(status websocket.StatusCode, reason string) error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close(status, reason)
}

func (c *wsConn) send(ctx context.Context, op string, marketIDs []string) error {
	if c == nil || c.conn == nil {
		return fmt.Errorf("ws not connected")
	}
	payload, err := json.Marshal(marketSubscribeRequest{Op: op, MarketIDs: marketIDs})
	if err != nil {
		return err
	}
	return c.conn.Write(ctx, websocket.MessageText, payload)
}

func (c *wsConn) read(ctx context.Context) (StreamEnvelope, []byte, error) {
	if c == nil || c.conn == nil {
		return StreamEnvelope{}, nil, fmt.Errorf("ws not connected")
	}
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		return StreamEnvelope{}, nil, err
	}
	var env StreamEnvelope
	_ = json.Unmarshal(data, &env)
	return env, data, nil
}

type MarketStreamOptions struct {
	URL               string
	Provider          MarketIDProvider
	RefreshInterval   time.Duration
	HeartbeatInterval time.Duration
	PingTimeout       time.Duration
	BackoffMin        time.Duration
	BackoffMax        time.Duration
	Logger            *zap.Logger
}

// MarketStream maintains a resilient subscription to the market-change
// feed: reconnect with jittered backoff, heartbeat pings, and periodic
// subscription diffs as markets enter and leave the tracked window.
type MarketStream struct {
	opts MarketStreamOptions
}

func NewMarketStream(opts MarketStreamOptions) *MarketStream {
	if opts.HeartbeatInterval == 0 {
		opts.HeartbeatInterval = 20 * time.Second
	}
	if opts.PingTimeout == 0 {
		opts.PingTimeout = 5 * time.Second
	}
	if opts.BackoffMin == 0 {
		opts.BackoffMin = time.Second
	}
	if opts.BackoffMax == 0 {
		opts.BackoffMax = 30 * time.Second
	}
	if opts.RefreshInterval == 0 {
		opts.RefreshInterval = 30 * time.Second
	}
	return &MarketStream{opts: opts}
}

func (s *MarketStream) Run(ctx context.Context, onMessage func(StreamEnvelope, []byte)) error {
	if s == nil || s.opts.URL == "" || s.opts.Provider == nil {
		return fmt.Errorf("stream misconfigured")
	}
	backoff := s.opts.BackoffMin
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		client := &wsConn{url: s.opts.URL}
		if err := client.connect(ctx); err != nil {
			s.logWarn("stream connect failed", err)
			if err := sleepWithJitter(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff, s.opts.BackoffMax)
			continue
		}

		marketIDs, err := s.opts.Provider(ctx)
		if err != nil || len(marketIDs) == 0 {
			_ = client.close(websocket.StatusInternalError, "no markets to subscribe")
			if err := sleepWithJitter(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff, s.opts.BackoffMax)
			continue
		}
		if err := client.send(ctx, "subscribe", marketIDs); err != nil {
			s.logWarn("stream subscribe failed", err)
			_ = client.close(websocket.StatusInternalError, "subscribe failed")
			if err := sleepWithJitter(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff, s.opts.BackoffMax)
			continue
		}
		if s.opts.Logger != nil {
			s.opts.Logger.Info("market stream subscribed", zap.Int("markets", len(marketIDs)))
		}
		backoff = s.opts.BackoffMin

		err = s.consume(ctx, client, onMessage, setFromSlice(marketIDs))
		_ = client.close(websocket.StatusNormalClosure, "reconnect")
		if err == nil || errors.Is(err, context.Canceled) {
			return err
		}
		if err := sleepWithJitter(ctx, backoff); err != nil {
			return err
		}
		backoff = nextBackoff(backoff, s.opts.BackoffMax)
	}
}

func (s *MarketStream) consume(ctx context.Context, client *wsConn, onMessage func(StreamEnvelope, []byte), current map[string]struct{}) error {
	heartbeatErr := make(chan error, 1)
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		ticker := time.NewTicker(s.opts.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				heartbeatErr <- loopCtx.Err()
				return
			case <-ticker.C:
				pingCtx, cancelPing := context.WithTimeout(loopCtx, s.opts.PingTimeout)
				err := client.conn.Ping(pingCtx)
				cancelPing()
				if err != nil {
					heartbeatErr <- err
					return
				}
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(s.opts.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				ids, err := s.opts.Provider(loopCtx)
				if err != nil {
					continue
				}
				next := setFromSlice(ids)
				added, removed := diffSets(current, next)
				if len(added) > 0 {
					_ = client.send(loopCtx, "subscribe", added)
				}
				if len(removed) > 0 {
					_ = client.send(loopCtx, "unsubscribe", removed)
				}
				current = next
			}
		}
	}()

	for {
		select {
		case err := <-heartbeatErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		default:
		}
		env, raw, err := client.read(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				s.logWarn("stream read failed", err)
			}
			return err
		}
		if strings.EqualFold(env.Op, "ping") {
			_ = client.send(ctx, "pong", nil)
			continue
		}
		if onMessage != nil {
			onMessage(env, raw)
		}
	}
}

func (s *MarketStream) logWarn(msg string, err error) {
	if s == nil || s.opts.Logger == nil {
		return
	}
	s.opts.Logger.Warn(msg, zap.Error(err))
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func sleepWithJitter(ctx context.Context, base time.Duration) error {
	if base <= 0 {
		return nil
	}
	jitter := time.Duration(rand.Int63n(int64(base/2) + 1))
	timer := time.NewTimer(base + jitter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func setFromSlice(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out[item] = struct{}{}
	}
	return out
}

func diffSets(current, next map[string]struct{}) (added, removed []string) {
	for key := range next {
		if _, ok := current[key]; !ok {
			added = append(added, key)
		}
	}
	for key := range current {
		if _, ok := next[key]; !ok {
			removed = append(removed, key)
		}
	}
	return added, removed
}
