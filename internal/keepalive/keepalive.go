package keepalive

import (
	"fmt"
	"sync"
	"time"
)

// Config holds the fixed settings of a keep-alive.
type Config struct {
	// Location names the monitored plug.
	Location string

	// Interval is the heartbeat period.
	Interval time.Duration

	// Timeout is how long the location may stay silent while the plug is on.
	Timeout time.Duration

	// PublishTopic receives heartbeats. Empty suppresses publishing but
	// heartbeats are still counted.
	PublishTopic string

	// SubscribeTopic carries liveness signals.
	SubscribeTopic string
}

// KeepAlive is the liveness record for one location.
//
// Thread Safety:
//   - Counters are guarded by a mutex; Check and HandleSignal run on
//     different goroutines.
type KeepAlive struct {
	cfg Config

	mu           sync.Mutex
	sent         int
	lastSent     time.Time
	lastReceived time.Time
	lastValue    string

	// expired is set once the plug has been driven off for the current
	// silence and cleared by a signal or by the plug being seen off.
	expired bool
}

// Status is a point-in-time copy of a KeepAlive's counters.
type Status struct {
	Location     string    `json:"location"`
	Sent         int       `json:"sent"`
	LastSent     time.Time `json:"last_sent"`
	LastReceived time.Time `json:"last_received"`
	LastValue    string    `json:"last_value"`
	Expired      bool      `json:"expired"`
}

// NewKeepAlive validates cfg and returns a record activated at now.
//
// Returns:
//   - *KeepAlive: Record with zero heartbeats sent
//   - error: ErrInvalidKeepAlive describing the first bad field
func NewKeepAlive(cfg Config, now time.Time) (*KeepAlive, error) {
	switch {
	case cfg.Location == "":
		return nil, fmt.Errorf("%w: location is required", ErrInvalidKeepAlive)
	case cfg.Interval <= 0:
		return nil, fmt.Errorf("%w: %s interval must be positive", ErrInvalidKeepAlive, cfg.Location)
	case cfg.Timeout <= 0:
		return nil, fmt.Errorf("%w: %s timeout must be positive", ErrInvalidKeepAlive, cfg.Location)
	case cfg.SubscribeTopic == "":
		return nil, fmt.Errorf("%w: %s subscribe topic is required", ErrInvalidKeepAlive, cfg.Location)
	}

	return &KeepAlive{
		cfg:          cfg,
		lastSent:     now,
		lastReceived: now,
	}, nil
}

// Config returns the fixed settings.
func (k *KeepAlive) Config() Config { return k.cfg }

// Status returns a copy of the counters.
func (k *KeepAlive) Status() Status {
	k.mu.Lock()
	defer k.mu.Unlock()
	return Status{
		Location:     k.cfg.Location,
		Sent:         k.sent,
		LastSent:     k.lastSent,
		LastReceived: k.lastReceived,
		LastValue:    k.lastValue,
		Expired:      k.expired,
	}
}
