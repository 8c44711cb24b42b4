// Package health tracks provider availability so jobs can skip a
// known-down provider without paying its timeout cost. The cache is a
// best-effort hint shared across concurrent jobs, not a source of truth.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultProbeInterval = 30 * time.Minute

type Status struct {
	Available   bool      `json:"available"`
	LastChecked time.Time `json:"last_checked"`
	LastError   string    `json:"last_error,omitempty"`
}

type Cache struct {
	mu sync.RWMutex
	m  map[string]Status
}

func NewCache() *Cache {
	return &Cache{m: make(map[string]Status)}
}

// Get reports the last known status. ok is false for providers that have
// never been checked; callers should treat those as available.
func (c *Cache) Get(providerID string) (Status, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.m[providerID]
	return s, ok
}

// Report records the outcome of a real call or a probe.
func (c *Cache) Report(providerID string, err error) {
	s := Status{Available: err == nil, LastChecked: time.Now().UTC()}
	if err != nil {
		s.LastError = err.Error()
	}

	c.mu.Lock()
	c.m[providerID] = s
	c.mu.Unlock()
}

// Snapshot returns a copy of all tracked statuses, for the api-status
// endpoint.
func (c *Cache) Snapshot() map[string]Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]Status, len(c.m))
	for k, v := range c.m {
		out[k] = v
	}
	return out
}

// Probe is one provider's connectivity check.
type Probe func(ctx context.Context) error

// StartProbe runs every probe once immediately and then on a fixed
// interval until ctx is cancelled.
func (c *Cache) StartProbe(ctx context.Context, interval time.Duration, probes map[string]Probe, log *logrus.Logger) {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}

	run := func() {
		for id, probe := range probes {
			err := probe(ctx)
			c.Report(id, err)
			if err != nil {
				log.WithField("provider", id).WithError(err).Warn("provider health check failed")
			} else {
				log.WithField("provider", id).Debug("provider health check ok")
			}
		}
	}

	go func() {
		run()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()
}
