package live

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Monitor sweeps every registered connection on a fixed interval. A
// connection that has not acknowledged the previous probe is forcibly
// terminated; everyone else has their alive flag cleared and gets a new
// probe. Silent network failures are therefore detected within two
// intervals.
type Monitor struct {
	registry *Registry
	interval time.Duration
	clock    clockwork.Clock
}

func NewMonitor(registry *Registry, interval time.Duration, clock clockwork.Clock) *Monitor {
	return &Monitor{
		registry: registry,
		interval: interval,
		clock:    clock,
	}
}

// Run sweeps until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", m.interval).Msg("liveness monitor started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("liveness monitor stopped")
			return
		case <-ticker.Chan():
			m.sweep()
		}
	}
}

func (m *Monitor) sweep() {
	for _, c := range m.registry.allConns() {
		if !c.Alive() {
			log.Warn().
				Str("connection_id", c.ID()).
				Str("group_id", c.GroupID()).
				Str("user_id", c.UserID()).
				Msg("terminating stale connection")
			c.Terminate()
			continue
		}

		c.SetAlive(false)
		if err := c.Ping(); err != nil {
			log.Debug().
				Err(err).
				Str("connection_id", c.ID()).
				Msg("probe failed, terminating connection")
			c.Terminate()
		}
	}
}
