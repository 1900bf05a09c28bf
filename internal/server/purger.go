package server

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/contactgain/internal/lifecycle"
	"github.com/wolfeidau/contactgain/internal/store"
	"github.com/wolfeidau/contactgain/internal/telemetry"
)

// DefaultPurgeInterval is how often contacts past their grace period are removed.
const DefaultPurgeInterval = 10 * time.Minute

// Purger periodically deletes contacts of sessions whose grace period has ended.
// Once a session is PermanentlyExpired its contacts can no longer be downloaded.
type Purger struct {
	store    store.SessionStore
	clock    lifecycle.Clock
	interval time.Duration
	metrics  *telemetry.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPurger creates a purger that runs every interval.
// The purger starts a background goroutine that runs until Stop() is called.
func NewPurger(ctx context.Context, sessionStore store.SessionStore, clock lifecycle.Clock, interval time.Duration) *Purger {
	if interval <= 0 {
		interval = DefaultPurgeInterval
	}

	purgerCtx, cancel := context.WithCancel(ctx)

	p := &Purger{
		store:    sessionStore,
		clock:    clock,
		interval: interval,
		metrics:  telemetry.GetMetrics(),
		ctx:      purgerCtx,
		cancel:   cancel,
	}

	// Start background purge goroutine
	p.wg.Add(1)
	go p.purgeLoop()

	// Do initial purge synchronously so a restarted server catches up
	if _, err := p.PurgeOnce(ctx); err != nil {
		log.Error().Err(err).Msg("Initial contact purge failed")
	}

	return p
}

// Stop gracefully stops the background purge goroutine.
func (p *Purger) Stop() {
	p.cancel()
	p.wg.Wait()
}

// PurgeOnce removes contacts of every session whose grace period ended before now.
func (p *Purger) PurgeOnce(ctx context.Context) (int, error) {
	started := time.Now()
	cutoff := p.clock.Now().Add(-lifecycle.GracePeriod)

	count, err := p.store.PurgeContacts(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	p.metrics.PurgeDuration.Record(ctx, float64(time.Since(started).Milliseconds()))
	p.metrics.ContactsPurgedTotal.Add(ctx, int64(count))

	log.Debug().Int("count", count).Time("cutoff", cutoff).Msg("Purge finished")
	return count, nil
}

func (p *Purger) purgeLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			log.Info().Msg("Contact purger stopped")
			return

		case <-ticker.C:
			if _, err := p.PurgeOnce(p.ctx); err != nil {
				log.Error().Err(err).Msg("Failed to purge expired contacts")
			}
		}
	}
}
