// internal/service/audience/syncer.go

package audience

import (
	"context"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"collabmap/internal/domain/creator"
)

// SyncerConfig contains configuration for the follower-count syncer.
type SyncerConfig struct {
	Interval time.Duration
	Subject  string
}

// Syncer periodically refreshes creator follower counts from a social
// source and publishes a change event when any count moves. One creator's
// failure never aborts the rest of the sweep.
type Syncer struct {
	store    creator.Store
	source   FollowerSource
	eventBus *nats.Conn
	cfg      SyncerConfig
	log      zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSyncer creates a follower-count syncer.
func NewSyncer(store creator.Store, source FollowerSource, eventBus *nats.Conn, cfg SyncerConfig, log zerolog.Logger) *Syncer {
	return &Syncer{
		store:    store,
		source:   source,
		eventBus: eventBus,
		cfg:      cfg,
		log:      log,
	}
}

// Start begins the periodic sync loop.
func (s *Syncer) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.syncOnce(ctx)
			}
		}
	}()
}

// Stop halts the sync loop and waits for an in-flight sweep to finish.
func (s *Syncer) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// syncOnce sweeps all creators with a social handle and updates counts
// that changed. Publishes a single change event at the end of a sweep
// that updated anything.
func (s *Syncer) syncOnce(ctx context.Context) {
	creators, err := s.store.ListCreators(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("listing creators for follower sync")
		return
	}

	updated := 0
	for _, c := range creators {
		if c.TwitterHandle == "" {
			continue
		}

		count, err := s.source.FollowerCount(ctx, c.TwitterHandle)
		if err != nil {
			s.log.Warn().Err(err).Str("creator", c.ID).Msg("fetching follower count")
			continue
		}

		if count == c.FollowerCount {
			continue
		}

		if err := s.store.UpdateFollowerCount(ctx, c.ID, count); err != nil {
			s.log.Warn().Err(err).Str("creator", c.ID).Msg("updating follower count")
			continue
		}
		updated++
	}

	if updated > 0 {
		s.publishChanged(updated)
	}
}

func (s *Syncer) publishChanged(updated int) {
	if s.eventBus == nil {
		return
	}

	if err := s.eventBus.Publish(s.cfg.Subject, nil); err != nil {
		s.log.Warn().Err(err).Msg("publishing creator change event")
		return
	}

	s.log.Info().Int("updated", updated).Msg("follower counts refreshed")
}
