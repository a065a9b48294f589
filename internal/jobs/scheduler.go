package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"secureauth/api/internal/session"
)

// Scheduler runs periodic maintenance. Sessions themselves expire via
// Redis TTLs; the only recurring work is sweeping dead entries out of
// the per-user session index sets.
type Scheduler struct {
	cron     *cron.Cron
	sessions *session.Manager
	log      zerolog.Logger
}

func NewScheduler(sessions *session.Manager, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		sessions: sessions,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if s.sessions == nil {
		return nil
	}

	if _, err := s.cron.AddFunc("0 0 */1 * * *", s.pruneSessionIndexes); err != nil { // hourly
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits up to five seconds for a running
// job to finish.
func (s *Scheduler) Stop() {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) pruneSessionIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pruned, err := s.sessions.PruneIndexes(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("prune session indexes failed")
		return
	}
	if pruned > 0 {
		s.log.Debug().Int("pruned", pruned).Msg("session indexes pruned")
	}
}
