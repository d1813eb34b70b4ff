package jobs

import (
	"context"
	"log/slog"

	"github.com/scopeline/scopeline/pkg/lifecycle"
)

// System bundles the configured store with the event broker.
type System struct {
	config Config
	store  Store
	broker *Broker
	logger *slog.Logger
}

func NewSystem(config Config, logger *slog.Logger) *System {
	var store Store
	switch config.Backend {
	case BackendRedis:
		store = NewRedisStore(config)
	default:
		store = NewMemoryStore(config)
	}

	return &System{
		config: config,
		store:  store,
		broker: NewBroker(),
		logger: logger.With("system", "jobs"),
	}
}

func (s *System) Start(lc *lifecycle.Coordinator) error {
	if err := s.store.Start(lc); err != nil {
		return err
	}
	s.logger.Info("job store started", "backend", s.config.Backend, "ttl", s.config.TTL)
	return nil
}

func (s *System) Store() Store    { return s.store }
func (s *System) Broker() *Broker { return s.broker }

func (s *System) Handler() *Handler {
	return NewHandler(s.store, s.broker, s.logger)
}

// Publish persists the job's state and then notifies subscribers, keeping
// the store ahead of the push channel so a poll after an event never
// observes older state.
func (s *System) Publish(ctx context.Context, job *Job) error {
	if err := s.store.Update(ctx, job); err != nil {
		return err
	}
	s.broker.Publish(job.ID, Snapshot(job))
	return nil
}
