package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/scopeline/scopeline/pkg/lifecycle"
)

// RedisStore keeps job records as JSON values under jobs:{id} with the
// configured TTL refreshed on every write. Invariant enforcement relies on
// the single-writer-per-job guarantee held by the orchestrator.
type RedisStore struct {
	config Config
	client *redis.Client
}

func NewRedisStore(config Config) *RedisStore {
	return &RedisStore{
		config: config,
		client: redis.NewClient(&redis.Options{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
			DB:       config.RedisDB,
		}),
	}
}

func jobKey(id uuid.UUID) string {
	return fmt.Sprintf("jobs:%s", id)
}

func (s *RedisStore) Start(lc *lifecycle.Coordinator) error {
	if err := s.client.Ping(lc.Context()).Err(); err != nil {
		return fmt.Errorf("jobs: redis ping: %w", err)
	}

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		s.client.Close()
	})
	return nil
}

func (s *RedisStore) Create(ctx context.Context, job *Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("jobs: encode job: %w", err)
	}

	ok, err := s.client.SetNX(ctx, jobKey(job.ID), payload, s.config.TTLDuration()).Result()
	if err != nil {
		return fmt.Errorf("jobs: create: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrExists, job.ID)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	data, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("jobs: get: %w", err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("jobs: decode job: %w", err)
	}
	return &job, nil
}

func (s *RedisStore) Update(ctx context.Context, job *Job) error {
	current, err := s.Get(ctx, job.ID)
	if err != nil {
		return err
	}
	if current.Status.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminal, job.ID)
	}

	next := job.Clone()
	if next.Progress < current.Progress {
		next.Progress = current.Progress
	}

	payload, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("jobs: encode job: %w", err)
	}
	if err := s.client.Set(ctx, jobKey(job.ID), payload, s.config.TTLDuration()).Err(); err != nil {
		return fmt.Errorf("jobs: update: %w", err)
	}
	return nil
}
