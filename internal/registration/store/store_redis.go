package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"studentreg/internal/registration/form"
	id "studentreg/pkg/domain"
	"studentreg/pkg/platform/sentinel"
)

const (
	formKeyPrefix     = "regform:"
	defaultMaxRetries = 5
)

var watchConflicts = promauto.NewCounter(prometheus.CounterOpts{
	Name: "studentreg_form_store_watch_conflicts_total",
	Help: "Optimistic transaction conflicts on the Redis form store",
})

// Redis stores form instances as JSON with a sliding TTL so several service
// replicas can share them. Updates run inside WATCH/MULTI and retry on conflict.
type Redis struct {
	client     *redis.Client
	ttl        time.Duration
	maxRetries int
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithRedisTTL overrides DefaultTTL.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *Redis) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMaxRetries bounds optimistic retries before giving up with ErrConflict.
func WithMaxRetries(n int) RedisOption {
	return func(s *Redis) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// NewRedis builds a store on an existing client; the caller owns the client.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	s := &Redis{client: client, ttl: DefaultTTL, maxRetries: defaultMaxRetries}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func formKey(formID id.FormID) string {
	return formKeyPrefix + formID.String()
}

// Create stores a new form; an existing key is a conflict.
func (s *Redis) Create(ctx context.Context, st form.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode form: %w", err)
	}
	ok, err := s.client.SetNX(ctx, formKey(st.ID), raw, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("create form: %w", err)
	}
	if !ok {
		return fmt.Errorf("form %s: %w", st.ID, sentinel.ErrConflict)
	}
	return nil
}

// FindByID loads a form state.
func (s *Redis) FindByID(ctx context.Context, formID id.FormID) (form.State, error) {
	raw, err := s.client.Get(ctx, formKey(formID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return form.State{}, ErrNotFound
	}
	if err != nil {
		return form.State{}, fmt.Errorf("load form: %w", err)
	}
	return decodeState(raw)
}

// Update applies fn inside an optimistic transaction.
func (s *Redis) Update(ctx context.Context, formID id.FormID, fn func(form.State) (form.State, error)) (form.State, error) {
	key := formKey(formID)
	var result form.State
	var fnErr error

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load form: %w", err)
		}
		current, err := decodeState(raw)
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			result, fnErr = current, err
			return nil
		}
		encoded, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode form: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl)
			return nil
		})
		if err == nil {
			result, fnErr = next, nil
		}
		return err
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			watchConflicts.Inc()
			continue
		}
		if err != nil {
			return form.State{}, err
		}
		return result, fnErr
	}
	return form.State{}, fmt.Errorf("update form %s: %w", formID, sentinel.ErrConflict)
}

// Delete removes a form.
func (s *Redis) Delete(ctx context.Context, formID id.FormID) error {
	n, err := s.client.Del(ctx, formKey(formID)).Result()
	if err != nil {
		return fmt.Errorf("delete form: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func decodeState(raw []byte) (form.State, error) {
	var st form.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return form.State{}, fmt.Errorf("decode form: %w", err)
	}
	return st, nil
}
