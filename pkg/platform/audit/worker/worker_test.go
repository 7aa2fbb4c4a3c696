package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "studentreg/pkg/platform/audit"
	"studentreg/pkg/platform/audit/store/memory"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error { return errors.New("disk full") }

func TestWorker_DrainsUntilClosed(t *testing.T) {
	store := memory.NewInMemoryStore(0)
	inbox := make(chan audit.Event, 3)
	inbox <- audit.Event{Subject: "a"}
	inbox <- audit.Event{Subject: "b"}
	close(inbox)

	require.NoError(t, NewWorker(store, inbox, nil, nil).Run(context.Background()))
	events, err := store.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestWorker_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := NewWorker(memory.NewInMemoryStore(0), make(chan audit.Event), nil, nil).Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWorker_ContinuesAfterFailure(t *testing.T) {
	inbox := make(chan audit.Event, 2)
	inbox <- audit.Event{Subject: "a"}
	inbox <- audit.Event{Subject: "b"}
	close(inbox)

	failures := 0
	require.NoError(t, NewWorker(failingStore{}, inbox, nil, func() { failures++ }).Run(context.Background()))
	assert.Equal(t, 2, failures)
}
