package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"studentreg/internal/registration/form"
	"studentreg/internal/registration/models"
	id "studentreg/pkg/domain"
	"studentreg/pkg/platform/sentinel"
)

type formStore interface {
	Create(ctx context.Context, st form.State) error
	FindByID(ctx context.Context, formID id.FormID) (form.State, error)
	Update(ctx context.Context, formID id.FormID, fn func(form.State) (form.State, error)) (form.State, error)
	Delete(ctx context.Context, formID id.FormID) error
}

var storeNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

// formStoreSuite holds behaviour every form store must share. Embedding suites
// set store in SetupTest.
type formStoreSuite struct {
	suite.Suite
	store formStore
}

func newState() form.State {
	return form.State{
		ID:        id.NewFormID(),
		Values:    models.Form{FullName: "Asha Rao"},
		Touched:   models.TouchedSet{},
		Errors:    models.FieldErrors{},
		Status:    models.StatusEditing,
		Version:   1,
		CreatedAt: storeNow,
		UpdatedAt: storeNow,
	}
}

func (s *formStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	st := newState()
	s.Require().NoError(s.store.Create(ctx, st))

	got, err := s.store.FindByID(ctx, st.ID)
	s.Require().NoError(err)
	s.Equal(st.ID, got.ID)
	s.Equal(st.Values, got.Values)
	s.Equal(models.StatusEditing, got.Status)
	s.True(st.CreatedAt.Equal(got.CreatedAt))
}

func (s *formStoreSuite) TestCreateTwiceConflicts() {
	ctx := context.Background()
	st := newState()
	s.Require().NoError(s.store.Create(ctx, st))
	s.ErrorIs(s.store.Create(ctx, st), sentinel.ErrConflict)
}

func (s *formStoreSuite) TestFindMissing() {
	_, err := s.store.FindByID(context.Background(), id.NewFormID())
	s.ErrorIs(err, ErrNotFound)
}

func (s *formStoreSuite) TestUpdate() {
	ctx := context.Background()
	st := newState()
	s.Require().NoError(s.store.Create(ctx, st))

	next, err := s.store.Update(ctx, st.ID, func(cur form.State) (form.State, error) {
		cur.Values = cur.Values.With(models.FieldDegree, "BSc")
		cur.Version++
		return cur, nil
	})
	s.Require().NoError(err)
	s.Equal("BSc", next.Values.Degree)

	got, err := s.store.FindByID(ctx, st.ID)
	s.Require().NoError(err)
	s.Equal(uint64(2), got.Version)
	s.Equal("BSc", got.Values.Degree)
}

func (s *formStoreSuite) TestUpdateErrorSavesNothing() {
	ctx := context.Background()
	st := newState()
	s.Require().NoError(s.store.Create(ctx, st))
	boom := errors.New("boom")

	cur, err := s.store.Update(ctx, st.ID, func(cur form.State) (form.State, error) {
		cur.Status = models.StatusSucceeded
		return cur, boom
	})
	s.ErrorIs(err, boom)
	s.Equal(models.StatusEditing, cur.Status)

	got, err := s.store.FindByID(ctx, st.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusEditing, got.Status)
}

func (s *formStoreSuite) TestUpdateMissing() {
	_, err := s.store.Update(context.Background(), id.NewFormID(), func(cur form.State) (form.State, error) {
		s.Fail("fn must not run for a missing form")
		return cur, nil
	})
	s.ErrorIs(err, ErrNotFound)
}

func (s *formStoreSuite) TestConcurrentUpdatesAreSerialized() {
	ctx := context.Background()
	st := newState()
	s.Require().NoError(s.store.Create(ctx, st))

	const writers = 8
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.store.Update(ctx, st.ID, func(cur form.State) (form.State, error) {
				cur.Version++
				return cur, nil
			})
		}()
	}
	wg.Wait()

	got, err := s.store.FindByID(ctx, st.ID)
	s.Require().NoError(err)
	// Redis may give up after its retry budget; a lost write is never silent.
	s.LessOrEqual(got.Version, uint64(1+writers))
	s.Greater(got.Version, uint64(1))
}

func (s *formStoreSuite) TestDelete() {
	ctx := context.Background()
	st := newState()
	s.Require().NoError(s.store.Create(ctx, st))
	s.Require().NoError(s.store.Delete(ctx, st.ID))

	_, err := s.store.FindByID(ctx, st.ID)
	s.ErrorIs(err, ErrNotFound)
	s.ErrorIs(s.store.Delete(ctx, st.ID), ErrNotFound)
}
