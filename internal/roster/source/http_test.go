package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentreg/internal/roster/models"
)

const usersJSON = `[
  {"id": 1, "name": "Leanne Graham", "email": "Sincere@april.biz", "phone": "1-770-736-8031", "company": {"name": "Romaguera-Crona"}},
  {"id": 2, "name": "Ervin Howell", "email": "Shanna@melissa.tv", "phone": "010-692-6593", "company": {"name": "Deckow-Crist"}},
  {"id": 3, "name": "Clementine Bauch", "email": "Nathan@yesenia.net", "phone": "1-463-123-4447", "company": {"name": "Romaguera-Jacobson"}},
  {"id": 4, "name": "Patricia Lebsack", "email": "Julianne.OConner@kory.org", "phone": "493-170-9623", "company": {"name": "Robel-Corkery"}}
]`

func usersServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(usersJSON))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTP_MapsUsers(t *testing.T) {
	var hits atomic.Int32
	srv := usersServer(t, &hits)

	students, err := NewHTTP(srv.URL, 0).Students(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 4)

	first := students[0]
	assert.Equal(t, "Leanne Graham", first.Name)
	assert.Equal(t, "Romaguera-Crona", first.College)
	assert.Equal(t, "B.Sc", first.Degree)
	assert.Equal(t, 2025, first.Year)
	assert.Equal(t, "1990-01-01", first.BirthDate)
	assert.Equal(t, models.StatusPending, first.Status)

	assert.Equal(t, "B.Com", students[1].Degree)
	assert.Equal(t, "B.A", students[2].Degree)
	assert.Equal(t, 2022, students[3].Year)
	assert.Equal(t, "1993-01-01", students[3].BirthDate)
}

func TestHTTP_StableIDs(t *testing.T) {
	var hits atomic.Int32
	srv := usersServer(t, &hits)
	src := NewHTTP(srv.URL, 0)

	a, err := src.Students(context.Background())
	require.NoError(t, err)
	b, err := src.Students(context.Background())
	require.NoError(t, err)
	assert.Equal(t, a[2].ID, b[2].ID)
	assert.NotEqual(t, a[0].ID, a[1].ID)
	assert.Equal(t, int32(2), hits.Load())
}

func TestHTTP_CachesWithinTTL(t *testing.T) {
	var hits atomic.Int32
	srv := usersServer(t, &hits)
	src := NewHTTP(srv.URL, time.Minute)

	for range 3 {
		_, err := src.Students(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())

	src.Invalidate()
	_, err := src.Students(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestHTTP_CachedListIsNotShared(t *testing.T) {
	var hits atomic.Int32
	srv := usersServer(t, &hits)
	src := NewHTTP(srv.URL, time.Minute)

	a, err := src.Students(context.Background())
	require.NoError(t, err)
	a[0].Status = models.StatusApproved

	b, err := src.Students(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, b[0].Status)
}

func TestHTTP_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTP(srv.URL, time.Minute).Students(context.Background())
	assert.ErrorContains(t, err, "unexpected status 503")
}
