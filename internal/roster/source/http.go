// Package source fetches the student list shown on the admin board.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"studentreg/internal/roster/models"
	id "studentreg/pkg/domain"
)

const (
	DefaultURL = "https://jsonplaceholder.typicode.com/users"

	// demoBaseYear anchors the synthetic enrollment years of fetched users.
	demoBaseYear = 2025
	maxBodyBytes = 1 << 20
)

var demoDegrees = []string{"B.Sc", "B.Com", "B.A"}

type remoteUser struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company struct {
		Name string `json:"name"`
	} `json:"company"`
}

// HTTP reads a JSON user list and maps it onto roster rows. Responses are
// cached for the configured TTL.
type HTTP struct {
	url    string
	client *http.Client
	cache  *gocache.Cache
}

type HTTPOption func(*HTTP)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		if c != nil {
			h.client = c
		}
	}
}

// NewHTTP creates a source for url. A zero ttl disables caching.
func NewHTTP(url string, ttl time.Duration, opts ...HTTPOption) *HTTP {
	if url == "" {
		url = DefaultURL
	}
	h := &HTTP{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	if ttl > 0 {
		h.cache = gocache.New(ttl, 2*ttl)
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Students returns the mapped list, from cache when fresh.
func (h *HTTP) Students(ctx context.Context) ([]models.Student, error) {
	if h.cache != nil {
		if v, ok := h.cache.Get(h.url); ok {
			if students, ok := v.([]models.Student); ok {
				return slices.Clone(students), nil
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build roster request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch roster: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch roster: unexpected status %d", resp.StatusCode)
	}

	var users []remoteUser
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&users); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	students := h.mapUsers(users)
	if h.cache != nil {
		h.cache.SetDefault(h.url, students)
	}
	return slices.Clone(students), nil
}

func (h *HTTP) mapUsers(users []remoteUser) []models.Student {
	students := make([]models.Student, 0, len(users))
	for i, u := range users {
		students = append(students, models.Student{
			ID:        id.StudentID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(h.url+"#"+strconv.Itoa(u.ID)))),
			Name:      u.Name,
			Email:     u.Email,
			Phone:     u.Phone,
			College:   u.Company.Name,
			Degree:    demoDegrees[i%len(demoDegrees)],
			Year:      demoBaseYear - i%4,
			BirthDate: fmt.Sprintf("199%d-01-01", i%10),
			Status:    models.StatusPending,
		})
	}
	return students
}

// Invalidate drops the cached list so the next call refetches.
func (h *HTTP) Invalidate() {
	if h.cache != nil {
		h.cache.Delete(h.url)
	}
}
