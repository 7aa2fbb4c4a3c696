package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"studentreg/internal/registration/models"
)

const (
	defaultSignupPath = "/signup_stu"
	maxErrorBody      = 1 << 14
)

// signupRequest is the backend wire format for a registration.
type signupRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	College   string `json:"college"`
	Degree    string `json:"degree"`
	Stream    string `json:"stream"`
	Year      string `json:"year"`
	BirthDate string `json:"birthDate"`
	Password  string `json:"password"`
}

type errorBody struct {
	Error string `json:"error"`
}

func toSignupRequest(f models.Form) signupRequest {
	return signupRequest{
		Name:      f.FullName,
		Email:     f.Email,
		Phone:     f.Phone,
		College:   f.CollegeName,
		Degree:    f.Degree,
		Stream:    f.Stream,
		Year:      f.YearOfStudy,
		BirthDate: f.BirthDate,
		Password:  f.Password,
	}
}

// HTTP posts registrations to the account backend. Only 201 Created counts as
// accepted. There is no retry; timeouts come from the configured http.Client.
type HTTP struct {
	baseURL string
	path    string
	client  *http.Client
}

// HTTPOption configures an HTTP gateway.
type HTTPOption func(*HTTP)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(g *HTTP) {
		if c != nil {
			g.client = c
		}
	}
}

// WithSignupPath overrides the signup endpoint path.
func WithSignupPath(path string) HTTPOption {
	return func(g *HTTP) {
		if path != "" {
			g.path = path
		}
	}
}

// WithTimeout sets the client timeout on the default client.
func WithTimeout(d time.Duration) HTTPOption {
	return func(g *HTTP) {
		if d > 0 {
			g.client.Timeout = d
		}
	}
}

// NewHTTP builds a gateway for the backend at baseURL.
func NewHTTP(baseURL string, opts ...HTTPOption) *HTTP {
	g := &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		path:    defaultSignupPath,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SubmitRegistration sends the form and interprets the status code.
func (g *HTTP) SubmitRegistration(ctx context.Context, form models.Form) error {
	body, err := json.Marshal(toSignupRequest(form))
	if err != nil {
		return fmt.Errorf("encode registration: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+g.path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build registration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return &RejectedError{Reason: DefaultReason, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	reason := DefaultReason
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil && strings.TrimSpace(eb.Error) != "" {
		reason = eb.Error
	}
	return &RejectedError{Reason: reason, StatusCode: resp.StatusCode}
}
