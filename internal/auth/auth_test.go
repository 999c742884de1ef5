package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticValidator(t *testing.T) {
	t.Parallel()

	v := NewStaticValidator("secret")
	id, err := v.Validate(context.Background(), "secret")
	require.NoError(t, err)
	assert.Equal(t, "admin", id.Name)

	_, err = v.Validate(context.Background(), "guess")
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = v.Validate(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewStaticValidator("").Validate(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidToken, "an empty secret admits nobody")
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		token, ok := BearerToken(r)
		assert.Equal(t, tt.ok, ok, tt.header)
		if ok {
			assert.Equal(t, tt.token, token)
		}
	}
}

func TestHTTPValidator(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req validateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(validateResponse{Valid: req.Token == "good", Name: "ops"})
	}))
	t.Cleanup(srv.Close)

	v := NewHTTPValidator(srv.URL)

	id, err := v.Validate(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "ops", id.Name)

	_, err = v.Validate(context.Background(), "bad")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Validate(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestHTTPValidatorStatusCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrInvalidToken},
		{"forbidden", http.StatusForbidden, ErrInvalidToken},
		{"rate limited", http.StatusTooManyRequests, ErrUnavailable},
		{"server error", http.StatusInternalServerError, ErrUnavailable},
		{"teapot", http.StatusTeapot, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			t.Cleanup(srv.Close)

			_, err := NewHTTPValidator(srv.URL).Validate(context.Background(), "token")
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHTTPValidatorTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	start := time.Now()
	_, err := NewHTTPValidator(srv.URL).Validate(context.Background(), "token")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHTTPValidatorUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPValidator(url).Validate(context.Background(), "token")
	require.ErrorIs(t, err, ErrUnavailable)
}
