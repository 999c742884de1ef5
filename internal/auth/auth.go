// Package auth decides who may use the admin endpoint.
package auth

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrInvalidToken indicates the token is definitively invalid.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrUnavailable indicates the auth service could not give an answer.
	ErrUnavailable = errors.New("auth: unavailable")
)

const validateTimeout = 500 * time.Millisecond

// Identity is the authenticated administrator
type Identity struct {
	Name string `json:"name"`
}

// Validator validates bearer tokens
type Validator interface {
	Validate(ctx context.Context, token string) (*Identity, error)
}

// BearerToken extracts the token from an Authorization header
func BearerToken(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return token, ok && token != ""
}

// StaticValidator accepts exactly one shared secret
type StaticValidator struct {
	token string
}

func NewStaticValidator(token string) *StaticValidator {
	return &StaticValidator{token: token}
}

func (v *StaticValidator) Validate(_ context.Context, token string) (*Identity, error) {
	if v.token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(v.token)) != 1 {
		return nil, ErrInvalidToken
	}
	return &Identity{Name: "admin"}, nil
}

// HTTPValidator asks an external service whether a token is valid
type HTTPValidator struct {
	url    string
	client *http.Client
}

func NewHTTPValidator(url string) *HTTPValidator {
	return &HTTPValidator{
		url:    url,
		client: &http.Client{Timeout: validateTimeout},
	}
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Valid bool   `json:"valid"`
	Name  string `json:"name,omitempty"`
}

func (v *HTTPValidator) Validate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	body, err := json.Marshal(validateRequest{Token: token})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrInvalidToken
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out validateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if !out.Valid {
		return nil, ErrInvalidToken
	}
	return &Identity{Name: out.Name}, nil
}
