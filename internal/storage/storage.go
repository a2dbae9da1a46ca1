// Package storage issues signed URLs for uploaded documents and downloads
// them for forwarding to the provider.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"esign/pkg/platform/sentinel"
)

const defaultMaxFileBytes = 10 << 20

// ErrFileTooLarge is returned when a download exceeds the configured cap.
var ErrFileTooLarge = errors.New("file exceeds size limit")

type Config struct {
	PublicBaseURL string
	SigningKey    []byte
	MaxFileBytes  int64
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Storage signs file keys into time-limited URLs and fetches their content.
type Storage struct {
	baseURL  string
	key      []byte
	maxBytes int64
	http     HTTPDoer
	now      func() time.Time
}

type Option func(*Storage)

func WithHTTPClient(doer HTTPDoer) Option {
	return func(s *Storage) { s.http = doer }
}

func WithClock(now func() time.Time) Option {
	return func(s *Storage) { s.now = now }
}

func New(cfg Config, opts ...Option) *Storage {
	s := &Storage{
		baseURL:  strings.TrimRight(cfg.PublicBaseURL, "/"),
		key:      cfg.SigningKey,
		maxBytes: cfg.MaxFileBytes,
		http:     &http.Client{Timeout: 30 * time.Second},
		now:      time.Now,
	}
	if s.maxBytes <= 0 {
		s.maxBytes = defaultMaxFileBytes
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PathKeyToURL returns <base>/files/<key>?token=<jwt> valid for ttl.
func (s *Storage) PathKeyToURL(key string, ttl time.Duration) (string, error) {
	key = strings.Trim(key, "/")
	if key == "" {
		return "", fmt.Errorf("empty file key")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("ttl must be positive")
	}

	now := s.now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   key,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign file url: %w", err)
	}

	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/files/" + strings.Join(segments, "/") + "?token=" + url.QueryEscape(token), nil
}

// FetchBase64 downloads fileURL and returns its content base64 encoded.
// A 404 maps to sentinel.ErrNotFound.
func (s *Storage) FetchBase64(ctx context.Context, fileURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", fmt.Errorf("build file request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch file: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", sentinel.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("fetch file: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	if int64(len(raw)) > s.maxBytes {
		return "", ErrFileTooLarge
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
