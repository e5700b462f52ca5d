package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erp/acquisitions/internal/domain/shared"
)

const (
	// maxResponseSize limits the response body size to prevent memory exhaustion
	maxResponseSize = 10 * 1024 * 1024 // 10MB max response

	defaultTimeoutSeconds = 30
)

// Config holds the connection settings of the remote finance record store
type Config struct {
	BaseURL        string
	Token          string
	TimeoutSeconds int
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("finance client: base URL is required")
	}
	if c.TimeoutSeconds < 0 {
		return errors.New("finance client: timeout must not be negative")
	}
	return nil
}

// RecordStore is the shared HTTP transport of all finance record clients.
// The store speaks JSON collections with a totalRecords envelope and a
// CQL-style query parameter for filtering.
type RecordStore struct {
	config     *Config
	httpClient *http.Client
}

// NewRecordStore creates a new RecordStore client
func NewRecordStore(config *Config) (*RecordStore, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	timeout := config.TimeoutSeconds
	if timeout == 0 {
		timeout = defaultTimeoutSeconds
	}
	return &RecordStore{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}, nil
}

// getCollection fetches path with a query filter and decodes the response
// body into out (a collection envelope).
func (s *RecordStore) getCollection(ctx context.Context, path, query string, limit int, out any) error {
	u := s.config.BaseURL + path
	params := url.Values{}
	if query != "" {
		params.Set("query", query)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if encoded := params.Encode(); encoded != "" {
		u += "?" + encoded
	}

	body, err := s.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("finance client: failed to parse %s response: %w", path, err)
	}
	return nil
}

// postJSON creates a record and decodes the created representation into
// out when out is non-nil.
func (s *RecordStore) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := s.do(ctx, http.MethodPost, s.config.BaseURL+path, in)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("finance client: failed to parse %s response: %w", path, err)
	}
	return nil
}

// putJSON replaces a record
func (s *RecordStore) putJSON(ctx context.Context, path string, in any) error {
	_, err := s.do(ctx, http.MethodPut, s.config.BaseURL+path, in)
	return err
}

func (s *RecordStore) do(ctx context.Context, method, u string, in any) ([]byte, error) {
	var reqBody io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("finance client: failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("finance client: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.Token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("finance client: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("finance client: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, shared.ErrNotFound.WithParam("url", u)
	case resp.StatusCode == http.StatusConflict:
		return nil, shared.ErrAlreadyExists.WithParam("url", u)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("finance client: %s %s returned HTTP %d: %s",
			method, u, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// idsFilter builds the store's boolean id filter: field==(id1 or id2 ...)
func idsFilter(field string, ids []uuid.UUID) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return fmt.Sprintf("%s==(%s)", field, strings.Join(parts, " or "))
}

// andFilter joins non-empty clauses with the store's and operator
func andFilter(clauses ...string) string {
	var kept []string
	for _, c := range clauses {
		if c != "" {
			kept = append(kept, c)
		}
	}
	return strings.Join(kept, " and ")
}
