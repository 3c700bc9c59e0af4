package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/iho/beanledger/internal/adapter/http/dto"
)

// apiClient is a thin JSON client for the /api/v1 surface.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// apiError is a non-2xx answer from the server.
type apiError struct {
	Status int
	Body   dto.ErrorResponse
	Raw    []byte
}

func (e *apiError) Error() string {
	if e.Body.Message != "" {
		return fmt.Sprintf("%s (%d): %s", e.Body.Error, e.Status, e.Body.Message)
	}
	if e.Body.Error != "" {
		return fmt.Sprintf("%s (%d)", e.Body.Error, e.Status)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Status, strings.TrimSpace(string(e.Raw)))
}

type requestOption func(*http.Request)

func withHeader(key, value string) requestOption {
	return func(r *http.Request) {
		if value != "" {
			r.Header.Set(key, value)
		}
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, query url.Values, body, out any, opts ...requestOption) error {
	endpoint := strings.TrimRight(c.baseURL, "/") + "/api/v1" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode, Raw: raw}
		_ = json.Unmarshal(raw, &apiErr.Body)
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// accountID returns the account ID for ref. Refs containing a colon are
// account names and are resolved through the lookup endpoint first.
func (c *apiClient) accountID(ctx context.Context, ref string) (string, error) {
	if !strings.Contains(ref, ":") {
		return ref, nil
	}

	var account dto.AccountResponse
	if err := c.do(ctx, http.MethodGet, "/accounts/lookup", url.Values{"name": {ref}}, nil, &account); err != nil {
		return "", fmt.Errorf("lookup %s: %w", ref, err)
	}
	return account.ID, nil
}
