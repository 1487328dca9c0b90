package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"
	"time"
)

// apiClient wraps the daemon's HTTP API for CLI commands.
type apiClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func newAPIClient(bind, token string) *apiClient {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		bind = "127.0.0.1:7816"
	}
	return &apiClient{
		baseURL: "http://" + bind,
		token:   strings.TrimSpace(token),
		// Generous: a manual process call waits for a full LLM round-trip.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *apiClient) get(path string, target any) error {
	return c.do(http.MethodGet, path, nil, target)
}

func (c *apiClient) post(path string, body any, target any) error {
	return c.do(http.MethodPost, path, body, target)
}

func (c *apiClient) do(method, path string, body any, target any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapConnectError(err, c.baseURL)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon: http %d", resp.StatusCode)
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func wrapConnectError(err error, baseURL string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon at %s: connection refused; start the daemon with `tunesmithd`", baseURL)
	}
	return fmt.Errorf("connect to daemon: %w", err)
}
