// Package graph talks to Microsoft Graph for free/busy schedules, interview
// events and outgoing mail. It authenticates as an application with the
// client credentials flow.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	DefaultBaseURL = "https://graph.microsoft.com/v1.0"
	graphScope     = "https://graph.microsoft.com/.default"
)

// StatusError is returned for non-2xx Graph responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("graph returned %d: %s", e.Code, e.Message)
}

// Client is a Microsoft Graph client.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	logger      *slog.Logger
	backoff     func() retry.Backoff
	concurrency int
}

// NewClient creates a Graph client for the given tenant and application.
// An empty baseURL selects the public v1.0 endpoint.
func NewClient(ctx context.Context, logger *slog.Logger, tenantID, clientID, clientSecret, baseURL string) *Client {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenantID),
		Scopes:       []string{graphScope},
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return newClient(cfg.Client(ctx), baseURL, logger)
}

func newClient(httpClient *http.Client, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		logger:     logger,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(3, retry.NewExponential(time.Second))
		},
		concurrency: 4,
	}
}

// do sends a JSON request and decodes the JSON response into out, when out is
// not nil. Throttling and server errors are retried.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	return retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("graph request failed: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			serr := &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				c.logger.Warn("Graph call failed, retrying", "method", method, "path", path, "status", resp.StatusCode)
				return retry.RetryableError(serr)
			}
			return serr
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode graph response: %w", err)
		}
		return nil
	})
}

func userPath(user string, rest ...string) string {
	p := "/users/" + url.PathEscape(user)
	for _, r := range rest {
		p += "/" + url.PathEscape(r)
	}
	return p
}

func isNotFound(err error) bool {
	var serr *StatusError
	return errors.As(err, &serr) && (serr.Code == http.StatusNotFound || serr.Code == http.StatusGone)
}

// dateTimeTimeZone is Graph's naive datetime with a zone name.
type dateTimeTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}
