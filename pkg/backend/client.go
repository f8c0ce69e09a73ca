package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dcastellanos/storefront-backend/pkg/config"
	pkgerrors "github.com/dcastellanos/storefront-backend/pkg/errors"
	"github.com/dcastellanos/storefront-backend/pkg/logger"
)

// Client is the HTTP resource client for the authoritative order backend.
// Responses are expected to wrap their payload in a {"data": ...} envelope;
// Get/Post/Patch return the raw data document for the caller to decode.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logger.Logger
}

var errBaseURLRequired = errors.New("backend base url is required")

// NewClient validates the configuration and builds the resource client.
func NewClient(cfg config.BackendConfig, logg *logger.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errBaseURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		logger:  logg,
	}, nil
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Get issues a GET for the resource path with optional query params.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	return c.do(ctx, http.MethodGet, target, nil)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, c.baseURL+path, body)
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPatch, c.baseURL+path, body)
}

func (c *Client) do(ctx context.Context, method, target string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build backend request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s %s", method, target))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read backend response")
	}

	var env envelope
	if len(raw) > 0 {
		// Tolerate non-enveloped payloads; the raw body becomes the data.
		if err := json.Unmarshal(raw, &env); err != nil {
			env = envelope{Data: raw}
		}
	}

	if resp.StatusCode >= 400 {
		msg := backendMessage(env)
		if msg == "" {
			msg = fmt.Sprintf("backend returned status %d", resp.StatusCode)
		}
		code := pkgerrors.CodeDependency
		if resp.StatusCode == http.StatusNotFound {
			code = pkgerrors.CodeNotFound
		}
		return nil, pkgerrors.New(code, msg)
	}

	if env.Data != nil {
		return env.Data, nil
	}
	return raw, nil
}

func backendMessage(env envelope) string {
	if env.Error != nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return env.Message
}
