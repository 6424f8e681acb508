// Package sdk is the transport layer between the nightpass managers and the remote API.
// One Client is shared by every manager; it holds no mutable state after New returns.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nightpass/nightpass/pkg/keystore"
	"github.com/nightpass/nightpass/pkg/schema"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL   = "http://localhost:3000"
	DefaultAPIPrefix = "/api"
	DefaultTimeout   = 30 * time.Second
)

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	BaseURL    string
	APIPrefix  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client issues JSON requests and multipart uploads against the versioned API base.
type Client struct {
	base   string
	http   *http.Client
	tokens keystore.Reader
	log    *zap.Logger
}

// New validates the base URL and builds a Client that reads bearer tokens from tokens.
func New(opts Options, tokens keystore.Reader) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = DefaultAPIPrefix
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	u, err := url.Parse(opts.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		base:   strings.TrimRight(opts.BaseURL, "/") + "/" + strings.Trim(opts.APIPrefix, "/"),
		http:   hc,
		tokens: tokens,
		log:    opts.Logger,
	}, nil
}

// BaseURL is the versioned prefix every route path is appended to.
func (c *Client) BaseURL() string {
	return c.base
}

// Do sends one JSON request and decodes a successful body into out (which may be nil).
func (c *Client) Do(ctx context.Context, route Route, method string, body any, authenticated bool, out any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := c.newRequest(ctx, route, method, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if authenticated {
		if err := c.authorize(req); err != nil {
			return err
		}
	}

	return c.send(req, route, "Request failed", out)
}

// Request is the typed form of Client.Do.
func Request[T any](ctx context.Context, c *Client, route Route, method string, body any, authenticated bool) (T, error) {
	var out T
	err := c.Do(ctx, route, method, body, authenticated, &out)
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// UploadFile posts a single-part multipart body. It is always authenticated.
func (c *Client) UploadFile(ctx context.Context, route Route, data []byte, fileName, fieldName, mimeType string) (schema.MessageResponse, error) {
	var out schema.MessageResponse

	// checked before building the body so a missing token costs nothing
	token, ok := c.accessToken()
	if !ok {
		return out, ErrUnauthorized
	}

	boundary := uuid.NewString()
	body, err := multipartBody(boundary, data, fileName, fieldName, mimeType)
	if err != nil {
		return out, err
	}

	req, err := c.newRequest(ctx, route, http.MethodPost, body)
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)
	req.Header.Set("Authorization", "Bearer "+token)

	if err := c.send(req, route, "Upload failed", &out); err != nil {
		return schema.MessageResponse{}, err
	}
	return out, nil
}

func (c *Client) newRequest(ctx context.Context, route Route, method string, body io.Reader) (*http.Request, error) {
	path, ok := route.Path()
	if !ok {
		return nil, ErrInvalidURL
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return req, nil
}

func (c *Client) accessToken() (string, bool) {
	if c.tokens == nil {
		return "", false
	}
	token, ok := c.tokens.Get(keystore.KeyAccessToken)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

func (c *Client) authorize(req *http.Request) error {
	token, ok := c.accessToken()
	if !ok {
		return ErrUnauthorized
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (c *Client) send(req *http.Request, route Route, fallback string, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("api request failed", zap.String("method", req.Method), zap.Stringer("route", route), zap.Error(err))
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}

	c.log.Debug("api request",
		zap.String("method", req.Method),
		zap.Stringer("route", route),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if err := classify(resp.StatusCode, data, fallback); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodingError{Err: err}
	}
	return nil
}

// classify maps a status code to the error taxonomy; nil means the body should be decoded.
func classify(status int, body []byte, fallback string) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status >= http.StatusBadRequest:
		var e schema.ErrorResponse
		if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
			return &HTTPError{StatusCode: status, Message: e.Error}
		}
		return &HTTPError{StatusCode: status, Message: fallback}
	case status < http.StatusOK || status >= http.StatusMultipleChoices:
		return fmt.Errorf("%w: unexpected status %d", ErrInvalidResponse, status)
	default:
		return nil
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func multipartBody(boundary string, data []byte, fileName, fieldName, mimeType string) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(fieldName), quoteEscaper.Replace(fileName)))
	header.Set("Content-Type", mimeType)

	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(boundary); err != nil {
		return nil, err
	}
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return &buf, nil
}
