// Package imgur is a minimal client for the Imgur v3 image upload API.
package imgur

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
)

// DefaultBaseURL is the public Imgur API endpoint.
const DefaultBaseURL = "https://api.imgur.com/3"

// ErrAuthRequired is returned for uploads bound to a user account, which
// need an OAuth access token this client does not handle.
var ErrAuthRequired = errors.New("imgur: authenticated upload requires an access token")

// Config keys accepted by UploadFromFile.
var allowedConfig = []string{"album", "name", "title", "description"}

// Image is the subset of the Imgur image model the booth uses.
type Image struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Type       string `json:"type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Size       int64  `json:"size"`
	DeleteHash string `json:"deletehash"`
	Link       string `json:"link"`
}

// APIError is a failed API call.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("imgur: status %d: %s", e.Status, e.Message)
}

// Client talks to the Imgur API with application credentials.
type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	http         *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client to another endpoint (tests, proxies).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// NewClient creates a client for the registered application.
func NewClient(clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      DefaultBaseURL,
		http:         &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope wraps every Imgur response.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Success bool            `json:"success"`
	Status  int             `json:"status"`
}

type errorData struct {
	Error json.RawMessage `json:"error"`
}

// UploadFromFile uploads the content of r. config may set album, name,
// title or description; other keys are ignored. Only anonymous uploads
// are supported.
func (c *Client) UploadFromFile(ctx context.Context, r io.Reader, config map[string]string, anon bool) (*Image, error) {
	if !anon {
		return nil, ErrAuthRequired
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("imgur: read image: %w", err)
	}

	form := url.Values{}
	form.Set("image", base64.StdEncoding.EncodeToString(raw))
	form.Set("type", "base64")
	for _, k := range allowedConfig {
		if v, ok := config[k]; ok {
			form.Set(k, v)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/image", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Client-ID "+c.clientID)

	debug.Verbose("Imgur: uploading %d bytes", len(raw))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imgur: upload: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &APIError{Status: resp.StatusCode, Message: "invalid response: " + err.Error()}
	}
	if !env.Success || resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(env.Data)}
	}

	var img Image
	if err := json.Unmarshal(env.Data, &img); err != nil {
		return nil, &APIError{Status: resp.StatusCode, Message: "invalid image data: " + err.Error()}
	}
	return &img, nil
}

// errorMessage extracts data.error, which is either a string or an
// object with a "message" field.
func errorMessage(data json.RawMessage) string {
	var d errorData
	if err := json.Unmarshal(data, &d); err != nil || len(d.Error) == 0 {
		return "unknown error"
	}
	var s string
	if err := json.Unmarshal(d.Error, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(d.Error, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(d.Error)
}
