// Package transcript provides a small HTTP client for the companion
// transcript service, which turns a video id into plain transcript text
// ready to be embedded and stored.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNotFound indicates the service has no transcript for the video.
var ErrNotFound = errors.New("transcript not found")

// DefaultBaseURL is the address the companion service binds by default.
const DefaultBaseURL = "http://localhost:8765"

// Options configures the transcript client.
type Options struct {
	// HTTPClient is the client used for requests. Defaults to a client
	// with a 30 second timeout.
	HTTPClient *http.Client
}

// Client fetches transcripts over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a transcript client for the service at baseURL. An empty
// baseURL falls back to DefaultBaseURL.
func New(baseURL string, optFns ...func(o *Options)) *Client {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: opts.HTTPClient,
	}
}

// Get returns the full transcript text for videoID.
func (c *Client) Get(ctx context.Context, videoID string) (string, error) {
	if videoID == "" {
		return "", fmt.Errorf("video id must not be empty")
	}

	u := fmt.Sprintf("%s/transcript?video_id=%s", c.baseURL, url.QueryEscape(videoID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create transcript request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch transcript: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", fmt.Errorf("read transcript response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var payload struct {
			Error string `json:"error"`
		}
		msg := fmt.Sprintf("status %d", resp.StatusCode)
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		if resp.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%w: %s", ErrNotFound, msg)
		}
		return "", fmt.Errorf("transcript service: %s", msg)
	}

	var payload struct {
		Transcript string `json:"transcript"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode transcript response: %w", err)
	}

	return payload.Transcript, nil
}
