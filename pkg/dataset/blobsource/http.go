package blobsource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/glint-ui/glint/pkg/dataset"
)

// HTTPSource fetches and stores blobs against a glint blob service
// (see `glint serve`): GET/PUT /v1/blob/{canonical key}, with an
// optional websocket invalidation feed at /v1/watch.
type HTTPSource struct {
	base   string
	client *http.Client
	dialer *websocket.Dialer
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient sets the HTTP client. The default has a 30s timeout.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		s.client = c
	}
}

// WithDialer sets the websocket dialer used by Watch.
func WithDialer(d *websocket.Dialer) HTTPOption {
	return func(s *HTTPSource) {
		s.dialer = d
	}
}

// NewHTTPSource creates an HTTP source for the service at base
// (e.g. "http://localhost:7420").
func NewHTTPSource(base string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
		dialer: websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPSource) blobURL(key dataset.Key) string {
	return s.base + "/v1/blob/" + url.PathEscape(key.Canonical())
}

// Fetch implements dataset.Source.
func (s *HTTPSource) Fetch(ctx context.Context, key dataset.Key) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.blobURL(key), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return io.ReadAll(resp.Body)
	case http.StatusNotFound:
		return nil, dataset.ErrNotFound
	default:
		return nil, fmt.Errorf("blobsource: fetch %s: unexpected status %s", key, resp.Status)
	}
}

// Store implements dataset.Source.
func (s *HTTPSource) Store(ctx context.Context, key dataset.Key, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.blobURL(key), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("blobsource: store %s: unexpected status %s", key, resp.Status)
	}
	return nil
}

// InvalidationEvent is one message on the watch feed: the canonical key
// of a blob that changed on the service.
type InvalidationEvent struct {
	Key string `json:"key"`
}

// Watch connects to the service's invalidation feed and invokes fn for
// every changed key until ctx is done or the connection fails. Callers
// typically pass cache.Invalidate so a stale blob is refetched on its
// next preload:
//
//	go src.Watch(ctx, cache.Invalidate)
func (s *HTTPSource) Watch(ctx context.Context, fn func(dataset.Key)) error {
	wsURL := s.base + "/v1/watch"
	if strings.HasPrefix(wsURL, "http") {
		wsURL = "ws" + strings.TrimPrefix(wsURL, "http")
	}

	conn, resp, err := s.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("blobsource: watch dial: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// Unblock ReadJSON when the caller cancels.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var ev InvalidationEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("blobsource: watch read: %w", err)
		}
		key, err := dataset.ParseCanonical(ev.Key)
		if err != nil {
			continue // unknown key encodings are skipped, not fatal
		}
		fn(key)
	}
}
