package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/vanderheijden86/canopy/pkg/model"
)

// defaultHTTPTimeout bounds a fetch when the caller supplies no client.
const defaultHTTPTimeout = 30 * time.Second

// DefaultMaxBodySize bounds a fetched document.
const DefaultMaxBodySize = 64 * 1024 * 1024

// ErrBodyTooLarge is returned when a response exceeds the size limit.
var ErrBodyTooLarge = errors.New("response body too large")

// HTTPSource fetches a record document over HTTP.
type HTTPSource struct {
	URL    string
	Client *http.Client
	Format Format

	// MaxBodySize limits the response size in bytes (default: DefaultMaxBodySize)
	MaxBodySize int64
}

// NewHTTPSource creates an HTTP source. A nil client uses a default client
// with a timeout.
func NewHTTPSource(url string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPSource{URL: url, Client: client}
}

// Name returns the URL.
func (s *HTTPSource) Name() string {
	return s.URL
}

// Load fetches and decodes the document. The format comes from Format, then
// the Content-Type header, then the URL path extension.
func (s *HTTPSource) Load(ctx context.Context) ([]model.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, &LoadError{Source: s.URL, Cause: err}
	}
	req.Header.Set("Accept", "application/json, application/x-ndjson, application/yaml")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, &LoadError{Source: s.URL, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &LoadError{Source: s.URL, Cause: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	limit := s.MaxBodySize
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, &LoadError{Source: s.URL, Cause: err}
	}
	if int64(len(body)) > limit {
		return nil, &LoadError{Source: s.URL, Cause: fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit)}
	}

	records, err := Decode(bytes.NewReader(body), s.format(resp))
	if err != nil {
		return nil, &LoadError{Source: s.URL, Cause: err}
	}
	return tagSource(records, s.URL), nil
}

func (s *HTTPSource) format(resp *http.Response) Format {
	if s.Format != FormatAuto {
		return s.Format
	}
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	switch {
	case strings.Contains(ct, "yaml"):
		return FormatYAML
	case strings.Contains(ct, "ndjson"), strings.Contains(ct, "jsonl"):
		return FormatJSONL
	case strings.Contains(ct, "json"):
		return FormatJSON
	}
	if f := DetectFormat(path.Base(resp.Request.URL.Path)); f != FormatSQLite {
		return f
	}
	return FormatJSON
}
