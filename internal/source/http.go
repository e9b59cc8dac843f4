package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"merchant-verdict/internal/product"
)

// HTTPOptions parameterise the upstream scraping service client.
type HTTPOptions struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	UserAgent string
	Transport http.RoundTripper
}

// HTTPSource fetches snapshots from GET {base}/{marketplace}/{asin}.
type HTTPSource struct {
	opts    HTTPOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewHTTPSource constructs an HTTP-backed source.
func NewHTTPSource(opts HTTPOptions, logger zerolog.Logger) (*HTTPSource, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("source.base_url is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	if opts.Transport != nil {
		client.Transport = opts.Transport
	}

	return &HTTPSource{
		opts:    opts,
		logger:  logger.With().Str("component", "http_source").Logger(),
		client:  client,
		baseURL: baseURL,
	}, nil
}

// Fetch retrieves and validates one snapshot.
func (h *HTTPSource) Fetch(ctx context.Context, marketplace, asin string) (*product.Snapshot, error) {
	market := product.NormalizeMarketplace(marketplace)
	id := strings.ToUpper(strings.TrimSpace(asin))
	if market == "" || id == "" {
		return nil, fmt.Errorf("fetch snapshot: marketplace and asin are required")
	}

	endpoint := fmt.Sprintf("%s/%s/%s", h.baseURL, url.PathEscape(market), url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(h.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "merchant-verdict/1.0")
	}
	if h.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.opts.APIKey)
	}

	started := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", market, id, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, market, id)
	case resp.StatusCode != http.StatusOK:
		return nil, parseHTTPError(resp.StatusCode, payload)
	}

	snapshots, err := Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	s := snapshots[0]
	if s.Marketplace == "" {
		s.Marketplace = market
	}
	if s.ASIN() != id {
		return nil, fmt.Errorf("fetch %s/%s: upstream returned asin %s", market, id, s.ASIN())
	}

	h.logger.Debug().
		Str("marketplace", market).
		Str("asin", id).
		Dur("took", time.Since(started)).
		Msg("snapshot fetched")
	return s, nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		for _, msg := range []string{apiErr.Message, apiErr.Error, apiErr.Detail} {
			if msg != "" {
				return fmt.Errorf("source api error (%d): %s", status, msg)
			}
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("source api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("source api error (%d)", status)
}

var _ Source = (*HTTPSource)(nil)
