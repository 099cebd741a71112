package store

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/logger"
	"resty.dev/v3"
)

const networkOp = "network fetch"

type NetworkConfig struct {
	URLTemplate string
	UserAgent   string
	Timeout     time.Duration
}

// NetworkStore fetches tiles over HTTP from a URL template. Supported
// placeholders: {z} {zoom} {x} {y} {-y} {quadkey}.
type NetworkStore struct {
	client   *resty.Client
	template string
	logger   logger.Logger
}

var _ Store = (*NetworkStore)(nil)

func NewNetworkStore(cfg NetworkConfig, l logger.Logger) *NetworkStore {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", cfg.UserAgent)

	return &NetworkStore{
		client:   client,
		template: cfg.URLTemplate,
		logger:   l,
	}
}

func (s *NetworkStore) URL(k tile.Key) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(k.Zoom),
		"{zoom}", strconv.Itoa(k.Zoom),
		"{x}", strconv.Itoa(k.X),
		"{y}", strconv.Itoa(k.Y),
		"{-y}", strconv.Itoa(k.FlipY()),
		"{quadkey}", k.QuadKey(),
	)
	return r.Replace(s.template)
}

func (s *NetworkStore) Fetch(ctx context.Context, k tile.Key) ([]byte, error) {
	url := s.URL(k)
	s.logger.Debug("fetching from upstream", "url", url)

	resp, err := s.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		// timeouts, refused connections, resets and cancelled contexts
		return nil, tile.Transient(networkOp, k, err)
	}

	code := resp.StatusCode()
	switch {
	case code == http.StatusOK:
		data := resp.Bytes()
		if len(data) == 0 {
			return nil, tile.Corrupt(networkOp, k, fmt.Errorf("upstream returned an empty body"))
		}
		return data, nil
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code >= 500:
		return nil, tile.Transient(networkOp, k, fmt.Errorf("upstream returned status %d", code))
	default:
		// 204, 404, 410 and every other client error will not change on retry
		return nil, tile.NotFound(networkOp, k, fmt.Errorf("upstream returned status %d", code))
	}
}

func (s *NetworkStore) Close() error {
	return s.client.Close()
}
