package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkStoreURL(t *testing.T) {
	s := NewNetworkStore(NetworkConfig{URLTemplate: "https://t/{z}/{x}/{y}.png?tms={-y}&q={quadkey}"}, logger.NewNoOp())
	defer s.Close()

	got := s.URL(tile.NewKey("osm", 3, 3, 5))
	assert.Equal(t, "https://t/3/3/5.png?tms=2&q=213", got)
}

func TestNetworkStoreClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		reason tile.Reason
	}{
		{"ok", http.StatusOK, "png", tile.ReasonNone},
		{"empty body", http.StatusOK, "", tile.ReasonCorrupt},
		{"not found", http.StatusNotFound, "", tile.ReasonNotFound},
		{"no content", http.StatusNoContent, "", tile.ReasonNotFound},
		{"forbidden", http.StatusForbidden, "", tile.ReasonNotFound},
		{"rate limited", http.StatusTooManyRequests, "", tile.ReasonTransient},
		{"server error", http.StatusBadGateway, "", tile.ReasonTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "test-agent", r.UserAgent())
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			s := NewNetworkStore(NetworkConfig{URLTemplate: srv.URL + "/{z}/{x}/{y}", UserAgent: "test-agent"}, logger.NewNoOp())
			defer s.Close()

			data, err := s.Fetch(context.Background(), tile.NewKey("osm", 1, 0, 0))
			assert.Equal(t, tt.reason, tile.Classify(err))
			if tt.reason == tile.ReasonNone {
				assert.Equal(t, []byte(tt.body), data)
			}
		})
	}
}

func TestNetworkStoreUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s := NewNetworkStore(NetworkConfig{URLTemplate: url + "/{z}/{x}/{y}"}, logger.NewNoOp())
	defer s.Close()

	_, err := s.Fetch(context.Background(), tile.NewKey("osm", 1, 0, 0))
	assert.ErrorIs(t, err, tile.ErrTransient)
}

func TestRegistryUnknownSource(t *testing.T) {
	r := NewRegistry()
	_, err := r.Fetch(context.Background(), tile.NewKey("nope", 0, 0, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, tile.ErrNotFound)
}
