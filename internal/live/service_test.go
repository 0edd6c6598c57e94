package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService_RequiresSecret(t *testing.T) {
	_, err := NewService(DefaultConfig())
	assert.Error(t, err)
}

func TestService_ExecuteLiveLottery(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JWTSecret = testSecret
	cfg.Sequencer = SequencerConfig{}
	svc, err := NewService(cfg)
	require.NoError(t, err)

	results, err := svc.ExecuteLiveLottery(context.Background(), "g1", "Tanda",
		[]Member{{UserID: "u1", Name: "Ana"}}, 0, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Position)
}

func TestService_StatsEndpoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JWTSecret = testSecret
	svc, err := NewService(cfg)
	require.NoError(t, err)

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/ws/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var stats map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 0, stats["rooms"])
	assert.Equal(t, 0, stats["connections"])
}
