package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Config holds the settings for the live lottery service.
type Config struct {
	Connection ConnectionConfig
	Sequencer  SequencerConfig
	JWTSecret  string
}

// DefaultConfig returns the default service configuration. JWTSecret has
// no default and must be supplied.
func DefaultConfig() Config {
	return Config{
		Connection: DefaultConnectionConfig(),
		Sequencer:  DefaultSequencerConfig(),
	}
}

// Service wires the registry, broadcaster, liveness monitor, gatekeeper
// and sequencer together. ExecuteLiveLottery is the sole entry point the
// rest of the platform calls; everything else is driven by transport
// callbacks.
type Service struct {
	registry    *Registry
	broadcaster *Broadcaster
	gatekeeper  *Gatekeeper
	monitor     *Monitor
	sequencer   *Sequencer
}

func NewService(cfg Config) (*Service, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret is required")
	}

	clock := clockwork.NewRealClock()
	registry := NewRegistry()
	broadcaster := NewBroadcaster(registry)
	verifier := NewTokenVerifier([]byte(cfg.JWTSecret))

	return &Service{
		registry:    registry,
		broadcaster: broadcaster,
		gatekeeper:  NewGatekeeper(registry, broadcaster, verifier, cfg.Connection),
		monitor:     NewMonitor(registry, cfg.Connection.PingInterval, clock),
		sequencer:   NewSequencer(broadcaster, clock, cfg.Sequencer),
	}, nil
}

// Start runs the liveness monitor until the context is cancelled.
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("live lottery service started")
	s.monitor.Run(ctx)
	log.Info().Msg("live lottery service stopped")
}

// RegisterRoutes mounts the live channel and the stats endpoint.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.gatekeeper.RegisterRoutes(mux)
	mux.HandleFunc("/ws/stats", s.handleStats)
}

// ExecuteLiveLottery runs the full reveal sequence for one group. See
// Sequencer.ExecuteLiveLottery.
func (s *Service) ExecuteLiveLottery(ctx context.Context, groupID, groupName string, members []Member, countdownSeconds int, assignmentDelay time.Duration) ([]Result, error) {
	return s.sequencer.ExecuteLiveLottery(ctx, groupID, groupName, members, countdownSeconds, assignmentDelay)
}

// RoomSize reports the current size of a group's room.
func (s *Service) RoomSize(groupID string) int {
	return s.registry.RoomSize(groupID)
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	rooms, connections := s.registry.Stats()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{
		"rooms":       rooms,
		"connections": connections,
	})
}
