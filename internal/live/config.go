package live

import (
	"net/http"
	"time"
)

// ConnectionConfig holds transport-level settings for admitted connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns the default transport settings.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// SequencerConfig holds the pacing delays between lottery phases.
type SequencerConfig struct {
	// ShufflePause is how long clients get to play the shuffle animation
	// between the countdown and the first assignment.
	ShufflePause time.Duration
	// CompletePause separates the last assignment from the completion
	// broadcast.
	CompletePause time.Duration
}

// DefaultSequencerConfig returns the reference pacing.
func DefaultSequencerConfig() SequencerConfig {
	return SequencerConfig{
		ShufflePause:  2 * time.Second,
		CompletePause: 500 * time.Millisecond,
	}
}
