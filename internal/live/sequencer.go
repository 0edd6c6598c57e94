package live

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Phase names a state of a running lottery sequence.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCountdownRunning
	PhaseShuffling
	PhaseAssigning
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCountdownRunning:
		return "countdown_running"
	case PhaseShuffling:
		return "shuffling"
	case PhaseAssigning:
		return "assigning"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Member is one entry in the pre-ordered list supplied by the caller.
// A user holding several slots in the group appears once per slot, with
// PositionNumber/TotalPositions describing which slot this entry is.
type Member struct {
	UserID         string `json:"user_id"`
	Name           string `json:"name"`
	PositionNumber int    `json:"position_number,omitempty"`
	TotalPositions int    `json:"total_positions,omitempty"`
}

// displayName appends the slot fraction for members holding more than
// one slot, e.g. "Caro 2/3".
func (m Member) displayName() string {
	if m.TotalPositions > 1 && m.PositionNumber > 0 {
		return fmt.Sprintf("%s %d/%d", m.Name, m.PositionNumber, m.TotalPositions)
	}
	return m.Name
}

// Result is one revealed assignment, in the order it was revealed.
type Result struct {
	Position int    `json:"position"`
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
}

// Sequencer runs the timed phases of a single draw for one group:
// countdown, shuffle announcement, sequential per-member reveal, then
// completion. It does not randomize anything; ordering was decided by
// the caller and is revealed exactly as given, 1-indexed. Sequences for
// different groups run concurrently and independently.
type Sequencer struct {
	broadcaster *Broadcaster
	clock       clockwork.Clock
	cfg         SequencerConfig
}

func NewSequencer(broadcaster *Broadcaster, clock clockwork.Clock, cfg SequencerConfig) *Sequencer {
	return &Sequencer{
		broadcaster: broadcaster,
		clock:       clock,
		cfg:         cfg,
	}
}

// ExecuteLiveLottery drives the full reveal sequence and returns the
// accumulated results once complete. The caller is responsible for
// persisting them. Cancelling the context aborts the sequence at the
// next timed transition, returning the results revealed so far along
// with the context error. Clients that join or drop mid-sequence simply
// miss whatever was broadcast while they were away; there is no
// backfill.
func (s *Sequencer) ExecuteLiveLottery(ctx context.Context, groupID, groupName string, members []Member, countdownSeconds int, assignmentDelay time.Duration) ([]Result, error) {
	log.Info().
		Str("group_id", groupID).
		Str("group_name", groupName).
		Int("members", len(members)).
		Int("countdown_seconds", countdownSeconds).
		Dur("assignment_delay", assignmentDelay).
		Msg("starting live lottery")

	if len(members) == 0 {
		log.Warn().Str("group_id", groupID).Msg("lottery started with no members")
	}

	phase := s.transition(groupID, PhaseIdle, PhaseCountdownRunning)
	s.broadcaster.BroadcastToGroup(groupID, newCountdownStartEvent(groupID, groupName, countdownSeconds))
	for remaining := countdownSeconds - 1; remaining >= 0; remaining-- {
		if err := s.wait(ctx, time.Second); err != nil {
			return nil, err
		}
		s.broadcaster.BroadcastToGroup(groupID, newCountdownTickEvent(remaining))
	}
	s.broadcaster.BroadcastToGroup(groupID, newCountdownCompleteEvent())

	phase = s.transition(groupID, phase, PhaseShuffling)
	s.broadcaster.BroadcastToGroup(groupID, newLotteryExecutingEvent(groupID, groupName))
	if err := s.wait(ctx, s.cfg.ShufflePause); err != nil {
		return nil, err
	}

	phase = s.transition(groupID, phase, PhaseAssigning)
	total := len(members)
	results := make([]Result, 0, total)
	for i, member := range members {
		position := i + 1
		name := member.displayName()

		s.broadcaster.BroadcastToGroup(groupID, newTurnAssignedEvent(position, member.UserID, name, total))
		s.broadcaster.SendToUser(member.UserID, newYourTurnAssignedEvent(position, total))
		results = append(results, Result{Position: position, UserID: member.UserID, Name: name})

		log.Debug().
			Str("group_id", groupID).
			Str("user_id", member.UserID).
			Int("position", position).
			Msg("turn assigned")

		if err := s.wait(ctx, assignmentDelay); err != nil {
			return results, err
		}
	}

	if err := s.wait(ctx, s.cfg.CompletePause); err != nil {
		return results, err
	}
	s.transition(groupID, phase, PhaseComplete)
	s.broadcaster.BroadcastToGroup(groupID, newLotteryCompleteEvent(groupID, groupName, results, total))

	log.Info().
		Str("group_id", groupID).
		Int("total_positions", total).
		Msg("live lottery complete")
	return results, nil
}

func (s *Sequencer) transition(groupID string, from, to Phase) Phase {
	log.Debug().
		Str("group_id", groupID).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("lottery phase transition")
	return to
}

// wait suspends for d or until the context is cancelled.
func (s *Sequencer) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := s.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
