package live

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Broadcaster delivers events to a group room or to a single user.
// Delivery is fire-and-forget: there is no acknowledgement, no retry and
// no queueing for clients that are not connected at broadcast time.
type Broadcaster struct {
	registry *Registry
}

func NewBroadcaster(registry *Registry) *Broadcaster {
	return &Broadcaster{registry: registry}
}

// BroadcastToGroup serializes the event once and delivers it to every
// connection in the group's room. Connections that fail to accept the
// write are skipped, not errored on. Returns the count actually sent.
func (b *Broadcaster) BroadcastToGroup(groupID string, event any) int {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("group_id", groupID).Msg("failed to marshal event for broadcast")
		return 0
	}

	sent := 0
	for _, c := range b.registry.roomConns(groupID) {
		if err := c.Send(data); err != nil {
			log.Debug().
				Err(err).
				Str("connection_id", c.ID()).
				Str("group_id", groupID).
				Msg("skipping undeliverable connection")
			continue
		}
		sent++
	}
	return sent
}

// SendToUser delivers an event to the user's current connection, if one
// is open. Returns whether delivery occurred.
func (b *Broadcaster) SendToUser(userID string, event any) bool {
	c, ok := b.registry.userConn(userID)
	if !ok {
		return false
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to marshal event for user send")
		return false
	}
	if err := c.Send(data); err != nil {
		log.Debug().
			Err(err).
			Str("connection_id", c.ID()).
			Str("user_id", userID).
			Msg("user connection not deliverable")
		return false
	}
	return true
}
