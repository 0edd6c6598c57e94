package live

import (
	"fmt"
	"time"
)

// EventType identifies an outbound message on the live channel.
type EventType string

const (
	EventConnected         EventType = "connected"
	EventRoomUpdate        EventType = "room_update"
	EventError             EventType = "error"
	EventPong              EventType = "pong"
	EventCountdownStart    EventType = "countdown_start"
	EventCountdownTick     EventType = "countdown_tick"
	EventCountdownComplete EventType = "countdown_complete"
	EventLotteryExecuting  EventType = "lottery_executing"
	EventTurnAssigned      EventType = "turn_assigned"
	EventYourTurnAssigned  EventType = "your_turn_assigned"
	EventLotteryComplete   EventType = "lottery_complete"
)

// clientMessage is the envelope for inbound messages. Only the type is
// inspected; everything besides ping is ignored.
type clientMessage struct {
	Type string `json:"type"`
}

const (
	clientMessagePing     = "ping"
	clientMessageJoinRoom = "join_room"
)

// ConnectedEvent welcomes a newly admitted connection.
type ConnectedEvent struct {
	Type      EventType `json:"type"`
	Message   string    `json:"message"`
	GroupID   string    `json:"groupId"`
	RoomSize  int       `json:"roomSize"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomUpdateEvent tells the room its current size on every join/leave.
type RoomUpdateEvent struct {
	Type      EventType `json:"type"`
	RoomSize  int       `json:"roomSize"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorEvent is sent best-effort before an admission rejection close.
type ErrorEvent struct {
	Type      EventType `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// PongEvent answers a client-level ping message.
type PongEvent struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

type CountdownStartEvent struct {
	Type         EventType `json:"type"`
	GroupID      string    `json:"groupId"`
	GroupName    string    `json:"groupName"`
	TotalSeconds int       `json:"totalSeconds"`
	Timestamp    time.Time `json:"timestamp"`
}

type CountdownTickEvent struct {
	Type      EventType `json:"type"`
	Remaining int       `json:"remaining"`
	Timestamp time.Time `json:"timestamp"`
}

type CountdownCompleteEvent struct {
	Type      EventType `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type LotteryExecutingEvent struct {
	Type      EventType `json:"type"`
	GroupID   string    `json:"groupId"`
	GroupName string    `json:"groupName"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type TurnAssignedEvent struct {
	Type           EventType `json:"type"`
	Position       int       `json:"position"`
	UserID         string    `json:"userId"`
	UserName       string    `json:"userName"`
	TotalPositions int       `json:"totalPositions"`
	Timestamp      time.Time `json:"timestamp"`
}

type YourTurnAssignedEvent struct {
	Type           EventType `json:"type"`
	Position       int       `json:"position"`
	TotalPositions int       `json:"totalPositions"`
	Message        string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`
}

type LotteryCompleteEvent struct {
	Type           EventType `json:"type"`
	GroupID        string    `json:"groupId"`
	GroupName      string    `json:"groupName"`
	Results        []Result  `json:"results"`
	TotalPositions int       `json:"totalPositions"`
	Message        string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`
}

func newConnectedEvent(groupID string, roomSize int) ConnectedEvent {
	return ConnectedEvent{
		Type:      EventConnected,
		Message:   "Conectado a la sala del sorteo",
		GroupID:   groupID,
		RoomSize:  roomSize,
		Timestamp: time.Now(),
	}
}

func newRoomUpdateEvent(roomSize int) RoomUpdateEvent {
	return RoomUpdateEvent{
		Type:      EventRoomUpdate,
		RoomSize:  roomSize,
		Timestamp: time.Now(),
	}
}

func newErrorEvent(message string) ErrorEvent {
	return ErrorEvent{
		Type:      EventError,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func newPongEvent() PongEvent {
	return PongEvent{Type: EventPong, Timestamp: time.Now()}
}

func newCountdownStartEvent(groupID, groupName string, totalSeconds int) CountdownStartEvent {
	return CountdownStartEvent{
		Type:         EventCountdownStart,
		GroupID:      groupID,
		GroupName:    groupName,
		TotalSeconds: totalSeconds,
		Timestamp:    time.Now(),
	}
}

func newCountdownTickEvent(remaining int) CountdownTickEvent {
	return CountdownTickEvent{
		Type:      EventCountdownTick,
		Remaining: remaining,
		Timestamp: time.Now(),
	}
}

func newCountdownCompleteEvent() CountdownCompleteEvent {
	return CountdownCompleteEvent{
		Type:      EventCountdownComplete,
		Message:   "¡El sorteo está por comenzar!",
		Timestamp: time.Now(),
	}
}

func newLotteryExecutingEvent(groupID, groupName string) LotteryExecutingEvent {
	return LotteryExecutingEvent{
		Type:      EventLotteryExecuting,
		GroupID:   groupID,
		GroupName: groupName,
		Message:   "Mezclando los turnos...",
		Timestamp: time.Now(),
	}
}

func newTurnAssignedEvent(position int, userID, userName string, totalPositions int) TurnAssignedEvent {
	return TurnAssignedEvent{
		Type:           EventTurnAssigned,
		Position:       position,
		UserID:         userID,
		UserName:       userName,
		TotalPositions: totalPositions,
		Timestamp:      time.Now(),
	}
}

func newYourTurnAssignedEvent(position, totalPositions int) YourTurnAssignedEvent {
	return YourTurnAssignedEvent{
		Type:           EventYourTurnAssigned,
		Position:       position,
		TotalPositions: totalPositions,
		Message:        fmt.Sprintf("Te tocó el turno %d de %d", position, totalPositions),
		Timestamp:      time.Now(),
	}
}

func newLotteryCompleteEvent(groupID, groupName string, results []Result, totalPositions int) LotteryCompleteEvent {
	return LotteryCompleteEvent{
		Type:           EventLotteryComplete,
		GroupID:        groupID,
		GroupName:      groupName,
		Results:        results,
		TotalPositions: totalPositions,
		Message:        "¡Sorteo completado!",
		Timestamp:      time.Now(),
	}
}
