package session

import "fmt"

// Role is the side of the transfer a session plays.
type Role uint8

const (
	RoleNone Role = iota
	RoleReceiver
	RoleSender
)

func (r Role) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleReceiver:
		return "receiver"
	case RoleSender:
		return "sender"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// Status is the lifecycle state of a session.
type Status uint8

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusAwaitingPeer
	StatusConnected
	StatusTransferring
	StatusCompleted
	StatusFailed
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusAwaitingPeer:
		return "awaiting peer"
	case StatusConnected:
		return "connected"
	case StatusTransferring:
		return "transferring"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Terminal reports whether s ends a connection's lifetime.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusDisconnected
}

// rank orders statuses within one connection's lifetime.
func (s Status) rank() int {
	switch s {
	case StatusIdle:
		return 0
	case StatusConnecting, StatusAwaitingPeer:
		return 1
	case StatusConnected:
		return 2
	case StatusTransferring:
		return 3
	default:
		return 4
	}
}

// canTransition reports whether a session may move from one status to the
// next. Statuses only move forward, except the re-arm from a terminal status
// back to Idle. A terminal status is never replaced by another.
func canTransition(from, to Status) bool {
	if from.Terminal() {
		return to == StatusIdle
	}
	return to.rank() > from.rank()
}
