// Package entgen holds the runtime types shared by code generated with
// the entgen compiler: pagination, lifecycle event and command kinds,
// identifier generation and the common error types.
package entgen

import (
	"fmt"
	"strings"
)

// Pagination defaults used by generated list and query operations.
const (
	DefaultLimit  int64 = 100
	DefaultOffset int64 = 0
)

// Pagination holds the LIMIT/OFFSET pair of a list operation.
type Pagination struct {
	Limit  int64 `json:"limit"`
	Offset int64 `json:"offset"`
}

// Page returns a Pagination with the given limit and offset. Non-positive
// limits fall back to DefaultLimit and negative offsets to DefaultOffset.
func Page(limit, offset int64) Pagination {
	return Pagination{Limit: limit, Offset: offset}.Normalize()
}

// Normalize returns a copy of p with defaults applied.
func (p Pagination) Normalize() Pagination {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Offset < 0 {
		p.Offset = DefaultOffset
	}
	return p
}

// LimitOrDefault returns *limit normalized as by Pagination.Normalize, or
// DefaultLimit when limit is nil.
func LimitOrDefault(limit *int64) int64 {
	var p Pagination
	if limit != nil {
		p.Limit = *limit
	}
	return p.Normalize().Limit
}

// OffsetOrDefault returns *offset normalized as by Pagination.Normalize,
// or DefaultOffset when offset is nil.
func OffsetOrDefault(offset *int64) int64 {
	var p Pagination
	if offset != nil {
		p.Offset = *offset
	}
	return p.Normalize().Offset
}

// EventKind identifies the lifecycle transition carried by an entity event.
type EventKind uint8

// Lifecycle event kinds.
const (
	EventCreated EventKind = iota + 1
	EventUpdated
	EventSoftDeleted
	EventRestored
	EventHardDeleted
)

var eventKindNames = [...]string{
	EventCreated:     "created",
	EventUpdated:     "updated",
	EventSoftDeleted: "soft_deleted",
	EventRestored:    "restored",
	EventHardDeleted: "hard_deleted",
}

// String returns the wire name of the kind.
func (k EventKind) String() string {
	if int(k) < len(eventKindNames) && eventKindNames[k] != "" {
		return eventKindNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// IsDelete reports whether the kind removes the entity from default reads.
func (k EventKind) IsDelete() bool {
	return k == EventSoftDeleted || k == EventHardDeleted
}

// MarshalText implements encoding.TextMarshaler.
func (k EventKind) MarshalText() ([]byte, error) {
	if int(k) >= len(eventKindNames) || eventKindNames[k] == "" {
		return nil, fmt.Errorf("entgen: invalid event kind %d", uint8(k))
	}
	return []byte(eventKindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EventKind) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	for i, name := range eventKindNames {
		if name != "" && name == s {
			*k = EventKind(i)
			return nil
		}
	}
	return fmt.Errorf("entgen: unknown event kind %q", text)
}

// CommandKind classifies a CQRS command.
type CommandKind uint8

// Command kinds.
const (
	CommandCreate CommandKind = iota + 1
	CommandUpdate
	CommandDelete
	CommandCustom
)

// String returns the lower-case name of the kind.
func (k CommandKind) String() string {
	switch k {
	case CommandCreate:
		return "create"
	case CommandUpdate:
		return "update"
	case CommandDelete:
		return "delete"
	case CommandCustom:
		return "custom"
	default:
		return fmt.Sprintf("CommandKind(%d)", uint8(k))
	}
}

// Unit is the result type of commands that produce no value.
type Unit = struct{}
