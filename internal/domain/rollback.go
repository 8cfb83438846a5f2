package domain

import "time"

// RollbackHandle is the opaque record a skill returns from Execute and
// receives back unchanged in Rollback. UndoState is kept as a YAML-encoded
// blob so the orchestrator never needs to know a skill's internal state
// shape.
type RollbackHandle struct {
	ID        string
	SkillName string
	CreatedAt time.Time
	UndoState []byte
}

// RollbackLog is an append-only, strictly-ordered list of rollback handles.
// Rollback always replays it in reverse insertion order (LIFO) regardless
// of which skill produced which entry.
type RollbackLog struct {
	entries []RollbackHandle
}

func NewRollbackLog() *RollbackLog {
	return &RollbackLog{}
}

func (l *RollbackLog) Push(h RollbackHandle) {
	l.entries = append(l.entries, h)
}

func (l *RollbackLog) Len() int {
	return len(l.entries)
}

// IterReverse returns a copy of the entries in reverse insertion order,
// i.e. the order rollback must execute them in.
func (l *RollbackLog) IterReverse() []RollbackHandle {
	out := make([]RollbackHandle, len(l.entries))
	for i, h := range l.entries {
		out[len(l.entries)-1-i] = h
	}
	return out
}
