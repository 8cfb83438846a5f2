package event

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestChannelSink_EmitAndDrain(t *testing.T) {
	sink := NewChannelSink()
	id := uuid.New()

	sink.Emit(NewStarted(id, time.Now()))
	sink.Emit(NewCompleted(id, time.Now()))

	first := <-sink.Events()
	second := <-sink.Events()

	assert.Equal(t, Started, first.Kind)
	assert.Equal(t, Completed, second.Kind)
}

func TestChannelSink_DropsWhenFull(t *testing.T) {
	sink := &ChannelSink{ch: make(chan Event, 1)}
	id := uuid.New()

	sink.Emit(NewStarted(id, time.Now()))
	// Second emit must not block even though the channel is already full.
	sink.Emit(NewCompleted(id, time.Now()))

	assert.Len(t, sink.ch, 1)
	drained := <-sink.ch
	assert.Equal(t, Started, drained.Kind)
}

func TestChannelSink_Close(t *testing.T) {
	sink := NewChannelSink()
	sink.Close()
	_, ok := <-sink.Events()
	assert.False(t, ok)
}

func TestLogSink_EmitDoesNotPanic(t *testing.T) {
	sink := NewLogSink()
	id := uuid.New()
	kinds := []Event{
		NewStarted(id, time.Now()),
		NewSkillExecuted(id, "insert_load", true),
		NewDurationWaitBegin(id, 0),
		NewRollbackStarted(id),
		NewRollbackStepCompleted(id, "insert_load", false),
		NewCompleted(id, time.Now()),
		NewFailed(id, "boom"),
	}
	for _, e := range kinds {
		assert.NotPanics(t, func() { sink.Emit(e) })
	}
}
