package event

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEventConstructors(t *testing.T) {
	id := uuid.New()
	now := time.Now()

	assert.Equal(t, Event{Kind: Started, ExperimentID: id, At: now}, NewStarted(id, now))
	assert.Equal(t, Event{Kind: SkillExecuted, ExperimentID: id, SkillName: "insert_load", Success: true},
		NewSkillExecuted(id, "insert_load", true))
	assert.Equal(t, Event{Kind: DurationWaitBegin, ExperimentID: id, Duration: 30 * time.Second},
		NewDurationWaitBegin(id, 30*time.Second))
	assert.Equal(t, Event{Kind: RollbackStarted, ExperimentID: id}, NewRollbackStarted(id))
	assert.Equal(t, Event{Kind: RollbackStepComplete, ExperimentID: id, SkillName: "insert_load", Success: false},
		NewRollbackStepCompleted(id, "insert_load", false))
	assert.Equal(t, Event{Kind: Completed, ExperimentID: id, At: now}, NewCompleted(id, now))
	assert.Equal(t, Event{Kind: Failed, ExperimentID: id, Error: "cancelled"}, NewFailed(id, "cancelled"))
}
