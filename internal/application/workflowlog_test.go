package application

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/checkpanel/internal/domain/model"
)

func logSteps() []model.LogStep {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return []model.LogStep{
		{Number: 1, Name: "Set up job", StartedAt: base, CompletedAt: base.Add(2 * time.Second)},
		{Number: 2, Name: "Run actions/checkout@v4", StartedAt: base.Add(2 * time.Second), CompletedAt: base.Add(5 * time.Second)},
		{Number: 3, Name: "Run make test", StartedAt: base.Add(5 * time.Second), CompletedAt: base.Add(30 * time.Second)},
	}
}

const sampleJobLog = "\ufeff2026-03-01T10:00:00.1000000Z Current runner version: '2.320.0'\n" +
	"2026-03-01T10:00:00.2000000Z ##[group]Operating System\n" +
	"2026-03-01T10:00:00.2000000Z Ubuntu\n" +
	"2026-03-01T10:00:00.3000000Z ##[endgroup]\n" +
	"2026-03-01T10:00:02.4000000Z ##[group]Run actions/checkout@v4\n" +
	"2026-03-01T10:00:02.5000000Z with:\n" +
	"continuation without timestamp\n" +
	"2026-03-01T10:00:05.0000000Z ##[group]Run make test\n" +
	"2026-03-01T10:00:29.0000000Z --- FAIL: TestThing (0.00s)\n" +
	"2026-03-01T10:00:29.9000000Z ##[error]Process completed with exit code 1.\n"

func TestParseJobLog_AssignsLinesByTimestamp(t *testing.T) {
	steps := ParseJobLog(sampleJobLog, logSteps())
	require.Len(t, steps, 3)

	assert.Equal(t, "Current runner version: '2.320.0'\nOperating System\nUbuntu", steps[0].Log)
	assert.Equal(t, "Run actions/checkout@v4\nwith:\ncontinuation without timestamp", steps[1].Log)
	assert.Contains(t, steps[2].Log, "--- FAIL: TestThing")
	assert.Equal(t, []string{"Process completed with exit code 1."}, steps[2].ErrorLines)
	assert.Empty(t, steps[0].ErrorLines)
}

func TestParseJobLog_DoesNotMutateInput(t *testing.T) {
	in := logSteps()
	_ = ParseJobLog(sampleJobLog, in)
	for _, s := range in {
		assert.Empty(t, s.Log)
	}
}

func TestParseJobLog_UnorderedStepsAndEarlyLines(t *testing.T) {
	in := logSteps()
	in[0], in[2] = in[2], in[0]

	raw := "2026-03-01T09:59:59.0000000Z before anything\n2026-03-01T10:00:06.0000000Z testing\n"
	steps := ParseJobLog(raw, in)

	// in[2] is now step 1, in[0] is step 3.
	assert.Equal(t, "before anything", steps[2].Log)
	assert.Equal(t, "testing", steps[0].Log)
}

func TestParseJobLog_TruncatesToTail(t *testing.T) {
	var b strings.Builder
	for i := 0; i < maxStepLogLines+10; i++ {
		b.WriteString("2026-03-01T10:00:06.0000000Z line\n")
	}
	b.WriteString("2026-03-01T10:00:07.0000000Z last\n")

	steps := ParseJobLog(b.String(), logSteps())
	lines := strings.Split(steps[2].Log, "\n")
	assert.Len(t, lines, maxStepLogLines)
	assert.Equal(t, "last", lines[len(lines)-1])
}

func TestParseJobLog_NoSteps(t *testing.T) {
	assert.Empty(t, ParseJobLog(sampleJobLog, nil))
}

func TestParseJobLog_SkipsStepsThatNeverStarted(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	in := []model.LogStep{
		{Number: 1, Name: "Run actions/checkout@v4", StartedAt: base},
		{Number: 2, Name: "Run cache restore"},
		{Number: 3, Name: "Run make test", StartedAt: base.Add(10 * time.Second)},
	}

	raw := "2026-03-01T10:00:01.0000000Z checking out\n" +
		"2026-03-01T10:00:11.0000000Z ##[error]boom\n"
	steps := ParseJobLog(raw, in)

	assert.Equal(t, "checking out", steps[0].Log)
	assert.Empty(t, steps[0].ErrorLines)
	assert.Empty(t, steps[1].Log)
	assert.Equal(t, "boom", steps[2].Log)
	assert.Equal(t, []string{"boom"}, steps[2].ErrorLines)
}
