package application

import (
	"sort"
	"strings"
	"time"

	"github.com/ericfisherdev/checkpanel/internal/domain/model"
)

// maxStepLogLines caps the log kept per step; the tail is kept since failures
// are reported at the end of a step.
const maxStepLogLines = 500

const (
	markerGroup    = "##[group]"
	markerEndGroup = "##[endgroup]"
	markerError    = "##[error]"
)

// logLine is one line of a job log with its runner timestamp, if any.
type logLine struct {
	at   time.Time
	text string
}

// ParseJobLog splits a plain-text GitHub Actions job log across the job's
// steps and returns a copy of steps with Log and ErrorLines filled in.
//
// Every runner line starts with an RFC 3339 timestamp; a line belongs to the
// last step (by number) that started at or before it. Lines without a
// timestamp stay with the previous line, and lines before the first step go
// to the first step. Group markers are stripped and end-group lines dropped.
func ParseJobLog(raw string, steps []model.LogStep) []model.LogStep {
	out := append([]model.LogStep(nil), steps...)
	if len(out) == 0 {
		return out
	}

	order := stepOrder(out)
	logs := make([][]string, len(out))
	errs := make([][]string, len(out))

	current := order[0]
	for _, line := range parseLogLines(raw) {
		if !line.at.IsZero() {
			current = stepAt(out, order, line.at)
		}

		text := line.text
		switch {
		case strings.HasPrefix(text, markerEndGroup):
			continue
		case strings.HasPrefix(text, markerGroup):
			text = strings.TrimPrefix(text, markerGroup)
		case strings.HasPrefix(text, markerError):
			text = strings.TrimPrefix(text, markerError)
			errs[current] = append(errs[current], text)
		}
		logs[current] = append(logs[current], text)
	}

	for i := range out {
		lines := logs[i]
		if len(lines) > maxStepLogLines {
			lines = lines[len(lines)-maxStepLogLines:]
		}
		out[i].Log = strings.Join(lines, "\n")
		out[i].ErrorLines = errs[i]
	}

	return out
}

// parseLogLines splits raw into lines and peels off the leading timestamp.
func parseLogLines(raw string) []logLine {
	raw = strings.TrimPrefix(raw, "\ufeff")
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.TrimRight(raw, "\n")
	if raw == "" {
		return nil
	}

	split := strings.Split(raw, "\n")
	lines := make([]logLine, 0, len(split))
	for _, s := range split {
		s = strings.TrimPrefix(s, "\ufeff")
		head, rest, found := strings.Cut(s, " ")
		if found {
			if at, err := time.Parse(time.RFC3339Nano, head); err == nil {
				lines = append(lines, logLine{at: at, text: rest})
				continue
			}
		}
		lines = append(lines, logLine{text: s})
	}
	return lines
}

// stepOrder returns step indexes sorted by step number.
func stepOrder(steps []model.LogStep) []int {
	order := make([]int, len(steps))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return steps[order[a]].Number < steps[order[b]].Number
	})
	return order
}

// stepAt returns the index of the last step that started at or before at.
// Steps that never started are skipped. Step start times have second
// precision, so at is truncated to match.
func stepAt(steps []model.LogStep, order []int, at time.Time) int {
	at = at.Truncate(time.Second)
	idx := order[0]
	for _, i := range order {
		started := steps[i].StartedAt
		if started.IsZero() {
			continue
		}
		if started.After(at) {
			break
		}
		idx = i
	}
	return idx
}
