package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/checkpanel/internal/domain/model"
)

func TestPanelRegistry_OpenGetClose(t *testing.T) {
	source := newFakeStatusSource()
	reg := NewPanelRegistry(source, failingEnricher{t: t}, &recordingRerunner{}, &recordingOpener{})

	id, panel := reg.Open(testRepo, "feature", 4)
	require.NotEmpty(t, id)
	assert.Equal(t, 1, reg.Len())
	assert.True(t, panel.View().Active)

	got, err := reg.Get(id)
	require.NoError(t, err)
	assert.Same(t, panel, got)

	require.NoError(t, reg.Close(id))
	assert.Equal(t, 0, reg.Len())
	assert.False(t, panel.View().Active)
	assert.Equal(t, 1, source.subs[0].disposed)

	_, err = reg.Get(id)
	assert.ErrorIs(t, err, ErrPanelNotFound)
	assert.ErrorIs(t, reg.Close(id), ErrPanelNotFound)
}

func TestPanelRegistry_Reactivate(t *testing.T) {
	source := newFakeStatusSource()
	reg := NewPanelRegistry(source, failingEnricher{t: t}, &recordingRerunner{}, &recordingOpener{})

	id, _ := reg.Open(testRepo, "feature", 4)
	panel, err := reg.Reactivate(id, testRepo, "other", 5)
	require.NoError(t, err)

	view := panel.View()
	assert.Equal(t, 5, view.PRNumber)
	assert.Equal(t, "refs/pull/5/head", view.Ref)
	assert.Equal(t, 1, source.subs[0].disposed)

	_, err = reg.Reactivate("missing", testRepo, "other", 5)
	assert.ErrorIs(t, err, ErrPanelNotFound)

	reg.CloseAll()
}

func TestPanelRegistry_CloseAllWaitsForEnrichment(t *testing.T) {
	source := newFakeStatusSource()
	enricher := newBlockingEnricher()
	source.cached["refs/pull/1/head"] = &model.CombinedStatus{Ref: "refs/pull/1/head", Checks: rawChecks()}
	reg := NewPanelRegistry(source, enricher, &recordingRerunner{}, &recordingOpener{})

	_, first := reg.Open(testRepo, "a", 1)
	_, second := reg.Open(testRepo, "b", 2)
	call := enricher.next(t)

	done := make(chan struct{})
	go func() {
		reg.CloseAll()
		close(done)
	}()

	call.release <- enrichResult{checks: call.checks}
	<-done

	assert.Equal(t, 0, reg.Len())
	assert.False(t, first.View().Active)
	assert.False(t, second.View().Active)
	enricher.assertIdle(t)
}
