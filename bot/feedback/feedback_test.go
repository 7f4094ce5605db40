package feedback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/restobot/bot/conv"
	"github.com/m3rciful/restobot/bot/conv/convtest"
	"github.com/m3rciful/restobot/bot/record"
	"github.com/m3rciful/restobot/core/telegram/state"
)

func TestStartThenSubmit(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	sink := &record.Recording{}
	f := New(store, sink)
	rec := &convtest.Recorder{}

	store.Start(1, conv.ScenarioOperator, "chat", nil)
	ev := conv.NewButton(1, 1, conv.Act(conv.ActionFeedbackStart))
	require.NoError(t, f.Start(ctx, ev, rec))
	assert.True(t, ev.Evicted(conv.ScenarioOperator))
	assert.Equal(t, []state.Scenario{conv.ScenarioFeedback}, store.Active(1))
	assert.Equal(t, []conv.Action{conv.Act(conv.ActionFeedbackCancel)}, rec.Actions())

	msg := conv.NewText(1, 1, "  всё отлично ")
	msg.Username = "ann"
	out, err := f.HandleText(ctx, msg, rec)
	require.NoError(t, err)
	assert.Equal(t, conv.Consumed, out)
	require.Len(t, sink.Feedback, 1)
	assert.Equal(t, "всё отлично", sink.Feedback[0].Text)
	assert.Equal(t, "@ann", sink.Feedback[0].Author)
	assert.Equal(t, textThanks, rec.Last().Text)
	assert.Empty(t, store.Active(1))

	out, err = f.HandleText(ctx, conv.NewText(1, 1, "ещё"), rec)
	require.NoError(t, err)
	assert.Equal(t, conv.NotApplicable, out)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	f := New(store, &record.Recording{})
	rec := &convtest.Recorder{}

	require.NoError(t, f.Start(ctx, conv.NewButton(2, 2, conv.Act(conv.ActionFeedbackStart)), rec))
	require.NoError(t, f.HandleAction(ctx, conv.NewButton(2, 2, conv.Act(conv.ActionFeedbackCancel)), rec))
	assert.Equal(t, textCancelled, rec.Last().Text)
	assert.Equal(t, []string{"Отмена"}, rec.Notices())
	assert.Empty(t, store.Active(2))
}

func TestSubmitFailureApologises(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	f := New(store, &record.Recording{Err: errors.New("down")})
	rec := &convtest.Recorder{}

	require.NoError(t, f.Start(ctx, conv.NewButton(3, 3, conv.Act(conv.ActionFeedbackStart)), rec))
	out, err := f.HandleText(ctx, conv.NewText(3, 3, "плохо"), rec)
	require.NoError(t, err)
	assert.Equal(t, conv.Consumed, out)
	assert.Equal(t, textFailed, rec.Last().Text)
	assert.Empty(t, store.Active(3))
}
