package operator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/restobot/bot/config"
	"github.com/m3rciful/restobot/bot/conv"
	"github.com/m3rciful/restobot/bot/conv/convtest"
	"github.com/m3rciful/restobot/bot/schedule"
	"github.com/m3rciful/restobot/core/telegram/state"
)

type menuStub string

func (m menuStub) Digest() string { return string(m) }

type fakeCompleter struct {
	mu     sync.Mutex
	fn     func(ctx context.Context, turns []Turn) (string, error)
	system string
	turns  []Turn
}

func (f *fakeCompleter) Complete(ctx context.Context, system string, turns []Turn) (string, error) {
	f.mu.Lock()
	f.system = system
	f.turns = append([]Turn(nil), turns...)
	f.mu.Unlock()
	return f.fn(ctx, turns)
}

type fixture struct {
	s       *Session
	store   state.Store
	history *MemoryHistory
	ai      *fakeCompleter
	rec     *convtest.Recorder
}

func newFixture(t *testing.T, opts Options, fn func(ctx context.Context, turns []Turn) (string, error)) *fixture {
	t.Helper()
	now := time.Date(2025, time.June, 2, 12, 0, 0, 0, time.UTC)
	sched := &schedule.Scheduler{Location: time.UTC, Now: func() time.Time { return now }}
	f := &fixture{
		store:   state.NewMemoryStore(),
		history: NewMemoryHistory(),
		ai:      &fakeCompleter{fn: fn},
		rec:     &convtest.Recorder{},
	}
	opts.Preamble.Name = "Аями"
	opts.Preamble.Sites = config.DefaultSites
	f.s = New(f.store, f.history, f.ai, menuStub("Филадельфия — лосось (450₽)"), sched, opts)
	return f
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, f.s.Start(context.Background(), conv.NewButton(3, 3, conv.Act(conv.ActionOperatorStart)), f.rec))
}

func (f *fixture) ask(t *testing.T, text string) conv.Outcome {
	t.Helper()
	out, err := f.s.HandleText(context.Background(), conv.NewText(3, 3, text), f.rec)
	require.NoError(t, err)
	return out
}

func (f *fixture) turns(t *testing.T) []Turn {
	t.Helper()
	turns, err := f.history.Load(context.Background(), 3)
	require.NoError(t, err)
	return turns
}

func echo(_ context.Context, turns []Turn) (string, error) {
	return "ответ на " + turns[len(turns)-1].Content, nil
}

func TestConversation(t *testing.T) {
	f := newFixture(t, Options{}, echo)
	f.start(t)
	assert.Equal(t, textGreeting, f.rec.Last().Text)

	assert.Equal(t, conv.Consumed, f.ask(t, "Что посоветуете?"))
	texts := f.rec.Texts()
	require.Len(t, texts, 3)
	assert.Equal(t, textWorking, texts[1])
	assert.Equal(t, "ответ на Что посоветуете?", texts[2])
	assert.Equal(t, []conv.Action{conv.Act(conv.ActionFoodMenu), conv.Act(conv.ActionOperatorExit)}, f.rec.Actions())
	assert.GreaterOrEqual(t, f.rec.TypingCount(), 1)

	assert.Contains(t, f.ai.system, "Филадельфия — лосось (450₽)")
	assert.Contains(t, f.ai.system, "02.06.2025, 12:00:00")
	assert.Contains(t, f.ai.system, "1. ул. Баранова, 87")

	assert.Equal(t, []Turn{
		{Role: RoleUser, Content: "Что посоветуете?"},
		{Role: RoleAssistant, Content: "ответ на Что посоветуете?"},
	}, f.turns(t))

	f.ask(t, "А десерты?")
	require.Len(t, f.ai.turns, 3, "prior turns are sent with the new question")
	assert.Equal(t, RoleUser, f.ai.turns[2].Role)
}

func TestHistoryIsBounded(t *testing.T) {
	f := newFixture(t, Options{MaxTurns: 4}, echo)
	f.start(t)
	for _, q := range []string{"1", "2", "3", "4"} {
		f.ask(t, q)
	}
	turns := f.turns(t)
	require.Len(t, turns, 4)
	assert.Equal(t, "3", turns[0].Content)
	assert.Equal(t, "ответ на 4", turns[3].Content)
}

func TestTimeoutKeepsSessionOpen(t *testing.T) {
	f := newFixture(t, Options{Timeout: 20 * time.Millisecond}, func(ctx context.Context, _ []Turn) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	f.start(t)
	assert.Equal(t, conv.Consumed, f.ask(t, "Есть кто?"))
	assert.Equal(t, textTimeout, f.rec.Last().Text)
	assert.True(t, f.s.Active(3))
	assert.Empty(t, f.turns(t), "the unanswered question is not kept")
}

func TestTransportFailure(t *testing.T) {
	f := newFixture(t, Options{}, func(context.Context, []Turn) (string, error) {
		return "", errors.New("connection refused")
	})
	f.start(t)
	f.ask(t, "Есть кто?")
	assert.Equal(t, textFailed, f.rec.Last().Text)
	assert.True(t, f.s.Active(3))
	assert.Empty(t, f.turns(t))
}

func TestEmptyReply(t *testing.T) {
	f := newFixture(t, Options{}, func(context.Context, []Turn) (string, error) {
		return "", ErrEmptyReply
	})
	f.start(t)
	f.ask(t, "?")
	assert.Equal(t, textEmpty, f.rec.Last().Text)
	assert.Equal(t, []conv.Action{conv.Act(conv.ActionFoodMenu), conv.Act(conv.ActionOperatorExit)}, f.rec.Actions())
	assert.True(t, f.s.Active(3))
	assert.Empty(t, f.turns(t), "the placeholder never reaches the model")
}

func TestEmptyReplyLeavesEarlierTurns(t *testing.T) {
	calls := 0
	f := newFixture(t, Options{}, func(_ context.Context, turns []Turn) (string, error) {
		calls++
		if calls == 2 {
			return "", ErrEmptyReply
		}
		return "ответ на " + turns[len(turns)-1].Content, nil
	})
	f.start(t)
	f.ask(t, "первый")
	f.ask(t, "второй")
	f.ask(t, "третий")

	require.Len(t, f.ai.turns, 3)
	assert.Equal(t, "первый", f.ai.turns[0].Content)
	assert.Equal(t, "ответ на первый", f.ai.turns[1].Content)
	assert.Equal(t, "третий", f.ai.turns[2].Content)
	for _, turn := range f.turns(t) {
		assert.NotEqual(t, textEmpty, turn.Content)
	}
}

func TestTypingWhileWaiting(t *testing.T) {
	f := newFixture(t, Options{TypingEvery: 5 * time.Millisecond}, func(context.Context, []Turn) (string, error) {
		time.Sleep(60 * time.Millisecond)
		return "готово", nil
	})
	f.start(t)
	f.ask(t, "?")
	after := f.rec.TypingCount()
	assert.GreaterOrEqual(t, after, 2)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, f.rec.TypingCount(), "ticker stops with the call")
}

func TestTextWithoutSession(t *testing.T) {
	f := newFixture(t, Options{}, echo)
	assert.Equal(t, conv.NotApplicable, f.ask(t, "привет"))
	assert.Empty(t, f.rec.Replies())
}

func TestReentryKeepsHistory(t *testing.T) {
	f := newFixture(t, Options{}, echo)
	f.start(t)
	f.ask(t, "привет")
	assert.True(t, f.s.IsReentry(conv.NewText(3, 3, "/operator")))
	assert.False(t, f.s.IsReentry(conv.NewText(3, 3, "/menu")))

	f.start(t)
	assert.Equal(t, textGreeting, f.rec.Last().Text)
	assert.Len(t, f.turns(t), 2)
}

func TestExit(t *testing.T) {
	f := newFixture(t, Options{}, echo)
	ctx := context.Background()
	f.start(t)
	f.ask(t, "привет")

	exit := conv.NewButton(3, 3, conv.Act(conv.ActionOperatorExit))
	require.NoError(t, f.s.HandleAction(ctx, exit, f.rec))
	assert.Equal(t, textExit, f.rec.Last().Text)
	assert.False(t, f.s.Active(3))
	assert.Empty(t, f.turns(t))

	require.NoError(t, f.s.HandleAction(ctx, exit, f.rec))
	assert.Equal(t, []string{"Чат с оператором уже закрыт"}, f.rec.Notices())
}

func TestOnEvict(t *testing.T) {
	f := newFixture(t, Options{}, echo)
	ctx := context.Background()
	f.start(t)
	f.ask(t, "привет")

	require.NoError(t, f.s.OnEvict(ctx, conv.NewText(3, 3, "/menu"), conv.ReasonCommand, f.rec))
	assert.Equal(t, textLeftCmd, f.rec.Last().Text)
	assert.Empty(t, f.turns(t))

	require.NoError(t, f.s.OnEvict(ctx, conv.NewButton(3, 3, conv.Act(conv.ActionReserveTable)), conv.ReasonCallback, f.rec))
	assert.Equal(t, textLeftBtn, f.rec.Last().Text)
	assert.Equal(t, []conv.Action{conv.Act(conv.ActionFoodMenu)}, f.rec.Actions())
}

func TestPreambleHours(t *testing.T) {
	var hours schedule.Hours
	hours[time.Monday] = schedule.Window{Open: schedule.Clock{Hour: 9}, Close: schedule.Clock{Hour: 23}}
	p := Preamble{Name: "Аями", Sites: config.DefaultSites, Hours: hours, Info: "Кэшбэк 10% в день рождения."}
	text := p.Build(time.Date(2025, time.June, 2, 12, 0, 0, 0, time.UTC), "меню")
	assert.Contains(t, text, "— Понедельник: 09:00–23:00")
	assert.Contains(t, text, "Кэшбэк 10% в день рождения.")
	assert.Contains(t, text, "3. ул. Красная, 140")
}

func TestMessages(t *testing.T) {
	msgs := Messages("system", []Turn{{Role: RoleUser, Content: "q"}, {Role: RoleAssistant, Content: "a"}})
	require.Len(t, msgs, 3)
	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfUser)
	assert.NotNil(t, msgs[2].OfAssistant)
}

func TestTrim(t *testing.T) {
	turns := []Turn{{Content: "a"}, {Content: "b"}, {Content: "c"}}
	assert.Equal(t, turns, Trim(turns, 5))
	assert.Equal(t, []Turn{{Content: "b"}, {Content: "c"}}, Trim(turns, 2))
}
