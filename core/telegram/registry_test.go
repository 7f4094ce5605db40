package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", Command{Handler: noop, Description: "Главное меню"}))
	require.NoError(t, reg.RegisterCommand("/cancel", Command{Handler: noop, Description: "Выйти", Aliases: []string{"cancel_reserve", "/reserve_exit"}}))
	require.NoError(t, reg.RegisterCommand("/sessions", Command{Handler: noop, Description: "Сессии", AdminOnly: true}))

	assert.Error(t, reg.RegisterCommand("start", Command{Handler: noop, Description: "x"}))
	assert.Error(t, reg.RegisterCommand("/menu", Command{Handler: noop}))
	assert.ErrorIs(t, reg.RegisterCommand("/start", Command{Handler: noop, Description: "x"}), ErrDuplicate)
	assert.ErrorIs(t, reg.RegisterCommand("/exit", Command{Handler: noop, Description: "x", Aliases: []string{"reserve_exit"}}), ErrDuplicate)
	_, _, ok := reg.LookupCommand("/exit")
	assert.False(t, ok, "a rejected command leaves nothing behind")

	tests := map[string]string{
		"/start":                "/start",
		"start":                 "/start",
		"/start@AyamiBot":       "/start",
		"/cancel_reserve":       "/cancel",
		"  /reserve_exit now  ": "/cancel",
	}
	for text, want := range tests {
		name, cmd, ok := reg.LookupCommand(text)
		require.True(t, ok, text)
		assert.Equal(t, want, name, text)
		assert.NotNil(t, cmd.Handler)
	}
	_, _, ok = reg.LookupCommand("")
	assert.False(t, ok)

	assert.Equal(t, []tele.Command{
		{Text: "cancel", Description: "Выйти"},
		{Text: "start", Description: "Главное меню"},
	}, reg.MenuCommands())
	assert.Len(t, reg.Commands(), 3)
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("cart_add", noop))
	require.NoError(t, reg.RegisterCallback("back", noop))
	assert.ErrorIs(t, reg.RegisterCallback("back", noop), ErrDuplicate)
	assert.Error(t, reg.RegisterCallback("", noop))

	_, ok := reg.Callback("cart_add")
	assert.True(t, ok)
	_, ok = reg.Callback("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"back", "cart_add"}, reg.CallbackKeys())

	assert.NotNil(t, reg.CallbackNotFound())
	called := false
	reg.SetCallbackNotFound(func(tele.Context) error { called = true; return nil })
	reg.SetCallbackNotFound(nil)
	require.NoError(t, reg.CallbackNotFound()(nil))
	assert.True(t, called)
}
