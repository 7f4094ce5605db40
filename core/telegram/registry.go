package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/restobot/core/logger"
	"github.com/m3rciful/restobot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Command is a slash command. Hidden and admin-only commands stay out of the
// Telegram command menu but remain callable.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	// Aliases are extra names, with or without the leading slash.
	Aliases []string
}

// ErrDuplicate is returned when a command, alias or callback key is taken.
var ErrDuplicate = errors.New("telegram: already registered")

// Registry maps command names and callback keys to handlers.
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]Command
	aliases   map[string]string
	callbacks map[string]tele.HandlerFunc
	notFound  tele.HandlerFunc
}

// NewRegistry returns an empty registry whose unknown-callback fallback
// answers "Действие недоступно".
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
		notFound: func(c tele.Context) error {
			return helpers.Respond(c, "Действие недоступно")
		},
	}
}

func slash(name string) string {
	if strings.HasPrefix(name, "/") {
		return name
	}
	return "/" + name
}

// RegisterCommand adds cmd under name, which must start with a slash.
func (r *Registry) RegisterCommand(name string, cmd Command) error {
	if !strings.HasPrefix(name, "/") || len(name) < 2 || cmd.Handler == nil || cmd.Description == "" {
		return fmt.Errorf("telegram: invalid command %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	names := []string{name}
	for _, a := range cmd.Aliases {
		if strings.Trim(a, "/") == "" {
			return fmt.Errorf("telegram: empty alias for %q", name)
		}
		names = append(names, slash(a))
	}
	for _, n := range names {
		if _, ok := r.commands[n]; ok {
			return fmt.Errorf("%w: command %s", ErrDuplicate, n)
		}
		if _, ok := r.aliases[n]; ok {
			return fmt.Errorf("%w: command %s", ErrDuplicate, n)
		}
	}
	r.commands[name] = cmd
	for _, n := range names[1:] {
		r.aliases[n] = name
	}
	return nil
}

// LookupCommand resolves the command in text. It accepts "/name", "name",
// "/name@bot" and trailing arguments, and returns the canonical name.
func (r *Registry) LookupCommand(text string) (string, Command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", Command{}, false
	}
	name, _, _ := strings.Cut(slash(fields[0]), "@")

	r.mu.RLock()
	defer r.mu.RUnlock()
	if canonical, ok := r.aliases[name]; ok {
		name = canonical
	}
	cmd, ok := r.commands[name]
	if !ok {
		return "", Command{}, false
	}
	return name, cmd, true
}

// Commands returns a copy of the registered commands keyed by name.
func (r *Registry) Commands() map[string]Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Command, len(r.commands))
	for k, v := range r.commands {
		out[k] = v
	}
	return out
}

// MenuCommands lists the commands published to the Telegram menu, sorted.
func (r *Registry) MenuCommands() []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []tele.Command
	for name, cmd := range r.commands {
		if cmd.Hidden || cmd.AdminOnly {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: cmd.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// RegisterCallback binds handler to a callback key.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		return fmt.Errorf("telegram: invalid callback %q", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.callbacks[key]; ok {
		return fmt.Errorf("%w: callback %s", ErrDuplicate, key)
	}
	r.callbacks[key] = handler
	return nil
}

// Callback returns the handler bound to key.
func (r *Registry) Callback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// CallbackKeys returns the registered keys, sorted.
func (r *Registry) CallbackKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetCallbackNotFound replaces the fallback for unknown callback keys.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.notFound = h
	r.mu.Unlock()
}

// CallbackNotFound returns the fallback for unknown callback keys.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.notFound
}

// PublishCommands sets the Telegram command menu. Offline bots are skipped.
func PublishCommands(ctx context.Context, bot *tele.Bot, reg *Registry) {
	if bot == nil || reg == nil || bot.Me == nil || bot.Me.ID == 0 {
		return
	}
	menu := reg.MenuCommands()
	err := bot.SetCommands(menu)
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.Int("count", len(menu)),
	}
	if err != nil {
		logger.Error(ctx, logger.ComponentWire, "commands.publish", append(attrs, logger.ErrAttrs(err, "")...)...)
		return
	}
	logger.Info(ctx, logger.ComponentWire, "commands.publish", attrs...)
}
