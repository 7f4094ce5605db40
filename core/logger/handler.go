package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const tsLayout = "2006-01-02T15:04:05.000Z07:00"

type field struct {
	key string
	val any
}

// fields keeps insertion order; reserved slots stay in place when filled later.
type fields struct {
	list []field
	at   map[string]int
}

func newFields(reserved ...string) *fields {
	f := &fields{at: make(map[string]int, 16)}
	for _, k := range reserved {
		f.set(k, nil)
	}
	return f
}

func (f *fields) set(key string, val any) {
	if i, ok := f.at[key]; ok {
		f.list[i].val = val
		return
	}
	f.at[key] = len(f.list)
	f.list = append(f.list, field{key: key, val: val})
}

func (f *fields) get(key string) any {
	if i, ok := f.at[key]; ok {
		return f.list[i].val
	}
	return nil
}

func (f *fields) fill(key string, val any) {
	if f.get(key) == nil {
		f.set(key, val)
	}
}

func (f *fields) add(prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key == "" {
			key = prefix
		}
		for _, child := range a.Value.Group() {
			f.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	f.set(normalize(key, a.Value))
}

// normalize flattens a value for output. Durations become integer milliseconds
// under a key ending in _ms.
func normalize(key string, v slog.Value) (string, any) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String())
	case slog.KindDuration:
		return msKey(key), RoundMS(v.Duration()).Milliseconds()
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindAny:
		switch x := v.Any().(type) {
		case nil:
			return key, nil
		case error:
			return key, x.Error()
		case fmt.Stringer:
			return key, x.String()
		}
	}
	return key, v.Any()
}

func msKey(key string) string {
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

// lineHandler renders records as JSON objects or key=value lines.
type lineHandler struct {
	level  slog.Leveler
	out    *lineWriter
	asJSON bool
	pre    []field
	group  string
}

func newLineHandler(level slog.Leveler, out *lineWriter, asJSON bool) *lineHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &lineHandler{level: level, out: out, asJSON: asJSON}
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *lineHandler) Handle(ctx context.Context, r slog.Record) error {
	f := newFields("ts", "level", "component", "event", "status", "rid")
	f.set("ts", r.Time.UTC().Format(tsLayout))
	f.set("level", r.Level.String())
	f.set("event", r.Message)
	for _, p := range h.pre {
		f.set(p.key, p.val)
	}
	r.Attrs(func(a slog.Attr) bool {
		f.add(h.group, a)
		return true
	})

	m := metaFrom(ctx)
	if m.rid != "" {
		f.fill("rid", m.rid)
	}
	if rid, ok := f.get("rid").(string); ok {
		f.set("rid", CompactRID(rid))
	}
	if m.traceID != "" {
		f.fill("trace_id", m.traceID)
	}
	if m.updateID != 0 {
		f.fill("update_id", m.updateID)
	}
	if m.userID != 0 {
		f.fill("user_id", m.userID)
	}
	if m.chatID != 0 {
		f.fill("chat_id", m.chatID)
	}
	if m.handler != "" {
		f.fill("handler", m.handler)
	}
	if m.scenario != "" {
		f.fill("scenario", m.scenario)
	}
	if c, _ := f.get("component").(string); c == "" {
		f.set("component", ComponentApp)
	}

	var line []byte
	if h.asJSON {
		line = encodeJSON(f.list)
	} else {
		line = encodeKV(f.list)
	}
	return h.out.Write(append(line, '\n'))
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	f := newFields()
	for _, a := range attrs {
		f.add(h.group, a)
	}
	clone := *h
	clone.pre = append(append([]field(nil), h.pre...), f.list...)
	return &clone
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.group != "" {
		name = clone.group + "." + name
	}
	clone.group = name
	return &clone
}

func empty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func encodeJSON(list []field) []byte {
	buf := []byte{'{'}
	first := true
	for _, fl := range list {
		if empty(fl.val) {
			continue
		}
		data, err := json.Marshal(fl.val)
		if err != nil {
			data, _ = json.Marshal(fmt.Sprint(fl.val))
		}
		if !first {
			buf = append(buf, ',')
		}
		first = false
		key, _ := json.Marshal(fl.key)
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, data...)
	}
	return append(buf, '}')
}

func encodeKV(list []field) []byte {
	var b strings.Builder
	for _, fl := range list {
		if empty(fl.val) {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(fl.key)
		b.WriteByte('=')
		s := fmt.Sprint(fl.val)
		if strings.IndexFunc(s, needsQuote) >= 0 {
			s = strconv.Quote(s)
		}
		b.WriteString(s)
	}
	return []byte(b.String())
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}
