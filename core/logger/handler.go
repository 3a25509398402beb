package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// field is a flattened, normalized attribute.
type field struct {
	key string
	val any
}

// structuredHandler renders each record as one line. Attributes bound with
// WithAttrs are resolved once, under the group path active at bind time.
type structuredHandler struct {
	cfg    handlerConfig
	bound  []field
	prefix string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = slices.Clone(defaultKeyOrder)
	}
	return &structuredHandler{cfg: cfg}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errors.New("logger: writer not initialized")
	}
	isJSON := h.cfg.format == formatJSON

	ts := r.Time.UTC()
	e := entry{
		"ts":    ts.Truncate(time.Millisecond).Format(timeFormatMillis),
		"level": levelName(r.Level),
	}
	if isJSON {
		e["ts_unix_nano"] = ts.UnixNano()
	}
	for _, f := range h.bound {
		e[f.key] = f.val
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(h.prefix, a, func(f field) { e[f.key] = f.val })
		return true
	})
	e.fromContext(ctx)
	e.finish(r.Message, isJSON)

	var line []byte
	if isJSON {
		var err error
		if line, err = e.encodeJSON(h.cfg.keyOrder); err != nil {
			return err
		}
	} else {
		line = e.encodeKV(h.cfg.keyOrder)
	}
	return h.cfg.writer.Write(append(line, '\n'))
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.bound = slices.Clip(h.bound)
	for _, a := range attrs {
		flatten(h.prefix, a, func(f field) { clone.bound = append(clone.bound, f) })
	}
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

// flatten walks group attributes depth first and emits one field per leaf.
func flatten(prefix string, a slog.Attr, emit func(field)) {
	key := joinKey(prefix, a.Key)
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			flatten(key, child, emit)
		}
		return
	}
	if key == "" {
		return
	}
	if f, ok := normalize(key, v); ok {
		emit(f)
	}
}

func normalize(key string, v slog.Value) (field, bool) {
	switch v.Kind() {
	case slog.KindString:
		return field{key, strings.TrimSpace(v.String())}, true
	case slog.KindBool:
		return field{key, v.Bool()}, true
	case slog.KindInt64:
		return field{key, v.Int64()}, true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return field{key, int64(u)}, true
		}
		return field{key, v.Uint64()}, true
	case slog.KindFloat64:
		return field{key, v.Float64()}, true
	case slog.KindDuration:
		return millis(key, v.Duration()), true
	case slog.KindTime:
		return field{key, v.Time().UTC().Format(time.RFC3339Nano)}, true
	}
	switch x := v.Any().(type) {
	case nil:
		return field{}, false
	case error:
		return field{key, x.Error()}, true
	case time.Duration:
		return millis(key, x), true
	case fmt.Stringer:
		return field{key, x.String()}, true
	default:
		return field{key, fmt.Sprint(x)}, true
	}
}

// millis renders durations as whole milliseconds under a key ending in _ms.
func millis(key string, d time.Duration) field {
	if !strings.HasSuffix(key, "_ms") {
		key += "_ms"
	}
	return field{key, RoundMS(d).Milliseconds()}
}

// RoundMS rounds duration to the nearest millisecond; negatives become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// entry is the set of fields of one log line.
type entry map[string]any

func (e entry) str(key string) string {
	switch v := e[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (e entry) setDefault(key string, val any) {
	if _, ok := e[key]; !ok {
		e[key] = val
	}
}

func (e entry) fromContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	if rid := RIDFrom(ctx); rid != "" {
		e.setDefault("rid", rid)
	}
	if m := metaFrom(ctx); m != (updateMeta{}) {
		if m.updateID != 0 {
			e.setDefault("update_id", m.updateID)
		}
		if m.userID != 0 {
			e.setDefault("user_id", m.userID)
		}
		if m.chatID != 0 {
			e.setDefault("chat_id", m.chatID)
		}
	}
	if name := HandlerFrom(ctx); name != "" {
		e.setDefault("handler", name)
	}
}

// finish fills event and component, compacts the rid, normalizes enumerated
// values and drops empty fields.
func (e entry) finish(msg string, keepFullRID bool) {
	if rid := e.str("rid"); rid != "" {
		if short := CompactRID(rid); short != rid {
			if keepFullRID {
				e.setDefault("rid_full", rid)
			}
			e["rid"] = short
		}
	}
	if e.str("event") == "" {
		if msg == "" {
			msg = "unknown"
		}
		e["event"] = msg
	}
	if e.str("component") == "" {
		e["component"] = "app"
	}
	if s := e.str("status"); s != "" {
		e["status"] = normalizeStatus(s)
	}
	if o := e.str("outcome"); o != "" {
		if norm, ok := normalizeOutcome(o); ok {
			e["outcome"] = norm
		} else {
			delete(e, "outcome")
		}
	}
	for k, v := range e {
		switch x := v.(type) {
		case nil:
			delete(e, k)
		case string:
			if x == "" {
				delete(e, k)
			}
		}
	}
}

// keys lists the preferred keys first, then the rest alphabetically.
func (e entry) keys(order []string) []string {
	keys := make([]string, 0, len(e))
	placed := make(map[string]bool, len(order))
	for _, k := range order {
		if _, ok := e[k]; ok && !placed[k] {
			keys = append(keys, k)
			placed[k] = true
		}
	}
	head := len(keys)
	for k := range e {
		if !placed[k] {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys[head:])
	return keys
}

func (e entry) encodeJSON(order []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range e.keys(order) {
		val, err := json.Marshal(e[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(k))
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (e entry) encodeKV(order []string) []byte {
	var buf bytes.Buffer
	for i, k := range e.keys(order) {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(k)
		buf.WriteByte('=')
		buf.WriteString(kvValue(e[k]))
	}
	return buf.Bytes()
}

func kvValue(v any) string {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		s = fmt.Sprint(x)
	}
	if strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}
