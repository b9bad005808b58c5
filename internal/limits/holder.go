package limits

import (
	"context"
	"log/slog"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report json keys so failures map straight back to settings keys.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type snapshot struct {
	settings Settings
	limits   *Limits
}

// Holder publishes the current limits. Reads are lock free; Apply swaps in a
// complete new snapshot.
type Holder struct {
	current atomic.Pointer[snapshot]
	logger  *slog.Logger
}

// NewHolder creates a Holder publishing the given settings.
func NewHolder(initial Settings, logger *slog.Logger) *Holder {
	h := &Holder{logger: logger}
	h.current.Store(&snapshot{settings: initial, limits: initial.Limits()})
	return h
}

// Snapshot returns the limits in effect right now.
func (h *Holder) Snapshot() *Limits {
	return h.current.Load().limits
}

// Settings returns the settings in effect right now.
func (h *Holder) Settings() Settings {
	return h.current.Load().settings
}

// Validate merges candidate into the current settings key by key. A key whose
// JSON type differs from the current value, or whose value is out of range,
// keeps the current value; every other key is accepted. The returned object
// holds exactly the schema keys. A candidate that is not an object at all
// returns ErrLimitsMissing.
func (h *Holder) Validate(candidate any) (map[string]any, error) {
	incoming, ok := candidate.(map[string]any)
	if !ok || incoming == nil {
		h.logger.Error("invalid limits candidate",
			slog.String("op", "limits.validate.invalid"),
			slog.String("type", jsonKind(candidate, candidate != nil)))
		return nil, ErrLimitsMissing
	}

	current := h.Settings().AsMap()
	accepted := make(map[string]any, len(current))

	for _, key := range sortedKeys(current) {
		cur := current[key]
		future, present := incoming[key]

		if jsonKind(cur, true) != jsonKind(future, present) || !isIntegral(future) {
			h.logger.Error("limit rejected",
				slog.String("op", "limits.validate.err"),
				slog.String("key", key),
				slog.String("message", "types do not match"))
			accepted[key] = cur
			continue
		}

		if !reflect.DeepEqual(cur, future) {
			h.logger.Info("limit changed",
				slog.String("op", "limits.validate.changed"),
				slog.String("key", key),
				slog.Any("current", cur),
				slog.Any("future", future))
		}
		accepted[key] = future
	}

	h.rejectOutOfRange(accepted, current)
	return accepted, nil
}

// Apply validates candidate and publishes the result. In-flight decisions keep
// the snapshot they already took.
func (h *Holder) Apply(candidate any) (Settings, error) {
	accepted, err := h.Validate(candidate)
	if err != nil {
		return Settings{}, err
	}

	settings, err := settingsFromMap(accepted)
	if err != nil {
		return Settings{}, err
	}

	h.current.Store(&snapshot{settings: settings, limits: settings.Limits()})
	return settings, nil
}

func (h *Holder) rejectOutOfRange(accepted, current map[string]any) {
	settings, err := settingsFromMap(accepted)
	if err != nil {
		return
	}
	err = validate.Struct(settings)
	if err == nil {
		return
	}
	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return
	}
	for _, fe := range fieldErrors {
		key := fe.Field()
		h.logger.LogAttrs(context.Background(), slog.LevelError, "limit rejected",
			slog.String("op", "limits.validate.err"),
			slog.String("key", key),
			slog.String("message", "value out of range: "+fe.Tag()+"="+fe.Param()))
		accepted[key] = current[key]
	}
}

// jsonKind names the JSON type of v the way a JavaScript typeof would see
// it. present is false for a key that was missing entirely.
func jsonKind(v any, present bool) string {
	if !present {
		return "undefined"
	}
	switch v.(type) {
	case nil:
		return "null"
	case float64, float32, int, int32, int64, uint, uint32, uint64:
		return "number"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return reflect.TypeOf(v).Kind().String()
	}
}

func isIntegral(v any) bool {
	f, ok := v.(float64)
	if !ok {
		return true
	}
	return f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<53
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
