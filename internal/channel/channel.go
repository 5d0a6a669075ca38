// Package channel validates per-channel control records.
package channel

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Record keys, shared with the settings file.
const (
	KeyNumber     = "gpio_pin"
	KeyIdentifier = "identifier"
	KeyLower      = "lower_limit_ct_kwh"
	KeyUpper      = "upper_limit_ct_kwh"
	KeyRankN      = "cheapest_hours_n"
)

// ErrInvalidConfig is matched by every ValidationError.
var ErrInvalidConfig = errors.New("invalid channel configuration")

// Mode selects the valid rank-count range.
type Mode int

const (
	// ModeLive is bounded by what the remote ranking oracle answers (1-12 hours).
	ModeLive Mode = iota
	// ModeSimulation ranks locally over a full day.
	ModeSimulation
)

// MaxRank returns the largest rank count accepted in the mode.
func (m Mode) MaxRank() int {
	if m == ModeSimulation {
		return 24
	}
	return 12
}

func (m Mode) String() string {
	if m == ModeSimulation {
		return "simulation"
	}
	return "live"
}

// Config is one validated channel. Limits are whole cents per kWh.
type Config struct {
	Number     int    `json:"number"`
	Identifier string `json:"identifier"`
	Lower      int    `json:"lower_limit"`
	Upper      int    `json:"upper_limit"`
	RankN      int    `json:"rank_n"`
}

// DefaultIdentifier is the name used when a record carries none.
func DefaultIdentifier(number int) string {
	return fmt.Sprintf("Pin_%d", number)
}

// Record renders the config back into the settings file shape.
func (c Config) Record() map[string]any {
	return map[string]any{
		KeyNumber:     c.Number,
		KeyIdentifier: c.Identifier,
		KeyLower:      c.Lower,
		KeyUpper:      c.Upper,
		KeyRankN:      c.RankN,
	}
}

// ValidationError identifies the first violated constraint of a record.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("record %d: %s: %s", e.Index+1, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is reports ErrInvalidConfig.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// FromRecord validates one untyped record. Notes describe recoverable
// adjustments such as a rank count reset to zero.
func FromRecord(raw map[string]any, mode Mode) (Config, []string, error) {
	return fromRecord(-1, raw, mode)
}

func fromRecord(index int, raw map[string]any, mode Mode) (Config, []string, error) {
	invalid := func(field, reason string) (Config, []string, error) {
		return Config{}, nil, &ValidationError{Index: index, Field: field, Reason: reason}
	}
	if raw == nil {
		return invalid("record", "not an object")
	}

	var cfg Config
	var notes []string

	number, err := requiredInt(raw, KeyNumber)
	if err != nil {
		return invalid(KeyNumber, err.Error())
	}
	if number <= 0 {
		return invalid(KeyNumber, "must be a positive integer")
	}
	cfg.Number = number

	if cfg.Upper, err = requiredInt(raw, KeyUpper); err != nil {
		return invalid(KeyUpper, err.Error())
	}
	if cfg.Upper < 0 {
		return invalid(KeyUpper, "must not be negative")
	}
	if cfg.Lower, err = requiredInt(raw, KeyLower); err != nil {
		return invalid(KeyLower, err.Error())
	}
	if cfg.Lower < 0 {
		return invalid(KeyLower, "must not be negative")
	}
	if cfg.Lower > cfg.Upper {
		return invalid(KeyLower, fmt.Sprintf("lower limit %d exceeds upper limit %d", cfg.Lower, cfg.Upper))
	}

	n, err := requiredInt(raw, KeyRankN)
	switch {
	case err != nil:
		notes = append(notes, fmt.Sprintf("%s: %v; ranking disabled", KeyRankN, err))
	case n < 0 || n > mode.MaxRank():
		notes = append(notes, fmt.Sprintf("%s=%d outside 0-%d for %s mode; ranking disabled", KeyRankN, n, mode.MaxRank(), mode))
	default:
		cfg.RankN = n
	}

	cfg.Identifier = DefaultIdentifier(cfg.Number)
	if v, ok := raw[KeyIdentifier]; ok && v != nil {
		var id string
		if err := mapstructure.WeakDecode(v, &id); err == nil && strings.TrimSpace(id) != "" {
			cfg.Identifier = strings.TrimSpace(id)
		}
	}

	return cfg, notes, nil
}

// ValidateAll validates a record list. Invalid records and records reusing a
// channel number or identifier are skipped and reported in the returned
// error; valid configs come back sorted by channel number.
func ValidateAll(records []map[string]any, mode Mode, onNote func(Config, string)) ([]Config, error) {
	seen := make(map[int]bool, len(records))
	seenID := make(map[string]int, len(records))
	configs := make([]Config, 0, len(records))
	var errs []error

	for i, raw := range records {
		cfg, notes, err := fromRecord(i, raw, mode)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[cfg.Number] {
			errs = append(errs, &ValidationError{Index: i, Field: KeyNumber, Reason: fmt.Sprintf("channel %d already configured", cfg.Number)})
			continue
		}
		if other, ok := seenID[cfg.Identifier]; ok {
			errs = append(errs, &ValidationError{Index: i, Field: KeyIdentifier, Reason: fmt.Sprintf("identifier %q already used by channel %d", cfg.Identifier, other)})
			continue
		}
		seen[cfg.Number] = true
		seenID[cfg.Identifier] = cfg.Number
		if onNote != nil {
			for _, note := range notes {
				onNote(cfg, note)
			}
		}
		configs = append(configs, cfg)
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].Number < configs[j].Number })
	return configs, errors.Join(errs...)
}

func requiredInt(raw map[string]any, key string) (int, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return 0, errors.New("missing")
	}

	var out int
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       strictIntHook,
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return 0, err
	}
	if err := dec.Decode(v); err != nil {
		return 0, fmt.Errorf("not an integer (%v)", v)
	}
	return out, nil
}

// strictIntHook refuses fractional numbers and booleans that weak decoding
// would otherwise truncate or coerce.
func strictIntHook(from, to reflect.Kind, data any) (any, error) {
	if to != reflect.Int {
		return data, nil
	}
	switch v := data.(type) {
	case bool:
		return nil, errors.New("boolean")
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return nil, errors.New("fractional")
		}
		return int(v), nil
	case float32:
		return strictIntHook(from, to, float64(v))
	case json.Number:
		return strconv.Atoi(v.String())
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	}
	return data, nil
}
