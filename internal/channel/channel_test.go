package channel

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(number, lower, upper, n any) map[string]any {
	rec := map[string]any{}
	if number != nil {
		rec[KeyNumber] = number
	}
	if lower != nil {
		rec[KeyLower] = lower
	}
	if upper != nil {
		rec[KeyUpper] = upper
	}
	if n != nil {
		rec[KeyRankN] = n
	}
	return rec
}

func TestFromRecordValid(t *testing.T) {
	cfg, notes, err := FromRecord(record(17, 5, 15, 2), ModeLive)
	require.NoError(t, err)
	assert.Empty(t, notes)
	assert.Equal(t, Config{Number: 17, Identifier: "Pin_17", Lower: 5, Upper: 15, RankN: 2}, cfg)
}

func TestFromRecordCoercesJSONValues(t *testing.T) {
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"gpio_pin":"22","lower_limit_ct_kwh":3.0,"upper_limit_ct_kwh":"9","cheapest_hours_n":4,"identifier":"  boiler  "}`), &raw))

	cfg, _, err := FromRecord(raw, ModeLive)
	require.NoError(t, err)
	assert.Equal(t, Config{Number: 22, Identifier: "boiler", Lower: 3, Upper: 9, RankN: 4}, cfg)
}

func TestFromRecordRejections(t *testing.T) {
	tests := []struct {
		name  string
		rec   map[string]any
		field string
	}{
		{name: "missing pin", rec: record(nil, 1, 2, 0), field: KeyNumber},
		{name: "zero pin", rec: record(0, 1, 2, 0), field: KeyNumber},
		{name: "negative pin", rec: record(-4, 1, 2, 0), field: KeyNumber},
		{name: "missing upper", rec: record(4, 1, nil, 0), field: KeyUpper},
		{name: "fractional upper", rec: record(4, 1, 2.5, 0), field: KeyUpper},
		{name: "text lower", rec: record(4, "cheap", 2, 0), field: KeyLower},
		{name: "negative lower", rec: record(4, -1, 2, 0), field: KeyLower},
		{name: "boolean lower", rec: record(4, true, 2, 0), field: KeyLower},
		{name: "inverted range", rec: record(4, 10, 5, 0), field: KeyLower},
		{name: "pin checked before limits", rec: record("x", 10, 5, 0), field: KeyNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := FromRecord(tt.rec, ModeLive)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestFromRecordRankClamp(t *testing.T) {
	tests := []struct {
		name string
		n    any
		mode Mode
		want int
		note bool
	}{
		{name: "live max", n: 12, mode: ModeLive, want: 12},
		{name: "live over", n: 13, mode: ModeLive, want: 0, note: true},
		{name: "simulation allows 24", n: 24, mode: ModeSimulation, want: 24},
		{name: "simulation over", n: 25, mode: ModeSimulation, want: 0, note: true},
		{name: "negative", n: -1, mode: ModeSimulation, want: 0, note: true},
		{name: "not a number", n: "many", mode: ModeLive, want: 0, note: true},
		{name: "missing", n: nil, mode: ModeLive, want: 0, note: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, notes, err := FromRecord(record(3, 1, 2, tt.n), tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.RankN)
			assert.Equal(t, tt.note, len(notes) > 0)
		})
	}
}

func TestFromRecordEmptyIdentifier(t *testing.T) {
	rec := record(9, 1, 2, 0)
	rec[KeyIdentifier] = ""

	cfg, _, err := FromRecord(rec, ModeLive)
	require.NoError(t, err)
	assert.Equal(t, "Pin_9", cfg.Identifier)
}

func TestValidateAllSkipsInvalidAndDuplicates(t *testing.T) {
	records := []map[string]any{
		record(27, 2, 8, 3),
		record(17, 5, 15, 2),
		record(17, 1, 3, 0),
		record(4, 9, 1, 0),
		nil,
	}

	var noted []int
	configs, err := ValidateAll(records, ModeLive, func(cfg Config, note string) {
		noted = append(noted, cfg.Number)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	require.Len(t, configs, 2)
	assert.Equal(t, 17, configs[0].Number)
	assert.Equal(t, 27, configs[1].Number)
	assert.Empty(t, noted)
}

func TestValidateAllRejectsDuplicateIdentifiers(t *testing.T) {
	records := []map[string]any{
		{KeyNumber: 2, KeyLower: 1, KeyUpper: 5},
		{KeyNumber: 3, KeyIdentifier: "Pin_2", KeyLower: 1, KeyUpper: 5},
		{KeyNumber: 4, KeyIdentifier: "boiler", KeyLower: 1, KeyUpper: 5},
	}

	configs, err := ValidateAll(records, ModeLive, nil)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 1, verr.Index)
	assert.Equal(t, KeyIdentifier, verr.Field)
	assert.Contains(t, verr.Reason, "Pin_2")

	require.Len(t, configs, 2)
	assert.Equal(t, "Pin_2", configs[0].Identifier)
	assert.Equal(t, 2, configs[0].Number)
	assert.Equal(t, "boiler", configs[1].Identifier)
}

func TestValidateAllAllValid(t *testing.T) {
	configs, err := ValidateAll([]map[string]any{record(1, 0, 0, 0)}, ModeSimulation, nil)
	require.NoError(t, err)
	assert.Len(t, configs, 1)
}
