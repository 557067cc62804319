package canon

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"negative int64", int64(-100), "-100"},
		{"whole float", 5.0, "5"},
		{"fraction", 0.8, "0.8"},
		{"negative zero", math.Copysign(0, -1), "0"},
		{"large float", 1e21, "1e+21"},
		{"json number int", json.Number("17"), "17"},
		{"json number float", json.Number("2.50"), "2.5"},
		{"null", nil, "null"},
		{"bool", true, "true"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"string slice", []string{"b", "a"}, `["b","a"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
		})
	}
}

func TestMarshalSortedKeys(t *testing.T) {
	obj := map[string]any{
		"zebra": 1,
		"alpha": map[string]any{"b": 1, "a": 2},
		"beta":  3,
	}

	out, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":{"a":2,"b":1},"beta":3,"zebra":1}`, string(out))
}

func TestMarshalUTF16Ordering(t *testing.T) {
	// U+E000 sorts before U+10000 in UTF-8 but after it in UTF-16.
	obj := map[string]any{
		"\uE000":     1,
		"\U00010000": 2,
	}

	out, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(out))
}

func TestMarshalNoHTMLEscape(t *testing.T) {
	out, err := Marshal("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(out))
}

func TestMarshalLineSeparators(t *testing.T) {
	out, err := Marshal("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(out))

	// A literal backslash followed by u2028 text stays escaped.
	out, err = Marshal(`x\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"x\\u2028"`, string(out))
}

func TestMarshalNFC(t *testing.T) {
	// "e" + combining acute normalizes to U+00E9.
	out, err := Marshal("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(out))
}

func TestMarshalRejectsNonFinite(t *testing.T) {
	_, err := Marshal(math.NaN())
	require.Error(t, err)

	_, err = Marshal(map[string]any{"x": math.Inf(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"x"`)
}

func TestMarshalStructUsesJSONTags(t *testing.T) {
	type sample struct {
		Zed   float64 `json:"zed"`
		Alpha string  `json:"alpha"`
		Skip  string  `json:"-"`
	}

	out, err := Marshal(sample{Zed: 1.5, Alpha: "x", Skip: "hidden"})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":"x","zed":1.5}`, string(out))
}

func TestMarshalStableAcrossJSONRoundTrip(t *testing.T) {
	original := map[string]any{
		"amount": 20.0,
		"weight": 0.3,
		"count":  int64(7),
		"tags":   []any{"a", 1},
	}
	first, err := Marshal(original)
	require.NoError(t, err)

	var decoded any
	require.NoError(t, json.Unmarshal(first, &decoded))
	second, err := Marshal(decoded)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}
