package month

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Month
	}{
		{"2025-01", New(2025, time.January)},
		{"2025-12", New(2025, time.December)},
		{" 1999-07 ", New(1999, time.July)},
	}
	for _, tt := range tests {
		got, err := Parse(tt.input)
		require.NoError(t, err, "input: %s", tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestParse_Errors(t *testing.T) {
	for _, input := range []string{"", "2025", "2025-1", "2025-13", "2025-00", "xxxx-01", "2025-01-01"} {
		_, err := Parse(input)
		assert.Error(t, err, "expected error for input: %s", input)
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "2025-01", New(2025, time.January).String())
	assert.Equal(t, "0999-10", New(999, time.October).String())
}

func TestArithmetic(t *testing.T) {
	jan := MustParse("2025-01")
	assert.Equal(t, MustParse("2024-12"), jan.Prev())
	assert.Equal(t, MustParse("2025-02"), jan.Next())
	assert.Equal(t, MustParse("2026-01"), jan.Add(12))
	assert.True(t, jan.Before(jan.Next()))
	assert.True(t, jan.After(jan.Prev()))
	assert.False(t, jan.Before(jan))
}

func TestRange(t *testing.T) {
	got := Range(MustParse("2024-11"), MustParse("2025-02"))
	require.Len(t, got, 4)
	assert.Equal(t, "2024-11", got[0].String())
	assert.Equal(t, "2025-02", got[3].String())

	assert.Nil(t, Range(MustParse("2025-02"), MustParse("2025-01")))
}

func TestContains(t *testing.T) {
	m := MustParse("2025-03")
	assert.True(t, m.Contains(time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC)))
	assert.False(t, m.Contains(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), m.Start())
}

func TestJSON(t *testing.T) {
	data, err := json.Marshal(MustParse("2025-06"))
	require.NoError(t, err)
	assert.Equal(t, `"2025-06"`, string(data))

	var m Month
	require.NoError(t, json.Unmarshal([]byte(`"2024-02"`), &m))
	assert.Equal(t, MustParse("2024-02"), m)

	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &m))
}

func TestFromIndex(t *testing.T) {
	for _, s := range []string{"2024-01", "2024-12", "1999-06"} {
		m := MustParse(s)
		assert.Equal(t, m, FromIndex(m.Index()), s)
	}
	assert.Equal(t, MustParse("2025-01").Index()-1, MustParse("2024-12").Index())
}
