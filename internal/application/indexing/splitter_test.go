package indexing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitByRunes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		max     int
		overlap int
		want    []string
	}{
		{
			name:  "empty input",
			input: "   ",
			max:   10,
			want:  nil,
		},
		{
			name:  "short input stays whole",
			input: "hello",
			max:   10,
			want:  []string{"hello"},
		},
		{
			name:  "exact boundary stays whole",
			input: "abcdefghij",
			max:   10,
			want:  []string{"abcdefghij"},
		},
		{
			name:    "overlap repeats trailing runes",
			input:   "abcdefghijklmnopqrstuvwxyz",
			max:     10,
			overlap: 2,
			want:    []string{"abcdefghij", "ijklmnopqr", "qrstuvwxyz"},
		},
		{
			name:  "cjk counts runes not bytes",
			input: "一二三四五六七八九十",
			max:   4,
			want:  []string{"一二三四", "五六七八", "九十"},
		},
		{
			name:  "non-positive max keeps input whole",
			input: "abcdef",
			max:   0,
			want:  []string{"abcdef"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitByRunes(tt.input, tt.max, tt.overlap)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitByRunesOverlapAtLeastStepOne(t *testing.T) {
	// overlap >= max 时退化为无重叠切分，不能死循环
	got := splitByRunes(strings.Repeat("a", 25), 10, 10)
	require.Len(t, got, 3)
	assert.Equal(t, 10, len([]rune(got[0])))
	assert.Equal(t, 5, len([]rune(got[2])))
}
