package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil slice", nil, nil},
		{"empty slice", []string{}, []string{}},
		{"trims whitespace", []string{"  peanuts  ", "dairy  "}, []string{"peanuts", "dairy"}},
		{"removes duplicates preserving order", []string{"a", "b", "a", "c"}, []string{"a", "b", "c"}},
		{"removes empty strings", []string{"a", "", "  ", "b"}, []string{"a", "b"}},
		{"preserves case", []string{"Foo", "foo"}, []string{"Foo", "foo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	assert.Equal(t, []string{"foo", "bar"}, DedupeAndTrimLower([]string{"  FOO ", "bar", "Foo", "BAR"}))
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList(""))
	assert.Nil(t, SplitList("   "))
	assert.Equal(t, []string{"localhost:9092", "broker:9092"}, SplitList("localhost:9092, broker:9092,,localhost:9092"))
}
