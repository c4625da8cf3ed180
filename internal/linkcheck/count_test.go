package linkcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		items []string
		want  map[string]int
		order []string
	}{
		{
			name:  "duplicates",
			items: []string{"#a", "#a", "#b"},
			want:  map[string]int{"#a": 2, "#b": 1},
			order: []string{"#a", "#b"},
		},
		{
			name:  "first seen order",
			items: []string{"z", "y", "z", "x", "y", "z"},
			want:  map[string]int{"z": 3, "y": 2, "x": 1},
			order: []string{"z", "y", "x"},
		},
		{
			name:  "empty",
			items: nil,
			want:  map[string]int{},
			order: nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			occ := Count(tc.items)
			assert.Equal(t, tc.want, occ.Map())
			assert.Equal(t, tc.order, occ.Keys())
			assert.Equal(t, len(tc.want), occ.Len())

			total := 0
			for _, n := range occ.All() {
				total += n
			}
			assert.Equal(t, len(tc.items), total)
		})
	}
}

func TestOccurrencesCountUnknownIsZero(t *testing.T) {
	t.Parallel()

	occ := Count([]int{1, 1, 2})
	assert.Equal(t, 2, occ.Count(1))
	assert.Zero(t, occ.Count(3))
}

func TestOccurrencesAllStopsEarly(t *testing.T) {
	t.Parallel()

	occ := Count([]string{"a", "b", "c"})
	var seen []string
	for item := range occ.All() {
		seen = append(seen, item)
		if item == "b" {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestOccurrencesKeysIsACopy(t *testing.T) {
	t.Parallel()

	occ := Count([]string{"a", "b"})
	keys := occ.Keys()
	keys[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, occ.Keys())
}
