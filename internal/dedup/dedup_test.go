package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindow_EvictionExample(t *testing.T) {
	w := New(2)
	w.Add("e1")
	w.Add("e2")
	w.Add("e3")

	assert.Equal(t, 2, w.Len())
	assert.False(t, w.Contains("e1"))
	assert.True(t, w.Contains("e2"))
	assert.True(t, w.Contains("e3"))
}

func TestWindow_NeverExceedsMaxSize(t *testing.T) {
	w := New(3)
	for i := 0; i < 100; i++ {
		w.Add(string(rune('a' + i%26)))
		assert.LessOrEqual(t, w.Len(), 3)
	}
}

func TestDeduplicate_FiltersSeenAndInsertsSurvivors(t *testing.T) {
	w := New(10)
	w.Add("x1")

	type item struct{ id string }
	batch := []item{{"x1"}, {"x2"}, {"x3"}}

	survivors, filtered := Deduplicate(batch, w, func(i item) string { return i.id })

	assert.Equal(t, 1, filtered)
	assert.Len(t, survivors, 2)
	assert.True(t, w.Contains("x2"))
	assert.True(t, w.Contains("x3"))
}

func TestDeduplicate_NoDuplicatesEverEmittedAcrossCalls(t *testing.T) {
	w := New(5)
	type item struct{ id string }

	first, _ := Deduplicate([]item{{"a"}, {"b"}}, w, func(i item) string { return i.id })
	second, filtered := Deduplicate([]item{{"a"}, {"c"}}, w, func(i item) string { return i.id })

	assert.Len(t, first, 2)
	assert.Len(t, second, 1)
	assert.Equal(t, 1, filtered)
	assert.Equal(t, "c", second[0].id)
}
