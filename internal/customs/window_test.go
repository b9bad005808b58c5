package customs

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindow_TrimStopsAtFirstExpiredEntry(t *testing.T) {
	w := Window{1, 2, 100, 101}

	w.Trim(105, 10, 5)

	assert.Equal(t, Window{100, 101}, w)
}

func TestWindow_TrimKeepsAtMostLimitPlusOne(t *testing.T) {
	w := Window{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}

	w.Trim(20, 1000, 2)

	assert.Equal(t, Window{17, 18, 19}, w)
}

func TestWindow_TrimEmptyIsNoop(t *testing.T) {
	var w Window
	w.Trim(100, 10, 3)
	assert.Empty(t, w)
}

func TestWindow_TrimBoundIsExclusive(t *testing.T) {
	// An entry exactly windowMs old is outside the window.
	w := Window{90, 95}

	w.Trim(100, 10, 5)

	assert.Equal(t, Window{95}, w)
}

func TestWindow_TrimProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 500; iter++ {
		n := rng.Intn(40)
		w := make(Window, n)
		for i := range w {
			w[i] = int64(rng.Intn(1000))
		}
		sort.Slice(w, func(i, j int) bool { return w[i] < w[j] })
		original := append(Window(nil), w...)

		now := int64(1000)
		windowMs := int64(rng.Intn(800) + 1)
		limit := rng.Intn(10)

		w.Trim(now, windowMs, limit)

		assert.LessOrEqual(t, len(w), limit+1)
		// Retained entries are always the newest ones of the original log.
		assert.Equal(t, original[len(original)-len(w):], w)
		for i, ts := range w {
			inWindow := ts > now-windowMs
			newest := len(w)-i <= limit+1
			assert.True(t, inWindow || newest)
		}
	}
}

func TestWindow_Over(t *testing.T) {
	w := Window{1, 2, 3}

	assert.False(t, w.Over(3), "exactly the limit is not over")
	assert.True(t, w.Over(2))
}

func TestWindow_FilterAndCount(t *testing.T) {
	w := Window{10, 50, 90, 95}

	assert.Equal(t, 2, w.CountSince(100, 20))
	assert.Len(t, w, 4)

	w.Filter(100, 20)
	assert.Equal(t, Window{90, 95}, w)
}

func TestWindow_AddAndLast(t *testing.T) {
	var w Window
	_, ok := w.Last()
	assert.False(t, ok)

	w.Add(5)
	w.Add(5)

	last, ok := w.Last()
	assert.True(t, ok)
	assert.Equal(t, int64(5), last)
	assert.Len(t, w, 2, "duplicates are kept")

	w.Reset()
	assert.Empty(t, w)
}
