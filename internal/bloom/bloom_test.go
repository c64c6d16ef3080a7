package bloom

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizingFormulas(t *testing.T) {
	// n=1000, p=0.01 is the canonical sizing: ~9586 bits, 7 hashes.
	m := BitsFor(1000, 0.01)
	assert.InDelta(t, 9586, m, 2)
	assert.Equal(t, 7, HashesFor(m, 1000))

	// Degenerate inputs fall back to sane values instead of panicking.
	assert.Greater(t, BitsFor(0, 0.01), 0)
	assert.Greater(t, BitsFor(100, 0), 0)
	assert.GreaterOrEqual(t, HashesFor(1, 1000), 1)
}

func TestNoFalseNegatives(t *testing.T) {
	f := New(1000, 0.01)
	for i := 0; i < 1000; i++ {
		f.Add("seat-" + strconv.Itoa(i))
	}
	for i := 0; i < 1000; i++ {
		require.True(t, f.MayContain("seat-"+strconv.Itoa(i)), "added id %d must stay present", i)
	}
}

func TestBoundedFalsePositives(t *testing.T) {
	f := New(1000, 0.01)
	for i := 0; i < 1000; i++ {
		f.Add("seat-" + strconv.Itoa(i))
	}
	falsePositives := 0
	probes := 10000
	for i := 0; i < probes; i++ {
		if f.MayContain("never-added-" + strconv.Itoa(i)) {
			falsePositives++
		}
	}
	// Target rate is 1%; allow slack for statistical variation.
	rate := float64(falsePositives) / float64(probes)
	assert.LessOrEqual(t, rate, 0.02, "false positive rate %.4f exceeds bound", rate)
}

func TestEmptyFilterRejectsEverything(t *testing.T) {
	f := New(100, 0.01)
	assert.False(t, f.MayContain("anything"))
}

func TestPermissiveFilterAllowsEverything(t *testing.T) {
	f := NewPermissive()
	assert.True(t, f.Permissive())
	assert.True(t, f.MayContain("anything"))
	// Add is a no-op but must not panic on the nil bit vector.
	f.Add("x")
	assert.True(t, f.MayContain("x"))
}
