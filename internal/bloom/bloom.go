// Package bloom implements the probabilistic admission filter that sits in
// front of the relational store.  The filter answers "definitely absent" with
// certainty and "possibly present" with a configurable false-positive rate,
// which lets the reservation path reject lookups for seat identifiers that
// cannot exist without spending a database round trip.
package bloom

import (
	"math"
)

// FNV-1a constants.  The second seed matches the one used when the seat
// filter was first deployed, so identifiers hash identically across versions.
const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
	altSeed64   = 5234235235235235
)

// BitsFor returns the size of the bit vector (m) for an expected item count
// and a target false-positive rate: m = ceil(-n*ln(p) / (ln 2)^2).
func BitsFor(expectedItems int, falsePositiveRate float64) int {
	if expectedItems < 1 {
		expectedItems = 1
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}
	ln2 := math.Ln2
	m := math.Ceil(-float64(expectedItems) * math.Log(falsePositiveRate) / (ln2 * ln2))
	return int(m)
}

// HashesFor returns the hash-function count (k) for a bit vector of m bits
// holding n expected items: k = round((m/n)*ln 2).  The result is clamped to
// at least one hash.
func HashesFor(bits, expectedItems int) int {
	if expectedItems < 1 {
		expectedItems = 1
	}
	k := int(math.Round(float64(bits) / float64(expectedItems) * math.Ln2))
	if k < 1 {
		k = 1
	}
	return k
}

// Filter is a fixed-size bloom filter using double hashing.  It is populated
// once at startup and treated as read-only afterwards, so lookups need no
// synchronization.  Deletion is not supported.
type Filter struct {
	bits       []uint64
	m          uint64
	k          int
	permissive bool
}

// New sizes a filter for the expected item count and false-positive rate.
func New(expectedItems int, falsePositiveRate float64) *Filter {
	m := BitsFor(expectedItems, falsePositiveRate)
	return &Filter{
		bits: make([]uint64, (m+63)/64),
		m:    uint64(m),
		k:    HashesFor(m, expectedItems),
	}
}

// NewPermissive returns a filter whose MayContain always reports true.  It is
// the degraded mode used when startup population fails: the gate then forwards
// every request to the authoritative store instead of rejecting all traffic,
// trading precision for availability.
func NewPermissive() *Filter {
	return &Filter{permissive: true}
}

// Permissive reports whether the filter is running in the degraded
// allow-all mode.
func (f *Filter) Permissive() bool { return f.permissive }

// Bits returns the size of the bit vector in bits.
func (f *Filter) Bits() int { return int(f.m) }

// Hashes returns the number of hash probes per operation.
func (f *Filter) Hashes() int { return f.k }

// Add marks an identifier as present.  Add must not race with MayContain;
// population happens before the filter is shared.
func (f *Filter) Add(id string) {
	if f.permissive {
		return
	}
	h1 := fnv1a(id, fnvOffset64)
	h2 := fnv1a(id, altSeed64)
	for i := 0; i < f.k; i++ {
		pos := (h1 + uint64(i)*h2) % f.m
		f.bits[pos/64] |= 1 << (pos % 64)
	}
}

// MayContain returns false only when the identifier was certainly never
// added.  A true result means "possibly present" and must be confirmed
// downstream.
func (f *Filter) MayContain(id string) bool {
	if f.permissive {
		return true
	}
	h1 := fnv1a(id, fnvOffset64)
	h2 := fnv1a(id, altSeed64)
	for i := 0; i < f.k; i++ {
		pos := (h1 + uint64(i)*h2) % f.m
		if f.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}

func fnv1a(s string, seed uint64) uint64 {
	h := seed
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime64
	}
	return h
}
