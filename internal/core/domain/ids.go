package domain

import (
	"math"
	"time"
)

// JitterRange is the exclusive upper bound of the random component added
// to timestamp-derived ids.
const JitterRange = 1000

// Rand is the random source used for id jitter. *math/rand/v2.Rand
// satisfies it.
type Rand interface {
	IntN(n int) int
}

// NewSerialID returns a positive save point id from the low 32 bits of the
// clock in 100ns ticks plus jitter in [0, JitterRange).
func NewSerialID(now time.Time, rng Rand) int32 {
	base := TimeToTicks(now) & 0x7FFFFFFF
	id := int32((base + int64(rng.IntN(JitterRange))) % math.MaxInt32)
	if id <= 0 {
		id = 1 + int32(rng.IntN(JitterRange))
	}
	return id
}

// NewSlotID returns a positive slot id from the clock modulo MaxInt32
// plus jitter in [0, JitterRange).
func NewSlotID(now time.Time, rng Rand) int32 {
	base := TimeToTicks(now) % math.MaxInt32
	id := int32((base + int64(rng.IntN(JitterRange))) % math.MaxInt32)
	if id <= 0 {
		id = 1 + int32(rng.IntN(JitterRange))
	}
	return id
}
