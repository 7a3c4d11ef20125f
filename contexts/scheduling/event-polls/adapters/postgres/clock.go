package postgresadapter

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// UUIDGenerator issues UUIDv4 identifiers for polls, slots, votes and events.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// RandomSource picks deadline tie-breakers.
type RandomSource struct{}

func (RandomSource) Intn(n int) int {
	if n <= 1 {
		return 0
	}
	return rand.IntN(n)
}
