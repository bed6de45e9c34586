package lottery

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
	"time"

	"github.com/MarioJames/super-lotto/internal/models"
)

// RandomSource yields uniform integers in [0, n).
type RandomSource interface {
	Intn(n int) int
}

type lockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}

// NewRandomSource returns a goroutine-safe source seeded from the OS entropy
// pool, falling back to the clock. It is not meant to be unpredictable to an
// attacker, only uncorrelated between draws.
func NewRandomSource() RandomSource {
	var b [8]byte
	seed := time.Now().UnixNano()
	if _, err := crand.Read(b[:]); err == nil {
		seed ^= int64(binary.LittleEndian.Uint64(b[:]))
	}
	return NewSeededSource(seed)
}

// NewSeededSource returns a deterministic goroutine-safe source.
func NewSeededSource(seed int64) RandomSource {
	return &lockedSource{rnd: rand.New(rand.NewSource(seed))}
}

// Selector picks winners uniformly without replacement.
type Selector struct {
	src RandomSource
}

// NewSelector creates a Selector. A nil src uses NewRandomSource.
func NewSelector(src RandomSource) *Selector {
	if src == nil {
		src = NewRandomSource()
	}
	return &Selector{src: src}
}

// Select shuffles a copy of eligible with Fisher-Yates and returns the first
// count entries. The caller clamps count; asking for more than len(eligible)
// (or a negative count) is an InvalidCountError. eligible is not modified.
func (s *Selector) Select(eligible []models.Participant, count int) ([]models.Participant, error) {
	if count < 0 || count > len(eligible) {
		return nil, &InvalidCountError{Count: count, Available: len(eligible)}
	}
	pool := make([]models.Participant, len(eligible))
	copy(pool, eligible)
	for i := len(pool) - 1; i > 0; i-- {
		j := s.src.Intn(i + 1)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:count], nil
}
