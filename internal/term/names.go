package term

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Word lists for human-friendly session identifiers. Indices are derived
// from a nanosecond seed so rapid calls still vary.
var adjectives = []string{
	"quick", "brave", "clever", "rusty", "silent", "golden",
	"husky", "lucky", "fuzzy", "bright", "calm", "sly",
}

var animals = []string{
	"fox", "otter", "panda", "tiger", "beetle", "hawk",
	"lark", "walrus", "badger", "heron", "koala", "moose",
}

// generateName returns an adjective-animal identifier derived from seed.
func generateName(seed int64) string {
	if seed < 0 {
		seed = -seed
	}
	a := adjectives[seed%int64(len(adjectives))]
	b := animals[(seed>>16)%int64(len(animals))]
	return a + "-" + b
}

// uniqueName produces an identifier not currently present according to
// taken. It tries seeded adjective-animal names first, then numeric
// suffixes, and finally falls back to a UUID fragment which cannot collide
// in practice.
func uniqueName(taken func(string) bool) string {
	seed := time.Now().UnixNano()
	base := generateName(seed)
	if !taken(base) {
		return base
	}
	for attempt := 1; attempt < 8; attempt++ {
		name := fmt.Sprintf("%s-%02d", generateName(seed+int64(attempt)), attempt)
		if !taken(name) {
			return name
		}
	}
	return base + "-" + uuid.NewString()[:8]
}
