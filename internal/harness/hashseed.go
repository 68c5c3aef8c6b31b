package harness

import (
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"sync"
)

// HashSeedVar is the launch-time environment variable fixing the hash seed.
// It must be set before the process starts; the harness only reads it, it
// never sets it, because a hash seed cannot take effect once the process is
// already running.
const HashSeedVar = "REPRO_HASH_SEED"

var (
	// ErrHashSeedUnset is returned when REPRO_HASH_SEED is absent.
	ErrHashSeedUnset = errors.New("hash seed is not set")
	// ErrHashSeedMismatch is returned when REPRO_HASH_SEED differs from
	// the configured value.
	ErrHashSeedMismatch = errors.New("hash seed does not match configuration")
)

var (
	hashSeedOnce  sync.Once
	hashSeedValue string
	hashSeedSet   bool
)

// launchHashSeed reads REPRO_HASH_SEED once per process. Later environment
// changes are invisible, matching the launch-only contract.
func launchHashSeed() (string, bool) {
	hashSeedOnce.Do(func() {
		hashSeedValue, hashSeedSet = os.LookupEnv(HashSeedVar)
	})
	return hashSeedValue, hashSeedSet
}

// resetHashSeedForTest clears the cached launch value so tests can exercise
// different environments within one process.
func resetHashSeedForTest() {
	hashSeedOnce = sync.Once{}
	hashSeedValue = ""
	hashSeedSet = false
}

// VerifyHashSeed checks that the launch environment carries the agreed hash
// seed. An absent or different value is a configuration error that should
// abort startup.
func VerifyHashSeed(want string) error {
	got, ok := launchHashSeed()
	if !ok || got == "" {
		return fmt.Errorf("%w: launch with %s=%s", ErrHashSeedUnset, HashSeedVar, want)
	}
	if got != want {
		return fmt.Errorf("%w: %s=%s, configuration expects %s", ErrHashSeedMismatch, HashSeedVar, got, want)
	}
	return nil
}

// StableHash is a keyed FNV-1a hash. The key is the launch hash seed, so
// digests are stable across runs launched with the same seed.
type StableHash struct {
	key string
}

// NewStableHash creates a hash keyed with the given seed value.
func NewStableHash(key string) StableHash {
	return StableHash{key: key}
}

// Sum64 hashes data under the key.
func (s StableHash) Sum64(data []byte) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s.key)) //nolint:errcheck
	h.Write([]byte{0})     //nolint:errcheck
	h.Write(data)          //nolint:errcheck
	return h.Sum64()
}

// SumString hashes a string under the key.
func (s StableHash) SumString(v string) uint64 {
	return s.Sum64([]byte(v))
}
