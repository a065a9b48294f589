package security

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"

	"secureauth/api/internal/config"
)

type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

// maxVerifyMemoryKiB bounds the memory parameter accepted from a stored
// hash. A hash claiming more was not produced by this service, and
// deriving with it would attempt the allocation before argon2 could
// object.
const maxVerifyMemoryKiB = 1 << 21 // 2 GiB

var defaultParams = Argon2Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 2,
	KeyLen:  32,
	SaltLen: 16,
}

// Hasher computes and verifies argon2id password hashes. Hashing is
// deliberately expensive, so concurrent computations are bounded by a
// weighted semaphore: a burst of registrations queues here instead of
// saturating every CPU the accept loop needs.
type Hasher struct {
	params Argon2Params
	sem    *semaphore.Weighted
}

func NewHasher(cfg config.HasherConfig) *Hasher {
	params := defaultParams
	if cfg.Time > 0 {
		params.Time = cfg.Time
	}
	if cfg.MemoryKiB > 0 {
		params.Memory = cfg.MemoryKiB
	}
	if cfg.Threads > 0 {
		params.Threads = cfg.Threads
	}

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}

	return &Hasher{
		params: params,
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Hash produces a salted argon2id hash of password. The salt is freshly
// random per call, so hashing the same password twice yields different
// outputs.
func (h *Hasher) Hash(ctx context.Context, password string) ([]byte, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire hash slot: %w", err)
	}
	defer h.sem.Release(1)

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	encoded := base64.StdEncoding.EncodeToString(hash)
	encodedSalt := base64.StdEncoding.EncodeToString(salt)

	result := fmt.Sprintf("$argon2id$v=19$t=%d,m=%d,p=%d$%s$%s",
		h.params.Time, h.params.Memory, h.params.Threads, encodedSalt, encoded)

	return []byte(result), nil
}

// Verify reports whether password matches encodedHash. The comparison is
// constant-time against the embedded digest. A malformed hash verifies as
// false rather than failing.
func (h *Hasher) Verify(ctx context.Context, password string, encodedHash []byte) bool {
	parts := strings.Split(string(encodedHash), "$")
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return false
	}

	var (
		time    uint32
		memory  uint32
		threads uint8
	)
	if _, err := fmt.Sscanf(parts[3], "t=%d,m=%d,p=%d", &time, &memory, &threads); err != nil {
		return false
	}
	// argon2.IDKey panics on zero rounds or zero parallelism, and an
	// oversized memory parameter would be allocated before it is checked.
	if time < 1 || threads < 1 || memory < 8*uint32(threads) || memory > maxVerifyMemoryKiB {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return false
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	computed := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(hash)))
	h.sem.Release(1)

	return subtle.ConstantTimeCompare(hash, computed) == 1
}
