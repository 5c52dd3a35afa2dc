package password

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"
)

const (
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltBytes          = 8
	minKeyLength   uint32 = 16

	// VariantArgon2i is the data-independent variant and the default.
	VariantArgon2i = "argon2i"
	// VariantArgon2id mixes data-dependent and data-independent passes.
	VariantArgon2id = "argon2id"
)

// Config holds the process-wide hashing parameters. Salt and Key are shared
// by every digest the hasher produces, which makes digests deterministic.
type Config struct {
	Salt      string
	Key       string
	Passes    uint32
	Lanes     uint8
	MemoryKiB uint32
	Length    uint32
	Variant   string

	// MaxConcurrent bounds HashContext callers running the KDF at once.
	// Zero means GOMAXPROCS.
	MaxConcurrent int
}

// DefaultConfig returns the cost parameters without Salt or Key.
func DefaultConfig() Config {
	return Config{
		Passes:    4,
		Lanes:     2,
		MemoryKiB: 4096,
		Length:    64,
		Variant:   VariantArgon2i,
	}
}

// Argon2 derives fixed-length hex digests and compares them in constant time.
// It is immutable after construction and safe for concurrent use.
type Argon2 struct {
	config Config
	salt   []byte
	key    []byte
	gate   *semaphore.Weighted
}

// NewArgon2 validates cfg and returns a hasher. A validation error means the
// KDF cannot be constructed and should stop the process.
func NewArgon2(cfg Config) (*Argon2, error) {
	if cfg.Variant == "" {
		cfg.Variant = VariantArgon2i
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	limit := cfg.MaxConcurrent
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	return &Argon2{
		config: cfg,
		salt:   []byte(cfg.Salt),
		key:    []byte(cfg.Key),
		gate:   semaphore.NewWeighted(int64(limit)),
	}, nil
}

// DigestLen returns the length of an encoded digest in characters.
func (a *Argon2) DigestLen() int {
	return hex.EncodedLen(int(a.config.Length))
}

// Hash returns the lowercase hex digest of plaintext.
func (a *Argon2) Hash(plaintext string) string {
	return hex.EncodeToString(a.derive(plaintext))
}

// HashContext is Hash behind the concurrency gate. It returns ctx.Err() if
// the context ends before a slot frees up.
func (a *Argon2) HashContext(ctx context.Context, plaintext string) (string, error) {
	if err := a.gate.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer a.gate.Release(1)

	return a.Hash(plaintext), nil
}

// CheckHash reports whether candidate and reference are the same digest.
//
// Exactly DigestLen positions are scanned whatever the inputs look like.
// Positions missing from a short input compare as zero bytes, and inputs
// of any other length never match.
func (a *Argon2) CheckHash(candidate, reference string) bool {
	ok, _ := compareDigests([]byte(candidate), []byte(reference), a.DigestLen())
	return ok
}

// Verify hashes plaintext and checks it against digest.
func (a *Argon2) Verify(plaintext, digest string) bool {
	return a.CheckHash(a.Hash(plaintext), digest)
}

func (a *Argon2) derive(plaintext string) []byte {
	// x/crypto/argon2 has no secret input, so the key is bound by
	// pre-keying the password.
	mac := hmac.New(sha512.New, a.key)
	mac.Write([]byte(plaintext))
	keyed := mac.Sum(nil)

	if a.config.Variant == VariantArgon2id {
		return argon2.IDKey(keyed, a.salt, a.config.Passes, a.config.MemoryKiB, a.config.Lanes, a.config.Length)
	}
	return argon2.Key(keyed, a.salt, a.config.Passes, a.config.MemoryKiB, a.config.Lanes, a.config.Length)
}

// compareDigests scans n positions of a and b and returns whether all
// matched plus the number of positions scanned.
func compareDigests(a, b []byte, n int) (bool, int) {
	diff := subtle.ConstantTimeEq(int32(len(a)), int32(n)) &
		subtle.ConstantTimeEq(int32(len(b)), int32(n))

	scanned := 0
	acc := 0
	for i := 0; i < n; i++ {
		acc |= 1 - subtle.ConstantTimeByteEq(byteAt(a, i), byteAt(b, i))
		scanned++
	}

	return diff == 1 && acc == 0, scanned
}

func byteAt(buf []byte, i int) byte {
	if i < len(buf) {
		return buf[i]
	}
	return 0
}

func validateConfig(cfg Config) error {
	if cfg.Salt == "" {
		return errors.New("password salt is required")
	}
	if len(cfg.Salt) < minSaltBytes {
		return fmt.Errorf("password salt must be >= %d bytes", minSaltBytes)
	}
	if cfg.Key == "" {
		return errors.New("password key is required")
	}
	if cfg.Passes < minTimeCost {
		return errors.New("password passes must be >= 1")
	}
	if cfg.Lanes < minParallelism {
		return errors.New("password lanes must be >= 1")
	}
	if cfg.MemoryKiB < 8*uint32(cfg.Lanes) {
		return errors.New("password memory must be >= 8 KiB per lane")
	}
	if cfg.Length < minKeyLength {
		return errors.New("password length must be >= 16")
	}
	switch cfg.Variant {
	case VariantArgon2i, VariantArgon2id:
	default:
		return fmt.Errorf("unsupported password variant %q", cfg.Variant)
	}

	return nil
}
