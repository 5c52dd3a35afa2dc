package rate

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const defaultPrefix = "cf"

// Identifiers are hashed so raw emails never appear in Redis key names.
func (l *Limiter) loginUserKey(identifier string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(identifier))))
	return l.config.Prefix + ":al:" + hex.EncodeToString(sum[:16])
}

func (l *Limiter) loginIPKey(ip string) string {
	return l.config.Prefix + ":ali:" + ip
}
