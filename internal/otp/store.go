// Package otp issues and verifies short-lived password reset codes.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog/log"
)

// CodeLength is the number of decimal digits in a reset code.
const CodeLength = 6

// Store keeps one pending code per email address. Codes expire after the
// configured TTL and are consumed by the first Verify call, right or wrong.
type Store struct {
	codes *ttlcache.Cache[string, string]
}

// NewStore creates a store whose codes live for ttl.
func NewStore(ttl time.Duration) *Store {
	codes := ttlcache.New(
		ttlcache.WithTTL[string, string](ttl),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	codes.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, string]) {
		if reason == ttlcache.EvictionReasonExpired {
			log.Debug().Str("email", item.Key()).Msg("Password reset code expired")
		}
	})
	return &Store{codes: codes}
}

// Start runs the expiry loop until Stop is called.
func (s *Store) Start() {
	go s.codes.Start()
}

// Stop ends the expiry loop.
func (s *Store) Stop() {
	s.codes.Stop()
}

// Issue generates a new code for email, replacing any pending one.
func (s *Store) Issue(email string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}
	s.codes.Set(normalize(email), code, ttlcache.DefaultTTL)
	return code, nil
}

// Verify consumes the pending code for email and reports whether it matches.
func (s *Store) Verify(email, code string) bool {
	item, ok := s.codes.GetAndDelete(normalize(email))
	if !ok || item == nil || item.IsExpired() {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(item.Value()), []byte(code)) == 1
}

// Pending reports how many codes are waiting to be used.
func (s *Store) Pending() int {
	return s.codes.Len()
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}
