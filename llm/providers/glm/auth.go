package glm

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenRefreshMargin 过期前多久重新签发
const tokenRefreshMargin = 30 * time.Second

// ErrMalformedAPIKey is returned in jwt auth mode when the key is not "<id>.<secret>".
var ErrMalformedAPIKey = errors.New("glm api key must be in the form <id>.<secret>")

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// tokenSigner 将 "<id>.<secret>" 形式的 key 签发为 Zhipu 要求的 HS256 JWT，
// 按 key 缓存直到临近过期。
type tokenSigner struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	cache map[string]cachedToken
}

func newTokenSigner(ttl time.Duration) *tokenSigner {
	return &tokenSigner{
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[string]cachedToken),
	}
}

// Token returns a cached or freshly signed JWT for apiKey.
func (s *tokenSigner) Token(apiKey string) (string, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.cache[apiKey]; ok && now.Add(tokenRefreshMargin).Before(c.expiresAt) {
		return c.token, nil
	}

	token, expiresAt, err := signToken(apiKey, now, s.ttl)
	if err != nil {
		return "", err
	}
	s.cache[apiKey] = cachedToken{token: token, expiresAt: expiresAt}
	return token, nil
}

// signToken 签发 JWT，exp 与 timestamp 均为毫秒
func signToken(apiKey string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	id, secret, ok := strings.Cut(strings.TrimSpace(apiKey), ".")
	if !ok || id == "" || secret == "" || strings.Contains(secret, ".") {
		return "", time.Time{}, ErrMalformedAPIKey
	}

	expiresAt := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"api_key":   id,
		"exp":       expiresAt.UnixMilli(),
		"timestamp": now.UnixMilli(),
	})
	token.Header["sign_type"] = "SIGN"

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign glm token: %w", err)
	}
	return signed, expiresAt, nil
}
