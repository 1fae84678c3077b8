package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"kiosk-service/internal/logger"
	"kiosk-service/internal/models"
)

var (
	// ErrInvalidPin is deliberately generic: the caller never learns which
	// part of the credential was wrong.
	ErrInvalidPin      = errors.New("PIN inválido")
	ErrUnauthorized    = errors.New("não autorizado")
	ErrTooManyFailures = errors.New("demasiadas tentativas, tenta mais tarde")
)

// Gate validates the admin PIN and tracks live sessions. Sessions live in
// memory only; the token handed to the client is a signed JWT whose jti
// keys the server-side session map, so logout revokes instantly regardless
// of the token's remaining TTL.
type Gate struct {
	pinHash [32]byte
	secret  []byte
	ttl     time.Duration
	limiter AttemptLimiter
	logger  *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*models.Session

	now func() time.Time
}

func NewGate(pin, secret string, ttl time.Duration, limiter AttemptLimiter, log *logger.Logger) *Gate {
	return &Gate{
		pinHash:  sha256.Sum256([]byte(pin)),
		secret:   []byte(secret),
		ttl:      ttl,
		limiter:  limiter,
		logger:   log,
		sessions: make(map[string]*models.Session),
		now:      time.Now,
	}
}

// Authenticate checks the PIN and issues a fresh session. The comparison
// runs over fixed-size digests so it is constant time and leaks nothing
// about length or partial matches.
func (g *Gate) Authenticate(ctx context.Context, pin, clientIP string) (*models.Session, error) {
	if g.limiter != nil {
		blocked, err := g.limiter.TooManyFailures(ctx, clientIP)
		if err != nil && g.logger != nil {
			g.logger.Error("AUTH", fmt.Sprintf("Rate limiter check failed: %v", err))
		}
		if blocked {
			if g.logger != nil {
				g.logger.LogAuth("LOCKOUT", fmt.Sprintf("Blocked PIN attempt from %s", clientIP))
			}
			return nil, ErrTooManyFailures
		}
	}

	attempt := sha256.Sum256([]byte(pin))
	if subtle.ConstantTimeCompare(attempt[:], g.pinHash[:]) != 1 {
		if g.limiter != nil {
			if err := g.limiter.RecordFailure(ctx, clientIP); err != nil && g.logger != nil {
				g.logger.Error("AUTH", fmt.Sprintf("Rate limiter record failed: %v", err))
			}
		}
		if g.logger != nil {
			g.logger.LogAuth("PIN_FAIL", fmt.Sprintf("Wrong PIN from %s", clientIP))
		}
		return nil, ErrInvalidPin
	}

	now := g.now()
	jti := uuid.New().String()
	claims := jwt.RegisteredClaims{
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	session := &models.Session{
		Token:     token,
		JTI:       jti,
		CreatedAt: now,
		ExpiresAt: now.Add(g.ttl),
	}

	g.mu.Lock()
	g.sessions[jti] = session
	g.mu.Unlock()

	return session, nil
}

// Validate checks a token: missing, unknown, expired or revoked all come
// back as ErrUnauthorized.
func (g *Gate) Validate(token string) (*models.Session, error) {
	jti, err := g.parseJTI(token)
	if err != nil {
		return nil, ErrUnauthorized
	}

	g.mu.RLock()
	session, ok := g.sessions[jti]
	g.mu.RUnlock()
	if !ok {
		return nil, ErrUnauthorized
	}

	if !g.now().Before(session.ExpiresAt) {
		g.mu.Lock()
		delete(g.sessions, jti)
		g.mu.Unlock()
		return nil, ErrUnauthorized
	}
	return session, nil
}

// Logout revokes a session immediately. Idempotent: a dead or garbage token
// is not an error.
func (g *Gate) Logout(token string) {
	jti, err := g.parseJTI(token)
	if err != nil {
		return
	}
	g.mu.Lock()
	delete(g.sessions, jti)
	g.mu.Unlock()
}

func (g *Gate) parseJTI(token string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return g.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return g.now() }))
	if err != nil || !parsed.Valid || claims.ID == "" {
		return "", ErrUnauthorized
	}
	return claims.ID, nil
}
