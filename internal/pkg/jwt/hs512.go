package jwt

import (
	"errors"
	"strconv"
	"time"

	libjwt "github.com/golang-jwt/jwt/v5"
)

const minHS512KeyLen = 64

// HS512 signs tokens with a shared secret.
type HS512 struct {
	secret    []byte
	issuer    string
	audiences []string
	ttl       time.Duration
	clock     clocker
	uuid      generator
}

func NewHS512(cfg Config) (*HS512, error) {
	if len(cfg.Secret) < minHS512KeyLen {
		return nil, ErrSigningKeyTooShort
	}

	return &HS512{
		secret:    cfg.Secret,
		issuer:    cfg.Issuer,
		audiences: cfg.Audiences,
		ttl:       cfg.TTL,
		clock:     cfg.Clock,
		uuid:      cfg.UUID,
	}, nil
}

func (s *HS512) TTL() time.Duration { return s.ttl }

func (s *HS512) Generate(uid int64, email string) (string, error) {
	now := s.clock.Now()

	claims := Claims{
		RegisteredClaims: libjwt.RegisteredClaims{
			ID:        s.uuid.Generate(),
			Subject:   strconv.FormatInt(uid, 10),
			Issuer:    s.issuer,
			Audience:  s.audiences,
			IssuedAt:  libjwt.NewNumericDate(now),
			NotBefore: libjwt.NewNumericDate(now),
			ExpiresAt: libjwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID:    uid,
		UserEmail: email,
	}

	return libjwt.NewWithClaims(libjwt.SigningMethodHS512, claims).SignedString(s.secret)
}

func (s *HS512) Verify(token string) (Claims, error) {
	var claims Claims

	parsed, err := libjwt.ParseWithClaims(token, &claims,
		func(t *libjwt.Token) (any, error) {
			if t.Method != libjwt.SigningMethodHS512 {
				return nil, ErrInvalidSigningMethod
			}
			return s.secret, nil
		},
		libjwt.WithIssuer(s.issuer),
		libjwt.WithAudience(s.audiences...),
		libjwt.WithValidMethods([]string{libjwt.SigningMethodHS512.Alg()}),
		libjwt.WithIssuedAt(),
		libjwt.WithExpirationRequired(),
		libjwt.WithTimeFunc(s.clock.Now),
	)
	switch {
	case errors.Is(err, libjwt.ErrTokenExpired):
		return Claims{}, ErrTokenExpired
	case err != nil:
		return Claims{}, err
	case !parsed.Valid:
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}
