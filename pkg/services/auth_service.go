package services

import (
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const adminRole = "admin"

type AuthService interface {
	// Login exchanges the admin password for a signed bearer token.
	Login(password string) (string, error)
	// Validate reports whether token is a live admin token.
	Validate(token string) error
}

type AuthOptions struct {
	Password     string
	PasswordHash string
	Secret       string
	TTL          time.Duration
	Now          func() time.Time
}

type authService struct {
	hash   []byte
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthService prefers a pre-computed bcrypt hash and otherwise hashes the
// plain password once at start-up.
func NewAuthService(opts AuthOptions) (AuthService, error) {
	if opts.Secret == "" {
		return nil, fmt.Errorf("jwt secret is empty")
	}

	hash := []byte(opts.PasswordHash)
	if len(hash) == 0 {
		if opts.Password == "" {
			return nil, fmt.Errorf("admin password is empty")
		}
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("admin password hash: %w", err)
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &authService{hash: hash, secret: []byte(opts.Secret), ttl: ttl, now: now}, nil
}

func (s *authService) Login(password string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(password)); err != nil {
		log.Println("[ADMIN] failed login attempt")
		return "", clientError(ErrUnauthorized, "Invalid password.")
	}

	now := s.now()
	claims := jwt.MapClaims{
		"role": adminRole,
		"jti":  uuid.NewString(),
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}
	return signed, nil
}

func (s *authService) Validate(tokenStr string) error {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return clientError(ErrUnauthorized, "Unauthorized.")
	}
	if role, _ := claims["role"].(string); role != adminRole {
		return clientError(ErrUnauthorized, "Unauthorized.")
	}
	return nil
}
