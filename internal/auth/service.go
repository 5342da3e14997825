package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"course-scene-service/internal/domain"
	"course-scene-service/internal/typeid"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid token")
)

const bcryptCost = 12

// Account is a user known to the directory. PasswordHash is a bcrypt hash.
type Account struct {
	ID           string
	Email        string
	DisplayName  string
	Role         domain.Role
	PasswordHash string
}

// Service issues and verifies signed session tokens for accounts held in
// memory. Accounts are seeded from configuration.
type Service struct {
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time

	mu       sync.RWMutex
	accounts map[string]Account // by lower-case email
}

func NewService(jwtSecret string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		now:       time.Now,
		accounts:  make(map[string]Account),
	}
}

type AuthResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

type User struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	DisplayName string      `json:"displayName"`
	Role        domain.Role `json:"role"`
}

// Seed adds an account; a plain password is hashed before it is kept.
func (s *Service) Seed(acc Account, password string) error {
	if acc.PasswordHash == "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		acc.PasswordHash = string(hash)
	}
	if acc.ID == "" {
		acc.ID = typeid.NewUserID()
	}
	if acc.Role == "" {
		acc.Role = domain.RoleUser
	}
	key := strings.ToLower(acc.Email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[key]; ok {
		return ErrEmailTaken
	}
	s.accounts[key] = acc
	return nil
}

func (s *Service) Login(_ context.Context, email, password string) (*AuthResult, error) {
	s.mu.RLock()
	acc, ok := s.accounts[strings.ToLower(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expires, err := s.IssueToken(acc.ID, acc.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: expires, User: toUser(acc)}, nil
}

// IssueToken signs a token carrying the user id and role.
func (s *Service) IssueToken(userID string, role domain.Role) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.tokenTTL)
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  expires.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// ValidateToken returns the identity a token was issued for.
func (s *Service) ValidateToken(tokenString string) (domain.Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return domain.Identity{}, ErrInvalidToken
	}
	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return domain.Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	role, _ := claims["role"].(string)
	switch domain.Role(role) {
	case domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleUser:
	default:
		return domain.Identity{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, role)
	}
	return domain.Identity{UserID: userID, Role: domain.Role(role)}, nil
}

// GetUser looks an account up by id.
func (s *Service) GetUser(_ context.Context, userID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acc := range s.accounts {
		if acc.ID == userID {
			u := toUser(acc)
			return &u, nil
		}
	}
	return nil, errors.New("user not found")
}

// Users lists every account, for assignment pickers.
func (s *Service) Users(_ context.Context) []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.accounts))
	for _, acc := range s.accounts {
		out = append(out, toUser(acc))
	}
	return out
}

func toUser(acc Account) User {
	return User{ID: acc.ID, Email: acc.Email, DisplayName: acc.DisplayName, Role: acc.Role}
}
