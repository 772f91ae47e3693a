// Package credentials owns the password and token lifecycle: bcrypt hashing,
// JWT issuance/validation with an actor-type discriminator, and opaque
// password-reset tokens.
package credentials

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	dErrors "iaset/pkg/domain-errors"
)

// Token type discriminators. Admin-only routes reject anything but "admin"
// even when the token is otherwise well-formed.
const (
	TokenTypeUser  = "user"
	TokenTypeAdmin = "admin"
)

// ResetTokenTTL is the validity window for forgot-password tokens.
const ResetTokenTTL = 30 * time.Minute

const bcryptCost = 10

// HashPassword derives a salted slow hash of the plaintext. The plaintext is
// never stored or logged.
func HashPassword(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// CheckPassword reports whether plaintext matches the stored digest.
func CheckPassword(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// Claims represents the JWT claims for our access tokens.
type Claims struct {
	Email  string `json:"email,omitempty"`
	CPF    string `json:"cpf,omitempty"`
	Role   string `json:"role,omitempty"`
	Status bool   `json:"status,omitempty"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// SubjectID returns the numeric subject id carried in the token.
func (c *Claims) SubjectID() int64 {
	id, _ := strconv.ParseInt(c.Subject, 10, 64)
	return id
}

// Service handles JWT creation and validation. User and admin tokens may be
// signed with distinct secrets.
type Service struct {
	userKey  []byte
	adminKey []byte
	userTTL  time.Duration
	adminTTL time.Duration
	issuer   string
}

func NewService(userKey, adminKey string, userTTL, adminTTL time.Duration) *Service {
	return &Service{
		userKey:  []byte(userKey),
		adminKey: []byte(adminKey),
		userTTL:  userTTL,
		adminTTL: adminTTL,
		issuer:   "iaset",
	}
}

// IssueUserToken signs an access token for an approved employee.
func (s *Service) IssueUserToken(userID int64, email, cpf string, status bool) (string, error) {
	return s.sign(Claims{
		Email:            email,
		CPF:              cpf,
		Status:           status,
		Type:             TokenTypeUser,
		RegisteredClaims: s.registered(userID, s.userTTL),
	}, s.userKey)
}

// IssueAdminToken signs an access token carrying the admin discriminator.
func (s *Service) IssueAdminToken(adminID int64, email, role string) (string, error) {
	return s.sign(Claims{
		Email:            email,
		Role:             role,
		Type:             TokenTypeAdmin,
		RegisteredClaims: s.registered(adminID, s.adminTTL),
	}, s.adminKey)
}

func (s *Service) registered(subject int64, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(subject, 10),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    s.issuer,
		ID:        uuid.NewString(),
	}
}

func (s *Service) sign(claims Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// ValidateToken parses and verifies a token of either actor type. The signing
// key is picked from the type claim, so a user token forged against the admin
// secret (or vice versa) fails signature verification.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		claims, ok := token.Claims.(*Claims)
		if ok && claims.Type == TokenTypeAdmin {
			return s.adminKey, nil
		}
		return s.userKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	return claims, nil
}

// NewResetToken generates an opaque single-use token and its expiry, ready to
// be persisted on the target user and delivered out of band.
func NewResetToken() (string, time.Time) {
	return uuid.NewString(), time.Now().Add(ResetTokenTTL)
}
