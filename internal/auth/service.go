package auth

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/openlearn/learning-management/internal"
	"github.com/openlearn/learning-management/internal/core/datamodel/identity"
)

// RepositoryAPI is the persistence surface the auth service needs. Lookups
// return (nil, nil) when the row does not exist.
type RepositoryAPI interface {
	GetByUsername(username string) (*identity.User, error)
	GetByID(userID int64) (*identity.User, error)
	UpdateLastLogin(userID int64, at time.Time) error
	UpdatePassword(userID int64, passwordHash string) error
}

type Service struct {
	repo       RepositoryAPI
	tokens     TokenGeneratorAPI
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, tokens TokenGeneratorAPI, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Authenticate verifies the credentials and issues a token pair. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *Service) Authenticate(dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	user, err := s.repo.GetByUsername(dto.Username)
	if err != nil {
		s.logger.Error("failed to load user for login", "error", err)
		return AuthTokens{}, internal.NewInternalError("could not authenticate", err)
	}
	if user == nil {
		return AuthTokens{}, internal.ErrInvalidCredentials
	}
	if !user.IsActive {
		return AuthTokens{}, internal.ErrUserInactive
	}

	if err := VerifyPassword(user.PasswordHash, dto.Password); err != nil {
		return AuthTokens{}, internal.ErrInvalidCredentials
	}

	if err := s.repo.UpdateLastLogin(user.ID, time.Now().UTC()); err != nil {
		// login still succeeds, the stamp is best effort
		s.logger.Warn("failed to stamp last login", "user_id", user.ID, "error", err)
	}

	return s.issueTokens(user)
}

func (s *Service) RefreshTokens(refreshToken string) (AuthTokens, error) {
	claims, err := s.tokens.ValidateToken(refreshToken)
	if err != nil {
		return AuthTokens{}, internal.ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return AuthTokens{}, internal.ErrInvalidToken
	}

	user, err := s.repo.GetByID(userID)
	if err != nil {
		s.logger.Error("failed to load user for refresh", "error", err)
		return AuthTokens{}, internal.NewInternalError("could not refresh tokens", err)
	}
	if user == nil || !user.IsActive {
		return AuthTokens{}, internal.ErrInvalidToken
	}

	return s.issueTokens(user)
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokens.ValidateToken(tokenString)
}

func (s *Service) GetUser(userID int64) (*User, error) {
	user, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, internal.NewInternalError("could not load user", err)
	}
	if user == nil {
		return nil, internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound)
	}
	return PrincipalFromModel(user), nil
}

func (s *Service) ChangePassword(userID int64, dto ChangePasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	user, err := s.repo.GetByID(userID)
	if err != nil {
		return internal.NewInternalError("could not load user", err)
	}
	if user == nil {
		return internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound)
	}

	if err := VerifyPassword(user.PasswordHash, dto.OldPassword); err != nil {
		return internal.NewValidationError("Old password is incorrect.", internal.ErrCodeInvalidPassword)
	}

	hash, err := HashPassword(dto.NewPassword, s.bcryptCost)
	if err != nil {
		return internal.NewInternalError("could not hash password", err)
	}

	if err := s.repo.UpdatePassword(userID, hash); err != nil {
		return internal.NewInternalError("could not update password", err)
	}
	return nil
}

func (s *Service) HashPassword(password string) (string, error) {
	return HashPassword(password, s.bcryptCost)
}

func (s *Service) issueTokens(user *identity.User) (AuthTokens, error) {
	id := strconv.FormatInt(user.ID, 10)

	access, err := s.tokens.GenerateAccessToken(id, user.Username)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("could not issue access token", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(id, user.Username)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("could not issue refresh token", err)
	}

	return AuthTokens{AccessToken: access, RefreshToken: refresh}, nil
}

// PrincipalFromModel maps the stored row onto the request principal.
func PrincipalFromModel(user *identity.User) *User {
	return &User{
		ID:          user.ID,
		Username:    user.Username,
		Fullname:    user.Fullname,
		IsActive:    user.IsActive,
		IsStaff:     user.IsStaff,
		IsSuperuser: user.IsSuperuser,
		GroupID:     user.GroupID,
	}
}

func NewJWTTokenGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
	}
}

func (g *JWTTokenGenerator) GenerateAccessToken(userID string, username string) (string, error) {
	return g.generate(userID, username, g.AccessTokenTTL, g.AccessTokenSecret)
}

func (g *JWTTokenGenerator) GenerateRefreshToken(userID string, username string) (string, error) {
	return g.generate(userID, username, g.RefreshTokenTTL, g.RefreshTokenSecret)
}

func (g *JWTTokenGenerator) generate(userID, username string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken parses and validates against the access secret first, then
// the refresh secret, so a single verifier serves both token kinds.
func (g *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	claims, err := g.parseWith(tokenString, g.AccessTokenSecret)
	if err == nil {
		return claims, nil
	}
	return g.parseWith(tokenString, g.RefreshTokenSecret)
}

func (g *JWTTokenGenerator) parseWith(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, internal.ErrInvalidToken
	}
	return claims, nil
}
