package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"scopehub/internal/models"
	"scopehub/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Authentication failure sentinels. Handlers map these to 401 with stable codes.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrTokenRevoked        = errors.New("token has been revoked")
)

// AuthService issues, verifies and revokes JWTs and validates credentials.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*models.LoginResponse, error)
	Logout(ctx context.Context, token string, userID uuid.UUID) error
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	ValidateUser(ctx context.Context, email, password string) (*models.UserSummary, error)
	VerifyAccessToken(ctx context.Context, token string) (*TokenClaims, error)
}

// TokenClaims is the payload carried by both access and refresh tokens.
type TokenClaims struct {
	Email          string `json:"email"`
	IsRefreshToken bool   `json:"isRefreshToken,omitempty"`
	jwt.RegisteredClaims
}

type authService struct {
	userRepo   repositories.UserRepository
	tokenRepo  repositories.TokenRepository
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthService(userRepo repositories.UserRepository, tokenRepo repositories.TokenRepository, jwtSecret string, accessTTL, refreshTTL time.Duration) AuthService {
	return &authService{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// ValidateUser looks the user up by email and compares the password hash.
// Pure check, no side effects; returns nil without error on mismatch.
func (s *authService) ValidateUser(ctx context.Context, email, password string) (*models.UserSummary, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil || user == nil {
		return nil, nil
	}
	if !user.IsActive {
		return nil, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil
	}
	return user.Summary(), nil
}

// Login validates credentials and mints an access/refresh token pair.
func (s *authService) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	summary, err := s.ValidateUser(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.mintTokenPair(summary.ID, summary.Email)
	if err != nil {
		return nil, err
	}

	return &models.LoginResponse{TokenPair: *pair, User: summary}, nil
}

// Logout blacklists the presented token until its embedded expiry. A token
// that cannot be decoded or lacks an expiry is a no-op, so logout is
// idempotent even with garbage input.
func (s *authService) Logout(ctx context.Context, token string, userID uuid.UUID) error {
	claims := &TokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}

	reason := models.RevocationReasonLogout
	_, err := s.tokenRepo.Blacklist(ctx, token, userID, claims.ExpiresAt.Time, &reason)
	return err
}

// Refresh rotates a refresh token. The consumed token is blacklisted before
// new tokens are minted, so a replayed refresh token fails.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(refreshToken, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidRefreshToken
	}
	if !claims.IsRefreshToken {
		return nil, ErrInvalidRefreshToken
	}

	// Blacklist lookups fail closed: a store error rejects the refresh.
	revoked, err := s.tokenRepo.IsBlacklisted(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrInvalidRefreshToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || user == nil {
		return nil, ErrInvalidRefreshToken
	}

	expiresAt := time.Now()
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	reason := models.RevocationReasonRefresh
	if _, err := s.tokenRepo.Blacklist(ctx, refreshToken, userID, expiresAt, &reason); err != nil {
		return nil, err
	}

	return s.mintTokenPair(user.ID, user.Email)
}

// VerifyAccessToken checks signature, expiry and blacklist membership. Both
// checks run on every authenticated request; either failing rejects it.
func (s *authService) VerifyAccessToken(ctx context.Context, token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidCredentials
	}
	if claims.IsRefreshToken {
		return nil, ErrInvalidCredentials
	}

	revoked, err := s.tokenRepo.IsBlacklisted(ctx, token)
	if err != nil {
		// Fail closed: an unreachable store never admits a token.
		log.Printf("blacklist check failed: %v", err)
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

func (s *authService) mintTokenPair(userID uuid.UUID, email string) (*models.TokenPair, error) {
	now := time.Now()

	accessClaims := TokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        generateJTI(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshClaims := TokenClaims{
		Email:          email,
		IsRefreshToken: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        generateJTI(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.accessTTL.Seconds()),
		TokenType:    "bearer",
	}, nil
}

// generateJTI returns a 32-hex-char token id from a CSPRNG.
func generateJTI() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
