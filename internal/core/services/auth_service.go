package services

import (
	"errors"
	"time"

	"github.com/4rubka/ClanMaster/internal/pkg/jwt"

	"github.com/google/uuid"
)

// Auth errors
var (
	ErrInvalidRole = errors.New("invalid role")
)

// AuthService issues and checks actor access tokens
type AuthService struct {
	secret        string
	expiryMinutes int
}

// NewAuthService creates a new auth service
func NewAuthService(secret string, expiryMinutes int) *AuthService {
	if expiryMinutes <= 0 {
		expiryMinutes = 60
	}
	return &AuthService{secret: secret, expiryMinutes: expiryMinutes}
}

// TokenResponse is returned when a token is minted
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ActorID     uuid.UUID `json:"actor_id"`
	Role        string    `json:"role"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IssueToken mints an access token for actorID. An empty role means PLAYER.
func (s *AuthService) IssueToken(actorID uuid.UUID, role string) (*TokenResponse, error) {
	switch role {
	case "":
		role = jwt.RolePlayer
	case jwt.RolePlayer, jwt.RoleAdmin:
	default:
		return nil, ErrInvalidRole
	}

	token, err := jwt.GenerateAccessToken(actorID, role, s.secret, s.expiryMinutes)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		AccessToken: token,
		ActorID:     actorID,
		Role:        role,
		ExpiresAt:   time.Now().Add(time.Duration(s.expiryMinutes) * time.Minute),
	}, nil
}

// ValidateAccessToken validates access token
func (s *AuthService) ValidateAccessToken(accessToken string) (*jwt.Claims, error) {
	return jwt.ValidateAccessToken(accessToken, s.secret)
}
