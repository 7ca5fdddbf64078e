package domain

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleManager    Role = "MANAGER"    // менеджер клуба, автор брифов
	RoleValidator  Role = "VALIDATOR"  // региональный валидатор
	RoleProduction Role = "PRODUCTION" // команда продакшна
	RoleAdmin      Role = "ADMIN"
	RoleOwner      Role = "OWNER" // получатель owner approval
)

func (r Role) Valid() bool {
	switch r {
	case RoleManager, RoleValidator, RoleProduction, RoleAdmin, RoleOwner:
		return true
	}
	return false
}

// Actor тот, кто запрашивает переход. Собирается из JWT claims.
type Actor struct {
	UserID  string   `json:"user_id"`
	Role    Role     `json:"role"`
	ClubIDs []string `json:"club_ids"`
}

// HasClub: валидатор работает только с брифами своих клубов.
func (a Actor) HasClub(clubID string) bool {
	return slices.Contains(a.ClubIDs, clubID)
}

type CustomClaims struct {
	UserID  string   `json:"user_id"`
	Role    Role     `json:"role"`
	ClubIDs []string `json:"club_ids"`
	jwt.RegisteredClaims
}

func (c *CustomClaims) Actor() Actor {
	return Actor{UserID: c.UserID, Role: c.Role, ClubIDs: c.ClubIDs}
}

// Secure Token Issuing
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // Всегда "Bearer"
	ExpiresIn   int64  `json:"expires_in"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Никогда не отправляем на фронт
	Role         Role      `json:"role"`
	ClubIDs      []string  `json:"club_ids"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
