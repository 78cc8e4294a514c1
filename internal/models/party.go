package models

import (
	"time"

	"github.com/golang-jwt/jwt"
)

// Brand is the paying side of a campaign. Only the fields the payment core
// needs are modelled here; profile management lives in another service.
type Brand struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	FCMToken  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Creator is the payee side of a campaign.
type Creator struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	FCMToken  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Claims struct {
	UserID int    `json:"user_id"`
	Role   string `json:"role"`
	jwt.StandardClaims
}
