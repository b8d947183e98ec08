package auth

import (
	"time"

	"github.com/frahmantamala/credify/internal/core/common/validation"
)

type LoginDTO struct {
	Passcode string `json:"passcode"`
}

// Validate caps the passcode at the length bcrypt accepts.
func (d LoginDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("passcode", d.Passcode).Required().MaxLength(72)

	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}
