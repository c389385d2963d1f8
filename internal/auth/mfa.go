package auth

import (
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const mfaIssuer = "SolSub Admin"

// ValidateTOTP validates a TOTP code against a secret
func ValidateTOTP(secret, token string) bool {
	return totp.Validate(token, secret)
}

// GenerateMFASecret generates a TOTP secret for an admin
func GenerateMFASecret(email string) (*otp.Key, error) {
	return totp.Generate(totp.GenerateOpts{
		Issuer:      mfaIssuer,
		AccountName: email,
		SecretSize:  32,
	})
}
