package auth

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// ExternalProfile is the identity asserted by the external provider.
type ExternalProfile struct {
	Subject       string `mapstructure:"sub"`
	Email         string `mapstructure:"email"`
	EmailVerified bool   `mapstructure:"email_verified"`
	Name          string `mapstructure:"name"`
	Picture       string `mapstructure:"picture"`
}

// DecodeProfile maps ID token claims onto an ExternalProfile. Claim types are
// decoded weakly since providers disagree on e.g. "email_verified": "true" vs true.
// Unknown claims are ignored; field presence is checked by the caller.
func DecodeProfile(claims map[string]any) (*ExternalProfile, error) {
	var profile ExternalProfile
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &profile,
	})
	if err != nil {
		return nil, fmt.Errorf("build claims decoder: %w", err)
	}
	if err := decoder.Decode(claims); err != nil {
		return nil, fmt.Errorf("decode profile claims: %w", err)
	}
	profile.Email = NormalizeEmail(profile.Email)
	return &profile, nil
}
