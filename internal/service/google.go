package service

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

// ExternalIdentity is the verified content of an OAuth identity token.
type ExternalIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// IdentityVerifier checks an identity token signature, audience and
// issuer out of band.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*ExternalIdentity, error)
}

// GoogleVerifier validates Google ID tokens against a client id.
type GoogleVerifier struct {
	audience  string
	validator *idtoken.Validator
}

// NewGoogleVerifier fetches signing keys through client.
func NewGoogleVerifier(ctx context.Context, clientID string, client *http.Client) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, fmt.Errorf("google client id is not configured")
	}
	validator, err := idtoken.NewValidator(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create id token validator: %w", err)
	}
	return &GoogleVerifier{audience: clientID, validator: validator}, nil
}

func (v *GoogleVerifier) Verify(ctx context.Context, token string) (*ExternalIdentity, error) {
	payload, err := v.validator.Validate(ctx, token, v.audience)
	if err != nil {
		return nil, fmt.Errorf("validate id token: %w", err)
	}

	identity := &ExternalIdentity{Subject: payload.Subject}
	if email, ok := payload.Claims["email"].(string); ok {
		identity.Email = email
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok {
		identity.EmailVerified = verified
	}
	if name, ok := payload.Claims["name"].(string); ok {
		identity.Name = name
	}
	if picture, ok := payload.Claims["picture"].(string); ok {
		identity.Picture = picture
	}
	return identity, nil
}
