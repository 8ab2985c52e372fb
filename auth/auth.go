package auth

import (
	"context"
	"errors"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/tcriess/lightspeed-queue/config"
	"github.com/tcriess/lightspeed-queue/globals"
)

// ErrUnauthorized is returned when no configured credential matches the
// caller's token.
var ErrUnauthorized = errors.New("unauthorized")

// Authorize is the authorization predicate consumed before room creation (the
// only gated operation, queue operations are open by design). It accepts
// either the static admin token or a verifiable OIDC ID token and returns the
// authorized principal.
func Authorize(token, oidcProvider string, cfg *config.Config) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}
	if cfg.AdminToken != "" && token == cfg.AdminToken {
		return "admin", nil
	}
	principal, err := Authenticate(token, oidcProvider, cfg)
	if err != nil {
		return "", err
	}
	if principal == "" {
		return "", ErrUnauthorized
	}
	return principal, nil
}

// Authenticate verifies a given OIDC ID-Token using the configured OIDC provider.
// It returns the user's id if verification was successful (or an empty string if no provider was configured).
// TODO: Currently, the userId is set to the "email" property of the claim, this could be made configurable. But: ensure that this is unique across the user base!
func Authenticate(idToken, oidcProvider string, cfg *config.Config) (string, error) {
	userId := ""
	if idToken == "" || len(cfg.OIDCConfigs) == 0 {
		return "", nil
	}
	var oidcConf *config.OIDCConfig
	for _, c := range cfg.OIDCConfigs {
		if c.Name == oidcProvider {
			oidcConf = &c
			break
		}
	}
	if oidcConf == nil {
		globals.AppLogger.Debug("no oidc config found for provider", "provider", oidcProvider)
		return "", nil
	}
	provider, err := oidc.NewProvider(context.Background(), oidcConf.ProviderUrl)
	if err != nil {
		return "", err
	}
	conf := oidc.Config{}
	if oidcConf.ClientId == "" {
		conf.SkipClientIDCheck = true
	} else {
		conf.ClientID = oidcConf.ClientId
	}
	verifier := provider.Verifier(&conf)
	verifiedIdToken, err := verifier.Verify(context.Background(), idToken)
	if err != nil {
		globals.AppLogger.Error("could not verify id token", "error", err)
		return "", err
	}

	claims := struct {
		Email string `json:"email"`
	}{}
	err = verifiedIdToken.Claims(&claims)
	if err != nil {
		return "", err
	}
	if claims.Email != "" {
		userId = claims.Email
	}
	return userId, nil
}
