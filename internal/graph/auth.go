package graph

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// ProviderName keys Graph tokens in the token store.
const ProviderName = "graph"

// DefaultTenant lets both work and personal Microsoft accounts sign in.
const DefaultTenant = "common"

// Scopes needed to read the signed-in user's calendar and keep a refresh token.
var Scopes = []string{"offline_access", "User.Read", "Calendars.Read"}

// OAuthConfig returns the authorization-code flow configuration for an
// Azure AD app registration.
func OAuthConfig(clientID, clientSecret, tenant string) (*oauth2.Config, error) {
	if clientID == "" {
		return nil, fmt.Errorf("MS_CLIENT_ID is not set")
	}
	if tenant == "" {
		tenant = DefaultTenant
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  "http://localhost",
		Scopes:       Scopes,
		Endpoint:     microsoft.AzureADEndpoint(tenant),
	}, nil
}

// TokenFromCode exchanges the code pasted back by the user for a token.
func TokenFromCode(ctx context.Context, config *oauth2.Config, code string) (*oauth2.Token, error) {
	return config.Exchange(ctx, code)
}
