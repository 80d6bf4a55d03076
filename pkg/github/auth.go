package github

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

// TokenManager handles GitHub authentication for a run. The token is read
// once, both API clients are built from it, and the installation token can be
// revoked when the run finishes.
type TokenManager struct {
	client *github.Client
	token  string
}

// NewTokenManager creates a new token manager
func NewTokenManager() *TokenManager {
	return &TokenManager{}
}

// GetToken retrieves the GitHub token from the environment
func (tm *TokenManager) GetToken() (string, error) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return strings.TrimSpace(token), nil
	}
	return "", fmt.Errorf("no GitHub token found: set the GITHUB_TOKEN environment variable")
}

// Authenticate sets up the GitHub client with the provided token
func (tm *TokenManager) Authenticate(token string) error {
	if token == "" {
		return fmt.Errorf("GitHub token cannot be empty")
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	tm.client = github.NewClient(tc)
	tm.token = token

	return nil
}

// ValidateToken validates the GitHub token and reports the authenticated user
func (tm *TokenManager) ValidateToken(ctx context.Context) (*TokenInfo, error) {
	if tm.client == nil {
		return nil, fmt.Errorf("not authenticated: call Authenticate() first")
	}

	user, resp, err := tm.client.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to validate GitHub token: %w", err)
	}

	scopes := []string{}
	if scopeHeader := resp.Header.Get("X-OAuth-Scopes"); scopeHeader != "" {
		scopes = strings.Split(strings.ReplaceAll(scopeHeader, " ", ""), ",")
	}

	return &TokenInfo{
		User:   user.GetLogin(),
		Scopes: scopes,
	}, nil
}

// Revoke revokes the installation token so it cannot outlive the run.
// App installation tokens are the only kind the API can revoke; for personal
// tokens the endpoint responds with an error, which callers treat as advisory.
func (tm *TokenManager) Revoke(ctx context.Context) error {
	if tm.client == nil {
		return fmt.Errorf("not authenticated: call Authenticate() first")
	}

	_, err := tm.client.Apps.RevokeInstallationToken(ctx)
	if err != nil {
		return WrapAPIError(err, "revoke installation token")
	}
	return nil
}

// RESTClient returns a RESTClient backed by the authenticated connection
func (tm *TokenManager) RESTClient() *Client {
	return NewClientFromGitHub(tm.client)
}

// GraphClient returns a GraphClient backed by the same token
func (tm *TokenManager) GraphClient() *GraphQLClient {
	return NewGraphQLClient(tm.token)
}

// TokenInfo contains information about the authenticated token
type TokenInfo struct {
	User   string   `json:"user"`
	Scopes []string `json:"scopes"`
}

// AuthInstructions returns instructions for setting up GitHub authentication
func AuthInstructions() string {
	return `GitHub authentication is required. Set the GITHUB_TOKEN environment variable:

   export GITHUB_TOKEN="your_token"

The token needs the following access:
   - repo (labels and settings)
   - project (ProjectV2 linking and backfill)
   - organization custom properties read access (discovery by property filter)`
}
