package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

// GraphQLClient implements the GraphClient interface for ProjectV2 boards,
// which are only reachable through the GraphQL API.
type GraphQLClient struct {
	client *githubv4.Client
}

// NewGraphQLClient creates a new GraphQL client with the provided token
func NewGraphQLClient(token string) *GraphQLClient {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	return &GraphQLClient{client: githubv4.NewClient(tc)}
}

// NewGraphQLClientFromHTTP wraps an existing authenticated http client
func NewGraphQLClientFromHTTP(httpClient *http.Client) *GraphQLClient {
	return &GraphQLClient{client: githubv4.NewClient(httpClient)}
}

// ResolveProject resolves a ProjectV2 by its human-facing number under the
// given owner, which may be an organization or a user.
func (g *GraphQLClient) ResolveProject(ctx context.Context, owner string, number int) (*Project, error) {
	var q struct {
		RepositoryOwner struct {
			Organization struct {
				ProjectV2 struct {
					ID     githubv4.ID
					Title  githubv4.String
					Closed githubv4.Boolean
				} `graphql:"projectV2(number: $number)"`
			} `graphql:"... on Organization"`
			User struct {
				ProjectV2 struct {
					ID     githubv4.ID
					Title  githubv4.String
					Closed githubv4.Boolean
				} `graphql:"projectV2(number: $number)"`
			} `graphql:"... on User"`
		} `graphql:"repositoryOwner(login: $login)"`
	}

	vars := map[string]interface{}{
		"login":  githubv4.String(owner),
		"number": githubv4.Int(number),
	}

	if err := g.client.Query(ctx, &q, vars); err != nil {
		return nil, NewAPIError(classifyGraphError(err),
			fmt.Sprintf("resolve project %d for %s", number, owner), err.Error(), err)
	}

	project := &Project{
		Number: number,
		ID:     idString(q.RepositoryOwner.Organization.ProjectV2.ID),
		Title:  string(q.RepositoryOwner.Organization.ProjectV2.Title),
		Closed: bool(q.RepositoryOwner.Organization.ProjectV2.Closed),
	}
	if project.ID == "" {
		project.ID = idString(q.RepositoryOwner.User.ProjectV2.ID)
		project.Title = string(q.RepositoryOwner.User.ProjectV2.Title)
		project.Closed = bool(q.RepositoryOwner.User.ProjectV2.Closed)
	}

	if project.ID == "" {
		return nil, NewAPIError(ErrorTypeNotFound,
			fmt.Sprintf("resolve project %d for %s", number, owner),
			fmt.Sprintf("project %d not found for owner %s", number, owner), nil)
	}

	return project, nil
}

// LinkRepository links a repository to a project. The remote treats the
// operation as idempotent; an "already linked" response is reported through
// the already return value, not as an error.
func (g *GraphQLClient) LinkRepository(ctx context.Context, projectID, repoNodeID string) (bool, error) {
	var m struct {
		LinkProjectV2ToRepository struct {
			Repository struct {
				ID githubv4.ID
			}
		} `graphql:"linkProjectV2ToRepository(input: $input)"`
	}

	input := githubv4.LinkProjectV2ToRepositoryInput{
		ProjectID:    githubv4.ID(projectID),
		RepositoryID: githubv4.ID(repoNodeID),
	}

	if err := g.client.Mutate(ctx, &m, input, nil); err != nil {
		if isAlreadyError(err) {
			return true, nil
		}
		return false, NewAPIError(classifyGraphError(err), "link repository to project", err.Error(), err)
	}

	return false, nil
}

// AddItem adds an issue or pull request to a project by content node id.
// Items that are already on the board are reported as already, not errors.
func (g *GraphQLClient) AddItem(ctx context.Context, projectID, contentNodeID string) (bool, error) {
	var m struct {
		AddProjectV2ItemByID struct {
			Item struct {
				ID githubv4.ID
			}
		} `graphql:"addProjectV2ItemById(input: $input)"`
	}

	input := githubv4.AddProjectV2ItemByIdInput{
		ProjectID: githubv4.ID(projectID),
		ContentID: githubv4.ID(contentNodeID),
	}

	if err := g.client.Mutate(ctx, &m, input, nil); err != nil {
		if isAlreadyError(err) {
			return true, nil
		}
		return false, NewAPIError(classifyGraphError(err), "add item to project", err.Error(), err)
	}

	return false, nil
}

// isAlreadyError detects the remote reporting that the requested link or item
// already exists. GraphQL surfaces this as a plain error message.
func isAlreadyError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already linked") || strings.Contains(msg, "already exists")
}

// classifyGraphError maps GraphQL error messages onto the shared taxonomy
func classifyGraphError(err error) ErrorType {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "could not resolve"), strings.Contains(msg, "not found"):
		return ErrorTypeNotFound
	case strings.Contains(msg, "rate limit"):
		return ErrorTypeRateLimit
	case strings.Contains(msg, "permission"), strings.Contains(msg, "forbidden"):
		return ErrorTypePermission
	case isNetworkError(err):
		return ErrorTypeNetwork
	default:
		return ErrorTypeUnknown
	}
}

// idString renders a GraphQL node id as a string
func idString(id githubv4.ID) string {
	if id == nil {
		return ""
	}
	return fmt.Sprintf("%v", id)
}
