package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

// Client implements the RESTClient interface using the GitHub REST API
type Client struct {
	client *github.Client
}

// NewClient creates a new GitHub REST client with the provided token
func NewClient(token string) *Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	return &Client{client: github.NewClient(tc)}
}

// NewClientFromGitHub wraps an existing go-github client
func NewClientFromGitHub(gh *github.Client) *Client {
	return &Client{client: gh}
}

// ListRepositoriesByProperties lists all repositories in the organization
// together with their custom property values.
func (c *Client) ListRepositoriesByProperties(ctx context.Context, org string) ([]DiscoveredRepo, error) {
	opts := &github.ListOptions{PerPage: 100}

	var repos []DiscoveredRepo

	err := WithRetry(func() error {
		repos = nil // Reset on retry
		opts.Page = 0

		for {
			values, resp, err := c.client.Organizations.ListCustomPropertyValues(ctx, org, opts)
			if err != nil {
				return WrapAPIError(err, fmt.Sprintf("list custom property values for %s", org))
			}

			for _, v := range values {
				owner, name := splitFullName(v.RepositoryFullName)
				repos = append(repos, DiscoveredRepo{
					Owner:      owner,
					Name:       name,
					FullName:   v.RepositoryFullName,
					Properties: propertyMap(v.Properties),
				})
			}

			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
		return nil
	}, DefaultRetryConfig())
	if err != nil {
		return nil, err
	}

	// The property listing endpoint does not return node ids; fetch them so
	// project linking has a stable identifier to work with.
	for i := range repos {
		full, err := c.GetRepository(ctx, repos[i].Owner, repos[i].Name)
		if err != nil {
			return nil, err
		}
		repos[i].NodeID = full.NodeID
	}

	return repos, nil
}

// GetRepository retrieves a repository by owner and name, including its
// custom property values when they are readable.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*DiscoveredRepo, error) {
	var repo *github.Repository

	err := WithRetry(func() error {
		var err error
		repo, _, err = c.client.Repositories.Get(ctx, owner, name)
		if err != nil {
			return WrapAPIError(err, fmt.Sprintf("get repository %s/%s", owner, name))
		}
		return nil
	}, DefaultRetryConfig())
	if err != nil {
		return nil, err
	}

	discovered := &DiscoveredRepo{
		Owner:    repo.GetOwner().GetLogin(),
		Name:     repo.GetName(),
		FullName: repo.GetFullName(),
		NodeID:   repo.GetNodeID(),
	}

	// Property values are best-effort here; attribute-filtered discovery is
	// the richer source when both find the same repository.
	values, _, err := c.client.Repositories.GetAllCustomPropertyValues(ctx, owner, name)
	if err == nil {
		discovered.Properties = propertyMap(values)
	}

	return discovered, nil
}

// GetRepositorySettings fetches the current syncable settings of a repository
func (c *Client) GetRepositorySettings(ctx context.Context, owner, name string) (*RepoSettings, error) {
	var repo *github.Repository

	err := WithRetry(func() error {
		var err error
		repo, _, err = c.client.Repositories.Get(ctx, owner, name)
		if err != nil {
			return WrapAPIError(err, fmt.Sprintf("get settings for %s/%s", owner, name))
		}
		return nil
	}, DefaultRetryConfig())
	if err != nil {
		return nil, err
	}

	return &RepoSettings{
		HasIssues:           repo.GetHasIssues(),
		HasWiki:             repo.GetHasWiki(),
		HasProjects:         repo.GetHasProjects(),
		HasDiscussions:      repo.GetHasDiscussions(),
		AllowSquashMerge:    repo.GetAllowSquashMerge(),
		AllowMergeCommit:    repo.GetAllowMergeCommit(),
		AllowRebaseMerge:    repo.GetAllowRebaseMerge(),
		DeleteBranchOnMerge: repo.GetDeleteBranchOnMerge(),
		AllowAutoMerge:      repo.GetAllowAutoMerge(),
	}, nil
}

// UpdateRepositorySettings issues one partial patch carrying only the changed
// settings keys. Validation rejections surface as ErrorTypeValidation so the
// settings engine can downgrade them to a policy warning.
func (c *Client) UpdateRepositorySettings(ctx context.Context, owner, name string, patch *SettingsPatch) error {
	repo := &github.Repository{
		HasIssues:           patch.HasIssues,
		HasWiki:             patch.HasWiki,
		HasProjects:         patch.HasProjects,
		HasDiscussions:      patch.HasDiscussions,
		AllowSquashMerge:    patch.AllowSquashMerge,
		AllowMergeCommit:    patch.AllowMergeCommit,
		AllowRebaseMerge:    patch.AllowRebaseMerge,
		DeleteBranchOnMerge: patch.DeleteBranchOnMerge,
		AllowAutoMerge:      patch.AllowAutoMerge,
	}

	return WithRetry(func() error {
		_, _, err := c.client.Repositories.Edit(ctx, owner, name, repo)
		if err != nil {
			return WrapAPIError(err, fmt.Sprintf("update settings for %s/%s", owner, name))
		}
		return nil
	}, DefaultRetryConfig())
}

// ListLabels lists all labels for a repository
func (c *Client) ListLabels(ctx context.Context, owner, name string) ([]Label, error) {
	opts := &github.ListOptions{PerPage: 100}

	var allLabels []Label

	err := WithRetry(func() error {
		allLabels = nil // Reset on retry
		opts.Page = 0

		for {
			labels, resp, err := c.client.Issues.ListLabels(ctx, owner, name, opts)
			if err != nil {
				return WrapAPIError(err, fmt.Sprintf("list labels for %s/%s", owner, name))
			}

			for _, l := range labels {
				allLabels = append(allLabels, Label{
					Name:        l.GetName(),
					Description: l.GetDescription(),
					Color:       l.GetColor(),
				})
			}

			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
		return nil
	}, DefaultRetryConfig())

	return allLabels, err
}

// CreateLabel creates a new label on a repository
func (c *Client) CreateLabel(ctx context.Context, owner, name string, label Label) error {
	l := &github.Label{
		Name:        github.String(label.Name),
		Color:       github.String(label.Color),
		Description: github.String(label.Description),
	}

	return WithRetry(func() error {
		_, _, err := c.client.Issues.CreateLabel(ctx, owner, name, l)
		if err != nil {
			return WrapAPIError(err, fmt.Sprintf("create label %q on %s/%s", label.Name, owner, name))
		}
		return nil
	}, DefaultRetryConfig())
}

// UpdateLabel updates an existing label, addressed by its current name so
// casing-only renames land correctly.
func (c *Client) UpdateLabel(ctx context.Context, owner, name, currentName string, label Label) error {
	l := &github.Label{
		Name:        github.String(label.Name),
		Color:       github.String(label.Color),
		Description: github.String(label.Description),
	}

	return WithRetry(func() error {
		_, _, err := c.client.Issues.EditLabel(ctx, owner, name, currentName, l)
		if err != nil {
			return WrapAPIError(err, fmt.Sprintf("update label %q on %s/%s", currentName, owner, name))
		}
		return nil
	}, DefaultRetryConfig())
}

// DeleteLabel deletes a label from a repository
func (c *Client) DeleteLabel(ctx context.Context, owner, name, labelName string) error {
	return WithRetry(func() error {
		_, err := c.client.Issues.DeleteLabel(ctx, owner, name, labelName)
		if err != nil {
			return WrapAPIError(err, fmt.Sprintf("delete label %q on %s/%s", labelName, owner, name))
		}
		return nil
	}, DefaultRetryConfig())
}

// ListOpenItems lists one page of open issues and pull requests for a
// repository and returns the next page number, zero when exhausted.
func (c *Client) ListOpenItems(ctx context.Context, owner, name string, page int) ([]Item, int, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 100, Page: page},
	}

	var items []Item
	var nextPage int

	err := WithRetry(func() error {
		items = nil // Reset on retry

		issues, resp, err := c.client.Issues.ListByRepo(ctx, owner, name, opts)
		if err != nil {
			return WrapAPIError(err, fmt.Sprintf("list open items for %s/%s", owner, name))
		}

		for _, issue := range issues {
			items = append(items, Item{
				NodeID:        issue.GetNodeID(),
				Number:        issue.GetNumber(),
				Title:         issue.GetTitle(),
				IsPullRequest: issue.IsPullRequest(),
			})
		}
		nextPage = resp.NextPage
		return nil
	}, DefaultRetryConfig())

	return items, nextPage, err
}

// GetQuota reports the remaining budget of the REST and GraphQL pools
func (c *Client) GetQuota(ctx context.Context) (*Quota, error) {
	limits, _, err := c.client.RateLimit.Get(ctx)
	if err != nil {
		return nil, WrapAPIError(err, "get rate limit")
	}

	quota := &Quota{}
	if core := limits.GetCore(); core != nil {
		quota.RESTRemaining = core.Remaining
		quota.RESTReset = core.Reset.Time
	}
	if gql := limits.GetGraphQL(); gql != nil {
		quota.GraphQLRemaining = gql.Remaining
		quota.GraphQLReset = gql.Reset.Time
	}

	return quota, nil
}

// propertyMap flattens custom property values into a string map. Multi-value
// properties join with commas so filter matching stays string-based.
func propertyMap(values []*github.CustomPropertyValue) map[string]string {
	if len(values) == 0 {
		return nil
	}

	props := make(map[string]string, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		switch val := v.Value.(type) {
		case string:
			props[v.PropertyName] = val
		case []string:
			props[v.PropertyName] = strings.Join(val, ",")
		case nil:
			// No value set for this property on this repository
		default:
			props[v.PropertyName] = fmt.Sprintf("%v", val)
		}
	}
	return props
}

// splitFullName splits "owner/name" into its parts
func splitFullName(fullName string) (owner, name string) {
	if i := strings.IndexByte(fullName, '/'); i >= 0 {
		return fullName[:i], fullName[i+1:]
	}
	return "", fullName
}
