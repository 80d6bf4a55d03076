package github

import "context"

// RESTClient defines the REST-style GitHub API operations the sync engine
// consumes. Implementations wrap the go-github client; tests provide mocks.
type RESTClient interface {
	// Discovery operations
	ListRepositoriesByProperties(ctx context.Context, org string) ([]DiscoveredRepo, error)
	GetRepository(ctx context.Context, owner, name string) (*DiscoveredRepo, error)

	// Repository state operations
	GetRepositorySettings(ctx context.Context, owner, name string) (*RepoSettings, error)
	UpdateRepositorySettings(ctx context.Context, owner, name string, patch *SettingsPatch) error

	// Label operations
	ListLabels(ctx context.Context, owner, name string) ([]Label, error)
	CreateLabel(ctx context.Context, owner, name string, label Label) error
	UpdateLabel(ctx context.Context, owner, name, currentName string, label Label) error
	DeleteLabel(ctx context.Context, owner, name, labelName string) error

	// Backfill operations
	ListOpenItems(ctx context.Context, owner, name string, page int) ([]Item, int, error)

	// Quota operations
	GetQuota(ctx context.Context) (*Quota, error)
}

// GraphClient defines the GraphQL operations used for ProjectV2 boards.
// Link and add operations are idempotent on the remote side; the already
// return value reports the remote saying the work was done previously.
type GraphClient interface {
	ResolveProject(ctx context.Context, owner string, number int) (*Project, error)
	LinkRepository(ctx context.Context, projectID, repoNodeID string) (already bool, err error)
	AddItem(ctx context.Context, projectID, contentNodeID string) (already bool, err error)
}
