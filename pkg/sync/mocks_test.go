package sync

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/savvy-web/silk-sync-action/pkg/github"
)

// MockRESTClient is a mock implementation of github.RESTClient
type MockRESTClient struct {
	mock.Mock
}

func (m *MockRESTClient) ListRepositoriesByProperties(ctx context.Context, org string) ([]github.DiscoveredRepo, error) {
	args := m.Called(ctx, org)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]github.DiscoveredRepo), args.Error(1)
}

func (m *MockRESTClient) GetRepository(ctx context.Context, owner, name string) (*github.DiscoveredRepo, error) {
	args := m.Called(ctx, owner, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*github.DiscoveredRepo), args.Error(1)
}

func (m *MockRESTClient) GetRepositorySettings(ctx context.Context, owner, name string) (*github.RepoSettings, error) {
	args := m.Called(ctx, owner, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*github.RepoSettings), args.Error(1)
}

func (m *MockRESTClient) UpdateRepositorySettings(ctx context.Context, owner, name string, patch *github.SettingsPatch) error {
	args := m.Called(ctx, owner, name, patch)
	return args.Error(0)
}

func (m *MockRESTClient) ListLabels(ctx context.Context, owner, name string) ([]github.Label, error) {
	args := m.Called(ctx, owner, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]github.Label), args.Error(1)
}

func (m *MockRESTClient) CreateLabel(ctx context.Context, owner, name string, label github.Label) error {
	args := m.Called(ctx, owner, name, label)
	return args.Error(0)
}

func (m *MockRESTClient) UpdateLabel(ctx context.Context, owner, name, currentName string, label github.Label) error {
	args := m.Called(ctx, owner, name, currentName, label)
	return args.Error(0)
}

func (m *MockRESTClient) DeleteLabel(ctx context.Context, owner, name, labelName string) error {
	args := m.Called(ctx, owner, name, labelName)
	return args.Error(0)
}

func (m *MockRESTClient) ListOpenItems(ctx context.Context, owner, name string, page int) ([]github.Item, int, error) {
	args := m.Called(ctx, owner, name, page)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]github.Item), args.Int(1), args.Error(2)
}

func (m *MockRESTClient) GetQuota(ctx context.Context) (*github.Quota, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*github.Quota), args.Error(1)
}

// MockGraphClient is a mock implementation of github.GraphClient
type MockGraphClient struct {
	mock.Mock
}

func (m *MockGraphClient) ResolveProject(ctx context.Context, owner string, number int) (*github.Project, error) {
	args := m.Called(ctx, owner, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*github.Project), args.Error(1)
}

func (m *MockGraphClient) LinkRepository(ctx context.Context, projectID, repoNodeID string) (bool, error) {
	args := m.Called(ctx, projectID, repoNodeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGraphClient) AddItem(ctx context.Context, projectID, contentNodeID string) (bool, error) {
	args := m.Called(ctx, projectID, contentNodeID)
	return args.Bool(0), args.Error(1)
}

// testLogger returns a logger that discards output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// noSleep replaces the engine's sleep to keep tests fast
func noSleep(ctx context.Context, d time.Duration) {}

func boolPtr(b bool) *bool { return &b }
