package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/savvy-web/silk-sync-action/pkg/config"
	"github.com/savvy-web/silk-sync-action/pkg/github"
)

func trackedRepo(name, nodeID string, number string) github.DiscoveredRepo {
	return github.DiscoveredRepo{
		Owner: "acme", Name: name, FullName: "acme/" + name, NodeID: nodeID,
		Properties: map[string]string{
			PropProjectTracked: "true",
			PropProjectNumber:  number,
		},
	}
}

func TestProjectNumber(t *testing.T) {
	tests := []struct {
		name       string
		properties map[string]string
		wantNumber int
		wantOK     bool
	}{
		{"tracked", map[string]string{PropProjectTracked: "true", PropProjectNumber: "7"}, 7, true},
		{"tracked uppercase", map[string]string{PropProjectTracked: "True", PropProjectNumber: "7"}, 7, true},
		{"not tracked", map[string]string{PropProjectNumber: "7"}, 0, false},
		{"tracked false", map[string]string{PropProjectTracked: "false", PropProjectNumber: "7"}, 0, false},
		{"missing number", map[string]string{PropProjectTracked: "true"}, 0, false},
		{"non-numeric", map[string]string{PropProjectTracked: "true", PropProjectNumber: "board-7"}, 0, false},
		{"zero", map[string]string{PropProjectTracked: "true", PropProjectNumber: "0"}, 0, false},
		{"no properties", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			number, ok := projectNumber(github.DiscoveredRepo{Properties: tt.properties})
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantNumber, number)
		})
	}
}

func TestProjectCache_ResolvesOnce(t *testing.T) {
	mockGraph := new(MockGraphClient)
	mockGraph.On("ResolveProject", mock.Anything, "acme", 7).
		Return(&github.Project{ID: "P_1", Number: 7, Title: "Fleet"}, nil).Once()

	cache := newProjectCache()
	ctx := context.Background()

	// Three repositories reference the same project; one remote call.
	for i := 0; i < 3; i++ {
		entry := cache.resolve(ctx, mockGraph, "acme", 7)
		require.True(t, entry.resolved())
		assert.Equal(t, "P_1", entry.project.ID)
	}

	assert.Equal(t, 1, cache.resolveCalls)
	mockGraph.AssertExpectations(t)
}

func TestProjectCache_FailureIsMemoized(t *testing.T) {
	mockGraph := new(MockGraphClient)
	mockGraph.On("ResolveProject", mock.Anything, "acme", 9).
		Return(nil, errors.New("project not found")).Once()

	cache := newProjectCache()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		entry := cache.resolve(ctx, mockGraph, "acme", 9)
		assert.False(t, entry.resolved())
		assert.Contains(t, entry.reason, "not found")
	}

	assert.Equal(t, 1, cache.resolveCalls)
	mockGraph.AssertExpectations(t)
}

func TestProjectCache_ClosedProjectIsFailure(t *testing.T) {
	mockGraph := new(MockGraphClient)
	mockGraph.On("ResolveProject", mock.Anything, "acme", 4).
		Return(&github.Project{ID: "P_4", Number: 4, Title: "Archive", Closed: true}, nil).Once()

	cache := newProjectCache()
	entry := cache.resolve(context.Background(), mockGraph, "acme", 4)

	assert.False(t, entry.resolved())
	assert.Contains(t, entry.reason, "closed")
}

func newProjectEngine(rest github.RESTClient, graph github.GraphClient, opts Options) *Engine {
	opts.SyncProjects = true
	e := New(rest, graph, nil, &config.DesiredConfig{}, opts, testLogger())
	e.sleep = noSleep
	return e
}

func TestSyncProject_LinksAndBackfills(t *testing.T) {
	mockREST := new(MockRESTClient)
	mockGraph := new(MockGraphClient)
	repo := trackedRepo("widget", "R_1", "7")

	mockGraph.On("ResolveProject", mock.Anything, "acme", 7).
		Return(&github.Project{ID: "P_1", Number: 7, Title: "Fleet"}, nil).Once()
	mockGraph.On("LinkRepository", mock.Anything, "P_1", "R_1").Return(false, nil)
	mockREST.On("ListOpenItems", mock.Anything, "acme", "widget", 1).Return([]github.Item{
		{NodeID: "I_1", Number: 1},
		{NodeID: "I_2", Number: 2},
	}, 0, nil)
	mockGraph.On("AddItem", mock.Anything, "P_1", "I_1").Return(false, nil)
	mockGraph.On("AddItem", mock.Anything, "P_1", "I_2").Return(true, nil)

	e := newProjectEngine(mockREST, mockGraph, Options{Org: "acme"})
	e.resolveProjects(context.Background(), []github.DiscoveredRepo{repo})

	result := SyncResult{Repo: repo.FullName}
	e.syncProject(context.Background(), repo, 7, &result)

	require.NotNil(t, result.Project)
	assert.Equal(t, LinkLinked, result.Project.Status)
	assert.Equal(t, 1, result.Project.BackfillAdded)
	assert.Equal(t, 1, result.Project.BackfillPresent)
	assert.Empty(t, result.Errors)
	mockGraph.AssertExpectations(t)
	mockREST.AssertExpectations(t)
}

func TestSyncProject_AlreadyLinkedStillBackfills(t *testing.T) {
	mockREST := new(MockRESTClient)
	mockGraph := new(MockGraphClient)
	repo := trackedRepo("widget", "R_1", "7")

	mockGraph.On("ResolveProject", mock.Anything, "acme", 7).
		Return(&github.Project{ID: "P_1", Number: 7}, nil).Once()
	mockGraph.On("LinkRepository", mock.Anything, "P_1", "R_1").Return(true, nil)
	mockREST.On("ListOpenItems", mock.Anything, "acme", "widget", 1).
		Return([]github.Item{}, 0, nil)

	e := newProjectEngine(mockREST, mockGraph, Options{Org: "acme"})
	e.resolveProjects(context.Background(), []github.DiscoveredRepo{repo})

	result := SyncResult{Repo: repo.FullName}
	e.syncProject(context.Background(), repo, 7, &result)

	assert.Equal(t, LinkAlready, result.Project.Status)
	mockREST.AssertExpectations(t)
}

func TestSyncProject_UnresolvedIsSkipped(t *testing.T) {
	mockREST := new(MockRESTClient)
	mockGraph := new(MockGraphClient)
	repo := trackedRepo("widget", "R_1", "9")

	mockGraph.On("ResolveProject", mock.Anything, "acme", 9).
		Return(nil, errors.New("project not found")).Once()

	e := newProjectEngine(mockREST, mockGraph, Options{Org: "acme"})
	e.resolveProjects(context.Background(), []github.DiscoveredRepo{repo})

	result := SyncResult{Repo: repo.FullName}
	e.syncProject(context.Background(), repo, 9, &result)

	assert.Equal(t, LinkSkipped, result.Project.Status)
	assert.Contains(t, result.Project.Reason, "not found")
	// An unresolvable project skips linking without failing the repository.
	assert.Empty(t, result.Errors)
	mockGraph.AssertNotCalled(t, "LinkRepository", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncProject_LinkErrorSkipsBackfill(t *testing.T) {
	mockREST := new(MockRESTClient)
	mockGraph := new(MockGraphClient)
	repo := trackedRepo("widget", "R_1", "7")

	mockGraph.On("ResolveProject", mock.Anything, "acme", 7).
		Return(&github.Project{ID: "P_1", Number: 7}, nil).Once()
	mockGraph.On("LinkRepository", mock.Anything, "P_1", "R_1").
		Return(false, errors.New("forbidden"))

	e := newProjectEngine(mockREST, mockGraph, Options{Org: "acme"})
	e.resolveProjects(context.Background(), []github.DiscoveredRepo{repo})

	result := SyncResult{Repo: repo.FullName}
	e.syncProject(context.Background(), repo, 7, &result)

	assert.Equal(t, LinkError, result.Project.Status)
	require.Len(t, result.Errors, 1)
	mockREST.AssertNotCalled(t, "ListOpenItems",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncProject_DryRunCountsIntendedAdds(t *testing.T) {
	mockREST := new(MockRESTClient)
	mockGraph := new(MockGraphClient)
	repo := trackedRepo("widget", "R_1", "7")

	mockGraph.On("ResolveProject", mock.Anything, "acme", 7).
		Return(&github.Project{ID: "P_1", Number: 7}, nil).Once()
	mockREST.On("ListOpenItems", mock.Anything, "acme", "widget", 1).Return([]github.Item{
		{NodeID: "I_1", Number: 1},
	}, 0, nil)

	e := newProjectEngine(mockREST, mockGraph, Options{Org: "acme", DryRun: true})
	e.resolveProjects(context.Background(), []github.DiscoveredRepo{repo})

	result := SyncResult{Repo: repo.FullName}
	e.syncProject(context.Background(), repo, 7, &result)

	assert.Equal(t, LinkDryRun, result.Project.Status)
	assert.Equal(t, 1, result.Project.BackfillAdded)
	mockGraph.AssertNotCalled(t, "LinkRepository", mock.Anything, mock.Anything, mock.Anything)
	mockGraph.AssertNotCalled(t, "AddItem", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncProject_SkipBackfill(t *testing.T) {
	mockREST := new(MockRESTClient)
	mockGraph := new(MockGraphClient)
	repo := trackedRepo("widget", "R_1", "7")

	mockGraph.On("ResolveProject", mock.Anything, "acme", 7).
		Return(&github.Project{ID: "P_1", Number: 7}, nil).Once()
	mockGraph.On("LinkRepository", mock.Anything, "P_1", "R_1").Return(false, nil)

	e := newProjectEngine(mockREST, mockGraph, Options{Org: "acme", SkipBackfill: true})
	e.resolveProjects(context.Background(), []github.DiscoveredRepo{repo})

	result := SyncResult{Repo: repo.FullName}
	e.syncProject(context.Background(), repo, 7, &result)

	assert.Equal(t, LinkLinked, result.Project.Status)
	mockREST.AssertNotCalled(t, "ListOpenItems",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBackfill_PacesItemsAndChecksSecondaryEveryFifthPage(t *testing.T) {
	mockREST := new(MockRESTClient)
	mockGraph := new(MockGraphClient)
	repo := trackedRepo("widget", "R_1", "7")
	project := &github.Project{ID: "P_1", Number: 7}

	for page := 1; page <= 6; page++ {
		next := page + 1
		if page == 6 {
			next = 0
		}
		nodeID := fmt.Sprintf("I_%d", page)
		mockREST.On("ListOpenItems", mock.Anything, "acme", "widget", page).
			Return([]github.Item{{NodeID: nodeID, Number: page}}, next, nil)
		mockGraph.On("AddItem", mock.Anything, "P_1", nodeID).Return(false, nil)
	}
	mockREST.On("GetQuota", mock.Anything).
		Return(&github.Quota{GraphQLRemaining: 4000}, nil)

	limiter := github.NewRateLimiter(mockREST, nil, testLogger())
	e := New(mockREST, mockGraph, limiter, &config.DesiredConfig{},
		Options{Org: "acme", SyncProjects: true}, testLogger())

	itemDelays := 0
	e.sleep = func(ctx context.Context, d time.Duration) {
		if d == backfillItemDelay {
			itemDelays++
		}
	}

	result := SyncResult{Repo: repo.FullName}
	outcome := &ProjectOutcome{Number: 7}
	e.backfill(context.Background(), repo, project, outcome, &result)

	assert.Equal(t, 6, outcome.BackfillAdded)
	assert.Empty(t, result.Errors)
	// Every item after the first is preceded by the fixed pacing delay.
	assert.Equal(t, 5, itemDelays)
	// The GraphQL pool is checked once, after the fifth page.
	mockREST.AssertNumberOfCalls(t, "GetQuota", 1)
	mockREST.AssertExpectations(t)
	mockGraph.AssertExpectations(t)
}

func TestBackfill_PaginatesAndAccumulatesItemErrors(t *testing.T) {
	mockREST := new(MockRESTClient)
	mockGraph := new(MockGraphClient)
	repo := trackedRepo("widget", "R_1", "7")
	project := &github.Project{ID: "P_1", Number: 7}

	mockREST.On("ListOpenItems", mock.Anything, "acme", "widget", 1).Return([]github.Item{
		{NodeID: "I_1", Number: 1},
	}, 2, nil)
	mockREST.On("ListOpenItems", mock.Anything, "acme", "widget", 2).Return([]github.Item{
		{NodeID: "I_2", Number: 2},
	}, 0, nil)
	mockGraph.On("AddItem", mock.Anything, "P_1", "I_1").Return(false, errors.New("boom"))
	mockGraph.On("AddItem", mock.Anything, "P_1", "I_2").Return(false, nil)

	e := newProjectEngine(mockREST, mockGraph, Options{Org: "acme"})

	result := SyncResult{Repo: repo.FullName}
	outcome := &ProjectOutcome{Number: 7}
	e.backfill(context.Background(), repo, project, outcome, &result)

	assert.Equal(t, 1, outcome.BackfillAdded)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "acme/widget#1", result.Errors[0].Target)
	mockREST.AssertExpectations(t)
	mockGraph.AssertExpectations(t)
}
