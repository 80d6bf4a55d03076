package github

import "time"

// DiscoveredRepo represents a repository found during discovery. The Properties
// map carries the organization custom property values attached to the
// repository; it is the richer of the two discovery sources when a repository
// is found both ways.
type DiscoveredRepo struct {
	Owner      string            `json:"owner"`
	Name       string            `json:"name"`
	FullName   string            `json:"full_name"`
	NodeID     string            `json:"node_id"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Label represents a repository label as observed or desired.
type Label struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Color       string `json:"color" yaml:"color"`
}

// RepoSettings is a snapshot of the syncable repository settings taken at the
// start of a repository's processing and discarded after diffing.
type RepoSettings struct {
	HasIssues           bool `json:"has_issues"`
	HasWiki             bool `json:"has_wiki"`
	HasProjects         bool `json:"has_projects"`
	HasDiscussions      bool `json:"has_discussions"`
	AllowSquashMerge    bool `json:"allow_squash_merge"`
	AllowMergeCommit    bool `json:"allow_merge_commit"`
	AllowRebaseMerge    bool `json:"allow_rebase_merge"`
	DeleteBranchOnMerge bool `json:"delete_branch_on_merge"`
	AllowAutoMerge      bool `json:"allow_auto_merge"`
}

// SettingsPatch carries only the settings keys that should change. Nil fields
// are left untouched by the update call.
type SettingsPatch struct {
	HasIssues           *bool
	HasWiki             *bool
	HasProjects         *bool
	HasDiscussions      *bool
	AllowSquashMerge    *bool
	AllowMergeCommit    *bool
	AllowRebaseMerge    *bool
	DeleteBranchOnMerge *bool
	AllowAutoMerge      *bool
}

// IsEmpty reports whether the patch carries no changes.
func (p *SettingsPatch) IsEmpty() bool {
	return p.HasIssues == nil && p.HasWiki == nil && p.HasProjects == nil &&
		p.HasDiscussions == nil && p.AllowSquashMerge == nil &&
		p.AllowMergeCommit == nil && p.AllowRebaseMerge == nil &&
		p.DeleteBranchOnMerge == nil && p.AllowAutoMerge == nil
}

// Project represents a resolved ProjectV2 board.
type Project struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Title  string `json:"title"`
	Closed bool   `json:"closed"`
}

// Item is an open issue or pull request eligible for project backfill.
type Item struct {
	NodeID        string `json:"node_id"`
	Number        int    `json:"number"`
	Title         string `json:"title"`
	IsPullRequest bool   `json:"is_pull_request"`
}

// Quota reports remaining API budget for the two independent pools.
type Quota struct {
	RESTRemaining    int       `json:"rest_remaining"`
	RESTReset        time.Time `json:"rest_reset"`
	GraphQLRemaining int       `json:"graphql_remaining"`
	GraphQLReset     time.Time `json:"graphql_reset"`
}
