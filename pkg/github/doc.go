// Package github provides the GitHub API boundary for silk-sync. It defines
// the REST and GraphQL client interfaces the sync engine consumes, concrete
// implementations over go-github and githubv4, the structured error taxonomy
// shared by all remote operations, token handling, and the advisory dual-pool
// rate limiter.
package github
