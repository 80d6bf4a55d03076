// Package sync implements the convergence engine: it discovers target
// repositories, diffs their observed labels, settings and project linkage
// against the desired configuration, and applies the minimal set of changes.
// All processing is strictly sequential and errors accumulate per repository
// rather than aborting the run.
package sync
