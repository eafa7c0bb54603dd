// Package sync orchestrates one synchronization pass over the configured
// forks. For each repository it either fast-forwards the tracked branch to the
// upstream tip or publishes a dated sync branch and opens a pull request, and
// it folds the per-repository outcomes into a run summary.
package sync
