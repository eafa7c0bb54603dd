// Package gitrepo contains helpers for interrogating and manipulating Git repositories.
//
// It exposes RepositoryManager for preparing fork working copies, maintaining
// remotes, evaluating fast-forward eligibility, and publishing sync branches,
// along with remote URL utilities: parsing validates manifest upstream URLs
// before any git invocation, and formatting builds fork origin URLs for the
// sync orchestrator.
package gitrepo
