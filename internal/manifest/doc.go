// Package manifest loads the repository manifest that drives a sync run.
//
// The manifest is a YAML document whose repositories mapping associates fork
// names with upstream URLs, tracked branches, and an optional disabled flag.
// Entries are returned in document order so runs process repositories in the
// order operators wrote them.
package manifest
