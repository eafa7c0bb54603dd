// Package githubauth resolves GitHub credentials and repository ownership from
// the environment.
package githubauth
