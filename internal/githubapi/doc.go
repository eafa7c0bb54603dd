// Package githubapi provides the authenticated hosting provider client used
// to open and discover fork synchronization pull requests.
package githubapi
