// Package cli constructs the forksync command-line interface, wiring the
// Cobra command hierarchy, configuration loader, and structured logging
// primitives around the fork synchronization command.
package cli
