//go:build tools

package tools

// Mocks are generated with an installed mockery v3 binary (not via go run),
// so no blank import is needed. Run mockery from the repository root; the
// packages and interfaces are listed in .mockery.yaml.
