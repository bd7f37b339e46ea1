//go:build tools
// +build tools

// Package tools documents development tool dependencies that are installed
// globally rather than tracked in go.mod. Mock generation is the exception:
// mockgen runs via `go run go.uber.org/mock/mockgen` (see internal/mocks), so
// it is pinned by go.mod like any other dependency.
package tools

// Install via `go install`:
//
// golangci-lint - lint aggregator backing the //nolint directives in this repo
//   Install: go install github.com/golangci/golangci-lint/cmd/golangci-lint@v1.64.8
//
// Air - live reload during local development
//   Install: go install github.com/air-verse/air@v1.63.0
