//go:build tools
// +build tools

// Package tools declares tool dependencies for this module.
//
// These imports are not used at runtime. They keep mockgen, invoked via
// `go generate ./contract/...`, pinned in go.mod so that regenerating the
// mocks on a fresh checkout uses the same version.
package ohtalk

import (
	_ "go.uber.org/mock/mockgen"
)
