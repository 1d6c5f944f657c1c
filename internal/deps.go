//go:build deps
// +build deps

// Package internal anchors module requirements that only generated or
// transitive code imports, so go mod tidy keeps them in the require block.
package internal

import (
	_ "google.golang.org/protobuf/proto"
)
