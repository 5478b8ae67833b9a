//go:build !govips || !cgo

// Package vips implements the lazy pipeline engine on libvips via govips.
// This stub is compiled when the govips build tag (and cgo) is absent;
// selecting the vips backend then fails with a dependency error.
package vips

import (
	"errors"

	"github.com/mvarner/imagechain/config"
	"github.com/mvarner/imagechain/core"
	apperrors "github.com/mvarner/imagechain/errors"
)

// New reports that the native library is not compiled into this binary.
func New(config.Config) (core.Backend, error) {
	return nil, apperrors.New(apperrors.CategoryDependency, "vips.new",
		errors.New("libvips support not built; compile with -tags govips and cgo enabled"))
}

// Shutdown is a no-op without libvips.
func Shutdown() {}
