//go:build !govips || !cgo

package imagechain_test

import (
	"testing"

	imagechain "github.com/mvarner/imagechain"
	"github.com/mvarner/imagechain/config"
	apperrors "github.com/mvarner/imagechain/errors"
)

// Without the govips build tag the vips backend must fail with a
// dependency error instead of a generic one, so callers can distinguish a
// missing native library from a bad configuration.
func TestSelect_VipsWithoutNativeLibrary(t *testing.T) {
	imagechain.Reset()
	t.Cleanup(imagechain.Reset)

	cfg := config.Default()
	cfg.Backend = config.BackendVips
	_, err := imagechain.Select(cfg)
	if err == nil {
		t.Fatal("expected dependency error")
	}
	if !apperrors.IsCategory(err, apperrors.CategoryDependency) {
		t.Errorf("category: got %v, want dependency", err)
	}
}
