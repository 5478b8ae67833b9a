package imagechain

import (
	"fmt"
	"strings"
	"sync"

	"github.com/mvarner/imagechain/config"
	"github.com/mvarner/imagechain/core"
	apperrors "github.com/mvarner/imagechain/errors"
	"github.com/mvarner/imagechain/raster"
	"github.com/mvarner/imagechain/vips"
)

var (
	backendMu sync.Mutex
	active    core.Backend
)

// Get returns the process-wide backend, resolving it from the environment
// configuration on first use.
func Get() (core.Backend, error) {
	return Select(config.FromEnv())
}

// Select returns the process-wide backend, resolving it from cfg on first
// use.  The resolution is memoized for the process lifetime; treat the
// choice as immutable afterwards.  Later calls with a different cfg return
// the backend resolved first.
func Select(cfg config.Config) (core.Backend, error) {
	backendMu.Lock()
	defer backendMu.Unlock()
	if active != nil {
		return active, nil
	}
	b, err := resolve(cfg)
	if err != nil {
		return nil, err
	}
	active = b
	return b, nil
}

// Reset clears the memoized backend so the next Get/Select resolves again.
// Test support only.
func Reset() {
	backendMu.Lock()
	active = nil
	backendMu.Unlock()
}

func resolve(cfg config.Config) (core.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case config.BackendRaster, "":
		return raster.New(cfg), nil
	case config.BackendVips:
		return vips.New(cfg)
	default:
		return nil, apperrors.New(apperrors.CategoryConfig, "backend.select",
			fmt.Errorf("%w: %q (valid options: %q, %q)",
				apperrors.ErrUnknownBackend, cfg.Backend,
				config.BackendRaster, config.BackendVips))
	}
}
