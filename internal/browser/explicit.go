package browser

import (
	"fmt"
	"path/filepath"
)

// ExplicitResolver uses the profile path given in Config, for browsers
// whose layout cannot be discovered.
type ExplicitResolver struct{}

// ListProfiles returns the single profile at cfg.ProfilePath, made absolute.
func (r *ExplicitResolver) ListProfiles(cfg Config) ([]*Profile, error) {
	if cfg.ProfilePath == "" {
		return nil, fmt.Errorf("%w: no profile path given", ErrResolution)
	}
	path, err := filepath.Abs(cfg.ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrResolution, cfg.ProfilePath, err)
	}

	profile := &Profile{Path: path}
	scanProfile(profile, cfg)
	return []*Profile{profile}, nil
}
