package browser

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/runnerr0/browser-defrag/internal/logging"
)

// ChromiumResolver finds the single Chromium profile root under the XDG
// config directory.
type ChromiumResolver struct{}

// Root returns $XDG_CONFIG_HOME/chromium, falling back to
// $HOME/.config/chromium.
func (r *ChromiumResolver) Root() (string, error) {
	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && xdg != "" {
		return filepath.Join(xdg, "chromium"), nil
	}
	home, err := lookupEnv("HOME")
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "chromium"), nil
}

// ListProfiles returns one unnamed profile rooted at the Chromium config
// directory.
func (r *ChromiumResolver) ListProfiles(cfg Config) ([]*Profile, error) {
	root, err := r.Root()
	if err != nil {
		return nil, err
	}
	logging.L().Debug("chromium profile root", zap.String("path", root))

	profile := &Profile{Path: root}
	scanProfile(profile, cfg)
	return []*Profile{profile}, nil
}
