package browser

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/ini.v1"

	"github.com/runnerr0/browser-defrag/internal/logging"
)

// ManifestName is the profile manifest Firefox keeps in its profile root.
const ManifestName = "profiles.ini"

// FirefoxResolver reads the Firefox profile manifest. See
// https://kb.mozillazine.org/Profiles.ini_file.
type FirefoxResolver struct{}

// Root returns $HOME/.mozilla/firefox.
func (r *FirefoxResolver) Root() (string, error) {
	home, err := lookupEnv("HOME")
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".mozilla", "firefox"), nil
}

// ListProfiles loads every profile named in profiles.ini and scans each one.
func (r *FirefoxResolver) ListProfiles(cfg Config) ([]*Profile, error) {
	root, err := r.Root()
	if err != nil {
		return nil, err
	}

	manifest := filepath.Join(root, ManifestName)
	logging.L().Debug("firefox profile manifest", zap.String("path", manifest))

	profiles, err := LoadProfiles(manifest)
	if err != nil {
		return nil, err
	}

	for _, p := range profiles {
		scanProfile(p, cfg)
	}
	return profiles, nil
}

// LoadProfiles parses a profiles.ini manifest. Sections Profile0, Profile1,
// ... are read in order until the first missing index. A section lacking
// Name, Path, or a boolean IsRelative is skipped with a warning. Relative
// paths are joined to the manifest's directory.
func LoadProfiles(manifest string) ([]*Profile, error) {
	if _, err := os.Stat(manifest); err != nil {
		return nil, fmt.Errorf("%w: profile manifest %s: %w", ErrResolution, manifest, err)
	}

	// Section and key names are matched case-insensitively, as Firefox does.
	// Firefox has no inline comments, so '#' and ';' stay part of the value.
	file, err := ini.LoadSources(ini.LoadOptions{Insensitive: true, IgnoreInlineComment: true}, manifest)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrResolution, manifest, err)
	}

	root := filepath.Dir(manifest)
	var profiles []*Profile

	for index := 0; ; index++ {
		name := fmt.Sprintf("Profile%d", index)
		section, err := file.GetSection(name)
		if err != nil {
			break
		}

		profile, err := profileFromSection(section, root)
		if err != nil {
			logging.L().Warn("skipping profile section",
				zap.String("section", name),
				zap.String("manifest", manifest),
				zap.Error(err),
			)
			continue
		}
		profiles = append(profiles, profile)
	}

	return profiles, nil
}

func profileFromSection(section *ini.Section, root string) (*Profile, error) {
	if !section.HasKey("Name") {
		return nil, fmt.Errorf("missing Name")
	}
	if !section.HasKey("IsRelative") {
		return nil, fmt.Errorf("missing IsRelative")
	}
	isRelative, err := section.Key("IsRelative").Bool()
	if err != nil {
		return nil, fmt.Errorf("invalid IsRelative: %w", err)
	}
	path := section.Key("Path").String()
	if path == "" {
		return nil, fmt.Errorf("missing Path")
	}

	if isRelative {
		path = filepath.Join(root, path)
	}

	return &Profile{
		Name: section.Key("Name").String(),
		Path: path,
	}, nil
}
