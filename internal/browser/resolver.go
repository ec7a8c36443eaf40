package browser

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrResolution is returned when a browser's profile location cannot be
// determined: a required environment variable is missing, the profile
// manifest is missing or unreadable, or no explicit path was given.
var ErrResolution = errors.New("cannot resolve profile location")

// Resolver lists the profiles of one browser family, with their database
// files already discovered.
type Resolver interface {
	ListProfiles(cfg Config) ([]*Profile, error)
}

// Kind selects a browser family.
type Kind int

const (
	KindUnknown Kind = iota
	KindFirefox
	KindChromium
)

// DisplayName is the name shown in reports and matched against running
// processes.
func (k Kind) DisplayName() string {
	switch k {
	case KindFirefox:
		return "Firefox"
	case KindChromium:
		return "Chromium"
	default:
		return "Unknown"
	}
}

func (k Kind) String() string {
	return strings.ToLower(k.DisplayName())
}

// ParseKind maps a case-insensitive browser name to its Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "firefox":
		return KindFirefox, nil
	case "chromium":
		return KindChromium, nil
	case "unknown":
		return KindUnknown, nil
	default:
		return KindUnknown, fmt.Errorf("unsupported browser %q (use firefox, chromium, or unknown)", name)
	}
}

// NewResolver returns the profile resolver for kind.
func NewResolver(kind Kind) Resolver {
	switch kind {
	case KindFirefox:
		return &FirefoxResolver{}
	case KindChromium:
		return &ChromiumResolver{}
	default:
		return &ExplicitResolver{}
	}
}

// lookupEnv returns the value of a required environment variable.
func lookupEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set", ErrResolution, key)
	}
	return v, nil
}
