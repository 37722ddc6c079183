// Package version reports the build version stamped at link time.
package version

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Version is set with -ldflags "-X github.com/infusio/infusio/internal/shared/version.Version=v1.2.3".
var Version = "dev"

// Normalize ensures version string has "v" prefix for semver compatibility.
// Examples: "1.2.3" -> "v1.2.3", "v1.2.3" -> "v1.2.3"
func Normalize(version string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		return ""
	}
	if !strings.HasPrefix(version, "v") {
		return "v" + version
	}
	return version
}

// Current returns the running version, normalized when it is valid semver.
func Current() string {
	if v := Normalize(Version); semver.IsValid(v) {
		return semver.Canonical(v)
	}
	if Version == "" {
		return "dev"
	}
	return Version
}

// IsRelease reports whether the binary was built from a release version
// rather than a development or prerelease build.
func IsRelease() bool {
	v := Normalize(Version)
	return semver.IsValid(v) && semver.Prerelease(v) == ""
}
