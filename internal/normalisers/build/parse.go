package build

import (
	"regexp"
	"strings"
)

var (
	toyPattern         = regexp.MustCompile(`_toy-([^-]+)-`)
	fullVersionPattern = regexp.MustCompile(`([^-_]+-[^-]+)-[^-]+\.[^.]+$`)
	versionPattern     = regexp.MustCompile(`^([^-]+)-`)
)

// Operating systems recognised from artifact names.
const (
	OSWindows     = "Windows"
	OSMacOSX      = "Mac OS X"
	OSCentOS5     = "CentOS 5"
	OSCentOS6     = "CentOS 6"
	OSUbuntu1004  = "Ubuntu 10.04"
	OSUbuntu1204  = "Ubuntu 12.04"
	centos6Marker = "centos6"
	ubuntuMarker  = "ubuntu_1204"
)

// ParseFilename returns the path segment after the last "/".
// Fails when id has no separator or ends with one.
func ParseFilename(id string) (string, bool) {
	i := strings.LastIndex(id, "/")
	if i < 0 || i == len(id)-1 {
		return "", false
	}
	return id[i+1:], true
}

// ParseExtension returns the suffix after the last ".".
func ParseExtension(filename string) (string, bool) {
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return "", false
	}
	return filename[i+1:], true
}

// ClassifyOS derives the operating system from the extension, using
// distribution markers in the filename for rpm and deb packages.
// A marker only counts when it does not start the filename.
func ClassifyOS(ext, filename string) (string, bool) {
	switch ext {
	case "exe":
		return OSWindows, true
	case "zip":
		return OSMacOSX, true
	case "rpm":
		if strings.Index(filename, centos6Marker) > 0 {
			return OSCentOS6, true
		}
		return OSCentOS5, true
	case "deb":
		if strings.Index(filename, ubuntuMarker) > 0 {
			return OSUbuntu1204, true
		}
		return OSUbuntu1004, true
	default:
		return "", false
	}
}

// ParseToyVariant returns the experimental build marker ("_toy-<name>-").
func ParseToyVariant(filename string) (string, bool) {
	return capture(toyPattern, filename)
}

// ParseFullVersion returns the version and build number from the trailing
// "<version>-<build>-<tag>.<ext>" part of a filename.
func ParseFullVersion(filename string) (string, bool) {
	return capture(fullVersionPattern, filename)
}

// ParseVersion returns the release version, the part of a full version
// before the first "-".
func ParseVersion(fullVersion string) (string, bool) {
	return capture(versionPattern, fullVersion)
}

func capture(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}
