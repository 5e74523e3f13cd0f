package versioning

import (
	"cmp"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// tagPattern accepts major.minor with an optional patch and an optional suffix
// that does not start with a digit or a dot.
var tagPattern = regexp.MustCompile(`^v?(\d+)\.(\d+)(?:\.(\d+))?([^\d.].*)?$`)

type versionKey struct {
	version       *semver.Version
	explicitPatch bool
	raw           string
}

// parseKey reports whether s is a version-like tag and returns its sort key.
func parseKey(s string) (versionKey, bool) {
	m := tagPattern.FindStringSubmatch(s)
	if m == nil {
		return versionKey{}, false
	}
	major, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return versionKey{}, false
	}
	minor, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return versionKey{}, false
	}
	var patch uint64
	if m[3] != "" {
		if patch, err = strconv.ParseUint(m[3], 10, 64); err != nil {
			return versionKey{}, false
		}
	}
	pre := strings.TrimLeft(m[4], "-_.+")
	return versionKey{
		version:       semver.New(major, minor, patch, pre, ""),
		explicitPatch: m[3] != "",
		raw:           s,
	}, true
}

// compareKeys orders keys ascending. A missing patch sorts below any explicit
// patch of the same major.minor; suffixes compare as semver prereleases.
func compareKeys(a, b versionKey) int {
	av, bv := a.version, b.version
	if c := cmp.Compare(av.Major(), bv.Major()); c != 0 {
		return c
	}
	if c := cmp.Compare(av.Minor(), bv.Minor()); c != 0 {
		return c
	}
	if a.explicitPatch != b.explicitPatch {
		if a.explicitPatch {
			return 1
		}
		return -1
	}
	if c := av.Compare(bv); c != 0 {
		return c
	}
	return cmp.Compare(a.raw, b.raw)
}

