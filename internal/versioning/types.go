package versioning

import (
	"regexp"
	"strings"
)

// Version is one publishable documentation snapshot.
type Version struct {
	SourceRef string `json:"source_ref"` // ref checked out to build this version
	Label     string `json:"label"`      // user-facing name shown in the index
	IsAlias   bool   `json:"is_alias"`   // produced by a correction rule
}

var unsafeDirChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Dir returns the output subdirectory name for this version, derived from SourceRef.
func (v Version) Dir() string {
	dir := unsafeDirChars.ReplaceAllString(v.SourceRef, "-")
	dir = strings.Trim(dir, "-")
	if strings.Trim(dir, ".") == "" {
		// "", "." and ".." would escape or alias the output root.
		return strings.Repeat("_", max(len(dir), 1))
	}
	return dir
}

// String implements fmt.Stringer.
func (v Version) String() string {
	if v.IsAlias {
		return v.Label + " (" + v.SourceRef + ", alias)"
	}
	return v.Label + " (" + v.SourceRef + ")"
}
