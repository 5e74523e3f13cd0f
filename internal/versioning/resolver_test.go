package versioning

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docpublish/internal/config"
)

func labels(vs []Version) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Label
	}
	return out
}

func refs(vs []Version) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.SourceRef
	}
	return out
}

func defaultResolver() *Resolver {
	head := Version{SourceRef: config.DefaultHeadRef, Label: config.DefaultHeadLabel}
	return NewResolver(Options{
		Rules: []AliasRule{
			HeadAlias(head, "latest"),
			Correction("v0.8.0-legacy-marker", "v0.8.0 stable"),
		},
	})
}

func TestResolve_EmptyTagSetYieldsHeadOnly(t *testing.T) {
	got := defaultResolver().Resolve(nil)
	require.Len(t, got, 1)
	assert.Equal(t, Version{SourceRef: "main", Label: "prerelease (main branch)"}, got[0])
}

func TestResolve_CorrectionReplacesGenericEntry(t *testing.T) {
	got := defaultResolver().Resolve([]string{"v0.9.0", "v0.10.0", "v0.8.0-legacy-marker", "v0.8.0"})

	want := []Version{
		{SourceRef: "main", Label: "prerelease (main branch)"},
		{SourceRef: "v0.10.0", Label: "v0.10.0 stable"},
		{SourceRef: "v0.9.0", Label: "v0.9.0 stable"},
		{SourceRef: "v0.8.0-legacy-marker", Label: "v0.8.0 stable", IsAlias: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Resolve mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_HeadAliasCollapsesIntoHead(t *testing.T) {
	got := defaultResolver().Resolve([]string{"latest", "v1.0.0"})
	assert.Equal(t, []string{"prerelease (main branch)", "v1.0.0 stable"}, labels(got))
	assert.Equal(t, "main", got[0].SourceRef)
}

func TestResolve_DropsNonVersionTags(t *testing.T) {
	got := defaultResolver().Resolve([]string{"release-candidate", "v1", "1.x", "v1.2.3", "foo-1.2.3", ""})
	assert.Equal(t, []string{"main", "v1.2.3"}, refs(got))
}

func TestResolve_Ordering(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want []string
	}{
		{
			name: "numeric not lexical",
			tags: []string{"v1.2.0", "v1.10.0", "v1.9.1"},
			want: []string{"main", "v1.10.0", "v1.9.1", "v1.2.0"},
		},
		{
			name: "missing patch sorts below explicit patch",
			tags: []string{"v2.0", "v2.0.0", "v2.0.1"},
			want: []string{"main", "v2.0.1", "v2.0.0", "v2.0"},
		},
		{
			name: "release above prerelease suffix",
			tags: []string{"v3.0.0-rc.1", "v3.0.0", "v3.0.0-beta"},
			want: []string{"main", "v3.0.0", "v3.0.0-rc.1", "v3.0.0-beta"},
		},
		{
			name: "optional v prefix",
			tags: []string{"0.1.0", "v0.2.0"},
			want: []string{"main", "v0.2.0", "0.1.0"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewResolver(Options{}).Resolve(tt.tags)
			assert.Equal(t, tt.want, refs(got))
		})
	}
}

func TestResolve_DuplicateTagsCollapse(t *testing.T) {
	got := NewResolver(Options{}).Resolve([]string{"v1.0.0", "v1.0.0", "v0.1.0"})
	assert.Equal(t, []string{"main", "v1.0.0", "v0.1.0"}, refs(got))
}

func TestResolve_FirstMatchingRuleWins(t *testing.T) {
	r := NewResolver(Options{Rules: []AliasRule{
		Correction("v1.0.0", "first"),
		Correction("v1.0.0", "second"),
	}})
	got := r.Resolve([]string{"v1.0.0"})
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[1].Label)
	assert.True(t, got[1].IsAlias)
}

func TestResolve_RuleAcceptsNonVersionTag(t *testing.T) {
	r := NewResolver(Options{Rules: []AliasRule{
		Correction("legacy-docs", "v0.5.0 stable"),
		Correction("nightly-snapshot", "nightly"),
	}})
	got := r.Resolve([]string{"nightly-snapshot", "v0.4.0", "legacy-docs", "v0.6.0"})
	// Keyed by the label when the tag itself does not parse; unparseable labels go last.
	assert.Equal(t, []string{"main", "v0.6.0", "legacy-docs", "v0.4.0", "nightly-snapshot"}, refs(got))
}

func TestResolve_CustomHead(t *testing.T) {
	r := NewResolver(Options{HeadRef: "develop", HeadLabel: "next"})
	got := r.Resolve([]string{"v1.0.0"})
	assert.Equal(t, Version{SourceRef: "develop", Label: "next"}, got[0])
	assert.Equal(t, r.Head(), got[0])
}

func TestResolve_DirCollisionSkipsLaterEntry(t *testing.T) {
	r := NewResolver(Options{Rules: []AliasRule{
		Correction("v1.0.0+a", "one"),
		Correction("v1.0.0 a", "two"),
	}})
	got := r.Resolve([]string{"v1.0.0+a", "v1.0.0 a"})
	dirs := map[string]bool{}
	for _, v := range got {
		assert.False(t, dirs[v.Dir()], "duplicate dir %q", v.Dir())
		dirs[v.Dir()] = true
	}
}

func TestResolve_LabelsUniqueAndHeadFirstUnderPermutation(t *testing.T) {
	tags := []string{
		"v0.9.0", "v0.10.0", "v0.8.0-legacy-marker", "v0.8.0", "latest",
		"v1.0", "v1.0.0", "v1.0.0-rc1", "junk", "2.0.0",
	}
	r := defaultResolver()
	base := r.Resolve(tags)

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 25; i++ {
		perm := append([]string(nil), tags...)
		rng.Shuffle(len(perm), func(a, b int) { perm[a], perm[b] = perm[b], perm[a] })
		got := r.Resolve(perm)

		if diff := cmp.Diff(base, got); diff != "" {
			t.Fatalf("order depends on input permutation %v (-want +got):\n%s", perm, diff)
		}
		assert.Equal(t, r.Head(), got[0])
		seen := map[string]bool{}
		for _, v := range got {
			require.False(t, seen[v.Label], "duplicate label %q", v.Label)
			seen[v.Label] = true
		}
	}
}

func TestNewResolverFromConfig(t *testing.T) {
	cfg := config.Example()
	r := NewResolverFromConfig(cfg)
	got := r.Resolve([]string{"latest", "v0.8.0-legacy-marker"})
	assert.Equal(t, []string{"prerelease (main branch)", "v0.8.0 stable"}, labels(got))
	assert.True(t, got[1].IsAlias)
}

func TestVersionDir(t *testing.T) {
	tests := map[string]string{
		"v1.2.3":          "v1.2.3",
		"feature/x":       "feature-x",
		"..":              "__",
		"":                "_",
		"v1.0.0+build.7":  "v1.0.0-build.7",
		"/leading/slash/": "leading-slash",
	}
	for ref, want := range tests {
		assert.Equal(t, want, Version{SourceRef: ref}.Dir(), ref)
	}
}
