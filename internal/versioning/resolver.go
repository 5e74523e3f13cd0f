package versioning

import (
	"log/slog"
	"slices"
	"strings"

	"git.home.luguber.info/inful/docpublish/internal/config"
	"git.home.luguber.info/inful/docpublish/internal/logfields"
)

// StableSuffix is appended to a tag to form its default label.
const StableSuffix = " stable"

// Options configures a Resolver.
type Options struct {
	HeadRef   string
	HeadLabel string
	Rules     []AliasRule
}

// Resolver maps raw tags to the ordered list of versions to publish.
type Resolver struct {
	head  Version
	rules []AliasRule
}

// NewResolver creates a resolver. Empty head fields fall back to the config defaults.
func NewResolver(opts Options) *Resolver {
	head := Version{SourceRef: opts.HeadRef, Label: opts.HeadLabel}
	if head.SourceRef == "" {
		head.SourceRef = config.DefaultHeadRef
	}
	if head.Label == "" {
		head.Label = config.DefaultHeadLabel
	}
	return &Resolver{head: head, rules: slices.Clone(opts.Rules)}
}

// NewResolverFromConfig wires head settings and alias rules from configuration.
func NewResolverFromConfig(cfg *config.Config) *Resolver {
	head := Version{SourceRef: cfg.Head.Ref, Label: cfg.Head.Label}
	return NewResolver(Options{
		HeadRef:   head.SourceRef,
		HeadLabel: head.Label,
		Rules:     RulesFromConfig(cfg.Aliases, head),
	})
}

// Head returns the synthetic development-head version.
func (r *Resolver) Head() Version { return r.head }

type candidate struct {
	version Version
	key     versionKey
	keyed   bool
}

// Resolve returns the head first, then one version per qualifying tag in
// descending version order. Labels and output directories are unique in the result.
func (r *Resolver) Resolve(tags []string) []Version {
	candidates := make([]candidate, 0, len(tags))
	seenTags := make(map[string]bool, len(tags))
	for _, tag := range tags {
		if tag == "" || seenTags[tag] {
			continue
		}
		seenTags[tag] = true
		if c, ok := r.candidateFor(tag); ok {
			candidates = append(candidates, c)
		}
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		switch {
		case a.keyed && b.keyed:
			return compareKeys(b.key, a.key)
		case a.keyed:
			return -1
		case b.keyed:
			return 1
		default:
			return strings.Compare(a.version.SourceRef, b.version.SourceRef)
		}
	})

	out := []Version{r.head}
	byLabel := map[string]int{r.head.Label: 0}
	byDir := map[string]int{r.head.Dir(): 0}
	for _, c := range candidates {
		v := c.version
		if i, dup := byLabel[v.Label]; dup {
			// An alias replaces a generic entry in place; everything else collapses into the first.
			if j, taken := byDir[v.Dir()]; v.IsAlias && !out[i].IsAlias && i != 0 && (!taken || j == i) {
				delete(byDir, out[i].Dir())
				out[i] = v
				byDir[v.Dir()] = i
				slog.Debug("Alias replaced generic version", logfields.Label(v.Label), logfields.Ref(v.SourceRef))
				continue
			}
			slog.Debug("Collapsed duplicate version label", logfields.Label(v.Label), logfields.Ref(v.SourceRef))
			continue
		}
		if _, dup := byDir[v.Dir()]; dup {
			slog.Warn("Skipping version whose output directory is already taken", logfields.Ref(v.SourceRef), logfields.Dir(v.Dir()))
			continue
		}
		byLabel[v.Label] = len(out)
		byDir[v.Dir()] = len(out)
		out = append(out, v)
	}
	return out
}

func (r *Resolver) candidateFor(tag string) (candidate, bool) {
	for _, rule := range r.rules {
		if !rule.Match(tag) {
			continue
		}
		v := rule.Rewrite(tag)
		key, ok := parseKey(tag)
		if !ok {
			key, ok = parseKey(firstField(v.Label))
		}
		return candidate{version: v, key: key, keyed: ok}, true
	}
	key, ok := parseKey(tag)
	if !ok {
		slog.Debug("Ignoring non-version tag", logfields.Ref(tag))
		return candidate{}, false
	}
	return candidate{version: Version{SourceRef: tag, Label: tag + StableSuffix}, key: key, keyed: true}, true
}

func firstField(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}
