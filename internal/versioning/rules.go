package versioning

import (
	"slices"

	"git.home.luguber.info/inful/docpublish/internal/config"
)

// AliasRule rewrites tags that the generic "<tag> stable" mapping gets wrong.
// Rules are evaluated in order before the fallback; the first match wins.
type AliasRule struct {
	Name    string
	Match   func(tag string) bool
	Rewrite func(tag string) Version
}

// HeadAlias maps legacy tags that denote the development line onto the head version.
func HeadAlias(head Version, tags ...string) AliasRule {
	tags = slices.Clone(tags)
	return AliasRule{
		Name:    "head-alias",
		Match:   func(tag string) bool { return slices.Contains(tags, tag) },
		Rewrite: func(string) Version { return head },
	}
}

// Correction republishes one exact tag under a corrected label.
func Correction(tag, label string) AliasRule {
	return AliasRule{
		Name:  "correction:" + tag,
		Match: func(t string) bool { return t == tag },
		Rewrite: func(t string) Version {
			return Version{SourceRef: t, Label: label, IsAlias: true}
		},
	}
}

// RulesFromConfig builds the configured exception list: head aliases first, then corrections.
func RulesFromConfig(aliases config.AliasConfig, head Version) []AliasRule {
	var rules []AliasRule
	if len(aliases.HeadTags) > 0 {
		rules = append(rules, HeadAlias(head, aliases.HeadTags...))
	}
	for _, c := range aliases.Corrections {
		rules = append(rules, Correction(c.Tag, c.Label))
	}
	return rules
}
