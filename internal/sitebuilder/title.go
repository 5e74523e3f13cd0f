package sitebuilder

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RewriteTitle sets key in the YAML document at path to "<original> (<label>)",
// or to label when the key is absent or empty. Other content, comments and key
// order are preserved.
func RewriteTitle(path, key, label string) error {
	// #nosec G304 -- path is inside a worktree we created
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read build config: %w", err)
	}
	out, err := rewriteTitle(data, key, label)
	if err != nil {
		return fmt.Errorf("rewrite %s in %s: %w", key, path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat build config: %w", err)
	}
	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return fmt.Errorf("write build config: %w", err)
	}
	return nil
}

func rewriteTitle(data []byte, key, label string) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		// Empty file.
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level is not a mapping")
	}
	root := doc.Content[0]

	var value *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == key {
			value = root.Content[i+1]
			break
		}
	}
	switch {
	case value == nil:
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: label},
		)
	case value.Kind != yaml.ScalarNode:
		return nil, fmt.Errorf("key %q is not a scalar", key)
	case value.Value == "":
		value.Value, value.Tag, value.Style = label, "!!str", 0
	default:
		value.Value = fmt.Sprintf("%s (%s)", value.Value, label)
		value.Tag = "!!str"
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
