package commands

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"git.home.luguber.info/inful/docpublish/internal/config"
	"git.home.luguber.info/inful/docpublish/internal/git"
	"git.home.luguber.info/inful/docpublish/internal/publish"
	"git.home.luguber.info/inful/docpublish/internal/versioning"
)

// VersionsCmd implements the 'versions' command.
type VersionsCmd struct{}

func (v *VersionsCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	return RunVersions(os.Stdout, cfg)
}

// RunVersions prints the resolved versions and whether each is listed in the
// index currently committed on the output branch.
func RunVersions(w io.Writer, cfg *config.Config) error {
	tags, err := git.NewTagCatalog(cfg.Repository).List()
	if err != nil {
		return err
	}
	versions := versioning.NewResolverFromConfig(cfg).Resolve(tags)

	published, err := publishedDirs(cfg)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"#", "Label", "Ref", "Dir", "Alias", "Published"})
	for i, v := range versions {
		t.AppendRow(table.Row{i + 1, v.Label, v.SourceRef, v.Dir(), yesNo(v.IsAlias), yesNo(published[v.Dir()])})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d versions", len(versions)), "", "", "", fmt.Sprintf("%d published", countTrue(published, versions))})
	t.Render()
	return nil
}

func publishedDirs(cfg *config.Config) (map[string]bool, error) {
	content, found, err := git.ReadBranchFile(cfg.Repository, cfg.Output.Branch, cfg.Index.File)
	if err != nil || !found {
		return map[string]bool{}, err
	}
	entries, err := publish.ParseIndex(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	dirs := make(map[string]bool, len(entries))
	for _, e := range entries {
		dirs[e.Dir] = true
	}
	return dirs, nil
}

func countTrue(published map[string]bool, versions []versioning.Version) int {
	n := 0
	for _, v := range versions {
		if published[v.Dir()] {
			n++
		}
	}
	return n
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
