package publish

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/docpublish/internal/config"
	ferrors "git.home.luguber.info/inful/docpublish/internal/foundation/errors"
	"git.home.luguber.info/inful/docpublish/internal/logfields"
)

const versionsClass = "versions"

// IndexOptions configures the manifest page.
type IndexOptions struct {
	File  string
	Title string
	Intro string // Markdown
}

// IndexOptionsFromConfig maps the index section of the configuration.
func IndexOptionsFromConfig(cfg config.IndexConfig) IndexOptions {
	return IndexOptions{File: cfg.File, Title: cfg.Title, Intro: cfg.Intro}
}

// IndexEntry is one published version listed on the manifest page.
type IndexEntry struct {
	Label string
	Href  string
	Dir   string
}

// IndexComposer writes the manifest page at the root of the output worktree
// while versions are built, one list entry per successful build.
type IndexComposer struct {
	path  string
	opts  IndexOptions
	intro string
	f     *os.File
	w     *bufio.Writer
}

// NewIndexComposer renders the intro once and prepares the page path.
func NewIndexComposer(outputDir string, opts IndexOptions) (*IndexComposer, error) {
	if opts.File == "" {
		opts.File = config.DefaultIndexFile
	}
	if opts.Title == "" {
		opts.Title = config.DefaultIndexTitle
	}
	c := &IndexComposer{path: filepath.Join(outputDir, opts.File), opts: opts}
	if strings.TrimSpace(opts.Intro) != "" {
		var buf bytes.Buffer
		if err := goldmark.New().Convert([]byte(opts.Intro), &buf); err != nil {
			return nil, ferrors.ConfigError("index intro is not valid Markdown").WithCause(err).Build()
		}
		c.intro = buf.String()
	}
	return c, nil
}

// Path is the manifest page location.
func (c *IndexComposer) Path() string { return c.path }

// Reset truncates the page and writes a fresh header.
func (c *IndexComposer) Reset() error {
	if c.f != nil {
		_ = c.f.Close()
	}
	// #nosec G304 -- path is built from the output worktree and a configured file name
	f, err := os.Create(c.path)
	if err != nil {
		return c.fsError("create index", err)
	}
	c.f = f
	c.w = bufio.NewWriter(f)

	title := html.EscapeString(c.opts.Title)
	fmt.Fprintf(c.w, "<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n<h1>%s</h1>\n", title, title)
	if c.intro != "" {
		fmt.Fprintf(c.w, "<div class=\"intro\">\n%s</div>\n", c.intro)
	}
	fmt.Fprintf(c.w, "<ul class=%q>\n", versionsClass)
	return c.flush()
}

// Append lists res when it was built. Other outcomes are ignored.
func (c *IndexComposer) Append(res BuildResult) error {
	if !res.Built {
		return nil
	}
	if c.w == nil {
		return ferrors.InternalError("index appended before reset").Build()
	}
	fmt.Fprintf(c.w, "<li><a href=\"%s/\">%s</a></li>\n",
		html.EscapeString(res.Version.Dir()), html.EscapeString(res.Version.Label))
	return c.flush()
}

// Close writes the footer and closes the page.
func (c *IndexComposer) Close() error {
	if c.w == nil {
		return ferrors.InternalError("index closed before reset").Build()
	}
	fmt.Fprint(c.w, "</ul>\n</body>\n</html>\n")
	err := c.flush()
	cerr := c.f.Close()
	c.f, c.w = nil, nil
	if err != nil {
		return err
	}
	if cerr != nil {
		return c.fsError("close index", cerr)
	}
	return nil
}

// Discard closes a page left open by an aborted run without writing the footer.
// It does nothing after Close.
func (c *IndexComposer) Discard() {
	if c.f == nil {
		return
	}
	if err := c.f.Close(); err != nil {
		slog.Debug("Closing abandoned index failed", logfields.Path(c.path), logfields.Error(err))
	}
	c.f, c.w = nil, nil
}

func (c *IndexComposer) flush() error {
	if err := c.w.Flush(); err != nil {
		return c.fsError("write index", err)
	}
	return nil
}

func (c *IndexComposer) fsError(op string, err error) error {
	return ferrors.FileSystemError("failed to "+op).WithCause(err).WithContext("path", c.path).Build()
}

// ParseIndex reads the entries of a manifest page. Pages without a versions
// list fall back to every link inside a list item.
func ParseIndex(r io.Reader) ([]IndexEntry, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}
	root := findVersionsList(doc)
	if root == nil {
		root = doc
	}

	var entries []IndexEntry
	var walk func(n *html.Node, inItem bool)
	walk = func(n *html.Node, inItem bool) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Li:
				inItem = true
			case atom.A:
				if inItem {
					if href, ok := attr(n, "href"); ok {
						entries = append(entries, IndexEntry{
							Label: strings.TrimSpace(textContent(n)),
							Href:  href,
							Dir:   strings.TrimSuffix(strings.TrimPrefix(href, "./"), "/"),
						})
					}
					return
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child, inItem)
		}
	}
	walk(root, false)
	return entries, nil
}

func findVersionsList(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Ul {
		if class, ok := attr(n, "class"); ok && strings.Contains(" "+class+" ", " "+versionsClass+" ") {
			return n
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findVersionsList(child); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}
