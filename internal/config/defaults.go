package config

import "time"

const (
	DefaultHeadRef      = "main"
	DefaultHeadLabel    = "prerelease (main branch)"
	DefaultOutputBranch = "gh-pages"
	DefaultIndexFile    = "index.html"
	DefaultIndexTitle   = "Documentation versions"
	DefaultCommitMsg    = "Publish documentation"
	DefaultAuthorName   = "docpublish"
	DefaultAuthorEmail  = "docpublish@localhost"
	DefaultRemote       = "origin"
	DefaultSubject      = "docpublish.published"
	DefaultDebounce     = 2 * time.Second
)

// ApplyDefaults fills every unset field. It is idempotent.
func (c *Config) ApplyDefaults() {
	if c.Repository == "" {
		c.Repository = "."
	}
	if c.Head.Ref == "" {
		c.Head.Ref = DefaultHeadRef
	}
	if c.Head.Label == "" {
		c.Head.Label = DefaultHeadLabel
	}
	if c.Output.Branch == "" {
		c.Output.Branch = DefaultOutputBranch
	}
	c.Builder.applyPreset()
	if c.Index.File == "" {
		c.Index.File = DefaultIndexFile
	}
	if c.Index.Title == "" {
		c.Index.Title = DefaultIndexTitle
	}
	if c.Commit.Message == "" {
		c.Commit.Message = DefaultCommitMsg
	}
	if c.Commit.AuthorName == "" {
		c.Commit.AuthorName = DefaultAuthorName
	}
	if c.Commit.AuthorEmail == "" {
		c.Commit.AuthorEmail = DefaultAuthorEmail
	}
	if c.Push.Remote == "" {
		c.Push.Remote = DefaultRemote
	}
	if c.Push.Retry.Mode == "" {
		c.Push.Retry.Mode = RetryBackoffLinear
	}
	if c.Notify.Subject == "" {
		c.Notify.Subject = DefaultSubject
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = DefaultDebounce
	}
}
