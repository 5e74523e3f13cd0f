// Package versioning turns a repository's raw tag list into the ordered set of
// documentation versions to publish.
//
// The head (in-development) version is always first. Tags that look like
// major.minor[.patch][suffix] follow in descending version order, each labelled
// "<tag> stable". A small ordered list of alias rules handles the exceptions:
// legacy tags that denote the development line collapse into the head, and
// individual known-bad tags are republished under a corrected label.
package versioning
