// Package models defines the collection kinds and record shapes managed by the dashboard.
package models

import (
	"fmt"
	"strings"
)

// Kind identifies one of the persisted collections.
type Kind string

const (
	KindBlog    Kind = "blog"
	KindBook    Kind = "book"
	KindProfile Kind = "profile"
)

// Kinds lists every collection kind in display order.
var Kinds = []Kind{KindBlog, KindBook, KindProfile}

// ParseKind accepts the singular or plural collection name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blog", "blogs":
		return KindBlog, nil
	case "book", "books":
		return KindBook, nil
	case "profile", "profiles":
		return KindProfile, nil
	}
	return "", fmt.Errorf("unknown collection kind %q", s)
}

// Plural is the envelope property and URL segment for the kind.
func (k Kind) Plural() string {
	return string(k) + "s"
}

// FileName is the collection file name inside the data directory.
func (k Kind) FileName() string {
	return k.Plural() + ".json"
}

// Indent is the JSON indentation the collection file is written with.
func (k Kind) Indent() string {
	if k == KindBlog {
		return "    "
	}
	return "  "
}

// Strict reports whether persistence projects records to a fixed field set.
func (k Kind) Strict() bool {
	return k == KindProfile
}

// AssignsIDs reports whether records of this kind receive sequential ids.
func (k Kind) AssignsIDs() bool {
	return k == KindBlog
}

func (k Kind) String() string { return string(k) }
