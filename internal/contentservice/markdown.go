package contentservice

import (
	"context"
	"errors"
	"path"
	"regexp"
	"strings"

	"github.com/starford/inkpact/internal/apperr"
	"github.com/starford/inkpact/internal/journal"
	"github.com/starford/inkpact/internal/sse"
)

const blogsDir = "blogs"

var markdownNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+\.md$`)

// MarkdownRef is a validated markdown file reference.
type MarkdownRef struct {
	Name    string // basename, e.g. "my-post.md"
	InBlogs bool   // the supplied path named a blogs/ directory
}

// Path returns the file location relative to the data root.
func (r MarkdownRef) Path() string {
	if r.InBlogs {
		return blogsDir + "/" + r.Name
	}
	return r.Name
}

// MarkdownFile is a markdown post read from or written to the data directory.
type MarkdownFile struct {
	Filename  string `json:"filename"`
	Path      string `json:"path"`
	Content   string `json:"content,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ValidateMarkdownName checks a supplied markdown path. Any ".." segment is
// rejected and the basename must be letters, digits, '-' or '_' plus ".md".
func ValidateMarkdownName(raw string) (MarkdownRef, error) {
	p := strings.ReplaceAll(raw, `\`, "/")
	if strings.TrimSpace(p) == "" {
		return MarkdownRef{}, &apperr.InvalidFilenameError{Name: raw, Reason: "filename is required"}
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return MarkdownRef{}, &apperr.InvalidFilenameError{Name: raw, Reason: "path traversal is not allowed"}
		}
	}
	base := path.Base(p)
	if !markdownNameRe.MatchString(base) {
		return MarkdownRef{}, &apperr.InvalidFilenameError{
			Name:   raw,
			Reason: "only alphanumeric characters, hyphens, and underscores are allowed, with a .md extension",
		}
	}
	return MarkdownRef{Name: base, InBlogs: strings.Contains(p, blogsDir+"/")}, nil
}

// ReadMarkdown looks the file up under blogs/ first, then at the data root.
func (s *Service) ReadMarkdown(_ context.Context, raw string) (*MarkdownFile, error) {
	ref, err := ValidateMarkdownName(raw)
	if err != nil {
		return nil, err
	}
	for _, p := range []string{blogsDir + "/" + ref.Name, ref.Name} {
		data, err := s.store.Read(p)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &MarkdownFile{Filename: ref.Name, Path: p, Content: string(data)}, nil
	}
	return nil, apperr.ErrNotFound
}

// SaveMarkdown overwrites the markdown file named by raw with content.
func (s *Service) SaveMarkdown(ctx context.Context, raw, content string) (*MarkdownFile, error) {
	ref, err := ValidateMarkdownName(raw)
	if err != nil {
		return nil, err
	}
	p := ref.Path()
	data := []byte(content)
	if err := s.store.Write(p, data); err != nil {
		return nil, &apperr.PersistenceError{Op: "save markdown", Path: p, Err: err}
	}

	out := &MarkdownFile{Filename: ref.Name, Path: p, Timestamp: s.timestamp()}
	s.record(ctx, journal.Entry{Action: journal.ActionSave, Target: p, Kind: "markdown"}, data,
		sse.TypeMarkdownSaved, map[string]string{"filename": ref.Name, "path": p})
	return out, nil
}
