// Package editor drives the load → edit → save cycle of the dashboard
// against a Backend.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/inkpact/internal/apperr"
	"github.com/starford/inkpact/internal/collection"
	"github.com/starford/inkpact/internal/contentservice"
	"github.com/starford/inkpact/internal/models"
)

// Editor loads collections into sessions and persists them.
type Editor struct {
	backend Backend
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the editor logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) { e.logger = l }
}

// WithClock overrides the editor clock.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) { e.now = now }
}

// New creates an editor over backend.
func New(backend Backend, opts ...Option) *Editor {
	e := &Editor{backend: backend, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SaveOutcome reports a completed save.
type SaveOutcome struct {
	Result *contentservice.SaveResult
	// Markdown lists the starter posts created for new blogs.
	Markdown []string
	// Reloaded is a fresh session over the saved collection, nil if the
	// confirming reload failed.
	Reloaded *collection.Session
}

// Open fetches kind and starts a session. A missing or malformed collection
// opens empty; the session's Warning says why.
func (e *Editor) Open(ctx context.Context, kind models.Kind) (*collection.Session, error) {
	data, err := e.backend.FetchCollection(ctx, kind)
	c, err := collection.LoadOrEmpty(kind, data, err)
	if err != nil {
		return nil, err
	}
	if c.Warning != "" {
		e.logger.Warn("collection opened empty",
			slog.String("collection", kind.Plural()),
			slog.String("warning", c.Warning))
	}
	return collection.NewSession(c).WithClock(e.now), nil
}

// Save replaces the collection with the session's records. On success the
// session goes stale, starter markdown is written for blogs created in it and
// the collection is reloaded.
func (e *Editor) Save(ctx context.Context, s *collection.Session) (*SaveOutcome, error) {
	if s.Stale() {
		return nil, &apperr.InvalidIndexError{Index: collection.CreateIndex, Len: s.Len(), Stale: true}
	}
	kind := s.Kind()
	res, err := e.backend.SaveCollection(ctx, kind, s.Envelope())
	if err != nil {
		return nil, err
	}
	s.MarkSaved()

	out := &SaveOutcome{Result: res}
	if kind == models.KindBlog {
		for _, rec := range s.Created() {
			if name := e.createMarkdown(ctx, rec); name != "" {
				out.Markdown = append(out.Markdown, name)
			}
		}
	}

	reloaded, err := e.Open(ctx, kind)
	if err != nil {
		e.logger.Warn("reload after save failed",
			slog.String("collection", kind.Plural()),
			slog.String("error", err.Error()))
	}
	out.Reloaded = reloaded
	return out, nil
}

// Apply opens kind, runs change on the session and saves the result.
func (e *Editor) Apply(ctx context.Context, kind models.Kind, change func(*collection.Session) error) (*SaveOutcome, error) {
	s, err := e.Open(ctx, kind)
	if err != nil {
		return nil, err
	}
	if err := change(s); err != nil {
		return nil, err
	}
	return e.Save(ctx, s)
}

// createMarkdown writes the starter post of a new blog. Failures are logged
// and do not fail the save.
func (e *Editor) createMarkdown(ctx context.Context, rec models.Record) string {
	target := MarkdownTarget(rec.String("mdPath"))
	if target == "" {
		return ""
	}
	title := rec.String("blogName")
	if title == "" {
		title = "Untitled Blog"
	}
	if err := e.backend.SaveMarkdown(ctx, target, StarterMarkdown(title, e.now())); err != nil {
		e.logger.Warn("starter markdown not created",
			slog.String("path", target),
			slog.String("error", err.Error()))
		return ""
	}
	return target
}

// MarkdownTarget turns a stored mdPath into a path relative to the data
// directory, dropping the legacy "../" and "data/" prefixes.
func MarkdownTarget(mdPath string) string {
	p := strings.TrimSpace(strings.ReplaceAll(mdPath, `\`, "/"))
	for {
		switch {
		case strings.HasPrefix(p, "../"):
			p = p[len("../"):]
		case strings.HasPrefix(p, "./"):
			p = p[len("./"):]
		case strings.HasPrefix(p, "data/"):
			p = p[len("data/"):]
		default:
			return p
		}
	}
}

// StarterMarkdown is the initial content of a newly created blog post.
func StarterMarkdown(title string, created time.Time) string {
	return fmt.Sprintf(`# %s

This is a new blog post. Start writing your content here...

## Introduction

Write your introduction here.

## Main Content

Add your main content here.

### Subsection

More details...

## Conclusion

Wrap up your post here.

---

*Created on %s*`, title, created.Format("1/2/2006"))
}
