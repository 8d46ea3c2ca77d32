package contentservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/starford/inkpact/internal/apperr"
	"github.com/starford/inkpact/internal/collection"
	"github.com/starford/inkpact/internal/journal"
	"github.com/starford/inkpact/internal/models"
	"github.com/starford/inkpact/internal/sse"
)

// SaveResult describes a replaced collection file.
type SaveResult struct {
	Kind      models.Kind `json:"kind"`
	Count     int         `json:"count"`
	Timestamp string      `json:"timestamp"`
	Path      string      `json:"path"`
}

// ReadCollection returns the raw collection file, or apperr.ErrNotFound.
func (s *Service) ReadCollection(_ context.Context, kind models.Kind) ([]byte, error) {
	return s.store.Read(kind.FileName())
}

// LoadCollection returns the normalized collection. A missing or malformed
// file yields an empty collection; a malformed one also carries a warning.
func (s *Service) LoadCollection(ctx context.Context, kind models.Kind) (*collection.Collection, error) {
	data, err := s.ReadCollection(ctx, kind)
	c, err := collection.LoadOrEmpty(kind, data, err)
	if err != nil {
		return nil, err
	}
	if c.Warning != "" {
		s.logger.Warn("collection degraded to empty",
			slog.String("collection", kind.Plural()),
			slog.String("warning", c.Warning))
	}
	return c, nil
}

// ReplaceCollection durably replaces the whole collection file with body.
// Profiles must arrive as {"profiles": [...]} and are projected to the
// persisted profile fields; blogs and books are written as submitted.
func (s *Service) ReplaceCollection(ctx context.Context, kind models.Kind, body []byte) (*SaveResult, error) {
	var (
		out   []byte
		count int
		err   error
	)
	if kind.Strict() {
		out, count, err = projectProfiles(body, kind.Indent())
	} else {
		out, count, err = reindent(kind, body)
	}
	if err != nil {
		return nil, err
	}

	path := kind.FileName()
	if err := s.store.Write(path, out); err != nil {
		return nil, &apperr.PersistenceError{Op: "replace", Path: path, Err: err}
	}

	res := &SaveResult{Kind: kind, Count: count, Timestamp: s.timestamp(), Path: path}
	s.record(ctx, journal.Entry{Action: journal.ActionSave, Target: path, Kind: kind.String(), Count: count}, out,
		sse.TypeCollectionSaved, map[string]any{"collection": kind.Plural(), "count": count})
	return res, nil
}

// reindent re-serializes body with the kind's indentation, keeping key order
// and number literals exactly as submitted.
func reindent(kind models.Kind, body []byte) ([]byte, int, error) {
	doc, err := collection.Decode(kind, body)
	if err != nil {
		return nil, 0, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(body), "", kind.Indent()); err != nil {
		return nil, 0, &apperr.MalformedCollectionError{Collection: kind.Plural(), Expected: "JSON", Detail: err.Error()}
	}
	return buf.Bytes(), countItems(kind, doc), nil
}

func countItems(kind models.Kind, doc any) int {
	switch v := doc.(type) {
	case map[string]any:
		if items, ok := v[kind.Plural()].([]any); ok {
			return len(items)
		}
	case []any:
		return len(v)
	}
	return 0
}

// profileRow is the persisted profile shape. Absent keys stay absent and an
// explicit null is kept.
type profileRow struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Name   json.RawMessage `json:"name,omitempty"`
	Role   json.RawMessage `json:"role,omitempty"`
	Term   json.RawMessage `json:"term,omitempty"`
	Bio    json.RawMessage `json:"bio,omitempty"`
	Avatar json.RawMessage `json:"avatar,omitempty"`
}

func projectProfiles(body []byte, indent string) ([]byte, int, error) {
	malformed := func(detail string) error {
		return &apperr.MalformedCollectionError{
			Collection: models.KindProfile.Plural(),
			Expected:   `{"profiles": [...]}`,
			Detail:     detail,
		}
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, 0, malformed(err.Error())
	}
	raw, ok := env["profiles"]
	if !ok {
		return nil, 0, malformed("missing profiles property")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, 0, malformed("profiles is not an array")
	}

	rows := make([]profileRow, 0, len(items))
	for i, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			return nil, 0, malformed(fmt.Sprintf("element %d is not an object", i))
		}
		rows = append(rows, profileRow{
			ID:     fields["id"],
			Name:   fields["name"],
			Role:   fields["role"],
			Term:   fields["term"],
			Bio:    fields["bio"],
			Avatar: fields["avatar"],
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(struct {
		Profiles []profileRow `json:"profiles"`
	}{rows}); err != nil {
		return nil, 0, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), len(rows), nil
}
