package collection

import (
	"fmt"
	"time"

	"github.com/starford/inkpact/internal/apperr"
	"github.com/starford/inkpact/internal/models"
)

// CreateIndex is the edit target used while a new record is being created.
const CreateIndex = -1

// Session holds one loaded collection and the changes applied to it before
// the next save. Indexes are positions in the loaded sequence and are only
// meaningful for the session that produced them.
type Session struct {
	kind    models.Kind
	records []models.Record
	// added marks the positions in records that Create appended.
	added   []bool
	maxID   int64
	warning string
	stale   bool
	now     func() time.Time
}

// NewSession starts a session over a loaded collection.
func NewSession(c *Collection) *Session {
	s := &Session{
		kind:    c.Kind,
		records: c.Records(),
		warning: c.Warning,
		now:     time.Now,
	}
	s.added = make([]bool, len(s.records))
	s.maxID = maxID(s.records)
	return s
}

// WithClock overrides the session clock.
func (s *Session) WithClock(now func() time.Time) *Session {
	s.now = now
	return s
}

// Kind returns the collection kind.
func (s *Session) Kind() models.Kind { return s.kind }

// Warning returns the load warning, if the collection degraded to empty.
func (s *Session) Warning() string { return s.warning }

// Len returns the number of records currently in the session.
func (s *Session) Len() int { return len(s.records) }

// Records returns a copy of the current sequence.
func (s *Session) Records() []models.Record {
	out := make([]models.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Record returns the record at index.
func (s *Session) Record(index int) (models.Record, error) {
	if err := s.check(index); err != nil {
		return nil, err
	}
	return s.records[index].Clone(), nil
}

// Created returns the records added by Create since the session was opened,
// as they currently stand. Created records deleted again are left out.
func (s *Session) Created() []models.Record {
	var out []models.Record
	for i, rec := range s.records {
		if s.added[i] {
			out = append(out, rec.Clone())
		}
	}
	return out
}

// Template returns the default record a new entry of the session's kind starts from.
func (s *Session) Template() models.Record {
	return Template(s.kind, s.now())
}

// Create appends a record built from the kind's template and the submitted values.
func (s *Session) Create(submitted models.Record) (models.Record, error) {
	if s.stale {
		return nil, &apperr.InvalidIndexError{Index: CreateIndex, Len: len(s.records), Stale: true}
	}
	tmpl := s.Template()
	if s.kind.AssignsIDs() {
		delete(tmpl, "id")
	}
	rec := merge(tmpl, submitted)
	if s.kind.AssignsIDs() && !rec.Has("id") {
		rec["id"] = s.nextID()
	}
	rec = s.shape(rec)
	s.observe(rec)
	s.records = append(s.records, rec)
	s.added = append(s.added, true)
	return rec.Clone(), nil
}

// Edit shallow-merges submitted into the record at index. Keys absent from
// submitted keep their existing value.
func (s *Session) Edit(index int, submitted models.Record) (models.Record, error) {
	if err := s.check(index); err != nil {
		return nil, err
	}
	existing := s.records[index]
	rec := merge(existing, submitted)
	if s.kind.AssignsIDs() {
		switch {
		case existing.Has("id"):
			rec["id"] = existing["id"]
		case rec.Has("id"):
		default:
			rec["id"] = s.nextID()
		}
	}
	rec = s.shape(rec)
	s.observe(rec)
	s.records[index] = rec
	return rec.Clone(), nil
}

// Delete removes the record at index. Remaining records keep their ids.
func (s *Session) Delete(index int) error {
	if err := s.check(index); err != nil {
		return err
	}
	s.records = append(s.records[:index:index], s.records[index+1:]...)
	s.added = append(s.added[:index:index], s.added[index+1:]...)
	return nil
}

// Envelope wraps the full sequence in the kind's canonical envelope.
func (s *Session) Envelope() map[string]any {
	items := make([]models.Record, len(s.records))
	copy(items, s.records)
	return map[string]any{s.kind.Plural(): items}
}

// MarkSaved invalidates every index handed out by this session.
func (s *Session) MarkSaved() {
	s.stale = true
}

// Stale reports whether the session has been saved.
func (s *Session) Stale() bool { return s.stale }

func (s *Session) check(index int) error {
	if s.stale {
		return &apperr.InvalidIndexError{Index: index, Len: len(s.records), Stale: true}
	}
	if index < 0 || index >= len(s.records) {
		return &apperr.InvalidIndexError{Index: index, Len: len(s.records)}
	}
	return nil
}

func (s *Session) shape(rec models.Record) models.Record {
	if s.kind.Strict() {
		return models.ProjectProfile(rec)
	}
	return rec
}

// nextID hands out max(existing ids, 0) + 1. Ids seen earlier in the session
// count too, so a deleted maximum is not handed out again.
func (s *Session) nextID() int64 {
	if m := maxID(s.records); m > s.maxID {
		s.maxID = m
	}
	s.maxID++
	return s.maxID
}

func (s *Session) observe(rec models.Record) {
	if id, ok := rec.Int("id"); ok && id > s.maxID {
		s.maxID = id
	}
}

func maxID(records []models.Record) int64 {
	var m int64
	for _, r := range records {
		if id, ok := r.Int("id"); ok && id > m {
			m = id
		}
	}
	return m
}

func merge(base, over models.Record) models.Record {
	out := base.Clone()
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Template returns the default record for kind. The blog template carries a
// placeholder id derived from now, superseded by a sequential id on create.
func Template(kind models.Kind, now time.Time) models.Record {
	switch kind {
	case models.KindBlog:
		id := now.UnixMilli()
		return models.Record{
			"id":               id,
			"blogName":         "",
			"writers":          []string{},
			"graphicDesigners": []string{},
			"date":             now.Format(time.DateOnly),
			"description":      "",
			"mdPath":           fmt.Sprintf("blogs/%d.md", id),
			"categories":       []string{},
			"readTime":         "5 min read",
			"image":            "",
		}
	case models.KindBook:
		return models.Record{
			"title":       "",
			"author":      "",
			"genre":       "",
			"pages":       0,
			"thumbnail":   "",
			"description": "",
			"date":        "",
			"size":        "",
			"pdfUrl":      "",
		}
	case models.KindProfile:
		return models.Record{
			"name":   "",
			"role":   models.RoleWriter,
			"term":   fmt.Sprintf("%d - Present", now.Year()),
			"avatar": "",
			"bio":    "",
		}
	}
	return models.Record{}
}
