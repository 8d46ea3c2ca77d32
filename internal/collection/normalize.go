// Package collection normalizes on-disk collection documents and applies
// create, edit and delete changes to a loaded sequence of records.
package collection

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/inkpact/internal/apperr"
	"github.com/starford/inkpact/internal/models"
)

// Entry is one normalized record together with its stable index.
type Entry struct {
	Index  int           `json:"index"`
	Record models.Record `json:"record"`
	View   models.View   `json:"view"`
}

// Collection is a loaded, normalized collection.
type Collection struct {
	Kind    models.Kind `json:"kind"`
	Entries []Entry     `json:"entries"`
	Warning string      `json:"warning,omitempty"`
}

// Len returns the number of records.
func (c *Collection) Len() int { return len(c.Entries) }

// Records returns the normalized records in order.
func (c *Collection) Records() []models.Record {
	out := make([]models.Record, len(c.Entries))
	for i, e := range c.Entries {
		out[i] = e.Record
	}
	return out
}

// alias maps a canonical key to the legacy key it may be stored under.
type alias struct {
	canonical string
	legacy    string
}

var aliases = map[models.Kind][]alias{
	models.KindBlog: {
		{canonical: "blogName", legacy: "title"},
		{canonical: "writers", legacy: "writer"},
		{canonical: "mdPath", legacy: "contentFile"},
		{canonical: "image", legacy: "thumbnail"},
	},
	models.KindBook: {
		{canonical: "thumbnail", legacy: "cover"},
	},
	models.KindProfile: {
		{canonical: "avatar", legacy: "image"},
	},
}

// listFields are canonical keys holding ordered string lists.
var listFields = map[string]bool{
	"writers":          true,
	"graphicDesigners": true,
	"categories":       true,
}

// Decode parses a collection document, keeping integers as json.Number.
func Decode(kind models.Kind, data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &apperr.MalformedCollectionError{
			Collection: kind.Plural(),
			Expected:   envelopeShape(kind),
			Detail:     err.Error(),
		}
	}
	return doc, nil
}

// Normalize decodes data and normalizes it. See FromDocument.
func Normalize(kind models.Kind, data []byte) (*Collection, error) {
	doc, err := Decode(kind, data)
	if err != nil {
		return nil, err
	}
	return FromDocument(kind, doc)
}

// FromDocument turns a parsed document, either the {<plural>: [...]} envelope or
// a bare array, into a normalized collection. doc is not modified.
func FromDocument(kind models.Kind, doc any) (*Collection, error) {
	items, err := extract(kind, doc)
	if err != nil {
		return nil, err
	}
	c := &Collection{Kind: kind, Entries: make([]Entry, 0, len(items))}
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &apperr.MalformedCollectionError{
				Collection: kind.Plural(),
				Expected:   envelopeShape(kind),
				Detail:     fmt.Sprintf("element %d is not an object", i),
			}
		}
		rec := resolve(kind, models.Record(obj))
		c.Entries = append(c.Entries, Entry{Index: i, Record: rec, View: models.ViewOf(kind, rec)})
	}
	return c, nil
}

// LoadOrEmpty normalizes data, degrading to an empty collection with a warning
// when the file is missing or malformed. Other errors are returned.
func LoadOrEmpty(kind models.Kind, data []byte, readErr error) (*Collection, error) {
	if readErr != nil {
		if errors.Is(readErr, apperr.ErrNotFound) {
			return &Collection{Kind: kind, Entries: []Entry{}}, nil
		}
		return nil, readErr
	}
	c, err := Normalize(kind, data)
	if err != nil {
		if errors.Is(err, apperr.ErrMalformedCollection) {
			return &Collection{Kind: kind, Entries: []Entry{}, Warning: err.Error()}, nil
		}
		return nil, err
	}
	return c, nil
}

func extract(kind models.Kind, doc any) ([]any, error) {
	if obj, ok := doc.(map[string]any); ok {
		if items, ok := obj[kind.Plural()].([]any); ok {
			return items, nil
		}
	}
	if items, ok := doc.([]any); ok {
		return items, nil
	}
	return nil, &apperr.MalformedCollectionError{Collection: kind.Plural(), Expected: envelopeShape(kind)}
}

// resolve copies raw and fills canonical keys from their legacy aliases.
func resolve(kind models.Kind, raw models.Record) models.Record {
	rec := raw.Clone()
	for _, a := range aliases[kind] {
		if !rec.Has(a.canonical) && rec.Has(a.legacy) {
			rec[a.canonical] = rec[a.legacy]
		}
	}
	if kind != models.KindBlog {
		return rec
	}
	for key := range listFields {
		if s, ok := rec[key].(string); ok {
			rec[key] = models.SplitList(s)
		}
	}
	return rec
}

func envelopeShape(kind models.Kind) string {
	return fmt.Sprintf("{%q: [...]} or a bare array", kind.Plural())
}
