package collection

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/starford/inkpact/internal/models"
)

// InputType is the kind of form input a field is submitted from.
type InputType string

const (
	InputText     InputType = "text"
	InputNumber   InputType = "number"
	InputCheckbox InputType = "checkbox"
)

// Field is one submitted form value.
type Field struct {
	Name  string
	Value string
	Type  InputType
}

// FieldSpec describes an editor form field.
type FieldSpec struct {
	Name string    `json:"name"`
	Type InputType `json:"type"`
	List bool      `json:"list,omitempty"`
}

var forms = map[models.Kind][]FieldSpec{
	models.KindBlog: {
		{Name: "blogName", Type: InputText},
		{Name: "date", Type: InputText},
		{Name: "writers", Type: InputText, List: true},
		{Name: "graphicDesigners", Type: InputText, List: true},
		{Name: "readTime", Type: InputText},
		{Name: "mdPath", Type: InputText},
		{Name: "categories", Type: InputText, List: true},
		{Name: "image", Type: InputText},
		{Name: "description", Type: InputText},
	},
	models.KindBook: {
		{Name: "title", Type: InputText},
		{Name: "date", Type: InputText},
		{Name: "author", Type: InputText},
		{Name: "genre", Type: InputText},
		{Name: "pages", Type: InputNumber},
		{Name: "size", Type: InputText},
		{Name: "pdfUrl", Type: InputText},
		{Name: "thumbnail", Type: InputText},
		{Name: "description", Type: InputText},
	},
	models.KindProfile: {
		{Name: "name", Type: InputText},
		{Name: "term", Type: InputText},
		{Name: "role", Type: InputText},
		{Name: "avatar", Type: InputText},
		{Name: "bio", Type: InputText},
	},
}

// FormFields returns the editor form of a kind.
func FormFields(kind models.Kind) []FieldSpec {
	return append([]FieldSpec(nil), forms[kind]...)
}

var leadingInt = regexp.MustCompile(`^\s*([+-]?\d+)`)

// Coerce converts submitted form fields into record values. List fields are
// split on commas, numeric inputs parse their leading integer (0 on failure),
// checkboxes become booleans and everything else passes through unchanged.
func Coerce(fields []Field) models.Record {
	out := make(models.Record, len(fields))
	for _, f := range fields {
		switch {
		case f.Type == InputCheckbox:
			v, _ := strconv.ParseBool(f.Value)
			out[f.Name] = v
		case listFields[f.Name]:
			out[f.Name] = models.SplitList(f.Value)
		case f.Type == InputNumber:
			out[f.Name] = parseLeadingInt(f.Value)
		default:
			out[f.Name] = f.Value
		}
	}
	return out
}

// FieldsFor types plain key/value submissions using the kind's form. Keys the
// form does not know are submitted as text, except "id", which is numeric and
// dropped when it holds no integer so that one is assigned instead.
func FieldsFor(kind models.Kind, values map[string]string) []Field {
	types := make(map[string]InputType, len(forms[kind]))
	for _, spec := range forms[kind] {
		types[spec.Name] = spec.Type
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]Field, 0, len(values))
	for _, name := range names {
		t, ok := types[name]
		switch {
		case name == "id":
			if !leadingInt.MatchString(values[name]) {
				continue
			}
			t = InputNumber
		case !ok:
			t = InputText
		}
		fields = append(fields, Field{Name: name, Value: values[name], Type: t})
	}
	return fields
}

func parseLeadingInt(s string) int64 {
	m := leadingInt.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
