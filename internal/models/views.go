package models

// Profile roles offered by the editor. The server does not enforce them.
const (
	RoleWriter          = "Writer"
	RoleContentWriter   = "Content Writer"
	RoleGraphicDesigner = "Graphic Designer"
	RoleEditor          = "Editor"
	RoleAdmin           = "Admin"
)

// Roles lists the profile roles in display order.
var Roles = []string{RoleWriter, RoleContentWriter, RoleGraphicDesigner, RoleEditor, RoleAdmin}

// ProfileFields is the allow-list persisted for profiles.
var ProfileFields = []string{"id", "name", "role", "term", "bio", "avatar"}

// View is the canonical, alias-resolved shape of a record.
type View interface {
	Kind() Kind
}

// Blog is the canonical blog record.
type Blog struct {
	ID               int64    `json:"id"`
	BlogName         string   `json:"blogName"`
	Writers          []string `json:"writers"`
	GraphicDesigners []string `json:"graphicDesigners"`
	Date             string   `json:"date"`
	Description      string   `json:"description"`
	MDPath           string   `json:"mdPath"`
	Categories       []string `json:"categories"`
	ReadTime         string   `json:"readTime"`
	Image            string   `json:"image"`
}

func (*Blog) Kind() Kind { return KindBlog }

// Book is the canonical book record. A non-empty PDFURL marks the PDF variant.
type Book struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Genre       string `json:"genre"`
	Pages       int64  `json:"pages"`
	Thumbnail   string `json:"thumbnail"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Size        string `json:"size"`
	PDFURL      string `json:"pdfUrl,omitempty"`
}

func (*Book) Kind() Kind { return KindBook }

// IsPDF reports whether the book is the PDF variant.
func (b *Book) IsPDF() bool { return b.PDFURL != "" }

// Profile is the canonical profile record.
type Profile struct {
	ID     int64  `json:"id,omitempty"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Term   string `json:"term"`
	Avatar string `json:"avatar"`
	Bio    string `json:"bio"`
}

func (*Profile) Kind() Kind { return KindProfile }

// ViewOf builds the typed view of an already normalized record.
func ViewOf(kind Kind, r Record) View {
	switch kind {
	case KindBlog:
		id, _ := r.Int("id")
		return &Blog{
			ID:               id,
			BlogName:         r.String("blogName"),
			Writers:          nonNil(r.Strings("writers")),
			GraphicDesigners: nonNil(r.Strings("graphicDesigners")),
			Date:             r.String("date"),
			Description:      r.String("description"),
			MDPath:           r.String("mdPath"),
			Categories:       nonNil(r.Strings("categories")),
			ReadTime:         r.String("readTime"),
			Image:            r.String("image"),
		}
	case KindBook:
		pages, _ := r.Int("pages")
		return &Book{
			Title:       r.String("title"),
			Author:      r.String("author"),
			Genre:       r.String("genre"),
			Pages:       pages,
			Thumbnail:   r.String("thumbnail"),
			Description: r.String("description"),
			Date:        r.String("date"),
			Size:        r.String("size"),
			PDFURL:      r.String("pdfUrl"),
		}
	case KindProfile:
		id, _ := r.Int("id")
		return &Profile{
			ID:     id,
			Name:   r.String("name"),
			Role:   r.String("role"),
			Term:   r.String("term"),
			Avatar: r.String("avatar"),
			Bio:    r.String("bio"),
		}
	}
	return nil
}

// ProjectProfile keeps only the persisted profile fields that are present in r.
func ProjectProfile(r Record) Record {
	out := make(Record, len(ProfileFields))
	for _, k := range ProfileFields {
		if v, ok := r[k]; ok {
			out[k] = v
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
