package mcpserver

// RecordFormatContract describes the InkPact collections that LLM consumers
// edit through the record tools.
const RecordFormatContract = `# InkPact Record Format Contract

InkPact keeps three collections as JSON files in the data directory:
` + "`" + `blogs.json` + "`" + `, ` + "`" + `books.json` + "`" + ` and ` + "`" + `profiles.json` + "`" + `.
Records are addressed by their zero-based position as returned by ` + "`" + `list_records` + "`" + `.
Positions shift after a delete, so list again before the next change.

## Blogs

| field | notes |
|-------|-------|
| id | integer, assigned as one more than the highest id ever seen |
| blogName | title shown on the site |
| date | free text, e.g. ` + "`" + `March 14, 2025` + "`" + ` |
| writers | list; arrays or comma-separated text |
| graphicDesigners | list |
| categories | list |
| readTime | free text, e.g. ` + "`" + `5 min read` + "`" + ` |
| mdPath | markdown post, e.g. ` + "`" + `blogs/1741942800000.md` + "`" + ` |
| image | thumbnail path |
| description | short summary |

Creating a blog also writes a starter post at its mdPath.

## Books

title, author, genre, pages (integer; "250 pages" is read as 250), size,
date, thumbnail, description, pdfUrl. A non-empty pdfUrl marks a PDF book.

## Profiles

Only id, name, role, term, bio and avatar are persisted. Any other field is
dropped on save. Roles: Writer, Content Writer, Graphic Designer, Editor,
Admin. Term reads like ` + "`" + `2025 - Present` + "`" + `.

## Markdown

File names use letters, digits, ` + "`" + `-` + "`" + ` and ` + "`" + `_` + "`" + ` and end in ` + "`" + `.md` + "`" + `.
Prefix with ` + "`" + `blogs/` + "`" + ` to store the post next to the other blog posts.

## Images

Sections are blogs, books, profiles and general; anything else lands in
general. Accepted: jpeg, png, gif, webp up to the configured size limit.
Stored images are renamed to ` + "`" + `<unix-ms>-<uuid>.<ext>` + "`" + ` and served from
` + "`" + `/data/thumbnails/<section>/<name>` + "`" + `.
`
