package api

import (
	"github.com/starford/inkpact/internal/contentservice"
	"github.com/starford/inkpact/internal/journal"
)

// SaveMarkdownRequest is the request body for POST /save-markdown. Both
// fields are required; content may be empty.
type SaveMarkdownRequest struct {
	Filename string  `json:"filename" example:"my-post.md" validate:"required"`
	Content  *string `json:"content" example:"# Hello" validate:"required"`
}

// SaveMarkdownResponse is returned after a markdown file was written.
type SaveMarkdownResponse struct {
	Success   bool   `json:"success" example:"true"`
	Message   string `json:"message" example:"Markdown file saved successfully"`
	Filename  string `json:"filename" example:"my-post.md"`
	FilePath  string `json:"filePath" example:"blogs/my-post.md"`
	Timestamp string `json:"timestamp" example:"2025-01-02T03:04:05.006Z"`
}

// MarkdownResponse is the body of GET /get-markdown/{filename}.
type MarkdownResponse struct {
	Success  bool   `json:"success" example:"true"`
	Content  string `json:"content" example:"# Hello"`
	Filename string `json:"filename" example:"my-post.md"`
	Path     string `json:"path" example:"blogs/my-post.md"`
}

// UploadImageResponse is returned after a successful image upload.
type UploadImageResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Image uploaded successfully"`
	contentservice.ImageInfo
}

// ImageListResponse lists the images of one section.
type ImageListResponse struct {
	Success bool     `json:"success" example:"true"`
	Images  []string `json:"images"`
	Count   int      `json:"count" example:"2"`
}

// DeleteImageResponse is returned after an image was removed.
type DeleteImageResponse struct {
	Success  bool   `json:"success" example:"true"`
	Message  string `json:"message" example:"Image deleted successfully"`
	Filename string `json:"filename" example:"1735787045006-cover.png"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Success   bool   `json:"success" example:"true"`
	Message   string `json:"message" example:"InkPact Dashboard Server is running"`
	Timestamp string `json:"timestamp" example:"2025-01-02T03:04:05.006Z"`
	Version   string `json:"version" example:"1.0.0"`
}

// ActivityResponse lists recent journal entries, newest first.
type ActivityResponse struct {
	Success  bool            `json:"success" example:"true"`
	Enabled  bool            `json:"enabled" example:"true"`
	Activity []journal.Entry `json:"activity"`
}
