package contentservice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"github.com/starford/inkpact/internal/apperr"
	"github.com/starford/inkpact/internal/journal"
	"github.com/starford/inkpact/internal/sse"
)

const (
	thumbnailsDir   = "thumbnails"
	generalCategory = "general"
)

var (
	categories = []string{"blogs", "books", "profiles"}

	allowedMediaTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/jpg":  ".jpg",
		"image/png":  ".png",
		"image/gif":  ".gif",
		"image/webp": ".webp",
	}

	allowedExtensions = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	}

	imageNameRe = regexp.MustCompile(`(?i)^[A-Za-z0-9_-]+\.(jpg|jpeg|png|gif|webp)$`)
	imageExtRe  = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp)$`)
)

// ImageUpload is an incoming image file.
type ImageUpload struct {
	Filename  string // original client filename
	MediaType string // declared Content-Type of the part
	Size      int64  // declared size, 0 when unknown
	Body      io.Reader
}

// ImageInfo describes a stored image.
type ImageInfo struct {
	Filename  string `json:"filename"`
	Path      string `json:"path"`
	Section   string `json:"section"`
	Size      int64  `json:"size"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Timestamp string `json:"timestamp"`
}

// ResolveCategory maps a requested section to a thumbnail directory name.
// Anything other than blogs, books or profiles lands in "general".
func ResolveCategory(section string) string {
	s := strings.ToLower(strings.TrimSpace(section))
	for _, c := range categories {
		if s == c {
			return c
		}
	}
	return generalCategory
}

func categoryDir(category string) string {
	return thumbnailsDir + "/" + category
}

// UploadImage validates and stores an image under the section's thumbnail
// directory with a fresh unique name.
func (s *Service) UploadImage(ctx context.Context, section string, up ImageUpload) (*ImageInfo, error) {
	mediaType := up.MediaType
	if mt, _, err := mime.ParseMediaType(up.MediaType); err == nil {
		mediaType = mt
	}
	mediaType = strings.ToLower(mediaType)
	if _, ok := allowedMediaTypes[mediaType]; !ok {
		return nil, &apperr.UnsupportedMediaTypeError{MediaType: up.MediaType}
	}
	if up.Size > s.maxImageBytes {
		return nil, &apperr.PayloadTooLargeError{Size: up.Size, Limit: s.maxImageBytes}
	}

	data, err := io.ReadAll(io.LimitReader(up.Body, s.maxImageBytes+1))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, &apperr.PayloadTooLargeError{Limit: s.maxImageBytes}
		}
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxImageBytes {
		return nil, &apperr.PayloadTooLargeError{Limit: s.maxImageBytes}
	}

	detected := http.DetectContentType(data)
	if _, ok := allowedMediaTypes[detected]; !ok {
		return nil, &apperr.UnsupportedMediaTypeError{MediaType: detected}
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &apperr.UnsupportedMediaTypeError{MediaType: detected}
	}

	ext := strings.ToLower(filepath.Ext(up.Filename))
	if !allowedExtensions[ext] {
		ext = allowedMediaTypes[mediaType]
	}
	category := ResolveCategory(section)
	name := fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), uuid.NewString(), ext)
	rel := categoryDir(category) + "/" + name

	if err := s.store.Write(rel, data); err != nil {
		return nil, &apperr.PersistenceError{Op: "upload image", Path: rel, Err: err}
	}

	info := &ImageInfo{
		Filename:  name,
		Path:      "data/" + rel,
		Section:   category,
		Size:      int64(len(data)),
		Width:     cfg.Width,
		Height:    cfg.Height,
		Timestamp: s.timestamp(),
	}
	s.record(ctx, journal.Entry{Action: journal.ActionUpload, Target: rel, Kind: "image"}, data,
		sse.TypeImageUploaded, map[string]string{"section": category, "filename": name})
	return info, nil
}

// ListImages returns the image filenames of a section. A missing directory
// yields an empty list.
func (s *Service) ListImages(_ context.Context, section string) ([]string, error) {
	files, err := s.store.List(categoryDir(ResolveCategory(section)))
	if errors.Is(err, apperr.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		if imageExtRe.MatchString(f.Name) {
			out = append(out, f.Name)
		}
	}
	return out, nil
}

// ValidateImageName checks a plain image filename.
func ValidateImageName(name string) error {
	if !imageNameRe.MatchString(name) {
		return &apperr.InvalidFilenameError{Name: name, Reason: "expected letters, digits, '-' or '_' with an image extension"}
	}
	return nil
}

// DeleteImage removes one image from a section.
func (s *Service) DeleteImage(ctx context.Context, section, filename string) error {
	if err := ValidateImageName(filename); err != nil {
		return err
	}
	category := ResolveCategory(section)
	rel := categoryDir(category) + "/" + filename
	if err := s.store.Delete(rel); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		return &apperr.PersistenceError{Op: "delete image", Path: rel, Err: err}
	}
	s.record(ctx, journal.Entry{Action: journal.ActionDelete, Target: rel, Kind: "image"}, nil,
		sse.TypeImageDeleted, map[string]string{"section": category, "filename": filename})
	return nil
}
