package contentservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/inkpact/internal/apperr"
	"github.com/starford/inkpact/internal/journal"
	"github.com/starford/inkpact/internal/models"
	"github.com/starford/inkpact/internal/testutil"
)

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) PublishChange(eventType string, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
}

func newTestService(t *testing.T, opts ...Option) (*Service, string) {
	t.Helper()
	dir, store := testutil.TestData(t)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	opts = append([]Option{WithClock(func() time.Time { return fixed })}, opts...)
	return New(store, opts...), dir
}

func readFile(t *testing.T, dir, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}

func TestBootstrap(t *testing.T) {
	svc, dir := newTestService(t)
	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	for _, d := range []string{"blogs", "thumbnails/blogs", "thumbnails/books", "thumbnails/profiles"} {
		if info, err := os.Stat(filepath.Join(dir, d)); err != nil || !info.IsDir() {
			t.Errorf("%s missing: %v", d, err)
		}
	}
}

func TestReplaceCollection_BlogsKeepShapeAndIndent(t *testing.T) {
	svc, dir := newTestService(t)
	body := `{"blogs":[{"id":1,"title":"A","legacy":true,"big":12345678901234567890}]}`

	res, err := svc.ReplaceCollection(context.Background(), models.KindBlog, []byte(body))
	if err != nil {
		t.Fatalf("ReplaceCollection: %v", err)
	}
	if res.Count != 1 || res.Path != "blogs.json" {
		t.Errorf("result = %+v", res)
	}
	if res.Timestamp != "2025-01-02T03:04:05.006Z" {
		t.Errorf("timestamp = %q", res.Timestamp)
	}

	want := "{\n    \"blogs\": [\n        {\n            \"id\": 1,\n            \"title\": \"A\",\n            \"legacy\": true,\n            \"big\": 12345678901234567890\n        }\n    ]\n}"
	if got := readFile(t, dir, "blogs.json"); got != want {
		t.Errorf("file =\n%s\nwant\n%s", got, want)
	}
}

func TestReplaceCollection_BooksTwoSpaces(t *testing.T) {
	svc, dir := newTestService(t)
	if _, err := svc.ReplaceCollection(context.Background(), models.KindBook, []byte(`{"books":[]}`)); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, dir, "books.json"); got != "{\n  \"books\": []\n}" {
		t.Errorf("file = %q", got)
	}
}

func TestReplaceCollection_ProfileProjection(t *testing.T) {
	svc, dir := newTestService(t)
	body := `{"profiles":[{"id":3,"name":"Ada","role":"Editor","debug":true,"email":"x@y"}],"extra":1}`

	res, err := svc.ReplaceCollection(context.Background(), models.KindProfile, []byte(body))
	if err != nil {
		t.Fatalf("ReplaceCollection: %v", err)
	}
	if res.Count != 1 {
		t.Errorf("count = %d, want 1", res.Count)
	}

	var got map[string][]map[string]any
	if err := json.Unmarshal([]byte(readFile(t, dir, "profiles.json")), &got); err != nil {
		t.Fatal(err)
	}
	want := map[string][]map[string]any{
		"profiles": {{"id": float64(3), "name": "Ada", "role": "Editor"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("profiles.json = %v, want %v", got, want)
	}
}

func TestReplaceCollection_ProfileRequiresEnvelope(t *testing.T) {
	svc, dir := newTestService(t)
	cases := []string{`[{"name":"a"}]`, `{"profiles":{}}`, `{"people":[]}`, `{"profiles":[1]}`, `nope`}
	for _, body := range cases {
		_, err := svc.ReplaceCollection(context.Background(), models.KindProfile, []byte(body))
		if !errors.Is(err, apperr.ErrMalformedCollection) {
			t.Errorf("body %s: err = %v, want malformed", body, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "profiles.json")); !os.IsNotExist(err) {
		t.Errorf("rejected save touched the file: %v", err)
	}
}

func TestReplaceCollection_InvalidJSON(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ReplaceCollection(context.Background(), models.KindBook, []byte(`{"books":[`))
	if !errors.Is(err, apperr.ErrMalformedCollection) {
		t.Errorf("err = %v, want malformed", err)
	}
}

func TestReplaceCollection_ConcurrentLastWriterWins(t *testing.T) {
	svc, dir := newTestService(t)
	a := `{"books":[{"title":"A"}]}`
	b := `{"books":[{"title":"B"},{"title":"B2"}]}`

	var wg sync.WaitGroup
	for _, body := range []string{a, b} {
		wg.Add(1)
		go func(body string) {
			defer wg.Done()
			if _, err := svc.ReplaceCollection(context.Background(), models.KindBook, []byte(body)); err != nil {
				t.Errorf("ReplaceCollection: %v", err)
			}
		}(body)
	}
	wg.Wait()

	var buf bytes.Buffer
	got := readFile(t, dir, "books.json")
	matched := false
	for _, body := range []string{a, b} {
		buf.Reset()
		_ = json.Indent(&buf, []byte(body), "", "  ")
		if got == buf.String() {
			matched = true
		}
	}
	if !matched {
		t.Errorf("file is neither document: %q", got)
	}
}

func TestReplaceCollection_JournalsAndNotifies(t *testing.T) {
	db := testutil.TestJournal(t)
	n := &fakeNotifier{}
	svc, _ := newTestService(t, WithRecorder(db), WithNotifier(n))

	if _, err := svc.ReplaceCollection(context.Background(), models.KindBook, []byte(`[{"title":"x"}]`)); err != nil {
		t.Fatal(err)
	}
	entries, err := db.List(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Target != "books.json" || entries[0].Count != 1 || entries[0].Checksum == "" {
		t.Errorf("entries = %+v", entries)
	}
	if !reflect.DeepEqual(n.events, []string{"collection.saved"}) {
		t.Errorf("events = %v", n.events)
	}
}

func TestLoadCollection_Availability(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	c, err := svc.LoadCollection(ctx, models.KindBlog)
	if err != nil || c.Len() != 0 {
		t.Fatalf("missing file: len = %v, err = %v", c, err)
	}

	testutil.WriteFile(t, dir, "blogs.json", `{"posts": 1}`)
	c, err = svc.LoadCollection(ctx, models.KindBlog)
	if err != nil {
		t.Fatalf("malformed: %v", err)
	}
	if c.Len() != 0 || c.Warning == "" {
		t.Errorf("malformed: len = %d, warning = %q", c.Len(), c.Warning)
	}

	testutil.WriteFile(t, dir, "blogs.json", `[{"id":1,"title":"A"}]`)
	c, err = svc.LoadCollection(ctx, models.KindBlog)
	if err != nil || c.Len() != 1 {
		t.Fatalf("bare array: %v, %v", c, err)
	}
	if got := c.Entries[0].View.(*models.Blog).BlogName; got != "A" {
		t.Errorf("blogName = %q, want A", got)
	}
}

func TestValidateMarkdownName(t *testing.T) {
	cases := []struct {
		raw     string
		ok      bool
		name    string
		inBlogs bool
	}{
		{"my-post_1.md", true, "my-post_1.md", false},
		{"blogs/1741942800000.md", true, "1741942800000.md", true},
		{`blogs\win.md`, true, "win.md", true},
		{"../../etc/passwd.md", false, "", false},
		{"blogs/../x.md", false, "", false},
		{"a b.md", false, "", false},
		{"script.js", false, "", false},
		{"", false, "", false},
		{".md", false, "", false},
	}
	for _, tc := range cases {
		ref, err := ValidateMarkdownName(tc.raw)
		if tc.ok {
			if err != nil {
				t.Errorf("%q: unexpected error %v", tc.raw, err)
				continue
			}
			if ref.Name != tc.name || ref.InBlogs != tc.inBlogs {
				t.Errorf("%q: ref = %+v", tc.raw, ref)
			}
			continue
		}
		if !errors.Is(err, apperr.ErrInvalidFilename) {
			t.Errorf("%q: err = %v, want invalid filename", tc.raw, err)
		}
	}
}

func TestSaveAndReadMarkdown(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	saved, err := svc.SaveMarkdown(ctx, "blogs/post.md", "# Post\n")
	if err != nil {
		t.Fatalf("SaveMarkdown: %v", err)
	}
	if saved.Path != "blogs/post.md" || saved.Filename != "post.md" {
		t.Errorf("saved = %+v", saved)
	}
	if got := readFile(t, dir, "blogs/post.md"); got != "# Post\n" {
		t.Errorf("content = %q", got)
	}

	if _, err := svc.SaveMarkdown(ctx, "root.md", ""); err != nil {
		t.Fatalf("SaveMarkdown root: %v", err)
	}

	got, err := svc.ReadMarkdown(ctx, "post.md")
	if err != nil {
		t.Fatalf("ReadMarkdown: %v", err)
	}
	if got.Content != "# Post\n" || got.Path != "blogs/post.md" {
		t.Errorf("read = %+v", got)
	}

	got, err = svc.ReadMarkdown(ctx, "root.md")
	if err != nil || got.Path != "root.md" || got.Content != "" {
		t.Errorf("root read = %+v, %v", got, err)
	}

	if _, err := svc.ReadMarkdown(ctx, "missing.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v, want ErrNotFound", err)
	}
}

func TestSaveMarkdown_PrefersBlogsCopy(t *testing.T) {
	svc, dir := newTestService(t)
	testutil.WriteFile(t, dir, "dup.md", "root")
	testutil.WriteFile(t, dir, "blogs/dup.md", "blogs")

	got, err := svc.ReadMarkdown(context.Background(), "dup.md")
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "blogs" {
		t.Errorf("content = %q, want blogs copy", got.Content)
	}
}

func TestResolveCategory(t *testing.T) {
	cases := map[string]string{
		"blogs": "blogs", "Books": "books", "profiles": "profiles",
		"": "general", "avatars": "general", "../etc": "general",
	}
	for in, want := range cases {
		if got := ResolveCategory(in); got != want {
			t.Errorf("ResolveCategory(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUploadImage(t *testing.T) {
	db := testutil.TestJournal(t)
	svc, dir := newTestService(t, WithRecorder(db))
	data := testutil.PNG(t, 3, 2)

	info, err := svc.UploadImage(context.Background(), "blogs", ImageUpload{
		Filename:  "Cover.PNG",
		MediaType: "image/png",
		Body:      bytes.NewReader(data),
	})
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	if info.Width != 3 || info.Height != 2 {
		t.Errorf("size = %dx%d, want 3x2", info.Width, info.Height)
	}
	if !strings.HasPrefix(info.Filename, "1735787045006-") || !strings.HasSuffix(info.Filename, ".png") {
		t.Errorf("filename = %q", info.Filename)
	}
	if err := ValidateImageName(info.Filename); err != nil {
		t.Errorf("generated name fails validation: %v", err)
	}
	if info.Path != "data/thumbnails/blogs/"+info.Filename || info.Section != "blogs" {
		t.Errorf("info = %+v", info)
	}
	if got := readFile(t, dir, "thumbnails/blogs/"+info.Filename); got != string(data) {
		t.Error("stored bytes differ")
	}

	entries, _ := db.List(context.Background(), 1)
	if len(entries) != 1 || entries[0].Action != journal.ActionUpload {
		t.Errorf("entries = %+v", entries)
	}
}

func TestUploadImage_UnknownSectionGoesToGeneral(t *testing.T) {
	svc, _ := newTestService(t)
	info, err := svc.UploadImage(context.Background(), "misc", ImageUpload{
		Filename:  "x",
		MediaType: "image/jpg",
		Body:      bytes.NewReader(testutil.PNG(t, 1, 1)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if info.Section != "general" || !strings.HasSuffix(info.Filename, ".jpg") {
		t.Errorf("info = %+v", info)
	}
}

func TestUploadImage_Rejections(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	_, err := svc.UploadImage(ctx, "blogs", ImageUpload{Filename: "a.bmp", MediaType: "image/bmp", Body: strings.NewReader("BM")})
	if !errors.Is(err, apperr.ErrUnsupportedMediaType) {
		t.Errorf("bmp err = %v, want unsupported media type", err)
	}

	big := make([]byte, 11<<20)
	copy(big, testutil.PNG(t, 1, 1))
	_, err = svc.UploadImage(ctx, "blogs", ImageUpload{Filename: "big.png", MediaType: "image/png", Body: bytes.NewReader(big)})
	if !errors.Is(err, apperr.ErrPayloadTooLarge) {
		t.Errorf("11MiB err = %v, want payload too large", err)
	}

	_, err = svc.UploadImage(ctx, "blogs", ImageUpload{Filename: "fake.png", MediaType: "image/png", Body: strings.NewReader("not an image at all")})
	if !errors.Is(err, apperr.ErrUnsupportedMediaType) {
		t.Errorf("fake png err = %v, want unsupported media type", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "thumbnails", "blogs")); !os.IsNotExist(err) {
		t.Errorf("rejected uploads left files: %v", err)
	}
}

func TestListImages(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	got, err := svc.ListImages(ctx, "books")
	if err != nil || len(got) != 0 || got == nil {
		t.Fatalf("missing dir: %v, %v", got, err)
	}

	testutil.WriteFile(t, dir, "thumbnails/books/b.PNG", "x")
	testutil.WriteFile(t, dir, "thumbnails/books/a.jpg", "x")
	testutil.WriteFile(t, dir, "thumbnails/books/notes.txt", "x")

	got, err = svc.ListImages(ctx, "books")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"a.jpg", "b.PNG"}) {
		t.Errorf("images = %v", got)
	}
}

func TestDeleteImage(t *testing.T) {
	n := &fakeNotifier{}
	svc, dir := newTestService(t, WithNotifier(n))
	ctx := context.Background()
	testutil.WriteFile(t, dir, "thumbnails/profiles/ada.webp", "x")

	if err := svc.DeleteImage(ctx, "profiles", "ada.webp"); err != nil {
		t.Fatalf("DeleteImage: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "thumbnails", "profiles", "ada.webp")); !os.IsNotExist(err) {
		t.Error("file still exists")
	}
	if err := svc.DeleteImage(ctx, "profiles", "ada.webp"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
	for _, bad := range []string{"../x.png", "a b.png", "script.js", "x.PNG.exe"} {
		if err := svc.DeleteImage(ctx, "profiles", bad); !errors.Is(err, apperr.ErrInvalidFilename) {
			t.Errorf("%q err = %v, want invalid filename", bad, err)
		}
	}
	if !reflect.DeepEqual(n.events, []string{"image.deleted"}) {
		t.Errorf("events = %v", n.events)
	}
}
