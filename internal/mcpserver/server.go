// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes InkPact content tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/inkpact/internal/collection"
	"github.com/starford/inkpact/internal/contentservice"
	"github.com/starford/inkpact/internal/editor"
	"github.com/starford/inkpact/internal/models"
)

const contractURI = "inkpact://record-format"

// Server wraps the MCP server with InkPact tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *contentservice.Service
	editor *editor.Editor
}

// New creates a new MCP server with all InkPact tools registered.
func New(svc *contentservice.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:    svc,
		editor: editor.New(editor.NewLocalBackend(svc), editor.WithLogger(logger)),
	}

	s.mcp = server.NewMCPServer(
		"InkPact",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	kindArg := mcp.WithString("kind", mcp.Required(), mcp.Enum("blogs", "books", "profiles"),
		mcp.Description("Collection to work on"))

	s.mcp.AddTool(mcp.NewTool("get_record_format",
		mcp.WithDescription("Returns the InkPact record format contract. "+
			"Call this before creating or updating records to use the right field names."),
	), s.getRecordFormat)

	s.mcp.AddTool(mcp.NewTool("list_records",
		mcp.WithDescription("List the records of a collection with their positional index."),
		kindArg,
	), s.listRecords)

	s.mcp.AddTool(mcp.NewTool("create_record",
		mcp.WithDescription("Append a record to a collection and save it. New blogs get the next id "+
			"and a starter markdown post at their mdPath."),
		kindArg,
		mcp.WithObject("fields", mcp.Description("Field values; list fields accept arrays or comma-separated text")),
	), s.createRecord)

	s.mcp.AddTool(mcp.NewTool("update_record",
		mcp.WithDescription("Merge fields into the record at index and save the collection."),
		kindArg,
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based record index from list_records")),
		mcp.WithObject("fields", mcp.Required(), mcp.Description("Field values to overwrite")),
	), s.updateRecord)

	s.mcp.AddTool(mcp.NewTool("delete_record",
		mcp.WithDescription("Remove the record at index and save the collection."),
		kindArg,
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based record index from list_records")),
	), s.deleteRecord)

	s.mcp.AddTool(mcp.NewTool("read_markdown",
		mcp.WithDescription("Read a markdown post. blogs/ is searched before the data root."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("File name such as my-post.md")),
	), s.readMarkdown)

	s.mcp.AddTool(mcp.NewTool("save_markdown",
		mcp.WithDescription("Create or overwrite a markdown post. Prefix the name with blogs/ to store it with the blogs."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("File name such as blogs/my-post.md")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content")),
	), s.saveMarkdown)

	s.mcp.AddTool(mcp.NewTool("list_images",
		mcp.WithDescription("List the images stored for a section."),
		mcp.WithString("section", mcp.Required(), mcp.Description("blogs, books, profiles or general")),
	), s.listImages)

	s.mcp.AddTool(mcp.NewTool("upload_image",
		mcp.WithDescription("Store an image from a base64 data URI or an http(s) URL in a section. "+
			"Returns the stored path and a markdown image reference."),
		mcp.WithString("section", mcp.Required(), mcp.Description("blogs, books, profiles or general")),
		mcp.WithString("url", mcp.Required(), mcp.Description("data:image/png;base64,... or https://...")),
		mcp.WithString("filename", mcp.Description("Original file name, used for the extension")),
	), s.uploadImage)

	s.mcp.AddTool(mcp.NewTool("delete_image",
		mcp.WithDescription("Delete an image from a section."),
		mcp.WithString("section", mcp.Required(), mcp.Description("blogs, books, profiles or general")),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Stored image file name")),
	), s.deleteImage)

	// Resource: record format contract.
	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Record Format Contract",
			mcp.WithResourceDescription("Field names and rules of the blogs, books and profiles collections."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecordFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func requireKind(req mcp.CallToolRequest) (models.Kind, error) {
	raw, err := req.RequireString("kind")
	if err != nil {
		return "", err
	}
	return models.ParseKind(raw)
}

// recordFields converts a JSON object of field values into a typed record.
func recordFields(kind models.Kind, raw any) (models.Record, error) {
	if raw == nil {
		return models.Record{}, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("fields must be an object")
	}
	values := make(map[string]string, len(obj))
	for k, v := range obj {
		values[k] = fieldText(v)
	}
	return collection.Coerce(collection.FieldsFor(kind, values)), nil
}

func fieldText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, p := range x {
			parts = append(parts, fieldText(p))
		}
		return strings.Join(parts, ", ")
	}
	out, _ := json.Marshal(v)
	return string(out)
}

type listResult struct {
	Kind    string          `json:"kind"`
	Count   int             `json:"count"`
	Warning string          `json:"warning,omitempty"`
	Records []indexedRecord `json:"records"`
}

type indexedRecord struct {
	Index  int           `json:"index"`
	Record models.Record `json:"record"`
}

func (s *Server) listRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := requireKind(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.svc.LoadCollection(ctx, kind)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := listResult{Kind: kind.Plural(), Count: c.Len(), Warning: c.Warning, Records: make([]indexedRecord, 0, c.Len())}
	for _, e := range c.Entries {
		out.Records = append(out.Records, indexedRecord{Index: e.Index, Record: e.Record})
	}
	return jsonResult(out), nil
}

type changeResult struct {
	Index    int           `json:"index"`
	Record   models.Record `json:"record,omitempty"`
	Count    int           `json:"count"`
	Markdown []string      `json:"markdown,omitempty"`
}

func (s *Server) createRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := requireKind(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fields, err := recordFields(kind, req.GetArguments()["fields"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var res changeResult
	out, err := s.editor.Apply(ctx, kind, func(sess *collection.Session) error {
		rec, err := sess.Create(fields)
		res.Index, res.Record = sess.Len()-1, rec
		return err
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res.Count, res.Markdown = out.Result.Count, out.Markdown
	return jsonResult(res), nil
}

func (s *Server) updateRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := requireKind(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	index, err := req.RequireInt("index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fields, err := recordFields(kind, req.GetArguments()["fields"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res := changeResult{Index: index}
	out, err := s.editor.Apply(ctx, kind, func(sess *collection.Session) error {
		rec, err := sess.Edit(index, fields)
		res.Record = rec
		return err
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res.Count = out.Result.Count
	return jsonResult(res), nil
}

func (s *Server) deleteRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := requireKind(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	index, err := req.RequireInt("index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.editor.Apply(ctx, kind, func(sess *collection.Session) error {
		return sess.Delete(index)
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted %s[%d], %d left", kind.Plural(), index, out.Result.Count)), nil
}

func (s *Server) readMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	md, err := s.svc.ReadMarkdown(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", name, err)), nil
	}
	return mcp.NewToolResultText(md.Content), nil
}

func (s *Server) saveMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	md, err := s.svc.SaveMarkdown(ctx, name, content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", md.Path)), nil
}

func (s *Server) listImages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	section, err := req.RequireString("section")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	names, err := s.svc.ListImages(ctx, section)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(names) == 0 {
		return mcp.NewToolResultText("no images found"), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) deleteImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	section, err := req.RequireString("section")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteImage(ctx, section, name); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", name)), nil
}

func (s *Server) getRecordFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RecordFormatContract), nil
}

func (s *Server) readRecordFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     RecordFormatContract,
		},
	}, nil
}
