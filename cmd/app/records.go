package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/inkpact/internal/collection"
	"github.com/starford/inkpact/internal/editor"
	"github.com/starford/inkpact/internal/models"
)

func serverFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "server",
		Usage:   "Base URL of a running dashboard server",
		Value:   "http://localhost:3000",
		Sources: cli.EnvVars("INKPACT_SERVER"),
	}
}

func kindFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "kind",
		Aliases:  []string{"k"},
		Usage:    "Collection: blogs, books or profiles",
		Required: true,
	}
}

func indexFlag() cli.Flag {
	return &cli.IntFlag{
		Name:     "index",
		Aliases:  []string{"i"},
		Usage:    "Zero-based record position",
		Required: true,
	}
}

func setFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:  "set",
		Usage: "Field value as key=value, repeatable",
	}
}

func newEditor(cmd *cli.Command) *editor.Editor {
	return editor.New(editor.NewHTTPBackend(cmd.String("server"), nil))
}

func recordsCommand() *cli.Command {
	return &cli.Command{
		Name:  "records",
		Usage: "List and change collection records on a running server",
		Flags: []cli.Flag{serverFlag()},
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "Print the records of a collection with their index",
				Flags:  []cli.Flag{kindFlag()},
				Action: listRecords,
			},
			{
				Name:   "create",
				Usage:  "Append a record",
				Flags:  []cli.Flag{kindFlag(), setFlag()},
				Action: createRecord,
			},
			{
				Name:   "edit",
				Usage:  "Merge fields into the record at --index",
				Flags:  []cli.Flag{kindFlag(), indexFlag(), setFlag()},
				Action: editRecord,
			},
			{
				Name:   "delete",
				Usage:  "Remove the record at --index",
				Flags:  []cli.Flag{kindFlag(), indexFlag()},
				Action: deleteRecord,
			},
		},
	}
}

// parseSet turns repeated key=value flags into a typed record for kind.
func parseSet(kind models.Kind, pairs []string) (models.Record, error) {
	values := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --set %q, want key=value", p)
		}
		values[strings.TrimSpace(k)] = v
	}
	return collection.Coerce(collection.FieldsFor(kind, values)), nil
}

func listRecords(ctx context.Context, cmd *cli.Command) error {
	kind, err := models.ParseKind(cmd.String("kind"))
	if err != nil {
		return err
	}
	s, err := newEditor(cmd).Open(ctx, kind)
	if err != nil {
		return err
	}
	if s.Warning() != "" {
		fmt.Fprintf(os.Stderr, "warning: %s\n", s.Warning())
	}
	for i, rec := range s.Records() {
		line, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		fmt.Printf("%d\t%s\n", i, line)
	}
	return nil
}

func createRecord(ctx context.Context, cmd *cli.Command) error {
	kind, err := models.ParseKind(cmd.String("kind"))
	if err != nil {
		return err
	}
	fields, err := parseSet(kind, cmd.StringSlice("set"))
	if err != nil {
		return err
	}
	return apply(ctx, cmd, kind, func(s *collection.Session) error {
		_, err := s.Create(fields)
		return err
	})
}

func editRecord(ctx context.Context, cmd *cli.Command) error {
	kind, err := models.ParseKind(cmd.String("kind"))
	if err != nil {
		return err
	}
	fields, err := parseSet(kind, cmd.StringSlice("set"))
	if err != nil {
		return err
	}
	index := int(cmd.Int("index"))
	return apply(ctx, cmd, kind, func(s *collection.Session) error {
		_, err := s.Edit(index, fields)
		return err
	})
}

func deleteRecord(ctx context.Context, cmd *cli.Command) error {
	kind, err := models.ParseKind(cmd.String("kind"))
	if err != nil {
		return err
	}
	index := int(cmd.Int("index"))
	return apply(ctx, cmd, kind, func(s *collection.Session) error {
		return s.Delete(index)
	})
}

func apply(ctx context.Context, cmd *cli.Command, kind models.Kind, change func(*collection.Session) error) error {
	out, err := newEditor(cmd).Apply(ctx, kind, change)
	if err != nil {
		return err
	}
	fmt.Printf("saved %d %s at %s\n", out.Result.Count, kind.Plural(), out.Result.Timestamp)
	for _, md := range out.Markdown {
		fmt.Printf("created %s\n", md)
	}
	return nil
}

func markdownCommand() *cli.Command {
	return &cli.Command{
		Name:  "markdown",
		Usage: "Read and write markdown posts on a running server",
		Flags: []cli.Flag{serverFlag()},
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Print a markdown post",
				ArgsUsage: "<filename>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					name := cmd.Args().First()
					if name == "" {
						return fmt.Errorf("filename is required")
					}
					content, err := editor.NewHTTPBackend(cmd.String("server"), nil).ReadMarkdown(ctx, name)
					if err != nil {
						return err
					}
					fmt.Print(content)
					return nil
				},
			},
			{
				Name:      "put",
				Usage:     "Write a markdown post from --file or stdin",
				ArgsUsage: "<filename>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Source file, - for stdin", Value: "-"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					name := cmd.Args().First()
					if name == "" {
						return fmt.Errorf("filename is required")
					}
					var (
						content []byte
						err     error
					)
					if src := cmd.String("file"); src == "-" {
						content, err = io.ReadAll(os.Stdin)
					} else {
						content, err = os.ReadFile(src)
					}
					if err != nil {
						return err
					}
					if err := editor.NewHTTPBackend(cmd.String("server"), nil).SaveMarkdown(ctx, name, string(content)); err != nil {
						return err
					}
					fmt.Printf("saved %s\n", name)
					return nil
				},
			},
		},
	}
}
