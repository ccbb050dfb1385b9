package commands

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/encoding/charmap"

	"idmlfill/config"
	"idmlfill/engine"
	"idmlfill/idml/idmltest"
	"idmlfill/mapping"
	"idmlfill/state"
)

const library = `
templates:
  - id: weekly
    title: Weekly Issue
    archive: pkg
items:
  - id: "1"
    title: Spring news
    body: "<p>Body text.</p>"
    thumbnail: a1
attachments:
  - id: pkg
    path: weekly.idml
  - id: a1
    path: photo.png
`

type fixture struct {
	base string
	ctx  context.Context
	env  *state.LocalEnv
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	base := t.TempDir()
	idmltest.Sample().WriteFile(t, filepath.Join(base, "weekly.idml"))
	idmltest.WritePNG(t, filepath.Join(base, "photo.png"), 4, 4)
	if err := os.WriteFile(filepath.Join(base, "library.yaml"), []byte(library), 0644); err != nil {
		t.Fatal(err)
	}

	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = zaptest.NewLogger(t)
	env.Cfg = &config.Config{}
	env.Cfg.Engine.WorkDir = filepath.Join(base, "work")
	env.Cfg.Engine.StorePath = filepath.Join(base, "store.db")
	env.Cfg.Engine.Library = filepath.Join(base, "library.yaml")
	env.Cfg.Export.Destination = filepath.Join(base, "exports")
	env.Cfg.Export.NameTemplate = "{{ .TemplateID }}-{{ .PublicationID }}"
	env.Cfg.Export.Images.JPEGQuality = 90

	return &fixture{base: base, ctx: ctx, env: env}
}

func (f *fixture) path(name string) string {
	return filepath.Join(f.base, name)
}

func (f *fixture) run(t *testing.T, args ...string) error {
	t.Helper()

	out := func() cli.Flag { return &cli.StringFlag{Name: "output"} }
	app := &cli.Command{
		Name: "test",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "library"},
			&cli.StringFlag{Name: "force-zip-cp"},
		},
		Commands: []*cli.Command{
			{Name: "extract", Action: Extract, Flags: []cli.Flag{&cli.BoolFlag{Name: "force"}, out()}},
			{Name: "export", Action: Export, Flags: []cli.Flag{
				&cli.StringFlag{Name: "package"},
				&cli.StringFlag{Name: "mapping"},
				&cli.StringFlag{Name: "publication"},
				&cli.StringFlag{Name: "title"},
				&cli.BoolFlag{Name: "overwrite"},
				out(),
			}},
			{Name: "tags", Action: Tags, Flags: []cli.Flag{&cli.BoolFlag{Name: "json"}, out()}},
			{Name: "invalidate", Action: Invalidate},
			{Name: "mapping", Commands: []*cli.Command{
				{Name: "save", Action: MappingSave},
				{Name: "show", Action: MappingShow, Flags: []cli.Flag{out()}},
				{Name: "delete", Action: MappingDelete},
			}},
		},
	}
	return app.Run(f.ctx, append([]string{"test"}, args...))
}

func decodeFile[T any](t *testing.T, path string) T {
	t.Helper()

	var v T
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("%s: %v", path, err)
	}
	return v
}

func TestExtractCommand(t *testing.T) {
	f := newFixture(t)

	if err := f.run(t, "extract", "--output", f.path("first.json"), "weekly"); err != nil {
		t.Fatal(err)
	}
	first := decodeFile[engine.ExtractResponse](t, f.path("first.json"))
	if first.Action != engine.ActionExtracted {
		t.Errorf("Action = %q, want %q", first.Action, engine.ActionExtracted)
	}
	if len(first.Tags) == 0 {
		t.Fatal("no tags extracted")
	}

	// store is on disk so second run sees cached tags
	if err := f.run(t, "extract", "--output", f.path("second.json"), "weekly"); err != nil {
		t.Fatal(err)
	}
	second := decodeFile[engine.ExtractResponse](t, f.path("second.json"))
	if second.Action != engine.ActionLoaded {
		t.Errorf("Action = %q, want %q", second.Action, engine.ActionLoaded)
	}
	if !slices.Equal(first.Tags, second.Tags) {
		t.Errorf("cached tags %v, extracted %v", second.Tags, first.Tags)
	}

	if err := f.run(t, "invalidate", "weekly"); err != nil {
		t.Fatal(err)
	}
	if err := f.run(t, "extract", "--output", f.path("third.json"), "weekly"); err != nil {
		t.Fatal(err)
	}
	if third := decodeFile[engine.ExtractResponse](t, f.path("third.json")); third.Action != engine.ActionExtracted {
		t.Errorf("Action after invalidation = %q", third.Action)
	}

	if err := f.run(t, "extract"); err == nil {
		t.Error("expected error without template")
	}
}

func TestTagsCommand(t *testing.T) {
	f := newFixture(t)

	if err := f.run(t, "tags", "--output", f.path("tags.txt"), f.path("weekly.idml")); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(f.path("tags.txt"))
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"headline", "photo_main", "body"} {
		if !strings.Contains(string(data), name) {
			t.Errorf("tag %q not listed:\n%s", name, data)
		}
	}

	if err := f.run(t, "tags", "--json", "--output", f.path("tags.json"), "weekly"); err != nil {
		t.Fatal(err)
	}
	reg := decodeFile[struct {
		Tags []string `json:"tags"`
	}](t, f.path("tags.json"))
	if !slices.Contains(reg.Tags, "headline") {
		t.Errorf("tags = %v", reg.Tags)
	}
}

func TestMappingCommands(t *testing.T) {
	f := newFixture(t)

	src := f.path("mapping.json")
	if err := os.WriteFile(src, []byte(`{"1": {"title": "headline", "thumbnail": "photo_main"}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := f.run(t, "mapping", "save", "p1", src); err != nil {
		t.Fatal(err)
	}
	if err := f.run(t, "mapping", "show", "--output", f.path("shown.json"), "p1"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(f.path("shown.json"))
	if err != nil {
		t.Fatal(err)
	}
	batch, err := mapping.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(batch.UsedTags(), []string{"headline", "photo_main"}) {
		t.Errorf("UsedTags = %v", batch.UsedTags())
	}

	// export picks saved mapping
	if err := f.run(t, "export", "--publication", "p1", "--output", f.path("export.json"), "weekly"); err != nil {
		t.Fatal(err)
	}
	resp := decodeFile[engine.ExportResponse](t, f.path("export.json"))
	if filepath.Base(resp.Path) != "weekly-p1.zip" {
		t.Errorf("Path = %q", resp.Path)
	}
	if _, err := os.Stat(resp.Path); err != nil {
		t.Error(err)
	}

	// same name again without overwrite
	if err := f.run(t, "export", "--publication", "p1", "weekly"); err == nil {
		t.Error("expected error for existing delivery")
	}
	if err := f.run(t, "export", "--publication", "p1", "--overwrite", "--output", f.path("again.json"), "weekly"); err != nil {
		t.Errorf("overwrite: %v", err)
	}

	if err := f.run(t, "mapping", "delete", "p1"); err != nil {
		t.Fatal(err)
	}
	if err := f.run(t, "mapping", "show", "p1"); err == nil {
		t.Error("expected error for deleted mapping")
	}
	if err := f.run(t, "mapping", "save", "p1"); err == nil {
		t.Error("expected error without mapping file")
	}
}

func TestExportCommandPackage(t *testing.T) {
	f := newFixture(t)

	src := f.path("mapping.json")
	if err := os.WriteFile(src, []byte(`[{"item": "1", "elements": {"title": "headline"}}]`), 0644); err != nil {
		t.Fatal(err)
	}
	err := f.run(t, "export", "--package", f.path("weekly.idml"), "--mapping", src, "--publication", "p2", "--output", f.path("export.json"))
	if err != nil {
		t.Fatal(err)
	}
	resp := decodeFile[engine.ExportResponse](t, f.path("export.json"))
	if !slices.Equal(resp.UsedTags, []string{"headline"}) {
		t.Errorf("UsedTags = %v", resp.UsedTags)
	}

	if err := f.run(t, "export", "--mapping", f.path("absent.json"), "weekly"); err == nil {
		t.Error("expected error for absent mapping file")
	}
}

func TestCodePage(t *testing.T) {
	f := newFixture(t)

	var got []any
	app := &cli.Command{
		Name:  "test",
		Flags: []cli.Flag{&cli.StringFlag{Name: "force-zip-cp"}},
		Action: func(_ context.Context, cmd *cli.Command) error {
			got = append(got, codePage(cmd, f.env.Log))
			return nil
		},
	}
	for _, args := range [][]string{
		{"test", "--force-zip-cp", "windows-1251"},
		{"test", "--force-zip-cp", "no-such-charset"},
		{"test"},
	} {
		if err := app.Run(f.ctx, args); err != nil {
			t.Fatal(err)
		}
	}
	if len(got) != 3 {
		t.Fatalf("got %d results", len(got))
	}
	if got[0] != charmap.Windows1251 {
		t.Errorf("windows-1251 resolved to %v", got[0])
	}
	if got[1] != nil || got[2] != nil {
		t.Errorf("expected nil encodings, got %v and %v", got[1], got[2])
	}
}

func TestOutput(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "out.json")

	if err := output(fname, map[string]int{"a": 1}); err != nil {
		t.Fatal(err)
	}
	data, err := readFile(fname)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{\n  \"a\": 1\n}\n" {
		t.Errorf("output = %q", data)
	}
	if err := output(filepath.Join(dir, "absent", "out.json"), 1); err == nil {
		t.Error("expected error for absent directory")
	}
}
