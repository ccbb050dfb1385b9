package mapping

import (
	"context"
	"slices"
	"testing"

	"go.uber.org/zap/zaptest"

	"idmlfill/common"
	"idmlfill/content"
	"idmlfill/content/text"
	"idmlfill/tags"
)

const library = `
items:
  - id: "1"
    title: First title
    body: "<p>First sentence here. Second sentence is here.</p><p>Third one.</p>"
    thumbnail: a1
  - id: "2"
    title: "Second &amp; final title here"
    categories: [News, Local]
    date: 2024-03-01
attachments:
  - id: a1
    path: /media/photo.webp
`

func testRegistry() *tags.Registry {
	return &tags.Registry{
		Names: []string{"headline", "body1", "body2", "photo", "dateline"},
		Details: map[string]*tags.Tag{
			"headline": {Name: "headline", Type: common.TagTypeText, Length: 20, WordCount: 2},
			"body1":    {Name: "body1", Type: common.TagTypeText, Length: 30, WordCount: 6},
			"body2":    {Name: "body2", Type: common.TagTypeText, Length: 100, WordCount: 20},
			"photo":    {Name: "photo", Type: common.TagTypeImage},
			"dateline": {Name: "dateline", Type: common.TagTypeText, Length: 10, WordCount: 3},
		},
	}
}

func testLibrary(t *testing.T) *content.Library {
	t.Helper()
	lib, err := content.ParseLibrary([]byte(library), "")
	if err != nil {
		t.Fatal(err)
	}
	return lib
}

func resolve(t *testing.T, data string) (*Resolution, error) {
	t.Helper()
	b, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	lib := testLibrary(t)
	opts := DefaultOptions()
	opts.Log = zaptest.NewLogger(t)
	opts.Splitter = text.NewSplitter(opts.Log)
	return Resolve(context.Background(), b, testRegistry(), lib, lib, opts)
}

func warningKinds(res *Resolution) []common.WarningKind {
	var kinds []common.WarningKind
	for _, w := range res.Warnings {
		kinds = append(kinds, w.Kind)
	}
	return kinds
}

func TestResolve(t *testing.T) {
	res, err := resolve(t, `[
		{"item": "1", "elements": {"title": "headline", "body": [{"tag": "body1"}, {"tag": "body2"}], "featured_image": "photo"}},
		{"item": "2", "elements": {"title": "headline", "categories": "cats", "excerpt": "photo", "date": "dateline"}}
	]`)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if !slices.Equal(res.UsedTags, []string{"headline", "body1", "body2", "photo", "cats", "dateline"}) {
		t.Errorf("UsedTags = %v", res.UsedTags)
	}

	want := map[string]string{
		"headline": "Second & final title here",
		"body1":    "First sentence here.",
		"body2":    "Second sentence is here.\nThird one.",
		"cats":     "News, Local",
		"dateline": "March 1, 2024",
	}
	for tag, v := range want {
		if res.Text[tag] != v {
			t.Errorf("Text[%q] = %q, want %q", tag, res.Text[tag], v)
		}
	}
	if len(res.Text) != len(want) {
		t.Errorf("unexpected text tags: %v", res.Text)
	}
	if res.Images["photo"] != "/media/photo.webp" {
		t.Errorf("Images = %v", res.Images)
	}

	if len(res.Conflicts) != 1 {
		t.Fatalf("expected single conflict, got %+v", res.Conflicts)
	}
	c := res.Conflicts[0]
	if c.Tag != "headline" || c.Previous.ItemID != "1" || c.Current.ItemID != "2" {
		t.Errorf("unexpected conflict %+v", c)
	}
	if src := res.Sources["body2"]; src.ItemID != "1" || src.Element != ElementContent || src.Chunk != 1 {
		t.Errorf("unexpected source %+v", src)
	}

	kinds := warningKinds(res)
	wantKinds := []common.WarningKind{
		common.WarningKindUnknownTag,
		common.WarningKindTypeMismatch,
		common.WarningKindWordCount,
	}
	if !slices.Equal(kinds, wantKinds) {
		t.Errorf("warnings = %v, want %v", kinds, wantKinds)
	}
	if w := res.Warnings[2]; w.Tag != "headline" || w.ItemID != "2" {
		t.Errorf("word count warning %+v", w)
	}
}

func TestResolveExcerptFallback(t *testing.T) {
	res, err := resolve(t, `[{"item": "1", "elements": {"excerpt": "body2"}}]`)
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Text["body2"]; got != "First sentence here. Second sentence is here. Third one." {
		t.Errorf("excerpt = %q", got)
	}
}

func TestResolveMissingImage(t *testing.T) {
	res, err := resolve(t, `[{"item": "2", "elements": {"thumbnail": "photo"}}]`)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Images) != 0 {
		t.Errorf("no image expected: %v", res.Images)
	}
	if !slices.Equal(warningKinds(res), []common.WarningKind{common.WarningKindMissingValue}) {
		t.Errorf("warnings = %+v", res.Warnings)
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		kind common.ErrorKind
	}{
		{"unknown item", `[{"item": "99", "elements": {"title": "headline"}}]`, common.ErrorKindNotFound},
		{"unknown element", `[{"item": "1", "elements": {"author": "headline"}}]`, common.ErrorKindValidation},
		{"chunked image", `[{"item": "1", "elements": {"thumbnail": [{"tag": "photo"}]}}]`, common.ErrorKindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolve(t, tt.data)
			if !common.IsKind(err, tt.kind) {
				t.Errorf("expected %s error, got %v", tt.kind, err)
			}
		})
	}
}

func TestResolveCancelled(t *testing.T) {
	b, err := Decode([]byte(`[{"item": "1", "elements": {"title": "headline"}}]`))
	if err != nil {
		t.Fatal(err)
	}
	lib := testLibrary(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Resolve(ctx, b, testRegistry(), lib, lib, Options{}); err == nil {
		t.Error("expected error for cancelled context")
	}
}
