package tags

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/etree"

	"idmlfill/common"
	"idmlfill/idml"
	"idmlfill/idml/idmltest"
)

func parse(t *testing.T, s string) *etree.Document {
	t.Helper()

	doc := etree.NewDocument()
	if err := doc.ReadFromString(s); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func sampleIndex(t *testing.T) *idml.Index {
	t.Helper()

	dir := t.TempDir()
	idmltest.Sample().WriteDir(t, dir)
	idx, err := idml.ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	return idx
}

func TestScan(t *testing.T) {
	doc := parse(t, `<Story Self="u1">`+
		idmltest.Tag("e1", "title", idmltest.Text("A & B"))+
		idmltest.Tag("e2", "Root", idmltest.Tag("e3", "nested", idmltest.Text("one", "two")))+
		idmltest.Tag("e4", "Picture_x0020_Main", `<Rectangle Self="r1"/>`)+
		idmltest.TypedTag("e5", "image_credit", "text", idmltest.Text("Photo: Jane"))+
		idmltest.TypedTag("e6", "banner", "IMAGE", "")+
		idmltest.TypedTag("e7", "odd", "video", idmltest.Text("x"))+
		`<XMLElement Self="e8" MarkupTag="Other/none"/>`+
		`</Story>`)

	markers := Scan(doc, "u1", DefaultScanOptions())

	want := []Marker{
		{Name: "title", Type: common.TagTypeText, Content: "A & B", ElementID: "e1", StoryID: "u1"},
		{Name: "nested", Type: common.TagTypeText, Content: "one\ntwo", ElementID: "e3", StoryID: "u1"},
		{Name: "Picture Main", Type: common.TagTypeImage, ElementID: "e4", Ref: "r1", StoryID: "u1"},
		{Name: "image_credit", Type: common.TagTypeText, Explicit: true, Content: "Photo: Jane", ElementID: "e5", StoryID: "u1"},
		{Name: "banner", Type: common.TagTypeImage, Explicit: true, ElementID: "e6", StoryID: "u1"},
		{Name: "odd", Type: common.TagTypeText, Content: "x", ElementID: "e7", StoryID: "u1"},
	}
	if len(markers) != len(want) {
		t.Fatalf("Scan() returned %d markers: %+v", len(markers), markers)
	}
	for i := range want {
		if markers[i] != want[i] {
			t.Errorf("marker %d = %+v, want %+v", i, markers[i], want[i])
		}
	}
}

func TestScan_Options(t *testing.T) {
	doc := parse(t, `<Story Self="u1">`+
		idmltest.Tag("e1", "Root", idmltest.Tag("e2", "visual_top", ""))+
		`<XMLElement Self="e3" MarkupTag="XMLTag/hero"><XMLAttribute Self="a" Name="kind" Value="image"/></XMLElement>`+
		`</Story>`)

	opts := ScanOptions{Ignore: nil, ImagePrefixes: []string{"Visual"}, TypeAttribute: "kind"}
	markers := Scan(doc, "u1", opts)
	if len(markers) != 3 {
		t.Fatalf("Scan() = %+v, Root must not be ignored", markers)
	}
	if markers[1].Type != common.TagTypeImage || markers[1].Explicit {
		t.Errorf("prefix heuristic failed: %+v", markers[1])
	}
	if markers[2].Type != common.TagTypeImage || !markers[2].Explicit {
		t.Errorf("custom type attribute ignored: %+v", markers[2])
	}
}

func TestDecodeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain", "plain"},
		{"two_x0020_words", "two words"},
		{"_x0031_st", "1st"},
		{"bad_x00zz_", "bad_x00zz_"},
	}
	for _, tt := range tests {
		if got := DecodeName(tt.in); got != tt.want {
			t.Errorf("DecodeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestText(t *testing.T) {
	doc := parse(t, `<XMLElement>`+
		`<ParagraphStyleRange><CharacterStyleRange><Content>Hello</Content><Br/><Content>wor<?ACE 7?>ld</Content></CharacterStyleRange></ParagraphStyleRange>`+
		`<Properties><Content>hidden</Content></Properties>`+
		`</XMLElement>`)
	if got := Text(doc.Root()); got != "Hello\nworld" {
		t.Errorf("Text() = %q", got)
	}
}

func TestScanIndex(t *testing.T) {
	idx := sampleIndex(t)

	markers, texts, err := ScanIndex(context.Background(), idx, DefaultScanOptions())
	if err != nil {
		t.Fatalf("ScanIndex() error = %v", err)
	}

	var names []string
	for _, m := range markers {
		names = append(names, m.Name+"@"+m.StoryID)
	}
	want := "headline@u10 body@u10 caption@u20 headline@u20 photo_main@ubacking sidebar@ubacking logo@ubacking"
	if got := strings.Join(names, " "); got != want {
		t.Errorf("markers = %s\nwant      %s", got, want)
	}
	if texts["u40"] != "Sidebar text goes here." {
		t.Errorf("story text = %q", texts["u40"])
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := ScanIndex(ctx, idx, DefaultScanOptions()); err == nil {
		t.Error("ScanIndex() must honour cancelled context")
	}
}

func TestScanFile_Broken(t *testing.T) {
	if _, _, err := ScanFile(filepath.Join(t.TempDir(), "none.xml"), "u1", DefaultScanOptions()); !common.IsKind(err, common.ErrorKindFormat) {
		t.Errorf("ScanFile() error = %v, want format error", err)
	}
}
