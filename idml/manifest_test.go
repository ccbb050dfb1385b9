package idml

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"idmlfill/common"
	"idmlfill/idml/idmltest"
)

func sampleIndex(t *testing.T) *Index {
	t.Helper()

	dir := t.TempDir()
	idmltest.Sample().WriteDir(t, dir)
	idx, err := ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	return idx
}

func TestReadManifest(t *testing.T) {
	idx := sampleIndex(t)

	var stories []string
	for _, p := range idx.Stories {
		stories = append(stories, p.ID)
	}
	if !slices.Equal(stories, []string{"u10", "u20", "u40"}) {
		t.Errorf("stories = %v", stories)
	}
	if len(idx.Spreads) != 1 || idx.Spreads[0].ID != "us1" || idx.Spreads[0].Src != "Spreads/Spread_us1.xml" {
		t.Errorf("spreads = %v", idx.Spreads)
	}
	if idx.Backing == nil || idx.Backing.ID != "ubacking" {
		t.Errorf("backing = %v", idx.Backing)
	}

	order := idx.ScanOrder()
	if len(order) != 4 || order[3].ID != "ubacking" {
		t.Errorf("scan order = %v, backing story must be last", order)
	}

	for _, story := range []string{"u10", "u20", "u40"} {
		if got := idx.StoryToSpreads[story]; !slices.Equal(got, []string{"us1"}) {
			t.Errorf("StoryToSpreads[%s] = %v", story, got)
		}
	}

	if len(idx.PageList) != 2 || idx.PageList[0].Number != 1 || idx.PageList[1].Number != 2 {
		t.Errorf("pages = %v", idx.PageList)
	}

	src, ok := idx.PartOf("u30")
	if !ok || src != "Spreads/Spread_us1.xml" {
		t.Errorf("PartOf(u30) = %s, %v", src, ok)
	}
	if src, ok = idx.PartOf("di10a"); !ok || src != "Stories/Story_u10.xml" {
		t.Errorf("PartOf(di10a) = %s, %v", src, ok)
	}
	if _, ok := idx.Story("u20"); !ok {
		t.Error("Story(u20) not found")
	}
}

func TestIndex_Pages(t *testing.T) {
	idx := sampleIndex(t)

	tests := []struct {
		name    string
		story   string
		element string
		want    []uint
	}{
		{"text in left frame", "u10", "di10a", []uint{1}},
		{"text in right frame", "u20", "di20a", []uint{2}},
		{"frame inside group", "u40", "", []uint{2}},
		{"graphic frame", "", "u30", []uint{1}},
		{"image inherits frame", "", "u30i", []uint{1}},
		{"empty graphic frame", "", "u31", []uint{2}},
		{"unknown", "u99", "x", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := idx.Pages(tt.story, tt.element); !slices.Equal(got, tt.want) {
				t.Errorf("Pages(%q, %q) = %v, want %v", tt.story, tt.element, got, tt.want)
			}
		})
	}
}

func TestIndex_PagesThreadedStory(t *testing.T) {
	pkg := &idmltest.Package{
		Stories: []idmltest.Story{{ID: "u1", Body: idmltest.Text("long story")}},
		Spreads: []idmltest.Spread{
			{ID: "s1", Pages: []idmltest.Page{{ID: "p1", Name: "iv", Width: 612, Height: 792}},
				Items: idmltest.TextFrame("f1", "u1", 10, 10, 100, 100)},
			{ID: "s2", Pages: []idmltest.Page{{ID: "p2", Name: "7", Width: 612, Height: 792}},
				Items: idmltest.TextFrame("f2", "u1", 10, 10, 100, 100)},
		},
	}
	dir := t.TempDir()
	pkg.WriteDir(t, dir)

	idx, err := ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	// roman page name falls back to document ordinal
	if got := idx.Pages("u1", ""); !slices.Equal(got, []uint{1, 7}) {
		t.Errorf("Pages() = %v, want [1 7]", got)
	}
	if got := idx.StoryToSpreads["u1"]; !slices.Equal(got, []string{"s1", "s2"}) {
		t.Errorf("StoryToSpreads = %v", got)
	}
}

func TestIndex_PagesWithoutGeometry(t *testing.T) {
	pkg := &idmltest.Package{
		Stories: []idmltest.Story{{ID: "u1", Body: idmltest.Text("text")}},
		Spreads: []idmltest.Spread{{
			ID:    "s1",
			Pages: []idmltest.Page{{ID: "p1", Name: "3", TX: -612, Width: 612, Height: 792}, {ID: "p2", Name: "4", Width: 612, Height: 792}},
			Items: `<TextFrame Self="f1" ParentStory="u1"/>`,
		}},
	}
	dir := t.TempDir()
	pkg.WriteDir(t, dir)

	idx, err := ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if got := idx.Pages("u1", ""); !slices.Equal(got, []uint{3, 4}) {
		t.Errorf("Pages() = %v, want all spread pages", got)
	}
}

func TestReadManifest_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, dir string)
	}{
		{"missing designmap", func(t *testing.T, dir string) {
			os.Remove(filepath.Join(dir, DesignMap))
		}},
		{"broken designmap", func(t *testing.T, dir string) {
			os.WriteFile(filepath.Join(dir, DesignMap), []byte("<Document><idPkg:Story"), 0644)
		}},
		{"wrong root", func(t *testing.T, dir string) {
			os.WriteFile(filepath.Join(dir, DesignMap), []byte(`<Book xmlns:idPkg="x"><idPkg:Story src="Stories/Story_u10.xml"/></Book>`), 0644)
		}},
		{"no stories", func(t *testing.T, dir string) {
			os.WriteFile(filepath.Join(dir, DesignMap), []byte(`<Document xmlns:idPkg="x"><idPkg:Spread src="Spreads/Spread_us1.xml"/></Document>`), 0644)
		}},
		{"empty src", func(t *testing.T, dir string) {
			os.WriteFile(filepath.Join(dir, DesignMap), []byte(`<Document xmlns:idPkg="x"><idPkg:Story src=""/></Document>`), 0644)
		}},
		{"escaping src", func(t *testing.T, dir string) {
			os.WriteFile(filepath.Join(dir, DesignMap), []byte(`<Document xmlns:idPkg="x"><idPkg:Story src="../Story.xml"/></Document>`), 0644)
		}},
		{"missing story file", func(t *testing.T, dir string) {
			os.Remove(filepath.Join(dir, "Stories", "Story_u20.xml"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			idmltest.Sample().WriteDir(t, dir)
			tt.mutate(t, dir)

			if _, err := ReadManifest(dir); !common.IsKind(err, common.ErrorKindFormat) {
				t.Errorf("ReadManifest() error = %v, want format error", err)
			}
		})
	}
}
