package substitute

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/beevik/etree"
	"go.uber.org/zap/zaptest"

	"idmlfill/common"
	"idmlfill/idml"
	"idmlfill/idml/idmltest"
	"idmlfill/mapping"
	"idmlfill/tags"
)

func samplePackage(t *testing.T) (string, *idml.Index) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "pkg")
	idmltest.Sample().WriteDir(t, dir)
	idx, err := idml.ReadManifest(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, idx
}

func storyText(t *testing.T, dir, id string) ([]tags.Marker, string) {
	t.Helper()
	markers, text, err := tags.ScanFile(filepath.Join(dir, "Stories", "Story_"+id+".xml"), id, tags.DefaultScanOptions())
	if err != nil {
		t.Fatal(err)
	}
	return markers, text
}

func frame(t *testing.T, dir, id string) *etree.Element {
	t.Helper()
	doc, err := idml.ReadXML(filepath.Join(dir, "Spreads", "Spread_us1.xml"))
	if err != nil {
		t.Fatal(err)
	}
	el := findSelf(doc.Root(), id)
	if el == nil {
		t.Fatalf("frame %s not found", id)
	}
	return el
}

func options(t *testing.T) Options {
	return Options{ConvertUnsupported: true, JPEGQuality: 80, Log: zaptest.NewLogger(t)}
}

func TestApply(t *testing.T) {
	dir, idx := samplePackage(t)
	photo := idmltest.WritePNG(t, filepath.Join(t.TempDir(), "photo.png"), 8, 6)

	res := &mapping.Resolution{
		UsedTags: []string{"headline", "body", "sidebar", "photo_main", "logo"},
		Text: map[string]string{
			"headline": "New headline",
			"body":     "Line one\nLine two & <three>",
			"sidebar":  "Side\x01 text",
		},
		Images: map[string]string{
			"photo_main": photo,
			"logo":       photo,
		},
	}

	media, err := Apply(context.Background(), dir, idx, res, options(t))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	markers, _ := storyText(t, dir, "u10")
	got := map[string]string{}
	for _, m := range markers {
		got[m.Name] = m.Content
	}
	if got["headline"] != "New headline" || got["body"] != "Line one\nLine two & <three>" {
		t.Errorf("story u10: %v", got)
	}

	markers, _ = storyText(t, dir, "u20")
	for _, m := range markers {
		switch m.Name {
		case "headline":
			if m.Content != "New headline" {
				t.Errorf("every occurrence must be replaced, got %q", m.Content)
			}
		case "caption":
			if m.Content != "Hello world  foo" {
				t.Errorf("untargeted tag changed: %q", m.Content)
			}
		}
	}

	if _, text := storyText(t, dir, "u40"); text != "Side text" {
		t.Errorf("story level tag: %q", text)
	}

	// two tags, one source
	if len(media) != 1 {
		t.Fatalf("expected single staged image, got %d", len(media))
	}
	st := media[photo]
	if st == nil || st.Name != "photo.png" || st.Width != 8 || st.Height != 6 {
		t.Fatalf("unexpected staged %+v", st)
	}
	if _, err := os.Stat(filepath.Join(dir, "Links", "photo.png")); err != nil {
		t.Errorf("staged file: %v", err)
	}

	for _, id := range []string{"u30", "u31"} {
		img := frame(t, dir, id).SelectElement("Image")
		if img == nil {
			t.Fatalf("%s: no image", id)
		}
		link := img.SelectElement("Link")
		if link == nil {
			t.Fatalf("%s: no link", id)
		}
		if uri := link.SelectAttrValue("LinkResourceURI", ""); uri != "file:Links/photo.png" {
			t.Errorf("%s: uri %q", id, uri)
		}
		if s := link.SelectAttrValue("StoredState", ""); s != "Normal" {
			t.Errorf("%s: stored state %q", id, s)
		}
		if img.FindElement("Properties/Contents") != nil {
			t.Errorf("%s: embedded data kept", id)
		}
	}
	if self := frame(t, dir, "u30").SelectElement("Image").SelectAttrValue("Self", ""); self != "u30i" {
		t.Errorf("existing image identity lost: %q", self)
	}

	for _, p := range idx.ScanOrder() {
		if err := idml.VerifyFile(idx.Path(p.Src)); err != nil {
			t.Errorf("%s: %v", p.Src, err)
		}
	}
}

func TestApplyEmpty(t *testing.T) {
	dir, idx := samplePackage(t)
	before, _ := os.ReadFile(filepath.Join(dir, "Stories", "Story_u10.xml"))

	media, err := Apply(context.Background(), dir, idx, &mapping.Resolution{}, options(t))
	if err != nil || len(media) != 0 {
		t.Fatalf("Apply: %v, %v", media, err)
	}
	after, _ := os.ReadFile(filepath.Join(dir, "Stories", "Story_u10.xml"))
	if string(before) != string(after) {
		t.Error("empty resolution must not touch package")
	}
	if _, err := os.Stat(filepath.Join(dir, "Links")); !os.IsNotExist(err) {
		t.Error("link directory must not be created")
	}
}

func TestApplyConvert(t *testing.T) {
	dir, idx := samplePackage(t)
	src := idmltest.WriteBMP(t, filepath.Join(t.TempDir(), "scan.bmp"), 40, 20)

	opts := options(t)
	opts.MaxDimension = 10
	res := &mapping.Resolution{UsedTags: []string{"photo_main"}, Images: map[string]string{"photo_main": src}}

	media, err := Apply(context.Background(), dir, idx, res, opts)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	st := media[src]
	if st == nil || !st.Converted || st.Name != "scan.jpg" || st.Format != "$ID/JPEG" {
		t.Fatalf("unexpected staged %+v", st)
	}
	if st.Width != 10 || st.Height != 5 {
		t.Errorf("not downscaled: %dx%d", st.Width, st.Height)
	}
	data, err := os.ReadFile(filepath.Join(dir, "Links", "scan.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if data[0] != 0xFF || data[1] != 0xD8 || data[2] != 0xFF || data[3] != 0xE0 {
		t.Error("expected JPEG with JFIF header")
	}
}

func TestApplyRasterize(t *testing.T) {
	dir, idx := samplePackage(t)
	src := filepath.Join(t.TempDir(), "logo.svg")
	svg := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 40 20"><rect width="20" height="20"/></svg>`
	if err := os.WriteFile(src, []byte(svg), 0644); err != nil {
		t.Fatal(err)
	}

	res := &mapping.Resolution{UsedTags: []string{"logo"}, Images: map[string]string{"logo": src}}
	media, err := Apply(context.Background(), dir, idx, res, options(t))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	st := media[src]
	if st == nil || !st.Converted || st.Name != "logo.png" || st.MIME != "image/png" {
		t.Fatalf("unexpected staged %+v", st)
	}
	if st.Width != 40 || st.Height != 20 {
		t.Errorf("unexpected size %dx%d", st.Width, st.Height)
	}

	dir, idx = samplePackage(t)
	opts := options(t)
	opts.ConvertUnsupported = false
	if _, err := Apply(context.Background(), dir, idx, res, opts); !common.IsKind(err, common.ErrorKindFormat) {
		t.Errorf("expected format error without conversion, got %v", err)
	}
}

func TestApplyErrors(t *testing.T) {
	notImage := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(notImage, []byte("just text"), 0644); err != nil {
		t.Fatal(err)
	}
	bmp := idmltest.WriteBMP(t, filepath.Join(t.TempDir(), "scan.bmp"), 4, 4)

	tests := []struct {
		name    string
		source  string
		convert bool
		kind    common.ErrorKind
	}{
		{"missing", filepath.Join(t.TempDir(), "missing.png"), true, common.ErrorKindNotFound},
		{"not an image", notImage, true, common.ErrorKindFormat},
		{"conversion off", bmp, false, common.ErrorKindFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, idx := samplePackage(t)
			opts := options(t)
			opts.ConvertUnsupported = tt.convert
			res := &mapping.Resolution{UsedTags: []string{"logo"}, Images: map[string]string{"logo": tt.source}}
			_, err := Apply(context.Background(), dir, idx, res, opts)
			if !common.IsKind(err, tt.kind) {
				t.Errorf("expected %s error, got %v", tt.kind, err)
			}
		})
	}
}

func TestUniqueName(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "Links"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Links", "a.jpg"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	s := newStager(dir, options(t))
	if got := s.uniqueName("a.jpg"); got != "a-1.jpg" {
		t.Errorf("existing file not avoided: %s", got)
	}
	if got := s.uniqueName("A-1.JPG"); got != "A-1-1.JPG" {
		t.Errorf("staged name not avoided: %s", got)
	}
}
