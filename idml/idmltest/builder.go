// Package idmltest builds small but structurally complete markup packages for
// tests.
package idmltest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	mimetype  = "application/vnd.adobe.indesign-idml-package"
	pkgNS     = `xmlns:idPkg="http://ns.adobe.com/AdobeInDesign/idml/1.0/packaging"`
	xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
)

type Story struct {
	ID   string
	Body string // content of Story element
}

type Page struct {
	ID   string
	Name string
	// TX is horizontal offset of the page inside spread.
	TX            float64
	Width, Height float64
}

type Spread struct {
	ID    string
	Pages []Page
	Items string // page items
}

// Package describes package content. Files are written in the order
// mimetype, designmap, spreads, backing story, stories, extra files.
type Package struct {
	Stories []Story
	Spreads []Spread
	// Backing is content of XmlStory element, no backing story when empty.
	Backing string
	Extra   map[string][]byte
}

func (p *Package) files() [][2]string {
	var dm strings.Builder
	dm.WriteString(xmlHeader)
	dm.WriteString(`<?aid style="50" type="document" readerVersion="6.0" featureSet="257" product="18.0(57)" ?>` + "\n")
	fmt.Fprintf(&dm, `<Document %s DOMVersion="18.0" Self="d">`+"\n", pkgNS)
	dm.WriteString(`<Language Self="Language/$ID/English%3a USA" Name="$ID/English: USA"/>` + "\n")
	for _, s := range p.Spreads {
		fmt.Fprintf(&dm, `<idPkg:Spread src="Spreads/Spread_%s.xml"/>`+"\n", s.ID)
	}
	if len(p.Backing) > 0 {
		dm.WriteString(`<idPkg:BackingStory src="XML/BackingStory.xml"/>` + "\n")
	}
	for _, s := range p.Stories {
		fmt.Fprintf(&dm, `<idPkg:Story src="Stories/Story_%s.xml"/>`+"\n", s.ID)
	}
	dm.WriteString(`</Document>`)

	files := [][2]string{
		{"mimetype", mimetype},
		{"designmap.xml", dm.String()},
		{"META-INF/container.xml", xmlHeader + `<container xmlns="urn:oasis:names:tc:opendocument:xmlns:container" version="1.0"><rootfiles><rootfile full-path="designmap.xml" media-type="text/xml"/></rootfiles></container>`},
	}
	for _, s := range p.Spreads {
		var b strings.Builder
		b.WriteString(xmlHeader)
		fmt.Fprintf(&b, `<idPkg:Spread %s DOMVersion="18.0">`, pkgNS)
		fmt.Fprintf(&b, `<Spread Self="%s" PageCount="%d" BindingLocation="1" ItemTransform="1 0 0 1 0 0">`, s.ID, len(s.Pages))
		for _, pg := range s.Pages {
			fmt.Fprintf(&b, `<Page Self="%s" Name="%s" GeometricBounds="0 0 %g %g" ItemTransform="1 0 0 1 %g %g"/>`,
				pg.ID, pg.Name, pg.Height, pg.Width, pg.TX, -pg.Height/2)
		}
		b.WriteString(s.Items)
		b.WriteString(`</Spread></idPkg:Spread>`)
		files = append(files, [2]string{"Spreads/Spread_" + s.ID + ".xml", b.String()})
	}
	if len(p.Backing) > 0 {
		files = append(files, [2]string{"XML/BackingStory.xml", xmlHeader +
			fmt.Sprintf(`<idPkg:BackingStory %s DOMVersion="18.0"><XmlStory Self="ubacking" AppliedTOCStyle="n">%s</XmlStory></idPkg:BackingStory>`, pkgNS, p.Backing)})
	}
	for _, s := range p.Stories {
		files = append(files, [2]string{"Stories/Story_" + s.ID + ".xml", xmlHeader +
			fmt.Sprintf(`<idPkg:Story %s DOMVersion="18.0"><Story Self="%s" AppliedTOCStyle="n" TrackChanges="false"><StoryPreference OpticalMarginAlignment="false"/>%s</Story></idPkg:Story>`,
				pkgNS, s.ID, s.Body)})
	}
	return files
}

// WriteDir writes package as extracted directory tree.
func (p *Package) WriteDir(t testing.TB, dir string) {
	t.Helper()

	write := func(name string, data []byte) {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("idmltest: %v", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatalf("idmltest: %v", err)
		}
	}
	for _, f := range p.files() {
		write(f[0], []byte(f[1]))
	}
	for name, data := range p.Extra {
		write(name, data)
	}
}

// Bytes returns package archive.
func (p *Package) Bytes(t testing.TB) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	add := func(name string, method uint16, data []byte) {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
		if err != nil {
			t.Fatalf("idmltest: %v", err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("idmltest: %v", err)
		}
	}
	for i, f := range p.files() {
		method := zip.Deflate
		if i == 0 {
			method = zip.Store
		}
		add(f[0], method, []byte(f[1]))
	}
	for name, data := range p.Extra {
		add(name, zip.Deflate, data)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("idmltest: %v", err)
	}
	return buf.Bytes()
}

// WriteFile writes package archive and returns its path.
func (p *Package) WriteFile(t testing.TB, path string) string {
	t.Helper()

	if err := os.WriteFile(path, p.Bytes(t), 0644); err != nil {
		t.Fatalf("idmltest: %v", err)
	}
	return path
}

// Escape escapes text for use in markup.
func Escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// Text returns paragraph with single character range. Lines are separated by
// Br elements.
func Text(lines ...string) string {
	var b strings.Builder
	b.WriteString(`<ParagraphStyleRange AppliedParagraphStyle="ParagraphStyle/$ID/NormalParagraphStyle">`)
	b.WriteString(`<CharacterStyleRange AppliedCharacterStyle="CharacterStyle/$ID/[No character style]" PointSize="12">`)
	for i, l := range lines {
		if i > 0 {
			b.WriteString(`<Br/>`)
		}
		fmt.Fprintf(&b, `<Content>%s</Content>`, Escape(l))
	}
	b.WriteString(`</CharacterStyleRange></ParagraphStyleRange>`)
	return b.String()
}

// Tag wraps inner content into structure element.
func Tag(id, name, inner string) string {
	return fmt.Sprintf(`<XMLElement Self="%s" MarkupTag="XMLTag/%s">%s</XMLElement>`, id, name, inner)
}

// TypedTag is Tag with explicit type attribute.
func TypedTag(id, name, typ, inner string) string {
	return fmt.Sprintf(`<XMLElement Self="%s" MarkupTag="XMLTag/%s"><XMLAttribute Self="%sa" Name="type" Value="%s"/>%s</XMLElement>`,
		id, name, id, typ, inner)
}

// RefTag is a structure element referencing page item or story.
func RefTag(id, name, ref, inner string) string {
	return fmt.Sprintf(`<XMLElement Self="%s" MarkupTag="XMLTag/%s" XMLContent="%s">%s</XMLElement>`, id, name, ref, inner)
}

// TypeAttr is explicit type attribute for RefTag.
func TypeAttr(id, typ string) string {
	return fmt.Sprintf(`<XMLAttribute Self="%s" Name="type" Value="%s"/>`, id, typ)
}

func pathGeometry(x, y, w, h float64) string {
	return fmt.Sprintf(`<Properties><PathGeometry><GeometryPathType PathOpen="false"><PathPointArray>`+
		`<PathPointType Anchor="%[1]g %[2]g" LeftDirection="%[1]g %[2]g" RightDirection="%[1]g %[2]g"/>`+
		`<PathPointType Anchor="%[1]g %[4]g" LeftDirection="%[1]g %[4]g" RightDirection="%[1]g %[4]g"/>`+
		`<PathPointType Anchor="%[3]g %[4]g" LeftDirection="%[3]g %[4]g" RightDirection="%[3]g %[4]g"/>`+
		`<PathPointType Anchor="%[3]g %[2]g" LeftDirection="%[3]g %[2]g" RightDirection="%[3]g %[2]g"/>`+
		`</PathPointArray></GeometryPathType></PathGeometry></Properties>`, x, y, x+w, y+h)
}

// TextFrame places story into frame at spread coordinates.
func TextFrame(id, story string, x, y, w, h float64) string {
	return fmt.Sprintf(`<TextFrame Self="%s" ParentStory="%s" ContentType="TextType" ItemTransform="1 0 0 1 0 0">%s<TextFramePreference TextColumnCount="1"/></TextFrame>`,
		id, story, pathGeometry(x, y, w, h))
}

// Rectangle is graphic frame, inner is normally result of Image.
func Rectangle(id string, x, y, w, h float64, inner string) string {
	return fmt.Sprintf(`<Rectangle Self="%s" ContentType="GraphicType" ItemTransform="1 0 0 1 0 0">%s%s</Rectangle>`,
		id, pathGeometry(x, y, w, h), inner)
}

// Image is placed graphic with embedded preview and link.
func Image(id, uri string) string {
	return fmt.Sprintf(`<Image Self="%[1]s" ItemTransform="1 0 0 1 0 0" ImageTypeName="$ID/JPEG">`+
		`<Properties><Profile type="string">$ID/None</Profile><GraphicBounds Left="0" Top="0" Right="100" Bottom="100"/><Contents><![CDATA[/9j/4AAQSkZJRgABAQ]]></Contents></Properties>`+
		`<Link Self="%[1]sl" LinkResourceURI="%[2]s" LinkResourceFormat="$ID/JPEG" StoredState="Embedded" LinkResourceSize="0~4c2"/></Image>`, id, uri)
}

// Group wraps page items applying transformation.
func Group(id string, tx, ty float64, items ...string) string {
	return fmt.Sprintf(`<Group Self="%s" ItemTransform="1 0 0 1 %g %g">%s</Group>`, id, tx, ty, strings.Join(items, ""))
}

// Sample returns facing pages document used across tests:
//
//	page 1: story u10 (headline, body), graphic frame u30 (photo_main)
//	page 2: story u20 (caption, headline), story u40 (sidebar), empty frame u31 (logo)
func Sample() *Package {
	return &Package{
		Stories: []Story{
			{ID: "u10", Body: Tag("di10a", "headline", Text("Placeholder headline")) +
				Tag("di10b", "body", Text("First paragraph of body.", "Second paragraph here."))},
			{ID: "u20", Body: TypedTag("di20a", "caption", "text", Text("Hello world  foo")) +
				Tag("di20b", "headline", Text("Other headline"))},
			{ID: "u40", Body: Text("Sidebar text goes here.")},
		},
		Spreads: []Spread{{
			ID: "us1",
			Pages: []Page{
				{ID: "p1", Name: "1", TX: -612, Width: 612, Height: 792},
				{ID: "p2", Name: "2", TX: 0, Width: 612, Height: 792},
			},
			Items: TextFrame("tf1", "u10", -560, -350, 400, 300) +
				Rectangle("u30", -560, 0, 300, 200, Image("u30i", "file:/Users/designer/placeholder.jpg")) +
				TextFrame("tf2", "u20", 60, -350, 400, 300) +
				Group("g1", 100, 0, TextFrame("tf4", "u40", -40, 0, 200, 100)) +
				Rectangle("u31", 300, 200, 100, 100, ""),
		}},
		Backing: Tag("di1", "Root",
			RefTag("di5", "photo_main", "u30", "")+
				RefTag("di6", "sidebar", "u40", "")+
				RefTag("di7", "logo", "u31", TypeAttr("di7a", "image"))),
	}
}
