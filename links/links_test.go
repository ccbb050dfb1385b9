package links

import (
	"os"
	"path/filepath"
	"testing"

	"idmlfill/common"
	"idmlfill/substitute"
)

func media(names ...string) substitute.MediaMap {
	m := make(substitute.MediaMap)
	for i, n := range names {
		src := "/src/" + n
		m[src] = &substitute.Staged{Source: src, Name: n, Format: "$ID/JPEG", Size: int64(100 + i)}
	}
	return m
}

func TestRebuildEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := Rebuild(dir, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Links")); !os.IsNotExist(err) {
		t.Error("nothing must be created for empty media")
	}
}

func TestRebuild(t *testing.T) {
	dir := t.TempDir()
	if err := Rebuild(dir, media("img10.jpg", "img2.jpg")); err != nil {
		t.Fatal(err)
	}

	entries, err := Read(filepath.Join(dir, "Links", ManifestName))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	if entries[0].Href != "Links/img2.jpg" || entries[1].Href != "Links/img10.jpg" {
		t.Errorf("entries not in natural order: %+v", entries)
	}
	if entries[0].Source != "img2.jpg" || entries[0].Size != 101 || entries[0].Self == "" {
		t.Errorf("unexpected entry %+v", entries[0])
	}
}

func TestRebuildMerge(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "Links", ManifestName)
	if err := os.MkdirAll(filepath.Dir(manifest), 0755); err != nil {
		t.Fatal(err)
	}
	existing := `<?xml version="1.0" encoding="UTF-8"?>
<Links>
  <Link Self="keep" href="Links/logo.png" source="logo.png" format="$ID/PNG" size="7"/>
  <Link Self="old" href="Links/img2.jpg" source="old.jpg" format="$ID/JPEG" size="1"/>
</Links>`
	if err := os.WriteFile(manifest, []byte(existing), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Rebuild(dir, media("img2.jpg")); err != nil {
		t.Fatal(err)
	}
	entries, err := Read(manifest)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("unexpected entries %+v", entries)
	}
	byHref := map[string]Entry{}
	for _, e := range entries {
		byHref[e.Href] = e
	}
	if e := byHref["Links/logo.png"]; e.Self != "keep" || e.Size != 7 {
		t.Errorf("existing entry changed: %+v", e)
	}
	if e := byHref["Links/img2.jpg"]; e.Self != "old" || e.Source != "img2.jpg" || e.Size != 100 {
		t.Errorf("entry not updated: %+v", e)
	}
}

func TestRebuildErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Links"), []byte("file in the way"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Rebuild(dir, media("a.jpg")); !common.IsKind(err, common.ErrorKindIo) {
		t.Errorf("expected io error, got %v", err)
	}

	dir = t.TempDir()
	manifest := filepath.Join(dir, "Links", ManifestName)
	if err := os.MkdirAll(filepath.Dir(manifest), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(manifest, []byte("<Links><Link"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Rebuild(dir, media("a.jpg")); !common.IsKind(err, common.ErrorKindFormat) {
		t.Errorf("expected format error, got %v", err)
	}
}
