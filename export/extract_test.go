package export

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"go.uber.org/zap/zaptest"

	"idmlfill/common"
)

func TestExtract(t *testing.T) {
	f := newFixture(t)

	reg, err := Extract(context.Background(), f.cfg, zaptest.NewLogger(t), f.pkg, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, name := range []string{"headline", "body", "caption", "photo_main", "sidebar", "logo"} {
		if _, ok := reg.Get(name); !ok {
			t.Errorf("tag %q not extracted", name)
		}
	}
	if slices.Contains(reg.Names, "Root") {
		t.Error("ignored tag extracted")
	}
	if names := listDir(t, f.cfg.Engine.WorkDir); len(names) != 0 {
		t.Errorf("workspace left: %v", names)
	}

	again, err := Extract(context.Background(), f.cfg, zaptest.NewLogger(t), f.pkg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reg.Equal(again) {
		t.Error("extraction is not idempotent")
	}
}

func TestExtractErrors(t *testing.T) {
	f := newFixture(t)

	_, err := Extract(context.Background(), f.cfg, zaptest.NewLogger(t), filepath.Join(t.TempDir(), "none.idml"), nil)
	if !common.IsKind(err, common.ErrorKindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Extract(ctx, f.cfg, zaptest.NewLogger(t), f.pkg, nil); err == nil {
		t.Error("cancelled extraction succeeded")
	}
	if names := listDir(t, f.cfg.Engine.WorkDir); len(names) != 0 {
		t.Errorf("workspace left: %v", names)
	}
}
