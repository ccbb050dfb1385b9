package export

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"idmlfill/archive"
	"idmlfill/common"
	"idmlfill/config"
	"idmlfill/idml"
	"idmlfill/tags"
)

// unpack checks that pkg is a markup package and extracts it into root.
func unpack(pkg, root string, cp encoding.Encoding, log *zap.Logger) (*archive.Layout, error) {
	if _, err := os.Stat(pkg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.Errorf(common.ErrorKindNotFound, "package %s: %w", pkg, err)
		}
		return nil, common.Errorf(common.ErrorKindIo, "package %s: %w", pkg, err)
	}
	ok, err := archive.IsPackage(pkg)
	if err != nil {
		return nil, common.Errorf(common.ErrorKindFormat, "unable to open package %s: %w", pkg, err)
	}
	if !ok {
		return nil, common.Errorf(common.ErrorKindFormat, "%s is not a markup package", pkg)
	}
	return archive.Open(pkg, root, archive.WithCodePage(cp), archive.WithLogger(log))
}

func scanOptions(cfg *config.Config) tags.ScanOptions {
	opts := tags.DefaultScanOptions()
	if len(cfg.Tags.Ignore) > 0 {
		opts.Ignore = cfg.Tags.Ignore
	}
	if len(cfg.Tags.ImagePrefixes) > 0 {
		opts.ImagePrefixes = cfg.Tags.ImagePrefixes
	}
	if len(cfg.Tags.TypeAttribute) > 0 {
		opts.TypeAttribute = cfg.Tags.TypeAttribute
	}
	return opts
}

func scan(ctx context.Context, idx *idml.Index, cfg *config.Config, log *zap.Logger) (*tags.Registry, error) {
	markers, texts, err := tags.ScanIndex(ctx, idx, scanOptions(cfg))
	if err != nil {
		return nil, err
	}
	reg := tags.Build(markers, idx, texts)
	log.Debug("Package scanned", zap.Int("markers", len(markers)), zap.Int("tags", reg.Len()))
	return reg, nil
}

// Extract builds tag registry of the package. Package is unpacked into
// temporary workspace which is removed before return.
func Extract(ctx context.Context, cfg *config.Config, log *zap.Logger, pkg string, cp encoding.Encoding) (reg *tags.Registry, err error) {
	parent := cfg.Engine.WorkDir
	if len(parent) > 0 {
		if err := os.MkdirAll(parent, 0755); err != nil {
			return nil, common.Errorf(common.ErrorKindIo, "unable to create work directory: %w", err)
		}
	}
	dir, err := os.MkdirTemp(parent, "idmlfill-scan-")
	if err != nil {
		return nil, common.Errorf(common.ErrorKindIo, "unable to create workspace: %w", err)
	}
	defer func() {
		if rerr := os.RemoveAll(dir); rerr != nil {
			err = multierr.Append(err, common.Errorf(common.ErrorKindIo, "unable to remove workspace: %w", rerr))
		}
		if err != nil {
			reg = nil
		}
	}()

	root := filepath.Join(dir, packageDir)
	if _, err := unpack(pkg, root, cp, log); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx, err := idml.ReadManifest(root)
	if err != nil {
		return nil, err
	}
	return scan(ctx, idx, cfg, log)
}
