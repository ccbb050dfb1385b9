package archive

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"idmlfill/common"
)

const (
	// MimetypeName is the first entry of every package, it must not be compressed.
	MimetypeName = "mimetype"
	// MimetypeContent identifies InDesign markup package.
	MimetypeContent = "application/vnd.adobe.indesign-idml-package"
)

// Entry describes single member of the original package.
type Entry struct {
	Name     string // slash separated path relative to package root
	Method   uint16
	Modified time.Time
}

// Layout remembers order and compression of original package members so
// package could be rebuilt the way target application expects it.
type Layout struct {
	Entries []Entry
}

// Has reports if layout contains entry with the given name.
func (l *Layout) Has(name string) bool {
	for _, e := range l.Entries {
		if e.Name == name {
			return true
		}
	}
	return false
}

type options struct {
	cp  encoding.Encoding
	log *zap.Logger
}

type Option func(*options)

// WithCodePage forces decoding of non UTF-8 entry names.
func WithCodePage(cp encoding.Encoding) Option {
	return func(o *options) {
		o.cp = cp
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// Open extracts every member of the package src into directory dir preserving
// relative paths.
func Open(src, dir string, opts ...Option) (*Layout, error) {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	layout := &Layout{}
	err := Walk(src, "", func(archive string, f *zip.File) error {
		name := decodeName(f, &o)
		if !isSafePath(name) {
			return common.Errorf(common.ErrorKindFormat, "zip entry %q: unsafe path after decoding", name)
		}
		if err := extractFile(f, filepath.Join(dir, filepath.FromSlash(name))); err != nil {
			return common.Errorf(common.ErrorKindFormat, "unable to extract %q from %s: %w", name, archive, err)
		}
		layout.Entries = append(layout.Entries, Entry{
			Name:     name,
			Method:   f.Method,
			Modified: f.Modified,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(layout.Entries) == 0 {
		return nil, common.Errorf(common.ErrorKindFormat, "package %s is empty", src)
	}
	o.log.Debug("Package extracted", zap.String("package", src), zap.String("dir", dir), zap.Int("entries", len(layout.Entries)))
	return layout, nil
}

func decodeName(f *zip.File, o *options) string {
	name := f.FileHeader.Name
	if o.cp == nil || !f.FileHeader.NonUTF8 {
		return name
	}
	n, err := o.cp.NewDecoder().String(name)
	if err != nil {
		cs, _ := ianaindex.IANA.Name(o.cp)
		o.log.Warn("Unable to convert archive name from specified encoding",
			zap.String("charset", cs), zap.String("path", name), zap.Error(err))
		return name
	}
	return n
}

func extractFile(f *zip.File, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	r, err := f.Open()
	if err != nil {
		return err
	}
	defer r.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if !f.Modified.IsZero() {
		_ = os.Chtimes(dst, f.Modified, f.Modified)
	}
	return nil
}

var errNotPackage = errors.New("not a package")

// IsPackage checks that file is a zip archive which starts with proper
// mimetype entry.
func IsPackage(path string) (bool, error) {
	var first = true
	err := Walk(path, "", func(_ string, f *zip.File) error {
		if !first {
			return nil
		}
		first = false
		if f.Name != MimetypeName {
			return errNotPackage
		}
		r, err := f.Open()
		if err != nil {
			return err
		}
		defer r.Close()

		data, err := io.ReadAll(io.LimitReader(r, int64(len(MimetypeContent))+1))
		if err != nil {
			return err
		}
		if string(data) != MimetypeContent {
			return errNotPackage
		}
		return nil
	})
	switch {
	case errors.Is(err, errNotPackage):
		return false, nil
	case err != nil:
		return false, err
	}
	return !first, nil
}
