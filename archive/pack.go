package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	fixzip "github.com/hidez8891/zip"
	"github.com/maruel/natural"
	"go.uber.org/multierr"

	"idmlfill/common"
)

// Pack re-creates package from directory dir. Mimetype goes first and is
// stored. Original members follow in original order keeping their compression
// method, members removed from dir are dropped. Files not present in the
// original package are appended in natural order and deflated.
func Pack(dir string, layout *Layout, w io.Writer) error {
	zw := zip.NewWriter(w)

	if err := writeMimetype(zw, dir); err != nil {
		return err
	}

	known := map[string]bool{MimetypeName: true}
	for _, e := range layout.Entries {
		if known[e.Name] {
			continue
		}
		known[e.Name] = true

		src := filepath.Join(dir, filepath.FromSlash(e.Name))
		if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := addFile(zw, e.Name, src, e.Method); err != nil {
			return err
		}
	}

	var added []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel = filepath.ToSlash(rel); !known[rel] {
			added = append(added, rel)
		}
		return nil
	})
	if err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to list workspace %s: %w", dir, err)
	}
	sort.Sort(natural.StringSlice(added))

	for _, name := range added {
		if err := addFile(zw, name, filepath.Join(dir, filepath.FromSlash(name)), zip.Deflate); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to finalize package: %w", err)
	}
	return nil
}

func writeMimetype(zw *zip.Writer, dir string) error {
	content := []byte(MimetypeContent)
	if data, err := os.ReadFile(filepath.Join(dir, MimetypeName)); err == nil && len(data) > 0 {
		content = data
	}

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     MimetypeName,
		Method:   zip.Store,
		Modified: time.Now(),
	})
	if err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to write mimetype: %w", err)
	}
	if _, err = w.Write(content); err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to write mimetype: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, name, src string, method uint16) error {
	f, err := os.Open(src)
	if err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to read %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to read %s: %w", name, err)
	}

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   method,
		Modified: info.ModTime(),
	})
	if err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to add %s: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to add %s: %w", name, err)
	}
	return nil
}

// PackFile packs directory into package file dst. When fixZip is requested
// resulting archive is rewritten without data descriptors - some readers do
// not handle them.
func PackFile(dir string, layout *Layout, dst string, fixZip bool) (err error) {
	target := dst
	if fixZip {
		target = dst + ".tmp"
		defer func() {
			if rerr := os.Remove(target); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
				err = multierr.Append(err, rerr)
			}
		}()
	}

	out, err := os.Create(target)
	if err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to create package file: %w", err)
	}
	if err := Pack(dir, layout, out); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to close package file: %w", err)
	}

	if fixZip {
		if err := copyZipWithoutDataDescriptors(target, dst); err != nil {
			return common.Errorf(common.ErrorKindIo, "unable to fix package: %w", err)
		}
	}
	return nil
}

func copyZipWithoutDataDescriptors(from, to string) error {

	out, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("unable to create target file (%s): %w", to, err)
	}
	defer out.Close()

	r, err := fixzip.OpenReader(from)
	if err != nil {
		return fmt.Errorf("unable to read archive file (%s): %w", from, err)
	}
	defer r.Close()

	w := fixzip.NewWriter(out)
	defer w.Close()

	for _, file := range r.File {
		// unset data descriptor flag.
		file.Flags &= ^fixzip.FlagDataDescriptor

		// copy zip entry
		if err := w.CopyFile(file); err != nil {
			return fmt.Errorf("unable to write target file (%s): %w", to, err)
		}
	}
	return nil
}

// BundleEntry is a file put into delivery archive.
type BundleEntry struct {
	Name string // path inside archive
	Path string // file on disk
}

// Bundle creates delivery archive dst from the list of files.
func Bundle(dst string, files []BundleEntry) (err error) {
	out, err := os.Create(dst)
	if err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to create delivery archive: %w", err)
	}
	defer func() {
		err = multierr.Append(err, out.Close())
		if err != nil {
			os.Remove(dst)
		}
	}()

	zw := zip.NewWriter(out)
	for _, f := range files {
		if err := addFile(zw, f.Name, f.Path, zip.Deflate); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to finalize delivery archive: %w", err)
	}
	return nil
}
