package substitute

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	"github.com/h2non/filetype/types"
	"github.com/maruel/natural"
	"go.uber.org/zap"

	"idmlfill/common"
	"idmlfill/idml"
	"idmlfill/utils/images"
)

// Staged is source image copied into package link directory.
type Staged struct {
	Source string `json:"source"`
	// Name is file name inside link directory.
	Name   string `json:"name"`
	Format string `json:"format"` // placed graphic format, e.g. $ID/JPEG
	MIME   string `json:"mime"`
	Size   int64  `json:"size"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Gray   bool   `json:"gray,omitempty"`
	// Converted is set when source format could not be placed as is.
	Converted bool `json:"converted,omitempty"`
}

// Href is package relative path of staged file.
func (s *Staged) Href() string {
	return path.Join(idml.LinksDir, s.Name)
}

// URI is link resource reference written into graphic.
func (s *Staged) URI() string {
	return "file:" + s.Href()
}

// MediaMap records staged images by their source path, every source is
// staged once per export.
type MediaMap map[string]*Staged

// Sorted returns staged images in natural order of their names.
func (m MediaMap) Sorted() []*Staged {
	res := make([]*Staged, 0, len(m))
	for _, s := range m {
		res = append(res, s)
	}
	slices.SortFunc(res, func(a, b *Staged) int {
		switch {
		case a.Name == b.Name:
			return 0
		case natural.Less(a.Name, b.Name):
			return -1
		}
		return 1
	})
	return res
}

// placeable formats and their link resource format names
var placeable = map[types.Type]string{
	matchers.TypeJpeg: "$ID/JPEG",
	matchers.TypePng:  "$ID/Portable Network Graphics (PNG)",
	matchers.TypeGif:  "$ID/GIF",
	matchers.TypeTiff: "$ID/TIFF",
	matchers.TypePsd:  "$ID/Photoshop",
	matchers.TypePdf:  "$ID/Adobe Portable Document Format (PDF)",
}

// convertible formats are decoded and re-encoded as JPEG
var convertible = map[types.Type]bool{
	matchers.TypeWebp: true,
	matchers.TypeBmp:  true,
}

const formatJPEG = "$ID/JPEG"

type stager struct {
	root  string
	opts  Options
	media MediaMap
	names map[string]bool
	log   *zap.Logger
}

func newStager(root string, opts Options) *stager {
	return &stager{
		root:  root,
		opts:  opts,
		media: make(MediaMap),
		names: make(map[string]bool),
		log:   opts.Log,
	}
}

func (s *stager) linksDir() string {
	return filepath.Join(s.root, idml.LinksDir)
}

// uniqueName returns name not used in link directory yet.
func (s *stager) uniqueName(name string) string {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 1; ; i++ {
		lower := strings.ToLower(candidate)
		if !s.names[lower] {
			if _, err := os.Stat(filepath.Join(s.linksDir(), candidate)); os.IsNotExist(err) {
				s.names[lower] = true
				return candidate
			}
		}
		candidate = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
}

// stage copies source image into workspace once and returns its record.
func (s *stager) stage(source string) (*Staged, error) {
	if st, ok := s.media[source]; ok {
		return st, nil
	}

	kind, err := filetype.MatchFile(source)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, common.Errorf(common.ErrorKindNotFound, "image %s: %w", source, err)
		}
		return nil, common.Errorf(common.ErrorKindIo, "unable to read image %s: %w", source, err)
	}

	if err := os.MkdirAll(s.linksDir(), 0755); err != nil {
		return nil, common.Errorf(common.ErrorKindIo, "unable to create link directory: %w", err)
	}

	name := sanitizeName(filepath.Base(source))
	st := &Staged{Source: source, MIME: kind.MIME.Value}

	svg := kind == filetype.Unknown && isSVGFile(source)

	format, ok := placeable[kind]
	switch {
	case ok:
		st.Format = format
		err = s.copyOrFit(st, name, kind)
	case convertible[kind] && s.opts.ConvertUnsupported:
		st.Format = formatJPEG
		st.Converted = true
		err = s.convert(st, name)
	case svg && s.opts.ConvertUnsupported:
		st.Format = placeable[matchers.TypePng]
		st.Converted = true
		err = s.rasterize(st, name)
	case convertible[kind]:
		return nil, common.Errorf(common.ErrorKindFormat, "image %s of type %s cannot be placed and conversion is off", source, kind.Extension)
	case svg:
		return nil, common.Errorf(common.ErrorKindFormat, "vector image %s cannot be placed and conversion is off", source)
	default:
		return nil, common.Errorf(common.ErrorKindFormat, "file %s is not a supported image (%s)", source, kind.MIME.Value)
	}
	if err != nil {
		return nil, err
	}

	s.log.Debug("Image staged",
		zap.String("source", source),
		zap.String("name", st.Name),
		zap.String("format", st.Format),
		zap.Bool("converted", st.Converted),
		zap.Int64("size", st.Size))

	s.media[source] = st
	return st, nil
}

func sanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	if len(name) == 0 || name == "." {
		name = "image"
	}
	return name
}

func (s *stager) copyOrFit(st *Staged, name string, kind types.Type) error {
	if cfg, _, err := images.DecodeConfig(st.Source); err == nil {
		st.Width, st.Height = cfg.Width, cfg.Height
	}
	limit := s.opts.MaxDimension
	if limit > 0 && (st.Width > limit || st.Height > limit) && (kind == matchers.TypeJpeg || kind == matchers.TypePng) {
		img, _, err := images.Decode(st.Source)
		if err != nil {
			return common.Errorf(common.ErrorKindFormat, "unable to downscale %s: %w", st.Source, err)
		}
		img, _ = images.Fit(img, limit)
		var data []byte
		if kind == matchers.TypeJpeg {
			data, err = images.EncodeJPEGWithDPI(img, s.opts.JPEGQuality, images.DpiPxPerInch, images.PlacementDPI, images.PlacementDPI)
		} else {
			data, err = images.EncodePNG(img)
		}
		if err != nil {
			return common.Errorf(common.ErrorKindFormat, "unable to encode %s: %w", st.Source, err)
		}
		st.Width, st.Height = img.Bounds().Dx(), img.Bounds().Dy()
		st.Gray = images.IsGrayscale(img)
		return s.write(st, name, data)
	}

	st.Name = s.uniqueName(name)
	n, err := copyFile(st.Source, filepath.Join(s.linksDir(), st.Name))
	if err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to stage %s: %w", st.Source, err)
	}
	st.Size = n
	return nil
}

func (s *stager) convert(st *Staged, name string) error {
	img, _, err := images.Decode(st.Source)
	if err != nil {
		return common.Errorf(common.ErrorKindFormat, "unable to convert %s: %w", st.Source, err)
	}
	if images.HasAlpha(img) {
		s.log.Debug("Transparent image flattened on white", zap.String("source", st.Source))
	}
	img, _ = images.Fit(images.Flatten(img), s.opts.MaxDimension)
	data, err := images.EncodeJPEGWithDPI(img, s.opts.JPEGQuality, images.DpiPxPerInch, images.PlacementDPI, images.PlacementDPI)
	if err != nil {
		return common.Errorf(common.ErrorKindFormat, "unable to encode %s: %w", st.Source, err)
	}
	st.MIME = "image/jpeg"
	st.Width, st.Height = img.Bounds().Dx(), img.Bounds().Dy()
	st.Gray = images.IsGrayscale(img)
	return s.write(st, strings.TrimSuffix(name, filepath.Ext(name))+".jpg", data)
}

// rasterize renders vector image as PNG, SVG is placed by InDesign only as
// converted artwork.
func (s *stager) rasterize(st *Staged, name string) error {
	data, err := os.ReadFile(st.Source)
	if err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to read %s: %w", st.Source, err)
	}
	img, err := images.RasterizeSVG(data, s.opts.MaxDimension)
	if err != nil {
		return common.Errorf(common.ErrorKindFormat, "unable to rasterize %s: %w", st.Source, err)
	}
	if data, err = images.EncodePNG(img); err != nil {
		return common.Errorf(common.ErrorKindFormat, "unable to encode %s: %w", st.Source, err)
	}
	st.MIME = "image/png"
	st.Width, st.Height = img.Bounds().Dx(), img.Bounds().Dy()
	return s.write(st, strings.TrimSuffix(name, filepath.Ext(name))+".png", data)
}

func isSVGFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, 4096)
	n, _ := io.ReadFull(f, head)
	return images.IsSVG(head[:n])
}

func (s *stager) write(st *Staged, name string, data []byte) error {
	st.Name = s.uniqueName(name)
	if err := os.WriteFile(filepath.Join(s.linksDir(), st.Name), data, 0644); err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to stage %s: %w", st.Source, err)
	}
	st.Size = int64(len(data))
	return nil
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}
