// Package export runs single export: package is extracted into private
// workspace, tags are resolved and substituted, and result is packed into
// delivery archive. Workspace never outlives the job.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"idmlfill/archive"
	"idmlfill/common"
	"idmlfill/config"
	"idmlfill/content"
	"idmlfill/content/text"
	"idmlfill/idml"
	"idmlfill/links"
	"idmlfill/mapping"
	"idmlfill/substitute"
	"idmlfill/tags"
)

const (
	packageDir = "package"
	outputDir  = "out"
	// ImagesDir is directory of staged images inside delivery archive.
	ImagesDir = "images"
)

// Input is everything single export needs.
type Input struct {
	// Package is path to the source package.
	Package       string
	TemplateID    string
	PublicationID string
	Title         string
	Batch         *mapping.Batch
	// Registry is tags extracted earlier, package is scanned when nil.
	Registry *tags.Registry
	Items    content.ItemSource
	Files    content.AttachmentSource
	// Overwrite allows replacing existing delivery archive.
	Overwrite bool
}

func (in *Input) validate() error {
	if len(in.Package) == 0 {
		return common.Errorf(common.ErrorKindValidation, "no package specified")
	}
	if !in.Batch.Empty() && (in.Items == nil || in.Files == nil) {
		return common.Errorf(common.ErrorKindValidation, "content sources are required to export mapped items")
	}
	return nil
}

// Result describes produced delivery archive.
type Result struct {
	Path        string              `json:"path"`
	DownloadURL string              `json:"download_url"`
	UsedTags    []string            `json:"used_tags"`
	Warnings    []mapping.Warning   `json:"warnings,omitempty"`
	Conflicts   []mapping.Conflict  `json:"conflicts,omitempty"`
	Media       []*substitute.Staged `json:"media,omitempty"`
}

// Transition is a single recorded change of job state.
type Transition struct {
	From common.JobState `json:"from"`
	To   common.JobState `json:"to"`
	At   time.Time       `json:"at"`
	Err  string          `json:"error,omitempty"`
}

// pipeline lists successful job states in order.
var pipeline = []common.JobState{
	common.JobStateInit,
	common.JobStateExtracted,
	common.JobStateIndexed,
	common.JobStateResolved,
	common.JobStateSubstituted,
	common.JobStateManifestRebuilt,
	common.JobStatePackaged,
	common.JobStateDone,
}

func allowed(from, to common.JobState) bool {
	if from.Terminal() {
		return false
	}
	if to == common.JobStateFailed {
		return true
	}
	for i, s := range pipeline[:len(pipeline)-1] {
		if s == from {
			return pipeline[i+1] == to
		}
	}
	return false
}

type Option func(*Job)

// WithSplitter sets sentence splitter used to auto-flow chunks.
func WithSplitter(s *text.Splitter) Option {
	return func(j *Job) {
		j.splitter = s
	}
}

// WithCodePage forces decoding of non UTF-8 entry names of the package.
func WithCodePage(cp encoding.Encoding) Option {
	return func(j *Job) {
		j.cp = cp
	}
}

// WithClock replaces time source used to name delivery archive.
func WithClock(now func() time.Time) Option {
	return func(j *Job) {
		j.now = now
	}
}

// WithFault makes job fail when it enters given state. Used to check cleanup.
func WithFault(fault func(common.JobState) error) Option {
	return func(j *Job) {
		j.fault = fault
	}
}

// Job owns workspace of a single export. Job could be run only once.
type Job struct {
	ID      string
	State   common.JobState
	History []Transition

	cfg      *config.Config
	log      *zap.Logger
	rpt      *config.Report
	dir      string
	splitter *text.Splitter
	cp       encoding.Encoding
	now      func() time.Time
	fault    func(common.JobState) error
}

// NewJob allocates uniquely named workspace under configured work directory.
func NewJob(cfg *config.Config, log *zap.Logger, rpt *config.Report, opts ...Option) (*Job, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, common.Errorf(common.ErrorKindIo, "unable to generate job id: %w", err)
	}

	parent := cfg.Engine.WorkDir
	if len(parent) > 0 {
		if err := os.MkdirAll(parent, 0755); err != nil {
			return nil, common.Errorf(common.ErrorKindIo, "unable to create work directory: %w", err)
		}
	}
	dir, err := os.MkdirTemp(parent, "idmlfill-job-"+id.String()+"-")
	if err != nil {
		return nil, common.Errorf(common.ErrorKindIo, "unable to create job workspace: %w", err)
	}

	j := &Job{
		ID:    id.String(),
		State: common.JobStateInit,
		cfg:   cfg,
		log:   log.Named("job").With(zap.String("job", id.String())),
		rpt:   rpt,
		dir:   dir,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	j.log.Debug("Job workspace allocated", zap.String("dir", dir))
	return j, nil
}

// Dir returns job workspace.
func (j *Job) Dir() string {
	return j.dir
}

func (j *Job) transition(to common.JobState, cause error) error {
	if !allowed(j.State, to) {
		return fmt.Errorf("illegal job transition %s -> %s", j.State, to)
	}
	t := Transition{From: j.State, To: to, At: time.Now()}
	if cause != nil {
		t.Err = common.Message(cause)
	}
	j.History = append(j.History, t)
	j.log.Debug("Job state changed", zap.Stringer("from", j.State), zap.Stringer("to", to))
	j.State = to

	if j.fault != nil && !to.Terminal() {
		return j.fault(to)
	}
	return nil
}

// cleanup removes workspace. Workspace of failed job goes into debug report
// first.
func (j *Job) cleanup(failed bool) (err error) {
	if failed {
		err = j.rpt.StoreCopy(fmt.Sprintf("failed-%s", j.ID), j.dir)
	}
	if rerr := os.RemoveAll(j.dir); rerr != nil {
		err = multierr.Append(err, common.Errorf(common.ErrorKindIo, "unable to remove job workspace: %w", rerr))
	}
	return err
}

// Run executes export pipeline. Workspace is removed on every exit path, on
// failure nothing is left at destination.
func (j *Job) Run(ctx context.Context, in Input) (res *Result, err error) {
	if j.State != common.JobStateInit {
		return nil, common.Errorf(common.ErrorKindValidation, "job %s has already been run", j.ID)
	}

	j.log.Info("Export starting", zap.String("package", in.Package), zap.String("publication", in.PublicationID))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			j.log.Error("Export ended with panic", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("export panic: %v", r)
			res = nil
		}
		if err != nil {
			if terr := j.transition(common.JobStateFailed, err); terr != nil {
				j.log.Error("Unable to mark job as failed", zap.Error(terr))
			}
			j.log.Error("Export failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
			err = multierr.Append(err, j.cleanup(true))
			return
		}
		if cerr := j.cleanup(false); cerr != nil {
			j.log.Warn("Unable to clean job workspace", zap.String("dir", j.dir), zap.Error(cerr))
		}
		j.log.Info("Export completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", res.Path))
	}(time.Now())

	if err := in.validate(); err != nil {
		return nil, err
	}
	return j.run(ctx, &in)
}

func (j *Job) run(ctx context.Context, in *Input) (*Result, error) {
	root := filepath.Join(j.dir, packageDir)

	// extracted
	layout, err := unpack(in.Package, root, j.cp, j.log)
	if err != nil {
		return nil, err
	}
	if err := j.step(ctx, common.JobStateExtracted); err != nil {
		return nil, err
	}

	// indexed
	idx, err := idml.ReadManifest(root)
	if err != nil {
		return nil, err
	}
	reg := in.Registry
	if reg == nil {
		if reg, err = scan(ctx, idx, j.cfg, j.log); err != nil {
			return nil, err
		}
	}
	j.rpt.StoreText(fmt.Sprintf("registry-%s.txt", j.ID), reg.String())
	if err := j.step(ctx, common.JobStateIndexed); err != nil {
		return nil, err
	}

	// resolved
	resolution, err := mapping.Resolve(ctx, in.Batch, reg, in.Items, in.Files, mapping.Options{
		Splitter: j.splitter,
		Log:      j.log,
	})
	if err != nil {
		return nil, err
	}
	for _, w := range resolution.Warnings {
		j.log.Warn("Mapping", zap.Stringer("kind", w.Kind), zap.String("tag", w.Tag), zap.String("item", w.ItemID), zap.String("message", w.Msg))
	}
	for _, c := range resolution.Conflicts {
		j.log.Info("Tag value overridden", zap.String("tag", c.Tag),
			zap.String("previous", c.Previous.ItemID+"/"+c.Previous.Element), zap.String("current", c.Current.ItemID+"/"+c.Current.Element))
	}
	if data, err := json.MarshalIndent(resolution, "", "  "); err == nil {
		j.rpt.StoreText(fmt.Sprintf("resolution-%s.json", j.ID), string(data))
	}
	if err := j.step(ctx, common.JobStateResolved); err != nil {
		return nil, err
	}

	// substituted
	images := j.cfg.Export.Images
	media, err := substitute.Apply(ctx, root, idx, resolution, substitute.Options{
		ConvertUnsupported: images.ConvertUnsupported,
		MaxDimension:       images.MaxDimension,
		JPEGQuality:        images.JPEGQuality,
		Log:                j.log,
	})
	if err != nil {
		return nil, err
	}
	if err := j.step(ctx, common.JobStateSubstituted); err != nil {
		return nil, err
	}

	// manifestRebuilt
	if err := links.Rebuild(root, media); err != nil {
		return nil, err
	}
	if err := j.step(ctx, common.JobStateManifestRebuilt); err != nil {
		return nil, err
	}

	// packaged
	res, err := j.pack(in, root, layout, media)
	if err != nil {
		return nil, err
	}
	res.UsedTags = resolution.UsedTags
	res.Warnings = resolution.Warnings
	res.Conflicts = resolution.Conflicts
	if err := j.step(ctx, common.JobStatePackaged); err != nil {
		// delivery must not survive failed job
		return nil, multierr.Append(err, os.Remove(res.Path))
	}

	if err := j.transition(common.JobStateDone, nil); err != nil {
		return nil, err
	}
	return res, nil
}

// step records reached state and checks whether job should continue.
func (j *Job) step(ctx context.Context, state common.JobState) error {
	if err := j.transition(state, nil); err != nil {
		return err
	}
	return ctx.Err()
}

func (j *Job) pack(in *Input, root string, layout *archive.Layout, media substitute.MediaMap) (*Result, error) {
	name, err := DeliveryName(j.cfg.Export.NameTemplate, buildValues(in, j.now()))
	if err != nil {
		return nil, common.Errorf(common.ErrorKindValidation, "unable to prepare delivery name: %w", err)
	}

	out := filepath.Join(j.dir, outputDir)
	if err := os.MkdirAll(out, 0755); err != nil {
		return nil, common.Errorf(common.ErrorKindIo, "unable to create output directory: %w", err)
	}
	pkgName := config.CleanFileName(strings.TrimSuffix(name, filepath.Ext(name)), ".idml")
	pkgPath := filepath.Join(out, pkgName)
	if err := archive.PackFile(root, layout, pkgPath, j.cfg.Export.FixZip); err != nil {
		return nil, err
	}

	dest, err := filepath.Abs(j.cfg.Export.Destination)
	if err != nil {
		return nil, common.Errorf(common.ErrorKindIo, "bad destination: %w", err)
	}
	dst := filepath.Join(dest, name)
	if _, err := os.Stat(dst); err == nil {
		if !in.Overwrite && !j.cfg.Export.Overwrite {
			return nil, common.Errorf(common.ErrorKindValidation, "delivery archive already exists: %s", dst)
		}
		j.log.Warn("Overwriting existing file", zap.String("file", dst))
	} else if !os.IsNotExist(err) {
		return nil, common.Errorf(common.ErrorKindIo, "unable to check delivery archive: %w", err)
	} else if err := os.MkdirAll(dest, 0755); err != nil {
		return nil, common.Errorf(common.ErrorKindIo, "unable to create destination directory: %w", err)
	}

	staged := media.Sorted()
	entries := make([]archive.BundleEntry, 0, len(staged)+1)
	entries = append(entries, archive.BundleEntry{Name: pkgName, Path: pkgPath})
	for _, st := range staged {
		entries = append(entries, archive.BundleEntry{
			Name: ImagesDir + "/" + st.Name,
			Path: filepath.Join(root, filepath.FromSlash(st.Href())),
		})
	}
	if err := replaceFile(dst, func(tmp string) error { return archive.Bundle(tmp, entries) }); err != nil {
		return nil, err
	}

	return &Result{
		Path:        dst,
		DownloadURL: downloadURL(j.cfg.Export.BaseURL, dst),
		Media:       staged,
	}, nil
}

// replaceFile produces dst by calling write on temporary file next to it and
// renaming result over dst. Previous dst stays intact when write fails.
func replaceFile(dst string, write func(tmp string) error) (err error) {
	f, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to create temporary delivery archive: %w", err)
	}
	tmp := f.Name()
	if err := f.Close(); err != nil {
		return multierr.Append(common.Errorf(common.ErrorKindIo, "unable to create temporary delivery archive: %w", err), os.Remove(tmp))
	}
	defer func() {
		if err != nil {
			if er := os.Remove(tmp); er != nil && !os.IsNotExist(er) {
				err = multierr.Append(err, er)
			}
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to set delivery archive permissions: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to replace delivery archive: %w", err)
	}
	return nil
}

func downloadURL(base, path string) string {
	name := filepath.Base(path)
	if len(base) > 0 {
		return strings.TrimRight(base, "/") + "/" + url.PathEscape(name)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	if !strings.HasPrefix(u.Path, "/") {
		// windows drive letter
		u.Path = "/" + u.Path
	}
	return u.String()
}
