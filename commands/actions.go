package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"idmlfill/common"
	"idmlfill/engine"
	"idmlfill/export"
	"idmlfill/mapping"
	"idmlfill/state"
	"idmlfill/tags"
)

func tooMany(cmd *cli.Command, log *zap.Logger, expected int) {
	if cmd.Args().Len() > expected {
		log.Warn("Malformed command line, too many arguments", zap.Strings("ignoring", cmd.Args().Slice()[expected:]))
	}
}

// Extract extracts (or loads cached) tags of the template.
func Extract(ctx context.Context, cmd *cli.Command) error {
	return withEngine(ctx, cmd, func(e *engine.Engine, env *state.LocalEnv) error {
		id := cmd.Args().Get(0)
		if len(id) == 0 {
			return errors.New("no template has been specified")
		}
		tooMany(cmd, env.Log, 1)

		resp, err := e.OnExtractRequested(ctx, engine.ExtractRequest{
			TemplateID: id,
			Convention: common.TagConventionTagBased,
			Force:      cmd.Bool("force"),
		})
		if err != nil {
			return err
		}
		env.Log.Info("Tags ready", zap.String("template", id), zap.String("action", resp.Action), zap.Int("tags", len(resp.Tags)))
		return output(cmd.String("output"), resp)
	})
}

// Export produces delivery archive from template or package.
func Export(ctx context.Context, cmd *cli.Command) error {
	return withEngine(ctx, cmd, func(e *engine.Engine, env *state.LocalEnv) error {
		env.Overwrite = cmd.Bool("overwrite")
		req := engine.ExportRequest{
			TemplateID:    cmd.Args().Get(0),
			PackagePath:   cmd.String("package"),
			PublicationID: cmd.String("publication"),
			Title:         cmd.String("title"),
			Overwrite:     env.Overwrite,
		}
		tooMany(cmd, env.Log, 1)
		if len(req.TemplateID) > 0 && len(req.PackagePath) > 0 {
			env.Log.Warn("Both template and package specified, using template", zap.String("template", req.TemplateID))
			req.PackagePath = ""
		}
		if fname := cmd.String("mapping"); len(fname) > 0 {
			data, err := readFile(fname)
			if err != nil {
				return fmt.Errorf("unable to read mapping: %w", err)
			}
			if req.Batch, err = mapping.Decode(data); err != nil {
				return fmt.Errorf("unable to decode mapping '%s': %w", fname, err)
			}
		}

		resp, err := e.OnExportRequested(ctx, req)
		if err != nil {
			return err
		}
		for _, w := range resp.Warnings {
			env.Log.Warn("Export advisory", zap.Stringer("kind", w.Kind), zap.String("tag", w.Tag), zap.String("message", w.Msg))
		}
		env.Log.Info("Delivery archive created", zap.String("path", resp.Path), zap.String("url", resp.DownloadURL))
		return output(cmd.String("output"), resp)
	})
}

// Tags prints tags of the template, or of the package when it is given
// directly, in readable form.
func Tags(ctx context.Context, cmd *cli.Command) error {
	return withEngine(ctx, cmd, func(e *engine.Engine, env *state.LocalEnv) error {
		src := cmd.Args().Get(0)
		if len(src) == 0 {
			return errors.New("no template or package has been specified")
		}
		tooMany(cmd, env.Log, 1)

		var reg *tags.Registry
		if strings.EqualFold(filepath.Ext(src), ".idml") {
			var err error
			if reg, err = export.Extract(ctx, env.Cfg, env.Log, src, env.CodePage); err != nil {
				return err
			}
		} else {
			resp, err := e.OnExtractRequested(ctx, engine.ExtractRequest{TemplateID: src})
			if err != nil {
				return err
			}
			reg = &tags.Registry{Names: resp.Tags, Details: resp.Details}
		}

		if cmd.Bool("json") {
			return output(cmd.String("output"), reg)
		}
		text := reg.String()
		if fname := cmd.String("output"); len(fname) > 0 {
			return os.WriteFile(fname, []byte(text), 0644)
		}
		_, err := fmt.Fprintln(os.Stdout, text)
		return err
	})
}

func MappingSave(ctx context.Context, cmd *cli.Command) error {
	return withEngine(ctx, cmd, func(e *engine.Engine, env *state.LocalEnv) error {
		id, fname := cmd.Args().Get(0), cmd.Args().Get(1)
		if len(id) == 0 || len(fname) == 0 {
			return errors.New("publication and mapping file must be specified")
		}
		tooMany(cmd, env.Log, 2)

		data, err := readFile(fname)
		if err != nil {
			return fmt.Errorf("unable to read mapping: %w", err)
		}
		batch, err := mapping.Decode(data)
		if err != nil {
			return fmt.Errorf("unable to decode mapping '%s': %w", fname, err)
		}
		if err := e.SaveMapping(ctx, id, batch); err != nil {
			return err
		}
		env.Log.Info("Mapping saved", zap.String("publication", id), zap.Int("items", len(batch.Items)), zap.Strings("tags", batch.UsedTags()))
		return nil
	})
}

func MappingShow(ctx context.Context, cmd *cli.Command) error {
	return withEngine(ctx, cmd, func(e *engine.Engine, env *state.LocalEnv) error {
		id := cmd.Args().Get(0)
		if len(id) == 0 {
			return errors.New("no publication has been specified")
		}
		tooMany(cmd, env.Log, 1)

		batch, err := e.LoadMapping(ctx, id)
		if err != nil {
			return err
		}
		return output(cmd.String("output"), batch)
	})
}

func MappingDelete(ctx context.Context, cmd *cli.Command) error {
	return withEngine(ctx, cmd, func(e *engine.Engine, env *state.LocalEnv) error {
		id := cmd.Args().Get(0)
		if len(id) == 0 {
			return errors.New("no publication has been specified")
		}
		tooMany(cmd, env.Log, 1)

		if err := e.DeleteMapping(ctx, id); err != nil {
			return err
		}
		env.Log.Info("Mapping deleted", zap.String("publication", id))
		return nil
	})
}

// Invalidate drops cached tags of the template.
func Invalidate(ctx context.Context, cmd *cli.Command) error {
	return withEngine(ctx, cmd, func(e *engine.Engine, env *state.LocalEnv) error {
		id := cmd.Args().Get(0)
		if len(id) == 0 {
			return errors.New("no template has been specified")
		}
		tooMany(cmd, env.Log, 1)
		return e.InvalidateTemplate(ctx, id)
	})
}
