// Package commands implements command line actions on top of the engine.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"idmlfill/content"
	"idmlfill/engine"
	"idmlfill/state"
	"idmlfill/store"
)

// codePage returns encoding requested for non UTF-8 names in packages, nil
// when not requested or unknown.
func codePage(cmd *cli.Command, log *zap.Logger) encoding.Encoding {
	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	name := cmd.String("force-zip-cp")
	if len(name) == 0 {
		return nil
	}
	cp, err := ianaindex.IANA.Encoding(name)
	if err != nil || cp == nil {
		log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", name), zap.Error(err))
		return nil
	}
	n, _ := ianaindex.IANA.Name(cp)
	log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
	return cp
}

func openStore(env *state.LocalEnv) (store.KV, func() error, error) {
	path := env.Cfg.Engine.StorePath
	if len(path) == 0 {
		env.Log.Debug("Using memory store, nothing will be kept between runs")
		return store.NewMemory(), func() error { return nil }, nil
	}
	db, err := store.OpenSQLite(path)
	if err != nil {
		return nil, nil, err
	}
	return db, db.Close, nil
}

func openLibrary(cmd *cli.Command, env *state.LocalEnv) (*content.Library, error) {
	path := cmd.String("library")
	if len(path) == 0 {
		path = env.Cfg.Engine.Library
	}
	if len(path) == 0 {
		// store-only commands do not need any content
		return content.ParseLibrary(nil, "")
	}
	return content.LoadLibrary(path)
}

// withEngine prepares engine for the command and releases its resources
// afterwards.
func withEngine(ctx context.Context, cmd *cli.Command, fn func(*engine.Engine, *state.LocalEnv) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	env.CodePage = codePage(cmd, env.Log)

	lib, err := openLibrary(cmd, env)
	if err != nil {
		return fmt.Errorf("unable to load library: %w", err)
	}
	kv, closeStore, err := openStore(env)
	if err != nil {
		return fmt.Errorf("unable to open store: %w", err)
	}
	defer func() {
		if cerr := closeStore(); cerr != nil && err == nil {
			err = fmt.Errorf("unable to close store: %w", cerr)
		}
	}()

	e := engine.New(env.Cfg, kv, lib, lib, lib, env.Log, env.Rpt)
	if env.CodePage != nil {
		e.CodePage(env.CodePage)
	}
	return fn(e, env)
}

// output writes value as indented JSON to file or STDOUT.
func output(fname string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to encode result: %w", err)
	}
	data = append(data, '\n')

	if len(fname) == 0 {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(fname, data, 0644); err != nil {
		return fmt.Errorf("unable to write '%s': %w", fname, err)
	}
	return nil
}

func readFile(fname string) ([]byte, error) {
	if fname == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(fname)
}
