package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ligustah/tilerip/internal/config"
)

// configFlags binds command-line flags to config keys. Only flags given on
// the command line are applied, so they override file and environment
// values without resetting them to flag defaults.
type configFlags struct {
	fs   *flag.FlagSet
	keys map[string]string
	file *string
}

func newConfigFlags(fs *flag.FlagSet) *configFlags {
	return &configFlags{
		fs:   fs,
		keys: make(map[string]string),
		file: fs.String("config", "", "YAML configuration file"),
	}
}

func (c *configFlags) string(key, value, usage string, names ...string) {
	for _, name := range names {
		c.fs.String(name, value, usage)
		c.keys[name] = key
	}
}

func (c *configFlags) int(key string, value int, usage string, names ...string) {
	for _, name := range names {
		c.fs.Int(name, value, usage)
		c.keys[name] = key
	}
}

func (c *configFlags) bool(key string, value bool, usage string, names ...string) {
	for _, name := range names {
		c.fs.Bool(name, value, usage)
		c.keys[name] = key
	}
}

func (c *configFlags) duration(key string, value time.Duration, usage string, names ...string) {
	for _, name := range names {
		c.fs.Duration(name, value, usage)
		c.keys[name] = key
	}
}

func (c *configFlags) float(key string, value float64, usage string, names ...string) {
	for _, name := range names {
		c.fs.Float64(name, value, usage)
		c.keys[name] = key
	}
}

// load builds the effective configuration: defaults, then the -config file,
// then TILERIP_* environment variables, then explicitly set flags.
func (c *configFlags) load() (config.Config, error) {
	cfg := config.Default()
	if *c.file != "" {
		var err error
		cfg, err = config.LoadFromFile(*c.file)
		if err != nil {
			return config.Config{}, err
		}
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	var errs []error
	c.fs.Visit(func(f *flag.Flag) {
		key, ok := c.keys[f.Name]
		if !ok {
			return
		}
		if err := cfg.Set(key, f.Value.String()); err != nil {
			errs = append(errs, fmt.Errorf("-%s: %w", f.Name, err))
		}
	})
	return cfg, errors.Join(errs...)
}

// parseFlags parses args and maps the outcome to an exit code. ok is false
// when the caller should return code immediately.
func parseFlags(fs *flag.FlagSet, args []string) (code int, ok bool) {
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess, false
		}
		return ExitInvalidArgs, false
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return ExitInvalidArgs, false
	}
	return ExitSuccess, true
}
