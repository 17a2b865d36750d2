package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ozontech/conformer/cases"
	"github.com/ozontech/conformer/config"
	"github.com/ozontech/conformer/driver"
	"github.com/ozontech/conformer/report/phout"
	"github.com/ozontech/conformer/schema"
)

type RunCommand struct {
	Config   string        `type:"existingfile" placeholder:"conformer.toml" help:"TOML config file."`
	Cases    []string      `type:"existingfile" placeholder:"cases.jsonl" help:"Cases files, override the config."`
	FailFast bool          `help:"Stop on the first failed case."`
	Timeout  time.Duration `help:"Limit run duration (10s, 2h...)."`
	Verbose  bool          `help:"Verbose output"`
	Phout    string        `type:"path" placeholder:"phout.log" help:"Write a line per case to this file."`

	Harness []string `arg:"" optional:"" passthrough:"" help:"Harness command and arguments, override the config."`
}

// merge applies the command line on top of the config file.
func (c *RunCommand) merge() (config.Config, error) {
	cfg := config.Default()
	if c.Config != "" {
		var err error
		cfg, err = config.Load(c.Config)
		if err != nil {
			return cfg, err
		}
	}
	if len(c.Cases) > 0 {
		cfg.Suite.Cases = c.Cases
	}
	if len(c.Harness) > 0 {
		cfg.Harness.Command = c.Harness[0]
		cfg.Harness.Args = c.Harness[1:]
	}
	if c.FailFast {
		cfg.Suite.FailFast = true
	}
	if c.Timeout != 0 {
		cfg.Suite.Timeout.Duration = c.Timeout
	}
	return cfg, cfg.Validate()
}

func (c *RunCommand) Run(ctx context.Context) (err error) {
	cfg, err := c.merge()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if cfg.Suite.Timeout.Duration > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, cfg.Suite.Timeout.Duration)
		defer cancelTimeout()
	}

	log := newLogger(c.Verbose)
	defer syncLogger(log)

	s, err := schema.Default()
	if err != nil {
		return err
	}

	all, err := readCases(s, cfg.Suite.Cases)
	if err != nil {
		return err
	}

	var opts []driver.Option
	if cfg.Suite.FailFast {
		opts = append(opts, driver.WithFailFast())
	}

	g := new(errgroup.Group)
	if c.Phout != "" {
		f, ferr := os.Create(c.Phout)
		if ferr != nil {
			return fmt.Errorf("phout file creation: %w", ferr)
		}
		defer func() { err = multierr.Append(err, f.Close()) }()

		r := phout.New(f)
		g.Go(r.Run)
		defer func() { err = multierr.Combine(err, r.Close(), g.Wait()) }()
		opts = append(opts, driver.WithCaseReporter(r))
	}

	d := driver.New(s, log, opts...)
	log.Info("running cases", zap.Int("count", len(all)), zap.String("run", d.RunID()))

	err = d.Run(ctx, cfg.Harness, all)
	if werr := d.Reporter().Write(os.Stderr); werr != nil {
		log.Warn("writing summary", zap.Error(werr))
	}
	if err != nil {
		return err
	}
	if failed := d.Reporter().Failed(); failed > 0 {
		return fmt.Errorf("%d of %d cases failed", failed, len(all))
	}
	return nil
}

func readCases(s *schema.Schema, files []string) ([]*cases.Case, error) {
	dec := cases.NewDecoder(s)
	var all []*cases.Case
	for _, name := range files {
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("opening cases: %w", err)
		}
		part, err := cases.ReadAll(f, dec)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		all = append(all, part...)
	}
	return all, nil
}
