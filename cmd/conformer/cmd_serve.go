package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/ozontech/conformer/harness"
	"github.com/ozontech/conformer/schema"
)

type ServeCommand struct {
	Verbose bool `help:"Log decoded requests and results to stderr."`
	Summary bool `help:"Print a results summary to stderr when input is closed."`
}

func (c *ServeCommand) Run() error {
	log := newLogger(c.Verbose)
	defer syncLogger(log)

	s, err := schema.Default()
	if err != nil {
		return err
	}

	h := harness.New(s, bufio.NewReader(os.Stdin), bufio.NewWriter(os.Stdout), log)
	err = h.Run()
	if c.Summary {
		if werr := h.Reporter().Write(os.Stderr); werr != nil && err == nil {
			err = fmt.Errorf("writing summary: %w", werr)
		}
	}
	return err
}
