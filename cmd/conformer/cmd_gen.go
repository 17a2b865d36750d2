package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"

	"github.com/ozontech/conformer/cases"
	"github.com/ozontech/conformer/codec"
	"github.com/ozontech/conformer/conformance"
	"github.com/ozontech/conformer/frame"
	"github.com/ozontech/conformer/schema"
)

type GenCommand struct {
	In  *os.File `arg:"" required:"" default:"-" help:"Cases file (default is stdin)"`
	Out string   `arg:"" required:"" default:"-" help:"Output file (default is stdout)" type:"path"`
}

func (c *GenCommand) Run() (err error) {
	var outF *os.File
	if c.Out == "-" {
		outF = os.Stdout
	} else {
		outF, err = os.Create(c.Out)
		if err != nil {
			return fmt.Errorf("output file creation: %w", err)
		}
		defer func() { err = multierr.Append(err, outF.Close()) }()
	}
	defer func() { err = multierr.Append(err, c.In.Close()) }()

	s, err := schema.Default()
	if err != nil {
		return err
	}

	n, err := generate(s, c.In, outF)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stderr, "%d requests written\n", n)
	return err
}

// generate writes one request frame per case of r.
func generate(s *schema.Schema, r io.Reader, w io.Writer) (int, error) {
	src := cases.NewSource(r, cases.NewDecoder(s))
	requests := conformance.NewRequestCodec(codec.NewDynamic(s.Request))
	fw := frame.NewWriter(w)

	var buf []byte
	for i := 0; ; i++ {
		c, err := src.Next()
		if errors.Is(err, io.EOF) {
			return i, nil
		}
		if err != nil {
			return i, fmt.Errorf("case #%d: %w", i+1, err)
		}

		buf, err = requests.MarshalAppend(buf[:0], &c.Request)
		if err != nil {
			return i, fmt.Errorf("case %q: %w", c.Name, err)
		}
		if err = fw.WriteNext(buf); err != nil {
			return i, fmt.Errorf("case %q: %w", c.Name, err)
		}
	}
}
