// Package driver plays the test suite side of the conformance protocol: it
// sends cases to a harness and checks what comes back.
package driver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ozontech/conformer/cases"
	"github.com/ozontech/conformer/codec"
	"github.com/ozontech/conformer/conformance"
	"github.com/ozontech/conformer/config"
	"github.com/ozontech/conformer/frame"
	"github.com/ozontech/conformer/report"
	"github.com/ozontech/conformer/report/noop"
	"github.com/ozontech/conformer/report/summary"
	"github.com/ozontech/conformer/schema"
)

// ErrFailFast stops a run on the first failed case.
var ErrFailFast = errors.New("case failed")

const RunIDEnv = "CONFORMER_RUN_ID"

type Driver struct {
	requests  *conformance.RequestCodec
	responses *conformance.ResponseCodec
	tests     *codec.Dynamic
	reporter  *summary.Reporter
	cases     report.Reporter
	failFast  bool
	runID     string
	log       *zap.Logger

	reqBuf []byte
	resBuf []byte
}

type Option func(*Driver)

func WithReporter(r *summary.Reporter) Option {
	return func(d *Driver) {
		d.reporter = r
	}
}

// WithCaseReporter receives a state for every case sent. The caller runs and
// closes it.
func WithCaseReporter(r report.Reporter) Option {
	return func(d *Driver) {
		d.cases = r
	}
}

func WithFailFast() Option {
	return func(d *Driver) {
		d.failFast = true
	}
}

func New(s *schema.Schema, log *zap.Logger, opts ...Option) *Driver {
	d := &Driver{
		requests:  conformance.NewRequestCodec(codec.NewDynamic(s.Request)),
		responses: conformance.NewResponseCodec(codec.NewDynamic(s.Response)),
		tests:     codec.NewDynamic(s.TestAllTypes),
		reporter:  summary.New(),
		cases:     noop.New(),
		runID:     uuid.NewString(),
	}
	for _, o := range opts {
		if o != nil {
			o(d)
		}
	}
	d.log = log.With(zap.String("run", d.runID))
	return d
}

func (d *Driver) Reporter() *summary.Reporter { return d.reporter }

func (d *Driver) RunID() string { return d.runID }

// Exchange sends every case to the peer over w and reads its answers from r,
// one request at a time.
func (d *Driver) Exchange(ctx context.Context, w io.Writer, r io.Reader, all []*cases.Case) error {
	fw := frame.NewWriter(w)
	fr := frame.NewReader(r)

	for i, c := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.exchange(i, c, fw, fr); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) exchange(i int, c *cases.Case, fw *frame.Writer, fr *frame.Reader) (err error) {
	state := d.cases.Acquire(c.Name)
	defer func() {
		if err != nil && !errors.Is(err, ErrFailFast) {
			state.IoError(err)
		}
		state.End()
	}()

	d.reqBuf, err = d.requests.MarshalAppend(d.reqBuf[:0], &c.Request)
	if err != nil {
		return fmt.Errorf("case %q: marshal request: %w", c.Name, err)
	}
	if err = fw.WriteNext(d.reqBuf); err != nil {
		return fmt.Errorf("case %q: %w", c.Name, err)
	}

	d.resBuf, err = fr.ReadNext(d.resBuf[:0])
	if err != nil {
		return fmt.Errorf("case %q: read response: %w", c.Name, err)
	}
	state.SetSize(len(d.reqBuf), len(d.resBuf))
	res, err := d.responses.Unmarshal(d.resBuf)
	if err != nil {
		return fmt.Errorf("case %q: %w", c.Name, err)
	}
	d.reporter.Accept(res, len(d.reqBuf), len(d.resBuf))
	state.SetResult(res.Kind())

	if cerr := d.check(c, res); cerr != nil {
		d.reporter.Fail()
		state.Fail()
		d.log.Warn("case failed", zap.Int("index", i), zap.String("case", c.Name), zap.Error(cerr))
		if d.failFast {
			return fmt.Errorf("%w: %s: %v", ErrFailFast, c.Name, cerr)
		}
		return nil
	}
	d.log.Debug("case passed", zap.String("case", c.Name), zap.Stringer("result", res.Kind()))
	return nil
}

// check applies the case expectation and, for payload results, the
// decode-encode-decode idempotence of the returned bytes.
func (d *Driver) check(c *cases.Case, res conformance.Result) error {
	if err := c.Check(res); err != nil {
		return err
	}

	out, ok := res.(conformance.ProtobufPayload)
	if !ok {
		return nil
	}
	in, ok := c.Request.Payload.(conformance.ProtobufInput)
	if !ok {
		return fmt.Errorf("payload returned for a non protobuf request")
	}

	want, err := d.tests.Unmarshal(in)
	if err != nil {
		return fmt.Errorf("payload returned for an invalid request: %w", err)
	}
	got, err := d.tests.Unmarshal(out)
	if err != nil {
		return fmt.Errorf("returned payload does not parse: %w", err)
	}
	if !d.tests.Equal(want, got) {
		return fmt.Errorf("returned payload differs:\n\t   want: %s\n\t    got: %s", d.tests.Format(want), d.tests.Format(got))
	}
	return nil
}

// Run starts the harness process described by cfg and exchanges all cases
// with it over its stdio.
func (d *Driver) Run(ctx context.Context, cfg config.HarnessConfig, all []*cases.Case) (err error) {
	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...) //nolint:gosec
	cmd.Dir = cfg.Dir
	cmd.Env = append(append(os.Environ(), cfg.Env...), RunIDEnv+"="+d.runID)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err = cmd.Start(); err != nil {
		return fmt.Errorf("starting harness %s: %w", cfg.Command, err)
	}
	d.log.Info("harness started", zap.String("command", cfg.Command), zap.Int("pid", cmd.Process.Pid))

	var g errgroup.Group
	g.Go(func() error {
		s := bufio.NewScanner(stderr)
		for s.Scan() {
			d.log.Info("harness", zap.String("stderr", s.Text()))
		}
		_, err := io.Copy(io.Discard, stderr)
		return multierr.Append(s.Err(), err)
	})
	g.Go(func() error {
		err := d.Exchange(ctx, stdin, stdout, all)
		err = multierr.Append(err, stdin.Close())
		if err != nil {
			_, _ = io.Copy(io.Discard, stdout)
			return err
		}
		// The harness must not answer more than it was asked.
		_, err = frame.NewReader(stdout).ReadNext(nil)
		if !errors.Is(err, frame.ErrStreamClosed) {
			_, _ = io.Copy(io.Discard, stdout)
			return fmt.Errorf("unexpected output after last response (%v)", err)
		}
		return nil
	})

	exchangeErr := g.Wait()
	waitErr := cmd.Wait()
	if waitErr != nil {
		waitErr = fmt.Errorf("harness exited: %w", waitErr)
	}
	return multierr.Combine(exchangeErr, waitErr)
}
