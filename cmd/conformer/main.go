package main

import (
	"context"

	"github.com/alecthomas/kong"
	mangokong "github.com/alecthomas/mango-kong"
	"go.uber.org/zap"
)

var CLI struct {
	Serve ServeCommand      `cmd:"" default:"1" help:"Serving conformance requests on stdin/stdout (default)."`
	Gen   GenCommand        `cmd:"" help:"Converting a cases file into request frames."`
	Run   RunCommand        `cmd:"" help:"Running cases against a harness process."`
	Man   mangokong.ManFlag `help:"Write man page." hidden:""`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kongCtx := kong.Parse(
		&CLI,
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.ConfigureHelp(kong.HelpOptions{
			Tree:    true,
			Compact: true,
		}),
		kong.Description(`protobuf conformance harness

The conformer reads length-prefixed conformance requests from stdin, round-trips
their payloads through the protobuf codec and writes the responses to stdout.
		`),
	)
	err := kongCtx.Run()
	kongCtx.FatalIfErrorf(err)
}

// newLogger logs to stderr: stdout carries the protocol.
func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	return zap.Must(zap.NewDevelopment())
}

func syncLogger(log *zap.Logger) {
	_ = log.Sync()
}
