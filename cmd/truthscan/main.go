package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mediacheck/truthscan-service/internal/domain/entity"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command. Whatever happens, stdout receives exactly one
// JSON object; failures also exit with 1.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cli := &cli{}
	root := cli.rootCommand()
	root.SetArgs(args)
	root.SetOut(stderr)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil && cli.result == nil {
		err = errors.New("no command run")
	}
	if err != nil {
		writeJSON(stdout, entity.NewFailure(err))
		return 1
	}
	writeJSON(stdout, cli.result)
	return 0
}

func writeJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
