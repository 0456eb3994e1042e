package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	vidtrackcmd "vidtrack/internal/cli/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	err := vidtrackcmd.Execute(ctx)
	if err == nil {
		return vidtrackcmd.ExitOK
	}
	var ee *vidtrackcmd.ExitError
	if !errors.As(err, &ee) {
		ee = &vidtrackcmd.ExitError{Code: vidtrackcmd.ExitCLIError, Err: err}
	}
	if ee.Err != nil {
		fmt.Fprintln(os.Stderr, "vidtrack:", ee.Err)
	}
	return ee.Code
}
