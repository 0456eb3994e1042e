package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"vidtrack/internal/config"
	"vidtrack/internal/dirs"
	"vidtrack/internal/engine"
	"vidtrack/internal/logger"
	"vidtrack/internal/model"
	"vidtrack/internal/ui"
)

const (
	ExitOK              = 0
	ExitCLIError        = 1
	ExitConnectionError = 2
	ExitUploadError     = 3
	ExitProcessingError = 4
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

type ctxKey string

const optionsKey ctxKey = "options"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vidtrack [file]",
		Short: "Upload a video and follow its processing live",
		Long: "vidtrack uploads a video file to the processing backend and tracks the job over a WebSocket " +
			"push channel: Upload Video → Extract Audio → Get Transcript → Summarize Transcript → Upload to S3.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runProcess(cmd, args, runMode{})
		},
	}

	// Persistent flags available to all subcommands
	config.BindFlags(root.PersistentFlags())
	root.PersistentFlags().BoolP("verbose", "v", false, "Log at debug level")
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return loadOptions(cmd, root)
	}

	// Also bind process flags on root, so `vidtrack <file>` works.
	bindProcessFlags(root.Flags())

	root.AddCommand(newProcessCmd())
	root.AddCommand(newTuiCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newStepsCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

func bindProcessFlags(fs *pflag.FlagSet) {
	fs.Bool("no-ui", false, "Disable TUI; use plain textual output")
	fs.Bool("json", false, "Print the final job snapshot as JSON (implies --no-ui)")
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	return root.ExecuteContext(ctx)
}

func loadOptions(cmd *cobra.Command, root *cobra.Command) error {
	if err := config.Init(root); err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	opts, err := config.Load()
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		opts.Verbose = true
		opts.LogLevel = "debug"
	}
	cmd.SetContext(context.WithValue(cmd.Context(), optionsKey, opts))
	return nil
}

func optionsFrom(cmd *cobra.Command) model.CLIOptions {
	if v, ok := cmd.Context().Value(optionsKey).(model.CLIOptions); ok {
		return v
	}
	return model.CLIOptions{}
}

// setupLogging routes logs to the configured file, to the state dir while
// the TUI owns the terminal, or to stderr. The closer is never nil.
func setupLogging(opts model.CLIOptions, tui bool, stderr io.Writer) (io.Closer, error) {
	path := opts.LogFile
	if path == "" && tui {
		p, err := dirs.LogFile()
		if err != nil {
			return nil, fmt.Errorf("resolve log file: %w", err)
		}
		path = p
	}
	if path == "" {
		logger.Init(opts.LogLevel, stderr)
		return nopCloser{}, nil
	}
	c, err := logger.InitFile(opts.LogLevel, path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return c, nil
}

// exitFor maps a run outcome to an ExitError.
func exitFor(err error) error {
	if err == nil {
		return nil
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee
	}
	switch engine.KindOf(err) {
	case engine.KindConnectionOpenFailure, engine.KindConnectionLost:
		return &ExitError{Code: ExitConnectionError, Err: err}
	case engine.KindSubmissionFailure:
		return &ExitError{Code: ExitUploadError, Err: err}
	case engine.KindRemoteStepFailure:
		return &ExitError{Code: ExitProcessingError, Err: err}
	}
	if errors.Is(err, ui.ErrAborted) || errors.Is(err, context.Canceled) {
		return &ExitError{Code: ExitCLIError, Err: ui.ErrAborted}
	}
	return &ExitError{Code: ExitCLIError, Err: err}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
