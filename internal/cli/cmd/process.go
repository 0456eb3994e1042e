package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"vidtrack/internal/channel"
	"vidtrack/internal/engine"
	"vidtrack/internal/logger"
	"vidtrack/internal/media"
	"vidtrack/internal/model"
	"vidtrack/internal/ui"
	"vidtrack/internal/upload"
	"vidtrack/internal/util/format"
)

type runMode struct {
	ForceTUI bool
}

func newProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "process <file>",
		Short:         "Upload a video and track its processing",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, args, runMode{})
		},
	}
	bindProcessFlags(cmd.Flags())
	return cmd
}

func runProcess(cmd *cobra.Command, args []string, mode runMode) error {
	opts := optionsFrom(cmd)
	opts.NoUI, _ = cmd.Flags().GetBool("no-ui")
	opts.JSON, _ = cmd.Flags().GetBool("json")

	in, err := media.Inspect(args[0])
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}

	useTUI := mode.ForceTUI || (!opts.NoUI && !opts.JSON && isTerminal())
	closer, err := setupLogging(opts, useTUI, cmd.ErrOrStderr())
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	defer closer.Close()
	logger.Debug("options resolved", "ws_url", opts.ChannelURL, "upload_url", opts.UploadURL,
		"field", opts.UploadField, "tui", useTUI, "file", in.Path)

	if useTUI {
		feed := ui.NewFeed()
		eng := newEngine(opts, engine.WithObserver(feed))
		defer eng.Reset()
		_, err := ui.Run(cmd.Context(), eng, feed, in)
		return exitFor(err)
	}

	out := cmd.OutOrStdout()
	var extra []engine.Option
	if !opts.JSON {
		fmt.Fprintf(out, "Selected file: %s (%s)\n", in.Name, format.HumanizeBytes(in.Size))
		extra = append(extra, engine.WithObserver(ui.NewPlain(out)))
	}
	eng := newEngine(opts, extra...)
	defer eng.Reset()

	snap, err := track(cmd, eng, in)
	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if jerr := enc.Encode(snap); jerr != nil {
			return &ExitError{Code: ExitCLIError, Err: jerr}
		}
	}
	return exitFor(err)
}

// track runs one job to completion without the TUI.
func track(cmd *cobra.Command, eng *engine.Engine, in model.VideoInput) (engine.Snapshot, error) {
	ctx := cmd.Context()
	if err := eng.Start(ctx, in); err != nil && engine.KindOf(err) == "" {
		return eng.Snapshot(), err
	}
	snap, err := eng.Wait(ctx)
	if ctx.Err() != nil {
		return snap, ctx.Err()
	}
	return snap, err
}

func newEngine(opts model.CLIOptions, extra ...engine.Option) *engine.Engine {
	log := logger.Logger()
	sub := upload.NewClient(opts.UploadURL,
		upload.WithField(opts.UploadField),
		upload.WithTimeout(opts.UploadTimeout),
		upload.WithLogger(log),
	)
	base := []engine.Option{
		engine.WithChannelURL(opts.ChannelURL),
		engine.WithDialer(channel.WebSocketDialer{HandshakeTimeout: opts.ConnectTimeout}),
		engine.WithSubmitter(sub),
		engine.WithRefreshInterval(opts.ETARefresh),
		engine.WithLogger(log),
	}
	return engine.New(append(base, extra...)...)
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
