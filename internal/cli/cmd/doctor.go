package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vidtrack/internal/channel"
	"vidtrack/internal/logger"
	"vidtrack/internal/upload"
)

const doctorTimeout = 10 * time.Second

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Check that the push channel and upload endpoint are reachable",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := optionsFrom(cmd)
			closer, err := setupLogging(opts, false, cmd.ErrOrStderr())
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			defer closer.Close()
			out := cmd.OutOrStdout()

			ctx, cancel := context.WithTimeout(cmd.Context(), doctorTimeout)
			defer cancel()

			conn := channel.NewConn(opts.ChannelURL,
				channel.WebSocketDialer{HandshakeTimeout: opts.ConnectTimeout}, nil, logger.Logger())
			fmt.Fprintf(out, "Push channel: %s\n", conn.URL())
			start := time.Now()
			if err := conn.Open(ctx); err != nil {
				logger.Warn("doctor: push channel check failed", "url", conn.URL(), "error", err)
				fmt.Fprintf(out, "  ✗ %v\n", err)
				return &ExitError{Code: ExitConnectionError, Err: fmt.Errorf("push channel unreachable: %w", err)}
			}
			_ = conn.Close()
			fmt.Fprintf(out, "  ✓ handshake ok (%s)\n", time.Since(start).Round(time.Millisecond))

			fmt.Fprintf(out, "Upload endpoint: %s\n", opts.UploadURL)
			status, err := upload.NewClient(opts.UploadURL, upload.WithLogger(logger.Logger())).Probe(ctx)
			if err != nil {
				logger.Warn("doctor: upload endpoint check failed", "url", opts.UploadURL, "error", err)
				fmt.Fprintf(out, "  ✗ %v\n", err)
				return &ExitError{Code: ExitUploadError, Err: fmt.Errorf("upload endpoint unreachable: %w", err)}
			}
			fmt.Fprintf(out, "  ✓ reachable (HTTP %d)\n", status)
			return nil
		},
	}
}
