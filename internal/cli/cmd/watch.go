package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"vidtrack/internal/channel"
	"vidtrack/internal/logger"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "watch",
		Short:         "Print every push channel message until the channel closes",
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

			pl := &printListener{w: cmd.OutOrStdout(), done: make(chan error, 1)}
			conn := channel.NewConn(opts.ChannelURL,
				channel.WebSocketDialer{HandshakeTimeout: opts.ConnectTimeout}, pl, logger.Logger())
			defer conn.Close()

			if err := conn.Open(cmd.Context()); err != nil {
				return &ExitError{Code: ExitConnectionError, Err: err}
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watching %s (ctrl+c to stop)\n", opts.ChannelURL)
			logger.Info("watching push channel", "url", opts.ChannelURL)

			select {
			case <-cmd.Context().Done():
				return nil
			case err := <-pl.done:
				if err != nil {
					return &ExitError{Code: ExitConnectionError, Err: err}
				}
				return nil
			}
		},
	}
}

// printListener writes each inbound message as one JSON line.
type printListener struct {
	mu   sync.Mutex
	w    io.Writer
	done chan error
}

func (p *printListener) Message(m channel.Message) {
	b, err := json.Marshal(m)
	if err != nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, string(b))
}

func (p *printListener) Malformed(raw []byte, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "# malformed (%v): %q\n", err, raw)
}

func (p *printListener) StateChanged(s channel.State, err error) {
	if s != channel.StateDisconnected && s != channel.StateError {
		return
	}
	var ce *channel.CloseError
	if s == channel.StateDisconnected && errors.As(err, &ce) && ce.Code == 1000 {
		err = nil
	}
	select {
	case p.done <- err:
	default:
	}
}
