package model

import "time"

// VideoInput is a local video file selected for processing.
type VideoInput struct {
	Path        string // Full path to the file on disk.
	Name        string // Base name sent as the multipart filename.
	ContentType string // video/mp4, video/quicktime or video/x-msvideo.
	Size        int64  // Bytes.
}

// CLIOptions holds user-configurable runtime options as resolved from
// flags, environment and config file.
type CLIOptions struct {
	ChannelURL     string        // Push channel endpoint (ws:// or wss://).
	UploadURL      string        // Submission endpoint (http:// or https://).
	UploadField    string        // Multipart field carrying the file.
	ConnectTimeout time.Duration // Channel handshake timeout; 0 = transport default.
	UploadTimeout  time.Duration // Whole submission request timeout; 0 = none.
	ETARefresh     time.Duration // ETA refresh period while running; 0 disables.

	LogLevel string
	LogFile  string // Empty = stderr, or the state dir when the TUI is active.

	JSON    bool // Print the final snapshot as JSON.
	NoUI    bool // Disable TUI when true
	Verbose bool
}
