// Package config resolves runtime options from flags, VIDTRACK_* environment
// variables and an optional config file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"vidtrack/internal/dirs"
	"vidtrack/internal/model"
	"vidtrack/internal/util"
)

const envPrefix = "VIDTRACK"

// Keys shared by the config file, environment and flags.
const (
	KeyWSURL          = "ws_url"
	KeyUploadURL      = "upload_url"
	KeyUploadField    = "upload_field"
	KeyConnectTimeout = "connect_timeout"
	KeyUploadTimeout  = "upload_timeout"
	KeyETARefresh     = "eta_refresh"
	KeyLogLevel       = "log_level"
	KeyLogFile        = "log_file"
)

// Defaults point at a backend on the local machine.
var Defaults = map[string]any{
	KeyWSURL:          "ws://localhost:8000/ws/progress/",
	KeyUploadURL:      "http://localhost:8000/api/upload-video/",
	KeyUploadField:    "video",
	KeyConnectTimeout: 10 * time.Second,
	KeyUploadTimeout:  30 * time.Minute,
	KeyETARefresh:     time.Second,
	KeyLogLevel:       "info",
	KeyLogFile:        "",
}

// flagName maps a key to its command line spelling.
func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// BindFlags declares one persistent flag per key on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String(flagName(KeyWSURL), Defaults[KeyWSURL].(string), "Push channel endpoint (ws:// or wss://)")
	fs.String(flagName(KeyUploadURL), Defaults[KeyUploadURL].(string), "Upload endpoint (http:// or https://)")
	fs.String(flagName(KeyUploadField), Defaults[KeyUploadField].(string), "Multipart field carrying the video")
	fs.Duration(flagName(KeyConnectTimeout), Defaults[KeyConnectTimeout].(time.Duration), "Push channel handshake timeout")
	fs.Duration(flagName(KeyUploadTimeout), Defaults[KeyUploadTimeout].(time.Duration), "Upload request timeout (0 disables)")
	fs.Duration(flagName(KeyETARefresh), Defaults[KeyETARefresh].(time.Duration), "ETA refresh period (0 disables)")
	fs.String(flagName(KeyLogLevel), Defaults[KeyLogLevel].(string), "Log level: debug, info, warn, error")
	fs.String(flagName(KeyLogFile), "", "Log file (default: stderr, or the state dir while the TUI runs)")
}

// Init wires Viper with config paths, env, defaults, and flag bindings.
// A missing config file is not an error; an unreadable one is.
func Init(root *cobra.Command) error {
	_ = dirs.EnsureAll()

	for k, v := range Defaults {
		viper.SetDefault(k, v)
	}

	if cfgDir, err := dirs.ConfigDir(); err == nil {
		viper.AddConfigPath(cfgDir)
	}
	viper.SetConfigName("config") // config.{yaml|yml|json|toml}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	for k := range Defaults {
		if f := root.PersistentFlags().Lookup(flagName(k)); f != nil {
			if err := viper.BindPFlag(k, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", f.Name, err)
			}
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// Load returns the resolved options, validated.
func Load() (model.CLIOptions, error) {
	opts := model.CLIOptions{
		ChannelURL:     strings.TrimSpace(viper.GetString(KeyWSURL)),
		UploadURL:      strings.TrimSpace(viper.GetString(KeyUploadURL)),
		UploadField:    strings.TrimSpace(viper.GetString(KeyUploadField)),
		ConnectTimeout: viper.GetDuration(KeyConnectTimeout),
		UploadTimeout:  viper.GetDuration(KeyUploadTimeout),
		ETARefresh:     viper.GetDuration(KeyETARefresh),
		LogLevel:       strings.ToLower(strings.TrimSpace(viper.GetString(KeyLogLevel))),
		LogFile:        viper.GetString(KeyLogFile),
	}
	if err := Validate(opts); err != nil {
		return model.CLIOptions{}, err
	}
	return opts, nil
}

// Validate checks option values that would otherwise fail late.
func Validate(o model.CLIOptions) error {
	if _, err := util.ParseEndpoint(o.ChannelURL, util.ChannelSchemes...); err != nil {
		return fmt.Errorf("invalid %s: %w", KeyWSURL, err)
	}
	if _, err := util.ParseEndpoint(o.UploadURL, util.UploadSchemes...); err != nil {
		return fmt.Errorf("invalid %s: %w", KeyUploadURL, err)
	}
	if o.UploadField == "" {
		return fmt.Errorf("invalid %s: must not be empty", KeyUploadField)
	}
	for key, d := range map[string]time.Duration{
		KeyConnectTimeout: o.ConnectTimeout,
		KeyUploadTimeout:  o.UploadTimeout,
		KeyETARefresh:     o.ETARefresh,
	} {
		if d < 0 {
			return fmt.Errorf("invalid %s: %s is negative", key, d)
		}
	}
	switch o.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid %s: %q (valid: debug|info|warn|error)", KeyLogLevel, o.LogLevel)
	}
	return nil
}
