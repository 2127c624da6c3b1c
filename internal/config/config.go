package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "BUILDGAME"
	ReleaseVersion = "0.4.0"
)

type Config struct {
	Bind            string
	Port            int
	SessionTimeout  time.Duration
	ReadTimeout     time.Duration
	CatalogPath     string
	ArchiveURL      string
	ArchiveTimeout  time.Duration
	ImageEndpoint   string
	ImageAPIKey     string
	ImageTimeout    time.Duration
	PublicSocketURL string
	PublicURL       string
	AllowedOrigins  []string
	Verbose         bool
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.SessionTimeout < 0 {
		return errors.New("--session-timeout cannot be negative")
	}
	if c.ReadTimeout < 0 {
		return errors.New("--read-timeout cannot be negative")
	}
	if c.ImageTimeout <= 0 {
		return errors.New("--image-timeout must be positive")
	}
	if c.ArchiveTimeout <= 0 {
		return errors.New("--archive-timeout must be positive")
	}
	if c.ImageAPIKey != "" && c.ImageEndpoint == "" {
		return errors.New("--image-api-key requires --image-endpoint")
	}
	return nil
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// NewCommand builds the root command. Every flag can also be set through a
// BUILDGAME_ prefixed environment variable.
func NewCommand(cfg *Config, run func(cmd *cobra.Command, cfg *Config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "car-build-server",
		Short:         "Realtime backend for the build-the-most-reliable-car party game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       ReleaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd, cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: BUILDGAME_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: BUILDGAME_PORT)")
	fs.DurationVar(&cfg.SessionTimeout, "session-timeout", 60*time.Minute, "time before idle rooms are closed, 0 to keep them forever (env: BUILDGAME_SESSION_TIMEOUT)")
	fs.DurationVar(&cfg.ReadTimeout, "read-timeout", 0, "drop websocket clients silent for this long, 0 to disable (env: BUILDGAME_READ_TIMEOUT)")
	fs.StringVar(&cfg.CatalogPath, "catalog", "", "path to a yaml/json/toml catalog, built-in car catalog if empty (env: BUILDGAME_CATALOG)")
	fs.StringVar(&cfg.ArchiveURL, "archive-url", "", "postgres:// or redis:// url to archive finished games, disabled if empty (env: BUILDGAME_ARCHIVE_URL)")
	fs.DurationVar(&cfg.ArchiveTimeout, "archive-timeout", 5*time.Second, "timeout for a single archive write (env: BUILDGAME_ARCHIVE_TIMEOUT)")
	fs.StringVar(&cfg.ImageEndpoint, "image-endpoint", "", "image generation endpoint, disabled if empty (env: BUILDGAME_IMAGE_ENDPOINT)")
	fs.StringVar(&cfg.ImageAPIKey, "image-api-key", "", "bearer token for the image endpoint (env: BUILDGAME_IMAGE_API_KEY)")
	fs.DurationVar(&cfg.ImageTimeout, "image-timeout", 20*time.Second, "timeout for a single image request (env: BUILDGAME_IMAGE_TIMEOUT)")
	fs.StringVar(&cfg.PublicSocketURL, "public-socket-url", "", "websocket url handed to browsers in /config.js (env: BUILDGAME_PUBLIC_SOCKET_URL)")
	fs.StringVar(&cfg.PublicURL, "public-url", "", "base url encoded in join QR codes, derived from the request if empty (env: BUILDGAME_PUBLIC_URL)")
	fs.StringSliceVar(&cfg.AllowedOrigins, "allowed-origins", nil, "extra origin patterns allowed to open websockets (env: BUILDGAME_ALLOWED_ORIGINS)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log at debug level in console format (env: BUILDGAME_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("car-build-server v{{.Version}}\n")

	return cmd
}
