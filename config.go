package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	allowedOrigin   string
	bind            string
	deathLogSize    int
	levels          string
	logFile         string
	port            int
	profile         bool
	publicURL       string
	stageClearDelay time.Duration
	tickRate        int
	verbose         bool
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.tickRate < 1 || c.tickRate > 120 {
		return fmt.Errorf("invalid tick rate (must be between 1-120 inclusive): %d", c.tickRate)
	}
	if c.stageClearDelay <= 0 {
		return errors.New("--stage-clear-delay must be positive")
	}
	if c.deathLogSize < 1 {
		return errors.New("--death-log-size must be positive")
	}
	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	// .env 可选，不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("WASD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "wasd",
		Short:         "Server-authoritative cooperative maze game where players share one keyboard.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.allowedOrigin, "allowed-origin", "", "only accept websocket connections from this origin, empty allows any (env: WASD_ALLOWED_ORIGIN)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: WASD_BIND)")
	fs.IntVar(&cfg.deathLogSize, "death-log-size", 15, "inputs kept for death attribution (env: WASD_DEATH_LOG_SIZE)")
	fs.StringVar(&cfg.levels, "levels", "", "path to a TOML level file, empty uses the built-in stages (env: WASD_LEVELS)")
	fs.StringVar(&cfg.logFile, "log-file", "wasd.log", "rolling log file, empty disables file logging (env: WASD_LOG_FILE)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: WASD_PORT)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: WASD_PROFILE)")
	fs.StringVar(&cfg.publicURL, "public-url", "", "base URL used in invite QR codes (env: WASD_PUBLIC_URL)")
	fs.DurationVar(&cfg.stageClearDelay, "stage-clear-delay", 2*time.Second, "pause between stages (env: WASD_STAGE_CLEAR_DELAY)")
	fs.IntVar(&cfg.tickRate, "tick-rate", 30, "simulation ticks per second (env: WASD_TICK_RATE)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "log debug output to stderr (env: WASD_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("wasd v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
