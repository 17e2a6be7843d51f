package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/birbparty/birb-baas/internal/config"
	"github.com/birbparty/birb-baas/internal/telemetry"
	"github.com/birbparty/birb-baas/sdk"
)

// cli carries the state shared by every command
type cli struct {
	cfg      *config.Config
	log      *logrus.Logger
	app      *sdk.App
	closeApp config.Closer
	out      io.Writer

	logLevel string
	userName string
	password string
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "baas",
		Short: "Command line client for the BaaS platform",
		Long: `baas talks to the platform API with the same client the Go SDK exposes.

Settings come from BAAS_* environment variables and can be overridden by flags.
The session (token and user) lives in the selected storage backend: with
--storage redis or postgres it survives between invocations.`,
		Example: `  # sign in once, keep the session in redis
  BAAS_STORAGE=redis baas login alice --password secret

  # list published articles
  baas list articles --search golang --rpp 20

  # one-shot call with inline credentials
  baas whoami --user alice --password secret`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.teardown()
		},
	}

	flags := root.PersistentFlags()
	flags.String("api-key", "", "application API key (BAAS_API_KEY)")
	flags.String("base-url", "", "platform root URL (BAAS_BASE_URL)")
	flags.String("storage", "", "session storage: memory, redis or postgres (BAAS_STORAGE)")
	flags.String("events", "", "session events: local or nats (BAAS_EVENTS)")
	flags.Bool("tracing", false, "emit client spans for every request")
	flags.StringVar(&c.logLevel, "log-level", "warn", "log level")
	flags.StringVar(&c.userName, "user", "", "sign in as this user before running the command")
	flags.StringVar(&c.password, "password", os.Getenv("BAAS_PASSWORD"), "password for --user or login (BAAS_PASSWORD)")

	root.AddCommand(
		newLoginCommand(c),
		newLogoutCommand(c),
		newWhoamiCommand(c),
		newTokenCommand(c),
		newListCommand(c),
		newGetCommand(c),
		newCreateCommand(c),
		newUpdateCommand(c),
		newDeleteCommand(c),
		newActionCommand(c),
		newUploadCommand(c),
		newDownloadCommand(c),
		newWatchCommand(c),
	)

	return root
}

func (c *cli) setup(cmd *cobra.Command, args []string) error {
	c.out = cmd.OutOrStdout()

	telemetryCfg := telemetry.NewConfigFromEnv()
	telemetryCfg.LogLevel = c.logLevel
	c.log = telemetry.NewLogger(telemetryCfg, os.Stderr)

	cfg, err := config.NewConfigFromEnv()
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	c.cfg = cfg

	if cfg.Tracing {
		telemetryCfg.EnableTracing = true
		if err := telemetry.InitTracing(telemetryCfg); err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	app, closeApp, err := config.Build(cmd.Context(), cfg, c.log, telemetry.M())
	if err != nil {
		return err
	}
	c.app, c.closeApp = app, closeApp

	if c.userName != "" && cmd.Name() != "login" {
		if _, err := app.Membership.Login(cmd.Context(), c.userName, c.password); err != nil {
			return fmt.Errorf("sign-in failed: %w", err)
		}
	}
	return nil
}

func (c *cli) teardown() error {
	var err error
	if c.closeApp != nil {
		err = c.closeApp()
	}
	if c.cfg != nil && c.cfg.Tracing {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if terr := telemetry.CloseTracing(ctx); terr != nil && err == nil {
			err = terr
		}
	}
	return err
}

// applyFlags overrides environment settings with the flags that were set
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("api-key") {
		cfg.APIKey, _ = flags.GetString("api-key")
	}
	if flags.Changed("base-url") {
		cfg.BaseURL, _ = flags.GetString("base-url")
	}
	if flags.Changed("storage") {
		cfg.Storage, _ = flags.GetString("storage")
	}
	if flags.Changed("events") {
		cfg.Events, _ = flags.GetString("events")
	}
	if flags.Changed("tracing") {
		cfg.Tracing, _ = flags.GetBool("tracing")
	}
	return cfg.LoadBackends()
}

// printJSON writes v indented, one document per call
func (c *cli) printJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) printResponse(resp *sdk.Response) error {
	if resp == nil {
		return nil
	}
	if resp.Data == nil {
		_, err := fmt.Fprintf(c.out, "%d %s\n", resp.StatusCode, resp.StatusText)
		return err
	}
	return c.printJSON(resp.Data)
}

// parseData decodes a JSON argument, "-" reads it from stdin
func parseData(arg string, stdin io.Reader) (interface{}, error) {
	raw := []byte(arg)
	if arg == "-" {
		var err error
		if raw, err = io.ReadAll(stdin); err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	var data interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("invalid JSON data: %w", err)
	}
	return data, nil
}
