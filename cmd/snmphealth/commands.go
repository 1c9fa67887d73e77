package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	jsonformat "github.com/vpbank/snmp_health/format/json"
	"github.com/vpbank/snmp_health/pkg/snmphealth/app"
	"github.com/vpbank/snmp_health/pkg/snmphealth/config"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	logFile    string
	database   string
	pretty     bool

	stdout io.Writer
	stderr io.Writer
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "snmphealth",
		Short:         "SNMP device health monitoring",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Settings YAML file (SNMPHEALTH_* env vars override it)")
	pf.StringVar(&opts.logLevel, "log.level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log.fmt", "", "Log format: json, text")
	pf.StringVar(&opts.logFile, "log.file", "", "Write logs to a rotated file instead of stderr")
	pf.StringVar(&opts.database, "database", "", "SQLite database path")
	pf.BoolVar(&opts.pretty, "pretty", false, "Pretty-print JSON output")

	root.AddCommand(
		newServeCommand(opts),
		newCheckCommand(opts),
		newCheckAllCommand(opts),
		newInterfacesCommand(opts),
		newImportCommand(opts),
	)
	return root
}

// ─────────────────────────────────────────────────────────────────────────────
// serve
// ─────────────────────────────────────────────────────────────────────────────

func newServeCommand(opts *globalOptions) *cobra.Command {
	var (
		listen   string
		noSched  bool
		interval int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.setup()
			if err != nil {
				return err
			}
			defer rt.close()

			if listen != "" {
				rt.settings.HTTP.Listen = listen
			}
			if noSched {
				rt.settings.Scheduler.Enabled = false
			}
			if interval > 0 {
				rt.settings.Scheduler.IntervalSeconds = interval
			}

			a := app.New(rt.settings, rt.logger)
			if err := a.Start(cmd.Context()); err != nil {
				a.Close()
				return fmt.Errorf("start: %w", err)
			}
			rt.logger.Info("snmphealth: running, press Ctrl-C to stop")

			select {
			case <-cmd.Context().Done():
				rt.logger.Info("snmphealth: received shutdown signal")
			case <-a.Done():
			}
			a.Stop()
			return a.Err()
		},
	}
	cmd.Flags().StringVar(&listen, "http.listen", "", "HTTP listen address")
	cmd.Flags().BoolVar(&noSched, "no-scheduler", false, "Serve the API without the periodic cycle")
	cmd.Flags().IntVar(&interval, "interval", 0, "Seconds between monitoring cycles")
	return cmd
}

// ─────────────────────────────────────────────────────────────────────────────
// check / check-all / interfaces
// ─────────────────────────────────────────────────────────────────────────────

func newCheckCommand(opts *globalOptions) *cobra.Command {
	var device int64
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check one device and record the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, e *env, a *app.App, f *jsonformat.JSONFormatter) error {
				res, err := a.Service().CheckOne(ctx, device)
				if err != nil {
					return err
				}
				return jsonformat.Write(f, opts.stdout, res)
			})
		},
	}
	cmd.Flags().Int64VarP(&device, "device", "d", 0, "Device id")
	_ = cmd.MarkFlagRequired("device")
	return cmd
}

func newCheckAllCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-all",
		Short: "Check every enabled device and record the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, e *env, a *app.App, f *jsonformat.JSONFormatter) error {
				report, err := a.Service().CheckAll(ctx)
				if werr := jsonformat.Write(f, opts.stdout, report); werr != nil && err == nil {
					err = werr
				}
				return err
			})
		},
	}
}

func newInterfacesCommand(opts *globalOptions) *cobra.Command {
	var device int64
	cmd := &cobra.Command{
		Use:   "interfaces",
		Short: "List the interface status of one device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, e *env, a *app.App, f *jsonformat.JSONFormatter) error {
				report, err := a.Service().ListInterfaces(ctx, device)
				if err != nil {
					return err
				}
				return jsonformat.Write(f, opts.stdout, report)
			})
		},
	}
	cmd.Flags().Int64VarP(&device, "device", "d", 0, "Device id")
	_ = cmd.MarkFlagRequired("device")
	return cmd
}

// ─────────────────────────────────────────────────────────────────────────────
// import
// ─────────────────────────────────────────────────────────────────────────────

func newImportCommand(opts *globalOptions) *cobra.Command {
	var devicesDir, defaultsDir string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create or update device SNMP configs from YAML definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, e *env, a *app.App, f *jsonformat.JSONFormatter) error {
				paths := e.settings.Paths
				if devicesDir != "" {
					paths.Devices = devicesDir
				}
				if defaultsDir != "" {
					paths.Defaults = defaultsDir
				}

				devices, err := config.LoadDevices(paths, e.logger)
				if err != nil {
					return err
				}
				saved, err := a.Import(ctx, devices)
				e.logger.Info("import: devices saved", "saved", saved, "total", len(devices))
				if err != nil {
					return err
				}

				all, err := a.Store().List(ctx)
				if err != nil {
					return err
				}
				for i := range all {
					all[i] = all[i].Redacted()
				}
				return jsonformat.Write(f, opts.stdout, all)
			})
		},
	}
	cmd.Flags().StringVar(&devicesDir, "devices", "", "Override SNMPHEALTH_DEVICES_DIRECTORY_PATH")
	cmd.Flags().StringVar(&defaultsDir, "defaults", "", "Override SNMPHEALTH_DEFAULTS_DIRECTORY_PATH")
	return cmd
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// env is the per-invocation runtime built from flags and settings.
type env struct {
	settings config.Settings
	logger   *slog.Logger
	close    func()
}

// setup loads settings, applies flag overrides and builds the logger.
func (o *globalOptions) setup() (*env, error) {
	s, err := config.LoadSettings(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		s.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		s.Log.Format = o.logFormat
	}
	if o.logFile != "" {
		s.Log.File = o.logFile
	}
	if o.database != "" {
		s.Database.Path = o.database
	}

	logger, closer, err := buildLogger(s.Log, o.stderr)
	if err != nil {
		return nil, err
	}
	return &env{
		settings: s,
		logger:   logger,
		close:    func() { _ = closer.Close() },
	}, nil
}

// withApp runs fn against an opened App and closes it afterwards.
func (o *globalOptions) withApp(ctx context.Context, fn func(context.Context, *env, *app.App, *jsonformat.JSONFormatter) error) error {
	e, err := o.setup()
	if err != nil {
		return err
	}
	defer e.close()

	a := app.New(e.settings, e.logger)
	if err := a.Open(); err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, e, a, jsonformat.New(jsonformat.Config{PrettyPrint: o.pretty}, e.logger))
}
