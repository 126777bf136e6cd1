package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rprtr258/fun"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rprtr258/hello-http/internal/config"
	"github.com/rprtr258/hello-http/internal/core"
	"github.com/rprtr258/hello-http/internal/errors"
	"github.com/rprtr258/hello-http/internal/listener"
	"github.com/rprtr258/hello-http/internal/reflector"
)

type flags struct {
	host            string
	port            int
	allow           string
	deny            string
	verbose         bool
	config          string
	readTimeout     time.Duration
	shutdownTimeout time.Duration
}

func addFlags(fs *pflag.FlagSet, f *flags) {
	def := core.DefaultConfig
	fs.StringVarP(&f.host, "host", "h", def.Listen.Host,
		`listen host: 0.0.0.0 listens all IPv4, [::] all IPv6 only, :: all IPv4 and IPv6`)
	fs.IntVarP(&f.port, "port", "p", def.Listen.Port, "listen port, 0 picks a random one")
	fs.StringVarP(&f.allow, "allow", "m", "", "allowed methods, format: <method>[,<method>...]")
	fs.StringVarP(&f.deny, "deny", "d", "", "disallowed methods, format: <method>[,<method>...]")
	fs.BoolVarP(&f.verbose, "verbose", "v", def.Verbose, "enable verbose output")
	fs.StringVarP(&f.config, "config", "c", "", "jsonnet config file, default $"+config.EnvConfig+" or "+config.DefaultPath())
	fs.DurationVar(&f.readTimeout, "read-timeout", def.ReadTimeout, "read deadline for a connection, 0 disables it")
	fs.DurationVar(&f.shutdownTimeout, "shutdown-timeout", def.ShutdownTimeout, "how long to wait for connections in flight on shutdown")
}

// resolveConfig applies defaults, then config file, then flags set explicitly.
func resolveConfig(fsys afero.Fs, fs *pflag.FlagSet, f flags) (core.Config, error) {
	cfg, err := config.Load(fsys, config.Discover(fsys, f.config), core.DefaultConfig)
	if err != nil {
		return fun.Zero[core.Config](), errors.Wrap(err, "load config")
	}

	if fs.Changed("host") {
		cfg.Listen.Host = f.host
	}
	if fs.Changed("port") {
		cfg.Listen.Port = f.port
	}
	if fs.Changed("allow") {
		cfg.Policy.Allowed = core.ParseMethods(fun.Valid(f.allow))
	}
	if fs.Changed("deny") {
		cfg.Policy.Disallowed = core.ParseMethods(fun.Valid(f.deny))
	}
	if fs.Changed("verbose") {
		cfg.Verbose = f.verbose
	}
	if fs.Changed("read-timeout") {
		cfg.ReadTimeout = f.readTimeout
	}
	if fs.Changed("shutdown-timeout") {
		cfg.ShutdownTimeout = f.shutdownTimeout
	}

	if err := cfg.Validate(); err != nil {
		return fun.Zero[core.Config](), err
	}
	return cfg, nil
}

func serve(ctx context.Context, cfg core.Config) error {
	l, err := listener.Listen(ctx, cfg.Listen)
	if err != nil {
		return err
	}
	defer l.Close()

	log.Info().Stringer("methods", cfg.Policy).Msg("method policy")

	h := reflector.New(cfg.Policy,
		reflector.WithReadTimeout(cfg.ReadTimeout),
		reflector.WithMaxHeaderBytes(cfg.MaxHeaderBytes),
	)
	return l.Serve(ctx, h, cfg.ShutdownTimeout)
}

func newApp() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "hello-http",
		Short:         "reflect received http requests back to the client",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(afero.NewOsFs(), cmd.Flags(), f)
			if err != nil {
				return err
			}

			config.SetupLogger(os.Stderr, cfg.Verbose)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}
	addFlags(cmd.Flags(), &f)
	// -h is taken by host, cobra would otherwise add help with it as shorthand
	cmd.Flags().Bool("help", false, "help for hello-http")
	cmd.AddCommand(newCmdVersion())
	return cmd
}

// Run executes command line argv, argv[0] being the program name. Canceling
// ctx stops the server like an interrupt does.
func Run(ctx context.Context, argv []string) error {
	app := newApp()
	app.SetArgs(argv[1:])
	return app.ExecuteContext(ctx)
}
