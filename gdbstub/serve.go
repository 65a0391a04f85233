package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"gni.dev/gdbstub/internal/config"
	"gni.dev/gdbstub/internal/logging"
	"gni.dev/gdbstub/internal/server"
	"gni.dev/gdbstub/internal/sim"
	"gni.dev/gdbstub/internal/target"
)

const (
	configFlag   = "config"
	listenFlag   = "listen"
	networkFlag  = "network"
	programFlag  = "program"
	threadsFlag  = "threads"
	hostRootFlag = "host-root"
	onceFlag     = "once"
	stdioFlag    = "stdio"
	logLevelFlag = "log-level"
)

type serveOptions struct {
	configPath string
	stdio      bool
	once       bool
}

func newServeCommand() *cobra.Command {
	var opts serveOptions
	cfg := config.Default()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulator to GDB clients",
		Long: `Listens for GDB clients and gives each one a freshly loaded simulator.
With --stdio a single session runs over stdin and stdout, for use with
"target remote | gdbstub serve --stdio".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.configPath != "" {
				loaded, err := config.Load(opts.configPath)
				if err != nil {
					return err
				}
				overrideFlags(cmd, loaded, cfg)
				cfg = loaded
			}
			if opts.once {
				cfg.MaxSessions = 1
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, opts.stdio)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, configFlag, "c", "", "YAML configuration file")
	cmd.Flags().StringVarP(&cfg.Listen, listenFlag, "l", cfg.Listen, "address to listen on")
	cmd.Flags().StringVar(&cfg.Network, networkFlag, cfg.Network, "tcp or unix")
	cmd.Flags().StringVarP(&cfg.Sim.Program, programFlag, "p", "", "ELF program to load instead of the built-in one")
	cmd.Flags().IntVarP(&cfg.Sim.Threads, threadsFlag, "t", cfg.Sim.Threads, "number of simulated threads")
	cmd.Flags().StringVar(&cfg.Sim.HostRoot, hostRootFlag, "", "directory exposed to vFile host I/O")
	cmd.Flags().StringVar(&cfg.LogLevel, logLevelFlag, cfg.LogLevel, "log level")
	cmd.Flags().BoolVar(&opts.once, onceFlag, false, "exit after the first session")
	cmd.Flags().BoolVar(&opts.stdio, stdioFlag, false, "serve one session over stdin and stdout")
	return cmd
}

// overrideFlags copies explicitly set flags from flags over the loaded file.
func overrideFlags(cmd *cobra.Command, dst, flags *config.Config) {
	set := cmd.Flags().Changed
	if set(listenFlag) {
		dst.Listen = flags.Listen
	}
	if set(networkFlag) {
		dst.Network = flags.Network
	}
	if set(programFlag) {
		dst.Sim.Program = flags.Sim.Program
	}
	if set(threadsFlag) {
		dst.Sim.Threads = flags.Sim.Threads
	}
	if set(hostRootFlag) {
		dst.Sim.HostRoot = flags.Sim.HostRoot
	}
	if set(logLevelFlag) {
		dst.LogLevel = flags.LogLevel
	}
}

func targetFactory(cfg config.Sim, log zerolog.Logger) (server.TargetFactory, error) {
	simCfg := sim.Config{
		RAMSize:   cfg.RAMSize,
		Threads:   cfg.Threads,
		HostRoot:  cfg.HostRoot,
		LoadBias:  cfg.LoadBias,
		StepDelay: cfg.StepDelay,
	}
	if cfg.Program != "" {
		img, err := sim.LoadELF(cfg.Program)
		if err != nil {
			return nil, err
		}
		simCfg.Image = img
		simCfg.ExecPath = cfg.Program
	}
	return func() (target.Target, error) {
		return sim.New(simCfg, sim.WithLogger(log))
	}, nil
}

type stdio struct {
	io.Reader
	io.Writer
}

func serve(ctx context.Context, cfg *config.Config, overStdio bool) error {
	log, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}
	targets, err := targetFactory(cfg.Sim, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if overStdio {
		t, err := targets()
		if err != nil {
			return err
		}
		if c, ok := t.(io.Closer); ok {
			defer c.Close()
		}
		sess := server.NewSession(t, stdio{os.Stdin, os.Stdout},
			server.WithSessionLogger(log),
			server.WithSessionPacketSize(cfg.PacketSize))
		reason, err := sess.Serve(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}
		log.Info().Stringer("reason", reason).Msg("session ended")
		return nil
	}

	srv, err := server.Listen(cfg.Network, cfg.Listen, targets,
		server.WithLogger(log),
		server.WithPacketSize(cfg.PacketSize),
		server.WithMaxSessions(cfg.MaxSessions))
	if err != nil {
		return err
	}
	log.Info().Stringer("addr", srv.Addr()).Msg("listening")
	return srv.Serve(ctx)
}
