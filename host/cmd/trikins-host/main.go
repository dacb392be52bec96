package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"trikins/hal"
	"trikins/host/serial"
	"trikins/host/tuning"
	"trikins/logging"
	"trikins/standalone"
	"trikins/standalone/config"
	"trikins/standalone/kinematics"
	"trikins/telemetry"
)

const (
	// Flags.
	flagConfig      = "config"
	flagLogLevel    = "log-level"
	flagDevice      = "device"
	flagMetricsPort = "metrics-port"
	flagEcho        = "echo"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "trikins-host",
		Usage: "three-anchor trilateration kinematics tools",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "path to YAML configuration",
				EnvVars: []string{"TRIKINS_CONFIG"},
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "log level (debug, info, warn, error); overrides the config file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:            "forward",
				Usage:           "convert actuator lengths to a position",
				ArgsUsage:       "R1 R2 R3",
				SkipFlagParsing: true,
				Action:          queryAction("forward"),
			},
			{
				Name:            "inverse",
				Usage:           "convert a position to actuator lengths",
				ArgsUsage:       "X Y [Z A B C U V W]",
				SkipFlagParsing: true,
				Action:          queryAction("inverse"),
			},
			{
				Name:            "home",
				Usage:           "print the position of the configured home joints",
				SkipFlagParsing: true,
				Action:          queryAction("home"),
			},
			{
				Name:   "params",
				Usage:  "list tunable parameters",
				Action: queryAction("show"),
			},
			{
				Name:      "run",
				Usage:     "stream a G-code file and print joint targets for each move",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: flagEcho, Usage: "also print interpreter responses"},
				},
				Action: runAction,
			},
			{
				Name:  "serve",
				Usage: "answer tuning requests on a serial link",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagDevice, Usage: "serial device, overrides serial.device"},
					&cli.IntFlag{Name: flagMetricsPort, Usage: "Prometheus port, overrides metrics.port (0 disables)"},
				},
				Action: serveAction,
			},
			{
				Name:  "config",
				Usage: "print the effective configuration",
				Action: func(c *cli.Context) error {
					cfg, err := config.LoadConfig(c.String(flagConfig))
					if err != nil {
						return err
					}
					out, err := config.Dump(cfg)
					if err != nil {
						return err
					}
					_, err = c.App.Writer.Write(out)
					return err
				},
			},
		},
	}
}

// env is the loaded kinematics component with its collaborators
type env struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	manager  *standalone.Manager
	server   *tuning.Server
}

func setup(c *cli.Context, sink jointSink) (*env, error) {
	cfg, err := config.LoadConfig(c.String(flagConfig))
	if err != nil {
		return nil, err
	}
	if lvl := c.String(flagLogLevel); lvl != "" {
		cfg.Log.Level = lvl
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	metrics, err := telemetry.NewMetrics(registry)
	if err != nil {
		return nil, err
	}

	mgr := standalone.NewManager(cfg, hal.New(logger), sink, logger).
		WithInstrument(func(k kinematics.Kinematics) kinematics.Kinematics {
			return telemetry.Instrument(k, metrics)
		})
	if err := mgr.Initialize(); err != nil {
		return nil, err
	}

	anchors := mgr.Module().Anchors()
	logger.Debug("anchors applied",
		zap.Stringer("anchor1", anchors.Anchor(0)),
		zap.Stringer("anchor2", anchors.Anchor(1)),
		zap.Stringer("anchor3", anchors.Anchor(2)))

	return &env{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		manager:  mgr,
		server:   tuning.NewServer(mgr.HAL(), mgr.Kinematics(), cfg.HomeJoints(), logger),
	}, nil
}

func (e *env) close() error {
	err := e.manager.Close()
	_ = e.logger.Sync()
	return err
}

// queryAction runs one tuning request built from the command line
func queryAction(request string) cli.ActionFunc {
	return func(c *cli.Context) (err error) {
		e, err := setup(c, jointSink{w: c.App.Writer})
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, e.close()) }()

		line := strings.Join(append([]string{request}, c.Args().Slice()...), " ")
		reply, err := e.server.Handle(line)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.App.Writer, reply)
		return err
	}
}

func runAction(c *cli.Context) (err error) {
	if c.NArg() != 1 {
		return cli.Exit("run requires exactly one G-code file", 2)
	}
	f, err := os.Open(c.Args().First())
	if err != nil {
		return err
	}
	defer f.Close()

	e, err := setup(c, jointSink{w: c.App.Writer})
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, e.close()) }()

	var responses io.Writer = io.Discard
	if c.Bool(flagEcho) {
		responses = c.App.Writer
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return e.manager.Run(ctx, f, responses)
}

func serveAction(c *cli.Context) (err error) {
	e, err := setup(c, jointSink{w: io.Discard})
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, e.close()) }()

	portCfg := serial.DefaultConfig(e.cfg.Serial.Device)
	portCfg.Baud = e.cfg.Serial.Baud
	portCfg.ReadTimeout = e.cfg.Serial.ReadTimeout
	if dev := c.String(flagDevice); dev != "" {
		portCfg.Device = dev
	}
	metricsPort := e.cfg.Metrics.Port
	if c.IsSet(flagMetricsPort) {
		metricsPort = c.Int(flagMetricsPort)
	}

	port, err := serial.Open(portCfg)
	if err != nil {
		return err
	}
	defer port.Close()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if metricsPort > 0 {
		go func() {
			if err := telemetry.Expose(ctx, metricsPort, e.registry); err != nil {
				e.logger.Error("metrics endpoint failed", zap.Error(err))
			}
		}()
	}

	e.logger.Info("serving tuning requests", zap.String("device", portCfg.Device), zap.Int("metrics_port", metricsPort))
	for {
		err := e.server.Serve(ctx, serial.Session(ctx, port))
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			e.logger.Info("shutting down")
			return nil
		}
		if err != nil {
			return err
		}
		// Client ended its session with quit; wait for the next one.
	}
}

// jointSink prints the joint targets of each move
type jointSink struct {
	w io.Writer
}

func (s jointSink) Emit(joints *kinematics.Joints, _ *kinematics.Pose) error {
	_, err := fmt.Fprintln(s.w, tuning.FormatJoints(*joints))
	return err
}
