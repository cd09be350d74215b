package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"inamqtt-go/drivers/ina2xx"
	"inamqtt-go/platform"
	"inamqtt-go/services/bridge"
	"inamqtt-go/services/config"
	"inamqtt-go/services/monitor"
)

// openBus is swapped in tests.
var openBus = platform.OpenI2C

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ina-mqtt:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ina-mqtt",
		Short: "INA219/INA226 to MQTT bridge",
		Long: `ina-mqtt reads an INA219 or INA226 current monitor over I2C and answers
requests on an MQTT topic with a JSON reading. Messages on ina/state are
answered with {"status":"alive"}.

Settings come from built-in defaults, then the config file (key=value),
then INA_* environment variables, then flags.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd)
		},
	}
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(parent context.Context, cmd *cobra.Command) error {
	fs := cmd.Flags()
	out := cmd.OutOrStdout()

	// Scan only needs the bus, so a broken config file cannot block it.
	if scan, _ := fs.GetBool(config.FlagScan); scan {
		name, _ := fs.GetString(config.FlagBus)
		return runScan(out, name)
	}

	s, err := config.Load(fs)
	if err != nil {
		return err
	}

	logger, err := newLogger(s.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if show, _ := fs.GetBool(config.FlagShowConfig); show {
		b, err := s.YAML()
		if err != nil {
			return err
		}
		_, err = out.Write(b)
		return err
	}

	if err := s.Validate(); err != nil {
		return err
	}

	bus, err := openBus(s.I2CBus)
	if err != nil {
		return err
	}
	defer bus.Close()

	if s.ConfigFile != "" {
		logger.Info("config loaded", zap.String("file", s.ConfigFile))
	}

	cfg := ina2xx.DefaultConfig()
	cfg.Address, cfg.Model = s.I2CAddress, s.DeviceModel()
	dev, err := ina2xx.NewAuto(bus, cfg)
	if err != nil {
		logger.Warn("model detection failed, assuming INA226", zap.Error(err))
	}
	if err := dev.Calibrate(s.ShuntOhms, s.MaxCurrentA); err != nil {
		return err
	}
	cal, _ := dev.Calibration()
	logger.Info("sensor calibrated",
		zap.Stringer("model", dev.Model()),
		zap.Uint16("addr", dev.Address()),
		zap.Uint16("cal", cal.Register),
		zap.Float64("current_lsb", cal.CurrentLSB),
		zap.Float64("power_lsb", cal.PowerLSB))

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	mon := monitor.New(dev, out, s.PollInterval(), logger.Named("monitor"))
	br := bridge.New(bridge.Config{
		Transport: bridge.TransportConfig{
			Type: "mqtt",
			MQTT: &bridge.MQTTConfig{Broker: s.Broker, ClientID: s.ClientID},
		},
		TopicGet:   s.TopicGet,
		TopicState: config.TopicState,
		TopicReply: s.TopicReply,
	}, dev, logger.Named("bridge"))
	if s.Interactive {
		br.WithPoller(mon)
	}

	if err := br.Connect(ctx); err != nil {
		logger.Warn("broker unavailable, falling back to interactive polling",
			zap.String("broker", s.Broker), zap.Error(err))
		mon.Run(ctx)
		return nil
	}
	err = br.Run(ctx)
	logger.Info("shutdown")
	return err
}

func runScan(out io.Writer, name string) error {
	bus, err := openBus(name)
	if err != nil {
		return err
	}
	defer bus.Close()
	printScan(out, name, ina2xx.Scan(bus))
	return nil
}

func printScan(w io.Writer, bus string, found []ina2xx.ScanResult) {
	fmt.Fprintf(w, "Scanning %s (0x%02X-0x%02X)\n", bus, ina2xx.ScanFirst, ina2xx.ScanLast)
	for _, r := range found {
		fmt.Fprintf(w, "  0x%02X  id=0x%04X  %s\n", r.Address, r.ID, r.Kind)
	}
	fmt.Fprintf(w, "%d device(s) found\n", len(found))
}
