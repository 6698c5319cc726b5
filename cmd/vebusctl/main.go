// Vebusctl monitors and controls a Victron VE.Bus inverter/charger.
//
// It polls the device status and prints every frame the device sends, or
// sets the switch state and retries until the device acknowledges.
//
// Usage:
//
//	vebusctl monitor DEVICE
//	vebusctl control DEVICE {on|off|charger_only|inverter_only} [--current-limit A] [--monitor]
//
// DEVICE is a URL: sim:// for the built-in simulator or
// mqtt://[user:pass@]host[:port]/base/topic for a VE.Bus MQTT gateway.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/j9brown/victron-vebus/internal/adapter/session"
	"github.com/j9brown/victron-vebus/internal/config"
	"github.com/j9brown/victron-vebus/internal/core/actor"
	"github.com/j9brown/victron-vebus/internal/core/domain"
	"github.com/j9brown/victron-vebus/internal/display"
	"github.com/j9brown/victron-vebus/internal/server"
	"github.com/j9brown/victron-vebus/internal/util/actorutil"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/carlmjohnson/versioninfo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	EXIT_FAILURE     = 1
	EXIT_INTERRUPTED = 130
)

// Global flags
var (
	configFile string
	logLevel   string
	format     string
	delay      int
	httpPort   uint
)

func main() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		os.Exit(EXIT_INTERRUPTED)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(EXIT_FAILURE)
}

var rootCmd = &cobra.Command{
	Use:   "vebusctl",
	Short: "Victron VE.Bus inverter/charger controller",
	Long: `Monitor and control a Victron VE.Bus inverter/charger.

Every setting can also be given in a yaml file (--config or CONFIG_FILE)
or in the environment, prefixed with VEBUS_ (e.g. VEBUS_DELAY_MILLIS).`,
	Version:       versioninfo.Short(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (yaml)")
	flags.StringVar(&logLevel, "log-level", "warn", "Log level (trace, debug, info, warn, error, fatal)")
	flags.StringVar(&format, "format", config.FORMAT_TEXT, "Frame output format (text, json, yaml)")
	flags.IntVar(&delay, "delay", 2000, "Delay after each request in milliseconds")
	flags.UintVar(&httpPort, "http-port", 0, "Serve /healthcheck and /state on this port (0 disables)")

	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("format", flags.Lookup("format"))
	viper.BindPFlag("delay_millis", flags.Lookup("delay"))
	viper.BindPFlag("http_port", flags.Lookup("http-port"))

	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(controlCmd)
	rootCmd.AddCommand(versionCmd)
}

func newLogger(cfg *config.Config) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	zapCfg.OutputPaths = []string{"stderr"}
	return zap.Must(zapCfg.Build())
}

// runCommand runs command until it completes or the process is interrupted.
func runCommand(cmd *cobra.Command, command domain.Command, announce string) error {

	cfg, err := config.Load(viper.GetViper(), configFile)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	defer logger.Sync()
	logger.Debug("using config", zap.Any("config", cfg.Redacted()))

	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()

	printer := display.NewPrinter(os.Stdout, cfg.Format, logger)
	defer printer.Close()
	eventStream := eventstream.NewEventStream()
	sub := printer.Subscribe(eventStream)
	defer eventStream.Unsubscribe(sub)

	if announce != "" {
		printer.Message(announce)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result := make(chan error, 1)
	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewControllerActor(*cfg, command, session.NewOpener(*cfg, logger), eventStream, result, logger)
	})
	pid, err := as.Root.SpawnNamed(props, domain.ACTOR_ID_CONTROLLER)
	if err != nil {
		return fmt.Errorf("cannot start controller: %w", err)
	}

	if cfg.HttpPort > 0 {
		apiServer := server.NewServer(*cfg, as.Root, pid)
		go func() {
			if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := apiServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("http server forced to shutdown", zap.Error(err))
			}
		}()
	}

	select {
	case err = <-result:
	case <-ctx.Done():
		logger.Info("shutting down")
		err = context.Canceled
	}
	// stopping closes the session if it is still open
	as.Root.StopFuture(pid).Wait()
	return err
}
