package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zboralski/cryptotap/internal/config"
	"github.com/zboralski/cryptotap/internal/hooks"
	_ "github.com/zboralski/cryptotap/internal/hooks/all"
	glog "github.com/zboralski/cryptotap/internal/log"
	"github.com/zboralski/cryptotap/internal/sink"
	"github.com/zboralski/cryptotap/internal/ui/colorize"
)

var (
	verbose    bool
	cfgPath    string
	channels   []string
	categories []string
	allChans   bool
	noColor    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cryptotap",
		Short: "Observe crypto API calls of a managed runtime",
		Long: `Cryptotap intercepts calls into crypto classes (javax.crypto, java.security and
third-party helpers), lets the original implementation run, and reports keys,
IVs, inputs and results in text, hex and Base64.

Every diagnostic channel is off until enabled:
  stack, algorithm, key, iv, input, output, rsa, helper

Examples:
  cryptotap demo --all                     # Run the built-in workload with every channel
  cryptotap demo -c key -c output          # Keys and results only
  cryptotap script -c key > agent.js       # Generate the device agent
  cryptotap run com.example.app --all      # Spawn and instrument on a USB device
  cryptotap targets                        # List interception targets`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			glog.Init(verbose)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose debug output")
	pf.StringVar(&cfgPath, "config", "", "YAML config file")
	pf.StringArrayVarP(&channels, "channel", "c", nil, "enable a diagnostic channel (repeatable)")
	pf.StringArrayVar(&categories, "category", nil, "restrict to a target category (repeatable)")
	pf.BoolVar(&allChans, "all", false, "enable every channel")
	pf.BoolVar(&noColor, "no-color", false, "disable colors")

	rootCmd.AddCommand(demoCmd(), scriptCmd(), runCmd(), replayCmd(), targetsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorize.Error(err.Error()))
		os.Exit(1)
	}
}

// loadConfig reads the config file, applies flag overrides and validates.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = config.Load(cfgPath); err != nil {
			return nil, err
		}
	}
	if len(channels) > 0 {
		cfg.Channels = channels
	}
	if len(categories) > 0 {
		cfg.Categories = categories
	}
	if noColor {
		cfg.Sink.Color = config.ColorNever
	}
	if err := multierr.Append(cfg.Validate(), cfg.CheckCategories(hooks.DefaultCatalog)); err != nil {
		return nil, err
	}

	switch cfg.Sink.Color {
	case config.ColorAlways:
		colorize.SetMode(colorize.ModeAlways)
	case config.ColorNever:
		colorize.SetMode(colorize.ModeNever)
	}
	return cfg, nil
}

func channelSet(cfg *config.Config) hooks.Channels {
	if allChans {
		return hooks.AllChannels()
	}
	return cfg.ChannelSet()
}

// jsonLogger writes captures as JSON lines to stdout, independent of the
// diagnostic logger's level.
func jsonLogger() *glog.Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.Lock(os.Stdout), zapcore.InfoLevel)
	return &glog.Logger{Logger: zap.New(core)}
}

// openSink builds the capture output: the terminal writer or JSON log
// lines, fanned out to extra, behind the redactor when configured.
func openSink(cfg *config.Config, extra ...hooks.Sink) (hooks.Sink, func(), error) {
	var out hooks.Sink
	closeFn := func() {}

	switch cfg.Sink.Format {
	case config.FormatJSON:
		l := jsonLogger()
		out = sink.NewLogSink(l)
		closeFn = func() { _ = l.Sync() }
	default:
		w := sink.NewWriter(os.Stdout,
			sink.WithBuffer(cfg.Sink.Buffer),
			sink.WithFlushInterval(time.Duration(cfg.Sink.Flush)),
			sink.WithFormat(colorize.Line),
		)
		out = w
		closeFn = func() {
			w.Close()
			if n := w.Dropped(); n > 0 {
				glog.Get().Warn("output lines dropped", zap.Int64("count", n))
			}
		}
	}

	if len(extra) > 0 {
		out = append(sink.Multi{out}, extra...)
	}

	if cfg.Redact.Enabled() {
		r, err := sink.NewRedactor(cfg.Redact.Patterns, cfg.Redact.Labels)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		out = r.Wrap(out)
	}
	return out, closeFn, nil
}
