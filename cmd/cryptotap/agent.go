package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zboralski/cryptotap/internal/agent"
	"github.com/zboralski/cryptotap/internal/config"
	"github.com/zboralski/cryptotap/internal/hooks"
	glog "github.com/zboralski/cryptotap/internal/log"
	"github.com/zboralski/cryptotap/internal/ui/colorize"
)

var (
	scriptOut string
	device    string
	attach    bool
	children  bool
)

func scriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Print the device agent for the configured targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			src, _, err := buildAgent(cfg)
			if err != nil {
				return err
			}
			if scriptOut != "" {
				return os.WriteFile(scriptOut, []byte(src), 0o644)
			}
			fmt.Print(colorize.Script(src))
			return nil
		},
	}
	cmd.Flags().StringVarP(&scriptOut, "output", "o", "", "write the agent to a file")
	return cmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [package]",
		Short: "Instrument a process on a device (requires a frida build)",
		Long: `Run spawns the package on the device (or attaches with --attach), loads the
generated agent and prints captures until interrupted or the process exits.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAgent,
	}
	cmd.Flags().StringVarP(&device, "device", "D", "", `device: "usb", "local" or an id`)
	cmd.Flags().BoolVar(&attach, "attach", false, "attach to a running process instead of spawning")
	cmd.Flags().BoolVar(&children, "children", false, "also instrument child processes of the package")
	return cmd
}

func replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay [file]",
		Short: "Render recorded agent messages, one JSON message per line",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runReplay,
	}
}

// buildAgent renders the agent for the configured catalog.
func buildAgent(cfg *config.Config) (string, *hooks.Catalog, error) {
	cat := cfg.Catalog(hooks.DefaultCatalog)
	chs := channelSet(cfg)

	names := make([]string, 0)
	for _, ch := range chs.List() {
		names = append(names, string(ch))
	}
	header := fmt.Sprintf("cryptotap agent\ncategories: %s\nchannels: %s",
		strings.Join(cat.Categories(), ", "), strings.Join(names, ", "))

	src, err := agent.Generate(cat.Definitions(), agent.Options{
		Stack:  chs.Enabled(hooks.ChanStack),
		Header: header,
	})
	return src, cat, err
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	target := agent.Target{
		Device:   cfg.Agent.Device,
		Name:     cfg.Agent.Target,
		Spawn:    cfg.Agent.Spawn && !attach,
		Children: cfg.Agent.Children || children,
	}
	if len(args) > 0 {
		target.Name = args[0]
	}
	if device != "" {
		target.Device = device
	}
	if target.Name == "" {
		return errors.New("no target package (argument or agent.target in config)")
	}

	src, cat, err := buildAgent(cfg)
	if err != nil {
		return err
	}
	out, closeOut, err := openSink(cfg)
	if err != nil {
		return err
	}
	defer closeOut()

	d := agent.NewDispatcher(cat, out, agent.WithChannels(channelSet(cfg)))
	log := glog.Get()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = agent.Run(ctx, target, src, func(data []byte) {
		if err := d.Handle(data); err != nil {
			var se *agent.ScriptError
			if errors.As(err, &se) {
				log.Error("agent script", zap.String("error", se.Description), zap.String("stack", se.Stack))
				return
			}
			log.Warn("agent message", zap.Error(err))
		}
	})
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Info("done", zap.Int64("captures", d.Received()), zap.Int64("faults", d.Faults()))
	return err
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	out, closeOut, err := openSink(cfg)
	if err != nil {
		return err
	}
	defer closeOut()

	d := agent.NewDispatcher(cfg.Catalog(hooks.DefaultCatalog), out, agent.WithChannels(channelSet(cfg)))
	log := glog.Get()

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		data := sc.Bytes()
		if len(strings.TrimSpace(string(data))) == 0 {
			continue
		}
		if err := d.Handle(data); err != nil {
			log.Warn("replay", zap.Int("line", line), zap.Error(err))
		}
	}
	return sc.Err()
}
