package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/Avicted/farmchat/internal/audio"
	"github.com/Avicted/farmchat/internal/clock"
	"github.com/Avicted/farmchat/internal/config"
	"github.com/Avicted/farmchat/internal/logging"
	"github.com/Avicted/farmchat/internal/ptt"
	"github.com/Avicted/farmchat/internal/securelog"
)

type programRunner interface {
	Run() (tea.Model, error)
}

type programFactory func(tea.Model, ...tea.ProgramOption) programRunner

func run(args []string, stdin io.Reader, stdout, stderr io.Writer, newProgram programFactory) error {
	fs := flag.NewFlagSet("farmchat", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config.toml (default: $FARMCHAT_CONFIG or the user config dir)")
	logLevel := fs.String("log-level", "", "log level: trace, debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log, closer, err := logging.Open(cfg.LogFile, level)
	if err != nil {
		return err
	}
	defer closer.Close()
	securelog.SetLogger(log)
	log.Info().Str("level", level.String()).Bool("coalesce_replies", cfg.Reply.Coalesce).Msg("farmchat starting")

	a, err := newApp(cfg, log, clock.Real(), audio.NewRecorder(cfg.DataDir, log), audio.NewPlayer(log))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.CPUStats {
		go logCPUUsage(ctx, log, cpuStatsInterval)
	}
	if cfg.PTTHotkey != "" {
		startPTT(ctx, a, cfg.PTTHotkey, log)
	}

	if newProgram == nil {
		newProgram = func(model tea.Model, options ...tea.ProgramOption) programRunner {
			return tea.NewProgram(model, options...)
		}
	}

	p := newProgram(newRootModel(a), tea.WithAltScreen(), tea.WithInput(stdin), tea.WithOutput(stdout))
	_, err = p.Run()
	a.bus.close()
	return err
}

// startPTT forwards hotkey transitions to the open chat. A missing hotkey
// backend is logged, not fatal: the keyboard shortcuts still work.
func startPTT(ctx context.Context, a *app, binding string, log zerolog.Logger) {
	ctrl, err := ptt.New(binding, log)
	if err != nil {
		securelog.Error("ptt setup", err)
		return
	}
	go func() {
		err := ctrl.Run(ctx,
			func() { a.bus.send(pttMsg{down: true}) },
			func() { a.bus.send(pttMsg{down: false}) },
		)
		if err != nil {
			log.Warn().Err(err).Str("binding", ctrl.Binding()).Msg("push-to-talk stopped")
		}
	}()
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, nil); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
