package main

import (
	"io"

	"github.com/spf13/cobra"

	"tamil-assistant/internal/app"
	"tamil-assistant/internal/config"
	"tamil-assistant/internal/logging"
)

// session holds what PersistentPreRunE wires for the running command.
type session struct {
	cfgPath string
	verbose bool
	opts    app.Options

	app       *app.App
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(app.Options{})
}

func newRootCmdWith(opts app.Options) *cobra.Command {
	s := &session{opts: opts}
	root := &cobra.Command{
		Use:   "tamil-assistant",
		Short: "Tamil document assistant",
		Long: `Answers questions about a folder of Tamil documents.
Documents are indexed into a local vector index and queried by text or voice.`,
		SilenceUsage:       true,
		PersistentPreRunE:  s.open,
		PersistentPostRunE: s.close,
	}
	root.PersistentFlags().StringVar(&s.cfgPath, "config", "", "path to config file (default: ./config.yaml or ~/.config/tamil-assistant/config.yaml)")
	root.PersistentFlags().BoolVarP(&s.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newBuildCmd(s),
		newAskCmd(s),
		newSearchCmd(s),
		newChatCmd(s),
		newListenCmd(s),
		newStatsCmd(s),
		newClearCmd(s),
		newDocsCmd(s),
		newSpeakCmd(s),
	)
	return root
}

func (s *session) open(cmd *cobra.Command, _ []string) error {
	var (
		cfg *config.AppConfig
		err error
	)
	if s.cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(s.cfgPath)
	}
	if err != nil {
		return err
	}
	level := cfg.Logging.Level
	if s.verbose {
		level = "debug"
	}
	log, closer := logging.New(logging.Config{Level: level, File: cfg.Logging.File, Console: cmd.ErrOrStderr()})
	s.logCloser = closer

	a, err := app.New(cfg, log, s.opts)
	if err != nil {
		return err
	}
	s.app = a
	return nil
}

func (s *session) close(*cobra.Command, []string) error {
	var err error
	if s.app != nil {
		err = s.app.Close()
	}
	if s.logCloser != nil {
		_ = s.logCloser.Close()
	}
	return err
}
