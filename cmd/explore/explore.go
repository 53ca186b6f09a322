package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/willbeason/deepzoom/pkg/cli"
	"github.com/willbeason/deepzoom/pkg/logging"
	"github.com/willbeason/deepzoom/pkg/render"
	"github.com/willbeason/deepzoom/pkg/session"
)

var flags *cli.Flags

var logFile string

func mainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Pan and zoom through an escape-time fractal in the terminal",
		Args:  cobra.ExactArgs(0),
		RunE:  runCmd,
	}

	flags = cli.AddFlags(cmd)
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file, the terminal is taken")
	cmd.AddCommand(cli.PresetsCmd())

	return cmd
}

func runCmd(cmd *cobra.Command, _ []string) error {
	// At this point usage information has already been printed if obviously incorrect.
	cmd.SilenceUsage = true

	cfg, err := flags.Load(cmd)
	if err != nil {
		return err
	}
	if logFile != "" {
		f, err := os.Create(logFile)
		if err != nil {
			return err
		}
		defer f.Close()

		logger, err := logging.New(cfg.LogLevel, f)
		if err != nil {
			return err
		}
		logging.SetLogger(logger)
	}

	scheme, err := render.SchemeByName(cfg.Color.Gradient)
	if err != nil {
		return err
	}
	assign, err := render.ParseAssignment(cfg.Color.Assignment)
	if err != nil {
		return err
	}

	// The first window size message replaces this raster.
	s, err := session.New(cfg, 80, 44)
	if err != nil {
		return err
	}
	defer s.Close()

	m := newModel(s, render.NewGradient(scheme, cfg.Color.Stripes, assign), cfg.Poll.Duration)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err = p.Run()
	return err
}

func main() {
	ctx := context.Background()

	err := mainCmd().ExecuteContext(ctx)
	if err != nil {
		// At this point the error has already been printed; no need to print again.
		os.Exit(1)
	}
}
