package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/willbeason/deepzoom/pkg/cli"
	"github.com/willbeason/deepzoom/pkg/config"
	"github.com/willbeason/deepzoom/pkg/logging"
	"github.com/willbeason/deepzoom/pkg/render"
	"github.com/willbeason/deepzoom/pkg/session"
)

// progressInterval is the minimum time between two progress logs.
const progressInterval = time.Second

var flags *cli.Flags

var (
	output      string
	supersample uint32
)

func mainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Compute an escape-time fractal and write it as PNG",
		Args:  cobra.ExactArgs(0),
		RunE:  runCmd,
	}

	flags = cli.AddFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "PNG file to write")
	cmd.Flags().Uint32Var(&supersample, "supersample", 0, "cells per pixel in each direction")
	cmd.AddCommand(cli.PresetsCmd())

	return cmd
}

func gradient(cfg *config.Config) (*render.Gradient, error) {
	scheme, err := render.SchemeByName(cfg.Color.Gradient)
	if err != nil {
		return nil, err
	}
	assign, err := render.ParseAssignment(cfg.Color.Assignment)
	if err != nil {
		return nil, err
	}
	return render.NewGradient(scheme, cfg.Color.Stripes, assign), nil
}

func runCmd(cmd *cobra.Command, _ []string) error {
	// At this point usage information has already been printed if obviously incorrect.
	cmd.SilenceUsage = true

	cfg, err := flags.Load(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = output
	}
	if cmd.Flags().Changed("supersample") && supersample > 0 {
		cfg.Supersample = supersample
	}
	if err := cli.SetupLogging(cfg.LogLevel); err != nil {
		return err
	}
	log := logging.Logger()

	colors, err := gradient(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	s, err := session.New(cfg, cfg.Width*cfg.Supersample, cfg.Height*cfg.Supersample)
	if err != nil {
		return err
	}
	defer s.Close()

	log.Info("rendering",
		"area", s.Area.Area(),
		"cells", fmt.Sprintf("%dx%d", s.Storage.Grid.Width(), s.Storage.Grid.Height()),
		"output", cfg.Output)

	start := time.Now()
	if err := s.Start(); err != nil {
		return err
	}
	if err := poll(ctx, s, cfg.Poll.Duration); err != nil {
		return err
	}
	s.Engine.Wait()

	log.Info("computation done",
		"state", s.Mirror.SeenState(),
		"computed", fmt.Sprintf("%.1f%%", 100*s.Mirror.ComputedRatio()),
		"elapsed", time.Since(start).Round(time.Millisecond))

	img := render.Image(s.Mirror.Stage, s.MaxIteration(), colors)
	if cfg.Supersample > 1 {
		img = render.Downscale(img, int(cfg.Supersample))
	}
	if err := render.WritePNG(cfg.Output, img); err != nil {
		return err
	}
	log.Info("wrote image", "path", cfg.Output, "size", img.Bounds().Size())

	return nil
}

// poll keeps the mirror current until the computation has ended. Cancelling
// ctx stops the computation; what was computed so far is kept.
func poll(ctx context.Context, s *session.Session, interval time.Duration) error {
	log := logging.Logger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastLog := time.Now()
	for s.Mirror.Connected() {
		select {
		case <-ctx.Done():
			log.Warn("interrupted, stopping computation")
			// The mirror is replaced by a copy of everything computed so far.
			return s.Stop()
		case <-ticker.C:
			s.ProcessEvents()
			if time.Since(lastLog) >= progressInterval {
				lastLog = time.Now()
				log.Info("progress", "computed", fmt.Sprintf("%.1f%%", 100*s.Mirror.ComputedRatio()))
			}
		}
	}
	return nil
}

func main() {
	ctx := context.Background()

	err := mainCmd().ExecuteContext(ctx)
	if err != nil {
		// At this point the error has already been printed; no need to print again.
		os.Exit(1)
	}
}
