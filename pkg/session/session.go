// Package session drives one view of the plane: the computation running on
// it, the mirror reading it, and the moves from one view to the next.
package session

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/willbeason/deepzoom/pkg/config"
	"github.com/willbeason/deepzoom/pkg/engine"
	"github.com/willbeason/deepzoom/pkg/logging"
	"github.com/willbeason/deepzoom/pkg/mirror"
	"github.com/willbeason/deepzoom/pkg/precision"
	"github.com/willbeason/deepzoom/pkg/storage"
	"github.com/willbeason/deepzoom/pkg/transforms"
)

// Session is owned by a single goroutine.
type Session struct {
	Area    *precision.RasteredArea
	Storage *storage.Storage
	Engine  *engine.Engine
	Mirror  *mirror.Mirror

	engineOpts []engine.Option
	mirrorOpts []mirror.Option
	// active is set between Start and Stop; new views start computing at once.
	active bool
	log    *slog.Logger
}

// New prepares a width*height view of the configured area. Nothing runs
// until Start.
func New(cfg *config.Config, width, height uint32) (*Session, error) {
	algorithm, err := engine.ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	escaper, err := transforms.New(cfg.Fractal.Kind, cfg.Fractal.Complex(), cfg.Fractal.Exponent)
	if err != nil {
		return nil, err
	}
	area, err := cfg.Area.Area()
	if err != nil {
		return nil, err
	}

	s := &Session{
		engineOpts: []engine.Option{
			engine.WithAlgorithm(algorithm),
			engine.WithEscaper(escaper),
			engine.WithWorkers(cfg.Workers),
		},
		mirrorOpts: []mirror.Option{
			mirror.WithBatching(cfg.Batch.Capacity, cfg.Batch.Interval.Duration),
		},
		log: logging.Logger(),
	}
	if err := s.view(area, width, height, cfg.Area.MaxIteration); err != nil {
		return nil, err
	}
	return s, nil
}

// view replaces the current run by a fresh one on area.
func (s *Session) view(area *precision.Area, width, height, maxIteration uint32) error {
	fitted, err := area.Fitted(width, height)
	if err != nil {
		return err
	}
	raster := precision.NewRasteredArea(fitted, width, height)
	properties, err := raster.Properties(maxIteration)
	if err != nil {
		return fmt.Errorf("area beyond float64 range: %w", err)
	}

	return s.replace(raster, storage.New(properties))
}

func (s *Session) replace(area *precision.RasteredArea, st *storage.Storage) error {
	if s.Engine != nil {
		s.Engine.Stop()
	}

	s.Area = area
	s.Storage = st
	s.Engine = engine.New(st, s.engineOpts...)
	s.log.Debug("view changed", "run", st.ID, "area", area.Area())

	if s.active {
		s.Engine.Start()
	}
	return s.connect()
}

// connect replaces the mirror by a new one on the current storage. A storage
// that is not being computed gives a disconnected copy.
func (s *Session) connect() error {
	if s.Mirror != nil {
		s.Mirror.Close()
	}
	m, err := mirror.New(s.Storage, s.mirrorOpts...)
	if err != nil {
		return err
	}
	s.Mirror = m
	return nil
}

// Start runs the computation of the current view.
func (s *Session) Start() error {
	s.active = true
	s.Engine.Start()
	if s.Mirror.Connected() {
		return nil
	}
	return s.connect()
}

// Stop cancels the computation and waits for it. The mirror is replaced by a
// copy of everything computed so far.
func (s *Session) Stop() error {
	s.active = false
	s.Engine.Stop()
	return s.connect()
}

// Close stops the computation and disconnects the mirror.
func (s *Session) Close() {
	s.active = false
	s.Engine.Stop()
	s.Mirror.Close()
}

// ProcessEvents updates the mirror. It reports whether anything changed.
func (s *Session) ProcessEvents() bool {
	return s.Mirror.ProcessEvents()
}

func (s *Session) MaxIteration() uint32 {
	return s.Storage.Properties.MaxIteration
}

// Pan moves the view so that cell p shows what cell p+v shows now. Cells
// still in view are kept.
func (s *Session) Pan(v image.Point) error {
	return s.replace(s.Area.ShiftByPixels(v), s.Storage.ShiftedByPixels(v))
}

// Zoom divides the extent of the view by factor around cell p.
func (s *Session) Zoom(p image.Point, factor float64) error {
	zoomed, err := s.Area.ZoomAtPixelFloat64(p, factor)
	if err != nil {
		return err
	}
	width, height := zoomed.Size()
	return s.view(zoomed.Area(), width, height, s.MaxIteration())
}

// SetMaxIteration recomputes the view with a new iteration limit, keeping
// every cell that stays valid.
func (s *Session) SetMaxIteration(maxIteration uint32) error {
	if maxIteration == 0 || maxIteration == s.MaxIteration() {
		return nil
	}
	return s.replace(s.Area, s.Storage.MaxIterationChanged(maxIteration))
}

// Resize starts over on the same area with a new raster.
func (s *Session) Resize(width, height uint32) error {
	w, h := s.Area.Size()
	if w == width && h == height {
		return nil
	}
	return s.view(s.Area.Area(), width, height, s.MaxIteration())
}
