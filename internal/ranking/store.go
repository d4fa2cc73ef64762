package ranking

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hyperjump/matchfeed/internal/config"
	"github.com/hyperjump/matchfeed/internal/models"
)

// WeightStore holds the active weight set. Readers never block; Reload swaps the set atomically
// and keeps the previous one when the new calibration is invalid.
type WeightStore struct {
	active atomic.Pointer[WeightSet]

	mu              sync.Mutex
	configured      map[string]WeightSet
	configuredName  string
	calibrationPath string
	logger          *zap.Logger
}

// StoreOption configures a WeightStore.
type StoreOption func(*WeightStore)

// WithStoreLogger sets the logger for reload events.
func WithStoreLogger(l *zap.Logger) StoreOption {
	return func(s *WeightStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewWeightStore builds the store from config and applies the calibration file when configured.
func NewWeightStore(cfg config.ScoringConfig, opts ...StoreOption) (*WeightStore, error) {
	s := &WeightStore{
		configured:      SetsFromConfig(cfg),
		configuredName:  cfg.WeightSet,
		calibrationPath: cfg.CalibrationPath,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.configuredName == "" {
		s.configuredName = config.DefaultWeightSetName
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStaticWeightStore returns a store pinned to ws, without calibration.
func NewStaticWeightStore(ws WeightSet) (*WeightStore, error) {
	if err := ws.Validate(); err != nil {
		return nil, err
	}
	s := &WeightStore{
		configured:     map[string]WeightSet{ws.Name: ws},
		configuredName: ws.Name,
		logger:         zap.NewNop(),
	}
	s.active.Store(&ws)
	return s, nil
}

// Active returns the current weight set.
func (s *WeightStore) Active() WeightSet {
	return *s.active.Load()
}

// CalibrationPath returns the watched calibration file, or "".
func (s *WeightStore) CalibrationPath() string {
	return s.calibrationPath
}

// Reload re-reads the calibration file and swaps in the resulting active set.
func (s *WeightStore) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cal, err := LoadCalibration(s.calibrationPath)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("calibration file not found, using configured weights",
			zap.String("path", s.calibrationPath))
		cal, err = &Calibration{}, nil
	}
	if err != nil {
		return s.rejectReload(err)
	}
	sets, err := MergeCalibration(s.configured, cal)
	if err != nil {
		return s.rejectReload(err)
	}
	name := s.configuredName
	if cal.Active != "" {
		name = cal.Active
	}
	ws, ok := sets[name]
	if !ok {
		return s.rejectReload(fmt.Errorf("%w: weight set %q is not defined", models.ErrInvalidInput, name))
	}
	s.active.Store(&ws)
	s.logger.Info("scoring weights loaded",
		zap.String("weight_set", ws.Name),
		zap.String("calibration_version", cal.Version),
		zap.Float64("embedding_similarity", ws.EmbeddingSimilarity),
		zap.Float64("skill_overlap", ws.SkillOverlap),
		zap.Float64("seniority_match", ws.SeniorityMatch),
		zap.Float64("recency_decay", ws.RecencyDecay),
		zap.Float64("location_match", ws.LocationMatch),
	)
	return nil
}

func (s *WeightStore) rejectReload(err error) error {
	if s.active.Load() != nil {
		s.logger.Warn("calibration rejected, keeping previous weights", zap.Error(err))
	}
	return err
}
