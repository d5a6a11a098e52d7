package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/stitts-dev/squad-optimizer/internal/models"
	"github.com/stitts-dev/squad-optimizer/internal/optimizer"
	"github.com/stitts-dev/squad-optimizer/pkg/database"
)

var ErrRunNotFound = errors.New("run not found")

// RunHistory persists formation comparisons.
type RunHistory struct {
	db     *database.DB
	logger *logrus.Entry
}

func NewRunHistory(db *database.DB, logger *logrus.Entry) *RunHistory {
	return &RunHistory{db: db, logger: logger}
}

// Migrate creates the run tables.
func (s *RunHistory) Migrate() error {
	return s.db.AutoMigrate(&models.OptimizationRun{}, &models.FormationOutcome{})
}

// Record stores run together with cmp's per-formation outcomes. run.ID is
// kept when set so it can match an id already handed to the client.
func (s *RunHistory) Record(ctx context.Context, run *models.OptimizationRun, cmp *optimizer.Comparison) error {
	if cmp != nil {
		if cmp.Best != nil {
			run.BestFormation = cmp.Best.Name
			run.BestScore = cmp.Best.TotalScore
			run.BestCost = cmp.Best.Result.TotalCost
			selected, err := json.Marshal(cmp.Best.Result.Selected)
			if err != nil {
				return fmt.Errorf("failed to encode selection: %w", err)
			}
			run.Selected = datatypes.JSON(selected)
		}
		run.Formations = make([]models.FormationOutcome, 0, len(cmp.Results))
		for i, fr := range cmp.Results {
			run.Formations = append(run.Formations, models.FormationOutcome{
				Position:   i,
				Formation:  fr.Name,
				Feasible:   fr.Result.Feasible(),
				TotalScore: fr.TotalScore,
				TotalCost:  fr.Result.TotalCost,
			})
		}
	}
	if run.Selected == nil {
		run.Selected = datatypes.JSON("[]")
	}

	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		s.logger.WithError(err).Error("Failed to record optimization run")
		return fmt.Errorf("failed to record run: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":         run.ID,
		"mode":           run.Mode,
		"best_formation": run.BestFormation,
	}).Debug("Optimization run recorded")
	return nil
}

// Recent returns the latest runs, newest first, with their formation rows.
func (s *RunHistory) Recent(ctx context.Context, limit int) ([]models.OptimizationRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.OptimizationRun
	err := s.db.WithContext(ctx).
		Preload("Formations", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Get loads one run by id.
func (s *RunHistory) Get(ctx context.Context, id uuid.UUID) (*models.OptimizationRun, error) {
	var run models.OptimizationRun
	err := s.db.WithContext(ctx).
		Preload("Formations", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	return &run, nil
}
