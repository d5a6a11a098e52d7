package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Run modes.
const (
	ModeFresh     = "fresh"
	ModeEvolution = "evolution"
	ModeFormation = "formation"
)

// OptimizationRun is a persisted formation comparison.
type OptimizationRun struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Mode          string         `gorm:"not null;index" json:"mode"`
	Engine        string         `json:"engine"`
	Budget        float64        `json:"budget"`
	PlayerCount   int            `json:"player_count"`
	BestFormation string         `json:"best_formation"`
	BestScore     float64        `json:"best_score"`
	BestCost      float64        `json:"best_cost"`
	Selected      datatypes.JSON `json:"selected"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`

	Formations []FormationOutcome `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"formations,omitempty"`
}

func (OptimizationRun) TableName() string {
	return "optimization_runs"
}

// BeforeCreate assigns an id when the caller did not.
func (r *OptimizationRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// FormationOutcome is one row of a run's per-formation results.
type FormationOutcome struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RunID      uuid.UUID `gorm:"type:uuid;not null;index" json:"run_id"`
	Position   int       `json:"position"`
	Formation  string    `gorm:"not null" json:"formation"`
	Feasible   bool      `json:"feasible"`
	TotalScore float64   `json:"total_score"`
	TotalCost  float64   `json:"total_cost"`
}

func (FormationOutcome) TableName() string {
	return "formation_outcomes"
}
