package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/stitts-dev/squad-optimizer/internal/models"
	"github.com/stitts-dev/squad-optimizer/internal/optimizer"
	"github.com/stitts-dev/squad-optimizer/pkg/database"
)

type RunHistoryTestSuite struct {
	suite.Suite
	db      *database.DB
	history *RunHistory
}

func (s *RunHistoryTestSuite) SetupTest() {
	db, err := database.NewConnection(database.SQLitePrefix+":memory:", false)
	s.Require().NoError(err)
	s.db = db

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	s.history = NewRunHistory(db, logrus.NewEntry(log))
	s.Require().NoError(s.history.Migrate())
}

func (s *RunHistoryTestSuite) TearDownTest() {
	s.db.Close()
}

func comparison() *optimizer.Comparison {
	best := optimizer.FormationResult{
		Formation:  optimizer.Formation{1, 4, 3, 3},
		Name:       "4-3-3",
		TotalScore: 72,
		Result:     optimizer.Result{Selected: []string{"B", "D"}, TotalCost: 49.5, TotalScore: 72},
	}
	return &optimizer.Comparison{
		Results: []optimizer.FormationResult{
			{Formation: optimizer.Formation{1, 4, 4, 2}, Name: "4-4-2"},
			best,
		},
		Best: &best,
	}
}

func (s *RunHistoryTestSuite) TestRecordAndGet() {
	ctx := context.Background()
	run := &models.OptimizationRun{Mode: models.ModeFresh, Engine: "simplex", Budget: 50, PlayerCount: 30}

	s.Require().NoError(s.history.Record(ctx, run, comparison()))
	s.NotEqual(uuid.Nil, run.ID)

	got, err := s.history.Get(ctx, run.ID)
	s.Require().NoError(err)
	s.Equal("4-3-3", got.BestFormation)
	s.InDelta(72.0, got.BestScore, 1e-9)
	s.InDelta(49.5, got.BestCost, 1e-9)

	var selected []string
	s.Require().NoError(json.Unmarshal(got.Selected, &selected))
	s.Equal([]string{"B", "D"}, selected)

	s.Require().Len(got.Formations, 2)
	s.Equal("4-4-2", got.Formations[0].Formation)
	s.False(got.Formations[0].Feasible)
	s.True(got.Formations[1].Feasible)
}

func (s *RunHistoryTestSuite) TestRecordKeepsProvidedID() {
	id := uuid.New()
	run := &models.OptimizationRun{ID: id, Mode: models.ModeEvolution}
	s.Require().NoError(s.history.Record(context.Background(), run, &optimizer.Comparison{}))
	s.Equal(id, run.ID)

	got, err := s.history.Get(context.Background(), id)
	s.Require().NoError(err)
	s.Empty(got.BestFormation)
	s.JSONEq("[]", string(got.Selected))
}

func (s *RunHistoryTestSuite) TestRecentNewestFirst() {
	ctx := context.Background()
	base := time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		run := &models.OptimizationRun{Mode: models.ModeFresh, Budget: float64(50 + i), CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		s.Require().NoError(s.history.Record(ctx, run, comparison()))
	}

	runs, err := s.history.Recent(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(runs, 2)
	s.InDelta(52.0, runs[0].Budget, 1e-9)
	s.InDelta(51.0, runs[1].Budget, 1e-9)
	s.Len(runs[0].Formations, 2)
}

func (s *RunHistoryTestSuite) TestGetMissing() {
	_, err := s.history.Get(context.Background(), uuid.New())
	s.ErrorIs(err, ErrRunNotFound)
}

func TestRunHistoryTestSuite(t *testing.T) {
	suite.Run(t, new(RunHistoryTestSuite))
}
