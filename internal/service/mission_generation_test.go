package service

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yinkev/Americano-sub009/internal/config"
	"github.com/yinkev/Americano-sub009/internal/model"
	"github.com/yinkev/Americano-sub009/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

// memMissionRepo keeps missions in memory and enforces the (user, date)
// uniqueness the database index provides.
type memMissionRepo struct {
	nextID   uint
	missions []*model.Mission
	// raceWinner, when set, is inserted by a concurrent writer the moment
	// Create is called, so the call loses with a duplicated-key error.
	raceWinner *model.Mission
}

func (r *memMissionRepo) find(userID uint, date time.Time) *model.Mission {
	for _, m := range r.missions {
		if m.UserID == userID && m.Date.Equal(date) {
			return m
		}
	}
	return nil
}

func (r *memMissionRepo) insert(m *model.Mission) {
	r.nextID++
	m.ID = r.nextID
	r.missions = append(r.missions, m)
}

func (r *memMissionRepo) Create(m *model.Mission) error {
	if r.raceWinner != nil {
		winner := r.raceWinner
		r.raceWinner = nil
		r.insert(winner)
		return gorm.ErrDuplicatedKey
	}
	if r.find(m.UserID, m.Date) != nil {
		return gorm.ErrDuplicatedKey
	}
	r.insert(m)
	return nil
}

func (r *memMissionRepo) FindByID(id uint) (*model.Mission, error) {
	for _, m := range r.missions {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memMissionRepo) FindByUserAndDate(userID uint, date time.Time) (*model.Mission, error) {
	if m := r.find(userID, date); m != nil {
		return m, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memMissionRepo) Save(*model.Mission) error { return nil }

func (r *memMissionRepo) SaveObjective(*model.MissionObjective) error { return nil }

func (r *memMissionRepo) HardDelete(missionID uint) error {
	for i, m := range r.missions {
		if m.ID == missionID {
			r.missions = append(r.missions[:i], r.missions[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type memObjectiveReader struct{ objs []*model.LearningObjective }

func (r *memObjectiveReader) FindByUser(uint) ([]*model.LearningObjective, error) {
	return r.objs, nil
}

type memReviewReader struct{ reviews []*model.Review }

func (r *memReviewReader) FindByUser(uint) ([]*model.Review, error) {
	return r.reviews, nil
}

type memUserReader struct{ user *model.User }

func (r *memUserReader) FindByID(uint) (*model.User, error) {
	if r.user == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return r.user, nil
}

func generationTuning() config.MissionConfig {
	return config.MissionConfig{
		TargetMinutes:   50,
		OverloadFactor:  1.2,
		UnderloadFactor: 0.7,
		CandidatePool:   20,
		WeakThreshold:   0.6,
	}
}

func generationCatalog() []*model.LearningObjective {
	return []*model.LearningObjective{
		{BaseModel: model.BaseModel{ID: 1}, CourseID: 1, Complexity: model.ComplexityAdvanced, MasteryLevel: model.MasteryNotStarted, WeaknessScore: 0.9},
		{BaseModel: model.BaseModel{ID: 2}, CourseID: 2, Complexity: model.ComplexityIntermediate, MasteryLevel: model.MasteryNotStarted, WeaknessScore: 0.7},
		{BaseModel: model.BaseModel{ID: 3}, CourseID: 3, Complexity: model.ComplexityBasic, MasteryLevel: model.MasteryIntermediate, WeaknessScore: 0.5},
		{BaseModel: model.BaseModel{ID: 4}, CourseID: 4, Complexity: model.ComplexityBasic, MasteryLevel: model.MasteryBeginner, WeaknessScore: 0.3},
	}
}

func newGenerationService(missions *memMissionRepo, objs []*model.LearningObjective) *MissionService {
	return NewMissionService(
		missions,
		&memObjectiveReader{objs: objs},
		&memReviewReader{},
		&memUserReader{},
		NewPriorityService(),
		nil,
		generationTuning(),
	)
}

func missionObjectiveIDs(m *model.Mission) []uint {
	ids := make([]uint, 0, len(m.Objectives))
	for _, mo := range m.Objectives {
		ids = append(ids, mo.ObjectiveID)
	}
	return ids
}

func TestGenerateDailyMissionIdempotent(t *testing.T) {
	repo := &memMissionRepo{}
	svc := newGenerationService(repo, generationCatalog())
	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	first, err := svc.GenerateDailyMission(7, day, 0)
	require.NoError(t, err)
	require.NotEmpty(t, first.Objectives)

	second, err := svc.GenerateDailyMission(7, day, 0)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, missionObjectiveIDs(first), missionObjectiveIDs(second))
	assert.Len(t, repo.missions, 1)
}

func TestGenerateDailyMissionRecoversLostInsertRace(t *testing.T) {
	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	winner := &model.Mission{
		UserID:          7,
		Date:            day,
		Status:          model.MissionPending,
		GenerationToken: "winning-token",
		TargetMinutes:   50,
	}
	repo := &memMissionRepo{raceWinner: winner}
	svc := newGenerationService(repo, generationCatalog())

	mission, err := svc.GenerateDailyMission(7, day, 0)
	require.NoError(t, err)

	// The losing insert is recovered by fetching the winning row, never
	// surfaced as an error or a second mission.
	assert.Equal(t, winner.ID, mission.ID)
	assert.Equal(t, "winning-token", mission.GenerationToken)
	assert.Len(t, repo.missions, 1)
}

func TestPreviewMatchesGeneratedMission(t *testing.T) {
	repo := &memMissionRepo{}
	svc := newGenerationService(repo, generationCatalog())
	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	preview, err := svc.PreviewMission(7, day, 0)
	require.NoError(t, err)
	assert.Empty(t, repo.missions, "preview must not persist")

	mission, err := svc.GenerateDailyMission(7, day, 0)
	require.NoError(t, err)

	previewIDs := make([]uint, 0, len(preview.Objectives))
	for _, po := range preview.Objectives {
		previewIDs = append(previewIDs, po.ObjectiveID)
	}
	assert.Equal(t, previewIDs, missionObjectiveIDs(mission))
	assert.Equal(t, preview.TotalEstimatedMinutes, mission.TotalEstimatedMinutes)
	assert.Equal(t, preview.TargetMinutes, mission.TargetMinutes)
}

func TestRegenerateMissionReplacesRow(t *testing.T) {
	repo := &memMissionRepo{}
	svc := newGenerationService(repo, generationCatalog())
	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	original, err := svc.GenerateDailyMission(7, day, 0)
	require.NoError(t, err)

	replacement, err := svc.RegenerateMission(7, original.ID)
	require.NoError(t, err)

	assert.NotEqual(t, original.ID, replacement.ID)
	assert.NotEqual(t, original.GenerationToken, replacement.GenerationToken)
	assert.Len(t, repo.missions, 1)
	assert.True(t, replacement.Date.Equal(day))
}
