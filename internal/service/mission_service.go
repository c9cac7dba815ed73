package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yinkev/Americano-sub009/internal/config"
	"github.com/yinkev/Americano-sub009/internal/model"
	"github.com/yinkev/Americano-sub009/internal/util"
	"github.com/yinkev/Americano-sub009/pkg/logger"
	"github.com/yinkev/Americano-sub009/pkg/monitoring"
)

// Mission size bounds. The floor relaxes only when fewer candidates exist.
const (
	minMissionObjectives = 2
	maxMissionObjectives = 4
)

const regenerateLockTTL = 30 * time.Second

// Base study minutes per complexity tier.
var baseMinutes = map[model.Complexity]int{
	model.ComplexityBasic:        12,
	model.ComplexityIntermediate: 20,
	model.ComplexityAdvanced:     32,
}

// Mastery adjustment: unfamiliar material takes longer, mastered material
// is a quick refresh.
var masteryFactor = map[model.MasteryLevel]float64{
	model.MasteryNotStarted:   1.5,
	model.MasteryBeginner:     1.2,
	model.MasteryIntermediate: 1.0,
	model.MasteryAdvanced:     0.8,
	model.MasteryMastered:     0.7,
}

// EstimateMinutes is the per-objective time estimate, rounded to the
// nearest minute.
func EstimateMinutes(c model.Complexity, m model.MasteryLevel) int {
	base, ok := baseMinutes[c]
	if !ok {
		base = baseMinutes[model.ComplexityBasic]
	}
	factor, ok := masteryFactor[m]
	if !ok {
		factor = 1.0
	}
	return int(math.Round(float64(base) * factor))
}

// Storage surfaces the mission engine depends on. The GORM repositories
// satisfy them; tests substitute in-memory implementations.
type missionStore interface {
	Create(mission *model.Mission) error
	FindByID(id uint) (*model.Mission, error)
	FindByUserAndDate(userID uint, date time.Time) (*model.Mission, error)
	Save(mission *model.Mission) error
	SaveObjective(mo *model.MissionObjective) error
	HardDelete(missionID uint) error
}

type objectiveReader interface {
	FindByUser(userID uint) ([]*model.LearningObjective, error)
}

type reviewReader interface {
	FindByUser(userID uint) ([]*model.Review, error)
}

type userReader interface {
	FindByID(id uint) (*model.User, error)
}

type MissionService struct {
	MissionRepo   missionStore
	ObjectiveRepo objectiveReader
	ReviewRepo    reviewReader
	UserRepo      userReader
	Priority      *PriorityService
	Redis         *redis.Client

	mu     sync.RWMutex
	tuning config.MissionConfig
}

func NewMissionService(
	missionRepo missionStore,
	objectiveRepo objectiveReader,
	reviewRepo reviewReader,
	userRepo userReader,
	priority *PriorityService,
	rdb *redis.Client,
	tuning config.MissionConfig,
) *MissionService {
	return &MissionService{
		MissionRepo:   missionRepo,
		ObjectiveRepo: objectiveRepo,
		ReviewRepo:    reviewRepo,
		UserRepo:      userRepo,
		Priority:      priority,
		Redis:         rdb,
		tuning:        tuning,
	}
}

// SetTuning swaps the mission tuning, used by config hot reload.
func (s *MissionService) SetTuning(tuning config.MissionConfig) {
	s.mu.Lock()
	s.tuning = tuning
	s.mu.Unlock()
}

func (s *MissionService) currentTuning() config.MissionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tuning
}

// composeMission selects 2-4 objectives from the ranked candidates:
// highest-priority seed, up to two high-yield reinforcement picks, the
// seed's unmastered prerequisite, then size and time balancing. At most
// one objective per course. Pure and deterministic so preview and commit
// always agree.
func composeMission(ranked []Candidate, prereq *Candidate, targetMinutes int, overload, underload float64) []Candidate {
	if len(ranked) == 0 {
		return nil
	}

	var selected []Candidate
	usedObjective := make(map[uint]bool)
	usedCourse := make(map[uint]bool)

	canTake := func(c Candidate) bool {
		return !usedObjective[c.ObjectiveID] && !usedCourse[c.CourseID]
	}
	take := func(c Candidate, front bool) {
		usedObjective[c.ObjectiveID] = true
		usedCourse[c.CourseID] = true
		if front {
			selected = append([]Candidate{c}, selected...)
		} else {
			selected = append(selected, c)
		}
	}
	dropLowest := func() {
		lowest := 0
		for i := 1; i < len(selected); i++ {
			if selected[i].Priority < selected[lowest].Priority {
				lowest = i
			}
		}
		c := selected[lowest]
		delete(usedObjective, c.ObjectiveID)
		delete(usedCourse, c.CourseID)
		selected = append(selected[:lowest], selected[lowest+1:]...)
	}
	nextUnselected := func() (Candidate, bool) {
		for _, c := range ranked {
			if canTake(c) {
				return c, true
			}
		}
		return Candidate{}, false
	}

	// Seed with the single highest-priority candidate.
	seed := ranked[0]
	take(seed, false)

	// Up to two high-yield reinforcement picks, priority order preserved.
	// Reinforcement means review, so untouched objectives do not qualify.
	reinforced := 0
	for _, c := range ranked[1:] {
		if reinforced == 2 || len(selected) == maxMissionObjectives {
			break
		}
		if c.HighYield && c.Mastery != model.MasteryNotStarted && canTake(c) {
			take(c, false)
			reinforced++
		}
	}

	// Learn the foundation before the dependent topic: the seed's
	// unmastered prerequisite goes to the front, unless it would break
	// the size or course bounds.
	if prereq != nil && prereq.Mastery != model.MasteryMastered &&
		len(selected) < maxMissionObjectives && canTake(*prereq) {
		take(*prereq, true)
	}

	for len(selected) > maxMissionObjectives {
		dropLowest()
	}
	for len(selected) < minMissionObjectives {
		c, ok := nextUnselected()
		if !ok {
			break
		}
		take(c, false)
	}

	total := func() int {
		sum := 0
		for _, c := range selected {
			sum += EstimateMinutes(c.Complexity, c.Mastery)
		}
		return sum
	}

	overloadCap := int(math.Round(float64(targetMinutes) * overload))
	underloadFloor := int(math.Round(float64(targetMinutes) * underload))

	// Never drop below the two-objective floor, even if the estimate
	// still exceeds the cap afterwards.
	for total() > overloadCap && len(selected) > minMissionObjectives {
		dropLowest()
	}
	for total() < underloadFloor && len(selected) < maxMissionObjectives {
		c, ok := nextUnselected()
		if !ok {
			break
		}
		take(c, false)
	}

	return selected
}

// candidateSet loads everything selection needs: ranked candidates capped
// to the pool size, plus a full lookup for prerequisite resolution.
func (s *MissionService) candidateSet(userID uint, pool int) ([]Candidate, map[uint]Candidate, error) {
	objs, err := s.ObjectiveRepo.FindByUser(userID)
	if err != nil {
		return nil, nil, err
	}

	reviews, err := s.ReviewRepo.FindByUser(userID)
	if err != nil {
		return nil, nil, err
	}
	// Reviews arrive in chronological order per objective, so the last
	// write per key is the latest urgency signal.
	latestUrgency := make(map[uint]float64)
	for _, rv := range reviews {
		latestUrgency[rv.ObjectiveID] = rv.Urgency
	}

	all := s.Priority.Rank(s.Priority.BuildCandidates(objs, latestUrgency))

	byID := make(map[uint]Candidate, len(all))
	for _, c := range all {
		byID[c.ObjectiveID] = c
	}

	ranked := all
	if len(ranked) > pool {
		ranked = ranked[:pool]
	}
	return ranked, byID, nil
}

func (s *MissionService) selectObjectives(userID uint, targetMinutes int) ([]Candidate, error) {
	tuning := s.currentTuning()

	ranked, byID, err := s.candidateSet(userID, tuning.CandidatePool)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, nil
	}

	var prereq *Candidate
	if seedPrereq := ranked[0].PrerequisiteID; seedPrereq != nil {
		if c, ok := byID[*seedPrereq]; ok {
			prereq = &c
		}
	}

	return composeMission(ranked, prereq, targetMinutes, tuning.OverloadFactor, tuning.UnderloadFactor), nil
}

// resolveTarget picks the time box: explicit request value, then the
// user's configured daily target, then the service default.
func (s *MissionService) resolveTarget(userID uint, targetMinutes int) int {
	if targetMinutes > 0 {
		return targetMinutes
	}
	if s.UserRepo != nil {
		if user, err := s.UserRepo.FindByID(userID); err == nil && user.DailyTargetMinutes > 0 {
			return user.DailyTargetMinutes
		}
	}
	return s.currentTuning().TargetMinutes
}

func missionDate(date time.Time) time.Time {
	if date.IsZero() {
		date = time.Now()
	}
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
}

// GenerateDailyMission creates the mission for (user, date), or returns
// the existing one. Concurrent duplicate calls are resolved by the unique
// (user, date) index: the loser of the insert race fetches the winner's
// row instead of failing.
func (s *MissionService) GenerateDailyMission(userID uint, date time.Time, targetMinutes int) (*model.Mission, error) {
	day := missionDate(date)

	if existing, err := s.MissionRepo.FindByUserAndDate(userID, day); err == nil {
		monitoring.MissionsGenerated.WithLabelValues("existing").Inc()
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return s.createMission(userID, day, s.resolveTarget(userID, targetMinutes))
}

func (s *MissionService) createMission(userID uint, day time.Time, target int) (*model.Mission, error) {
	selected, err := s.selectObjectives(userID, target)
	if err != nil {
		return nil, err
	}

	mission := buildMission(userID, day, target, selected)

	if err := s.MissionRepo.Create(mission); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the insert race; the winning row is the mission.
			monitoring.MissionsGenerated.WithLabelValues("existing").Inc()
			return s.MissionRepo.FindByUserAndDate(userID, day)
		}
		return nil, err
	}

	outcome := "created"
	if len(mission.Objectives) == 0 {
		outcome = "empty"
	}
	monitoring.MissionsGenerated.WithLabelValues(outcome).Inc()
	monitoring.MissionEstimatedMinutes.Observe(float64(mission.TotalEstimatedMinutes))

	tuning := s.currentTuning()
	band := int(math.Round(float64(target) * tuning.OverloadFactor))
	if mission.TotalEstimatedMinutes > band {
		// Legitimate when the two-objective floor wins over the band.
		logger.Log.Warn("mission exceeds target band",
			zap.Uint("userID", userID),
			zap.Int("estimatedMinutes", mission.TotalEstimatedMinutes),
			zap.Int("targetMinutes", target))
	}

	return mission, nil
}

func buildMission(userID uint, day time.Time, target int, selected []Candidate) *model.Mission {
	mission := &model.Mission{
		UserID:          userID,
		Date:            day,
		Status:          model.MissionPending,
		GenerationToken: uuid.New().String(),
		TargetMinutes:   target,
	}
	for i, c := range selected {
		est := EstimateMinutes(c.Complexity, c.Mastery)
		mission.Objectives = append(mission.Objectives, model.MissionObjective{
			ObjectiveID:      c.ObjectiveID,
			OrderIndex:       i,
			EstimatedMinutes: est,
		})
		mission.TotalEstimatedMinutes += est
	}
	return mission
}

// MissionPreview mirrors a generated mission without persisting anything.
type MissionPreview struct {
	Date                  time.Time          `json:"date"`
	TargetMinutes         int                `json:"targetMinutes"`
	TotalEstimatedMinutes int                `json:"totalEstimatedMinutes"`
	Objectives            []PreviewObjective `json:"objectives"`
}

type PreviewObjective struct {
	ObjectiveID      uint    `json:"objectiveId"`
	Description      string  `json:"description"`
	CourseID         uint    `json:"courseId"`
	EstimatedMinutes int     `json:"estimatedMinutes"`
	Priority         float64 `json:"priority"`
}

// PreviewMission runs the selection algorithm read-only. Given the same
// underlying data it selects exactly what GenerateDailyMission would
// persist.
func (s *MissionService) PreviewMission(userID uint, date time.Time, targetMinutes int) (*MissionPreview, error) {
	target := s.resolveTarget(userID, targetMinutes)

	selected, err := s.selectObjectives(userID, target)
	if err != nil {
		return nil, err
	}

	preview := &MissionPreview{
		Date:          missionDate(date),
		TargetMinutes: target,
	}
	for _, c := range selected {
		est := EstimateMinutes(c.Complexity, c.Mastery)
		preview.Objectives = append(preview.Objectives, PreviewObjective{
			ObjectiveID:      c.ObjectiveID,
			Description:      c.Description,
			CourseID:         c.CourseID,
			EstimatedMinutes: est,
			Priority:         c.Priority,
		})
		preview.TotalEstimatedMinutes += est
	}
	return preview, nil
}

// RegenerateMission discards a non-completed mission and builds a fresh
// one for the same date. Partially completed objectives are not carried
// over. Calls for the same mission are serialized with a short Redis lock;
// a held lock is reported, not queued.
func (s *MissionService) RegenerateMission(userID, missionID uint) (*model.Mission, error) {
	mission, err := s.findOwned(userID, missionID)
	if err != nil {
		return nil, err
	}
	if mission.Status == model.MissionCompleted {
		return nil, util.ErrRegenerateCompleted
	}

	if s.Redis != nil {
		ctx := context.Background()
		lockKey := fmt.Sprintf("americano:mission:regen:%d:%s", userID, mission.Date.Format("2006-01-02"))
		ok, err := s.Redis.SetNX(ctx, lockKey, mission.GenerationToken, regenerateLockTTL).Result()
		if err == nil && !ok {
			return nil, util.ErrRegenerateInProgress
		}
		defer s.Redis.Del(ctx, lockKey)
	}

	if err := s.MissionRepo.HardDelete(mission.ID); err != nil {
		return nil, err
	}

	monitoring.MissionRegenerations.Inc()
	return s.createMission(userID, mission.Date, mission.TargetMinutes)
}

func (s *MissionService) GetMission(userID, missionID uint) (*model.Mission, error) {
	return s.findOwned(userID, missionID)
}

func (s *MissionService) GetTodayMission(userID uint) (*model.Mission, error) {
	mission, err := s.MissionRepo.FindByUserAndDate(userID, missionDate(time.Now()))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrMissionNotFound
		}
		return nil, err
	}
	return mission, nil
}

// StartMission moves a pending mission to IN_PROGRESS. Starting an
// already-running mission is a no-op.
func (s *MissionService) StartMission(userID, missionID uint) (*model.Mission, error) {
	mission, err := s.findOwned(userID, missionID)
	if err != nil {
		return nil, err
	}
	if mission.Status.Terminal() {
		return nil, util.ErrMissionFinished
	}
	if mission.Status == model.MissionPending {
		mission.Status = model.MissionInProgress
		if err := s.MissionRepo.Save(mission); err != nil {
			return nil, err
		}
	}
	return mission, nil
}

// SkipMission is the explicit user bail-out; completed missions stay
// immutable history.
func (s *MissionService) SkipMission(userID, missionID uint) (*model.Mission, error) {
	mission, err := s.findOwned(userID, missionID)
	if err != nil {
		return nil, err
	}
	if mission.Status.Terminal() {
		return nil, util.ErrMissionFinished
	}
	mission.Status = model.MissionSkipped
	if err := s.MissionRepo.Save(mission); err != nil {
		return nil, err
	}
	return mission, nil
}

type CompleteObjectiveRequest struct {
	ActualMinutes int    `json:"actualMinutes" binding:"min=0"`
	Notes         string `json:"notes"`
}

// CompleteObjective marks one mission objective done. Completing the last
// open objective completes the mission.
func (s *MissionService) CompleteObjective(userID, missionID, objectiveID uint, req CompleteObjectiveRequest) (*model.Mission, error) {
	mission, err := s.findOwned(userID, missionID)
	if err != nil {
		return nil, err
	}
	if mission.Status.Terminal() {
		return nil, util.ErrMissionFinished
	}

	var target *model.MissionObjective
	for i := range mission.Objectives {
		if mission.Objectives[i].ObjectiveID == objectiveID {
			target = &mission.Objectives[i]
			break
		}
	}
	if target == nil {
		return nil, util.ErrMissionObjectiveNotFound
	}

	if !target.Completed {
		now := time.Now()
		target.Completed = true
		target.CompletedAt = &now
		target.Notes = req.Notes
		if err := s.MissionRepo.SaveObjective(target); err != nil {
			return nil, err
		}

		mission.CompletedObjectivesCount++
		mission.ActualMinutes += req.ActualMinutes
		if mission.Status == model.MissionPending {
			mission.Status = model.MissionInProgress
		}
		if mission.CompletedObjectivesCount >= len(mission.Objectives) {
			mission.Status = model.MissionCompleted
		}
		if err := s.MissionRepo.Save(mission); err != nil {
			return nil, err
		}
	}

	return mission, nil
}

func (s *MissionService) findOwned(userID, missionID uint) (*model.Mission, error) {
	mission, err := s.MissionRepo.FindByID(missionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrMissionNotFound
		}
		return nil, err
	}
	if mission.UserID != userID {
		return nil, util.ErrMissionNotFound
	}
	return mission, nil
}
