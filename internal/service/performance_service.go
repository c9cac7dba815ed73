package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yinkev/Americano-sub009/internal/model"
	"github.com/yinkev/Americano-sub009/internal/util"
	"github.com/yinkev/Americano-sub009/pkg/logger"
)

// Weakness score weights. They must sum to 1.0 so the composite stays in
// [0,1] when every term is clamped.
const (
	retentionWeight  = 0.4
	studyTimeWeight  = 0.3
	failureWeight    = 0.2
	confidenceWeight = 0.1
)

// Expected total study time to reach mastery, by complexity. Used to
// normalize the sunk-time term of the weakness score.
var expectedMasteryMs = map[model.Complexity]int64{
	model.ComplexityBasic:        60 * 60 * 1000,
	model.ComplexityIntermediate: 120 * 60 * 1000,
	model.ComplexityAdvanced:     180 * 60 * 1000,
}

const weakAreaCacheTTL = 60 * time.Second

// Storage surfaces the performance engine depends on. The GORM
// repositories satisfy them; tests substitute in-memory implementations.
type objectiveStore interface {
	FindByID(id uint) (*model.LearningObjective, error)
	FindByUser(userID uint) ([]*model.LearningObjective, error)
	FindWeakByUser(userID uint, threshold float64) ([]*model.LearningObjective, error)
	SavePerformance(obj *model.LearningObjective) error
}

type reviewStore interface {
	Create(review *model.Review) error
	FindByUser(userID uint) ([]*model.Review, error)
	FindByUserAndObjective(userID, objectiveID uint) ([]*model.Review, error)
}

type metricStore interface {
	UpsertDaily(metric *model.PerformanceMetric) error
	FindByUserAndDate(userID uint, date time.Time) ([]*model.PerformanceMetric, error)
}

type PerformanceService struct {
	ObjectiveRepo objectiveStore
	ReviewRepo    reviewStore
	MetricRepo    metricStore
	Redis         *redis.Client
}

func NewPerformanceService(
	objectiveRepo objectiveStore,
	reviewRepo reviewStore,
	metricRepo metricStore,
	rdb *redis.Client,
) *PerformanceService {
	return &PerformanceService{
		ObjectiveRepo: objectiveRepo,
		ReviewRepo:    reviewRepo,
		MetricRepo:    metricRepo,
		Redis:         rdb,
	}
}

// reviewAggregate collects everything the scoring functions need from one
// objective's review history.
type reviewAggregate struct {
	ReviewCount      int
	Correct          int
	Incorrect        int
	StudyTimeMs      int64
	LastReviewedAt   *time.Time
	LatestConfidence *int
	LatestUrgency    *float64
}

func aggregateReviews(reviews []*model.Review) reviewAggregate {
	var agg reviewAggregate
	for _, rv := range reviews {
		agg.ReviewCount++
		if rv.Outcome == model.ReviewCorrect {
			agg.Correct++
		} else {
			agg.Incorrect++
		}
		agg.StudyTimeMs += rv.DurationMs

		t := rv.ReviewedAt
		if agg.LastReviewedAt == nil || t.After(*agg.LastReviewedAt) {
			agg.LastReviewedAt = &t
		}
		if rv.Confidence != nil {
			agg.LatestConfidence = rv.Confidence
		}
		u := rv.Urgency
		agg.LatestUrgency = &u
	}
	return agg
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// RetentionScore is the fraction of correct reviews. An empty history is
// 0.0, which reads as "unknown" downstream rather than "strong".
func RetentionScore(reviews []*model.Review) float64 {
	if len(reviews) == 0 {
		return 0.0
	}
	correct := 0
	for _, rv := range reviews {
		if rv.Outcome == model.ReviewCorrect {
			correct++
		}
	}
	return float64(correct) / float64(len(reviews))
}

// WeaknessInput carries the clamped terms of the weakness composite.
type WeaknessInput struct {
	Retention      float64
	StudyTimeMs    int64
	ExpectedTimeMs int64
	Correct        int
	Incorrect      int
	Confidence     *int // 1-5, nil when unreported
}

// WeaknessScore blends retention gap, sunk study time, failure rate and
// self-reported confidence into one [0,1] remediation signal. A missing
// confidence report contributes the neutral midpoint 0.5 to its term so
// silence biases neither way.
func WeaknessScore(in WeaknessInput) float64 {
	retentionTerm := clamp01(1.0 - in.Retention)

	var studyTerm float64
	if in.ExpectedTimeMs > 0 {
		studyTerm = clamp01(float64(in.StudyTimeMs) / float64(in.ExpectedTimeMs))
	}

	total := in.Correct + in.Incorrect
	if total < 1 {
		total = 1
	}
	failureTerm := clamp01(float64(in.Incorrect) / float64(total))

	confidenceTerm := 0.5
	if in.Confidence != nil {
		c := *in.Confidence
		if c < 1 {
			c = 1
		}
		if c > 5 {
			c = 5
		}
		confidenceTerm = clamp01(1.0 - float64(c)/5.0)
	}

	score := retentionWeight*retentionTerm +
		studyTimeWeight*studyTerm +
		failureWeight*failureTerm +
		confidenceWeight*confidenceTerm
	return clamp01(score)
}

// MasteryFor maps retention and review volume onto the discrete ladder.
// Zero reviews is always NOT_STARTED; a short but accurate history tops
// out below ADVANCED until enough reviews accumulate.
func MasteryFor(retention float64, reviewCount int) model.MasteryLevel {
	switch {
	case reviewCount == 0:
		return model.MasteryNotStarted
	case retention < 0.5 || reviewCount < 3:
		return model.MasteryBeginner
	case retention >= 0.9 && reviewCount >= 10:
		return model.MasteryMastered
	case retention >= 0.7 && reviewCount >= 5:
		return model.MasteryAdvanced
	default:
		return model.MasteryIntermediate
	}
}

type ReviewRequest struct {
	ObjectiveID uint    `json:"objectiveId" binding:"required"`
	Outcome     string  `json:"outcome" binding:"required,oneof=correct incorrect"`
	Urgency     float64 `json:"urgency" binding:"min=0,max=1"`
	DurationMs  int64   `json:"durationMs" binding:"min=0"`
	Confidence  *int    `json:"confidence" binding:"omitempty,min=1,max=5"`
}

// RecordReview stores one spaced-repetition outcome and refreshes the
// objective's derived performance fields.
func (s *PerformanceService) RecordReview(userID uint, req ReviewRequest) (*model.Review, error) {
	obj, err := s.ObjectiveRepo.FindByID(req.ObjectiveID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrObjectiveNotFound
		}
		return nil, err
	}
	if obj.UserID != userID {
		return nil, util.ErrObjectiveNotFound
	}

	review := &model.Review{
		UserID:      userID,
		ObjectiveID: obj.ID,
		Outcome:     model.ReviewOutcome(req.Outcome),
		Urgency:     clamp01(req.Urgency),
		DurationMs:  req.DurationMs,
		Confidence:  req.Confidence,
		ReviewedAt:  time.Now(),
	}
	if err := s.ReviewRepo.Create(review); err != nil {
		return nil, err
	}

	if err := s.recomputeObjective(obj); err != nil {
		return nil, err
	}
	s.invalidateWeakAreaCache(userID)

	return review, nil
}

// UpdateAllPerformanceMetrics recomputes the derived fields for every
// objective the user owns. Safe to re-run: unchanged review data produces
// byte-identical rows.
func (s *PerformanceService) UpdateAllPerformanceMetrics(userID uint) error {
	objs, err := s.ObjectiveRepo.FindByUser(userID)
	if err != nil {
		return err
	}

	reviews, err := s.ReviewRepo.FindByUser(userID)
	if err != nil {
		return err
	}
	byObjective := make(map[uint][]*model.Review, len(objs))
	for _, rv := range reviews {
		byObjective[rv.ObjectiveID] = append(byObjective[rv.ObjectiveID], rv)
	}

	for _, obj := range objs {
		if err := s.applyAggregates(obj, byObjective[obj.ID]); err != nil {
			return err
		}
	}

	s.invalidateWeakAreaCache(userID)
	logger.Log.Info("performance metrics recomputed",
		zap.Uint("userID", userID),
		zap.Int("objectives", len(objs)))
	return nil
}

func (s *PerformanceService) recomputeObjective(obj *model.LearningObjective) error {
	reviews, err := s.ReviewRepo.FindByUserAndObjective(obj.UserID, obj.ID)
	if err != nil {
		return err
	}
	return s.applyAggregates(obj, reviews)
}

func (s *PerformanceService) applyAggregates(obj *model.LearningObjective, reviews []*model.Review) error {
	agg := aggregateReviews(reviews)
	retention := RetentionScore(reviews)

	obj.WeaknessScore = WeaknessScore(WeaknessInput{
		Retention:      retention,
		StudyTimeMs:    agg.StudyTimeMs,
		ExpectedTimeMs: expectedMasteryMs[obj.Complexity],
		Correct:        agg.Correct,
		Incorrect:      agg.Incorrect,
		Confidence:     agg.LatestConfidence,
	})
	obj.MasteryLevel = MasteryFor(retention, agg.ReviewCount)
	obj.TotalStudyTimeMs = agg.StudyTimeMs
	obj.LastStudiedAt = agg.LastReviewedAt

	if err := s.ObjectiveRepo.SavePerformance(obj); err != nil {
		return err
	}

	return s.upsertTodayMetric(obj, reviews)
}

// upsertTodayMetric writes the current day's aggregate row. Past days are
// never touched; their rows are immutable history.
func (s *PerformanceService) upsertTodayMetric(obj *model.LearningObjective, reviews []*model.Review) error {
	day := time.Now().Truncate(24 * time.Hour)

	var todays []*model.Review
	for _, rv := range reviews {
		if !rv.ReviewedAt.Before(day) {
			todays = append(todays, rv)
		}
	}
	if len(todays) == 0 {
		return nil
	}

	agg := aggregateReviews(todays)
	return s.MetricRepo.UpsertDaily(&model.PerformanceMetric{
		UserID:           obj.UserID,
		ObjectiveID:      obj.ID,
		Date:             day,
		RetentionScore:   RetentionScore(todays),
		StudyTimeMs:      agg.StudyTimeMs,
		ReviewCount:      agg.ReviewCount,
		CorrectReviews:   agg.Correct,
		IncorrectReviews: agg.Incorrect,
	})
}

// ObjectiveSummary is the read model for the weak-areas listing.
type ObjectiveSummary struct {
	ObjectiveID   uint               `json:"objectiveId"`
	CourseID      uint               `json:"courseId"`
	Description   string             `json:"description"`
	WeaknessScore float64            `json:"weaknessScore"`
	MasteryLevel  model.MasteryLevel `json:"masteryLevel"`
	LastStudiedAt *time.Time         `json:"lastStudiedAt,omitempty"`
}

// IdentifyWeakAreas lists objectives whose weakness exceeds the threshold,
// weakest first, stalest first on ties. Results are cached briefly since
// the dashboard polls this.
func (s *PerformanceService) IdentifyWeakAreas(userID uint, threshold float64) ([]ObjectiveSummary, error) {
	ctx := context.Background()
	cacheKey := fmt.Sprintf("americano:weakareas:%d:%.2f", userID, threshold)

	if s.Redis != nil {
		if cached, err := s.Redis.Get(ctx, cacheKey).Result(); err == nil {
			var summaries []ObjectiveSummary
			if json.Unmarshal([]byte(cached), &summaries) == nil {
				return summaries, nil
			}
		}
	}

	objs, err := s.ObjectiveRepo.FindWeakByUser(userID, threshold)
	if err != nil {
		return nil, err
	}

	summaries := make([]ObjectiveSummary, 0, len(objs))
	for _, obj := range objs {
		summaries = append(summaries, ObjectiveSummary{
			ObjectiveID:   obj.ID,
			CourseID:      obj.CourseID,
			Description:   obj.Description,
			WeaknessScore: obj.WeaknessScore,
			MasteryLevel:  obj.MasteryLevel,
			LastStudiedAt: obj.LastStudiedAt,
		})
	}

	if s.Redis != nil {
		if payload, err := json.Marshal(summaries); err == nil {
			s.Redis.Set(ctx, cacheKey, payload, weakAreaCacheTTL)
		}
	}

	return summaries, nil
}

func (s *PerformanceService) invalidateWeakAreaCache(userID uint) {
	if s.Redis == nil {
		return
	}
	ctx := context.Background()
	pattern := fmt.Sprintf("americano:weakareas:%d:*", userID)
	keys, err := s.Redis.Keys(ctx, pattern).Result()
	if err != nil {
		return
	}
	if len(keys) > 0 {
		s.Redis.Del(ctx, keys...)
	}
}

// DailyMetrics returns the persisted per-objective aggregates for one day.
func (s *PerformanceService) DailyMetrics(userID uint, date time.Time) ([]*model.PerformanceMetric, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return s.MetricRepo.FindByUserAndDate(userID, day)
}

// ObjectiveReviews returns the chronological history for one objective the
// user owns.
func (s *PerformanceService) ObjectiveReviews(userID, objectiveID uint) ([]*model.Review, error) {
	obj, err := s.ObjectiveRepo.FindByID(objectiveID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrObjectiveNotFound
		}
		return nil, err
	}
	if obj.UserID != userID {
		return nil, util.ErrObjectiveNotFound
	}
	return s.ReviewRepo.FindByUserAndObjective(userID, objectiveID)
}
