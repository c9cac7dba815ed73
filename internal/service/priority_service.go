package service

import (
	"sort"

	"github.com/yinkev/Americano-sub009/internal/model"
)

// Blend weights for the ranking value. Due-ness dominates weakness so the
// spaced-repetition schedule is respected before remediation.
const (
	urgencyWeight  = 0.7
	weaknessWeight = 0.3
)

// Candidate is one objective eligible for mission selection, with the
// signals the composer needs.
type Candidate struct {
	ObjectiveID    uint
	CourseID       uint
	PrerequisiteID *uint
	Description    string
	Complexity     model.Complexity
	Mastery        model.MasteryLevel
	HighYield      bool
	Weakness       float64
	Urgency        float64
	Priority       float64
}

type PriorityService struct{}

func NewPriorityService() *PriorityService {
	return &PriorityService{}
}

// Score blends the scheduler's due-urgency with the weakness score. A nil
// urgency means the objective has never been reviewed; it is treated as
// fully due so new content is not starved by weak-but-reviewed material.
func (s *PriorityService) Score(weakness float64, urgency *float64) float64 {
	u := 1.0
	if urgency != nil {
		u = clamp01(*urgency)
	}
	return urgencyWeight*u + weaknessWeight*clamp01(weakness)
}

// Rank computes priorities and orders candidates descending. Equal
// priorities fall back to ascending objective ID so the ranking, and
// therefore mission composition, is deterministic day to day.
func (s *PriorityService) Rank(candidates []Candidate) []Candidate {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)

	for i := range ranked {
		u := ranked[i].Urgency
		ranked[i].Priority = s.Score(ranked[i].Weakness, &u)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Priority != ranked[j].Priority {
			return ranked[i].Priority > ranked[j].Priority
		}
		return ranked[i].ObjectiveID < ranked[j].ObjectiveID
	})

	return ranked
}

// BuildCandidates pairs each objective with its latest urgency signal.
// Objectives with no recorded review get no urgency entry and default to
// fully due inside Score.
func (s *PriorityService) BuildCandidates(objs []*model.LearningObjective, latestUrgency map[uint]float64) []Candidate {
	candidates := make([]Candidate, 0, len(objs))
	for _, obj := range objs {
		urgency := 1.0
		if u, ok := latestUrgency[obj.ID]; ok {
			urgency = clamp01(u)
		}
		candidates = append(candidates, Candidate{
			ObjectiveID:    obj.ID,
			CourseID:       obj.CourseID,
			PrerequisiteID: obj.PrerequisiteID,
			Description:    obj.Description,
			Complexity:     obj.Complexity,
			Mastery:        obj.MasteryLevel,
			HighYield:      obj.HighYield,
			Weakness:       obj.WeaknessScore,
			Urgency:        urgency,
		})
	}
	return candidates
}
