package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yinkev/Americano-sub009/internal/model"
)

func TestScore(t *testing.T) {
	svc := NewPriorityService()

	urgency := func(v float64) *float64 { return &v }

	tests := []struct {
		name     string
		weakness float64
		urgency  *float64
		want     float64
	}{
		{"blend", 0.8, urgency(0.5), 0.7*0.5 + 0.3*0.8},
		{"fully due and fully weak", 1.0, urgency(1.0), 1.0},
		{"nothing due, nothing weak", 0.0, urgency(0.0), 0.0},
		{"never reviewed is fully due", 0.0, nil, 0.7},
		{"never reviewed but weak", 0.6, nil, 0.7 + 0.3*0.6},
		{"out-of-range inputs clamp", 3.0, urgency(-2.0), 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, svc.Score(tt.weakness, tt.urgency), 1e-9)
		})
	}
}

func TestRankOrdersByPriorityDescending(t *testing.T) {
	svc := NewPriorityService()

	candidates := []Candidate{
		{ObjectiveID: 1, Weakness: 0.1, Urgency: 0.1},
		{ObjectiveID: 2, Weakness: 0.9, Urgency: 0.9},
		{ObjectiveID: 3, Weakness: 0.5, Urgency: 0.5},
	}

	ranked := svc.Rank(candidates)
	require.Len(t, ranked, 3)
	assert.Equal(t, uint(2), ranked[0].ObjectiveID)
	assert.Equal(t, uint(3), ranked[1].ObjectiveID)
	assert.Equal(t, uint(1), ranked[2].ObjectiveID)

	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Priority, ranked[i].Priority)
	}
}

func TestRankBreaksTiesByObjectiveID(t *testing.T) {
	svc := NewPriorityService()

	candidates := []Candidate{
		{ObjectiveID: 42, Weakness: 0.5, Urgency: 0.5},
		{ObjectiveID: 7, Weakness: 0.5, Urgency: 0.5},
		{ObjectiveID: 19, Weakness: 0.5, Urgency: 0.5},
	}

	ranked := svc.Rank(candidates)
	require.Len(t, ranked, 3)
	assert.Equal(t, uint(7), ranked[0].ObjectiveID)
	assert.Equal(t, uint(19), ranked[1].ObjectiveID)
	assert.Equal(t, uint(42), ranked[2].ObjectiveID)
}

func TestRankDoesNotMutateInput(t *testing.T) {
	svc := NewPriorityService()

	candidates := []Candidate{
		{ObjectiveID: 1, Weakness: 0.2, Urgency: 0.2},
		{ObjectiveID: 2, Weakness: 0.8, Urgency: 0.8},
	}

	svc.Rank(candidates)
	assert.Equal(t, uint(1), candidates[0].ObjectiveID)
	assert.Zero(t, candidates[0].Priority)
}

func TestBuildCandidatesDefaultsMissingUrgency(t *testing.T) {
	svc := NewPriorityService()

	objs := []*model.LearningObjective{
		{BaseModel: model.BaseModel{ID: 1}, CourseID: 10, WeaknessScore: 0.4},
		{BaseModel: model.BaseModel{ID: 2}, CourseID: 11, WeaknessScore: 0.4},
	}
	latest := map[uint]float64{2: 0.3}

	candidates := svc.BuildCandidates(objs, latest)
	require.Len(t, candidates, 2)
	assert.Equal(t, 1.0, candidates[0].Urgency)
	assert.InDelta(t, 0.3, candidates[1].Urgency, 1e-9)

	ranked := svc.Rank(candidates)
	// The never-reviewed objective outranks the reviewed one at equal
	// weakness.
	assert.Equal(t, uint(1), ranked[0].ObjectiveID)
}
