package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yinkev/Americano-sub009/internal/model"
)

const (
	testTarget    = 50
	testOverload  = 1.2
	testUnderload = 0.7
)

func compose(ranked []Candidate, prereq *Candidate) []Candidate {
	return composeMission(ranked, prereq, testTarget, testOverload, testUnderload)
}

func selectedIDs(selected []Candidate) []uint {
	ids := make([]uint, 0, len(selected))
	for _, c := range selected {
		ids = append(ids, c.ObjectiveID)
	}
	return ids
}

func totalMinutes(selected []Candidate) int {
	sum := 0
	for _, c := range selected {
		sum += EstimateMinutes(c.Complexity, c.Mastery)
	}
	return sum
}

func TestEstimateMinutes(t *testing.T) {
	tests := []struct {
		complexity model.Complexity
		mastery    model.MasteryLevel
		want       int
	}{
		{model.ComplexityBasic, model.MasteryNotStarted, 18},
		{model.ComplexityBasic, model.MasteryBeginner, 14},
		{model.ComplexityBasic, model.MasteryIntermediate, 12},
		{model.ComplexityBasic, model.MasteryAdvanced, 10},
		{model.ComplexityBasic, model.MasteryMastered, 8},
		{model.ComplexityIntermediate, model.MasteryNotStarted, 30},
		{model.ComplexityIntermediate, model.MasteryBeginner, 24},
		{model.ComplexityIntermediate, model.MasteryIntermediate, 20},
		{model.ComplexityIntermediate, model.MasteryAdvanced, 16},
		{model.ComplexityIntermediate, model.MasteryMastered, 14},
		{model.ComplexityAdvanced, model.MasteryNotStarted, 48},
		{model.ComplexityAdvanced, model.MasteryBeginner, 38},
		{model.ComplexityAdvanced, model.MasteryIntermediate, 32},
		{model.ComplexityAdvanced, model.MasteryAdvanced, 26},
		{model.ComplexityAdvanced, model.MasteryMastered, 22},
	}

	for _, tt := range tests {
		got := EstimateMinutes(tt.complexity, tt.mastery)
		assert.Equal(t, tt.want, got, "%s/%s", tt.complexity, tt.mastery)
	}
}

func TestComposeMissionEmptyCandidates(t *testing.T) {
	assert.Nil(t, compose(nil, nil))
	assert.Nil(t, compose([]Candidate{}, nil))
}

func TestComposeMissionSingleCandidate(t *testing.T) {
	ranked := []Candidate{
		{ObjectiveID: 1, CourseID: 1, Complexity: model.ComplexityBasic, Mastery: model.MasteryNotStarted, Priority: 0.9},
	}

	selected := compose(ranked, nil)
	require.Len(t, selected, 1)
	assert.Equal(t, uint(1), selected[0].ObjectiveID)
}

func TestComposeMissionFloorBeatsOverloadCap(t *testing.T) {
	// Two heavy fresh objectives blow through the 60-minute cap, but the
	// two-objective floor keeps them both.
	ranked := []Candidate{
		{ObjectiveID: 1, CourseID: 1, Complexity: model.ComplexityAdvanced, Mastery: model.MasteryNotStarted, Priority: 0.9},
		{ObjectiveID: 2, CourseID: 2, Complexity: model.ComplexityIntermediate, Mastery: model.MasteryNotStarted, Priority: 0.8},
		{ObjectiveID: 3, CourseID: 3, Complexity: model.ComplexityBasic, Mastery: model.MasteryNotStarted, Priority: 0.7},
		{ObjectiveID: 4, CourseID: 4, Complexity: model.ComplexityBasic, Mastery: model.MasteryNotStarted, Priority: 0.3},
		{ObjectiveID: 5, CourseID: 5, Complexity: model.ComplexityBasic, Mastery: model.MasteryNotStarted, Priority: 0.2},
	}

	selected := compose(ranked, nil)
	assert.Equal(t, []uint{1, 2}, selectedIDs(selected))
	assert.Equal(t, 78, totalMinutes(selected))
}

func TestComposeMissionSizeBounds(t *testing.T) {
	var ranked []Candidate
	for i := uint(1); i <= 10; i++ {
		ranked = append(ranked, Candidate{
			ObjectiveID: i,
			CourseID:    i,
			Complexity:  model.ComplexityBasic,
			Mastery:     model.MasteryMastered,
			Priority:    1.0 - float64(i)*0.05,
		})
	}

	selected := compose(ranked, nil)
	assert.GreaterOrEqual(t, len(selected), minMissionObjectives)
	assert.LessOrEqual(t, len(selected), maxMissionObjectives)
}

func TestComposeMissionFillsTowardUnderloadFloor(t *testing.T) {
	// Mastered basics are 8 minutes each. Even four of them sit under the
	// 35-minute floor, so the composer fills to the size cap and stops.
	var ranked []Candidate
	for i := uint(1); i <= 6; i++ {
		ranked = append(ranked, Candidate{
			ObjectiveID: i,
			CourseID:    i,
			Complexity:  model.ComplexityBasic,
			Mastery:     model.MasteryMastered,
			Priority:    1.0 - float64(i)*0.1,
		})
	}

	selected := compose(ranked, nil)
	assert.Equal(t, []uint{1, 2, 3, 4}, selectedIDs(selected))
	assert.Equal(t, 32, totalMinutes(selected))
}

func TestComposeMissionDropsLowestPriorityOnOverload(t *testing.T) {
	// Seed plus two high-yield picks total 112 minutes. The cap is 60, so
	// the composer sheds the lowest-priority pick until the floor stops it.
	ranked := []Candidate{
		{ObjectiveID: 1, CourseID: 1, Complexity: model.ComplexityAdvanced, Mastery: model.MasteryNotStarted, Priority: 0.9},
		{ObjectiveID: 2, CourseID: 2, Complexity: model.ComplexityAdvanced, Mastery: model.MasteryIntermediate, HighYield: true, Priority: 0.8},
		{ObjectiveID: 3, CourseID: 3, Complexity: model.ComplexityAdvanced, Mastery: model.MasteryIntermediate, HighYield: true, Priority: 0.6},
	}

	selected := compose(ranked, nil)
	assert.Equal(t, []uint{1, 2}, selectedIDs(selected))
}

func TestComposeMissionCourseVariety(t *testing.T) {
	ranked := []Candidate{
		{ObjectiveID: 1, CourseID: 1, Complexity: model.ComplexityBasic, Mastery: model.MasteryIntermediate, Priority: 0.9},
		{ObjectiveID: 2, CourseID: 1, Complexity: model.ComplexityBasic, Mastery: model.MasteryIntermediate, Priority: 0.8},
		{ObjectiveID: 3, CourseID: 2, Complexity: model.ComplexityBasic, Mastery: model.MasteryIntermediate, Priority: 0.7},
		{ObjectiveID: 4, CourseID: 2, Complexity: model.ComplexityBasic, Mastery: model.MasteryIntermediate, Priority: 0.6},
		{ObjectiveID: 5, CourseID: 3, Complexity: model.ComplexityBasic, Mastery: model.MasteryIntermediate, Priority: 0.5},
	}

	selected := compose(ranked, nil)

	courses := make(map[uint]int)
	for _, c := range selected {
		courses[c.CourseID]++
	}
	for courseID, n := range courses {
		assert.Equal(t, 1, n, "course %d selected more than once", courseID)
	}
	assert.Equal(t, []uint{1, 3, 5}, selectedIDs(selected))
}

func TestComposeMissionHighYieldReinforcement(t *testing.T) {
	ranked := []Candidate{
		{ObjectiveID: 1, CourseID: 1, Complexity: model.ComplexityIntermediate, Mastery: model.MasteryIntermediate, Priority: 0.9},
		{ObjectiveID: 2, CourseID: 2, Complexity: model.ComplexityBasic, Mastery: model.MasteryIntermediate, Priority: 0.8},
		{ObjectiveID: 3, CourseID: 3, Complexity: model.ComplexityBasic, Mastery: model.MasteryAdvanced, HighYield: true, Priority: 0.7},
		{ObjectiveID: 4, CourseID: 4, Complexity: model.ComplexityBasic, Mastery: model.MasteryAdvanced, HighYield: true, Priority: 0.6},
		{ObjectiveID: 5, CourseID: 5, Complexity: model.ComplexityBasic, Mastery: model.MasteryAdvanced, HighYield: true, Priority: 0.5},
	}

	selected := compose(ranked, nil)

	// Seed, then at most two high-yield picks ahead of the higher-ranked
	// non-high-yield candidate.
	assert.Equal(t, []uint{1, 3, 4}, selectedIDs(selected))
}

func TestComposeMissionHighYieldRequiresReviewHistory(t *testing.T) {
	ranked := []Candidate{
		{ObjectiveID: 1, CourseID: 1, Complexity: model.ComplexityIntermediate, Mastery: model.MasteryIntermediate, Priority: 0.9},
		{ObjectiveID: 2, CourseID: 2, Complexity: model.ComplexityIntermediate, Mastery: model.MasteryNotStarted, HighYield: true, Priority: 0.8},
		{ObjectiveID: 3, CourseID: 3, Complexity: model.ComplexityBasic, Mastery: model.MasteryIntermediate, Priority: 0.7},
	}

	selected := compose(ranked, nil)

	// Objective 2 is high-yield but untouched, so it is not a
	// reinforcement pick. It still enters through the normal fill, and
	// the mission is already in band at two objectives.
	assert.Equal(t, []uint{1, 2}, selectedIDs(selected))
}

func TestComposeMissionPrerequisiteFirst(t *testing.T) {
	prereqID := uint(9)
	ranked := []Candidate{
		{ObjectiveID: 1, CourseID: 1, PrerequisiteID: &prereqID, Complexity: model.ComplexityIntermediate, Mastery: model.MasteryIntermediate, Priority: 0.9},
		{ObjectiveID: 2, CourseID: 2, Complexity: model.ComplexityIntermediate, Mastery: model.MasteryIntermediate, Priority: 0.8},
	}
	prereq := &Candidate{ObjectiveID: 9, CourseID: 3, Complexity: model.ComplexityBasic, Mastery: model.MasteryBeginner, Priority: 0.2}

	selected := compose(ranked, prereq)
	require.NotEmpty(t, selected)
	assert.Equal(t, uint(9), selected[0].ObjectiveID)
	assert.Contains(t, selectedIDs(selected), uint(1))
}

func TestComposeMissionMasteredPrerequisiteSkipped(t *testing.T) {
	ranked := []Candidate{
		{ObjectiveID: 1, CourseID: 1, Complexity: model.ComplexityIntermediate, Mastery: model.MasteryIntermediate, Priority: 0.9},
		{ObjectiveID: 2, CourseID: 2, Complexity: model.ComplexityIntermediate, Mastery: model.MasteryIntermediate, Priority: 0.8},
	}
	prereq := &Candidate{ObjectiveID: 9, CourseID: 3, Complexity: model.ComplexityBasic, Mastery: model.MasteryMastered, Priority: 0.2}

	selected := compose(ranked, prereq)
	assert.NotContains(t, selectedIDs(selected), uint(9))
}

func TestComposeMissionPrerequisiteRespectsCourseVariety(t *testing.T) {
	ranked := []Candidate{
		{ObjectiveID: 1, CourseID: 1, Complexity: model.ComplexityIntermediate, Mastery: model.MasteryIntermediate, Priority: 0.9},
		{ObjectiveID: 2, CourseID: 2, Complexity: model.ComplexityIntermediate, Mastery: model.MasteryIntermediate, Priority: 0.8},
	}
	// Same course as the seed, so inserting it would double up course 1.
	prereq := &Candidate{ObjectiveID: 9, CourseID: 1, Complexity: model.ComplexityBasic, Mastery: model.MasteryBeginner, Priority: 0.2}

	selected := compose(ranked, prereq)
	assert.NotContains(t, selectedIDs(selected), uint(9))
}

func TestComposeMissionDeterministic(t *testing.T) {
	prereqID := uint(9)
	ranked := []Candidate{
		{ObjectiveID: 1, CourseID: 1, PrerequisiteID: &prereqID, Complexity: model.ComplexityAdvanced, Mastery: model.MasteryBeginner, Priority: 0.9},
		{ObjectiveID: 2, CourseID: 2, Complexity: model.ComplexityIntermediate, Mastery: model.MasteryIntermediate, HighYield: true, Priority: 0.8},
		{ObjectiveID: 3, CourseID: 3, Complexity: model.ComplexityBasic, Mastery: model.MasteryAdvanced, Priority: 0.7},
		{ObjectiveID: 4, CourseID: 4, Complexity: model.ComplexityBasic, Mastery: model.MasteryMastered, HighYield: true, Priority: 0.6},
	}
	prereq := &Candidate{ObjectiveID: 9, CourseID: 5, Complexity: model.ComplexityBasic, Mastery: model.MasteryBeginner, Priority: 0.3}

	first := compose(ranked, prereq)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, compose(ranked, prereq))
	}
}

func TestBuildMission(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	selected := []Candidate{
		{ObjectiveID: 3, CourseID: 1, Complexity: model.ComplexityAdvanced, Mastery: model.MasteryNotStarted},
		{ObjectiveID: 7, CourseID: 2, Complexity: model.ComplexityBasic, Mastery: model.MasteryMastered},
	}

	mission := buildMission(42, day, testTarget, selected)

	assert.Equal(t, uint(42), mission.UserID)
	assert.True(t, mission.Date.Equal(day))
	assert.Equal(t, model.MissionPending, mission.Status)
	assert.Equal(t, testTarget, mission.TargetMinutes)
	assert.NotEmpty(t, mission.GenerationToken)
	assert.Equal(t, 48+8, mission.TotalEstimatedMinutes)

	require.Len(t, mission.Objectives, 2)
	assert.Equal(t, uint(3), mission.Objectives[0].ObjectiveID)
	assert.Equal(t, 0, mission.Objectives[0].OrderIndex)
	assert.Equal(t, 48, mission.Objectives[0].EstimatedMinutes)
	assert.Equal(t, uint(7), mission.Objectives[1].ObjectiveID)
	assert.Equal(t, 1, mission.Objectives[1].OrderIndex)
	assert.Equal(t, 8, mission.Objectives[1].EstimatedMinutes)
}

func TestBuildMissionEmptySelection(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	mission := buildMission(42, day, testTarget, nil)

	assert.Equal(t, model.MissionPending, mission.Status)
	assert.Empty(t, mission.Objectives)
	assert.Zero(t, mission.TotalEstimatedMinutes)
}

func TestMissionDateNormalizes(t *testing.T) {
	in := time.Date(2026, 3, 14, 17, 45, 12, 999, time.FixedZone("x", 3600))
	day := missionDate(in)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), day)

	today := missionDate(time.Time{})
	assert.Equal(t, 0, today.Hour())
	assert.Equal(t, time.UTC, today.Location())
}

func TestMissionStatusTerminal(t *testing.T) {
	assert.False(t, model.MissionPending.Terminal())
	assert.False(t, model.MissionInProgress.Terminal())
	assert.True(t, model.MissionCompleted.Terminal())
	assert.True(t, model.MissionSkipped.Terminal())
}
