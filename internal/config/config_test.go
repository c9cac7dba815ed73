package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyMissionDefaults(t *testing.T) {
	var m MissionConfig
	applyMissionDefaults(&m)

	assert.Equal(t, 50, m.TargetMinutes)
	assert.Equal(t, 1.2, m.OverloadFactor)
	assert.Equal(t, 0.7, m.UnderloadFactor)
	assert.Equal(t, 20, m.CandidatePool)
	assert.Equal(t, 0.6, m.WeakThreshold)
}

func TestApplyMissionDefaultsKeepsConfiguredValues(t *testing.T) {
	m := MissionConfig{
		TargetMinutes:   90,
		OverloadFactor:  1.5,
		UnderloadFactor: 0.5,
		CandidatePool:   40,
		WeakThreshold:   0.8,
	}
	applyMissionDefaults(&m)

	assert.Equal(t, 90, m.TargetMinutes)
	assert.Equal(t, 1.5, m.OverloadFactor)
	assert.Equal(t, 0.5, m.UnderloadFactor)
	assert.Equal(t, 40, m.CandidatePool)
	assert.Equal(t, 0.8, m.WeakThreshold)
}
