package kv

import (
	"testing"

	"github.com/atasun/UltraDialer-sub011/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestCampaignFilter_Matches(t *testing.T) {
	running := &model.Campaign{Status: model.CampaignRunning, ScheduleEnabled: true, BatchJobID: "job-1"}
	noJob := &model.Campaign{Status: model.CampaignRunning, ScheduleEnabled: true}
	unscheduled := &model.Campaign{Status: model.CampaignRunning, BatchJobID: "job-2"}

	f := CampaignFilter{Status: model.CampaignRunning, ScheduleEnabled: Bool(true), HasBatchJob: true}
	assert.True(t, f.Matches(running))
	assert.False(t, f.Matches(noJob))
	assert.False(t, f.Matches(unscheduled))

	assert.True(t, CampaignFilter{}.Matches(noJob))
	assert.False(t, CampaignFilter{Status: model.CampaignPaused}.Matches(running))
}

func TestCallUpdate_Apply(t *testing.T) {
	r := &model.CallRecord{Status: model.CallPending, Metadata: map[string]any{"attempt": 1}}
	status := model.CallCompleted
	duration := 42

	CallUpdate{Status: &status, Duration: &duration}.Apply(r)

	assert.Equal(t, model.CallCompleted, r.Status)
	assert.Equal(t, 42, r.Duration)
	assert.Equal(t, "", r.ExternalConversationID)
	assert.Equal(t, map[string]any{"attempt": 1}, r.Metadata)
}
