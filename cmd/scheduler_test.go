package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/atasun/UltraDialer-sub011/internal/clients/email"
	"github.com/atasun/UltraDialer-sub011/internal/clients/slack"
	"github.com/atasun/UltraDialer-sub011/internal/model"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// configureProvider points the provider client at a test server answering with body.
func configureProvider(t *testing.T, body string) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	viper.Set("provider.base_url", server.URL)
	viper.Set("provider.api_key", "secret")
	t.Cleanup(viper.Reset)
}

func TestSchedulerTick_Reconciles(t *testing.T) {
	ctx := context.Background()
	mockStore := useMockStore(t)
	configureProvider(t, `{
		"id": "job-1",
		"status": "in_progress",
		"recipients": [
			{"id": "r1", "phone_number": "+15551234567", "status": "completed", "conversation_id": "conv-1", "call_duration_secs": 42}
		]
	}`)

	require.NoError(t, mockStore.PutCampaign(ctx, &model.Campaign{ID: "spring", Name: "Spring", Status: model.CampaignRunning, BatchJobID: "job-1"}))
	require.NoError(t, mockStore.PutCall(ctx, &model.CallRecord{ID: "call-1", CampaignID: "spring", PhoneNumber: "+15551234567", Status: model.CallPending}))

	require.NoError(t, doSchedulerTick(ctx))

	calls, err := mockStore.ListCalls(ctx, "spring")
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, model.CallCompleted, calls[0].Status)
	assert.Equal(t, 42, calls[0].Duration)
	assert.Equal(t, "conv-1", calls[0].ExternalConversationID)
}

func TestSchedulerTick_NotifiesSlack(t *testing.T) {
	ctx := context.Background()
	mockStore := useMockStore(t)
	configureProvider(t, `{"id": "job-1", "status": "in_progress", "recipients": []}`)
	viper.Set("notify.slack.token", "xoxb-test")
	viper.Set("notify.slack.channel", "#dialer")

	var mu sync.Mutex
	var posted []string
	mockSlack := slack.NewMockClient()
	mockSlack.PostMessageFunc = func(ctx context.Context, channel, text string) (string, string, error) {
		mu.Lock()
		defer mu.Unlock()
		posted = append(posted, channel+": "+text)
		return channel, "1.0", nil
	}
	original := newSlackClient
	newSlackClient = func(string) slack.Client { return mockSlack }
	t.Cleanup(func() { newSlackClient = original })

	// A window that starts after it ends never opens.
	require.NoError(t, mockStore.PutCampaign(ctx, &model.Campaign{
		ID:                "closed",
		Name:              "Closed",
		Status:            model.CampaignRunning,
		ScheduleEnabled:   true,
		ScheduleTimeStart: "23:59",
		ScheduleTimeEnd:   "00:00",
		BatchJobID:        "job-1",
	}))

	require.NoError(t, doSchedulerTick(ctx))

	c, err := mockStore.GetCampaign(ctx, "closed")
	require.NoError(t, err)
	assert.Equal(t, model.CampaignPaused, c.Status)
	assert.Equal(t, model.PauseReasonScheduled, c.PauseReason())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, posted, 1)
	assert.Contains(t, posted[0], "#dialer: Paused *Closed* (scheduled).")
}

func TestSchedulerTick_RequiresProvider(t *testing.T) {
	useMockStore(t)
	viper.Set("provider.base_url", "")
	t.Cleanup(viper.Reset)

	err := doSchedulerTick(context.Background())
	assert.ErrorContains(t, err, "provider")
}

func TestBuildScheduler_SlackNeedsChannel(t *testing.T) {
	mockStore := useMockStore(t)
	configureProvider(t, `{}`)
	viper.Set("notify.slack.token", "xoxb-test")

	_, _, err := buildScheduler(mockStore)
	assert.ErrorContains(t, err, "notify.slack.channel")
}

func TestSchedulerTick_NotifiesEmail(t *testing.T) {
	ctx := context.Background()
	mockStore := useMockStore(t)
	configureProvider(t, `{"id": "job-1", "status": "in_progress", "recipients": []}`)
	viper.Set("notify.email.host", "smtp.example.com")
	viper.Set("notify.email.to", []string{"ops@example.com"})

	mockEmail := email.NewMockClient()
	original := newEmailClient
	newEmailClient = func(host string, port int, username, password, from string) email.Client {
		assert.Equal(t, "smtp.example.com", host)
		return mockEmail
	}
	t.Cleanup(func() { newEmailClient = original })

	require.NoError(t, mockStore.PutCampaign(ctx, &model.Campaign{
		ID:                "closed",
		Name:              "Closed",
		Status:            model.CampaignRunning,
		ScheduleEnabled:   true,
		ScheduleTimeStart: "23:59",
		ScheduleTimeEnd:   "00:00",
		BatchJobID:        "job-1",
	}))

	require.NoError(t, doSchedulerTick(ctx))
	assert.Equal(t, 1, mockEmail.SendCount)
}
