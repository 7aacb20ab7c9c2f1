package email

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/atasun/UltraDialer-sub011/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPClient_Send(t *testing.T) {
	c := NewClient("smtp.example.com", 587, "", "", "dialer@example.com")

	var sent []string
	c.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		assert.Equal(t, "smtp.example.com:587", addr)
		assert.Nil(t, a)
		assert.Equal(t, "dialer@example.com", from)
		if to[0] == "broken@example.com" {
			return errors.New("mailbox unavailable")
		}
		sent = append(sent, string(msg))
		return nil
	}

	err := c.Send([]string{"ops@example.com", "broken@example.com"}, "Hello", "<p>Hi</p>")
	assert.ErrorContains(t, err, "broken@example.com")

	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "To: ops@example.com\r\n")
	assert.Contains(t, sent[0], "Subject: Hello\r\n")
	assert.Contains(t, sent[0], "Content-Type: text/html")
	assert.Contains(t, sent[0], "\r\n\r\n<p>Hi</p>")
}

func TestNotifier_NotifyTransition(t *testing.T) {
	mockClient := NewMockClient()
	var gotTo []string
	var gotSubject, gotBody string
	mockClient.SendFunc = func(to []string, subject, htmlBody string) error {
		gotTo, gotSubject, gotBody = to, subject, htmlBody
		return nil
	}

	n := NewNotifier(mockClient, []string{"ops@example.com"}, "")
	err := n.NotifyTransition(context.Background(), model.Transition{
		Campaign: model.Campaign{ID: "spring", Name: "Spring", ScheduleTimezone: "America/New_York"},
		Action:   model.TransitionPause,
		Reason:   model.PauseReasonScheduled,
		At:       time.Date(2024, 6, 3, 21, 1, 0, 0, time.UTC),
		NextOpen: time.Date(2024, 6, 4, 13, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, mockClient.SendCount)
	assert.Equal(t, []string{"ops@example.com"}, gotTo)
	assert.Equal(t, "[Spring] campaign paused", gotSubject)
	assert.Contains(t, gotBody, "<strong>Spring</strong>")
	assert.Contains(t, gotBody, "Mon 03 Jun 17:01 EDT")
	assert.Contains(t, gotBody, "Tue 04 Jun 09:00 EDT")
}

func TestNotifier_SendError(t *testing.T) {
	mockClient := NewMockClient()
	mockClient.SendFunc = func([]string, string, string) error {
		return errors.New("connection refused")
	}

	n := NewNotifier(mockClient, []string{"ops@example.com"}, "")
	err := n.NotifyTransition(context.Background(), model.Transition{
		Campaign: model.Campaign{Name: "Spring"},
		Action:   model.TransitionResume,
		Reason:   model.PauseReasonScheduled,
		At:       time.Now(),
	})
	assert.ErrorContains(t, err, "connection refused")
}
