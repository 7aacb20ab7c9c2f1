package slack

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"
)

// Client is an interface that defines the methods for interacting with the Slack API.
type Client interface {
	PostMessage(ctx context.Context, channel, text string) (string, string, error)
	GetChannelID(ctx context.Context, channelName string) (string, error)
}

// client is the concrete implementation of the Client interface.
type client struct {
	api *slack.Client
}

// NewClient creates a new Slack client.
func NewClient(token string) Client {
	return &client{
		api: slack.New(token),
	}
}

// PostMessage sends a message to a Slack channel and returns the channel ID
// and message timestamp.
func (c *client) PostMessage(ctx context.Context, channel, text string) (string, string, error) {
	channelID, err := c.GetChannelID(ctx, channel)
	if err != nil {
		return "", "", fmt.Errorf("failed to get channel id: %w", err)
	}

	_, timestamp, err := c.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}
	return channelID, timestamp, nil
}

// GetChannelID retrieves the ID of a channel given its name. Names without a
// leading "#" are assumed to be IDs already.
func (c *client) GetChannelID(ctx context.Context, channelName string) (string, error) {
	if !strings.HasPrefix(channelName, "#") {
		return channelName, nil
	}

	var channels []slack.Channel
	params := &slack.GetConversationsParameters{
		Limit: 1000,
		Types: []string{"public_channel", "private_channel"},
	}
	for {
		page, nextCursor, err := c.api.GetConversationsContext(ctx, params)
		if err != nil {
			return "", fmt.Errorf("failed to get conversations: %w", err)
		}
		channels = append(channels, page...)
		if nextCursor == "" {
			break
		}
		params.Cursor = nextCursor
	}

	// Normalize channel name for case-insensitive comparison.
	normalizedChannelName := strings.TrimPrefix(strings.ToLower(channelName), "#")

	for _, channel := range channels {
		if strings.ToLower(channel.Name) == normalizedChannelName {
			return channel.ID, nil
		}
	}

	return "", fmt.Errorf("channel '%s' not found", channelName)
}
