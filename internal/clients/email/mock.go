package email

// MockClient is a mock implementation of the Client interface.
type MockClient struct {
	SendFunc func(to []string, subject, htmlBody string) error

	SendCount int
}

// NewMockClient creates a new MockClient.
func NewMockClient() *MockClient {
	return &MockClient{
		SendFunc: func(to []string, subject, htmlBody string) error {
			return nil
		},
	}
}

// Send calls the SendFunc.
func (m *MockClient) Send(to []string, subject, htmlBody string) error {
	m.SendCount++
	return m.SendFunc(to, subject, htmlBody)
}
