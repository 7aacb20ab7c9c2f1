// Package processor renders notification text.
package processor

// Processor transforms content, optionally using data.
type Processor interface {
	Process(content string, data any) (string, error)
}

// Stack is a slice of processors that are applied in sequence.
type Stack []Processor

// Process applies all the processors in the stack to the content.
func (s Stack) Process(content string, data any) (string, error) {
	var err error
	for _, p := range s {
		content, err = p.Process(content, data)
		if err != nil {
			return "", err
		}
	}
	return content, nil
}
