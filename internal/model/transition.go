package model

import "time"

// TransitionAction is the direction of a campaign transition.
type TransitionAction string

const (
	TransitionPause  TransitionAction = "pause"
	TransitionResume TransitionAction = "resume"
)

// Transition describes a pause or resume performed by the scheduler.
type Transition struct {
	Campaign Campaign
	Action   TransitionAction
	Reason   PauseReason
	At       time.Time
	// NextOpen is when the calling window opens again. Zero when unknown or
	// when the transition is a resume.
	NextOpen time.Time
}
