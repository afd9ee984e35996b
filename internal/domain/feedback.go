package domain

import "time"

// FeedbackReport is the scored outcome of a session transcript.
type FeedbackReport struct {
	Clarity        int      `json:"clarity" yaml:"clarity"`
	Structure      int      `json:"structure" yaml:"structure"`
	Persuasiveness int      `json:"persuasiveness" yaml:"persuasiveness"`
	Fluency        int      `json:"fluency" yaml:"fluency"`
	Time           int      `json:"time" yaml:"time"`
	Overall        int      `json:"overall" yaml:"overall"`
	Tips           []string `json:"tips" yaml:"tips"`
}

// StoredFeedback is a persisted report for a session.
type StoredFeedback struct {
	SessionID string
	Report    FeedbackReport
	CreatedAt time.Time
	UpdatedAt time.Time
}
