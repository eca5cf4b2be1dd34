package model

import "time"

const (
	LabelPunchIn        = "Punch In"
	LabelPunchOut       = "Punch Out"
	LabelPunchOutAgain  = "Punch Out Again"
	EmptyElapsedDisplay = "00:00:00"
)

// ClockHands are the analog clock angles in degrees.
type ClockHands struct {
	Second float64 `json:"second"`
	Minute float64 `json:"minute"`
	Hour   float64 `json:"hour"`
}

// SessionState is the derived view of the punch session.
type SessionState struct {
	Phase          Phase      `json:"phase"`
	PunchInTime    string     `json:"punchInTime"`
	PunchOutTime   string     `json:"punchOutTime"`
	ElapsedSeconds int64      `json:"elapsedSeconds"`
	Elapsed        string     `json:"elapsed"`
	NextAction     Action     `json:"nextAction"`
	ButtonLabel    string     `json:"buttonLabel"`
	DoneForDay     bool       `json:"doneForDay"`
	Busy           bool       `json:"busy"`
	Now            time.Time  `json:"now"`
	Hands          ClockHands `json:"hands"`
}
