package domain

import "time"

const (
	EventChargeSuccess = "charge.success"
	StatusSuccess      = "success"
)

// InboundEvent is the decoded form of a verified webhook body. For kinds other
// than charge.success only Kind is populated.
type InboundEvent struct {
	Kind     string
	Status   string
	CourseID string
	UserID   string
}

func (e InboundEvent) IsChargeSuccess() bool {
	return e.Kind == EventChargeSuccess
}

const EventTypeEnrollmentGranted = "EnrollmentGranted"

type EnrollmentGranted struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	CourseID  string    `json:"course_id"`
	GrantedAt time.Time `json:"granted_at"`
}
