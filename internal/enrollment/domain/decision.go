package domain

type Outcome string

const (
	OutcomeIgnored         Outcome = "ignored"
	OutcomeAlreadyEnrolled Outcome = "already_enrolled"
	OutcomeNewlyEnrolled   Outcome = "newly_enrolled"
)

type Decision struct {
	Outcome  Outcome
	UserID   string
	CourseID string
}

func (d Decision) Enrolled() bool {
	return d.Outcome == OutcomeAlreadyEnrolled || d.Outcome == OutcomeNewlyEnrolled
}
