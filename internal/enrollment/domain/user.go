package domain

import (
	"slices"
	"time"
)

type UserAccount struct {
	ID              string
	Email           string
	Name            string
	EnrolledCourses []string
	CreatedAt       time.Time
}

func (u UserAccount) HasCourse(courseID string) bool {
	return slices.Contains(u.EnrolledCourses, courseID)
}
