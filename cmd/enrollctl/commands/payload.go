package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dmehra2102/course-enrollment/internal/enrollment/domain"
)

type chargeEnvelope struct {
	Event string     `json:"event"`
	Data  chargeData `json:"data"`
}

type chargeData struct {
	Status   string         `json:"status"`
	Metadata chargeMetadata `json:"metadata"`
}

type chargeMetadata struct {
	CourseID string `json:"courseId"`
	UserID   string `json:"userId"`
}

// chargeSuccess builds the body a provider sends for a settled payment.
func chargeSuccess(courseID, userID string) ([]byte, error) {
	return json.Marshal(chargeEnvelope{
		Event: domain.EventChargeSuccess,
		Data: chargeData{
			Status:   domain.StatusSuccess,
			Metadata: chargeMetadata{CourseID: courseID, UserID: userID},
		},
	})
}

// readBody returns the file contents, or stdin when path is "-".
func readBody(in io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(in)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return b, nil
}
