package application

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmehra2102/course-enrollment/internal/enrollment/domain"
)

type envelope struct {
	Event *string         `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Fields below data stay raw so a wrong type is reported as bad metadata
// rather than a malformed body.
type chargeData struct {
	Status   json.RawMessage `json:"status"`
	Metadata json.RawMessage `json:"metadata"`
}

type chargeMetadata struct {
	CourseID string `json:"courseId"`
	UserID   string `json:"userId"`
}

// Decode parses a verified webhook body. Structural problems yield
// domain.ErrMalformedPayload; a well-formed charge.success event lacking the
// enrollment fields yields domain.ErrInvalidMetadata.
func Decode(body []byte) (domain.InboundEvent, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.InboundEvent{}, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if env.Event == nil {
		return domain.InboundEvent{}, fmt.Errorf("%w: missing event", domain.ErrMalformedPayload)
	}

	ev := domain.InboundEvent{Kind: *env.Event}
	if !ev.IsChargeSuccess() {
		return ev, nil
	}

	raw := bytes.TrimSpace(env.Data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ev, fmt.Errorf("%w: missing data", domain.ErrInvalidMetadata)
	}
	var data chargeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return ev, fmt.Errorf("%w: data: %v", domain.ErrMalformedPayload, err)
	}

	if err := json.Unmarshal(data.Status, &ev.Status); err != nil {
		return ev, fmt.Errorf("%w: status: %v", domain.ErrInvalidMetadata, err)
	}
	if ev.Status != domain.StatusSuccess {
		return ev, fmt.Errorf("%w: status %q", domain.ErrInvalidMetadata, ev.Status)
	}

	meta := bytes.TrimSpace(data.Metadata)
	if len(meta) == 0 || bytes.Equal(meta, []byte("null")) {
		return ev, fmt.Errorf("%w: missing metadata", domain.ErrInvalidMetadata)
	}
	var m chargeMetadata
	if err := json.Unmarshal(meta, &m); err != nil {
		return ev, fmt.Errorf("%w: metadata: %v", domain.ErrInvalidMetadata, err)
	}
	// Identifiers are kept exactly as signed; whitespace only counts as blank.
	if strings.TrimSpace(m.CourseID) == "" {
		return ev, fmt.Errorf("%w: missing courseId", domain.ErrInvalidMetadata)
	}
	if strings.TrimSpace(m.UserID) == "" {
		return ev, fmt.Errorf("%w: missing userId", domain.ErrInvalidMetadata)
	}
	ev.CourseID = m.CourseID
	ev.UserID = m.UserID
	return ev, nil
}
