package meeting

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/meetcal/meetsync/internal/apperr"
)

// Request is the inbound meeting-creation payload. It is transient and
// never persisted.
type Request struct {
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	StartTime   string   `json:"startTime"`
	EndTime     string   `json:"endTime"`
	Attendees   []string `json:"attendees"`
}

// One local part, one @, one dotted domain. Deliverability is the
// provider's concern.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// validate checks the request shape before any network call and returns
// the parsed start and end times.
func validate(req *Request) (start, end time.Time, err error) {
	if strings.TrimSpace(req.Summary) == "" {
		return start, end, apperr.New(apperr.CodeValidation, "summary is required")
	}
	if req.StartTime == "" || req.EndTime == "" {
		return start, end, apperr.New(apperr.CodeValidation, "startTime and endTime are required")
	}

	start, err = time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return start, end, apperr.Wrap(apperr.CodeValidation,
			fmt.Sprintf("invalid startTime %q, expected RFC3339", req.StartTime), err)
	}
	end, err = time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		return start, end, apperr.Wrap(apperr.CodeValidation,
			fmt.Sprintf("invalid endTime %q, expected RFC3339", req.EndTime), err)
	}
	if !start.Before(end) {
		return start, end, apperr.New(apperr.CodeValidation, "startTime must be before endTime")
	}

	if len(req.Attendees) == 0 {
		return start, end, apperr.New(apperr.CodeValidation, "at least one attendee is required")
	}
	for _, attendee := range req.Attendees {
		if !emailPattern.MatchString(attendee) {
			return start, end, apperr.Newf(apperr.CodeValidation, "invalid attendee email: %q", attendee)
		}
	}

	return start, end, nil
}
