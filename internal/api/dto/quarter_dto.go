package dto

import (
	"time"

	"github.com/Jlndre/Capstone-eLife/internal/domain"
)

// QuarterObligationResponse is one ledger row.
type QuarterObligationResponse struct {
	Quarter      string                  `json:"quarter"`
	Year         int                     `json:"year"`
	Label        string                  `json:"label"`
	Status       domain.ObligationStatus `json:"status"`
	DueDate      time.Time               `json:"due_date"`
	VerifiedAt   *time.Time              `json:"verified_at,omitempty"`
	SubmissionID *string                 `json:"submission_id,omitempty"`
}

func NewQuarterObligationResponses(rows []domain.QuarterObligation) []QuarterObligationResponse {
	out := make([]QuarterObligationResponse, 0, len(rows))
	for _, ob := range rows {
		out = append(out, QuarterObligationResponse{
			Quarter:      string(ob.Quarter),
			Year:         ob.Year,
			Label:        domain.QuarterPeriod{Quarter: ob.Quarter, Year: ob.Year}.Label(),
			Status:       ob.Status,
			DueDate:      ob.DueDate,
			VerifiedAt:   ob.VerifiedAt,
			SubmissionID: ob.SubmissionID,
		})
	}
	return out
}
