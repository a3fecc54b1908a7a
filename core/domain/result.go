package domain

import "github.com/google/uuid"

// Stage names the pipeline stage a failure is attributed to
type Stage string

const (
	StageIntake         Stage = "intake"
	StageClassification Stage = "classification"
	StageRouting        Stage = "routing"
	StageGeneration     Stage = "generation"
	StagePublishing     Stage = "publishing"
	StagePersistence    Stage = "persistence"
)

// RecordIDs are the persisted row identifiers for a processed email
type RecordIDs struct {
	EmailID    uuid.UUID `json:"email_id"`
	ResponseID uuid.UUID `json:"response_id"`
}

// ProcessingResult is the structured outcome of one pipeline run.
// Success carries the classification and published draft. Failure names
// the stage and error, and keeps whatever was produced before the fault
// so no generated text is lost.
type ProcessingResult struct {
	Success bool  `json:"success"`
	Stage   Stage `json:"stage,omitempty"`
	Err     error `json:"-"`

	Classification *Classification `json:"classification,omitempty"`
	Draft          *ResponseDraft  `json:"draft,omitempty"`
	DraftID        string          `json:"draft_id,omitempty"`
	Records        *RecordIDs      `json:"records,omitempty"`
}

func SuccessResult(cls *Classification, draft *ResponseDraft, draftID string, records *RecordIDs) *ProcessingResult {
	return &ProcessingResult{
		Success:        true,
		Classification: cls,
		Draft:          draft,
		DraftID:        draftID,
		Records:        records,
	}
}

func FailureResult(stage Stage, err error) *ProcessingResult {
	return &ProcessingResult{
		Success: false,
		Stage:   stage,
		Err:     err,
	}
}
