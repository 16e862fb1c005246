package validation

import (
	"time"

	"github.com/google/uuid"

	"veritas/internal/validation/decision"
	"veritas/internal/validation/models"
)

// ValidateRequest is the submission payload.
type ValidateRequest struct {
	ValidationType   string               `json:"validation_type"`
	Value            string               `json:"value,omitempty"`
	Address          *models.AddressInput `json:"address,omitempty"`
	ClientIdentifier string               `json:"client_identifier,omitempty"`
}

// RuleResponse is the applied business rule on a record.
type RuleResponse struct {
	Code        string         `json:"code"`
	Description string         `json:"description,omitempty"`
	Type        string         `json:"type,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// RecordResponse is the wire form of a validation record.
type RecordResponse struct {
	ID               uuid.UUID      `json:"id"`
	ValidationType   string         `json:"validation_type"`
	RawValue         string         `json:"raw_value"`
	NormalizedValue  string         `json:"normalized_value,omitempty"`
	IsValid          bool           `json:"is_valid"`
	Message          string         `json:"message"`
	Details          map[string]any `json:"details,omitempty"`
	Source           string         `json:"source"`
	Rule             RuleResponse   `json:"rule"`
	SubmittingApp    string         `json:"submitting_app"`
	ClientIdentifier string         `json:"client_identifier,omitempty"`
	RequestID        string         `json:"request_id,omitempty"`
	IsDeleted        bool           `json:"is_deleted"`
	DeletedAt        *time.Time     `json:"deleted_at,omitempty"`
	IsGolden         bool           `json:"is_golden"`
	GoldenRecordID   *uuid.UUID     `json:"golden_record_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// ActionsResponse reports the ancillary decision engine actions.
type ActionsResponse struct {
	SoftDeleted       bool       `json:"soft_deleted"`
	DuplicateChecked  bool       `json:"duplicate_checked"`
	DuplicateFound    bool       `json:"duplicate_found"`
	DuplicateRecordID *uuid.UUID `json:"duplicate_record_id,omitempty"`
	DuplicateError    string     `json:"duplicate_error,omitempty"`
}

// GoldenResponse summarizes the group's golden record.
type GoldenResponse struct {
	RecordID        uuid.UUID `json:"record_id"`
	RawValue        string    `json:"raw_value"`
	NormalizedValue string    `json:"normalized_value"`
	IsValid         bool      `json:"is_valid"`
	SubmittingApp   string    `json:"submitting_app"`
	CreatedAt       time.Time `json:"created_at"`
}

// ValidateResponse is the submission result.
type ValidateResponse struct {
	Record  RecordResponse  `json:"record"`
	Actions ActionsResponse `json:"actions"`
	Golden  *GoldenResponse `json:"golden,omitempty"`
}

// HistoryResponse wraps a history page.
type HistoryResponse struct {
	Records []RecordResponse `json:"records"`
}

func toRecordResponse(rec *models.ValidationRecord) RecordResponse {
	return RecordResponse{
		ID:              rec.ID,
		ValidationType:  string(rec.ValidationType),
		RawValue:        rec.RawValue,
		NormalizedValue: rec.NormalizedValue,
		IsValid:         rec.IsValid,
		Message:         rec.Message,
		Details:         rec.Details,
		Source:          rec.Source,
		Rule: RuleResponse{
			Code:        rec.RuleCode,
			Description: rec.RuleDescription,
			Type:        rec.RuleType,
			Parameters:  rec.RuleParameters,
		},
		SubmittingApp:    rec.SubmittingApp,
		ClientIdentifier: rec.ClientIdentifier,
		RequestID:        rec.RequestID,
		IsDeleted:        rec.IsDeleted,
		DeletedAt:        rec.DeletedAt,
		IsGolden:         rec.IsGolden,
		GoldenRecordID:   rec.GoldenRecordID,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
}

func toActionsResponse(a decision.Actions) ActionsResponse {
	return ActionsResponse{
		SoftDeleted:       a.SoftDeleted,
		DuplicateChecked:  a.DuplicateChecked,
		DuplicateFound:    a.DuplicateFound,
		DuplicateRecordID: a.DuplicateRecordID,
		DuplicateError:    a.DuplicateError,
	}
}

func toGoldenResponse(rec *models.ValidationRecord) *GoldenResponse {
	if rec == nil {
		return nil
	}
	return &GoldenResponse{
		RecordID:        rec.ID,
		RawValue:        rec.RawValue,
		NormalizedValue: rec.NormalizedValue,
		IsValid:         rec.IsValid,
		SubmittingApp:   rec.SubmittingApp,
		CreatedAt:       rec.CreatedAt,
	}
}
