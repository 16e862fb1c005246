// Package models defines the validation record, the central entity of the
// service. A record is one submission of one value by one caller, annotated
// with the validator verdict, the applied business rule, lifecycle flags and
// golden election state.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ValidationType enumerates the supported data kinds.
type ValidationType string

const (
	TypePhone      ValidationType = "phone"
	TypeTaxID      ValidationType = "tax_id"
	TypeEmail      ValidationType = "email"
	TypePostalCode ValidationType = "postal_code"
	TypeAddress    ValidationType = "address"
)

// ParseValidationType validates a wire value against the known set.
func ParseValidationType(s string) (ValidationType, bool) {
	switch vt := ValidationType(s); vt {
	case TypePhone, TypeTaxID, TypeEmail, TypePostalCode, TypeAddress:
		return vt, true
	}
	return "", false
}

// AddressInput is the structured payload for address validations.
type AddressInput struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
}

// ValidationRecord is one immutable-ish submission. After creation only the
// lifecycle flags (is_deleted, deleted_at) and election state (is_golden,
// golden_record_id, updated_at) change.
type ValidationRecord struct {
	ID             uuid.UUID
	ValidationType ValidationType

	RawValue        string
	NormalizedValue string // empty when normalization failed
	IsValid         bool
	Message         string
	Details         map[string]any
	Source          string

	RuleCode        string
	RuleDescription string
	RuleType        string
	RuleParameters  map[string]any

	SubmittingApp    string
	ClientIdentifier string
	RequestID        string

	IsDeleted bool
	DeletedAt *time.Time

	IsGolden       bool
	GoldenRecordID *uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// GroupKey identifies the election group a record belongs to. Records with
// an empty normalized value never group (each failed normalization stands
// alone and never participates in elections).
func (r *ValidationRecord) GroupKey() string {
	if r.NormalizedValue == "" {
		return ""
	}
	return GroupKey(r.NormalizedValue, r.ValidationType)
}

// GroupKey builds the composite key for (normalized value, validation type).
func GroupKey(normalized string, vt ValidationType) string {
	return string(vt) + ":" + normalized
}

// Clone returns a deep copy so stores can hand out records without sharing
// mutable maps.
func (r *ValidationRecord) Clone() *ValidationRecord {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Details != nil {
		cp.Details = make(map[string]any, len(r.Details))
		for k, v := range r.Details {
			cp.Details[k] = v
		}
	}
	if r.RuleParameters != nil {
		cp.RuleParameters = make(map[string]any, len(r.RuleParameters))
		for k, v := range r.RuleParameters {
			cp.RuleParameters[k] = v
		}
	}
	if r.DeletedAt != nil {
		t := *r.DeletedAt
		cp.DeletedAt = &t
	}
	if r.GoldenRecordID != nil {
		id := *r.GoldenRecordID
		cp.GoldenRecordID = &id
	}
	return &cp
}

// DetailBool reads a boolean detail, tolerating absence.
func (r *ValidationRecord) DetailBool(key string) bool {
	v, ok := r.Details[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// DetailString reads a string detail, tolerating absence.
func (r *ValidationRecord) DetailString(key string) string {
	v, ok := r.Details[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
