package decision

import (
	"veritas/internal/caller"
	"veritas/internal/validation/catalog"
	"veritas/internal/validation/models"
)

// PhoneCompliancePolicy stamps the strict compliance rule on valid mobile
// numbers submitted by applications under the compliance regime.
type PhoneCompliancePolicy struct {
	strictApps map[string]struct{}
}

func NewPhoneCompliancePolicy(strictApps map[string]struct{}) *PhoneCompliancePolicy {
	return &PhoneCompliancePolicy{strictApps: strictApps}
}

func (p *PhoneCompliancePolicy) Name() string { return "phone_strict_compliance" }

func (p *PhoneCompliancePolicy) Evaluate(rec *models.ValidationRecord, c *caller.Caller) (Selection, bool) {
	if rec.ValidationType != models.TypePhone || !rec.IsValid {
		return Selection{}, false
	}
	if rec.DetailString("phone_type") != "mobile" {
		return Selection{}, false
	}
	if _, strict := p.strictApps[c.Name]; !strict {
		return Selection{}, false
	}
	return Selection{
		Code:       catalog.CodeTelCompliance,
		Parameters: map[string]any{"app": c.Name},
	}, true
}

// PostalEnrichmentPolicy stamps the enrichment rule when a postal code
// resolved against the directory for a caller trusted enough to consume the
// enriched payload.
type PostalEnrichmentPolicy struct{}

func NewPostalEnrichmentPolicy() *PostalEnrichmentPolicy { return &PostalEnrichmentPolicy{} }

func (p *PostalEnrichmentPolicy) Name() string { return "postal_code_enrichment" }

func (p *PostalEnrichmentPolicy) Evaluate(rec *models.ValidationRecord, c *caller.Caller) (Selection, bool) {
	if rec.ValidationType != models.TypePostalCode || !rec.IsValid {
		return Selection{}, false
	}
	if !rec.DetailBool("address_found") {
		return Selection{}, false
	}
	if c.Tier != caller.TierSystemOfRecord && c.Tier != caller.TierTrusted {
		return Selection{}, false
	}
	return Selection{
		Code:       catalog.CodeCepEnrichment,
		Parameters: map[string]any{"tier": string(c.Tier)},
	}, true
}
