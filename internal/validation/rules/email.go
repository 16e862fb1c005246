package rules

import (
	"context"
	"net/mail"
	"strings"

	"veritas/internal/validation/catalog"
	"veritas/internal/validation/models"
	"veritas/internal/validation/refdata"
)

const emailSource = "email_validator"

// EmailValidator validates email addresses: lowercase normalization, RFC
// syntax via net/mail, and configurable domain deny/allow lists. Domain
// resolvability is recorded as a detail, not a rejection.
type EmailValidator struct {
	directory    refdata.Directory
	denyDomains  map[string]struct{}
	allowDomains map[string]struct{}
}

// NewEmailValidator builds the validator. An empty allow set disables
// allow-list enforcement; an empty deny set disables the disposable check.
func NewEmailValidator(directory refdata.Directory, deny, allow map[string]struct{}) *EmailValidator {
	return &EmailValidator{directory: directory, denyDomains: deny, allowDomains: allow}
}

func (v *EmailValidator) Type() models.ValidationType { return models.TypeEmail }

func (v *EmailValidator) Validate(_ context.Context, in Input) Result {
	normalized := strings.ToLower(strings.TrimSpace(in.Raw))
	if normalized == "" {
		return emailInvalid("", catalog.CodeEmailInvalidSyntax, "email address is empty", nil)
	}

	at := strings.LastIndex(normalized, "@")
	if at <= 0 || at == len(normalized)-1 {
		return emailInvalid(normalized, catalog.CodeEmailInvalidSyntax, "email address is not syntactically valid", nil)
	}
	domain := normalized[at+1:]

	details := map[string]any{
		"domain":          domain,
		"domain_resolves": v.directory.DomainResolves(domain),
	}

	if _, denied := v.denyDomains[domain]; denied {
		details["syntax_valid"] = true
		return emailInvalid(normalized, catalog.CodeEmailDisposableDomain, "email domain is deny-listed as disposable", details)
	}
	if len(v.allowDomains) > 0 {
		if _, allowed := v.allowDomains[domain]; !allowed {
			details["syntax_valid"] = true
			return emailInvalid(normalized, catalog.CodeEmailDomainNotAllowed, "email domain is not in the allowed set", details)
		}
	}

	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized || !strings.Contains(domain, ".") {
		details["syntax_valid"] = false
		return emailInvalid(normalized, catalog.CodeEmailInvalidSyntax, "email address is not syntactically valid", details)
	}
	details["syntax_valid"] = true

	return Result{
		Valid:      true,
		Normalized: normalized,
		Message:    "email address is valid",
		RuleCode:   catalog.CodeEmailValid,
		Source:     emailSource,
		Details:    details,
	}
}

func emailInvalid(normalized, code, message string, details map[string]any) Result {
	if details == nil {
		details = map[string]any{"syntax_valid": false}
	}
	return Result{
		Valid:      false,
		Normalized: normalized,
		Message:    message,
		RuleCode:   code,
		Source:     emailSource,
		Details:    details,
	}
}
