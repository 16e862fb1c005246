// Package election scores the live members of a validation group and picks
// the golden record. Scoring is pure: given the same group, tiers and clock
// it always produces the same winner, regardless of input order.
package election

import (
	"time"

	"github.com/google/uuid"

	"veritas/internal/caller"
	"veritas/internal/validation/models"
)

const (
	// validBase dominates every other component: an invalid record can
	// never outscore a valid one.
	validBase = 1000

	recencyMax    = 25
	recencyWindow = 365 * 24 * time.Hour
)

var tierWeights = map[caller.Tier]int{
	caller.TierSystemOfRecord: 300,
	caller.TierTrusted:        200,
	caller.TierStandard:       100,
	caller.TierUnknown:        50,
}

// TierWeight returns the score contribution of a caller tier.
func TierWeight(t caller.Tier) int {
	if w, ok := tierWeights[t]; ok {
		return w
	}
	return tierWeights[caller.TierUnknown]
}

// Score computes the election score of one record.
func Score(rec *models.ValidationRecord, tier caller.Tier, now time.Time) int {
	score := 0
	if rec.IsValid {
		score += validBase
	}
	score += TierWeight(tier)
	score += detailBonus(rec)
	score += recencyBonus(rec.CreatedAt, now)
	return score
}

func detailBonus(rec *models.ValidationRecord) int {
	bonus := 0
	switch rec.ValidationType {
	case models.TypePhone:
		if rec.DetailBool("library_confirmed") {
			bonus += 50
		}
	case models.TypePostalCode:
		if rec.DetailBool("address_found") {
			bonus += 50
		}
	case models.TypeEmail:
		if rec.DetailBool("syntax_valid") {
			bonus += 40
		}
		if rec.DetailBool("domain_resolves") {
			bonus += 60
		}
	case models.TypeTaxID:
		if rec.DetailBool("checksum_valid") {
			bonus += 70
		}
		if rec.DetailBool("registry_active") {
			bonus += 100
		}
	case models.TypeAddress:
		if rec.DetailBool("normalized") {
			bonus += 40
		}
		if rec.DetailBool("geocoded") {
			bonus += 80
		}
	}
	return bonus
}

// recencyBonus decays linearly from recencyMax at age zero to nothing at a
// year, so fresher submissions win otherwise-equal contests.
func recencyBonus(createdAt, now time.Time) int {
	age := now.Sub(createdAt)
	if age <= 0 {
		return recencyMax
	}
	if age >= recencyWindow {
		return 0
	}
	return int(float64(recencyMax) * (1 - float64(age)/float64(recencyWindow)))
}

// Outcome is an election result: the winner (nil when the group elects no
// golden record) and the score of every live member.
type Outcome struct {
	WinnerID *uuid.UUID
	Scores   map[uuid.UUID]int
}

// Elect picks the golden record among the live group members.
//
// Valid records always beat invalid ones. A group with no valid member
// elects nothing, with one exception: a single-member group whose only
// member is the record just created keeps it as golden so the caller gets a
// stable reference even for a lone invalid submission. Ties on score go to
// the later-created record; a residual tie falls back to the larger ID so
// the outcome never depends on slice order.
func Elect(group []*models.ValidationRecord, tiers map[string]caller.Tier, now time.Time, justCreated uuid.UUID) Outcome {
	outcome := Outcome{Scores: make(map[uuid.UUID]int, len(group))}

	var best *models.ValidationRecord
	bestScore := 0
	anyValid := false

	for _, rec := range group {
		if rec.IsDeleted {
			continue
		}
		score := Score(rec, tiers[rec.SubmittingApp], now)
		outcome.Scores[rec.ID] = score

		if !rec.IsValid {
			continue
		}
		anyValid = true
		if best == nil || beats(rec, score, best, bestScore) {
			best, bestScore = rec, score
		}
	}

	if !anyValid {
		if len(group) == 1 && group[0].ID == justCreated && !group[0].IsDeleted {
			id := group[0].ID
			outcome.WinnerID = &id
		}
		return outcome
	}

	id := best.ID
	outcome.WinnerID = &id
	return outcome
}

func beats(rec *models.ValidationRecord, score int, best *models.ValidationRecord, bestScore int) bool {
	if score != bestScore {
		return score > bestScore
	}
	if !rec.CreatedAt.Equal(best.CreatedAt) {
		return rec.CreatedAt.After(best.CreatedAt)
	}
	return rec.ID.String() > best.ID.String()
}
