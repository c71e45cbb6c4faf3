// Package risk turns compliance records and an escrow amount into a
// settlement verdict. It holds no state and performs no I/O.
package risk

import (
	"escrowd/internal/compliance/models"
	"escrowd/pkg/domain"
)

// Verdict is ordered by strictness: Allow < Flag < Deny.
type Verdict int

const (
	Allow Verdict = iota
	Flag
	Deny
)

func (v Verdict) String() string {
	switch v {
	case Allow:
		return "allow"
	case Flag:
		return "flag"
	case Deny:
		return "deny"
	default:
		return "unknown"
	}
}

// Reason explains a non-Allow verdict in terms a UI can show directly.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonBlacklisted Reason = "address is blacklisted"
	ReasonKYCCeiling  Reason = "KYC level too low for this amount"
	ReasonHighRisk    Reason = "transaction flagged for review: high AML risk score"
	ReasonNoKYC       Reason = "transaction flagged for review: no KYC on file"
)

// HighRiskThreshold is the score above which counterparties are flagged.
const HighRiskThreshold = 80

// ceilings are whole-token limits per KYC level. Level 3 is unlimited.
var ceilings = map[int]int64{
	models.KYCNone:     1_000,
	models.KYCBasic:    10_000,
	models.KYCEnhanced: 100_000,
}

// Ceiling returns the whole-token limit for a KYC level and whether one applies.
func Ceiling(kycLevel int) (int64, bool) {
	limit, ok := ceilings[kycLevel]
	return limit, ok
}

// Decision is a verdict with its reason. Party names the side of the escrow
// that produced it in composite evaluations.
type Decision struct {
	Verdict Verdict
	Reason  Reason
	Party   domain.Role
}

// Evaluate applies the rules in order: blacklist, KYC ceiling, risk score,
// missing KYC.
func Evaluate(rec models.Record, amount domain.Amount) Decision {
	if rec.IsBlacklisted {
		return Decision{Verdict: Deny, Reason: ReasonBlacklisted}
	}
	if limit, ok := Ceiling(rec.KYCLevel); ok && amount.ExceedsTokens(limit) {
		return Decision{Verdict: Deny, Reason: ReasonKYCCeiling}
	}
	if rec.RiskScore > HighRiskThreshold {
		return Decision{Verdict: Flag, Reason: ReasonHighRisk}
	}
	if rec.KYCLevel == models.KYCNone {
		return Decision{Verdict: Flag, Reason: ReasonNoKYC}
	}
	return Decision{Verdict: Allow}
}

// Combine returns the strictest decision. Ties keep the earliest.
func Combine(decisions ...Decision) Decision {
	out := Decision{Verdict: Allow}
	for _, d := range decisions {
		if d.Verdict > out.Verdict {
			out = d
		}
	}
	return out
}

// EvaluateParties is the composite escrow-level verdict for buyer and seller.
func EvaluateParties(buyer, seller models.Record, amount domain.Amount) Decision {
	b := Evaluate(buyer, amount)
	b.Party = domain.RoleBuyer
	s := Evaluate(seller, amount)
	s.Party = domain.RoleSeller
	return Combine(b, s)
}

// Message renders the decision for an error response.
func (d Decision) Message() string {
	if d.Verdict == Allow {
		return ""
	}
	if d.Party == "" {
		return string(d.Reason)
	}
	return d.Party.String() + ": " + string(d.Reason)
}
