package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/lendcore/internal/domain/model"
)

// Component names, also used as keys in score event snapshots.
const (
	ComponentPaymentHistory = "payment_history"
	ComponentUtilization    = "utilization"
	ComponentTenure         = "tenure"
	ComponentBehavior       = "behavior"
	ComponentKYC            = "kyc"
)

var (
	componentMax   = decimal.NewFromInt(100)
	componentMin   = decimal.NewFromInt(-100)
	neutralPayRate = decimal.RequireFromString("0.5")
)

// ScoringWeights are the component weights. They must sum to exactly 1.
type ScoringWeights struct {
	PaymentHistory decimal.Decimal
	Utilization    decimal.Decimal
	Tenure         decimal.Decimal
	Behavior       decimal.Decimal
	KYC            decimal.Decimal
}

// Sum adds all weights.
func (w ScoringWeights) Sum() decimal.Decimal {
	return w.PaymentHistory.Add(w.Utilization).Add(w.Tenure).Add(w.Behavior).Add(w.KYC)
}

// ScoringPolicy parameterizes the scoring engine.
type ScoringPolicy struct {
	Weights ScoringWeights
	// UtilizationCeiling is the ratio at and above which utilization scores -100.
	UtilizationCeiling decimal.Decimal
	BaseScore          int
	MinScore           int
	MaxScore           int
	// TenureFloorDays and TenureCeilingDays bound the linear tenure ramp.
	TenureFloorDays   int
	TenureCeilingDays int
	// BehaviorPointsPerLoan is awarded per recent on-time paid loan.
	BehaviorPointsPerLoan int
}

// DefaultScoringPolicy returns the production weights and bounds.
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		Weights: ScoringWeights{
			PaymentHistory: decimal.RequireFromString("0.35"),
			Utilization:    decimal.RequireFromString("0.30"),
			Tenure:         decimal.RequireFromString("0.10"),
			Behavior:       decimal.RequireFromString("0.15"),
			KYC:            decimal.RequireFromString("0.10"),
		},
		UtilizationCeiling:    decimal.RequireFromString("0.9"),
		BaseScore:             600,
		MinScore:              300,
		MaxScore:              900,
		TenureFloorDays:       7,
		TenureCeilingDays:     365,
		BehaviorPointsPerLoan: 10,
	}
}

// Validate rejects policies that could not produce a bounded score.
func (p ScoringPolicy) Validate() error {
	var errs []error
	if !p.Weights.Sum().Equal(decimal.NewFromInt(1)) {
		errs = append(errs, fmt.Errorf("weights sum to %s, want 1", p.Weights.Sum()))
	}
	for _, w := range []struct {
		name  string
		value decimal.Decimal
	}{
		{ComponentPaymentHistory, p.Weights.PaymentHistory},
		{ComponentUtilization, p.Weights.Utilization},
		{ComponentTenure, p.Weights.Tenure},
		{ComponentBehavior, p.Weights.Behavior},
		{ComponentKYC, p.Weights.KYC},
	} {
		if w.value.IsNegative() {
			errs = append(errs, fmt.Errorf("weight %s must not be negative", w.name))
		}
	}
	if p.MinScore > p.BaseScore || p.BaseScore > p.MaxScore {
		errs = append(errs, fmt.Errorf("bounds must satisfy min <= base <= max, got %d <= %d <= %d", p.MinScore, p.BaseScore, p.MaxScore))
	}
	if !p.UtilizationCeiling.IsPositive() {
		errs = append(errs, errors.New("utilization ceiling must be positive"))
	}
	if p.TenureFloorDays < 0 || p.TenureFloorDays >= p.TenureCeilingDays {
		errs = append(errs, fmt.Errorf("tenure ramp must satisfy 0 <= floor < ceiling, got %d..%d", p.TenureFloorDays, p.TenureCeilingDays))
	}
	if p.BehaviorPointsPerLoan < 0 {
		errs = append(errs, errors.New("behavior points per loan must not be negative"))
	}
	if len(errs) > 0 {
		return &model.ValidationError{Field: "scoring_policy", Reason: errors.Join(errs...).Error()}
	}
	return nil
}

// ScoringHistory is the normalized input of one score computation.
type ScoringHistory struct {
	OnTimePaymentRate decimal.Decimal
	UtilizationRatio  decimal.Decimal
	AccountAgeDays    int
	RecentDelinquency bool
	RecentOnTimeLoans int
	KYCApproved       bool
}

// NewScoringHistory derives the scoring inputs from raw facts as of asOf.
// A borrower with no repayments in the window gets a neutral 0.5 rate; a zero
// credit limit counts as fully utilized.
func NewScoringHistory(facts model.ScoringFacts, asOf time.Time) ScoringHistory {
	rate := neutralPayRate
	if facts.RepaymentsLast12Months > 0 {
		rate = decimal.NewFromInt(int64(facts.OnTimeRepaymentsLast12Months)).
			DivRound(decimal.NewFromInt(int64(facts.RepaymentsLast12Months)), divisionPlaces)
	}

	utilization := decimal.NewFromInt(1)
	if facts.CreditLimitCents != 0 {
		utilization = decimal.NewFromInt(facts.ActivePrincipalCents).
			DivRound(decimal.NewFromInt(facts.CreditLimitCents), divisionPlaces)
	}

	return ScoringHistory{
		OnTimePaymentRate: rate,
		UtilizationRatio:  utilization,
		AccountAgeDays:    model.DaysBetween(facts.AccountCreatedAt, asOf),
		RecentDelinquency: facts.DelinquentWithin90Days,
		RecentOnTimeLoans: facts.OnTimePaidLoansWithin90Days,
		KYCApproved:       facts.KYCApproved,
	}
}

// ScoreResult is a computed score with its per-component breakdown.
type ScoreResult struct {
	Components []model.ScoreComponent
	Score      int
}

// CreditScoringEngine reduces a scoring history to a bounded integer score.
// It holds no mutable state; Compute is a pure function of its input.
type CreditScoringEngine struct {
	policy ScoringPolicy
}

// NewCreditScoringEngine returns an engine for a validated policy.
func NewCreditScoringEngine(policy ScoringPolicy) (*CreditScoringEngine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &CreditScoringEngine{policy: policy}, nil
}

// Policy returns the engine's policy.
func (e *CreditScoringEngine) Policy() ScoringPolicy {
	return e.policy
}

// Compute scores h: base + sum(weight * component), truncated toward zero and
// clamped to the policy bounds.
func (e *CreditScoringEngine) Compute(h ScoringHistory) ScoreResult {
	w := e.policy.Weights
	components := []model.ScoreComponent{
		component(ComponentPaymentHistory, h.OnTimePaymentRate, e.paymentHistory(h.OnTimePaymentRate), w.PaymentHistory),
		component(ComponentUtilization, h.UtilizationRatio, e.utilization(h.UtilizationRatio), w.Utilization),
		component(ComponentTenure, decimal.NewFromInt(int64(h.AccountAgeDays)), e.tenure(h.AccountAgeDays), w.Tenure),
		component(ComponentBehavior, e.behaviorRaw(h), e.behavior(h), w.Behavior),
		component(ComponentKYC, boolDecimal(h.KYCApproved), kyc(h.KYCApproved), w.KYC),
	}

	total := decimal.NewFromInt(int64(e.policy.BaseScore))
	for _, c := range components {
		total = total.Add(c.Contribution)
	}

	score := int(total.IntPart())
	score = max(e.policy.MinScore, min(score, e.policy.MaxScore))

	return ScoreResult{Score: score, Components: components}
}

// paymentHistory maps an on-time rate in [0,1] linearly onto [-100,100].
func (e *CreditScoringEngine) paymentHistory(rate decimal.Decimal) decimal.Decimal {
	rate = decimal.Max(decimal.Zero, decimal.Min(rate, decimal.NewFromInt(1)))
	return rate.Mul(decimal.NewFromInt(200)).Sub(componentMax)
}

// utilization is 100 at ratio 0 falling linearly to -100 at the ceiling.
func (e *CreditScoringEngine) utilization(ratio decimal.Decimal) decimal.Decimal {
	switch {
	case !ratio.IsPositive():
		return componentMax
	case ratio.GreaterThanOrEqual(e.policy.UtilizationCeiling):
		return componentMin
	default:
		share := ratio.DivRound(e.policy.UtilizationCeiling, divisionPlaces)
		return componentMax.Sub(share.Mul(decimal.NewFromInt(200)))
	}
}

// tenure is -50 up to the floor, 100 from the ceiling, linear in between.
func (e *CreditScoringEngine) tenure(days int) decimal.Decimal {
	floor, ceiling := e.policy.TenureFloorDays, e.policy.TenureCeilingDays
	low := decimal.NewFromInt(-50)
	switch {
	case days <= floor:
		return low
	case days >= ceiling:
		return componentMax
	default:
		span := decimal.NewFromInt(int64(ceiling - 1 - floor))
		progress := decimal.NewFromInt(int64(days - floor)).DivRound(span, divisionPlaces)
		return decimal.Min(componentMax, low.Add(progress.Mul(decimal.NewFromInt(150))))
	}
}

func (e *CreditScoringEngine) behaviorRaw(h ScoringHistory) decimal.Decimal {
	if h.RecentDelinquency {
		return componentMin
	}
	return decimal.NewFromInt(int64(max(0, h.RecentOnTimeLoans) * e.policy.BehaviorPointsPerLoan))
}

// behavior is -100 after any recent delinquency, otherwise points per recent
// on-time paid loan capped at 100.
func (e *CreditScoringEngine) behavior(h ScoringHistory) decimal.Decimal {
	return decimal.Min(componentMax, e.behaviorRaw(h))
}

func kyc(approved bool) decimal.Decimal {
	if approved {
		return componentMax
	}
	return decimal.Zero
}

func boolDecimal(b bool) decimal.Decimal {
	if b {
		return decimal.NewFromInt(1)
	}
	return decimal.Zero
}

func component(name string, raw, normalized, weight decimal.Decimal) model.ScoreComponent {
	return model.ScoreComponent{
		Name:         name,
		Raw:          raw,
		Normalized:   normalized,
		Weight:       weight,
		Contribution: normalized.Mul(weight),
	}
}
