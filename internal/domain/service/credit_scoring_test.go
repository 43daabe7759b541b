package service_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/lendcore/internal/domain/model"
	"github.com/bibbank/lendcore/internal/domain/service"
)

func newEngine(t *testing.T) *service.CreditScoringEngine {
	t.Helper()
	engine, err := service.NewCreditScoringEngine(service.DefaultScoringPolicy())
	require.NoError(t, err)
	return engine
}

func TestDefaultScoringPolicyIsValid(t *testing.T) {
	p := service.DefaultScoringPolicy()
	require.NoError(t, p.Validate())
	assert.True(t, p.Weights.Sum().Equal(decimal.NewFromInt(1)))
}

func TestCreditScoringEngine_Compute(t *testing.T) {
	tests := []struct {
		name    string
		history service.ScoringHistory
		want    int
	}{
		{
			name: "brand new borrower without kyc",
			history: service.ScoringHistory{
				OnTimePaymentRate: decimal.RequireFromString("0.5"),
				UtilizationRatio:  decimal.NewFromInt(1),
			},
			want: 565,
		},
		{
			name: "best possible history",
			history: service.ScoringHistory{
				OnTimePaymentRate: decimal.NewFromInt(1),
				UtilizationRatio:  decimal.Zero,
				AccountAgeDays:    400,
				RecentOnTimeLoans: 12,
				KYCApproved:       true,
			},
			want: 700,
		},
		{
			name: "worst possible history",
			history: service.ScoringHistory{
				OnTimePaymentRate: decimal.Zero,
				UtilizationRatio:  decimal.NewFromInt(3),
				AccountAgeDays:    0,
				RecentDelinquency: true,
				RecentOnTimeLoans: 12,
			},
			want: 515,
		},
		{
			name: "fractional total truncates",
			history: service.ScoringHistory{
				OnTimePaymentRate: decimal.RequireFromString("0.5"),
				UtilizationRatio:  decimal.RequireFromString("0.45"),
				AccountAgeDays:    100,
				KYCApproved:       true,
			},
			// 600 + 0 + 0 + 0.1*(-50 + 93/357*150) + 0 + 10 = 608.907...
			want: 608,
		},
		{
			name: "behavior capped at 100",
			history: service.ScoringHistory{
				OnTimePaymentRate: decimal.RequireFromString("0.5"),
				UtilizationRatio:  decimal.RequireFromString("0.45"),
				AccountAgeDays:    7,
				RecentOnTimeLoans: 25,
			},
			// 600 + 0 + 0 - 5 + 15 + 0
			want: 610,
		},
	}

	engine := newEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Compute(tt.history)
			assert.Equal(t, tt.want, got.Score)
			require.Len(t, got.Components, 5)
		})
	}
}

func TestCreditScoringEngine_ComponentBreakdown(t *testing.T) {
	got := newEngine(t).Compute(service.ScoringHistory{
		OnTimePaymentRate: decimal.RequireFromString("0.75"),
		UtilizationRatio:  decimal.RequireFromString("0.3"),
		AccountAgeDays:    365,
		RecentOnTimeLoans: 3,
		KYCApproved:       true,
	})

	byName := map[string]model.ScoreComponent{}
	for _, c := range got.Components {
		byName[c.Name] = c
	}

	tests := []struct {
		name         string
		normalized   string
		contribution string
	}{
		{name: service.ComponentPaymentHistory, normalized: "50", contribution: "17.5"},
		{name: service.ComponentTenure, normalized: "100", contribution: "10"},
		{name: service.ComponentBehavior, normalized: "30", contribution: "4.5"},
		{name: service.ComponentKYC, normalized: "100", contribution: "10"},
	}
	for _, tt := range tests {
		c, ok := byName[tt.name]
		require.True(t, ok, tt.name)
		assert.Equal(t, tt.normalized, c.Normalized.String(), tt.name)
		assert.Equal(t, tt.contribution, c.Contribution.String(), tt.name)
	}

	util := byName[service.ComponentUtilization]
	assert.True(t, util.Normalized.Round(6).Equal(decimal.RequireFromString("33.333333")), util.Normalized.String())
}

func TestCreditScoringEngine_TenureRamp(t *testing.T) {
	engine := newEngine(t)
	tenureOf := func(days int) decimal.Decimal {
		res := engine.Compute(service.ScoringHistory{AccountAgeDays: days})
		for _, c := range res.Components {
			if c.Name == service.ComponentTenure {
				return c.Normalized
			}
		}
		t.Fatal("tenure component missing")
		return decimal.Zero
	}

	assert.Equal(t, "-50", tenureOf(-3).String())
	assert.Equal(t, "-50", tenureOf(7).String())
	assert.Equal(t, "100", tenureOf(364).String())
	assert.Equal(t, "100", tenureOf(365).String())
	assert.Equal(t, "100", tenureOf(5000).String())
	assert.True(t, tenureOf(8).GreaterThan(decimal.NewFromInt(-50)))
	assert.True(t, tenureOf(200).LessThan(decimal.NewFromInt(100)))
}

func TestCreditScoringEngine_AlwaysWithinBounds(t *testing.T) {
	engine := newEngine(t)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		h := service.ScoringHistory{
			OnTimePaymentRate: decimal.NewFromFloat(rng.Float64()*4 - 2),
			UtilizationRatio:  decimal.NewFromFloat(rng.Float64()*20 - 5),
			AccountAgeDays:    rng.Intn(20_000) - 5_000,
			RecentDelinquency: rng.Intn(2) == 0,
			RecentOnTimeLoans: rng.Intn(1_000) - 100,
			KYCApproved:       rng.Intn(2) == 0,
		}
		got := engine.Compute(h)
		require.GreaterOrEqual(t, got.Score, 300, "%+v", h)
		require.LessOrEqual(t, got.Score, 900, "%+v", h)
	}
}

func TestCreditScoringEngine_ClampsToPolicyBounds(t *testing.T) {
	high := service.DefaultScoringPolicy()
	high.BaseScore = 880
	engine, err := service.NewCreditScoringEngine(high)
	require.NoError(t, err)
	best := service.ScoringHistory{OnTimePaymentRate: decimal.NewFromInt(1), AccountAgeDays: 365, RecentOnTimeLoans: 10, KYCApproved: true}
	assert.Equal(t, 900, engine.Compute(best).Score)

	low := service.DefaultScoringPolicy()
	low.BaseScore = 310
	engine, err = service.NewCreditScoringEngine(low)
	require.NoError(t, err)
	worst := service.ScoringHistory{UtilizationRatio: decimal.NewFromInt(1), RecentDelinquency: true}
	assert.Equal(t, 300, engine.Compute(worst).Score)
}

func TestCreditScoringEngine_IsPure(t *testing.T) {
	engine := newEngine(t)
	h := service.ScoringHistory{
		OnTimePaymentRate: decimal.RequireFromString("0.6666666666"),
		UtilizationRatio:  decimal.RequireFromString("0.123"),
		AccountAgeDays:    222,
		RecentOnTimeLoans: 2,
		KYCApproved:       true,
	}
	first := engine.Compute(h)
	for i := 0; i < 20; i++ {
		again := engine.Compute(h)
		assert.Equal(t, first.Score, again.Score)
		assert.Equal(t, len(first.Components), len(again.Components))
	}
}

func TestScoringPolicy_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *service.ScoringPolicy)
	}{
		{name: "weights do not sum to one", mutate: func(p *service.ScoringPolicy) { p.Weights.KYC = decimal.RequireFromString("0.2") }},
		{name: "negative weight", mutate: func(p *service.ScoringPolicy) {
			p.Weights.KYC = decimal.RequireFromString("-0.1")
			p.Weights.Tenure = decimal.RequireFromString("0.3")
		}},
		{name: "base above max", mutate: func(p *service.ScoringPolicy) { p.BaseScore = 950 }},
		{name: "min above base", mutate: func(p *service.ScoringPolicy) { p.MinScore = 700 }},
		{name: "zero utilization ceiling", mutate: func(p *service.ScoringPolicy) { p.UtilizationCeiling = decimal.Zero }},
		{name: "inverted tenure ramp", mutate: func(p *service.ScoringPolicy) { p.TenureFloorDays = 400 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := service.DefaultScoringPolicy()
			tt.mutate(&p)
			_, err := service.NewCreditScoringEngine(p)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
}

func TestNewScoringHistory(t *testing.T) {
	asOf := time.Date(2025, time.September, 10, 12, 0, 0, 0, time.UTC)

	t.Run("derived ratios", func(t *testing.T) {
		h := service.NewScoringHistory(model.ScoringFacts{
			AccountCreatedAt:             asOf.AddDate(0, 0, -10).Add(5 * time.Hour),
			RepaymentsLast12Months:       4,
			OnTimeRepaymentsLast12Months: 3,
			ActivePrincipalCents:         45_000,
			CreditLimitCents:             100_000,
			DelinquentWithin90Days:       true,
			OnTimePaidLoansWithin90Days:  2,
			KYCApproved:                  true,
		}, asOf)

		assert.Equal(t, "0.75", h.OnTimePaymentRate.String())
		assert.Equal(t, "0.45", h.UtilizationRatio.String())
		assert.Equal(t, 10, h.AccountAgeDays)
		assert.True(t, h.RecentDelinquency)
		assert.Equal(t, 2, h.RecentOnTimeLoans)
		assert.True(t, h.KYCApproved)
	})

	t.Run("no history is neutral and zero limit is fully utilized", func(t *testing.T) {
		h := service.NewScoringHistory(model.ScoringFacts{AccountCreatedAt: asOf}, asOf)
		assert.Equal(t, "0.5", h.OnTimePaymentRate.String())
		assert.Equal(t, "1", h.UtilizationRatio.String())
		assert.Equal(t, 0, h.AccountAgeDays)
	})
}
