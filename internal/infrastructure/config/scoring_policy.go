package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/bibbank/lendcore/internal/domain/service"
)

// YAMLScoringPolicy is the on-disk shape of a scoring policy. Omitted fields
// keep their default values.
type YAMLScoringPolicy struct {
	Weights               YAMLScoringWeights `yaml:"weights"`
	UtilizationCeiling    *string            `yaml:"utilization_ceiling"`
	BaseScore             *int               `yaml:"base_score"`
	MinScore              *int               `yaml:"min_score"`
	MaxScore              *int               `yaml:"max_score"`
	TenureFloorDays       *int               `yaml:"tenure_floor_days"`
	TenureCeilingDays     *int               `yaml:"tenure_ceiling_days"`
	BehaviorPointsPerLoan *int               `yaml:"behavior_points_per_loan"`
}

// YAMLScoringWeights holds weights as strings so they stay exact decimals.
type YAMLScoringWeights struct {
	PaymentHistory *string `yaml:"payment_history"`
	Utilization    *string `yaml:"utilization"`
	Tenure         *string `yaml:"tenure"`
	Behavior       *string `yaml:"behavior"`
	KYC            *string `yaml:"kyc"`
}

// LoadScoringPolicy reads, maps and validates a policy file. Unknown keys are
// rejected.
func LoadScoringPolicy(path string) (service.ScoringPolicy, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return service.ScoringPolicy{}, fmt.Errorf("config: read scoring policy %s: %w", path, err)
	}

	var dto YAMLScoringPolicy
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&dto); err != nil {
		return service.ScoringPolicy{}, fmt.Errorf("config: parse scoring policy %s: %w", path, err)
	}

	policy, err := MapScoringPolicy(dto)
	if err != nil {
		return service.ScoringPolicy{}, fmt.Errorf("config: scoring policy %s: %w", path, err)
	}
	return policy, nil
}

// MapScoringPolicy overlays dto on the default policy and validates the result.
func MapScoringPolicy(dto YAMLScoringPolicy) (service.ScoringPolicy, error) {
	p := service.DefaultScoringPolicy()

	decimals := []struct {
		name string
		src  *string
		dst  *decimal.Decimal
	}{
		{"weights.payment_history", dto.Weights.PaymentHistory, &p.Weights.PaymentHistory},
		{"weights.utilization", dto.Weights.Utilization, &p.Weights.Utilization},
		{"weights.tenure", dto.Weights.Tenure, &p.Weights.Tenure},
		{"weights.behavior", dto.Weights.Behavior, &p.Weights.Behavior},
		{"weights.kyc", dto.Weights.KYC, &p.Weights.KYC},
		{"utilization_ceiling", dto.UtilizationCeiling, &p.UtilizationCeiling},
	}
	for _, d := range decimals {
		if d.src == nil {
			continue
		}
		v, err := decimal.NewFromString(*d.src)
		if err != nil {
			return service.ScoringPolicy{}, fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = v
	}

	ints := []struct {
		src *int
		dst *int
	}{
		{dto.BaseScore, &p.BaseScore},
		{dto.MinScore, &p.MinScore},
		{dto.MaxScore, &p.MaxScore},
		{dto.TenureFloorDays, &p.TenureFloorDays},
		{dto.TenureCeilingDays, &p.TenureCeilingDays},
		{dto.BehaviorPointsPerLoan, &p.BehaviorPointsPerLoan},
	}
	for _, i := range ints {
		if i.src != nil {
			*i.dst = *i.src
		}
	}

	if err := p.Validate(); err != nil {
		return service.ScoringPolicy{}, err
	}
	return p, nil
}
