// Package fx resolves exchange rates for cross-currency transfers.
package fx

import (
	"context"
	"fmt"
	"strings"

	"mobile-money-ledger/pkg/money"

	"github.com/shopspring/decimal"
)

// StaticRateProvider serves rates from configuration. Keys are "FROM/TO";
// the inverse pair is derived when only one direction is configured.
type StaticRateProvider struct {
	rates map[string]decimal.Decimal
}

// NewStaticRateProvider parses a "FROM/TO" -> rate table.
func NewStaticRateProvider(table map[string]string) (*StaticRateProvider, error) {
	rates := make(map[string]decimal.Decimal, len(table))
	for pair, raw := range table {
		from, to, ok := strings.Cut(strings.ToUpper(strings.TrimSpace(pair)), "/")
		if !ok || from == "" || to == "" {
			return nil, fmt.Errorf("fx: invalid pair %q, want FROM/TO", pair)
		}
		rate, err := money.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("fx: rate for %s: %w", pair, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("fx: rate for %s must be positive", pair)
		}
		rates[pairKey(from, to)] = rate
	}
	return &StaticRateProvider{rates: rates}, nil
}

func pairKey(from, to string) string {
	return strings.ToUpper(from) + "/" + strings.ToUpper(to)
}

// GetRate implements ports.RateProvider.
func (p *StaticRateProvider) GetRate(_ context.Context, from, to string) (decimal.Decimal, error) {
	if strings.EqualFold(from, to) {
		return decimal.NewFromInt(1), nil
	}
	if rate, ok := p.rates[pairKey(from, to)]; ok {
		return rate, nil
	}
	if inverse, ok := p.rates[pairKey(to, from)]; ok {
		return decimal.NewFromInt(1).DivRound(inverse, 10), nil
	}
	return decimal.Zero, fmt.Errorf("fx: no rate for %s/%s", strings.ToUpper(from), strings.ToUpper(to))
}
