package broker

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/newthinker/crossover/internal/core"
)

// RiskConfig defines pre-trade guard parameters.
type RiskConfig struct {
	// MaxQuantity caps a single order. Zero disables the cap.
	MaxQuantity int64
	// RequireBuyingPower refuses buys whose notional exceeds buying power.
	RequireBuyingPower bool
}

// DefaultRiskConfig returns a RiskConfig with sensible default values.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		MaxQuantity:        1000,
		RequireBuyingPower: true,
	}
}

// RiskCheckResult represents the outcome of a risk check.
type RiskCheckResult struct {
	// Allowed indicates whether the order is permitted.
	Allowed bool
	// Reason provides explanation when order is rejected.
	Reason string
}

// RiskChecker re-reads the account from the broker before every order so a
// buy is never placed on top of an open position and a sell never opens a short.
type RiskChecker struct {
	config RiskConfig
	broker Broker
}

// NewRiskChecker creates a new RiskChecker with the given configuration and broker.
func NewRiskChecker(config RiskConfig, broker Broker) *RiskChecker {
	return &RiskChecker{
		config: config,
		broker: broker,
	}
}

// Check validates an order request against the live account. A failed lookup
// is returned as ErrPositionUnavailable; a refused order is reported in the result.
func (r *RiskChecker) Check(ctx context.Context, req OrderRequest, price decimal.Decimal) (RiskCheckResult, error) {
	holding, err := HoldsPosition(ctx, r.broker, req.Symbol)
	if err != nil {
		return RiskCheckResult{}, core.WrapError(core.ErrPositionUnavailable, err)
	}

	switch {
	case req.Side == OrderSideBuy && holding:
		return RiskCheckResult{Reason: fmt.Sprintf("already holding %s", req.Symbol)}, nil
	case req.Side == OrderSideSell && !holding:
		return RiskCheckResult{Reason: fmt.Sprintf("no open position in %s", req.Symbol)}, nil
	}

	if r.config.MaxQuantity > 0 && req.Quantity > r.config.MaxQuantity {
		return RiskCheckResult{
			Reason: fmt.Sprintf("quantity too large: %d > %d", req.Quantity, r.config.MaxQuantity),
		}, nil
	}

	if req.Side == OrderSideBuy && r.config.RequireBuyingPower && price.IsPositive() {
		balance, err := r.broker.GetBalance(ctx)
		if err != nil {
			return RiskCheckResult{}, core.WrapError(core.ErrPositionUnavailable, fmt.Errorf("balance: %w", err))
		}
		notional := price.Mul(decimal.NewFromInt(req.Quantity))
		if balance.BuyingPower.LessThan(notional) {
			return RiskCheckResult{
				Reason: fmt.Sprintf("insufficient buying power: %s < %s", balance.BuyingPower.StringFixed(2), notional.StringFixed(2)),
			}, nil
		}
	}

	return RiskCheckResult{Allowed: true}, nil
}
