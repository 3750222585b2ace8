package pricing

import (
	"errors"
	"math/big"
)

// Service computes descending auction prices. Amounts are integers in the
// smallest currency unit; big.Int keeps the arithmetic overflow-free.
type Service struct{}

// InitialPrice returns the price at step 0:
// reservePrice + decrementRate * durationSteps.
func (Service) InitialPrice(reservePrice, decrementRate *big.Int, durationSteps int64) (*big.Int, error) {
	if reservePrice == nil || reservePrice.Sign() < 0 {
		return nil, errors.New("reserve price must be non-negative")
	}
	if decrementRate == nil || decrementRate.Sign() < 0 {
		return nil, errors.New("decrement rate must be non-negative")
	}
	if durationSteps < 0 {
		return nil, errors.New("duration steps must be non-negative")
	}
	total := new(big.Int).Mul(decrementRate, big.NewInt(durationSteps))
	return total.Add(total, reservePrice), nil
}

// CurrentPrice returns max(reservePrice, initialPrice - decrementRate*elapsed).
// Negative elapsed clamps to zero; there is no upper bound on elapsed, so an
// auction that has priced down simply stays at the reserve.
func (Service) CurrentPrice(initialPrice, decrementRate *big.Int, elapsedSteps int64, reservePrice *big.Int) *big.Int {
	if elapsedSteps < 0 {
		elapsedSteps = 0
	}
	drop := new(big.Int).Mul(decrementRate, big.NewInt(elapsedSteps))
	price := new(big.Int).Sub(initialPrice, drop)
	if price.Cmp(reservePrice) < 0 {
		return new(big.Int).Set(reservePrice)
	}
	return price
}
