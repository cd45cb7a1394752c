// services/allocator.go
package services

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrLevelOutOfRange is returned for tree levels past the tier table.
var ErrLevelOutOfRange = errors.New("commission tree level out of range")

// teamTiers is the share of the team-reward rate paid at each upline level.
var teamTiers = map[int]decimal.Decimal{
	1: decimal.RequireFromString("0.30"),
	2: decimal.RequireFromString("0.20"),
	3: decimal.RequireFromString("0.15"),
	4: decimal.RequireFromString("0.12"),
	5: decimal.RequireFromString("0.10"),
	6: decimal.RequireFromString("0.08"),
	7: decimal.RequireFromString("0.05"),
}

// MaxTierLevel is the deepest level with a defined payout.
const MaxTierLevel = 7

// Allocation is the amount owed to one chain position.
type Allocation struct {
	Level    int
	Amount   decimal.Decimal
	Currency string
}

// Allocator turns a claimed quantity into per-level amounts. It has no side
// effects.
type Allocator struct {
	DirectSaleRate decimal.Decimal
	TeamRewardRate decimal.Decimal
}

func NewAllocator(directSaleRate, teamRewardRate decimal.Decimal) Allocator {
	return Allocator{DirectSaleRate: directSaleRate, TeamRewardRate: teamRewardRate}
}

// AmountForLevel computes the commission for one level, rounded to the
// currency's minor unit.
func (a Allocator) AmountForLevel(level, quantity int, cur string) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Zero, ValidationError("quantity must be a positive integer, got %d", quantity)
	}
	if level < 0 || level > MaxTierLevel {
		return decimal.Zero, ErrLevelOutOfRange
	}

	qty := decimal.NewFromInt(int64(quantity))
	var amount decimal.Decimal
	if level == 0 {
		amount = a.DirectSaleRate.Mul(qty)
	} else {
		amount = a.TeamRewardRate.Mul(teamTiers[level]).Mul(qty)
	}
	return RoundToMinorUnit(amount, cur)
}

// Allocate returns one allocation per chain position, index 0 being the
// direct sale.
func (a Allocator) Allocate(chainLength, quantity int, cur string) ([]Allocation, error) {
	out := make([]Allocation, 0, chainLength)
	for level := 0; level < chainLength; level++ {
		amount, err := a.AmountForLevel(level, quantity, cur)
		if err != nil {
			return nil, err
		}
		out = append(out, Allocation{Level: level, Amount: amount, Currency: cur})
	}
	return out, nil
}
