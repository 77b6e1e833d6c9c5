package core

import (
	"math/big"

	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/params"
)

var (
	big1       = big.NewInt(1)
	big2       = big.NewInt(2)
	big9       = big.NewInt(9)
	big10      = big.NewInt(10)
	bigMinus99 = big.NewInt(-99)
)

// CalcDifficulty computes the proof-of-work difficulty of a block at
// the given time on top of parent. The hardfork record selects the
// formula: Frontier's step rule, Homestead's continuous rule (EIP-2),
// or the Byzantium-family rule (EIP-100) whose ice-age bomb runs on a
// block number pushed back by the fork's accumulated delay.
func CalcDifficulty(cfg *params.Config, time uint64, parent *types.Header) *big.Int {
	switch cfg.Difficulty {
	case params.DifficultyEIP100:
		return difficultyEIP100(time, parent, cfg.BombDelay)
	case params.DifficultyHomestead:
		return difficultyHomestead(time, parent)
	default:
		return difficultyFrontier(time, parent)
	}
}

// difficultyEIP100: adj = max((2 if ommers else 1) − delta/9, −99),
// applied in steps of parent/2048, plus the delayed bomb.
func difficultyEIP100(time uint64, parent *types.Header, delay *big.Int) *big.Int {
	adj := new(big.Int).SetUint64(time - parent.Time)
	adj.Div(adj, big9)
	if parent.OmmersHash == types.EmptyOmmersHash {
		adj.Sub(big1, adj)
	} else {
		adj.Sub(big2, adj)
	}
	if adj.Cmp(bigMinus99) < 0 {
		adj.Set(bigMinus99)
	}

	out := applyAdjustment(parent.Difficulty, adj)

	bombNumber := new(big.Int).Add(parent.Number, big1)
	if delay != nil {
		bombNumber.Sub(bombNumber, delay)
		if bombNumber.Sign() < 0 {
			bombNumber.SetInt64(0)
		}
	}
	addIceAge(out, bombNumber)
	return out
}

// difficultyHomestead: adj = max(1 − delta/10, −99).
func difficultyHomestead(time uint64, parent *types.Header) *big.Int {
	adj := new(big.Int).SetUint64(time - parent.Time)
	adj.Div(adj, big10)
	adj.Sub(big1, adj)
	if adj.Cmp(bigMinus99) < 0 {
		adj.Set(bigMinus99)
	}

	out := applyAdjustment(parent.Difficulty, adj)
	addIceAge(out, new(big.Int).Add(parent.Number, big1))
	return out
}

// difficultyFrontier: one step up for blocks under 13 seconds apart,
// one step down otherwise.
func difficultyFrontier(time uint64, parent *types.Header) *big.Int {
	step := new(big.Int).Div(parent.Difficulty, params.DifficultyBoundDivisor)
	out := new(big.Int)
	if time-parent.Time < 13 {
		out.Add(parent.Difficulty, step)
	} else {
		out.Sub(parent.Difficulty, step)
	}
	if out.Cmp(params.MinimumDifficulty) < 0 {
		out.Set(params.MinimumDifficulty)
	}
	addIceAge(out, new(big.Int).Add(parent.Number, big1))
	return out
}

// applyAdjustment computes parent + parent/2048 * adj, floored at the
// minimum difficulty.
func applyAdjustment(parentDiff, adj *big.Int) *big.Int {
	step := new(big.Int).Div(parentDiff, params.DifficultyBoundDivisor)
	out := step.Mul(step, adj)
	out.Add(parentDiff, out)
	if out.Cmp(params.MinimumDifficulty) < 0 {
		out.Set(params.MinimumDifficulty)
	}
	return out
}

// addIceAge adds the exponential bomb 2^(number/100000 − 2) in place.
// The first two periods contribute nothing, matching the original
// formula's negative exponent there.
func addIceAge(diff, number *big.Int) {
	period := new(big.Int).Div(number, params.DifficultyBombPeriod)
	if period.Cmp(big1) > 0 {
		bomb := period.Sub(period, big2)
		bomb.Exp(big2, bomb, nil)
		diff.Add(diff, bomb)
	}
}
