package core

import (
	"math/big"
	"testing"

	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/params"
)

func powParent(number int64, time uint64, diff int64) *types.Header {
	return &types.Header{
		Number:     big.NewInt(number),
		Time:       time,
		Difficulty: big.NewInt(diff),
		OmmersHash: types.EmptyOmmersHash,
	}
}

func TestDifficultyFrontierStep(t *testing.T) {
	cfg := params.ForkConfig(params.Frontier)
	parent := powParent(10, 1000, 1_000_000)

	fast := CalcDifficulty(cfg, 1010, parent)
	if want := big.NewInt(1_000_000 + 1_000_000/2048); fast.Cmp(want) != 0 {
		t.Errorf("fast block = %v, want %v", fast, want)
	}
	slow := CalcDifficulty(cfg, 1013, parent)
	if want := big.NewInt(1_000_000 - 1_000_000/2048); slow.Cmp(want) != 0 {
		t.Errorf("slow block = %v, want %v", slow, want)
	}
}

func TestDifficultyHomesteadContinuous(t *testing.T) {
	cfg := params.ForkConfig(params.Homestead)
	parent := powParent(150, 1000, 1_000_000)

	got := CalcDifficulty(cfg, 1005, parent) // delta 5 → +1 step
	if want := big.NewInt(1_000_000 + 1_000_000/2048); got.Cmp(want) != 0 {
		t.Errorf("delta=5: %v, want %v", got, want)
	}
	got = CalcDifficulty(cfg, 1025, parent) // delta 25 → −1 step
	if want := big.NewInt(1_000_000 - 1_000_000/2048); got.Cmp(want) != 0 {
		t.Errorf("delta=25: %v, want %v", got, want)
	}
	// Extreme delta clamps at −99 steps.
	got = CalcDifficulty(cfg, 1000+100000, parent)
	if want := big.NewInt(1_000_000 - 99*(1_000_000/2048)); got.Cmp(want) != 0 {
		t.Errorf("clamped: %v, want %v", got, want)
	}
}

func TestDifficultyEIP100OmmerFactor(t *testing.T) {
	cfg := params.ForkConfig(params.Byzantium)
	noOmmers := powParent(250, 1000, 1_000_000)
	withOmmers := powParent(250, 1000, 1_000_000)
	withOmmers.OmmersHash = types.HexToHash("0xdeadbeef")

	plain := CalcDifficulty(cfg, 1000, noOmmers)
	boosted := CalcDifficulty(cfg, 1000, withOmmers)

	step := big.NewInt(1_000_000 / 2048)
	if diff := new(big.Int).Sub(boosted, plain); diff.Cmp(step) != 0 {
		t.Errorf("ommer factor adds %v, want one step %v", diff, step)
	}
}

func TestDifficultyFloor(t *testing.T) {
	cfg := params.ForkConfig(params.Frontier)
	parent := powParent(10, 1000, 131072)
	if got := CalcDifficulty(cfg, 5000, parent); got.Cmp(params.MinimumDifficulty) < 0 {
		t.Errorf("difficulty %v fell below the floor", got)
	}
}

func TestDifficultyBombGrows(t *testing.T) {
	cfg := params.ForkConfig(params.Homestead) // undelayed bomb
	early := CalcDifficulty(cfg, 1013, powParent(499_999, 1000, 10_000_000))
	late := CalcDifficulty(cfg, 1013, powParent(999_999, 1000, 10_000_000))
	if late.Cmp(early) <= 0 {
		t.Errorf("bomb did not grow: early %v, late %v", early, late)
	}
}

func TestDifficultyBombDelayed(t *testing.T) {
	// At parent 3M, Byzantium's delay resets the bomb while Homestead's
	// formula has it over 2^27 strong.
	parent := powParent(3_000_000, 1000, 10_000_000)
	delayed := CalcDifficulty(params.ForkConfig(params.Byzantium), 1009, parent)
	undelayed := CalcDifficulty(params.ForkConfig(params.Homestead), 1010, parent)
	if delayed.Cmp(undelayed) >= 0 {
		t.Errorf("delay did not reduce difficulty: %v vs %v", delayed, undelayed)
	}
}

func TestDifficultyBombDelayAccumulates(t *testing.T) {
	parent := powParent(8_000_000, 1000, 10_000_000)
	constantinople := CalcDifficulty(params.ForkConfig(params.Constantinople), 1009, parent)
	byzantium := CalcDifficulty(params.ForkConfig(params.Byzantium), 1009, parent)
	if constantinople.Cmp(byzantium) >= 0 {
		t.Errorf("larger delay should lower difficulty: %v vs %v", constantinople, byzantium)
	}
}
