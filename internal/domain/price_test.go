package domain

import (
	"math"
	"testing"
)

func TestNewPrice_SameRateDifferentSizesEqual(t *testing.T) {
	x := AssetType{Symbol: "X", Precision: 0, Issuer: "i"}
	y := AssetType{Symbol: "Y", Precision: 0, Issuer: "i"}

	p1 := NewPrice(NewAmount(100, x), NewAmount(50, y))
	p2 := NewPrice(NewAmount(2, x), NewAmount(1, y))
	if !p1.Equal(p2) {
		t.Errorf("expected %s == %s", p1, p2)
	}
	if p1.Float64() != 2.0 {
		t.Errorf("Float64() = %v, want 2", p1.Float64())
	}
}

func TestNewPrice_CorrectsForPrecision(t *testing.T) {
	// 100.0000 EOS for 50.00 USD is 2 EOS per USD.
	p := NewPrice(NewAmount(1_000_000, testEOS), NewAmount(5000, testUSD))
	if math.Abs(p.Float64()-2.0) > 1e-12 {
		t.Errorf("Float64() = %v, want 2", p.Float64())
	}
}

func TestPrice_Cmp(t *testing.T) {
	x := AssetType{Symbol: "X", Precision: 0, Issuer: "i"}
	y := AssetType{Symbol: "Y", Precision: 0, Issuer: "i"}
	low := NewPrice(NewAmount(1, x), NewAmount(3, y))
	high := NewPrice(NewAmount(1, x), NewAmount(2, y))
	if low.Cmp(high) >= 0 || high.Cmp(low) <= 0 {
		t.Errorf("expected %s < %s", low, high)
	}
}
