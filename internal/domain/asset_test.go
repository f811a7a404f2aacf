package domain

import "testing"

func TestAssetType_Valid(t *testing.T) {
	tests := []struct {
		name string
		in   AssetType
		want bool
	}{
		{"ok", testEOS, true},
		{"lowercase symbol", AssetType{Symbol: "eos", Precision: 4, Issuer: "x"}, false},
		{"symbol too long", AssetType{Symbol: "ABCDEFGH", Precision: 4, Issuer: "x"}, false},
		{"empty symbol", AssetType{Precision: 4, Issuer: "x"}, false},
		{"precision too large", AssetType{Symbol: "EOS", Precision: 19, Issuer: "x"}, false},
		{"missing issuer", AssetType{Symbol: "EOS", Precision: 4}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAmount_Validity(t *testing.T) {
	if !NewAmount(0, testEOS).Valid() {
		t.Error("zero amount should be valid")
	}
	if NewAmount(0, testEOS).Positive() {
		t.Error("zero amount should not be positive")
	}
	if NewAmount(-1, testEOS).Valid() {
		t.Error("negative amount should be invalid")
	}
	if NewAmount(5, AssetType{}).Positive() {
		t.Error("amount without asset type should not be positive")
	}
}

func TestAmount_Arithmetic(t *testing.T) {
	a := NewAmount(100, testEOS)
	b := NewAmount(40, testEOS)

	if got := a.Sub(b); got.Quantity != 60 || got.Type != testEOS {
		t.Errorf("Sub = %+v, want 60", got)
	}
	if got := a.Add(b); got.Quantity != 140 {
		t.Errorf("Add = %+v, want 140", got)
	}
	if got := Min(a, b); !got.Equal(b) {
		t.Errorf("Min = %+v, want %+v", got, b)
	}
	if !b.Less(a) || a.Less(b) {
		t.Error("Less ordering is wrong")
	}
}

func TestAmount_Equal_ComparesType(t *testing.T) {
	if NewAmount(5, testEOS).Equal(NewAmount(5, testUSD)) {
		t.Error("amounts of different assets must not be equal")
	}
	other := testEOS
	other.Issuer = "fake.token"
	if NewAmount(5, testEOS).Equal(NewAmount(5, other)) {
		t.Error("amounts from different issuers must not be equal")
	}
}

func TestAmount_MixedTypesPanic(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic adding amounts of different assets")
		}
	}()
	NewAmount(1, testEOS).Add(NewAmount(1, testUSD))
}
