package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/efreitasn/tokenexchange/internal/domain"
)

// DefaultAssets is the catalog listed when no assets file is configured.
var DefaultAssets = []domain.AssetType{
	{Symbol: "EOS", Precision: 4, Issuer: "eosio.token"},
	{Symbol: "USD", Precision: 2, Issuer: "bank"},
}

type assetsFile struct {
	Assets []assetEntry `yaml:"assets"`
}

type assetEntry struct {
	Symbol    string `yaml:"symbol"`
	Precision uint8  `yaml:"precision"`
	Issuer    string `yaml:"issuer"`
}

// LoadAssets reads the asset catalog from a YAML file of the form
//
//	assets:
//	  - symbol: EOS
//	    precision: 4
//	    issuer: eosio.token
//
// An empty path returns DefaultAssets.
func LoadAssets(path string) ([]domain.AssetType, error) {
	if path == "" {
		return append([]domain.AssetType(nil), DefaultAssets...), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read assets file: %w", err)
	}
	return ParseAssets(data)
}

// ParseAssets decodes and validates a YAML asset catalog. Symbols must be
// unique and every asset well-formed.
func ParseAssets(data []byte) ([]domain.AssetType, error) {
	var f assetsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse assets file: %w", err)
	}
	if len(f.Assets) == 0 {
		return nil, fmt.Errorf("assets file lists no assets")
	}

	seen := make(map[string]bool, len(f.Assets))
	assets := make([]domain.AssetType, 0, len(f.Assets))
	for i, e := range f.Assets {
		a := domain.AssetType{Symbol: e.Symbol, Precision: e.Precision, Issuer: e.Issuer}
		if !a.Valid() {
			return nil, fmt.Errorf("asset %d (%q): symbol must be 1-7 uppercase letters, precision at most %d, issuer non-empty",
				i, e.Symbol, domain.MaxPrecision)
		}
		if seen[a.Symbol] {
			return nil, fmt.Errorf("asset %q listed twice", a.Symbol)
		}
		seen[a.Symbol] = true
		assets = append(assets, a)
	}
	return assets, nil
}
