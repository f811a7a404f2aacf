package domain

import "sync"

// AssetCatalog tracks the assets the exchange lists, keyed by symbol.
// The HTTP surface resolves wire symbols through it; the engine itself only
// sees fully resolved AssetTypes.
type AssetCatalog struct {
	mu     sync.RWMutex
	assets map[string]AssetType
}

// NewAssetCatalog creates a catalog holding the given assets.
func NewAssetCatalog(assets ...AssetType) *AssetCatalog {
	c := &AssetCatalog{
		assets: make(map[string]AssetType, len(assets)),
	}
	for _, a := range assets {
		c.assets[a.Symbol] = a
	}
	return c
}

// Register adds or replaces an asset. Safe for concurrent use.
func (c *AssetCatalog) Register(a AssetType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assets[a.Symbol] = a
}

// Lookup returns the asset listed under symbol.
func (c *AssetCatalog) Lookup(symbol string) (AssetType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.assets[symbol]
	if !ok {
		return AssetType{}, ErrAssetNotFound
	}
	return a, nil
}

// List returns every listed asset in no particular order.
func (c *AssetCatalog) List() []AssetType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]AssetType, 0, len(c.assets))
	for _, a := range c.assets {
		out = append(out, a)
	}
	return out
}
