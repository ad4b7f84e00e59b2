package entity

// TokenAsset is one entry of a balance query.
type TokenAsset struct {
	ChainIndex   string `json:"chainIndex"`
	TokenAddress string `json:"tokenAddress"`
	Symbol       string `json:"symbol"`
	Balance      string `json:"balance"` // decimal, display units
	TokenPrice   string `json:"tokenPrice"`
}
