package domain

// Asset represents a crypto or fiat holding whose balance funds savings goals.
// The balance itself is never stored here; it is always the sum of the asset's
// transaction ledger up to the instant of interest.
type Asset struct {
	AssetID      string `json:"assetID"`      // Primary Key (UUID)
	Name         string `json:"name"`         // e.g., "Cold wallet BTC"
	CurrencyCode string `json:"currencyCode"` // e.g., "BTC", "EUR"
	AuditFields
}
