package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single signed balance delta in an asset's ledger. The
// ledger is maintained by the external balance-sync collaborator and is
// strictly read-only to this subsystem.
type Transaction struct {
	TransactionID string          `json:"transactionID"` // Primary Key (UUID)
	AssetID       string          `json:"assetID"`       // FK -> Asset.assetID
	Amount        decimal.Decimal `json:"amount"`        // Signed delta, asset currency
	Timestamp     time.Time       `json:"timestamp"`
}
