package repositories

// RepositoryProvider bundles the repository implementations handed to the
// service container at wiring time.
type RepositoryProvider struct {
	Asset        AssetReader
	Goal         GoalReader
	Ledger       LedgerRepositoryFacade
	Execution    ExecutionRepositoryFacade
	ExchangeRate ExchangeRateRepository
}
