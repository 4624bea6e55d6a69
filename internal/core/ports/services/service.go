package services

// ServiceContainer holds instances of all the application services. This is
// the main entry point for accessing service functionality and is what the
// handlers receive at wiring time.
type ServiceContainer struct {
	Execution    ExecutionSvcFacade
	ExchangeRate ExchangeRateSvcFacade
	Goal         GoalSvcFacade
}
