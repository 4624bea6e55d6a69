package services

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stashly/stashly_backend/internal/core/domain"
	portssvc "github.com/stashly/stashly_backend/internal/core/ports/services"
	"github.com/stashly/stashly_backend/internal/middleware"
)

// aggregationService groups derived events per goal and converts them into
// goal-currency totals. A failed or abandoned rate lookup never fails the
// aggregation: the affected (goal, asset currency) pair is skipped, so totals
// can conservatively undercount during a rate outage but never contain a
// fabricated rate.
type aggregationService struct {
	rateLookup portssvc.RateLookupSvc
}

// NewAggregationService creates a new AggregationSvc.
func NewAggregationService(rateLookup portssvc.RateLookupSvc) portssvc.AggregationSvc {
	return &aggregationService{rateLookup: rateLookup}
}

var _ portssvc.AggregationSvc = (*aggregationService)(nil)

// rateCache memoizes rate lookups for the duration of one aggregation call.
// Failures are memoized too, so an unavailable pair is looked up once.
type rateCache struct {
	lookup portssvc.RateLookupSvc
	rates  map[string]decimal.Decimal
	failed map[string]bool
}

func newRateCache(lookup portssvc.RateLookupSvc) *rateCache {
	return &rateCache{
		lookup: lookup,
		rates:  make(map[string]decimal.Decimal),
		failed: make(map[string]bool),
	}
}

// RateKey is the canonical cache key for a currency pair.
func RateKey(fromCode, toCode string) string {
	return strings.ToUpper(fromCode) + "->" + strings.ToUpper(toCode)
}

func (c *rateCache) get(ctx context.Context, fromCode, toCode string) (decimal.Decimal, bool) {
	key := RateKey(fromCode, toCode)
	if rate, ok := c.rates[key]; ok {
		return rate, true
	}
	if c.failed[key] {
		return decimal.Zero, false
	}
	rate, err := c.lookup.FetchRate(ctx, fromCode, toCode)
	if err != nil {
		middleware.GetLoggerFromCtx(ctx).Warn("Rate lookup failed, skipping pair",
			slog.String("from", fromCode),
			slog.String("to", toCode),
			slog.String("error", err.Error()),
		)
		c.failed[key] = true
		return decimal.Zero, false
	}
	c.rates[key] = rate
	return rate, true
}

// netDelta is the netted contribution of one asset currency to one goal.
type netDelta struct {
	goalID        string
	goalCurrency  string
	assetCurrency string
	amount        decimal.Decimal
}

// AggregateTotals implements portssvc.AggregationSvc.
func (s *aggregationService) AggregateTotals(ctx context.Context, events []domain.DerivedEvent) (map[string]decimal.Decimal, map[string]decimal.Decimal, error) {
	cache := newRateCache(s.rateLookup)
	totals := make(map[string]decimal.Decimal)

	for _, net := range netPerGoalCurrency(events) {
		if strings.EqualFold(net.assetCurrency, net.goalCurrency) {
			totals[net.goalID] = totals[net.goalID].Add(net.amount)
			continue
		}
		rate, ok := cache.get(ctx, net.assetCurrency, net.goalCurrency)
		if !ok {
			continue
		}
		totals[net.goalID] = totals[net.goalID].Add(net.amount.Mul(rate))
	}
	return totals, cache.rates, nil
}

// BuildContributionSnapshots implements portssvc.AggregationSvc. Unlike
// AggregateTotals it converts event by event, because the closure artifact
// records each contribution with the rate applied to it.
func (s *aggregationService) BuildContributionSnapshots(ctx context.Context, events []domain.DerivedEvent) ([]domain.ContributionSnapshot, map[string]decimal.Decimal, error) {
	cache := newRateCache(s.rateLookup)
	snapshots := make([]domain.ContributionSnapshot, 0, len(events))

	for _, event := range events {
		rate := decimal.NewFromInt(1)
		if !strings.EqualFold(event.AssetCurrency, event.GoalCurrency) {
			var ok bool
			rate, ok = cache.get(ctx, event.AssetCurrency, event.GoalCurrency)
			if !ok {
				continue
			}
		}
		snapshots = append(snapshots, domain.ContributionSnapshot{
			SnapshotID:    uuid.NewString(),
			Timestamp:     event.Timestamp,
			Source:        event.Source,
			AssetID:       event.AssetID,
			AssetCurrency: event.AssetCurrency,
			GoalID:        event.GoalID,
			GoalCurrency:  event.GoalCurrency,
			AssetDelta:    event.Delta,
			GoalAmount:    event.Delta.Mul(rate),
			Rate:          rate,
		})
	}
	return snapshots, cache.rates, nil
}

// netPerGoalCurrency nets all deltas per (goal, asset currency) pair so each
// pair is converted at most once, returned in deterministic order.
func netPerGoalCurrency(events []domain.DerivedEvent) []netDelta {
	nets := make(map[string]*netDelta)
	for _, event := range events {
		key := event.GoalID + "|" + strings.ToUpper(event.AssetCurrency)
		net, ok := nets[key]
		if !ok {
			net = &netDelta{
				goalID:        event.GoalID,
				goalCurrency:  event.GoalCurrency,
				assetCurrency: event.AssetCurrency,
			}
			nets[key] = net
		}
		net.amount = net.amount.Add(event.Delta)
	}

	keys := make([]string, 0, len(nets))
	for key := range nets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]netDelta, 0, len(keys))
	for _, key := range keys {
		result = append(result, *nets[key])
	}
	return result
}
