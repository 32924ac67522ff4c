package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"fintrack-sync/internal/cache"
	"fintrack-sync/internal/gateway"
	"fintrack-sync/internal/model"
)

// Callback receives the outcome of a Resolve call exactly once.
// A nil value with a nil error means "legitimately empty".
type Callback func(model.Value, error)

// CoordinatorConfig holds fetch coordinator settings.
type CoordinatorConfig struct {
	// Durations maps duration classes to TTLs.
	Durations model.Durations

	// Coalesce shares one in-flight gateway fetch between concurrent
	// requests for the same cache key.
	Coalesce bool

	// GatewayTimeout bounds each gateway fetch. Zero means no bound.
	GatewayTimeout time.Duration
}

// DefaultCoordinatorConfig returns default durations with coalescing on.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		Durations:      model.DefaultDurations(),
		Coalesce:       true,
		GatewayTimeout: 15 * time.Second,
	}
}

// Coordinator serves fetch requests from the cache, falling back to the
// gateway and writing successful results back.
type Coordinator struct {
	store   *cache.Store
	gateway gateway.Gateway
	config  CoordinatorConfig
	group   singleflight.Group
	logger  zerolog.Logger
}

// NewCoordinator creates a coordinator over an injected store and gateway.
func NewCoordinator(store *cache.Store, gw gateway.Gateway, config CoordinatorConfig, logger zerolog.Logger) *Coordinator {
	if config.Durations == (model.Durations{}) {
		config.Durations = model.DefaultDurations()
	}
	return &Coordinator{
		store:   store,
		gateway: gw,
		config:  config,
		logger:  logger,
	}
}

// Resolve serves req asynchronously and invokes cb exactly once on another
// goroutine. With forceRefresh the cache is bypassed and the gateway is
// always consulted. Cancelling ctx does not cancel an in-flight fetch.
func (c *Coordinator) Resolve(ctx context.Context, req model.FetchRequest, forceRefresh bool, cb Callback) {
	go func() {
		cb(c.resolve(ctx, req, forceRefresh))
	}()
}

// ResolveSync is Resolve that blocks until the result is available or ctx is
// done.
func (c *Coordinator) ResolveSync(ctx context.Context, req model.FetchRequest, forceRefresh bool) (model.Value, error) {
	type outcome struct {
		value model.Value
		err   error
	}
	done := make(chan outcome, 1)

	c.Resolve(ctx, req, forceRefresh, func(v model.Value, err error) {
		done <- outcome{value: v, err: err}
	})

	select {
	case o := <-done:
		return o.value, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops the cached entry for req.
func (c *Coordinator) Invalidate(ctx context.Context, req model.FetchRequest) {
	c.store.Delete(ctx, req.CacheKey())
}

// InvalidateUser drops every cached entry belonging to userID and returns
// how many in-memory entries were removed.
func (c *Coordinator) InvalidateUser(ctx context.Context, userID string) int {
	keys, prefixes := model.UserKeys(userID)
	removed := 0
	for _, k := range keys {
		if c.store.Delete(ctx, k) {
			removed++
		}
	}
	for _, p := range prefixes {
		removed += c.store.DeletePrefix(ctx, p)
	}
	return removed
}

func (c *Coordinator) resolve(ctx context.Context, req model.FetchRequest, forceRefresh bool) (model.Value, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := req.CacheKey()
	log := c.logger.With().Str("key", key).Bool("force_refresh", forceRefresh).Logger()

	if !forceRefresh {
		if v, ok := c.store.Get(ctx, key); ok {
			log.Debug().Msg("cache hit")
			return v, nil
		}
		log.Debug().Msg("cache miss")
	}

	fetchCtx := context.WithoutCancel(ctx)
	if c.config.GatewayTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(fetchCtx, c.config.GatewayTimeout)
		defer cancel()
	}

	if !c.config.Coalesce {
		return c.fetch(fetchCtx, req)
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		return c.fetch(fetchCtx, req)
	})
	value, _ := v.(model.Value)
	if shared {
		log.Debug().Msg("joined in-flight fetch")
		value = model.CloneValue(value)
	}
	return value, err
}

func (c *Coordinator) fetch(ctx context.Context, req model.FetchRequest) (model.Value, error) {
	switch r := req.(type) {
	case model.UserDocumentRequest:
		return c.fetchUser(ctx, r)
	case model.BudgetGoalRequest:
		return c.fetchBudgetGoal(ctx, r)
	case model.CategoryListRequest:
		return c.fetchCategories(ctx, r)
	case model.FinancialRangeRequest:
		return c.fetchFinancialRange(ctx, r)
	default:
		return nil, fmt.Errorf("unsupported request type %T", req)
	}
}

func (c *Coordinator) ttl(req model.FetchRequest) time.Duration {
	return c.config.Durations.For(req.DurationClass())
}

// fetchUser treats a missing user document as an error.
func (c *Coordinator) fetchUser(ctx context.Context, r model.UserDocumentRequest) (model.Value, error) {
	path := gateway.UserPath(r.UserID)

	exists, data, err := c.gateway.GetDocument(ctx, path)
	if err != nil {
		return nil, c.gatewayError("get_document", path, err)
	}
	if !exists || len(data) == 0 {
		return nil, &NotFoundError{Kind: "user", Path: path}
	}

	doc := model.Document(data)
	c.store.Put(ctx, r.CacheKey(), doc, c.ttl(r))
	return doc, nil
}

// fetchBudgetGoal treats a missing goal as an empty result.
func (c *Coordinator) fetchBudgetGoal(ctx context.Context, r model.BudgetGoalRequest) (model.Value, error) {
	path := gateway.BudgetGoalPath(r.UserID, string(r.Timeframe), r.CategoryOrAll())

	exists, data, err := c.gateway.GetDocument(ctx, path)
	if err != nil {
		return nil, c.gatewayError("get_document", path, err)
	}
	if !exists || len(data) == 0 {
		return nil, nil
	}

	doc := model.Document(data)
	c.store.Put(ctx, r.CacheKey(), doc, c.ttl(r))
	return doc, nil
}

// fetchCategories always yields a list starting with AllCategory, without
// duplicates, in first-seen order.
func (c *Coordinator) fetchCategories(ctx context.Context, r model.CategoryListRequest) (model.Value, error) {
	path := gateway.CategoriesPath(r.UserID)

	docs, err := c.gateway.QueryAll(ctx, path)
	if err != nil {
		return nil, c.gatewayError("query_all", path, err)
	}

	names := model.StringList{model.AllCategory}
	seen := map[string]struct{}{model.AllCategory: {}}
	for _, d := range docs {
		name, ok := d["name"].(string)
		if !ok || name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	c.store.Put(ctx, r.CacheKey(), names, c.ttl(r))
	return names, nil
}

// joinSide is one half of a financial range join.
type joinSide struct {
	records model.RecordList
	err     error
}

// fetchFinancialRange queries income and expenses concurrently and returns
// once both have completed.
func (c *Coordinator) fetchFinancialRange(ctx context.Context, r model.FinancialRangeRequest) (model.Value, error) {
	lower, upper := r.Start.UnixMilli(), r.End.UnixMilli()

	var income, expenses joinSide
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		income = c.queryRecords(ctx, gateway.IncomePath(r.UserID), lower, upper)
	}()
	go func() {
		defer wg.Done()
		expenses = c.queryRecords(ctx, gateway.ExpensesPath(r.UserID), lower, upper)
	}()
	wg.Wait()

	pair := model.RecordListPair{Income: income.records, Expenses: expenses.records}

	switch {
	case income.err != nil:
		return pair, &PartialJoinError{Side: gateway.IncomeCollection, Err: income.err}
	case expenses.err != nil:
		return pair, &PartialJoinError{Side: gateway.ExpensesCollection, Err: expenses.err}
	}

	c.store.Put(ctx, r.CacheKey(), pair, c.ttl(r))
	return pair, nil
}

func (c *Coordinator) queryRecords(ctx context.Context, path string, lower, upper int64) joinSide {
	docs, err := c.gateway.QueryRange(ctx, path, gateway.DateField, lower, upper)
	if err != nil {
		return joinSide{err: c.gatewayError("query_range", path, err)}
	}

	records := make(model.RecordList, len(docs))
	for i, d := range docs {
		records[i] = model.Document(d)
	}
	return joinSide{records: records}
}

func (c *Coordinator) gatewayError(op, path string, err error) error {
	c.logger.Warn().Err(err).Str("op", op).Str("path", path).Msg("gateway operation failed")
	return &GatewayError{Op: op, Path: path, Err: err}
}
