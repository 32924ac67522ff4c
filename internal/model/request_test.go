package model_test

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack-sync/internal/model"
)

func TestCacheKey_Deterministic(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	a := model.FinancialRangeRequest{UserID: "u1", Start: start, End: end}
	b := model.FinancialRangeRequest{UserID: "u1", Start: start, End: end}

	assert.Equal(t, a.CacheKey(), b.CacheKey())
	assert.Equal(t, "financial:u1:1704067200000:1706745600000", a.CacheKey())
}

func TestCacheKey_DistinctAcrossKinds(t *testing.T) {
	reqs := []model.FetchRequest{
		model.UserDocumentRequest{UserID: "u1"},
		model.CategoryListRequest{UserID: "u1"},
		model.BudgetGoalRequest{UserID: "u1", Timeframe: model.Monthly},
		model.FinancialRangeRequest{UserID: "u1", Start: time.UnixMilli(1), End: time.UnixMilli(2)},
	}

	seen := make(map[string]bool)
	for _, r := range reqs {
		key := r.CacheKey()
		assert.False(t, seen[key], "duplicate key %q", key)
		seen[key] = true
	}
}

func TestCacheKey_EscapesSeparator(t *testing.T) {
	a := model.BudgetGoalRequest{UserID: "a:b", Timeframe: model.Weekly, Category: "c"}
	b := model.BudgetGoalRequest{UserID: "a", Timeframe: model.Weekly, Category: "b:c"}

	assert.NotEqual(t, a.CacheKey(), b.CacheKey())
	assert.Equal(t, `goal:a\:b:weekly:c`, a.CacheKey())
}

func TestBudgetGoalRequest_DefaultsToAllCategory(t *testing.T) {
	a := model.BudgetGoalRequest{UserID: "u1", Timeframe: model.Yearly}
	b := model.BudgetGoalRequest{UserID: "u1", Timeframe: model.Yearly, Category: model.AllCategory}

	assert.Equal(t, a.CacheKey(), b.CacheKey())
}

func TestDurationClasses(t *testing.T) {
	d := model.DefaultDurations()

	assert.Equal(t, time.Minute, d.For(model.FinancialRangeRequest{}.DurationClass()))
	assert.Equal(t, 5*time.Minute, d.For(model.UserDocumentRequest{}.DurationClass()))
	assert.Equal(t, 5*time.Minute, d.For(model.BudgetGoalRequest{}.DurationClass()))
	assert.Equal(t, time.Hour, d.For(model.CategoryListRequest{}.DurationClass()))
}

func TestValidate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		req     model.FetchRequest
		wantErr bool
	}{
		{name: "valid user", req: model.UserDocumentRequest{UserID: "u1"}},
		{name: "empty user", req: model.UserDocumentRequest{}, wantErr: true},
		{name: "slash in user", req: model.CategoryListRequest{UserID: "a/b"}, wantErr: true},
		{name: "valid range", req: model.FinancialRangeRequest{UserID: "u1", Start: now, End: now}},
		{name: "inverted range", req: model.FinancialRangeRequest{UserID: "u1", Start: now, End: now.Add(-time.Second)}, wantErr: true},
		{name: "missing bounds", req: model.FinancialRangeRequest{UserID: "u1"}, wantErr: true},
		{name: "valid goal", req: model.BudgetGoalRequest{UserID: "u1", Timeframe: model.Quarterly}},
		{name: "bad timeframe", req: model.BudgetGoalRequest{UserID: "u1", Timeframe: "daily"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				var vErr *model.ValidationError
				require.ErrorAs(t, err, &vErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestParseTimeframe(t *testing.T) {
	tf, err := model.ParseTimeframe(" Monthly ")
	require.NoError(t, err)
	assert.Equal(t, model.Monthly, tf)

	_, err = model.ParseTimeframe("fortnightly")
	require.Error(t, err)
}

func TestUserKeys(t *testing.T) {
	keys, prefixes := model.UserKeys("u1")

	assert.Contains(t, keys, model.UserDocumentRequest{UserID: "u1"}.CacheKey())
	assert.Contains(t, keys, model.CategoryListRequest{UserID: "u1"}.CacheKey())

	goalKey := model.BudgetGoalRequest{UserID: "u1", Timeframe: model.Weekly}.CacheKey()
	otherGoal := model.BudgetGoalRequest{UserID: "u10", Timeframe: model.Weekly}.CacheKey()

	matched := func(key string) bool {
		for _, p := range prefixes {
			if len(key) >= len(p) && key[:len(p)] == p {
				return true
			}
		}
		return false
	}
	assert.True(t, matched(goalKey))
	assert.False(t, matched(otherGoal))
}

func TestCloneValue_IsDeep(t *testing.T) {
	doc := model.Document{"name": "Ada", "tags": []any{"a"}, "nested": map[string]any{"k": 1}}

	cloned := model.CloneValue(doc).(model.Document)
	cloned["name"] = "Bob"
	cloned["nested"].(map[string]any)["k"] = 2

	assert.Equal(t, "Ada", doc["name"])
	assert.Equal(t, 1, doc["nested"].(map[string]any)["k"])
}

func TestSummarize(t *testing.T) {
	pair := model.RecordListPair{
		Income: model.RecordList{
			{"amount": 1000},
			{"amount": "250.50"},
		},
		Expenses: model.RecordList{
			{"amount": 0.1, "category": "Food"},
			{"amount": 0.2, "category": "Food"},
			{"amount": int64(300)},
			{"amount": "n/a", "category": "Rent"},
		},
	}

	s := model.Summarize(pair)

	assert.True(t, s.Income.Equal(decimal.RequireFromString("1250.5")))
	assert.True(t, s.Expenses.Equal(decimal.RequireFromString("300.3")))
	assert.True(t, s.Net.Equal(decimal.RequireFromString("950.2")))
	assert.True(t, s.ByCategory["Food"].Equal(decimal.RequireFromString("0.3")))
	assert.True(t, s.ByCategory[model.UncategorizedCategory].Equal(decimal.NewFromInt(300)))
	assert.Equal(t, 1, s.Skipped)
}

func TestSummarize_NonFiniteAmountsAreSkipped(t *testing.T) {
	pair := model.RecordListPair{
		Income: model.RecordList{
			{"amount": math.NaN()},
			{"amount": 10},
		},
		Expenses: model.RecordList{
			{"amount": math.Inf(1), "category": "Food"},
			{"amount": float32(math.Inf(-1))},
			{"amount": 4, "category": "Food"},
		},
	}

	var s model.RangeSummary
	require.NotPanics(t, func() { s = model.Summarize(pair) })

	assert.Equal(t, 3, s.Skipped)
	assert.True(t, s.Income.Equal(decimal.NewFromInt(10)))
	assert.True(t, s.Expenses.Equal(decimal.NewFromInt(4)))
	assert.True(t, s.ByCategory["Food"].Equal(decimal.NewFromInt(4)))
}
