// Package gateway defines the remote document store contract and its
// MongoDB and in-memory implementations.
package gateway

import (
	"context"
	"strings"
	"time"
)

// Gateway is a path-addressed document store. Paths alternate collection and
// document segments: "users/u1" is a document, "users/u1/income" a collection.
type Gateway interface {
	// GetDocument reads one document. A missing document is reported as
	// exists=false with a nil error.
	GetDocument(ctx context.Context, path string) (exists bool, data map[string]any, err error)

	// QueryRange returns the documents of a collection whose numeric field
	// lies in [lower, upper].
	QueryRange(ctx context.Context, collectionPath, field string, lower, upper int64) ([]map[string]any, error)

	// QueryAll returns every document of a collection.
	QueryAll(ctx context.Context, collectionPath string) ([]map[string]any, error)
}

// Collection names under a user document.
const (
	UsersCollection       = "users"
	IncomeCollection      = "income"
	ExpensesCollection    = "expenses"
	BudgetGoalsCollection = "budgetGoals"
	CategoriesCollection  = "categories"
)

// DateField is the record field holding the entry timestamp in Unix millis.
const DateField = "date"

// UserPath returns the path of a user document.
func UserPath(userID string) string {
	return UsersCollection + "/" + userID
}

// IncomePath returns the path of a user's income collection.
func IncomePath(userID string) string {
	return UserPath(userID) + "/" + IncomeCollection
}

// ExpensesPath returns the path of a user's expenses collection.
func ExpensesPath(userID string) string {
	return UserPath(userID) + "/" + ExpensesCollection
}

// CategoriesPath returns the path of a user's categories collection.
func CategoriesPath(userID string) string {
	return UserPath(userID) + "/" + CategoriesCollection
}

// BudgetGoalPath returns the path of the goal document for a timeframe and
// category.
func BudgetGoalPath(userID, timeframe, category string) string {
	return UserPath(userID) + "/" + BudgetGoalsCollection + "/" + timeframe + "_" + category
}

// ParentPath returns the collection path that contains a document path.
func ParentPath(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return ""
	}
	return path[:i]
}

// numericField converts a stored field value to Unix millis.
func numericField(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case time.Time:
		return n.UnixMilli(), true
	default:
		return 0, false
	}
}
