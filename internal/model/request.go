package model

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// DurationClass groups requests by how volatile their data is.
type DurationClass int

const (
	// Short is used for data that changes often, such as financial records.
	Short DurationClass = iota
	// Medium is used for user documents and budget goals.
	Medium
	// Long is used for rarely edited data such as category lists.
	Long
)

// String returns the lowercase name of the class.
func (c DurationClass) String() string {
	switch c {
	case Short:
		return "short"
	case Medium:
		return "medium"
	case Long:
		return "long"
	default:
		return "unknown"
	}
}

// Durations maps each DurationClass to a concrete TTL.
type Durations struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// DefaultDurations returns 1 minute, 5 minutes and 1 hour.
func DefaultDurations() Durations {
	return Durations{
		Short:  time.Minute,
		Medium: 5 * time.Minute,
		Long:   time.Hour,
	}
}

// For returns the TTL for a class. Unknown classes get the Short TTL.
func (d Durations) For(c DurationClass) time.Duration {
	switch c {
	case Medium:
		return d.Medium
	case Long:
		return d.Long
	default:
		return d.Short
	}
}

// Timeframe is the period a budget goal applies to.
type Timeframe string

const (
	Weekly    Timeframe = "weekly"
	Monthly   Timeframe = "monthly"
	Quarterly Timeframe = "quarterly"
	Yearly    Timeframe = "yearly"
)

// ParseTimeframe parses a timeframe name case-insensitively.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(strings.ToLower(strings.TrimSpace(s)))
	if !tf.Valid() {
		names := make([]string, 0, len(Timeframes()))
		for _, t := range Timeframes() {
			names = append(names, string(t))
		}
		return "", &ValidationError{Field: "timeframe", Reason: "must be one of " + strings.Join(names, ", ")}
	}
	return tf, nil
}

// Valid reports whether tf is one of the known lowercase timeframes.
func (tf Timeframe) Valid() bool {
	return slices.Contains(Timeframes(), tf)
}

// Timeframes lists every valid timeframe.
func Timeframes() []Timeframe {
	return []Timeframe{Weekly, Monthly, Quarterly, Yearly}
}

// AllCategory is the synthetic category that matches every record.
const AllCategory = "All"

// FetchRequest describes one logical read the coordinator can serve.
// The set of implementations is closed to this package.
type FetchRequest interface {
	// CacheKey returns the deterministic key for the request.
	CacheKey() string
	// DurationClass returns how long a successful result may be cached.
	DurationClass() DurationClass
	// Validate reports malformed parameters before any fetch is issued.
	Validate() error

	isFetchRequest()
}

// UserDocumentRequest fetches the user's profile document.
type UserDocumentRequest struct {
	UserID string
}

// FinancialRangeRequest fetches income and expense records whose date lies
// in [Start, End].
type FinancialRangeRequest struct {
	UserID string
	Start  time.Time
	End    time.Time
}

// BudgetGoalRequest fetches the goal for a timeframe and category.
type BudgetGoalRequest struct {
	UserID    string
	Timeframe Timeframe
	Category  string
}

// CategoryListRequest fetches the names of the user's categories.
type CategoryListRequest struct {
	UserID string
}

func (UserDocumentRequest) isFetchRequest()   {}
func (FinancialRangeRequest) isFetchRequest() {}
func (BudgetGoalRequest) isFetchRequest()     {}
func (CategoryListRequest) isFetchRequest()   {}

// Key prefixes, one per request kind.
const (
	userKeyKind       = "user"
	financialKeyKind  = "financial"
	goalKeyKind       = "goal"
	categoriesKeyKind = "categories"
)

var keyEscaper = strings.NewReplacer(`\`, `\\`, ":", `\:`)

// buildKey joins a kind and its parameters with ':' after escaping every
// parameter, so keys of different kinds or parameter splits never collide.
func buildKey(kind string, parts ...string) string {
	var b strings.Builder
	b.WriteString(kind)
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(keyEscaper.Replace(p))
	}
	return b.String()
}

func (r UserDocumentRequest) CacheKey() string {
	return buildKey(userKeyKind, r.UserID)
}

func (r FinancialRangeRequest) CacheKey() string {
	return buildKey(financialKeyKind, r.UserID,
		strconv.FormatInt(r.Start.UnixMilli(), 10),
		strconv.FormatInt(r.End.UnixMilli(), 10))
}

// CategoryOrAll returns the goal category, defaulting to AllCategory.
func (r BudgetGoalRequest) CategoryOrAll() string {
	if r.Category == "" {
		return AllCategory
	}
	return r.Category
}

func (r BudgetGoalRequest) CacheKey() string {
	return buildKey(goalKeyKind, r.UserID, string(r.Timeframe), r.CategoryOrAll())
}

func (r CategoryListRequest) CacheKey() string {
	return buildKey(categoriesKeyKind, r.UserID)
}

func (UserDocumentRequest) DurationClass() DurationClass   { return Medium }
func (FinancialRangeRequest) DurationClass() DurationClass { return Short }
func (BudgetGoalRequest) DurationClass() DurationClass     { return Medium }
func (CategoryListRequest) DurationClass() DurationClass   { return Long }

func (r UserDocumentRequest) Validate() error {
	return validateUserID(r.UserID)
}

func (r FinancialRangeRequest) Validate() error {
	if err := validateUserID(r.UserID); err != nil {
		return err
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return &ValidationError{Field: "range", Reason: "start and end are required"}
	}
	if r.Start.After(r.End) {
		return &ValidationError{Field: "range", Reason: "start must not be after end"}
	}
	return nil
}

func (r BudgetGoalRequest) Validate() error {
	if err := validateUserID(r.UserID); err != nil {
		return err
	}
	if !r.Timeframe.Valid() {
		return &ValidationError{Field: "timeframe", Reason: "must be one of weekly, monthly, quarterly, yearly"}
	}
	if strings.Contains(r.Category, "/") {
		return &ValidationError{Field: "category", Reason: "must not contain '/'"}
	}
	return nil
}

func (r CategoryListRequest) Validate() error {
	return validateUserID(r.UserID)
}

func validateUserID(id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Field: "user_id", Reason: "is required"}
	}
	if strings.Contains(id, "/") {
		return &ValidationError{Field: "user_id", Reason: "must not contain '/'"}
	}
	return nil
}

// UserKeys returns the exact cache keys owned by a user and the key prefixes
// under which the user's range and goal entries live.
func UserKeys(userID string) (keys []string, prefixes []string) {
	keys = []string{
		UserDocumentRequest{UserID: userID}.CacheKey(),
		CategoryListRequest{UserID: userID}.CacheKey(),
	}
	prefixes = []string{
		buildKey(financialKeyKind, userID) + ":",
		buildKey(goalKeyKind, userID) + ":",
	}
	return keys, prefixes
}
