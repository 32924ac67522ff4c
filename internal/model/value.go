package model

// Value is a cached or fetched result. The implementations are Document,
// RecordList, RecordListPair and StringList.
type Value interface {
	isValue()
}

// Document is a single store document.
type Document map[string]any

// RecordList is an ordered list of documents.
type RecordList []Document

// RecordListPair is the combined result of a financial range fetch.
// A side is nil when its fetch failed.
type RecordListPair struct {
	Income   RecordList `json:"income"`
	Expenses RecordList `json:"expenses"`
}

// StringList is an ordered list of names.
type StringList []string

func (Document) isValue()       {}
func (RecordList) isValue()     {}
func (RecordListPair) isValue() {}
func (StringList) isValue()     {}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneAny(v)
	}
	return out
}

// Clone returns a deep copy of the list.
func (l RecordList) Clone() RecordList {
	if l == nil {
		return nil
	}
	out := make(RecordList, len(l))
	for i, d := range l {
		out[i] = d.Clone()
	}
	return out
}

// CloneValue deep copies any Value so the cache never shares mutable state
// with callers.
func CloneValue(v Value) Value {
	switch t := v.(type) {
	case Document:
		return t.Clone()
	case RecordList:
		return t.Clone()
	case RecordListPair:
		return RecordListPair{Income: t.Income.Clone(), Expenses: t.Expenses.Clone()}
	case StringList:
		if t == nil {
			return StringList(nil)
		}
		return append(StringList(nil), t...)
	default:
		return v
	}
}

func cloneAny(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Document(t).Clone())
	case Document:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneAny(e)
		}
		return out
	default:
		return v
	}
}
