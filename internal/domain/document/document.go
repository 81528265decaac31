package document

import (
	"fmt"
	"strconv"
)

// Document is an index document payload keyed by field name.
type Document map[string]any

// ID returns the document identifier coerced to a string.
func (d Document) ID() string {
	return IDString(d["id"])
}

// Normalized is a document ready to be written to a collection.
type Normalized struct {
	Collection string   `json:"collection"`
	Document   Document `json:"document"`
}

// IDString renders an identity value as a document id. Nil yields "".
func IDString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case int32:
		return strconv.FormatInt(int64(id), 10)
	case uint:
		return strconv.FormatUint(uint64(id), 10)
	case uint64:
		return strconv.FormatUint(id, 10)
	case uint32:
		return strconv.FormatUint(uint64(id), 10)
	case fmt.Stringer:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}

// Action is the import write mode.
type Action string

// Import actions.
const (
	ActionCreate  Action = "create"
	ActionUpsert  Action = "upsert"
	ActionUpdate  Action = "update"
	ActionEmplace Action = "emplace"
)

// IsValid reports whether a is a known import action.
func (a Action) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpsert, ActionUpdate, ActionEmplace:
		return true
	}
	return false
}

// SearchParams is a pass-through query. Extra carries engine parameters not modelled here.
type SearchParams struct {
	Q        string
	QueryBy  string
	FilterBy string
	SortBy   string
	Page     int
	PerPage  int
	Extra    map[string]string
}

// Hit is a single search match.
type Hit struct {
	Document  Document `json:"document"`
	TextMatch int64    `json:"text_match,omitempty"`
}

// SearchResult is the engine's answer to a search.
type SearchResult struct {
	Found int   `json:"found"`
	Page  int   `json:"page"`
	Hits  []Hit `json:"hits"`
}
