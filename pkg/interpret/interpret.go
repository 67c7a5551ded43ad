// Package interpret extracts record arrays and pagination metadata
// from heterogeneous JSON response shapes.
//
// Pagination conventions vary wildly between services, so this package
// never fails: unknown shapes degrade to a best-effort interpretation
// instead of aborting. Detection works off finite, explicitly
// enumerated key-priority lists so behavior stays reproducible.
package interpret

import "strings"

// Key priority for locating the record array inside an object-shaped
// response. First match wins.
var recordListKeys = []string{"data", "results", "items", "users", "records", "content"}

// Candidate-key groups for pagination metadata. First match per group wins.
var (
	totalPagesKeys   = []string{"totalPages", "total_pages", "pageCount", "pages"}
	totalRecordsKeys = []string{"totalRecords", "total", "totalCount", "count", "totalElements"}
	currentPageKeys  = []string{"currentPage", "page", "pageNumber"}
	pageSizeKeys     = []string{"pageSize", "limit", "size", "perPage"}
	hasMoreKeys      = []string{"hasMore", "has_more", "hasNext", "has_next"}
)

// PageInfo describes pagination metadata found in a response body.
// Fields are zero when the corresponding key group did not match;
// HasMoreKnown distinguishes an absent has-more flag from a false one.
type PageInfo struct {
	HasPagination bool
	TotalPages    int
	TotalRecords  int
	CurrentPage   int
	PageSize      int
	HasMore       bool
	HasMoreKnown  bool
}

// Interpret extracts the record array and pagination metadata from a
// decoded response body.
//
// A bare array is the complete record list with no pagination. An
// object yields the array under the first matching record-list key; if
// none matches, the whole object is treated as a single record.
func Interpret(body any) ([]any, PageInfo) {
	switch v := body.(type) {
	case []any:
		return v, PageInfo{}
	case map[string]any:
		return interpretObject(v)
	default:
		// Scalar or null body: nothing to extract.
		return nil, PageInfo{}
	}
}

func interpretObject(obj map[string]any) ([]any, PageInfo) {
	info := pageInfoFrom(obj)

	for _, key := range recordListKeys {
		if list, ok := obj[key].([]any); ok {
			return list, info
		}
	}

	// No recognized list key: the object itself is one record.
	return []any{obj}, info
}

func pageInfoFrom(obj map[string]any) PageInfo {
	var info PageInfo

	if v, ok := intField(obj, totalPagesKeys); ok {
		info.TotalPages = v
		info.HasPagination = true
	}
	if v, ok := intField(obj, totalRecordsKeys); ok {
		info.TotalRecords = v
		info.HasPagination = true
	}
	if v, ok := intField(obj, currentPageKeys); ok {
		info.CurrentPage = v
		info.HasPagination = true
	}
	if v, ok := intField(obj, pageSizeKeys); ok {
		info.PageSize = v
		info.HasPagination = true
	}
	if v, ok := boolField(obj, hasMoreKeys); ok {
		info.HasMore = v
		info.HasMoreKnown = true
		info.HasPagination = true
	}

	return info
}

// intField returns the first matching key's value as an int. JSON
// numbers decode as float64; other types do not match.
func intField(obj map[string]any, keys []string) (int, bool) {
	for _, key := range keys {
		switch v := obj[key].(type) {
		case float64:
			return int(v), true
		case int:
			return v, true
		}
	}
	return 0, false
}

func boolField(obj map[string]any, keys []string) (bool, bool) {
	for _, key := range keys {
		if v, ok := obj[key].(bool); ok {
			return v, true
		}
	}
	return false, false
}

// Identifiers keeps the non-blank string elements of a record list.
// Non-string or blank entries are silently discarded, not errors.
func Identifiers(records []any) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		s, ok := r.(string)
		if !ok {
			continue
		}
		if strings.TrimSpace(s) == "" {
			continue
		}
		ids = append(ids, s)
	}
	return ids
}
