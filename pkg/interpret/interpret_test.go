package interpret

import (
	"encoding/json"
	"reflect"
	"testing"
)

// decode mimics how response bodies arrive: through encoding/json into any.
func decode(t *testing.T, raw string) any {
	t.Helper()

	var body any
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		t.Fatalf("test body is not valid JSON: %v", err)
	}
	return body
}

func TestInterpret_BareArrayHasNoPagination(t *testing.T) {
	records, info := Interpret(decode(t, `["a", "b", "c"]`))

	if len(records) != 3 {
		t.Errorf("records = %d, want 3", len(records))
	}
	if info.HasPagination {
		t.Error("bare array must never report pagination")
	}
}

func TestInterpret_RecordListKeyPriority(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"data key", `{"data": ["a", "b"]}`, 2},
		{"results key", `{"results": ["a"]}`, 1},
		{"items key", `{"items": ["a", "b", "c"]}`, 3},
		{"users key", `{"users": ["a"]}`, 1},
		{"records key", `{"records": ["a"]}`, 1},
		{"content key", `{"content": ["a"]}`, 1},
		{"data wins over results", `{"results": ["x"], "data": ["a", "b"]}`, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, _ := Interpret(decode(t, tt.body))
			if len(records) != tt.want {
				t.Errorf("records = %d, want %d", len(records), tt.want)
			}
		})
	}
}

func TestInterpret_UnknownShapeDegradesToSingleRecord(t *testing.T) {
	records, _ := Interpret(decode(t, `{"firstName": "Ada", "unit": {"name": "R&D"}}`))

	if len(records) != 1 {
		t.Fatalf("records = %d, want 1 (whole object as single record)", len(records))
	}
	record, ok := records[0].(map[string]any)
	if !ok || record["firstName"] != "Ada" {
		t.Errorf("record = %v, want the original object", records[0])
	}
}

func TestInterpret_PaginationKeyGroups(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, info PageInfo)
	}{
		{
			name: "camelCase metadata",
			body: `{"data": [], "totalPages": 5, "totalRecords": 480, "currentPage": 1, "pageSize": 100}`,
			check: func(t *testing.T, info PageInfo) {
				if !info.HasPagination {
					t.Error("HasPagination = false, want true")
				}
				if info.TotalPages != 5 || info.TotalRecords != 480 || info.CurrentPage != 1 || info.PageSize != 100 {
					t.Errorf("info = %+v", info)
				}
			},
		},
		{
			name: "snake_case total_pages",
			body: `{"items": [], "total_pages": 3}`,
			check: func(t *testing.T, info PageInfo) {
				if !info.HasPagination || info.TotalPages != 3 {
					t.Errorf("info = %+v, want TotalPages=3", info)
				}
			},
		},
		{
			name: "has_more flag alone",
			body: `{"results": [], "has_more": true}`,
			check: func(t *testing.T, info PageInfo) {
				if !info.HasPagination || !info.HasMore || !info.HasMoreKnown {
					t.Errorf("info = %+v, want HasMore known and true", info)
				}
			},
		},
		{
			name: "hasNext false still counts as pagination",
			body: `{"results": [], "hasNext": false}`,
			check: func(t *testing.T, info PageInfo) {
				if !info.HasPagination || info.HasMore || !info.HasMoreKnown {
					t.Errorf("info = %+v, want HasMore known and false", info)
				}
			},
		},
		{
			name: "first match per group wins",
			body: `{"data": [], "totalPages": 7, "pages": 99}`,
			check: func(t *testing.T, info PageInfo) {
				if info.TotalPages != 7 {
					t.Errorf("TotalPages = %d, want 7 (totalPages outranks pages)", info.TotalPages)
				}
			},
		},
		{
			name: "no metadata",
			body: `{"data": ["a"]}`,
			check: func(t *testing.T, info PageInfo) {
				if info.HasPagination {
					t.Errorf("info = %+v, want no pagination", info)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, info := Interpret(decode(t, tt.body))
			tt.check(t, info)
		})
	}
}

func TestInterpret_ScalarBody(t *testing.T) {
	records, info := Interpret(decode(t, `42`))
	if records != nil || info.HasPagination {
		t.Errorf("scalar body should yield nothing, got %v %+v", records, info)
	}
}

func TestIdentifiers_DiscardsNonStringAndBlank(t *testing.T) {
	records := []any{"a", "", 42.0, "b", "   ", map[string]any{"id": "x"}, "c", nil}

	got := Identifiers(records)
	want := []string{"a", "b", "c"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("Identifiers() = %v, want %v", got, want)
	}
}

func TestIdentifiers_Empty(t *testing.T) {
	if got := Identifiers(nil); len(got) != 0 {
		t.Errorf("Identifiers(nil) = %v, want empty", got)
	}
}
