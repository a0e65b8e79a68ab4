package defra

import (
	"strings"
	"testing"
)

func TestValidateID(t *testing.T) {
	valid := []string{"bae-12ab-34cd", "user_1", "abc"}
	for _, id := range valid {
		if err := ValidateID(id); err != nil {
			t.Errorf("ValidateID(%q) = %v, want nil", id, err)
		}
	}

	invalid := []string{"", `"}) { _docID } }`, "a b", "x;y", strings.Repeat("a", 501)}
	for _, id := range invalid {
		if err := ValidateID(id); err == nil {
			t.Errorf("ValidateID(%q) = nil, want error", id)
		}
	}
}

func TestQueryBuilder(t *testing.T) {
	t.Run("filter with variables", func(t *testing.T) {
		query, vars := NewQuery("Extraction").
			Filter("requester", "alice").
			Fields("_docID", "requester", "created_at").
			OrderBy("created_at", "DESC").
			Limit(10).
			Build()

		if !strings.Contains(query, "query($v0: String)") {
			t.Errorf("missing variable definition: %s", query)
		}
		if !strings.Contains(query, "requester: {_eq: $v0}") {
			t.Errorf("missing filter clause: %s", query)
		}
		if !strings.Contains(query, "order: {created_at: DESC}") {
			t.Errorf("missing order clause: %s", query)
		}
		if !strings.Contains(query, "limit: 10") {
			t.Errorf("missing limit: %s", query)
		}
		if vars["v0"] != "alice" {
			t.Errorf("vars = %+v", vars)
		}
		// The filter value must travel as a variable, never in the text.
		if strings.Contains(query, "alice") {
			t.Errorf("filter value interpolated into query: %s", query)
		}
	})

	t.Run("no filters", func(t *testing.T) {
		query, vars := NewQuery("LLMCall").Build()
		if strings.Contains(query, "filter") {
			t.Errorf("unexpected filter clause: %s", query)
		}
		if len(vars) != 0 {
			t.Errorf("unexpected variables: %+v", vars)
		}
		if !strings.Contains(query, "{ _docID }") {
			t.Errorf("default fields missing: %s", query)
		}
	})

	t.Run("offset pagination", func(t *testing.T) {
		query, _ := NewQuery("Extraction").Limit(5).Offset(15).Build()
		if !strings.Contains(query, "limit: 5") || !strings.Contains(query, "offset: 15") {
			t.Errorf("pagination args missing: %s", query)
		}
	})

	t.Run("integer filter type", func(t *testing.T) {
		query, vars := NewQuery("Extraction").Filter("row_count", 3).Build()
		if !strings.Contains(query, "$v0: Int") {
			t.Errorf("wrong variable type: %s", query)
		}
		if vars["v0"] != 3 {
			t.Errorf("vars = %+v", vars)
		}
	})
}
