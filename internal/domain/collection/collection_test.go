package collection

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/kailas-cloud/indexsync/internal/domain/collection/field"
)

func TestValidateName(t *testing.T) {
	valid := []string{"products", "products_v2", "shop.products", "a-b"}
	for _, name := range valid {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q) unexpected error: %v", name, err)
		}
	}
	invalid := []string{"", "has space", "slash/name", strings.Repeat("x", 129)}
	for _, name := range invalid {
		if err := ValidateName(name); err == nil {
			t.Errorf("ValidateName(%q) expected error", name)
		}
	}
}

func TestSchema_Validate(t *testing.T) {
	s := Schema{
		Name: "products",
		Fields: []field.Field{
			{Name: "name", Type: field.String},
			{Name: "price", Type: field.Float},
			{Name: "summary", Type: field.String, Optional: true},
		},
		DefaultSortingField: "price",
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.DefaultSortingField = "summary"
	if err := s.Validate(); err == nil || !strings.Contains(err.Error(), "summary") {
		t.Errorf("expected optional sorting field error naming summary, got %v", err)
	}

	s.DefaultSortingField = "missing"
	if err := s.Validate(); err == nil {
		t.Error("expected error for unknown default sorting field")
	}

	s.DefaultSortingField = ""
	s.Fields = append(s.Fields, field.Field{Name: "name", Type: field.String})
	if err := s.Validate(); err == nil {
		t.Error("expected duplicate field error")
	}
}

func TestSchema_JSONOmitsUnsetOptionals(t *testing.T) {
	s := Schema{Name: "tags", Fields: []field.Field{{Name: "label", Type: field.String}}}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(data)
	want := `{"name":"tags","fields":[{"name":"label","type":"string","facet":false,"optional":false,"sort":false}]}`
	if got != want {
		t.Errorf("json = %s\nwant  %s", got, want)
	}
}
