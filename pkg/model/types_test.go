package model

import (
	"errors"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

func TestID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ID
	}{
		{"String", `"node-1"`, "node-1"},
		{"Integer", `42`, "42"},
		{"Null", `null`, RootID},
		{"EmptyString", `""`, RootID},
		{"Float", `1.5`, "1.5"},
		{"IntegralFloat", `1.0`, "1"},
		{"Exponent", `1e0`, "1"},
		{"LargeExponent", `2.5e3`, "2500"},
		{"NegativeZero", `-0.0`, "0"},
		{"QuotedNumberKeepsText", `"1.0"`, "1.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			if err := json.Unmarshal([]byte(tt.input), &id); err != nil {
				t.Fatalf("Unmarshal(%s) failed: %v", tt.input, err)
			}
			if id != tt.want {
				t.Errorf("Unmarshal(%s) = %q, want %q", tt.input, id, tt.want)
			}
		})
	}
}

func TestID_UnmarshalJSONRejectsObjects(t *testing.T) {
	var id ID
	if err := json.Unmarshal([]byte(`{"x":1}`), &id); err == nil {
		t.Error("expected error decoding object as ID")
	}
}

func TestRecord_DecodeMixedIDs(t *testing.T) {
	data := `[
		{"id": 1, "parent": null, "name": "A", "thumbnail": {"href": "a.png", "description": "alpha"}},
		{"id": "2", "parent": 1, "name": "B"}
	]`
	var records []Record
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if !records[0].IsRoot() {
		t.Error("expected first record to be a root")
	}
	if records[1].Parent != records[0].ID {
		t.Errorf("expected parent %q to match id %q", records[1].Parent, records[0].ID)
	}
	if records[0].Thumbnail.Href != "a.png" || records[0].Thumbnail.Description != "alpha" {
		t.Errorf("unexpected thumbnail %+v", records[0].Thumbnail)
	}
	if !records[1].Thumbnail.IsZero() {
		t.Error("expected zero thumbnail for B")
	}
}

func TestRecord_DecodeYAML(t *testing.T) {
	data := `
- id: 1
  parent: ~
  name: A
- id: "2"
  parent: 1
  name: B
`
	var records []Record
	if err := yaml.Unmarshal([]byte(data), &records); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != "1" || !records[0].IsRoot() {
		t.Errorf("unexpected first record %+v", records[0])
	}
	if records[1].Parent != "1" {
		t.Errorf("expected parent 1, got %q", records[1].Parent)
	}
}

func TestID_NumericFormsMatch(t *testing.T) {
	jsonData := `[{"id": 1}, {"id": "1"}, {"id": 1.0}, {"id": 1e0}]`
	var fromJSON []Record
	if err := json.Unmarshal([]byte(jsonData), &fromJSON); err != nil {
		t.Fatalf("json Unmarshal failed: %v", err)
	}

	yamlData := "- id: 1\n- id: \"1\"\n- id: 1.0\n- id: 0x1\n- id: 01\n"
	var fromYAML []Record
	if err := yaml.Unmarshal([]byte(yamlData), &fromYAML); err != nil {
		t.Fatalf("yaml Unmarshal failed: %v", err)
	}

	for i, r := range append(fromJSON, fromYAML...) {
		if r.ID != "1" {
			t.Errorf("record %d: id = %q, want \"1\"", i, r.ID)
		}
	}
}

func TestID_UnmarshalYAMLQuotedKeepsText(t *testing.T) {
	var r Record
	if err := yaml.Unmarshal([]byte(`{id: "0x1", parent: "01"}`), &r); err != nil {
		t.Fatal(err)
	}
	if r.ID != "0x1" || r.Parent != "01" {
		t.Errorf("quoted scalars should be kept as written, got %q / %q", r.ID, r.Parent)
	}
}

func TestRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		record  Record
		wantErr bool
	}{
		{"Valid root", Record{ID: "a"}, false},
		{"Valid child", Record{ID: "b", Parent: "a"}, false},
		{"Empty ID", Record{Name: "nameless"}, true},
		{"Self parent is left to the builder", Record{ID: "a", Parent: "a"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrEmptyID) {
				t.Errorf("Validate() error = %v, want ErrEmptyID", err)
			}
		})
	}
}

func TestRecord_DisplayName(t *testing.T) {
	if got := (Record{ID: "x", Name: "  "}).DisplayName(); got != "x" {
		t.Errorf("expected fallback to ID, got %q", got)
	}
	if got := (Record{ID: "x", Name: "Named"}).DisplayName(); got != "Named" {
		t.Errorf("expected name, got %q", got)
	}
}

func TestRecord_Markdown(t *testing.T) {
	r := Record{
		ID:        "7",
		Parent:    "3",
		Name:      "Leaf",
		Source:    "testdata.json",
		Thumbnail: Thumbnail{Href: "https://example.com/leaf.png", Description: "A leaf"},
	}
	md := r.Markdown()
	for _, want := range []string{"# Leaf", "`7`", "`3`", "testdata.json", "A leaf", "https://example.com/leaf.png"} {
		if !strings.Contains(md, want) {
			t.Errorf("expected markdown to contain %q, got:\n%s", want, md)
		}
	}

	root := Record{ID: "1", Name: "Root"}
	if !strings.Contains(root.Markdown(), "(root)") {
		t.Error("expected root marker in markdown")
	}
}
