package db

import (
	"strings"
	"testing"
)

func TestIndexBuilder_Build(t *testing.T) {
	def, err := NewIndex("chunks-idx").
		Prefix("porsa:chunk:").
		Text("text").
		Tag("url").
		Numeric("chunk_index").
		VectorHNSW("vector", 1536, DistanceCosine, 16, 200).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.Name != "chunks-idx" {
		t.Errorf("Name = %q", def.Name)
	}
	if len(def.Fields) != 4 {
		t.Fatalf("expected 4 fields, got %d", len(def.Fields))
	}
	vec := def.Fields[3]
	if vec.Type != IndexFieldVector || vec.VectorDim != 1536 || vec.VectorAlgo != VectorHNSW {
		t.Errorf("unexpected vector field: %+v", vec)
	}
}

func TestIndexBuilder_RejectsEmptySchema(t *testing.T) {
	if _, err := NewIndex("empty-idx").Build(); err == nil {
		t.Fatal("expected error for empty schema")
	}
}

func TestIndexBuilder_RejectsInvalidName(t *testing.T) {
	if _, err := NewIndex("bad name!").Text("text").Build(); err == nil {
		t.Fatal("expected error for invalid index name")
	}
}

func TestIndexBuilder_RejectsDuplicateFields(t *testing.T) {
	_, err := NewIndex("dup-idx").Text("text").Text("text").Build()
	if err == nil {
		t.Fatal("expected error for duplicate field")
	}
}

func TestIndexBuilder_RejectsZeroDimVector(t *testing.T) {
	_, err := NewIndex("vec-idx").VectorFlat("vector", 0, DistanceCosine).Build()
	if err == nil {
		t.Fatal("expected error for zero DIM")
	}
}

func TestIndexDefinition_String(t *testing.T) {
	def := NewIndex("chunks-idx").
		Prefix("porsa:chunk:").
		Text("text").
		VectorFlat("vector", 4, DistanceCosine).
		MustBuild()

	s := def.String()
	for _, want := range []string{"FT.CREATE", "chunks-idx", "PREFIX", "porsa:chunk:", "SCHEMA", "VECTOR FLAT"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}
