package model

import (
	"errors"
	"reflect"
	"testing"
)

func TestFullAndLocalIDs(t *testing.T) {
	if got := FullID(TypeSample, "sample1"); got != "sample/sample1" {
		t.Errorf("FullID = %q", got)
	}
	if got := FullID(TypeSample, "sample/sample1"); got != "sample/sample1" {
		t.Errorf("FullID(prefixed) = %q", got)
	}
	if got := LocalID("assay/assay1"); got != "assay1" {
		t.Errorf("LocalID = %q", got)
	}
	if got := LocalID("bare"); got != "bare" {
		t.Errorf("LocalID(bare) = %q", got)
	}
	if !IsFullID("data/reads") || IsFullID("reads") {
		t.Error("IsFullID misclassifies")
	}
}

func TestSanitizeID(t *testing.T) {
	if got := SanitizeID("a/b/c"); got != "a_b_c" {
		t.Errorf("SanitizeID = %q", got)
	}
}

func TestNewByTag(t *testing.T) {
	for _, tag := range []string{"MODO", "Sample", "Assay", "DataEntity", "ReferenceGenome", "ReferenceSequence"} {
		e, err := New(tag)
		if err != nil {
			t.Fatalf("New(%s): %v", tag, err)
		}
		if e.TypeTag() != tag {
			t.Errorf("New(%s).TypeTag() = %s", tag, e.TypeTag())
		}
	}
	if _, err := New("Bogus"); !errors.Is(err, ErrUnknownType) {
		t.Errorf("New(Bogus) = %v", err)
	}
}

func TestCanContain(t *testing.T) {
	slot, err := CanContain("Assay", "Sample")
	if err != nil || slot != "has_sample" {
		t.Errorf("CanContain(Assay, Sample) = %q, %v", slot, err)
	}
	slot, err = CanContain("MODO", "Assay")
	if err != nil || slot != "has_assay" {
		t.Errorf("CanContain(MODO, Assay) = %q, %v", slot, err)
	}
	if _, err := CanContain("Sample", "ReferenceGenome"); !errors.Is(err, ErrInvalidRelationship) {
		t.Errorf("CanContain(Sample, ReferenceGenome) = %v", err)
	}
	if _, err := CanContain("MODO", "Sample"); !errors.Is(err, ErrInvalidRelationship) {
		t.Errorf("CanContain(MODO, Sample) = %v", err)
	}
}

func TestAppendHasPart(t *testing.T) {
	if got := AppendHasPart(nil, "a"); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("from nil: %v", got)
	}
	if got := AppendHasPart("a", "b"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("from scalar: %v", got)
	}
	if got := AppendHasPart([]any{"a"}, "b"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("from decoded list: %v", got)
	}
}

func TestNormalizeHasPartIDs(t *testing.T) {
	a := &Assay{ID: "assay1", HasSample: []string{"sample1", "sample/sample2"}}
	NormalizeHasPartIDs(a)
	want := []string{"sample/sample1", "sample/sample2"}
	if !reflect.DeepEqual(a.HasSample, want) {
		t.Errorf("HasSample = %v, want %v", a.HasSample, want)
	}
}

func TestAttrMapElidesEmptyFields(t *testing.T) {
	s := &Sample{ID: "sample/sample1", Name: "liver", CellType: ""}
	attrs, err := AttrMap(s)
	if err != nil {
		t.Fatalf("AttrMap: %v", err)
	}
	if attrs[TypeKey] != "Sample" {
		t.Errorf("type tag = %v", attrs[TypeKey])
	}
	if _, ok := attrs["id"]; ok {
		t.Error("id leaked into attrs")
	}
	if _, ok := attrs["cell_type"]; ok {
		t.Error("empty field persisted")
	}
	if attrs["name"] != "liver" {
		t.Errorf("name = %v", attrs["name"])
	}
}

func TestFromAttrsRoundTrip(t *testing.T) {
	in := &DataEntity{
		ID:         "data/reads",
		Name:       "sequencing reads",
		DataPath:   "demo1.cram",
		DataFormat: FormatCRAM,
	}
	attrs, err := AttrMap(in)
	if err != nil {
		t.Fatalf("AttrMap: %v", err)
	}
	out, err := FromAttrs("data/reads", attrs)
	if err != nil {
		t.Fatalf("FromAttrs: %v", err)
	}
	d, ok := out.(*DataEntity)
	if !ok {
		t.Fatalf("FromAttrs returned %T", out)
	}
	if d.ID != "data/reads" || d.Name != in.Name || d.DataPath != in.DataPath || d.DataFormat != in.DataFormat {
		t.Errorf("round trip = %+v", d)
	}
}

func TestFromAttrsDefaultsToDataEntity(t *testing.T) {
	e, err := FromAttrs("data/x", map[string]any{"data_path": "x.bam"})
	if err != nil {
		t.Fatalf("FromAttrs: %v", err)
	}
	if _, ok := e.(*DataEntity); !ok {
		t.Errorf("FromAttrs without type = %T", e)
	}
}

func TestKindOf(t *testing.T) {
	if kind, ok := KindOf(&Sample{}); !ok || kind != TypeSample {
		t.Errorf("KindOf(Sample) = %v, %v", kind, ok)
	}
	if _, ok := KindOf(&MODO{}); ok {
		t.Error("the root record has no container")
	}
}
