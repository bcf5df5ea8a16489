package modo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeDeclaration(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "object.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func TestBuildFromFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := writeSourceFile(t, dir, "demo1.cram", "reads")

	decl := writeDeclaration(t, `
- element:
    "@type": MODO
    id: ex
    name: declared object
    description: built from a declaration
- element:
    "@type": Assay
    id: assay1
    name: genomics run
    omics_type: GENOMICS
- element:
    "@type": Sample
    id: sample1
    name: liver
  args:
    part_of: assay/assay1
- element:
    "@type": DataEntity
    id: reads
    data_format: CRAM
  args:
    source_file: `+src+`
    part_of: assay/assay1
`)

	archive := filepath.Join(t.TempDir(), "ex")
	m, err := BuildFromFile(ctx, decl, archive, Options{}, false)
	if err != nil {
		t.Fatalf("BuildFromFile: %v", err)
	}
	if m.ID() != "ex" {
		t.Errorf("ID = %q", m.ID())
	}

	root := elementAttrs(t, m, "ex")
	if root["name"] != "declared object" {
		t.Errorf("root name = %v", root["name"])
	}
	assay := elementAttrs(t, m, "assay/assay1")
	if got := stringList(assay["has_sample"]); len(got) != 1 || got[0] != "sample/sample1" {
		t.Errorf("has_sample = %v", got)
	}
	if got := stringList(assay["has_data"]); len(got) != 1 || got[0] != "data/reads" {
		t.Errorf("has_data = %v", got)
	}

	// data_path defaults to the source file's base name
	data := elementAttrs(t, m, "data/reads")
	if data["data_path"] != "demo1.cram" {
		t.Errorf("data_path = %v", data["data_path"])
	}
	mustExist(t, m.Storage(), "demo1.cram", true)
}

func TestBuildRemovesUndeclaredElements(t *testing.T) {
	ctx := context.Background()
	archive := filepath.Join(t.TempDir(), "ex")

	first := []DeclarationEntry{
		{Element: map[string]any{"@type": "Sample", "id": "s1"}},
		{Element: map[string]any{"@type": "Sample", "id": "s2"}},
	}
	if _, err := Build(ctx, archive, first, Options{ID: "ex"}, false); err != nil {
		t.Fatalf("Build: %v", err)
	}

	second := []DeclarationEntry{
		{Element: map[string]any{"@type": "Sample", "id": "s1", "name": "kept"}},
	}
	m, err := Build(ctx, archive, second, Options{}, false)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	metadata, err := m.Metadata(ctx)
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if _, ok := metadata["sample/s2"]; ok {
		t.Error("undeclared element survived")
	}
	if metadata["sample/s1"]["name"] != "kept" {
		t.Errorf("declared element not updated: %v", metadata["sample/s1"])
	}
}

func TestBuildKeepsExtraElementsWhenAsked(t *testing.T) {
	ctx := context.Background()
	archive := filepath.Join(t.TempDir(), "ex")

	first := []DeclarationEntry{
		{Element: map[string]any{"@type": "Sample", "id": "s1"}},
		{Element: map[string]any{"@type": "Sample", "id": "s2"}},
	}
	if _, err := Build(ctx, archive, first, Options{ID: "ex"}, false); err != nil {
		t.Fatalf("Build: %v", err)
	}

	second := []DeclarationEntry{
		{Element: map[string]any{"@type": "Sample", "id": "s1"}},
	}
	m, err := Build(ctx, archive, second, Options{}, true)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	metadata, _ := m.Metadata(ctx)
	if _, ok := metadata["sample/s2"]; !ok {
		t.Error("extra element removed despite keepExtra")
	}
}

func TestBuildRejectsDuplicateDeclaredIDs(t *testing.T) {
	entries := []DeclarationEntry{
		{Element: map[string]any{"@type": "Sample", "id": "s1"}},
		{Element: map[string]any{"@type": "Sample", "id": "s1"}},
	}
	_, err := Build(context.Background(), filepath.Join(t.TempDir(), "ex"), entries, Options{}, false)
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("Build = %v, want ErrDuplicateID", err)
	}
}

func TestBuildRejectsTwoRootRecords(t *testing.T) {
	entries := []DeclarationEntry{
		{Element: map[string]any{"@type": "MODO", "id": "a"}},
		{Element: map[string]any{"@type": "MODO", "id": "b"}},
	}
	_, err := Build(context.Background(), filepath.Join(t.TempDir(), "ex"), entries, Options{}, false)
	if err == nil || !strings.Contains(err.Error(), "more than one") {
		t.Errorf("Build = %v", err)
	}
}

func TestParseDeclarationRejectsUntypedEntries(t *testing.T) {
	entries := []DeclarationEntry{
		{Element: map[string]any{"id": "s1"}},
	}
	_, err := Build(context.Background(), filepath.Join(t.TempDir(), "ex"), entries, Options{}, false)
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("Build = %v, want ErrUnknownType", err)
	}
}

func TestBuildRejectsUnknownType(t *testing.T) {
	entries := []DeclarationEntry{
		{Element: map[string]any{"@type": "Bogus", "id": "x"}},
	}
	_, err := Build(context.Background(), filepath.Join(t.TempDir(), "ex"), entries, Options{}, false)
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("Build = %v, want ErrUnknownType", err)
	}
}
