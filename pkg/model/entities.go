// Package model defines the typed metadata records stored in a multi-omics
// digital object, the element type table, the id scheme and the has-part
// relationship rules.
package model

import "errors"

// ElementType identifies the container a record is stored under. The five
// values double as the fixed top-level group names of an archive.
type ElementType string

const (
	// TypeSample identifies a biological sample record.
	TypeSample ElementType = "sample"
	// TypeAssay identifies an assay record.
	TypeAssay ElementType = "assay"
	// TypeData identifies a data entity record.
	TypeData ElementType = "data"
	// TypeReference identifies a reference genome record.
	TypeReference ElementType = "reference"
	// TypeSequence identifies a reference sequence record.
	TypeSequence ElementType = "sequence"
)

// ElementTypes returns all element types in container order.
func ElementTypes() []ElementType {
	return []ElementType{TypeSample, TypeAssay, TypeData, TypeReference, TypeSequence}
}

// UserElementTypes returns the element types exposed to users. Reference
// sequences are only created internally.
func UserElementTypes() []ElementType {
	return []ElementType{TypeSample, TypeAssay, TypeData, TypeReference}
}

// OmicsType categorises an assay.
type OmicsType string

// Recognised omics categories.
const (
	OmicsGenomics        OmicsType = "GENOMICS"
	OmicsTranscriptomics OmicsType = "TRANSCRIPTOMICS"
	OmicsProteomics      OmicsType = "PROTEOMICS"
	OmicsMetabolomics    OmicsType = "METABOLOMICS"
)

// DataFormat categorises a data entity's physical file.
type DataFormat string

// Recognised data formats.
const (
	FormatCRAM  DataFormat = "CRAM"
	FormatBAM   DataFormat = "BAM"
	FormatSAM   DataFormat = "SAM"
	FormatVCF   DataFormat = "VCF"
	FormatBCF   DataFormat = "BCF"
	FormatFASTA DataFormat = "FASTA"
	FormatFASTQ DataFormat = "FASTQ"
	FormatZarr  DataFormat = "Zarr"
	FormatTSV   DataFormat = "TSV"
	FormatMzTab DataFormat = "mzTab"
)

// ErrUnknownType reports a record whose type tag is not one of the
// recognised element types.
var ErrUnknownType = errors.New("model: unknown element type")

// ErrInvalidRelationship reports an attempt to attach a child under a parent
// whose type has no has-part attribute accepting the child's type.
var ErrInvalidRelationship = errors.New("model: invalid has-part relationship")

// Element is a typed metadata record identified within the archive.
type Element interface {
	// ElementID returns the record's id, which may or may not carry the
	// type prefix.
	ElementID() string
	// TypeTag returns the record's "@type" discriminator.
	TypeTag() string
}

// DataBearer is implemented by elements bound to a physical file.
type DataBearer interface {
	Element
	GetDataPath() string
	SetDataPath(path string)
	GetChecksum() string
	SetChecksum(sum string)
}

// MODO is the archive root record.
type MODO struct {
	ID             string   `json:"id"`
	Name           string   `json:"name,omitempty"`
	Description    string   `json:"description,omitempty"`
	CreationDate   string   `json:"creation_date,omitempty"`
	LastUpdateDate string   `json:"last_update_date,omitempty"`
	HasAssay       []string `json:"has_assay,omitempty"`
	SourceURI      string   `json:"source_uri,omitempty"`
}

func (m *MODO) ElementID() string { return m.ID }
func (m *MODO) TypeTag() string   { return "MODO" }

// Sample is a biological sample with descriptive attributes.
type Sample struct {
	ID             string `json:"id"`
	Name           string `json:"name,omitempty"`
	Description    string `json:"description,omitempty"`
	CellType       string `json:"cell_type,omitempty"`
	SourceMaterial string `json:"source_material,omitempty"`
	Sex            string `json:"sex,omitempty"`
	TaxonID        string `json:"taxon_id,omitempty"`
}

func (s *Sample) ElementID() string { return s.ID }
func (s *Sample) TypeTag() string   { return "Sample" }

// Assay is an experiment producing data from samples.
type Assay struct {
	ID               string    `json:"id"`
	Name             string    `json:"name,omitempty"`
	Description      string    `json:"description,omitempty"`
	OmicsType        OmicsType `json:"omics_type,omitempty"`
	HasSample        []string  `json:"has_sample,omitempty"`
	HasData          []string  `json:"has_data,omitempty"`
	SampleProcessing string    `json:"sample_processing,omitempty"`
}

func (a *Assay) ElementID() string { return a.ID }
func (a *Assay) TypeTag() string   { return "Assay" }

// DataEntity is a metadata record bound to a physical data file.
type DataEntity struct {
	ID           string     `json:"id"`
	Name         string     `json:"name,omitempty"`
	Description  string     `json:"description,omitempty"`
	DataPath     string     `json:"data_path,omitempty"`
	DataFormat   DataFormat `json:"data_format,omitempty"`
	DataChecksum string     `json:"data_checksum,omitempty"`
	HasReference []string   `json:"has_reference,omitempty"`
}

func (d *DataEntity) ElementID() string    { return d.ID }
func (d *DataEntity) TypeTag() string      { return "DataEntity" }
func (d *DataEntity) GetDataPath() string  { return d.DataPath }
func (d *DataEntity) SetDataPath(p string) { d.DataPath = p }
func (d *DataEntity) GetChecksum() string  { return d.DataChecksum }
func (d *DataEntity) SetChecksum(c string) { d.DataChecksum = c }

// ReferenceGenome describes a reference assembly, optionally bound to a
// local sequence file.
type ReferenceGenome struct {
	ID           string   `json:"id"`
	Name         string   `json:"name,omitempty"`
	Description  string   `json:"description,omitempty"`
	DataPath     string   `json:"data_path,omitempty"`
	SourceURI    string   `json:"source_uri,omitempty"`
	DataChecksum string   `json:"data_checksum,omitempty"`
	TaxonID      string   `json:"taxon_id,omitempty"`
	HasSequence  []string `json:"has_sequence,omitempty"`
}

func (r *ReferenceGenome) ElementID() string    { return r.ID }
func (r *ReferenceGenome) TypeTag() string      { return "ReferenceGenome" }
func (r *ReferenceGenome) GetDataPath() string  { return r.DataPath }
func (r *ReferenceGenome) SetDataPath(p string) { r.DataPath = p }
func (r *ReferenceGenome) GetChecksum() string  { return r.DataChecksum }
func (r *ReferenceGenome) SetChecksum(c string) { r.DataChecksum = c }

// ReferenceSequence describes one sequence of a reference genome.
type ReferenceSequence struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	SequenceMD5 string `json:"sequence_md5,omitempty"`
	SourceURI   string `json:"source_uri,omitempty"`
	Version     string `json:"version,omitempty"`
}

func (r *ReferenceSequence) ElementID() string { return r.ID }
func (r *ReferenceSequence) TypeTag() string   { return "ReferenceSequence" }

// New constructs an empty element from its type tag.
func New(tag string) (Element, error) {
	switch tag {
	case "MODO":
		return &MODO{}, nil
	case "Sample":
		return &Sample{}, nil
	case "Assay":
		return &Assay{}, nil
	case "DataEntity":
		return &DataEntity{}, nil
	case "ReferenceGenome":
		return &ReferenceGenome{}, nil
	case "ReferenceSequence":
		return &ReferenceSequence{}, nil
	default:
		return nil, ErrUnknownType
	}
}

// KindOf returns the container type for an element. The root MODO record has
// no container and reports ok=false.
func KindOf(e Element) (ElementType, bool) {
	switch e.(type) {
	case *Sample:
		return TypeSample, true
	case *Assay:
		return TypeAssay, true
	case *DataEntity:
		return TypeData, true
	case *ReferenceGenome:
		return TypeReference, true
	case *ReferenceSequence:
		return TypeSequence, true
	default:
		return "", false
	}
}

// KindFromTag maps a type tag to its container type.
func KindFromTag(tag string) (ElementType, bool) {
	switch tag {
	case "Sample":
		return TypeSample, true
	case "Assay":
		return TypeAssay, true
	case "DataEntity":
		return TypeData, true
	case "ReferenceGenome":
		return TypeReference, true
	case "ReferenceSequence":
		return TypeSequence, true
	default:
		return "", false
	}
}
