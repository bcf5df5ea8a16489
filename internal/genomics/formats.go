// Package genomics holds the fixed tables describing genomic file formats:
// recognised suffixes, their companion index suffixes, and the encryption
// suffix convention. Parsing the formats themselves happens elsewhere.
package genomics

import (
	"fmt"
	"strings"
)

// Format identifies a genomic file format by its suffix family.
type Format string

// Supported genomic file formats.
const (
	CRAM  Format = "CRAM"
	FASTA Format = "FASTA"
	FASTQ Format = "FASTQ"
	BAM   Format = "BAM"
	SAM   Format = "SAM"
	VCF   Format = "VCF"
	BCF   Format = "BCF"
)

// EncryptionSuffix marks an envelope-encrypted file.
const EncryptionSuffix = ".c4gh"

var formatSuffixes = map[Format][]string{
	CRAM:  {".cram"},
	FASTA: {".fasta", ".fa"},
	FASTQ: {".fastq", ".fq"},
	BAM:   {".bam"},
	SAM:   {".sam"},
	VCF:   {".vcf", ".vcf.gz"},
	BCF:   {".bcf"},
}

var indexSuffixes = map[Format]string{
	BAM:   ".bai",
	SAM:   ".bai",
	BCF:   ".csi",
	CRAM:  ".crai",
	FASTA: ".fai",
	FASTQ: ".fai",
	VCF:   ".tbi",
}

// Formats lists the supported format names.
func Formats() []string {
	return []string{string(CRAM), string(FASTA), string(FASTQ), string(BAM), string(SAM), string(VCF), string(BCF)}
}

// IsGenomicFormat reports whether name is a recognised genomic format name.
func IsGenomicFormat(name string) bool {
	for _, f := range Formats() {
		if f == name {
			return true
		}
	}
	return false
}

// FromPath detects the format of a file from its suffix. The encryption
// suffix is ignored during detection.
func FromPath(path string) (Format, error) {
	p := strings.TrimSuffix(path, EncryptionSuffix)
	for format, suffixes := range formatSuffixes {
		for _, s := range suffixes {
			if strings.HasSuffix(p, s) {
				return format, nil
			}
		}
	}
	return "", fmt.Errorf("unsupported genomic file format: %q", path)
}

// IndexSuffix returns the companion index suffix for a format.
func IndexSuffix(f Format) string { return indexSuffixes[f] }

// IndexPath derives the companion index path of a genomic file by appending
// the format's index suffix (demo.cram -> demo.cram.crai). Non-genomic
// paths have no index and report ok=false.
func IndexPath(path string) (string, bool) {
	f, err := FromPath(path)
	if err != nil {
		return "", false
	}
	return path + IndexSuffix(f), true
}

// IsEncrypted reports whether path carries the encryption suffix.
func IsEncrypted(path string) bool {
	return strings.HasSuffix(path, EncryptionSuffix)
}

// AddEncryptionSuffix appends the encryption suffix to a path.
func AddEncryptionSuffix(path string) string { return path + EncryptionSuffix }

// TrimEncryptionSuffix strips the encryption suffix from a path.
func TrimEncryptionSuffix(path string) string {
	return strings.TrimSuffix(path, EncryptionSuffix)
}
