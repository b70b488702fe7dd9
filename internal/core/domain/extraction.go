package domain

// Extraction is the output of a content extractor: plain text plus
// whatever metadata the file format exposes.
type Extraction struct {
	// Text is the extracted content. Tabular formats are rendered as
	// Markdown tables.
	Text string

	Metadata ExtractionMetadata
}

// ExtractionMetadata describes an extracted file.
type ExtractionMetadata struct {
	Type      DocumentType
	Title     string
	Author    string
	Tags      []string
	PageCount int
	WordCount int
	MIMEType  string
}

// ChangeType represents the type of filesystem change seen by a watcher.
type ChangeType int

const (
	// ChangeCreated indicates a new file.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates a modified file.
	ChangeUpdated

	// ChangeDeleted indicates a removed or renamed file.
	ChangeDeleted
)

// String returns the change name.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return unknownDescription
	}
}

// FileChange is a change event for one file under a watched directory.
type FileChange struct {
	Type ChangeType
	Path string
}
