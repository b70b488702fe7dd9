package domain

import "time"

// IndexingStatus is the lifecycle state of a directory indexing run.
type IndexingStatus string

// Indexing statuses.
const (
	StatusIdle      IndexingStatus = "idle"
	StatusIndexing  IndexingStatus = "indexing"
	StatusPaused    IndexingStatus = "paused"
	StatusCompleted IndexingStatus = "completed"
	StatusError     IndexingStatus = "error"
)

// IsTerminal reports whether the run has finished.
func (s IndexingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// IndexingProgress reports the state of a directory indexing run.
type IndexingProgress struct {
	RunID string

	// Total is the number of files selected for the run.
	Total int

	// Processed counts finished files, successful or not.
	Processed int

	// Failed counts the files among Processed that errored.
	Failed int

	Status      IndexingStatus
	Error       string
	StartTime   *time.Time
	EndTime     *time.Time
	CurrentFile string
}

// Succeeded returns the number of files indexed without error.
func (p IndexingProgress) Succeeded() int {
	return p.Processed - p.Failed
}

// Percent returns completion in [0, 1].
func (p IndexingProgress) Percent() float64 {
	if p.Total == 0 {
		if p.Status == StatusCompleted {
			return 1
		}
		return 0
	}
	return float64(p.Processed) / float64(p.Total)
}

// ProgressFunc receives a snapshot after every progress change.
type ProgressFunc func(IndexingProgress)

// IndexOptions configures IndexDocument, IndexDirectory and WatchDirectory.
type IndexOptions struct {
	// Recursive descends into subdirectories.
	Recursive bool

	// Types restricts indexing to these document types. Empty means all.
	Types []DocumentType

	// MaxFiles caps the files selected for a directory run.
	MaxFiles int

	// MaxConcurrentProcessing is the batch width for directory runs.
	MaxConcurrentProcessing int

	GenerateEmbeddings bool
	ExtractConcepts    bool
	GenerateSummary    bool

	ChunkSize         int
	ChunkOverlapWords int

	// Tags are attached to every indexed document in addition to extracted ones.
	Tags []string

	OnProgress ProgressFunc
}

// WithDefaults fills zero-valued sizing fields.
func (o IndexOptions) WithDefaults() IndexOptions {
	if o.MaxConcurrentProcessing <= 0 {
		o.MaxConcurrentProcessing = DefaultMaxConcurrentProcessing
	}
	if o.MaxFiles <= 0 {
		o.MaxFiles = DefaultMaxFiles
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ChunkOverlapWords < 0 {
		o.ChunkOverlapWords = 0
	}
	return o
}

// IndexOptionsFromSettings returns options seeded from configured defaults.
func IndexOptionsFromSettings(s IndexingSettings) IndexOptions {
	return IndexOptions{
		Recursive:               s.Recursive,
		MaxFiles:                s.MaxFiles,
		MaxConcurrentProcessing: s.MaxConcurrentProcessing,
		GenerateEmbeddings:      s.GenerateEmbeddings,
		ExtractConcepts:         s.ExtractConcepts,
		GenerateSummary:         s.GenerateSummary,
		ChunkSize:               s.ChunkSize,
		ChunkOverlapWords:       s.ChunkOverlapWords,
	}
}
