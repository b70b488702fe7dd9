// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driving"
)

// SearchCompleted carries search results back to the model.
type SearchCompleted struct {
	Query   string
	Results []domain.SearchResult
	Err     error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewSearch is the search input and results view.
	ViewSearch
	// ViewDocuments lists indexed documents.
	ViewDocuments
	// ViewDocContent shows document content.
	ViewDocContent
	// ViewDocDetails shows document metadata.
	ViewDocDetails
	// ViewProgress shows directory indexing progress.
	ViewProgress
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewSearch:
		return "search"
	case ViewDocuments:
		return "documents"
	case ViewDocContent:
		return "doc_content"
	case ViewDocDetails:
		return "doc_details"
	case ViewProgress:
		return "progress"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// DocumentsLoaded carries the indexed documents.
type DocumentsLoaded struct {
	Documents []domain.Document
	Err       error
}

// DocumentSelected asks for a document's content to be shown.
// From records the view to return to.
type DocumentSelected struct {
	DocumentID string
	Title      string
	From       ViewType
}

// DetailsRequested asks for a document's metadata to be shown.
type DetailsRequested struct {
	DocumentID string
	From       ViewType
}

// OpenRequested asks for a document to be opened in its default application.
type OpenRequested struct {
	DocumentID string
}

// DocumentContentLoaded carries the content of a document.
type DocumentContentLoaded struct {
	DocumentID string
	Content    string
	Err        error
}

// DocumentDetailsLoaded carries the metadata of a document.
type DocumentDetailsLoaded struct {
	DocumentID string
	Details    *driving.DocumentDetails
	Err        error
}

// DocumentDeleted signals a document was removed from the index.
type DocumentDeleted struct {
	DocumentID string
	Err        error
}

// DocumentOpened signals an open request finished.
type DocumentOpened struct {
	DocumentID string
	Err        error
}

// ProgressUpdated carries an indexing progress snapshot.
type ProgressUpdated struct {
	Progress domain.IndexingProgress
}

// IndexingFinished signals a directory run returned.
type IndexingFinished struct {
	Progress domain.IndexingProgress
	Err      error
}
