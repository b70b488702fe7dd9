package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Unknown names fall back to a built-in default where one exists.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names.
const (
	// PromptSummarise summarises a document.
	// The template expects %d (max words) and %s (content) placeholders.
	PromptSummarise = "summarise"

	// PromptKeyPoints lists the key points of a document, one per line.
	// The template expects %d (max points) and %s (content) placeholders.
	PromptKeyPoints = "key_points"

	// PromptConceptExtraction asks for a JSON array of concepts.
	// The template expects a single %s placeholder for the text slice.
	PromptConceptExtraction = "concept_extraction"
)
