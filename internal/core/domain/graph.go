package domain

import "strings"

// ConceptType classifies a concept extracted from document text.
type ConceptType string

// Concept types.
const (
	ConceptTopic   ConceptType = "TOPIC"
	ConceptConcept ConceptType = "CONCEPT"
	ConceptPerson  ConceptType = "PERSON"
)

// ParseConceptType maps free-form model output to a concept type.
// Unknown values map to ConceptConcept.
func ParseConceptType(raw string) ConceptType {
	switch ConceptType(strings.ToUpper(strings.TrimSpace(raw))) {
	case ConceptTopic:
		return ConceptTopic
	case ConceptPerson:
		return ConceptPerson
	default:
		return ConceptConcept
	}
}

// Concept is a named idea, topic or person seen across documents.
type Concept struct {
	ID          string
	Name        string
	Type        ConceptType
	Description string

	// Frequency counts extraction events. It only ever increases.
	Frequency int
}

// RelationshipType names an edge kind in the concept graph.
type RelationshipType string

// Relationship types.
const (
	// RelContains links a document to a concept it mentions.
	RelContains RelationshipType = "CONTAINS"

	// RelRelated links two concepts that co-occur in the same text slice.
	RelRelated RelationshipType = "RELATED"
)

// EntityType names the kind of node at either end of a relationship.
type EntityType string

// Entity types.
const (
	EntityDocument EntityType = "DOCUMENT"
	EntityConcept  EntityType = "CONCEPT"
)

// Relationship is a weighted edge in the concept graph.
// RELATED edges are stored once per unordered pair with the smaller id as source.
type Relationship struct {
	ID               string
	SourceID         string
	SourceType       EntityType
	TargetID         string
	TargetType       EntityType
	RelationshipType RelationshipType
	Weight           float64
}

// Graph weights.
const (
	RelatedInitialWeight   = 1.0
	RelatedWeightIncrement = 0.5
)

// ExtractedConcept is one concept returned by the completion collaborator.
type ExtractedConcept struct {
	Name        string      `json:"name"`
	Type        ConceptType `json:"type"`
	Description string      `json:"description,omitempty"`
}

// GraphNodeKind is the kind of a node in a knowledge graph view.
type GraphNodeKind string

// Node kinds. Concept nodes use their ConceptType.
const (
	NodeDocument GraphNodeKind = "DOCUMENT"
)

// GraphNode is a vertex in a knowledge graph view.
type GraphNode struct {
	ID     string        `json:"id"`
	Label  string        `json:"label"`
	Kind   GraphNodeKind `json:"kind"`
	Weight float64       `json:"weight"`
}

// GraphEdge is an edge in a knowledge graph view.
type GraphEdge struct {
	Source string           `json:"source"`
	Target string           `json:"target"`
	Type   RelationshipType `json:"type"`
	Weight float64          `json:"weight"`
}

// KnowledgeGraph is a closed subgraph: every edge endpoint is a node.
type KnowledgeGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphOptions selects the portion of the graph to return.
type GraphOptions struct {
	// CenterID starts a breadth-first walk from a concept or document.
	// Empty selects the most frequent concepts instead.
	CenterID string

	// Depth bounds the walk from CenterID.
	Depth int

	// Limit caps the number of nodes.
	Limit int

	// MinWeight drops lighter edges.
	MinWeight float64

	// IncludeDocuments adds document nodes and CONTAINS edges.
	IncludeDocuments bool
}

// Graph view defaults.
const (
	DefaultGraphDepth = 2
	DefaultGraphLimit = 100
)
