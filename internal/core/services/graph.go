package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
	"github.com/custodia-labs/kindex/internal/core/ports/driving"
	"github.com/custodia-labs/kindex/internal/logger"
)

// Ensure GraphBuilder implements the interface.
var _ driving.GraphService = (*GraphBuilder)(nil)

const defaultConceptPrompt = `Extract the key concepts from the text below.
Respond with a JSON array of objects with "name", "type" ("topic", "person" or "concept") and "description".

Text:
%s`

// GraphBuilder extracts concepts from documents and serves graph views.
type GraphBuilder struct {
	graph    driven.GraphStore
	docs     driven.DocumentStore
	llm      driven.LLMService
	prompts  driven.PromptStore
	exporter driven.GraphExporter

	sliceChars int
	maxSlices  int
}

// GraphBuilderOption configures a GraphBuilder.
type GraphBuilderOption func(*GraphBuilder)

// WithGraphExporter mirrors exports into an external graph database.
func WithGraphExporter(exporter driven.GraphExporter) GraphBuilderOption {
	return func(g *GraphBuilder) { g.exporter = exporter }
}

// WithSlicing overrides the extraction slice size and count.
func WithSlicing(sliceChars, maxSlices int) GraphBuilderOption {
	return func(g *GraphBuilder) {
		if sliceChars > 0 {
			g.sliceChars = sliceChars
		}
		if maxSlices > 0 {
			g.maxSlices = maxSlices
		}
	}
}

// NewGraphBuilder creates a graph builder. llm and prompts may be nil, in
// which case concept extraction is unavailable but graph reads still work.
func NewGraphBuilder(
	graph driven.GraphStore,
	docs driven.DocumentStore,
	llm driven.LLMService,
	prompts driven.PromptStore,
	opts ...GraphBuilderOption,
) *GraphBuilder {
	g := &GraphBuilder{
		graph:      graph,
		docs:       docs,
		llm:        llm,
		prompts:    prompts,
		sliceChars: domain.DefaultGraphSliceChars,
		maxSlices:  domain.DefaultGraphMaxSlices,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CanExtract reports whether a completion service is configured.
func (g *GraphBuilder) CanExtract() bool {
	return g != nil && g.llm != nil
}

// Extract runs concept extraction over a document's text and applies each
// slice to the graph store. A slice whose response cannot be parsed, or
// whose mutation fails, is skipped. Returns the number of slices applied.
func (g *GraphBuilder) Extract(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) (int, error) {
	if !g.CanExtract() {
		return 0, domain.ErrLLMUnavailable
	}

	text := domain.ReassembleChunks(chunks)
	if strings.TrimSpace(text) == "" {
		text = doc.Content
	}

	template := loadPrompt(g.prompts, driven.PromptConceptExtraction, defaultConceptPrompt)
	applied := 0
	for i, slice := range SliceText(text, g.sliceChars, g.maxSlices) {
		if err := ctx.Err(); err != nil {
			return applied, err
		}

		raw, err := g.llm.Generate(ctx, fmt.Sprintf(template, slice), driven.GenerateOptions{
			MaxTokens:   1024,
			Temperature: 0,
			JSON:        true,
		})
		if err != nil {
			logger.Warn("concept extraction for %s slice %d: %v", doc.Path, i, err)
			continue
		}

		concepts, err := ParseConcepts(raw)
		if err != nil {
			logger.Warn("concept extraction for %s slice %d: %v", doc.Path, i, err)
			continue
		}

		if err := g.graph.ApplyExtraction(ctx, doc.ID, concepts); err != nil {
			logger.Warn("applying concepts for %s slice %d: %v", doc.Path, i, err)
			continue
		}
		logger.Debug("slice %d of %s: %d concepts", i, doc.Path, len(concepts))
		applied++
	}
	return applied, nil
}

// SliceText splits text into at most maxSlices pieces of at most size runes,
// breaking on whitespace where possible.
func SliceText(text string, size, maxSlices int) []string {
	runes := []rune(strings.TrimSpace(text))
	var slices []string
	for len(runes) > 0 && len(slices) < maxSlices {
		if len(runes) <= size {
			slices = append(slices, string(runes))
			break
		}
		cut := size
		for j := size; j > size/2; j-- {
			if unicode.IsSpace(runes[j]) {
				cut = j
				break
			}
		}
		slices = append(slices, strings.TrimSpace(string(runes[:cut])))
		runes = []rune(strings.TrimLeftFunc(string(runes[cut:]), unicode.IsSpace))
	}
	return slices
}

// ParseConcepts decodes a completion response into concepts. It accepts a
// bare array, an array wrapped in code fences or prose, or an object with
// an array-valued field. Elements that do not decode, or have no name, are
// dropped.
func ParseConcepts(raw string) ([]domain.ExtractedConcept, error) {
	elems, err := conceptArray(raw)
	if err != nil {
		return nil, err
	}

	concepts := make([]domain.ExtractedConcept, 0, len(elems))
	for _, elem := range elems {
		var c domain.ExtractedConcept
		if err := json.Unmarshal(elem, &c); err != nil {
			continue
		}
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		c.Type = domain.ParseConceptType(string(c.Type))
		c.Description = strings.TrimSpace(c.Description)
		concepts = append(concepts, c)
	}
	return concepts, nil
}

var errNoConceptArray = errors.New("no JSON array in response")

func conceptArray(raw string) ([]json.RawMessage, error) {
	raw = strings.TrimSpace(raw)

	start := strings.IndexByte(raw, '[')
	end := strings.LastIndexByte(raw, ']')
	if start >= 0 && end > start {
		var elems []json.RawMessage
		if err := json.Unmarshal([]byte(raw[start:end+1]), &elems); err == nil {
			return elems, nil
		}
	}

	// Object modes on some providers wrap the array: {"concepts": [...]}.
	start = strings.IndexByte(raw, '{')
	end = strings.LastIndexByte(raw, '}')
	if start >= 0 && end > start {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw[start:end+1]), &obj); err == nil {
			keys := make([]string, 0, len(obj))
			for k := range obj {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				var elems []json.RawMessage
				if err := json.Unmarshal(obj[k], &elems); err == nil {
					return elems, nil
				}
			}
		}
	}
	return nil, errNoConceptArray
}

// GetKnowledgeGraph returns a closed subgraph selected by opts.
func (g *GraphBuilder) GetKnowledgeGraph(ctx context.Context, opts domain.GraphOptions) (*domain.KnowledgeGraph, error) {
	if opts.Depth <= 0 {
		opts.Depth = domain.DefaultGraphDepth
	}
	if opts.Limit <= 0 {
		opts.Limit = domain.DefaultGraphLimit
	}

	rels, err := g.graph.ListRelationships(ctx, opts.MinWeight)
	if err != nil {
		return nil, fmt.Errorf("loading relationships: %w", err)
	}
	concepts, err := g.graph.ListConcepts(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("loading concepts: %w", err)
	}
	byID := make(map[string]domain.Concept, len(concepts))
	for _, c := range concepts {
		byID[c.ID] = c
	}

	v := &graphView{builder: g, concepts: byID, nodes: make(map[string]struct{})}

	if opts.CenterID != "" {
		if err := v.walk(ctx, rels, opts); err != nil {
			return nil, err
		}
	} else {
		if err := v.top(ctx, concepts, rels, opts); err != nil {
			return nil, err
		}
	}
	v.closeEdges(rels)
	return &v.graph, nil
}

// graphView accumulates the nodes and edges of one view.
type graphView struct {
	builder  *GraphBuilder
	concepts map[string]domain.Concept
	nodes    map[string]struct{}
	graph    domain.KnowledgeGraph
}

func (v *graphView) walk(ctx context.Context, rels []domain.Relationship, opts domain.GraphOptions) error {
	includeDocs := opts.IncludeDocuments
	if _, ok := v.concepts[opts.CenterID]; !ok {
		// A document center implies document nodes.
		doc, err := v.builder.docs.GetDocument(ctx, opts.CenterID)
		if err != nil {
			return fmt.Errorf("graph center %s: %w", opts.CenterID, err)
		}
		if doc == nil {
			return fmt.Errorf("graph center %s: %w", opts.CenterID, domain.ErrNotFound)
		}
		includeDocs = true
	}

	adjacency := make(map[string][]string)
	for _, r := range rels {
		if r.RelationshipType == domain.RelContains && !includeDocs {
			continue
		}
		adjacency[r.SourceID] = append(adjacency[r.SourceID], r.TargetID)
		adjacency[r.TargetID] = append(adjacency[r.TargetID], r.SourceID)
	}

	frontier := []string{opts.CenterID}
	if err := v.add(ctx, opts.CenterID); err != nil {
		return err
	}
	for depth := 0; depth < opts.Depth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			for _, n := range adjacency[id] {
				if len(v.nodes) >= opts.Limit {
					return nil
				}
				if _, seen := v.nodes[n]; seen {
					continue
				}
				if err := v.add(ctx, n); err != nil {
					return err
				}
				next = append(next, n)
			}
		}
		frontier = next
	}
	return nil
}

func (v *graphView) top(
	ctx context.Context,
	concepts []domain.Concept,
	rels []domain.Relationship,
	opts domain.GraphOptions,
) error {
	for _, c := range concepts {
		if len(v.nodes) >= opts.Limit {
			return nil
		}
		if err := v.add(ctx, c.ID); err != nil {
			return err
		}
	}
	if !opts.IncludeDocuments {
		return nil
	}
	for _, r := range rels {
		if len(v.nodes) >= opts.Limit {
			return nil
		}
		if r.RelationshipType != domain.RelContains {
			continue
		}
		if _, ok := v.nodes[r.TargetID]; !ok {
			continue
		}
		if _, ok := v.nodes[r.SourceID]; ok {
			continue
		}
		if err := v.add(ctx, r.SourceID); err != nil {
			return err
		}
	}
	return nil
}

// add records a node once. Document nodes that no longer exist are skipped.
func (v *graphView) add(ctx context.Context, id string) error {
	if _, ok := v.nodes[id]; ok {
		return nil
	}
	if c, ok := v.concepts[id]; ok {
		v.nodes[id] = struct{}{}
		v.graph.Nodes = append(v.graph.Nodes, domain.GraphNode{
			ID:     id,
			Label:  c.Name,
			Kind:   domain.GraphNodeKind(c.Type),
			Weight: float64(c.Frequency),
		})
		return nil
	}

	doc, err := v.builder.docs.GetDocument(ctx, id)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && doc == nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("graph node %s: %w", id, err)
	}
	v.nodes[id] = struct{}{}
	v.graph.Nodes = append(v.graph.Nodes, domain.GraphNode{
		ID:     id,
		Label:  doc.Title,
		Kind:   domain.NodeDocument,
		Weight: 1,
	})
	return nil
}

// closeEdges keeps relationships whose endpoints are both nodes.
func (v *graphView) closeEdges(rels []domain.Relationship) {
	for _, r := range rels {
		_, src := v.nodes[r.SourceID]
		_, tgt := v.nodes[r.TargetID]
		if !src || !tgt {
			continue
		}
		v.graph.Edges = append(v.graph.Edges, domain.GraphEdge{
			Source: r.SourceID,
			Target: r.TargetID,
			Type:   r.RelationshipType,
			Weight: r.Weight,
		})
	}
	sort.SliceStable(v.graph.Edges, func(i, j int) bool {
		a, b := v.graph.Edges[i], v.graph.Edges[j]
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Target < b.Target
	})
	if v.graph.Nodes == nil {
		v.graph.Nodes = []domain.GraphNode{}
	}
	if v.graph.Edges == nil {
		v.graph.Edges = []domain.GraphEdge{}
	}
}

// Export mirrors the selected subgraph into the configured graph database.
func (g *GraphBuilder) Export(ctx context.Context, opts domain.GraphOptions) (*domain.KnowledgeGraph, error) {
	if g.exporter == nil {
		return nil, fmt.Errorf("graph export: no graph database configured: %w", domain.ErrInvalidInput)
	}
	kg, err := g.GetKnowledgeGraph(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := g.exporter.Export(ctx, kg); err != nil {
		return nil, fmt.Errorf("graph export: %w", err)
	}
	logger.Info("exported %d nodes and %d edges", len(kg.Nodes), len(kg.Edges))
	return kg, nil
}
