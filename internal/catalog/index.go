package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/sqlscout/sqlscout/internal/errors"
)

// Index defines column-level retrieval over a database catalog
type Index interface {
	SearchColumns(
		ctx context.Context,
		dbID, query string,
		exclude []string,
		topK int,
	) ([]ColumnDescriptor, error)
	ListTables(ctx context.Context, dbID string) ([]string, error)
}

// KeywordIndex is an in-memory Index scoring columns with term-frequency
// weights per field plus a Levenshtein tie-break for near-miss identifier
// tokens. Lookups are safe for concurrent use; registration is not expected
// to race with searches.
type KeywordIndex struct {
	mu      sync.RWMutex
	columns map[string][]ColumnDescriptor
}

// NewKeywordIndex creates an empty keyword index
func NewKeywordIndex() *KeywordIndex {
	return &KeywordIndex{
		columns: make(map[string][]ColumnDescriptor),
	}
}

// AddDatabase registers the column descriptors of a database, replacing any
// previous registration for the same id
func (idx *KeywordIndex) AddDatabase(dbID string, cols []ColumnDescriptor) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.columns[dbID] = append([]ColumnDescriptor(nil), cols...)
}

// Databases returns the registered database ids in sorted order
func (idx *KeywordIndex) Databases() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var ids []string
	for id := range idx.columns {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// ColumnsFor returns a copy of the registered descriptors of a database
func (idx *KeywordIndex) ColumnsFor(dbID string) ([]ColumnDescriptor, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	cols, ok := idx.columns[dbID]
	if !ok {
		return nil, errors.Newf(errors.ErrTypeRetrieval, "unknown database: %s", dbID)
	}

	return append([]ColumnDescriptor(nil), cols...), nil
}

// SearchColumns returns up to topK columns of the database ranked by
// relevance to the query, skipping every identity in exclude. Ordering is
// deterministic: score descending, identity ascending.
func (idx *KeywordIndex) SearchColumns(
	_ context.Context,
	dbID, query string,
	exclude []string,
	topK int,
) ([]ColumnDescriptor, error) {
	idx.mu.RLock()
	cols, ok := idx.columns[dbID]
	idx.mu.RUnlock()

	if !ok {
		return nil, errors.Newf(errors.ErrTypeRetrieval, "unknown database: %s", dbID)
	}

	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	terms := tokenize(query)

	type scored struct {
		col   ColumnDescriptor
		score float64
	}

	var results []scored

	for _, col := range cols {
		if excluded[col.ID()] {
			continue
		}

		score := scoreColumn(col, terms)
		if score <= 0 {
			continue
		}

		results = append(results, scored{col: col, score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}

		return results[i].col.ID() < results[j].col.ID()
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	out := make([]ColumnDescriptor, 0, len(results))
	for _, r := range results {
		out = append(out, r.col)
	}

	return out, nil
}

// ListTables returns the sorted distinct table names of a database
func (idx *KeywordIndex) ListTables(_ context.Context, dbID string) ([]string, error) {
	idx.mu.RLock()
	cols, ok := idx.columns[dbID]
	idx.mu.RUnlock()

	if !ok {
		return nil, errors.Newf(errors.ErrTypeRetrieval, "unknown database: %s", dbID)
	}

	seen := make(map[string]bool)

	var tables []string

	for _, col := range cols {
		if !seen[col.Table] {
			seen[col.Table] = true

			tables = append(tables, col.Table)
		}
	}

	sort.Strings(tables)

	return tables, nil
}

// Field weights for column scoring (higher = more important)
var fieldWeights = []struct {
	weight  float64
	content func(ColumnDescriptor) string
}{
	{1.0, func(c ColumnDescriptor) string { return c.Name }},
	{0.8, func(c ColumnDescriptor) string { return c.Table }},
	{0.6, func(c ColumnDescriptor) string { return c.Description }},
	{0.4, func(c ColumnDescriptor) string { return strings.Join(c.SampleValues, " ") }},
	{0.3, func(c ColumnDescriptor) string { return c.Type }},
}

// scoreColumn computes a term-frequency score across weighted fields with a
// coverage bonus for queries matching multiple terms
func scoreColumn(col ColumnDescriptor, terms []string) float64 {
	if len(terms) == 0 {
		return 0.0
	}

	const k1 = 1.2 // saturation parameter

	totalScore := 0.0
	matchedTerms := 0

	for _, term := range terms {
		termLower := strings.ToLower(term)
		termScore := 0.0

		for _, field := range fieldWeights {
			content := strings.ToLower(field.content(col))
			if content == "" {
				continue
			}

			tf := float64(strings.Count(content, termLower))
			if tf > 0 {
				termScore += (tf / (tf + k1)) * field.weight
				continue
			}

			// Near-miss identifiers ("customers" vs "customer_id") still
			// deserve a reduced score.
			if sim := identifierSimilarity(termLower, content); sim > 0 {
				termScore += sim * field.weight * 0.5
			}
		}

		if termScore > 0 {
			matchedTerms++

			totalScore += termScore
		}
	}

	if matchedTerms == 0 {
		return 0.0
	}

	avgScore := totalScore / float64(len(terms))
	coverageBonus := float64(matchedTerms) / float64(len(terms))

	return avgScore * (0.7 + 0.3*coverageBonus)
}

// identifierSimilarity returns a normalized Levenshtein similarity between a
// query term and the identifier tokens of a field, or 0 when below the
// usefulness threshold
func identifierSimilarity(term, content string) float64 {
	const threshold = 0.7

	best := 0.0

	for _, word := range splitIdentifier(content) {
		maxLen := len(term)
		if len(word) > maxLen {
			maxLen = len(word)
		}

		if maxLen == 0 {
			continue
		}

		distance := levenshtein.DistanceForStrings(
			[]rune(term),
			[]rune(word),
			levenshtein.DefaultOptions,
		)

		similarity := 1.0 - float64(distance)/float64(maxLen)
		if similarity > threshold && similarity > best {
			best = similarity
		}
	}

	return best
}

// splitIdentifier breaks snake_case identifiers and free text into words
func splitIdentifier(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '.' || r == ' ' || r == ',' || r == ';'
	})
}

// tokenize splits the query into search terms
func tokenize(query string) []string {
	parts := strings.Fields(strings.TrimSpace(query))

	var terms []string

	for _, part := range parts {
		if len(part) > 0 {
			terms = append(terms, part)
		}
	}

	return terms
}
