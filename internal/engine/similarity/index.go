package similarity

import (
	"math"
	"slices"
	"sort"
	"sync"
)

const (
	// MaxTerms bounds the terms stored per document. Weights are recomputed
	// from corpus statistics at query time.
	MaxTerms = 50
	// MinSimilarity is the lowest score a match may have.
	MinSimilarity = 0.01
)

// Document is one entry of a full rebuild.
type Document struct {
	ID   string
	Text string
}

// Match is one query result.
type Match struct {
	IncidentID string  `json:"incident_id"`
	Score      float64 `json:"similarity_score"`
}

type document struct {
	id     string
	terms  []string       // every distinct term, for document-frequency bookkeeping
	counts map[string]int // term frequencies of the MaxTerms heaviest terms at add time
}

func newDocument(id, text string) (*document, map[string]int) {
	counts := termCounts(Tokenize(text))
	terms := make([]string, 0, len(counts))
	for t := range counts {
		terms = append(terms, t)
	}
	return &document{id: id, terms: terms}, counts
}

// keep stores the counts of the MaxTerms heaviest terms under the given statistics.
func (d *document) keep(counts map[string]int, n int, df func(string) int) {
	vec := weigh(counts, n, df, MaxTerms)
	d.counts = make(map[string]int, len(vec))
	for t := range vec {
		d.counts[t] = counts[t]
	}
}

// Index is an in-memory TF-IDF corpus answering nearest-neighbour queries
// by cosine similarity. Safe for concurrent use: queries share a read lock,
// AddDocument and Rebuild take the write lock only to commit.
type Index struct {
	mu   sync.RWMutex
	docs []*document    // insertion order
	pos  map[string]int // incident id -> index into docs
	df   map[string]int // term -> number of documents containing it
}

// New returns an empty index.
func New() *Index {
	return &Index{
		pos: make(map[string]int),
		df:  make(map[string]int),
	}
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Contains reports whether id is indexed.
func (ix *Index) Contains(id string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.pos[id]
	return ok
}

// AddDocument indexes text under id. Adding an id that is already indexed
// replaces the previous document in place, so corpus statistics never count
// an id twice.
func (ix *Index) AddDocument(id, text string) {
	doc, counts := newDocument(id, text)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if i, ok := ix.pos[id]; ok {
		for _, t := range ix.docs[i].terms {
			if ix.df[t] <= 1 {
				delete(ix.df, t)
			} else {
				ix.df[t]--
			}
		}
		ix.docs[i] = doc
	} else {
		ix.pos[id] = len(ix.docs)
		ix.docs = append(ix.docs, doc)
	}
	for _, t := range doc.terms {
		ix.df[t]++
	}
	doc.keep(counts, len(ix.docs), func(t string) int { return ix.df[t] })
}

// Rebuild discards the current corpus and re-derives it from docs.
// A later duplicate id replaces an earlier one but keeps its position.
func (ix *Index) Rebuild(docs []Document) {
	built := make([]*document, 0, len(docs))
	counts := make([]map[string]int, 0, len(docs))
	pos := make(map[string]int, len(docs))
	for _, d := range docs {
		doc, c := newDocument(d.ID, d.Text)
		if i, seen := pos[d.ID]; seen {
			built[i], counts[i] = doc, c
			continue
		}
		pos[d.ID] = len(built)
		built = append(built, doc)
		counts = append(counts, c)
	}

	df := make(map[string]int)
	for _, d := range built {
		for _, t := range d.terms {
			df[t]++
		}
	}
	for i, d := range built {
		d.keep(counts[i], len(built), func(t string) int { return df[t] })
	}

	ix.mu.Lock()
	ix.docs, ix.pos, ix.df = built, pos, df
	ix.mu.Unlock()
}

// Query returns up to topK indexed documents most similar to text, excluding
// excludeID. The query text is weighted under the current corpus statistics
// but never added to the corpus. Scores are rounded to three decimals and
// matches below MinSimilarity are dropped. Ties keep insertion order.
func (ix *Index) Query(text string, topK int, excludeID string) []Match {
	matches := []Match{}
	if topK <= 0 {
		return matches
	}
	counts := termCounts(Tokenize(text))

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.docs) == 0 || len(counts) == 0 {
		return matches
	}
	n := len(ix.docs)
	df := func(t string) int { return ix.df[t] }
	query := weigh(counts, n, df, 0)

	for _, d := range ix.docs {
		if excludeID != "" && d.id == excludeID {
			continue
		}
		sim := CosineSimilarity(query, weigh(d.counts, n, df, 0))
		if sim < MinSimilarity {
			continue
		}
		matches = append(matches, Match{IncidentID: d.id, Score: round3(sim)})
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// weigh computes tf * idf for every term, with idf = 1 + ln(n / (1 + df)).
// When limit > 0 only the limit heaviest terms are kept (ties broken by term).
func weigh(counts map[string]int, n int, df func(string) int, limit int) map[string]float64 {
	type tw struct {
		term   string
		weight float64
	}
	weights := make([]tw, 0, len(counts))
	for t, tf := range counts {
		idf := 1 + math.Log(float64(n)/float64(1+df(t)))
		weights = append(weights, tw{term: t, weight: float64(tf) * idf})
	}
	if limit > 0 && len(weights) > limit {
		sort.Slice(weights, func(i, j int) bool {
			if weights[i].weight != weights[j].weight {
				return weights[i].weight > weights[j].weight
			}
			return weights[i].term < weights[j].term
		})
		weights = weights[:limit]
	}
	vec := make(map[string]float64, len(weights))
	for _, w := range weights {
		vec[w.term] = w.weight
	}
	return vec
}

func round3(v float64) float64 {
	r := math.Round(v*1000) / 1000
	if r > 1 {
		return 1
	}
	return r
}
