package similarity

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = []Document{
	{ID: "INC-1", Text: "lock timeout on table bseg during month-end closing batch module:fi severity:error"},
	{ID: "INC-2", Text: "posting period 01/2026 is not open for company code 1000 module:fi severity:error"},
	{ID: "INC-3", Text: "high database load during fi-gl reconciliation response time module:fi severity:warning"},
	{ID: "INC-4", Text: "goods receipt failed material master locked module:mm severity:error"},
	{ID: "INC-5", Text: "lock timeout on table bkpf during posting module:fi severity:error"},
}

func buildIndex(docs []Document) *Index {
	ix := New()
	for _, d := range docs {
		ix.AddDocument(d.ID, d.Text)
	}
	return ix
}

func TestQueryEmptyIndex(t *testing.T) {
	ix := New()
	got := ix.Query("any text", 5, "")
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestQueryRanksByScore(t *testing.T) {
	ix := buildIndex(corpus)
	got := ix.Query("lock timeout on table bseg", 5, "")
	require.NotEmpty(t, got)
	assert.Equal(t, "INC-1", got[0].IncidentID)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
}

func TestQueryExcludesAndBoundsScores(t *testing.T) {
	ix := buildIndex(corpus)
	for _, d := range corpus {
		got := ix.Query(d.Text, 10, d.ID)
		for _, m := range got {
			assert.NotEqual(t, d.ID, m.IncidentID)
			assert.GreaterOrEqual(t, m.Score, MinSimilarity)
			assert.LessOrEqual(t, m.Score, 1.0)
			assert.Equal(t, m.Score, round3(m.Score))
		}
	}
}

func TestQueryTopK(t *testing.T) {
	ix := buildIndex(corpus)
	assert.Len(t, ix.Query("module fi severity error", 2, ""), 2)
	assert.Empty(t, ix.Query("module fi", 0, ""))
}

func TestQueryNotAddedToCorpus(t *testing.T) {
	ix := buildIndex(corpus)
	ix.Query("completely new words here", 5, "")
	assert.Equal(t, len(corpus), ix.Len())
}

func TestQueryTiesKeepInsertionOrder(t *testing.T) {
	ix := New()
	ix.AddDocument("B", "lock timeout bseg")
	ix.AddDocument("A", "lock timeout bseg")
	ix.AddDocument("C", "unrelated material master")

	got := ix.Query("lock timeout bseg", 5, "")
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].IncidentID)
	assert.Equal(t, "A", got[1].IncidentID)
	assert.Equal(t, got[0].Score, got[1].Score)
}

func TestAddDocumentIdempotent(t *testing.T) {
	once := buildIndex(corpus)

	twice := buildIndex(corpus)
	twice.AddDocument(corpus[0].ID, corpus[0].Text)
	twice.AddDocument(corpus[2].ID, corpus[2].Text)

	require.Equal(t, once.Len(), twice.Len())
	for _, d := range corpus {
		assert.Equal(t, once.Query(d.Text, 5, ""), twice.Query(d.Text, 5, ""))
	}
}

func TestAddDocumentReplaces(t *testing.T) {
	ix := buildIndex(corpus)
	ix.AddDocument("INC-4", "lock timeout on table bseg during month-end closing batch module:fi severity:error")
	assert.Equal(t, len(corpus), ix.Len())

	got := ix.Query("goods receipt material master", 5, "")
	for _, m := range got {
		assert.NotEqual(t, "INC-4", m.IncidentID)
	}
}

func TestRebuildMatchesIncrementalAdds(t *testing.T) {
	incremental := buildIndex(corpus)

	rebuilt := New()
	rebuilt.AddDocument("STALE", "something stale that must disappear")
	rebuilt.Rebuild(corpus)

	assert.False(t, rebuilt.Contains("STALE"))
	require.Equal(t, incremental.Len(), rebuilt.Len())
	for _, d := range corpus {
		assert.Equal(t, incremental.Query(d.Text, 5, ""), rebuilt.Query(d.Text, 5, ""))
	}
}

func TestRebuildDuplicateIDs(t *testing.T) {
	ix := New()
	ix.Rebuild([]Document{{ID: "A", Text: "first"}, {ID: "B", Text: "other"}, {ID: "A", Text: "lock timeout"}})
	assert.Equal(t, 2, ix.Len())
	got := ix.Query("lock timeout", 5, "")
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].IncidentID)
}

func TestWeighLimitsTerms(t *testing.T) {
	words := make([]string, 0, 80)
	for i := 0; i < 80; i++ {
		words = append(words, fmt.Sprintf("term%02d", i))
	}
	counts := termCounts(Tokenize(strings.Join(words, " ")))
	vec := weigh(counts, 1, func(string) int { return 0 }, MaxTerms)
	assert.Len(t, vec, MaxTerms)
	// Equal weights keep the lexically smallest terms.
	assert.Contains(t, vec, "term00")
	assert.NotContains(t, vec, "term79")
}

func TestConcurrentAddAndQuery(t *testing.T) {
	ix := New()
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				ix.AddDocument(fmt.Sprintf("INC-%d-%d", w, i), corpus[i%len(corpus)].Text)
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				for _, m := range ix.Query("lock timeout bseg", 5, "") {
					if m.Score < MinSimilarity || m.Score > 1 {
						t.Errorf("score out of range: %v", m.Score)
					}
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 200, ix.Len())
}

func TestAddDocumentStoresBoundedTerms(t *testing.T) {
	words := make([]string, 0, 80)
	for i := 0; i < 80; i++ {
		words = append(words, fmt.Sprintf("term%02d", i))
	}
	text := strings.Join(words, " ")

	ix := New()
	ix.AddDocument("INC-WIDE", text)
	ix.Rebuild([]Document{{ID: "INC-WIDE", Text: text}, {ID: "INC-2", Text: "term00 term01"}})

	ix.AddDocument("INC-WIDE", text)
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	doc := ix.docs[ix.pos["INC-WIDE"]]
	assert.Len(t, doc.counts, MaxTerms)
	assert.Len(t, doc.terms, 80)
	// Document frequencies still cover terms that were not stored.
	assert.Equal(t, 1, ix.df["term79"])
	assert.Equal(t, 2, ix.df["term00"])
}

func TestRebuildStoresBoundedTerms(t *testing.T) {
	words := make([]string, 0, 60)
	for i := 0; i < 60; i++ {
		words = append(words, fmt.Sprintf("word%02d", i))
	}
	ix := New()
	ix.Rebuild([]Document{{ID: "INC-WIDE", Text: strings.Join(words, " ")}})

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	assert.Len(t, ix.docs[0].counts, MaxTerms)
}
