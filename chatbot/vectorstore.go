package chatbot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

// Embedder turns text into vectors. Documents and queries are embedded
// separately because retrieval models tune them differently.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type Document struct {
	PageContent string
	Score       float32
}

// VectorStore is an in-memory index searched by cosine similarity. It is
// filled once and read concurrently afterwards.
type VectorStore struct {
	embedder Embedder
	contents []string
	vectors  [][]float32
}

func NewVectorStore(embedder Embedder) *VectorStore {
	return &VectorStore{embedder: embedder}
}

func (vs *VectorStore) Len() int { return len(vs.contents) }

// AddDocuments embeds texts and appends them to the index. It must not run
// concurrently with SimilaritySearch.
func (vs *VectorStore) AddDocuments(ctx context.Context, texts []string) error {
	if len(texts) == 0 {
		return nil
	}
	vectors, err := vs.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding documents: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(texts))
	}
	vs.contents = append(vs.contents, texts...)
	vs.vectors = append(vs.vectors, vectors...)
	return nil
}

// SimilaritySearch returns the k documents most similar to query, however
// weak the match. It only comes back empty when the index is.
func (vs *VectorStore) SimilaritySearch(ctx context.Context, query string, k int) ([]Document, error) {
	if k <= 0 || len(vs.vectors) == 0 {
		return nil, nil
	}

	q, err := vs.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	docs := make([]Document, 0, len(vs.vectors))
	for i, v := range vs.vectors {
		score, err := cosine(q, v)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{PageContent: vs.contents[i], Score: score})
	}

	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Score > docs[j].Score })
	if len(docs) > k {
		docs = docs[:k]
	}
	return docs, nil
}

var errDimensionMismatch = errors.New("vector dimensions differ")

func cosine(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, errDimensionMismatch
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb))), nil
}
