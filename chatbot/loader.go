package chatbot

import (
	"fmt"
	"os"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	chunkSize    = 1000
	chunkOverlap = 200
)

// SplitDocument cuts text into overlapping chunks, preferring paragraph
// and sentence boundaries.
func SplitDocument(text string) ([]string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)

	chunks, err := splitter.SplitText(text)
	if err != nil {
		return nil, err
	}

	out := chunks[:0]
	for _, c := range chunks {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

// LoadDocument reads and splits the project description at path.
func LoadDocument(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project description: %w", err)
	}
	return SplitDocument(string(raw))
}
