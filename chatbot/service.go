// Package chatbot answers questions about the project from an indexed
// project description. Retrieval is an in-memory vector store; generation
// is delegated to a ChatModel constrained to the retrieved context.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
)

const (
	GreetingReply = "Hi, I'm your API assistant. Feel free to ask me anything about the doctor appointment project!"
	NoMatchReply  = "I couldn't find any relevant information in the project description for your question. Please ask something else."
	EmptyReply    = "No response generated."

	searchResults = 5
	maxHistory    = 6
)

var (
	ErrInvalidMessage = errors.New("please enter a valid message about the project")
	ErrNotReady       = errors.New("project data is still loading")
)

var greetingPattern = regexp.MustCompile(`(?i)^(hi|hello|hey|greetings|how are you|what's up)\b`)

const systemPrompt = `You are an AI assistant for a doctor appointment API. Use ONLY the project data below to answer.

Rules:
- Only answer using the info in "Project Data".
- If data doesn't cover the question, say: "I don't have that information in the project description. Please ask something else."
- No guessing or hallucinating.

Project Data:
%s`

// ChatModel produces a reply for question given a system instruction and
// the preceding conversation.
type ChatModel interface {
	Generate(ctx context.Context, system string, history []Turn, question string) (string, error)
}

// Turn is one message of the conversation as the frontend tracks it.
type Turn struct {
	Type string `json:"type"` // "user" or "bot"
	Text string `json:"text"`
}

func (t Turn) IsBot() bool { return t.Type == "bot" }

type Answer struct {
	Reply   string   `json:"reply"`
	Context []string `json:"context"`
	Source  string   `json:"source,omitempty"`
}

const (
	StatusDisabled = "disabled"
	StatusLoading  = "loading"
	StatusReady    = "ready"
	StatusFailed   = "failed"
)

type Service struct {
	embedder Embedder
	model    ChatModel

	store  atomic.Pointer[VectorStore]
	status atomic.Value
}

// NewService returns a chatbot. With a nil embedder or model the service
// only answers greetings.
func NewService(embedder Embedder, model ChatModel) *Service {
	s := &Service{embedder: embedder, model: model}
	if embedder == nil || model == nil {
		s.status.Store(StatusDisabled)
	} else {
		s.status.Store(StatusLoading)
	}
	return s
}

func (s *Service) Status() string {
	return s.status.Load().(string)
}

// Initialize builds the vector store from the document at path and
// publishes it. It runs once at startup; Ask reports ErrNotReady until it
// has finished.
func (s *Service) Initialize(ctx context.Context, path string) error {
	if s.Status() == StatusDisabled {
		return nil
	}

	start := time.Now()
	chunks, err := LoadDocument(path)
	if err != nil {
		s.status.Store(StatusFailed)
		return err
	}

	store := NewVectorStore(s.embedder)
	if err := store.AddDocuments(ctx, chunks); err != nil {
		s.status.Store(StatusFailed)
		return fmt.Errorf("failed to index project description: %w", err)
	}

	s.store.Store(store)
	s.status.Store(StatusReady)
	log.Printf("Vector store ready: %d chunks indexed in %v", store.Len(), time.Since(start).Round(time.Millisecond))
	return nil
}

// Ask answers one chat message.
func (s *Service) Ask(ctx context.Context, message string, history []Turn) (*Answer, error) {
	question := strings.TrimSpace(message)
	if question == "" {
		return nil, ErrInvalidMessage
	}

	if greetingPattern.MatchString(question) {
		return &Answer{Reply: GreetingReply, Context: []string{}, Source: "greeting"}, nil
	}

	store := s.store.Load()
	if store == nil {
		return nil, ErrNotReady
	}

	docs, err := store.SimilaritySearch(ctx, question, searchResults)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return &Answer{Reply: NoMatchReply, Context: []string{}}, nil
	}

	contents := make([]string, len(docs))
	for i, d := range docs {
		contents[i] = d.PageContent
	}

	system := fmt.Sprintf(systemPrompt, strings.Join(contents, "\n---\n"))
	reply, err := s.model.Generate(ctx, system, recentHistory(history), question)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reply) == "" {
		reply = EmptyReply
	}

	return &Answer{Reply: reply, Context: contents}, nil
}

// recentHistory keeps the last maxHistory non-empty turns, starting at a
// user turn so the conversation alternates from the user side.
func recentHistory(history []Turn) []Turn {
	turns := make([]Turn, 0, len(history))
	for _, t := range history {
		if strings.TrimSpace(t.Text) != "" {
			turns = append(turns, t)
		}
	}
	if len(turns) > maxHistory {
		turns = turns[len(turns)-maxHistory:]
	}
	for len(turns) > 0 && turns[0].IsBot() {
		turns = turns[1:]
	}
	return turns
}
