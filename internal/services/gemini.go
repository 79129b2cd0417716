package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"valles-rodes/internal/chat"
	"valles-rodes/internal/models"
)

// GeminiService streams chat completions from Gemini. Clients are created
// lazily per API key since the credential travels with each request.
type GeminiService struct {
	modelName string
	logger    *zap.Logger

	mu      sync.Mutex
	clients map[string]*genai.Client

	rateChan chan struct{} // Token bucket
}

func NewGeminiService(modelName string, concurrentReqs int, logger *zap.Logger) *GeminiService {
	if concurrentReqs < 1 {
		concurrentReqs = 1
	}

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		modelName: modelName,
		logger:    logger,
		clients:   make(map[string]*genai.Client),
		rateChan:  rateChan,
	}
}

func (s *GeminiService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, c := range s.clients {
		c.Close()
		delete(s.clients, key)
	}
}

// acquireRate blocks until a rate slot is available. The minute bounds the
// wait for a slot only; the stream itself has no deadline.
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

func (s *GeminiService) clientFor(ctx context.Context, apiKey string) (*genai.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[apiKey]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	s.clients[apiKey] = c
	return c, nil
}

// Stream implements chat.Provider. The rate slot is held until the returned
// stream is closed.
func (s *GeminiService) Stream(ctx context.Context, cred chat.Credential, messages []models.ChatMessage) (chat.Stream, error) {
	req, err := buildChatRequest(messages)
	if err != nil {
		return nil, err
	}

	client, err := s.clientFor(ctx, cred.APIKey)
	if err != nil {
		return nil, err
	}

	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}

	model := client.GenerativeModel(s.modelName)
	model.SetTemperature(0.7)
	model.SetTopP(0.95)
	if req.system != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.system))
	}

	cs := model.StartChat()
	cs.History = req.history

	s.logger.Debug("opening Gemini stream",
		zap.String("model", s.modelName),
		zap.Int("history", len(req.history)))

	return &geminiStream{
		iter:    cs.SendMessageStream(ctx, genai.Text(req.prompt)),
		release: s.releaseRate,
	}, nil
}

const emptyReply = "(sin respuesta)"

type chatRequest struct {
	system  string
	history []*genai.Content
	prompt  string
}

// buildChatRequest maps the outbound messages onto Gemini's shape: system
// text becomes the system instruction, and so do assistant turns that come
// before the first user turn, since a Gemini history has to open with the
// user. The final message must be the user's and is sent as the prompt.
func buildChatRequest(messages []models.ChatMessage) (chatRequest, error) {
	var req chatRequest
	var system []string
	seenUser := false

	for _, m := range messages {
		switch {
		case m.Role == models.RoleSystem:
			if m.Content != "" {
				system = append(system, m.Content)
			}
		case m.Role == models.RoleAssistant && !seenUser:
			if m.Content != "" {
				system = append(system, "Ya has saludado al cliente con este mensaje: "+m.Content)
			}
		case m.Role == models.RoleUser:
			if m.Content == "" {
				continue
			}
			seenUser = true
			req.history = append(req.history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		case m.Role == models.RoleAssistant:
			// a reply that streamed nothing still takes its turn, so user
			// turns never follow each other
			text := m.Content
			if text == "" {
				text = emptyReply
			}
			req.history = append(req.history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(text)}})
		default:
			return chatRequest{}, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}

	if len(req.history) == 0 || req.history[len(req.history)-1].Role != "user" {
		return chatRequest{}, errors.New("conversation must end with a user message")
	}

	last := req.history[len(req.history)-1]
	req.history = req.history[:len(req.history)-1]
	req.prompt = string(last.Parts[0].(genai.Text))
	req.system = strings.Join(system, "\n\n")
	return req, nil
}

type geminiStream struct {
	iter    *genai.GenerateContentResponseIterator
	release func()
	once    sync.Once
}

func (g *geminiStream) Next() (string, error) {
	resp, err := g.iter.Next()
	if errors.Is(err, iterator.Done) {
		return "", chat.ErrEndOfStream
	}
	if err != nil {
		return "", err
	}
	return fragmentText(resp)
}

func (g *geminiStream) Close() error {
	g.once.Do(g.release)
	return nil
}

// fragmentText extracts the text delta of one streamed response. A chunk with
// no candidates and no prompt feedback carries nothing we can use.
func fragmentText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", &chat.MalformedFragmentError{Reason: "nil response"}
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil {
			return "", nil
		}
		return "", &chat.MalformedFragmentError{Reason: "no candidates"}
	}
	return extractText(resp), nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
