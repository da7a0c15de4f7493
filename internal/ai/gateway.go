package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/smartsite-dev/api/pkg/apperrors"
	"github.com/smartsite-dev/api/pkg/config"
	"github.com/smartsite-dev/api/pkg/logging"
)

// ErrUnavailable is returned while the upstream circuit is open
var ErrUnavailable = errors.New("content generation temporarily unavailable")

// TaskConfig is the per-task prompt and sampling configuration
type TaskConfig struct {
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// taskConfigs maps task types to their prompt configuration
var taskConfigs = map[string]TaskConfig{
	"assistant": {
		SystemPrompt: "You are a helpful SmartSite admin assistant. Provide clear, actionable guidance for managing the admin panel.",
		Temperature:  0.7,
		MaxTokens:    500,
	},
	"insight-trends": {
		SystemPrompt: "Analyze the provided insights data and identify key trends, patterns, and actionable recommendations.",
		Temperature:  0.3,
		MaxTokens:    800,
	},
	"social-post": {
		SystemPrompt: "Generate engaging social media content that is professional, on-brand, and optimized for engagement.",
		Temperature:  0.8,
		MaxTokens:    300,
	},
	"blog-post": {
		SystemPrompt: "Write a comprehensive, well-structured blog post that provides value to readers and maintains professional tone.",
		Temperature:  0.7,
		MaxTokens:    1500,
	},
	"theme-to-blog": {
		SystemPrompt: "Convert the provided theme or insight into a complete blog article with clear structure, engaging content, and professional tone.",
		Temperature:  0.7,
		MaxTokens:    1500,
	},
	"theme-to-agenda": {
		SystemPrompt: "Transform the provided theme into a structured meeting agenda with clear objectives, discussion points, and action items.",
		Temperature:  0.5,
		MaxTokens:    800,
	},
}

// GenerateRequest is a content generation request
type GenerateRequest struct {
	Prompt      string
	TaskType    string
	Context     map[string]interface{}
	Temperature *float64
	MaxTokens   *int
}

// GenerateResponse mirrors the upstream status envelope
type GenerateResponse struct {
	Status   string `json:"status"`
	Data     string `json:"data"`
	TaskType string `json:"taskType"`
}

// Gateway wraps an OpenAI-compatible chat-completion endpoint with
// task-specific prompt construction and a circuit breaker so a failing
// upstream cannot pile up requests.
type Gateway struct {
	cfg     config.AIConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewGateway creates a content gateway for the configured upstream
func NewGateway(cfg config.AIConfig) *Gateway {
	settings := gobreaker.Settings{
		Name:    "ai-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &Gateway{
		cfg:     cfg,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// chat completion wire types
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate builds the task prompt and calls the upstream through the
// circuit breaker.
func (g *Gateway) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Prompt == "" {
		return nil, apperrors.Validation("prompt", "is required")
	}
	task, ok := taskConfigs[req.TaskType]
	if !ok {
		return nil, apperrors.Validation("taskType", fmt.Sprintf("unknown task type '%s'", req.TaskType))
	}

	temperature := task.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := task.MaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	prompt := req.Prompt
	if len(req.Context) > 0 {
		ctxJSON, err := json.Marshal(req.Context)
		if err == nil {
			prompt = fmt.Sprintf("%s\n\nContext:\n%s", prompt, ctxJSON)
		}
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.complete(ctx, task.SystemPrompt, prompt, temperature, maxTokens)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrUnavailable
		}
		logging.Logger.Error("Content generation failed",
			zap.String("taskType", req.TaskType),
			zap.Error(err))
		return nil, apperrors.Upstream("content generation failed", err)
	}

	return &GenerateResponse{
		Status:   "success",
		Data:     result.(string),
		TaskType: req.TaskType,
	}, nil
}

// complete performs one chat-completion call
func (g *Gateway) complete(ctx context.Context, systemPrompt, prompt string, temperature float64, maxTokens int) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}

	url := g.cfg.BaseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("invalid upstream response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("upstream error: %s", parsed.Error.Message)
		}
		return "", fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("upstream returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
