package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"
	"github.com/xtrinch/food-coach/internal/config"
	"github.com/xtrinch/food-coach/internal/domain"
	apperrors "github.com/xtrinch/food-coach/internal/errors"
	"github.com/xtrinch/food-coach/internal/photo"
	"google.golang.org/api/option"
)

const (
	openAIModel = "gpt-4.1-mini"
	geminiModel = "gemini-1.5-flash"
)

// JobRecorder captures prompt/response text onto a running analysis job.
// Recording is best-effort and must never fail the wrapped call.
type JobRecorder interface {
	RecordPrompt(ctx context.Context, jobID, prompt string)
	RecordResponse(ctx context.Context, jobID, response string)
}

// AIService is the estimation boundary: it turns meal descriptions and
// day history into calorie/macro estimates and narrative insights. The
// rest of the system only persists its results.
type AIService struct {
	provider     string
	geminiClient *genai.Client
	openaiClient *openai.Client
	recorder     JobRecorder
}

// MealEstimate is the model's answer for a single meal.
type MealEstimate struct {
	Calories               float64  `json:"calories"`
	Explanation            string   `json:"explanation,omitempty"`
	ProteinGrams           *float64 `json:"protein_grams,omitempty"`
	CarbsGrams             *float64 `json:"carbs_grams,omitempty"`
	FatGrams               *float64 `json:"fat_grams,omitempty"`
	FiberGrams             *float64 `json:"fiber_grams,omitempty"`
	ImprovementSuggestions []string `json:"improvement_suggestions,omitempty"`
}

// InsightResult is the generated narrative for one focus date.
type InsightResult struct {
	RawJSON    string
	PrettyText string
	Model      string
	Prompt     string
}

// NewAIService creates the estimation service for the configured provider.
func NewAIService(ctx context.Context, cfg config.AIConfig, recorder JobRecorder) (*AIService, error) {
	s := &AIService{provider: cfg.Provider, recorder: recorder}

	if cfg.OpenAIAPIKey != "" {
		s.openaiClient = openai.NewClient(cfg.OpenAIAPIKey)
	}
	if cfg.GeminiAPIKey != "" {
		client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		s.geminiClient = client
	}

	switch cfg.Provider {
	case "openai":
		if s.openaiClient == nil {
			return nil, apperrors.NewValidationError("OpenAI API key not set. Add OPENAI_API_KEY and retry.")
		}
	case "gemini":
		if s.geminiClient == nil {
			return nil, apperrors.NewValidationError("Gemini API key not set. Add GEMINI_API_KEY and retry.")
		}
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown AI provider %q", cfg.Provider))
	}

	return s, nil
}

// Close releases provider clients.
func (s *AIService) Close() {
	if s.geminiClient != nil {
		_ = s.geminiClient.Close()
	}
}

const mealEstimatePrompt = `You are a nutrition assistant. Estimate total calories and macros for a single meal description, using the photo when one is attached.
If day context is provided, treat it as background only.
Respond with ONLY a JSON object like:
{"calories": 450, "explanation": "Short reasoning", "protein_grams": 20, "carbs_grams": 50, "fat_grams": 15, "fiber_grams": 5, "improvement_suggestions": ["One concrete suggestion"]}
Explanation must be one sentence. If you are unsure, give your best reasonable estimate.`

// EstimateMealCalories asks the model for a calorie/macro estimate. The
// optional photo is a data URL; the optional day context is a short
// summary of the rest of the day. When jobID is set, the prompt and raw
// response are captured onto that job record.
func (s *AIService) EstimateMealCalories(ctx context.Context, description, photoDataURL, dayContext, jobID string) (*MealEstimate, error) {
	user, err := json.Marshal(map[string]interface{}{
		"meal_description": description,
		"day_context":      dayContext,
	})
	if err != nil {
		return nil, err
	}

	content, err := s.complete(ctx, mealEstimatePrompt, string(user), photoDataURL, jobID)
	if err != nil {
		return nil, err
	}

	jsonStr := extractJSON(content)
	if jsonStr == "" {
		return nil, apperrors.NewExternalAPIError(fmt.Errorf("no valid JSON in response"), s.provider)
	}
	var estimate MealEstimate
	if err := json.Unmarshal([]byte(jsonStr), &estimate); err != nil {
		return nil, apperrors.NewExternalAPIError(fmt.Errorf("failed to parse estimate: %w", err), s.provider)
	}
	if estimate.Calories <= 0 {
		return nil, apperrors.NewExternalAPIError(fmt.Errorf("implausible calorie estimate %v", estimate.Calories), s.provider)
	}
	return &estimate, nil
}

const dailyInsightPrompt = `You are a friendly nutrition and physiology coach. Given the user's last ~2 weeks of food logs, notes, sleep, stress and weight, explain today's weight/bloating, identify patterns, and suggest 1-3 concrete actions for tomorrow. Respond ONLY as JSON with keys: weight_explanation, bloating_explanation, patterns, actions, caveats.`

// GenerateDailyInsight produces the narrative insight for a focus date
// from a recent window of logs. Photos are stripped before prompting to
// keep the request bounded.
func (s *AIService) GenerateDailyInsight(ctx context.Context, date string, logs []domain.DailyLog, jobID string) (*InsightResult, error) {
	trimmed := make([]domain.DailyLog, len(logs))
	copy(trimmed, logs)
	for i := range trimmed {
		meals := make(domain.MealEntries, len(trimmed[i].Meals))
		copy(meals, trimmed[i].Meals)
		for mi := range meals {
			meals[mi].PhotoDataURL = ""
		}
		trimmed[i].Meals = meals
	}

	user, err := json.Marshal(map[string]interface{}{
		"focus_date": date,
		"logs":       trimmed,
	})
	if err != nil {
		return nil, err
	}

	content, err := s.complete(ctx, dailyInsightPrompt, string(user), "", jobID)
	if err != nil {
		return nil, err
	}

	return &InsightResult{
		RawJSON:    content,
		PrettyText: content,
		Model:      s.model(),
		Prompt:     fmt.Sprintf("System:\n%s\n\nUser:\n%s", dailyInsightPrompt, user),
	}, nil
}

func (s *AIService) model() string {
	if s.provider == "gemini" {
		return geminiModel
	}
	return openAIModel
}

func (s *AIService) complete(ctx context.Context, systemPrompt, userContent, photoDataURL, jobID string) (string, error) {
	if s.recorder != nil && jobID != "" {
		s.recorder.RecordPrompt(ctx, jobID, fmt.Sprintf("System:\n%s\n\nUser:\n%s", systemPrompt, userContent))
	}

	var content string
	var err error
	if s.provider == "gemini" {
		content, err = s.completeWithGemini(ctx, systemPrompt, userContent, photoDataURL)
	} else {
		content, err = s.completeWithOpenAI(ctx, systemPrompt, userContent, photoDataURL)
	}
	if err != nil {
		return "", err
	}

	if s.recorder != nil && jobID != "" {
		s.recorder.RecordResponse(ctx, jobID, content)
	}
	return content, nil
}

func (s *AIService) completeWithOpenAI(ctx context.Context, systemPrompt, userContent, photoDataURL string) (string, error) {
	userMessage := openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userContent,
	}
	if photoDataURL != "" {
		userMessage = openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: userContent},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: photoDataURL}},
			},
		}
	}

	resp, err := s.openaiClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openAIModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			userMessage,
		},
		Temperature: 0.4,
	})
	if err != nil {
		return "", apperrors.NewExternalAPIError(err, "openai")
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", apperrors.NewExternalAPIError(fmt.Errorf("no content in completion"), "openai")
	}
	return resp.Choices[0].Message.Content, nil
}

func (s *AIService) completeWithGemini(ctx context.Context, systemPrompt, userContent, photoDataURL string) (string, error) {
	model := s.geminiClient.GenerativeModel(geminiModel)

	parts := []genai.Part{genai.Text(systemPrompt + "\n\n" + userContent)}
	if photoDataURL != "" {
		if _, data, err := photo.DecodeDataURL(photoDataURL); err == nil {
			parts = append(parts, genai.ImageData("image/jpeg", data))
		}
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", apperrors.NewExternalAPIError(err, "gemini")
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", apperrors.NewExternalAPIError(fmt.Errorf("no content in response"), "gemini")
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", apperrors.NewExternalAPIError(fmt.Errorf("unexpected response part type"), "gemini")
	}
	return string(text), nil
}

// extractJSON attempts to extract a valid JSON object from the given string.
// It handles cases where the JSON is wrapped in code blocks (```json ... ```) or other text.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
