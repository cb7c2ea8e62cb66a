package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/recipelens/backend/internal/models"
)

// AnalyzedRecipe is the structured output of recipe-text analysis.
type AnalyzedRecipe struct {
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	PrepTime     string   `json:"prepTime"`
	CookTime     string   `json:"cookTime"`
	TotalTime    string   `json:"totalTime"`
	Servings     int      `json:"servings"`
	Cuisine      string   `json:"cuisine"`
	MealType     []string `json:"mealType"`
	DietaryInfo  []string `json:"dietaryInfo"`
}

// MealPlanResponse is the structured output of meal plan generation.
type MealPlanResponse struct {
	Summary   string                 `json:"summary"`
	Reasoning string                 `json:"reasoning"`
	Features  []string               `json:"features"`
	Meals     []models.MealPlanEntry `json:"meals"`
}

// recipeFacts is the condensed view of a recipe sent to the planner; full
// records would blow the prompt budget.
type recipeFacts struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	MealType    []string `json:"mealType,omitempty"`
	Cuisine     string   `json:"cuisine,omitempty"`
	DietaryInfo []string `json:"dietaryInfo,omitempty"`
	PrepTime    string   `json:"prepTime,omitempty"`
	CookTime    string   `json:"cookTime,omitempty"`
}

// LLMService handles interactions with the OpenAI API: vision text
// extraction, structured analysis, embeddings and meal planning. Calls are
// single-shot with no retry; failures surface to the caller.
type LLMService struct {
	apiKey string
	apiURL string
	client *http.Client
	logger *zap.Logger
}

// NewLLMService reads OPENAI_API_KEY (or OPENAI_API_KEY_FILE) and the
// optional OPENAI_API_URL override.
func NewLLMService(logger *zap.Logger) (*LLMService, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		apiKeyFile := os.Getenv("OPENAI_API_KEY_FILE")
		if apiKeyFile == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY or OPENAI_API_KEY_FILE must be set")
		}

		apiKeyBytes, err := os.ReadFile(apiKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read API key file: %w", err)
		}

		apiKey = strings.TrimSpace(string(apiKeyBytes))
		if apiKey == "" {
			return nil, fmt.Errorf("API key file is empty")
		}
	}

	apiURL := os.Getenv("OPENAI_API_URL")
	if apiURL == "" {
		apiURL = "https://api.openai.com/v1"
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &LLMService{
		apiKey: apiKey,
		apiURL: apiURL,
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}, nil
}

// chatMessage is a message in a chat completion request. Content is either a
// plain string or a multi-part payload for vision requests.
type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ExtractTextFromImage runs the vision model over a base64-encoded photo
// and returns the raw recipe text it reads.
func (s *LLMService) ExtractTextFromImage(ctx context.Context, imageBase64 string) (string, error) {
	req := chatRequest{
		Model: "gpt-4.1",
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []map[string]interface{}{
					{
						"type": "text",
						"text": "Extract the complete recipe from this image. Include title, ingredients, instructions, and any other relevant information like cooking time, servings, etc.",
					},
					{
						"type": "image_url",
						"image_url": map[string]string{
							"url": "data:image/jpeg;base64," + imageBase64,
						},
					},
				},
			},
		},
		MaxTokens: 1000,
	}

	content, err := s.chat(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to extract text from image: %w", err)
	}
	return content, nil
}

// AnalyzeRecipe turns raw recipe text into structured fields.
func (s *LLMService) AnalyzeRecipe(ctx context.Context, recipeText string) (*AnalyzedRecipe, error) {
	req := chatRequest{
		Model: "gpt-4-turbo",
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: "You are a helpful assistant that analyzes recipe text and extracts structured information.",
			},
			{
				Role: "user",
				Content: `Analyze this recipe text and return a JSON object with the following properties:
title, ingredients (as array), instructions (as array), prepTime, cookTime, totalTime, servings (as number),
cuisine, mealType (as array: breakfast, lunch, dinner, snack, etc.), dietaryInfo (as array: vegetarian, vegan, gluten-free, etc.).

Recipe text:
` + recipeText,
			},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	content, err := s.chat(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze recipe: %w", err)
	}

	var analyzed AnalyzedRecipe
	if err := json.Unmarshal([]byte(content), &analyzed); err != nil {
		return nil, fmt.Errorf("failed to parse analyzed recipe: %w", err)
	}
	return &analyzed, nil
}

// GenerateEmbedding embeds the given text with the fixed-dimension
// embedding model.
func (s *LLMService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	reqBody := struct {
		Model string `json:"model"`
		Input string `json:"input"`
	}{Model: "text-embedding-3-small", Input: text}

	body, err := s.post(ctx, "/embeddings", reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	var result struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("no embedding in API response")
	}

	embedding := result.Data[0].Embedding
	s.logger.Debug("generated embedding", zap.Int("dimensions", len(embedding)))
	return embedding, nil
}

// GenerateMealPlan asks the planner model to build a plan from the query
// using only the provided recipes.
func (s *LLMService) GenerateMealPlan(ctx context.Context, query string, recipes []*models.Recipe) (*MealPlanResponse, error) {
	facts, err := json.Marshal(condense(recipes))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recipe facts: %w", err)
	}

	req := chatRequest{
		Model: "gpt-4-turbo",
		Messages: []chatMessage{
			{
				Role: "system",
				Content: `You are a meal planning assistant. Create a meal plan based on the user's request using ONLY the provided recipes.
For each meal, select an appropriate recipe from the available recipes list and assign it to a time slot.
Return a JSON object with the following structure:
{
  "summary": "One line summary of the meal plan",
  "reasoning": "Explanation of why these recipes were selected",
  "features": ["Feature 1", "Feature 2"],
  "meals": [{"timeSlot": "Breakfast Day 1", "recipeId": "recipe-id-1"}]
}`,
			},
			{
				Role:    "user",
				Content: fmt.Sprintf("Create a meal plan based on this request: %q\n\nAvailable recipes:\n%s", query, facts),
			},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	return s.mealPlanChat(ctx, req)
}

// AdjustMealPlan asks the planner model to revise an existing plan.
func (s *LLMService) AdjustMealPlan(ctx context.Context, query string, plan *models.MealPlan, recipes []*models.Recipe) (*MealPlanResponse, error) {
	facts, err := json.Marshal(condense(recipes))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recipe facts: %w", err)
	}
	current, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal current plan: %w", err)
	}

	req := chatRequest{
		Model: "gpt-4-turbo",
		Messages: []chatMessage{
			{
				Role: "system",
				Content: `You are a meal planning assistant. Adjust the provided meal plan based on the user's request using ONLY the provided recipes.
Return a JSON object with the following structure:
{
  "summary": "One line summary of the adjusted meal plan",
  "reasoning": "Explanation of why these changes were made",
  "features": ["Feature 1", "Feature 2"],
  "meals": [{"timeSlot": "Breakfast Day 1", "recipeId": "recipe-id-1"}]
}`,
			},
			{
				Role:    "user",
				Content: fmt.Sprintf("Adjust this meal plan based on this request: %q\n\nCurrent meal plan:\n%s\n\nAvailable recipes:\n%s", query, current, facts),
			},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	return s.mealPlanChat(ctx, req)
}

func (s *LLMService) mealPlanChat(ctx context.Context, req chatRequest) (*MealPlanResponse, error) {
	content, err := s.chat(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("meal plan request failed: %w", err)
	}

	var plan MealPlanResponse
	if err := json.Unmarshal([]byte(content), &plan); err != nil {
		return nil, fmt.Errorf("failed to parse meal plan response: %w", err)
	}
	return &plan, nil
}

func (s *LLMService) chat(ctx context.Context, req chatRequest) (string, error) {
	body, err := s.post(ctx, "/chat/completions", req)
	if err != nil {
		return "", err
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no response from API")
	}
	return result.Choices[0].Message.Content, nil
}

func (s *LLMService) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Error("API request failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func condense(recipes []*models.Recipe) []recipeFacts {
	facts := make([]recipeFacts, 0, len(recipes))
	for _, r := range recipes {
		facts = append(facts, recipeFacts{
			ID:          r.ID,
			Title:       r.Title,
			MealType:    r.MealType,
			Cuisine:     r.Cuisine,
			DietaryInfo: r.DietaryInfo,
			PrepTime:    r.PrepTime,
			CookTime:    r.CookTime,
		})
	}
	return facts
}
