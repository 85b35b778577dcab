// Package generator drafts recipes with a chat completion model and stores
// them as published recipes.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bitebliss/bitebliss-engine/pkg/recipes/config"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/model"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/repo"
	"github.com/gosimple/slug"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

var (
	ErrPromptRequired = errors.New("Prompt is required")
	ErrNotConfigured  = errors.New("Gemini API Key is not configured")
	ErrInvalidJSON    = errors.New("AI generated invalid JSON")
)

const (
	defaultCategory = "Uncategorized"
	maxSlugAttempts = 100
)

const systemPrompt = `You are a professional chef. Generate a unique recipe based on this user prompt: %q.
Return ONLY valid JSON with this exact structure:
{
  "title": "Recipe Title",
  "description": "Short appetizing description",
  "ingredients": [
    { "type": "paragraph", "children": [{ "type": "text", "text": "1 cup flour" }] },
    { "type": "paragraph", "children": [{ "type": "text", "text": "2 eggs" }] }
  ],
  "instructions": [
    { "type": "paragraph", "children": [{ "type": "text", "text": "Step 1: Mix flour..." }] },
    { "type": "paragraph", "children": [{ "type": "text", "text": "Step 2: Add eggs..." }] }
  ],
  "cookingTime": 30,
  "servings": 2,
  "isPremium": false,
  "category": "Dinner"
}
IMPORTANT:
- cookingTime is an integer in minutes and servings is an integer
- category is one of: Breakfast, Lunch, Dinner, Dessert, Snack
- ingredients and instructions must be arrays of paragraph objects as shown
- Each ingredient and instruction step should be a separate paragraph
- Do not include markdown formatting (like ` + "```json" + `). Just the raw JSON string.`

type Completer interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Generator struct {
	logger     *zap.Logger
	client     Completer
	model      string
	timeout    time.Duration
	recipes    repo.RecipeRepo
	categories repo.CategoryRepo
	now        func() time.Time
}

func New(logger *zap.Logger, cfg config.AI, recipes repo.RecipeRepo, categories repo.CategoryRepo) *Generator {
	var client Completer
	if cfg.APIKey != "" {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
		}
		client = openai.NewClientWithConfig(clientConfig)
	}
	return NewWithClient(logger, client, cfg.Model, cfg.Timeout, recipes, categories)
}

// NewWithClient builds a generator over an existing completion client. A nil
// client leaves the generator unconfigured.
func NewWithClient(logger *zap.Logger, client Completer, modelName string, timeout time.Duration, recipes repo.RecipeRepo, categories repo.CategoryRepo) *Generator {
	return &Generator{
		logger:     logger.Named("generator"),
		client:     client,
		model:      modelName,
		timeout:    timeout,
		recipes:    recipes,
		categories: categories,
		now:        time.Now,
	}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (*model.Recipe, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrPromptRequired
	}
	if g.client == nil {
		return nil, ErrNotConfigured
	}

	text, err := g.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	draft, err := Parse(text)
	if err != nil {
		g.logger.Warn("failed to parse model output", zap.String("output", text), zap.Error(err))
		return nil, err
	}

	category, err := g.category(ctx, draft.Category)
	if err != nil {
		return nil, err
	}

	recipeSlug, err := g.uniqueSlug(ctx, Slugify(draft.Title))
	if err != nil {
		return nil, err
	}

	publishedAt := g.now().UTC()
	recipe := &model.Recipe{
		Title:        draft.Title,
		Slug:         recipeSlug,
		Description:  draft.Description,
		Ingredients:  datatypes.JSON(draft.Ingredients),
		Instructions: datatypes.JSON(draft.Instructions),
		CookingTime:  draft.CookingTime,
		Servings:     draft.Servings,
		IsPremium:    draft.IsPremium,
		CategoryID:   &category.ID,
		Category:     category,
		PublishedAt:  &publishedAt,
	}
	if err := g.recipes.Create(ctx, recipe); err != nil {
		return nil, fmt.Errorf("create recipe: %w", err)
	}

	g.logger.Info("recipe generated",
		zap.String("document_id", recipe.DocumentID),
		zap.String("slug", recipe.Slug),
		zap.String("category", category.Name))
	return recipe, nil
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(systemPrompt, prompt),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (g *Generator) category(ctx context.Context, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultCategory
	}

	c, err := g.categories.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("find category %q: %w", name, err)
	}
	if c != nil {
		return c, nil
	}

	c = &model.Category{Name: name, Slug: Slugify(name)}
	if err := g.categories.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create category %q: %w", name, err)
	}
	return c, nil
}

func (g *Generator) uniqueSlug(ctx context.Context, base string) (string, error) {
	if base == "" {
		base = "recipe"
	}
	candidate := base
	for i := 2; i < maxSlugAttempts; i++ {
		exists, err := g.recipes.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
	return "", fmt.Errorf("no free slug for %q", base)
}

// Slugify transliterates s to ASCII and joins its lowercase words with dashes.
func Slugify(s string) string {
	return slug.Make(s)
}
