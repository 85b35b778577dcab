package generator

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Draft is a recipe as returned by the model.
type Draft struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Ingredients  json.RawMessage `json:"ingredients"`
	Instructions json.RawMessage `json:"instructions"`
	CookingTime  *int            `json:"cookingTime"`
	Servings     *int            `json:"servings"`
	IsPremium    bool            `json:"isPremium"`
	Category     string          `json:"category"`
}

type textNode struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type block struct {
	Type     string     `json:"type"`
	Children []textNode `json:"children"`
}

// Parse strips markdown code fences from the model output and decodes the
// recipe. Ingredient and instruction lists given as plain strings are turned
// into paragraph blocks.
func Parse(text string) (*Draft, error) {
	clean := strings.ReplaceAll(text, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	var d Draft
	if err := json.Unmarshal([]byte(clean), &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return nil, fmt.Errorf("%w: missing title", ErrInvalidJSON)
	}

	var err error
	if d.Ingredients, err = blocks(d.Ingredients); err != nil {
		return nil, fmt.Errorf("%w: ingredients: %v", ErrInvalidJSON, err)
	}
	if d.Instructions, err = blocks(d.Instructions); err != nil {
		return nil, fmt.Errorf("%w: instructions: %v", ErrInvalidJSON, err)
	}
	return &d, nil
}

func blocks(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return json.RawMessage("[]"), nil
	}

	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		out := make([]block, 0, len(lines))
		for _, line := range lines {
			out = append(out, block{
				Type:     "paragraph",
				Children: []textNode{{Type: "text", Text: line}},
			})
		}
		return json.Marshal(out)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return raw, nil
}
