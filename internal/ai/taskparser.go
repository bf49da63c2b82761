package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/anishesg/internship-discord-bot/internal/models"
)

// TaskDraft is the shape the model is asked to produce per task.
type TaskDraft struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	Difficulty  int    `json:"difficulty"`
}

// Parser turns free-form task text into typed task drafts. When no API key
// is configured or the model call fails, a deterministic heuristic takes
// over, so parsing never fails outright.
type Parser struct {
	model *genai.GenerativeModel
}

// NewParser returns a nil parser when apiKey is empty; a nil parser is valid
// and always uses the heuristic path.
func NewParser(ctx context.Context, apiKey, modelID string) (*Parser, error) {
	if apiKey == "" {
		return nil, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(modelID)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"description": {
					Type:        genai.TypeString,
					Description: "The task restated as a short imperative sentence.",
				},
				"category": {
					Type:        genai.TypeString,
					Description: "One of: internship, academics, skill, health, misc.",
				},
				"difficulty": {
					Type:        genai.TypeInteger,
					Description: "Effort estimate from 1 (trivial) to 10 (very hard).",
				},
			},
			Required: []string{"description", "category", "difficulty"},
		},
	}

	return &Parser{model: model}, nil
}

// ParseTasks converts free text into task drafts. Model errors degrade to
// the heuristic parser with a logged warning.
func (p *Parser) ParseTasks(ctx context.Context, text string) []models.Task {
	if p == nil || p.model == nil {
		return HeuristicParse(text)
	}

	drafts, err := p.generate(ctx, text)
	if err != nil {
		slog.Warn("Task model unavailable, using heuristic parser", "error", err)
		return HeuristicParse(text)
	}

	tasks := make([]models.Task, 0, len(drafts))
	for _, d := range drafts {
		desc := strings.TrimSpace(d.Description)
		if desc == "" {
			continue
		}
		tasks = append(tasks, models.Task{
			Description: desc,
			Category:    models.ParseTaskCategory(d.Category),
			Difficulty:  d.Difficulty,
		})
	}
	if len(tasks) == 0 {
		return HeuristicParse(text)
	}
	return tasks
}

func (p *Parser) generate(ctx context.Context, text string) ([]TaskDraft, error) {
	prompt := fmt.Sprintf(`
Split this daily plan into individual tasks:
"""
%s
"""

For each task produce a description, a category (internship, academics,
skill, health, misc) and a 1-10 difficulty. Output JSON adhering to the
schema.
`, text)

	resp, err := p.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response candidates from gemini")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		txt, ok := part.(genai.Text)
		if !ok {
			continue
		}
		jsonStr := strings.TrimSpace(string(txt))
		jsonStr = strings.TrimPrefix(jsonStr, "```json")
		jsonStr = strings.TrimPrefix(jsonStr, "```")
		jsonStr = strings.TrimSuffix(jsonStr, "```")

		var drafts []TaskDraft
		if err := json.Unmarshal([]byte(jsonStr), &drafts); err != nil {
			return nil, fmt.Errorf("failed to parse gemini response: %w", err)
		}
		return drafts, nil
	}
	return nil, fmt.Errorf("no text part in response")
}

// categoryKeywords drive the heuristic fallback. First match wins, in this
// order.
var categoryKeywords = []struct {
	category models.TaskCategory
	words    []string
}{
	{models.TaskInternship, []string{"intern", "apply", "application", "resume", "interview", "recruiter"}},
	{models.TaskAcademics, []string{"class", "homework", "exam", "lecture", "study", "assignment"}},
	{models.TaskSkill, []string{"leetcode", "project", "learn", "build", "practice", "course"}},
	{models.TaskHealth, []string{"gym", "run", "sleep", "walk", "workout", "meditate"}},
}

// HeuristicParse is the deterministic fallback: one task per non-empty line,
// bullets stripped, category by keyword, middling difficulty.
func HeuristicParse(text string) []models.Task {
	var tasks []models.Task
	for _, line := range strings.Split(text, "\n") {
		desc := stripBullet(line)
		if desc == "" {
			continue
		}
		tasks = append(tasks, models.Task{
			Description: desc,
			Category:    heuristicCategory(desc),
			Difficulty:  5,
		})
	}
	return tasks
}

func stripBullet(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimLeft(s, "-*•")
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			continue
		}
		if s[i] == '.' || s[i] == ')' {
			s = s[i+1:]
		}
		break
	}
	return strings.TrimSpace(s)
}

func heuristicCategory(desc string) models.TaskCategory {
	lower := strings.ToLower(desc)
	for _, group := range categoryKeywords {
		for _, w := range group.words {
			if strings.Contains(lower, w) {
				return group.category
			}
		}
	}
	return models.TaskMisc
}
