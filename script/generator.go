package script

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"ai-video-creator/config"
	"ai-video-creator/types"
)

const systemPrompt = "You are a professional video script writer specializing in creating engaging educational content."

// defaultPromptTemplate is used when no template file is configured on disk.
// Placeholders match the template file format.
const defaultPromptTemplate = `Write a narrated video script about <<TOPIC>>.
The video is <<VIDEO LENGTH>> long and must be narrated in <<LANGUAGE>>.
Avoid these topics entirely: <<IGNORED TOPICS>>.

Split the narration into exactly <<NUMBER_OF_IMAGES>> short scenes. For every
scene also write a visual description usable as an image generation prompt.

Respond with ONLY valid JSON, no markdown, no explanation, in this shape:
{
  "title": "...",
  "script": ["scene 1 narration", ...],
  "descriptions": ["scene 1 image description", ...],
  "music": "background music suggestion",
  "sounds": ["sound effect hint", ...],
  "youtube_title": "...",
  "youtube_description": "..."
}
The "script" and "descriptions" arrays must have exactly <<NUMBER_OF_IMAGES>>
entries each.`

// Generator produces structured video scripts via an OpenRouter-style
// chat-completions API.
type Generator struct {
	cfg        *config.Config
	httpClient *http.Client
	template   string
}

// New creates a new script Generator. A prompt template file configured in
// cfg.Paths.PromptTemplate overrides the built-in template.
func New(cfg *config.Config) *Generator {
	template := defaultPromptTemplate
	if data, err := os.ReadFile(cfg.Paths.PromptTemplate); err == nil {
		template = string(data)
	}
	return &Generator{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		template:   template,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SceneCount returns the number of scenes for a target duration: one scene
// per 5 seconds.
func SceneCount(durationSeconds int) int {
	return durationSeconds / 5
}

// Generate requests a script for the subject and validates it. Any provider,
// parse or validation failure is returned as an error — a script is never
// partially used.
func (g *Generator) Generate(ctx context.Context, subject string, durationSeconds int) (*types.ScriptResult, error) {
	if g.cfg.Credentials.OpenRouterKey == "" {
		return nil, fmt.Errorf("OpenRouter API key not set. Please check your .env file")
	}

	prompt := g.buildPrompt(subject, durationSeconds)

	reqBody := chatRequest{
		Model: g.cfg.Script.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: g.cfg.Script.Temperature,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.cfg.Script.APIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.Credentials.OpenRouterKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("script request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("script API request failed with status %d", resp.StatusCode)
	}

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBytes, &chatResp); err != nil {
		return nil, fmt.Errorf("parse API response: %w", err)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("script API error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("script API returned no choices")
	}

	content := ExtractJSON(chatResp.Choices[0].Message.Content)

	var result types.ScriptResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("parse script JSON: %w", err)
	}
	if err := Validate(&result); err != nil {
		return nil, err
	}

	log.Printf("[script] Script ready: %q, %d scenes", result.Title, len(result.Scripts))
	return &result, nil
}

func (g *Generator) buildPrompt(subject string, durationSeconds int) string {
	prompt := g.template
	prompt = strings.ReplaceAll(prompt, "<<TOPIC>>", subject)
	prompt = strings.ReplaceAll(prompt, "<<VIDEO LENGTH>>", fmt.Sprintf("%d seconds", durationSeconds))
	prompt = strings.ReplaceAll(prompt, "<<LANGUAGE>>", g.cfg.Script.Language)
	prompt = strings.ReplaceAll(prompt, "<<IGNORED TOPICS>>", g.cfg.Script.IgnoredTopics)
	prompt = strings.ReplaceAll(prompt, "<<NUMBER_OF_IMAGES>>", fmt.Sprintf("%d", SceneCount(durationSeconds)))
	return prompt
}

// ExtractJSON recovers a single JSON object from an LLM reply that may be
// wrapped in markdown fences, prose or control characters. The result is not
// guaranteed to parse — that stays the caller's problem.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	// Drop control characters the model occasionally emits mid-string.
	var b strings.Builder
	for _, r := range s {
		if r >= 32 || r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(r)
		}
	}
	s = b.String()

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end != -1 && end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}

// Validate checks that a script has every required field and that narration
// and description counts match. An invalid script is treated like a provider
// failure.
func Validate(r *types.ScriptResult) error {
	switch {
	case r.Title == "":
		return fmt.Errorf("invalid script: missing title")
	case len(r.Scripts) == 0:
		return fmt.Errorf("invalid script: no narration lines")
	case len(r.Descriptions) == 0:
		return fmt.Errorf("invalid script: no image descriptions")
	case r.YouTubeTitle == "":
		return fmt.Errorf("invalid script: missing youtube_title")
	case r.YouTubeDescription == "":
		return fmt.Errorf("invalid script: missing youtube_description")
	case len(r.Scripts) != len(r.Descriptions):
		return fmt.Errorf("invalid script: %d narration lines but %d descriptions",
			len(r.Scripts), len(r.Descriptions))
	}
	return nil
}
