package script

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-video-creator/config"
	"ai-video-creator/types"
)

func testConfig(apiURL string) *config.Config {
	cfg := config.Default()
	cfg.Script.APIURL = apiURL
	cfg.Credentials.OpenRouterKey = "test-key"
	return cfg
}

func chatReply(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	}
}

const validScriptJSON = `{
	"title": "Castelul Bran",
	"script": ["Scena unu.", "Scena doi."],
	"descriptions": ["castle on a hill", "castle interior"],
	"music": "orchestral",
	"sounds": ["wind"],
	"youtube_title": "Castelul Bran - Istorie",
	"youtube_description": "Despre Castelul Bran."
}`

func TestGenerateSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Missing auth header, got %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(chatReply(validScriptJSON))
	}))
	defer server.Close()

	g := New(testConfig(server.URL))
	result, err := g.Generate(context.Background(), "Castelul Bran", 10)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Title != "Castelul Bran" {
		t.Errorf("Expected title 'Castelul Bran', got %q", result.Title)
	}
	if len(result.Scripts) != 2 || len(result.Descriptions) != 2 {
		t.Errorf("Expected 2 scenes, got %d scripts, %d descriptions",
			len(result.Scripts), len(result.Descriptions))
	}
}

func TestGenerateRecoversWrappedJSON(t *testing.T) {
	wrapped := "Here is your script:\n```json\n" + validScriptJSON + "\n```\nHope it helps!"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatReply(wrapped))
	}))
	defer server.Close()

	g := New(testConfig(server.URL))
	result, err := g.Generate(context.Background(), "Test", 10)
	if err != nil {
		t.Fatalf("Generate failed on wrapped JSON: %v", err)
	}
	if result.YouTubeTitle != "Castelul Bran - Istorie" {
		t.Errorf("Unexpected youtube_title: %q", result.YouTubeTitle)
	}
}

func TestGenerateMissingAPIKey(t *testing.T) {
	cfg := testConfig("https://example.invalid")
	cfg.Credentials.OpenRouterKey = ""

	g := New(cfg)
	if _, err := g.Generate(context.Background(), "Test", 30); err == nil {
		t.Error("Expected error for missing API key")
	}
}

func TestGenerateNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	g := New(testConfig(server.URL))
	if _, err := g.Generate(context.Background(), "Test", 30); err == nil {
		t.Error("Expected error for non-success status")
	}
}

func TestGenerateCountMismatchRejected(t *testing.T) {
	bad := `{
		"title": "T",
		"script": ["one", "two", "three"],
		"descriptions": ["only one"],
		"youtube_title": "yt",
		"youtube_description": "yd"
	}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatReply(bad))
	}))
	defer server.Close()

	g := New(testConfig(server.URL))
	if _, err := g.Generate(context.Background(), "Test", 15); err == nil {
		t.Error("Expected validation error for script/description count mismatch")
	}
}

func TestGenerateIrrecoverableOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatReply("I cannot produce JSON today, sorry."))
	}))
	defer server.Close()

	g := New(testConfig(server.URL))
	if _, err := g.Generate(context.Background(), "Test", 15); err == nil {
		t.Error("Expected parse error for non-JSON output")
	}
}

func TestSceneCount(t *testing.T) {
	cases := []struct{ duration, want int }{
		{30, 6},
		{60, 12},
		{120, 24},
		{7, 1},
		{4, 0},
	}
	for _, c := range cases {
		if got := SceneCount(c.duration); got != c.want {
			t.Errorf("SceneCount(%d) = %d, want %d", c.duration, got, c.want)
		}
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct{ name, in, want string }{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose", `Sure! {"a":1} Enjoy.`, `{"a":1}`},
		{"control chars", "{\"a\":\x01 1}", `{"a": 1}`},
		{"no object", "no json here", "no json here"},
	}
	for _, c := range cases {
		if got := ExtractJSON(c.in); got != c.want {
			t.Errorf("%s: ExtractJSON(%q) = %q, want %q", c.name, c.in, got, c.want)
		}
	}
}

func TestValidateRequiredFields(t *testing.T) {
	valid := types.ScriptResult{
		Title:              "t",
		Scripts:            []string{"a"},
		Descriptions:       []string{"b"},
		YouTubeTitle:       "yt",
		YouTubeDescription: "yd",
	}
	if err := Validate(&valid); err != nil {
		t.Errorf("Expected valid script, got %v", err)
	}

	missingTitle := valid
	missingTitle.Title = ""
	if err := Validate(&missingTitle); err == nil {
		t.Error("Expected error for missing title")
	}

	noDescriptions := valid
	noDescriptions.Descriptions = nil
	if err := Validate(&noDescriptions); err == nil {
		t.Error("Expected error for missing descriptions")
	}
}
