package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Script   ScriptConfig   `yaml:"script"`
	Image    ImageConfig    `yaml:"image"`
	Audio    AudioConfig    `yaml:"audio"`
	Video    VideoConfig    `yaml:"video"`
	Research ResearchConfig `yaml:"research"`
	Upload   UploadConfig   `yaml:"upload"`
	Paths    PathsConfig    `yaml:"paths"`

	// Credentials are filled from the environment, never from YAML.
	Credentials Credentials `yaml:"-"`
}

type ScriptConfig struct {
	APIURL        string  `yaml:"api_url"`
	Model         string  `yaml:"model"`
	Language      string  `yaml:"language"`
	IgnoredTopics string  `yaml:"ignored_topics"`
	Temperature   float64 `yaml:"temperature"`
}

type ImageConfig struct {
	APIURL       string `yaml:"api_url"`
	OutputFormat string `yaml:"output_format"`
	StylePreset  string `yaml:"style_preset"`
}

type AudioConfig struct {
	APIURL  string `yaml:"api_url"`
	ModelID string `yaml:"model_id"`
}

type VideoConfig struct {
	FPS      int `yaml:"fps"`
	FontSize int `yaml:"font_size"`
}

type ResearchConfig struct {
	Subreddits []string `yaml:"subreddits"`
	MaxTopics  int      `yaml:"max_topics"`
}

type UploadConfig struct {
	Visibility      string `yaml:"visibility"`
	CategoryID      string `yaml:"category_id"`
	DefaultLanguage string `yaml:"default_language"`
	MadeForKids     bool   `yaml:"made_for_kids"`
}

type PathsConfig struct {
	Projects       string `yaml:"projects"`
	Assets         string `yaml:"assets"`
	PromptTemplate string `yaml:"prompt_template"`
}

// Credentials holds every API secret the pipeline needs. Missing values are
// not an error here — each provider reports a credential failure when it is
// actually asked to work without one.
type Credentials struct {
	OpenRouterKey       string
	StabilityKey        string
	ElevenLabsKey       string
	ElevenLabsVoiceID   string
	RedditClientID      string
	RedditClientSecret  string
	YouTubeClientID     string
	YouTubeClientSecret string
	YouTubeRefreshToken string
}

// Load reads config.yaml, applies defaults and picks up credentials from the
// environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	cfg.Credentials = credentialsFromEnv()
	return &cfg, nil
}

// Default returns a usable config without a config.yaml on disk.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Credentials = credentialsFromEnv()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Script.APIURL == "" {
		c.Script.APIURL = "https://openrouter.ai/api/v1/chat/completions"
	}
	if c.Script.Model == "" {
		c.Script.Model = "anthropic/claude-3.5-sonnet:beta"
	}
	if c.Script.Language == "" {
		c.Script.Language = "Romanian"
	}
	if c.Script.IgnoredTopics == "" {
		c.Script.IgnoredTopics = "violence, explicit content, controversial topics"
	}
	if c.Image.APIURL == "" {
		c.Image.APIURL = "https://api.stability.ai/v2beta/stable-image/generate/core"
	}
	if c.Image.OutputFormat == "" {
		c.Image.OutputFormat = "webp"
	}
	if c.Image.StylePreset == "" {
		c.Image.StylePreset = "cinematic"
	}
	if c.Audio.APIURL == "" {
		c.Audio.APIURL = "https://api.elevenlabs.io/v1"
	}
	if c.Audio.ModelID == "" {
		c.Audio.ModelID = "eleven_turbo_v2_5"
	}
	if c.Video.FPS == 0 {
		c.Video.FPS = 30
	}
	if c.Video.FontSize == 0 {
		c.Video.FontSize = 84
	}
	if c.Research.MaxTopics == 0 {
		c.Research.MaxTopics = 6
	}
	if c.Upload.Visibility == "" {
		c.Upload.Visibility = "private"
	}
	if c.Upload.CategoryID == "" {
		c.Upload.CategoryID = "27" // Education
	}
	if c.Upload.DefaultLanguage == "" {
		c.Upload.DefaultLanguage = "ro"
	}
	if c.Paths.Projects == "" {
		c.Paths.Projects = "projects"
	}
	if c.Paths.Assets == "" {
		c.Paths.Assets = "assets"
	}
	if c.Paths.PromptTemplate == "" {
		c.Paths.PromptTemplate = "assets/prompts/prompt.txt"
	}
}

func credentialsFromEnv() Credentials {
	voiceID := os.Getenv("ELEVENLABS_VOICE_ID")
	if voiceID == "" {
		voiceID = "Nhs6IYoAcBwjSVy82OUS"
	}
	return Credentials{
		OpenRouterKey:       os.Getenv("OPENROUTER_API_KEY"),
		StabilityKey:        os.Getenv("STABILITY_API_KEY"),
		ElevenLabsKey:       os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsVoiceID:   voiceID,
		RedditClientID:      os.Getenv("REDDIT_CLIENT_ID"),
		RedditClientSecret:  os.Getenv("REDDIT_CLIENT_SECRET"),
		YouTubeClientID:     os.Getenv("YOUTUBE_CLIENT_ID"),
		YouTubeClientSecret: os.Getenv("YOUTUBE_CLIENT_SECRET"),
		YouTubeRefreshToken: os.Getenv("YOUTUBE_REFRESH_TOKEN"),
	}
}
