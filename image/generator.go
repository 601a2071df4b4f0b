package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ai-video-creator/config"
)

// Generator produces scene images via a Stability-style image API.
type Generator struct {
	cfg        *config.Config
	httpClient *http.Client
}

// New creates a new image Generator.
func New(cfg *config.Config) *Generator {
	return &Generator{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// AspectRatio returns the API aspect-ratio string for a format.
func AspectRatio(isShort bool) string {
	if isShort {
		return "9:16"
	}
	return "16:9"
}

// Orientation returns the human orientation word for a format.
func Orientation(isShort bool) string {
	if isShort {
		return "vertical"
	}
	return "horizontal"
}

// EnhancePrompt wraps a scene description with the fixed style, quality and
// orientation qualifiers every submitted prompt carries.
func EnhancePrompt(description string, isShort bool) string {
	return fmt.Sprintf(
		"%s, cinematic, dramatic lighting, photorealistic, %s aspect ratio, %s format, high quality",
		description, AspectRatio(isShort), Orientation(isShort),
	)
}

// GenerateOne generates a single image for prompt and writes it to
// outputPath. The aspect ratio is taken from an explicit "vertical" or
// "horizontal" hint inside the prompt, defaulting to horizontal.
func (g *Generator) GenerateOne(ctx context.Context, prompt string, outputPath string) (string, error) {
	if g.cfg.Credentials.StabilityKey == "" {
		return "", errors.New("Stability API key not found. Please check your .env file")
	}

	aspectRatio := "16:9"
	if strings.Contains(strings.ToLower(prompt), "vertical") {
		aspectRatio = "9:16"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := map[string]string{
		"prompt":        prompt,
		"output_format": g.cfg.Image.OutputFormat,
		"aspect_ratio":  aspectRatio,
		"style_preset":  g.cfg.Image.StylePreset,
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return "", fmt.Errorf("build image request: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.cfg.Image.APIURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.Credentials.StabilityKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "image/*")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return "", fmt.Errorf("request timed out while generating image")
		}
		return "", fmt.Errorf("network error while generating image: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to save below
	case http.StatusUnauthorized:
		return "", errors.New("invalid API key. Please check your Stability API key")
	case http.StatusTooManyRequests:
		return "", errors.New("rate limit exceeded. Please try again later")
	default:
		return "", fmt.Errorf("image generation failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read generated image: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return "", fmt.Errorf("error saving generated image: %w", err)
	}
	return outputPath, nil
}

// GenerateBatch generates one image per description into the project's
// images directory. The batch fails fast: the first failure aborts it and
// surfaces that image's error. Images already produced are left on disk.
func (g *Generator) GenerateBatch(ctx context.Context, projectDir string, descriptions []string, isShort bool) ([]string, error) {
	log.Printf("[image] Generating %d images in %s format (%s)",
		len(descriptions), AspectRatio(isShort), Orientation(isShort))

	var generated []string
	for i, description := range descriptions {
		outputPath := scenePath(projectDir, i)
		prompt := EnhancePrompt(description, isShort)

		imagePath, err := g.GenerateOne(ctx, prompt, outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to generate image %d: %w", i+1, err)
		}
		log.Printf("[image] Scene %d/%d image saved: %s", i+1, len(descriptions), imagePath)
		generated = append(generated, imagePath)
	}
	return generated, nil
}

// RegenerateOne regenerates the image for a single scene index in place.
func (g *Generator) RegenerateOne(ctx context.Context, projectDir string, sceneIndex int, description string, isShort bool) (string, error) {
	prompt := EnhancePrompt(description, isShort)
	return g.GenerateOne(ctx, prompt, scenePath(projectDir, sceneIndex))
}

func scenePath(projectDir string, sceneIndex int) string {
	return filepath.Join(projectDir, "images", fmt.Sprintf("scene%d-image.webp", sceneIndex+1))
}
