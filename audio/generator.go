package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"ai-video-creator/config"
)

// silenceFilter tightens delivery on short-form narration. Long-form audio
// is never trimmed so the original pacing survives.
const silenceFilter = "silenceremove=" +
	"stop_periods=-1:" +
	"stop_duration=0.3:" +
	"stop_threshold=-35dB:" +
	"start_periods=-1:" +
	"start_duration=0.3:" +
	"start_threshold=-35dB:" +
	"keep_silence=0.1"

// Generator produces narration audio via an ElevenLabs-style TTS API and
// post-processes it with ffmpeg when available.
type Generator struct {
	cfg             *config.Config
	httpClient      *http.Client
	ffmpegAvailable bool
}

// New creates a new audio Generator, probing once for ffmpeg.
func New(cfg *config.Config) *Generator {
	_, err := exec.LookPath("ffmpeg")
	if err != nil {
		log.Println("[audio] ffmpeg not found — silence trimming disabled")
	}
	return &Generator{
		cfg:             cfg,
		httpClient:      &http.Client{Timeout: 60 * time.Second},
		ffmpegAvailable: err == nil,
	}
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// GenerateOne synthesizes one narration line to outputPath. When isShort is
// set the result is silence-trimmed; trimming failure falls back to the
// untrimmed file.
func (g *Generator) GenerateOne(ctx context.Context, text string, outputPath string, isShort bool) (string, error) {
	if g.cfg.Credentials.ElevenLabsKey == "" {
		return "", errors.New("ElevenLabs API key not found. Please check your .env file")
	}

	reqBody := ttsRequest{
		Text:    text,
		ModelID: g.cfg.Audio.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0.5,
			UseSpeakerBoost: true,
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal TTS request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", strings.TrimSuffix(g.cfg.Audio.APIURL, "/"), g.cfg.Credentials.ElevenLabsVoiceID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("xi-api-key", g.cfg.Credentials.ElevenLabsKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("TTS request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("audio generation failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read generated audio: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return "", fmt.Errorf("save generated audio: %w", err)
	}

	if isShort {
		return g.TrimSilence(outputPath, true), nil
	}
	return outputPath, nil
}

// GenerateBatch synthesizes audio for every narration line in order. A
// failed scene is logged and skipped, so the returned slice can be shorter
// than lines — callers must check the count before composing.
func (g *Generator) GenerateBatch(ctx context.Context, projectDir string, lines []string, durationSeconds int) []string {
	isShort := durationSeconds <= 60

	var generated []string
	for i, line := range lines {
		outputPath := scenePath(projectDir, i)
		audioPath, err := g.GenerateOne(ctx, line, outputPath, isShort)
		if err != nil {
			log.Printf("[audio] Failed to generate audio for scene %d: %v", i+1, err)
			continue
		}
		log.Printf("[audio] Scene %d/%d audio saved: %s", i+1, len(lines), audioPath)
		generated = append(generated, audioPath)
	}
	return generated
}

// RegenerateOne regenerates the audio for a single scene index in place.
func (g *Generator) RegenerateOne(ctx context.Context, projectDir string, sceneIndex int, text string, durationSeconds int) (string, error) {
	isShort := durationSeconds <= 60
	return g.GenerateOne(ctx, text, scenePath(projectDir, sceneIndex), isShort)
}

// TrimSilence removes long pauses from an audio file. It is a best-effort
// optimization: on any failure, when ffmpeg is missing, or for long-form
// audio, the original path is returned unchanged. Trimming an already
// trimmed file is safe.
func (g *Generator) TrimSilence(audioPath string, isShort bool) string {
	if !g.ffmpegAvailable || !isShort {
		return audioPath
	}
	// Already trimmed files pass through untouched.
	if strings.HasSuffix(strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath)), "_silenced") {
		return audioPath
	}

	outputDir := filepath.Join(filepath.Dir(audioPath), "edited")
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		log.Printf("[audio] Warning: cannot create trim dir: %v", err)
		return audioPath
	}
	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	outputPath := filepath.Join(outputDir, stem+"_silenced.mp3")

	cmd := exec.Command("ffmpeg", "-y",
		"-i", audioPath,
		"-af", silenceFilter,
		"-ac", "2",
		outputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		log.Printf("[audio] Warning: silence trim failed for %s: %v", audioPath, err)
		return audioPath
	}
	if _, err := os.Stat(outputPath); err != nil {
		return audioPath
	}
	return outputPath
}

func scenePath(projectDir string, sceneIndex int) string {
	return filepath.Join(projectDir, "audio", fmt.Sprintf("scene%d-audio.mp3", sceneIndex+1))
}
