package video

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"ai-video-creator/config"
)

// ShortCeiling is the hard duration ceiling for short-form output, in
// seconds. Short videos that overrun it are uniformly time-compressed;
// long-form output is never speed-adjusted.
const ShortCeiling = 59.5

// Compositor assembles per-scene stills, narration audio and subtitles into
// the final video file using ffmpeg.
type Compositor struct {
	cfg      *config.Config
	fontFile string
}

// NewCompositor creates a new Compositor.
func NewCompositor(cfg *config.Config) *Compositor {
	return &Compositor{
		cfg:      cfg,
		fontFile: findFont(),
	}
}

// IsShortFormat decides the output format for an assembly: the nominal total
// duration of all scenes at or under 60 seconds selects the vertical short
// format.
func IsShortFormat(sceneCount int, sceneDuration float64) bool {
	return float64(sceneCount)*sceneDuration <= 60
}

// SpeedFactor returns the uniform time-compression factor for a concatenated
// duration, or 1 when no adjustment applies.
func SpeedFactor(duration float64, isShort bool) float64 {
	if !isShort || duration <= ShortCeiling {
		return 1
	}
	return duration / ShortCeiling
}

// BuildAtempoChain expresses an arbitrary tempo factor as a chain of atempo
// filters, since a single atempo instance only accepts factors up to 2.0.
func BuildAtempoChain(speed float64) string {
	var parts []string
	for speed > 2.0 {
		parts = append(parts, "atempo=2.0")
		speed /= 2.0
	}
	parts = append(parts, fmt.Sprintf("atempo=%g", speed))
	return strings.Join(parts, ",")
}

// Assemble builds the final video for a project from parallel image, audio
// and script sequences. sceneDuration is the nominal per-scene length used
// for the format decision and as the fallback when an audio file cannot be
// probed. Returns the final output path.
func (c *Compositor) Assemble(ctx context.Context, projectID string, images, audioFiles, scripts []string, sceneDuration float64) (string, error) {
	if len(images) == 0 {
		return "", fmt.Errorf("no images to assemble")
	}

	projectDir := filepath.Join(c.cfg.Paths.Projects, projectID)
	tempDir := filepath.Join(projectDir, "temp")
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	isShort := IsShortFormat(len(images), sceneDuration)
	layout := layoutFor(isShort)
	log.Printf("[video] Assembling %d scenes (%s, %dx%d)",
		len(images), Orientation(isShort), layout.Width, layout.Height)

	// Exact per-scene durations from the narration audio, nominal fallback.
	durations := c.sceneDurations(ctx, audioFiles, len(images), sceneDuration)

	// Render every scene and mux its audio.
	var clips []string
	for i, imagePath := range images {
		subtitle := ""
		if i < len(scripts) {
			subtitle = scripts[i]
		}

		clip := filepath.Join(tempDir, fmt.Sprintf("temp_video_%d.mp4", i))
		if err := c.renderScene(ctx, imagePath, durations[i], clip, subtitle, layout); err != nil {
			return "", fmt.Errorf("render scene %d: %w", i+1, err)
		}

		if i < len(audioFiles) {
			muxed := filepath.Join(tempDir, fmt.Sprintf("temp_video_audio_%d.mp4", i))
			if err := c.muxAudio(ctx, clip, audioFiles[i], muxed); err != nil {
				return "", fmt.Errorf("mux scene %d audio: %w", i+1, err)
			}
			clip = muxed
		}
		clips = append(clips, clip)
	}

	// Concatenate in scene order.
	concatenated := filepath.Join(tempDir, "temp_output.mp4")
	if err := c.concatenate(ctx, clips, concatenated); err != nil {
		return "", fmt.Errorf("concatenate scenes: %w", err)
	}

	// Speed normalization for overlong shorts.
	normalized, err := c.normalizeSpeed(ctx, concatenated, tempDir, isShort, len(audioFiles) > 0)
	if err != nil {
		return "", err
	}

	// Background music is best-effort from here on.
	finalOutput := filepath.Join(projectDir, "output.mp4")
	if soundtrack := c.findSoundtrack(); soundtrack != "" {
		log.Printf("[video] Using soundtrack: %s", soundtrack)
		if err := c.addBackgroundMusic(ctx, normalized, soundtrack, finalOutput); err != nil {
			log.Printf("[video] Warning: background music failed: %v — using video without music", err)
			if err := copyFile(normalized, finalOutput); err != nil {
				return "", fmt.Errorf("finalize output: %w", err)
			}
		}
	} else {
		log.Println("[video] No soundtrack found, using video without music")
		if err := copyFile(normalized, finalOutput); err != nil {
			return "", fmt.Errorf("finalize output: %w", err)
		}
	}

	c.cleanupTemp(tempDir)

	log.Printf("[video] Final video ready: %s", finalOutput)
	return finalOutput, nil
}

// sceneDurations probes each audio file's real duration, falling back to the
// nominal scene duration on probe failure or when no audio exists.
func (c *Compositor) sceneDurations(ctx context.Context, audioFiles []string, sceneCount int, nominal float64) []float64 {
	durations := make([]float64, sceneCount)
	for i := range durations {
		durations[i] = nominal
		if i >= len(audioFiles) {
			continue
		}
		dur, err := ProbeDuration(ctx, audioFiles[i])
		if err != nil {
			log.Printf("[video] Warning: cannot probe %s: %v — using nominal %.1fs", audioFiles[i], err, nominal)
			continue
		}
		durations[i] = dur
	}
	return durations
}

// renderScene turns one still image into a silent clip of the exact scene
// duration, scaled and padded to the target resolution, with the subtitle
// burned in as two time-phased halves.
func (c *Compositor) renderScene(ctx context.Context, imagePath string, duration float64, outputPath, subtitle string, layout formatLayout) error {
	filter := fmt.Sprintf(
		"scale=%[1]d:%[2]d:force_original_aspect_ratio=decrease,pad=%[1]d:%[2]d:(ow-iw)/2:(oh-ih)/2:black",
		layout.Width, layout.Height,
	)
	if subtitle != "" {
		textSize := c.cfg.Video.FontSize - 16
		filters := buildSubtitleFilters(subtitle, duration, c.fontFile, textSize, layout)
		filter = filter + "," + strings.Join(filters, ",")
	}

	return runFFmpeg(ctx,
		"-y",
		"-loop", "1",
		"-i", imagePath,
		"-c:v", "libx264",
		"-t", fmt.Sprintf("%g", duration),
		"-pix_fmt", "yuv420p",
		"-vf", filter,
		"-vsync", "cfr",
		"-r", fmt.Sprintf("%d", c.cfg.Video.FPS),
		outputPath,
	)
}

// muxAudio combines a silent clip with its narration, copying the video
// stream and transcoding the audio.
func (c *Compositor) muxAudio(ctx context.Context, videoPath, audioPath, outputPath string) error {
	return runFFmpeg(ctx,
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-vsync", "cfr",
		outputPath,
	)
}

// concatenate joins all scene clips in order with a frame-accurate re-encode
// (constant frame rate, fixed GOP) so clip boundaries cannot drift. A
// missing clip fails the whole assembly.
func (c *Compositor) concatenate(ctx context.Context, clips []string, outputPath string) error {
	var lines []string
	for _, clip := range clips {
		if _, err := os.Stat(clip); err != nil {
			return fmt.Errorf("video clip not found: %s", clip)
		}
		abs, err := filepath.Abs(clip)
		if err != nil {
			abs = clip
		}
		lines = append(lines, fmt.Sprintf("file '%s'", abs))
	}

	listFile := filepath.Join(filepath.Dir(outputPath), "concat.txt")
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	fps := fmt.Sprintf("%d", c.cfg.Video.FPS)
	return runFFmpeg(ctx,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-vsync", "cfr",
		"-r", fps,
		"-g", fps,
		"-c:a", "aac",
		"-b:a", "192k",
		"-ar", "44100",
		"-ac", "2",
		outputPath,
	)
}

// BuildSpeedFilter returns the filtergraph and stream mappings for a uniform
// time compression. A silent input gets a video-only graph: mapping an audio
// label that matches no stream would fail the whole invocation.
func BuildSpeedFilter(speed float64, hasAudio bool) (string, []string) {
	if hasAudio {
		filter := fmt.Sprintf("[0:v]setpts=%g*PTS[v];[0:a]%s[a]", 1/speed, BuildAtempoChain(speed))
		return filter, []string{"-map", "[v]", "-map", "[a]"}
	}
	return fmt.Sprintf("[0:v]setpts=%g*PTS[v]", 1/speed), []string{"-map", "[v]"}
}

// normalizeSpeed compresses an overlong short to the hard ceiling by scaling
// video presentation timestamps and audio tempo by the same factor. Returns
// the path to use downstream, which is the input when no adjustment applies.
func (c *Compositor) normalizeSpeed(ctx context.Context, inputPath, tempDir string, isShort, hasAudio bool) (string, error) {
	duration, err := ProbeDuration(ctx, inputPath)
	if err != nil {
		return "", fmt.Errorf("probe concatenated video: %w", err)
	}

	speed := SpeedFactor(duration, isShort)
	if speed == 1 {
		if isShort {
			log.Printf("[video] Duration %.1fs within ceiling — no speed adjustment", duration)
		} else {
			log.Println("[video] Skipping speed adjustment for long video")
		}
		return inputPath, nil
	}

	log.Printf("[video] Adjusting speed by %.3fx to fit %.1f seconds", speed, ShortCeiling)
	outputPath := filepath.Join(tempDir, "speed_adjusted.mp4")
	fps := fmt.Sprintf("%d", c.cfg.Video.FPS)

	filter, maps := BuildSpeedFilter(speed, hasAudio)
	args := []string{
		"-y",
		"-i", inputPath,
		"-filter_complex", filter,
	}
	args = append(args, maps...)
	args = append(args,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-vsync", "cfr",
		"-r", fps,
		"-g", fps,
	)
	if hasAudio {
		args = append(args,
			"-c:a", "aac",
			"-b:a", "192k",
			"-ar", "44100",
			"-ac", "2",
		)
	}
	args = append(args, outputPath)

	if err := runFFmpeg(ctx, args...); err != nil {
		return "", fmt.Errorf("speed adjustment: %w", err)
	}
	return outputPath, nil
}

// findSoundtrack checks a small fixed set of candidate locations and returns
// the first existing soundtrack, or "" when there is none.
func (c *Compositor) findSoundtrack() string {
	candidates := []string{
		"assets/soundtrack.mp3",
		"soundtrack.mp3",
		filepath.Join(c.cfg.Paths.Assets, "soundtrack.mp3"),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// addBackgroundMusic mixes the soundtrack under the narration at a fixed low
// gain, trimmed to the shorter stream.
func (c *Compositor) addBackgroundMusic(ctx context.Context, videoPath, musicPath, outputPath string) error {
	return runFFmpeg(ctx,
		"-y",
		"-i", videoPath,
		"-stream_loop", "-1",
		"-i", musicPath,
		"-filter_complex",
		"[0:a]volume=1.0[a1];[1:a]volume=0.2[a2];[a1][a2]amix=inputs=2:duration=first[aout]",
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		"-vsync", "cfr",
		outputPath,
	)
}

// cleanupTemp deletes intermediate artifacts; failures are logged only.
func (c *Compositor) cleanupTemp(tempDir string) {
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		log.Printf("[video] Warning: cannot read temp dir: %v", err)
		return
	}
	for _, e := range entries {
		path := filepath.Join(tempDir, e.Name())
		if err := os.Remove(path); err != nil {
			log.Printf("[video] Warning: could not delete temporary file %s: %v", path, err)
		}
	}
	if err := os.Remove(tempDir); err != nil {
		log.Printf("[video] Warning: could not delete temp directory: %v", err)
	}
}

// Orientation mirrors the image provider's format naming for log lines.
func Orientation(isShort bool) string {
	if isShort {
		return "vertical"
	}
	return "horizontal"
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
