package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"

	"ai-video-creator/types"

	"github.com/google/uuid"
)

// ScriptProvider generates a validated structured script for a subject.
type ScriptProvider interface {
	Generate(ctx context.Context, subject string, durationSeconds int) (*types.ScriptResult, error)
}

// ImageProvider generates scene images into a project directory. Batch
// generation fails fast on the first per-image error.
type ImageProvider interface {
	GenerateBatch(ctx context.Context, projectDir string, descriptions []string, isShort bool) ([]string, error)
	RegenerateOne(ctx context.Context, projectDir string, sceneIndex int, description string, isShort bool) (string, error)
}

// AudioProvider generates narration audio into a project directory. Batch
// generation skips failed scenes, so its result can be shorter than its
// input.
type AudioProvider interface {
	GenerateBatch(ctx context.Context, projectDir string, lines []string, durationSeconds int) []string
	RegenerateOne(ctx context.Context, projectDir string, sceneIndex int, text string, durationSeconds int) (string, error)
	TrimSilence(audioPath string, isShort bool) string
}

// Assembler composes rendered scenes into the final video artifact.
type Assembler interface {
	Assemble(ctx context.Context, projectID string, images, audioFiles, scripts []string, sceneDuration float64) (string, error)
}

// ProjectStore is the durable persistence the pipeline writes through after
// every mutation.
type ProjectStore interface {
	Save(p *types.Project) error
	Dir(id string) string
}

// Creator drives the Script → Image → Audio → Assemble state machine. A
// Creator is safe for concurrent use across different projects; callers must
// serialize runs against the same project.
type Creator struct {
	scripts ScriptProvider
	images  ImageProvider
	audio   AudioProvider
	video   Assembler
	store   ProjectStore
}

// NewCreator creates a new pipeline Creator.
func NewCreator(scripts ScriptProvider, images ImageProvider, audio AudioProvider, video Assembler, store ProjectStore) *Creator {
	return &Creator{
		scripts: scripts,
		images:  images,
		audio:   audio,
		video:   video,
		store:   store,
	}
}

// Create runs full creation: script, images, optional narration, final
// assembly. Any stage failure halts the run; assets persisted by earlier
// stages are kept.
func (c *Creator) Create(ctx context.Context, p *types.Project, progress types.ProgressFunc, skipAudio bool) error {
	run := newRun(p.ID, "create", progress)
	isShort := p.IsShort()
	log.Printf("[pipeline] (%s) Creating %s video for subject %q", run.id, formatName(isShort), p.Subject)

	run.report("Generating script...", 0)
	script, err := c.scripts.Generate(ctx, p.Subject, p.Duration)
	if err != nil {
		return run.fail(fmt.Errorf("failed to generate or validate script: %w", err), 0)
	}

	run.report("Updating project data...", 20)
	p.Title = script.Title
	p.Scripts = script.Scripts
	p.Metadata.YouTubeTitle = script.YouTubeTitle
	p.Metadata.YouTubeDescription = script.YouTubeDescription
	p.Metadata.BackgroundMusic = script.Music
	p.Metadata.SoundEffects = script.Sounds
	p.Metadata.ImageDescriptions = script.Descriptions
	if err := c.store.Save(p); err != nil {
		return run.fail(err, 20)
	}

	run.report("Generating images...", 25)
	images, err := c.images.GenerateBatch(ctx, c.store.Dir(p.ID), script.Descriptions, isShort)
	if err != nil {
		return run.fail(err, 25)
	}
	if len(images) != len(script.Scripts) {
		return run.fail(fmt.Errorf("failed to generate all required images: got %d of %d", len(images), len(script.Scripts)), 25)
	}
	p.Images = images
	if err := c.store.Save(p); err != nil {
		return run.fail(err, 25)
	}

	if !skipAudio {
		run.report("Generating voiceover...", 50)
		audioFiles := c.audio.GenerateBatch(ctx, c.store.Dir(p.ID), script.Scripts, p.Duration)
		if len(audioFiles) != len(script.Scripts) {
			return run.fail(fmt.Errorf("failed to generate voiceover: got %d of %d scenes", len(audioFiles), len(script.Scripts)), 50)
		}
		p.AudioFiles = audioFiles
	} else {
		p.AudioFiles = []string{}
	}
	if err := c.store.Save(p); err != nil {
		return run.fail(err, 50)
	}

	if err := p.CheckSceneIntegrity(); err != nil {
		return run.fail(err, 50)
	}

	run.report("Creating final video with voiceover...", 80)
	outputPath, err := c.video.Assemble(ctx, p.ID, p.Images, p.AudioFiles, p.Scripts, sceneDuration(p))
	if err != nil {
		return run.fail(fmt.Errorf("failed to create final video: %w", err), 80)
	}

	p.OutputPath = outputPath
	if err := c.store.Save(p); err != nil {
		return run.fail(err, 80)
	}

	run.report("Video creation complete!", 100)
	return nil
}

// Recreate rebuilds the final video from a project's existing assets,
// regenerating whatever is missing or invalid first.
func (c *Creator) Recreate(ctx context.Context, p *types.Project, progress types.ProgressFunc) error {
	run := newRun(p.ID, "recreate", progress)
	isShort := p.IsShort()
	log.Printf("[pipeline] (%s) Recreating %s video, %d scenes", run.id, formatName(isShort), p.SceneCount())

	// Images: any missing file triggers a full batch regeneration from the
	// stored descriptions.
	if len(p.Images) > 0 && !allFilesExist(p.Images) && len(p.Metadata.ImageDescriptions) > 0 {
		run.report("Regenerating images...", 25)
		images, err := c.images.GenerateBatch(ctx, c.store.Dir(p.ID), p.Metadata.ImageDescriptions, isShort)
		if err != nil {
			return run.fail(err, 25)
		}
		p.Images = images
		if err := c.store.Save(p); err != nil {
			return run.fail(err, 25)
		}
	}

	// Audio: regenerate only the missing or invalid entries, preserving
	// valid ones by index.
	if len(p.Scripts) > 0 && !audioComplete(p) {
		run.report("Generating missing audio files...", 25)
		rebuilt := make([]string, 0, len(p.Scripts))
		for i := range p.Scripts {
			if i < len(p.AudioFiles) && fileExists(p.AudioFiles[i]) {
				rebuilt = append(rebuilt, p.AudioFiles[i])
				continue
			}
			log.Printf("[pipeline] (%s) Generating audio for scene %d", run.id, i+1)
			audioPath, err := c.audio.RegenerateOne(ctx, c.store.Dir(p.ID), i, p.Scripts[i], p.Duration)
			if err != nil {
				return run.fail(fmt.Errorf("failed to generate audio for scene %d: %w", i+1, err), 0)
			}
			rebuilt = append(rebuilt, audioPath)
		}
		p.AudioFiles = rebuilt
		if err := c.store.Save(p); err != nil {
			return run.fail(err, 25)
		}
	}

	// Re-apply silence trimming; trimming an already trimmed file is safe.
	if len(p.AudioFiles) > 0 {
		run.report("Processing audio files...", 25)
		for i, audioPath := range p.AudioFiles {
			p.AudioFiles[i] = c.audio.TrimSilence(audioPath, isShort)
		}
		if err := c.store.Save(p); err != nil {
			return run.fail(err, 25)
		}
	}

	// Last resort: no images at all, but descriptions survive.
	if len(p.Images) == 0 && len(p.Metadata.ImageDescriptions) > 0 {
		run.report("Generating missing images...", 25)
		images, err := c.images.GenerateBatch(ctx, c.store.Dir(p.ID), p.Metadata.ImageDescriptions, isShort)
		if err != nil {
			return run.fail(fmt.Errorf("failed to generate images: %w", err), 25)
		}
		p.Images = images
		if err := c.store.Save(p); err != nil {
			return run.fail(err, 25)
		}
	}

	if len(p.Images) == 0 {
		return run.fail(fmt.Errorf("no images found in project and no image descriptions available"), 0)
	}
	for _, img := range p.Images {
		if !fileExists(img) {
			return run.fail(fmt.Errorf("image file not found: %s", img), 50)
		}
	}

	run.report("Creating video from assets...", 50)
	outputPath, err := c.video.Assemble(ctx, p.ID, p.Images, p.AudioFiles, p.Scripts, sceneDuration(p))
	if err != nil {
		return run.fail(fmt.Errorf("failed to create final video: %w", err), 75)
	}

	p.OutputPath = outputPath
	if err := c.store.Save(p); err != nil {
		return run.fail(err, 75)
	}

	run.report("Video recreation complete!", 100)
	return nil
}

// RegenerateScene replaces a single scene's image (and optionally audio) in
// place. It never re-renders the video: callers fold the change in with a
// subsequent Recreate.
func (c *Creator) RegenerateScene(ctx context.Context, p *types.Project, sceneIndex int, progress types.ProgressFunc, skipAudio bool) error {
	run := newRun(p.ID, "regenerate", progress)
	isShort := p.IsShort()

	if sceneIndex < 0 || sceneIndex >= len(p.Images) || sceneIndex >= len(p.Metadata.ImageDescriptions) {
		return run.fail(fmt.Errorf("scene index %d out of range", sceneIndex), 0)
	}

	run.report(fmt.Sprintf("Regenerating scene %d...", sceneIndex+1), 0)

	run.report("Generating new image...", 25)
	newImage, err := c.images.RegenerateOne(ctx, c.store.Dir(p.ID), sceneIndex, p.Metadata.ImageDescriptions[sceneIndex], isShort)
	if err != nil {
		return run.fail(fmt.Errorf("regenerating image: %w", err), 0)
	}
	p.Images[sceneIndex] = newImage

	if !skipAudio {
		if sceneIndex >= len(p.Scripts) || sceneIndex >= len(p.AudioFiles) {
			return run.fail(fmt.Errorf("scene index %d has no audio to regenerate", sceneIndex), 50)
		}
		run.report("Generating new audio...", 50)
		newAudio, err := c.audio.RegenerateOne(ctx, c.store.Dir(p.ID), sceneIndex, p.Scripts[sceneIndex], p.Duration)
		if err != nil {
			return run.fail(fmt.Errorf("regenerating audio: %w", err), 50)
		}
		p.AudioFiles[sceneIndex] = newAudio
	}

	if err := c.store.Save(p); err != nil {
		return run.fail(err, 50)
	}

	run.report(fmt.Sprintf("Scene %d updated successfully!", sceneIndex+1), 100)
	return nil
}

// sceneDuration is the nominal per-scene length: total duration spread
// evenly across the script lines, 5s when there is no script yet.
func sceneDuration(p *types.Project) float64 {
	if len(p.Scripts) == 0 {
		return 5.0
	}
	return float64(p.Duration) / float64(len(p.Scripts))
}

func audioComplete(p *types.Project) bool {
	if len(p.AudioFiles) != len(p.Scripts) {
		return false
	}
	return allFilesExist(p.AudioFiles)
}

func allFilesExist(paths []string) bool {
	for _, path := range paths {
		if !fileExists(path) {
			return false
		}
	}
	return true
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func formatName(isShort bool) string {
	if isShort {
		return "short/vertical"
	}
	return "long/horizontal"
}

// run is the ephemeral state of one orchestrator invocation: a log
// correlation id and the progress dedup state. Discarded on completion.
type run struct {
	id          string
	lastMessage string
	lastPercent int
	reported    bool
	progress    types.ProgressFunc
}

func newRun(projectID, kind string, progress types.ProgressFunc) *run {
	id := uuid.NewString()[:8]
	log.Printf("[pipeline] Run %s (%s) started for project %s", id, kind, projectID)
	return &run{id: id, progress: progress}
}

// report forwards a progress update, clamped to [0,100], suppressing
// emissions where neither the message nor the percentage changed.
func (r *run) report(message string, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if r.reported && message == r.lastMessage && percent == r.lastPercent {
		return
	}
	r.reported = true
	r.lastMessage = message
	r.lastPercent = percent
	if r.progress != nil {
		r.progress(message, percent)
	}
}

// fail forwards the failure through the progress channel and returns the
// terminal error for the run.
func (r *run) fail(err error, percent int) error {
	r.report("Error: "+err.Error(), percent)
	log.Printf("[pipeline] Run %s failed: %v", r.id, err)
	return err
}
