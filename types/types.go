package types

import "fmt"

// ProjectMetadata holds the optional script-derived fields attached to a
// project. ImageDescriptions is ordered and parallel to Project.Scripts.
type ProjectMetadata struct {
	YouTubeTitle       string   `json:"youtube_title,omitempty"`
	YouTubeDescription string   `json:"youtube_description,omitempty"`
	BackgroundMusic    string   `json:"background_music,omitempty"`
	SoundEffects       []string `json:"sound_effects,omitempty"`
	ImageDescriptions  []string `json:"image_descriptions,omitempty"`
}

// Project is the unit of work: one subject turned into one video.
// Images, AudioFiles and Scripts are parallel sequences — index is the only
// scene identity.
type Project struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Subject    string          `json:"subject"`
	Duration   int             `json:"duration"`
	Images     []string        `json:"images"`
	AudioFiles []string        `json:"audio_files"`
	Scripts    []string        `json:"scripts"`
	OutputPath string          `json:"output_path"`
	CreatedAt  float64         `json:"created_at"`
	UpdatedAt  float64         `json:"updated_at"`
	Metadata   ProjectMetadata `json:"metadata"`
}

// IsShort reports whether the project targets the vertical short format.
// Duration of exactly 60 seconds is still a short.
func (p *Project) IsShort() bool {
	return p.Duration <= 60
}

// SceneCount returns the number of scenes, derived from the script lines.
func (p *Project) SceneCount() int {
	return len(p.Scripts)
}

// CheckSceneIntegrity verifies the one-entry-per-scene invariant: when
// images, audio and scripts are all present their lengths must match.
func (p *Project) CheckSceneIntegrity() error {
	if len(p.Images) == 0 || len(p.AudioFiles) == 0 || len(p.Scripts) == 0 {
		return nil
	}
	if len(p.Images) != len(p.Scripts) || len(p.AudioFiles) != len(p.Scripts) {
		return fmt.Errorf("scene count mismatch: %d images, %d audio files, %d scripts",
			len(p.Images), len(p.AudioFiles), len(p.Scripts))
	}
	return nil
}

// ScriptResult is the validated structured script returned by the LLM.
type ScriptResult struct {
	Title              string   `json:"title"`
	Scripts            []string `json:"script"`
	Descriptions       []string `json:"descriptions"`
	Music              string   `json:"music"`
	Sounds             []string `json:"sounds"`
	YouTubeTitle       string   `json:"youtube_title"`
	YouTubeDescription string   `json:"youtube_description"`
}

// ProgressFunc receives human-readable progress updates from a pipeline run.
// Percent is always within [0,100].
type ProgressFunc func(message string, percent int)
