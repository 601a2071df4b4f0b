package project

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"ai-video-creator/types"
)

// Store persists projects as one directory per project under Root:
//
//	<root>/<id>/project.json
//	<root>/<id>/images/
//	<root>/<id>/audio/
//	<root>/<id>/temp/
//
// Every mutation is written through immediately; there is no in-memory cache
// and no version check, so callers must serialize runs per project.
type Store struct {
	Root string
}

// NewStore creates a Store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create projects dir: %w", err)
	}
	return &Store{Root: dir}, nil
}

// Create makes a new project with a time-derived id and empty collections,
// persists it and returns it.
func (s *Store) Create(subject string, duration int) (*types.Project, error) {
	now := time.Now()
	id := strconv.FormatInt(now.Unix(), 10)

	dir := s.Dir(id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create project dir: %w", err)
	}
	outputPath, err := filepath.Abs(filepath.Join(dir, "output.mp4"))
	if err != nil {
		outputPath = filepath.Join(dir, "output.mp4")
	}

	p := &types.Project{
		ID:         id,
		Subject:    subject,
		Duration:   duration,
		Images:     []string{},
		AudioFiles: []string{},
		Scripts:    []string{},
		OutputPath: outputPath,
		CreatedAt:  float64(now.UnixNano()) / 1e9,
		UpdatedAt:  float64(now.UnixNano()) / 1e9,
	}
	if err := s.Save(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Save writes the project record and ensures its subdirectories exist.
// The updated timestamp is bumped on every save.
func (s *Store) Save(p *types.Project) error {
	dir := s.Dir(p.ID)
	for _, sub := range []string{"", "images", "audio", "temp"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return fmt.Errorf("create project subdir %q: %w", sub, err)
		}
	}

	p.UpdatedAt = float64(time.Now().UnixNano()) / 1e9

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "project.json"), data, 0644); err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

// Load reads one project. A missing project is (nil, nil), not an error.
func (s *Store) Load(id string) (*types.Project, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(id), "project.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load project %s: %w", id, err)
	}
	var p types.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse project %s: %w", id, err)
	}
	return &p, nil
}

// List returns all projects, newest first. Unreadable entries are skipped
// with a warning.
func (s *Store) List() ([]*types.Project, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	var projects []*types.Project
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		p, err := s.Load(e.Name())
		if err != nil {
			log.Printf("[project] Warning: skipping %s: %v", e.Name(), err)
			continue
		}
		if p != nil {
			projects = append(projects, p)
		}
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt > projects[j].CreatedAt
	})
	return projects, nil
}

// Delete removes a project directory and everything in it. Returns whether
// the project existed.
func (s *Store) Delete(id string) (bool, error) {
	dir := s.Dir(id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return false, nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, fmt.Errorf("delete project %s: %w", id, err)
	}
	return true, nil
}

// Dir returns the directory of one project.
func (s *Store) Dir(id string) string {
	return filepath.Join(s.Root, id)
}

// ImagesDir returns the images directory of one project.
func (s *Store) ImagesDir(id string) string {
	return filepath.Join(s.Root, id, "images")
}

// AudioDir returns the audio directory of one project.
func (s *Store) AudioDir(id string) string {
	return filepath.Join(s.Root, id, "audio")
}

// TempDir returns the render-scratch directory of one project.
func (s *Store) TempDir(id string) string {
	return filepath.Join(s.Root, id, "temp")
}
