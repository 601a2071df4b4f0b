package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"ai-video-creator/config"
	"ai-video-creator/types"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Uploader publishes a finished project to YouTube via the Data API v3.
type Uploader struct {
	cfg *config.Config
}

// New creates a new Uploader.
func New(cfg *config.Config) *Uploader {
	return &Uploader{cfg: cfg}
}

// Run uploads the project's output video with its stored platform metadata
// and returns the video id and watch URL.
func (u *Uploader) Run(ctx context.Context, p *types.Project) (string, string, error) {
	if p.OutputPath == "" {
		return "", "", fmt.Errorf("project %s has no rendered output", p.ID)
	}
	if _, err := os.Stat(p.OutputPath); err != nil {
		return "", "", fmt.Errorf("output video not found: %s", p.OutputPath)
	}

	title := p.Metadata.YouTubeTitle
	if title == "" {
		title = p.Title
	}

	log.Println("[upload] Authenticating with YouTube API...")
	client, err := u.oauthClient(ctx)
	if err != nil {
		return "", "", fmt.Errorf("youtube auth: %w", err)
	}

	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return "", "", fmt.Errorf("youtube service: %w", err)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                title,
			Description:          p.Metadata.YouTubeDescription,
			CategoryId:           u.cfg.Upload.CategoryID,
			DefaultLanguage:      u.cfg.Upload.DefaultLanguage,
			DefaultAudioLanguage: u.cfg.Upload.DefaultLanguage,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           u.cfg.Upload.Visibility,
			SelfDeclaredMadeForKids: u.cfg.Upload.MadeForKids,
		},
	}

	f, err := os.Open(p.OutputPath)
	if err != nil {
		return "", "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		log.Printf("[upload] Uploading %q (%.1f MB)", title, float64(fi.Size())/1024/1024)
	}

	call := svc.Videos.Insert([]string{"snippet", "status"}, video)
	call.Media(f)

	uploaded, err := call.Do()
	if err != nil {
		return "", "", fmt.Errorf("youtube upload: %w", err)
	}

	videoURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", uploaded.Id)
	log.Printf("[upload] Uploaded successfully: %s", videoURL)

	if err := u.logUpload(p, uploaded.Id, videoURL); err != nil {
		log.Printf("[upload] Warning: could not write upload log: %v", err)
	}
	return uploaded.Id, videoURL, nil
}

// oauthClient builds an OAuth2-authenticated HTTP client from the
// refresh-token credentials in the environment-backed config.
func (u *Uploader) oauthClient(ctx context.Context) (*http.Client, error) {
	creds := u.cfg.Credentials
	if creds.YouTubeClientID == "" || creds.YouTubeClientSecret == "" || creds.YouTubeRefreshToken == "" {
		return nil, fmt.Errorf("YouTube credentials not set. Please check your .env file")
	}

	conf := &oauth2.Config{
		ClientID:     creds.YouTubeClientID,
		ClientSecret: creds.YouTubeClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}
	token := &oauth2.Token{
		RefreshToken: creds.YouTubeRefreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	return oauth2.NewClient(ctx, conf.TokenSource(ctx, token)), nil
}

// logUpload writes a JSON upload receipt into the project directory.
func (u *Uploader) logUpload(p *types.Project, videoID, videoURL string) error {
	entry := map[string]interface{}{
		"video_id":    videoID,
		"video_url":   videoURL,
		"title":       p.Metadata.YouTubeTitle,
		"project_id":  p.ID,
		"video_file":  p.OutputPath,
		"uploaded_at": time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	logFile := filepath.Join(u.cfg.Paths.Projects, p.ID,
		fmt.Sprintf("upload_%s.json", time.Now().Format("20060102_150405")))
	return os.WriteFile(logFile, data, 0644)
}
