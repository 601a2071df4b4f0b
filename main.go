package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"ai-video-creator/audio"
	"ai-video-creator/config"
	"ai-video-creator/image"
	"ai-video-creator/pipeline"
	"ai-video-creator/project"
	"ai-video-creator/research"
	"ai-video-creator/script"
	"ai-video-creator/types"
	"ai-video-creator/upload"
	"ai-video-creator/video"

	"github.com/joho/godotenv"
)

const usage = `Usage: ai-video-creator <command> [flags]

Commands:
  create      -subject <text> -duration <seconds> [-skip-audio]
  recreate    -project <id>
  regenerate  -project <id> -scene <index> [-audio]
  upload      -project <id>
  list
  topics      [-category <name>] [-trending]
`

func main() {
	// Load .env for local runs; real environments export the keys directly.
	_ = godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("Warning: %v, using defaults", err)
		}
		cfg = config.Default()
	}

	store, err := project.NewStore(cfg.Paths.Projects)
	if err != nil {
		log.Fatalf("Failed to open project store: %v", err)
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	creator := pipeline.NewCreator(
		script.New(cfg),
		image.New(cfg),
		audio.New(cfg),
		video.NewCompositor(cfg),
		store,
	)

	ctx := context.Background()
	progress := func(message string, percent int) {
		log.Printf("[%3d%%] %s", percent, message)
	}

	switch os.Args[1] {
	case "create":
		fs := flag.NewFlagSet("create", flag.ExitOnError)
		subject := fs.String("subject", "", "video subject")
		duration := fs.Int("duration", 60, "target duration in seconds")
		skipAudio := fs.Bool("skip-audio", false, "skip narration generation")
		fs.Parse(os.Args[2:])
		if *subject == "" {
			log.Fatal("create: -subject is required")
		}

		p, err := store.Create(*subject, *duration)
		if err != nil {
			log.Fatalf("Failed to create project: %v", err)
		}
		log.Printf("Created project %s", p.ID)
		if err := creator.Create(ctx, p, progress, *skipAudio); err != nil {
			log.Fatalf("Video creation failed: %v", err)
		}
		log.Printf("Done: %s", p.OutputPath)

	case "recreate":
		p := mustLoad(store, os.Args[2:], "recreate")
		if err := creator.Recreate(ctx, p, progress); err != nil {
			log.Fatalf("Video recreation failed: %v", err)
		}
		log.Printf("Done: %s", p.OutputPath)

	case "regenerate":
		fs := flag.NewFlagSet("regenerate", flag.ExitOnError)
		id := fs.String("project", "", "project id")
		scene := fs.Int("scene", -1, "scene index (0-based)")
		withAudio := fs.Bool("audio", false, "also regenerate the scene's audio")
		fs.Parse(os.Args[2:])

		p := loadProject(store, *id)
		if *scene < 0 {
			log.Fatal("regenerate: -scene is required")
		}
		if err := creator.RegenerateScene(ctx, p, *scene, progress, !*withAudio); err != nil {
			log.Fatalf("Scene regeneration failed: %v", err)
		}
		log.Println("Scene updated. Run recreate to fold it into the video.")

	case "upload":
		p := mustLoad(store, os.Args[2:], "upload")
		_, url, err := upload.New(cfg).Run(ctx, p)
		if err != nil {
			log.Fatalf("Upload failed: %v", err)
		}
		log.Printf("Uploaded: %s", url)

	case "list":
		projects, err := store.List()
		if err != nil {
			log.Fatalf("Failed to list projects: %v", err)
		}
		for _, p := range projects {
			title := p.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Printf("%s  %3ds  %-40q  %s\n", p.ID, p.Duration, title, p.Subject)
		}

	case "topics":
		fs := flag.NewFlagSet("topics", flag.ExitOnError)
		category := fs.String("category", "", "curated category name")
		trending := fs.Bool("trending", false, "fetch trending subjects from Reddit")
		fs.Parse(os.Args[2:])

		if *trending {
			titles, err := research.New(cfg).Trending(ctx)
			if err != nil {
				log.Printf("Trending lookup failed: %v — falling back to curated topics", err)
			} else {
				for _, t := range titles {
					fmt.Println(t)
				}
				return
			}
		}
		if *category == "" {
			fmt.Println("Categories:")
			for _, name := range research.Categories() {
				fmt.Println("  " + name)
			}
			return
		}
		for _, t := range research.Suggest(*category, nil) {
			fmt.Println(t)
		}

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func mustLoad(store *project.Store, args []string, command string) *types.Project {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	id := fs.String("project", "", "project id")
	fs.Parse(args)
	return loadProject(store, *id)
}

func loadProject(store *project.Store, id string) *types.Project {
	id = strings.TrimSpace(id)
	if id == "" {
		log.Fatal("-project is required")
	}
	p, err := store.Load(id)
	if err != nil {
		log.Fatalf("Failed to load project %s: %v", id, err)
	}
	if p == nil {
		log.Fatalf("Project %s not found", id)
	}
	return p
}
