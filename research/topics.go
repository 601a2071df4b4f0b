package research

import (
	"context"
	"fmt"
	"log"
	"sort"

	"ai-video-creator/config"

	"github.com/vartanbeno/go-reddit/v2/reddit"
)

// curatedTopics are the built-in per-category suggestions.
var curatedTopics = map[string][]string{
	"Istorie românească": {
		"Dacia și civilizația dacică",
		"Formarea primelor state medievale românești",
		"Primul Război Mondial și România",
		"Revoluția de la 1848",
		"România în perioada comunistă",
		"Revoluția din 1989",
	},
	"Legende și mituri": {
		"Legenda Meșterului Manole",
		"Povestea Babei Dochia",
		"Legenda Vrâncioaiei",
		"Legenda Lacului Roșu",
		"Mitul Zburătorului",
		"Legenda Fetei din Dafin",
	},
	"Personalități istorice": {
		"Mihai Viteazul și unirea principatelor",
		"Ștefan cel Mare și Moldova medievală",
		"Alexandru Ioan Cuza și reformele sale",
		"Regina Maria în Primul Război Mondial",
		"Vlad Țepeș și domnia sa",
		"Mircea cel Bătrân",
	},
	"Tradiții și obiceiuri": {
		"Obiceiuri de Crăciun în România",
		"Tradiții de Paște în diferite regiuni",
		"Sânzienele și tradițiile verii",
		"Mărțișorul și venirea primăverii",
		"Călușarii și dansurile tradiționale",
		"Obiceiuri de nuntă tradițională",
	},
	"Locuri fascinante din România": {
		"Castelul Bran și misterele sale",
		"Delta Dunării și biodiversitatea",
		"Mănăstirile din Bucovina",
		"Sarmizegetusa Regia",
		"Transfăgărășanul",
		"Peștera Scărișoara",
	},
	"Povești populare": {
		"Greuceanu și balaurii",
		"Prâslea cel Voinic",
		"Făt-Frumos din lacrimă",
		"Tinerețe fără bătrânețe",
		"Ileana Cosânzeana",
		"Harap Alb",
	},
}

// Suggester proposes video subjects: curated category lists plus trending
// posts from configured subreddits.
type Suggester struct {
	cfg *config.Config
}

// New creates a new Suggester.
func New(cfg *config.Config) *Suggester {
	return &Suggester{cfg: cfg}
}

// Categories returns the available curated category names.
func Categories() []string {
	names := make([]string, 0, len(curatedTopics))
	for name := range curatedTopics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Suggest returns the curated topics for a category, minus any already used
// topics. An unknown category yields an empty list.
func Suggest(category string, exclude []string) []string {
	used := make(map[string]bool, len(exclude))
	for _, t := range exclude {
		used[t] = true
	}

	var topics []string
	for _, t := range curatedTopics[category] {
		if !used[t] {
			topics = append(topics, t)
		}
	}
	return topics
}

// Trending fetches this week's top post titles from the configured
// subreddits as subject candidates. Best-effort: any Reddit failure returns
// an error the caller may ignore in favor of the curated lists.
func (s *Suggester) Trending(ctx context.Context) ([]string, error) {
	if len(s.cfg.Research.Subreddits) == 0 {
		return nil, fmt.Errorf("no subreddits configured")
	}

	client, err := s.redditClient()
	if err != nil {
		return nil, fmt.Errorf("reddit client: %w", err)
	}

	var titles []string
	for _, sub := range s.cfg.Research.Subreddits {
		posts, _, err := client.Subreddit.TopPosts(ctx, sub, &reddit.ListPostOptions{
			ListOptions: reddit.ListOptions{Limit: s.cfg.Research.MaxTopics},
			Time:        "week",
		})
		if err != nil {
			log.Printf("[research] Warning: r/%s fetch failed: %v", sub, err)
			continue
		}
		for _, post := range posts {
			titles = append(titles, post.Title)
		}
	}
	if len(titles) == 0 {
		return nil, fmt.Errorf("no trending topics found")
	}
	if len(titles) > s.cfg.Research.MaxTopics {
		titles = titles[:s.cfg.Research.MaxTopics]
	}
	return titles, nil
}

func (s *Suggester) redditClient() (*reddit.Client, error) {
	creds := s.cfg.Credentials
	if creds.RedditClientID != "" && creds.RedditClientSecret != "" {
		return reddit.NewClient(reddit.Credentials{
			ID:     creds.RedditClientID,
			Secret: creds.RedditClientSecret,
		})
	}
	return reddit.NewReadonlyClient()
}
