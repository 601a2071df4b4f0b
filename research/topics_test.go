package research

import (
	"sort"
	"testing"
)

func TestCategoriesSortedAndComplete(t *testing.T) {
	names := Categories()
	if len(names) != len(curatedTopics) {
		t.Fatalf("Expected %d categories, got %d", len(curatedTopics), len(names))
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("Categories not sorted: %v", names)
	}
	for _, name := range names {
		if _, ok := curatedTopics[name]; !ok {
			t.Errorf("Unknown category %q", name)
		}
	}
}

func TestSuggestExcludesUsedTopics(t *testing.T) {
	category := "Legende și mituri"
	all := Suggest(category, nil)
	if len(all) != len(curatedTopics[category]) {
		t.Fatalf("Expected full list, got %d of %d", len(all), len(curatedTopics[category]))
	}

	used := all[:2]
	remaining := Suggest(category, used)
	if len(remaining) != len(all)-2 {
		t.Fatalf("Expected %d remaining topics, got %d", len(all)-2, len(remaining))
	}
	seen := make(map[string]bool)
	for _, topic := range remaining {
		seen[topic] = true
	}
	for _, topic := range used {
		if seen[topic] {
			t.Errorf("Excluded topic %q still suggested", topic)
		}
	}
}

func TestSuggestUnknownCategory(t *testing.T) {
	if got := Suggest("nonexistent", nil); len(got) != 0 {
		t.Errorf("Expected no suggestions, got %v", got)
	}
}
