// Package mockapi implements an in-process stories endpoint with the same
// wire contract as the production backend: offset/limit pagination,
// bearer-token auth on mutations, draft visibility rules, and the
// backend's mix of structured and plain error bodies. It backs the
// `storyfeed serve` command, integration-style tests, and demos.
package mockapi

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ghostmonk/storyfeed/internal/client"
)

// Store is the in-memory story collection behind the mock endpoint.
// Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	stories map[string]client.Story
	now     func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		stories: make(map[string]client.Story),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// List returns one page of stories in server order (most recently updated
// first) and the total count after visibility filtering. Unpublished
// stories are included only when includeUnlisted is true.
func (s *Store) List(offset, limit int, includeUnlisted bool) ([]client.Story, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	visible := make([]client.Story, 0, len(s.stories))
	for _, story := range s.stories {
		if story.IsPublished || includeUnlisted {
			visible = append(visible, story)
		}
	}
	sort.Slice(visible, func(i, j int) bool {
		if !visible[i].UpdatedDate.Equal(visible[j].UpdatedDate) {
			return visible[i].UpdatedDate.After(visible[j].UpdatedDate)
		}
		return visible[i].ID < visible[j].ID
	})

	total := len(visible)
	if offset >= total {
		return []client.Story{}, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := make([]client.Story, end-offset)
	copy(page, visible[offset:end])
	return page, total
}

// Get returns the story with the given id.
func (s *Store) Get(id string) (client.Story, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	story, ok := s.stories[id]
	return story, ok
}

// GetBySlug returns the story with the given slug.
func (s *Store) GetBySlug(slug string) (client.Story, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, story := range s.stories {
		if story.Slug == slug {
			return story, true
		}
	}
	return client.Story{}, false
}

// Create inserts a new story. The store assigns the id, the slug when the
// draft has none, and both timestamps.
func (s *Store) Create(draft client.StoryDraft) client.Story {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	story := client.Story{
		ID:          uuid.NewString(),
		Title:       draft.Title,
		Content:     draft.Content,
		Slug:        s.uniqueSlug(slugify(firstNonEmpty(draft.Slug, draft.Title))),
		IsPublished: draft.IsPublished,
		CreatedDate: now,
		UpdatedDate: now,
	}
	s.stories[story.ID] = story
	return story
}

// Update replaces a story's mutable fields. The id and creation date are
// preserved; the update date moves forward.
func (s *Store) Update(id string, draft client.StoryDraft) (client.Story, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	story, ok := s.stories[id]
	if !ok {
		return client.Story{}, false
	}
	story.Title = draft.Title
	story.Content = draft.Content
	if draft.Slug != "" && slugify(draft.Slug) != story.Slug {
		story.Slug = s.uniqueSlug(slugify(draft.Slug))
	}
	story.IsPublished = draft.IsPublished
	story.UpdatedDate = s.now()
	s.stories[id] = story
	return story, true
}

// Delete removes a story.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stories[id]; !ok {
		return false
	}
	delete(s.stories, id)
	return true
}

// Len returns the number of stored stories, drafts included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stories)
}

// uniqueSlug disambiguates a slug already taken by another story. Callers
// must hold s.mu.
func (s *Store) uniqueSlug(slug string) string {
	taken := func(candidate string) bool {
		for _, story := range s.stories {
			if story.Slug == candidate {
				return true
			}
		}
		return false
	}
	if !taken(slug) {
		return slug
	}
	return slug + "-" + uuid.NewString()[:8]
}

// slugify reduces a title to a URL-safe slug: lowercase alphanumerics
// with single hyphens between words.
func slugify(s string) string {
	var b strings.Builder
	lastHyphen := true // swallow leading separators
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// seedStories is the fixture content loaded by SeedFixtures: twelve
// published stories and three drafts, enough to exercise pagination.
var seedStories = []struct {
	title     string
	content   string
	published bool
}{
	{"Rebuilding the garden studio", "<p>The old shed finally came down this weekend.</p>", true},
	{"Notes from the north shore", "<p>Three days of fog and one perfect sunrise.</p>", true},
	{"A field guide to slow mornings", "<p>Coffee first. Everything else can wait.</p>", true},
	{"What the lake taught me about patience", "<p>Ice out was three weeks late this year.</p>", true},
	{"On keeping a paper notebook", "<p>The battery never dies and the sync never fails.</p>", true},
	{"The bakery on Cumberland Street", "<p>They still proof overnight, and it shows.</p>", true},
	{"Twelve years of the same trail", "<p>The trail does not change. I do.</p>", true},
	{"Why I archive everything", "<p>Disk is cheap. Regret is not.</p>", true},
	{"A winter of small repairs", "<p>One hinge, one faucet, one drawer at a time.</p>", true},
	{"Reading in translation", "<p>Every translator is a co-author.</p>", true},
	{"The case for boring tools", "<p>New is a cost, not a feature.</p>", true},
	{"Letters I never sent", "<p>Writing them was the point.</p>", true},
	{"Draft: the harbour at night", "<p>Still looking for the right photographs.</p>", false},
	{"Draft: recipes from my grandmother", "<p>Need to convert the measurements.</p>", false},
	{"Draft: thoughts on moving east", "<p>Too soon to publish this one.</p>", false},
}

// SeedFixtures fills the store with demo content. Stories get staggered
// timestamps so list order is deterministic, newest first.
func (s *Store) SeedFixtures() {
	base := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, seed := range seedStories {
		ts := base.Add(time.Duration(i) * 32 * time.Hour)
		story := client.Story{
			ID:          uuid.NewString(),
			Title:       seed.title,
			Content:     seed.content,
			Slug:        slugify(seed.title),
			IsPublished: seed.published,
			CreatedDate: ts,
			UpdatedDate: ts,
		}
		s.stories[story.ID] = story
	}
}
