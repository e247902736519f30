package mockapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostmonk/storyfeed/internal/client"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello, World!", "hello-world"},
		{"  Multiple   Spaces  ", "multiple-spaces"},
		{"Already-slugged-title", "already-slugged-title"},
		{"Café au lait", "caf-au-lait"},
		{"Draft: the harbour at night", "draft-the-harbour-at-night"},
		{"100% true", "100-true"},
		{"---", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, slugify(tc.in), "slugify(%q)", tc.in)
	}
}

// clockedStore returns a store whose clock is controlled by the test.
func clockedStore(start time.Time) (*Store, *time.Time) {
	s := NewStore()
	now := start
	s.now = func() time.Time { return now }
	return s, &now
}

func TestStoreListNewestFirst(t *testing.T) {
	s, now := clockedStore(time.Date(2025, time.July, 1, 12, 0, 0, 0, time.UTC))

	first := s.Create(client.StoryDraft{Title: "First", Content: "a", IsPublished: true})
	*now = now.Add(time.Hour)
	second := s.Create(client.StoryDraft{Title: "Second", Content: "b", IsPublished: true})

	items, total := s.List(0, 10, false)
	require.Equal(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, first.ID, items[1].ID)

	// Updating moves a story to the front.
	*now = now.Add(time.Hour)
	_, ok := s.Update(first.ID, client.StoryDraft{Title: "First, revised", Content: "a", IsPublished: true})
	require.True(t, ok)

	items, _ = s.List(0, 10, false)
	assert.Equal(t, first.ID, items[0].ID)
}

func TestStoreVisibilityFilter(t *testing.T) {
	s, _ := clockedStore(time.Date(2025, time.July, 1, 12, 0, 0, 0, time.UTC))
	s.Create(client.StoryDraft{Title: "Public", Content: "a", IsPublished: true})
	draft := s.Create(client.StoryDraft{Title: "Hidden", Content: "b", IsPublished: false})

	items, total := s.List(0, 10, false)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Public", items[0].Title)

	_, total = s.List(0, 10, true)
	assert.Equal(t, 2, total)

	_, ok := s.Get(draft.ID)
	assert.True(t, ok, "visibility is the handler's concern, not the store's")
}

func TestStoreListPageBounds(t *testing.T) {
	s, now := clockedStore(time.Date(2025, time.July, 1, 12, 0, 0, 0, time.UTC))
	for i := 0; i < 7; i++ {
		s.Create(client.StoryDraft{Title: "Story", Content: "x", IsPublished: true})
		*now = now.Add(time.Minute)
	}

	items, total := s.List(5, 5, false)
	assert.Equal(t, 7, total)
	assert.Len(t, items, 2)

	items, total = s.List(7, 5, false)
	assert.Equal(t, 7, total)
	assert.Empty(t, items)

	items, total = s.List(100, 5, false)
	assert.Equal(t, 7, total)
	assert.Empty(t, items)
}

func TestStoreCreateAssignsIdentity(t *testing.T) {
	s, now := clockedStore(time.Date(2025, time.July, 1, 12, 0, 0, 0, time.UTC))

	story := s.Create(client.StoryDraft{Title: "My New Story", Content: "body", IsPublished: true})
	assert.NotEmpty(t, story.ID)
	assert.Equal(t, "my-new-story", story.Slug)
	assert.Equal(t, *now, story.CreatedDate)
	assert.Equal(t, *now, story.UpdatedDate)

	// A second story with the same title gets a disambiguated slug.
	dup := s.Create(client.StoryDraft{Title: "My New Story", Content: "body", IsPublished: true})
	assert.NotEqual(t, story.Slug, dup.Slug)
	assert.Contains(t, dup.Slug, "my-new-story-")
}

func TestStoreCreateHonoursExplicitSlug(t *testing.T) {
	s, _ := clockedStore(time.Date(2025, time.July, 1, 12, 0, 0, 0, time.UTC))
	story := s.Create(client.StoryDraft{Title: "Any Title", Content: "x", Slug: "Chosen Slug", IsPublished: true})
	assert.Equal(t, "chosen-slug", story.Slug)
}

func TestStoreUpdatePreservesIdentity(t *testing.T) {
	s, now := clockedStore(time.Date(2025, time.July, 1, 12, 0, 0, 0, time.UTC))
	created := s.Create(client.StoryDraft{Title: "Before", Content: "x", IsPublished: false})

	*now = now.Add(2 * time.Hour)
	updated, ok := s.Update(created.ID, client.StoryDraft{Title: "After", Content: "y", IsPublished: true})
	require.True(t, ok)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedDate, updated.CreatedDate)
	assert.Equal(t, *now, updated.UpdatedDate)
	assert.Equal(t, "After", updated.Title)
	assert.True(t, updated.IsPublished)
	// Slug is kept unless the draft names a new one.
	assert.Equal(t, created.Slug, updated.Slug)

	_, ok = s.Update("missing", client.StoryDraft{Title: "x", Content: "y"})
	assert.False(t, ok)
}

func TestStoreDelete(t *testing.T) {
	s, _ := clockedStore(time.Date(2025, time.July, 1, 12, 0, 0, 0, time.UTC))
	story := s.Create(client.StoryDraft{Title: "Doomed", Content: "x", IsPublished: true})
	require.Equal(t, 1, s.Len())

	assert.True(t, s.Delete(story.ID))
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Delete(story.ID))
}

func TestSeedFixtures(t *testing.T) {
	s := NewStore()
	s.SeedFixtures()

	published, total := s.List(0, 50, false)
	assert.Equal(t, 12, total)
	assert.Len(t, published, 12)

	_, withDrafts := s.List(0, 50, true)
	assert.Equal(t, 15, withDrafts)

	// Fixture timestamps are staggered so order is stable.
	for i := 1; i < len(published); i++ {
		assert.True(t, published[i].UpdatedDate.Before(published[i-1].UpdatedDate),
			"stories must be ordered newest first")
	}
}
