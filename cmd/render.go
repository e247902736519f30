package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ghostmonk/storyfeed/internal/apierror"
	"github.com/ghostmonk/storyfeed/internal/client"
)

const timeLayout = "2006-01-02 15:04"

// renderError prints an error for a person. Classified errors show their
// user message and suggestions; the technical payload appears only with
// --verbose.
func renderError(w io.Writer, err error) {
	var derr *apierror.DomainError
	if !errors.As(err, &derr) {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(w, "Error: %s\n", derr.UserMessage)
	for _, suggestion := range derr.Suggestions {
		fmt.Fprintf(w, "  - %s\n", suggestion)
	}
	if verbose {
		fmt.Fprintf(w, "  code: %s\n", derr.Code)
		if derr.HTTPStatus > 0 {
			fmt.Fprintf(w, "  http status: %d\n", derr.HTTPStatus)
		}
		if derr.Raw != "" {
			fmt.Fprintf(w, "  raw: %s\n", derr.Raw)
		}
	}
}

// renderStoriesTable prints the feed as a table, one row per story.
func renderStoriesTable(w io.Writer, stories []client.Story) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Title", "Slug", "Published", "Updated"})
	for _, story := range stories {
		t.AppendRow(table.Row{
			story.ID,
			story.Title,
			story.Slug,
			yesNo(story.IsPublished),
			story.UpdatedDate.Format(timeLayout),
		})
	}
	t.Render()
}

// renderStory prints one story's metadata and content.
func renderStory(w io.Writer, story *client.Story) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendRow(table.Row{"ID", story.ID})
	t.AppendRow(table.Row{"Title", story.Title})
	t.AppendRow(table.Row{"Slug", story.Slug})
	t.AppendRow(table.Row{"Published", yesNo(story.IsPublished)})
	t.AppendRow(table.Row{"Created", story.CreatedDate.Format(timeLayout)})
	t.AppendRow(table.Row{"Updated", story.UpdatedDate.Format(timeLayout)})
	t.Render()

	if story.Content != "" {
		fmt.Fprintf(w, "\n%s\n", story.Content)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
