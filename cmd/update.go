package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ghostmonk/storyfeed/internal/client"
)

var (
	updateTitle     string
	updateContent   string
	updateSlug      string
	updatePublish   bool
	updateUnpublish bool
)

func newUpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an existing story",
		Long: `Update fetches the story, overlays the fields given as flags, and
submits the result. Fields without a flag keep their current value.
Requires a credential.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := false
			for _, name := range []string{"title", "content", "slug", "publish", "unpublish"} {
				if cmd.Flags().Changed(name) {
					changed = true
					break
				}
			}
			if !changed {
				return fmt.Errorf("nothing to update: pass at least one of --title, --content, --slug, --publish, --unpublish")
			}

			d, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			defer d.Close()

			current, err := d.api.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			draft := client.StoryDraft{
				Title:       current.Title,
				Content:     current.Content,
				Slug:        current.Slug,
				IsPublished: current.IsPublished,
			}
			if cmd.Flags().Changed("title") {
				draft.Title = updateTitle
			}
			if cmd.Flags().Changed("content") {
				draft.Content = updateContent
			}
			if cmd.Flags().Changed("slug") {
				draft.Slug = updateSlug
			}
			if updatePublish {
				draft.IsPublished = true
			}
			if updateUnpublish {
				draft.IsPublished = false
			}

			story, err := d.mutator.Update(cmd.Context(), args[0], draft)
			if err != nil {
				return err
			}

			fmt.Printf("Updated story %s\n\n", story.ID)
			renderStory(os.Stdout, story)
			return nil
		},
	}

	cmd.Flags().StringVar(&updateTitle, "title", "", "new title")
	cmd.Flags().StringVar(&updateContent, "content", "", "new body")
	cmd.Flags().StringVar(&updateSlug, "slug", "", "new URL slug")
	cmd.Flags().BoolVar(&updatePublish, "publish", false, "publish the story")
	cmd.Flags().BoolVar(&updateUnpublish, "unpublish", false, "unpublish the story")
	cmd.MarkFlagsMutuallyExclusive("publish", "unpublish")
	return cmd
}
