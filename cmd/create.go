package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ghostmonk/storyfeed/internal/client"
)

var (
	createTitle   string
	createContent string
	createSlug    string
	createPublish bool
)

func newCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new story",
		Long: `Create submits a new story. The server assigns the id, the slug when
none is given, and the timestamps. Stories start unpublished unless
--publish is set. Requires a credential.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			defer d.Close()

			story, err := d.mutator.Create(cmd.Context(), client.StoryDraft{
				Title:       createTitle,
				Content:     createContent,
				Slug:        createSlug,
				IsPublished: createPublish,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Created story %s\n\n", story.ID)
			renderStory(os.Stdout, story)
			return nil
		},
	}

	cmd.Flags().StringVar(&createTitle, "title", "", "story title (required)")
	cmd.Flags().StringVar(&createContent, "content", "", "story body (required)")
	cmd.Flags().StringVar(&createSlug, "slug", "", "URL slug, derived from the title when omitted")
	cmd.Flags().BoolVar(&createPublish, "publish", false, "publish immediately instead of saving a draft")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("content")
	return cmd
}
