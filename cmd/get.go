package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/ghostmonk/storyfeed/internal/apierror"
	"github.com/ghostmonk/storyfeed/internal/client"
)

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id|slug>",
		Short: "Show one story",
		Long:  "Get fetches a story by id, falling back to a slug lookup when no story has that id.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			defer d.Close()

			story, err := fetchStory(cmd.Context(), d.api, args[0])
			if err != nil {
				return err
			}
			renderStory(os.Stdout, story)
			return nil
		},
	}
}

// fetchStory resolves a story reference: id first, slug second. Only a
// NOT_FOUND on the id lookup triggers the fallback; any other failure is
// returned as is.
func fetchStory(ctx context.Context, api *client.Client, ref string) (*client.Story, error) {
	story, err := api.Get(ctx, ref)
	if err == nil {
		return story, nil
	}

	var derr *apierror.DomainError
	if errors.As(err, &derr) && derr.Code == apierror.CodeNotFound {
		return api.GetBySlug(ctx, ref)
	}
	return nil, err
}
