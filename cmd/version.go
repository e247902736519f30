package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped at build time:
//
//	go build -ldflags "-X github.com/ghostmonk/storyfeed/cmd.Version=v1.2.3"
var Version = "dev"

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("storyfeed version %s\n", Version)
		},
	}
}
