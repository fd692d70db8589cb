package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ena-tools/magsub/webin"
)

var downloadDir string

var downloadWebinCmd = &cobra.Command{
	Use:   "download-webin",
	Short: "Fetch the archive's uploader jar",
	Long: `Download the webin-cli release this tool is tested against. An
existing jar at the destination is reused.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := webin.Download(context.Background(), downloadDir, true)
		if err != nil {
			return err
		}
		fmt.Printf("Uploader available at %s.\n", path)
		return nil
	},
}

func init() {
	downloadWebinCmd.Flags().StringVar(&downloadDir, "dir", ".", "directory to place the jar in")
}
