package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/birbparty/birb-baas/sdk"
)

func (c *cli) streams(vault bool) *sdk.StreamClient {
	if vault {
		return c.app.MediaVaults.Streams
	}
	return c.app.Files.Streams
}

func newUploadCommand(c *cli) *cobra.Command {
	var contentType string
	var vault bool

	cmd := &cobra.Command{
		Use:   "upload <path> <file>",
		Short: "Upload a local file to a stream path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[1], err)
			}
			if contentType == "" {
				contentType = mime.TypeByExtension(filepath.Ext(args[1]))
			}

			resp, err := c.streams(vault).Upload(cmd.Context(), args[0], contentType, content)
			if err != nil {
				return err
			}
			return c.printResponse(resp)
		},
	}

	cmd.Flags().StringVar(&contentType, "content-type", "", "content type, guessed from the file extension when empty")
	cmd.Flags().BoolVar(&vault, "vault", false, "use the media vault instead of files")
	return cmd
}

func newDownloadCommand(c *cli) *cobra.Command {
	var output string
	var vault bool

	cmd := &cobra.Command{
		Use:   "download <path>",
		Short: "Download a stream to stdout or a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := c.streams(vault).Download(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(content.Content)
				return err
			}
			return os.WriteFile(output, content.Content, 0644)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().BoolVar(&vault, "vault", false, "use the media vault instead of files")
	return cmd
}
