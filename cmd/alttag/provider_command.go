package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"alttag/internal/services/captioner"
)

// baselineTestImage is a stable public image used to verify the provider
// endpoint independently of the local library.
const baselineTestImage = "https://s.w.org/style/images/about/WordPress-logotype-wmark.png"

func newProviderCommand(ctx *commandContext) *cobra.Command {
	providerCmd := &cobra.Command{
		Use:   "provider",
		Short: "Captioning provider utilities",
	}

	providerCmd.AddCommand(newProviderTestCommand(ctx))

	return providerCmd
}

func newProviderTestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check provider connectivity with a baseline and a queued image",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.captionClient()
			if err != nil {
				return err
			}
			store, err := ctx.queueStore()
			if err != nil {
				return err
			}
			imageStore, err := ctx.imageStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			failed := false

			result, err := client.GenerateCaption(cmd.Context(), captioner.Request{
				ImageURL:        baselineTestImage,
				AttachmentTitle: "WordPress logo",
				PostTitle:       "Provider test",
			})
			switch {
			case err != nil:
				failed = true
				fmt.Fprintf(out, "Baseline test failed: %v\n", err)
			case result.Caption == "":
				failed = true
				fmt.Fprintln(out, "Baseline test failed: provider responded without a usable caption.")
			default:
				fmt.Fprintf(out, "Baseline test succeeded: %q (confidence %s)\n", result.Caption, formatConfidence(result.Confidence))
			}

			job, err := store.LatestActive(cmd.Context())
			if err != nil {
				return err
			}
			if job == nil {
				fmt.Fprintln(out, "Latest queued image test skipped: no active queue row found.")
			} else {
				img, err := imageStore.GetByID(cmd.Context(), job.ImageID)
				if err != nil {
					return err
				}
				if img == nil || img.SourceURL == "" {
					failed = true
					fmt.Fprintf(out, "Latest queued image test failed (image %d): image URL not found.\n", job.ImageID)
				} else {
					latest, err := client.GenerateCaption(cmd.Context(), captioner.Request{
						ImageURL:        img.SourceURL,
						FilePath:        img.FilePath,
						MimeType:        img.MimeType,
						AttachmentTitle: img.Title,
						PostTitle:       "Provider latest-image test",
					})
					switch {
					case err != nil:
						failed = true
						fmt.Fprintf(out, "Latest queued image test failed (image %d): %v\n", job.ImageID, err)
					case latest.Caption == "":
						failed = true
						fmt.Fprintf(out, "Latest queued image test failed (image %d): no usable caption returned.\n", job.ImageID)
					default:
						fmt.Fprintf(out, "Latest queued image test succeeded (image %d).\n", job.ImageID)
					}
				}
			}

			if failed {
				return fmt.Errorf("provider test reported failures")
			}
			return nil
		},
	}
}
