package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"alttag/internal/images"
)

func newImagesCommand(ctx *commandContext) *cobra.Command {
	imagesCmd := &cobra.Command{
		Use:   "images",
		Short: "Manage the image library",
	}

	imagesCmd.AddCommand(newImagesAddCommand(ctx))
	imagesCmd.AddCommand(newImagesRemoveCommand(ctx))
	imagesCmd.AddCommand(newImagesShowCommand(ctx))

	return imagesCmd
}

func newImagesAddCommand(ctx *commandContext) *cobra.Command {
	var filePath string
	var mimeType string
	var title string
	var parentID int64
	var parentTitle string
	var enqueue bool
	var caption bool

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Register an image in the library",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.imageStore()
			if err != nil {
				return err
			}
			sourceURL := ""
			if len(args) == 1 {
				sourceURL = args[0]
			}

			img, err := store.Add(cmd.Context(), images.NewImage{
				SourceURL:   sourceURL,
				FilePath:    filePath,
				MimeType:    mimeType,
				Title:       title,
				ParentID:    parentID,
				ParentTitle: parentTitle,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Added image %d (%s)\n", img.ID, img.Title)

			if enqueue {
				queueStore, err := ctx.queueStore()
				if err != nil {
					return err
				}
				if _, err := queueStore.Enqueue(cmd.Context(), img.ID, parentID); err != nil {
					return err
				}
				fmt.Fprintf(out, "Image %d queued for captioning\n", img.ID)

				if caption {
					proc, err := ctx.newProcessor(nil)
					if err != nil {
						return err
					}
					ok, err := proc.ProcessImageForReview(cmd.Context(), img.ID)
					if err != nil {
						return err
					}
					if ok {
						if job, err := queueStore.GetByImage(cmd.Context(), img.ID); err == nil && job != nil {
							fmt.Fprintf(out, "Suggested alt text: %s (confidence %s)\n", job.SuggestedAlt, formatConfidence(job.Confidence))
						}
					} else if job, err := queueStore.GetByImage(cmd.Context(), img.ID); err == nil && job != nil && job.ErrorCode != "" {
						fmt.Fprintf(out, "Caption generation failed (%s): %s\n", job.ErrorCode, job.ErrorMessage)
						fmt.Fprintln(out, "The image stays queued; run 'alttag process' to retry.")
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filePath, "file", "", "Local file path, used for direct upload mode")
	cmd.Flags().StringVar(&mimeType, "mime", "", "MIME type of the image")
	cmd.Flags().StringVar(&title, "title", "", "Image title (derived from the filename when empty)")
	cmd.Flags().Int64Var(&parentID, "parent", 0, "Containing page or article id")
	cmd.Flags().StringVar(&parentTitle, "parent-title", "", "Title of the containing page")
	cmd.Flags().BoolVar(&enqueue, "enqueue", true, "Queue the image for captioning immediately")
	cmd.Flags().BoolVar(&caption, "caption", true, "Generate a caption suggestion right away")
	return cmd
}

func newImagesRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <image-id>",
		Short: "Remove an image and its queue rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imageID, err := parseID(args[0])
			if err != nil {
				return err
			}
			imageStore, err := ctx.imageStore()
			if err != nil {
				return err
			}
			queueStore, err := ctx.queueStore()
			if err != nil {
				return err
			}

			removedJobs, err := queueStore.DeleteByImage(cmd.Context(), imageID)
			if err != nil {
				return err
			}
			removed, err := imageStore.Delete(cmd.Context(), imageID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !removed {
				fmt.Fprintf(out, "Image %d was not in the library\n", imageID)
				return nil
			}
			fmt.Fprintf(out, "Removed image %d and %d queue row(s)\n", imageID, removedJobs)
			return nil
		},
	}
}

func newImagesShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <image-id>",
		Short: "Show an image's metadata and queue state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imageID, err := parseID(args[0])
			if err != nil {
				return err
			}
			imageStore, err := ctx.imageStore()
			if err != nil {
				return err
			}
			queueStore, err := ctx.queueStore()
			if err != nil {
				return err
			}

			img, err := imageStore.GetByID(cmd.Context(), imageID)
			if err != nil {
				return err
			}
			if img == nil {
				return fmt.Errorf("image %d not found", imageID)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Image %d\n", img.ID)
			fmt.Fprintf(out, "  Title:           %s\n", img.Title)
			fmt.Fprintf(out, "  URL:             %s\n", img.SourceURL)
			if img.FilePath != "" {
				fmt.Fprintf(out, "  File:            %s\n", img.FilePath)
			}
			fmt.Fprintf(out, "  Alt text:        %s\n", coalesce(img.AltText, "(none)"))
			if img.AltSource != "" {
				fmt.Fprintf(out, "  Alt source:      %s\n", img.AltSource)
			}
			if img.AltGeneratedAt != nil {
				fmt.Fprintf(out, "  Generated at:    %s\n", img.AltGeneratedAt.Format("2006-01-02 15:04:05"))
			}
			fmt.Fprintf(out, "  Review required: %s\n", yesNo(img.ReviewRequired))

			job, err := queueStore.GetByImage(cmd.Context(), imageID)
			if err != nil {
				return err
			}
			if job == nil {
				fmt.Fprintln(out, "  Queue:           not queued")
				return nil
			}
			fmt.Fprintf(out, "  Queue row:       %d (%s, %d attempt(s))\n", job.ID, job.Status, job.Attempts)
			if !job.IsActive() && job.FinalAlt != "" {
				fmt.Fprintf(out, "  Final alt:       %s\n", job.FinalAlt)
			}
			if job.SuggestedAlt != "" {
				fmt.Fprintf(out, "  Suggestion:      %s (confidence %s)\n", job.SuggestedAlt, formatConfidence(job.Confidence))
			}
			if job.ErrorCode != "" {
				fmt.Fprintf(out, "  Last error:      %s: %s\n", job.ErrorCode, job.ErrorMessage)
			}
			return nil
		},
	}
}
