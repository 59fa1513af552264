package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/liuyaboixixi/QuarkPanTool/internal/shareid"
	"github.com/liuyaboixixi/QuarkPanTool/internal/transfer"
)

func newSaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save [share-link]",
		Short: "Save a shared link into your own storage",
		Long: `Save every top-level item of a shared link into your own storage.

The destination is the folder selected with 'use' or 'mkdir' (the
storage root by default); --dest overrides it for one run. With
--from-file, every link in the file is saved in order and a failing
link does not stop the rest.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSave,
	}

	cmd.Flags().String("passcode", "", "share passcode for protected links")
	cmd.Flags().String("dest", "", "destination folder id (overrides config)")
	cmd.Flags().String("from-file", "", "file with one share link per line")

	return cmd
}

func runSave(cmd *cobra.Command, args []string) error {
	passcode, _ := cmd.Flags().GetString("passcode")
	dest, _ := cmd.Flags().GetString("dest")
	fromFile, _ := cmd.Flags().GetString("from-file")

	if dest == "" {
		dest = loadedCfg.SaveFolderID
	}

	logger := buildLogger()
	saver := transfer.NewSaver(newDriveClient(logger), logger)

	if fromFile != "" {
		if len(args) > 0 {
			return fmt.Errorf("pass either a share link or --from-file, not both")
		}

		return saveFromFile(cmd.Context(), saver, fromFile, passcode, dest)
	}

	if len(args) == 0 {
		return fmt.Errorf("share link required (or use --from-file)")
	}

	return saveOne(cmd.Context(), saver, args[0], passcode, dest)
}

// saveOne saves a single share link and prints the outcome.
func saveOne(ctx context.Context, saver *transfer.Saver, link, passcode, dest string) error {
	slug := shareid.FromShareLink(link)

	result, err := saver.CopyToStorage(ctx, slug, passcode, dest)
	if err != nil {
		if errors.Is(err, transfer.ErrAlreadyOwned) {
			return fmt.Errorf("share %s is already yours, use 'download' instead", slug)
		}

		return err
	}

	if result.TaskID == "" {
		statusf("Share %s is empty, nothing saved\n", slug)
		return nil
	}

	successf("Saved %d files and %d folders to %s\n", result.Files, result.Folders, result.SavedTo)

	return nil
}

// saveFromFile saves every link listed in path, one per line. Blank
// lines and lines without a link are skipped; per-link failures are
// reported and the batch continues.
func saveFromFile(ctx context.Context, saver *transfer.Saver, path, passcode, dest string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening link file: %w", err)
	}
	defer f.Close()

	var failed int

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		link, err := shareid.ExtractURL(line)
		if err != nil {
			statusf("Skipping line without a link: %s\n", line)
			continue
		}

		if err := saveOne(ctx, saver, link, passcode, dest); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			failed++

			errorf("Failed: %s: %v\n", link, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading link file: %w", err)
	}

	if failed > 0 {
		return fmt.Errorf("%d link(s) failed to save", failed)
	}

	return nil
}
