package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liuyaboixixi/QuarkPanTool/internal/shareid"
	"github.com/liuyaboixixi/QuarkPanTool/internal/transfer"
)

func newDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <share-link>",
		Short: "Download an owned share to local disk",
		Long: `Download the full tree behind one of your own share links, mirroring
the remote folder structure under the output directory.

The share must belong to the signed-in account: save someone else's
share into your storage first, then share and download it.`,
		Args: cobra.ExactArgs(1),
		RunE: runDownload,
	}

	cmd.Flags().String("passcode", "", "share passcode for protected links")
	cmd.Flags().StringP("out", "o", "", "output directory (default from config)")
	cmd.Flags().Int("workers", 0, "parallel downloads (default from config)")

	return cmd
}

func runDownload(cmd *cobra.Command, args []string) error {
	passcode, _ := cmd.Flags().GetString("passcode")
	out, _ := cmd.Flags().GetString("out")
	workers, _ := cmd.Flags().GetInt("workers")

	if out == "" {
		out = loadedCfg.DownloadDir
	}

	if workers <= 0 {
		workers = loadedCfg.ParallelDownloads
	}

	logger := buildLogger()
	renderer := newProgressRenderer()

	dl := transfer.NewDownloader(newDriveClient(logger), workers, renderer.Update, logger)

	slug := shareid.FromShareLink(args[0])

	report, err := dl.DownloadToLocal(cmd.Context(), slug, passcode, out)
	renderer.Done()

	if err != nil {
		if errors.Is(err, transfer.ErrNotOwned) {
			return fmt.Errorf("share %s is not yours, 'save' it into your storage first", slug)
		}

		return err
	}

	successf("Downloaded %d files (%s) to %s\n", report.Files, formatSize(report.Bytes), out)

	if len(report.Failures) > 0 {
		for _, f := range report.Failures {
			errorf("Failed: %s: %v\n", f.Path, f.Err)
		}

		return fmt.Errorf("%d file(s) failed to download", len(report.Failures))
	}

	return nil
}
