package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liuyaboixixi/QuarkPanTool/internal/quark"
	"github.com/liuyaboixixi/QuarkPanTool/internal/shareid"
	"github.com/liuyaboixixi/QuarkPanTool/internal/transfer"
)

func newPublishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish [root-folder]",
		Short: "Bulk-publish second-level folders as share links",
		Long: `Walk two levels of your own storage under the root folder and create
one share link per second-level folder.

The root folder may be a folder id or a pan.quark.cn folder page
address; it defaults to the storage root. Share links are appended to
share/share_url.txt as they are created; failures land in
share/retry.txt and can be replayed with --retry without walking the
tree again.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runPublish,
	}

	cmd.Flags().String("expiry", "forever", "link lifetime: 1d, 7d, 30d, or forever")
	cmd.Flags().Bool("encrypt", false, "protect links with a passcode")
	cmd.Flags().String("passcode", "", "fixed passcode (implies --encrypt; random per link when empty)")
	cmd.Flags().Bool("retry", false, "replay the failure ledger instead of walking the tree")

	return cmd
}

func runPublish(cmd *cobra.Command, args []string) error {
	expiry, _ := cmd.Flags().GetString("expiry")
	encrypt, _ := cmd.Flags().GetBool("encrypt")
	passcode, _ := cmd.Flags().GetString("passcode")
	retryRun, _ := cmd.Flags().GetBool("retry")

	opts, err := shareOptions(expiry, encrypt, passcode)
	if err != nil {
		return err
	}

	logger := buildLogger()
	ledgers := transfer.NewLedgerSet(loadedCfg.ShareDir)
	pub := transfer.NewPublisher(newDriveClient(logger), ledgers, logger)

	if retryRun {
		if len(args) > 0 {
			return fmt.Errorf("--retry replays the failure ledger, no root folder applies")
		}

		records, err := pub.RetryFailed(cmd.Context(), opts)
		if err != nil {
			return err
		}

		if len(records) == 0 {
			statusf("Failure ledger is empty, nothing to retry\n")
			return nil
		}

		return summarizePublish(records)
	}

	rootFid := "0"
	if len(args) == 1 {
		rootFid, err = resolveRootFolder(args[0])
		if err != nil {
			return err
		}
	}

	records, err := pub.PublishTree(cmd.Context(), rootFid, opts)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		statusf("No second-level folders found under %s\n", rootFid)
		return nil
	}

	return summarizePublish(records)
}

// resolveRootFolder accepts a bare folder id or a web folder page
// address.
func resolveRootFolder(arg string) (string, error) {
	if fid, err := shareid.FromFolderPage(arg); err == nil {
		return fid, nil
	}

	if arg == "" {
		return "", fmt.Errorf("empty root folder")
	}

	return arg, nil
}

// shareOptions maps the CLI expiry and passcode flags to API options.
func shareOptions(expiry string, encrypt bool, passcode string) (quark.ShareOptions, error) {
	opts := quark.ShareOptions{URLType: quark.URLTypePublic}

	switch expiry {
	case "1d":
		opts.ExpiredType = quark.ExpireOneDay
	case "7d":
		opts.ExpiredType = quark.ExpireWeek
	case "30d":
		opts.ExpiredType = quark.ExpireMonth
	case "forever":
		opts.ExpiredType = quark.ExpireForever
	default:
		return opts, fmt.Errorf("invalid --expiry %q: want 1d, 7d, 30d, or forever", expiry)
	}

	if encrypt || passcode != "" {
		opts.URLType = quark.URLTypePasscode
		opts.Passcode = passcode
	}

	return opts, nil
}

// summarizePublish prints the per-run outcome counts and fails the
// command when any item stayed failed.
func summarizePublish(records []transfer.ShareRecord) error {
	var succeeded, failed int

	for _, rec := range records {
		if rec.Outcome == transfer.OutcomeSuccess {
			succeeded++
		} else {
			failed++
		}
	}

	successf("Published %d folder(s)\n", succeeded)

	if failed > 0 {
		errorf("%d folder(s) failed, replay them with 'publish --retry'\n", failed)
		return fmt.Errorf("%d publish item(s) failed", failed)
	}

	return nil
}
