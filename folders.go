package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/liuyaboixixi/QuarkPanTool/internal/config"
	"github.com/liuyaboixixi/QuarkPanTool/internal/quark"
)

func newFoldersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "folders",
		Short: "List top-level storage folders",
		Args:  cobra.NoArgs,
		RunE:  runFolders,
	}
}

func runFolders(cmd *cobra.Command, _ []string) error {
	client := newDriveClient(buildLogger())

	entries, err := client.ListFolder(cmd.Context(), "0", quark.ListOptions{})
	if err != nil {
		return err
	}

	rows := [][]string{{"0", "root", markActive("0")}}

	for _, e := range entries {
		if !e.IsDir {
			continue
		}

		rows = append(rows, []string{e.Fid, e.Name, markActive(e.Fid)})
	}

	printTable(os.Stdout, []string{"ID", "NAME", "ACTIVE"}, rows)

	return nil
}

// markActive flags the configured save destination in listings.
func markActive(fid string) string {
	if fid == loadedCfg.SaveFolderID {
		return "*"
	}

	return ""
}

func newUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <folder-id> [name]",
		Short: "Select the save destination folder",
		Long: `Select the storage folder future 'save' runs copy into. The choice
persists in the config file. Pass "0" to go back to the storage root;
the optional name is only a label for listings and summaries.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runUse,
	}
}

func runUse(_ *cobra.Command, args []string) error {
	fid := args[0]
	if fid == "" {
		return fmt.Errorf("empty folder id")
	}

	name := fid
	if fid == "0" {
		name = "root"
	}

	if len(args) == 2 {
		name = args[1]
	}

	loadedCfg.SaveFolderID = fid
	loadedCfg.SaveFolderName = name

	if err := config.Save(loadedCfgPath, loadedCfg); err != nil {
		return err
	}

	successf("Saving into %s (%s) from now on\n", name, fid)

	return nil
}

func newMkdirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mkdir <name>",
		Short: "Create a storage folder and select it",
		Long: `Create a folder in your own storage and make it the save destination.
The folder is created under the storage root by default.`,
		Args: cobra.ExactArgs(1),
		RunE: runMkdir,
	}

	cmd.Flags().String("parent", "0", "parent folder id")
	cmd.Flags().Bool("no-use", false, "create the folder without selecting it")

	return cmd
}

func runMkdir(cmd *cobra.Command, args []string) error {
	parent, _ := cmd.Flags().GetString("parent")
	noUse, _ := cmd.Flags().GetBool("no-use")

	name := args[0]

	client := newDriveClient(buildLogger())

	fid, err := client.CreateFolder(cmd.Context(), parent, name)
	if err != nil {
		return err
	}

	statusf("Created folder %s (%s)\n", name, fid)

	if noUse {
		return nil
	}

	loadedCfg.SaveFolderID = fid
	loadedCfg.SaveFolderName = name

	if err := config.Save(loadedCfgPath, loadedCfg); err != nil {
		return err
	}

	successf("Saving into %s (%s) from now on\n", name, fid)

	return nil
}
