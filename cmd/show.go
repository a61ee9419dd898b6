package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/meysamhadeli/selfie/constants/lipgloss"
	"github.com/meysamhadeli/selfie/engine/contracts"
	"github.com/meysamhadeli/selfie/snapshot"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/zeebo/xxh3"
)

var showCmd = &cobra.Command{
	Use:   "show <class> [key]",
	Short: "List the snapshots of a test class, or print one of them.",
	Long: `The 'show' command lists every snapshot and facet stored for a test class, given by its
fully qualified name (e.g. 'com.acme.AppTest') or by the path of its snapshot file. Each value is
listed with its size and a fingerprint, so you can tell at a glance which snapshots changed.
With a key ('greet' or 'greet/loud') it prints that snapshot's values instead.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		path, err := resolveSnapshotFile(rootDependencies.Layout, args[0])
		if err != nil {
			return err
		}
		key := ""
		if len(args) == 2 {
			key = args[1]
		}
		return showSnapshots(cmd.OutOrStdout(), rootDependencies.Layout.FS(), path, key)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}

// resolveSnapshotFile accepts a class name or a path ending with the snapshot extension.
func resolveSnapshotFile(layout contracts.ILayout, classOrPath string) (contracts.TypedPath, error) {
	if strings.HasSuffix(classOrPath, layout.Extension()) {
		if strings.HasPrefix(classOrPath, "/") {
			return contracts.OfFile(classOrPath)
		}
		return layout.RootFolder().ResolveFile(classOrPath)
	}
	return layout.SnapshotPathForClass(classOrPath)
}

func showSnapshots(w io.Writer, fs contracts.IFileSystem, path contracts.TypedPath, key string) error {
	if !fs.FileExists(path) {
		return fmt.Errorf("no snapshot file at %s", path)
	}
	content, err := fs.FileReadBinary(path)
	if err != nil {
		return err
	}
	file, err := snapshot.Parse(content)
	if err != nil {
		return err
	}

	if key != "" {
		snap, ok := file.Snapshots().Get(key)
		if !ok {
			return fmt.Errorf("no snapshot %q in %s, it has: %s", key, path, strings.Join(file.Snapshots().Keys(), ", "))
		}
		for facet, value := range snap.AllEntries() {
			title := key
			if facet != "" {
				title += "[" + facet + "]"
			}
			fmt.Fprintln(w, lipgloss.Info.Render(title))
			fmt.Fprintln(w, value.String())
		}
		return nil
	}

	data := pterm.TableData{{"Key", "Facet", "Kind", "Size", "Fingerprint"}}
	for name, snap := range file.Snapshots().All() {
		for facet, value := range snap.AllEntries() {
			kind, size, fingerprint := describeValue(value)
			data = append(data, []string{name, facet, kind, strconv.Itoa(size), fingerprint})
		}
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, table)
	return nil
}

// describeValue returns the kind, the size in bytes and an xxh3 fingerprint of a value.
func describeValue(value snapshot.Value) (string, int, string) {
	if value.IsBinary() {
		b, _ := value.ValueBinary()
		return "binary", len(b), fmt.Sprintf("%016x", xxh3.Hash(b))
	}
	s, _ := value.ValueString()
	return "string", len(s), fmt.Sprintf("%016x", xxh3.HashString(s))
}
