package cmd

import (
	"github.com/meysamhadeli/selfie/arraymap"
	"github.com/meysamhadeli/selfie/engine"
	"github.com/meysamhadeli/selfie/engine/contracts"
	"github.com/meysamhadeli/selfie/snapshot"
	"github.com/meysamhadeli/selfie/snapshot_gc"
)

// fileReport describes one snapshot file of the project.
type fileReport struct {
	Path      contracts.TypedPath
	ClassName string
	Snapshots int
	// StaleFile is set when no test source declares the class.
	StaleFile bool
	// StaleKeys are snapshots of test methods that no longer exist.
	StaleKeys  []string
	staleIdx   []int
	file       *snapshot.File
	ParseError error
}

func (r fileReport) status() string {
	switch {
	case r.ParseError != nil:
		return "broken"
	case r.StaleFile:
		return "stale file"
	case len(r.StaleKeys) > 0:
		return "stale snapshots"
	default:
		return "ok"
	}
}

// inspectSnapshots parses every snapshot file under the root and matches its keys against
// the test methods found in the sources.
func inspectSnapshots(layout contracts.ILayout, discovery contracts.ITestDiscovery) ([]fileReport, error) {
	paths, err := engine.FindSnapshotFiles(layout, func(string) bool { return true })
	if err != nil {
		return nil, err
	}
	root := layout.RootFolder()
	reports := make([]fileReport, 0, len(paths))
	for _, path := range paths {
		subpath, err := root.Relativize(path)
		if err != nil {
			return nil, err
		}
		report := fileReport{Path: path, ClassName: layout.SubpathToClassName(subpath)}

		content, err := layout.FS().FileReadBinary(path)
		if err != nil {
			return nil, err
		}
		file, err := snapshot.Parse(content)
		if err != nil {
			report.ParseError = err
			reports = append(reports, report)
			continue
		}
		report.file = file
		report.Snapshots = file.Snapshots().Len()

		methods, exists := discovery.TestMethods(report.ClassName)
		if !exists {
			report.StaleFile = true
		} else if methods != nil {
			keys := file.Snapshots().Keys()
			noneRan := arraymap.EmptyMap[string, *snapshot_gc.WithinTestGC](arraymap.CompareSlashFirst)
			report.staleIdx = snapshot_gc.FindStaleSnapshotsWithin(keys, noneRan, methods)
			for _, idx := range report.staleIdx {
				report.StaleKeys = append(report.StaleKeys, keys[idx])
			}
		}
		reports = append(reports, report)
	}
	return reports, nil
}
