package write_tracker

import (
	"github.com/meysamhadeli/selfie/arraymap"
	"github.com/meysamhadeli/selfie/call_stack"
	"github.com/meysamhadeli/selfie/engine/contracts"
	"github.com/meysamhadeli/selfie/snapshot"
)

const diskHowToFix = "You can fix this with `.toMatchDisk(String sub)` and pass a unique value for sub."

// DiskWriteTracker tracks disk snapshot writes by `test/sub` key.
type DiskWriteTracker struct {
	*tracker[string, snapshot.Snapshot]
}

func NewDiskWriteTracker() *DiskWriteTracker {
	return &DiskWriteTracker{newTracker(arraymap.CompareSlashFirst, snapshot.Snapshot.Equal, diskHowToFix)}
}

func (t *DiskWriteTracker) Record(key string, value snapshot.Snapshot, call call_stack.CallStack, layout contracts.ILayout) error {
	return t.record(key, value, call, layout)
}
