package write_tracker

import (
	"fmt"

	"github.com/meysamhadeli/selfie/call_stack"
	"github.com/meysamhadeli/selfie/engine/contracts"
	"github.com/zeebo/xxh3"
)

const toBeFileHowToFix = "You can fix this with `.toBeFile(String filename)` and pass a unique filename for each code path."

// fileFingerprint stands in for file content once it has been written, so the bytes
// need not stay in memory.
type fileFingerprint struct {
	size int
	hash xxh3.Uint128
}

func fingerprint(content []byte) fileFingerprint {
	return fileFingerprint{size: len(content), hash: xxh3.Hash128(content)}
}

func (f fileFingerprint) String() string {
	return fmt.Sprintf("%d bytes (xxh3 %x)", f.size, f.hash.Bytes())
}

// ToBeFileWriteTracker tracks `toBeFile` writes by destination path.
type ToBeFileWriteTracker struct {
	*tracker[contracts.TypedPath, fileFingerprint]
}

func NewToBeFileWriteTracker() *ToBeFileWriteTracker {
	return &ToBeFileWriteTracker{newTracker(contracts.TypedPath.Compare,
		func(a, b fileFingerprint) bool { return a == b }, toBeFileHowToFix)}
}

// WriteToDisk records the write and, unless it conflicts, writes content to path.
func (t *ToBeFileWriteTracker) WriteToDisk(path contracts.TypedPath, content []byte, call call_stack.CallStack, layout contracts.ILayout) error {
	if err := t.record(path, fingerprint(content), call, layout); err != nil {
		return err
	}
	return layout.FS().FileWriteBinary(path, content)
}
