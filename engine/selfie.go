package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/meysamhadeli/selfie/call_stack"
	"github.com/meysamhadeli/selfie/literals"
	"github.com/meysamhadeli/selfie/snapshot"
)

// selfie carries what every assertion needs. call overrides the captured call site,
// which is how tooling that isn't a Go test points at the JVM source being rewritten.
type selfie struct {
	system *System
	ctx    context.Context
	call   *call_stack.CallStack
}

func (s *selfie) callStack() call_stack.CallStack {
	if s.call != nil {
		return *s.call
	}
	return call_stack.Capture()
}

// callerFile is the call site when only its source file matters.
func (s *selfie) callerFile() call_stack.CallStack {
	if s.call != nil {
		return call_stack.Of(s.call.Location.WithLine(-1))
	}
	return call_stack.CaptureCaller()
}

// checkSrc fails if the source carries a writable comment in readonly mode.
func (s *selfie) checkSrc() error {
	_, err := s.system.mode.CanWrite(false, s.callerFile(), s.system)
	return err
}

// toBeDidntMatch writes the literal if allowed, or fails the assertion. expected is nil for `_TODO`.
func (s *selfie) toBeDidntMatch(expected any, actual any, format literals.Format, todoName string) error {
	call := s.callStack()
	writable, err := s.system.mode.CanWrite(expected == nil, call, s.system)
	if err != nil {
		return err
	}
	if writable {
		return s.system.WriteInline(literals.LiteralValue{Expected: expected, Actual: actual, Format: format}, call)
	}
	if expected == nil {
		return s.system.fs.AssertFailed(fmt.Sprintf("Can't call `%s` in %s mode!", todoName, Readonly), nil, nil)
	}
	expectedText, actualText := fmt.Sprint(expected), fmt.Sprint(actual)
	return s.system.fs.AssertFailed(s.system.mode.MsgSnapshotMismatch(expectedText, actualText), expected, actual)
}

// Expect starts an assertion on a snapshot. Disk assertions need ctx to come from ClassProgress.StartTest.
func (s *System) Expect(ctx context.Context, actual snapshot.Snapshot) *StringSelfie {
	return &StringSelfie{DiskSelfie: DiskSelfie{selfie: selfie{system: s, ctx: ctx}, actual: actual}}
}

func (s *System) ExpectString(ctx context.Context, actual string) *StringSelfie {
	return s.Expect(ctx, snapshot.OfString(actual))
}

func (s *System) ExpectBinary(ctx context.Context, actual []byte) *BinarySelfie {
	disk := DiskSelfie{selfie: selfie{system: s, ctx: ctx}, actual: snapshot.OfBinary(actual)}
	return disk.FacetBinary("")
}

func (s *System) ExpectInt(actual int) *PrimitiveSelfie[int] {
	return &PrimitiveSelfie[int]{selfie: selfie{system: s}, actual: actual, format: literals.Int}
}

func (s *System) ExpectLong(actual int64) *PrimitiveSelfie[int64] {
	return &PrimitiveSelfie[int64]{selfie: selfie{system: s}, actual: actual, format: literals.Long}
}

func (s *System) ExpectBoolean(actual bool) *PrimitiveSelfie[bool] {
	return &PrimitiveSelfie[bool]{selfie: selfie{system: s}, actual: actual, format: literals.Boolean}
}

// PreserveSelfiesOnDisk keeps the given sub snapshots of the current test, or all of them if none are named.
func PreserveSelfiesOnDisk(ctx context.Context, subsToKeep ...string) error {
	storage, err := DiskStorageFrom(ctx)
	if err != nil {
		return err
	}
	if len(subsToKeep) == 0 {
		return storage.KeepAll()
	}
	for _, sub := range subsToKeep {
		if err := storage.Keep(sub); err != nil {
			return err
		}
	}
	return nil
}

// DiskSelfie asserts a snapshot against the snapshot file of the current test.
type DiskSelfie struct {
	selfie
	actual snapshot.Snapshot
}

func (d *DiskSelfie) At(call call_stack.CallStack) *DiskSelfie {
	d.call = &call
	return d
}

func optionalSub(sub []string) string {
	if len(sub) == 0 {
		return ""
	}
	return sub[0]
}

// ToMatchDisk compares with the snapshot stored under the optional sub name, or writes it when allowed.
func (d *DiskSelfie) ToMatchDisk(sub ...string) (*DiskSelfie, error) {
	storage, err := DiskStorageFrom(d.ctx)
	if err != nil {
		return d, err
	}
	call := d.callStack()
	writable, err := d.system.mode.CanWrite(false, call, d.system)
	if err != nil {
		return d, err
	}
	if writable {
		return d, storage.WriteDisk(d.actual, optionalSub(sub), call)
	}
	expected, found, err := storage.ReadDisk(optionalSub(sub), call)
	if err != nil {
		return d, err
	}
	return d, d.assertEqual(expected, found, optionalSub(sub))
}

// ToMatchDiskTODO writes the snapshot and renames the call to ToMatchDisk.
func (d *DiskSelfie) ToMatchDiskTODO(sub ...string) (*DiskSelfie, error) {
	storage, err := DiskStorageFrom(d.ctx)
	if err != nil {
		return d, err
	}
	call := d.callStack()
	writable, err := d.system.mode.CanWrite(true, call, d.system)
	if err != nil {
		return d, err
	}
	if !writable {
		return d, d.system.fs.AssertFailed(fmt.Sprintf("Can't call `toMatchDisk_TODO` in %s mode!", Readonly), nil, nil)
	}
	if err := storage.WriteDisk(d.actual, optionalSub(sub), call); err != nil {
		return d, err
	}
	return d, d.system.WriteInline(literals.ToMatchDisk.CreateLiteral(), call)
}

func (d *DiskSelfie) assertEqual(expected snapshot.Snapshot, found bool, sub string) error {
	if !found {
		return &NotFoundError{Key: sub, Message: d.system.mode.MsgSnapshotNotFound()}
	}
	if expected.Equal(d.actual) {
		return nil
	}
	keys := mismatchedKeys(expected, d.actual)
	expectedText := snapshot.SerializeOnlyFacets(expected, keys)
	actualText := snapshot.SerializeOnlyFacets(d.actual, keys)
	return d.system.fs.AssertFailed(d.system.mode.MsgSnapshotMismatch(expectedText, actualText), expectedText, actualText)
}

// mismatchedKeys lists, sorted, the subject ("") and facets whose values differ.
func mismatchedKeys(expected, actual snapshot.Snapshot) []string {
	candidates := append([]string{""}, expected.Facets().Keys()...)
	for facet := range actual.Facets().All() {
		if !expected.Facets().ContainsKey(facet) {
			candidates = append(candidates, facet)
		}
	}
	var keys []string
	for _, key := range candidates {
		e, eok := expected.SubjectOrFacetMaybe(key)
		a, aok := actual.SubjectOrFacetMaybe(key)
		if eok != aok || (eok && !e.Equal(a)) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

// Facet narrows an inline assertion to one facet.
func (d *DiskSelfie) Facet(facet string) *StringSelfie {
	return d.Facets(facet)
}

// Facets narrows an inline assertion to some facets. The subject "" must come first if listed.
func (d *DiskSelfie) Facets(facets ...string) *StringSelfie {
	return &StringSelfie{DiskSelfie: *d, onlyFacets: facets, err: checkFacets(d.actual, facets)}
}

// FacetBinary asserts on one binary facet, "" for the subject.
func (d *DiskSelfie) FacetBinary(facet string) *BinarySelfie {
	b := &BinarySelfie{DiskSelfie: *d, onlyFacet: facet}
	if value, ok := d.actual.SubjectOrFacetMaybe(facet); !ok || !value.IsBinary() {
		b.err = fmt.Errorf("The facet %s was not found in the snapshot, or it was not a binary facet.", facet)
	}
	return b
}

func checkFacets(actual snapshot.Snapshot, facets []string) error {
	var missing []string
	for _, facet := range facets {
		if facet != "" && !actual.Facets().ContainsKey(facet) {
			missing = append(missing, facet)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("The following facets were not found in the snapshot: %v\navailable facets are: %v", missing, actual.Facets().Keys())
	}
	if len(facets) == 0 {
		return errors.New("Must have at least one facet to display, this was empty.")
	}
	if idx := slices.Index(facets, ""); idx > 0 {
		return fmt.Errorf("If you're going to specify the subject facet (\"\"), you have to list it first, this was %v", facets)
	}
	return nil
}

// StringSelfie asserts a snapshot, or some of its facets, against an inline string literal.
type StringSelfie struct {
	DiskSelfie
	// nil means the subject and every facet
	onlyFacets []string
	err        error
}

func (s *StringSelfie) At(call call_stack.CallStack) *StringSelfie {
	s.call = &call
	return s
}

func (s *StringSelfie) actualString() (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.actual.Facets().IsEmpty() || len(s.onlyFacets) == 1 {
		key := ""
		if len(s.onlyFacets) == 1 {
			key = s.onlyFacets[0]
		}
		value, err := s.actual.SubjectOrFacet(key)
		if err != nil {
			return "", err
		}
		if value.IsBinary() {
			return value.String(), nil
		}
		return value.ValueString()
	}
	keys := s.onlyFacets
	if keys == nil {
		keys = append([]string{""}, s.actual.Facets().Keys()...)
	}
	return snapshot.SerializeOnlyFacets(s.actual, keys), nil
}

func (s *StringSelfie) ToBe(expected string) (string, error) {
	actual, err := s.actualString()
	if err != nil {
		return "", err
	}
	if actual == expected {
		return actual, s.checkSrc()
	}
	return actual, s.toBeDidntMatch(expected, actual, literals.String, "toBe_TODO")
}

func (s *StringSelfie) ToBeTODO() (string, error) {
	actual, err := s.actualString()
	if err != nil {
		return "", err
	}
	return actual, s.toBeDidntMatch(nil, actual, literals.String, "toBe_TODO")
}

// BinarySelfie asserts binary content against a base64 literal or a file under the snapshot root.
type BinarySelfie struct {
	DiskSelfie
	onlyFacet string
	err       error
}

func (b *BinarySelfie) At(call call_stack.CallStack) *BinarySelfie {
	b.call = &call
	return b
}

func (b *BinarySelfie) actualBytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	value, err := b.actual.SubjectOrFacet(b.onlyFacet)
	if err != nil {
		return nil, err
	}
	return value.ValueBinary()
}

// ToBeBase64 compares decoded bytes, so the literal may be wrapped differently.
func (b *BinarySelfie) ToBeBase64(expected string) ([]byte, error) {
	actual, err := b.actualBytes()
	if err != nil {
		return nil, err
	}
	decoded, decodeErr := decodeMimeBase64(expected)
	if decodeErr == nil && bytes.Equal(decoded, actual) {
		return actual, b.checkSrc()
	}
	return actual, b.toBeDidntMatch(expected, snapshot.BinaryValue(actual).String(), literals.String, "toBeBase64_TODO")
}

func (b *BinarySelfie) ToBeBase64TODO() ([]byte, error) {
	actual, err := b.actualBytes()
	if err != nil {
		return nil, err
	}
	return actual, b.toBeDidntMatch(nil, snapshot.BinaryValue(actual).String(), literals.String, "toBeBase64_TODO")
}

func decodeMimeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(strings.Join(strings.Fields(s), ""))
}

// ToBeFile compares with the file at subpath below the snapshot root, or writes it when allowed.
func (b *BinarySelfie) ToBeFile(subpath string) ([]byte, error) {
	return b.toBeFile(subpath, false)
}

func (b *BinarySelfie) ToBeFileTODO(subpath string) ([]byte, error) {
	return b.toBeFile(subpath, true)
}

func (b *BinarySelfie) toBeFile(subpath string, isTodo bool) ([]byte, error) {
	actual, err := b.actualBytes()
	if err != nil {
		return nil, err
	}
	system := b.system
	path, err := system.layout.RootFolder().ResolveFile(subpath)
	if err != nil {
		return nil, err
	}
	call := b.callStack()
	writable, err := system.mode.CanWrite(isTodo, call, system)
	if err != nil {
		return nil, err
	}
	if writable {
		if isTodo {
			if err := system.WriteInline(literals.ToBeFile.CreateLiteral(), call); err != nil {
				return nil, err
			}
		}
		return actual, system.WriteToBeFile(path, actual, call)
	}
	if isTodo {
		return nil, system.fs.AssertFailed(fmt.Sprintf("Can't call `toBeFile_TODO` in %s mode!", Readonly), nil, nil)
	}
	if !system.fs.FileExists(path) {
		return nil, &NotFoundError{Key: subpath, Message: system.mode.MsgSnapshotNotFoundNoSuchFile(path)}
	}
	expected, err := system.fs.FileReadBinary(path)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(expected, actual) {
		return actual, system.fs.AssertFailed(system.mode.MsgSnapshotMismatchBinary(), expected, actual)
	}
	return actual, nil
}

// PrimitiveSelfie asserts an int, int64 or bool against an inline literal.
type PrimitiveSelfie[T comparable] struct {
	selfie
	actual T
	format literals.Format
}

func (p *PrimitiveSelfie[T]) At(call call_stack.CallStack) *PrimitiveSelfie[T] {
	p.call = &call
	return p
}

func (p *PrimitiveSelfie[T]) ToBe(expected T) (T, error) {
	if p.actual == expected {
		return p.actual, p.checkSrc()
	}
	return p.actual, p.toBeDidntMatch(expected, p.actual, p.format, "toBe_TODO")
}

func (p *PrimitiveSelfie[T]) ToBeTODO() (T, error) {
	return p.actual, p.toBeDidntMatch(nil, p.actual, p.format, "toBe_TODO")
}
