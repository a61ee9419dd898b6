package snapshot

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/meysamhadeli/selfie/arraymap"
	"github.com/meysamhadeli/selfie/utils"
)

// Metadata is the optional first entry of a snapshot file, stored under a "📷 " key.
type Metadata struct {
	Name  string
	Value string
}

// File is the parsed content of one snapshot file.
// The snapshot map is replaced atomically so tests running in parallel can record into it.
type File struct {
	Metadata *Metadata

	unixNewlines     bool
	snapshots        atomic.Pointer[arraymap.Map[string, Snapshot]]
	wasSetAtTestTime atomic.Bool
}

// NewEmptyFile creates a file with no snapshots.
func NewEmptyFile(unixNewlines bool) *File {
	f := &File{unixNewlines: unixNewlines}
	f.snapshots.Store(arraymap.EmptyMap[string, Snapshot](arraymap.CompareSlashFirst))
	return f
}

// Parse reads a whole snapshot file.
func Parse(content []byte) (*File, error) {
	values := NewValueReader(content)
	f := NewEmptyFile(values.UnixNewlines())
	reader := NewReader(values)

	key, ok, err := reader.PeekKey()
	if err != nil {
		return nil, err
	}
	if ok && strings.HasPrefix(key, headerPrefix) {
		value, err := values.NextValue()
		if err != nil {
			return nil, err
		}
		text, err := value.ValueString()
		if err != nil {
			return nil, values.wrap(err)
		}
		f.Metadata = &Metadata{Name: key[len(headerPrefix):], Value: text}
	}

	snapshots := f.snapshots.Load()
	for {
		key, ok, err := reader.PeekKey()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		snapshot, err := reader.NextSnapshot()
		if err != nil {
			return nil, err
		}
		if snapshots, err = snapshots.Plus(key, snapshot); err != nil {
			return nil, values.wrap(err)
		}
	}
	f.snapshots.Store(snapshots)
	return f, nil
}

// UnixNewlines reports whether the file is written with "\n" line endings.
func (f *File) UnixNewlines() bool { return f.unixNewlines }

// Snapshots returns the current snapshot map.
func (f *File) Snapshots() *arraymap.Map[string, Snapshot] { return f.snapshots.Load() }

// WasSetAtTestTime reports whether any test changed the content of this file.
func (f *File) WasSetAtTestTime() bool { return f.wasSetAtTestTime.Load() }

// SetAtTestTime records snapshot under key. The file is only marked as changed
// if the stored snapshot is different.
func (f *File) SetAtTestTime(key string, snapshot Snapshot) {
	prev, next := utils.UpdateAndGet(&f.snapshots, func(old *arraymap.Map[string, Snapshot]) *arraymap.Map[string, Snapshot] {
		return old.PlusOrNoOpOrReplace(key, snapshot, snapshotsEqual)
	})
	if prev != next {
		f.wasSetAtTestTime.Store(true)
	}
}

// RemoveAllIndices drops the snapshots at the given ascending indices.
func (f *File) RemoveAllIndices(indices []int) {
	if len(indices) == 0 {
		return
	}
	f.wasSetAtTestTime.Store(true)
	utils.UpdateAndGet(&f.snapshots, func(old *arraymap.Map[string, Snapshot]) *arraymap.Map[string, Snapshot] {
		return old.MinusSortedIndices(indices)
	})
}

// Serialize writes the file in snapshot format.
func (f *File) Serialize(w io.Writer) error {
	var b strings.Builder
	if f.Metadata != nil {
		writeEntry(&b, headerPrefix+f.Metadata.Name, "", false, StringValue(f.Metadata.Value))
	}
	for key, snapshot := range f.Snapshots().All() {
		writeEntry(&b, key, "", false, snapshot.subject)
		for facet, value := range snapshot.facets.All() {
			writeEntry(&b, key, facet, true, value)
		}
	}
	writeEntry(&b, "", "end of file", true, StringValue(""))

	out := b.String()
	if !f.unixNewlines {
		out = strings.ReplaceAll(out, "\n", "\r\n")
	}
	_, err := io.WriteString(w, out)
	return err
}

// Bytes is Serialize into memory.
func (f *File) Bytes() []byte {
	var buf bytes.Buffer
	_ = f.Serialize(&buf)
	return buf.Bytes()
}

// SerializeOnlyFacets renders the given facets of snapshot, silently omitting missing ones.
// A lone subject, listed first as "", is rendered without a header.
func SerializeOnlyFacets(snapshot Snapshot, keys []string) string {
	var b strings.Builder
	for _, key := range keys {
		if key == "" {
			writeEntry(&b, "", "", false, snapshot.subject)
		} else if value, ok := snapshot.SubjectOrFacetMaybe(key); ok {
			writeEntry(&b, "", key, true, value)
		}
	}
	const emptyKeyAndFacet = "╔═  ═╗\n"
	out := strings.TrimSuffix(b.String(), "\n")
	return strings.TrimPrefix(out, emptyKeyAndFacet)
}

func writeEntry(b *strings.Builder, key string, facet string, hasFacet bool, value Value) {
	b.WriteString(keyStart)
	b.WriteString(nameEsc.Escape(key))
	if hasFacet {
		b.WriteString("[")
		b.WriteString(nameEsc.Escape(facet))
		b.WriteString("]")
	}
	b.WriteString(keyEnd)
	if binary, err := value.ValueBinary(); err == nil {
		b.WriteString(" base64 length ")
		b.WriteString(strconv.Itoa(len(binary)))
		b.WriteString(" bytes")
	}
	b.WriteString("\n")

	if key == "" && hasFacet && facet == "end of file" {
		return
	}

	if binary, err := value.ValueBinary(); err == nil {
		b.WriteString(encodeBase64(binary))
	} else {
		text, _ := value.ValueString()
		b.WriteString(escapeBody(text))
	}
	b.WriteString("\n")
}

func escapeBody(text string) string {
	escaped := bodyEsc.Escape(text)
	escaped = strings.ReplaceAll(escaped, "\n"+keyFirstChar, "\n"+escapedFirstChar)
	if strings.HasPrefix(escaped, keyFirstChar) {
		escaped = escapedFirstChar + escaped[len(keyFirstChar):]
	}
	return escaped
}
