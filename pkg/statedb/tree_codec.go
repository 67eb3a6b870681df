package statedb

import (
	"bytes"
	"encoding/binary"
	"io"
	"sort"

	"github.com/pkg/errors"

	"github.com/pathsync/pathsync/pkg/synctree"
)

// entryTag values distinguish the encoded forms of a tree node. They are
// deliberately distinct from synctree.EntryKind's own numbering so that the
// wire format doesn't silently break if that type's constants are ever
// reordered.
const (
	tagAbsent byte = iota
	tagDirectory
	tagFile
	tagSymlink
)

// encodeTree serializes an entry hierarchy into the flat binary form stored
// inside a state database's deflate-compressed body. The encoding is this
// core's own fixed internal format: a generic recursive tag per node rather
// than the specification's per-kind grouped counts, since nothing in this
// core's domain model needs the tree read back by anything other than this
// same codec (see the package doc comment in statedb.go).
func encodeTree(root *synctree.Entry) ([]byte, error) {
	var buffer bytes.Buffer
	if err := encodeEntry(&buffer, root); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func encodeEntry(buffer *bytes.Buffer, e *synctree.Entry) error {
	if e == nil {
		buffer.WriteByte(tagAbsent)
		return nil
	}
	switch e.Kind {
	case synctree.EntryDirectory:
		buffer.WriteByte(tagDirectory)
		return encodeDirectoryContents(buffer, e.Contents)
	case synctree.EntryFile:
		buffer.WriteByte(tagFile)
		return encodeFileMeta(buffer, e.File)
	case synctree.EntrySymlink:
		buffer.WriteByte(tagSymlink)
		if err := writeString(buffer, e.LinkTarget); err != nil {
			return err
		}
		isDir := byte(0)
		if e.LinkTargetIsDir {
			isDir = 1
		}
		return buffer.WriteByte(isDir)
	default:
		return errors.Errorf("unencodable entry kind %v", e.Kind)
	}
}

func encodeFileMeta(buffer *bytes.Buffer, meta synctree.FileMeta) error {
	if err := binary.Write(buffer, binary.LittleEndian, meta.Size); err != nil {
		return err
	}
	if err := binary.Write(buffer, binary.LittleEndian, meta.ModificationTimeUTC); err != nil {
		return err
	}
	// FileID is deliberately not persisted: it is only meaningful within a
	// single scan of a single filesystem and carries no information across
	// sync cycles or machines.
	if err := binary.Write(buffer, binary.LittleEndian, uint32(len(meta.Digest))); err != nil {
		return err
	}
	_, err := buffer.Write(meta.Digest)
	return err
}

func encodeDirectoryContents(buffer *bytes.Buffer, contents map[string]*synctree.Entry) error {
	names := make([]string, 0, len(contents))
	for name := range contents {
		names = append(names, name)
	}
	sort.Strings(names)

	if err := binary.Write(buffer, binary.LittleEndian, uint32(len(names))); err != nil {
		return err
	}
	for _, name := range names {
		if err := writeString(buffer, name); err != nil {
			return err
		}
		if err := encodeEntry(buffer, contents[name]); err != nil {
			return err
		}
	}
	return nil
}

func writeString(buffer *bytes.Buffer, s string) error {
	if err := binary.Write(buffer, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := buffer.WriteString(s)
	return err
}

// decodeTree parses the flat binary form produced by encodeTree.
func decodeTree(data []byte) (*synctree.Entry, error) {
	cursor := &byteCursor{data: data}
	entry, err := decodeEntry(cursor)
	if err != nil {
		return nil, err
	}
	if cursor.remaining() != 0 {
		return nil, errors.New("trailing bytes after decoded tree")
	}
	return entry, nil
}

func decodeEntry(cursor *byteCursor) (*synctree.Entry, error) {
	tag, err := cursor.readByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagAbsent:
		return nil, nil
	case tagDirectory:
		contents, err := decodeDirectoryContents(cursor)
		if err != nil {
			return nil, err
		}
		return &synctree.Entry{Kind: synctree.EntryDirectory, Contents: contents}, nil
	case tagFile:
		meta, err := decodeFileMeta(cursor)
		if err != nil {
			return nil, err
		}
		return &synctree.Entry{Kind: synctree.EntryFile, File: meta}, nil
	case tagSymlink:
		target, err := cursor.readString()
		if err != nil {
			return nil, err
		}
		isDir, err := cursor.readByte()
		if err != nil {
			return nil, err
		}
		return &synctree.Entry{Kind: synctree.EntrySymlink, LinkTarget: target, LinkTargetIsDir: isDir != 0}, nil
	default:
		return nil, errors.Errorf("invalid entry tag %d", tag)
	}
}

func decodeFileMeta(cursor *byteCursor) (synctree.FileMeta, error) {
	var meta synctree.FileMeta
	size, err := cursor.readUint64()
	if err != nil {
		return meta, err
	}
	modTime, err := cursor.readInt64()
	if err != nil {
		return meta, err
	}
	digestLength, err := cursor.readUint32()
	if err != nil {
		return meta, err
	}
	digest, err := cursor.readBytes(int(digestLength))
	if err != nil {
		return meta, err
	}
	meta.Size = size
	meta.ModificationTimeUTC = modTime
	if len(digest) > 0 {
		meta.Digest = digest
	}
	return meta, nil
}

func decodeDirectoryContents(cursor *byteCursor) (map[string]*synctree.Entry, error) {
	count, err := cursor.readUint32()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	contents := make(map[string]*synctree.Entry, count)
	for i := uint32(0); i < count; i++ {
		name, err := cursor.readString()
		if err != nil {
			return nil, err
		}
		child, err := decodeEntry(cursor)
		if err != nil {
			return nil, err
		}
		contents[name] = child
	}
	return contents, nil
}

// byteCursor is a minimal forward-only binary reader used to decode state
// database contents without pulling in an additional dependency for what
// amounts to a handful of fixed-width reads.
type byteCursor struct {
	data   []byte
	offset int
}

func (c *byteCursor) remaining() int {
	return len(c.data) - c.offset
}

func (c *byteCursor) readInto(dst []byte) error {
	if c.remaining() < len(dst) {
		return io.ErrUnexpectedEOF
	}
	copy(dst, c.data[c.offset:c.offset+len(dst)])
	c.offset += len(dst)
	return nil
}

func (c *byteCursor) readBytes(n int) ([]byte, error) {
	if n < 0 || c.remaining() < n {
		return nil, io.ErrUnexpectedEOF
	}
	result := make([]byte, n)
	copy(result, c.data[c.offset:c.offset+n])
	c.offset += n
	return result, nil
}

func (c *byteCursor) readByte() (byte, error) {
	if c.remaining() < 1 {
		return 0, io.ErrUnexpectedEOF
	}
	b := c.data[c.offset]
	c.offset++
	return b, nil
}

func (c *byteCursor) readUint32() (uint32, error) {
	buf, err := c.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func (c *byteCursor) readUint64() (uint64, error) {
	buf, err := c.readBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func (c *byteCursor) readInt64() (int64, error) {
	value, err := c.readUint64()
	return int64(value), err
}

func (c *byteCursor) readString() (string, error) {
	length, err := c.readUint32()
	if err != nil {
		return "", err
	}
	buf, err := c.readBytes(int(length))
	if err != nil {
		return "", err
	}
	return string(buf), nil
}
