package exr

import (
	"errors"
	"io"

	"github.com/mrjoshuak/go-openexr/internal/xdr"
)

// File errors
var (
	ErrNotEXR        = errors.New("exr: not an OpenEXR file")
	ErrInvalidFile   = errors.New("exr: invalid file")
	ErrUnsupportedVersion = errors.New("exr: unsupported file version")
)

// MagicNumber is the four-byte signature at the start of every EXR file.
var MagicNumber = []byte{0x76, 0x2f, 0x31, 0x01}

const (
	versionFieldTiled     = uint32(1) << 9
	versionFieldLongNames = uint32(1) << 10
	versionFieldDeep      = uint32(1) << 11
	versionFieldMultipart = uint32(1) << 12
)

// MakeVersionField packs the format version and feature flags into the
// 4-byte version field that follows the magic number.
func MakeVersionField(version uint8, tiled, longNames, deep, multipart bool) uint32 {
	v := uint32(version)
	if tiled {
		v |= versionFieldTiled
	}
	if longNames {
		v |= versionFieldLongNames
	}
	if deep {
		v |= versionFieldDeep
	}
	if multipart {
		v |= versionFieldMultipart
	}
	return v
}

// File represents an opened, parsed OpenEXR file. Only single-part files
// are supported; NumParts always reports 1.
type File struct {
	r       io.ReaderAt
	size    int64
	closer  io.Closer
	version uint32
	header  *Header
	offsets []int64
	dataOff int64
}

// OpenReader parses an EXR file's magic number, version field, header, and
// chunk offset table from r, which must span exactly size bytes.
func OpenReader(r io.ReaderAt, size int64) (*File, error) {
	if size < 8 {
		return nil, ErrNotEXR
	}

	lead := make([]byte, 8)
	if _, err := r.ReadAt(lead, 0); err != nil {
		return nil, err
	}
	for i, b := range MagicNumber {
		if lead[i] != b {
			return nil, ErrNotEXR
		}
	}

	version := xdr.ByteOrder.Uint32(lead[4:8])
	if version&0xff != 2 {
		return nil, ErrUnsupportedVersion
	}
	if version&versionFieldMultipart != 0 {
		return nil, errors.New("exr: multi-part files are not supported")
	}

	rest := make([]byte, size-8)
	if _, err := r.ReadAt(rest, 8); err != nil && err != io.EOF {
		return nil, err
	}

	reader := xdr.NewReader(rest)
	header, err := ReadHeader(reader)
	if err != nil {
		return nil, err
	}
	if err := header.Validate(); err != nil {
		return nil, err
	}

	linesPerChunk := header.Compression().ScanlinesPerChunk()
	numChunks := (header.Height() + linesPerChunk - 1) / linesPerChunk
	if header.IsTiled() {
		td := header.TileDescription()
		if td == nil {
			return nil, ErrInvalidHeader
		}
		xTiles := (header.Width() + int(td.XSize) - 1) / int(td.XSize)
		yTiles := (header.Height() + int(td.YSize) - 1) / int(td.YSize)
		numChunks = xTiles * yTiles
	}

	offsets := make([]int64, numChunks)
	for i := range offsets {
		off, err := reader.ReadUint64()
		if err != nil {
			return nil, err
		}
		offsets[i] = int64(off)
	}

	return &File{
		r:       r,
		size:    size,
		version: version,
		header:  header,
		offsets: offsets,
		dataOff: 8 + int64(reader.Pos()),
	}, nil
}

// Header returns the header for the given part. Only part 0 exists.
func (f *File) Header(part int) *Header {
	if part != 0 {
		return nil
	}
	return f.header
}

// IsDeep reports whether part 0 stores deep data.
func (f *File) IsDeep() bool {
	return f.header.IsDeep()
}

// IsMultiPart always returns false; multi-part files are not supported.
func (f *File) IsMultiPart() bool {
	return false
}

// NumParts always returns 1.
func (f *File) NumParts() int {
	return 1
}

// OffsetsRef returns the chunk offset table for the given part.
func (f *File) OffsetsRef(part int) []int64 {
	if part != 0 {
		return nil
	}
	return f.offsets
}

// ReadDeepChunk reads the chunk at chunkIndex and returns its starting
// scanline, compressed sample-count table, and compressed pixel data.
func (f *File) ReadDeepChunk(part, chunkIndex int) (chunkY int32, sampleCounts, pixelData []byte, err error) {
	if part != 0 {
		return 0, nil, nil, ErrInvalidFile
	}
	if chunkIndex < 0 || chunkIndex >= len(f.offsets) {
		return 0, nil, nil, ErrInvalidFile
	}

	off := f.offsets[chunkIndex]
	head := make([]byte, 20)
	if _, err := f.r.ReadAt(head, off); err != nil {
		return 0, nil, nil, err
	}

	hr := xdr.NewReader(head)
	y, err := hr.ReadInt32()
	if err != nil {
		return 0, nil, nil, err
	}
	sampleCountSize, err := hr.ReadUint64()
	if err != nil {
		return 0, nil, nil, err
	}
	pixelDataSize, err := hr.ReadUint64()
	if err != nil {
		return 0, nil, nil, err
	}

	sampleCounts = make([]byte, sampleCountSize)
	if sampleCountSize > 0 {
		if _, err := f.r.ReadAt(sampleCounts, off+20); err != nil {
			return 0, nil, nil, err
		}
	}

	pixelData = make([]byte, pixelDataSize)
	if pixelDataSize > 0 {
		if _, err := f.r.ReadAt(pixelData, off+20+int64(sampleCountSize)); err != nil {
			return 0, nil, nil, err
		}
	}

	return y, sampleCounts, pixelData, nil
}

// Close releases the underlying file handle or memory mapping, if any.
func (f *File) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}
