package exr

import (
	"io"

	"github.com/mrjoshuak/go-openexr/compression"
	"github.com/mrjoshuak/go-openexr/internal/predictor"
	"github.com/mrjoshuak/go-openexr/internal/xdr"
)

// ScanlineWriter writes a regular (non-deep) scanline EXR, one fixed-size
// pixel per channel per pixel, as opposed to DeepScanlineWriter's
// variable-sample-count chunks.
type ScanlineWriter struct {
	w          io.WriteSeeker
	header     *Header
	channels   *ChannelList
	fb         *FrameBuffer
	dataWindow Box2i

	initialized    bool
	currentY       int
	chunkOffsets   []int64
	offsetTablePos int64
}

// NewScanlineWriter creates a writer for a flat scanline EXR of the given
// dimensions, defaulting to ZIPS compression like DeepScanlineWriter.
func NewScanlineWriter(w io.WriteSeeker, width, height int) (*ScanlineWriter, error) {
	header := NewHeader()
	header.SetCompression(CompressionZIPS)
	box := Box2i{Min: V2i{0, 0}, Max: V2i{int32(width - 1), int32(height - 1)}}
	header.SetDataWindow(box)
	header.SetDisplayWindow(box)

	return &ScanlineWriter{w: w, header: header, dataWindow: box}, nil
}

// Header returns the header for configuration before WritePixels is called.
func (sw *ScanlineWriter) Header() *Header { return sw.header }

// SetFrameBuffer sets the frame buffer pixels are read from, deriving the
// on-disk channel list from its slice names if one has not been set.
func (sw *ScanlineWriter) SetFrameBuffer(fb *FrameBuffer) {
	sw.fb = fb
	if sw.channels == nil {
		sw.channels = NewChannelList()
		for _, name := range fb.Names() {
			slice := fb.Get(name)
			sw.channels.Add(Channel{Name: name, Type: slice.Type, XSampling: 1, YSampling: 1})
		}
		sw.header.SetChannels(sw.channels)
	}
}

func (sw *ScanlineWriter) initialize() error {
	if sw.initialized {
		return nil
	}

	if _, err := sw.w.Write(MagicNumber); err != nil {
		return err
	}
	versionField := MakeVersionField(2, false, false, false, false)
	versionBuf := make([]byte, 4)
	xdr.ByteOrder.PutUint32(versionBuf, versionField)
	if _, err := sw.w.Write(versionBuf); err != nil {
		return err
	}

	headerBuf := xdr.NewBufferWriter(1024)
	if err := WriteHeader(headerBuf, sw.header); err != nil {
		return err
	}
	if _, err := sw.w.Write(headerBuf.Bytes()); err != nil {
		return err
	}

	height := int(sw.dataWindow.Height())
	linesPerChunk := sw.header.Compression().ScanlinesPerChunk()
	numChunks := (height + linesPerChunk - 1) / linesPerChunk

	sw.offsetTablePos, _ = sw.w.Seek(0, io.SeekCurrent)
	sw.chunkOffsets = make([]int64, numChunks)
	offsetTable := make([]byte, numChunks*8)
	if _, err := sw.w.Write(offsetTable); err != nil {
		return err
	}

	sw.currentY = int(sw.dataWindow.Min.Y)
	sw.initialized = true
	return nil
}

// WritePixels writes numScanlines worth of chunks starting at the writer's
// current row.
func (sw *ScanlineWriter) WritePixels(numScanlines int) error {
	if sw.fb == nil {
		return ErrInvalidSlice
	}
	if !sw.initialized {
		if err := sw.initialize(); err != nil {
			return err
		}
	}

	width := int(sw.dataWindow.Width())
	linesPerChunk := sw.header.Compression().ScanlinesPerChunk()
	comp := sw.header.Compression()
	channels := sw.sortedChannels()

	y := sw.currentY
	endY := y + numScanlines
	yMin := int(sw.dataWindow.Min.Y)

	for y < endY {
		chunkIndex := (y - yMin) / linesPerChunk
		chunkY := yMin + chunkIndex*linesPerChunk

		linesInChunk := linesPerChunk
		remaining := int(sw.dataWindow.Max.Y) - chunkY + 1
		if linesInChunk > remaining {
			linesInChunk = remaining
		}

		offset, _ := sw.w.Seek(0, io.SeekCurrent)
		if chunkIndex < len(sw.chunkOffsets) {
			sw.chunkOffsets[chunkIndex] = offset
		}

		if err := sw.writeChunk(chunkY, linesInChunk, width, channels, comp); err != nil {
			return err
		}
		y = chunkY + linesInChunk
	}

	sw.currentY = y
	return nil
}

func (sw *ScanlineWriter) writeChunk(chunkY, linesInChunk, width int, channels []Channel, comp Compression) error {
	bytesPerPixel := 0
	for _, ch := range channels {
		bytesPerPixel += ch.Type.Size()
	}

	writer := xdr.NewBufferWriter(width * linesInChunk * bytesPerPixel)
	yMin := int(sw.dataWindow.Min.Y)
	for ly := 0; ly < linesInChunk; ly++ {
		fbY := chunkY + ly - yMin
		for _, ch := range channels {
			slice := sw.fb.Get(ch.Name)
			for x := 0; x < width; x++ {
				switch ch.Type {
				case PixelTypeHalf:
					writer.WriteUint16(uint16(slice.GetHalf(x, fbY)))
				case PixelTypeFloat:
					writer.WriteFloat32(slice.GetFloat32(x, fbY))
				case PixelTypeUint:
					writer.WriteUint32(slice.GetUint32(x, fbY))
				}
			}
		}
	}

	compressed, err := sw.compressData(writer.Bytes(), comp)
	if err != nil {
		return err
	}

	chunkHeader := make([]byte, 8)
	xdr.ByteOrder.PutUint32(chunkHeader[0:4], uint32(chunkY))
	xdr.ByteOrder.PutUint32(chunkHeader[4:8], uint32(len(compressed)))
	if _, err := sw.w.Write(chunkHeader); err != nil {
		return err
	}
	_, err = sw.w.Write(compressed)
	return err
}

func (sw *ScanlineWriter) compressData(data []byte, comp Compression) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	switch comp {
	case CompressionNone:
		return data, nil
	case CompressionRLE:
		encoded := make([]byte, len(data))
		copy(encoded, data)
		predictor.EncodeSIMD(encoded)
		return compression.RLECompress(encoded), nil
	default:
		encoded := make([]byte, len(data))
		copy(encoded, data)
		predictor.EncodeSIMD(encoded)
		var interleaved []byte
		if len(encoded) >= 32 {
			interleaved = compression.InterleaveFast(encoded)
		} else {
			interleaved = compression.Interleave(encoded)
		}
		return compression.ZIPCompressLevel(interleaved, compression.CompressionLevel(sw.header.ZIPLevel()))
	}
}

func (sw *ScanlineWriter) sortedChannels() []Channel {
	if sw.channels == nil {
		return nil
	}
	channels := sw.channels.Channels()
	sortChannelsByName(channels)
	return channels
}

// Finalize writes the chunk offset table.
func (sw *ScanlineWriter) Finalize() error {
	if !sw.initialized {
		return nil
	}
	end, err := sw.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	if _, err := sw.w.Seek(sw.offsetTablePos, io.SeekStart); err != nil {
		return err
	}
	offsetBuf := make([]byte, len(sw.chunkOffsets)*8)
	for i, off := range sw.chunkOffsets {
		xdr.ByteOrder.PutUint64(offsetBuf[i*8:], uint64(off))
	}
	if _, err := sw.w.Write(offsetBuf); err != nil {
		return err
	}

	_, err = sw.w.Seek(end, io.SeekStart)
	return err
}
