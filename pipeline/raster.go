package pipeline

// Raster is the dense, row-major, premultiplied RGBA output of one pipeline
// run: length Width * Height * 4.
type Raster struct {
	Width  int
	Height int
	Data   []float32
}

// NewRaster allocates a zeroed raster of the given dimensions.
func NewRaster(width, height int) *Raster {
	return &Raster{
		Width:  width,
		Height: height,
		Data:   make([]float32, width*height*4),
	}
}

// At returns the (r, g, b, a) tuple stored at pixel (x, y).
func (r *Raster) At(x, y int) (rr, gg, bb, aa float32) {
	off := 4 * (y*r.Width + x)
	return r.Data[off], r.Data[off+1], r.Data[off+2], r.Data[off+3]
}

// Set stores the (r, g, b, a) tuple at pixel (x, y).
func (r *Raster) Set(x, y int, rr, gg, bb, aa float32) {
	off := 4 * (y*r.Width + x)
	r.Data[off] = rr
	r.Data[off+1] = gg
	r.Data[off+2] = bb
	r.Data[off+3] = aa
}
