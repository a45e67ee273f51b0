package vision

// Constants for blob extraction configuration
const (
	// DefaultMinBlobWidth is the minimum bounding-box width for a region to
	// count as a vehicle rather than noise or shadow.
	DefaultMinBlobWidth = 80
	// DefaultMinBlobHeight is the minimum bounding-box height for a region to
	// count as a vehicle rather than noise or shadow.
	DefaultMinBlobHeight = 80
)

// Blob is one connected foreground region that passed the size filter.
// Blobs are ephemeral: they exist only long enough to be tested against the
// counting line and are then discarded.
type Blob struct {
	X, Y          int // bounding box origin
	Width, Height int
	CX, CY        int   // centroid: (X + Width/2, Y + Height/2)
	Seq           int64 // source frame index
	Pixels        int   // foreground pixels inside the region
}

// BlobExtractor finds connected foreground regions in a mask and filters them
// by minimum bounding-box size. Regions below the minimum are discarded as
// noise artifacts, not vehicles.
type BlobExtractor struct {
	MinWidth  int
	MinHeight int
}

// NewBlobExtractor returns an extractor with the given size filter. Zero or
// negative minimums fall back to the defaults.
func NewBlobExtractor(minWidth, minHeight int) *BlobExtractor {
	if minWidth <= 0 {
		minWidth = DefaultMinBlobWidth
	}
	if minHeight <= 0 {
		minHeight = DefaultMinBlobHeight
	}
	return &BlobExtractor{MinWidth: minWidth, MinHeight: minHeight}
}

// Extract labels 8-connected regions in the mask and returns the blobs whose
// bounding boxes meet the size filter. seq is the source frame index stamped
// onto each blob.
func (be *BlobExtractor) Extract(mask *Mask, seq int64) []Blob {
	if mask == nil || mask.Width <= 0 || mask.Height <= 0 {
		return nil
	}
	w, h := mask.Width, mask.Height
	visited := make([]bool, w*h)
	var blobs []Blob

	// queue reused across regions to limit allocation churn
	queue := make([]int, 0, 256)

	for start, b := range mask.Bits {
		if b == 0 || visited[start] {
			continue
		}

		minX, minY := start%w, start/w
		maxX, maxY := minX, minY
		pixels := 0

		queue = queue[:0]
		queue = append(queue, start)
		visited[start] = true

		for len(queue) > 0 {
			idx := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x, y := idx%w, idx/w
			pixels++

			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}

			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if nx < 0 || nx >= w {
						continue
					}
					nIdx := ny*w + nx
					if mask.Bits[nIdx] == 0 || visited[nIdx] {
						continue
					}
					visited[nIdx] = true
					queue = append(queue, nIdx)
				}
			}
		}

		bw := maxX - minX + 1
		bh := maxY - minY + 1
		if bw < be.MinWidth || bh < be.MinHeight {
			continue
		}
		blobs = append(blobs, Blob{
			X:      minX,
			Y:      minY,
			Width:  bw,
			Height: bh,
			CX:     minX + bw/2,
			CY:     minY + bh/2,
			Seq:    seq,
			Pixels: pixels,
		})
	}
	return blobs
}
