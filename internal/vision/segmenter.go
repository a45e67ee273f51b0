package vision

import "math"

// Constants for motion segmentation configuration
const (
	// DefaultLearningRate is the default background EMA update fraction.
	DefaultLearningRate = 0.05
	// DefaultClosenessMultiplier scales the per-pixel spread into the
	// foreground decision threshold.
	DefaultClosenessMultiplier = 2.5
	// DefaultSpreadFloorLevels is the minimum deviation (luminance levels)
	// a pixel must show before it can be called foreground. Protects against
	// sensor noise on perfectly settled pixels.
	DefaultSpreadFloorLevels = 6.0
	// DefaultWarmupFrames is the number of frames used to seed the background
	// model before any foreground output is produced.
	DefaultWarmupFrames = 5
	// DefaultReacquisitionBoost multiplies the learning rate for pixels that
	// recently saw foreground so the model re-converges quickly after a
	// vehicle has passed. Boosted alpha is capped at 0.5 for stability.
	DefaultReacquisitionBoost = 5.0
)

// SegmenterParams configures a MotionSegmenter. Zero or negative fields fall
// back to the package defaults, so a zero value is usable.
type SegmenterParams struct {
	LearningRate        float64 // background EMA fraction per frame
	ClosenessMultiplier float64 // threshold = multiplier * (spread + floor)
	SpreadFloorLevels   float64 // additive threshold floor in luminance levels
	WarmupFrames        int     // frames of pure background seeding
	ReacquisitionBoost  float64 // alpha multiplier after foreground clears
	BlurRadius          int     // box blur radius applied before classification
	DilateRadius        int     // structuring element radius for dilation
	CloseRadius         int     // structuring element radius for closing
	ClosePasses         int     // number of morphological close passes
}

// DefaultSegmenterParams returns parameters tuned for roadside lane footage.
func DefaultSegmenterParams() SegmenterParams {
	return SegmenterParams{
		LearningRate:        DefaultLearningRate,
		ClosenessMultiplier: DefaultClosenessMultiplier,
		SpreadFloorLevels:   DefaultSpreadFloorLevels,
		WarmupFrames:        DefaultWarmupFrames,
		ReacquisitionBoost:  DefaultReacquisitionBoost,
		BlurRadius:          1,
		DilateRadius:        2,
		CloseRadius:         2,
		ClosePasses:         2,
	}
}

func (p SegmenterParams) normalized() SegmenterParams {
	if p.LearningRate <= 0 || p.LearningRate > 1 {
		p.LearningRate = DefaultLearningRate
	}
	if p.ClosenessMultiplier <= 0 {
		p.ClosenessMultiplier = DefaultClosenessMultiplier
	}
	if p.SpreadFloorLevels <= 0 {
		p.SpreadFloorLevels = DefaultSpreadFloorLevels
	}
	if p.WarmupFrames < 0 {
		p.WarmupFrames = DefaultWarmupFrames
	}
	if p.ReacquisitionBoost <= 0 {
		p.ReacquisitionBoost = DefaultReacquisitionBoost
	}
	if p.BlurRadius < 0 {
		p.BlurRadius = 0
	}
	if p.DilateRadius < 0 {
		p.DilateRadius = 0
	}
	if p.CloseRadius < 0 {
		p.CloseRadius = 0
	}
	if p.ClosePasses < 0 {
		p.ClosePasses = 0
	}
	return p
}

// MotionSegmenter maintains one lane's adaptive background model and converts
// frames into binary foreground masks. Each pixel tracks an EMA of its
// luminance and an EMA of its absolute deviation; a pixel whose blurred value
// diverges beyond multiplier*(spread+floor) is foreground. The model is owned
// by a single lane worker and must not be shared across lanes.
type MotionSegmenter struct {
	width  int
	height int
	params SegmenterParams

	mean     []float32
	spread   []float32
	recentFg []uint8 // per-pixel count of recent foreground hits, saturating
	frames   int64

	// scratch buffers reused across frames
	blurred []uint8
	tmpMask []uint8
}

// NewMotionSegmenter creates a segmenter for frames of the given geometry.
func NewMotionSegmenter(width, height int, params SegmenterParams) *MotionSegmenter {
	ms := &MotionSegmenter{params: params.normalized()}
	ms.reset(width, height)
	return ms
}

func (ms *MotionSegmenter) reset(w, h int) {
	ms.width = w
	ms.height = h
	n := w * h
	ms.mean = make([]float32, n)
	ms.spread = make([]float32, n)
	ms.recentFg = make([]uint8, n)
	ms.blurred = make([]uint8, n)
	ms.tmpMask = make([]uint8, n)
	ms.frames = 0
}

// FrameCount returns the number of frames the model has absorbed.
func (ms *MotionSegmenter) FrameCount() int64 { return ms.frames }

// Apply classifies one frame against the background model, updates the model,
// and returns the cleaned foreground mask. During warmup the model is seeded
// but the returned mask is all background. A frame whose geometry differs from
// the model resets the model (camera reconfiguration).
func (ms *MotionSegmenter) Apply(f *Frame) *Mask {
	if f == nil || len(f.Pix) != f.Width*f.Height {
		return NewMask(ms.width, ms.height)
	}
	if f.Width != ms.width || f.Height != ms.height {
		ms.reset(f.Width, f.Height)
	}
	ms.frames++

	src := f.Pix
	if ms.params.BlurRadius > 0 {
		boxBlur(src, ms.blurred, ms.width, ms.height, ms.params.BlurRadius)
		src = ms.blurred
	}

	warmup := ms.frames <= int64(ms.params.WarmupFrames)
	seed := ms.frames == 1

	alpha := ms.params.LearningRate
	k := ms.params.ClosenessMultiplier
	floor := ms.params.SpreadFloorLevels
	boost := ms.params.ReacquisitionBoost

	mask := NewMask(ms.width, ms.height)
	for i, v := range src {
		val := float64(v)
		if seed {
			ms.mean[i] = float32(val)
			continue
		}

		diff := math.Abs(val - float64(ms.mean[i]))
		threshold := k * (float64(ms.spread[i]) + floor)
		foreground := diff > threshold && !warmup

		if foreground {
			mask.Bits[i] = 1
			if ms.recentFg[i] < 255 {
				ms.recentFg[i]++
			}
			// Foreground pixels do not pull the background toward the
			// vehicle; the model only absorbs them once they clear.
			continue
		}

		updateAlpha := alpha
		if ms.recentFg[i] > 0 {
			updateAlpha = math.Min(alpha*boost, 0.5)
			ms.recentFg[i]--
		}
		oldMean := float64(ms.mean[i])
		ms.mean[i] = float32((1-updateAlpha)*oldMean + updateAlpha*val)
		ms.spread[i] = float32((1-updateAlpha)*float64(ms.spread[i]) + updateAlpha*diff)
	}

	if warmup {
		return NewMask(ms.width, ms.height)
	}

	if ms.params.DilateRadius > 0 {
		dilate(mask, ms.tmpMask, ms.params.DilateRadius)
	}
	for pass := 0; pass < ms.params.ClosePasses; pass++ {
		if ms.params.CloseRadius > 0 {
			dilate(mask, ms.tmpMask, ms.params.CloseRadius)
			erode(mask, ms.tmpMask, ms.params.CloseRadius)
		}
	}
	return mask
}

// boxBlur writes a clamped-edge box blur of src into dst.
func boxBlur(src, dst []uint8, w, h, radius int) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum, n := 0, 0
			for dy := -radius; dy <= radius; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				row := yy * w
				for dx := -radius; dx <= radius; dx++ {
					xx := x + dx
					if xx < 0 || xx >= w {
						continue
					}
					sum += int(src[row+xx])
					n++
				}
			}
			dst[y*w+x] = uint8(sum / n)
		}
	}
}

// dilate grows foreground regions by a square structuring element.
func dilate(m *Mask, scratch []uint8, radius int) {
	w, h := m.Width, m.Height
	copy(scratch, m.Bits)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if scratch[y*w+x] != 0 {
				continue
			}
			if anyNeighborSet(scratch, w, h, x, y, radius) {
				m.Bits[y*w+x] = 1
			}
		}
	}
}

// erode shrinks foreground regions by a square structuring element.
func erode(m *Mask, scratch []uint8, radius int) {
	w, h := m.Width, m.Height
	copy(scratch, m.Bits)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if scratch[y*w+x] == 0 {
				continue
			}
			if !allNeighborsSet(scratch, w, h, x, y, radius) {
				m.Bits[y*w+x] = 0
			}
		}
	}
}

func anyNeighborSet(bits []uint8, w, h, x, y, radius int) bool {
	for dy := -radius; dy <= radius; dy++ {
		yy := y + dy
		if yy < 0 || yy >= h {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			xx := x + dx
			if xx < 0 || xx >= w {
				continue
			}
			if bits[yy*w+xx] != 0 {
				return true
			}
		}
	}
	return false
}

func allNeighborsSet(bits []uint8, w, h, x, y, radius int) bool {
	for dy := -radius; dy <= radius; dy++ {
		yy := y + dy
		if yy < 0 || yy >= h {
			return false
		}
		for dx := -radius; dx <= radius; dx++ {
			xx := x + dx
			if xx < 0 || xx >= w {
				return false
			}
			if bits[yy*w+xx] == 0 {
				return false
			}
		}
	}
	return true
}
