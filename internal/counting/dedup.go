package counting

// Constants for crossing detection configuration
const (
	// DefaultCrossingOffset is the half-height in pixels of the band around
	// the counting line inside which a centroid is a candidate crossing.
	DefaultCrossingOffset = 6
	// DefaultDedupRadius is the spatial proximity in pixels within which two
	// candidates are considered the same vehicle.
	DefaultDedupRadius = 30
	// DefaultCooldownFrames is the number of frames a crossing suppresses
	// nearby candidates as duplicates.
	DefaultCooldownFrames = 15
)

// CrossingRecord remembers one accepted crossing for deduplication. Records
// live only while (currentSeq - Seq) < the cooldown window and are never
// persisted beyond that.
type CrossingRecord struct {
	CX, CY int
	Seq    int64
}

// CrossingDeduplicator tests centroids against a horizontal counting line and
// a short history of recent crossings so each vehicle is counted at most once.
// It is owned by a single lane worker.
type CrossingDeduplicator struct {
	LineY          int // counting line y position
	Offset         int // candidate band half-height
	Radius         int // spatial dedup radius
	CooldownFrames int64

	history []CrossingRecord
}

// NewCrossingDeduplicator returns a deduplicator for the given counting line.
// Non-positive tuning values fall back to the defaults.
func NewCrossingDeduplicator(lineY, offset, radius int, cooldownFrames int64) *CrossingDeduplicator {
	if offset <= 0 {
		offset = DefaultCrossingOffset
	}
	if radius <= 0 {
		radius = DefaultDedupRadius
	}
	if cooldownFrames <= 0 {
		cooldownFrames = DefaultCooldownFrames
	}
	return &CrossingDeduplicator{
		LineY:          lineY,
		Offset:         offset,
		Radius:         radius,
		CooldownFrames: cooldownFrames,
	}
}

// Observe evaluates one centroid at frame seq. It returns true when the
// centroid is inside the counting band and no retained record is within the
// spatial radius and cooldown window; the caller then increments the lane
// counter. Accepted crossings are appended to the history.
//
// Prune must be called once per frame to keep the history bounded.
func (d *CrossingDeduplicator) Observe(cx, cy int, seq int64) bool {
	if abs(cy-d.LineY) >= d.Offset {
		return false
	}
	for _, prev := range d.history {
		if abs(cx-prev.CX) < d.Radius && abs(cy-prev.CY) < d.Radius && seq-prev.Seq < d.CooldownFrames {
			return false
		}
	}
	d.history = append(d.history, CrossingRecord{CX: cx, CY: cy, Seq: seq})
	return true
}

// Prune drops records whose cooldown window has elapsed, bounding the history
// to the crossings of the last CooldownFrames frames.
func (d *CrossingDeduplicator) Prune(seq int64) {
	kept := d.history[:0]
	for _, r := range d.history {
		if seq-r.Seq < d.CooldownFrames {
			kept = append(kept, r)
		}
	}
	d.history = kept
}

// HistoryLen returns the number of retained crossing records.
func (d *CrossingDeduplicator) HistoryLen() int { return len(d.history) }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
