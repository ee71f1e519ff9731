package vdisk

// Filetype identifies the on-disk container format a Disk was loaded
// from (or will be saved as), driving codec dispatch by filename
// extension (spec.md §4.C).
type Filetype int

const (
	FiletypeUnknown Filetype = iota
	FiletypeVDK
	FiletypeJVC
	FiletypeDMK
)

// Disk is a reference-counted container of tracks plus geometry and
// format-specific metadata. Tracks are allocated lazily: writing
// cylinder or head N extends both dimensions as needed, zero-filling
// newly added tracks.
type Disk struct {
	refCount int

	NumCylinders int
	NumHeads     int
	TrackLength  int

	WriteBack     bool
	WriteProtect  bool
	Filename      string
	Filetype      Filetype

	// VDKExtra holds any bytes between the 12-byte VDK main header and
	// its declared header_length, retained verbatim for rewrite.
	VDKExtra []byte
	// JVCHeaderless records that this disk was loaded from a JVC/DSK/OS9
	// file with no header (file_size mod 128 == 0), so JVC Save emits no
	// header either, preserving the original layout on round-trip.
	JVCHeaderless bool
	// JVCHeaderlessOS9 additionally records that the headerless geometry
	// was derived from an OS-9 LSN0 descriptor rather than JVC defaults.
	JVCHeaderlessOS9 bool

	sides [][]*Track // sides[head][cyl], grown lazily
}

const (
	maxCylinders = 256
	maxHeads     = 2
)

// roundUp32 rounds n up to the next multiple of 32.
func roundUp32(n int) int {
	return (n + 31) &^ 31
}

// trackLengthFor computes the per-track byte length from the desired
// data rate (bits/s) and rotational speed (rpm), per spec.md §4.C:
// round_up_to_32((data_rate*60)/(8*rpm)) + 128, clamped to
// [MinTrackLength, MaxTrackLength].
func trackLengthFor(dataRate, rpm int) int {
	raw := (dataRate * 60) / (8 * rpm)
	length := roundUp32(raw) + IdamTableSize
	if length < MinTrackLength {
		length = MinTrackLength
	}
	if length > MaxTrackLength {
		length = MaxTrackLength
	}
	return length
}

// New creates an empty disk sized for the given data rate and
// rotational speed, with zero cylinders/heads (grown on first write).
func New(dataRate, rpm int) *Disk {
	return &Disk{
		TrackLength: trackLengthFor(dataRate, rpm),
		refCount:    1,
	}
}

// NewWithGeometry creates an empty disk with a fixed track length and
// preallocated geometry, used by the codecs when the container file
// declares its geometry up front (VDK, DMK headers).
func NewWithGeometry(trackLength, numCylinders, numHeads int) *Disk {
	d := &Disk{
		TrackLength: trackLength,
		refCount:    1,
	}
	d.extend(numCylinders-1, numHeads-1)
	d.NumCylinders = numCylinders
	d.NumHeads = numHeads
	return d
}

// Ref increments the reference count and returns d, mirroring
// vdisk_ref in the original C source.
func (d *Disk) Ref() *Disk {
	d.refCount++
	return d
}

// Unref decrements the reference count; at zero the disk's side arrays
// and metadata are eligible for garbage collection (Go has no explicit
// free, so this simply drops the last reference).
func (d *Disk) Unref() {
	d.refCount--
	if d.refCount <= 0 {
		d.sides = nil
	}
}

// RefCount reports the current reference count (for tests).
func (d *Disk) RefCount() int {
	return d.refCount
}

// trackBase returns the track at (cyl, head) without extending the
// disk's geometry; it reports false if (cyl, head) lies outside the
// currently allocated geometry.
func (d *Disk) trackBase(cyl, head int) (*Track, bool) {
	if head < 0 || head >= len(d.sides) {
		return nil, false
	}
	if cyl < 0 || cyl >= len(d.sides[head]) {
		return nil, false
	}
	t := d.sides[head][cyl]
	if t == nil {
		return nil, false
	}
	return t, true
}

// extend grows the side/cylinder arrays as needed to cover (cyl, head),
// zero-filling any newly added tracks, and returns the track there.
func (d *Disk) extend(cyl, head int) *Track {
	for len(d.sides) <= head {
		d.sides = append(d.sides, nil)
	}
	for len(d.sides[head]) <= cyl {
		d.sides[head] = append(d.sides[head], nil)
	}
	if d.sides[head][cyl] == nil {
		d.sides[head][cyl] = newTrack(d.TrackLength)
	}
	if cyl+1 > d.NumCylinders {
		d.NumCylinders = cyl + 1
	}
	if head+1 > d.NumHeads {
		d.NumHeads = head + 1
	}
	return d.sides[head][cyl]
}

// Track returns the track at (cyl, head), extending the disk's
// geometry (and zero-filling) if it doesn't exist yet.
func (d *Disk) Track(cyl, head int) (*Track, *Error) {
	if cyl < 0 || cyl >= maxCylinders || head < 0 || head >= maxHeads {
		return nil, newErr("Track", BadGeometry)
	}
	return d.extend(cyl, head), nil
}

// TrackIfPresent returns the track at (cyl, head) only if it has
// already been allocated, without growing the geometry.
func (d *Disk) TrackIfPresent(cyl, head int) (*Track, bool) {
	return d.trackBase(cyl, head)
}
