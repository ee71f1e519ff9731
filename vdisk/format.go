package vdisk

const (
	ssizeEncoded = 0xE5 // data fill byte for freshly formatted sectors
	idamMark     = 0xFE
	damMark      = 0xFB
)

// ssizeFromCode converts a WD279x sector-size code (0-3) to bytes:
// 128 << code.
func ssizeFromCode(code int) int {
	return 128 << uint(code)
}

// computeInterleave returns, for each physical slot (0..n-1) in
// emission order, the logical sector index to place there. It
// reproduces the source algorithm exactly: starting index = -interleave;
// step by interleave (mod n) for each sector in turn; if the resulting
// slot is already taken, advance by one until a free slot is found.
func computeInterleave(n, interleave int) []int {
	if n <= 0 {
		return nil
	}
	occupied := make([]bool, n)
	order := make([]int, n)
	slot := -interleave
	for i := 0; i < n; i++ {
		slot = ((slot+interleave)%n + n) % n
		for occupied[slot] {
			slot = (slot + 1) % n
		}
		occupied[slot] = true
		order[slot] = i
	}
	return order
}

// FormatParams bundles the formatter inputs, replacing the C source's
// global `interleave_sd`/`interleave_dd` with explicit, per-call state
// per spec.md's REDESIGN FLAGS.
type FormatParams struct {
	DoubleDensity bool
	NumSectors    int
	FirstSector   int
	SsizeCode     int
	Interleave    int
}

// FormatTrack synthesizes a complete, legal track at (cyl, head): gaps,
// sync, IDAM, DAM, sector data (filled with 0xE5) and CRCs, with
// sectors placed according to the configured interleave.
func FormatTrack(ctx *Ctx, p FormatParams, cyl, head int) *Error {
	if p.NumSectors <= 0 || p.NumSectors > NumIdamEntries {
		return newErr("FormatTrack", TooManySectors)
	}
	t, err := ctx.seekTrack(cyl, head)
	if err != nil {
		return err
	}

	ctx.Density = SingleDensity
	if p.DoubleDensity {
		ctx.Density = DoubleDensity
	}

	order := computeInterleave(p.NumSectors, p.Interleave)
	ssize := ssizeFromCode(p.SsizeCode)

	var idams []IdamEntry
	if p.DoubleDensity {
		idams = formatDoubleDensity(ctx, t, order, p, ssize, cyl, head)
	} else {
		idams = formatSingleDensity(ctx, t, order, p, ssize, cyl, head)
	}
	t.setIdams(idams)
	return nil
}

func formatSingleDensity(ctx *Ctx, t *Track, order []int, p FormatParams, ssize, cyl, head int) []IdamEntry {
	fill := func(n int, b byte) {
		for i := 0; i < n; i++ {
			ctx.writeByteNoCRC(t, b)
		}
	}

	idams := make([]IdamEntry, 0, p.NumSectors)

	fill(20, 0xFF) // pre-index gap

	for _, sector := range order {
		fill(6, 0x00) // sync
		ctx.resetCRC()
		idams = append(idams, IdamEntry{Offset: uint16(ctx.HeadPos), Density: SingleDensity})
		ctx.writeByte(t, idamMark)
		ctx.writeByte(t, byte(cyl))
		ctx.writeByte(t, byte(head))
		ctx.writeByte(t, byte(sector+p.FirstSector))
		ctx.writeByte(t, byte(p.SsizeCode))
		crcBytes := ctx.crc.Bytes()
		ctx.writeByteNoCRC(t, crcBytes[0])
		ctx.writeByteNoCRC(t, crcBytes[1])

		fill(11, 0xFF) // post-IDAM gap

		fill(6, 0x00) // sync
		ctx.resetCRC()
		ctx.writeByte(t, damMark)
		for i := 0; i < ssize; i++ {
			ctx.writeByte(t, ssizeEncoded)
		}
		crcBytes = ctx.crc.Bytes()
		ctx.writeByteNoCRC(t, crcBytes[0])
		ctx.writeByteNoCRC(t, crcBytes[1])

		fill(12, 0xFF) // post-data gap
	}

	for ctx.HeadPos < t.Len() {
		ctx.writeByteNoCRC(t, 0xFF)
	}
	return idams
}

func formatDoubleDensity(ctx *Ctx, t *Track, order []int, p FormatParams, ssize, cyl, head int) []IdamEntry {
	n := p.NumSectors
	remaining := t.Len() - ((ssize+58)*n) - 87
	pigap := 8 + remaining*46/584
	gap2 := 16 + remaining*76/(584*n)
	gap3 := 1 + remaining*412/(584*n)

	fill := func(cnt int, b byte) {
		for i := 0; i < cnt; i++ {
			ctx.writeByteNoCRC(t, b)
		}
	}

	idams := make([]IdamEntry, 0, n)

	fill(pigap, 0x4E)
	fill(9, 0x00)
	fill(3, 0xC2)
	ctx.writeByteNoCRC(t, 0xFC)
	fill(32, 0x4E)

	for _, sector := range order {
		fill(8, 0x00)
		ctx.resetCRC() // feeds the 3 synthetic 0xA1 sync bytes
		fill(3, 0xA1)
		idams = append(idams, IdamEntry{Offset: uint16(ctx.HeadPos), Density: DoubleDensity})
		ctx.writeByte(t, idamMark)
		ctx.writeByte(t, byte(cyl))
		ctx.writeByte(t, byte(head))
		ctx.writeByte(t, byte(sector+p.FirstSector))
		ctx.writeByte(t, byte(p.SsizeCode))
		crcBytes := ctx.crc.Bytes()
		ctx.writeByteNoCRC(t, crcBytes[0])
		ctx.writeByteNoCRC(t, crcBytes[1])

		fill(gap2, 0x4E)
		fill(12, 0x00)
		ctx.resetCRC()
		fill(3, 0xA1)
		ctx.writeByte(t, damMark)
		for i := 0; i < ssize; i++ {
			ctx.writeByte(t, ssizeEncoded)
		}
		crcBytes = ctx.crc.Bytes()
		ctx.writeByteNoCRC(t, crcBytes[0])
		ctx.writeByteNoCRC(t, crcBytes[1])

		fill(gap3, 0x4E)
	}

	for ctx.HeadPos < t.Len() {
		ctx.writeByteNoCRC(t, 0x4E)
	}
	return idams
}
