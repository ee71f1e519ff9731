// Package wd279x emulates the WD279x family floppy disk controller:
// command decode, the 25-state execution engine, and the status/data
// register semantics a host CPU observes on its 4-register bus
// (spec.md §4.H).
package wd279x

// Status register bits. Their meaning in bits 1, 2 and 5 depends on
// whether the most recently accepted command was Type I or Type
// II/III (spec.md §3 "FDC state").
const (
	statusBusy          byte = 1 << 0
	statusIndexOrDRQ     = 1 << 1
	statusTr00OrLostData = 1 << 2
	statusCRCError       = 1 << 3
	statusSeekErrOrRNF   = 1 << 4
	statusHeadLoadedOrRT = 1 << 5
	statusWriteProtect   = 1 << 6
	statusNotReady       = 1 << 7
)

// commandType classifies a command register value by its top nibble.
type commandType int

const (
	typeI commandType = iota
	typeII
	typeIII
	typeIV
)

func decodeType(cmd byte) commandType {
	switch cmd >> 4 {
	case 0x0, 0x1, 0x2, 0x3, 0x4, 0x5, 0x6, 0x7:
		return typeI
	case 0x8, 0x9, 0xA, 0xB:
		return typeII
	case 0xC, 0xE, 0xF:
		return typeIII
	default: // 0xD
		return typeIV
	}
}

// stepRateMS maps Type I bits {0,1} to the settle delay in milliseconds.
var stepRateMS = [4]int{6, 12, 20, 30}

// state names the 25 execution states spec.md §4.H enumerates.
type state int

const (
	stateAcceptCommand state = iota
	stateType1_1
	stateType1_2
	stateType1_3
	stateVerifyTrack1
	stateVerifyTrack2
	stateType2_1
	stateType2_2
	stateReadSector1
	stateReadSector2
	stateReadSector3
	stateWriteSector1
	stateWriteSector2
	stateWriteSector3
	stateWriteSector4
	stateWriteSector5
	stateWriteSector6
	stateType3_1
	stateReadAddress1
	stateReadAddress2
	stateReadAddress3
	stateWriteTrack1
	stateWriteTrack2
	stateWriteTrack2b
	stateWriteTrack3
)

var stateNames = [...]string{
	"acceptCommand",
	"type1_1", "type1_2", "type1_3",
	"verifyTrack1", "verifyTrack2",
	"type2_1", "type2_2",
	"readSector1", "readSector2", "readSector3",
	"writeSector1", "writeSector2", "writeSector3",
	"writeSector4", "writeSector5", "writeSector6",
	"type3_1",
	"readAddress1", "readAddress2", "readAddress3",
	"writeTrack1", "writeTrack2", "writeTrack2b", "writeTrack3",
}

func (s state) String() string {
	if int(s) < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
