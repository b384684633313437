package dvb

import (
	"encoding/binary"
	"time"
	"unsafe"
)

// Request encoding from <asm-generic/ioctl.h>.
const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2

	iocNRShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNRShift | size<<iocSizeShift
}

// struct dvb_frontend_info
type frontendInfo struct {
	Name                [128]byte
	Type                uint32
	FrequencyMin        uint32
	FrequencyMax        uint32
	FrequencyStepSize   uint32
	FrequencyTolerance  uint32
	SymbolRateMin       uint32
	SymbolRateMax       uint32
	SymbolRateTolerance uint32
	NotifierDelay       uint32
	Caps                uint32
}

// struct dvb_frontend_event: status followed by dvb_frontend_parameters.
type frontendEvent struct {
	Status    uint32
	Frequency uint32
	Inversion uint32
	U         [7]uint32
}

// struct dvb_diseqc_master_cmd
type diseqcMasterCmd struct {
	Msg    [6]byte
	MsgLen uint8
}

// The kernel union holds a 32 byte buffer, a length, three reserved words
// and a pointer, which is its largest member.
const dtvPropertyUnionSize = 32 + 4 + 12 + unsafe.Sizeof(uintptr(0))

// struct dtv_property (packed). The field layout has no implicit padding.
type dtvProperty struct {
	Cmd      uint32
	Reserved [3]uint32
	U        [dtvPropertyUnionSize]byte
	Result   int32
}

func (p *dtvProperty) data() uint32 {
	return binary.NativeEndian.Uint32(p.U[:4])
}

func (p *dtvProperty) setData(v uint32) {
	binary.NativeEndian.PutUint32(p.U[:4], v)
}

// struct dtv_properties
type dtvProperties struct {
	Num   uint32
	Props *dtvProperty
}

var (
	feGetInfo             = ioc(iocRead, 'o', 61, unsafe.Sizeof(frontendInfo{}))
	feDiseqcSendMasterCmd = ioc(iocWrite, 'o', 63, unsafe.Sizeof(diseqcMasterCmd{}))
	feSetTone             = ioc(iocNone, 'o', 66, 0)
	feSetVoltage          = ioc(iocNone, 'o', 67, 0)
	feReadStatus          = ioc(iocRead, 'o', 69, unsafe.Sizeof(uint32(0)))
	feGetEvent            = ioc(iocRead, 'o', 78, unsafe.Sizeof(frontendEvent{}))
	feSetProperty         = ioc(iocWrite, 'o', 82, unsafe.Sizeof(dtvProperties{}))
	feGetProperty         = ioc(iocRead, 'o', 83, unsafe.Sizeof(dtvProperties{}))
)

const (
	// DefaultIoctlTimeout is the wall-clock budget for retrying interrupted requests.
	DefaultIoctlTimeout = time.Second

	retryBackoff = time.Millisecond
)

// retry runs fn until it succeeds, fails with a non-transient error, or the
// budget is spent. The last error is returned.
func retry(budget time.Duration, transient func(error) bool, fn func() error) error {
	start := time.Now()
	for {
		err := fn()
		if err == nil {
			return nil
		}
		if !transient(err) || time.Since(start) > budget {
			return err
		}
		time.Sleep(retryBackoff)
	}
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
