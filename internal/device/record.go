package device

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
)

// The capability delivers each attendance event as a fixed-layout record.
// Fields are addressed by explicit offset/width descriptors rather than a
// struct overlay so reserved and padding bytes are never surfaced.
type rawField struct {
	name   string
	offset int
	width  int
}

var (
	fieldMajor      = rawField{"major", 0, 4}
	fieldMinor      = rawField{"minor", 4, 4}
	fieldYear       = rawField{"year", 8, 4}
	fieldMonth      = rawField{"month", 12, 4}
	fieldDay        = rawField{"day", 16, 4}
	fieldHour       = rawField{"hour", 20, 4}
	fieldMinute     = rawField{"minute", 24, 4}
	fieldSecond     = rawField{"second", 28, 4}
	fieldEmployeeNo = rawField{"employeeNo", 32, 32}
	// Bytes 64..96 are reserved by the wire format and never decoded.
)

// RawRecordSize is the exact length of one DATA callback payload.
const RawRecordSize = 96

// RawEvent is one decoded attendance record straight off the wire, before
// normalization. EmployeeNo may be empty for heartbeat or non-attendance
// entries; such records never reach a batch.
type RawEvent struct {
	Major      uint32
	Minor      uint32
	EmployeeNo string

	year, month, day     int
	hour, minute, second int
}

// Time converts the device-reported per-record timestamp using the supplied
// zone.
func (e RawEvent) Time(loc *time.Location) time.Time {
	return time.Date(e.year, time.Month(e.month), e.day, e.hour, e.minute, e.second, 0, loc)
}

func (f rawField) u32(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf[f.offset : f.offset+f.width])
}

// ascii trims the field at the first NUL byte and decodes the remainder.
func (f rawField) ascii(buf []byte) string {
	raw := buf[f.offset : f.offset+f.width]
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw)
}

// DecodeRawEvent decodes one fixed-size record payload.
func DecodeRawEvent(buf []byte) (RawEvent, error) {
	if len(buf) != RawRecordSize {
		return RawEvent{}, errors.Errorf("device: raw record is %d bytes, want %d", len(buf), RawRecordSize)
	}
	return RawEvent{
		Major:      fieldMajor.u32(buf),
		Minor:      fieldMinor.u32(buf),
		EmployeeNo: fieldEmployeeNo.ascii(buf),
		year:       int(fieldYear.u32(buf)),
		month:      int(fieldMonth.u32(buf)),
		day:        int(fieldDay.u32(buf)),
		hour:       int(fieldHour.u32(buf)),
		minute:     int(fieldMinute.u32(buf)),
		second:     int(fieldSecond.u32(buf)),
	}, nil
}

// EncodeRawEvent builds a wire record. Used by capability fakes in tests and
// by integration tooling.
func EncodeRawEvent(e RawEvent, eventTime time.Time) []byte {
	buf := make([]byte, RawRecordSize)
	binary.LittleEndian.PutUint32(buf[fieldMajor.offset:], e.Major)
	binary.LittleEndian.PutUint32(buf[fieldMinor.offset:], e.Minor)
	binary.LittleEndian.PutUint32(buf[fieldYear.offset:], uint32(eventTime.Year()))
	binary.LittleEndian.PutUint32(buf[fieldMonth.offset:], uint32(eventTime.Month()))
	binary.LittleEndian.PutUint32(buf[fieldDay.offset:], uint32(eventTime.Day()))
	binary.LittleEndian.PutUint32(buf[fieldHour.offset:], uint32(eventTime.Hour()))
	binary.LittleEndian.PutUint32(buf[fieldMinute.offset:], uint32(eventTime.Minute()))
	binary.LittleEndian.PutUint32(buf[fieldSecond.offset:], uint32(eventTime.Second()))
	copy(buf[fieldEmployeeNo.offset:fieldEmployeeNo.offset+fieldEmployeeNo.width], e.EmployeeNo)
	return buf
}
