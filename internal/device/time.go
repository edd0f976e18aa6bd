package device

import (
	"regexp"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Device timezone strings look like "GMT-04:00:00": an abbreviation followed
// by a signed hour offset, minutes and seconds.
var tzPattern = regexp.MustCompile(`^([A-Z]+)([-+]\d+):(\d+):(\d+)`)

const localTimeLayout = "2006-01-02T15:04:05"

// ResolveDeviceTime queries the device clock and returns its current local
// time in the device's zone. A timezone string that does not match the
// expected pattern silently falls back to UTC; device clocks with
// non-conforming zone reports still sync, just with an imprecise offset.
func (m *SessionManager) ResolveDeviceTime() (time.Time, *time.Location, error) {
	if !m.Connected() {
		return time.Time{}, nil, errors.New("device: resolve time on closed session")
	}
	doc, err := m.cap.QueryXML(m.Handle(), "GET /ISAPI/System/time")
	if err != nil {
		return time.Time{}, nil, errors.Wrap(err, "device: query device time failed")
	}
	values, err := xmlValues(doc, []string{"localTime", "timeZone"})
	if err != nil {
		return time.Time{}, nil, errors.Wrap(err, "device: parse device time failed")
	}

	loc := ParseTimezone(values[1])
	localTime, err := parseLocalTime(values[0], loc)
	if err != nil {
		return time.Time{}, nil, err
	}
	return localTime, loc, nil
}

// ParseTimezone maps a device timezone string to a fixed-offset location.
// Non-conforming input yields UTC, never an error.
func ParseTimezone(raw string) *time.Location {
	groups := tzPattern.FindStringSubmatch(raw)
	if groups == nil {
		log.Debug().Str("timezone", raw).Msg("device timezone did not match expected pattern; using UTC")
		return time.UTC
	}
	hours, _ := strconv.Atoi(groups[2])
	minutes, _ := strconv.Atoi(groups[3])
	seconds, _ := strconv.Atoi(groups[4])
	offset := hours*3600 + minutes*60 + seconds
	return time.FixedZone(groups[1], offset)
}

func parseLocalTime(raw string, loc *time.Location) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	ts, err := time.ParseInLocation(localTimeLayout, raw, loc)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "device: unparseable local time %q", raw)
	}
	return ts, nil
}
