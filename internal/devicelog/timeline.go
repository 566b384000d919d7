package devicelog

import "time"

// DefaultBootGrace is the device clock value, in milliseconds, below which the
// newest entry is considered too close to boot to extrapolate backwards from.
// Observed startup times sit between 510 and 525 ms.
const DefaultBootGrace uint32 = 540

// Anchor ties the device's relative clock to wall-clock time for one fetch.
type Anchor struct {
	// DeviceClock is the device's millisecond counter reported in the response.
	DeviceClock uint32
	// RequestedAt is when the request producing the response was issued.
	RequestedAt time.Time
}

// Reconstruct assigns approximate wall-clock times to a sequence of device
// clock values, walking from the newest (last) towards the oldest. The walk
// stops at a reboot boundary, where the counter grows going back in time. A
// zero time in the result means no time could be assigned.
func Reconstruct(clocks []uint32, anchor Anchor, bootGrace uint32) []time.Time {
	if len(clocks) == 0 {
		return nil
	}

	times := make([]time.Time, len(clocks))
	newest := len(clocks) - 1
	lastRaw := int64(anchor.DeviceClock)
	lastAbs := anchor.RequestedAt

	for i := newest; i >= 0; i-- {
		raw := int64(clocks[i])
		if i != newest && raw > lastRaw {
			break
		}

		lastAbs = lastAbs.Add(time.Duration(raw-lastRaw) * time.Millisecond)
		lastRaw = raw
		times[i] = lastAbs

		if i == newest && clocks[i] < bootGrace {
			break
		}
	}
	return times
}

// ApplyTimes reconstructs times for entries and stores them on each entry
// that received one.
func ApplyTimes(entries []Entry, anchor Anchor, bootGrace uint32) {
	clocks := make([]uint32, len(entries))
	for i, entry := range entries {
		clocks[i] = entry.Clock()
	}
	for i, t := range Reconstruct(clocks, anchor, bootGrace) {
		if !t.IsZero() {
			entries[i].setTime(t)
		}
	}
}
