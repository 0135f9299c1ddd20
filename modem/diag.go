package modem

import (
	"fmt"
	"math"
	"strings"

	"i4.energy/across/sigfoxgw/at"
)

// MarkerCapacity is the number of terminator offsets kept per response.
const MarkerCapacity = 5

// Markers counts the terminators seen in one response and remembers where
// the first MarkerCapacity of them were cut out of the text.
//
// Once the capacity is reached further terminators are still counted but
// their offsets are dropped. Consecutive terminators share an offset.
type Markers struct {
	positions [MarkerCapacity]int
	recorded  int
	count     uint8
}

// Add records a terminator found at offset pos of the response text.
func (m *Markers) Add(pos int) {
	if m.recorded < MarkerCapacity {
		m.positions[m.recorded] = pos
		m.recorded++
	}
	if m.count < math.MaxUint8 {
		m.count++
	}
}

// Count returns the number of terminators seen.
func (m Markers) Count() uint8 {
	return m.count
}

// Positions returns the recorded offsets in non-decreasing order. Offsets
// repeat for consecutive terminators.
func (m Markers) Positions() []int {
	return append([]int(nil), m.positions[:m.recorded]...)
}

// stripTerminators removes every terminator from frame and returns the
// remaining text along with the offsets the terminators were cut from.
func stripTerminators(frame []byte) ([]byte, []int) {
	text := make([]byte, 0, len(frame))
	var positions []int
	for _, b := range frame {
		if b == at.Terminator {
			positions = append(positions, len(text))
			continue
		}
		text = append(text, b)
	}
	return text, positions
}

// FormatFrame renders text for the echo trace, putting a visible 0x0d back
// at every terminator offset. Other control bytes are shown in hex too.
func FormatFrame(prefix string, text []byte, positions []int) string {
	var b strings.Builder
	b.WriteString(prefix)
	m := 0
	for i := 0; i <= len(text); i++ {
		for m < len(positions) && positions[m] == i {
			fmt.Fprintf(&b, "0x%02x", at.Terminator)
			m++
		}
		if i == len(text) {
			break
		}
		if c := text[i]; c < 0x20 || c > 0x7e {
			fmt.Fprintf(&b, "0x%02x", c)
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// trace writes the outbound and inbound frames of one exchange to the echo
// sink and to the debug log.
func (m *Modem) trace(cmd []byte, response []byte, markers Markers) {
	text, positions := stripTerminators(cmd)
	sent := FormatFrame(">> ", text, positions)
	received := FormatFrame("<< ", response, markers.Positions())
	fmt.Fprintln(m.echo, sent)
	fmt.Fprintln(m.echo, received)
	m.logger.Debug("frame sent", "frame", sent)
	m.logger.Debug("frame received", "frame", received, "markers", markers.Count())
}
