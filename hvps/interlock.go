package hvps

import "fmt"

// Number of interlock slots reported by the supply.
const (
	MainInterlockCount      = 8
	ThyratronInterlockCount = 7
)

// Main interlock slots 2 and 3 are wired to customer equipment and carry
// site-specific messages, overridable through WithInterlockMessage.
const (
	minConfigurableInterlock = 2
	maxConfigurableInterlock = 3
)

// defaultMainInterlockMessages maps main interlock bit positions to
// operator messages.
var defaultMainInterlockMessages = [MainInterlockCount]string{
	"personnel safety interlock open",
	"HVPS overcurrent",
	"external interlock 1",
	"external interlock 2",
	"cabinet temperature too high",
	"pulse transformer tank temperature too high",
	"trigger interlock",
	"power stage failure",
}

// thyratronInterlockMessages maps thyratron interlock bit positions to
// operator messages. These slots are fixed.
var thyratronInterlockMessages = [ThyratronInterlockCount]string{
	"thyratron heater voltage out of range",
	"thyratron reservoir voltage out of range",
	"thyratron preheating not finished",
	"sum current limit exceeded",
	"inverse diode overcurrent",
	"end-of-line clipper fault",
	"thyratron trigger fault",
}

// interlockMessages resolves active bit positions against a message table.
// Positions beyond the table keep a generic text so an unexpected firmware
// bit is still visible to the operator.
func interlockMessages(table []string, indices []int) []string {
	if len(indices) == 0 {
		return nil
	}

	msgs := make([]string, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(table) {
			msgs = append(msgs, table[idx])
		} else {
			msgs = append(msgs, fmt.Sprintf("interlock %d", idx))
		}
	}

	return msgs
}
