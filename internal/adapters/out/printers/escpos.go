// Package printers implements the printer transports: a raw print server on
// the local network, a directly attached serial printer, a cloud print API and
// the staff-confirmed manual fallback.
package printers

import (
	"bytes"

	"cafe/internal/core/domain/model/printing"
	"cafe/internal/core/ports"

	"github.com/google/uuid"
)

// ESC/POS command bytes.
var (
	escInit   = []byte{0x1B, 0x40}
	escFeed   = []byte{0x1B, 0x64}
	gsDensity = []byte{0x1D, 0x28, 0x4B, 0x02, 0x00, 0x31}
	gsFeedCut = []byte{0x1D, 0x56, 0x42, 0x00}
)

const (
	feedLines byte = 4
	unprinted byte = '?'
	lineFeed  byte = '\n'
)

// EncodeESCPOS renders a ticket as an ESC/POS job for the given printer:
// initialise, set density, the text lines, a feed and, when the printer
// has a cutter, a partial cut. Characters outside printable ASCII become '?'.
func EncodeESCPOS(printer printing.PrinterConfig, ticket printing.Ticket) []byte {
	var buf bytes.Buffer
	buf.Write(escInit)
	buf.Write(gsDensity)
	buf.WriteByte(byte(printer.Density()))

	for _, line := range ticket.Lines {
		for _, r := range line {
			if r >= ' ' && r <= '~' {
				buf.WriteByte(byte(r))
			} else {
				buf.WriteByte(unprinted)
			}
		}
		buf.WriteByte(lineFeed)
	}

	buf.Write(escFeed)
	buf.WriteByte(feedLines)
	if printer.AutoCut() {
		buf.Write(gsFeedCut)
	}
	return buf.Bytes()
}

func newJobID(prefix string) ports.JobID {
	return ports.JobID(prefix + "-" + uuid.NewString())
}

func transportError(printer printing.PrinterConfig, err error) error {
	return &ports.TransportError{Transport: printer.Kind(), PrinterID: printer.ID(), Err: err}
}
