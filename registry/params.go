package registry

import (
	"fmt"

	"github.com/c360/boardkit/board"
)

// Params identifies one physical device attachment: everything a board
// constructor needs to reach its transport, plus the board-id it names.
// Two Params with the same BoardID and identity fields resolve to the
// same active session — mirroring how the original library treats
// board-id plus serialized input params as one session's identity,
// independent of which preset a given call addresses.
type Params struct {
	BoardID board.ID

	SerialPort    string
	MacAddress    string
	IPAddress     string
	IPPort        int
	ListenAddress string
	OtherInfo     string

	// LibraryPath points at a dynamically-loaded vendor transport
	// library, consumed by boards whose default factory binds one
	// (currently btclassic).
	LibraryPath string
}

// key derives the session-identity string this Params resolves to. Two
// Params values that would open the same physical transport must produce
// the same key.
func (p Params) key() string {
	return fmt.Sprintf("%d\x00%s\x00%s\x00%s\x00%d\x00%s\x00%s",
		p.BoardID, p.SerialPort, p.MacAddress, p.IPAddress, p.IPPort, p.ListenAddress, p.OtherInfo)
}
