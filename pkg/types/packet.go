package types

// PacketType tags entries on a results stream. A well-formed stream is
// START, any number of DATA, then exactly one of END, ERROR or CANCEL.
type PacketType string

const (
	PacketStart  PacketType = "START"
	PacketData   PacketType = "DATA"
	PacketEnd    PacketType = "END"
	PacketError  PacketType = "ERROR"
	PacketCancel PacketType = "CANCEL"
)

// Terminal reports whether the packet ends a stream.
func (p PacketType) Terminal() bool {
	return p == PacketEnd || p == PacketError || p == PacketCancel
}

// Packet is one entry of a results stream. Data is JSON-decoded on read;
// every packet carries the result id of the run that produced it.
type Packet struct {
	Type     PacketType     `json:"type"`
	ResultID string         `json:"result_id"`
	Data     map[string]any `json:"data,omitempty"`

	// StreamID is the bus-assigned entry id, used by readers to resume and
	// by trimming to bound the stream. Not part of the serialized payload.
	StreamID string `json:"-"`
}
