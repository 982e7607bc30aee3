package quotes

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"

	"tradesim/pkg/types"
)

// Wire status values carried in reply metadata.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Request is the wire form of a bar-range request.
type Request struct {
	RequestID    string          `msgpack:"request_id"`
	Source       string          `msgpack:"source"`
	Symbol       string          `msgpack:"symbol"`
	Timeframe    types.Timeframe `msgpack:"timeframe"`
	HistoryStart int64           `msgpack:"history_start"`
	HistoryEnd   *int64          `msgpack:"history_end,omitempty"` // nil means "until now"
}

// ReplyMetadata describes the columns and outcome of a reply.
type ReplyMetadata struct {
	Status string `msgpack:"status"`
	Error  string `msgpack:"error,omitempty"`
	Length int    `msgpack:"length"`
}

// Reply is the wire form of a bar-range response: one contiguous byte
// buffer per column, values packed as little-endian float64.
type Reply struct {
	Metadata   ReplyMetadata     `msgpack:"metadata"`
	BinaryData map[string][]byte `msgpack:"binary_data,omitempty"`
}

// EncodeRequest serializes a request.
func EncodeRequest(req *Request) ([]byte, error) {
	blob, err := msgpack.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return blob, nil
}

// DecodeRequest deserializes a request.
func DecodeRequest(blob []byte) (*Request, error) {
	var req Request
	err := msgpack.Unmarshal(blob, &req)
	if err != nil {
		return nil, fmt.Errorf("unmarshal request: %w", err)
	}
	return &req, nil
}

// EncodeSeriesReply packs a dense series into a column-buffer reply.
func EncodeSeriesReply(series *types.Series) ([]byte, error) {
	times := make([]float64, series.Len())
	for i, ts := range series.Time {
		times[i] = float64(ts)
	}

	reply := Reply{
		Metadata: ReplyMetadata{
			Status: StatusOK,
			Length: series.Len(),
		},
		BinaryData: map[string][]byte{
			"time":   packFloats(times),
			"open":   packFloats(series.Open),
			"high":   packFloats(series.High),
			"low":    packFloats(series.Low),
			"close":  packFloats(series.Close),
			"volume": packFloats(series.Volume),
		},
	}

	blob, err := msgpack.Marshal(&reply)
	if err != nil {
		return nil, fmt.Errorf("marshal reply: %w", err)
	}
	return blob, nil
}

// EncodeErrorReply packs an error reply with no column data.
func EncodeErrorReply(msg string) ([]byte, error) {
	reply := Reply{
		Metadata: ReplyMetadata{
			Status: StatusError,
			Error:  msg,
		},
	}

	blob, err := msgpack.Marshal(&reply)
	if err != nil {
		return nil, fmt.Errorf("marshal error reply: %w", err)
	}
	return blob, nil
}

// DecodeReply parses a reply blob. For ok replies the column buffers are
// unpacked into a series.
func DecodeReply(blob []byte) (*Reply, *types.Series, error) {
	var reply Reply
	err := msgpack.Unmarshal(blob, &reply)
	if err != nil {
		return nil, nil, fmt.Errorf("unmarshal reply: %w", err)
	}

	if reply.Metadata.Status != StatusOK {
		return &reply, nil, nil
	}

	series, err := decodeColumns(&reply)
	if err != nil {
		return nil, nil, err
	}
	return &reply, series, nil
}

func decodeColumns(reply *Reply) (*types.Series, error) {
	columns := make(map[string][]float64, 6)
	for _, name := range []string{"time", "open", "high", "low", "close", "volume"} {
		vals, err := unpackFloats(reply.BinaryData[name])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		if len(vals) != reply.Metadata.Length {
			return nil, fmt.Errorf("column %s: expected %d values, got %d", name, reply.Metadata.Length, len(vals))
		}
		columns[name] = vals
	}

	times := make([]int64, len(columns["time"]))
	for i, v := range columns["time"] {
		times[i] = int64(v)
	}

	return &types.Series{
		Time:   times,
		Open:   columns["open"],
		High:   columns["high"],
		Low:    columns["low"],
		Close:  columns["close"],
		Volume: columns["volume"],
	}, nil
}

func packFloats(vals []float64) []byte {
	buf := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func unpackFloats(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("buffer length %d not divisible by 8", len(buf))
	}

	vals := make([]float64, len(buf)/8)
	for i := range vals {
		vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return vals, nil
}
