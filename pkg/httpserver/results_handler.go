package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tradesim/internal/bus"
	"tradesim/internal/publisher"
	"tradesim/pkg/types"
)

const (
	defaultResultCount = 100
	maxResultCount     = 1000
	maxResultBlock     = 25 * time.Second
)

// resultsHandler reads result streams incrementally.
type resultsHandler struct {
	bus    *bus.Bus
	prefix string
	logger *zap.Logger
}

func newResultsHandler(b *bus.Bus, prefix string, logger *zap.Logger) *resultsHandler {
	return &resultsHandler{bus: b, prefix: prefix, logger: logger}
}

// ResultsResponse is one page of a results stream. LastID is the cursor to
// pass as last_id on the next call; it echoes the request cursor when the
// page is empty.
type ResultsResponse struct {
	ResultID string         `json:"result_id"`
	Packets  []types.Packet `json:"packets"`
	LastID   string         `json:"last_id"`
}

// read serves GET /api/v1/results/{resultID}?last_id=&count=&block_ms=.
// With block_ms the call parks on the stream until new packets arrive or
// the window expires, so pollers can long-poll instead of spinning.
func (h *resultsHandler) read(w http.ResponseWriter, r *http.Request) {
	resultID := chi.URLParam(r, "resultID")
	lastID := r.URL.Query().Get("last_id")

	count := int64(defaultResultCount)
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid count")
			return
		}
		count = min(n, maxResultCount)
	}

	// Negative means no BLOCK argument at all; zero would park forever.
	block := -time.Millisecond
	if raw := r.URL.Query().Get("block_ms"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms < 0 {
			respondError(w, http.StatusBadRequest, "invalid block_ms")
			return
		}
		if ms > 0 {
			block = min(time.Duration(ms)*time.Millisecond, maxResultBlock)
		}
	}

	reader := publisher.NewReader(h.bus, h.prefix, resultID)
	packets, err := reader.Read(r.Context(), lastID, block, count)
	if err != nil {
		h.logger.Error("read results", zap.String("result_id", resultID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "read results")
		return
	}

	resp := ResultsResponse{ResultID: resultID, Packets: packets, LastID: lastID}
	if resp.Packets == nil {
		resp.Packets = []types.Packet{}
	}
	if n := len(packets); n > 0 {
		resp.LastID = packets[n-1].StreamID
	}
	respondJSON(w, http.StatusOK, resp)
}
