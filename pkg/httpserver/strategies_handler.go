package httpserver

import (
	"net/http"

	"tradesim/internal/strategy"
)

// handleStrategies serves GET /api/v1/strategies: the compiled-in registry
// with parameter descriptions, the contract UIs build strategy forms from.
func handleStrategies() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, strategy.All())
	}
}
