package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"
)

// writeTooManyRequests rejects a request that exceeded its bucket. Retry-After is
// the time, in whole seconds, until the bucket refills by one token.
func writeTooManyRequests(w http.ResponseWriter, limit rate.Limit) {
	if limit > 0 && limit != rate.Inf {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(1/float64(limit)))))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
}
