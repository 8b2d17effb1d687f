package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// writeJSON writes body as JSON with the given status, the same small
// helper the teacher's handler/shared package exposes.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func itoa(n int) string { return strconv.Itoa(n) }
