package handlers

import (
	"fmt"
	"net/http"
)

// Health responds to liveness probes.
func Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}
