package health

import "net/http"

// Handler reports process liveness. Readiness (database reachability) is a
// separate endpoint wired in the router.
func Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
