package httpapi

import "net/http"

// handleListScenarios returns the scenario catalog.
func (r *Router) handleListScenarios(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"scenarios": r.scenarios.List(),
	})
}
