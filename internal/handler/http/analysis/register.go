package analysis

import (
	"net/http"

	"feedctl/internal/repository"
	analysisuc "feedctl/internal/usecase/analysis"
	"feedctl/internal/usecase/governor"
)

// Register wires the analysis-run control surface onto mux: preview,
// start, inspect, list, cancel, and the emergency-stop/resume manager.
func Register(mux *http.ServeMux, runs repository.AnalysisRunRepository, an *analysisuc.Service, gov *governor.Service) {
	mux.Handle("POST   /analysis/preview", PreviewHandler{Analysis: an})
	mux.Handle("POST   /analysis/start", StartHandler{Governor: gov})
	mux.Handle("GET    /analysis/runs", ListHandler{Runs: runs})
	mux.Handle("POST   /analysis/runs/{id}/cancel", CancelHandler{Governor: gov})
	mux.Handle("GET    /analysis/runs/{id}", GetHandler{Runs: runs})
	mux.Handle("POST   /analysis/manager/emergency-stop", EmergencyStopHandler{Governor: gov})
	mux.Handle("POST   /analysis/manager/resume", ResumeHandler{Governor: gov})
}
