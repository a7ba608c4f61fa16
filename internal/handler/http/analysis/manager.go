package analysis

import (
	"net/http"

	"feedctl/internal/handler/http/apierr"
	"feedctl/internal/handler/http/respond"
	"feedctl/internal/usecase/governor"
)

// EmergencyStopHandler serves POST /analysis/manager/emergency-stop,
// flipping the global halt bit. It never aborts runs already executing;
// it only blocks new admissions until resumed.
type EmergencyStopHandler struct{ Governor *governor.Service }

func (h EmergencyStopHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.Governor.EmergencyHalt(r.Context()); err != nil {
		apierr.Write(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "halted"})
}

// ResumeHandler serves POST /analysis/manager/resume, clearing the halt
// bit so queued and new runs may be admitted again.
type ResumeHandler struct{ Governor *governor.Service }

func (h ResumeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.Governor.EmergencyResume(r.Context()); err != nil {
		apierr.Write(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}
