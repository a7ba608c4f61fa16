package scheduler

import (
	"net/http"

	"feedctl/internal/usecase/scheduler"
)

// Register wires the scheduler control surface onto mux.
func Register(mux *http.ServeMux, sched *scheduler.Service) {
	mux.Handle("GET    /scheduler/heartbeat", HeartbeatHandler{Scheduler: sched})
	mux.Handle("POST   /scheduler/pause", PauseHandler{Scheduler: sched})
	mux.Handle("POST   /scheduler/resume", ResumeHandler{Scheduler: sched})
	mux.Handle("POST   /scheduler/interval", IntervalHandler{Scheduler: sched})
}
