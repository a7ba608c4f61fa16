package discovery

// Feature describes one capability an automation client can rely on.
type Feature struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Endpoints   []string `json:"endpoints"`
}

// Features is the structured capability catalog for GET /discovery/features.
var Features = []Feature{
	{
		Name:        "feed_management",
		Description: "Register, inspect, update, pause/resume, and manually trigger RSS/Atom feeds.",
		Endpoints:   []string{"GET /feeds", "POST /feeds", "GET /feeds/{id}", "PUT /feeds/{id}", "DELETE /feeds/{id}", "POST /feeds/{id}/fetch"},
	},
	{
		Name:        "item_browsing",
		Description: "Browse deduplicated ingested items with filters for feed, recency, category, sentiment, and impact.",
		Endpoints:   []string{"GET /items", "GET /items/{id}", "GET /items/{id}/analysis"},
	},
	{
		Name:        "analysis_runs",
		Description: "Preview cost/scope, start, inspect, list, and cancel bounded LLM classification runs.",
		Endpoints:   []string{"POST /analysis/preview", "POST /analysis/start", "GET /analysis/runs", "GET /analysis/runs/{id}", "POST /analysis/runs/{id}/cancel"},
	},
	{
		Name:        "run_governor",
		Description: "Global emergency halt/resume of new run admissions, independent of runs already executing.",
		Endpoints:   []string{"POST /analysis/manager/emergency-stop", "POST /analysis/manager/resume"},
	},
	{
		Name:        "scheduler_control",
		Description: "Inspect scheduler liveness and pause/resume/retune fetch cadence globally or per feed.",
		Endpoints:   []string{"GET /scheduler/heartbeat", "POST /scheduler/pause", "POST /scheduler/resume", "POST /scheduler/interval"},
	},
	{
		Name:        "auto_analysis",
		Description: "Newly ingested items from auto-analyze feeds are queued and classified without manual intervention, subject to per-feed and global budgets.",
		Endpoints:   []string{},
	},
	{
		Name:        "discovery",
		Description: "Self-describing schemas, example payloads, a usage guide, and this feature catalog.",
		Endpoints:   []string{"GET /discovery/schemas", "GET /discovery/schemas/{name}", "GET /discovery/examples/{type}", "GET /discovery/usage-guide", "GET /discovery/features"},
	},
}
