package entity

// FeedLimits holds optional per-feed caps consulted by the run governor
// when a run's scope touches a single feed.
type FeedLimits struct {
	FeedID             int64
	DailyAnalyses      *int
	DailyCostUSD       *float64
	MonthlyCostUSD     *float64
	AlertThresholdUSD  *float64
	AutoDisableOnBreach bool
	EmergencyStop       bool
}
