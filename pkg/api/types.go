package api

// Response types for the status REST endpoints and the WebSocket stream.
// This is a read-only surface: runs are configured and started by the
// daemon, never through HTTP.

// PlanInfo describes the running (or finished) TWAP plan.
type PlanInfo struct {
	RunID           string   `json:"runId"`
	TotalAmount     string   `json:"totalAmount"`
	SliceCount      int      `json:"sliceCount"`
	IntervalSeconds int64    `json:"intervalSeconds"`
	MakerAsset      string   `json:"makerAsset"`
	TakerAsset      string   `json:"takerAsset"`
	Maker           string   `json:"maker"`
	SliceAmounts    []string `json:"sliceAmounts"`
}

// SummaryInfo mirrors the execution summary counts.
type SummaryInfo struct {
	Succeeded     int    `json:"succeeded"`
	Failed        int    `json:"failed"`
	Cancelled     int    `json:"cancelled"`
	Pending       int    `json:"pending"`
	TotalExecuted string `json:"totalExecuted"`
}

// SliceEvent is broadcast over /ws whenever an execution record is
// appended.
type SliceEvent struct {
	Type         string `json:"type"` // always "slice"
	RunID        string `json:"runId"`
	SliceIndex   int    `json:"sliceIndex"`
	Status       string `json:"status"`
	Timestamp    int64  `json:"timestamp"` // unix milliseconds
	Reference    string `json:"reference,omitempty"`
	Error        string `json:"error,omitempty"`
	MakingAmount string `json:"makingAmount,omitempty"`
}
