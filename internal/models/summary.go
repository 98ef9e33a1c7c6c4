package models

// ScheduleSummary is the derived allocation state returned alongside a
// schedule payload. It is recomputed from the installment list on every read
// and never persisted.
type ScheduleSummary struct {
	ScheduledSum float64 `json:"scheduled_sum"`
	Remaining    float64 `json:"remaining"`
	IsComplete   bool    `json:"is_complete"`
	Mode         Mode    `json:"mode"`
}
