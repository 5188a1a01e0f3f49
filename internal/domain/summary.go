package domain

type SummaryItem struct {
	TotalRequests int64 `json:"totalRequests"`
	TotalAmount   Money `json:"totalAmount"`
}

type Summary struct {
	Default  SummaryItem `json:"default"`
	Fallback SummaryItem `json:"fallback"`
}
