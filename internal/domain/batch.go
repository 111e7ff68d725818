package domain

// BatchItemResult 批量操作中单条记录的结果
type BatchItemResult struct {
	CustomerID string `json:"customerId"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
}

// BatchResult 批量操作的逐条结果。
//
// 批量延期/换号采用逐条尽力执行：某条失败不回滚已成功的
// 条目，也不中止后续条目，最终按条上报成败（明确的设计决定，
// 区别于对账任务的整批原子写）。
type BatchResult struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Items     []BatchItemResult `json:"items"`
}

// Add 记录一条结果
func (r *BatchResult) Add(customerID string, err error) {
	item := BatchItemResult{CustomerID: customerID, OK: err == nil}
	if err != nil {
		item.Error = err.Error()
		r.Failed++
	} else {
		r.Succeeded++
	}
	r.Items = append(r.Items, item)
}
