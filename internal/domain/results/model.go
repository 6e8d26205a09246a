package results

import "github.com/clinicdesk/clinicdesk/internal/domain/catalog"

// ExamResult is one order line seen from the result-review page, carrying
// whatever the performing department has recorded so far.
type ExamResult struct {
	ApplyID          int64               `json:"applyId"`
	ItemID           int64               `json:"itemId"`
	ItemName         string              `json:"itemName"`
	ApplyType        catalog.ApplyType   `json:"applyType"`
	Purpose          string              `json:"applyPurpose"`
	Site             string              `json:"applySite"`
	ApplyTime        string              `json:"applyTime"`
	PerformerID      int64               `json:"performerId,omitempty"`
	PerformerName    string              `json:"performerName,omitempty"`
	ResultRecorderID int64               `json:"resultRecorderId,omitempty"`
	PerformTime      string              `json:"performTime,omitempty"`
	Result           string              `json:"result,omitempty"`
	Status           catalog.ApplyStatus `json:"status"`
	Unit             int                 `json:"unit"`
	Remark           string              `json:"remark,omitempty"`
}

// Statistics is the header summary over all result lines.
type Statistics struct {
	Total     int `json:"total"`
	Finished  int `json:"finished"`
	Checking  int `json:"checking"`
	Unpaid    int `json:"unpaid"`
	Cancelled int `json:"cancelled"`
}

// State is a point-in-time view of the result store: lines split into
// completed and still-pending, plus the summary counts.
type State struct {
	Loading    bool         `json:"loading"`
	Finished   []ExamResult `json:"finishedList"`
	Pending    []ExamResult `json:"pendingList"`
	Statistics Statistics   `json:"statistics"`
}
