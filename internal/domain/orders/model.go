package orders

import (
	"strconv"

	"github.com/clinicdesk/clinicdesk/internal/domain/catalog"
)

// CartLine is one unsubmitted order form row. TempID identifies the row
// for edits and removal; it never leaves the workstation.
type CartLine struct {
	TempID    string               `json:"tempId"`
	ItemID    int64                `json:"itemId"`
	ApplyType catalog.ApplyType    `json:"applyType"`
	Purpose   string               `json:"applyPurpose"`
	Site      string               `json:"applySite"`
	Unit      int                  `json:"unit"`
	Remark    string               `json:"remark,omitempty"`
	Item      *catalog.MedicalItem `json:"itemInfo,omitempty"`
}

func (l CartLine) RefID() string { return strconv.FormatInt(l.ItemID, 10) }

// itemName labels the line in user-facing messages.
func (l CartLine) itemName() string {
	if l.Item != nil {
		return l.Item.ItemName
	}
	return strconv.FormatInt(l.ItemID, 10)
}

// ApplyLine is the wire form of a cart line.
type ApplyLine struct {
	ItemID    int64             `json:"itemId"`
	ApplyType catalog.ApplyType `json:"applyType"`
	Purpose   string            `json:"applyPurpose"`
	Site      string            `json:"applySite"`
	Unit      int               `json:"unit"`
	Remark    string            `json:"remark,omitempty"`
}

// ApplyRequest submits a batch of item orders against a case.
type ApplyRequest struct {
	RegistrationID int64       `json:"registrationId"`
	Items          []ApplyLine `json:"items"`
}

// HistoryEntry is one previously submitted order line with its lifecycle
// status. ApplyID is the server key used for revocation.
type HistoryEntry struct {
	ApplyID    int64               `json:"applyId"`
	ItemID     int64               `json:"itemId"`
	ItemName   string              `json:"itemName"`
	ItemCode   string              `json:"itemCode"`
	ItemType   catalog.ApplyType   `json:"itemType"`
	Status     catalog.ApplyStatus `json:"status"`
	Price      string              `json:"price"`
	Unit       int                 `json:"unit"`
	CreateTime string              `json:"createTime"`
}

// LineEdit carries the editable fields of a cart line.
type LineEdit struct {
	Purpose string `json:"applyPurpose"`
	Site    string `json:"applySite"`
	Unit    int    `json:"unit"`
	Remark  string `json:"remark"`
}

// State is a point-in-time view of the order store for API responses.
type State struct {
	Loading    bool           `json:"loading"`
	Submitting bool           `json:"submitting"`
	Cart       []CartLine     `json:"cartList"`
	History    []HistoryEntry `json:"historyList"`
}
