package prescription

import (
	"strconv"

	"github.com/clinicdesk/clinicdesk/internal/domain/catalog"
)

// CartLine is one unsubmitted prescription row. TempID identifies the row
// for edits and removal; it never leaves the workstation.
type CartLine struct {
	TempID   string            `json:"tempId"`
	DrugID   int64             `json:"drugId"`
	Dosage   string            `json:"dosage"`
	Quantity int               `json:"quantity"`
	Remark   string            `json:"remark,omitempty"`
	Drug     *catalog.DrugInfo `json:"drugInfo,omitempty"`
}

func (l CartLine) RefID() string { return strconv.FormatInt(l.DrugID, 10) }

func (l CartLine) drugName() string {
	if l.Drug != nil {
		return l.Drug.DrugName
	}
	return strconv.FormatInt(l.DrugID, 10)
}

// stock parses the cached formulary stock for the courtesy check. The
// dispensary recount on the server is the real gate.
func (l CartLine) stock() int {
	if l.Drug == nil {
		return 0
	}
	n, err := strconv.Atoi(l.Drug.StockQuantity)
	if err != nil {
		return 0
	}
	return n
}

// PrescriptionLine is the wire form of a cart line.
type PrescriptionLine struct {
	DrugID   int64  `json:"drugId"`
	Dosage   string `json:"dosage"`
	Quantity int    `json:"quantity"`
	Remark   string `json:"remark,omitempty"`
}

// CreateRequest submits a batch of prescription lines against a case.
type CreateRequest struct {
	RegistrationID int64              `json:"registrationId"`
	Prescriptions  []PrescriptionLine `json:"prescriptions"`
}

// HistoryEntry is one previously issued prescription line.
// PrescriptionID is the server key used for revocation.
type HistoryEntry struct {
	PrescriptionID int64               `json:"prescriptionId"`
	DrugID         int64               `json:"drugId"`
	DrugName       string              `json:"drugName"`
	DrugCode       string              `json:"drugCode"`
	Specification  string              `json:"specification"`
	Unit           string              `json:"unit"`
	Price          string              `json:"price"`
	Usage          string              `json:"usage"`
	Quantity       int                 `json:"quantity"`
	Status         catalog.ApplyStatus `json:"status"`
	CreateTime     string              `json:"createTime"`
}

// LineEdit carries the editable fields of a cart line.
type LineEdit struct {
	Dosage   string `json:"dosage"`
	Quantity int    `json:"quantity"`
	Remark   string `json:"remark"`
}

// State is a point-in-time view of the prescription store for API
// responses.
type State struct {
	Loading    bool           `json:"loading"`
	Submitting bool           `json:"submitting"`
	Cart       []CartLine     `json:"cartList"`
	History    []HistoryEntry `json:"historyList"`
}
