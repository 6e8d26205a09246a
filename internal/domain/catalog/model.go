// Package catalog exposes the orderable HIS catalogs: exam, lab and
// disposal items plus the drug formulary. The other domain packages build
// cart lines from these types.
package catalog

import "github.com/clinicdesk/clinicdesk/internal/platform/his"

// ApplyType classifies a medical item order.
type ApplyType string

const (
	ApplyExam     ApplyType = "EXAM"
	ApplyLab      ApplyType = "LAB"
	ApplyDisposal ApplyType = "DISPOSAL"
)

// ApplyStatus is the lifecycle of a submitted order or prescription line.
type ApplyStatus string

const (
	StatusPendingPayment ApplyStatus = "PENDING_PAYMENT"
	StatusUnfinished     ApplyStatus = "UNFINISHED"
	StatusFinished       ApplyStatus = "FINISHED"
	StatusReturned       ApplyStatus = "RETURNED"
	StatusCancelled      ApplyStatus = "CANCELLED"
	StatusRevoked        ApplyStatus = "REVOKED"
)

// Revocable reports whether a doctor may still withdraw the line. Paid or
// completed work needs the refund workflow instead.
func (s ApplyStatus) Revocable() bool {
	return s == StatusPendingPayment || s == StatusUnfinished
}

// DrugUnit is the dispensing unit of a formulary entry.
type DrugUnit string

const (
	UnitBox     DrugUnit = "BOX"
	UnitBottle  DrugUnit = "BOTTLE"
	UnitPiece   DrugUnit = "PIECE"
	UnitCapsule DrugUnit = "CAPSULE"
)

// MedicalItem is one orderable exam, lab or disposal entry.
type MedicalItem struct {
	ItemID        int64     `json:"itemId"`
	ItemCode      string    `json:"itemCode"`
	ItemName      string    `json:"itemName"`
	ItemType      ApplyType `json:"itemType"`
	ItemTypeLabel string    `json:"itemTypeLabel"`
	Price         string    `json:"price"`
	Description   string    `json:"description"`
}

// DrugInfo is one formulary entry. StockQuantity is a string upstream;
// parse it only for the courtesy stock check.
type DrugInfo struct {
	DrugID              int64    `json:"drugId"`
	DrugCode            string   `json:"drugCode"`
	DrugName            string   `json:"drugName"`
	CategoryID          int64    `json:"categoryId"`
	CategoryName        string   `json:"categoryName"`
	CategoryDescription string   `json:"categoryDescription"`
	ProductionDate      string   `json:"productionDate"`
	ShelfLife           string   `json:"shelfLife"`
	StockQuantity       string   `json:"stockQuantity"`
	Specification       string   `json:"specification"`
	Unit                DrugUnit `json:"unit"`
	RetailPrice         string   `json:"retailPrice"`
	Description         string   `json:"description"`
}

// ItemPage is one catalog page with its pagination meta.
type ItemPage struct {
	Items []MedicalItem `json:"items"`
	Meta  his.PageMeta  `json:"meta"`
}

// DrugPage is one formulary search page.
type DrugPage struct {
	Drugs []DrugInfo   `json:"drugs"`
	Meta  his.PageMeta `json:"meta"`
}

// AllItems bundles the three item catalogs for the order picker, which
// shows them side by side.
type AllItems struct {
	Exam     ItemPage `json:"examItems"`
	Lab      ItemPage `json:"labItems"`
	Disposal ItemPage `json:"disposalItems"`
}

// Query narrows a catalog listing. Zero values mean upstream defaults.
type Query struct {
	Keyword string
	Page    int
	Size    int
}

// DrugQuery narrows a formulary search.
type DrugQuery struct {
	Keyword    string
	CategoryID int64
	Page       int
	Size       int
}
