// Package fees is the read-only billing view of a case: registration fee,
// item charges and drug charges with their payment status. Amounts stay
// strings end to end; this service never does money arithmetic beyond the
// unpaid check.
package fees

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/his"
)

// FeeStatus is the payment lifecycle of one charge line.
type FeeStatus string

const (
	FeeUnpaid   FeeStatus = "UNPAID"
	FeePaid     FeeStatus = "PAID"
	FeeRefunded FeeStatus = "REFUNDED"
	FeeRevoked  FeeStatus = "REVOKED"
)

// ItemFee is one medical-item charge line.
type ItemFee struct {
	ItemID     int64     `json:"itemId"`
	ItemName   string    `json:"itemName"`
	Price      string    `json:"price"`
	Unit       int       `json:"unit"`
	Amount     string    `json:"amount"`
	Status     FeeStatus `json:"status"`
	CreateTime string    `json:"createTime"`
}

// DrugFee is one prescription charge line.
type DrugFee struct {
	DrugID        int64     `json:"drugId"`
	DrugName      string    `json:"drugName"`
	Specification string    `json:"specification"`
	Price         string    `json:"price"`
	Quantity      int       `json:"quantity"`
	Amount        string    `json:"amount"`
	Status        FeeStatus `json:"status"`
	CreateTime    string    `json:"createTime"`
}

// Inquiry is the full billing picture for one case. UnpaidAmount is
// computed upstream so every department shows the same figure.
type Inquiry struct {
	RegistrationFee  string    `json:"registrationFee"`
	MedicalItemFees  []ItemFee `json:"medicalItemFees"`
	PrescriptionFees []DrugFee `json:"prescriptionFees"`
	TotalAmount      string    `json:"totalAmount"`
	UnpaidAmount     string    `json:"unpaidAmount"`
}

func emptyInquiry() Inquiry {
	return Inquiry{
		RegistrationFee:  "0.00",
		MedicalItemFees:  []ItemFee{},
		PrescriptionFees: []DrugFee{},
		TotalAmount:      "0.00",
		UnpaidAmount:     "0.00",
	}
}

// State is a point-in-time view of the fee store for API responses.
type State struct {
	Loading   bool    `json:"loading"`
	Fees      Inquiry `json:"feeData"`
	HasUnpaid bool    `json:"hasUnpaid"`
}

// Gateway fetches the billing view for a case.
type Gateway interface {
	GetFees(ctx context.Context, caseID int64) (*Inquiry, error)
}

type hisGateway struct {
	client *his.Client
}

func NewHISGateway(client *his.Client) Gateway {
	return &hisGateway{client: client}
}

func (g *hisGateway) GetFees(ctx context.Context, caseID int64) (*Inquiry, error) {
	var out Inquiry
	if err := g.client.Get(ctx, fmt.Sprintf("/cases/%d/fees", caseID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Store holds the fetched billing view for one workspace.
type Store struct {
	gw  Gateway
	log zerolog.Logger

	mu      sync.Mutex
	fees    Inquiry
	loading bool
}

func NewStore(gw Gateway, log zerolog.Logger) *Store {
	return &Store{
		gw:   gw,
		fees: emptyInquiry(),
		log:  log.With().Str("component", "fees").Logger(),
	}
}

// Fetch reloads the billing view for the case. A zero caseID is a no-op.
func (s *Store) Fetch(ctx context.Context, caseID int64) error {
	if caseID == 0 {
		return nil
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	fees, err := s.gw.GetFees(ctx, caseID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		return fmt.Errorf("fees for case %d: %w", caseID, err)
	}
	s.fees = *fees
	return nil
}

// Reset restores the zeroed billing view.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fees = emptyInquiry()
	s.loading = false
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	unpaid, _ := strconv.ParseFloat(s.fees.UnpaidAmount, 64)
	return State{
		Loading:   s.loading,
		Fees:      s.fees,
		HasUnpaid: unpaid > 0,
	}
}
