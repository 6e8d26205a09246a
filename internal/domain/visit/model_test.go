package visit

import (
	"testing"
)

func TestDisplayBucket_TotalMapping(t *testing.T) {
	want := map[Status]Bucket{
		StatusWaitingForConsultation:    BucketPending,
		StatusInitialConsultationDone:   BucketInProgress,
		StatusWaitingForProjectPayment:  BucketAwaitingRevisit,
		StatusWaitingForCheckup:         BucketInProgress,
		StatusChecking:                  BucketInProgress,
		StatusWaitingForRevisit:         BucketAwaitingRevisit,
		StatusRevisited:                 BucketAwaitingRevisit,
		StatusWaitingForPrescriptionPay: BucketFinished,
		StatusWaitingForMedicine:        BucketFinished,
		StatusMedicineTaken:             BucketFinished,
		StatusMedicineReturned:          BucketFinished,
		StatusFinished:                  BucketFinished,
	}

	for _, s := range AllStatuses {
		got := s.DisplayBucket()
		if got != want[s] {
			t.Errorf("%s -> %s, want %s", s, got, want[s])
		}
		if got == BucketUnknown {
			t.Errorf("%s fell through to the unknown bucket", s)
		}
		// Deterministic: same input, same bucket.
		if again := s.DisplayBucket(); again != got {
			t.Errorf("%s mapped to %s then %s", s, got, again)
		}
	}

	if got := Status("SOMETHING_NEW").DisplayBucket(); got != BucketUnknown {
		t.Errorf("unrecognized status -> %s, want %s", got, BucketUnknown)
	}
	if got := Status("").DisplayBucket(); got != BucketUnknown {
		t.Errorf("empty status -> %s, want %s", got, BucketUnknown)
	}
}

func TestDisplay_CarriesBadgeInfo(t *testing.T) {
	info := StatusWaitingForConsultation.Display()
	if info.Bucket != BucketPending || info.Label == "" || info.Severity != "warning" {
		t.Errorf("display = %+v", info)
	}
}

func TestCanOrderTests_ClosesAtRevisited(t *testing.T) {
	open := map[Status]bool{
		StatusWaitingForConsultation:   true,
		StatusInitialConsultationDone:  true,
		StatusWaitingForProjectPayment: true,
		StatusWaitingForCheckup:        true,
		StatusChecking:                 true,
		StatusWaitingForRevisit:        true,
	}

	for _, s := range AllStatuses {
		if got := s.CanOrderTests(); got != open[s] {
			t.Errorf("CanOrderTests(%s) = %v, want %v", s, got, open[s])
		}
	}
}

func TestIsChartEditable_NeverDivergesFromCanOrderTests(t *testing.T) {
	statuses := append([]Status{Status("UNKNOWN_VALUE"), Status("")}, AllStatuses...)
	for _, s := range statuses {
		if s.IsChartEditable() != s.CanOrderTests() {
			t.Errorf("predicates diverge at %s", s)
		}
	}
}

func TestCanPrescribe_ExactlyAtRevisited(t *testing.T) {
	for _, s := range AllStatuses {
		want := s == StatusRevisited
		if got := s.CanPrescribe(); got != want {
			t.Errorf("CanPrescribe(%s) = %v, want %v", s, got, want)
		}
	}
	if StatusFinished.CanPrescribe() {
		t.Error("prescribing allowed after the visit finished")
	}
}

func TestGatesFor(t *testing.T) {
	tests := []struct {
		name    string
		status  Status
		hasCase bool
		want    MenuGates
	}{
		{
			name:   "uncharted visit only reaches the case home",
			status: StatusWaitingForConsultation,
			want:   MenuGates{CaseHome: true},
		},
		{
			name:    "charted but still waiting hides results",
			status:  StatusWaitingForConsultation,
			hasCase: true,
			want: MenuGates{
				CaseHome: true, ExamRequest: true, Diagnosis: true, FeeInquiry: true,
			},
		},
		{
			name:    "mid-treatment opens results",
			status:  StatusChecking,
			hasCase: true,
			want: MenuGates{
				CaseHome: true, ExamRequest: true, ResultView: true,
				Diagnosis: true, FeeInquiry: true,
			},
		},
		{
			name:    "revisited unlocks prescriptions",
			status:  StatusRevisited,
			hasCase: true,
			want: MenuGates{
				CaseHome: true, ExamRequest: true, ResultView: true,
				Diagnosis: true, Prescription: true, FeeInquiry: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GatesFor(tt.status, tt.hasCase); got != tt.want {
				t.Errorf("gates = %+v, want %+v", got, tt.want)
			}
		})
	}
}
