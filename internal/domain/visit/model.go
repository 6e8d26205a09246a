package visit

// Status is the HIS-defined clinical stage of one registration. The backend
// only ever moves a visit forward through this sequence; this service mirrors
// transitions it has just confirmed and never issues a backward move.
type Status string

const (
	StatusWaitingForConsultation    Status = "WAITING_FOR_CONSULTATION"
	StatusInitialConsultationDone   Status = "INITIAL_CONSULTATION_DONE"
	StatusWaitingForProjectPayment  Status = "WAITING_FOR_PROJECT_PAYMENT"
	StatusWaitingForCheckup         Status = "WAITING_FOR_CHECKUP"
	StatusChecking                  Status = "CHECKING"
	StatusWaitingForRevisit         Status = "WAITING_FOR_REVISIT"
	StatusRevisited                 Status = "REVISITED"
	StatusWaitingForPrescriptionPay Status = "WAITING_FOR_PRESCRIPTION_PAYMENT"
	StatusWaitingForMedicine        Status = "WAITING_FOR_MEDICINE"
	StatusMedicineTaken             Status = "MEDICINE_TAKEN"
	StatusMedicineReturned          Status = "MEDICINE_RETURNED"
	StatusFinished                  Status = "FINISHED"
)

// AllStatuses lists every recognized status in forward clinical order.
var AllStatuses = []Status{
	StatusWaitingForConsultation,
	StatusInitialConsultationDone,
	StatusWaitingForProjectPayment,
	StatusWaitingForCheckup,
	StatusChecking,
	StatusWaitingForRevisit,
	StatusRevisited,
	StatusWaitingForPrescriptionPay,
	StatusWaitingForMedicine,
	StatusMedicineTaken,
	StatusMedicineReturned,
	StatusFinished,
}

// Known reports whether s is one of the recognized HIS statuses.
func (s Status) Known() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Bucket is the coarse badge classification doctors actually look at.
type Bucket string

const (
	BucketPending         Bucket = "PENDING"
	BucketInProgress      Bucket = "PROCESSING"
	BucketAwaitingRevisit Bucket = "REVISIT"
	BucketFinished        Bucket = "FINISHED"
	BucketUnknown         Bucket = "UNKNOWN"
)

// DisplayInfo is the badge text and severity for a bucket.
type DisplayInfo struct {
	Bucket   Bucket `json:"bucket"`
	Label    string `json:"label"`
	Severity string `json:"severity"`
}

var displayByBucket = map[Bucket]DisplayInfo{
	BucketPending:         {Bucket: BucketPending, Label: "Pending consultation", Severity: "warning"},
	BucketInProgress:      {Bucket: BucketInProgress, Label: "Exam / treatment in progress", Severity: "primary"},
	BucketAwaitingRevisit: {Bucket: BucketAwaitingRevisit, Label: "Awaiting revisit", Severity: "danger"},
	BucketFinished:        {Bucket: BucketFinished, Label: "Visit complete", Severity: "success"},
	BucketUnknown:         {Bucket: BucketUnknown, Label: "Unknown status", Severity: "info"},
}

// DisplayBucket collapses the fine-grained HIS status into the five badge
// buckets. WAITING_FOR_PROJECT_PAYMENT classifies as awaiting-revisit, not
// in-progress; the badge tracks what the doctor is waiting on, and after
// ordering projects the doctor's next touchpoint is the revisit.
func (s Status) DisplayBucket() Bucket {
	switch s {
	case StatusWaitingForConsultation:
		return BucketPending
	case StatusWaitingForProjectPayment, StatusWaitingForRevisit, StatusRevisited:
		return BucketAwaitingRevisit
	case StatusWaitingForPrescriptionPay, StatusWaitingForMedicine,
		StatusMedicineTaken, StatusMedicineReturned, StatusFinished:
		return BucketFinished
	case StatusInitialConsultationDone, StatusWaitingForCheckup, StatusChecking:
		return BucketInProgress
	default:
		return BucketUnknown
	}
}

// Display returns the badge info for s.
func (s Status) Display() DisplayInfo {
	return displayByBucket[s.DisplayBucket()]
}

// CanOrderTests reports whether exam/lab/disposal projects may still be
// requested: anything up to and including the wait for the revisit. Once the
// diagnosis is confirmed (REVISITED) the request window is closed.
func (s Status) CanOrderTests() bool {
	switch s {
	case StatusWaitingForConsultation, StatusInitialConsultationDone,
		StatusWaitingForProjectPayment, StatusWaitingForCheckup,
		StatusChecking, StatusWaitingForRevisit:
		return true
	}
	return false
}

// IsChartEditable reports whether the clinical note may still be changed.
// Charting closes at the same transition as project ordering: confirming
// the diagnosis seals the record.
func (s Status) IsChartEditable() bool {
	return s.CanOrderTests()
}

// CanPrescribe reports whether prescriptions may be issued: only in the
// window right after the diagnosis is confirmed, before payment/dispense.
func (s Status) CanPrescribe() bool {
	return s == StatusRevisited
}

// MenuGates lists which workstation sections are reachable. Navigation uses
// this; the HIS independently rejects out-of-order actions.
type MenuGates struct {
	CaseHome     bool `json:"caseHome"`
	ExamRequest  bool `json:"examRequest"`
	ResultView   bool `json:"resultView"`
	Diagnosis    bool `json:"diagnosis"`
	Prescription bool `json:"prescription"`
	FeeInquiry   bool `json:"feeInquiry"`
}

// GatesFor computes the section gates for a visit with the given status and
// charting state.
func GatesFor(status Status, hasCase bool) MenuGates {
	waiting := status == StatusWaitingForConsultation

	finishedPhase := false
	switch status {
	case StatusRevisited, StatusWaitingForPrescriptionPay,
		StatusWaitingForMedicine, StatusFinished:
		finishedPhase = true
	}

	return MenuGates{
		CaseHome:     true,
		ExamRequest:  hasCase,
		ResultView:   hasCase && !waiting,
		Diagnosis:    hasCase,
		Prescription: hasCase && finishedPhase,
		FeeInquiry:   hasCase,
	}
}

// PatientSummary is the read-only banner data for the active visit.
type PatientSummary struct {
	Name      string `json:"name"`
	Gender    string `json:"gender"`
	Age       string `json:"age"`
	MedicalNo string `json:"medicalNo"`
}

// ContextData is the workspace-initialization payload fetched from the HIS.
type ContextData struct {
	RegistrationID int64  `json:"registrationId"`
	CaseID         *int64 `json:"caseId"`
	VisitStatus    string `json:"visitStatus"`
	PatientName    string `json:"patientName"`
	PatientGender  string `json:"patientGender"`
	PatientAge     string `json:"patientAge"`
	MedicalNo      string `json:"medicalNo"`
}

// Session is a point-in-time view of the visit context for API responses.
type Session struct {
	RegistrationID *int64         `json:"registrationId"`
	CaseID         *int64         `json:"caseId"`
	Status         Status         `json:"visitStatus"`
	Display        DisplayInfo    `json:"statusDisplay"`
	Patient        PatientSummary `json:"patient"`
	Gates          MenuGates      `json:"menuGates"`
	CanOrderTests  bool           `json:"canOrderTests"`
	ChartEditable  bool           `json:"isChartEditable"`
	CanPrescribe   bool           `json:"canPrescribe"`
	Loading        bool           `json:"loading"`
}
