package caserecord

// InitialNote is the first charting stage, written at the initial
// consultation.
type InitialNote struct {
	ChiefComplaint string `json:"chiefComplaint"`
	PresentHistory string `json:"presentHistory"`
	PhysicalExam   string `json:"physicalExam"`
}

// Empty reports whether nothing has been charted yet.
func (n InitialNote) Empty() bool {
	return n.ChiefComplaint == "" && n.PresentHistory == "" && n.PhysicalExam == ""
}

// DiagnosisNote is the second charting stage, written at the revisit.
type DiagnosisNote struct {
	Diagnosis     string `json:"diagnosis"`
	TreatmentPlan string `json:"treatmentPlan"`
}

func (n DiagnosisNote) Empty() bool {
	return n.Diagnosis == "" && n.TreatmentPlan == ""
}

// CaseDetail is the full clinical note as stored by the HIS.
type CaseDetail struct {
	PatientNo      string `json:"patientNo"`
	RegistrationID int64  `json:"registrationId"`
	ChiefComplaint string `json:"chiefComplaint"`
	PresentHistory string `json:"presentHistory"`
	PhysicalExam   string `json:"physicalExam"`
	Diagnosis      string `json:"diagnosis"`
	TreatmentPlan  string `json:"treatmentPlan"`
	CreateTime     string `json:"createTime,omitempty"`
}

// CaseUpsert is the write payload for both creating a case and confirming
// its diagnosis. Updates always carry the full note: sending only the
// changed stage would let the HIS overwrite the other stage with blanks.
type CaseUpsert struct {
	PatientNo      string `json:"patientNo"`
	RegistrationID int64  `json:"registrationId"`
	ChiefComplaint string `json:"chiefComplaint"`
	PresentHistory string `json:"presentHistory"`
	PhysicalExam   string `json:"physicalExam"`
	Diagnosis      string `json:"diagnosis"`
	TreatmentPlan  string `json:"treatmentPlan"`
}

// noteDraft is the locally persisted shadow of both charting stages.
type noteDraft struct {
	Initial   InitialNote   `json:"initialForm"`
	Diagnosis DiagnosisNote `json:"diagnosisForm"`
}

// State is a point-in-time view of the editor for API responses.
type State struct {
	Loading    bool          `json:"loading"`
	Submitting bool          `json:"submitting"`
	Initial    InitialNote   `json:"initialForm"`
	Diagnosis  DiagnosisNote `json:"diagnosisForm"`
	Detail     *CaseDetail   `json:"caseDetail,omitempty"`
}
