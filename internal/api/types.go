// Package api is the HTTP client for the GENFIN system of record. The chat
// engine consumes this contract and nothing else about the backend.
package api

// StageStatus is the lifecycle state of a single loan stage. Stages only
// advance forward: LOCKED → UNLOCKED → PENDING → APPROVED → COMPLETED.
type StageStatus string

const (
	StageLocked    StageStatus = "LOCKED"
	StageUnlocked  StageStatus = "UNLOCKED"
	StagePending   StageStatus = "PENDING"
	StageApproved  StageStatus = "APPROVED"
	StageCompleted StageStatus = "COMPLETED"
)

// Stage is one of the seven fixed sequential milestones in a season.
type Stage struct {
	StageNumber        int         `json:"stage_number"`
	StageName          string      `json:"stage_name"`
	Status             StageStatus `json:"status"`
	DisbursementAmount float64     `json:"disbursement_amount"`
}

// XAIFactor is one explainability factor behind the proficiency score.
type XAIFactor struct {
	Factor string  `json:"factor"`
	Weight float64 `json:"weight"`
}

// CurrentStatus carries the season-level financial and scoring summary.
type CurrentStatus struct {
	TotalDisbursed float64     `json:"total_disbursed"`
	Score          float64     `json:"score"`
	RiskBand       string      `json:"risk_band"`
	XAIFactors     []XAIFactor `json:"xai_factors"`
}

// StatusSnapshot is the full structured status of a farmer's season as
// returned by the backend. It is replaced wholesale on every fetch and
// never merged partially.
type StatusSnapshot struct {
	FarmerID             int           `json:"farmer_id"`
	Name                 string        `json:"name"`
	SeasonNumber         int           `json:"season_number"`
	Stages               []Stage       `json:"stages"`
	HasInsurance         bool          `json:"has_insurance"`
	InsuranceClaimStatus string        `json:"insurance_claim_status,omitempty"`
	CurrentStatus        CurrentStatus `json:"current_status"`
}

// FirstUnlockedStage returns the first stage in stage order whose status is
// UNLOCKED, or nil if there is none.
func (s *StatusSnapshot) FirstUnlockedStage() *Stage {
	for i := range s.Stages {
		if s.Stages[i].Status == StageUnlocked {
			return &s.Stages[i]
		}
	}
	return nil
}

// SeasonComplete reports whether every stage has been completed.
func (s *StatusSnapshot) SeasonComplete() bool {
	if len(s.Stages) == 0 {
		return false
	}
	for _, st := range s.Stages {
		if st.Status != StageCompleted {
			return false
		}
	}
	return true
}

// Registration is the payload submitted at the end of the registration
// wizard. Field order mirrors the order the wizard collects them in.
type Registration struct {
	Name       string  `json:"name"`
	Phone      string  `json:"phone"`
	Age        int     `json:"age"`
	Gender     string  `json:"gender"`
	IDDocument string  `json:"id_document"`
	Crop       string  `json:"crop"`
	LandSize   float64 `json:"land_size"`
}

// IngestResult is the backend's answer to a sensor reading submission.
type IngestResult struct {
	Message     string `json:"message"`
	DroughtFlag bool   `json:"drought_flag"`
}
