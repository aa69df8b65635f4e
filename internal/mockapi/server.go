package mockapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/genfinafrica/genfin-chat/internal/api"
)

// Server exposes the loan workflow over HTTP.
type Server struct {
	store *Store
	log   *slog.Logger
}

// NewServer wires the handlers around a store.
func NewServer(store *Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: store, log: logger}
}

// Router builds the route table.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Post("/api/farmer/register", s.handleRegister)
	r.Get("/api/farmer/{farmerID}/status", s.handleStatus)
	r.Post("/api/farmer/{farmerID}/upload", s.handleUpload)
	r.Post("/api/farmer/{farmerID}/renew", s.handleRenew)
	r.Post("/api/iot/ingest", s.handleIngest)

	r.Post("/api/field-officer/approve/{farmerID}/{stageNumber}", s.handleApprove)
	r.Post("/api/field-officer/trigger_pest/{farmerID}", s.handlePestTrigger)
	r.Post("/api/lender/disburse/{farmerID}/{stageNumber}", s.handleDisburse)

	return r
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"message": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// writeMessage writes a bare {"message": ...} response. Clients surface the
// message verbatim, so it must read as a sentence.
func writeMessage(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"message": fmt.Sprintf(format, args...)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeMessage(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reg api.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeMessage(w, http.StatusBadRequest, "Failed to register farmer. Invalid payload.")
		return
	}
	if reg.Name == "" || reg.Phone == "" {
		writeMessage(w, http.StatusBadRequest, "Failed to register farmer. Name and phone are required.")
		return
	}
	if reg.LandSize <= 0 {
		reg.LandSize = 1.0
	}

	if existing, err := s.store.FarmerByPhone(ctx, reg.Phone); err != nil {
		s.internalError(w, "lookup phone", err)
		return
	} else if existing != nil {
		writeMessage(w, http.StatusBadRequest, "Failed to register farmer. Phone already registered.")
		return
	}

	farmerID, err := s.store.CreateFarmer(ctx, reg)
	if err != nil {
		s.internalError(w, "create farmer", err)
		return
	}
	seasonID, err := s.store.CreateSeason(ctx, farmerID, 1, reg.Crop, reg.LandSize)
	if err != nil {
		s.internalError(w, "create season", err)
		return
	}

	if err := s.store.AppendContract(ctx, seasonID, "DRAFT", "Initial Registration"); err != nil {
		s.internalError(w, "contract draft", err)
		return
	}
	if err := s.store.AppendContract(ctx, seasonID, "ACTIVE", "Contract Signed"); err != nil {
		s.internalError(w, "contract active", err)
		return
	}

	score, riskBand, factors := scoreSeason(reg.LandSize, reg.Age, len(stageDefs), 0)
	if err := s.store.SaveScorecard(ctx, seasonID, score, riskBand, factors); err != nil {
		s.internalError(w, "save scorecard", err)
		return
	}

	s.log.Info("farmer registered", "farmer_id", farmerID, "crop", reg.Crop, "land_size", reg.LandSize)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":   "Farmer registered successfully.",
		"farmer_id": farmerID,
	})
}

// statusResponse is the status snapshot plus audit extras the chat client
// does not consume but dashboards do.
type statusResponse struct {
	api.StatusSnapshot
	Phone           string          `json:"phone"`
	Crop            string          `json:"crop"`
	ContractState   string          `json:"contract_state"`
	ContractHash    string          `json:"contract_hash"`
	ContractHistory []ContractEntry `json:"contract_history"`
	PolicyID        string          `json:"policy_id,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	farmerID, ok := s.pathInt(w, r, "farmerID")
	if !ok {
		return
	}
	farmer, err := s.store.GetFarmer(ctx, farmerID)
	if err != nil {
		s.internalError(w, "lookup farmer", err)
		return
	}
	if farmer == nil {
		writeMessage(w, http.StatusNotFound, "Farmer not found")
		return
	}

	var season *Season
	if raw := r.URL.Query().Get("season_id"); raw != "" {
		number, err := strconv.Atoi(raw)
		if err != nil || number <= 0 {
			writeMessage(w, http.StatusBadRequest, "Invalid season_id")
			return
		}
		season, err = s.store.SeasonByNumber(ctx, farmerID, number)
		if err != nil {
			s.internalError(w, "lookup season", err)
			return
		}
	} else {
		season, err = s.store.CurrentSeason(ctx, farmerID)
		if err != nil {
			s.internalError(w, "lookup season", err)
			return
		}
	}
	if season == nil {
		writeMessage(w, http.StatusNotFound, "No active season found for farmer")
		return
	}

	stages, err := s.store.Stages(ctx, season.ID)
	if err != nil {
		s.internalError(w, "load stages", err)
		return
	}
	totalDisbursed, err := s.store.TotalDisbursed(ctx, season.ID)
	if err != nil {
		s.internalError(w, "total disbursed", err)
		return
	}

	score, riskBand, factors, found, err := s.store.LatestScorecard(ctx, season.ID)
	if err != nil {
		s.internalError(w, "load scorecard", err)
		return
	}
	if !found {
		score, riskBand, factors = 50, "MEDIUM", nil
	}

	policyStatus, err := s.store.PolicyStatus(ctx, season.ID)
	if err != nil {
		s.internalError(w, "load policy", err)
		return
	}
	hasInsurance := policyStatus == "ACTIVE" || policyStatus == "CLAIMED"
	claimStatus := ""
	switch policyStatus {
	case "ACTIVE":
		claimStatus = "NONE"
	case "CLAIMED":
		claimStatus = "FILED"
	}

	chain, err := s.store.ContractChain(ctx, season.ID)
	if err != nil {
		s.internalError(w, "load contracts", err)
		return
	}
	contractState, contractHash := "N/A", "N/A"
	if len(chain) > 0 {
		head := chain[len(chain)-1]
		contractState, contractHash = head.State, head.Hash
	}

	writeJSON(w, http.StatusOK, statusResponse{
		StatusSnapshot: api.StatusSnapshot{
			FarmerID:             farmer.ID,
			Name:                 farmer.Name,
			SeasonNumber:         season.Number,
			Stages:               stages,
			HasInsurance:         hasInsurance,
			InsuranceClaimStatus: claimStatus,
			CurrentStatus: api.CurrentStatus{
				TotalDisbursed: totalDisbursed,
				Score:          score,
				RiskBand:       riskBand,
				XAIFactors:     factors,
			},
		},
		Phone:           farmer.Phone,
		Crop:            season.Crop,
		ContractState:   contractState,
		ContractHash:    contractHash,
		ContractHistory: chain,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	farmer, season, ok := s.farmerSeason(w, r)
	if !ok {
		return
	}

	var payload struct {
		StageNumber int    `json:"stage_number"`
		FileType    string `json:"file_type"`
		FileName    string `json:"file_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid upload payload.")
		return
	}

	moved, err := s.store.AdvanceStage(ctx, season.ID, payload.StageNumber, api.StageUnlocked, api.StagePending)
	if err != nil {
		s.internalError(w, "advance stage", err)
		return
	}
	if !moved {
		status, err := s.store.StageStatus(ctx, season.ID, payload.StageNumber)
		if err != nil {
			s.internalError(w, "stage status", err)
			return
		}
		if status == "" {
			status = "N/A"
		}
		writeMessage(w, http.StatusBadRequest,
			"Stage %d is not ready for upload. Status: %s", payload.StageNumber, status)
		return
	}

	if err := s.store.RecordUpload(ctx, farmer.ID, season.ID, payload.StageNumber, payload.FileType, payload.FileName); err != nil {
		s.internalError(w, "record upload", err)
		return
	}
	state := fmt.Sprintf("STAGE_%d_PENDING", payload.StageNumber)
	if err := s.store.AppendContract(ctx, season.ID, state, payload.FileType+" uploaded"); err != nil {
		s.internalError(w, "contract entry", err)
		return
	}

	s.log.Info("document uploaded", "farmer_id", farmer.ID, "stage", payload.StageNumber, "file", payload.FileName)
	writeMessage(w, http.StatusOK,
		"Upload successful for Stage %d. Status updated to PENDING Field Officer approval.", payload.StageNumber)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	farmer, season, ok := s.farmerSeason(w, r)
	if !ok {
		return
	}
	stageNumber, ok := s.pathInt(w, r, "stageNumber")
	if !ok {
		return
	}

	moved, err := s.store.AdvanceStage(ctx, season.ID, stageNumber, api.StagePending, api.StageApproved)
	if err != nil {
		s.internalError(w, "advance stage", err)
		return
	}
	if !moved {
		writeMessage(w, http.StatusBadRequest, "Stage %d not found or not in PENDING status.", stageNumber)
		return
	}

	state := fmt.Sprintf("STAGE_%d_APPROVED", stageNumber)
	if err := s.store.AppendContract(ctx, season.ID, state, "Field Officer Approval"); err != nil {
		s.internalError(w, "contract entry", err)
		return
	}

	s.log.Info("stage approved", "farmer_id", farmer.ID, "stage", stageNumber)
	writeMessage(w, http.StatusOK, "Stage %d approved successfully. Ready for lender disbursement.", stageNumber)
}

func (s *Server) handleDisburse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	farmer, season, ok := s.farmerSeason(w, r)
	if !ok {
		return
	}
	stageNumber, ok := s.pathInt(w, r, "stageNumber")
	if !ok {
		return
	}

	moved, err := s.store.AdvanceStage(ctx, season.ID, stageNumber, api.StageApproved, api.StageCompleted)
	if err != nil {
		s.internalError(w, "advance stage", err)
		return
	}
	if !moved {
		writeMessage(w, http.StatusBadRequest, "Stage %d not found or not in APPROVED status.", stageNumber)
		return
	}

	// Completing the premium stage binds the insurance policy.
	if stageNumber == 3 {
		policyID, err := s.store.EnsurePolicy(ctx, season.ID, "POL-"+uuid.NewString())
		if err != nil {
			s.internalError(w, "ensure policy", err)
			return
		}
		if err := s.store.SetPolicyStatus(ctx, season.ID, "ACTIVE"); err != nil {
			s.internalError(w, "activate policy", err)
			return
		}
		detail := fmt.Sprintf("Policy %s Bound after Premium Disbursement", policyID)
		if err := s.store.AppendContract(ctx, season.ID, "POLICY_ACTIVE", detail); err != nil {
			s.internalError(w, "contract entry", err)
			return
		}
	}

	if err := s.unlockNextStage(ctx, season.ID, stageNumber); err != nil {
		s.internalError(w, "unlock next stage", err)
		return
	}

	state := fmt.Sprintf("STAGE_%d_COMPLETED", stageNumber)
	if err := s.store.AppendContract(ctx, season.ID, state, "Funds Disbursed"); err != nil {
		s.internalError(w, "contract entry", err)
		return
	}
	if err := s.rescore(ctx, farmer, season.ID); err != nil {
		s.internalError(w, "rescore", err)
		return
	}

	s.log.Info("stage disbursed", "farmer_id", farmer.ID, "stage", stageNumber)
	writeMessage(w, http.StatusOK, "Funds disbursed for Stage %d. Status updated to COMPLETED.", stageNumber)
}

// unlockNextStage opens the stage after the one just completed. The pest
// control stage only unlocks when a pest event has been logged; otherwise it
// is skipped in favor of the stage after it.
func (s *Server) unlockNextStage(ctx context.Context, seasonID, completed int) error {
	next := completed + 1
	if next == 5 {
		pest, err := s.store.PestFlag(ctx, seasonID)
		if err != nil {
			return err
		}
		if !pest {
			next = 6
			if err := s.store.AppendContract(ctx, seasonID, "STAGE_5_SKIPPED", "No Pest Event Triggered"); err != nil {
				return err
			}
		}
	}
	_, err := s.store.AdvanceStage(ctx, seasonID, next, api.StageLocked, api.StageUnlocked)
	return err
}

func (s *Server) rescore(ctx context.Context, farmer *Farmer, seasonID int) error {
	stages, err := s.store.Stages(ctx, seasonID)
	if err != nil {
		return err
	}
	completed := 0
	for _, st := range stages {
		if st.Status == api.StageCompleted {
			completed++
		}
	}
	score, riskBand, factors := scoreSeason(farmer.LandSize, farmer.Age, len(stages), completed)
	return s.store.SaveScorecard(ctx, seasonID, score, riskBand, factors)
}

func (s *Server) handlePestTrigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	farmer, season, ok := s.farmerSeason(w, r)
	if !ok {
		return
	}

	if err := s.store.LogReadings(ctx, season.ID, map[string]any{
		"pest_detected": true,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		s.internalError(w, "log pest event", err)
		return
	}
	if _, err := s.store.AdvanceStage(ctx, season.ID, 5, api.StageLocked, api.StageUnlocked); err != nil {
		s.internalError(w, "unlock stage 5", err)
		return
	}
	if err := s.store.AppendContract(ctx, season.ID, "PEST_EVENT_FLAGGED", "Field Officer Mock Trigger"); err != nil {
		s.internalError(w, "contract entry", err)
		return
	}

	s.log.Info("pest event flagged", "farmer_id", farmer.ID)
	writeMessage(w, http.StatusOK, "Pest event flagged. Stage 5 (Pest Control) unlocked for funding.")
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	farmerID, err := strconv.Atoi(r.URL.Query().Get("farmer_id"))
	if err != nil || farmerID <= 0 {
		writeMessage(w, http.StatusBadRequest, "farmer_id query parameter is required")
		return
	}
	farmer, err := s.store.GetFarmer(ctx, farmerID)
	if err != nil {
		s.internalError(w, "lookup farmer", err)
		return
	}
	if farmer == nil {
		writeMessage(w, http.StatusNotFound, "Farmer not found")
		return
	}
	season, err := s.store.CurrentSeason(ctx, farmerID)
	if err != nil {
		s.internalError(w, "lookup season", err)
		return
	}
	if season == nil {
		writeMessage(w, http.StatusNotFound, "No active season found")
		return
	}

	var readings map[string]float64
	if err := json.NewDecoder(r.Body).Decode(&readings); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid sensor payload.")
		return
	}

	moisture, hasMoisture := readings["moisture"]
	temperature, hasTemperature := readings["temperature"]
	pestDetected := hasTemperature && hasMoisture && temperature > 35 && moisture < 15

	logData := make(map[string]any, len(readings)+1)
	for k, v := range readings {
		logData[k] = v
	}
	logData["pest_detected"] = pestDetected
	if err := s.store.LogReadings(ctx, season.ID, logData); err != nil {
		s.internalError(w, "log readings", err)
		return
	}

	if pestDetected {
		unlocked, err := s.store.AdvanceStage(ctx, season.ID, 5, api.StageLocked, api.StageUnlocked)
		if err != nil {
			s.internalError(w, "unlock stage 5", err)
			return
		}
		if unlocked {
			if err := s.store.AppendContract(ctx, season.ID, "PEST_EVENT_AUTO_TRIGGER", "IoT Sensor Alert"); err != nil {
				s.internalError(w, "contract entry", err)
				return
			}
		}
	}

	droughtFlag, err := s.checkDroughtClaim(ctx, season.ID, moisture, hasMoisture)
	if err != nil {
		s.internalError(w, "drought check", err)
		return
	}

	s.log.Info("sensor readings ingested",
		"farmer_id", farmerID, "keys", len(readings),
		"pest", pestDetected, "drought", droughtFlag)
	writeJSON(w, http.StatusOK, api.IngestResult{
		Message:     fmt.Sprintf("IoT data ingested. Pest detected: %t.", pestDetected),
		DroughtFlag: droughtFlag,
	})
}

// checkDroughtClaim files an insurance claim when low moisture is read on an
// active policy after the maintenance stage has completed.
func (s *Server) checkDroughtClaim(ctx context.Context, seasonID int, moisture float64, hasMoisture bool) (bool, error) {
	if !hasMoisture || moisture >= 25 {
		return false, nil
	}
	policyStatus, err := s.store.PolicyStatus(ctx, seasonID)
	if err != nil {
		return false, err
	}
	if policyStatus != "ACTIVE" {
		return false, nil
	}
	stage4, err := s.store.StageStatus(ctx, seasonID, 4)
	if err != nil {
		return false, err
	}
	if stage4 != api.StageCompleted {
		return false, nil
	}

	if err := s.store.SetPolicyStatus(ctx, seasonID, "CLAIMED"); err != nil {
		return false, err
	}
	detail := fmt.Sprintf("Moisture was %.1f", moisture)
	if err := s.store.AppendContract(ctx, seasonID, "INSURANCE_CLAIMED_DROUGHT", detail); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Server) handleRenew(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	farmer, season, ok := s.farmerSeason(w, r)
	if !ok {
		return
	}

	if err := s.store.CloseSeason(ctx, season.ID); err != nil {
		s.internalError(w, "close season", err)
		return
	}
	if err := s.store.AppendContract(ctx, season.ID, "SEASON_CLOSED", "Renewal Requested"); err != nil {
		s.internalError(w, "contract entry", err)
		return
	}

	nextNumber := season.Number + 1
	nextID, err := s.store.CreateSeason(ctx, farmer.ID, nextNumber, farmer.Crop, farmer.LandSize)
	if err != nil {
		s.internalError(w, "create season", err)
		return
	}
	if err := s.store.AppendContract(ctx, nextID, "DRAFT", "Season Renewal"); err != nil {
		s.internalError(w, "contract entry", err)
		return
	}
	if err := s.store.AppendContract(ctx, nextID, "ACTIVE", "Contract Signed"); err != nil {
		s.internalError(w, "contract entry", err)
		return
	}

	score, riskBand, factors := scoreSeason(farmer.LandSize, farmer.Age, len(stageDefs), 0)
	if err := s.store.SaveScorecard(ctx, nextID, score, riskBand, factors); err != nil {
		s.internalError(w, "save scorecard", err)
		return
	}

	s.log.Info("season renewed", "farmer_id", farmer.ID, "season", nextNumber)
	writeMessage(w, http.StatusOK, "Season %d started for %s. Stage 1 unlocked.", nextNumber, farmer.Name)
}

// farmerSeason resolves the path farmer and its current season, writing the
// error response itself when either is missing.
func (s *Server) farmerSeason(w http.ResponseWriter, r *http.Request) (*Farmer, *Season, bool) {
	ctx := r.Context()

	farmerID, ok := s.pathInt(w, r, "farmerID")
	if !ok {
		return nil, nil, false
	}
	farmer, err := s.store.GetFarmer(ctx, farmerID)
	if err != nil {
		s.internalError(w, "lookup farmer", err)
		return nil, nil, false
	}
	if farmer == nil {
		writeMessage(w, http.StatusNotFound, "Farmer not found")
		return nil, nil, false
	}
	season, err := s.store.CurrentSeason(ctx, farmerID)
	if err != nil {
		s.internalError(w, "lookup season", err)
		return nil, nil, false
	}
	if season == nil {
		writeMessage(w, http.StatusNotFound, "No active season found")
		return nil, nil, false
	}
	return farmer, season, true
}

func (s *Server) pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || v <= 0 {
		writeMessage(w, http.StatusBadRequest, "Invalid %s", name)
		return 0, false
	}
	return v, true
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.log.Error("request failed", "op", op, "error", err)
	writeMessage(w, http.StatusInternalServerError, "Internal server error")
}
