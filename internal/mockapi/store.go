// Package mockapi is the demo system of record: a SQLite-backed HTTP server
// implementing the farmer loan, insurance and sensor endpoints the chat
// client talks to.
package mockapi

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/genfinafrica/genfin-chat/internal/api"
)

// Stage split across the seven milestones; fractions of the season loan.
var stageDefs = []struct {
	Name     string
	Fraction float64
}{
	{"Stage 1: Soil Test", 0.10},
	{"Stage 2: Inputs (Seed/Fertilizer)", 0.35},
	{"Stage 3: Insurance Premium", 0.05},
	{"Stage 4: Weeding/Maintenance", 0.15},
	{"Stage 5: Pest Control (Conditional)", 0.10},
	{"Stage 6: Packaging", 0.15},
	{"Stage 7: Transport/Marketing", 0.10},
}

// Loan principal per hectare of registered land.
const loanPerHectare = 200.0

// Farmer is a registered borrower.
type Farmer struct {
	ID         int
	Name       string
	Phone      string
	Gender     string
	Age        int
	IDDocument string
	Crop       string
	LandSize   float64
}

// Season is one loan cycle of a farmer.
type Season struct {
	ID     int
	Number int
	Crop   string
	Closed bool
}

// Store is the SQLite persistence layer.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and if needed creates) the database at dbPath.
func OpenStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS farmers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		phone TEXT UNIQUE NOT NULL,
		gender TEXT,
		age INTEGER,
		id_document TEXT,
		crop TEXT,
		land_size REAL NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS seasons (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		farmer_id INTEGER NOT NULL REFERENCES farmers(id),
		season_number INTEGER NOT NULL,
		crop TEXT,
		closed INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_seasons_farmer ON seasons(farmer_id, season_number);

	CREATE TABLE IF NOT EXISTS stages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		season_id INTEGER NOT NULL REFERENCES seasons(id),
		stage_number INTEGER NOT NULL,
		stage_name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'LOCKED',
		disbursement_amount REAL NOT NULL,
		completed_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_stages_season ON stages(season_id, stage_number);

	CREATE TABLE IF NOT EXISTS uploads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		farmer_id INTEGER NOT NULL,
		season_id INTEGER NOT NULL,
		stage_number INTEGER NOT NULL,
		file_type TEXT NOT NULL,
		file_name TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS contracts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		season_id INTEGER NOT NULL,
		state TEXT NOT NULL,
		hash_value TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_contracts_season ON contracts(season_id, id);

	CREATE TABLE IF NOT EXISTS scorecards (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		season_id INTEGER NOT NULL,
		score REAL NOT NULL,
		risk_band TEXT NOT NULL,
		xai_json TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS policies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		season_id INTEGER NOT NULL,
		policy_id TEXT UNIQUE NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS iot_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		season_id INTEGER NOT NULL,
		data_json TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// CreateFarmer inserts a farmer from a registration payload.
func (s *Store) CreateFarmer(ctx context.Context, reg api.Registration) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO farmers (name, phone, gender, age, id_document, crop, land_size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		reg.Name, reg.Phone, reg.Gender, reg.Age, reg.IDDocument, reg.Crop, reg.LandSize,
		time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert farmer: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("farmer id: %w", err)
	}
	return int(id), nil
}

// GetFarmer retrieves a farmer by ID, or nil if absent.
func (s *Store) GetFarmer(ctx context.Context, farmerID int) (*Farmer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, gender, age, id_document, crop, land_size
		FROM farmers WHERE id = ?`, farmerID)

	var f Farmer
	err := row.Scan(&f.ID, &f.Name, &f.Phone, &f.Gender, &f.Age, &f.IDDocument, &f.Crop, &f.LandSize)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan farmer row: %w", err)
	}
	return &f, nil
}

// FarmerByPhone looks a farmer up by phone number, or nil if absent.
func (s *Store) FarmerByPhone(ctx context.Context, phone string) (*Farmer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, gender, age, id_document, crop, land_size
		FROM farmers WHERE phone = ?`, phone)

	var f Farmer
	err := row.Scan(&f.ID, &f.Name, &f.Phone, &f.Gender, &f.Age, &f.IDDocument, &f.Crop, &f.LandSize)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan farmer row: %w", err)
	}
	return &f, nil
}

// CreateSeason starts a loan cycle: the season row plus its seven stages,
// stage 1 unlocked, amounts split over the land-size-scaled principal.
func (s *Store) CreateSeason(ctx context.Context, farmerID, number int, crop string, landSize float64) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO seasons (farmer_id, season_number, crop, created_at)
		VALUES (?, ?, ?, ?)`,
		farmerID, number, crop, time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert season: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("season id: %w", err)
	}
	seasonID := int(id)

	total := landSize * loanPerHectare
	for i, def := range stageDefs {
		status := api.StageLocked
		if i == 0 {
			status = api.StageUnlocked
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO stages (season_id, stage_number, stage_name, status, disbursement_amount)
			VALUES (?, ?, ?, ?, ?)`,
			seasonID, i+1, def.Name, string(status), def.Fraction*total,
		)
		if err != nil {
			return 0, fmt.Errorf("insert stage %d: %w", i+1, err)
		}
	}
	return seasonID, nil
}

// CurrentSeason returns the highest-numbered season of a farmer, or nil.
func (s *Store) CurrentSeason(ctx context.Context, farmerID int) (*Season, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, season_number, crop, closed FROM seasons
		WHERE farmer_id = ? ORDER BY season_number DESC LIMIT 1`, farmerID)
	return scanSeason(row)
}

// SeasonByNumber returns a specific past or current season, or nil.
func (s *Store) SeasonByNumber(ctx context.Context, farmerID, number int) (*Season, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, season_number, crop, closed FROM seasons
		WHERE farmer_id = ? AND season_number = ?`, farmerID, number)
	return scanSeason(row)
}

func scanSeason(row *sql.Row) (*Season, error) {
	var season Season
	var closed int
	err := row.Scan(&season.ID, &season.Number, &season.Crop, &closed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan season row: %w", err)
	}
	season.Closed = closed != 0
	return &season, nil
}

// CloseSeason marks a season as finished.
func (s *Store) CloseSeason(ctx context.Context, seasonID int) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE seasons SET closed = 1 WHERE id = ?`, seasonID); err != nil {
		return fmt.Errorf("close season: %w", err)
	}
	return nil
}

// Stages returns the stage list of a season in stage order.
func (s *Store) Stages(ctx context.Context, seasonID int) ([]api.Stage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT stage_number, stage_name, status, disbursement_amount
		FROM stages WHERE season_id = ? ORDER BY stage_number`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("query stages: %w", err)
	}
	defer rows.Close()

	var stages []api.Stage
	for rows.Next() {
		var st api.Stage
		var status string
		if err := rows.Scan(&st.StageNumber, &st.StageName, &status, &st.DisbursementAmount); err != nil {
			return nil, fmt.Errorf("scan stage row: %w", err)
		}
		st.Status = api.StageStatus(status)
		stages = append(stages, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stages: %w", err)
	}
	return stages, nil
}

// StageStatus returns one stage's status, or "" when the stage is absent.
func (s *Store) StageStatus(ctx context.Context, seasonID, stageNumber int) (api.StageStatus, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT status FROM stages WHERE season_id = ? AND stage_number = ?`,
		seasonID, stageNumber)
	var status string
	err := row.Scan(&status)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("scan stage status: %w", err)
	}
	return api.StageStatus(status), nil
}

// AdvanceStage moves a stage from one status to another. It reports whether
// the transition happened; a stage not in the expected status is a no-op.
func (s *Store) AdvanceStage(ctx context.Context, seasonID, stageNumber int, from, to api.StageStatus) (bool, error) {
	query := `UPDATE stages SET status = ? WHERE season_id = ? AND stage_number = ? AND status = ?`
	args := []any{string(to), seasonID, stageNumber, string(from)}
	if to == api.StageCompleted {
		query = `UPDATE stages SET status = ?, completed_at = ? WHERE season_id = ? AND stage_number = ? AND status = ?`
		args = []any{string(to), time.Now().Unix(), seasonID, stageNumber, string(from)}
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("advance stage: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rows > 0, nil
}

// TotalDisbursed sums the disbursement amounts of completed stages.
func (s *Store) TotalDisbursed(ctx context.Context, seasonID int) (float64, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(disbursement_amount), 0) FROM stages
		WHERE season_id = ? AND status = 'COMPLETED'`, seasonID)
	var total float64
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("sum disbursed: %w", err)
	}
	return total, nil
}

// RecordUpload stores one mock document upload.
func (s *Store) RecordUpload(ctx context.Context, farmerID, seasonID, stageNumber int, fileType, fileName string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO uploads (farmer_id, season_id, stage_number, file_type, file_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		farmerID, seasonID, stageNumber, fileType, fileName, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}
	return nil
}

// AppendContract appends a state transition to the season's audit chain.
// Each entry's hash covers the previous hash, so the chain is tamper-evident.
func (s *Store) AppendContract(ctx context.Context, seasonID int, state, detail string) error {
	var prev string
	row := s.db.QueryRowContext(ctx, `
		SELECT hash_value FROM contracts WHERE season_id = ? ORDER BY id DESC LIMIT 1`, seasonID)
	if err := row.Scan(&prev); err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("read contract head: %w", err)
	}

	now := time.Now()
	input := fmt.Sprintf("%s_%s_%s_%d", prev, state, detail, now.UnixNano())
	hash := fmt.Sprintf("%x", sha256.Sum256([]byte(input)))

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contracts (season_id, state, hash_value, created_at)
		VALUES (?, ?, ?, ?)`,
		seasonID, state, hash, now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert contract entry: %w", err)
	}
	return nil
}

// ContractChain returns the audit chain of a season in append order.
func (s *Store) ContractChain(ctx context.Context, seasonID int) ([]ContractEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT state, hash_value, created_at FROM contracts
		WHERE season_id = ? ORDER BY id`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("query contracts: %w", err)
	}
	defer rows.Close()

	var chain []ContractEntry
	for rows.Next() {
		var e ContractEntry
		var ts int64
		if err := rows.Scan(&e.State, &e.Hash, &ts); err != nil {
			return nil, fmt.Errorf("scan contract row: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0)
		chain = append(chain, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contracts: %w", err)
	}
	return chain, nil
}

// ContractEntry is one link of a season's audit chain.
type ContractEntry struct {
	State     string    `json:"state"`
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"`
}

// SaveScorecard replaces the season's latest scorecard.
func (s *Store) SaveScorecard(ctx context.Context, seasonID int, score float64, riskBand string, factors []api.XAIFactor) error {
	xai, err := json.Marshal(factors)
	if err != nil {
		return fmt.Errorf("encode factors: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scorecards (season_id, score, risk_band, xai_json, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		seasonID, score, riskBand, string(xai), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert scorecard: %w", err)
	}
	return nil
}

// LatestScorecard returns the most recent scorecard of a season, or zero
// values with ok=false when none exists.
func (s *Store) LatestScorecard(ctx context.Context, seasonID int) (float64, string, []api.XAIFactor, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT score, risk_band, xai_json FROM scorecards
		WHERE season_id = ? ORDER BY id DESC LIMIT 1`, seasonID)

	var score float64
	var riskBand, xaiJSON string
	err := row.Scan(&score, &riskBand, &xaiJSON)
	if err == sql.ErrNoRows {
		return 0, "", nil, false, nil
	}
	if err != nil {
		return 0, "", nil, false, fmt.Errorf("scan scorecard: %w", err)
	}

	var factors []api.XAIFactor
	if xaiJSON != "" {
		if err := json.Unmarshal([]byte(xaiJSON), &factors); err != nil {
			return 0, "", nil, false, fmt.Errorf("decode factors: %w", err)
		}
	}
	return score, riskBand, factors, true, nil
}

// EnsurePolicy creates the season's insurance policy if absent and returns
// its external identifier.
func (s *Store) EnsurePolicy(ctx context.Context, seasonID int, policyID string) (string, error) {
	var existing string
	row := s.db.QueryRowContext(ctx, `
		SELECT policy_id FROM policies WHERE season_id = ? LIMIT 1`, seasonID)
	err := row.Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("scan policy: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO policies (season_id, policy_id, status, created_at)
		VALUES (?, ?, 'PENDING', ?)`,
		seasonID, policyID, time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("insert policy: %w", err)
	}
	return policyID, nil
}

// PolicyStatus returns the season's policy status, or "" when no policy
// exists yet.
func (s *Store) PolicyStatus(ctx context.Context, seasonID int) (string, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT status FROM policies WHERE season_id = ? LIMIT 1`, seasonID)
	var status string
	err := row.Scan(&status)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("scan policy status: %w", err)
	}
	return status, nil
}

// SetPolicyStatus updates the season's policy status.
func (s *Store) SetPolicyStatus(ctx context.Context, seasonID int, status string) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE policies SET status = ? WHERE season_id = ?`, status, seasonID); err != nil {
		return fmt.Errorf("update policy status: %w", err)
	}
	return nil
}

// LogReadings stores one sensor submission against a season.
func (s *Store) LogReadings(ctx context.Context, seasonID int, data map[string]any) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode readings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO iot_logs (season_id, data_json, created_at)
		VALUES (?, ?, ?)`,
		seasonID, string(encoded), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert iot log: %w", err)
	}
	return nil
}

// PestFlag reports whether any sensor log of the season carried a pest
// detection.
func (s *Store) PestFlag(ctx context.Context, seasonID int) (bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data_json FROM iot_logs WHERE season_id = ?`, seasonID)
	if err != nil {
		return false, fmt.Errorf("query iot logs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dataJSON string
		if err := rows.Scan(&dataJSON); err != nil {
			return false, fmt.Errorf("scan iot log: %w", err)
		}
		var data map[string]any
		if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
			continue
		}
		if flag, ok := data["pest_detected"].(bool); ok && flag {
			return true, nil
		}
	}
	return false, rows.Err()
}
