// Package query exposes read-only HTTP fetchers over the treasury state.
package query

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"

	"github.com/rainman456/solana-dappTreasury/observability"
	"github.com/rainman456/solana-dappTreasury/treasury"
)

var errNotFound = errors.New("query: record not found")

// Store is the read surface the service needs: the engine state plus the
// audit index walk.
type Store interface {
	treasury.State
	AuditIndex(treasuryAddr solana.PublicKey) ([]solana.PublicKey, error)
}

// Service serves treasury records as JSON.
type Service struct {
	store     Store
	programID solana.PublicKey
	logger    *slog.Logger
	metrics   *observability.QueryMetrics
}

// NewService wires a query service over the store for one program identity.
func NewService(store Store, programID solana.PublicKey, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		programID: programID,
		logger:    logger.With("component", "query"),
		metrics:   observability.Queries(),
	}
}

// Routes mounts all fetchers on a fresh router.
func (s *Service) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/v1/treasury", s.handle("treasury", s.getTreasury))
	r.Get("/v1/treasury/users/{pubkey}", s.handle("user", s.getUser))
	r.Get("/v1/treasury/recipients/{pubkey}", s.handle("recipient", s.getRecipient))
	r.Get("/v1/treasury/payouts/{recipient}/{index}", s.handle("payout", s.getPayout))
	r.Get("/v1/treasury/token-balances/{mint}", s.handle("token_balance", s.getTokenBalance))
	r.Get("/v1/treasury/audit", s.handle("audit_log", s.getAuditLog))
	r.Get("/v1/treasury/audit/{initiator}/{timestamp}", s.handle("audit_record", s.getAuditRecord))
	return r
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle wraps a fetcher with latency metrics and uniform error rendering.
func (s *Service) handle(route string, fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		status := http.StatusOK
		if err := fn(w, r); err != nil {
			switch {
			case errors.Is(err, errNotFound):
				status = http.StatusNotFound
			case errors.Is(err, errBadRequest):
				status = http.StatusBadRequest
			default:
				status = http.StatusInternalServerError
				s.logger.Error("query failed", "route", route, "error", err)
			}
			writeError(w, status, err)
		}
		s.metrics.Observe(route, strconv.Itoa(status), time.Since(started))
	}
}

var errBadRequest = errors.New("query: bad request")

func writeJSON(w http.ResponseWriter, payload interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func parsePubkey(raw string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return solana.PublicKey{}, errBadRequest
	}
	return key, nil
}

type treasuryResponse struct {
	Address         string  `json:"address"`
	Admin           string  `json:"admin"`
	EpochDuration   uint64  `json:"epochDuration"`
	SpendingLimit   uint64  `json:"spendingLimit"`
	TotalFunds      uint64  `json:"totalFunds"`
	LastEpochStart  int64   `json:"lastEpochStart"`
	EpochSpending   uint64  `json:"epochSpending"`
	NextPayoutIndex uint64  `json:"nextPayoutIndex"`
	IsPaused        bool    `json:"isPaused"`
	GateTokenMint   *string `json:"gateTokenMint,omitempty"`
}

func (s *Service) getTreasury(w http.ResponseWriter, _ *http.Request) error {
	addr, _, err := treasury.DeriveTreasuryAddress(s.programID)
	if err != nil {
		return err
	}
	record, ok, err := s.store.TreasuryGet(addr)
	if err != nil {
		return err
	}
	if !ok {
		return errNotFound
	}
	resp := treasuryResponse{
		Address:         addr.String(),
		Admin:           record.Admin.String(),
		EpochDuration:   record.EpochDuration,
		SpendingLimit:   record.SpendingLimit,
		TotalFunds:      record.TotalFunds,
		LastEpochStart:  record.LastEpochStart,
		EpochSpending:   record.EpochSpending,
		NextPayoutIndex: record.NextPayoutIndex,
		IsPaused:        record.IsPaused,
	}
	if record.GateTokenMint != nil {
		mint := record.GateTokenMint.String()
		resp.GateTokenMint = &mint
	}
	return writeJSON(w, resp)
}

type userResponse struct {
	Address  string `json:"address"`
	User     string `json:"user"`
	Treasury string `json:"treasury"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

func (s *Service) getUser(w http.ResponseWriter, r *http.Request) error {
	user, err := parsePubkey(chi.URLParam(r, "pubkey"))
	if err != nil {
		return err
	}
	treasuryAddr, _, err := treasury.DeriveTreasuryAddress(s.programID)
	if err != nil {
		return err
	}
	addr, _, err := treasury.DeriveUserAddress(s.programID, user, treasuryAddr)
	if err != nil {
		return err
	}
	record, ok, err := s.store.UserGet(addr)
	if err != nil {
		return err
	}
	if !ok {
		return errNotFound
	}
	return writeJSON(w, userResponse{
		Address:  addr.String(),
		User:     record.User.String(),
		Treasury: record.Treasury.String(),
		Role:     record.Role.String(),
		IsActive: record.IsActive,
	})
}

type recipientResponse struct {
	Address   string `json:"address"`
	Recipient string `json:"recipient"`
	Treasury  string `json:"treasury"`
	Name      string `json:"name"`
	IsActive  bool   `json:"isActive"`
}

func (s *Service) getRecipient(w http.ResponseWriter, r *http.Request) error {
	recipient, err := parsePubkey(chi.URLParam(r, "pubkey"))
	if err != nil {
		return err
	}
	treasuryAddr, _, err := treasury.DeriveTreasuryAddress(s.programID)
	if err != nil {
		return err
	}
	addr, _, err := treasury.DeriveRecipientAddress(s.programID, recipient, treasuryAddr)
	if err != nil {
		return err
	}
	record, ok, err := s.store.RecipientGet(addr)
	if err != nil {
		return err
	}
	if !ok {
		return errNotFound
	}
	return writeJSON(w, recipientResponse{
		Address:   addr.String(),
		Recipient: record.Recipient.String(),
		Treasury:  record.Treasury.String(),
		Name:      record.Name,
		IsActive:  record.IsActive,
	})
}

type payoutResponse struct {
	Address            string  `json:"address"`
	Recipient          string  `json:"recipient"`
	Amount             uint64  `json:"amount"`
	ScheduleTime       int64   `json:"scheduleTime"`
	Recurring          bool    `json:"recurring"`
	RecurrenceInterval uint64  `json:"recurrenceInterval"`
	LastExecuted       int64   `json:"lastExecuted"`
	IsActive           bool    `json:"isActive"`
	CreatedBy          string  `json:"createdBy"`
	Index              uint64  `json:"index"`
	TokenMint          *string `json:"tokenMint,omitempty"`
}

func (s *Service) getPayout(w http.ResponseWriter, r *http.Request) error {
	recipient, err := parsePubkey(chi.URLParam(r, "recipient"))
	if err != nil {
		return err
	}
	index, err := strconv.ParseUint(chi.URLParam(r, "index"), 10, 64)
	if err != nil {
		return errBadRequest
	}
	treasuryAddr, _, err := treasury.DeriveTreasuryAddress(s.programID)
	if err != nil {
		return err
	}
	addr, _, err := treasury.DerivePayoutAddress(s.programID, recipient, treasuryAddr, index)
	if err != nil {
		return err
	}
	record, ok, err := s.store.PayoutGet(addr)
	if err != nil {
		return err
	}
	if !ok {
		return errNotFound
	}
	resp := payoutResponse{
		Address:            addr.String(),
		Recipient:          record.Recipient.String(),
		Amount:             record.Amount,
		ScheduleTime:       record.ScheduleTime,
		Recurring:          record.Recurring,
		RecurrenceInterval: record.RecurrenceInterval,
		LastExecuted:       record.LastExecuted,
		IsActive:           record.IsActive,
		CreatedBy:          record.CreatedBy.String(),
		Index:              record.Index,
	}
	if record.TokenMint != nil {
		mint := record.TokenMint.String()
		resp.TokenMint = &mint
	}
	return writeJSON(w, resp)
}

type tokenBalanceResponse struct {
	Address       string `json:"address"`
	Treasury      string `json:"treasury"`
	TokenMint     string `json:"tokenMint"`
	Balance       uint64 `json:"balance"`
	EpochSpending uint64 `json:"epochSpending"`
	EpochStart    int64  `json:"epochStart"`
}

func (s *Service) getTokenBalance(w http.ResponseWriter, r *http.Request) error {
	mint, err := parsePubkey(chi.URLParam(r, "mint"))
	if err != nil {
		return err
	}
	treasuryAddr, _, err := treasury.DeriveTreasuryAddress(s.programID)
	if err != nil {
		return err
	}
	addr, _, err := treasury.DeriveTokenBalanceAddress(s.programID, treasuryAddr, mint)
	if err != nil {
		return err
	}
	record, ok, err := s.store.TokenBalanceGet(addr)
	if err != nil {
		return err
	}
	if !ok {
		return errNotFound
	}
	return writeJSON(w, tokenBalanceResponse{
		Address:       addr.String(),
		Treasury:      record.Treasury.String(),
		TokenMint:     record.TokenMint.String(),
		Balance:       record.Balance,
		EpochSpending: record.EpochSpending,
		EpochStart:    record.EpochStart,
	})
}

type auditResponse struct {
	Address   string  `json:"address"`
	Action    string  `json:"action"`
	Initiator string  `json:"initiator"`
	Amount    uint64  `json:"amount"`
	Timestamp int64   `json:"timestamp"`
	TokenMint *string `json:"tokenMint,omitempty"`
}

func (s *Service) getAuditLog(w http.ResponseWriter, _ *http.Request) error {
	treasuryAddr, _, err := treasury.DeriveTreasuryAddress(s.programID)
	if err != nil {
		return err
	}
	addrs, err := s.store.AuditIndex(treasuryAddr)
	if err != nil {
		return err
	}
	entries := make([]auditResponse, 0, len(addrs))
	for _, addr := range addrs {
		record, ok, err := s.store.AuditGet(addr)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		entry := auditResponse{
			Address:   addr.String(),
			Action:    record.Action.String(),
			Initiator: record.Initiator.String(),
			Amount:    record.Amount,
			Timestamp: record.Timestamp,
		}
		if record.TokenMint != nil {
			mint := record.TokenMint.String()
			entry.TokenMint = &mint
		}
		entries = append(entries, entry)
	}
	return writeJSON(w, entries)
}

func (s *Service) getAuditRecord(w http.ResponseWriter, r *http.Request) error {
	initiator, err := parsePubkey(chi.URLParam(r, "initiator"))
	if err != nil {
		return err
	}
	timestamp, err := strconv.ParseInt(chi.URLParam(r, "timestamp"), 10, 64)
	if err != nil {
		return errBadRequest
	}
	treasuryAddr, _, err := treasury.DeriveTreasuryAddress(s.programID)
	if err != nil {
		return err
	}
	addr, _, err := treasury.DeriveAuditAddress(s.programID, treasuryAddr, timestamp, initiator)
	if err != nil {
		return err
	}
	record, ok, err := s.store.AuditGet(addr)
	if err != nil {
		return err
	}
	if !ok {
		return errNotFound
	}
	entry := auditResponse{
		Address:   addr.String(),
		Action:    record.Action.String(),
		Initiator: record.Initiator.String(),
		Amount:    record.Amount,
		Timestamp: record.Timestamp,
	}
	if record.TokenMint != nil {
		mint := record.TokenMint.String()
		entry.TokenMint = &mint
	}
	return writeJSON(w, entry)
}
