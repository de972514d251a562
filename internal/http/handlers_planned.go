package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/services"
	"bilancio/internal/storage"
)

type plannedRequest struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Amount        string   `json:"amount"`
	OperationType string   `json:"operation_type"`
	Frequency     string   `json:"frequency"`
	NextDate      string   `json:"next_date"`
	InterestRate  *float64 `json:"interest_rate"`
	Duration      *int64   `json:"duration"`
	DurationUnit  string   `json:"duration_unit"`
	CategoryID    *int64   `json:"category_id"`
	SubCategoryID *int64   `json:"sub_category_id"`
	AccountID     *int64   `json:"account_id"`
	Active        *bool    `json:"active"`
}

type plannedResponse struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Amount        string   `json:"amount"`
	AmountCents   int64    `json:"amount_cents"`
	OperationType string   `json:"operation_type"`
	Frequency     string   `json:"frequency"`
	NextDate      string   `json:"next_date"`
	InterestRate  *float64 `json:"interest_rate,omitempty"`
	Duration      *int64   `json:"duration,omitempty"`
	DurationUnit  string   `json:"duration_unit,omitempty"`
	CategoryID    *int64   `json:"category_id,omitempty"`
	SubCategoryID *int64   `json:"sub_category_id,omitempty"`
	AccountID     *int64   `json:"account_id,omitempty"`
	Active        bool     `json:"active"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

type transactionResponse struct {
	ID                   string `json:"id"`
	Title                string `json:"title"`
	Description          string `json:"description,omitempty"`
	Amount               string `json:"amount"`
	AmountCents          int64  `json:"amount_cents"`
	PostedDate           string `json:"posted_date"`
	PlannedTransactionID *int64 `json:"planned_transaction_id,omitempty"`
}

type executionResponse struct {
	Transaction     transactionResponse `json:"transaction"`
	NextDate        string              `json:"next_date"`
	ScheduleUpdated bool                `json:"schedule_updated"`
}

type batchItemResponse struct {
	PlannedID       int64  `json:"planned_id"`
	Title           string `json:"title"`
	TransactionID   string `json:"transaction_id"`
	NextDate        string `json:"next_date"`
	ScheduleUpdated bool   `json:"schedule_updated"`
}

type batchFailureResponse struct {
	PlannedID int64  `json:"planned_id"`
	Title     string `json:"title"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

type batchResponse struct {
	Executed      []batchItemResponse    `json:"executed"`
	Failed        []batchFailureResponse `json:"failed"`
	TotalExecuted int                    `json:"total_executed"`
	TotalFailed   int                    `json:"total_failed"`
}

func toPlannedResponse(p core.PlannedTransaction) plannedResponse {
	resp := plannedResponse{
		ID:            p.ID,
		Title:         p.Title,
		Description:   p.Description,
		Amount:        core.FormatCents(p.Amount.Cents),
		AmountCents:   p.Amount.Cents,
		OperationType: string(p.OperationType),
		Frequency:     string(p.Frequency),
		NextDate:      p.NextDate.String(),
		InterestRate:  p.InterestRate,
		Duration:      p.Duration,
		DurationUnit:  string(p.DurationUnit),
		CategoryID:    p.CategoryID,
		SubCategoryID: p.SubCategoryID,
		AccountID:     p.AccountID,
		Active:        p.Active,
	}
	if !p.CreatedAt.IsZero() {
		resp.CreatedAt = p.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !p.UpdatedAt.IsZero() {
		resp.UpdatedAt = p.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:                   t.ID,
		Title:                t.Title,
		Description:          t.Description,
		Amount:               core.FormatCents(t.AmountCents),
		AmountCents:          t.AmountCents,
		PostedDate:           t.PostedDate.String(),
		PlannedTransactionID: t.PlannedTransactionID,
	}
}

func toExecutionResponse(r *services.ExecutionResult) executionResponse {
	return executionResponse{
		Transaction:     toTransactionResponse(r.Transaction),
		NextDate:        r.NextDate.String(),
		ScheduleUpdated: r.ScheduleUpdated,
	}
}

func toBatchResponse(b *services.BatchResult) batchResponse {
	resp := batchResponse{
		Executed:      []batchItemResponse{},
		Failed:        []batchFailureResponse{},
		TotalExecuted: b.TotalExecuted,
		TotalFailed:   b.TotalFailed,
	}
	for _, e := range b.Executed {
		resp.Executed = append(resp.Executed, batchItemResponse{
			PlannedID:       e.PlannedID,
			Title:           e.Title,
			TransactionID:   e.TransactionID,
			NextDate:        e.NextDate.String(),
			ScheduleUpdated: e.ScheduleUpdated,
		})
	}
	for _, f := range b.Failed {
		resp.Failed = append(resp.Failed, batchFailureResponse{
			PlannedID: f.PlannedID,
			Title:     f.Title,
			Kind:      string(f.Kind),
			Message:   f.Message,
		})
	}
	return resp
}

// decodePlanned parses and converts a planned transaction payload. It writes
// the error response itself and reports success through the bool. The second
// return value carries the payload's active flag, nil when omitted.
func decodePlanned(w http.ResponseWriter, r *http.Request, userID string) (*core.PlannedTransaction, *bool, bool) {
	var req plannedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON")
		return nil, nil, false
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_amount", "amount must be a positive decimal")
		return nil, nil, false
	}

	nextDate, err := core.ParseDate(req.NextDate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_date", "next_date must be YYYY-MM-DD")
		return nil, nil, false
	}

	p := &core.PlannedTransaction{
		UserID:        userID,
		Title:         req.Title,
		Description:   req.Description,
		Amount:        core.Money{Cents: cents},
		OperationType: core.OperationType(req.OperationType),
		Frequency:     core.Frequency(req.Frequency),
		NextDate:      nextDate,
		InterestRate:  req.InterestRate,
		Duration:      req.Duration,
		DurationUnit:  core.DurationUnit(req.DurationUnit),
		CategoryID:    req.CategoryID,
		SubCategoryID: req.SubCategoryID,
		AccountID:     req.AccountID,
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	return p, req.Active, true
}

var validationErrs = []error{
	core.ErrInvalidAmount,
	core.ErrEmptyTitle,
	core.ErrTitleTooLong,
	core.ErrDescriptionTooLong,
	core.ErrInvalidFrequency,
	core.ErrInvalidOperation,
	core.ErrInvalidInterestRate,
	core.ErrInvalidDuration,
	core.ErrEmptyUser,
}

func isValidationError(err error) bool {
	for _, v := range validationErrs {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

func (s *Server) handleCreatePlanned(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	p, _, ok := decodePlanned(w, r, userID)
	if !ok {
		return
	}

	created, err := s.planned.Create(r.Context(), *p)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to create planned transaction", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to create planned transaction")
		return
	}

	s.statsCache.Delete(userID)
	writeJSON(w, http.StatusCreated, toPlannedResponse(*created))
}

func (s *Server) handleListPlanned(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	records, err := s.planned.List(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list planned transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to list planned transactions")
		return
	}

	out := make([]plannedResponse, 0, len(records))
	for _, p := range records {
		out = append(out, toPlannedResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetPlanned(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p, err := s.planned.Get(r.Context(), id, userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to get planned transaction", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to get planned transaction")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "not_found", "planned transaction not found")
		return
	}
	writeJSON(w, http.StatusOK, toPlannedResponse(*p))
}

func (s *Server) handleUpdatePlanned(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	existing, err := s.planned.Get(r.Context(), id, userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load planned transaction", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to load planned transaction")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "not_found", "planned transaction not found")
		return
	}

	p, activeFlag, ok := decodePlanned(w, r, userID)
	if !ok {
		return
	}
	p.ID = id
	// Active defaults to the stored value unless the payload sets it.
	if activeFlag == nil {
		p.Active = existing.Active
	}

	if err := s.planned.Update(r.Context(), *p); err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
			return
		}
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "planned transaction not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to update planned transaction", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to update planned transaction")
		return
	}

	s.statsCache.Delete(userID)

	updated, err := s.planned.Get(r.Context(), id, userID)
	if err != nil || updated == nil {
		writeJSON(w, http.StatusOK, toPlannedResponse(*p))
		return
	}
	writeJSON(w, http.StatusOK, toPlannedResponse(*updated))
}

func (s *Server) handleDeletePlanned(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.planned.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "planned transaction not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete planned transaction", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to delete planned transaction")
		return
	}

	s.statsCache.Delete(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExecutePlanned(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	result, err := s.coordinator.ExecuteOne(r.Context(), id, userID)
	if err != nil {
		s.statsCache.Delete(userID)
		writeExecutionError(w, err, result)
		return
	}

	s.statsCache.Delete(userID)
	writeJSON(w, http.StatusOK, toExecutionResponse(result))
}

// writeExecutionError maps execution error kinds to HTTP statuses. A schedule
// update failure still carries the posted transaction in the response body.
func writeExecutionError(w http.ResponseWriter, err error, result *services.ExecutionResult) {
	var execErr *services.ExecutionError
	if !errors.As(err, &execErr) {
		writeError(w, http.StatusInternalServerError, "internal", "execution failed")
		return
	}

	switch execErr.Kind {
	case services.KindNotFound:
		writeError(w, http.StatusNotFound, string(execErr.Kind), "planned transaction not found")
	case services.KindInactive:
		writeError(w, http.StatusConflict, string(execErr.Kind), "planned transaction is inactive")
	case services.KindScheduleUpdate:
		body := struct {
			Error  errorBody          `json:"error"`
			Result *executionResponse `json:"result,omitempty"`
		}{
			Error: errorBody{Code: string(execErr.Kind), Message: "transaction posted but schedule advancement failed"},
		}
		if result != nil {
			resp := toExecutionResponse(result)
			body.Result = &resp
		}
		writeJSON(w, http.StatusInternalServerError, body)
	default:
		writeError(w, http.StatusInternalServerError, string(execErr.Kind), "failed to post transaction to ledger")
	}
}

func (s *Server) handleExecuteDue(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	batch, err := s.coordinator.ExecuteAllDue(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to execute due planned transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to load due planned transactions")
		return
	}

	s.statsCache.Delete(userID)
	writeJSON(w, http.StatusOK, toBatchResponse(batch))
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	days := s.horizonDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 365 {
			writeError(w, http.StatusBadRequest, "invalid_days", "days must be between 1 and 365")
			return
		}
		days = n
	}

	records, err := s.planned.Upcoming(r.Context(), userID, days)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list upcoming planned transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to list upcoming planned transactions")
		return
	}

	out := make([]plannedResponse, 0, len(records))
	for _, p := range records {
		out = append(out, toPlannedResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

type statsResponse struct {
	Total          int64  `json:"total"`
	Active         int64  `json:"active"`
	Inactive       int64  `json:"inactive"`
	Due            int64  `json:"due"`
	IncomeActive   int64  `json:"income_active"`
	ExpenseActive  int64  `json:"expense_active"`
	MonthlyIncome  string `json:"monthly_income"`
	MonthlyExpense string `json:"monthly_expense"`
	MonthlyBalance string `json:"monthly_balance"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	stats, found := s.statsCache.Get(userID)
	if !found {
		var err error
		stats, err = s.stats.GetStats(r.Context(), userID)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to compute stats", "error", err)
			writeError(w, http.StatusInternalServerError, "internal", "failed to compute stats")
			return
		}
		s.statsCache.Set(userID, stats)
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Total:          stats.Counts.Total,
		Active:         stats.Counts.Active,
		Inactive:       stats.Counts.Inactive,
		Due:            stats.Counts.Due,
		IncomeActive:   stats.Counts.IncomeActive,
		ExpenseActive:  stats.Counts.ExpenseActive,
		MonthlyIncome:  stats.Projection.MonthlyIncome.StringFixed(2),
		MonthlyExpense: stats.Projection.MonthlyExpense.StringFixed(2),
		MonthlyBalance: stats.Projection.MonthlyBalance.StringFixed(2),
	})
}
