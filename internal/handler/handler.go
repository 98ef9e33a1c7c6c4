package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/corefin/billing-service/internal/integrations/einvoice"
	"github.com/corefin/billing-service/internal/models"
	"github.com/corefin/billing-service/internal/schedule"
	"github.com/corefin/billing-service/internal/service"
)

type Handler struct {
	svc     *service.Service
	builder *einvoice.Builder
	log     *logrus.Logger
}

func NewHandler(svc *service.Service, builder *einvoice.Builder, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, builder: builder, log: log}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}
	user, err := h.svc.Register(req.Username, req.Email, req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to register user")
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := h.svc.Login(req.Email, req.Password)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

type createClientRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CreateClient handles client creation
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	client, err := h.svc.CreateClient(r.Context(), req.Name, req.Email)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create client")
		return
	}
	respondJSON(w, http.StatusCreated, client)
}

// GetClient retrieves a client by id
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	client, err := h.svc.GetClient(r.Context(), id)
	if err != nil {
		h.writeScheduleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, client)
}

type createInvoiceRequest struct {
	ClientID int64   `json:"client_id"`
	Amount   float64 `json:"amount"`
}

// CreateInvoice handles invoice creation
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	invoice, err := h.svc.CreateInvoice(r.Context(), req.ClientID, req.Amount)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(w, http.StatusNotFound, "client not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to create invoice")
		return
	}
	respondJSON(w, http.StatusCreated, invoice)
}

// GetInvoice retrieves an invoice by id
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	invoice, err := h.svc.GetInvoice(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeScheduleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, invoice)
}

type scheduleResponse struct {
	Payload models.SchedulePayload `json:"payload"`
	Summary models.ScheduleSummary `json:"summary"`
}

// GetSchedule returns an invoice's schedule payload and derived summary
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	payload, summary, err := h.svc.GetSchedule(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeScheduleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, scheduleResponse{Payload: payload, Summary: summary})
}

// ReplaceSchedule persists a full schedule payload for an invoice
func (h *Handler) ReplaceSchedule(w http.ResponseWriter, r *http.Request) {
	var payload models.SchedulePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// The path owns the invoice identity; the body cannot redirect it.
	payload.InvoiceID = mux.Vars(r)["id"]
	saved, summary, err := h.svc.ReplaceSchedule(r.Context(), payload)
	if err != nil {
		h.writeScheduleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, scheduleResponse{Payload: saved, Summary: summary})
}

type installmentRequest struct {
	Date     string  `json:"date"`
	Amount   float64 `json:"amount"`
	IsAmount *bool   `json:"is_amount"`
}

// installment converts the request body into an engine candidate. A missing
// date stays zero so the validator reports it; a missing is_amount defaults
// to currency-amount denomination.
func (req installmentRequest) installment() models.Installment {
	mode := models.ModeAmount
	if req.IsAmount != nil {
		mode = models.ModeFromIsAmount(*req.IsAmount)
	}
	in := models.Installment{
		Amount: decimal.NewFromFloat(req.Amount),
		Mode:   mode,
	}
	if date, err := time.ParseInLocation(models.DateLayout, req.Date, time.UTC); err == nil {
		in.Date = date
	}
	return in
}

// AddInstallment appends an installment to an invoice's schedule
func (h *Handler) AddInstallment(w http.ResponseWriter, r *http.Request) {
	var req installmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	payload, summary, err := h.svc.AddInstallment(r.Context(), mux.Vars(r)["id"], req.installment())
	if err != nil {
		h.writeScheduleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, scheduleResponse{Payload: payload, Summary: summary})
}

// UpdateInstallment replaces the installment at the given position
func (h *Handler) UpdateInstallment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid installment index")
		return
	}
	var req installmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	payload, summary, err := h.svc.UpdateInstallment(r.Context(), vars["id"], index, req.installment())
	if err != nil {
		h.writeScheduleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, scheduleResponse{Payload: payload, Summary: summary})
}

// RemoveInstallment deletes the installment at the given position
func (h *Handler) RemoveInstallment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid installment index")
		return
	}
	payload, summary, err := h.svc.RemoveInstallment(r.Context(), vars["id"], index)
	if err != nil {
		h.writeScheduleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, scheduleResponse{Payload: payload, Summary: summary})
}

type changeModeRequest struct {
	Mode models.Mode `json:"mode"`
}

// ChangeScheduleMode converts a schedule between amount and percentage denomination
func (h *Handler) ChangeScheduleMode(w http.ResponseWriter, r *http.Request) {
	var req changeModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Mode != models.ModeAmount && req.Mode != models.ModePercentage {
		respondError(w, http.StatusBadRequest, "mode must be amount or percentage")
		return
	}
	payload, summary, err := h.svc.ChangeScheduleMode(r.Context(), mux.Vars(r)["id"], req.Mode)
	if err != nil {
		h.writeScheduleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, scheduleResponse{Payload: payload, Summary: summary})
}

// ExportInvoiceDocument renders the invoice and its payment schedule as an
// e-invoice XML document
func (h *Handler) ExportInvoiceDocument(w http.ResponseWriter, r *http.Request) {
	invoiceID := mux.Vars(r)["id"]
	invoice, err := h.svc.GetInvoice(r.Context(), invoiceID)
	if err != nil {
		h.writeScheduleError(w, err)
		return
	}
	client, err := h.svc.GetClient(r.Context(), invoice.ClientID)
	if err != nil {
		h.writeScheduleError(w, err)
		return
	}
	payload, summary, err := h.svc.GetSchedule(r.Context(), invoiceID)
	if err != nil {
		h.writeScheduleError(w, err)
		return
	}
	doc, err := h.builder.Build(invoice, client, payload, summary)
	if err != nil {
		h.log.Errorf("Failed to build invoice document for %s: %v", invoiceID, err)
		respondError(w, http.StatusInternalServerError, "failed to build invoice document")
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// writeScheduleError maps service errors onto HTTP responses, keeping
// validation failures (422, returned as data) distinct from persistence
// failures (bad gateway, state preserved server-side).
func (h *Handler) writeScheduleError(w http.ResponseWriter, err error) {
	var verr *schedule.ValidationError
	switch {
	case errors.As(err, &verr):
		body := map[string]interface{}{"error": string(verr.Kind)}
		if verr.Kind == schedule.ErrExceedsRemaining {
			body["remaining"] = verr.Remaining.InexactFloat64()
		}
		respondJSON(w, http.StatusUnprocessableEntity, body)
	case errors.Is(err, service.ErrCouldNotSave):
		respondError(w, http.StatusBadGateway, "could not save schedule")
	case errors.Is(err, service.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	default:
		h.log.Errorf("Unhandled error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
