package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"marketplace-spotlight/internal/domain"
	"marketplace-spotlight/internal/domain/model"
	"marketplace-spotlight/internal/infra/logging"
	"marketplace-spotlight/internal/infra/metrics"
	"marketplace-spotlight/internal/usecase"
)

// ===== request/response DTOs =====

type createRequestBody struct {
	ProjectID    string `json:"project_id"`
	RequesterID  string `json:"requester_id"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	HeroImageURL string `json:"hero_image_url"`
	Message      string `json:"message"`
}

type requestView struct {
	ID              string  `json:"id"`
	ProjectID       string  `json:"project_id"`
	RequesterID     string  `json:"requester_id"`
	Status          string  `json:"status"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	DurationDays    int     `json:"duration_days"`
	PriceMinorUnits int64   `json:"price_minor_units"`
	IsFreePromo     bool    `json:"is_free_promo"`
	HeroImageURL    string  `json:"hero_image_url,omitempty"`
	Message         string  `json:"message,omitempty"`
	AdminNotes      string  `json:"admin_notes,omitempty"`
	ApprovedAt      *string `json:"approved_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

type sessionView struct {
	ID                  string  `json:"id"`
	RequestID           string  `json:"request_id"`
	Address             string  `json:"address"`
	ExpectedAmountMinor int64   `json:"expected_amount_minor_units"`
	Status              string  `json:"status"`
	TxHash              *string `json:"tx_hash,omitempty"`
}

type paymentStatusView struct {
	RequestID       string       `json:"request_id"`
	RequestStatus   string       `json:"request_status"`
	Session         *sessionView `json:"session,omitempty"`
	PaymentDeadline *string      `json:"payment_deadline,omitempty"`
}

type availabilityView struct {
	BookedDays  []string `json:"booked_days"`
	PendingDays []string `json:"pending_days"`
}

func toRequestView(req *model.SpotlightRequest) requestView {
	v := requestView{
		ID:              req.ID,
		ProjectID:       req.ProjectID,
		RequesterID:     req.RequesterID,
		Status:          string(req.Status),
		StartDate:       req.StartDate.Format(model.DayKeyFormat),
		EndDate:         req.EndDate.Format(model.DayKeyFormat),
		DurationDays:    req.DurationDays,
		PriceMinorUnits: req.Terms.AmountMinorUnits,
		IsFreePromo:     req.Terms.Free(),
		HeroImageURL:    req.HeroImageURL,
		Message:         req.Message,
		AdminNotes:      req.AdminNotes,
		CreatedAt:       req.CreatedAt.UTC().Format(time.RFC3339),
	}
	if req.ApprovedAt != nil {
		t := req.ApprovedAt.UTC().Format(time.RFC3339)
		v.ApprovedAt = &t
	}
	return v
}

func toSessionView(s *model.PaymentSession) *sessionView {
	if s == nil {
		return nil
	}
	return &sessionView{
		ID:                  s.ID,
		RequestID:           s.RequestID,
		Address:             s.Address,
		ExpectedAmountMinor: s.ExpectedAmountMinorUnits,
		Status:              string(s.Status),
		TxHash:              s.TxHash,
	}
}

func toPaymentStatusView(view *usecase.PaymentStatusView) paymentStatusView {
	out := paymentStatusView{
		RequestID:     view.RequestID,
		RequestStatus: string(view.RequestStatus),
		Session:       toSessionView(view.Session),
	}
	if view.PaymentDeadline != nil {
		t := view.PaymentDeadline.UTC().Format(time.RFC3339)
		out.PaymentDeadline = &t
	}
	return out
}

// ===== shared helpers =====

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeDomainError maps domain sentinels onto HTTP status codes. Anything
// unrecognized is a 500 with a generic body so internals never leak.
func (s *Server) writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrDurationOutOfRange),
		errors.Is(err, domain.ErrStartDateTooSoon):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrDateUnavailable),
		errors.Is(err, domain.ErrRequestInProgress),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrTerminalState),
		errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrNoPaymentDue):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrSessionLocked):
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrVerificationUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	default:
		logging.With(ctx, s.log).Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func parseDay(s string) (time.Time, error) {
	return time.Parse(model.DayKeyFormat, s)
}

// ===== public handlers =====

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	avail, err := s.availUC.Current(r.Context())
	if err != nil {
		s.writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityView{
		BookedDays:  avail.Booked.Days(),
		PendingDays: avail.Pending.Days(),
	})
}

// handleAvailabilityCheck is the advisory pre-flight for the booking form.
// A passing check does not reserve anything; the committing transition
// re-derives availability transactionally.
func (s *Server) handleAvailabilityCheck(w http.ResponseWriter, r *http.Request) {
	start, err := parseDay(r.URL.Query().Get("start"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "start must be YYYY-MM-DD"})
		return
	}
	end, err := parseDay(r.URL.Query().Get("end"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "end must be YYYY-MM-DD"})
		return
	}
	if err := s.availUC.CheckRange(r.Context(), start, end); err != nil {
		if errors.Is(err, domain.ErrDateUnavailable) {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		s.writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Selectable bool `json:"selectable"`
	}{Selectable: true})
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	start, err := parseDay(body.StartDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "start_date must be YYYY-MM-DD"})
		return
	}
	end, err := parseDay(body.EndDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "end_date must be YYYY-MM-DD"})
		return
	}

	ctx := logging.WithProjectID(r.Context(), body.ProjectID)
	req, err := s.requestUC.Create(ctx, usecase.CreateRequestInput{
		ProjectID:    body.ProjectID,
		RequesterID:  body.RequesterID,
		StartDate:    start,
		EndDate:      end,
		HeroImageURL: body.HeroImageURL,
		Message:      body.Message,
	})
	if err != nil {
		// A full calendar is a validation outcome for the booking form,
		// not a lost race.
		if errors.Is(err, domain.ErrDateUnavailable) {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		s.writeDomainError(ctx, w, err)
		return
	}
	metrics.IncRequestTransition(model.RequestStatusPending)
	writeJSON(w, http.StatusCreated, toRequestView(req))
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.requestUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestView(req))
}

func (s *Server) handleListProjectRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.requestUC.ListByProject(r.Context(), chi.URLParam(r, "projectId"))
	if err != nil {
		s.writeDomainError(r.Context(), w, err)
		return
	}
	out := make([]requestView, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, toRequestView(req))
	}
	writeJSON(w, http.StatusOK, struct {
		Data []requestView `json:"data"`
	}{Data: out})
}

func (s *Server) handleCreatePaymentSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, err := s.payUC.GetOrCreateSession(r.Context(), id)
	if err != nil {
		s.writeDomainError(r.Context(), w, err)
		return
	}
	_ = s.cache.Invalidate(r.Context(), id)
	writeJSON(w, http.StatusOK, toSessionView(session))
}

func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	var cached paymentStatusView
	if ok, err := s.cache.Get(ctx, id, &cached); err == nil && ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	view, err := s.payUC.PollStatus(ctx, id)
	if err != nil {
		s.writeDomainError(r.Context(), w, err)
		return
	}
	out := toPaymentStatusView(view)
	if err := s.cache.Put(ctx, id, out); err != nil {
		s.log.Warn().Err(err).Str("request_id", id).Msg("status cache write failed")
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleWalletPay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, txHash, err := s.payUC.WalletPay(r.Context(), id)
	if err != nil {
		s.writeDomainError(r.Context(), w, err)
		return
	}
	_ = s.cache.Invalidate(r.Context(), id)
	writeJSON(w, http.StatusOK, struct {
		Session *sessionView `json:"session"`
		TxHash  string       `json:"tx_hash"`
	}{Session: toSessionView(session), TxHash: txHash})
}

// ===== admin handlers =====

type adminLoginBody struct {
	Secret string `json:"secret"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if s.adminKey == "" {
		s.log.Error().Msg("admin secret is not configured")
		writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
		return
	}
	var body adminLoginBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(body.Secret), []byte(s.adminKey)) != 1 {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
		return
	}
	token, err := s.auth.Mint(w)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to mint admin token")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Token string `json:"token"`
	}{Token: token})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdminListRequests(w http.ResponseWriter, r *http.Request) {
	var (
		reqs []*model.SpotlightRequest
		err  error
	)
	if raw := r.URL.Query().Get("status"); raw != "" {
		reqs, err = s.requestUC.ListByStatus(r.Context(), model.RequestStatus(raw))
	} else {
		// Default view is the working queue, terminal requests stay out.
		reqs, err = s.requestUC.ListByStatus(r.Context(),
			model.RequestStatusPending, model.RequestStatusApproved, model.RequestStatusPaid, model.RequestStatusActive)
	}
	if err != nil {
		s.writeDomainError(r.Context(), w, err)
		return
	}
	out := make([]requestView, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, toRequestView(req))
	}
	writeJSON(w, http.StatusOK, struct {
		Data []requestView `json:"data"`
	}{Data: out})
}

type adminReasonBody struct {
	Reason string `json:"reason"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.adminTransition(w, r, func(ctx requestTransitionCtx) (*model.SpotlightRequest, error) {
		return s.requestUC.Approve(ctx.ctx, ctx.id)
	})
}

func (s *Server) handleApproveFree(w http.ResponseWriter, r *http.Request) {
	s.adminTransition(w, r, func(ctx requestTransitionCtx) (*model.SpotlightRequest, error) {
		return s.requestUC.ApproveFree(ctx.ctx, ctx.id)
	})
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	s.adminTransition(w, r, func(ctx requestTransitionCtx) (*model.SpotlightRequest, error) {
		return s.requestUC.Reject(ctx.ctx, ctx.id, ctx.reason)
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.adminTransition(w, r, func(ctx requestTransitionCtx) (*model.SpotlightRequest, error) {
		return s.requestUC.Cancel(ctx.ctx, ctx.id, ctx.reason)
	})
}

func (s *Server) handleEndEarly(w http.ResponseWriter, r *http.Request) {
	s.adminTransition(w, r, func(ctx requestTransitionCtx) (*model.SpotlightRequest, error) {
		return s.requestUC.EndEarly(ctx.ctx, ctx.id)
	})
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	result, err := s.payUC.Reconcile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		RequestID   string `json:"request_id"`
		TxHash      string `json:"tx_hash"`
		LatePayment bool   `json:"late_payment"`
	}{RequestID: result.RequestID, TxHash: result.TxHash, LatePayment: result.LatePayment})
}

type requestTransitionCtx struct {
	ctx    context.Context
	id     string
	reason string
}

func (s *Server) adminTransition(w http.ResponseWriter, r *http.Request, fn func(requestTransitionCtx) (*model.SpotlightRequest, error)) {
	id := chi.URLParam(r, "id")

	// Reason body is optional; reject/cancel record it, the rest ignore it.
	var body adminReasonBody
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	req, err := fn(requestTransitionCtx{ctx: r.Context(), id: id, reason: body.Reason})
	if err != nil {
		s.writeDomainError(r.Context(), w, err)
		return
	}
	metrics.IncRequestTransition(req.Status)
	_ = s.cache.Invalidate(r.Context(), id)
	writeJSON(w, http.StatusOK, toRequestView(req))
}
