package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/lendware/docflow/internal/core/domain"
	"github.com/lendware/docflow/internal/core/ports"
	"github.com/lendware/docflow/internal/observability/metrics"
)

// Options tunes the traffic-control middleware; zero values disable the
// corresponding gate.
type Options struct {
	RateLimitRPS    float64
	RateLimitBurst  int
	MaxInFlight     int
	BackpressureMax time.Duration
	Metrics         *metrics.HTTPServerMetrics
	ServiceName     string
}

type Router struct {
	intake   ports.UploadIntake
	review   ports.ReviewWorkflow
	loans    ports.LoanService
	taxonomy ports.TaxonomyRepository
	opts     Options
}

func NewRouter(
	intake ports.UploadIntake,
	review ports.ReviewWorkflow,
	loans ports.LoanService,
	taxonomy ports.TaxonomyRepository,
	opts Options,
) *Router {
	return &Router{
		intake:   intake,
		review:   review,
		loans:    loans,
		taxonomy: taxonomy,
		opts:     opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)

	mux.HandleFunc("POST /v1/documents", rt.uploadDocument)
	mux.HandleFunc("GET /v1/documents/{id}", rt.getDocument)
	mux.HandleFunc("GET /v1/documents/{id}/history", rt.getDocumentHistory)
	mux.HandleFunc("PATCH /v1/documents/{id}/category", rt.overrideCategory)
	mux.HandleFunc("POST /v1/documents/{id}/decision", rt.decideDocument)
	mux.HandleFunc("DELETE /v1/documents/{id}", rt.deleteDocument)

	mux.HandleFunc("GET /v1/uploads/{id}", rt.getUpload)

	mux.HandleFunc("POST /v1/loans", rt.createLoan)
	mux.HandleFunc("GET /v1/loans/{id}", rt.getLoan)
	mux.HandleFunc("PUT /v1/loans/{id}", rt.updateLoan)
	mux.HandleFunc("POST /v1/loans/{id}/submit", rt.submitLoan)
	mux.HandleFunc("POST /v1/loans/{id}/process", rt.processLoan)
	mux.HandleFunc("GET /v1/loans/{id}/metrics", rt.getLoanMetrics)
	mux.HandleFunc("GET /v1/loans/{id}/documents", rt.listLoanDocuments)
	mux.HandleFunc("POST /v1/loans/{id}/letters", rt.generateLetter)

	mux.HandleFunc("GET /v1/categories", rt.listCategories)
	mux.HandleFunc("POST /v1/categories", rt.createCategory)
	mux.HandleFunc("GET /v1/categories/{id}/types", rt.listTypeSpecs)
	mux.HandleFunc("POST /v1/categories/{id}/types", rt.createTypeSpec)

	var handler http.Handler = mux
	if rt.opts.MaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, rt.opts.BackpressureMax)
	}
	if rt.opts.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	}
	if rt.opts.Metrics != nil {
		handler = rt.opts.Metrics.Middleware(rt.opts.ServiceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// uploadDocument accepts one multipart upload and stages it for
// classification. The response is 202: the ledger entry appears later.
func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		rt.recordUpload("rejected", 0)
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "upload document",
			errMultipartFile))
		return
	}
	defer file.Close()

	staged, err := rt.intake.StageUpload(r.Context(), actor, ports.UploadRequest{
		LoanApplicationID: r.FormValue("loan_application_id"),
		Filename:          fileHeader.Filename,
		DeclaredType:      r.FormValue("document_type"),
		ContentType:       fileHeader.Header.Get("Content-Type"),
		Size:              fileHeader.Size,
		Body:              file,
	})
	if err != nil {
		rt.recordUpload("rejected", 0)
		writeError(w, err)
		return
	}

	rt.recordUpload("accepted", fileHeader.Size)
	writeJSON(w, http.StatusAccepted, staged)
}

func (rt *Router) getUpload(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	staged, err := rt.intake.GetStaged(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, staged)
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	entry, err := rt.review.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (rt *Router) getDocumentHistory(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	history, err := rt.review.History(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (rt *Router) overrideCategory(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "override category", errInvalidJSON))
		return
	}
	code, ok := domain.ParseCategoryCode(req.Category)
	if !ok {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "override category",
			errUnknownCategory))
		return
	}

	entry, err := rt.review.OverrideCategory(r.Context(), actor, r.PathValue("id"), code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (rt *Router) decideDocument(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Action string `json:"action"`
		Notes  string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "decide document", errInvalidJSON))
		return
	}

	entry, err := rt.review.Decide(r.Context(), actor, r.PathValue("id"), req.Action, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := rt.review.Delete(r.Context(), actor, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) createLoan(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		AmountCents int64  `json:"loan_amount_cents"`
		Purpose     string `json:"loan_purpose"`
		TermMonths  int    `json:"loan_term_months"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "create loan", errInvalidJSON))
		return
	}

	loan, err := rt.loans.CreateDraft(r.Context(), actor, req.AmountCents, req.Purpose, req.TermMonths)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (rt *Router) getLoan(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	loan, err := rt.loans.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (rt *Router) updateLoan(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		AmountCents  *int64   `json:"loan_amount_cents"`
		Purpose      *string  `json:"loan_purpose"`
		TermMonths   *int     `json:"loan_term_months"`
		InterestRate *float64 `json:"interest_rate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "update loan", errInvalidJSON))
		return
	}

	loan, err := rt.loans.Update(r.Context(), actor, r.PathValue("id"), ports.LoanUpdate{
		AmountCents:  req.AmountCents,
		Purpose:      req.Purpose,
		TermMonths:   req.TermMonths,
		InterestRate: req.InterestRate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (rt *Router) processLoan(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Action string `json:"action"`
		Notes  string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "process loan", errInvalidJSON))
		return
	}

	loan, err := rt.loans.Process(r.Context(), actor, r.PathValue("id"), req.Action, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (rt *Router) generateLetter(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		LetterType string `json:"letter_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "generate letter", errInvalidJSON))
		return
	}

	letter, err := rt.loans.GenerateLetter(r.Context(), actor, r.PathValue("id"), req.LetterType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, letter)
}

func (rt *Router) submitLoan(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	loan, err := rt.loans.Submit(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (rt *Router) getLoanMetrics(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := rt.loans.Metrics(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) listLoanDocuments(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	entries, err := rt.loans.Documents(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (rt *Router) recordUpload(status string, size int64) {
	if rt.opts.Metrics != nil {
		rt.opts.Metrics.RecordUpload(rt.opts.ServiceName, status, size)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

// actorFromRequest builds the caller identity from the headers set by the
// upstream authentication gateway.
func actorFromRequest(r *http.Request) (domain.Actor, error) {
	id := strings.TrimSpace(r.Header.Get("X-User-Id"))
	tenantID := strings.TrimSpace(r.Header.Get("X-Tenant-Id"))
	if id == "" || tenantID == "" {
		return domain.Actor{}, domain.WrapError(domain.ErrUnauthenticated, "authenticate request",
			errMissingIdentity)
	}
	return domain.Actor{
		ID:       id,
		TenantID: tenantID,
		Name:     strings.TrimSpace(r.Header.Get("X-User-Name")),
		Role:     domain.Role(strings.TrimSpace(r.Header.Get("X-User-Role"))),
	}, nil
}
