package handlers

import (
	"context"
	"net/http"
	"strconv"

	"novac/internal/access"
	"novac/internal/audit"
	"novac/internal/readmodels"
	"novac/internal/transaction"
	"novac/kit/db"
	"novac/kit/observability"
)

type TransactionReaderContract interface {
	GetByReference(ctx context.Context, reference string) (*transaction.Transaction, error)
	List(ctx context.Context, f transaction.ListFilter, page, perPage int) (*transaction.ListResult, error)
}

type JournalReaderContract interface {
	Load(ctx context.Context, reference string) []db.Record
}

type ActivityReaderContract interface {
	Get(reference string) (readmodels.ActivityView, bool)
}

type AuditRecorderContract interface {
	Record(ctx context.Context, e audit.Entry)
}

type Transactions struct {
	repo     TransactionReaderContract
	journal  JournalReaderContract
	audit    AuditRecorderContract
	activity ActivityReaderContract
	logger   *observability.Logger
}

func NewTransactions(repo TransactionReaderContract, journal JournalReaderContract, auditor AuditRecorderContract, logger *observability.Logger) *Transactions {
	return &Transactions{repo: repo, journal: journal, audit: auditor, logger: logger}
}

// WithActivity adds the per-reference activity summary to Events responses.
func (h *Transactions) WithActivity(a ActivityReaderContract) *Transactions {
	h.activity = a
	return h
}

func (h *Transactions) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := transaction.ListFilter{
		Status:  transaction.Status(q.Get("status")),
		Search:  q.Get("search"),
		OrderBy: q.Get("orderby"),
		Order:   q.Get("order"),
	}
	page := atoiOr(q.Get("page"), 1)
	perPage := atoiOr(q.Get("per_page"), transaction.DefaultPerPage)

	res, err := h.repo.List(r.Context(), f, page, perPage)
	if err != nil {
		h.logger.Error("list transactions failed", "layer", "handler", "component", "transactions", "method", "List", "error", err.Error())
		writeError(w, h.logger, http.StatusInternalServerError, "Could not list transactions")
		return
	}
	h.record(r, "admin.transactions_listed", "", map[string]any{"status": string(f.Status), "search": f.Search, "page": res.Page, "total": res.Total})
	writeJSON(w, h.logger, http.StatusOK, true, res)
}

func (h *Transactions) Get(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("reference")
	t, err := h.repo.GetByReference(r.Context(), ref)
	switch {
	case err == nil:
	case db.IsNotFound(err):
		writeError(w, h.logger, http.StatusNotFound, "Transaction not found")
		return
	default:
		h.logger.Error("get transaction failed", "layer", "handler", "component", "transactions", "method", "Get", "reference", ref, "error", err.Error())
		writeError(w, h.logger, http.StatusInternalServerError, "Could not load transaction")
		return
	}
	h.record(r, "admin.transaction_viewed", ref, nil)
	writeJSON(w, h.logger, http.StatusOK, true, t)
}

func (h *Transactions) Events(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("reference")
	recs := h.journal.Load(r.Context(), ref)
	if recs == nil {
		recs = []db.Record{}
	}
	h.record(r, "admin.transaction_events_viewed", ref, map[string]any{"count": len(recs)})
	out := map[string]any{"reference": ref, "events": recs}
	if h.activity != nil {
		if v, ok := h.activity.Get(ref); ok {
			out["activity"] = v
		}
	}
	writeJSON(w, h.logger, http.StatusOK, true, out)
}

func (h *Transactions) record(r *http.Request, event, ref string, fields map[string]any) {
	if h.audit == nil {
		return
	}
	actor := ""
	if p, ok := access.PrincipalFrom(r.Context()); ok {
		actor = p.Subject
	}
	h.audit.Record(r.Context(), audit.Entry{Event: event, Reference: ref, Actor: actor, Fields: fields})
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
