package httptransport

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"nucleo/internal/access"
	"nucleo/internal/audit"
	"nucleo/internal/entity"
	"nucleo/internal/store"
	domainerrors "nucleo/pkg/domain-errors"
)

// EntityHandler exposes generic CRUD over registered entity types. Every
// request gets a freshly composed access layer built from its own context;
// the layer is never cached or shared between requests.
type EntityHandler struct {
	base store.Store
	sink audit.Sink
	opts []access.Option
}

func NewEntityHandler(base store.Store, sink audit.Sink, opts []access.Option) *EntityHandler {
	return &EntityHandler{base: base, sink: sink, opts: opts}
}

func (h *EntityHandler) layer(r *http.Request) store.Store {
	ctx := r.Context()
	return access.New(h.base,
		access.TenantFromContext(ctx),
		access.AuditFromContext(ctx),
		h.sink,
		h.opts...)
}

func (h *EntityHandler) entityType(r *http.Request) (entity.Type, error) {
	typ := entity.Type(chi.URLParam(r, "entity"))
	if !entity.Registered(typ) {
		return "", domainerrors.New(domainerrors.CodeNotFound, "unknown entity type")
	}
	return typ, nil
}

func (h *EntityHandler) handleList(w http.ResponseWriter, r *http.Request) {
	typ, err := h.entityType(r)
	if err != nil {
		writeError(w, err)
		return
	}

	q := store.Query{}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		q.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && offset > 0 {
		q.Offset = offset
	}
	if orderBy := r.URL.Query().Get("orderBy"); orderBy != "" {
		q.OrderBy = []store.Order{{Field: orderBy, Desc: r.URL.Query().Get("dir") == "desc"}}
	}

	recs, err := h.layer(r).FindMany(r.Context(), typ, q)
	if err != nil {
		writeError(w, err)
		return
	}
	if recs == nil {
		recs = []store.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": recs})
}

func (h *EntityHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	typ, err := h.entityType(r)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := decodeRecord(r)
	if err != nil {
		writeError(w, err)
		return
	}

	created, err := h.layer(r).Create(r.Context(), typ, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *EntityHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	typ, err := h.entityType(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.layer(r).FindUnique(r.Context(), typ, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *EntityHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	typ, err := h.entityType(r)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := decodeRecord(r)
	if err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.layer(r).Update(r.Context(), typ,
		store.Eq(entity.FieldID, chi.URLParam(r, "id")), data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *EntityHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	typ, err := h.entityType(r)
	if err != nil {
		writeError(w, err)
		return
	}

	deleted, err := h.layer(r).Delete(r.Context(), typ,
		store.Eq(entity.FieldID, chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted)
}

func decodeRecord(r *http.Request) (store.Record, error) {
	var data store.Record
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		return nil, domainerrors.New(domainerrors.CodeInvalidInput, "invalid request body")
	}
	delete(data, entity.FieldID)
	return data, nil
}
