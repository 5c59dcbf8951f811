package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/oapi-codegen/nullable"

	"github.com/foodian-app/foodian/internal/auth"
	"github.com/foodian-app/foodian/internal/cache"
	"github.com/foodian-app/foodian/internal/inventory"
	"github.com/foodian-app/foodian/internal/model"
	"github.com/foodian-app/foodian/internal/store"
	"github.com/foodian-app/foodian/internal/websocket"
)

type ItemHandler struct {
	items    *store.ItemStore
	families *store.FamilyStore
	now      func() time.Time
	notifier
}

func NewItemHandler(is *store.ItemStore, fs *store.FamilyStore, hub *websocket.Hub, c cache.Cache, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{
		items:    is,
		families: fs,
		now:      time.Now,
		notifier: notifier{hub: hub, cache: c, logger: logger},
	}
}

// itemPatch distinguishes absent fields from explicit nulls.
type itemPatch struct {
	Name       nullable.Nullable[string]   `json:"name"`
	Qty        nullable.Nullable[float64]  `json:"qty"`
	Unit       nullable.Nullable[string]   `json:"unit"`
	Storage    nullable.Nullable[string]   `json:"storage"`
	ExpireDate nullable.Nullable[string]   `json:"expireDate"`
	Tags       nullable.Nullable[[]string] `json:"tags"`
}

func writeFieldErrors(w http.ResponseWriter, err error) bool {
	var fe inventory.FieldErrors
	if errors.As(err, &fe) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid item", "fields": fe})
		return true
	}
	return false
}

// mutated fans an item change out to the family and drops cached statistics.
func (h *ItemHandler) mutated(r *http.Request, familyID int64, action, id string, extra map[string]any) {
	h.broadcast(familyID, websocket.NewMessage("item", action, id, extra))
	h.invalidateStats(r.Context(), familyID)
}

// storageEnabled reports whether st is one of the family's storages.
func (h *ItemHandler) storageEnabled(familyID int64, st model.Storage) (bool, error) {
	fam, err := h.families.GetByID(familyID)
	if err != nil || fam == nil {
		return false, err
	}
	return slices.Contains(fam.Storages, st), nil
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	storage := q.Get("storage")
	if storage != "" && !inventory.IsAllStorages(storage) {
		if _, ok := inventory.ParseStorage(storage); !ok {
			writeError(w, http.StatusBadRequest, "invalid storage")
			return
		}
	}

	items, err := h.items.List(auth.FamilyID(r.Context()))
	if err != nil {
		h.logger.Error("list items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	filtered := inventory.Filter(items, inventory.Query{
		Storage: storage,
		Search:  q.Get("q"),
		Sort:    inventory.ParseSort(q.Get("sort")),
	})
	writeJSON(w, http.StatusOK, inventory.Annotate(filtered, h.now()))
}

func (h *ItemHandler) Expiring(w http.ResponseWriter, r *http.Request) {
	days := inventory.DefaultExpiringDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid days")
			return
		}
		days = n
	}

	items, err := h.items.List(auth.FamilyID(r.Context()))
	if err != nil {
		h.logger.Error("list items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	writeJSON(w, http.StatusOK, inventory.Expiring(items, h.now(), days))
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	var in inventory.ItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	it, err := inventory.ValidateItem(in)
	if writeFieldErrors(w, err) {
		return
	}

	ok, err := h.storageEnabled(ac.FamilyID, it.Storage)
	if err != nil {
		h.logger.Error("check storage", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "storage is not enabled for this family")
		return
	}

	it.FamilyID = ac.FamilyID
	created, err := h.items.Create(it, ac.UserID)
	if err != nil {
		h.logger.Error("create item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	h.mutated(r, ac.FamilyID, "created", created.ID, nil)
	writeJSON(w, http.StatusCreated, h.view(created))
}

func (h *ItemHandler) view(it *model.Item) model.ItemView {
	return inventory.Annotate([]model.Item{*it}, h.now())[0]
}

// load fetches the {id} item of the caller's family, writing 404 when absent.
func (h *ItemHandler) load(w http.ResponseWriter, r *http.Request) *model.Item {
	it, err := h.items.GetByID(auth.FamilyID(r.Context()), r.PathValue("id"))
	if err != nil {
		h.logger.Error("get item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load item")
		return nil
	}
	if it == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return nil
	}
	return it
}

func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	if it := h.load(w, r); it != nil {
		writeJSON(w, http.StatusOK, h.view(it))
	}
}

func (h *ItemHandler) Put(w http.ResponseWriter, r *http.Request) {
	prev := h.load(w, r)
	if prev == nil {
		return
	}
	var in inventory.ItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// Omitted storage and tags keep their previous values. An explicit [] clears tags.
	if in.Storage == "" {
		in.Storage = string(prev.Storage)
	}
	if in.Tags == nil {
		in.Tags = prev.Tags
	}
	it, err := inventory.ValidateItem(in)
	if writeFieldErrors(w, err) {
		return
	}
	h.update(w, r, prev, it)
}

func (h *ItemHandler) Patch(w http.ResponseWriter, r *http.Request) {
	prev := h.load(w, r)
	if prev == nil {
		return
	}
	var p itemPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	qty := prev.Qty
	in := inventory.ItemInput{
		Name:       prev.Name,
		Qty:        &qty,
		Unit:       prev.Unit,
		Storage:    string(prev.Storage),
		ExpireDate: prev.ExpireDate,
		Tags:       prev.Tags,
	}
	nulls := inventory.FieldErrors{}
	applyString(p.Name, "name", &in.Name, nulls)
	applyString(p.Unit, "unit", &in.Unit, nulls)
	applyString(p.Storage, "storage", &in.Storage, nulls)
	applyString(p.ExpireDate, "expireDate", &in.ExpireDate, nulls)
	if p.Qty.IsSpecified() {
		if p.Qty.IsNull() {
			nulls["qty"] = "qty cannot be null"
		} else {
			qty = p.Qty.MustGet()
		}
	}
	if p.Tags.IsSpecified() {
		if p.Tags.IsNull() {
			in.Tags = nil
		} else {
			in.Tags = p.Tags.MustGet()
		}
	}
	if len(nulls) > 0 {
		writeFieldErrors(w, nulls)
		return
	}

	it, err := inventory.ValidateItem(in)
	if writeFieldErrors(w, err) {
		return
	}
	h.update(w, r, prev, it)
}

func applyString(v nullable.Nullable[string], field string, dst *string, nulls inventory.FieldErrors) {
	if !v.IsSpecified() {
		return
	}
	if v.IsNull() {
		nulls[field] = field + " cannot be null"
		return
	}
	*dst = v.MustGet()
}

func (h *ItemHandler) update(w http.ResponseWriter, r *http.Request, prev *model.Item, it model.Item) {
	ac, _ := auth.FromContext(r.Context())
	if it.Storage != prev.Storage {
		ok, err := h.storageEnabled(ac.FamilyID, it.Storage)
		if err != nil {
			h.logger.Error("check storage", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update item")
			return
		}
		if !ok {
			writeError(w, http.StatusBadRequest, "storage is not enabled for this family")
			return
		}
	}

	it.ID = prev.ID
	it.FamilyID = ac.FamilyID
	updated, err := h.items.Update(it, ac.UserID)
	if err != nil {
		h.logger.Error("update item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update item")
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	h.mutated(r, ac.FamilyID, "updated", updated.ID, nil)
	writeJSON(w, http.StatusOK, h.view(updated))
}

// Consume takes qty (default 1) out of the item. An empty body is allowed.
func (h *ItemHandler) Consume(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	var body struct {
		Qty *float64 `json:"qty"`
	}
	if err := decodeJSON(w, r, &body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount := 1.0
	if body.Qty != nil {
		amount = *body.Qty
	}
	if amount <= 0 {
		writeError(w, http.StatusBadRequest, "qty must be greater than 0")
		return
	}

	id := r.PathValue("id")
	res, err := h.items.Consume(ac.FamilyID, id, amount, ac.UserID)
	if err != nil {
		h.logger.Error("consume item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to consume item")
		return
	}
	if res == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	action := "consumed"
	if res.Removed {
		action = "deleted"
	}
	h.mutated(r, ac.FamilyID, action, id, map[string]any{"consumed": res.Consumed})
	writeJSON(w, http.StatusOK, res)
}

func (h *ItemHandler) Discard(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	it, err := h.items.Discard(ac.FamilyID, r.PathValue("id"), ac.UserID)
	if err != nil {
		h.logger.Error("discard item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to discard item")
		return
	}
	if it == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	h.mutated(r, ac.FamilyID, "discarded", it.ID, nil)
	writeJSON(w, http.StatusOK, it)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	it, err := h.items.Delete(ac.FamilyID, r.PathValue("id"), ac.UserID)
	if err != nil {
		h.logger.Error("delete item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}
	if it == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	h.mutated(r, ac.FamilyID, "deleted", it.ID, nil)
	w.WriteHeader(http.StatusNoContent)
}
