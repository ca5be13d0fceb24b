package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"popup-service/internal/creative"
	"popup-service/internal/popup"
)

type Handler struct {
	creatives *creative.Service
	tabs      *popup.Registry
	log       *slog.Logger
	ping      func(ctx context.Context) error // Needed for /healthz
}

func NewHandler(creatives *creative.Service, tabs *popup.Registry, log *slog.Logger, ping func(ctx context.Context) error) *Handler {
	return &Handler{creatives: creatives, tabs: tabs, log: log, ping: ping}
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)

	// Client (one tab session per browsing tab)
	mux.HandleFunc("POST /v1/tabs", h.OpenTab)
	mux.HandleFunc("DELETE /v1/tabs/{id}", h.CloseTab)
	mux.HandleFunc("POST /v1/tabs/{id}/events", h.TabEvent)
	mux.HandleFunc("GET /v1/tabs/{id}/popup", h.GetPopup)
	mux.HandleFunc("POST /v1/tabs/{id}/popup/close", h.ClosePopup)
	mux.HandleFunc("POST /v1/tabs/{id}/popup/click", h.ClickPopup)
	mux.HandleFunc("POST /v1/tabs/{id}/popup/next", h.NextPopup)
	mux.HandleFunc("POST /v1/tabs/{id}/popup/previous", h.PreviousPopup)

	// Admin
	mux.HandleFunc("POST /admin/creatives", h.CreateCreative)
	mux.HandleFunc("PUT /admin/creatives", h.UpdateCreative)
	mux.HandleFunc("DELETE /admin/creatives", h.DeleteCreative)
	mux.HandleFunc("GET /admin/creatives", h.ListCreatives)
	mux.HandleFunc("GET /admin/creatives/detail", h.GetCreative)
	mux.HandleFunc("GET /admin/creatives/stats", h.GetStats)

	mux.HandleFunc("POST /debug/sync", h.SyncData)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("encode response failed", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, creative.ErrInvalidCreative):
		status = http.StatusBadRequest
	case errors.Is(err, creative.ErrNotFound), errors.Is(err, popup.ErrUnknownTab):
		status = http.StatusNotFound
	case errors.Is(err, popup.ErrNothingVisible):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "error", err)
	}
	http.Error(w, err.Error(), status)
}

func (h *Handler) tab(w http.ResponseWriter, r *http.Request) (*popup.Tab, bool) {
	tab, err := h.tabs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return tab, true
}

// Healthz godoc
// @Summary      Health Check
// @Description  Pings Redis and PostgreSQL.
// @Tags         Debug
// @Success      200  "OK"
// @Failure      503  {string}  string "Dependency unavailable"
// @Router       /healthz [get]
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.Write([]byte("ok"))
}

type OpenTabRequest struct {
	TabID string `json:"tab_id,omitempty"`
}

type OpenTabResponse struct {
	TabID     string `json:"tab_id"`
	Creatives int    `json:"creatives"`
}

// OpenTab godoc
// @Summary      Open Tab Session
// @Description  Starts (or remounts) the popup session of a browsing tab and loads the creative catalog once.
// @Tags         Client
// @Accept       json
// @Produce      json
// @Param        request body OpenTabRequest false "Existing tab id to remount"
// @Success      201  {object}  OpenTabResponse
// @Router       /v1/tabs [post]
func (h *Handler) OpenTab(w http.ResponseWriter, r *http.Request) {
	var req OpenTabRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tab := h.tabs.Open(r.Context(), req.TabID)
	_, size := tab.Scheduler.Cursor()
	h.writeJSON(w, http.StatusCreated, OpenTabResponse{TabID: tab.ID, Creatives: size})
}

// CloseTab godoc
// @Summary      Close Tab Session
// @Description  Ends a tab session and stops its triggers.
// @Tags         Client
// @Param        id   path      string  true  "Tab ID"
// @Success      204  "No Content"
// @Failure      404  {string}  string "Unknown tab"
// @Router       /v1/tabs/{id} [delete]
func (h *Handler) CloseTab(w http.ResponseWriter, r *http.Request) {
	if err := h.tabs.Close(r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

const (
	EventVisibility = "visibility"
	EventActivity   = "activity"
	EventRoute      = "route"
	EventInput      = "input"
	EventFocus      = "focus"
)

type TabEventRequest struct {
	Type      string `json:"type"`
	Visible   bool   `json:"visible,omitempty"`    // visibility
	Path      string `json:"path,omitempty"`       // route
	TextInput bool   `json:"text_input,omitempty"` // focus: focused element is text-input-like
}

// TabEvent godoc
// @Summary      Report Page Event
// @Description  Feeds a page event (visibility, activity, route, input, focus) into the tab's popup triggers.
// @Tags         Client
// @Accept       json
// @Param        id       path  string           true  "Tab ID"
// @Param        request  body  TabEventRequest  true  "Event"
// @Success      202  "Accepted"
// @Failure      400  {string}  string "Unknown event type"
// @Router       /v1/tabs/{id}/events [post]
func (h *Handler) TabEvent(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.tab(w, r)
	if !ok {
		return
	}
	var req TabEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch req.Type {
	case EventVisibility:
		tab.Triggers.VisibilityChanged(req.Visible)
	case EventActivity:
		tab.Triggers.Activity()
	case EventRoute:
		tab.Triggers.RouteChanged(req.Path)
	case EventInput:
		tab.Triggers.Input()
	case EventFocus:
		tab.SetInputFocus(req.TextInput)
	default:
		http.Error(w, "unknown event type", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// GetPopup godoc
// @Summary      Get Visible Popup
// @Description  Returns the creative currently shown in the tab, if any.
// @Tags         Client
// @Produce      json
// @Param        id   path      string  true  "Tab ID"
// @Success      200  {object}  creative.Creative
// @Success      204  "No Content (Nothing visible)"
// @Router       /v1/tabs/{id}/popup [get]
func (h *Handler) GetPopup(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.tab(w, r)
	if !ok {
		return
	}
	c := tab.Scheduler.Visible()
	if c == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

// ClosePopup godoc
// @Summary      Dismiss Popup
// @Description  Hides the popup and rotates to the next creative.
// @Tags         Client
// @Param        id   path      string  true  "Tab ID"
// @Success      204  "No Content"
// @Router       /v1/tabs/{id}/popup/close [post]
func (h *Handler) ClosePopup(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.tab(w, r)
	if !ok {
		return
	}
	tab.Scheduler.Close()
	w.WriteHeader(http.StatusNoContent)
}

type ClickResponse struct {
	CreativeID int64  `json:"creative_id"`
	OpenURL    string `json:"open_url,omitempty"`
}

// ClickPopup godoc
// @Summary      Click Popup
// @Description  Records a click and rotates. open_url is for the tab to open in a new browsing context.
// @Tags         Client
// @Produce      json
// @Param        id   path      string  true  "Tab ID"
// @Success      200  {object}  ClickResponse
// @Failure      409  {string}  string "Nothing visible"
// @Router       /v1/tabs/{id}/popup/click [post]
func (h *Handler) ClickPopup(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.tab(w, r)
	if !ok {
		return
	}
	c, err := tab.Scheduler.Activate(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ClickResponse{CreativeID: c.ID, OpenURL: c.TargetURL})
}

type CursorResponse struct {
	Index int `json:"index"`
	Size  int `json:"size"`
}

// NextPopup godoc
// @Summary      Carousel Next
// @Description  Moves the rotation pointer forward without showing anything.
// @Tags         Client
// @Produce      json
// @Param        id   path      string  true  "Tab ID"
// @Success      200  {object}  CursorResponse
// @Router       /v1/tabs/{id}/popup/next [post]
func (h *Handler) NextPopup(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.tab(w, r)
	if !ok {
		return
	}
	tab.Scheduler.Next()
	idx, size := tab.Scheduler.Cursor()
	h.writeJSON(w, http.StatusOK, CursorResponse{Index: idx, Size: size})
}

// PreviousPopup godoc
// @Summary      Carousel Previous
// @Description  Moves the rotation pointer backward without showing anything.
// @Tags         Client
// @Produce      json
// @Param        id   path      string  true  "Tab ID"
// @Success      200  {object}  CursorResponse
// @Router       /v1/tabs/{id}/popup/previous [post]
func (h *Handler) PreviousPopup(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.tab(w, r)
	if !ok {
		return
	}
	tab.Scheduler.Previous()
	idx, size := tab.Scheduler.Cursor()
	h.writeJSON(w, http.StatusOK, CursorResponse{Index: idx, Size: size})
}

// --- Admin Handlers ---

// CreateCreative godoc
// @Summary      Create New Creative
// @Description  Creates a creative in DB and syncs to Redis.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        creative body creative.Creative true "Creative Data"
// @Success      201  {object}  creative.Creative
// @Failure      400  {string}  string "Invalid creative"
// @Router       /admin/creatives [post]
func (h *Handler) CreateCreative(w http.ResponseWriter, r *http.Request) {
	var c creative.Creative
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.creatives.CreateCreative(r.Context(), &c); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, c)
}

// UpdateCreative godoc
// @Summary      Update Creative
// @Description  Updates a creative in DB and syncs to Redis.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        creative body creative.Creative true "Creative Data"
// @Success      200  {object}  creative.Creative
// @Router       /admin/creatives [put]
func (h *Handler) UpdateCreative(w http.ResponseWriter, r *http.Request) {
	var c creative.Creative
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if c.ID == 0 {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	if err := h.creatives.UpdateCreative(r.Context(), &c); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

// DeleteCreative godoc
// @Summary      Delete Creative
// @Description  Deletes a creative from DB and Redis.
// @Tags         Admin
// @Param        id   query      int  true  "Creative ID"
// @Success      204  "No Content"
// @Router       /admin/creatives [delete]
func (h *Handler) DeleteCreative(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	if err := h.creatives.DeleteCreative(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCreatives godoc
// @Summary      List All Creatives
// @Description  Fetches all creatives from PostgreSQL.
// @Tags         Admin
// @Produce      json
// @Success      200  {array}  creative.Creative
// @Router       /admin/creatives [get]
func (h *Handler) ListCreatives(w http.ResponseWriter, r *http.Request) {
	list, err := h.creatives.ListCreatives(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if list == nil {
		list = []*creative.Creative{}
	}
	h.writeJSON(w, http.StatusOK, list)
}

// GetCreative godoc
// @Summary      Get Creative Detail
// @Description  Fetches a single creative from PostgreSQL.
// @Tags         Admin
// @Produce      json
// @Param        id   query      int  true  "Creative ID"
// @Success      200  {object}  creative.Creative
// @Failure      404  {string}  string "Not found"
// @Router       /admin/creatives/detail [get]
func (h *Handler) GetCreative(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	c, err := h.creatives.GetCreative(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

// GetStats godoc
// @Summary      Creative Telemetry
// @Description  View and click counters of a creative.
// @Tags         Admin
// @Produce      json
// @Param        id   query      int  true  "Creative ID"
// @Success      200  {object}  creative.Stats
// @Router       /admin/creatives/stats [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	st, err := h.creatives.Stats(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

// SyncData godoc
// @Summary      Sync DB to Redis
// @Description  Manually triggers synchronization of all creatives from DB to Redis.
// @Tags         Debug
// @Success      200  "Synced"
// @Router       /debug/sync [post]
func (h *Handler) SyncData(w http.ResponseWriter, r *http.Request) {
	if err := h.creatives.SyncCreatives(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Synced DB to Redis"))
}

func queryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
