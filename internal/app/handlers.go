package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"gym-booking-service/internal/datekey"
	"gym-booking-service/internal/slots"
	"gym-booking-service/internal/store"
	"gym-booking-service/internal/workflow"
)

// App carries the collaborators shared by the HTTP handlers.
type App struct {
	Store    store.Store
	Catalog  *slots.Catalog
	Deps     *workflow.Deps
	Sessions *workflow.Registry
	Logger   *slog.Logger

	// Calendar is nil when Google Calendar export is not configured.
	Calendar        *oauth2.Config
	CalendarOptions []option.ClientOption
}

func (a *App) today() datekey.Key {
	return a.Deps.Today()
}

// POST /sessions
// Opens a dashboard session with today selected.
func (a *App) OpenSessionHandler(c *gin.Context) {
	sid, s := a.Sessions.Open(identityFrom(c), principalFrom(c))
	v, err := s.SelectDate(c.Request.Context(), a.today())
	if err != nil {
		writeError(c, err, gin.H{"session_id": sid, "view": v})
		return
	}
	c.JSON(http.StatusCreated, sessionResponse{SessionID: sid, View: v})
}

// GET /sessions/:sid
func (a *App) GetSessionHandler(c *gin.Context) {
	s, ok := a.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionResponse{SessionID: c.Param("sid"), View: s.View()})
}

// PUT /sessions/:sid/date
func (a *App) SelectDateHandler(c *gin.Context) {
	s, ok := a.session(c)
	if !ok {
		return
	}
	var req selectDateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := datekey.Parse(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	v, err := s.SelectDate(c.Request.Context(), date)
	if err != nil {
		writeError(c, err, gin.H{"view": v})
		return
	}
	c.JSON(http.StatusOK, sessionResponse{SessionID: c.Param("sid"), View: v})
}

// POST /sessions/:sid/reservations
func (a *App) ReserveHandler(c *gin.Context) {
	s, ok := a.session(c)
	if !ok {
		return
	}
	var req reserveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	v, err := s.Reserve(c.Request.Context(), req.Slot)
	if err != nil {
		writeError(c, err, gin.H{"view": v})
		return
	}
	status := http.StatusCreated
	if v.Adopted {
		status = http.StatusOK
	}
	c.JSON(status, sessionResponse{SessionID: c.Param("sid"), View: v})
}

// GET /me/reservations?from=YYYY-MM-DD&to=YYYY-MM-DD
// Without a range the current month is listed.
func (a *App) ListReservationsHandler(c *gin.Context) {
	userID := userIDFrom(c)
	if userID == "" {
		writeError(c, workflow.ErrNotAuthenticated, nil)
		return
	}

	from, to := datekey.MonthRange(a.today())
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr != "" || toStr != "" {
		var err error
		if from, err = datekey.Parse(fromStr); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
			return
		}
		if to, err = datekey.Parse(toStr); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
			return
		}
		if to < from {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must not be after to"})
			return
		}
	}

	ctx, cancel := a.Deps.StoreContext(c.Request.Context())
	defer cancel()
	out, err := a.Store.FindByUserAndDateRange(ctx, userID, from, to)
	if err != nil {
		a.Logger.Error("failed to list reservations", "user_id", userID, "error", err)
		writeError(c, workflow.ErrStoreUnavailable, nil)
		return
	}
	if out == nil {
		out = []store.Reservation{}
	}
	c.JSON(http.StatusOK, gin.H{"from": from, "to": to, "reservations": out})
}

// GET /me/reservations/:date
func (a *App) GetReservationHandler(c *gin.Context) {
	userID := userIDFrom(c)
	if userID == "" {
		writeError(c, workflow.ErrNotAuthenticated, nil)
		return
	}
	date, err := datekey.Parse(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := a.Deps.StoreContext(c.Request.Context())
	defer cancel()
	r, err := a.Store.FindByUserAndDate(ctx, userID, date)
	if err != nil {
		a.Logger.Error("failed to read reservation", "user_id", userID, "date", date, "error", err)
		writeError(c, workflow.ErrStoreUnavailable, nil)
		return
	}
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
		return
	}
	c.JSON(http.StatusOK, r)
}

// GET /me/profile
func (a *App) ProfileHandler(c *gin.Context) {
	id := identityFrom(c)
	if id == nil {
		writeError(c, workflow.ErrNotAuthenticated, nil)
		return
	}
	ctx, cancel := a.Deps.StoreContext(c.Request.Context())
	defer cancel()
	c.JSON(http.StatusOK, a.buildProfile(ctx, *id))
}

// PUT /me/profile
// Stores the member's registered name, which then heads the display-name
// chain for new reservations.
func (a *App) SaveProfileHandler(c *gin.Context) {
	id := identityFrom(c)
	if id == nil {
		writeError(c, workflow.ErrNotAuthenticated, nil)
		return
	}
	var req profileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p := store.Profile{
		UserID:    id.UserID,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	}
	if p.FirstName == "" && p.LastName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "first_name or last_name required"})
		return
	}

	ctx, cancel := a.Deps.StoreContext(c.Request.Context())
	defer cancel()
	if err := a.Store.SaveProfile(ctx, p); err != nil {
		a.Logger.Error("failed to save profile", "user_id", id.UserID, "error", err)
		writeError(c, workflow.ErrStoreUnavailable, nil)
		return
	}
	c.JSON(http.StatusOK, a.buildProfile(ctx, *id))
}

func (a *App) buildProfile(ctx context.Context, id workflow.Identity) profileResponse {
	resp := profileResponse{
		UserID:      id.UserID,
		DisplayName: workflow.DisplayName(ctx, a.Store, id, a.Deps.DefaultName),
		Email:       id.Email,
	}
	if p, err := a.Store.GetProfile(ctx, id.UserID); err == nil {
		resp.Profile = &p
	}
	return resp
}

// GET /me/stats
func (a *App) GetStatsHandler(c *gin.Context) {
	userID := userIDFrom(c)
	if userID == "" {
		writeError(c, workflow.ErrNotAuthenticated, nil)
		return
	}
	ctx, cancel := a.Deps.StoreContext(c.Request.Context())
	defer cancel()
	st, err := a.Store.GetStats(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusOK, store.Stats{})
		return
	}
	if err != nil {
		a.Logger.Error("failed to read stats", "user_id", userID, "error", err)
		writeError(c, workflow.ErrStoreUnavailable, nil)
		return
	}
	c.JSON(http.StatusOK, st)
}

// PUT /me/stats
func (a *App) SaveStatsHandler(c *gin.Context) {
	userID := userIDFrom(c)
	if userID == "" {
		writeError(c, workflow.ErrNotAuthenticated, nil)
		return
	}
	var payload store.Stats
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx, cancel := a.Deps.StoreContext(c.Request.Context())
	defer cancel()
	st, err := a.Store.SaveStats(ctx, userID, payload)
	if err != nil {
		a.Logger.Error("failed to save stats", "user_id", userID, "error", err)
		writeError(c, workflow.ErrStoreUnavailable, nil)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (a *App) session(c *gin.Context) (*workflow.Session, bool) {
	s, err := a.Sessions.Get(c.Param("sid"), principalFrom(c))
	if err != nil {
		writeError(c, err, nil)
		return nil, false
	}
	return s, true
}

// writeError maps workflow errors to HTTP responses. Store failures are
// reported without their cause.
func writeError(c *gin.Context, err error, extra gin.H) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, workflow.ErrNotAuthenticated):
		status, msg = http.StatusUnauthorized, err.Error()
	case errors.Is(err, workflow.ErrPastDate):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, workflow.ErrAlreadyReserved):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, workflow.ErrStoreUnavailable):
		status, msg = http.StatusServiceUnavailable, workflow.ErrStoreUnavailable.Error()
	case errors.Is(err, workflow.ErrUnknownSlot):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, workflow.ErrNoDateSelected), errors.Is(err, workflow.ErrSuperseded),
		errors.Is(err, workflow.ErrReserveInFlight):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, workflow.ErrSessionNotFound):
		status, msg = http.StatusNotFound, err.Error()
	}

	body := gin.H{"error": msg}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}
