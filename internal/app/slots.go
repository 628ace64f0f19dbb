package app

import (
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"gym-booking-service/internal/datekey"
	"gym-booking-service/internal/slots"
	"gym-booking-service/internal/store"
)

type overrideEntry struct {
	Date  datekey.Key `json:"date"`
	Slots []string    `json:"slots"`
}

// GET /days/:date/slots
// Past days are reported with no slots.
func (a *App) GetDaySlotsHandler(c *gin.Context) {
	date, err := datekey.Parse(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp := daySlotsResponse{Date: date, Slots: []string{}}
	if datekey.IsPast(date, a.today()) {
		resp.Past = true
	} else {
		resp.Slots = a.Catalog.SlotsFor(date)
	}
	c.JSON(http.StatusOK, resp)
}

// GET /slot-overrides
func (a *App) ListOverridesHandler(c *gin.Context) {
	overrides := a.Catalog.Overrides()
	out := make([]overrideEntry, 0, len(overrides))
	for _, k := range sortedKeys(overrides) {
		out = append(out, overrideEntry{Date: k, Slots: overrides[k]})
	}
	c.JSON(http.StatusOK, gin.H{"overrides": out})
}

// PUT /slot-overrides/:date
func (a *App) PutOverrideHandler(c *gin.Context) {
	date, err := datekey.Parse(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req overrideReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := slots.ValidateLabels(req.Slots); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := a.Deps.StoreContext(c.Request.Context())
	defer cancel()
	if err := a.Store.PutOverride(ctx, date, req.Slots); err != nil {
		a.Logger.Error("failed to save slot override", "date", date, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to save override"})
		return
	}
	_, replaced := a.Catalog.Override(date)
	a.Catalog.SetOverride(date, req.Slots)
	a.Logger.Info("slot override saved", "date", date, "slots", len(req.Slots), "replaced", replaced)
	c.JSON(http.StatusOK, overrideEntry{Date: date, Slots: a.Catalog.SlotsFor(date)})
}

// DELETE /slot-overrides/:date
func (a *App) DeleteOverrideHandler(c *gin.Context) {
	date, err := datekey.Parse(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := a.Deps.StoreContext(c.Request.Context())
	defer cancel()
	err = a.Store.DeleteOverride(ctx, date)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no override for that date"})
		return
	}
	if err != nil {
		a.Logger.Error("failed to delete slot override", "date", date, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to delete override"})
		return
	}
	a.Catalog.DeleteOverride(date)
	a.Logger.Info("slot override removed", "date", date)
	c.Status(http.StatusNoContent)
}

func sortedKeys(m map[datekey.Key][]string) []datekey.Key {
	keys := make([]datekey.Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
