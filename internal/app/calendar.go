package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"gym-booking-service/internal/datekey"
	"gym-booking-service/internal/slots"
)

// NewCalendarConfig returns the OAuth2 config used to export reservations,
// or nil when any of the Google settings is missing.
func NewCalendarConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{calendar.CalendarEventsScope},
		Endpoint:     google.Endpoint,
	}
}

// GET /calendar/auth
// Starts the OAuth2 flow.
func (a *App) GoogleAuthHandler(c *gin.Context) {
	if a.Calendar == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Google Calendar not configured"})
		return
	}
	state := fmt.Sprintf("user_%s_%s", userIDFrom(c), uuid.NewString())
	url := a.Calendar.AuthCodeURL(state, oauth2.AccessTypeOffline)
	c.JSON(http.StatusOK, gin.H{
		"auth_url": url,
		"state":    state,
	})
}

// GET /oauth2callback
// The token is handed back to the client, which sends it with each export
// in the X-Google-Token header.
func (a *App) GoogleOAuth2CallbackHandler(c *gin.Context) {
	if a.Calendar == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Google Calendar not configured"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code required"})
		return
	}

	token, err := a.Calendar.Exchange(c.Request.Context(), code)
	if err != nil {
		a.Logger.Warn("google token exchange failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to exchange code for token"})
		return
	}
	tokenJSON, err := json.Marshal(token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Authorization successful",
		"state":   c.Query("state"),
		"token":   string(tokenJSON),
	})
}

// POST /me/reservations/:date/calendar
// Adds the member's reservation for the day to their primary calendar.
func (a *App) ExportReservationHandler(c *gin.Context) {
	if a.Calendar == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Google Calendar not configured"})
		return
	}
	userID := userIDFrom(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "sign in to export reservations"})
		return
	}
	date, err := datekey.Parse(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tokenStr := c.GetHeader("X-Google-Token")
	if tokenStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Google token required in X-Google-Token header"})
		return
	}
	var token oauth2.Token
	if err := json.Unmarshal([]byte(tokenStr), &token); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token format"})
		return
	}

	sctx, cancel := a.Deps.StoreContext(c.Request.Context())
	r, err := a.Store.FindByUserAndDate(sctx, userID, date)
	cancel()
	if err != nil {
		a.Logger.Error("failed to read reservation", "user_id", userID, "date", date, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reservations are unavailable right now"})
		return
	}
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
		return
	}

	start, end, err := slots.Bounds(r.Date, r.Slot, a.Deps.Location)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	client := a.Calendar.Client(ctx, &token)
	opts := append([]option.ClientOption{option.WithHTTPClient(client)}, a.CalendarOptions...)
	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create calendar service"})
		return
	}

	ev := &calendar.Event{
		Summary:     "Gym reservation",
		Description: fmt.Sprintf("%s, %s", r.DisplayName, r.Slot),
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}
	created, err := srv.Events.Insert("primary", ev).Context(ctx).Do()
	if err != nil {
		a.Logger.Warn("calendar export failed", "reservation_id", r.ID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to create calendar event"})
		return
	}
	a.Logger.Info("reservation exported to calendar", "reservation_id", r.ID, "event_id", created.Id)
	c.JSON(http.StatusCreated, calendarExportResponse{EventID: created.Id, HTMLLink: created.HtmlLink})
}
