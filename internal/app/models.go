package app

import (
	"gym-booking-service/internal/datekey"
	"gym-booking-service/internal/store"
	"gym-booking-service/internal/workflow"
)

type selectDateReq struct {
	Date string `json:"date" binding:"required"`
}

type reserveReq struct {
	Slot string `json:"slot" binding:"required"`
}

type overrideReq struct {
	Slots []string `json:"slots" binding:"required"`
}

type profileReq struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type sessionResponse struct {
	SessionID string        `json:"session_id"`
	View      workflow.View `json:"view"`
}

type daySlotsResponse struct {
	Date  datekey.Key `json:"date"`
	Past  bool        `json:"past"`
	Slots []string    `json:"slots"`
}

type profileResponse struct {
	UserID      string         `json:"user_id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email,omitempty"`
	Profile     *store.Profile `json:"profile,omitempty"`
}

type calendarExportResponse struct {
	EventID  string `json:"event_id"`
	HTMLLink string `json:"html_link,omitempty"`
}
