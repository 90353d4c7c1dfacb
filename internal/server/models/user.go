package models

import "time"

// User is an account principal. Email is the login identifier.
type User struct {
	ID           string
	UserName     string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}

// Profile holds per-principal security and entitlement state. There is
// exactly one profile per user.
type Profile struct {
	UserID             string
	SecurityQuestion   string
	SecurityAnswerHash string
	PINHash            string
	FailedAttempts     int
	PlanID             *int64
	ExtraSlots         int
	ExtraGB            int
	ExtraNotes         int
	ExtraReminders     int
	TotalAdViews       int
	AdViewsToday       int
	LastAdViewAt       *time.Time
	CreatedAt          time.Time
}
