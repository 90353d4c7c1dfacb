// Package quota turns a plan and a profile into concrete limits.
package quota

import "github.com/dmitrijs2005/vaultkeeper/internal/server/models"

// MaxFileBytes caps a single upload regardless of remaining storage.
const MaxFileBytes int64 = 50 << 20

const bytesPerGB int64 = 1 << 30

// FreePlanName is reported when a user has no plan assigned.
const FreePlanName = "Free"

// FreePlan is the tier applied to users without a plan.
var FreePlan = models.Plan{
	Name:          FreePlanName,
	BaseSlots:     10,
	BaseGB:        1,
	BaseNotes:     10,
	BaseReminders: 10,
}

// Entitlement is the effective set of limits for one user.
type Entitlement struct {
	PlanName          string
	TotalSlots        int
	TotalStorageBytes int64
	TotalNotes        int
	TotalReminders    int
	AdFree            bool
}

// Compute combines plan and profile grants. A nil plan means the free tier.
// A nil profile contributes no grants.
func Compute(plan *models.Plan, profile *models.Profile) Entitlement {
	if plan == nil {
		plan = &FreePlan
	}
	var p models.Profile
	if profile != nil {
		p = *profile
	}
	return Entitlement{
		PlanName:          plan.Name,
		TotalSlots:        plan.BaseSlots + p.ExtraSlots,
		TotalStorageBytes: int64(plan.BaseGB+p.ExtraGB) * bytesPerGB,
		TotalNotes:        plan.BaseNotes + p.ExtraNotes,
		TotalReminders:    plan.BaseReminders + p.ExtraReminders,
		AdFree:            plan.AdFree,
	}
}

// TotalStorageGB is TotalStorageBytes expressed in whole gigabytes.
func (e Entitlement) TotalStorageGB() int64 {
	return e.TotalStorageBytes / bytesPerGB
}
