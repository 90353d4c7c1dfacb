package quota

import (
	"testing"

	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	premium := &models.Plan{Name: "Premium", BaseSlots: 100, BaseGB: 10, BaseNotes: 50, BaseReminders: 40, AdFree: true}

	tests := []struct {
		name    string
		plan    *models.Plan
		profile *models.Profile
		want    Entitlement
	}{
		{
			name: "no plan no profile is free tier",
			want: Entitlement{PlanName: "Free", TotalSlots: 10, TotalStorageBytes: 1 << 30, TotalNotes: 10, TotalReminders: 10},
		},
		{
			name:    "free tier plus grants",
			profile: &models.Profile{ExtraSlots: 5, ExtraGB: 2, ExtraNotes: 1, ExtraReminders: 3},
			want:    Entitlement{PlanName: "Free", TotalSlots: 15, TotalStorageBytes: 3 << 30, TotalNotes: 11, TotalReminders: 13},
		},
		{
			name:    "plan plus grants",
			plan:    premium,
			profile: &models.Profile{ExtraSlots: 1, ExtraGB: 1},
			want:    Entitlement{PlanName: "Premium", TotalSlots: 101, TotalStorageBytes: 11 << 30, TotalNotes: 50, TotalReminders: 40, AdFree: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compute(tt.plan, tt.profile))
		})
	}
}

func TestCompute_DoesNotMutateFreePlan(t *testing.T) {
	_ = Compute(nil, &models.Profile{ExtraSlots: 99})
	assert.Equal(t, 10, FreePlan.BaseSlots)
}

func TestTotalStorageGB(t *testing.T) {
	assert.Equal(t, int64(3), Entitlement{TotalStorageBytes: 3 << 30}.TotalStorageGB())
}
