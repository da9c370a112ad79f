package treasury

import "testing"

func TestHasPermission(t *testing.T) {
	cases := []struct {
		name     string
		user     *TreasuryUser
		required Role
		want     bool
	}{
		{"nil user", nil, RoleTreasurer, false},
		{"inactive admin", &TreasuryUser{Role: RoleAdmin}, RoleAdmin, false},
		{"admin for admin", &TreasuryUser{Role: RoleAdmin, IsActive: true}, RoleAdmin, true},
		{"admin for treasurer", &TreasuryUser{Role: RoleAdmin, IsActive: true}, RoleTreasurer, true},
		{"treasurer for treasurer", &TreasuryUser{Role: RoleTreasurer, IsActive: true}, RoleTreasurer, true},
		{"treasurer for admin", &TreasuryUser{Role: RoleTreasurer, IsActive: true}, RoleAdmin, false},
		{"unknown requirement", &TreasuryUser{Role: RoleAdmin, IsActive: true}, Role(9), false},
	}
	for _, tc := range cases {
		if got := tc.user.HasPermission(tc.required); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestPayoutIsDue(t *testing.T) {
	now := int64(10_000)
	cases := []struct {
		name   string
		payout *PayoutSchedule
		want   bool
	}{
		{"inactive", &PayoutSchedule{ScheduleTime: now - 1}, false},
		{"one-time before schedule", &PayoutSchedule{IsActive: true, ScheduleTime: now + 1}, false},
		{"one-time at schedule", &PayoutSchedule{IsActive: true, ScheduleTime: now}, true},
		{"one-time already executed", &PayoutSchedule{IsActive: true, ScheduleTime: now - 10, LastExecuted: now - 5}, false},
		{"recurring first run", &PayoutSchedule{IsActive: true, Recurring: true, RecurrenceInterval: 60, ScheduleTime: now}, true},
		{"recurring inside interval", &PayoutSchedule{IsActive: true, Recurring: true, RecurrenceInterval: 60, ScheduleTime: now - 100, LastExecuted: now - 59}, false},
		{"recurring at interval", &PayoutSchedule{IsActive: true, Recurring: true, RecurrenceInterval: 60, ScheduleTime: now - 100, LastExecuted: now - 60}, true},
	}
	for _, tc := range cases {
		if got := tc.payout.IsDue(now); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRoleAndActionValidity(t *testing.T) {
	if !RoleAdmin.Valid() || !RoleTreasurer.Valid() {
		t.Fatal("built-in roles must validate")
	}
	if Role(2).Valid() {
		t.Fatal("unknown role validated")
	}
	if !AuditTokenPayout.Valid() {
		t.Fatal("highest action must validate")
	}
	if AuditAction(14).Valid() {
		t.Fatal("out-of-range action validated")
	}
}

func TestTreasuryCloneIsDeep(t *testing.T) {
	mint := makeKey(5)
	original := &Treasury{GateTokenMint: &mint}
	clone := original.Clone()
	clone.GateTokenMint[0] = 0xFF
	if original.GateTokenMint[0] == 0xFF {
		t.Fatal("clone shares gate mint storage")
	}
}
