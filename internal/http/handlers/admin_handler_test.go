package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/services"
)

func TestAdminOverride(t *testing.T) {
	var got domain.StepStatus
	admin := stubAdmin{
		override: func(_ context.Context, un, actor, approver string, st domain.StepStatus, comment string) (*domain.Approval, error) {
			if approver == "ghost@x.com" {
				return nil, services.ErrStepNotFound
			}
			got = st
			return pendingApproval(un), nil
		},
	}
	h := New(Services{Admin: admin}, Options{})
	r := newEngine("hr@x.com", domain.RoleHR)
	r.PATCH("/approvals/:id/admin/override", h.AdminOverride)

	cases := []struct {
		body     string
		wantCode int
	}{
		{`{"approver":"mgr@x.com","status":"Pending"}`, http.StatusOK},
		{`{"approver":"mgr@x.com","status":"Maybe"}`, http.StatusBadRequest},
		{`{"approver":"ghost@x.com","status":"Accepted"}`, http.StatusNotFound},
		{`{"status":"Accepted"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		w := do(t, r, http.MethodPatch, "/approvals/ZFL202501/admin/override", strings.NewReader(tc.body), nil)
		if w.Code != tc.wantCode {
			t.Fatalf("%s: code = %d, want %d", tc.body, w.Code, tc.wantCode)
		}
	}
	if got != domain.StepPending {
		t.Fatalf("override status = %q", got)
	}
}

func TestAdminDeleteAndMigrationDryRun(t *testing.T) {
	var dry []bool
	h := New(Services{
		Admin: stubAdmin{del: func(_ context.Context, un, actor string) error {
			if un == "missing" {
				return services.ErrApprovalNotFound
			}
			return nil
		}},
		Migrations: stubMigrations{migrate: func(_ context.Context, actor string, dryRun bool) (services.MigrationReport, error) {
			dry = append(dry, dryRun)
			changed := 2
			if dryRun {
				changed = 0
			}
			return services.MigrationReport{Inspected: 5, Changed: changed, DryRun: dryRun}, nil
		}},
	}, Options{})
	r := newEngine("master@x.com", domain.RoleMaster)
	r.DELETE("/approvals/:id", h.AdminDelete)
	r.POST("/admin/migrate-approvers", h.MigrateApprovers)

	if w := do(t, r, http.MethodDelete, "/approvals/ZFL202501", nil, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	if w := do(t, r, http.MethodDelete, "/approvals/missing", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("delete missing = %d", w.Code)
	}

	w := do(t, r, http.MethodPost, "/admin/migrate-approvers?dry_run=true", nil, nil)
	var rep services.MigrationReport
	if err := json.Unmarshal(w.Body.Bytes(), &rep); err != nil {
		t.Fatalf("json: %v", err)
	}
	if w.Code != http.StatusOK || !rep.DryRun || rep.Inspected != 5 {
		t.Fatalf("dry run = %d %+v", w.Code, rep)
	}
	do(t, r, http.MethodPost, "/admin/migrate-approvers", nil, nil)
	if len(dry) != 2 || !dry[0] || dry[1] {
		t.Fatalf("dry flags = %v", dry)
	}
}
