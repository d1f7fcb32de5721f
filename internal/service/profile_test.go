package service

import (
	"context"
	"errors"
	"testing"

	"bookpassport/internal/model"
)

func TestProfileService_EnsureProfile_ProvisionsOnce(t *testing.T) {
	repo := newMockProfileRepository()
	svc := NewProfileService(repo)
	ctx := context.Background()

	p, err := svc.EnsureProfile(ctx, "u1", "jane.doe@example.com")
	if err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	if p.Name != "jane.doe" || p.Points != 0 {
		t.Errorf("profile = %+v", p)
	}

	// A later call never overwrites edits.
	name := "Jane"
	if _, err := svc.Update(ctx, "u1", &model.UpdateProfileRequest{Name: &name}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	p, _ = svc.EnsureProfile(ctx, "u1", "jane.doe@example.com")
	if p.Name != "Jane" {
		t.Errorf("name = %q, want Jane", p.Name)
	}
}

func TestProfileService_Update_Validation(t *testing.T) {
	svc := NewProfileService(newMockProfileRepository("alice", "bob"))
	ctx := context.Background()

	str := func(s string) *string { return &s }

	tests := []struct {
		name    string
		req     model.UpdateProfileRequest
		wantErr error
	}{
		{"blank name", model.UpdateProfileRequest{Name: str("  ")}, model.ErrInvalidProfile},
		{"short username", model.UpdateProfileRequest{Username: str("ab")}, model.ErrInvalidProfile},
		{"bad chars", model.UpdateProfileRequest{Username: str("jane doe")}, model.ErrInvalidProfile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(ctx, "alice", &tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	p, err := svc.Update(ctx, "alice", &model.UpdateProfileRequest{Username: str(" Alice_01 ")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if p.Username == nil || *p.Username != "alice_01" {
		t.Errorf("username = %v, want alice_01", p.Username)
	}

	if _, err := svc.Update(ctx, "bob", &model.UpdateProfileRequest{Username: str("alice_01")}); !errors.Is(err, model.ErrUsernameTaken) {
		t.Errorf("taken username err = %v", err)
	}
}
