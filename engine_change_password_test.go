package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestChangePasswordSuccess(t *testing.T) {
	_, rdb := newTestRedis(t)
	dir := newMemoryDirectory()
	engine := newTestEngine(t, rdb, dir, nil)
	ctx := context.Background()

	user := seedUser(t, engine, dir, "alice@example.com", "alice", "old-pass-123", "client", true)

	if err := engine.ChangePassword(ctx, user.ID, "old-pass-123", "new-pass-456"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if _, err := engine.Login(ctx, "alice@example.com", "old-pass-123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password Login error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := engine.Login(ctx, "alice@example.com", "new-pass-456"); err != nil {
		t.Fatalf("new password Login failed: %v", err)
	}
}

func TestChangePasswordKeepsActiveSession(t *testing.T) {
	_, rdb := newTestRedis(t)
	dir := newMemoryDirectory()
	engine := newTestEngine(t, rdb, dir, nil)
	ctx := context.Background()

	user := seedUser(t, engine, dir, "alice@example.com", "alice", "old-pass-123", "client", true)

	sess, err := engine.Login(ctx, "alice@example.com", "old-pass-123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := engine.ChangePassword(ctx, user.ID, "old-pass-123", "new-pass-456"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	// The session issued under the old password stays valid.
	if _, err := engine.Validate(ctx, sess.Token); err != nil {
		t.Fatalf("Validate after password change failed: %v", err)
	}
}

func TestChangePasswordFailures(t *testing.T) {
	_, rdb := newTestRedis(t)
	dir := newMemoryDirectory()
	engine := newTestEngine(t, rdb, dir, nil)
	ctx := context.Background()

	user := seedUser(t, engine, dir, "alice@example.com", "alice", "old-pass-123", "client", true)
	federated := seedUser(t, engine, dir, "fed@example.com", "google-123", "", "", false)

	cases := []struct {
		name    string
		userID  string
		current string
		next    string
		want    error
	}{
		{"unknown user", "missing", "old-pass-123", "new-pass-456", ErrUserNotFound},
		{"federated only", federated.ID, "old-pass-123", "new-pass-456", ErrUserNotFound},
		{"wrong current", user.ID, "bad-pass-000", "new-pass-456", ErrPasswordIncorrect},
		{"empty next", user.ID, "old-pass-123", "", ErrInvalidInput},
		{"short next", user.ID, "old-pass-123", "tiny", ErrPasswordPolicy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := engine.ChangePassword(ctx, tc.userID, tc.current, tc.next)
			if !errors.Is(err, tc.want) {
				t.Fatalf("ChangePassword error = %v, want %v", err, tc.want)
			}
		})
	}

	// Nothing above altered the stored hash.
	if _, err := engine.Login(ctx, "alice@example.com", "old-pass-123"); err != nil {
		t.Fatalf("Login after failed changes: %v", err)
	}
}
