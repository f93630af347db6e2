package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestLoginIssuesSession(t *testing.T) {
	_, rdb := newTestRedis(t)
	dir := newMemoryDirectory()
	engine := newTestEngine(t, rdb, dir, nil)
	ctx := context.Background()

	user := seedUser(t, engine, dir, "alice@example.com", "alice", "s3cret-pass", "client", true)

	sess, err := engine.Login(ctx, "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if sess.Token == "" {
		t.Fatal("expected a token")
	}
	if sess.User.ID != user.ID {
		t.Fatalf("session user = %q, want %q", sess.User.ID, user.ID)
	}

	got, err := engine.Validate(ctx, sess.Token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Fatalf("validated email = %q", got.Email)
	}
}

func TestLoginCredentialFailuresAreUniform(t *testing.T) {
	_, rdb := newTestRedis(t)
	dir := newMemoryDirectory()
	engine := newTestEngine(t, rdb, dir, nil)
	ctx := context.Background()

	seedUser(t, engine, dir, "alice@example.com", "alice", "s3cret-pass", "client", true)
	// Federated-only account: no password hash at all.
	seedUser(t, engine, dir, "fed@example.com", "fed123", "", "", false)

	cases := []struct {
		name  string
		email string
		pass  string
	}{
		{"unknown email", "nobody@example.com", "s3cret-pass"},
		{"wrong password", "alice@example.com", "wrong-pass-1"},
		{"empty password", "alice@example.com", ""},
		{"no password hash", "fed@example.com", "s3cret-pass"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Login(ctx, tc.email, tc.pass)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("Login error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestLoginVerificationGate(t *testing.T) {
	_, rdb := newTestRedis(t)
	dir := newMemoryDirectory()
	engine := newTestEngine(t, rdb, dir, nil)
	ctx := context.Background()

	seedUser(t, engine, dir, "new@example.com", "newbie", "s3cret-pass", "client", false)
	seedUser(t, engine, dir, "root@example.com", "root", "s3cret-pass", "admin", false)

	if _, err := engine.Login(ctx, "new@example.com", "s3cret-pass"); !errors.Is(err, ErrNotVerified) {
		t.Fatalf("unverified client login error = %v, want ErrNotVerified", err)
	}

	// Non-gated roles skip the check even without a verification stamp.
	if _, err := engine.Login(ctx, "root@example.com", "s3cret-pass"); err != nil {
		t.Fatalf("admin login failed: %v", err)
	}
}

func TestRepeatedLoginKeepsSingleSession(t *testing.T) {
	_, rdb := newTestRedis(t)
	dir := newMemoryDirectory()
	engine := newTestEngine(t, rdb, dir, nil)
	ctx := context.Background()

	seedUser(t, engine, dir, "alice@example.com", "alice", "s3cret-pass", "client", true)

	first, err := engine.Login(ctx, "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("first Login failed: %v", err)
	}
	second, err := engine.Login(ctx, "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("second Login failed: %v", err)
	}

	// The old token is signed and unexpired but no longer stored.
	if _, err := engine.Validate(ctx, first.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("old token Validate error = %v, want ErrUnauthenticated", err)
	}
	if _, err := engine.Validate(ctx, second.Token); err != nil {
		t.Fatalf("new token Validate failed: %v", err)
	}
}

func TestValidateRejectsRevokedAndGarbageTokens(t *testing.T) {
	_, rdb := newTestRedis(t)
	dir := newMemoryDirectory()
	engine := newTestEngine(t, rdb, dir, nil)
	ctx := context.Background()

	seedUser(t, engine, dir, "alice@example.com", "alice", "s3cret-pass", "client", true)

	sess, err := engine.Login(ctx, "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := engine.Logout(ctx, sess.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	for name, token := range map[string]string{
		"revoked":   sess.Token,
		"garbage":   "not-a-jwt",
		"empty":     "",
		"signature": sess.Token + "x",
	} {
		if _, err := engine.Validate(ctx, token); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("%s token Validate error = %v, want ErrUnauthenticated", name, err)
		}
	}

	// Revoking twice is a no-op, not an error.
	if err := engine.Logout(ctx, sess.Token); err != nil {
		t.Fatalf("second Logout failed: %v", err)
	}
}

func TestValidateRejectsDeletedSubject(t *testing.T) {
	_, rdb := newTestRedis(t)
	dir := newMemoryDirectory()
	engine := newTestEngine(t, rdb, dir, nil)
	ctx := context.Background()

	user := seedUser(t, engine, dir, "alice@example.com", "alice", "s3cret-pass", "client", true)

	sess, err := engine.Login(ctx, "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	dir.mu.Lock()
	delete(dir.users, user.ID)
	dir.mu.Unlock()

	if _, err := engine.Validate(ctx, sess.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("Validate error = %v, want ErrUnauthenticated", err)
	}
}

func TestCurrentUserAggregatesGrants(t *testing.T) {
	_, rdb := newTestRedis(t)
	dir := newMemoryDirectory()
	engine := newTestEngine(t, rdb, dir, nil)
	ctx := context.Background()

	seedUser(t, engine, dir, "alice@example.com", "alice", "s3cret-pass", "client", true)

	sess, err := engine.Login(ctx, "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	identity, err := engine.CurrentUser(ctx, sess.Token)
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if len(identity.Grants.Roles) != 1 || identity.Grants.Roles[0] != "client" {
		t.Fatalf("roles = %v, want [client]", identity.Grants.Roles)
	}
	if len(identity.Grants.Permissions) == 0 {
		t.Fatal("expected permissions for the client role")
	}
}
