package authcore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/catatanlab/authcore/access"
)

// memoryDirectory is the in-memory Directory used across engine tests. It
// mirrors the seed data shape: roles hold permission names, users hold one
// role membership.
type memoryDirectory struct {
	mu       sync.Mutex
	users    map[string]UserRecord
	profiles map[string]Profile
	roles    map[string][]string
	grantErr error

	createUserCalls int
	assignRoleCalls int
}

func newMemoryDirectory() *memoryDirectory {
	return &memoryDirectory{
		users:    make(map[string]UserRecord),
		profiles: make(map[string]Profile),
		roles: map[string][]string{
			"admin":  {"manage_profile", "manage_community", "manage_post"},
			"client": {"manage_profile", "create_post", "create_comment", "create_community"},
		},
	}
}

func (d *memoryDirectory) FindUserByEmail(_ context.Context, email string) (UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Email == email {
			return u, nil
		}
	}
	return UserRecord{}, ErrUserNotFound
}

func (d *memoryDirectory) FindUserByUsername(_ context.Context, username string) (UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Username == username {
			return u, nil
		}
	}
	return UserRecord{}, ErrUserNotFound
}

func (d *memoryDirectory) FindUserByID(_ context.Context, id string) (UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return u, nil
}

func (d *memoryDirectory) CreateUser(_ context.Context, input CreateUserInput) (UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.createUserCalls++

	user := UserRecord{
		ID:           fmt.Sprintf("u%d", len(d.users)+1),
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: input.PasswordHash,
	}
	d.users[user.ID] = user
	return user, nil
}

func (d *memoryDirectory) CreateProfile(_ context.Context, input CreateProfileInput) (Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	profile := Profile{
		UserID:   input.UserID,
		Name:     input.Name,
		Username: input.Username,
		Photo:    input.Photo,
	}
	d.profiles[input.UserID] = profile
	return profile, nil
}

func (d *memoryDirectory) AssignRole(_ context.Context, userID, roleName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.assignRoleCalls++

	if _, ok := d.roles[roleName]; !ok {
		return ErrRoleNotFound
	}
	u, ok := d.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.Role = roleName
	d.users[userID] = u
	return nil
}

func (d *memoryDirectory) SetVerifiedAt(_ context.Context, userID string, when time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.VerifiedAt = when
	d.users[userID] = u
	return nil
}

func (d *memoryDirectory) SetUsername(_ context.Context, userID, username string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.Username = username
	d.users[userID] = u
	return nil
}

func (d *memoryDirectory) UpdatePasswordHash(_ context.Context, userID, hash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	d.users[userID] = u
	return nil
}

func (d *memoryDirectory) GrantsForUser(_ context.Context, userID string) (access.Grants, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.grantErr != nil {
		return access.Grants{}, d.grantErr
	}
	u, ok := d.users[userID]
	if !ok {
		return access.Grants{}, ErrUserNotFound
	}
	if u.Role == "" {
		return access.Grants{}, nil
	}
	return access.Grants{
		Roles:       []string{u.Role},
		Permissions: append([]string(nil), d.roles[u.Role]...),
	}, nil
}

// recordingMailer captures dispatched codes instead of sending them.
type recordingMailer struct {
	mu    sync.Mutex
	sent  []sentMail
	fail  error
	calls int
}

type sentMail struct {
	email string
	code  string
}

func (m *recordingMailer) SendVerificationCode(_ context.Context, user UserRecord, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, sentMail{email: user.Email, code: code})
	return nil
}

func (m *recordingMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no verification code was sent")
	}
	return m.sent[len(m.sent)-1].code
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	// Smallest parameters the hasher accepts, to keep tests fast.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newTestEngine(t *testing.T, rdb *redis.Client, dir Directory, mailer Mailer) *Engine {
	t.Helper()

	if dir == nil {
		dir = newMemoryDirectory()
	}
	if mailer == nil {
		mailer = &recordingMailer{}
	}

	engine, err := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithDirectory(dir).
		WithMailer(mailer).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine
}

// seedUser inserts an account directly, bypassing Register.
func seedUser(t *testing.T, engine *Engine, dir *memoryDirectory, email, username, pass, role string, verified bool) UserRecord {
	t.Helper()

	hash := ""
	if pass != "" {
		var err error
		hash, err = engine.passwordHash.Hash(pass)
		if err != nil {
			t.Fatalf("Hash failed: %v", err)
		}
	}

	user, err := dir.CreateUser(context.Background(), CreateUserInput{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if role != "" {
		if err := dir.AssignRole(context.Background(), user.ID, role); err != nil {
			t.Fatalf("AssignRole failed: %v", err)
		}
	}
	if verified {
		if err := dir.SetVerifiedAt(context.Background(), user.ID, time.Now()); err != nil {
			t.Fatalf("SetVerifiedAt failed: %v", err)
		}
	}

	user, err = dir.FindUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("FindUserByID failed: %v", err)
	}
	return user
}
