package auth

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"
)

// memStore is an in-memory Store for orchestrator tests.
type memStore struct {
	users *memUsers
}

func newMemStore() *memStore {
	return &memStore{users: &memUsers{byID: make(map[string]*User)}}
}

func (m *memStore) Users(ctx context.Context) UserStore { return m.users }

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memUsers struct {
	byID map[string]*User
	seq  int
}

func (m *memUsers) Create(ctx context.Context, u *User) error {
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return ErrEmailAlreadyRegistered
		}
		if existing.Username == u.Username {
			return ErrConflict
		}
	}
	if u.ID == "" {
		m.seq++
		u.ID = "user-" + strconv.Itoa(m.seq)
	}
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) FindByUsername(ctx context.Context, username string) (*User, error) {
	for _, u := range m.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUsers) FindByLogin(ctx context.Context, login string) (*User, error) {
	for _, u := range m.byID {
		if u.Username == login || u.Email == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := m.FindByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *memUsers) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	u, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func testService(t *testing.T) (*Service, *memStore, *time.Time) {
	t.Helper()
	cur := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)
	clock := func() time.Time { return cur }
	codec, err := NewCodec([]byte("svc-secret"), "test-issuer", time.Hour, WithCodecClock(clock))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	store := newMemStore()
	svc, err := NewService(store, codec, WithClock(clock))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store, &cur
}

func seedUser(t *testing.T, store *memStore, username, email, password string, mutate func(*User)) *User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := &User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Roles:        []string{RoleUser},
		Enabled:      true,
	}
	if mutate != nil {
		mutate(u)
	}
	if err := store.users.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestLoginSuccess(t *testing.T) {
	svc, store, _ := testService(t)
	seedUser(t, store, "alice", "alice@example.com", "correct-horse", nil)

	for _, login := range []string{"alice", "alice@example.com"} {
		out, err := svc.Login(context.Background(), Credentials{UsernameOrEmail: login, Password: "correct-horse"})
		if err != nil {
			t.Fatalf("Login(%q): %v", login, err)
		}
		if out.Username != "alice" || out.Email != "alice@example.com" {
			t.Fatalf("unexpected outcome identity: %+v", out)
		}
		if out.ExpiresIn != 3600 {
			t.Fatalf("ExpiresIn = %d, want 3600", out.ExpiresIn)
		}
		if subject, err := svc.Codec().ParseSubject(out.AccessToken); err != nil || subject != "alice" {
			t.Fatalf("access token subject = %q, %v", subject, err)
		}
	}

	u, _ := store.users.FindByUsername(context.Background(), "alice")
	if u.LastLoginAt == nil {
		t.Fatal("last login timestamp not recorded")
	}
}

func TestLoginEnumerationResistance(t *testing.T) {
	svc, store, _ := testService(t)
	seedUser(t, store, "bob", "bob@example.com", "correct-horse", nil)

	_, wrongPassword := svc.Login(context.Background(), Credentials{UsernameOrEmail: "bob", Password: "wrong"})
	_, unknownUser := svc.Login(context.Background(), Credentials{UsernameOrEmail: "nobody", Password: "wrong"})

	if !errors.Is(wrongPassword, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", wrongPassword)
	}
	if !errors.Is(unknownUser, ErrInvalidCredentials) {
		t.Fatalf("unknown user: got %v", unknownUser)
	}
}

func TestLoginAccountGateOrder(t *testing.T) {
	svc, store, _ := testService(t)
	seedUser(t, store, "carol", "carol@example.com", "correct-horse", func(u *User) {
		u.Enabled = false
		u.Locked = true
		u.AccountExpired = true
	})
	seedUser(t, store, "dave", "dave@example.com", "correct-horse", func(u *User) {
		u.Locked = true
		u.CredentialsExpired = true
	})
	seedUser(t, store, "erin", "erin@example.com", "correct-horse", func(u *User) {
		u.CredentialsExpired = true
	})

	if _, err := svc.Login(context.Background(), Credentials{UsernameOrEmail: "carol", Password: "correct-horse"}); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("disabled+locked account: got %v, want ErrAccountDisabled", err)
	}
	if _, err := svc.Login(context.Background(), Credentials{UsernameOrEmail: "dave", Password: "correct-horse"}); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("locked account: got %v, want ErrAccountLocked", err)
	}
	if _, err := svc.Login(context.Background(), Credentials{UsernameOrEmail: "erin", Password: "correct-horse"}); !errors.Is(err, ErrCredentialsExpired) {
		t.Fatalf("credentials expired: got %v, want ErrCredentialsExpired", err)
	}
}

func TestRegisterIssuesTokensAndDefaultRole(t *testing.T) {
	svc, store, _ := testService(t)

	out, err := svc.Register(context.Background(), RegisterInput{
		Email:    "Fran.Doe@Example.com",
		Password: "super-secret",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if len(out.Roles) != 1 || out.Roles[0] != RoleUser {
		t.Fatalf("expected default role, got %v", out.Roles)
	}
	if out.Email != "fran.doe@example.com" {
		t.Fatalf("email not normalized: %s", out.Email)
	}
	if subject, err := svc.Codec().ParseSubject(out.AccessToken); err != nil || subject != out.Username {
		t.Fatalf("token subject = %q, %v, want %q", subject, err, out.Username)
	}

	if _, err := store.users.FindByUsername(context.Background(), out.Username); err != nil {
		t.Fatalf("registered user not persisted: %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, store, _ := testService(t)

	first, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Password: "super-secret"})
	if err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, err = svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Password: "other-secret"})
	if !errors.Is(err, ErrEmailAlreadyRegistered) {
		t.Fatalf("second Register: got %v, want ErrEmailAlreadyRegistered", err)
	}

	// First account unaffected.
	u, err := store.users.FindByUsername(context.Background(), first.Username)
	if err != nil || u.Email != "a@b.com" {
		t.Fatalf("first account damaged: %+v, %v", u, err)
	}
}

func TestRegisterUsernameCollisionFallback(t *testing.T) {
	svc, store, cur := testService(t)

	firstDraw := "gina" + strconv.FormatInt(cur.UnixMilli()%10000, 10)
	seedUser(t, store, firstDraw, "other@example.com", "super-secret", nil)

	out, err := svc.Register(context.Background(), RegisterInput{Email: "gina@example.com", Password: "super-secret"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if out.Username == firstDraw {
		t.Fatalf("fallback draw reused the taken username %q", firstDraw)
	}
	want := "gina" + strconv.FormatInt(cur.UnixNano()%1000000, 10)
	if out.Username != want {
		t.Fatalf("fallback username = %q, want %q", out.Username, want)
	}
}

func TestRefreshFlow(t *testing.T) {
	svc, store, _ := testService(t)
	seedUser(t, store, "henry", "henry@example.com", "correct-horse", nil)

	out, err := svc.Login(context.Background(), Credentials{UsernameOrEmail: "henry", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), out.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.Username != "henry" {
		t.Fatalf("unexpected refresh identity: %+v", refreshed)
	}

	// An access token is not accepted in place of a refresh token.
	if _, err := svc.Refresh(context.Background(), out.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh with access token: got %v, want ErrInvalidToken", err)
	}

	if _, err := svc.Refresh(context.Background(), "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh with garbage: got %v, want ErrInvalidToken", err)
	}
}

func TestRefreshUnresolvableSubject(t *testing.T) {
	svc, _, _ := testService(t)

	refresh, err := svc.Codec().IssueRefresh("ghost")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), refresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, store, _ := testService(t)
	seedUser(t, store, "iris", "iris@example.com", "correct-horse", func(u *User) {
		u.Roles = []string{RoleUser, RoleOrganizer}
	})
	seedUser(t, store, "judy", "judy@example.com", "correct-horse", func(u *User) {
		u.Enabled = false
	})

	token, err := svc.Codec().IssueAccess("iris", []string{RoleUser, RoleOrganizer})
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	principal, err := svc.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if principal.Username != "iris" || !principal.HasRole(RoleOrganizer) {
		t.Fatalf("unexpected principal: %+v", principal)
	}

	disabledToken, _ := svc.Codec().IssueAccess("judy", nil)
	if _, err := svc.Authenticate(context.Background(), disabledToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("disabled account: got %v, want ErrInvalidToken", err)
	}

	if _, err := svc.Authenticate(context.Background(), "junk"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("junk token: got %v, want ErrTokenMalformed", err)
	}

	ghostToken, _ := svc.Codec().IssueAccess("ghost", nil)
	if _, err := svc.Authenticate(context.Background(), ghostToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("unknown subject: got %v, want ErrInvalidToken", err)
	}
}
