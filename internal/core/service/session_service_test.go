package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/boilerplate/user-service/internal/core/domain"
	"github.com/boilerplate/user-service/internal/core/ports"
	"github.com/boilerplate/user-service/internal/infrastructure/security"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu     sync.Mutex
	byID   map[string]*domain.User
	nextID int
	err    error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.byID {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.nextID++
	copy := cloneUser(user)
	copy.ID = "user-" + strconv.Itoa(r.nextID)
	r.byID[copy.ID] = copy
	return cloneUser(copy), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.byID {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *stubUserRepo) SetActive(_ context.Context, id string, isActive bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.IsActive = isActive
	return cloneUser(u), nil
}

func (r *stubUserRepo) SetDeleted(_ context.Context, id string, isDeleted bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.IsDeleted = isDeleted
	return cloneUser(u), nil
}

type stubRegistry struct {
	mu       sync.Mutex
	consumed map[string]bool
	revoked  map[string]bool
	err      error
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{consumed: make(map[string]bool), revoked: make(map[string]bool)}
}

func (r *stubRegistry) Consume(_ context.Context, id string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.consumed[id] {
		return domain.ErrTokenConsumed
	}
	r.consumed[id] = true
	return nil
}

func (r *stubRegistry) Revoke(_ context.Context, id string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.revoked[id] = true
	return nil
}

func (r *stubRegistry) IsRevoked(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revoked[id], r.err
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const defaultPassword = "Welcome#2026"

func newTestHasher(t *testing.T) *security.BcryptHasher {
	t.Helper()
	h, err := security.NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	return h
}

func newTestIssuer(t *testing.T, opts ...security.IssuerOption) *security.JWTIssuer {
	t.Helper()
	i, err := security.NewJWTIssuer(security.IssuerConfig{
		Issuer:  "user-service",
		Access:  security.KeyConfig{Secret: "access", TTL: 15 * time.Minute},
		Refresh: security.KeyConfig{Secret: "refresh", TTL: 24 * time.Hour},
		Reset:   security.KeyConfig{Secret: "reset", TTL: 5 * time.Minute},
	}, opts...)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	return i
}

type sessionFixture struct {
	repo     *stubUserRepo
	registry *stubRegistry
	issuer   *security.JWTIssuer
	svc      *SessionService
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	repo := newStubUserRepo()
	registry := newStubRegistry()
	issuer := newTestIssuer(t)
	svc := NewSessionService(repo, newTestHasher(t), issuer, registry, defaultPassword, zerolog.Nop())
	return &sessionFixture{repo: repo, registry: registry, issuer: issuer, svc: svc}
}

func (f *sessionFixture) register(t *testing.T, email string, role domain.Role) *domain.User {
	t.Helper()
	u, err := f.svc.Registration(context.Background(), ports.RegistrationInput{
		FirstName: "Alice",
		LastName:  "Liddell",
		Email:     email,
		Role:      string(role),
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return u
}

// ---------------------------------------------------------------------------
// Registration
// ---------------------------------------------------------------------------

func TestSessionService_Registration_Success(t *testing.T) {
	f := newSessionFixture(t)

	user := f.register(t, "  Alice@X.com ", domain.RoleClient)
	if user.Email != "alice@x.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.PasswordHash != "" {
		t.Fatalf("registration result must not expose the hash")
	}
	if !user.IsActive || user.IsDeleted {
		t.Fatalf("unexpected lifecycle flags: %+v", user)
	}

	stored, _ := f.repo.FindByID(context.Background(), user.ID)
	if stored.PasswordHash == defaultPassword {
		t.Fatalf("expected default password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(defaultPassword)); err != nil {
		t.Fatalf("stored hash does not match default password: %v", err)
	}
}

func TestSessionService_Registration_Validation(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	_, err := f.svc.Registration(ctx, ports.RegistrationInput{FirstName: "A", LastName: "B", Email: "a@x.com", Role: "client"})
	if !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed for bad role, got %v", err)
	}

	_, err = f.svc.Registration(ctx, ports.RegistrationInput{FirstName: "", LastName: "B", Email: "a@x.com", Role: "CLIENT"})
	if !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed for missing name, got %v", err)
	}
}

func TestSessionService_Registration_Duplicate(t *testing.T) {
	f := newSessionFixture(t)

	f.register(t, "bob@x.com", domain.RoleEngineer)
	_, err := f.svc.Registration(context.Background(), ports.RegistrationInput{
		FirstName: "Bob", LastName: "B", Email: "BOB@x.com", Role: "ENGINEER",
	})
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestSessionService_Login_Success(t *testing.T) {
	f := newSessionFixture(t)
	user := f.register(t, "carol@x.com", domain.RoleAdmin)

	pair, err := f.svc.Login(context.Background(), "Carol@x.com", defaultPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", pair)
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatalf("tokens must be distinct")
	}

	access, err := f.issuer.Verify(pair.AccessToken, domain.TokenAccess)
	if err != nil {
		t.Fatalf("access token invalid: %v", err)
	}
	refresh, err := f.issuer.Verify(pair.RefreshToken, domain.TokenRefresh)
	if err != nil {
		t.Fatalf("refresh token invalid: %v", err)
	}
	if access.Subject != user.ID || refresh.Subject != user.ID {
		t.Fatalf("unexpected subjects: %s / %s", access.Subject, refresh.Subject)
	}
	if access.Role != domain.RoleAdmin || access.Email != "carol@x.com" || access.FirstName != "Alice" {
		t.Fatalf("unexpected access claims: %+v", access)
	}
}

func TestSessionService_Login_InvalidPassword(t *testing.T) {
	f := newSessionFixture(t)
	f.register(t, "dave@x.com", domain.RoleClient)

	pair, err := f.svc.Login(context.Background(), "dave@x.com", "badpass")
	if err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if pair != nil {
		t.Fatalf("expected no partial result")
	}
}

func TestSessionService_Login_UnknownEmailLooksLikeBadPassword(t *testing.T) {
	f := newSessionFixture(t)

	if _, err := f.svc.Login(context.Background(), "ghost@x.com", "pass"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := f.svc.Login(context.Background(), "", ""); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for empty input, got %v", err)
	}
}

type recordingHasher struct {
	ports.PasswordHasher
	mu        sync.Mutex
	hashCalls int
	verified  []string
}

func (h *recordingHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	h.mu.Lock()
	h.hashCalls++
	h.mu.Unlock()
	return h.PasswordHasher.Hash(ctx, plaintext)
}

func (h *recordingHasher) Verify(ctx context.Context, plaintext, hash string) bool {
	h.mu.Lock()
	h.verified = append(h.verified, hash)
	h.mu.Unlock()
	return h.PasswordHasher.Verify(ctx, plaintext, hash)
}

func TestSessionService_DummyHashPreparedAtConstruction(t *testing.T) {
	hasher := &recordingHasher{PasswordHasher: newTestHasher(t)}
	svc := NewSessionService(newStubUserRepo(), hasher, newTestIssuer(t), newStubRegistry(), defaultPassword, zerolog.Nop())

	if hasher.hashCalls != 1 || svc.dummyHash == "" {
		t.Fatalf("expected the dummy hash before any login, got %d hash calls", hasher.hashCalls)
	}

	for range 2 {
		if _, err := svc.Login(context.Background(), "ghost@x.com", "pass"); err != domain.ErrInvalidCredentials {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	}
	if hasher.hashCalls != 1 {
		t.Fatalf("login must not hash, got %d hash calls", hasher.hashCalls)
	}
	if len(hasher.verified) != 2 || hasher.verified[0] != svc.dummyHash || hasher.verified[1] != svc.dummyHash {
		t.Fatalf("unknown emails must be compared against the dummy hash: %v", hasher.verified)
	}
}

func TestSessionService_Login_DisabledAccounts(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	inactive := f.register(t, "inactive@x.com", domain.RoleClient)
	deleted := f.register(t, "deleted@x.com", domain.RoleClient)
	_, _ = f.svc.ActiveStatusUpdate(ctx, inactive.ID, false)
	_, _ = f.svc.SoftDeleted(ctx, deleted.ID, true)

	for _, email := range []string{"inactive@x.com", "deleted@x.com"} {
		if _, err := f.svc.Login(ctx, email, defaultPassword); err != domain.ErrAccountDisabled {
			t.Fatalf("%s: expected ErrAccountDisabled, got %v", email, err)
		}
		// A wrong password on a disabled account still reads as bad credentials.
		if _, err := f.svc.Login(ctx, email, "nope"); err != domain.ErrInvalidCredentials {
			t.Fatalf("%s: expected ErrInvalidCredentials, got %v", email, err)
		}
	}
}

func TestSessionService_Login_RepositoryFailure(t *testing.T) {
	f := newSessionFixture(t)
	boom := errors.New("mongo down")
	f.repo.err = boom

	if _, err := f.svc.Login(context.Background(), "a@x.com", "pw"); !errors.Is(err, boom) {
		t.Fatalf("expected repository error, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Refresh / Logout
// ---------------------------------------------------------------------------

func TestSessionService_Refresh(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	user := f.register(t, "erin@x.com", domain.RoleProjectManager)

	pair, err := f.svc.Login(ctx, "erin@x.com", defaultPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	access, err := f.svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := f.issuer.Verify(access, domain.TokenAccess)
	if err != nil || claims.Subject != user.ID {
		t.Fatalf("unexpected minted token: %+v %v", claims, err)
	}

	if _, err := f.svc.Refresh(ctx, pair.AccessToken); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("access token must not refresh, got %v", err)
	}
	if _, err := f.svc.Refresh(ctx, ""); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for empty token, got %v", err)
	}

	_, _ = f.svc.ActiveStatusUpdate(ctx, user.ID, false)
	if _, err := f.svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("deactivated user must not refresh, got %v", err)
	}
}

func TestSessionService_LogoutRevokesRefreshToken(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	f.register(t, "fay@x.com", domain.RoleClient)

	pair, err := f.svc.Login(ctx, "fay@x.com", defaultPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := f.svc.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := f.svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, domain.ErrTokenRevoked) {
		t.Fatalf("expected revoked refresh token, got %v", err)
	}

	if err := f.svc.Logout(ctx, ""); err != nil {
		t.Fatalf("logout without cookie should succeed: %v", err)
	}
	if err := f.svc.Logout(ctx, "garbage"); err != nil {
		t.Fatalf("logout with garbage cookie should succeed: %v", err)
	}
}

func TestSessionService_LogoutRegistryFailure(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	f.register(t, "gus@x.com", domain.RoleClient)
	pair, _ := f.svc.Login(ctx, "gus@x.com", defaultPassword)

	boom := errors.New("redis down")
	f.registry.err = boom
	if err := f.svc.Logout(ctx, pair.RefreshToken); !errors.Is(err, boom) {
		t.Fatalf("expected registry error, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Profile / admin flags
// ---------------------------------------------------------------------------

func TestSessionService_Profile(t *testing.T) {
	f := newSessionFixture(t)
	f.register(t, "hana@x.com", domain.RoleEngineer)

	profile, err := f.svc.Profile(context.Background(), "hana@x.com")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.PasswordHash != "" {
		t.Fatalf("profile must not expose the hash")
	}
	if profile.Role != domain.RoleEngineer {
		t.Fatalf("unexpected role: %s", profile.Role)
	}

	if _, err := f.svc.Profile(context.Background(), "nobody@x.com"); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSessionService_FlagUpdatesAreIdempotent(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	user := f.register(t, "ivan@x.com", domain.RoleClient)

	for i := 0; i < 2; i++ {
		u, err := f.svc.ActiveStatusUpdate(ctx, user.ID, false)
		if err != nil || u.IsActive {
			t.Fatalf("deactivate #%d: %+v %v", i, u, err)
		}
		u, err = f.svc.SoftDeleted(ctx, user.ID, true)
		if err != nil || !u.IsDeleted {
			t.Fatalf("soft delete #%d: %+v %v", i, u, err)
		}
		if u.PasswordHash != "" {
			t.Fatalf("flag update must not expose the hash")
		}
	}

	if _, err := f.svc.ActiveStatusUpdate(ctx, "missing", true); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := f.svc.SoftDeleted(ctx, "missing", true); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
