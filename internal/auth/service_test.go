package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/templeconnect/backend/internal/users"
	"github.com/templeconnect/backend/internal/vendors"
	pkgauth "github.com/templeconnect/backend/pkg/auth"
	"github.com/templeconnect/backend/pkg/auth/session"
	"github.com/templeconnect/backend/pkg/config"
	"github.com/templeconnect/backend/pkg/db/models"
	"github.com/templeconnect/backend/pkg/enums"
	pkgerrors "github.com/templeconnect/backend/pkg/errors"
)

// fakeSessions mimics the Redis-backed manager with an in-memory map.
type fakeSessions struct {
	tokens map[string]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: map[string]string{}}
}

func (f *fakeSessions) Generate(_ context.Context, accessID string) (string, error) {
	token := uuid.NewString()
	f.tokens[accessID] = token
	return token, nil
}

func (f *fakeSessions) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := f.tokens[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(f.tokens, oldAccessID)
	newAccessID := session.NewAccessID()
	token := uuid.NewString()
	f.tokens[newAccessID] = token
	return newAccessID, token, nil
}

func (f *fakeSessions) Revoke(_ context.Context, accessID string) error {
	delete(f.tokens, accessID)
	return nil
}

func newAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	stmts := []string{
		`CREATE TABLE users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'customer',
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE vendor_profiles (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE,
			shop_name TEXT NOT NULL,
			description TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			review_note TEXT,
			reviewed_by TEXT,
			reviewed_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
	}
	for _, stmt := range stmts {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return conn
}

func testPasswordConfig() config.PasswordConfig {
	// Small argon parameters keep the suite fast.
	return config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret",
		Issuer:                 "templeconnect-test",
		ExpirationMinutes:      15,
		RefreshTokenTTLMinutes: 60,
	}
}

type authFixture struct {
	svc      Service
	conn     *gorm.DB
	sessions *fakeSessions
	jwtCfg   config.JWTConfig
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	conn := newAuthTestDB(t)
	sessions := newFakeSessions()
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(conn),
		VendorRepo:     vendors.NewRepository(conn),
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
		PasswordConfig: testPasswordConfig(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &authFixture{svc: svc, conn: conn, sessions: sessions, jwtCfg: testJWTConfig()}
}

func (fx *authFixture) register(t *testing.T, email string) *users.UserDTO {
	t.Helper()
	user, err := fx.svc.Register(context.Background(), RegisterRequest{
		Name:     "Asha Iyer",
		Email:    email,
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return user
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	fx := newAuthFixture(t)
	user := fx.register(t, "asha@example.com")
	if user.Role != enums.MemberRoleCustomer {
		t.Fatalf("expected customer role, got %s", user.Role)
	}

	resp, err := fx.svc.Login(context.Background(), LoginRequest{
		Email:    "Asha@Example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgauth.ParseAccessToken(fx.jwtCfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != enums.MemberRoleCustomer {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if fx.sessions.tokens[claims.ID] != resp.RefreshToken {
		t.Fatal("refresh token not stored against the jti")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	fx := newAuthFixture(t)
	fx.register(t, "asha@example.com")

	_, err := fx.svc.Register(context.Background(), RegisterRequest{
		Name:     "Another Asha",
		Email:    "ASHA@example.com",
		Password: "different-pass",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	fx := newAuthFixture(t)
	_, err := fx.svc.Register(context.Background(), RegisterRequest{
		Name:     "Asha",
		Email:    "asha@example.com",
		Password: "short",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	fx := newAuthFixture(t)
	fx.register(t, "asha@example.com")

	cases := []LoginRequest{
		{Email: "asha@example.com", Password: "wrong-password"},
		{Email: "nobody@example.com", Password: "correct-horse"},
	}
	for _, req := range cases {
		_, err := fx.svc.Login(context.Background(), req)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized for %s, got %v", req.Email, err)
		}
		// The message never hints whether the account exists.
		if typed.Message() != invalidCredentialsMessage {
			t.Fatalf("unexpected message %q", typed.Message())
		}
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	t.Parallel()

	fx := newAuthFixture(t)
	fx.register(t, "asha@example.com")
	resp, err := fx.svc.Login(context.Background(), LoginRequest{Email: "asha@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	pair, err := fx.svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := pkgauth.ParseAccessToken(fx.jwtCfg, pair.AccessToken); err != nil {
		t.Fatalf("parse rotated token: %v", err)
	}

	// The old pair no longer rotates.
	_, err = fx.svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for replayed refresh, got %v", err)
	}
}

func TestRefreshPicksUpRoleChange(t *testing.T) {
	t.Parallel()

	fx := newAuthFixture(t)
	user := fx.register(t, "vendor@example.com")
	resp, err := fx.svc.Login(context.Background(), LoginRequest{Email: "vendor@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// Approve the user as a vendor between login and refresh.
	profile := models.VendorProfile{
		ID:       uuid.New(),
		UserID:   user.ID,
		ShopName: "Pooja Essentials",
		Status:   enums.VendorStatusApproved,
	}
	if err := fx.conn.Create(&profile).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	if err := fx.conn.Model(&models.User{}).Where("id = ?", user.ID).Update("role", enums.MemberRoleVendor).Error; err != nil {
		t.Fatalf("promote user: %v", err)
	}

	pair, err := fx.svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := pkgauth.ParseAccessToken(fx.jwtCfg, pair.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Role != enums.MemberRoleVendor {
		t.Fatalf("expected vendor role, got %s", claims.Role)
	}
	if claims.VendorID == nil || *claims.VendorID != profile.ID {
		t.Fatalf("expected vendor id claim, got %v", claims.VendorID)
	}
}

func TestLogout(t *testing.T) {
	t.Parallel()

	fx := newAuthFixture(t)
	fx.register(t, "asha@example.com")
	resp, err := fx.svc.Login(context.Background(), LoginRequest{Email: "asha@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := pkgauth.ParseAccessToken(fx.jwtCfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}

	if err := fx.svc.Logout(context.Background(), claims.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(fx.sessions.tokens) != 0 {
		t.Fatalf("expected session revoked, got %d", len(fx.sessions.tokens))
	}

	if err := fx.svc.Logout(context.Background(), ""); err == nil {
		t.Fatal("expected error for missing session")
	}
}
