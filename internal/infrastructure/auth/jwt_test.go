package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iho/beanledger/internal/infrastructure/auth"
)

func TestJWTManagerGenerateAndVerify(t *testing.T) {
	t.Parallel()

	manager := auth.NewJWTManager("super-secret", "beanledger", time.Minute)

	token, err := manager.Generate("alice", auth.RoleCategorizer)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	claims, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("expected token to verify, got %v", err)
	}

	if claims.Subject != "alice" || claims.Role != auth.RoleCategorizer || claims.Issuer != "beanledger" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestJWTManagerGenerateRejectsUnknownRole(t *testing.T) {
	t.Parallel()

	manager := auth.NewJWTManager("secret", "", time.Minute)
	if _, err := manager.Generate("bob", auth.Role("owner")); !errors.Is(err, auth.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestJWTManagerVerifyErrors(t *testing.T) {
	t.Parallel()

	manager := auth.NewJWTManager("secret", "", time.Minute)

	sign := func(t *testing.T, claims auth.Claims, secret string) string {
		t.Helper()
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}
		return token
	}

	expired := sign(t, auth.Claims{
		Role: auth.RoleViewer,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "expired",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Minute)),
		},
	}, "secret")

	unknownRole := sign(t, auth.Claims{
		Role: auth.Role("owner"),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "mallory",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}, "secret")

	noSubject := sign(t, auth.Claims{
		Role: auth.RoleViewer,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}, "secret")

	testCases := []struct {
		name     string
		manager  *auth.JWTManager
		token    string
		expected error
	}{
		{"expired", manager, expired, auth.ErrExpiredToken},
		{"wrong secret", auth.NewJWTManager("other-secret", "", time.Minute), expired, auth.ErrInvalidToken},
		{"unknown role", manager, unknownRole, auth.ErrInvalidToken},
		{"missing subject", manager, noSubject, auth.ErrInvalidToken},
		{"wrong issuer", auth.NewJWTManager("secret", "someone-else", time.Minute), noSubject, auth.ErrInvalidToken},
		{"malformed", manager, "not-a-token", auth.ErrInvalidToken},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.manager.Verify(tc.token); !errors.Is(err, tc.expected) {
				t.Fatalf("expected %v, got %v", tc.expected, err)
			}
		})
	}
}

func TestRolePermissions(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		role    auth.Role
		allowed []auth.Permission
		denied  []auth.Permission
	}{
		{auth.RoleAdmin, []auth.Permission{auth.PermRead, auth.PermManageAccount, auth.PermPost, auth.PermRecategorize, auth.PermAssert}, nil},
		{auth.RoleIngestor, []auth.Permission{auth.PermRead, auth.PermPost, auth.PermAssert}, []auth.Permission{auth.PermManageAccount, auth.PermRecategorize}},
		{auth.RoleCategorizer, []auth.Permission{auth.PermRead, auth.PermRecategorize}, []auth.Permission{auth.PermPost, auth.PermManageAccount}},
		{auth.RoleViewer, []auth.Permission{auth.PermRead}, []auth.Permission{auth.PermPost, auth.PermRecategorize, auth.PermAssert}},
	}

	for _, tc := range testCases {
		for _, p := range tc.allowed {
			if !tc.role.Can(p) {
				t.Errorf("%s should be allowed %s", tc.role, p)
			}
		}
		for _, p := range tc.denied {
			if tc.role.Can(p) {
				t.Errorf("%s should not be allowed %s", tc.role, p)
			}
		}
	}

	if _, err := auth.ParseRole("viewer"); err != nil {
		t.Fatalf("expected viewer to parse: %v", err)
	}
	if _, err := auth.ParseRole("root"); !errors.Is(err, auth.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}
