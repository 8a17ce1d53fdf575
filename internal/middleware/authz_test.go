package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/campusapi/internal/auth"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func requestAs(method, path string, role auth.Role) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if role != "" {
		ctx := auth.SetUserContext(req.Context(), auth.AuthenticatedPrincipal{ID: "u-1", Email: "x@y.edu", Role: role})
		req = req.WithContext(ctx)
	}
	return req
}

func TestRequireRoles(t *testing.T) {
	handler := RequireRoles(auth.RoleAdmin)(okHandler)

	tests := []struct {
		name        string
		role        auth.Role
		wantStatus  int
		wantMessage string
	}{
		{name: "no principal", wantStatus: http.StatusUnauthorized, wantMessage: "Authentication required"},
		{name: "student", role: auth.RoleStudent, wantStatus: http.StatusForbidden, wantMessage: "Forbidden"},
		{name: "staff is not admin", role: auth.RoleStaff, wantStatus: http.StatusForbidden, wantMessage: "Forbidden"},
		{name: "admin", role: auth.RoleAdmin, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, requestAs(http.MethodPost, "/auth/revoke", tt.role))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, decodeEnvelope(t, rec).Message)
			}
		})
	}
}

func TestRequireRoles_AnyOf(t *testing.T) {
	handler := RequireRoles(auth.RoleAdmin, auth.RoleStaff)(okHandler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(http.MethodGet, "/", auth.RoleStaff))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(http.MethodGet, "/", auth.RoleStudent))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPolicyGuard_DefaultTable(t *testing.T) {
	enforcer, err := auth.InitEnforcer("")
	require.NoError(t, err)
	guard, err := NewPolicyGuard(enforcer)
	require.NoError(t, err)
	handler := guard(okHandler)

	tests := []struct {
		name       string
		method     string
		path       string
		role       auth.Role
		wantStatus int
	}{
		{name: "anonymous read", method: http.MethodGet, path: "/api/course", wantStatus: http.StatusOK},
		{name: "anonymous read by id", method: http.MethodGet, path: "/api/course/12", wantStatus: http.StatusOK},
		{name: "anonymous user lookup by email", method: http.MethodGet, path: "/api/user/email/a@x.edu", wantStatus: http.StatusUnauthorized},
		{name: "student user lookup by email", method: http.MethodGet, path: "/api/user/email/a@x.edu", role: auth.RoleStudent, wantStatus: http.StatusOK},
		{name: "anonymous create", method: http.MethodPost, path: "/api/department", wantStatus: http.StatusUnauthorized},
		{name: "student creates department", method: http.MethodPost, path: "/api/department", role: auth.RoleStudent, wantStatus: http.StatusOK},
		{name: "student deletes department", method: http.MethodDelete, path: "/api/department/3", role: auth.RoleStudent, wantStatus: http.StatusOK},
		{name: "student creates course", method: http.MethodPost, path: "/api/course", role: auth.RoleStudent, wantStatus: http.StatusForbidden},
		{name: "staff updates course", method: http.MethodPut, path: "/api/course/1", role: auth.RoleStaff, wantStatus: http.StatusForbidden},
		{name: "admin updates course", method: http.MethodPut, path: "/api/course/1", role: auth.RoleAdmin, wantStatus: http.StatusOK},
		{name: "staff patches enrollment", method: http.MethodPatch, path: "/api/enrollment/9", role: auth.RoleStaff, wantStatus: http.StatusForbidden},
		{name: "admin patches enrollment", method: http.MethodPatch, path: "/api/enrollment/9", role: auth.RoleAdmin, wantStatus: http.StatusOK},
		{name: "staff updates enrollment", method: http.MethodPut, path: "/api/enrollment/9", role: auth.RoleStaff, wantStatus: http.StatusOK},
		{name: "student deletes user", method: http.MethodDelete, path: "/api/user/4", role: auth.RoleStudent, wantStatus: http.StatusForbidden},
		{name: "admin deletes user", method: http.MethodDelete, path: "/api/user/4", role: auth.RoleAdmin, wantStatus: http.StatusOK},
		{name: "admin reads", method: http.MethodGet, path: "/api/class", role: auth.RoleAdmin, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, requestAs(tt.method, tt.path, tt.role))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestPolicyGuard_RequiresEnforcer(t *testing.T) {
	_, err := NewPolicyGuard(nil)
	assert.Error(t, err)
}
