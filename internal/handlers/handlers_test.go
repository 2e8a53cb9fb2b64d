package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/studioflow/class-payroll-service/internal/config"
	"github.com/studioflow/class-payroll-service/internal/models"
	"github.com/studioflow/class-payroll-service/internal/services"
	"github.com/studioflow/class-payroll-service/internal/utils"
	"github.com/studioflow/class-payroll-service/internal/validator"
)

// ===== STUBS =====

// Stubs embed the interface so only the methods a test needs are implemented.

type stubFinance struct {
	services.FinanceService
	gotPeriod models.Period
	gotKey    models.SlotKey
	err       error
}

func (s *stubFinance) GetDashboardMetrics(_ context.Context, p models.Period) (*services.DashboardMetrics, error) {
	s.gotPeriod = p
	if s.err != nil {
		return nil, s.err
	}
	return &services.DashboardMetrics{MesAno: p.String()}, nil
}

func (s *stubFinance) GetSlotDetail(_ context.Context, p models.Period, key models.SlotKey) (*services.SlotDetail, error) {
	s.gotPeriod, s.gotKey = p, key
	if s.err != nil {
		return nil, s.err
	}
	return &services.SlotDetail{StartTime: key.StartTime, Modality: key.Modality}, nil
}

type stubPayroll struct {
	services.PayrollService
	gotActor services.Actor
	gotID    uint
}

func (s *stubPayroll) GetTeacherPayroll(_ context.Context, actor services.Actor, teacherID uint, p models.Period) (*services.TeacherPayroll, error) {
	s.gotActor, s.gotID = actor, teacherID
	if !actor.IsAdmin() && actor.TeacherID != teacherID {
		return nil, fmt.Errorf("payroll of %d: %w", teacherID, services.ErrForbidden)
	}
	return &services.TeacherPayroll{TeacherID: teacherID, MesAno: p.String()}, nil
}

func (s *stubPayroll) ExportPayroll(_ context.Context, p models.Period, w io.Writer) error {
	_, err := io.WriteString(w, "xlsx:"+p.Key())
	return err
}

type stubClass struct {
	services.ClassService
	checkIns int
}

func (s *stubClass) CheckIn(_ context.Context, _ services.Actor, classID uint, attendance int) (*models.ClassSession, error) {
	s.checkIns++
	return &models.ClassSession{ID: classID, Attendance: attendance}, nil
}

type stubAuth struct {
	services.AuthService
	users map[string]*services.SessionUser
}

func (s *stubAuth) Login(_ context.Context, email, password string) (*services.SessionUser, error) {
	if u, ok := s.users[email]; ok && password == "correct-horse" {
		return u, nil
	}
	return nil, services.ErrUnauthorized
}

func (s *stubAuth) Me(_ context.Context, id uint) (*services.SessionUser, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, services.NewNotFoundError("teacher", id)
}

type stubManager struct {
	finance   *stubFinance
	payroll   *stubPayroll
	class     *stubClass
	auth      *stubAuth
	healthErr error
}

func (m *stubManager) Finance() services.FinanceService     { return m.finance }
func (m *stubManager) Payroll() services.PayrollService     { return m.payroll }
func (m *stubManager) Class() services.ClassService         { return m.class }
func (m *stubManager) Reference() services.ReferenceService { return nil }
func (m *stubManager) Auth() services.AuthService           { return m.auth }
func (m *stubManager) Initialize(context.Context) error     { return nil }
func (m *stubManager) HealthCheck(context.Context) error    { return m.healthErr }
func (m *stubManager) Shutdown(context.Context) error       { return nil }

// ===== HELPERS =====

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newStubManager() *stubManager {
	return &stubManager{
		finance: &stubFinance{},
		payroll: &stubPayroll{},
		class:   &stubClass{},
		auth: &stubAuth{users: map[string]*services.SessionUser{
			"admin@studio.test": {ID: 1, Name: "Admin", Email: "admin@studio.test", Role: models.RoleAdmin},
			"ana@studio.test":   {ID: 7, Name: "Ana", Email: "ana@studio.test", Role: models.RoleProfessor},
		}},
	}
}

func newTestRouter(sm services.ServiceManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := testLogger()
	SetupMiddleware(router, logger, "http://localhost:5173")
	hm := NewHandlerManager(sm, validator.New(), logger, config.SessionConfig{
		Secret: "test-session-secret-0123456789abcdef",
		MaxAge: time.Hour,
	})
	hm.SetupRoutes(router)
	return router
}

func doRequest(router *gin.Engine, method, path string, body interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, router *gin.Engine, email string) []*http.Cookie {
	t.Helper()
	rec := doRequest(router, http.MethodPost, "/api/auth/login",
		map[string]string{"email": email, "password": "correct-horse"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("login %s: no session cookie", email)
	}
	return cookies
}

// ===== TESTS =====

func TestRouteAccess(t *testing.T) {
	sm := newStubManager()
	router := newTestRouter(sm)
	admin := login(t, router, "admin@studio.test")
	professor := login(t, router, "ana@studio.test")

	tests := []struct {
		name    string
		path    string
		cookies []*http.Cookie
		want    int
	}{
		{"anonymous", "/api/dashboard-metrics?mesAno=10/2025", nil, http.StatusUnauthorized},
		{"professor on admin report", "/api/dashboard-metrics?mesAno=10/2025", professor, http.StatusForbidden},
		{"admin", "/api/dashboard-metrics?mesAno=10/2025", admin, http.StatusOK},
		{"bad month", "/api/dashboard-metrics?mesAno=13/2025", admin, http.StatusBadRequest},
		{"garbage period", "/api/dashboard-metrics?mesAno=outubro", admin, http.StatusBadRequest},
		{"professor own payroll", "/api/meritocracia/professor/7?mesAno=10/2025", professor, http.StatusOK},
		{"professor other payroll", "/api/meritocracia/professor/8?mesAno=10/2025", professor, http.StatusForbidden},
		{"admin any payroll", "/api/meritocracia/professor/8?mesAno=10/2025", admin, http.StatusOK},
		{"non numeric id", "/api/meritocracia/professor/abc", admin, http.StatusBadRequest},
		{"professor payroll list", "/api/meritocracia/professores", professor, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(router, http.MethodGet, tt.path, nil, tt.cookies)
			if rec.Code != tt.want {
				t.Errorf("GET %s = %d, want %d (body %s)", tt.path, rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestDashboardPeriod(t *testing.T) {
	sm := newStubManager()
	router := newTestRouter(sm)
	admin := login(t, router, "admin@studio.test")

	rec := doRequest(router, http.MethodGet, "/api/dashboard-metrics?mesAno=1/2025", nil, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if sm.finance.gotPeriod != (models.Period{Month: 1, Year: 2025}) {
		t.Errorf("period = %+v, want 1/2025", sm.finance.gotPeriod)
	}

	rec = doRequest(router, http.MethodGet, "/api/dashboard-metrics", nil, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !sm.finance.gotPeriod.Valid() {
		t.Errorf("default period %+v is not valid", sm.finance.gotPeriod)
	}
}

func TestSlotDetailKey(t *testing.T) {
	sm := newStubManager()
	router := newTestRouter(sm)
	admin := login(t, router, "admin@studio.test")

	key := models.SlotKey{StartTime: "07:00", Weekday: time.Wednesday, Modality: "Pilates-Solo"}

	tests := []struct {
		name    string
		id      string
		err     error
		want    int
		wantKey bool
	}{
		{name: "encoded", id: key.Encode(), want: http.StatusOK, wantKey: true},
		{name: "legacy with hyphen in modality", id: "07:00-Quarta-Pilates-Solo", want: http.StatusOK, wantKey: true},
		{name: "malformed", id: "07:00-Someday-Yoga", want: http.StatusBadRequest},
		{name: "no classes", id: key.Encode(), err: services.NewNotFoundError("class group", key.Legacy()), want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm.finance.err = tt.err
			sm.finance.gotKey = models.SlotKey{}

			rec := doRequest(router, http.MethodGet, "/api/detalhes-aula/"+tt.id+"?mesAno=10/2025", nil, admin)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.wantKey && sm.finance.gotKey != key {
				t.Errorf("key = %+v, want %+v", sm.finance.gotKey, key)
			}
		})
	}
}

func TestExportPayroll(t *testing.T) {
	sm := newStubManager()
	router := newTestRouter(sm)
	admin := login(t, router, "admin@studio.test")

	rec := doRequest(router, http.MethodGet, "/api/meritocracia/professores/export?mesAno=10/2025", nil, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "meritocracia-2025-10.xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if rec.Body.String() != "xlsx:2025-10" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestCheckInValidation(t *testing.T) {
	sm := newStubManager()
	router := newTestRouter(sm)
	professor := login(t, router, "ana@studio.test")

	tests := []struct {
		name string
		path string
		body interface{}
		want int
	}{
		{"ok", "/api/aulas/3/checkin", map[string]int{"attendance": 12}, http.StatusOK},
		{"negative", "/api/aulas/3/checkin", map[string]int{"attendance": -1}, http.StatusBadRequest},
		{"not json", "/api/aulas/3/checkin", "twelve", http.StatusBadRequest},
		{"zero id", "/api/aulas/0/checkin", map[string]int{"attendance": 1}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := sm.class.checkIns
			rec := doRequest(router, http.MethodPost, tt.path, tt.body, professor)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			called := sm.class.checkIns > before
			if called != (tt.want == http.StatusOK) {
				t.Errorf("service called = %v", called)
			}
		})
	}
}

func TestAuthFlow(t *testing.T) {
	sm := newStubManager()
	router := newTestRouter(sm)

	rec := doRequest(router, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "ana@studio.test", "password": "wrong-password"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", rec.Code)
	}

	rec = doRequest(router, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "not-an-email", "password": "x"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid email status = %d, want 400", rec.Code)
	}

	cookies := login(t, router, "ana@studio.test")
	rec = doRequest(router, http.MethodGet, "/api/auth/me", nil, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d", rec.Code)
	}
	var me services.SessionUser
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatal(err)
	}
	if me.ID != 7 || me.Role != models.RoleProfessor {
		t.Errorf("me = %+v", me)
	}

	rec = doRequest(router, http.MethodPost, "/api/auth/logout", nil, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}
	rec = doRequest(router, http.MethodGet, "/api/auth/me", nil, rec.Result().Cookies())
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout = %d, want 401", rec.Code)
	}
}

func TestHandleServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewBaseHandler(testLogger(), validator.New())

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", services.ValidationErrors{{Field: "capacity", Message: "too low"}}, http.StatusBadRequest},
		{"not found", services.NewNotFoundError("class", 9), http.StatusNotFound},
		{"conflict", fmt.Errorf("class exists: %w", services.ErrConflict), http.StatusConflict},
		{"forbidden", fmt.Errorf("not assigned: %w", services.ErrForbidden), http.StatusForbidden},
		{"unauthorized", services.ErrUnauthorized, http.StatusUnauthorized},
		{"invalid token", services.ErrInvalidToken, http.StatusBadRequest},
		{"unexpected", errors.New("pq: connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			h.handleServiceError(c, tt.err)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusInternalServerError && strings.Contains(rec.Body.String(), "connection refused") {
				t.Errorf("500 body leaks cause: %s", rec.Body.String())
			}
		})
	}
}

func TestHealth(t *testing.T) {
	sm := newStubManager()
	router := newTestRouter(sm)

	if rec := doRequest(router, http.MethodGet, "/health", nil, nil); rec.Code != http.StatusOK {
		t.Errorf("healthy status = %d", rec.Code)
	}

	sm.healthErr = errors.New("database unreachable")
	if rec := doRequest(router, http.MethodGet, "/health", nil, nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy status = %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(newStubManager())

	req := httptest.NewRequest(http.MethodOptions, "/api/aulas", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow origin = %q", got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}
