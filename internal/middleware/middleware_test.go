package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/org-access-api/internal/constants"
	"github.com/yukikurage/org-access-api/internal/database"
	"github.com/yukikurage/org-access-api/internal/models"
	"github.com/yukikurage/org-access-api/internal/password"
	"github.com/yukikurage/org-access-api/internal/repository"
	"github.com/yukikurage/org-access-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type middlewareTestEnv struct {
	db                *gorm.DB
	authService       *services.AuthService
	assignmentService *services.AssignmentService
}

func setupMiddlewareTestEnv(t *testing.T) middlewareTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})
	require.NoError(t, database.Migrate(db))

	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	hasher := password.NewHasher(password.Params{MemoryKiB: 1024, Iterations: 1, Parallelism: 1})

	return middlewareTestEnv{
		db:                db,
		authService:       services.NewAuthService(userRepo, hasher),
		assignmentService: services.NewAssignmentService(assignmentRepo, orgRepo, userRepo, 3),
	}
}

func (env middlewareTestEnv) createUser(t *testing.T, username string, role models.Role) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		Name:         username,
		Role:         role,
		PasswordHash: "unused",
	}
	require.NoError(t, env.db.Create(user).Error)
	return user
}

func (env middlewareTestEnv) createOrganization(t *testing.T, name string) *models.Organization {
	t.Helper()

	org := &models.Organization{Name: name}
	require.NoError(t, env.db.Create(org).Error)
	return org
}

func setUser(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyUser, user)
		c.Next()
	}
}

func respondOK(c *gin.Context) {
	c.Status(http.StatusOK)
}

func serve(r http.Handler, method, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	env := setupMiddlewareTestEnv(t)
	user := env.createUser(t, "dealer", models.RoleDealer)

	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	r.GET("/session/:id", func(c *gin.Context) {
		id, _ := strconv.ParseUint(c.Param("id"), 10, 64)
		session := sessions.Default(c)
		session.Set(constants.ContextKeyUserID, id)
		require.NoError(t, session.Save())
		c.Status(http.StatusOK)
	})
	r.GET("/protected", RequireAuth(env.authService), func(c *gin.Context) {
		current, exists := GetCurrentUser(c)
		require.True(t, exists)
		userID, exists := GetUserID(c)
		require.True(t, exists)
		assert.Equal(t, current.ID, userID)
		c.String(http.StatusOK, current.Username)
	})

	t.Run("no session", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/protected")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid session", func(t *testing.T) {
		login := serve(r, http.MethodGet, fmt.Sprintf("/session/%d", user.ID))
		w := serve(r, http.MethodGet, "/protected", login.Result().Cookies()...)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "dealer", w.Body.String())
	})

	t.Run("deleted user", func(t *testing.T) {
		login := serve(r, http.MethodGet, "/session/9999")
		w := serve(r, http.MethodGet, "/protected", login.Result().Cookies()...)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestGetUserID_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, exists := GetUserID(c)
	assert.False(t, exists)
	_, exists = GetCurrentUser(c)
	assert.False(t, exists)
}

func TestToUint64(t *testing.T) {
	tests := []struct {
		in   interface{}
		want uint64
		ok   bool
	}{
		{uint64(7), 7, true},
		{uint(7), 7, true},
		{7, 7, true},
		{int64(7), 7, true},
		{float64(7), 7, true},
		{-1, 0, false},
		{"7", 0, false},
		{nil, 0, false},
	}

	for _, tt := range tests {
		got, ok := toUint64(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestRoleMiddleware(t *testing.T) {
	env := setupMiddlewareTestEnv(t)
	users := map[models.Role]*models.User{
		models.RoleAdmin:   env.createUser(t, "admin", models.RoleAdmin),
		models.RoleDealer:  env.createUser(t, "dealer", models.RoleDealer),
		models.RoleConsult: env.createUser(t, "consult", models.RoleConsult),
		models.RoleAudit:   env.createUser(t, "audit", models.RoleAudit),
	}

	tests := []struct {
		role        models.Role
		wantAdmin   int
		wantManager int
	}{
		{models.RoleAdmin, http.StatusOK, http.StatusOK},
		{models.RoleDealer, http.StatusForbidden, http.StatusOK},
		{models.RoleConsult, http.StatusForbidden, http.StatusForbidden},
		{models.RoleAudit, http.StatusForbidden, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			r := gin.New()
			r.Use(setUser(users[tt.role]))
			r.GET("/admin", RequireAdmin(), respondOK)
			r.GET("/managers", RequireOrganizationManagers(), respondOK)

			assert.Equal(t, tt.wantAdmin, serve(r, http.MethodGet, "/admin").Code)
			assert.Equal(t, tt.wantManager, serve(r, http.MethodGet, "/managers").Code)
		})
	}
}

func TestRequireCapability_NoUser(t *testing.T) {
	r := gin.New()
	r.GET("/admin", RequireAdmin(), respondOK)

	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/admin").Code)
}

func TestOrganizationMiddleware(t *testing.T) {
	env := setupMiddlewareTestEnv(t)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	dealer := env.createUser(t, "dealer", models.RoleDealer)
	consultant := env.createUser(t, "consultant", models.RoleConsult)
	assigned := env.createOrganization(t, "Assigned")
	other := env.createOrganization(t, "Other")

	ctx := context.Background()
	_, err := env.assignmentService.Assign(ctx, assigned.ID, dealer.ID, &admin.ID)
	require.NoError(t, err)
	_, err = env.assignmentService.Assign(ctx, assigned.ID, consultant.ID, &admin.ID)
	require.NoError(t, err)

	router := func(user *models.User) *gin.Engine {
		r := gin.New()
		r.Use(setUser(user))
		handler := func(c *gin.Context) {
			orgID, exists := GetOrganizationID(c)
			require.True(t, exists)
			c.String(http.StatusOK, strconv.FormatUint(orgID, 10))
		}
		r.GET("/orgs/:id", RequireOrganizationAccess(env.assignmentService), handler)
		r.PATCH("/orgs/:id", RequireOrganizationManager(env.assignmentService), handler)
		return r
	}

	tests := []struct {
		name       string
		user       *models.User
		orgID      uint64
		wantAccess int
		wantManage int
	}{
		{"admin assigned", admin, assigned.ID, http.StatusOK, http.StatusOK},
		{"admin other", admin, other.ID, http.StatusOK, http.StatusOK},
		{"dealer assigned", dealer, assigned.ID, http.StatusOK, http.StatusOK},
		{"dealer other", dealer, other.ID, http.StatusNotFound, http.StatusForbidden},
		{"consultant assigned", consultant, assigned.ID, http.StatusOK, http.StatusForbidden},
		{"consultant other", consultant, other.ID, http.StatusNotFound, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := router(tt.user)
			path := fmt.Sprintf("/orgs/%d", tt.orgID)

			w := serve(r, http.MethodGet, path)
			assert.Equal(t, tt.wantAccess, w.Code)
			if w.Code == http.StatusOK {
				assert.Equal(t, strconv.FormatUint(tt.orgID, 10), w.Body.String())
			}
			assert.Equal(t, tt.wantManage, serve(r, http.MethodPatch, path).Code)
		})
	}

	t.Run("malformed id", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, serve(router(admin), http.MethodGet, "/orgs/abc").Code)
	})
}

func TestRequestTimeout(t *testing.T) {
	r := gin.New()
	r.GET("/bounded", RequestTimeout(50*time.Millisecond), func(c *gin.Context) {
		deadline, exists := c.Request.Context().Deadline()
		require.True(t, exists)
		assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)
		c.Status(http.StatusOK)
	})
	r.GET("/unbounded", RequestTimeout(0), func(c *gin.Context) {
		_, exists := c.Request.Context().Deadline()
		assert.False(t, exists)
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/bounded").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/unbounded").Code)
}
