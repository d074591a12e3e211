package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
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

const testPassword = "password123"

var testHasher = password.NewHasher(password.Params{MemoryKiB: 1024, Iterations: 1, Parallelism: 1})

type handlerTestEnv struct {
	db                  *gorm.DB
	authService         *services.AuthService
	externalAuthService *services.ExternalAuthService
	userService         *services.UserService
	assignmentService   *services.AssignmentService
	orgService          *services.OrganizationService
	invitationService   *services.InvitationService
}

func setupHandlerTestEnv(t *testing.T) handlerTestEnv {
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
	invitationRepo := repository.NewInvitationRepository(db)

	assignmentService := services.NewAssignmentService(assignmentRepo, orgRepo, userRepo, 3)

	return handlerTestEnv{
		db:                  db,
		authService:         services.NewAuthService(userRepo, testHasher),
		externalAuthService: services.NewExternalAuthService(userRepo, testHasher),
		userService:         services.NewUserService(userRepo, assignmentRepo, testHasher),
		assignmentService:   assignmentService,
		orgService:          services.NewOrganizationService(orgRepo, assignmentRepo, assignmentService),
		invitationService:   services.NewInvitationService(invitationRepo, orgRepo, 7*24*time.Hour),
	}
}

func (env handlerTestEnv) createUser(t *testing.T, username string, role models.Role) *models.User {
	t.Helper()

	digest, err := testHasher.Hash(testPassword)
	require.NoError(t, err)

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		Name:         username,
		Role:         role,
		PasswordHash: digest,
	}
	if role.UsesStandingInvite() {
		code := username + "-hashcode"
		user.InviteHashcode = &code
	}
	require.NoError(t, env.db.Create(user).Error)
	return user
}

func (env handlerTestEnv) createOrganization(t *testing.T, name, appURL string) *models.Organization {
	t.Helper()

	org := &models.Organization{Name: name}
	if appURL != "" {
		org.AppURL = &appURL
	}
	require.NoError(t, env.db.Create(org).Error)
	return org
}

// actingAs stands in for RequireAuth in handler tests.
func actingAs(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyUser, user)
		c.Next()
	}
}

func performJSON(t *testing.T, r http.Handler, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}
