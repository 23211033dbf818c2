package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"user-api/internal/adapter/db/gormdb"
	"user-api/internal/adapter/gin/handler"
	"user-api/internal/adapter/gin/middleware"
	"user-api/internal/usecase/user"
)

// UserAPITestSuite drives the HTTP API end to end against an in-memory database
type UserAPITestSuite struct {
	suite.Suite
	db      *gorm.DB
	server  *httptest.Server
	baseURL string
	client  *http.Client
}

func (suite *UserAPITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(suite.T())

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{SkipDefaultTransaction: true})
	suite.Require().NoError(err)
	sqlDB, err := db.DB()
	suite.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	suite.Require().NoError(gormdb.Migrate(db))
	suite.db = db

	uc := user.New(gormdb.NewUserRepo(db, logger), logger, bcrypt.MinCost)
	r := SetupRouter(handler.NewUserHandler(uc, logger), nil, Config{
		ServiceName:    "user-api",
		AllowedOrigins: []string{"*"},
	}, logger)

	suite.server = httptest.NewServer(r)
	suite.baseURL = suite.server.URL
	suite.client = suite.server.Client()
}

func (suite *UserAPITestSuite) TearDownTest() {
	suite.server.Close()
	if sqlDB, err := suite.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Helper method to make HTTP requests
func (suite *UserAPITestSuite) makeRequest(method, endpoint, body string) *http.Response {
	req, err := http.NewRequestWithContext(context.Background(), method, suite.baseURL+endpoint, strings.NewReader(body))
	suite.Require().NoError(err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := suite.client.Do(req)
	suite.Require().NoError(err)
	suite.T().Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (suite *UserAPITestSuite) readBody(resp *http.Response) string {
	b, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)
	return string(b)
}

func (suite *UserAPITestSuite) decode(resp *http.Response, v any) {
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(v))
}

func (suite *UserAPITestSuite) createUser(email, password, name string) map[string]any {
	body := fmt.Sprintf(`{"email":%q,"password":%q,"name":%q}`, email, password, name)
	resp := suite.makeRequest(http.MethodPost, "/api/users", body)
	suite.Require().Equal(http.StatusCreated, resp.StatusCode)

	var created map[string]any
	suite.decode(resp, &created)
	return created
}

func (suite *UserAPITestSuite) TestCreateUser() {
	resp := suite.makeRequest(http.MethodPost, "/api/users",
		`{"email":"john@example.com","password":"longenough","name":"John"}`)

	suite.Equal(http.StatusCreated, resp.StatusCode)

	var created map[string]any
	suite.decode(resp, &created)
	suite.NotContains(created, "password")
	suite.Equal("john@example.com", created["email"])
	suite.Equal("John", created["name"])

	id := int64(created["id"].(float64))
	suite.Positive(id)
	suite.Equal(fmt.Sprintf("%s/api/users/%d", suite.baseURL, id), resp.Header.Get("Location"))
	suite.NotEmpty(resp.Header.Get(middleware.RequestIDHeader))
}

func (suite *UserAPITestSuite) TestCreateUser_StoresHashedPassword() {
	created := suite.createUser("john@example.com", "longenough", "John")

	var stored gormdb.UserSchema
	suite.Require().NoError(suite.db.First(&stored, int64(created["id"].(float64))).Error)
	suite.NotEqual("longenough", stored.Password)
	suite.NoError(bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("longenough")))
}

func (suite *UserAPITestSuite) TestCreateUser_ValidationErrors() {
	resp := suite.makeRequest(http.MethodPost, "/api/users",
		`{"email":"not-an-email","password":"short","name":"J"}`)

	suite.Equal(http.StatusUnprocessableEntity, resp.StatusCode)
	suite.Empty(resp.Header.Get("Location"))

	var body handler.ValidationErrorResponse
	suite.decode(resp, &body)
	fields := map[string]string{}
	for _, f := range body.Errors {
		fields[f.Field] = f.Message
		suite.Equal("body", f.Location)
	}
	suite.Equal(map[string]string{
		"email":    "must be a valid email",
		"password": "must be at least 8 characters",
		"name":     "must be at least 2 characters",
	}, fields)

	var count int64
	suite.Require().NoError(suite.db.Model(&gormdb.UserSchema{}).Count(&count).Error)
	suite.Zero(count)
}

func (suite *UserAPITestSuite) TestCreateUser_EmptyBody() {
	resp := suite.makeRequest(http.MethodPost, "/api/users", "")

	suite.Equal(http.StatusUnprocessableEntity, resp.StatusCode)

	var body handler.ValidationErrorResponse
	suite.decode(resp, &body)
	fields := map[string]string{}
	for _, f := range body.Errors {
		fields[f.Field] = f.Message
	}
	suite.Equal(map[string]string{
		"email":    "is required",
		"password": "is required",
		"name":     "is required",
	}, fields)
}

func (suite *UserAPITestSuite) TestCreateUser_MalformedBody() {
	resp := suite.makeRequest(http.MethodPost, "/api/users", `{"email":`)

	suite.Equal(http.StatusBadRequest, resp.StatusCode)
	suite.Contains(suite.readBody(resp), "invalid_body")
}

func (suite *UserAPITestSuite) TestListUsers() {
	resp := suite.makeRequest(http.MethodGet, "/api/users", "")
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.JSONEq(`[]`, suite.readBody(resp))

	suite.createUser("a@example.com", "password-a", "Al")
	suite.createUser("b@example.com", "password-b", "Bo")

	resp = suite.makeRequest(http.MethodGet, "/api/users", "")
	suite.Equal(http.StatusOK, resp.StatusCode)

	var rows []map[string]any
	suite.decode(resp, &rows)
	suite.Require().Len(rows, 2)
	for _, row := range rows {
		suite.NotContains(row, "password")
		suite.Contains(row, "id")
		suite.Contains(row, "email")
		suite.Contains(row, "name")
	}
}

func (suite *UserAPITestSuite) TestUpdateUser_PartialUpdate() {
	created := suite.createUser("jane@example.com", "longenough", "Jane")
	id := int64(created["id"].(float64))

	var before gormdb.UserSchema
	suite.Require().NoError(suite.db.First(&before, id).Error)

	resp := suite.makeRequest(http.MethodPut, fmt.Sprintf("/api/users/%d", id), `{"name":"NewName"}`)

	suite.Equal(http.StatusCreated, resp.StatusCode)
	suite.Equal(fmt.Sprintf("%s/api/users/%d", suite.baseURL, id), resp.Header.Get("Location"))

	var updated map[string]any
	suite.decode(resp, &updated)
	suite.NotContains(updated, "password")
	suite.Equal("NewName", updated["name"])
	suite.Equal("jane@example.com", updated["email"])

	var after gormdb.UserSchema
	suite.Require().NoError(suite.db.First(&after, id).Error)
	suite.Equal(before.Password, after.Password)
}

func (suite *UserAPITestSuite) TestUpdateUser_Password() {
	created := suite.createUser("jane@example.com", "longenough", "Jane")
	id := int64(created["id"].(float64))

	resp := suite.makeRequest(http.MethodPut, fmt.Sprintf("/api/users/%d", id), `{"password":"evenlonger"}`)
	suite.Equal(http.StatusCreated, resp.StatusCode)

	var stored gormdb.UserSchema
	suite.Require().NoError(suite.db.First(&stored, id).Error)
	suite.NoError(bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("evenlonger")))
}

func (suite *UserAPITestSuite) TestUpdateUser_ValidationError() {
	created := suite.createUser("jane@example.com", "longenough", "Jane")
	id := int64(created["id"].(float64))

	resp := suite.makeRequest(http.MethodPut, fmt.Sprintf("/api/users/%d", id), `{"email":"nope"}`)

	suite.Equal(http.StatusUnprocessableEntity, resp.StatusCode)
	suite.JSONEq(`{"errors":[{"field":"email","location":"body","message":"must be a valid email"}]}`, suite.readBody(resp))

	var stored gormdb.UserSchema
	suite.Require().NoError(suite.db.First(&stored, id).Error)
	suite.Equal("jane@example.com", stored.Email)
}

func (suite *UserAPITestSuite) TestUpdateUser_EmptyBody() {
	created := suite.createUser("jane@example.com", "longenough", "Jane")
	id := int64(created["id"].(float64))

	resp := suite.makeRequest(http.MethodPut, fmt.Sprintf("/api/users/%d", id), "")

	suite.Equal(http.StatusCreated, resp.StatusCode)
	suite.JSONEq(fmt.Sprintf(`{"id":%d,"email":"jane@example.com","name":"Jane"}`, id), suite.readBody(resp))
}

func (suite *UserAPITestSuite) TestUpdateUser_NotFound() {
	resp := suite.makeRequest(http.MethodPut, "/api/users/999", `{"name":"Ghost"}`)

	suite.Equal(http.StatusNotFound, resp.StatusCode)
}

func (suite *UserAPITestSuite) TestUpdateUser_InvalidID() {
	resp := suite.makeRequest(http.MethodPut, "/api/users/abc", `{"name":"Al"}`)

	suite.Equal(http.StatusBadRequest, resp.StatusCode)
	suite.Contains(suite.readBody(resp), "invalid_id")
}

func (suite *UserAPITestSuite) TestDatabaseFailure_ReportsSQL() {
	suite.Require().NoError(suite.db.Migrator().DropTable(&gormdb.UserSchema{}))

	resp := suite.makeRequest(http.MethodGet, "/api/users", "")
	suite.Equal(http.StatusInternalServerError, resp.StatusCode)

	var body handler.PersistenceErrorResponse
	suite.decode(resp, &body)
	suite.Contains(body.Error, "no such table")
	suite.True(strings.HasPrefix(body.SQL, "SELECT * FROM `user`"), body.SQL)

	resp = suite.makeRequest(http.MethodPost, "/api/users",
		`{"email":"john@example.com","password":"longenough","name":"John"}`)
	suite.Equal(http.StatusInternalServerError, resp.StatusCode)

	raw := suite.readBody(resp)
	suite.Contains(raw, "INSERT INTO")
	suite.NotContains(raw, "longenough")
}

func (suite *UserAPITestSuite) TestHealthAndDocs() {
	resp := suite.makeRequest(http.MethodGet, "/health", "")
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.JSONEq(`{"status":"healthy","service":"user-api"}`, suite.readBody(resp))

	resp = suite.makeRequest(http.MethodGet, "/openapi.json", "")
	suite.Equal(http.StatusOK, resp.StatusCode)
	var doc map[string]any
	suite.decode(resp, &doc)
	suite.Contains(doc["paths"], "/api/users")

	resp = suite.makeRequest(http.MethodGet, "/swagger/index.html", "")
	suite.Equal(http.StatusOK, resp.StatusCode)
}

func (suite *UserAPITestSuite) TestUnknownRoute() {
	resp := suite.makeRequest(http.MethodGet, "/api/people", "")

	suite.Equal(http.StatusNotFound, resp.StatusCode)
}

func TestUserAPITestSuite(t *testing.T) {
	suite.Run(t, new(UserAPITestSuite))
}

func TestSetupRouter_RateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{SkipDefaultTransaction: true})
	assert.NoError(t, err)
	sqlDB, err := db.DB()
	assert.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	assert.NoError(t, gormdb.Migrate(db))

	uc := user.New(gormdb.NewUserRepo(db, logger), logger, bcrypt.MinCost)
	limiter := middleware.NewRateLimiter(client, middleware.RateLimiterConfig{
		RequestsPerSecond: 0.001,
		BurstCapacity:     2,
		Enabled:           true,
	}, logger)
	r := SetupRouter(handler.NewUserHandler(uc, logger), limiter, Config{ServiceName: "user-api"}, logger)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users", bytes.NewReader(nil)))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Health is outside the limited group
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
