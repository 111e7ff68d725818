package httptransport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"subshare/backend/internal/auth"
	jwtpkg "subshare/backend/internal/auth/jwt"
	"subshare/backend/internal/domain"
	"subshare/backend/internal/monitoring"
	"subshare/backend/internal/service"
	"subshare/backend/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// metricsOnce 保证 promauto 注册只发生一次，重复注册会 panic
var testMetrics *monitoring.Metrics

func sharedMetrics() *monitoring.Metrics {
	if testMetrics == nil {
		testMetrics = monitoring.NewMetrics()
	}
	return testMetrics
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestAccessHandler_Validate(t *testing.T) {
	store := memory.NewStore()
	handler := NewAccessHandler(
		service.NewAccessService(store),
		service.NewVerificationService(store, zap.NewNop()),
		sharedMetrics(),
	)

	router := gin.New()
	router.POST("/v1/access/validate", handler.Validate)

	require.NoError(t, store.SaveCustomer(&domain.Customer{
		ID:               "cust-1",
		Name:             "Alice",
		AccessCode:       "123456",
		PurchaseDate:     time.Now().AddDate(0, 0, -5),
		SubscriptionDays: 30,
		IsActive:         true,
	}))
	require.NoError(t, store.SaveCustomer(&domain.Customer{
		ID:               "cust-2",
		Name:             "Bob",
		AccessCode:       "654321",
		PurchaseDate:     time.Now().AddDate(0, 0, -5),
		SubscriptionDays: 30,
		IsActive:         false,
	}))

	t.Run("有效访问码返回客户信息", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/access/validate", gin.H{"accessCode": "123456"})

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		data := body["data"].(map[string]interface{})
		customer := data["customer"].(map[string]interface{})
		assert.Equal(t, "Alice", customer["name"])
		assert.Equal(t, string(domain.StatusActive), customer["status"])
	})

	t.Run("不存在的访问码返回拒绝", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/access/validate", gin.H{"accessCode": "999999"})

		assert.Equal(t, http.StatusForbidden, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, MsgAccessDenied, body["msg"])
	})

	t.Run("停用客户与不存在的码返回同一错误", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/access/validate", gin.H{"accessCode": "654321"})

		assert.Equal(t, http.StatusForbidden, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, MsgAccessDenied, body["msg"])
	})

	t.Run("格式错误的访问码返回400", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/access/validate", gin.H{"accessCode": "abc"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("缺少访问码返回400", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/access/validate", gin.H{})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCustomerHandler_CreateAndList(t *testing.T) {
	store := memory.NewStore()
	handler := NewCustomerHandler(service.NewCustomerService(store))

	router := gin.New()
	router.POST("/v1/customers", handler.Create)
	router.GET("/v1/customers", handler.List)
	router.DELETE("/v1/customers/:id", handler.Delete)

	t.Run("空列表返回空数组而不是null", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/v1/customers", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"data":[]`)
	})

	t.Run("创建客户成功返回201", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/customers", gin.H{
			"name":             "Alice",
			"accessCode":       "123456",
			"purchaseDate":     "2024-01-01T00:00:00Z",
			"subscriptionDays": 30,
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, float64(CodeCreated), body["code"])
	})

	t.Run("重复访问码返回409", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/customers", gin.H{
			"name":             "Mallory",
			"accessCode":       "123456",
			"purchaseDate":     "2024-01-01T00:00:00Z",
			"subscriptionDays": 30,
		})

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("缺少必填字段返回400", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/customers", gin.H{
			"name": "NoDate",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("删除客户返回204状态码", func(t *testing.T) {
		customers, err := service.NewCustomerService(store).List(time.Now())
		require.NoError(t, err)
		require.NotEmpty(t, customers)

		w := doJSON(t, router, http.MethodDelete, "/v1/customers/"+customers[0].ID, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestAssignmentHandler_Assign(t *testing.T) {
	store := memory.NewStore()
	handler := NewAssignmentHandler(
		service.NewAssignmentService(store, store),
		sharedMetrics(),
	)

	router := gin.New()
	router.POST("/v1/customers/:id/assignment", handler.Assign)

	require.NoError(t, store.SaveAccount(&domain.CredentialAccount{
		ID:       "acc-1",
		Email:    "shared@example.com",
		Password: "secret123",
	}))
	occupied := 1
	require.NoError(t, store.SaveCustomer(&domain.Customer{
		ID:               "cust-1",
		Name:             "Alice",
		AccessCode:       "111111",
		PurchaseDate:     time.Now(),
		SubscriptionDays: 30,
		IsActive:         true,
		ProfileNumber:    &occupied,
		NetflixAccountID: strPtr("acc-1"),
	}))
	require.NoError(t, store.SaveCustomer(&domain.Customer{
		ID:               "cust-2",
		Name:             "Bob",
		AccessCode:       "222222",
		PurchaseDate:     time.Now(),
		SubscriptionDays: 30,
		IsActive:         true,
	}))

	t.Run("占用已有席位返回409", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/customers/cust-2/assignment", gin.H{
			"accountId":     "acc-1",
			"profileNumber": 1,
		})

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("分配空闲席位成功", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/customers/cust-2/assignment", gin.H{
			"accountId":     "acc-1",
			"profileNumber": 2,
		})

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("客户不存在返回404", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/customers/ghost/assignment", gin.H{
			"accountId": "acc-1",
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	store := memory.NewStore()
	authService := auth.NewService(store, "test-setup-key-1234", zap.NewNop())
	jwtManager := jwtpkg.NewManager(
		"test-secret-key-at-least-32-chars!!",
		"subshare-test",
		15*time.Minute,
		time.Hour,
	)
	handler := NewAuthHandler(authService, jwtManager, zap.NewNop())

	router := gin.New()
	router.POST("/v1/auth/login", handler.Login)

	_, err := authService.CreateAdmin(auth.CreateAdminInput{
		Email:    "admin@example.com",
		Password: "Password123!",
		Role:     domain.RoleSuper,
		SetupKey: "test-setup-key-1234",
	})
	require.NoError(t, err)

	t.Run("正确凭证返回令牌对", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/auth/login", gin.H{
			"email":    "admin@example.com",
			"password": "Password123!",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		data := body["data"].(map[string]interface{})
		tokens := data["tokens"].(map[string]interface{})
		assert.NotEmpty(t, tokens["accessToken"])
		assert.NotEmpty(t, tokens["refreshToken"])
	})

	t.Run("错误密码返回401", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/auth/login", gin.H{
			"email":    "admin@example.com",
			"password": "wrong-password",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("不存在的邮箱返回401", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/auth/login", gin.H{
			"email":    "ghost@example.com",
			"password": "Password123!",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func strPtr(s string) *string { return &s }
