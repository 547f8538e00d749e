package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	activitydomain "github.com/smallbiznis/milestone/internal/activity/domain"
	activityrepo "github.com/smallbiznis/milestone/internal/activity/repository"
	activityservice "github.com/smallbiznis/milestone/internal/activity/service"
	"github.com/smallbiznis/milestone/internal/clock"
	"github.com/smallbiznis/milestone/internal/config"
	contractdomain "github.com/smallbiznis/milestone/internal/contract/domain"
	contractrepo "github.com/smallbiznis/milestone/internal/contract/repository"
	contractservice "github.com/smallbiznis/milestone/internal/contract/service"
	customerdomain "github.com/smallbiznis/milestone/internal/customer/domain"
	customerrepo "github.com/smallbiznis/milestone/internal/customer/repository"
	customerservice "github.com/smallbiznis/milestone/internal/customer/service"
	dashboardservice "github.com/smallbiznis/milestone/internal/dashboard/service"
	"github.com/smallbiznis/milestone/internal/lock"
	paymentdomain "github.com/smallbiznis/milestone/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/milestone/internal/payment/repository"
	paymentservice "github.com/smallbiznis/milestone/internal/payment/service"
	projectdomain "github.com/smallbiznis/milestone/internal/project/domain"
	projectrepo "github.com/smallbiznis/milestone/internal/project/repository"
	projectservice "github.com/smallbiznis/milestone/internal/project/service"
	"github.com/smallbiznis/milestone/internal/reconcile"
	storeservice "github.com/smallbiznis/milestone/internal/store/service"
	"github.com/smallbiznis/milestone/internal/testutil"
	userdomain "github.com/smallbiznis/milestone/internal/user/domain"
	userrepo "github.com/smallbiznis/milestone/internal/user/repository"
	userservice "github.com/smallbiznis/milestone/internal/user/service"
	worklistservice "github.com/smallbiznis/milestone/internal/worklist/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
}

// Today is Wednesday 2026-03-04.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t,
		&customerdomain.Customer{},
		&projectdomain.Project{},
		&contractdomain.Contract{},
		&paymentdomain.Payment{},
		&userdomain.User{},
		&activitydomain.Activity{},
	)
	node := testutil.NewNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC))
	log := zaptest.NewLogger(t)

	activity := activityservice.New(activityservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: activityrepo.Provide()})
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	NewServer(ServerParams{
		Gin: engine,
		Cfg: config.Config{Environment: "test"},
		DB:  db,
		CustomerSvc: customerservice.New(customerservice.Params{
			DB: db, Log: log, GenID: node, Clock: clk,
			Repo:         customerrepo.Provide(),
			ProjectRepo:  projectrepo.Provide(),
			ContractRepo: contractrepo.Provide(),
			PaymentRepo:  paymentrepo.Provide(),
			Activity:     activity,
		}),
		ProjectSvc: projectservice.New(projectservice.Params{
			DB: db, Log: log, GenID: node, Clock: clk,
			Repo:         projectrepo.Provide(),
			CustomerRepo: customerrepo.Provide(),
			ContractRepo: contractrepo.Provide(),
			PaymentRepo:  paymentrepo.Provide(),
			Activity:     activity,
		}),
		ContractSvc: contractservice.New(contractservice.Params{
			DB: db, Log: log, GenID: node, Clock: clk,
			Repo:        contractrepo.Provide(),
			ProjectRepo: projectrepo.Provide(),
			PaymentRepo: paymentrepo.Provide(),
			Activity:    activity,
		}),
		PaymentSvc: paymentservice.New(paymentservice.Params{
			DB: db, Log: log, GenID: node, Clock: clk,
			Repo:         paymentrepo.Provide(),
			ContractRepo: contractrepo.Provide(),
			Activity:     activity,
		}),
		UserSvc: userservice.New(userservice.Params{
			DB: db, Log: log, GenID: node, Clock: clk,
			Repo:     userrepo.Provide(),
			Activity: activity,
		}),
		ActivitySvc: activity,
		StoreSvc:    storeservice.New(storeservice.Params{DB: db, Log: log, Clock: clk, Activity: activity}),
		WorklistSvc: worklistservice.New(worklistservice.Params{
			DB: db, Log: log, Clock: clk,
			PaymentRepo:  paymentrepo.Provide(),
			ContractRepo: contractrepo.Provide(),
			ProjectRepo:  projectrepo.Provide(),
			CustomerRepo: customerrepo.Provide(),
		}),
		DashboardSvc: dashboardservice.New(dashboardservice.Params{
			DB: db, Log: log, Clock: clk,
			ProjectRepo:  projectrepo.Provide(),
			ContractRepo: contractrepo.Provide(),
			PaymentRepo:  paymentrepo.Provide(),
		}),
	})
	return &testServer{engine: engine, db: db}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(v)
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

// data decodes the {"data": ...} envelope of a successful response.
func data(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Data
}

func apiError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Error
}

func (ts *testServer) seedContract(t *testing.T) (customerID, projectID, contractID string) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/customers", gin.H{"name": "Seoul Metro", "reg_no": "1234567890", "type": "public"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	customerID = data(t, rec)["id"].(string)

	rec = ts.do(t, http.MethodPost, "/api/projects", gin.H{"name": "Fare system", "customer_id": customerID, "start_date": "2026-01-05"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	projectID = data(t, rec)["id"].(string)

	rec = ts.do(t, http.MethodPost, "/api/contracts", gin.H{
		"name":        "Build",
		"project_id":  projectID,
		"category":    "sales",
		"type":        "development",
		"amount":      1_000_000,
		"signed_date": "2026-01-10",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	contractID = data(t, rec)["id"].(string)
	return customerID, projectID, contractID
}

func TestCustomerRoutes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/customers", gin.H{"name": "Seoul Metro", "reg_no": "1234567890"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := data(t, rec)
	assert.Equal(t, "123-45-67890", created["reg_no"])
	assert.Equal(t, "commercial", created["type"])

	rec = ts.do(t, http.MethodPost, "/api/customers", gin.H{"name": "Seoul Metro", "reg_no": "9999999999"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", apiError(t, rec).Type)

	rec = ts.do(t, http.MethodPost, "/api/customers", gin.H{"reg_no": "1234567890"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := apiError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "name", payload.Errors[0].Field)
	assert.Equal(t, "required", payload.Errors[0].Code)

	rec = ts.do(t, http.MethodPost, "/api/customers", gin.H{"name": "Busan Port", "reg_no": "12"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload = apiError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "reg_no", payload.Errors[0].Field)
	assert.Equal(t, "invalid_reg_no", payload.Errors[0].Code)

	rec = ts.do(t, http.MethodGet, "/api/customers/42", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/customers/"+created["id"].(string), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Seoul Metro", data(t, rec)["name"])

	rec = ts.do(t, http.MethodDelete, "/api/customers/"+created["id"].(string), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPaymentSequencing(t *testing.T) {
	ts := newTestServer(t)
	_, _, contractID := ts.seedContract(t)

	rec := ts.do(t, http.MethodPost, "/api/payments", gin.H{
		"contract_id":    contractID,
		"item":           "deposit",
		"amount":         300_000,
		"scheduled_date": "2026-03-10",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	depositID := data(t, rec)["id"].(string)

	rec = ts.do(t, http.MethodPost, "/api/payments", gin.H{
		"contract_id":    contractID,
		"item":           "final_balance",
		"amount":         700_000,
		"scheduled_date": "2026-06-30",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	finalID := data(t, rec)["id"].(string)

	rec = ts.do(t, http.MethodPut, "/api/payments/"+finalID, gin.H{
		"item":            "final_balance",
		"amount":          700_000,
		"scheduled_date":  "2026-06-30",
		"completion_date": "2026-03-04",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	payload := apiError(t, rec)
	assert.Equal(t, "sequence_violation", payload.Type)
	assert.Equal(t, depositID, payload.Details["blocking_id"])
	assert.Equal(t, "deposit", payload.Details["blocking"])

	rec = ts.do(t, http.MethodPut, "/api/payments/"+depositID, gin.H{
		"item":           "deposit",
		"amount":         300_000,
		"scheduled_date": "2026-03-10",
		"status":         "completed",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	edited := data(t, rec)["payment"].(map[string]any)
	assert.Equal(t, "completed", edited["status"])
	assert.Equal(t, "2026-03-04T00:00:00Z", edited["completion_date"])

	rec = ts.do(t, http.MethodGet, "/api/contracts/"+contractID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	contract := data(t, rec)
	assert.EqualValues(t, 300_000, contract["accumulated_payment"])
	assert.EqualValues(t, 700_000, contract["balance"])

	rec = ts.do(t, http.MethodGet, "/api/contracts/"+contractID+"/payments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []paymentdomain.Payment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 2)
	assert.Equal(t, paymentdomain.ItemDeposit, list.Data[0].Item)
}

func TestPaymentRequestValidation(t *testing.T) {
	ts := newTestServer(t)
	_, _, contractID := ts.seedContract(t)

	rec := ts.do(t, http.MethodPost, "/api/payments", gin.H{
		"contract_id":    contractID,
		"item":           "deposit",
		"amount":         100,
		"scheduled_date": "03/10/2026",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := apiError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "scheduled_date", payload.Errors[0].Field)

	rec = ts.do(t, http.MethodPost, "/api/payments", gin.H{
		"contract_id":    contractID,
		"item":           "deposit",
		"amount":         2_000_000,
		"scheduled_date": "2026-03-10",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "exceeds_registered_balance", apiError(t, rec).Message)

	rec = ts.do(t, http.MethodPost, "/api/payments", []byte("{"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/users", gin.H{"username": "minji", "name": "Kim Minji", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	rec = ts.do(t, http.MethodPost, "/api/auth/login", gin.H{"username": "minji", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "minji", data(t, rec)["username"])

	rec = ts.do(t, http.MethodPost, "/api/auth/login", gin.H{"username": "minji", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/activities?category=user", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var feed struct {
		Data []activitydomain.Activity `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	require.Len(t, feed.Data, 2)
	assert.Equal(t, activitydomain.TypeLogin, feed.Data[0].Type)
}

func TestBackupRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	ts.seedContract(t)

	rec := ts.do(t, http.MethodGet, "/api/backup", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "milestone-backup-2026-03-04.json")
	snapshot := rec.Body.Bytes()

	var tampered map[string]any
	require.NoError(t, json.Unmarshal(snapshot, &tampered))
	tampered["version"] = 99
	rec = ts.do(t, http.MethodPost, "/api/backup/restore", tampered)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unsupported_snapshot_version", apiError(t, rec).Errors[0].Code)

	rec = ts.do(t, http.MethodPost, "/api/backup/restore", snapshot)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := data(t, rec)
	assert.EqualValues(t, 1, result["customers"])
	assert.EqualValues(t, 1, result["contracts"])
	assert.Equal(t, true, result["users_kept"])
}

func TestWorklistAndDashboard(t *testing.T) {
	ts := newTestServer(t)
	_, _, contractID := ts.seedContract(t)

	rec := ts.do(t, http.MethodPost, "/api/payments", gin.H{
		"contract_id":    contractID,
		"item":           "deposit",
		"amount":         300_000,
		"scheduled_date": "2026-03-02",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/worklist?direction=receivable", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := data(t, rec)
	assert.Len(t, list["urgent"], 1)
	assert.EqualValues(t, 300_000, list["urgent_amount"])

	rec = ts.do(t, http.MethodGet, "/api/worklist?direction=sales", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, data(t, rec)["urgent"], 1)

	rec = ts.do(t, http.MethodGet, "/api/worklist?direction=purchase", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, data(t, rec)["urgent"])

	rec = ts.do(t, http.MethodGet, "/api/worklist?direction=sideways", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "direction", apiError(t, rec).Errors[0].Field)

	rec = ts.do(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := data(t, rec)
	assert.EqualValues(t, 1_000_000, summary["total_sales"])
	assert.EqualValues(t, 1, summary["project_count"])
}

func TestCleanupRoute(t *testing.T) {
	ts := newTestServer(t)
	ts.seedContract(t)

	rec := ts.do(t, http.MethodPost, "/api/test/cleanup", gin.H{"prefix": "Seoul"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := data(t, rec)
	assert.EqualValues(t, 1, result["customers"])
	assert.EqualValues(t, 1, result["projects"])
	assert.EqualValues(t, 1, result["contracts"])

	rec = ts.do(t, http.MethodPost, "/api/test/cleanup", gin.H{"prefix": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{"wrapped validation", fmt.Errorf("normalize: %w", customerdomain.ErrInvalidRegNo), http.StatusBadRequest, "validation_error"},
		{"sequence", &reconcile.SequenceViolationError{Blocking: paymentdomain.ItemDeposit, BlockingID: 7, Target: paymentdomain.ItemProgress}, http.StatusUnprocessableEntity, "sequence_violation"},
		{"contract busy", lock.ErrContractBusy, http.StatusConflict, "conflict"},
		{"credentials", userdomain.ErrInvalidCredentials, http.StatusUnauthorized, "unauthorized"},
		{"record not found", gorm.ErrRecordNotFound, http.StatusNotFound, "not_found"},
		{"referenced project", contractdomain.ErrProjectNotFound, http.StatusNotFound, "not_found"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := mapError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.typ, payload.Type)
		})
	}

	_, payload := mapError(fmt.Errorf("normalize: %w", customerdomain.ErrInvalidRegNo))
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_reg_no", payload.Errors[0].Code)
	assert.Equal(t, "reg_no", payload.Errors[0].Field)
}
