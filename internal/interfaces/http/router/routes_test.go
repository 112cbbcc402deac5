package router_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/housing/backend/internal/application/directory"
	applocation "github.com/housing/backend/internal/application/location"
	appoccupancy "github.com/housing/backend/internal/application/occupancy"
	"github.com/housing/backend/internal/domain/occupancy"
	"github.com/housing/backend/internal/infrastructure/config"
	"github.com/housing/backend/internal/interfaces/http/dto"
	"github.com/housing/backend/internal/interfaces/http/handler"
	"github.com/housing/backend/internal/interfaces/http/middleware"
	"github.com/housing/backend/internal/interfaces/http/router"
	"github.com/housing/backend/tests/testutil"
	"github.com/housing/backend/tests/testutil/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type api struct {
	engine *gin.Engine
	fx     *fixture.Builder
	sc     *fixture.Scenario
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()

	fx := fixture.New(t, testutil.NewSQLiteDB(t))
	sc := fx.Scenario()
	client := fx.Client()

	dirSvc := directory.NewService(
		directory.NewBuilder(client, applocation.NewResolver(client)),
		directory.NewStatsAggregator(client),
		config.DirectoryConfig{})
	t.Cleanup(dirSvc.Close)
	occSvc := appoccupancy.NewService(client, dirSvc, config.LifecycleConfig{ReconcileGrace: time.Minute})

	engine := gin.New()
	engine.Use(middleware.RequestID())
	router.NewRouter(engine, router.WithMiddleware(middleware.ResolveIdentity(middleware.IdentityConfig{}))).
		Register(router.APIGroups(router.Handlers{
			Directory: handler.NewDirectoryHandler(dirSvc),
			Occupancy: handler.NewOccupancyHandler(occSvc),
		})...).
		Setup()

	return &api{engine: engine, fx: fx, sc: sc}
}

func (a *api) flats(t *testing.T) []directory.FlatDetail {
	t.Helper()
	w := testutil.PerformRequest(t, a.engine, http.MethodGet, "/api/v1/buildings/"+a.sc.Building.ID.String()+"/flats", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return testutil.JSONResponseAs[handler.APIResponse[[]directory.FlatDetail]](t, w).Data
}

func TestAPI_OccupancyFlow(t *testing.T) {
	a := newAPI(t)
	tenant := testutil.Headers(a.sc.Tenant.ID.String(), "tenant")
	manager := testutil.Headers(a.sc.Manager.ID.String(), "manager")
	flatOne := a.sc.Flats["1"]

	flats := a.flats(t)
	require.Len(t, flats, 3)
	assert.Equal(t, []string{"1", "2", "10"}, []string{flats[0].UnitNumber, flats[1].UnitNumber, flats[2].UnitNumber})
	assert.False(t, flats[0].IsOccupied())

	w := testutil.PerformRequest(t, a.engine, http.MethodPost, "/api/v1/requests",
		map[string]string{"flat_id": flatOne.ID.String()}, tenant)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	submitted := testutil.JSONResponseAs[handler.APIResponse[appoccupancy.Result]](t, w).Data
	require.NotNil(t, submitted.RequestID)
	approvePath := "/api/v1/requests/" + submitted.RequestID.String() + "/approve"

	w = testutil.PerformRequest(t, a.engine, http.MethodPost, approvePath, nil, tenant)
	testutil.AssertErrorResponse(t, w, http.StatusForbidden, dto.ErrCodeForbidden)

	w = testutil.PerformRequest(t, a.engine, http.MethodPost, approvePath,
		map[string]string{"notes": "welcome"}, manager)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// the approval invalidated the cached flat list
	flats = a.flats(t)
	require.True(t, flats[0].IsOccupied())
	assert.Equal(t, "tenant", flats[0].Tenant.FullName)

	w = testutil.PerformRequest(t, a.engine, http.MethodGet, "/api/v1/requests", nil, tenant)
	require.Equal(t, http.StatusOK, w.Code)
	mine := testutil.JSONResponseAs[handler.APIResponse[[]directory.EnrichedRequest]](t, w).Data
	require.Len(t, mine, 1)
	assert.Equal(t, occupancy.RequestStatusApproved, mine[0].Status)
	assert.Equal(t, "welcome", mine[0].Notes)
	assert.Equal(t, "Block A", mine[0].Building)

	w = testutil.PerformRequest(t, a.engine, http.MethodGet, "/api/v1/managers/"+a.sc.Manager.ID.String()+"/stats", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := testutil.JSONResponseAs[handler.APIResponse[directory.ManagerStats]](t, w).Data
	assert.Equal(t, 1, stats.OccupiedFlats)
	assert.Equal(t, 2, stats.VacantFlats)

	w = testutil.PerformRequest(t, a.engine, http.MethodPost, "/api/v1/requests",
		map[string]string{"flat_id": flatOne.ID.String()}, tenant)
	testutil.AssertErrorResponse(t, w, http.StatusConflict, dto.ErrCodeConflict)

	w = testutil.PerformRequest(t, a.engine, http.MethodPost, approvePath, nil, manager)
	testutil.AssertErrorResponse(t, w, http.StatusConflict, dto.ErrCodeConflict)

	w = testutil.PerformRequest(t, a.engine, http.MethodDelete, "/api/v1/flats/"+flatOne.ID.String()+"/tenant", nil, manager)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, a.flats(t)[0].IsOccupied())
}

func TestAPI_Reject(t *testing.T) {
	a := newAPI(t)
	req := a.fx.Request(a.sc.Flats["2"].ID, a.sc.Tenant.ID)
	approver := a.fx.Profile("approver", "approver")
	headers := testutil.Headers(approver.ID.String(), "approver")
	path := "/api/v1/requests/" + req.ID.String() + "/reject"

	w := testutil.PerformRequest(t, a.engine, http.MethodPost, path, map[string]string{"notes": "   "}, headers)
	testutil.AssertErrorResponse(t, w, http.StatusBadRequest, dto.ErrCodeValidation)

	w = testutil.PerformRequest(t, a.engine, http.MethodPost, path, map[string]string{"notes": "incomplete documents"}, headers)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = testutil.PerformRequest(t, a.engine, http.MethodPost, "/api/v1/requests/"+uuid.NewString()+"/reject",
		map[string]string{"notes": "no such request"}, headers)
	testutil.AssertErrorResponse(t, w, http.StatusNotFound, dto.ErrCodeNotFound)
}

func TestAPI_IdentityRequired(t *testing.T) {
	a := newAPI(t)

	w := testutil.PerformRequest(t, a.engine, http.MethodGet, "/api/v1/requests", nil, nil)
	testutil.AssertErrorResponse(t, w, http.StatusUnauthorized, dto.ErrCodeUnauthorized)

	w = testutil.PerformRequest(t, a.engine, http.MethodDelete, "/api/v1/cache/"+a.sc.Manager.ID.String(), nil, nil)
	testutil.AssertErrorResponse(t, w, http.StatusUnauthorized, dto.ErrCodeUnauthorized)

	w = testutil.PerformRequest(t, a.engine, http.MethodDelete, "/api/v1/flats/"+a.sc.Flats["1"].ID.String()+"/tenant", nil,
		testutil.Headers(a.sc.Tenant.ID.String(), "tenant"))
	testutil.AssertErrorResponse(t, w, http.StatusForbidden, dto.ErrCodeForbidden)

	w = testutil.PerformRequest(t, a.engine, http.MethodDelete, "/api/v1/cache/"+a.sc.Manager.ID.String(), nil,
		testutil.Headers(a.sc.Manager.ID.String(), "manager"))
	testutil.AssertSuccessResponse(t, w)
}

func TestAPI_TenantVacatesOwnFlat(t *testing.T) {
	a := newAPI(t)
	flatOne := a.sc.Flats["1"]
	req := a.fx.Request(flatOne.ID, a.sc.Tenant.ID)
	approver := a.fx.Profile("approver", "approver")
	neighbour := a.fx.Profile("neighbour", "tenant")
	path := "/api/v1/flats/" + flatOne.ID.String() + "/tenant"

	w := testutil.PerformRequest(t, a.engine, http.MethodPost, "/api/v1/requests/"+req.ID.String()+"/approve", nil,
		testutil.Headers(approver.ID.String(), "approver"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = testutil.PerformRequest(t, a.engine, http.MethodDelete, path, nil, testutil.Headers(neighbour.ID.String(), "tenant"))
	testutil.AssertErrorResponse(t, w, http.StatusForbidden, dto.ErrCodeForbidden)
	assert.True(t, a.flats(t)[0].IsOccupied())

	w = testutil.PerformRequest(t, a.engine, http.MethodDelete, path, nil, testutil.Headers(a.sc.Tenant.ID.String(), "tenant"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, a.flats(t)[0].IsOccupied())
}
