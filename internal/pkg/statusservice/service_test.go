package statusservice

import (
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/clinika/scribe/internal/pkg/persistence"
	"github.com/clinika/scribe/internal/pkg/postgres"
	"github.com/clinika/scribe/internal/pkg/test"
	"github.com/clinika/scribe/internal/pkg/test/mocks"
	"github.com/clinika/scribe/internal/pkg/utils"
)

var (
	wsHandlerMock *mockWSConnHandler
	dbMock        *mocks.DB
	tData         *Data
	tEcho         *echo.Echo
	tResp         *httptest.ResponseRecorder
)

func initTest(t *testing.T) {
	wsHandlerMock = &mockWSConnHandler{}
	dbMock = &mocks.DB{}
	tData = &Data{}
	tData.DB = dbMock
	tData.WSHandler = wsHandlerMock
	tEcho = initRoutes(tData)
	tResp = httptest.NewRecorder()
	dbMock.On("LoadTask", mock.Anything, mock.Anything).Return(&persistence.Task{TaskID: "1",
		Status: "PENDING", Created: time.Date(2023, 1, 5, 10, 0, 0, 0, time.UTC)}, nil)
}

func TestWrongPath(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/invalid", nil)
	testCode(t, req, 404)
}

func TestWrongMethod(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodPost, "/status/1", nil)
	testCode(t, req, 405)
}

func Test_Status_Returns(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/status/1", nil)
	resp := testCode(t, req, http.StatusOK)
	res := test.Decode[result](t, resp.Result())
	assert.Equal(t, "1", res.TaskID)
	assert.Equal(t, "PENDING", res.Status)
	assert.Equal(t, "2023-01-05T10:00:00Z", res.CreatedAt)
	assert.Empty(t, res.ErrorMessage)
	assert.Nil(t, res.MedicalRecordID)
}

func Test_Status_Completed(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadTask", mock.Anything, mock.Anything).Return(&persistence.Task{TaskID: "1",
		Status: "COMPLETED", ResultData: utils.ToSQLStr(`{"original_text":"olia"}`),
		MedicalRecordID: utils.ToSQLInt64(ptr(int64(77))),
		Created:         time.Date(2023, 1, 5, 10, 0, 0, 0, time.UTC),
		StartedAt:       toSQLTime(time.Date(2023, 1, 5, 10, 0, 5, 0, time.UTC)),
		CompletedAt:     toSQLTime(time.Date(2023, 1, 5, 10, 1, 0, 0, time.UTC))}, nil)
	req := httptest.NewRequest(http.MethodGet, "/status/1", nil)
	resp := testCode(t, req, http.StatusOK)
	res := test.Decode[result](t, resp.Result())
	assert.Equal(t, "COMPLETED", res.Status)
	assert.JSONEq(t, `{"original_text":"olia"}`, string(res.ResultData))
	require.NotNil(t, res.MedicalRecordID)
	assert.Equal(t, int64(77), *res.MedicalRecordID)
	assert.Equal(t, "2023-01-05T10:00:05Z", res.StartedAt)
	assert.Equal(t, "2023-01-05T10:01:00Z", res.CompletedAt)
}

func Test_Status_NotFound(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadTask", mock.Anything, mock.Anything).Return(nil, postgres.ErrNoRecord)
	req := httptest.NewRequest(http.MethodGet, "/status/2", nil)
	testCode(t, req, http.StatusNotFound)
}

func Test_Status_Fail(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadTask", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("olia"))
	req := httptest.NewRequest(http.MethodGet, "/status/1", nil)
	testCode(t, req, http.StatusInternalServerError)
}

func Test_Live(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	testCode(t, req, 200)
}

func testCode(t *testing.T, req *http.Request, code int) *httptest.ResponseRecorder {
	t.Helper()
	tEcho.ServeHTTP(tResp, req)
	require.Equal(t, code, tResp.Code)
	return tResp
}

func Test_validate(t *testing.T) {
	initTest(t)
	type args struct {
		data *Data
	}
	tests := []struct {
		name    string
		args    args
		wantErr bool
	}{
		{name: "OK", args: args{data: &Data{DB: dbMock, WSHandler: wsHandlerMock}}, wantErr: false},
		{name: "Fail Handler", args: args{data: &Data{DB: dbMock}}, wantErr: true},
		{name: "Fail DB", args: args{data: &Data{WSHandler: wsHandlerMock}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validate(tt.args.data); (err != nil) != tt.wantErr {
				t.Errorf("StartWebServer() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}

func toSQLTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

type mockWSConnHandler struct{ mock.Mock }

func (m *mockWSConnHandler) HandleConnection(wc WsConn) error {
	args := m.Called(wc)
	return args.Error(0)
}

func (m *mockWSConnHandler) GetConnections(id string) ([]WsConn, bool) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).([]WsConn), args.Bool(1)
}
