package inform

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/airenas/async-api/pkg/inform"
	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vgarvardt/gue/v5"

	"github.com/clinika/scribe/internal/pkg/persistence"
	"github.com/clinika/scribe/internal/pkg/test"
	"github.com/clinika/scribe/internal/pkg/test/mocks"
	"github.com/clinika/scribe/internal/pkg/utils"
)

var (
	dbMock     *mocks.DB
	senderMock *mockEmailSender
	makerMock  *mockEmailMaker
	srvData    *ServiceData
)

func initTest(t *testing.T) {
	dbMock = &mocks.DB{}
	senderMock = &mockEmailSender{}
	makerMock = &mockEmailMaker{}
	srvData = &ServiceData{DB: dbMock, GueClient: &gue.Client{}, WorkerCount: 10, EmailSender: senderMock,
		EmailMaker: makerMock, Location: nil}
	dbMock.On("LoadTask", mock.Anything, "1").Return(testTask(t, "o@o.lt"), nil)
	dbMock.On("LockEmailTable", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	dbMock.On("UnLockEmailTable", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	senderMock.On("Send", mock.Anything).Return(nil)
	makerMock.On("Make", mock.Anything).Return(&email.Email{From: "o@o.lt", Text: []byte("text")}, nil)
}

func testTask(t *testing.T, emailStr string) *persistence.Task {
	t.Helper()
	bts, err := json.Marshal(&persistence.TaskInput{FileName: "olia.mp3", FileSize: 10, Email: emailStr})
	require.Nil(t, err)
	return &persistence.Task{TaskID: "1", Status: "COMPLETED", InputData: utils.ToSQLStr(string(bts))}
}

func Test_handleInform(t *testing.T) {
	initTest(t)
	err := handleInform(test.Ctx(t), &amessages.InformMessage{QueueMessage: amessages.QueueMessage{ID: "1"},
		Type: amessages.InformTypeStarted}, srvData)
	assert.Nil(t, err)
	require.Equal(t, 3, len(dbMock.Calls))
	assert.Equal(t, amessages.InformTypeStarted, dbMock.Calls[1].Arguments[2])
	assert.Equal(t, amessages.InformTypeStarted, dbMock.Calls[2].Arguments[2])
	assert.Equal(t, 2, *dbMock.Calls[2].Arguments[3].(*int))
	mailData := makerMock.Calls[0].Arguments[0].(*inform.Data)
	assert.Equal(t, "o@o.lt", mailData.Email)
	assert.Equal(t, "1", mailData.ID)
}

func Test_handleInform_Finished(t *testing.T) {
	initTest(t)
	err := handleInform(test.Ctx(t), &amessages.InformMessage{QueueMessage: amessages.QueueMessage{ID: "1"},
		Type: amessages.InformTypeFinished}, srvData)
	assert.Nil(t, err)
	require.Equal(t, 3, len(dbMock.Calls))
	assert.Equal(t, amessages.InformTypeFinished, dbMock.Calls[1].Arguments[2])
}

func Test_handleInform_NoEmail_Skips(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadTask", mock.Anything, "1").Return(testTask(t, ""), nil)
	err := handleInform(test.Ctx(t), &amessages.InformMessage{QueueMessage: amessages.QueueMessage{ID: "1"},
		Type: amessages.InformTypeStarted}, srvData)
	assert.Nil(t, err)
	require.Equal(t, 1, len(dbMock.Calls)) // just load
	require.Equal(t, 0, len(senderMock.Calls))
}

func Test_handleInform_FailDB(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadTask", mock.Anything, "1").Return(nil, fmt.Errorf("err"))
	err := handleInform(test.Ctx(t), &amessages.InformMessage{QueueMessage: amessages.QueueMessage{ID: "1"},
		Type: amessages.InformTypeStarted}, srvData)
	assert.NotNil(t, err)
}

func Test_handleInform_FailMaker(t *testing.T) {
	initTest(t)
	makerMock.ExpectedCalls = nil
	makerMock.On("Make", mock.Anything).Return(nil, fmt.Errorf("err"))
	err := handleInform(test.Ctx(t), &amessages.InformMessage{QueueMessage: amessages.QueueMessage{ID: "1"},
		Type: amessages.InformTypeStarted}, srvData)
	assert.NotNil(t, err)
}

func Test_handleInform_FailSender(t *testing.T) {
	initTest(t)
	senderMock.ExpectedCalls = nil
	senderMock.On("Send", mock.Anything).Return(fmt.Errorf("err"))
	err := handleInform(test.Ctx(t), &amessages.InformMessage{QueueMessage: amessages.QueueMessage{ID: "1"},
		Type: amessages.InformTypeStarted}, srvData)
	assert.NotNil(t, err)
	require.Equal(t, 3, len(dbMock.Calls))
	assert.Equal(t, 0, *dbMock.Calls[2].Arguments[3].(*int))
}

func Test_handleInform_FailLock(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadTask", mock.Anything, "1").Return(testTask(t, "o@o.lt"), nil)
	dbMock.On("LockEmailTable", mock.Anything, mock.Anything, mock.Anything).Return(fmt.Errorf("locked"))
	err := handleInform(test.Ctx(t), &amessages.InformMessage{QueueMessage: amessages.QueueMessage{ID: "1"},
		Type: amessages.InformTypeStarted}, srvData)
	assert.NotNil(t, err)
	require.Equal(t, 0, len(senderMock.Calls))
}

func Test_validate(t *testing.T) {
	initTest(t)
	type args struct {
		data *ServiceData
	}
	tests := []struct {
		name    string
		args    args
		wantErr bool
	}{
		{name: "OK", args: args{data: &ServiceData{DB: dbMock, GueClient: &gue.Client{}, WorkerCount: 10,
			EmailSender: senderMock, EmailMaker: makerMock}}, wantErr: false},
		{name: "Fail no db", args: args{data: &ServiceData{GueClient: &gue.Client{}, WorkerCount: 10,
			EmailSender: senderMock, EmailMaker: makerMock}}, wantErr: true},
		{name: "Fail no gue", args: args{data: &ServiceData{DB: dbMock, WorkerCount: 10,
			EmailSender: senderMock, EmailMaker: makerMock}}, wantErr: true},
		{name: "Fail no workers", args: args{data: &ServiceData{DB: dbMock, GueClient: &gue.Client{},
			EmailSender: senderMock, EmailMaker: makerMock}}, wantErr: true},
		{name: "Fail no sender", args: args{data: &ServiceData{DB: dbMock, GueClient: &gue.Client{},
			WorkerCount: 10, EmailMaker: makerMock}}, wantErr: true},
		{name: "Fail no maker", args: args{data: &ServiceData{DB: dbMock, GueClient: &gue.Client{},
			WorkerCount: 10, EmailSender: senderMock}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validate(tt.args.data); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type mockEmailSender struct{ mock.Mock }

func (m *mockEmailSender) Send(email *email.Email) error {
	args := m.Called(email)
	return args.Error(0)
}

type mockEmailMaker struct{ mock.Mock }

func (m *mockEmailMaker) Make(data *inform.Data) (*email.Email, error) {
	args := m.Called(data)
	return mocks.To[*email.Email](args.Get(0)), args.Error(1)
}
