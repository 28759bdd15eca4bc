package emailsvc

import (
	"bytes"
	"net/mail"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/maoni/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestMain(m *testing.M) {
	core.ParseEmailTemplates(core.NewTestConfig(), nopLogger{})
	os.Exit(m.Run())
}

func TestConsoleServiceMock_SendMessage(t *testing.T) {
	svc := NewConsoleServiceMock(core.NewTestConfig())
	to := []mail.Address{{Name: "Amani", Address: "amani@test.com"}}

	msgs := []*core.EmailMessage{
		{To: to, Subject: "Hi", BodyStr: "hello"},
		{To: to, Subject: "Test", TemplateName: "test", TemplateData: map[string]interface{}{"SentAt": "now"}},
		{Subject: "Nobody", BodyStr: "lost"}, // no recipients
	}
	svc.SendMessages(msgs...)

	sent := svc.SentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "hello", sent[0].TextContent)
	assert.Empty(t, sent[0].HTMLContent)
	assert.NotEmpty(t, sent[1].TextContent)
	assert.NotEmpty(t, sent[1].HTMLContent)

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}

func TestSendgridService_prepare(t *testing.T) {
	svc := NewSendgridService(core.NewTestConfig(), nopLogger{}).(*sendgridService)
	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "Amani", Address: "amani@test.com"}},
		Bcc:         []mail.Address{{Address: "audit@test.com"}},
		Subject:     "Report",
		TextContent: "see attached",
	}
	require.NoError(t, msg.Attach(bytes.NewBufferString("a,b\n1,2\n"), "report.csv", "text/csv"))

	m := svc.prepare(msg)
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[Maoni] Report", m.Personalizations[0].Subject)
	assert.Equal(t, "amani@test.com", m.Personalizations[0].To[0].Address)
	assert.Equal(t, "audit@test.com", m.Personalizations[0].BCC[0].Address)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	require.Len(t, m.Attachments, 1)
	assert.Equal(t, "report.csv", m.Attachments[0].Filename)
}
