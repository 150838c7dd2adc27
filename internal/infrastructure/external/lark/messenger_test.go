package lark

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/garyjia/invoice-manager/internal/application/port"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockMessages struct {
	requests []*larkim.CreateMessageReq
	resp     *larkim.CreateMessageResp
	err      error
}

func (m *mockMessages) Create(_ context.Context, req *larkim.CreateMessageReq, _ ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error) {
	m.requests = append(m.requests, req)
	return m.resp, m.err
}

func okResponse(id string) *larkim.CreateMessageResp {
	return &larkim.CreateMessageResp{
		Data: &larkim.CreateMessageRespData{MessageId: &id},
	}
}

func newTestMessenger(t *testing.T, messages *mockMessages) *Messenger {
	t.Helper()
	client := &Client{messages: messages, logger: zap.NewNop()}
	m, err := NewMessenger(client, Config{ReceiveID: "oc_billing"}, zap.NewNop())
	require.NoError(t, err)
	return m
}

func sampleNotice() port.EmailNotice {
	return port.EmailNotice{
		InvoiceNumber: "INV#OF-1A",
		To:            "asha@example.com",
		Subject:       "Your Invoice #INV#OF-1A",
		Attachment:    "Invoice_INV#OF-1A.pdf",
		SentAt:        time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC),
	}
}

func TestMessenger_NotifyEmailSent(t *testing.T) {
	messages := &mockMessages{resp: okResponse("om_1")}
	m := newTestMessenger(t, messages)

	err := m.NotifyEmailSent(context.Background(), sampleNotice())

	require.NoError(t, err)
	require.Len(t, messages.requests, 1)
	body := messages.requests[0].Body
	require.NotNil(t, body)
	assert.Equal(t, "oc_billing", *body.ReceiveId)
	assert.Equal(t, "text", *body.MsgType)

	var content map[string]string
	require.NoError(t, json.Unmarshal([]byte(*body.Content), &content))
	assert.Contains(t, content["text"], "Invoice INV#OF-1A emailed to asha@example.com")
	assert.Contains(t, content["text"], "Attachment: Invoice_INV#OF-1A.pdf")
	assert.Equal(t, "lark", m.Name())
}

func TestMessenger_APIFailure(t *testing.T) {
	resp := &larkim.CreateMessageResp{}
	resp.Code = 230001
	resp.Msg = "invalid receive_id"
	m := newTestMessenger(t, &mockMessages{resp: resp})

	err := m.NotifyEmailSent(context.Background(), sampleNotice())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "code=230001")
}

func TestMessenger_TransportFailure(t *testing.T) {
	cause := errors.New("connection reset")
	m := newTestMessenger(t, &mockMessages{err: cause})

	err := m.NotifyEmailSent(context.Background(), sampleNotice())

	assert.ErrorIs(t, err, cause)
}

func TestNewMessenger_Validation(t *testing.T) {
	client := &Client{messages: &mockMessages{}, logger: zap.NewNop()}

	_, err := NewMessenger(client, Config{}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewMessenger(client, Config{ReceiveID: "x", ReceiveIDType: "union_id"}, zap.NewNop())
	assert.Error(t, err)

	m, err := NewMessenger(client, Config{ReceiveID: "ou_1", ReceiveIDType: ReceiveOpenID}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, ReceiveOpenID, m.receiveIDType)
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{AppID: "cli_x"}, zap.NewNop())
	assert.Error(t, err)

	c, err := NewClient(Config{AppID: "cli_x", AppSecret: "secret"}, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, c.messages)
}

func TestFormatNotice(t *testing.T) {
	text := FormatNotice(port.EmailNotice{To: "a@example.com", Subject: "Hello"})
	assert.Equal(t, "Email sent to a@example.com\nSubject: Hello", text)

	text = FormatNotice(sampleNotice())
	assert.Contains(t, text, "Sent: 2025-03-04 10:30:00 UTC")
}
