// internal/workers/intake/ingest-assistant-data/handler_test.go
package ingestassistantdata

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"applicant-intake/internal/common/logger"
	"applicant-intake/internal/intake/ingest"
	"applicant-intake/internal/intake/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockIngester struct {
	mock.Mock
}

func (m *mockIngester) IngestEnvelope(ctx context.Context, msg ingest.Message) (service.IngestResult, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(service.IngestResult), args.Error(1)
}

func newHandler(t *testing.T, svc Ingester) *Handler {
	return NewHandler(&Config{Timeout: time.Second}, svc, nil, logger.NewTestLogger(t))
}

func TestExecute_Accepted(t *testing.T) {
	body := `{"source":"assistant","type":"applicantData","validData":"true","bookingId":"BK-1","data":[]}`
	svc := new(mockIngester)
	svc.On("IngestEnvelope", mock.Anything, ingest.Message{
		Origin:    "https://assistant.example.com",
		MessageID: "m-1",
		Body:      []byte(body),
	}).Return(service.IngestResult{
		Accepted:  true,
		BookingID: "BK-1",
		Merge: &ingest.MergeResult{
			Appended: []string{"a-2"},
			Applied:  4,
			Dropped:  []ingest.DroppedField{{Position: 0, Key: "income", Reason: "unknown field"}},
		},
	}, nil)

	out, err := newHandler(t, svc).execute(context.Background(), &Input{
		Origin:    "https://assistant.example.com",
		MessageID: "m-1",
		Envelope:  json.RawMessage(body),
	})
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	assert.Equal(t, "BK-1", out.BookingID)
	assert.Equal(t, []string{"a-2"}, out.Appended)
	assert.Equal(t, 4, out.Applied)
	assert.Len(t, out.Dropped, 1)
	svc.AssertExpectations(t)
}

func TestExecute_StringEnvelopeIsUnwrapped(t *testing.T) {
	svc := new(mockIngester)
	svc.On("IngestEnvelope", mock.Anything, mock.MatchedBy(func(msg ingest.Message) bool {
		return string(msg.Body) == `{"source":"assistant"}`
	})).Return(service.IngestResult{Reason: ingest.ReasonType}, nil)

	out, err := newHandler(t, svc).execute(context.Background(), &Input{
		Origin:   "https://assistant.example.com",
		Envelope: json.RawMessage(`"{\"source\":\"assistant\"}"`),
	})
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, ingest.ReasonType, out.Reason)
	assert.Empty(t, out.Appended)
}

func TestExecute_StoreFailure(t *testing.T) {
	svc := new(mockIngester)
	svc.On("IngestEnvelope", mock.Anything, mock.Anything).
		Return(service.IngestResult{}, errors.New("redis down"))

	_, err := newHandler(t, svc).execute(context.Background(), &Input{Envelope: json.RawMessage(`{}`)})
	assert.Error(t, err)
}
