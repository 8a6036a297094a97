package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"applicant-intake/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const origin = "https://assistant.example.com"

func envelopeJSON(t *testing.T, mutate func(map[string]interface{})) []byte {
	t.Helper()
	env := map[string]interface{}{
		"source":    "CHATBOT_LWC",
		"type":      "APPLICANT_DATA",
		"validData": "true",
		"bookingId": "BK-1",
		"data":      []interface{}{map[string]interface{}{"generalDetails": map[string]interface{}{"firstName": "Asha"}}},
	}
	if mutate != nil {
		mutate(env)
	}
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return raw
}

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name       string
		raw        []byte
		wantReason string
	}{
		{"valid", envelopeJSON(t, nil), ""},
		{"not json", []byte("{source"), ReasonMalformed},
		{"wrong source", envelopeJSON(t, func(m map[string]interface{}) { m["source"] = "OTHER" }), ReasonSource},
		{"wrong type", envelopeJSON(t, func(m map[string]interface{}) { m["type"] = "PING" }), ReasonType},
		{"not valid data", envelopeJSON(t, func(m map[string]interface{}) { m["validData"] = "false" }), ReasonValidData},
		{"bool valid data fails schema", envelopeJSON(t, func(m map[string]interface{}) { m["validData"] = true }), ReasonSchema},
		{"missing source", envelopeJSON(t, func(m map[string]interface{}) { delete(m, "source") }), ReasonSchema},
		{"scalar data", envelopeJSON(t, func(m map[string]interface{}) { m["data"] = 42 }), ReasonSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeEnvelope(tt.raw)
			if tt.wantReason == "" {
				require.NoError(t, err)
				assert.Equal(t, "BK-1", env.BookingID)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrEnvelopeRejected)
			assert.Equal(t, tt.wantReason, RejectionReason(err))
		})
	}
}

func TestChannel_OriginAllowList(t *testing.T) {
	ctx := context.Background()
	log := logger.NewTestLogger(t)

	ch := NewChannel([]string{origin, ""}, time.Minute, NewMemoryDeduper(), log)
	_, err := ch.Receive(ctx, Message{Origin: origin, Body: envelopeJSON(t, nil)})
	require.NoError(t, err)

	_, err = ch.Receive(ctx, Message{Origin: "https://evil.example.com", Body: envelopeJSON(t, nil)})
	assert.Equal(t, ReasonOrigin, RejectionReason(err))

	_, err = ch.Receive(ctx, Message{Origin: "", Body: envelopeJSON(t, nil)})
	assert.Equal(t, ReasonOrigin, RejectionReason(err), "blank entries do not admit a blank origin")

	closed := NewChannel(nil, time.Minute, nil, log)
	_, err = closed.Receive(ctx, Message{Origin: origin, Body: envelopeJSON(t, nil)})
	assert.Equal(t, ReasonOrigin, RejectionReason(err))
}

func TestChannel_RequiresBooking(t *testing.T) {
	ch := NewChannel([]string{origin}, time.Minute, nil, logger.NewTestLogger(t))
	body := envelopeJSON(t, func(m map[string]interface{}) { delete(m, "bookingId") })

	_, err := ch.Receive(context.Background(), Message{Origin: origin, Body: body})
	assert.Equal(t, ReasonBooking, RejectionReason(err))
}

func TestChannel_DedupeWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ch := NewChannel([]string{origin}, time.Minute, NewRedisDeduper(client, "intake"), logger.NewTestLogger(t))
	ctx := context.Background()

	msg := Message{Origin: origin, MessageID: "m-1", Body: envelopeJSON(t, nil)}
	env, err := ch.Receive(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, "m-1", env.MessageID)
	assert.True(t, mr.Exists("intake:msg:BK-1:m-1"))

	_, err = ch.Receive(ctx, msg)
	assert.Equal(t, ReasonDuplicate, RejectionReason(err))

	mr.FastForward(2 * time.Minute)
	_, err = ch.Receive(ctx, msg)
	assert.NoError(t, err)
}

func TestChannel_DedupeStoreDownStillAccepts(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectSetNX("intake:msg:BK-1:m-1", 1, time.Minute).SetErr(errors.New("connection refused"))

	ch := NewChannel([]string{origin}, time.Minute, NewRedisDeduper(db, "intake"), logger.NewTestLogger(t))
	_, err := ch.Receive(context.Background(), Message{Origin: origin, MessageID: "m-1", Body: envelopeJSON(t, nil)})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryDeduper_Window(t *testing.T) {
	d := NewMemoryDeduper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }
	ctx := context.Background()

	first, _ := d.FirstSeen(ctx, "k", time.Second)
	assert.True(t, first)
	again, _ := d.FirstSeen(ctx, "k", time.Second)
	assert.False(t, again)

	now = now.Add(2 * time.Second)
	later, _ := d.FirstSeen(ctx, "k", time.Second)
	assert.True(t, later)
}

func TestTranscriptHelpers(t *testing.T) {
	reply := "Here you go\n```json\n[{\"generalDetails\":{\"firstName\":\"Asha\"}}]\n```"
	assert.JSONEq(t, `[{"generalDetails":{"firstName":"Asha"}}]`, string(ExtractFencedJSON(reply)))
	assert.Nil(t, ExtractFencedJSON("```json\n{broken\n```"))
	assert.Nil(t, ExtractFencedJSON("plain text"))

	env, ok := FromTranscript("Chatbot", "```json {broken ```", "BK-1", "m-2")
	require.True(t, ok)
	assert.Equal(t, "{}", string(env.Data))
	assert.Equal(t, "CHATBOT_LWC", env.Source)
	assert.Equal(t, "true", env.ValidData)

	_, ok = FromTranscript("EndUser", reply, "BK-1", "m-3")
	assert.False(t, ok)

	assert.Equal(t, map[string]string{"firstName": "Asha", "city": "Pune"},
		ParseKeyValuePairs(" firstName = Asha ,city=Pune,broken,=x,y="))
}
