package ordering

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coolrevive/corefulfill/internal/broker/kafka"
	"github.com/coolrevive/corefulfill/internal/broker/messages"
	"github.com/coolrevive/corefulfill/internal/integrations/podlookup"
)

type fakeProducer struct {
	published []struct {
		topic string
		key   []byte
		value []byte
	}
	err error
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	p.published = append(p.published, struct {
		topic string
		key   []byte
		value []byte
	}{topic, key, value})
	return p.err
}

type fakeLookup struct {
	res podlookup.Result
	err error
}

func (l fakeLookup) GetNextCore(ctx context.Context, podID string) (podlookup.Result, error) {
	return l.res, l.err
}

func TestRequestNextCore_RequiresPodID(t *testing.T) {
	fp := &fakeProducer{}
	s := New(fp, fakeLookup{}, "core.resolve", "core.order")

	resp := s.RequestNextCore(context.Background(), messages.OrderNextCoreMessage{}, "req-1")
	require.True(t, resp.IsProblem())
	require.Equal(t, http.StatusBadRequest, resp.Status)
	require.Empty(t, fp.published)
}

func TestRequestNextCore_PublishesToResolveTopic(t *testing.T) {
	fp := &fakeProducer{}
	s := New(fp, fakeLookup{}, "core.resolve", "core.order")

	msg := messages.NewOrderNextCore("P1")
	resp := s.RequestNextCore(context.Background(), msg, "req-1")
	require.False(t, resp.IsProblem())
	require.Equal(t, "P1", resp.Extensions["PodId"])
	require.Len(t, fp.published, 1)
	require.Equal(t, "core.resolve", fp.published[0].topic)

	var sent messages.OrderNextCoreMessage
	require.NoError(t, json.Unmarshal(fp.published[0].value, &sent))
	require.False(t, sent.RequestDateTime.IsZero(), "request time defaults to now")
}

func TestRequestNextCore_FillsEnvelope(t *testing.T) {
	fp := &fakeProducer{}
	s := New(fp, fakeLookup{}, "core.resolve", "core.order")

	// Голый HTTP-запрос без конверта.
	resp := s.RequestNextCore(context.Background(), messages.OrderNextCoreMessage{PodID: "P1"}, "req-1")
	require.False(t, resp.IsProblem())

	sent, err := messages.DecodeOrderNextCore(fp.published[0].value)
	require.NoError(t, err)
	require.NotEmpty(t, sent.MessageID)
	require.Equal(t, messages.TypeOrderNextCore, sent.MessageType)
}

func TestRequestNextCore_KnownCoreAlsoOrders(t *testing.T) {
	fp := &fakeProducer{}
	s := New(fp, fakeLookup{}, "core.resolve", "core.order")

	msg := messages.NewOrderNextCore("P1")
	msg.CoreID = "C42"
	msg.FinishedProductID = "F7"
	resp := s.RequestNextCore(context.Background(), msg, "req-1")
	require.False(t, resp.IsProblem())
	// Сначала заказ, потом заявка на резолв.
	require.Len(t, fp.published, 2)
	require.Equal(t, "core.order", fp.published[0].topic)
	require.Equal(t, "core.resolve", fp.published[1].topic)
}

func TestOrderNextCore_RequiresCoreID(t *testing.T) {
	fp := &fakeProducer{}
	s := New(fp, fakeLookup{}, "core.resolve", "core.order")

	resp := s.OrderNextCore(context.Background(), messages.NewOrderNextCore("P1"), "req-1")
	require.True(t, resp.IsProblem())
	require.Empty(t, fp.published)
}

func TestHandleResolveRequest_ResolvesAndOrders(t *testing.T) {
	fp := &fakeProducer{}
	s := New(fp, fakeLookup{res: podlookup.Result{CoreID: "C42", FinishedProductID: "F7"}},
		"core.resolve", "core.order")

	msg := messages.NewOrderNextCore("P1")
	msg.RequestDateTime = time.Now().UTC()
	b, err := json.Marshal(msg)
	require.NoError(t, err)

	outcome, err := s.HandleResolveRequest(context.Background(), b)
	require.NoError(t, err)
	require.Equal(t, kafka.Complete, outcome)
	require.Len(t, fp.published, 1)
	require.Equal(t, "core.order", fp.published[0].topic)

	var sent messages.OrderNextCoreMessage
	require.NoError(t, json.Unmarshal(fp.published[0].value, &sent))
	require.Equal(t, "C42", sent.CoreID)
	require.Equal(t, "F7", sent.FinishedProductID)
	require.Equal(t, msg.MessageID, sent.MessageID)
}

func TestHandleResolveRequest_BadBodyDeadLetters(t *testing.T) {
	fp := &fakeProducer{}
	s := New(fp, fakeLookup{}, "core.resolve", "core.order")

	outcome, err := s.HandleResolveRequest(context.Background(), []byte(`{"messageType":"Nope"}`))
	require.NoError(t, err)
	require.Equal(t, kafka.DeadLetter, outcome)
	require.Empty(t, fp.published)
}

func TestHandleResolveRequest_LookupFailureDeadLetters(t *testing.T) {
	fp := &fakeProducer{}
	s := New(fp, fakeLookup{err: errors.New("schedule is down")}, "core.resolve", "core.order")

	msg := messages.NewOrderNextCore("P1")
	b, _ := json.Marshal(msg)
	outcome, err := s.HandleResolveRequest(context.Background(), b)
	require.NoError(t, err)
	require.Equal(t, kafka.DeadLetter, outcome)
	require.Empty(t, fp.published)
}

func TestHandleResolveRequest_PublishFailureIsTransient(t *testing.T) {
	fp := &fakeProducer{err: errors.New("broker down")}
	s := New(fp, fakeLookup{res: podlookup.Result{CoreID: "C42", FinishedProductID: "F7"}},
		"core.resolve", "core.order")

	msg := messages.NewOrderNextCore("P1")
	b, _ := json.Marshal(msg)
	_, err := s.HandleResolveRequest(context.Background(), b)
	require.Error(t, err)
}
