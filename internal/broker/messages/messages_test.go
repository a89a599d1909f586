package messages

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPeekType_KnownTypes(t *testing.T) {
	mt, err := PeekType([]byte(`{"messageType":"OrderNextCore"}`))
	require.NoError(t, err)
	require.Equal(t, TypeOrderNextCore, mt)

	mt, err = PeekType([]byte(`{"messageType":"NextCoreInTransit"}`))
	require.NoError(t, err)
	require.Equal(t, TypeNextCoreInTransit, mt)
}

func TestPeekType_RejectsUnknownAndGarbage(t *testing.T) {
	var fe *FormatError

	_, err := PeekType([]byte(`{"messageType":"SomethingElse"}`))
	require.ErrorAs(t, err, &fe)

	_, err = PeekType([]byte(`{}`))
	require.ErrorAs(t, err, &fe)

	_, err = PeekType([]byte(`not json at all`))
	require.ErrorAs(t, err, &fe)
}

func TestDecodeOrderNextCore_WrongDiscriminant(t *testing.T) {
	msg := NewNextCoreInTransit("P1", "C42", "Pick Order Started", time.Now().UTC())
	b, err := json.Marshal(msg)
	require.NoError(t, err)

	var fe *FormatError
	_, err = DecodeOrderNextCore(b)
	require.ErrorAs(t, err, &fe)
}

func TestDecode_RoundTrip(t *testing.T) {
	in := NewOrderNextCore("P1")
	in.CoreID = "C42"
	in.FinishedProductID = "F7"
	in.RequestDateTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	b, err := json.Marshal(in)
	require.NoError(t, err)

	out, err := DecodeOrderNextCore(b)
	require.NoError(t, err)
	require.Equal(t, in, out)
	require.NotEmpty(t, out.MessageID)
	require.Equal(t, TypeOrderNextCore, out.MessageType)
}

func TestNewNextCoreInTransit_FillsEnvelope(t *testing.T) {
	at := time.Now().UTC()
	m := NewNextCoreInTransit("P1", "C42", "Core In Transit", at)
	require.NotEmpty(t, m.MessageID)
	require.Equal(t, TypeNextCoreInTransit, m.MessageType)
	require.Equal(t, at, m.StatusDateTime)
}
