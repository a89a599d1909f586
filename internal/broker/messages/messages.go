package messages

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Закрытый набор дискриминантов. Всё, что не отсюда — в dead-letter.
const (
	TypeOrderNextCore     = "OrderNextCore"
	TypeNextCoreInTransit = "NextCoreInTransit"
)

// OrderNextCoreMessage requests (or, once CoreId/FinishedProductId are filled
// in, records) the next core for a pod.
type OrderNextCoreMessage struct {
	MessageID         string    `json:"messageId"`
	MessageType       string    `json:"messageType"`
	PodID             string    `json:"podId"`
	CoreID            string    `json:"coreId,omitempty"`
	FinishedProductID string    `json:"finishedProductId,omitempty"`
	RequestDateTime   time.Time `json:"requestDateTime"`
}

// NextCoreInTransitMessage is emitted on every pick/mission status transition.
type NextCoreInTransitMessage struct {
	MessageID      string    `json:"messageId"`
	MessageType    string    `json:"messageType"`
	PodID          string    `json:"podId"`
	CoreID         string    `json:"coreId"`
	Status         string    `json:"status"`
	StatusDateTime time.Time `json:"statusDateTime"`
}

func NewOrderNextCore(podID string) OrderNextCoreMessage {
	return OrderNextCoreMessage{
		MessageID:   uuid.NewString(),
		MessageType: TypeOrderNextCore,
		PodID:       podID,
	}
}

func NewNextCoreInTransit(podID, coreID, status string, at time.Time) NextCoreInTransitMessage {
	return NextCoreInTransitMessage{
		MessageID:      uuid.NewString(),
		MessageType:    TypeNextCoreInTransit,
		PodID:          podID,
		CoreID:         coreID,
		Status:         status,
		StatusDateTime: at,
	}
}

// FormatError means the body is not a well-formed message of the expected
// type. Такие сообщения никогда не ретраим — только dead-letter.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "message format: " + e.Reason
}

type envelope struct {
	MessageType string `json:"messageType"`
}

// PeekType reads only the discriminant, without decoding the full body.
func PeekType(raw []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", &FormatError{Reason: "body is not valid JSON"}
	}
	if env.MessageType == "" {
		return "", &FormatError{Reason: "messageType is missing"}
	}
	switch env.MessageType {
	case TypeOrderNextCore, TypeNextCoreInTransit:
		return env.MessageType, nil
	default:
		return "", &FormatError{Reason: fmt.Sprintf("unknown messageType %q", env.MessageType)}
	}
}

func DecodeOrderNextCore(raw []byte) (OrderNextCoreMessage, error) {
	mt, err := PeekType(raw)
	if err != nil {
		return OrderNextCoreMessage{}, err
	}
	if mt != TypeOrderNextCore {
		return OrderNextCoreMessage{}, &FormatError{Reason: fmt.Sprintf("expected %s, got %s", TypeOrderNextCore, mt)}
	}
	var m OrderNextCoreMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return OrderNextCoreMessage{}, &FormatError{Reason: "malformed OrderNextCore body"}
	}
	return m, nil
}

func DecodeNextCoreInTransit(raw []byte) (NextCoreInTransitMessage, error) {
	mt, err := PeekType(raw)
	if err != nil {
		return NextCoreInTransitMessage{}, err
	}
	if mt != TypeNextCoreInTransit {
		return NextCoreInTransitMessage{}, &FormatError{Reason: fmt.Sprintf("expected %s, got %s", TypeNextCoreInTransit, mt)}
	}
	var m NextCoreInTransitMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return NextCoreInTransitMessage{}, &FormatError{Reason: "malformed NextCoreInTransit body"}
	}
	return m, nil
}
