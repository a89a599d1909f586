package models

import "time"

// Статусы жизненного цикла заказа на подбор и миссии доставки.
// Переходы только вперёд: pending -> started -> completed.
const (
	StatusPending   = "pending"
	StatusStarted   = "started"
	StatusCompleted = "completed"
)

// Человекочитаемые фазы для транзитных уведомлений.
const (
	PhaseCoreOrdered        = "Core Ordered"
	PhasePickOrderStarted   = "Pick Order Started"
	PhasePickOrderCompleted = "Pick Order Completed"
	PhaseCoreInTransit      = "Core In Transit"
	PhaseCoreDelivered      = "Core Delivered"
)

type PickOrder struct {
	WarehouseID string
	OrderID     string
	PodID       string
	CoreID      string
	PickStatus  string
	// Version is the optimistic-concurrency token carried from the read
	// that selected the row.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ConveyanceMission struct {
	ConveyanceUnit   string
	MissionID        string
	Origin           string
	Destination      string
	TagID            string
	MissionStatus    string
	DispatchDateTime time.Time
	MissionStart     *time.Time
	MissionEnd       *time.Time
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// InventoryRecord — текущее состояние по FinishedProductId, свёрнутое из
// журнала изменений (inventory_events).
type InventoryRecord struct {
	ID                string
	FinishedProductID string
	PodID             string
	CoreID            string
	Status            string
	StatusDetail      *string
	StatusDateTime    time.Time
	// Version is the per-key log sequence that last touched this record.
	Version   int64
	UpdatedAt time.Time
}

// InventoryEvent — одна запись append-only журнала изменений.
// Seq присваивается хранилищем и задаёт порядок фида.
type InventoryEvent struct {
	Seq               int64
	ID                string
	FinishedProductID string
	PodID             string
	CoreID            string
	Status            string
	StatusDetail      *string
	StatusDateTime    time.Time
	CreatedAt         time.Time
}

type ContactRecord struct {
	MessageType  string
	PodID        string
	EmailAddress string
}
