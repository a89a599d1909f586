package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"

	"github.com/coolrevive/corefulfill/internal/broker/messages"
	"github.com/coolrevive/corefulfill/internal/models"
	"github.com/coolrevive/corefulfill/internal/problem"
	"github.com/coolrevive/corefulfill/internal/storage/pgfulfill"
)

type orderingService interface {
	RequestNextCore(ctx context.Context, msg messages.OrderNextCoreMessage, instance string) problem.Response
}

type inventoryReader interface {
	GetInventory(ctx context.Context, finishedProductID string) (*models.InventoryRecord, error)
}

// intakeStore — точка входа внешнего процесса заведения заказов и контактов.
type intakeStore interface {
	InsertPickOrder(ctx context.Context, po *models.PickOrder) error
	UpsertContact(ctx context.Context, c *models.ContactRecord) error
}

type apiDeps struct {
	ordering  orderingService
	inventory inventoryReader
	intake    intakeStore
}

type apiOpts struct {
	httpAddr string
	onListen func(httpAddr string)
}

func runFulfillAPI(ctx context.Context, opts apiOpts, deps apiDeps) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8080"
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: newRouter(deps)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	return srv.Serve(lis)
}

func newRouter(deps apiDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/next-core", func(w http.ResponseWriter, req *http.Request) {
		instance := middleware.GetReqID(req.Context())

		var msg messages.OrderNextCoreMessage
		if err := json.NewDecoder(req.Body).Decode(&msg); err != nil {
			writeJSON(w, http.StatusBadRequest, problem.Validation("request body is not valid JSON", instance))
			return
		}
		resp := deps.ordering.RequestNextCore(req.Context(), msg, instance)
		writeJSON(w, resp.Status, resp)
	})

	r.Get("/inventory/{finishedProductId}", func(w http.ResponseWriter, req *http.Request) {
		instance := middleware.GetReqID(req.Context())
		id := chi.URLParam(req, "finishedProductId")

		rec, err := deps.inventory.GetInventory(req.Context(), id)
		if errors.Is(err, pgfulfill.ErrNotFound) {
			p := problem.NotFound("no inventory record for finished product "+id, instance)
			writeJSON(w, p.Status, p)
			return
		}
		if err != nil {
			p := problem.Internal(err.Error(), instance)
			writeJSON(w, p.Status, p)
			return
		}
		writeJSON(w, http.StatusOK, toInventoryResponse(rec))
	})

	r.Post("/pick-orders", func(w http.ResponseWriter, req *http.Request) {
		instance := middleware.GetReqID(req.Context())

		var in pickOrderRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, problem.Validation("request body is not valid JSON", instance))
			return
		}
		if in.WarehouseID == "" || in.OrderID == "" || in.PodID == "" || in.CoreID == "" {
			writeJSON(w, http.StatusBadRequest,
				problem.Validation("warehouseId, orderId, podId and coreId are required", instance))
			return
		}

		po := &models.PickOrder{
			WarehouseID: in.WarehouseID,
			OrderID:     in.OrderID,
			PodID:       in.PodID,
			CoreID:      in.CoreID,
			PickStatus:  models.StatusPending,
		}
		if err := deps.intake.InsertPickOrder(req.Context(), po); err != nil {
			p := problem.Internal(err.Error(), instance)
			writeJSON(w, p.Status, p)
			return
		}
		writeJSON(w, http.StatusCreated, problem.Created(
			"Pick order accepted.",
			"The pick order has been queued for the warehouse sweep.",
			instance,
			map[string]any{"WarehouseId": po.WarehouseID, "OrderId": po.OrderID},
		))
	})

	r.Put("/contacts", func(w http.ResponseWriter, req *http.Request) {
		instance := middleware.GetReqID(req.Context())

		var in contactRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, problem.Validation("request body is not valid JSON", instance))
			return
		}
		if in.MessageType == "" || in.PodID == "" || in.EmailAddress == "" {
			writeJSON(w, http.StatusBadRequest,
				problem.Validation("messageType, podId and emailAddress are required", instance))
			return
		}

		err := deps.intake.UpsertContact(req.Context(), &models.ContactRecord{
			MessageType:  in.MessageType,
			PodID:        in.PodID,
			EmailAddress: in.EmailAddress,
		})
		if err != nil {
			p := problem.Internal(err.Error(), instance)
			writeJSON(w, p.Status, p)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

type pickOrderRequest struct {
	WarehouseID string `json:"warehouseId"`
	OrderID     string `json:"orderId"`
	PodID       string `json:"podId"`
	CoreID      string `json:"coreId"`
}

type contactRequest struct {
	MessageType  string `json:"messageType"`
	PodID        string `json:"podId"`
	EmailAddress string `json:"emailAddress"`
}

type inventoryResponse struct {
	ID                string    `json:"id"`
	FinishedProductID string    `json:"finishedProductId"`
	PodID             string    `json:"podId"`
	CoreID            string    `json:"coreId"`
	Status            string    `json:"status"`
	StatusDetail      *string   `json:"statusDetail,omitempty"`
	StatusDateTime    time.Time `json:"statusDateTime"`
}

func toInventoryResponse(rec *models.InventoryRecord) inventoryResponse {
	return inventoryResponse{
		ID:                rec.ID,
		FinishedProductID: rec.FinishedProductID,
		PodID:             rec.PodID,
		CoreID:            rec.CoreID,
		Status:            rec.Status,
		StatusDetail:      rec.StatusDetail,
		StatusDateTime:    rec.StatusDateTime,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
