package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coolrevive/corefulfill/internal/broker/messages"
	"github.com/coolrevive/corefulfill/internal/models"
	"github.com/coolrevive/corefulfill/internal/problem"
	"github.com/coolrevive/corefulfill/internal/storage/pgfulfill"
)

type fakeOrdering struct {
	lastMsg messages.OrderNextCoreMessage
}

func (f *fakeOrdering) RequestNextCore(ctx context.Context, msg messages.OrderNextCoreMessage, instance string) problem.Response {
	f.lastMsg = msg
	if msg.PodID == "" {
		return problem.Validation("podId is required", instance)
	}
	return problem.Created("Request for next core id sent.", "queued", instance,
		map[string]any{"PodId": msg.PodID})
}

type fakeInventory struct {
	records map[string]*models.InventoryRecord
}

func (f *fakeInventory) GetInventory(ctx context.Context, id string) (*models.InventoryRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, pgfulfill.ErrNotFound
	}
	return rec, nil
}

type fakeIntake struct {
	picks    []*models.PickOrder
	contacts []*models.ContactRecord
}

func (f *fakeIntake) InsertPickOrder(ctx context.Context, po *models.PickOrder) error {
	f.picks = append(f.picks, po)
	return nil
}

func (f *fakeIntake) UpsertContact(ctx context.Context, c *models.ContactRecord) error {
	f.contacts = append(f.contacts, c)
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeOrdering, *fakeInventory, *fakeIntake) {
	t.Helper()
	ord := &fakeOrdering{}
	inv := &fakeInventory{records: make(map[string]*models.InventoryRecord)}
	intake := &fakeIntake{}
	srv := httptest.NewServer(newRouter(apiDeps{ordering: ord, inventory: inv, intake: intake}))
	t.Cleanup(srv.Close)
	return srv, ord, inv, intake
}

func TestNextCore_Created(t *testing.T) {
	srv, ord, _, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/next-core", "application/json",
		bytes.NewBufferString(`{"messageType":"OrderNextCore","podId":"P1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out problem.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "P1", out.Extensions["PodId"])
	require.Equal(t, "P1", ord.lastMsg.PodID)
}

func TestNextCore_BadJSON(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/next-core", "application/json",
		bytes.NewBufferString(`{nope`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNextCore_MissingPodRejected(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/next-core", "application/json",
		bytes.NewBufferString(`{"messageType":"OrderNextCore"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetInventory(t *testing.T) {
	srv, _, inv, _ := newTestServer(t)
	inv.records["F7"] = &models.InventoryRecord{
		FinishedProductID: "F7", PodID: "P1", CoreID: "C42",
		Status: models.PhaseCoreOrdered, StatusDateTime: time.Now().UTC(),
	}

	resp, err := http.Get(srv.URL + "/inventory/F7")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out inventoryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "F7", out.FinishedProductID)
	require.Equal(t, models.PhaseCoreOrdered, out.Status)

	resp2, err := http.Get(srv.URL + "/inventory/F404")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestPickOrderIntake(t *testing.T) {
	srv, _, _, intake := newTestServer(t)

	resp, err := http.Post(srv.URL+"/pick-orders", "application/json",
		bytes.NewBufferString(`{"warehouseId":"W1","orderId":"O1","podId":"P1","coreId":"C42"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.Len(t, intake.picks, 1)
	require.Equal(t, models.StatusPending, intake.picks[0].PickStatus)

	resp2, err := http.Post(srv.URL+"/pick-orders", "application/json",
		bytes.NewBufferString(`{"warehouseId":"W1"}`))
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestContactUpsert(t *testing.T) {
	srv, _, _, intake := newTestServer(t)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/contacts",
		bytes.NewBufferString(`{"messageType":"NextCoreInTransit","podId":"P1","emailAddress":"p1@coolrevive.test"}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Len(t, intake.contacts, 1)
}
