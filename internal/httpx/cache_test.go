package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/ariefcatur/factory-orders/internal/auth"
	"github.com/ariefcatur/factory-orders/internal/catalog"
	"github.com/ariefcatur/factory-orders/internal/orders"
	"github.com/ariefcatur/factory-orders/internal/redisx"
	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
)

type cachedFixture struct {
	*api
	mock    redismock.ClientMock
	tok     string
	me      auth.Actor
	product catalog.Product
	client  catalog.Client
}

// newCachedFixture registers a seller who owns one client and a product with stock.
// None of this touches Redis, so the mock starts with no expectations.
func newCachedFixture(t *testing.T, stock int) *cachedFixture {
	t.Helper()
	db, mock := redismock.NewClientMock()
	f := &cachedFixture{api: newCachedAPI(t, redisx.NewCache(db)), mock: mock}
	f.tok = f.seller("ana@acme.com")
	if code := f.do(http.MethodGet, "/me", f.tok, nil, &f.me); code != http.StatusOK {
		t.Fatalf("me = %d", code)
	}
	if code := f.do(http.MethodPost, "/products", f.tok, catalog.ProductInput{Name: "Sponge", Category: "c", Quantity: &stock}, &f.product); code != http.StatusCreated {
		t.Fatalf("product = %d", code)
	}
	if code := f.do(http.MethodPost, "/clients", f.tok, catalog.ClientInput{Name: "C", Surname: "L", Company: "Co", Email: "c@co.com"}, &f.client); code != http.StatusCreated {
		t.Fatalf("client = %d", code)
	}
	return f
}

func (f *cachedFixture) place(qty int) orders.PlaceInput {
	return orders.PlaceInput{Client: f.client.ID, Items: []orders.LineItem{{Product: f.product.ID, Quantity: qty}}}
}

func (f *cachedFixture) stock() int {
	f.t.Helper()
	var p catalog.Product
	if code := f.do(http.MethodGet, "/products/"+f.product.ID, f.tok, nil, &p); code != http.StatusOK {
		f.t.Fatalf("product = %d", code)
	}
	return p.Quantity
}

func (f *cachedFixture) placed() int {
	f.t.Helper()
	mine, err := f.h.Orders.ListMine(context.Background(), f.me)
	if err != nil {
		f.t.Fatal(err)
	}
	return len(mine)
}

func (f *cachedFixture) met() {
	f.t.Helper()
	if err := f.mock.ExpectationsWereMet(); err != nil {
		f.t.Error(err)
	}
}

func idem(key string) http.Header { return http.Header{"Idempotency-Key": {key}} }

func TestCreateOrder_IdempotencyKeyStoredAfterPlace(t *testing.T) {
	f := newCachedFixture(t, 10)
	key := redisx.IdemOrderKey(f.me.ID, "k1")

	var stored string
	f.mock.ExpectSetNX(key, idemPending, redisx.TTLIdempotency).SetVal(true)
	f.mock.CustomMatch(func(_, actual []interface{}) error {
		if actual[1] != key {
			return fmt.Errorf("set %v, want %s", actual[1], key)
		}
		stored = fmt.Sprint(actual[2])
		return nil
	}).ExpectSet(key, "", redisx.TTLIdempotency).SetVal("OK")
	f.mock.Regexp().ExpectSet(`^order:`, `.+`, redisx.TTLOrderCache).SetVal("OK")

	var ord orders.Order
	if code := f.doHeader(http.MethodPost, "/orders", f.tok, idem("k1"), f.place(4), &ord); code != http.StatusCreated {
		t.Fatalf("place = %d", code)
	}
	if stored != ord.ID {
		t.Errorf("idempotency key holds %q, want %q", stored, ord.ID)
	}
	f.met()
}

func TestCreateOrder_ReplayReturnsFirstOrder(t *testing.T) {
	f := newCachedFixture(t, 10)
	first, err := f.h.Orders.Place(context.Background(), f.me, f.place(4))
	if err != nil {
		t.Fatal(err)
	}
	key := redisx.IdemOrderKey(f.me.ID, "k1")
	f.mock.ExpectSetNX(key, idemPending, redisx.TTLIdempotency).SetVal(false)
	f.mock.ExpectGet(key).SetVal(first.ID)

	var got orders.Order
	if code := f.doHeader(http.MethodPost, "/orders", f.tok, idem("k1"), f.place(4), &got); code != http.StatusOK {
		t.Fatalf("replay = %d, want 200", code)
	}
	if got.ID != first.ID {
		t.Errorf("replay returned %s, want %s", got.ID, first.ID)
	}
	if n := f.placed(); n != 1 {
		t.Errorf("%d orders, want 1", n)
	}
	if q := f.stock(); q != 6 {
		t.Errorf("stock = %d, want 6", q)
	}
	f.met()
}

func TestCreateOrder_InFlightKeyConflicts(t *testing.T) {
	f := newCachedFixture(t, 10)
	key := redisx.IdemOrderKey(f.me.ID, "k1")
	f.mock.ExpectSetNX(key, idemPending, redisx.TTLIdempotency).SetVal(false)
	f.mock.ExpectGet(key).SetVal(idemPending)

	if code := f.doHeader(http.MethodPost, "/orders", f.tok, idem("k1"), f.place(4), nil); code != http.StatusConflict {
		t.Fatalf("in flight = %d, want 409", code)
	}
	if n := f.placed(); n != 0 {
		t.Errorf("%d orders, want 0", n)
	}
	if q := f.stock(); q != 10 {
		t.Errorf("stock = %d, want 10", q)
	}
	f.met()
}

func TestCreateOrder_FailedPlaceReleasesKey(t *testing.T) {
	f := newCachedFixture(t, 10)
	key := redisx.IdemOrderKey(f.me.ID, "k1")
	f.mock.ExpectSetNX(key, idemPending, redisx.TTLIdempotency).SetVal(true)
	f.mock.ExpectDel(key).SetVal(1)

	if code := f.doHeader(http.MethodPost, "/orders", f.tok, idem("k1"), f.place(11), nil); code != http.StatusUnprocessableEntity {
		t.Fatalf("oversell = %d", code)
	}
	if q := f.stock(); q != 10 {
		t.Errorf("stock = %d, want 10", q)
	}
	f.met()
}

func TestGetOrder_CachedOwnership(t *testing.T) {
	f := newCachedFixture(t, 10)
	foreign, _ := json.Marshal(orders.Order{ID: "o-1", Seller: "someone-else", Status: orders.StatusPending})
	own, _ := json.Marshal(orders.Order{ID: "o-2", Seller: f.me.ID, Status: orders.StatusPending})
	f.mock.ExpectGet(redisx.OrderKey("o-1")).SetVal(string(foreign))
	f.mock.ExpectGet(redisx.OrderKey("o-2")).SetVal(string(own))

	if code := f.do(http.MethodGet, "/orders/o-1", f.tok, nil, nil); code != http.StatusForbidden {
		t.Errorf("foreign cached order = %d, want 403", code)
	}
	// o-2 exists only in the cache.
	var got orders.Order
	if code := f.do(http.MethodGet, "/orders/o-2", f.tok, nil, &got); code != http.StatusOK || got.ID != "o-2" {
		t.Errorf("own cached order = %d %+v", code, got)
	}
	f.met()
}

func TestGetOrder_MissFillsCache(t *testing.T) {
	f := newCachedFixture(t, 10)
	ord, err := f.h.Orders.Place(context.Background(), f.me, f.place(2))
	if err != nil {
		t.Fatal(err)
	}
	f.mock.ExpectGet(redisx.OrderKey(ord.ID)).RedisNil()
	f.mock.Regexp().ExpectSet(redisx.OrderKey(ord.ID), `.+`, redisx.TTLOrderCache).SetVal("OK")

	var got orders.Order
	if code := f.do(http.MethodGet, "/orders/"+ord.ID, f.tok, nil, &got); code != http.StatusOK || got.ID != ord.ID {
		t.Errorf("get = %d %+v", code, got)
	}
	f.met()
}

func TestUpdateAndDeleteDropCachedOrder(t *testing.T) {
	f := newCachedFixture(t, 10)
	ord, err := f.h.Orders.Place(context.Background(), f.me, f.place(2))
	if err != nil {
		t.Fatal(err)
	}
	f.mock.ExpectDel(redisx.OrderKey(ord.ID)).SetVal(1)
	f.mock.ExpectDel(redisx.OrderKey(ord.ID)).SetVal(0)

	done := orders.StatusCompleted
	if code := f.do(http.MethodPut, "/orders/"+ord.ID, f.tok, orders.UpdateInput{Status: &done}, nil); code != http.StatusOK {
		t.Fatalf("update = %d", code)
	}
	if code := f.do(http.MethodDelete, "/orders/"+ord.ID, f.tok, nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete = %d", code)
	}
	f.met()
}

func TestReports_ServedThroughCache(t *testing.T) {
	f := newCachedFixture(t, 10)
	f.mock.ExpectGet(redisx.ReportKey(redisx.ReportBestClients, 0)).SetVal(`[{"total":"42","client":null}]`)
	f.mock.ExpectGet(redisx.ReportKey(redisx.ReportBestSellers, 5)).RedisNil()
	f.mock.Regexp().ExpectSet(redisx.ReportKey(redisx.ReportBestSellers, 5), `.+`, redisx.TTLReportCache).SetVal("OK")
	f.mock.ExpectSMembers(redisx.KeyLowStock).SetVal([]string{"p1"})

	// Nothing is completed, so only the cache can produce this row.
	var top []orders.TopClient
	if code := f.do(http.MethodGet, "/reports/best-clients", f.tok, nil, &top); code != http.StatusOK {
		t.Fatalf("best clients = %d", code)
	}
	if len(top) != 1 || !top[0].Total.Equal(decimal.NewFromInt(42)) {
		t.Errorf("best clients = %+v", top)
	}
	if code := f.do(http.MethodGet, "/reports/best-sellers?limit=5", f.tok, nil, nil); code != http.StatusOK {
		t.Fatalf("best sellers = %d", code)
	}
	var low map[string][]string
	if code := f.do(http.MethodGet, "/reports/low-stock", f.tok, nil, &low); code != http.StatusOK || len(low["products"]) != 1 || low["products"][0] != "p1" {
		t.Errorf("low stock = %d %v", code, low)
	}
	f.met()
}
