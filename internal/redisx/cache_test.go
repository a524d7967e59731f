package redisx

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/pkg/errors"
)

type row struct {
	Name string `json:"name"`
}

func TestRemember_LoadsOnMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewCache(db)
	ctx := context.Background()
	key := ReportKey(ReportBestSellers, 3)

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, []byte(`[{"name":"ana"}]`), TTLReportCache).SetVal("OK")

	calls := 0
	got, err := Remember(ctx, c, key, TTLReportCache, func(context.Context) ([]row, error) {
		calls++
		return []row{{Name: "ana"}}, nil
	})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	if calls != 1 || len(got) != 1 || got[0].Name != "ana" {
		t.Errorf("got %+v after %d loads", got, calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRemember_Hit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewCache(db)
	key := ReportKey(ReportBestClients, 0)
	mock.ExpectGet(key).SetVal(`[{"name":"bo"}]`)

	got, err := Remember(context.Background(), c, key, TTLReportCache, func(context.Context) ([]row, error) {
		t.Fatal("load called on hit")
		return nil, nil
	})
	if err != nil || len(got) != 1 || got[0].Name != "bo" {
		t.Errorf("got %+v, %v", got, err)
	}
}

func TestRemember_LoadErrorIsNotCached(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewCache(db)
	key := ReportKey(ReportBestClients, 0)
	mock.ExpectGet(key).RedisNil()

	boom := errors.New("store down")
	_, err := Remember(context.Background(), c, key, TTLReportCache, func(context.Context) ([]row, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected load error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMarkOnce(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewCache(db)
	key := DedupKey("order-events", "ev-1")
	mock.ExpectSetNX(key, "1", TTLDedup).SetVal(true)
	mock.ExpectSetNX(key, "1", TTLDedup).SetVal(false)

	first, err := c.MarkOnce(context.Background(), key, TTLDedup)
	if err != nil || !first {
		t.Fatalf("first mark = %v, %v", first, err)
	}
	again, err := c.MarkOnce(context.Background(), key, TTLDedup)
	if err != nil || again {
		t.Fatalf("second mark = %v, %v", again, err)
	}
}

func TestClaim_ReturnsExisting(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewCache(db)
	key := IdemOrderKey("s1", "abc")
	mock.ExpectSetNX(key, "order-2", TTLIdempotency).SetVal(false)
	mock.ExpectGet(key).SetVal("order-1")

	got, fresh, err := c.Claim(context.Background(), key, "order-2", TTLIdempotency)
	if err != nil || fresh || got != "order-1" {
		t.Errorf("claim = %q, %v, %v", got, fresh, err)
	}
}

func TestClaimThenSet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewCache(db)
	ctx := context.Background()
	key := IdemOrderKey("s1", "abc")
	mock.ExpectSetNX(key, "pending", TTLIdempotency).SetVal(true)
	mock.ExpectSet(key, "order-1", TTLIdempotency).SetVal("OK")

	if _, fresh, err := c.Claim(ctx, key, "pending", TTLIdempotency); err != nil || !fresh {
		t.Fatalf("claim = %v, %v", fresh, err)
	}
	if err := c.Set(ctx, key, "order-1", TTLIdempotency); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestLowStockSet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewCache(db)
	ctx := context.Background()
	mock.ExpectSAdd(KeyLowStock, "p1").SetVal(1)
	mock.ExpectSRem(KeyLowStock, "p2").SetVal(1)
	mock.ExpectSMembers(KeyLowStock).SetVal([]string{"p1"})

	if err := c.SetLowStock(ctx, "p1", true); err != nil {
		t.Fatal(err)
	}
	if err := c.SetLowStock(ctx, "p2", false); err != nil {
		t.Fatal(err)
	}
	ids, err := c.LowStock(ctx)
	if err != nil || len(ids) != 1 || ids[0] != "p1" {
		t.Errorf("low stock = %v, %v", ids, err)
	}
}

func TestGetJSON_Miss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewCache(db)
	mock.ExpectGet(OrderKey("o1")).RedisNil()

	var out row
	ok, err := c.GetJSON(context.Background(), OrderKey("o1"), &out)
	if ok || err != nil {
		t.Errorf("miss = %v, %v", ok, err)
	}
}
