package buildings

import (
	"context"
	"os"
	"testing"

	"github.com/paulmach/orb"
	"github.com/redis/go-redis/v9"

	"github.com/aclements/shade"
)

func TestFootprintEncoding(t *testing.T) {
	b := square("a", center, 20, 15)
	poly := b.Footprint.(orb.Polygon)
	poly = append(poly, orb.Ring{{4.4626, 51.9244}, {4.4627, 51.9244}, {4.4627, 51.9245}, {4.4626, 51.9244}})
	b.Footprint = poly

	data, err := encodeFootprint(b)
	if err != nil {
		t.Fatal(err)
	}
	got, err := decodeFootprint(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != b.ID || got.Height != b.Height {
		t.Errorf("expected %s/%v, got %s/%v", b.ID, b.Height, got.ID, got.Height)
	}
	if !orb.Equal(got.Footprint, b.Footprint) {
		t.Errorf("expected footprint %v, got %v", b.Footprint, got.Footprint)
	}

	if _, err := encodeFootprint(shade.BuildingFootprint{ID: "p", Footprint: orb.Point{1, 2}}); err == nil {
		t.Error("expected error encoding a point footprint")
	}
}

func TestFootprintExtent(t *testing.T) {
	// Half the diagonal of a 500 m square.
	b := square("big", shade.Destination(center, 400, 90), 500, 30)
	assertBetween(t, "500 m square extent", footprintExtent(b), 350, 357)

	b = square("small", center, 10, 30)
	assertBetween(t, "10 m square extent", footprintExtent(b), 7, 7.2)
}

func TestRedisIntegration(t *testing.T) {
	addr := os.Getenv("SHADE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SHADE_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	layer := "shade-test"
	keys := []string{layer + ":geo", layer + ":footprints", layer + ":extent"}
	rdb.Del(ctx, keys...)
	defer rdb.Del(ctx, keys...)

	near := square("near", shade.Destination(center, 100, 90), 20, 30)
	far := square("far", shade.Destination(center, 3000, 90), 20, 30)
	src := NewRedis(rdb, layer)
	n, err := src.Put(ctx, []shade.BuildingFootprint{near, far, {ID: "nothing"}})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 buildings stored, got %d", n)
	}

	got, err := src.QueryBuildings(ctx, center, 500)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "near" {
		t.Fatalf("expected [near], got %v", got)
	}
	if got[0].Height != 30 || !got[0].CanOcclude() {
		t.Errorf("expected usable 30m building, got %+v", got[0])
	}

	// A 500 m wide building whose center is 400 m away reaches within
	// 150 m of center, so a 200 m query must find it.
	big := square("big", shade.Destination(center, 400, 270), 500, 30)
	if _, err := src.Put(ctx, []shade.BuildingFootprint{big}); err != nil {
		t.Fatal(err)
	}
	got, err = src.QueryBuildings(ctx, center, 200)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, b := range got {
		found = found || b.ID == "big"
	}
	if !found {
		t.Errorf("expected large building in range by its walls to be returned, got %v", got)
	}
}

func assertBetween(t *testing.T, msg string, x, a, b float64) {
	t.Helper()
	if a <= x && x <= b {
		return
	}
	t.Errorf("got %s = %v, want in range [%v, %v]", msg, x, a, b)
}
