package shade

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestResolveBelowHorizon(t *testing.T) {
	// Local midnight in Rotterdam (CEST).
	midnight := time.Date(2024, 6, 21, 22, 0, 0, 0, time.UTC)
	// Buildings don't matter when the sun is down.
	src := BuildingSourceFunc(func(context.Context, GroundPoint, float64) ([]BuildingFootprint, error) {
		t.Error("building source should not be queried at night")
		return nil, nil
	})
	res, err := ResolveSunlightStatus(context.Background(), rotterdam, midnight, src)
	if err != nil {
		t.Fatal(err)
	}
	if res.InSunlight || res.Method != MethodAstronomical || res.Details != "Sun is below horizon" {
		t.Errorf("expected astronomical shade, got %+v", res)
	}
}

func TestResolveNoBuildings(t *testing.T) {
	res, err := ResolveSunlightStatus(context.Background(), rotterdam, rotterdamNoon, NoBuildings)
	if err != nil {
		t.Fatal(err)
	}
	if !res.InSunlight || res.Method != MethodRayTracing {
		t.Errorf("expected ray-traced sunlight, got %+v", res)
	}
	if !strings.Contains(res.Details, "0 buildings checked") {
		t.Errorf("unexpected details %q", res.Details)
	}
}

func TestResolveTallNeighbor(t *testing.T) {
	sun := noonSun(t)
	src := StaticBuildings{squareBuilding("tower", towardSun(sun, 10), 4, 50)}
	res, err := ResolveSunlightStatus(context.Background(), rotterdam, rotterdamNoon, src)
	if err != nil {
		t.Fatal(err)
	}
	if res.InSunlight || res.Method != MethodRayTracing {
		t.Errorf("expected ray-traced shade, got %+v", res)
	}
}

func TestResolveFailingSource(t *testing.T) {
	for _, src := range []BuildingSource{
		BuildingSourceFunc(func(context.Context, GroundPoint, float64) ([]BuildingFootprint, error) {
			return nil, errors.New("query failed")
		}),
		BuildingSourceFunc(func(context.Context, GroundPoint, float64) ([]BuildingFootprint, error) {
			panic("query exploded")
		}),
	} {
		res, err := ResolveSunlightStatus(context.Background(), rotterdam, rotterdamNoon, src)
		if err != nil {
			t.Fatal(err)
		}
		if !res.InSunlight || res.Method != MethodFallback {
			t.Errorf("expected fallback sunlight, got %+v", res)
		}
		if !strings.HasPrefix(res.Details, "Ray tracing failed") {
			t.Errorf("unexpected details %q", res.Details)
		}
	}
}

func TestResolveInvalidInput(t *testing.T) {
	_, err := ResolveSunlightStatus(context.Background(), GroundPoint{Lat: math.NaN()}, rotterdamNoon, NoBuildings)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestResolveIdempotent(t *testing.T) {
	sun := noonSun(t)
	r := NewResolver(StaticBuildings{squareBuilding("b", towardSun(sun, 40), 10, 30)}, nil)
	first, err := r.Resolve(context.Background(), rotterdam, rotterdamNoon)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := r.Resolve(context.Background(), rotterdam, rotterdamNoon)
		if err != nil {
			t.Fatal(err)
		}
		if again.InSunlight != first.InSunlight || again.Method != first.Method || again.Sun != first.Sun {
			t.Errorf("expected %+v, got %+v", first, again)
		}
	}
}

func TestResolveSunDownNeverLit(t *testing.T) {
	r := NewResolver(NoBuildings, nil)
	start := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	for ts := start; ts.Before(start.Add(24 * time.Hour)); ts = ts.Add(20 * time.Minute) {
		res, err := r.Resolve(context.Background(), rotterdam, ts)
		if err != nil {
			t.Fatal(err)
		}
		if res.Sun.Altitude <= 0 && (res.InSunlight || res.Method != MethodAstronomical) {
			t.Errorf("at %v the sun is down but got %+v", ts, res)
		}
		if res.Sun.Altitude > 0 && (!res.InSunlight || res.Method != MethodRayTracing) {
			t.Errorf("at %v the sun is up but got %+v", ts, res)
		}
	}
}

func TestResolveConcurrent(t *testing.T) {
	sun := noonSun(t)
	r := NewResolver(StaticBuildings{squareBuilding("tower", towardSun(sun, 10), 4, 50)}, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := r.Resolve(context.Background(), rotterdam, rotterdamNoon)
			if err != nil || res.InSunlight {
				t.Errorf("expected shade, got %+v, %v", res, err)
			}
		}()
	}
	wg.Wait()
}
