package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aclements/shade"
)

var validate = validator.New()

// pointQuery holds the query parameters naming a point and an instant.
type pointQuery struct {
	Lat  float64   `validate:"gte=-90,lte=90"`
	Lng  float64   `validate:"gte=-180,lte=180"`
	Time time.Time `validate:"required"`
}

func (q pointQuery) point() shade.GroundPoint {
	return shade.GroundPoint{Lat: q.Lat, Lng: q.Lng}
}

// parsePointQuery reads lat, lng, and time. A missing time means now.
func (s *Server) parsePointQuery(v url.Values) (pointQuery, error) {
	var q pointQuery
	var err error
	if q.Lat, err = requiredFloat(v, "lat"); err != nil {
		return q, err
	}
	if q.Lng, err = requiredFloat(v, "lng"); err != nil {
		return q, err
	}
	if ts := v.Get("time"); ts != "" {
		if q.Time, err = parseTime(ts); err != nil {
			return q, err
		}
	} else {
		q.Time = s.now()
	}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

func requiredFloat(v url.Values, key string) (float64, error) {
	s := v.Get(key)
	if s == "" {
		return 0, fmt.Errorf("%s query parameter is required", key)
	}
	return parseFloat(key, s)
}

func optionalFloat(v url.Values, key string, def float64) (float64, error) {
	s := v.Get(key)
	if s == "" {
		return def, nil
	}
	return parseFloat(key, s)
}

func parseFloat(key, s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return f, nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}

func writeJSON(w http.ResponseWriter, status int, contentType string, v any) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, "application/json", map[string]string{"error": msg})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "application/json", map[string]string{"status": "ok"})
}

func (s *Server) sunlight(w http.ResponseWriter, r *http.Request) {
	q, err := s.parsePointQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx := r.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}
	res, err := s.resolver.Resolve(ctx, q.point(), q.Time)
	if err != nil {
		if errors.Is(err, shade.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("resolving sunlight", zap.String("request_id", RequestID(r.Context())), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "error resolving sunlight")
		return
	}
	writeJSON(w, http.StatusOK, "application/json", res)
}

type positionResponse struct {
	shade.SolarPosition
	Bearing   float64 `json:"bearing"`
	Direction string  `json:"direction"`
	Above     bool    `json:"aboveHorizon"`
}

func (s *Server) solarPosition(w http.ResponseWriter, r *http.Request) (shade.SolarPosition, pointQuery, bool) {
	q, err := s.parsePointQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return shade.SolarPosition{}, q, false
	}
	p, err := shade.ComputeSolarPosition(q.Time, q.Lat, q.Lng)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return shade.SolarPosition{}, q, false
	}
	return p, q, true
}

func (s *Server) position(w http.ResponseWriter, r *http.Request) {
	p, _, ok := s.solarPosition(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, "application/json", positionResponse{
		SolarPosition: p,
		Bearing:       p.Bearing(),
		Direction:     shade.CardinalDirection(p.Bearing()),
		Above:         p.AboveHorizon(),
	})
}

func (s *Server) sceneLighting(w http.ResponseWriter, r *http.Request) {
	p, _, ok := s.solarPosition(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, "application/json", s.lighting.Map(p))
}

func (s *Server) marker(w http.ResponseWriter, r *http.Request) {
	p, q, ok := s.solarPosition(w, r)
	if !ok {
		return
	}
	var vp shade.Viewport
	var err error
	if vp.LngSpan, err = optionalFloat(r.URL.Query(), "lng_span", 0.01); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if vp.LatSpan, err = optionalFloat(r.URL.Query(), "lat_span", 0.01); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, "application/json", shade.ComputeMarkerState(p, q.point(), vp))
}

func (s *Server) sunRay(w http.ResponseWriter, r *http.Request) {
	p, q, ok := s.solarPosition(w, r)
	if !ok {
		return
	}
	v := r.URL.Query()
	distance, err := optionalFloat(v, "distance_km", s.ray.DistanceKm)
	if err == nil && !(distance > 0) {
		err = errors.New("distance_km must be positive")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	segments := s.ray.Segments
	if str := v.Get("segments"); str != "" {
		if segments, err = strconv.Atoi(str); err != nil || segments < 1 || segments > 1000 {
			writeError(w, http.StatusBadRequest, "segments must be between 1 and 1000")
			return
		}
	}

	origin := q.point()
	end := shade.Project3DRay(origin, distance, p.AzimuthDegrees, p.AltitudeDegrees)
	segs := shade.SubdivideRay(origin.Point(), end.Position, 0, end.Elevation, segments)
	writeJSON(w, http.StatusOK, "application/geo+json", shade.RayFeatures(origin, p, end, segs))
}

// sunTimesResponse leaves out events that don't happen on the day.
type sunTimesResponse struct {
	Date          string     `json:"date"`
	NightEnd      *time.Time `json:"nightEnd,omitempty"`
	NauticalDawn  *time.Time `json:"nauticalDawn,omitempty"`
	Dawn          *time.Time `json:"dawn,omitempty"`
	Sunrise       *time.Time `json:"sunrise,omitempty"`
	SunriseEnd    *time.Time `json:"sunriseEnd,omitempty"`
	GoldenHourEnd *time.Time `json:"goldenHourEnd,omitempty"`
	SolarNoon     *time.Time `json:"solarNoon,omitempty"`
	GoldenHour    *time.Time `json:"goldenHour,omitempty"`
	SunsetStart   *time.Time `json:"sunsetStart,omitempty"`
	Sunset        *time.Time `json:"sunset,omitempty"`
	Dusk          *time.Time `json:"dusk,omitempty"`
	NauticalDusk  *time.Time `json:"nauticalDusk,omitempty"`
	Night         *time.Time `json:"night,omitempty"`
	Nadir         *time.Time `json:"nadir,omitempty"`

	DaylightFrom time.Time `json:"daylightFrom"`
	DaylightTo   time.Time `json:"daylightTo"`
	AllDay       bool      `json:"allDay"`
}

func event(t time.Time) *time.Time {
	if !shade.Defined(t) {
		return nil
	}
	return &t
}

func (s *Server) sunTimes(w http.ResponseWriter, r *http.Request) {
	q, err := s.parsePointQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	st, err := shade.ComputeSunTimes(q.Time, q.Lat, q.Lng)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	from, to, full := st.DaylightRange()
	writeJSON(w, http.StatusOK, "application/json", sunTimesResponse{
		Date:          st.Date.Format(time.DateOnly),
		NightEnd:      event(st.NightEnd),
		NauticalDawn:  event(st.NauticalDawn),
		Dawn:          event(st.Dawn),
		Sunrise:       event(st.Sunrise),
		SunriseEnd:    event(st.SunriseEnd),
		GoldenHourEnd: event(st.GoldenHourEnd),
		SolarNoon:     event(st.SolarNoon),
		GoldenHour:    event(st.GoldenHour),
		SunsetStart:   event(st.SunsetStart),
		Sunset:        event(st.Sunset),
		Dusk:          event(st.Dusk),
		NauticalDusk:  event(st.NauticalDusk),
		Night:         event(st.Night),
		Nadir:         event(st.Nadir),
		DaylightFrom:  from,
		DaylightTo:    to,
		AllDay:        full,
	})
}
