package api

import (
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/banshee-data/deadreckon/internal/db"
	"github.com/banshee-data/deadreckon/internal/geo"
	"github.com/banshee-data/deadreckon/internal/httputil"
	"github.com/banshee-data/deadreckon/internal/imu"
	"github.com/banshee-data/deadreckon/internal/mapmatch"
	"github.com/banshee-data/deadreckon/internal/monitoring"
	"github.com/banshee-data/deadreckon/internal/navigation"
	"github.com/banshee-data/deadreckon/internal/report"
	"github.com/banshee-data/deadreckon/internal/units"
)

// maxBatchSamples bounds a single POST .../samples request.
const maxBatchSamples = 10000

// PositionView is an EstimatedPosition with speed in display units.
type PositionView struct {
	Lat                   float64 `json:"lat"`
	Lon                   float64 `json:"lon"`
	HeadingRadians        float64 `json:"heading_rad"`
	Speed                 float64 `json:"speed"`
	Units                 string  `json:"units"`
	DistanceOnRouteMeters float64 `json:"distance_on_route_m"`
	Confidence            float64 `json:"confidence"`
	TimestampNanos        int64   `json:"timestamp_nanos"`
	IsStationary          bool    `json:"is_stationary"`
}

func toView(p navigation.EstimatedPosition, unit string) PositionView {
	return PositionView{
		Lat:                   p.Lat,
		Lon:                   p.Lon,
		HeadingRadians:        p.HeadingRadians,
		Speed:                 units.ConvertSpeed(p.SpeedMps, unit),
		Units:                 unit,
		DistanceOnRouteMeters: p.DistanceOnRouteMeters,
		Confidence:            p.Confidence,
		TimestampNanos:        p.TimestampNanos,
		IsStationary:          p.IsStationary,
	}
}

// SessionView is the JSON representation of a session.
type SessionView struct {
	ID          string        `json:"id"`
	CreatedAt   time.Time     `json:"created_at"`
	State       string        `json:"state"`
	Description string        `json:"description"`
	Position    *PositionView `json:"position,omitempty"`
	Complete    bool          `json:"complete"`
	Attached    bool          `json:"serial_attached"`
}

func (s *Server) sessionView(sess *navigation.Session, unit string) SessionView {
	st := sess.State()
	v := SessionView{
		ID:          sess.ID,
		CreatedAt:   sess.CreatedAt,
		State:       navigation.StateName(st),
		Description: navigation.Describe(st),
		Complete:    sess.IsNavigationComplete(),
	}
	if pos, ok := sess.Position(); ok {
		pv := toView(pos, unit)
		v.Position = &pv
	}
	s.mu.Lock()
	v.Attached = s.attached == sess.ID
	s.mu.Unlock()
	return v
}

// SessionRequest is the body of POST /api/sessions.
type SessionRequest struct {
	RouteID             string  `json:"route_id"`
	StartDistanceMeters float64 `json:"start_distance_m"`
}

// OrientationRequest carries a row-major device→world rotation.
type OrientationRequest struct {
	Rotation *[9]float64 `json:"rotation"`
}

// PositionRequest overrides the on-route position either by distance or by
// an out-of-band fix. Exactly one form must be given.
type PositionRequest struct {
	DistanceMeters *float64 `json:"distance_m,omitempty"`
	Lat            *float64 `json:"lat,omitempty"`
	Lon            *float64 `json:"lon,omitempty"`
}

// ReanchorResponse reports the outcome of a fix-based override.
type ReanchorResponse struct {
	Applied  bool            `json:"applied"`
	Match    mapmatch.Result `json:"match"`
	Position PositionView    `json:"position"`
}

// handleSessionsOrCreate handles GET and POST /api/sessions
func (s *Server) handleSessionsOrCreate(w http.ResponseWriter, r *http.Request) {
	unit, ok := s.displayUnits(r)
	if !ok {
		httputil.BadRequest(w, "invalid units; expected one of "+units.GetValidUnitsString())
		return
	}
	switch r.Method {
	case http.MethodGet:
		sessions := s.manager.List()
		out := make([]SessionView, len(sessions))
		for i, sess := range sessions {
			out[i] = s.sessionView(sess, unit)
		}
		httputil.WriteJSONOK(w, out)
	case http.MethodPost:
		s.createSession(w, r, unit)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request, unit string) {
	var req SessionRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.RouteID == "" {
		httputil.BadRequest(w, "route_id is required")
		return
	}
	rec, err := s.routes.GetRoute(r.Context(), req.RouteID)
	if errors.Is(err, db.ErrRouteNotFound) {
		httputil.NotFound(w, "route not found")
		return
	}
	if err != nil {
		monitoring.Logf("Error fetching route %s: %v", req.RouteID, err)
		httputil.InternalServerError(w, "failed to fetch route")
		return
	}

	sess := s.manager.Create()
	if err := sess.SelectRoute(rec.Origin, rec.Destination); err != nil {
		s.manager.Delete(sess.ID)
		httputil.InternalServerError(w, err.Error())
		return
	}
	if err := sess.LoadRoute(rec.Route); err != nil {
		sess.Fail(err)
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, s.sessionView(sess, unit))
		return
	}
	pos, err := sess.Start(req.StartDistanceMeters)
	if err != nil {
		sess.Fail(err)
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, s.sessionView(sess, unit))
		return
	}

	if s.traceCap > 0 {
		tr := report.NewTrace(s.traceCap)
		tr.Record(pos)
		s.mu.Lock()
		s.traces[sess.ID] = tr
		s.mu.Unlock()
	}
	httputil.WriteJSON(w, http.StatusCreated, s.sessionView(sess, unit))
}

// handleSessionByID dispatches /api/sessions/:id and its sub-resources.
func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions/"), "/"), "/")
	if parts[0] == "" || len(parts) > 2 {
		httputil.NotFound(w, "session not found")
		return
	}
	sess, err := s.manager.Get(parts[0])
	if err != nil {
		httputil.NotFound(w, "session not found")
		return
	}
	unit, ok := s.displayUnits(r)
	if !ok {
		httputil.BadRequest(w, "invalid units; expected one of "+units.GetValidUnitsString())
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}
	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			httputil.WriteJSONOK(w, s.sessionView(sess, unit))
		case http.MethodDelete:
			s.deleteSession(w, sess)
		default:
			httputil.MethodNotAllowed(w)
		}
	case "chart":
		s.showChart(w, r, sess, unit)
	case "samples", "orientation", "position", "stop", "attach":
		if r.Method != http.MethodPost {
			httputil.MethodNotAllowed(w)
			return
		}
		switch action {
		case "samples":
			s.postSamples(w, r, sess, unit)
		case "orientation":
			s.postOrientation(w, r, sess)
		case "position":
			s.postPosition(w, r, sess, unit)
		case "stop":
			s.stopSession(w, sess, unit)
		case "attach":
			s.attachSerial(w, sess, unit)
		}
	default:
		httputil.NotFound(w, "unknown session resource")
	}
}

func (s *Server) deleteSession(w http.ResponseWriter, sess *navigation.Session) {
	if err := s.manager.Delete(sess.ID); err != nil {
		httputil.NotFound(w, "session not found")
		return
	}
	s.mu.Lock()
	delete(s.traces, sess.ID)
	if s.attached == sess.ID {
		s.attached = ""
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// writeSessionError maps session errors to HTTP statuses.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, navigation.ErrNotNavigating), errors.Is(err, navigation.ErrInvalidTransition):
		httputil.Conflict(w, err.Error())
	default:
		httputil.BadRequest(w, err.Error())
	}
}

// process feeds samples to sess one at a time, recording each estimate in
// the session trace.
func (s *Server) process(sess *navigation.Session, samples []imu.Sample) (navigation.EstimatedPosition, error) {
	tr := s.traceFor(sess.ID)
	var last navigation.EstimatedPosition
	for _, sample := range samples {
		pos, err := sess.Process(sample)
		if err != nil {
			return last, err
		}
		if tr != nil {
			tr.Record(pos)
		}
		last = pos
	}
	return last, nil
}

func (s *Server) postSamples(w http.ResponseWriter, r *http.Request, sess *navigation.Session, unit string) {
	var samples []imu.Sample
	if err := httputil.DecodeJSON(w, r, &samples); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if len(samples) == 0 {
		httputil.BadRequest(w, "no samples")
		return
	}
	if len(samples) > maxBatchSamples {
		httputil.WriteJSONError(w, http.StatusRequestEntityTooLarge, "too many samples in one request")
		return
	}
	pos, err := s.process(sess, samples)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	httputil.WriteJSONOK(w, toView(pos, unit))
}

func (s *Server) postOrientation(w http.ResponseWriter, r *http.Request, sess *navigation.Session) {
	var req OrientationRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Rotation == nil {
		httputil.BadRequest(w, "rotation is required")
		return
	}
	if err := sess.UpdateOrientation(*req.Rotation); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) postPosition(w http.ResponseWriter, r *http.Request, sess *navigation.Session, unit string) {
	var req PositionRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	byDistance := req.DistanceMeters != nil
	byFix := req.Lat != nil || req.Lon != nil
	if byDistance == byFix {
		httputil.BadRequest(w, "give either distance_m or lat and lon")
		return
	}

	if byDistance {
		if math.IsNaN(*req.DistanceMeters) {
			httputil.BadRequest(w, "distance_m must be a number")
			return
		}
		pos, err := sess.SetPositionOnRoute(*req.DistanceMeters)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		if tr := s.traceFor(sess.ID); tr != nil {
			tr.Record(pos)
		}
		httputil.WriteJSONOK(w, toView(pos, unit))
		return
	}

	fix := &geo.LatLon{}
	if req.Lat != nil {
		fix.Lat = *req.Lat
	}
	if req.Lon != nil {
		fix.Lon = *req.Lon
	}
	if req.Lat == nil || req.Lon == nil || !validLatLon(fix) {
		httputil.BadRequest(w, "lat and lon must both be valid coordinates")
		return
	}
	res, applied, err := sess.Reanchor(*fix)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	pos, _ := sess.Position()
	if applied {
		if tr := s.traceFor(sess.ID); tr != nil {
			tr.Record(pos)
		}
	}
	httputil.WriteJSONOK(w, ReanchorResponse{Applied: applied, Match: res, Position: toView(pos, unit)})
}

func (s *Server) stopSession(w http.ResponseWriter, sess *navigation.Session, unit string) {
	if err := sess.Stop(); err != nil {
		writeSessionError(w, err)
		return
	}
	s.mu.Lock()
	if s.attached == sess.ID {
		s.attached = ""
	}
	s.mu.Unlock()
	httputil.WriteJSONOK(w, s.sessionView(sess, unit))
}
