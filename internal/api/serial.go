package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/banshee-data/deadreckon/internal/httputil"
	"github.com/banshee-data/deadreckon/internal/imu"
	"github.com/banshee-data/deadreckon/internal/monitoring"
	"github.com/banshee-data/deadreckon/internal/navigation"
)

// HandleRecord routes one record from the live IMU feed to the attached
// session. Records arriving with no session attached are dropped.
func (s *Server) HandleRecord(rec imu.Record) error {
	s.mu.Lock()
	id := s.attached
	s.mu.Unlock()
	if id == "" {
		return nil
	}
	sess, err := s.manager.Get(id)
	if err != nil {
		return err
	}

	switch rec.Kind {
	case imu.KindOrientation:
		return sess.UpdateOrientation(rec.Rotation)
	case imu.KindSample:
		_, err := s.process(sess, []imu.Sample{rec.Sample})
		if err != nil {
			return fmt.Errorf("session %s: %w", id, err)
		}
		return nil
	default:
		return fmt.Errorf("unexpected record kind %v", rec.Kind)
	}
}

// attachSerial handles POST /api/sessions/:id/attach. Only one session
// receives the serial feed at a time.
func (s *Server) attachSerial(w http.ResponseWriter, sess *navigation.Session, unit string) {
	if s.serial == nil {
		httputil.Conflict(w, "no serial IMU configured")
		return
	}
	if _, ok := sess.State().(navigation.Navigating); !ok {
		httputil.Conflict(w, navigation.ErrNotNavigating.Error())
		return
	}
	s.mu.Lock()
	prev := s.attached
	s.attached = sess.ID
	s.mu.Unlock()
	if prev != "" && prev != sess.ID {
		monitoring.Logf("serial feed moved from session %s to %s", prev, sess.ID)
	}
	httputil.WriteJSONOK(w, s.sessionView(sess, unit))
}

// sendIMUCommand handles POST /api/imu/command.
func (s *Server) sendIMUCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	command := strings.TrimSpace(r.FormValue("command"))
	if command == "" {
		httputil.BadRequest(w, "missing command")
		return
	}
	if err := s.serial.SendCommand(command); err != nil {
		monitoring.Logf("Error writing IMU command %q: %v", command, err)
		httputil.InternalServerError(w, "failed to send command")
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"sent": command})
}
