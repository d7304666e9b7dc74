package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/banshee-data/deadreckon/internal/httputil"
	"github.com/banshee-data/deadreckon/internal/monitoring"
	"github.com/banshee-data/deadreckon/internal/navigation"
	"github.com/banshee-data/deadreckon/internal/report"
)

// showChart handles GET /api/sessions/:id/chart. The default is an HTML
// page; ?format=png renders a static image.
func (s *Server) showChart(w http.ResponseWriter, r *http.Request, sess *navigation.Session, unit string) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	tr := s.traceFor(sess.ID)
	if tr == nil {
		httputil.NotFound(w, "no trace recorded for session")
		return
	}
	points := tr.Snapshot()

	buf := bytes.NewBuffer(nil)
	switch r.URL.Query().Get("format") {
	case "png":
		if err := report.WritePNG(buf, points, unit); err != nil {
			monitoring.Logf("Error rendering chart for %s: %v", sess.ID, err)
			httputil.InternalServerError(w, "failed to render chart")
			return
		}
		w.Header().Set("Content-Type", "image/png")
	case "", "html":
		opts := report.HTMLOptions{
			Title:      fmt.Sprintf("Session %s", sess.ID),
			Units:      unit,
			AssetsHost: s.assetsHost,
		}
		if nav, ok := sess.State().(navigation.Navigating); ok {
			opts.Route = nav.Route
		}
		if err := report.RenderHTML(buf, points, opts); err != nil {
			monitoring.Logf("Error rendering chart for %s: %v", sess.ID, err)
			httputil.InternalServerError(w, "failed to render chart")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	default:
		httputil.BadRequest(w, "format must be html or png")
		return
	}
	w.Write(buf.Bytes())
}
