package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"svstudio/internal/export"
	"svstudio/internal/metrics"
	"svstudio/internal/models"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleExport downloads the monthly bookings workbook.
// GET /api/export?month=YYYY-MM
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	metrics.IncHTTP("export")

	month := r.URL.Query().Get("month")
	if !models.ValidMonth(month) {
		writeError(w, http.StatusBadRequest, "invalid month; expected YYYY-MM")
		return
	}

	var buf bytes.Buffer
	if err := export.BuildMonthlyReport(r.Context(), s.deps.Reports, month, &buf); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("month", month).Msg("export")
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="bookings_%s.xlsx"`, month))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
