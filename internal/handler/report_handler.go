package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"AlcoMonitorAPI/internal/logger"

	"github.com/gorilla/mux"
)

type ReportGenerator interface {
	Generate(ctx context.Context, w io.Writer, period time.Duration) error
}

type ReportHandler struct {
	reports ReportGenerator
	log     *logger.Logger
	now     func() time.Time
}

func NewReportHandler(reports ReportGenerator, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		log:     log,
		now:     time.Now,
	}
}

func (h *ReportHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/report", h.GetReport).Methods("GET")
}

// GetReport renders the session PDF into memory first so a failed render
// still produces a JSON error.
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	period, err := queryInt(r, "period", DefaultWindowSeconds, 60, maxWindowSeconds)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := h.reports.Generate(r.Context(), &buf, time.Duration(period)*time.Second); err != nil {
		h.log.Error("Failed to generate report: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to generate report")
		return
	}

	filename := fmt.Sprintf("alco-report-%s.pdf", h.now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.log.Warn("Report write aborted: %v", err)
	}
}
