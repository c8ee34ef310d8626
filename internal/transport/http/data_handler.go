package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"salesinsights/internal/dataset"
	apperrors "salesinsights/internal/errors"
	"salesinsights/internal/report"
	"salesinsights/internal/services"
)

// DataHandler serves the dataset lifecycle: upload, sample loading,
// inspection, role selection, date coercion and export.
type DataHandler struct {
	service      *services.DashboardService
	logger       *slog.Logger
	errorHandler *apperrors.ErrorHandler
	validate     *validator.Validate
	maxUpload    int64
}

// NewDataHandler creates the data handler.
func NewDataHandler(service *services.DashboardService, logger *slog.Logger, errorHandler *apperrors.ErrorHandler, maxUpload int64) *DataHandler {
	return &DataHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "data_handler")),
		errorHandler: errorHandler,
		validate:     validator.New(),
		maxUpload:    maxUpload,
	}
}

// Routes returns the data routes, mounted at /api/data.
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	r.Post("/upload", h.Upload)
	r.Post("/sample", h.Sample)
	r.Post("/roles", h.SetRoles)
	r.Post("/date-column", h.CoerceDateColumn)
	return r
}

// Upload handles POST /api/data/upload with a multipart "file" field.
func (h *DataHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		h.errorHandler.HandleError(w, r, apperrors.NewValidationError(
			fmt.Sprintf("upload exceeds the %d byte limit or is not multipart", h.maxUpload)))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apperrors.NewValidationError(`multipart field "file" is required`))
		return
	}
	defer file.Close()

	overview, err := h.service.Load(r.Context(), sessionID(r), header.Filename, file)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, overview)
}

// Sample handles POST /api/data/sample.
func (h *DataHandler) Sample(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.LoadSample(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, overview)
}

// Get handles GET /api/data.
func (h *DataHandler) Get(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.Overview(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, overview)
}

// SetRoles handles POST /api/data/roles.
func (h *DataHandler) SetRoles(w http.ResponseWriter, r *http.Request) {
	var roles dataset.Roles
	if err := render.DecodeJSON(r.Body, &roles); err != nil {
		h.errorHandler.HandleError(w, r, apperrors.NewValidationError("invalid JSON body"))
		return
	}
	if err := h.service.SetRoles(r.Context(), sessionID(r), roles); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, roles)
}

type dateColumnRequest struct {
	Column string `json:"column" validate:"required"`
}

// CoerceDateColumn handles POST /api/data/date-column.
func (h *DataHandler) CoerceDateColumn(w http.ResponseWriter, r *http.Request) {
	var req dateColumnRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apperrors.NewValidationError("invalid JSON body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, apperrors.NewValidationError(err.Error()))
		return
	}
	if err := h.service.CoerceDateColumn(r.Context(), sessionID(r), req.Column); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"column": req.Column, "kind": "time"})
}

// exportFilenames maps formats to download names.
var exportFilenames = map[report.Format]string{
	report.FormatExcel: "sales_report.xlsx",
	report.FormatHTML:  "sales_report.html",
	report.FormatCSV:   "sales_data.csv",
}

// Export handles GET /api/export/{format}.
func (h *DataHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := report.Format(chi.URLParam(r, "format"))
	if !format.Valid() {
		h.errorHandler.HandleError(w, r, apperrors.NewValidationError(
			fmt.Sprintf("unsupported export format %q", format)))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilenames[format]))

	if err := h.service.Export(r.Context(), sessionID(r), format, w); err != nil {
		// Headers may already be sent; reset what we can and report.
		w.Header().Del("Content-Disposition")
		h.errorHandler.HandleError(w, r, err)
	}
}
