package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"metroads/internal/service"
)

// CatalogHandler 线路/车站/广告位 CRUD
type CatalogHandler struct {
	catalog *service.CatalogService
	logger  *zap.Logger
}

func NewCatalogHandler(catalog *service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// pathTail splits "{id}" or "{id}/{action}" off the prefix-trimmed path.
func pathTail(path, prefix string) (id, action string, ok bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == path {
		return "", "", false
	}
	rest = strings.Trim(rest, "/")
	parts := strings.SplitN(rest, "/", 2)
	id = parts[0]
	if len(parts) == 2 {
		action = parts[1]
	}
	return id, action, id != ""
}

func (h *CatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/api/v1/lines"):
		h.serveLines(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/stations"):
		h.serveStations(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/positions"):
		h.servePositions(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ============================================
// 线路
// ============================================

func (h *CatalogHandler) serveLines(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/v1/lines" {
		switch r.Method {
		case http.MethodGet:
			page, size := pageParams(r)
			resp, err := h.catalog.ListLines(r.Context(), page, size)
			h.respond(w, resp, err)
		case http.MethodPost:
			var req service.SaveLineRequest
			if err := readBodyJSON(r, 1<<20, &req); err != nil {
				writeError(w, h.logger, err)
				return
			}
			item, err := h.catalog.CreateLine(r.Context(), req)
			h.respondCreated(w, item, err)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	id, _, ok := pathTail(r.URL.Path, "/api/v1/lines")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		item, err := h.catalog.GetLine(r.Context(), id)
		h.respond(w, item, err)
	case http.MethodPut, http.MethodPatch:
		var req service.SaveLineRequest
		if err := readBodyJSON(r, 1<<20, &req); err != nil {
			writeError(w, h.logger, err)
			return
		}
		item, err := h.catalog.UpdateLine(r.Context(), id, req)
		h.respond(w, item, err)
	case http.MethodDelete:
		h.respondDeleted(w, h.catalog.DeleteLine(r.Context(), id))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ============================================
// 车站
// ============================================

func (h *CatalogHandler) serveStations(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/v1/stations" {
		switch r.Method {
		case http.MethodGet:
			page, size := pageParams(r)
			resp, err := h.catalog.ListStations(r.Context(), r.URL.Query().Get("line"), page, size)
			h.respond(w, resp, err)
		case http.MethodPost:
			var req service.SaveStationRequest
			if err := readBodyJSON(r, 1<<20, &req); err != nil {
				writeError(w, h.logger, err)
				return
			}
			item, err := h.catalog.CreateStation(r.Context(), req)
			h.respondCreated(w, item, err)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	id, action, ok := pathTail(r.URL.Path, "/api/v1/stations")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if action == "image" {
		if r.Method != http.MethodPut && r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		filename, contentType, data, err := readUpload(r)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		item, err := h.catalog.UploadStationImage(r.Context(), id, filename, contentType, data)
		h.respond(w, item, err)
		return
	}
	if action != "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		item, err := h.catalog.GetStation(r.Context(), id)
		h.respond(w, item, err)
	case http.MethodPut, http.MethodPatch:
		var req service.SaveStationRequest
		if err := readBodyJSON(r, 1<<20, &req); err != nil {
			writeError(w, h.logger, err)
			return
		}
		item, err := h.catalog.UpdateStation(r.Context(), id, req)
		h.respond(w, item, err)
	case http.MethodDelete:
		h.respondDeleted(w, h.catalog.DeleteStation(r.Context(), id))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ============================================
// 广告位
// ============================================

func (h *CatalogHandler) servePositions(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/v1/positions" {
		switch r.Method {
		case http.MethodGet:
			page, size := pageParams(r)
			resp, err := h.catalog.ListPositions(r.Context(), r.URL.Query().Get("station"), page, size)
			h.respond(w, resp, err)
		case http.MethodPost:
			var req service.SavePositionRequest
			if err := readBodyJSON(r, 1<<20, &req); err != nil {
				writeError(w, h.logger, err)
				return
			}
			item, err := h.catalog.CreatePosition(r.Context(), req)
			h.respondCreated(w, item, err)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	id, _, ok := pathTail(r.URL.Path, "/api/v1/positions")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		item, err := h.catalog.GetPosition(r.Context(), id)
		h.respond(w, item, err)
	case http.MethodPut, http.MethodPatch:
		var req service.SavePositionRequest
		if err := readBodyJSON(r, 1<<20, &req); err != nil {
			writeError(w, h.logger, err)
			return
		}
		item, err := h.catalog.UpdatePosition(r.Context(), id, req)
		h.respond(w, item, err)
	case http.MethodDelete:
		h.respondDeleted(w, h.catalog.DeletePosition(r.Context(), id))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *CatalogHandler) respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(v))
}

func (h *CatalogHandler) respondCreated(w http.ResponseWriter, v any, err error) {
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(v))
}

func (h *CatalogHandler) respondDeleted(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}
