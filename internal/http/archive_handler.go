package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"metroads/internal/service"
)

// ArchiveHandler 历史快照查询（只读）
type ArchiveHandler struct {
	archive *service.ArchiveService
	logger  *zap.Logger
}

func NewArchiveHandler(archive *service.ArchiveService, logger *zap.Logger) *ArchiveHandler {
	return &ArchiveHandler{archive: archive, logger: logger}
}

func (h *ArchiveHandler) listRequest(r *http.Request) service.ListArchiveRequest {
	q := r.URL.Query()
	page, size := pageParams(r)
	return service.ListArchiveRequest{
		Line:     q.Get("line"),
		Station:  q.Get("station"),
		Position: q.Get("position"),
		Search:   q.Get("search"),
		Ordering: q.Get("ordering"),
		Page:     page,
		Size:     size,
	}
}

func (h *ArchiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Path {
	case "/api/v1/advertisements-archive":
		resp, err := h.archive.List(r.Context(), h.listRequest(r))
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(resp))
		return

	case "/api/v1/advertisements-archive/export.xlsx":
		rows, err := h.archive.ExportRows(r.Context(), h.listRequest(r))
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		data, err := GenerateArchiveExport(rows)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeXLSX(w, "advertisement_archive.xlsx", data)
		return
	}

	id, action, ok := pathTail(r.URL.Path, "/api/v1/advertisements-archive")
	if !ok || action != "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	item, err := h.archive.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(item))
}
