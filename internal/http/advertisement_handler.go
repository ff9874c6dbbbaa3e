package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"metroads/internal/repository"
	"metroads/internal/service"
)

// AdvertisementHandler 广告投放接口
type AdvertisementHandler struct {
	ads    *service.AdvertisementService
	logger *zap.Logger
}

func NewAdvertisementHandler(ads *service.AdvertisementService, logger *zap.Logger) *AdvertisementHandler {
	return &AdvertisementHandler{ads: ads, logger: logger}
}

func (h *AdvertisementHandler) listRequest(r *http.Request) service.ListAdvertisementsRequest {
	q := r.URL.Query()
	page, size := pageParams(r)
	return service.ListAdvertisementsRequest{
		Station:  q.Get("station"),
		Line:     q.Get("line"),
		Position: q.Get("position"),
		Search:   q.Get("search"),
		Ordering: q.Get("ordering"),
		Page:     page,
		Size:     size,
	}
}

func (h *AdvertisementHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/advertisements":
		switch r.Method {
		case http.MethodGet:
			resp, err := h.ads.List(r.Context(), h.listRequest(r))
			h.respond(w, http.StatusOK, resp, err)
		case http.MethodPost:
			var req service.SaveAdvertisementRequest
			if err := readBodyJSON(r, 1<<20, &req); err != nil {
				writeError(w, h.logger, err)
				return
			}
			item, err := h.ads.Create(r.Context(), req, actingUserID(r.Context()))
			h.respond(w, http.StatusCreated, item, err)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return

	case "/api/v1/advertisements/expiring":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		q := r.URL.Query()
		resp, err := h.ads.Expiring(r.Context(), service.ExpiringRequest{
			Today:    q.Get("today"),
			Station:  q.Get("station"),
			Line:     q.Get("line"),
			Position: q.Get("position"),
			Search:   q.Get("search"),
		})
		h.respond(w, http.StatusOK, resp, err)
		return

	case "/api/v1/advertisements/export.xlsx":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rows, err := h.ads.ExportRows(r.Context(), h.listRequest(r))
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		data, err := GenerateAdvertisementsExport(rows)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeXLSX(w, "advertisements.xlsx", data)
		return
	}

	id, action, ok := pathTail(r.URL.Path, "/api/v1/advertisements")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			item, err := h.ads.Get(r.Context(), id)
			h.respond(w, http.StatusOK, item, err)
		case http.MethodPut, http.MethodPatch:
			var req service.SaveAdvertisementRequest
			if err := readBodyJSON(r, 1<<20, &req); err != nil {
				writeError(w, h.logger, err)
				return
			}
			item, err := h.ads.Update(r.Context(), id, req, actingUserID(r.Context()))
			h.respond(w, http.StatusOK, item, err)
		case http.MethodDelete:
			err := h.ads.Delete(r.Context(), id, actingUserID(r.Context()))
			h.respond(w, http.StatusOK, nil, err)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}

	// POST {id}/export moves the advertisement to another position.
	case "export":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req service.TransferRequest
		if err := readBodyJSON(r, 1<<20, &req); err != nil {
			writeError(w, h.logger, err)
			return
		}
		item, err := h.ads.Transfer(r.Context(), id, req, actingUserID(r.Context()))
		h.respond(w, http.StatusOK, item, err)

	case "contract-file":
		h.upload(w, r, id, repository.FileContract)
	case "photo":
		h.upload(w, r, id, repository.FilePhoto)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *AdvertisementHandler) upload(w http.ResponseWriter, r *http.Request, adID string, field repository.FileField) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	filename, contentType, data, err := readUpload(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	item, err := h.ads.UploadFile(r.Context(), adID, field, filename, contentType, data)
	h.respond(w, http.StatusOK, item, err)
}

func (h *AdvertisementHandler) respond(w http.ResponseWriter, status int, v any, err error) {
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, status, Ok(v))
}
