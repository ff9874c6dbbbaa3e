package models

// Page is the list-response envelope: total row count plus the current
// window. Size defaults to 7 when the caller sends nothing.
type Page struct {
	Count   int `json:"count"`
	Page    int `json:"page"`
	Size    int `json:"size"`
	Results any `json:"results"`
}

const DefaultPageSize = 7

// Normalize clamps page/size to usable values.
func Normalize(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	return page, size
}
