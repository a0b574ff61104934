// internal/handler/middleware.go
package handler

import (
	"context"
	"net/http"
	"strconv"
)

type ctxKey string

const tenantKey ctxKey = "tenant_id"

// TenantFromHeader resolves the calling tenant from the X-Tenant-ID header
// and stores it on the request context. Requests without a usable tenant id
// never reach a handler.
func TenantFromHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-Tenant-ID")
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			http.Error(w, "missing or invalid X-Tenant-ID header", http.StatusBadRequest)
			return
		}
		ctx := context.WithValue(r.Context(), tenantKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func tenantID(r *http.Request) int {
	id, _ := r.Context().Value(tenantKey).(int)
	return id
}

type pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

func paginate(page, pageSize, total int) pagination {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return pagination{Page: page, PageSize: pageSize, TotalCount: total, TotalPages: totalPages}
}

func pageParams(r *http.Request) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if ps, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && ps > 0 {
		pageSize = ps
	}
	return page, pageSize
}
