package item

import (
	"net/http"
	"strconv"

	"feedctl/internal/common/pagination"
	"feedctl/internal/domain/entity"
	"feedctl/internal/handler/http/apierr"
	"feedctl/internal/handler/http/respond"
	"feedctl/internal/repository"
)

// ListHandler serves GET /items, a page-based listing backed by
// internal/common/pagination's offset-calculation and response envelope.
type ListHandler struct {
	Items      repository.ItemRepository
	Pagination pagination.Config
}

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	pageCfg := h.Pagination
	if pageCfg.MaxLimit == 0 {
		pageCfg = pagination.DefaultConfig()
	}
	page, err := pagination.ParseQueryParams(r, pageCfg)
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.KindValidation, err.Error(), nil)
		return
	}

	q := r.URL.Query()
	filters := repository.ItemFilters{
		Limit:    page.Limit,
		Offset:   pagination.CalculateOffset(page.Page, page.Limit),
		SortDesc: true,
	}

	if v := q.Get("feed_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respond.Fail(w, http.StatusBadRequest, respond.KindValidation, "feed_id must be an integer", nil)
			return
		}
		filters.FeedID = &id
	}
	if v := q.Get("since_hours"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil {
			respond.Fail(w, http.StatusBadRequest, respond.KindValidation, "since_hours must be an integer", nil)
			return
		}
		filters.SinceHours = &hours
	}
	if v := q.Get("category"); v != "" {
		filters.Category = &v
	}
	if v := q.Get("impact_min"); v != "" {
		min, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respond.Fail(w, http.StatusBadRequest, respond.KindValidation, "impact_min must be a number", nil)
			return
		}
		filters.ImpactMin = &min
	}
	if v := q.Get("sentiment"); v != "" {
		label := entity.SentimentLabel(v)
		filters.Sentiment = &label
	}
	if v := q.Get("sort"); v == "asc" {
		filters.SortDesc = false
	}

	total, err := h.Items.Count(r.Context(), filters)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	items, err := h.Items.List(r.Context(), filters)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	out := make([]DTO, 0, len(items))
	for _, it := range items {
		out = append(out, toDTO(it))
	}
	respond.JSON(w, http.StatusOK, pagination.NewResponse(out, pagination.Metadata{
		Total:      total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: pagination.CalculateTotalPages(total, page.Limit),
	}))
}
