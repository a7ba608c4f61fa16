package item

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"feedctl/internal/common/pagination"
	"feedctl/internal/domain/entity"
	"feedctl/internal/repository"
)

type fakeItemRepo struct {
	items []*entity.Item
}

func (f *fakeItemRepo) Create(ctx context.Context, item *entity.Item) error { return nil }
func (f *fakeItemRepo) Get(ctx context.Context, id int64) (*entity.Item, error) {
	for _, it := range f.items {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, entity.ErrNotFound
}
func (f *fakeItemRepo) GetByIDs(ctx context.Context, ids []int64) ([]*entity.Item, error) { return nil, nil }

func (f *fakeItemRepo) List(ctx context.Context, filters repository.ItemFilters) ([]*entity.Item, error) {
	start := filters.Offset
	if start > len(f.items) {
		return nil, nil
	}
	end := start + filters.Limit
	if end > len(f.items) {
		end = len(f.items)
	}
	return f.items[start:end], nil
}

func (f *fakeItemRepo) Count(ctx context.Context, filters repository.ItemFilters) (int64, error) {
	return int64(len(f.items)), nil
}

func (f *fakeItemRepo) ListLatest(ctx context.Context, n int) ([]*entity.Item, error) { return nil, nil }
func (f *fakeItemRepo) ListByFeeds(ctx context.Context, feedIDs []int64, limit int) ([]*entity.Item, error) {
	return nil, nil
}
func (f *fakeItemRepo) ListByTimeRange(ctx context.Context, from, to time.Time) ([]*entity.Item, error) {
	return nil, nil
}
func (f *fakeItemRepo) ExistsByContentHash(ctx context.Context, hash string) (bool, error) {
	return false, nil
}

func newFakeItems(n int) []*entity.Item {
	items := make([]*entity.Item, n)
	for i := 0; i < n; i++ {
		items[i] = &entity.Item{ID: int64(i + 1), FeedID: 1, Title: "t", Link: "l", ContentHash: "h"}
	}
	return items
}

func TestListHandler_DefaultPagination(t *testing.T) {
	repo := &fakeItemRepo{items: newFakeItems(45)}
	h := ListHandler{Items: repo}

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var out pagination.Response[DTO]
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Pagination.Total != 45 {
		t.Errorf("total = %d, want 45", out.Pagination.Total)
	}
	if out.Pagination.Page != 1 || out.Pagination.Limit != 20 {
		t.Errorf("page/limit = %d/%d, want 1/20", out.Pagination.Page, out.Pagination.Limit)
	}
	if out.Pagination.TotalPages != 3 {
		t.Errorf("total_pages = %d, want 3", out.Pagination.TotalPages)
	}
	if len(out.Data) != 20 {
		t.Errorf("data len = %d, want 20", len(out.Data))
	}
}

func TestListHandler_PageAndLimitParams(t *testing.T) {
	repo := &fakeItemRepo{items: newFakeItems(45)}
	h := ListHandler{Items: repo}

	req := httptest.NewRequest(http.MethodGet, "/items?page=3&limit=20", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out pagination.Response[DTO]
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out.Data) != 5 {
		t.Errorf("data len = %d, want 5 (last partial page)", len(out.Data))
	}
	if out.Data[0].ID != 41 {
		t.Errorf("first id on page 3 = %d, want 41", out.Data[0].ID)
	}
}

func TestListHandler_InvalidLimitRejected(t *testing.T) {
	repo := &fakeItemRepo{items: newFakeItems(5)}
	h := ListHandler{Items: repo}

	req := httptest.NewRequest(http.MethodGet, "/items?limit=0", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestListHandler_LimitAboveMaxRejected(t *testing.T) {
	repo := &fakeItemRepo{items: newFakeItems(5)}
	h := ListHandler{Items: repo}

	req := httptest.NewRequest(http.MethodGet, "/items?limit=1000", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
