package repository

import (
	"context"

	"feedctl/internal/domain/entity"
)

// TemplateRepository persists extraction templates.
type TemplateRepository interface {
	Create(ctx context.Context, tmpl *entity.Template) error
	Get(ctx context.Context, id int64) (*entity.Template, error)
	List(ctx context.Context) ([]*entity.Template, error)
	// ListCandidates returns every non-universal template ordered by
	// descending priority, for the template engine's match scan.
	ListCandidates(ctx context.Context) ([]*entity.Template, error)
	GetUniversal(ctx context.Context) (*entity.Template, error)
	Update(ctx context.Context, tmpl *entity.Template) error
	Delete(ctx context.Context, id int64) error
}
