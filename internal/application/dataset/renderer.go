// Package dataset 渲染品牌公开的问答数据集页面
package dataset

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"brand-card-studio/internal/domain/entity"
	"brand-card-studio/internal/domain/repository"
	"brand-card-studio/pkg/errors"
	"brand-card-studio/pkg/tracer"
)

//go:embed templates/dataset.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/dataset.html"))

// PageCache 渲染结果缓存，未命中时调用 render
type PageCache interface {
	GetOrRender(ctx context.Context, brandID string, render func(ctx context.Context) ([]byte, error)) ([]byte, error)
}

type cardView struct {
	ID          string
	Query       string
	Response    string
	ImageURL    string
	Influencer  string
	PublishedAt string
}

type pageView struct {
	Brand *entity.Brand
	Cards []cardView
}

// Renderer 数据集页面渲染器
type Renderer struct {
	brands      repository.BrandRepository
	cards       repository.CardRepository
	influencers repository.InfluencerRepository
	cache       PageCache
}

// Option 渲染器选项
type Option func(*Renderer)

// WithCache 启用页面缓存
func WithCache(c PageCache) Option {
	return func(r *Renderer) { r.cache = c }
}

// NewRenderer 创建渲染器
func NewRenderer(brands repository.BrandRepository, cards repository.CardRepository, influencers repository.InfluencerRepository, opts ...Option) *Renderer {
	r := &Renderer{brands: brands, cards: cards, influencers: influencers}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render 按品牌 ID 或 slug 渲染已发布卡片（发布时间倒序）
func (r *Renderer) Render(ctx context.Context, brandSlugOrID string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "dataset.Renderer.Render")
	defer span.End()

	brand, err := r.resolveBrand(ctx, brandSlugOrID)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	if r.cache == nil {
		return r.render(ctx, brand)
	}
	return r.cache.GetOrRender(ctx, brand.ID, func(ctx context.Context) ([]byte, error) {
		return r.render(ctx, brand)
	})
}

func (r *Renderer) resolveBrand(ctx context.Context, key string) (*entity.Brand, error) {
	brand, err := r.brands.GetByID(ctx, key)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	if brand != nil {
		return brand, nil
	}
	brand, err = r.brands.GetBySlug(ctx, key)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	if brand == nil {
		return nil, errors.ErrBrandNotFound
	}
	return brand, nil
}

func (r *Renderer) render(ctx context.Context, brand *entity.Brand) ([]byte, error) {
	cards, err := r.cards.ListPublishedByBrand(ctx, brand.ID)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	names, err := r.influencerNames(ctx)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}

	page := pageView{Brand: brand, Cards: make([]cardView, 0, len(cards))}
	for _, c := range cards {
		v := cardView{
			ID:         c.ID,
			Query:      c.Query,
			Response:   c.Response,
			ImageURL:   c.ImageURL,
			Influencer: names[c.InfluencerID],
		}
		if c.PublishedAt != nil {
			v.PublishedAt = c.PublishedAt.UTC().Format(time.DateOnly)
		}
		page.Cards = append(page.Cards, v)
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("failed to render dataset page: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) influencerNames(ctx context.Context) (map[string]string, error) {
	list, err := r.influencers.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(list))
	for _, inf := range list {
		names[inf.ID] = inf.Name
	}
	return names, nil
}
