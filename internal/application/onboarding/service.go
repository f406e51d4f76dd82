// Package onboarding 实现品牌接入：抓取内容、分析画像与场景并落库
package onboarding

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"brand-card-studio/internal/application/runtrack"
	"brand-card-studio/internal/domain/entity"
	"brand-card-studio/internal/domain/repository"
	"brand-card-studio/internal/workflow/port"
	"brand-card-studio/pkg/errors"
	"brand-card-studio/pkg/logger"
)

// ContentFetcher 把内容来源（URL 或文本）转为纯文本
type ContentFetcher interface {
	FetchAll(ctx context.Context, sources []string) ([]string, error)
}

// Input 接入参数
type Input struct {
	Name           string   `json:"name"`
	Domain         string   `json:"domain,omitempty"`
	Description    string   `json:"description,omitempty"`
	ContentSources []string `json:"content_sources"`
	ProductImages  []string `json:"product_images,omitempty"`
}

// Result 接入结果
type Result struct {
	Brand        *entity.Brand         `json:"brand"`
	Personas     []*entity.Persona     `json:"personas"`
	Environments []*entity.Environment `json:"environments"`
}

// Service 品牌接入服务
type Service struct {
	brands       repository.BrandRepository
	personas     repository.PersonaRepository
	environments repository.EnvironmentRepository
	tx           repository.Transactor
	fetcher      ContentFetcher
	analyzer     port.ContentAnalyzer
	tracker      *runtrack.Tracker
}

// NewService 创建品牌接入服务
func NewService(
	brands repository.BrandRepository,
	personas repository.PersonaRepository,
	environments repository.EnvironmentRepository,
	tx repository.Transactor,
	fetcher ContentFetcher,
	analyzer port.ContentAnalyzer,
	tracker *runtrack.Tracker,
) *Service {
	return &Service{
		brands:       brands,
		personas:     personas,
		environments: environments,
		tx:           tx,
		fetcher:      fetcher,
		analyzer:     analyzer,
		tracker:      tracker,
	}
}

// Onboard 抓取内容来源、分析画像与场景，并在一个事务内创建品牌及其画像、场景
func (s *Service) Onboard(ctx context.Context, in Input) (*Result, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, errors.ErrInvalidParam.WithDetail("name is required")
	}
	sources := nonEmpty(in.ContentSources)
	if len(sources) == 0 {
		return nil, errors.ErrInvalidParam.WithDetail("content_sources is required")
	}

	return runtrack.Track(ctx, s.tracker, entity.WorkflowBrandOnboarding, "", in,
		func(ctx context.Context, _ string) (*Result, error) {
			texts, err := s.fetcher.FetchAll(ctx, sources)
			if err != nil {
				return nil, err
			}

			analysis, err := s.analyzer.Analyze(ctx, texts)
			if err != nil {
				return nil, err
			}

			res, err := s.persist(ctx, in, sources, analysis)
			if err != nil {
				return nil, err
			}
			logger.Info(ctx, "brand onboarded",
				"brand_id", res.Brand.ID,
				"slug", res.Brand.URLSlug,
				"personas", len(res.Personas),
				"environments", len(res.Environments))
			return res, nil
		})
}

func (s *Service) persist(ctx context.Context, in Input, sources []string, analysis *port.Analysis) (*Result, error) {
	brand := entity.NewBrand(in.Name, in.Domain, in.Description)
	brand.ContentSources = sources
	brand.ProductImages = nonEmpty(in.ProductImages)

	res := &Result{Brand: brand}
	for _, item := range analysis.Personas {
		res.Personas = append(res.Personas, entity.NewPersona(brand.ID, item.Label, item.Description, item.Tags))
	}
	for _, item := range analysis.Environments {
		res.Environments = append(res.Environments, entity.NewEnvironment(brand.ID, item.Label, item.Description, item.Tags))
	}

	base := brand.URLSlug
	lost := map[string]struct{}{}
	var err error
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
			slug, err := s.uniqueSlug(ctx, base, lost)
			if err != nil {
				return err
			}
			brand.URLSlug = slug
			if err := s.brands.Create(ctx, brand); err != nil {
				return err
			}
			if err := s.personas.CreateBatch(ctx, res.Personas); err != nil {
				return err
			}
			return s.environments.CreateBatch(ctx, res.Environments)
		})
		if !stderrors.Is(err, repository.ErrDuplicateKey) {
			break
		}
		// 并发接入抢先占用了该 slug，事务已回滚，换下一个后缀重试
		logger.Warn(ctx, "brand slug taken concurrently, retrying", "slug", brand.URLSlug)
		lost[brand.URLSlug] = struct{}{}
	}
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	return res, nil
}

// maxSlugAttempts slug 唯一约束冲突时的最大尝试次数
const maxSlugAttempts = 5

// uniqueSlug 冲突时依次尝试 base-2、base-3，跳过 skip 中已确认冲突的候选
func (s *Service) uniqueSlug(ctx context.Context, base string, skip map[string]struct{}) (string, error) {
	slug := base
	for n := 2; ; n++ {
		if _, lost := skip[slug]; !lost {
			exists, err := s.brands.SlugExists(ctx, slug)
			if err != nil {
				return "", err
			}
			if !exists {
				return slug, nil
			}
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
