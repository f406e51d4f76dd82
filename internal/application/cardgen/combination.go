package cardgen

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"brand-card-studio/internal/domain/entity"
	"brand-card-studio/internal/workflow/port"
	"brand-card-studio/pkg/logger"
	"brand-card-studio/pkg/metrics"
)

// process 顺序执行一个组合：问题 → 去重 → 回答 → 安全审查 → 配图说明 → 配图 → 落库
func (p *Pipeline) process(ctx context.Context, combo port.Combination, dedup *deduper) (outcome, string, bool) {
	log := logger.FromContext(ctx).With(
		"persona_id", combo.Persona.ID,
		"environment_id", combo.Environment.ID,
		"influencer_id", combo.Influencer.ID,
	)
	brandID := combo.Brand.ID

	var query string
	err := stage("query", func() (err error) {
		query, err = p.deps.Agents.Query.Ask(ctx, combo)
		return err
	})
	if err != nil {
		log.Error("query generation failed", "error", err.Error())
		return outcomeFailed, "", false
	}
	query = strings.TrimSpace(query)

	if !dedup.claim(ctx, brandID, query) {
		log.Info("duplicate query skipped", "query", query)
		return outcomeDuplicate, "", false
	}
	persisted := false
	defer func() {
		if !persisted {
			dedup.release(query)
		}
	}()

	var response string
	err = stage("answer", func() (err error) {
		response, err = p.deps.Agents.Answer.Answer(ctx, combo, query)
		return err
	})
	if err != nil {
		log.Error("answer generation failed", "error", err.Error())
		return outcomeFailed, "", false
	}
	response = strings.TrimSpace(response)

	var verdict *port.SafetyVerdict
	err = stage("safety", func() (err error) {
		verdict, err = p.deps.Agents.Safety.Review(ctx, query, response)
		return err
	})
	switch {
	case stderrors.Is(err, port.ErrMalformedOutput):
		if !p.cfg.SafetyFailOpen {
			log.Warn("unparsable safety verdict, rejecting", "error", err.Error())
			return outcomeSkipped, "", false
		}
		log.Warn("unparsable safety verdict, accepting", "error", err.Error())
	case err != nil:
		log.Error("safety review failed", "error", err.Error())
		return outcomeFailed, "", false
	case !verdict.Passed():
		log.Info("combination rejected by safety review",
			"recommendation", verdict.Recommendation,
			"issues", verdict.Issues)
		return outcomeSkipped, "", false
	}

	var brief *port.ImageBrief
	err = stage("brief", func() (err error) {
		brief, err = p.deps.Agents.Brief.Brief(ctx, combo, query, response)
		return err
	})
	switch {
	case stderrors.Is(err, port.ErrMalformedOutput):
		log.Warn("unparsable image brief, using template", "error", err.Error())
		brief = fallbackBrief(combo)
	case err != nil:
		log.Error("image brief failed", "error", err.Error())
		return outcomeFailed, "", false
	}

	req := p.imageRequest(combo, brief)
	var imageURL string
	_ = stage("image", func() error {
		imageURL = p.generateImage(ctx, req)
		return nil
	})

	card := entity.NewDraftCard(brandID, combo.Influencer.ID, combo.Persona.ID, combo.Environment.ID)
	card.Query = query
	card.Response = response
	card.ImageURL = imageURL
	if raw, err := json.Marshal(brief); err == nil {
		card.ImageBrief = string(raw)
	}
	if err := p.deps.Cards.Create(ctx, card); err != nil {
		log.Error("failed to persist card", "error", err.Error())
		return outcomeFailed, "", false
	}
	persisted = true
	dedup.remember(ctx, card.ID, brandID, query)

	return outcomeGenerated, card.ID, imageURL == ""
}

// stage 执行并记录单个阶段耗时
func stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.PipelineStageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return err
}

// imageRequest 参考图优先用说明里给出的，否则用网红头像；有产品图时追加首张
func (p *Pipeline) imageRequest(combo port.Combination, brief *port.ImageBrief) port.ImageRequest {
	refs := make([]string, 0, 3)
	refs = append(refs, brief.ReferenceImageURLs...)
	if len(refs) == 0 && combo.Influencer.ImageURL != "" {
		refs = append(refs, combo.Influencer.ImageURL)
	}
	if product := combo.Brand.FirstProductImage(); product != "" && !slices.Contains(refs, product) {
		refs = append(refs, product)
	}

	size := strings.TrimSpace(brief.ImageSize)
	if size == "" {
		size = p.imageSize
	}
	return port.ImageRequest{Prompt: brief.Prompt, ReferenceImageURLs: refs, ImageSize: size}
}

// generateImage 配图失败只记录日志，返回空 URL
func (p *Pipeline) generateImage(ctx context.Context, req port.ImageRequest) string {
	res, err := p.deps.Images.Generate(ctx, req)
	if err != nil {
		logger.Error(ctx, "card image generation failed", err)
		return ""
	}
	if res == nil || !res.Success || res.ImageURL == "" {
		msg := "no image returned"
		if res != nil && res.Error != "" {
			msg = res.Error
		}
		logger.Warn(ctx, "card image generation failed", "error", msg)
		return ""
	}
	return res.ImageURL
}

func fallbackBrief(combo port.Combination) *port.ImageBrief {
	prompt := fmt.Sprintf("Photorealistic lifestyle photo of %s using %s in %s",
		combo.Influencer.Name, combo.Brand.Name, combo.Environment.Label)
	if d := strings.TrimSpace(combo.Environment.Description); d != "" {
		prompt += ". " + d
	}
	return &port.ImageBrief{Prompt: prompt + ". Natural light, candid composition."}
}
