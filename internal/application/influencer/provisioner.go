// Package influencer 负责合成网红的创建与形象生成
package influencer

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"brand-card-studio/internal/application/runtrack"
	"brand-card-studio/internal/domain/entity"
	"brand-card-studio/internal/domain/repository"
	"brand-card-studio/internal/workflow/port"
	"brand-card-studio/pkg/errors"
	"brand-card-studio/pkg/logger"
)

// MaxFindNew 单次 FindNew 最多创建的网红数
const MaxFindNew = 10

// Draft 网红草稿，空字段由候选池补全
type Draft struct {
	Name   string `json:"name,omitempty"`
	Domain string `json:"domain,omitempty"`
	Bio    string `json:"bio,omitempty"`
}

// ImageryQueue 形象生成任务队列
type ImageryQueue interface {
	PublishInfluencerImagery(ctx context.Context, influencerID string) (string, error)
}

// Provisioner 网红创建服务
type Provisioner struct {
	repo      repository.InfluencerRepository
	images    port.ImageGenerator
	tracker   *runtrack.Tracker
	queue     ImageryQueue
	imageSize string
	pick      func(n int) int

	// 串行化名称分配与写入，保证同一进程内不重名
	nameMu sync.Mutex
}

// Option 配置项
type Option func(*Provisioner)

// WithQueue 形象生成改为投递到任务队列
func WithQueue(q ImageryQueue) Option {
	return func(p *Provisioner) { p.queue = q }
}

// WithImageSize 设置生成图片尺寸
func WithImageSize(size string) Option {
	return func(p *Provisioner) { p.imageSize = size }
}

// NewProvisioner 创建网红服务
func NewProvisioner(repo repository.InfluencerRepository, images port.ImageGenerator, tracker *runtrack.Tracker, opts ...Option) *Provisioner {
	p := &Provisioner{
		repo:    repo,
		images:  images,
		tracker: tracker,
		pick:    rand.IntN,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provision 创建 pending 状态的网红并生成形象
//
// 配置了队列时形象生成异步进行，返回的记录仍为 pending；
// 否则同步生成，返回 ready 或 failed 的记录。
func (p *Provisioner) Provision(ctx context.Context, draft Draft) (*entity.Influencer, error) {
	inf, err := p.create(ctx, draft)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "influencer created", "influencer_id", inf.ID, "name", inf.Name)

	if p.queue != nil {
		_, err := p.queue.PublishInfluencerImagery(ctx, inf.ID)
		if err == nil {
			return inf, nil
		}
		logger.Warn(ctx, "failed to enqueue influencer imagery, generating inline",
			"influencer_id", inf.ID, "error", err.Error())
	}
	return p.ProvisionImagery(ctx, inf.ID)
}

// FindNew 从候选池创建 count 个网红，count 默认 1，最多 MaxFindNew
func (p *Provisioner) FindNew(ctx context.Context, count int) ([]*entity.Influencer, error) {
	if count <= 0 {
		count = 1
	}
	if count > MaxFindNew {
		count = MaxFindNew
	}

	out := make([]*entity.Influencer, 0, count)
	for i := 0; i < count; i++ {
		inf, err := p.Provision(ctx, Draft{})
		if err != nil {
			return out, err
		}
		out = append(out, inf)
	}
	return out, nil
}

func (p *Provisioner) create(ctx context.Context, draft Draft) (*entity.Influencer, error) {
	d := fromPool(draft, p.pick)

	p.nameMu.Lock()
	defer p.nameMu.Unlock()

	taken, err := p.takenNames(ctx, "")
	if err != nil {
		return nil, err
	}

	inf := entity.NewInfluencer(uniqueName(d.Name, taken), d.Domain, d.Bio)
	if err := p.repo.Create(ctx, inf); err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	return inf, nil
}

// takenNames 已占用名称（小写），exceptName 对应的记录不计入
func (p *Provisioner) takenNames(ctx context.Context, exceptName string) (map[string]struct{}, error) {
	names, err := p.repo.ListNames(ctx)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	except := normalizeName(exceptName)
	taken := make(map[string]struct{}, len(names))
	for _, n := range names {
		key := normalizeName(n)
		if except != "" && key == except {
			except = ""
			continue
		}
		taken[key] = struct{}{}
	}
	return taken, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ProfilePatch 资料修改，nil 字段保持不变
type ProfilePatch struct {
	Name   *string
	Domain *string
	Bio    *string
}

// UpdateProfile 修改名称、领域与简介
//
// 改名与已有网红重名（忽略大小写）时返回冲突错误。
func (p *Provisioner) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (*entity.Influencer, error) {
	p.nameMu.Lock()
	defer p.nameMu.Unlock()

	inf, err := p.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	if inf == nil {
		return nil, errors.ErrInfluencerNotFound
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, errors.New(errors.CodeInvalidParam, "name must not be empty")
		}
		if normalizeName(name) != normalizeName(inf.Name) {
			taken, err := p.takenNames(ctx, inf.Name)
			if err != nil {
				return nil, err
			}
			if _, dup := taken[normalizeName(name)]; dup {
				return nil, errors.New(errors.CodeConflict, fmt.Sprintf("influencer name %q already exists", name))
			}
		}
		inf.Name = name
	}
	if patch.Domain != nil {
		inf.Domain = strings.TrimSpace(*patch.Domain)
	}
	if patch.Bio != nil {
		inf.Bio = strings.TrimSpace(*patch.Bio)
	}

	if err := p.repo.UpdateProfile(ctx, inf); err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	return inf, nil
}

// ProvisionImagery 为已有网红（重新）生成头像与两张动作图
//
// 图片服务未配置时返回错误；生成失败只把记录标记为 failed。
func (p *Provisioner) ProvisionImagery(ctx context.Context, id string) (*entity.Influencer, error) {
	inf, err := p.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	if inf == nil {
		return nil, errors.ErrInfluencerNotFound
	}

	if inf.Status != entity.InfluencerStatusPending {
		inf.MarkPending()
		if err := p.repo.UpdateImagery(ctx, inf); err != nil {
			return nil, errors.ErrInternalError.WithError(err)
		}
	}

	_, runErr := runtrack.Track(ctx, p.tracker, entity.WorkflowInfluencerSetup, "", map[string]string{"influencerId": inf.ID},
		func(ctx context.Context, _ string) (map[string]any, error) {
			headshot, actions, err := p.generateImagery(ctx, inf)
			if err != nil {
				return nil, err
			}
			inf.MarkReady(headshot, actions)
			return map[string]any{"imageUrl": headshot, "actionImageUrls": actions}, nil
		})

	if runErr != nil {
		logger.Error(ctx, "influencer imagery failed", runErr, "influencer_id", inf.ID)
		inf.MarkFailed(runErr.Error())
	}
	if err := p.repo.UpdateImagery(ctx, inf); err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	// 生成期间开关或资料可能已被修改，返回最新记录
	if latest, err := p.repo.GetByID(ctx, id); err == nil && latest != nil {
		inf = latest
	}

	if runErr != nil && errors.AsAppError(runErr).Code == errors.CodeServiceUnavailable {
		return inf, runErr
	}
	return inf, nil
}

func (p *Provisioner) generateImagery(ctx context.Context, inf *entity.Influencer) (string, []string, error) {
	headshot, err := p.generate(ctx, port.ImageRequest{Prompt: headshotPrompt(inf), ImageSize: p.imageSize})
	if err != nil {
		return "", nil, fmt.Errorf("headshot: %w", err)
	}

	actions := make([]string, len(actionPoses))
	g, gctx := errgroup.WithContext(ctx)
	for i, pose := range actionPoses {
		g.Go(func() error {
			url, err := p.generate(gctx, port.ImageRequest{
				Prompt:             actionPrompt(inf, pose),
				ReferenceImageURLs: []string{headshot},
				ImageSize:          p.imageSize,
			})
			if err != nil {
				return fmt.Errorf("action image %d: %w", i+1, err)
			}
			actions[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", nil, err
	}
	return headshot, actions, nil
}

// generate 把软失败结果转换为错误
func (p *Provisioner) generate(ctx context.Context, req port.ImageRequest) (string, error) {
	res, err := p.images.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	if res == nil || !res.Success || res.ImageURL == "" {
		msg := "image generation returned no image"
		if res != nil && res.Error != "" {
			msg = res.Error
		}
		return "", errors.New(errors.CodeImageGenerationFailed, msg)
	}
	return res.ImageURL, nil
}

// SetEnabled 仅切换参与开关，不改变状态
func (p *Provisioner) SetEnabled(ctx context.Context, id string, enabled bool) (*entity.Influencer, error) {
	found, err := p.repo.SetEnabled(ctx, id, enabled)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	if !found {
		return nil, errors.ErrInfluencerNotFound
	}
	inf, err := p.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	if inf == nil {
		return nil, errors.ErrInfluencerNotFound
	}
	return inf, nil
}
