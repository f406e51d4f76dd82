// Package prompt 管理内嵌的提示词模板
package prompt

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	PromptContentAnalysisV1 PromptID = "content_analysis_v1"
	PromptCardQueryV1       PromptID = "card_query_v1"
	PromptCardAnswerV1      PromptID = "card_answer_v1"
	PromptSafetyReviewV1    PromptID = "safety_review_v1"
	PromptImageBriefV1      PromptID = "image_brief_v1"
)

// All 全部已注册的模板 ID
var All = []PromptID{
	PromptContentAnalysisV1,
	PromptCardQueryV1,
	PromptCardAnswerV1,
	PromptSafetyReviewV1,
	PromptImageBriefV1,
}

type Registry struct {
	mu    sync.RWMutex
	cache map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[PromptID]einoprompt.ChatTemplate),
	}
}

// ChatTemplate 返回 system + user 两段式模板，首次加载后缓存
func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	if !known(id) {
		return nil, fmt.Errorf("unknown prompt id: %s", id)
	}
	system, err := readEmbeddedText("templates/" + string(id) + ".system.txt")
	if err != nil {
		return nil, err
	}
	user, err := readEmbeddedText("templates/" + string(id) + ".user.txt")
	if err != nil {
		return nil, err
	}

	tpl := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)
	r.cache[id] = tpl
	return tpl, nil
}

func known(id PromptID) bool {
	for _, k := range All {
		if k == id {
			return true
		}
	}
	return false
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt template %s: %w", path, err)
	}
	return strings.TrimSpace(string(b)), nil
}
