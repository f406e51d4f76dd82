package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brand-card-studio/internal/domain/entity"
	workflowport "brand-card-studio/internal/workflow/port"
	apperrors "brand-card-studio/pkg/errors"
)

type fakeChatModel struct {
	mu       sync.Mutex
	replies  []string
	errs     []error
	calls    int
	received [][]*schema.Message
}

func (m *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	m.received = append(m.received, input)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	reply := ""
	if i < len(m.replies) {
		reply = m.replies[i]
	} else if len(m.replies) > 0 {
		reply = m.replies[len(m.replies)-1]
	}
	return schema.AssistantMessage(reply, nil), nil
}

func (m *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

type fakeFactory struct {
	model *fakeChatModel
	err   error
}

func (f *fakeFactory) Get(context.Context, string) (model.BaseChatModel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.model, nil
}

func replying(replies ...string) (*fakeFactory, *fakeChatModel) {
	m := &fakeChatModel{replies: replies}
	return &fakeFactory{model: m}, m
}

func flowForm() workflowport.Combination {
	brand := entity.NewBrand("FlowForm", "flowform.example", "Ergonomic standing desks")
	brand.ProductImages = []string{"https://cdn.example/desk.png"}
	inf := entity.NewInfluencer("Maya Chen", "wellness", "Yoga teacher who works from home")
	inf.MarkReady("https://cdn.example/maya.png", nil)
	return workflowport.Combination{
		Brand:       brand,
		Persona:     entity.NewPersona(brand.ID, "Remote engineer", "Works long hours at a desk", nil),
		Environment: entity.NewEnvironment(brand.ID, "Home office", "A small apartment workspace", nil),
		Influencer:  inf,
	}
}

func TestQueryAgentCleansOutput(t *testing.T) {
	factory, m := replying(`"Maya, how do you avoid back pain on long workdays?"`)
	agent := NewQueryAgent(factory, nil, Options{})

	q, err := agent.Ask(context.Background(), flowForm())
	require.NoError(t, err)
	assert.Equal(t, "Maya, how do you avoid back pain on long workdays?", q)

	require.Len(t, m.received, 1)
	user := m.received[0][len(m.received[0])-1].Content
	assert.Contains(t, user, "Maya Chen")
	assert.Contains(t, user, "Home office")
}

func TestAnswerAgentSpeaksAsInfluencer(t *testing.T) {
	factory, m := replying("I switched to FlowForm last year and never looked back.")
	agent := NewAnswerAgent(factory, nil, Options{})

	ans, err := agent.Answer(context.Background(), flowForm(), "How do you stay comfortable?")
	require.NoError(t, err)
	assert.Contains(t, ans, "FlowForm")

	system := m.received[0][0].Content
	assert.True(t, strings.HasPrefix(system, "You are Maya Chen."))
	assert.Contains(t, m.received[0][1].Content, "How do you stay comfortable?")
}

func TestSafetyAgentReview(t *testing.T) {
	cases := []struct {
		name    string
		reply   string
		passed  bool
		wantErr bool
	}{
		{name: "approve", reply: `{"approved":true,"issues":[],"recommendation":"approve"}`, passed: true},
		{name: "reject recommendation", reply: `{"approved":true,"issues":["medical claim"],"recommendation":"reject"}`, passed: false},
		{name: "not approved", reply: `{"approved":false,"issues":["unsafe"],"recommendation":"revise"}`, passed: false},
		{name: "missing recommendation", reply: `{"approved":false}`, passed: false},
		{name: "prose", reply: "Looks fine to me!", wantErr: true},
		{name: "missing approved", reply: `{"recommendation":"approve"}`, wantErr: true},
		{name: "unknown recommendation", reply: `{"approved":true,"recommendation":"maybe"}`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			factory, _ := replying(tc.reply)
			v, err := NewSafetyAgent(factory, nil, Options{}).Review(context.Background(), "q", "a")
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, workflowport.ErrMalformedOutput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.passed, v.Passed())
		})
	}
}

func TestImageBriefAgentFiltersReferences(t *testing.T) {
	factory, _ := replying("```json\n" + `{"prompt":"Maya at a standing desk","referenceImageUrls":["https://cdn.example/maya.png","maya.png"],"imageSize":"1K"}` + "\n```")
	brief, err := NewImageBriefAgent(factory, nil, Options{}).Brief(context.Background(), flowForm(), "q", "a")
	require.NoError(t, err)
	assert.Equal(t, "Maya at a standing desk", brief.Prompt)
	assert.Equal(t, []string{"https://cdn.example/maya.png"}, brief.ReferenceImageURLs)
	assert.Equal(t, "1K", brief.ImageSize)

	factory, _ = replying(`{"prompt":"  "}`)
	_, err = NewImageBriefAgent(factory, nil, Options{}).Brief(context.Background(), flowForm(), "q", "a")
	assert.ErrorIs(t, err, workflowport.ErrMalformedOutput)
}

func TestContentAnalyzer(t *testing.T) {
	full := `{"personas":[{"label":"Remote engineer","description":"d","tags":["tech"]},{"label":"Student","description":"d","tags":[]},{"label":"Designer","description":"d","tags":[]}],
"environments":[{"label":"Home office","description":"d","tags":[]},{"label":"Library","description":"d","tags":[]},{"label":"Cafe","description":"d","tags":[]}]}`
	factory, _ := replying(full)
	analysis, err := NewContentAnalyzer(factory, nil, Options{}).Analyze(context.Background(), []string{"FlowForm makes desks"})
	require.NoError(t, err)
	assert.Len(t, analysis.Personas, 3)
	assert.Len(t, analysis.Environments, 3)

	short := `{"personas":[{"label":"A"},{"label":"a"},{"label":"B"}],"environments":[{"label":"X"},{"label":"Y"},{"label":"Z"}]}`
	factory, _ = replying(short)
	_, err = NewContentAnalyzer(factory, nil, Options{}).Analyze(context.Background(), []string{"text"})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientAnalysis)

	_, err = NewContentAnalyzer(factory, nil, Options{}).Analyze(context.Background(), []string{"  "})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)
}

func TestRunnerFallsBackWithoutSchema(t *testing.T) {
	m := &fakeChatModel{
		errs:    []error{errors.New("400 Bad Request: response_format json_schema is not supported")},
		replies: []string{"", `{"approved":true,"issues":[],"recommendation":"approve"}`},
	}
	v, err := NewSafetyAgent(&fakeFactory{model: m}, nil, Options{}).Review(context.Background(), "q", "a")
	require.NoError(t, err)
	assert.True(t, v.Passed())
	assert.Equal(t, 2, m.calls)
}

func TestRunnerErrors(t *testing.T) {
	_, err := NewQueryAgent(&fakeFactory{err: errors.New("provider x not found")}, nil, Options{}).Ask(context.Background(), flowForm())
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavailable)

	m := &fakeChatModel{errs: []error{errors.New("timeout")}}
	_, err = NewQueryAgent(&fakeFactory{model: m}, nil, Options{}).Ask(context.Background(), flowForm())
	assert.ErrorIs(t, err, apperrors.ErrLLMCallFailed)
}
