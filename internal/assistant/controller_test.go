package assistant

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/market-v/storefront/internal/domain"
	"github.com/market-v/storefront/internal/llm"
	"github.com/market-v/storefront/internal/observability"
)

type controllerFixture struct {
	ctrl    *Controller
	gen     *llm.ScriptedGenerator
	catalog *fakeCatalog
	metrics *observability.Metrics
	session *Session
}

func newControllerFixture(t *testing.T, c *fakeCatalog) *controllerFixture {
	t.Helper()
	if c == nil {
		c = &fakeCatalog{}
	}
	gen := llm.NewScriptedGenerator()
	metrics := observability.NewMetrics()
	logger := observability.NopLogger()

	ctrl := NewController(ControllerConfig{
		Analyzer:    NewAnalyzer(gen, time.Second, logger, metrics),
		Searcher:    NewOrchestrator(c, time.Second, logger, metrics),
		Generator:   gen,
		StoreName:   "Market-V",
		CallTimeout: time.Second,
		Logger:      logger,
		Metrics:     metrics,
	})

	return &controllerFixture{
		ctrl:    ctrl,
		gen:     gen,
		catalog: c,
		metrics: metrics,
		session: NewSessionManager(time.Hour).Create(),
	}
}

func TestSend_Greeting(t *testing.T) {
	f := newControllerFixture(t, nil)

	reply, err := f.ctrl.Send(context.Background(), f.session, "hi")
	require.NoError(t, err)

	assert.Equal(t, "Hello! Welcome to Market-V. We're your AI-powered e-commerce platform for all your supermarket and grocery needs. How can I assist you today?", reply.Text)
	assert.Empty(t, reply.ProductSuggestions)
	assert.Equal(t, DirectionReceived, reply.Direction)
	assert.Zero(t, f.gen.Calls())

	msgs := f.session.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, DirectionSent, msgs[0].Direction)
	assert.Equal(t, "hi", msgs[0].Text)
	assert.Equal(t, reply, msgs[1])
	assert.Equal(t, StateIdle, f.session.State())
}

func TestSend_NikeRunningShoes(t *testing.T) {
	f := newControllerFixture(t, nikeShoeCatalog())
	f.gen.Reply(`Here is the analysis: {"isProductQuery": true, "productType": "running shoes", "brands": ["nike"], "searchTerms": ["Nike running shoes"]}`)

	reply, err := f.ctrl.Send(context.Background(), f.session, "show me Nike running shoes")
	require.NoError(t, err)

	assert.Contains(t, reply.Text, "Nike")
	assert.Contains(t, reply.Text, "running shoes")
	require.Len(t, reply.ProductSuggestions, 4)
	for i, p := range reply.ProductSuggestions {
		assert.Equal(t, "Nike", p.Brand, "suggestion %d", i)
	}
	assert.Equal(t, []string{"Nike running shoes"}, f.catalog.Queries())

	series, err := testutil.GatherAndCount(f.metrics.Registry(), "storefront_chat_turns_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

func TestSend_ProductQueryWithoutResults(t *testing.T) {
	f := newControllerFixture(t, &fakeCatalog{exactOnly: true})
	f.gen.Reply(`{"isProductQuery": true, "brands": ["adidas"], "productType": "sandals"}`)

	reply, err := f.ctrl.Send(context.Background(), f.session, "adidas sandals please")
	require.NoError(t, err)
	assert.Equal(t, "Sorry, I couldn't find any Adidas sandals right now.", reply.Text)
	assert.Empty(t, reply.ProductSuggestions)
}

func TestSend_HeuristicProductQueryWhenAIDown(t *testing.T) {
	f := newControllerFixture(t, nikeShoeCatalog())
	// no scripted replies: every generator call fails

	reply, err := f.ctrl.Send(context.Background(), f.session, "find milk")
	require.NoError(t, err)
	assert.Equal(t, "Here are some products that might interest you:", reply.Text)
	require.Len(t, reply.ProductSuggestions, 1)
	assert.Equal(t, "6", reply.ProductSuggestions[0].ID)
}

func TestSend_GeneralAnswer(t *testing.T) {
	f := newControllerFixture(t, nil)
	f.gen.Reply(`{"isProductQuery": false}`)
	f.gen.Reply("Market-V delivers every day between 8:00 and 22:00.")

	reply, err := f.ctrl.Send(context.Background(), f.session, "When do you deliver?")
	require.NoError(t, err)
	assert.Equal(t, "Market-V delivers every day between 8:00 and 22:00.", reply.Text)
	assert.Empty(t, reply.ProductSuggestions)

	prompts := f.gen.Prompts()
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[1], "Answer only based on the following information: ")
	assert.Contains(t, prompts[1], "User: When do you deliver?")
	assert.Contains(t, prompts[1], DefaultCompanyInfo)
}

func TestSend_GeneralAnswerOutOfScope(t *testing.T) {
	f := newControllerFixture(t, nil)
	f.gen.Reply(`{"isProductQuery": false}`)
	f.gen.Reply("The capital of France is Paris.")

	reply, err := f.ctrl.Send(context.Background(), f.session, "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "I'm sorry, but I can only answer questions related to Market-V.", reply.Text)
}

func TestSend_GeneralAnswerFailure(t *testing.T) {
	f := newControllerFixture(t, nil)
	f.gen.Reply(`{"isProductQuery": false}`)
	f.gen.Fail(domain.UpstreamError("status 503", nil))

	reply, err := f.ctrl.Send(context.Background(), f.session, "Do you sell gift cards?")
	require.NoError(t, err)
	assert.Equal(t, ApologyText, reply.Text)
	assert.Equal(t, StateIdle, f.session.State())
	assert.Len(t, f.session.Messages(), 2)
}

func TestSend_PanicBecomesApology(t *testing.T) {
	f := newControllerFixture(t, nil)
	f.ctrl.analyzer = panickingAnalyzer{}

	reply, err := f.ctrl.Send(context.Background(), f.session, "what is on sale")
	require.NoError(t, err)
	assert.Equal(t, ApologyText, reply.Text)
	assert.Equal(t, StateIdle, f.session.State())
}

func TestSend_BlankInput(t *testing.T) {
	f := newControllerFixture(t, nil)

	_, err := f.ctrl.Send(context.Background(), f.session, "   ")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
	assert.Empty(t, f.session.Messages())
}

func TestSend_RejectsConcurrentTurn(t *testing.T) {
	f := newControllerFixture(t, nil)

	f.session.turn.Lock()
	_, err := f.ctrl.Send(context.Background(), f.session, "hello")
	f.session.turn.Unlock()

	assert.ErrorIs(t, err, ErrTurnInProgress)
	assert.Empty(t, f.session.Messages())

	_, err = f.ctrl.Send(context.Background(), f.session, "hello")
	assert.NoError(t, err)
}

func TestSend_SessionsAreIndependent(t *testing.T) {
	f := newControllerFixture(t, nil)
	other := NewSessionManager(time.Hour).Create()

	f.session.turn.Lock()
	defer f.session.turn.Unlock()

	_, err := f.ctrl.Send(context.Background(), other, "hey")
	assert.NoError(t, err)
	assert.Len(t, other.Messages(), 2)
}

func TestLoadCompanyInfo(t *testing.T) {
	info, err := LoadCompanyInfo("")
	require.NoError(t, err)
	assert.Contains(t, info, "Market-V")

	_, err = LoadCompanyInfo("/does/not/exist.md")
	assert.Error(t, err)
}

type panickingAnalyzer struct{}

func (panickingAnalyzer) Analyze(ctx context.Context, utterance string) QueryIntent {
	panic("analyzer exploded")
}
