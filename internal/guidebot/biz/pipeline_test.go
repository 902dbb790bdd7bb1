package biz

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/guidebot/internal/guidebot/metrics"
	"github.com/kart-io/guidebot/pkg/errors"
	"github.com/kart-io/guidebot/pkg/infra/pool"
	"github.com/kart-io/guidebot/pkg/relay"
	"github.com/kart-io/guidebot/pkg/security/auth"
	"github.com/kart-io/guidebot/pkg/security/redact"
)

const testQuery = "How do I add a product to my wishlist?"

type pipelineFixture struct {
	emb     *mockEmbedding
	gen     *mockGeneration
	relay   *mockRelay
	log     *captureLogger
	metrics *metrics.Metrics
	sealer  *redact.Sealer
}

func newFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	sealer, err := redact.New("pipeline-test-secret")
	require.NoError(t, err)
	return &pipelineFixture{
		emb:     &mockEmbedding{fallback: []float32{1, 0, 0}},
		gen:     &mockGeneration{answer: "Click the heart icon next to the product."},
		relay:   &mockRelay{},
		log:     &captureLogger{},
		metrics: metrics.New(),
		sealer:  sealer,
	}
}

func (f *pipelineFixture) build(t *testing.T, opts ...PipelineOption) *QueryPipeline {
	t.Helper()
	s := seedStore(t, map[string][]float32{
		DefaultPassages[0]: {1, 0, 0},
		DefaultPassages[1]: {0, 1, 0},
	}, DefaultPassages[0], DefaultPassages[1])

	base := []PipelineOption{
		WithPipelineLogger(f.log),
		WithPipelineMetrics(f.metrics),
		WithRelay(f.relay, goSubmitter{}, "whatsapp:+15550000000"),
		WithRelayTimeout(time.Second, 2*time.Second),
	}
	return NewQueryPipeline(
		NewContextAssembler(f.emb, s, 3),
		NewResponseGenerator(f.gen),
		f.sealer,
		append(base, opts...)...,
	)
}

func TestQueryPipeline_Answer(t *testing.T) {
	f := newFixture(t)
	p := f.build(t)

	res, err := p.Answer(context.Background(), QueryRequest{Query: testQuery})
	require.NoError(t, err)
	assert.Equal(t, "Click the heart icon next to the product.", res.Response)
	assert.NotEmpty(t, res.RecordID)
	assert.False(t, res.Relayed)

	want := BuildPrompt(DefaultPassages[0]+"\n"+DefaultPassages[1], testQuery)
	assert.Equal(t, want, f.gen.lastPrompt())
	assert.Empty(t, f.relay.messages())

	s := f.metrics.Snapshot()
	assert.Equal(t, uint64(1), s.QueriesTotal)
	assert.Zero(t, s.QueriesFailed)
}

func TestQueryPipeline_InvalidRequest(t *testing.T) {
	for _, q := range []string{"", "   "} {
		t.Run(fmt.Sprintf("%q", q), func(t *testing.T) {
			f := newFixture(t)
			p := f.build(t)

			res, err := p.Answer(context.Background(), QueryRequest{Query: q})
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, ErrInvalidRequest))
			assert.Zero(t, f.emb.calls.Load())
			assert.Empty(t, f.gen.lastPrompt())
			assert.Equal(t, uint64(1), f.metrics.Snapshot().QueriesFailed)
		})
	}
}

func TestQueryPipeline_AuditRecordHasNoPlaintext(t *testing.T) {
	f := newFixture(t)
	p := f.build(t)

	res, err := p.Answer(context.Background(), QueryRequest{Query: testQuery})
	require.NoError(t, err)

	entry, ok := f.log.find("Query received")
	require.True(t, ok)
	assert.Equal(t, res.RecordID, entry.value("record_id"))
	assert.NotContains(t, f.log.dump(), testQuery)

	rec := &redact.Record{
		ID:         entry.value("record_id").(string),
		Ciphertext: entry.value("ciphertext").(string),
		Nonce:      entry.value("nonce").(string),
	}
	plain, err := f.sealer.Open(rec)
	require.NoError(t, err)
	assert.Equal(t, testQuery, string(plain))
}

func TestQueryPipeline_AuditNonceIsFresh(t *testing.T) {
	f := newFixture(t)
	p := f.build(t)

	for i := 0; i < 2; i++ {
		_, err := p.Answer(context.Background(), QueryRequest{Query: testQuery})
		require.NoError(t, err)
	}

	var nonces []interface{}
	for _, e := range f.log.entries {
		if e.msg == "Query received" {
			nonces = append(nonces, e.value("nonce"))
		}
	}
	require.Len(t, nonces, 2)
	assert.NotEqual(t, nonces[0], nonces[1])
}

func TestQueryPipeline_StageFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *pipelineFixture)
		want   *errors.Errno
		stage  string
		detail []string
	}{
		{
			"embedding", func(f *pipelineFixture) { f.emb.err = assert.AnError },
			ErrEmbeddingUnavailable, "retrieve",
			[]string{"Embedding service unavailable", assert.AnError.Error()},
		},
		{
			"dimension", func(f *pipelineFixture) { f.emb.fallback = []float32{1, 0} },
			ErrDimensionMismatch, "retrieve",
			[]string{"query has 2 dimensions, store has 3"},
		},
		{
			"generation", func(f *pipelineFixture) { f.gen.err = assert.AnError },
			ErrGenerationUnavailable, "generate",
			[]string{"Generation service unavailable", assert.AnError.Error()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			p := f.build(t)
			tt.mutate(f)

			res, err := p.Answer(context.Background(), QueryRequest{Query: testQuery, ViaWhatsApp: true})
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Empty(t, f.relay.messages())

			entry, ok := f.log.find("Query failed")
			require.True(t, ok, f.log.dump())
			assert.Equal(t, "error", entry.level)
			assert.Equal(t, tt.stage, entry.value("stage"))
			logged, _ := entry.value("error").(string)
			assert.Contains(t, logged, fmt.Sprintf("errno %d", tt.want.Code))
			for _, d := range tt.detail {
				assert.Contains(t, logged, d)
			}
		})
	}
}

func TestQueryPipeline_Relay(t *testing.T) {
	f := newFixture(t)
	p := f.build(t)

	res, err := p.Answer(context.Background(), QueryRequest{
		Query:       testQuery,
		ViaWhatsApp: true,
		Identity:    &auth.Claims{Subject: "u1", PhoneNumber: "+966500000000"},
	})
	require.NoError(t, err)
	assert.True(t, res.Relayed)

	msgs := f.relay.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, relay.Message{
		From: "whatsapp:+15550000000",
		To:   "+966500000000",
		Body: "Click the heart icon next to the product.",
	}, msgs[0])
	assert.Equal(t, uint64(1), f.metrics.Snapshot().RelaySent)
}

func TestQueryPipeline_RelayOnPool(t *testing.T) {
	f := newFixture(t)
	rp, err := pool.NewPool(pool.RelayPool, pool.RelayPoolConfig(2))
	require.NoError(t, err)
	defer rp.Release()

	p := f.build(t, WithRelay(f.relay, rp, ""))
	res, err := p.Answer(context.Background(), QueryRequest{
		Query:       testQuery,
		ViaWhatsApp: true,
		Identity:    &auth.Claims{PhoneNumber: "+15550001111"},
	})
	require.NoError(t, err)
	assert.True(t, res.Relayed)
	assert.Equal(t, int64(1), rp.Stats().SubmittedTasks)
}

func TestQueryPipeline_RelayNotQueuedAfterCancel(t *testing.T) {
	f := newFixture(t)
	rp, err := pool.NewPool(pool.RelayPool, pool.RelayPoolConfig(2))
	require.NoError(t, err)
	defer rp.Release()

	p := f.build(t, WithRelay(f.relay, rp, ""))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Answer(ctx, QueryRequest{
		Query:       testQuery,
		ViaWhatsApp: true,
		Identity:    &auth.Claims{PhoneNumber: "+15550001111"},
	})
	require.NoError(t, err)
	assert.False(t, res.Relayed)
	assert.Zero(t, rp.Stats().SubmittedTasks)
	assert.Empty(t, f.relay.messages())

	entry, ok := f.log.find("Relay failed")
	require.True(t, ok)
	assert.Contains(t, entry.value("error"), context.Canceled.Error())
}

func TestQueryPipeline_RelayFailuresAreSwallowed(t *testing.T) {
	phone := &auth.Claims{Subject: "u1", PhoneNumber: "+15550001111"}

	tests := []struct {
		name     string
		identity *auth.Claims
		opts     func(f *pipelineFixture) []PipelineOption
	}{
		{
			name:     "missing identity",
			identity: nil,
		},
		{
			name:     "missing phone claim",
			identity: &auth.Claims{Subject: "u1"},
		},
		{
			name:     "relay error",
			identity: phone,
			opts: func(f *pipelineFixture) []PipelineOption {
				f.relay.err = fmt.Errorf("twilio: 500")
				return nil
			},
		},
		{
			name:     "pool overloaded",
			identity: phone,
			opts: func(f *pipelineFixture) []PipelineOption {
				return []PipelineOption{WithRelay(f.relay, rejectSubmitter{err: pool.ErrPoolOverload}, "")}
			},
		},
		{
			name:     "relay not configured",
			identity: phone,
			opts: func(*pipelineFixture) []PipelineOption {
				return []PipelineOption{WithRelay(nil, nil, "")}
			},
		},
		{
			name:     "relay slower than wait",
			identity: phone,
			opts: func(f *pipelineFixture) []PipelineOption {
				f.relay.delay = time.Second
				return []PipelineOption{WithRelayTimeout(2*time.Second, 50*time.Millisecond)}
			},
		},
		{
			name:     "relay timeout",
			identity: phone,
			opts: func(f *pipelineFixture) []PipelineOption {
				f.relay.delay = time.Second
				return []PipelineOption{WithRelayTimeout(20*time.Millisecond, time.Second)}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			var opts []PipelineOption
			if tt.opts != nil {
				opts = tt.opts(f)
			}
			p := f.build(t, opts...)

			res, err := p.Answer(context.Background(), QueryRequest{
				Query:       testQuery,
				ViaWhatsApp: true,
				Identity:    tt.identity,
			})
			require.NoError(t, err)
			assert.Equal(t, "Click the heart icon next to the product.", res.Response)
			assert.False(t, res.Relayed)

			entry, ok := f.log.find("Relay failed")
			require.True(t, ok, f.log.dump())
			assert.Contains(t, entry.value("error"), "Relay failed")

			s := f.metrics.Snapshot()
			assert.Equal(t, uint64(1), s.RelayFailed)
			assert.Zero(t, s.QueriesFailed)
		})
	}
}
