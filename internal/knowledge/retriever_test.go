package knowledge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/retriever"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	"github.com/Chative-core-poc-v1/supportbot/internal/catalog"
)

type fakeSource struct {
	mu    sync.Mutex
	docs  []catalog.Document
	saved map[string][]float64
}

func (f *fakeSource) Documents(context.Context) ([]catalog.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]catalog.Document, len(f.docs))
	copy(out, f.docs)
	return out, nil
}

func (f *fakeSource) SaveEmbedding(_ context.Context, id string, vec []float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = map[string][]float64{}
	}
	f.saved[id] = vec
	return nil
}

// vocabEmbedder counts a few topic words so cosine similarity is predictable.
type vocabEmbedder struct {
	calls int
	err   error
}

var vocab = []string{"return", "refund", "ship", "pay", "warranty"}

func (v *vocabEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	v.calls++
	if v.err != nil {
		return nil, v.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		vec := make([]float64, len(vocab))
		for j, w := range vocab {
			vec[j] = float64(strings.Count(strings.ToLower(t), w))
		}
		out[i] = vec
	}
	return out, nil
}

func seedSource() *fakeSource {
	return &fakeSource{docs: []catalog.Document{
		{ID: "return-policy", Title: "Return policy", Language: "en",
			Content: "You can return most items within 30 days. Start a return with your order number for a full refund."},
		{ID: "shipping", Title: "Shipping information", Language: "en",
			Content: "Standard shipping takes 3 to 7 business days. Every shipped order gets a tracking number."},
		{ID: "payment-methods", Title: "Payment methods", Language: "en",
			Content: "We accept Visa, Mastercard and PayPal."},
		{ID: "return-policy-ar", Title: "سياسة الإرجاع", Language: "ar",
			Content: "يمكنك إرجاع معظم المنتجات خلال 30 يومًا."},
	}}
}

func TestRetrieveWithEmbeddings(t *testing.T) {
	t.Parallel()
	src := seedSource()
	emb := &vocabEmbedder{}
	r := NewRetriever(src, emb, model.KnowledgeConfig{TopK: 3, ScoreThreshold: 0.55})

	if err := r.Warm(context.Background()); err != nil {
		t.Fatalf("warm: %v", err)
	}
	if len(src.saved) != len(src.docs) {
		t.Fatalf("expected every embedding to be cached, got %d", len(src.saved))
	}

	docs, err := r.Retrieve(context.Background(), "how do I return an item?")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(docs) == 0 || docs[0].ID != "return-policy" {
		t.Fatalf("expected return-policy first, got %+v", docs)
	}
	if docs[0].Score() < 0.55 {
		t.Fatalf("score below threshold: %v", docs[0].Score())
	}
	if docs[0].MetaData["title"] != "Return policy" {
		t.Fatalf("title metadata missing: %+v", docs[0].MetaData)
	}
}

func TestRetrieveRespectsTopKOption(t *testing.T) {
	t.Parallel()
	r := NewRetriever(seedSource(), nil, model.KnowledgeConfig{TopK: 3})

	docs, err := r.Retrieve(context.Background(), "return shipping",
		retriever.WithTopK(1), retriever.WithScoreThreshold(0))
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected one document, got %d", len(docs))
	}
}

func TestRetrieveKeywordFallback(t *testing.T) {
	t.Parallel()
	emb := &vocabEmbedder{err: errors.New("quota exceeded")}
	r := NewRetriever(seedSource(), emb, model.KnowledgeConfig{TopK: 3, ScoreThreshold: 0.55})

	docs, err := r.Retrieve(context.Background(), "What is your shipping time?")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(docs) == 0 || docs[0].ID != "shipping" {
		t.Fatalf("expected shipping via keyword fallback, got %+v", docs)
	}
}

func TestRetrieveNoMatchIsEmpty(t *testing.T) {
	t.Parallel()
	r := NewRetriever(seedSource(), nil, model.KnowledgeConfig{})

	for _, q := range []string{"quantum chromodynamics", "   "} {
		docs, err := r.Retrieve(context.Background(), q)
		if err != nil {
			t.Fatalf("%q: %v", q, err)
		}
		if docs == nil || len(docs) != 0 {
			t.Fatalf("%q: expected empty non-nil result, got %#v", q, docs)
		}
	}
}

func TestRetrieveFiltersByLanguage(t *testing.T) {
	t.Parallel()
	r := NewRetriever(seedSource(), nil, model.KnowledgeConfig{})

	docs, err := r.Retrieve(context.Background(), "سياسة الإرجاع",
		retriever.WithDSLInfo(map[string]any{DSLLanguage: "ar-SA"}))
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "return-policy-ar" {
		t.Fatalf("expected the arabic policy, got %+v", docs)
	}

	// languages without documents fall back to english
	docs, err = r.Retrieve(context.Background(), "shipping days",
		retriever.WithDSLInfo(map[string]any{DSLLanguage: "fr"}))
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(docs) == 0 || docs[0].ID != "shipping" {
		t.Fatalf("expected english fallback, got %+v", docs)
	}
}

func TestCosine(t *testing.T) {
	t.Parallel()
	if got := cosine([]float64{1, 0}, []float64{1, 0}); got != 1 {
		t.Fatalf("parallel vectors: %v", got)
	}
	if got := cosine([]float64{1, 0}, []float64{0, 1}); got != 0 {
		t.Fatalf("orthogonal vectors: %v", got)
	}
	if got := cosine([]float64{1}, []float64{1, 2}); got != 0 {
		t.Fatalf("mismatched dimensions: %v", got)
	}
}
