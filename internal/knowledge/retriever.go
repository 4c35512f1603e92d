// Package knowledge answers policy and FAQ questions from the catalog's
// knowledge documents.
package knowledge

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	"github.com/Chative-core-poc-v1/supportbot/internal/catalog"
	logx "github.com/Chative-core-poc-v1/supportbot/pkg/logger"
)

// DSLLanguage is the retriever.WithDSLInfo key that restricts results to a language.
const DSLLanguage = "language"

// KeywordThreshold is the minimum overlap score for keyword fallback matches.
const KeywordThreshold = 0.3

// DocumentSource is the storage the retriever reads documents from.
type DocumentSource interface {
	Documents(ctx context.Context) ([]catalog.Document, error)
	SaveEmbedding(ctx context.Context, id string, vec []float64) error
}

// Retriever is an eino retriever over knowledge documents. It ranks by
// cosine similarity when an embedder is configured and falls back to
// keyword overlap otherwise, or when embedding the query fails.
type Retriever struct {
	src      DocumentSource
	embedder embedding.Embedder
	cfg      model.KnowledgeConfig

	mu     sync.RWMutex
	docs   []catalog.Document
	loaded bool
}

func NewRetriever(src DocumentSource, embedder embedding.Embedder, cfg model.KnowledgeConfig) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	return &Retriever{src: src, embedder: embedder, cfg: cfg}
}

// Warm loads documents and computes embeddings missing from storage.
func (r *Retriever) Warm(ctx context.Context) error {
	docs, err := r.src.Documents(ctx)
	if err != nil {
		return fmt.Errorf("load knowledge documents: %w", err)
	}

	if r.embedder != nil {
		var (
			idx   []int
			texts []string
		)
		for i, d := range docs {
			if len(d.Embedding) == 0 {
				idx = append(idx, i)
				texts = append(texts, d.Title+"\n"+d.Content)
			}
		}
		if len(texts) > 0 {
			vecs, err := r.embedder.EmbedStrings(ctx, texts)
			if err != nil {
				// keyword search still works without vectors
				logx.Warn().Err(err).Int("documents", len(texts)).Msg("failed to embed knowledge documents")
			} else {
				for k, i := range idx {
					docs[i].Embedding = vecs[k]
					if err := r.src.SaveEmbedding(ctx, docs[i].ID, vecs[k]); err != nil {
						logx.Warn().Err(err).Str("document", docs[i].ID).Msg("failed to cache embedding")
					}
				}
			}
		}
	}

	r.mu.Lock()
	r.docs = docs
	r.loaded = true
	r.mu.Unlock()
	logx.Info().Int("documents", len(docs)).Msg("knowledge base loaded")
	return nil
}

func (r *Retriever) documents(ctx context.Context) ([]catalog.Document, error) {
	r.mu.RLock()
	docs, loaded := r.docs, r.loaded
	r.mu.RUnlock()
	if loaded {
		return docs, nil
	}
	if err := r.Warm(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.docs, nil
}

// Retrieve implements retriever.Retriever. No match is an empty slice, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error) {
	topK, threshold := r.cfg.TopK, r.cfg.ScoreThreshold
	o := retriever.GetCommonOptions(&retriever.Options{TopK: &topK, ScoreThreshold: &threshold}, opts...)
	if o.TopK != nil {
		topK = *o.TopK
	}
	if o.ScoreThreshold != nil {
		threshold = *o.ScoreThreshold
	}
	lang := model.DefaultLanguage
	if v, ok := o.DSLInfo[DSLLanguage].(string); ok && v != "" {
		lang = model.NormalizeLanguage(v)
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []*schema.Document{}, nil
	}

	all, err := r.documents(ctx)
	if err != nil {
		return nil, err
	}
	docs := byLanguage(all, lang)

	var scored []*schema.Document
	if vec := r.embedQuery(ctx, query); vec != nil {
		scored = rank(docs, threshold, func(d catalog.Document) float64 {
			if len(d.Embedding) == 0 {
				return 0
			}
			return cosine(vec, d.Embedding)
		})
	} else {
		q := tokens(query)
		scored = rank(docs, KeywordThreshold, func(d catalog.Document) float64 {
			return overlap(q, tokens(d.Title+" "+d.Content))
		})
	}

	if len(scored) > topK {
		scored = scored[:topK]
	}
	logx.Debug().Str("language", lang).Int("matches", len(scored)).Msg("knowledge retrieval")
	return scored, nil
}

func (r *Retriever) embedQuery(ctx context.Context, query string) []float64 {
	if r.embedder == nil {
		return nil
	}
	vecs, err := r.embedder.EmbedStrings(ctx, []string{query})
	if err != nil || len(vecs) != 1 {
		logx.Warn().Err(err).Msg("query embedding failed, using keyword search")
		return nil
	}
	return vecs[0]
}

// byLanguage keeps documents in lang, or the default language when lang has none.
func byLanguage(docs []catalog.Document, lang string) []catalog.Document {
	pick := func(l string) []catalog.Document {
		var out []catalog.Document
		for _, d := range docs {
			if d.Language == l {
				out = append(out, d)
			}
		}
		return out
	}
	if out := pick(lang); len(out) > 0 {
		return out
	}
	return pick(model.DefaultLanguage)
}

func rank(docs []catalog.Document, threshold float64, score func(catalog.Document) float64) []*schema.Document {
	out := make([]*schema.Document, 0, len(docs))
	for _, d := range docs {
		s := score(d)
		if s < threshold || s <= 0 {
			continue
		}
		doc := &schema.Document{
			ID:      d.ID,
			Content: d.Content,
			MetaData: map[string]any{
				"title":    d.Title,
				"language": d.Language,
			},
		}
		out = append(out, doc.WithScore(s))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score() > out[j].Score() })
	return out
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "you": true, "your": true, "are": true,
	"what": true, "how": true, "can": true, "does": true, "with": true, "about": true,
	"have": true, "this": true, "that": true, "from": true, "will": true, "our": true,
	"is": true, "do": true, "my": true, "to": true, "of": true, "in": true, "on": true,
	"it": true, "an": true, "or": true, "be": true, "we": true, "me": true, "at": true,
}

// tokens lowercases text and keeps distinct content words, folding a
// trailing "s" so "returns" and "return" compare equal.
func tokens(text string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if stopWords[w] || len([]rune(w)) < 2 {
			continue
		}
		if len(w) > 3 && strings.HasSuffix(w, "s") {
			w = strings.TrimSuffix(w, "s")
		}
		out[w] = true
	}
	return out
}

// overlap is the share of query words found in the document.
func overlap(query, doc map[string]bool) float64 {
	if len(query) == 0 {
		return 0
	}
	hits := 0
	for w := range query {
		if doc[w] {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}

var _ retriever.Retriever = (*Retriever)(nil)
