package parsers

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/supportbot/internal/core/error"
	logx "github.com/Chative-core-poc-v1/supportbot/pkg/logger"
)

const (
	RecDelim = "##"
	TupDelim = "<||>"
	EndDelim = "<|COMPLETE|>"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 32 * 1024
	maxRecords    = 50
	maxTupleLen   = 2 * 1024
	maxErrSnippet = 200
)

// ScoredIntent is one intent record emitted by the model.
type ScoredIntent struct {
	Label      model.Intent
	Raw        string
	Confidence float64
	Priority   float64
}

// ScoredEntity is one entity record emitted by the model.
type ScoredEntity struct {
	Type       model.EntityType
	Value      string
	Confidence float64
}

// Sentiment is the sentiment record emitted by the model.
type Sentiment struct {
	Label      string
	Confidence float64
}

// NLUResult is everything recovered from one tuple-formatted model reply.
type NLUResult struct {
	Intents   []ScoredIntent
	Entities  []ScoredEntity
	Sentiment Sentiment
	// FrustrationFlag is set by an explicit (frustration<||>1<||>c) record.
	FrustrationFlag bool
	Language        string
	Errors          []string
	Truncated       bool
}

// PrimaryIntent returns the highest-confidence intent, coerced into the
// closed enumeration. ok is false when the reply held no intent record.
func (r *NLUResult) PrimaryIntent() (model.Intent, bool) {
	if r == nil || len(r.Intents) == 0 {
		return model.IntentKnowledgeBaseQuery, false
	}
	best := r.Intents[0]
	for _, it := range r.Intents[1:] {
		if it.Confidence > best.Confidence {
			best = it
		}
	}
	return best.Label, true
}

// PrimaryEntity returns the highest-confidence entity of the wanted type.
func (r *NLUResult) PrimaryEntity(want model.EntityType) (model.Entity, bool) {
	if r == nil {
		return model.UnknownEntity(), false
	}
	found := false
	best := ScoredEntity{Confidence: -1}
	for _, e := range r.Entities {
		if e.Type != want {
			continue
		}
		if e.Confidence > best.Confidence {
			best = e
			found = true
		}
	}
	if !found {
		return model.UnknownEntity(), false
	}
	ent := model.Entity{Type: best.Type, Value: best.Value}
	if ent.IsUnknown() {
		return model.UnknownEntity(), false
	}
	return ent, true
}

// Frustrated reports whether the reply flags the user as frustrated.
func (r *NLUResult) Frustrated(minConfidence float64) bool {
	if r == nil {
		return false
	}
	if r.FrustrationFlag {
		return true
	}
	s := r.Sentiment
	return (s.Label == "negative" || s.Label == "frustrated" || s.Label == "angry") && s.Confidence >= minConfidence
}

type rawTuple struct {
	Type  string
	Parts []string
}

func parseRawTuple(s string) (*rawTuple, error) {
	if s == "" {
		return nil, fmt.Errorf("empty tuple")
	}
	if len(s) > maxTupleLen {
		return nil, fmt.Errorf("tuple too large")
	}

	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return nil, fmt.Errorf("invalid tuple parens")
	}
	inner := s[1 : len(s)-1]
	parts := strings.SplitN(inner, TupDelim, 5)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid tuple parts")
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if !utf8.ValidString(parts[i]) {
			return nil, fmt.Errorf("tuple part %d invalid utf8", i)
		}
	}
	return &rawTuple{Type: strings.ToLower(parts[0]), Parts: parts}, nil
}

func parseFloatInRange(s, name string, min, max float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse: %w", name, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s invalid number", name)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%s out of range", name)
	}
	return v, nil
}

// optionalConfidence parses parts[i] when present and defaults to 1.
func optionalConfidence(parts []string, i int, name string) (float64, error) {
	if len(parts) <= i || parts[i] == "" {
		return 1, nil
	}
	return parseFloatInRange(parts[i], name, 0, 1)
}

// ParseNLUResponse parses the delimiter tuple format shared by the
// classification, extraction and refund-verification prompts.
func ParseNLUResponse(content string) (resp *NLUResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "nlu_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("nlu parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			resp = nil
		}
	}()

	resp = &NLUResult{}
	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "nlu_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
		resp.Truncated = true
	}
	if idx := strings.Index(content, EndDelim); idx >= 0 {
		content = content[:idx]
	}
	content = stripCodeFence(content)

	addErr := func(msg string) { resp.Errors = append(resp.Errors, msg) }

	processed := 0
	for _, rec := range strings.Split(content, RecDelim) {
		if processed >= maxRecords {
			addErr("records capped")
			break
		}
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		processed++

		rt, rerr := parseRawTuple(rec)
		if rerr != nil {
			addErr(fmt.Sprintf("bad_record: %s", safeSnippet(rec)))
			continue
		}

		switch rt.Type {
		case "intent":
			label := rt.Parts[1]
			if label == "" {
				addErr("intent: empty label")
				continue
			}
			conf, err := optionalConfidence(rt.Parts, 2, "intent.confidence")
			if err != nil {
				addErr("intent: invalid confidence")
				continue
			}
			prio, err := optionalConfidence(rt.Parts, 3, "intent.priority")
			if err != nil {
				prio = 0
			}
			resp.Intents = append(resp.Intents, ScoredIntent{
				Label:      model.CoerceIntent(label),
				Raw:        label,
				Confidence: conf,
				Priority:   prio,
			})

		case "entity":
			if len(rt.Parts) < 3 {
				addErr("entity: insufficient parts")
				continue
			}
			etype := model.EntityType(strings.ToLower(rt.Parts[1]))
			val := strings.Trim(rt.Parts[2], "\"'`")
			if etype == "" || val == "" {
				addErr("entity: empty type or value")
				continue
			}
			conf, err := optionalConfidence(rt.Parts, 3, "entity.confidence")
			if err != nil {
				addErr("entity: invalid confidence")
				continue
			}
			resp.Entities = append(resp.Entities, ScoredEntity{Type: etype, Value: val, Confidence: conf})

		case "sentiment":
			label := strings.ToLower(rt.Parts[1])
			if label == "" {
				addErr("sentiment: empty label")
				continue
			}
			conf, err := optionalConfidence(rt.Parts, 2, "sentiment.confidence")
			if err != nil {
				addErr("sentiment: invalid confidence")
				continue
			}
			resp.Sentiment = Sentiment{Label: label, Confidence: conf}

		case "frustration":
			switch strings.ToLower(rt.Parts[1]) {
			case "1", "true", "yes":
				resp.FrustrationFlag = true
			}

		case "language":
			code := strings.ToLower(rt.Parts[1])
			if !isLanguageCode(code) {
				addErr("language: invalid code")
				continue
			}
			resp.Language = code

		default:
			addErr("unknown tuple type")
		}
	}

	if len(resp.Errors) > 0 {
		logx.Debug().
			Str("component", "nlu_parser").
			Strs("parsing_errors", resp.Errors).
			Msg("nlu reply contained unparseable records")
	}
	return resp, nil
}

// --- helpers ---

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}

func isLanguageCode(code string) bool {
	if len(code) != 2 && len(code) != 3 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'a' || code[i] > 'z' {
			return false
		}
	}
	return true
}
