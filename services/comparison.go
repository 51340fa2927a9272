package services

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"docintel-platform/models"
)

// Granularity selects the token stream used for alignment and similarity.
type Granularity string

const (
	GranularityChar Granularity = "char"
	GranularityWord Granularity = "word"
)

// ComparatorConfig controls normalization and tokenization. Both inputs of a
// comparison always go through the identical pipeline.
type ComparatorConfig struct {
	Granularity Granularity
	CaseFold    bool
}

// Comparator aligns and scores the outputs of two OCR engines for the same
// page, and records the results for statistics and export.
//
// Similarity is the LCS ratio 2*matches/(lenA+lenB) over the configured
// granularity (character tokens by default, mirroring how sequence-matcher
// ratios are usually taken over raw text). Match rate is stricter: the
// fraction of exactly-equal word tokens under the word-level alignment,
// matches/max(lenA,lenB). Both are pure functions of the two texts.
type Comparator struct {
	cfg ComparatorConfig

	mu      sync.Mutex
	history []models.ComparisonResult
}

func NewComparator(cfg ComparatorConfig) *Comparator {
	if cfg.Granularity == "" {
		cfg.Granularity = GranularityChar
	}
	return &Comparator{cfg: cfg}
}

// Compare produces a new ComparisonResult for two OCR results of the same
// page. Results for different pages or from the same engine are rejected.
func (c *Comparator) Compare(a, b models.OCRResult) (models.ComparisonResult, error) {
	if a.DocumentID != b.DocumentID || a.PageIndex != b.PageIndex {
		return models.ComparisonResult{}, fmt.Errorf("%w: results reference different pages", ErrInvalidConfiguration)
	}
	if a.Engine == b.Engine {
		return models.ComparisonResult{}, fmt.Errorf("%w: comparison requires two distinct engines", ErrInvalidConfiguration)
	}

	textA := c.normalize(a.Text())
	textB := c.normalize(b.Text())

	wordsA := tokenizeWords(textA)
	wordsB := tokenizeWords(textB)

	result := models.ComparisonResult{
		DocumentID:      a.DocumentID,
		PageIndex:       a.PageIndex,
		EngineA:         a.Engine,
		EngineB:         b.Engine,
		SimilarityScore: c.similarity(textA, textB),
		MatchRate:       matchRate(wordsA, wordsB),
		Diff:            diffSpans(textA, textB),
		WordCountA:      len(wordsA),
		WordCountB:      len(wordsB),
		ComparedAt:      time.Now(),
	}
	result.CommonTokens, result.UniqueA, result.UniqueB = analyzeWords(wordsA, wordsB)

	c.mu.Lock()
	c.history = append(c.history, result)
	c.mu.Unlock()

	return result, nil
}

func (c *Comparator) normalize(text string) string {
	text = norm.NFKC.String(text)
	text = strings.Join(strings.Fields(text), " ")
	if c.cfg.CaseFold {
		text = strings.ToLower(text)
	}
	return text
}

func (c *Comparator) similarity(textA, textB string) float64 {
	var tokensA, tokensB []string
	if c.cfg.Granularity == GranularityWord {
		tokensA, tokensB = strings.Fields(textA), strings.Fields(textB)
	} else {
		tokensA, tokensB = splitRunes(textA), splitRunes(textB)
	}

	if len(tokensA) == 0 && len(tokensB) == 0 {
		return 1.0 // identical by vacuity
	}
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}

	matches := lcsLength(tokensA, tokensB)
	return 2.0 * float64(matches) / float64(len(tokensA)+len(tokensB))
}

// matchRate is the fraction of aligned word positions holding exactly equal
// tokens: LCS matches over max(lenA, lenB).
func matchRate(wordsA, wordsB []string) float64 {
	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 1.0 // identical by vacuity
	}
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0.0
	}

	matches := lcsLength(wordsA, wordsB)
	longer := len(wordsA)
	if len(wordsB) > longer {
		longer = len(wordsB)
	}
	return float64(matches) / float64(longer)
}

func analyzeWords(wordsA, wordsB []string) (common, uniqueA, uniqueB []string) {
	setA := make(map[string]struct{}, len(wordsA))
	for _, w := range wordsA {
		setA[w] = struct{}{}
	}
	setB := make(map[string]struct{}, len(wordsB))
	for _, w := range wordsB {
		setB[w] = struct{}{}
	}

	common = []string{}
	uniqueA = []string{}
	uniqueB = []string{}
	for w := range setA {
		if _, ok := setB[w]; ok {
			common = append(common, w)
		} else {
			uniqueA = append(uniqueA, w)
		}
	}
	for w := range setB {
		if _, ok := setA[w]; !ok {
			uniqueB = append(uniqueB, w)
		}
	}
	sort.Strings(common)
	sort.Strings(uniqueA)
	sort.Strings(uniqueB)
	return common, uniqueA, uniqueB
}

// diffSpans builds the markup at character level over the normalized texts
// so that concatenating equal+deleted spans reproduces text A exactly and
// equal+inserted reproduces text B, regardless of the similarity
// granularity.
func diffSpans(textA, textB string) []models.DiffSpan {
	runesA := splitRunes(textA)
	runesB := splitRunes(textB)

	var spans []models.DiffSpan
	for _, op := range lcsOpcodes(runesA, runesB) {
		switch op.tag {
		case opEqual:
			spans = append(spans, models.DiffSpan{
				Op:   models.SpanEqual,
				Text: strings.Join(runesA[op.a1:op.a2], ""),
			})
		case opDelete:
			spans = append(spans, models.DiffSpan{
				Op:   models.SpanDeleted,
				Text: strings.Join(runesA[op.a1:op.a2], ""),
			})
		case opInsert:
			spans = append(spans, models.DiffSpan{
				Op:   models.SpanInserted,
				Text: strings.Join(runesB[op.b1:op.b2], ""),
			})
		}
	}
	return spans
}

// History returns a copy of the recorded comparisons in order.
func (c *Comparator) History() []models.ComparisonResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ComparisonResult, len(c.history))
	copy(out, c.history)
	return out
}

// Stats aggregates the recorded comparison history.
func (c *Comparator) Stats() models.ComparisonStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := models.ComparisonStats{TotalPages: len(c.history)}
	if len(c.history) == 0 {
		return stats
	}

	var sumMatch, sumSim, sumCommon, sumUniqueA, sumUniqueB float64
	for _, r := range c.history {
		sumMatch += r.MatchRate
		sumSim += r.SimilarityScore
		sumCommon += float64(len(r.CommonTokens))
		sumUniqueA += float64(len(r.UniqueA))
		sumUniqueB += float64(len(r.UniqueB))
		stats.TotalDiffSpans += len(r.Diff)
		stats.TotalWordsA += r.WordCountA
		stats.TotalWordsB += r.WordCountB
	}
	n := float64(len(c.history))
	stats.AverageMatchRate = sumMatch / n
	stats.AverageSimilarity = sumSim / n
	stats.AverageCommonTokens = sumCommon / n
	stats.AverageUniqueA = sumUniqueA / n
	stats.AverageUniqueB = sumUniqueB / n
	return stats
}

// ExportJSON writes the recorded comparison history as JSON.
func (c *Comparator) ExportJSON(w io.Writer) error {
	history := c.History()
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(history)
}

// tokenizeWords splits on any rune that is not a letter, digit or
// underscore, so OCR confusions like "qu1ck" stay single tokens.
func tokenizeWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

func splitRunes(text string) []string {
	runes := []rune(text)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}

type opTag int

const (
	opEqual opTag = iota
	opDelete
	opInsert
)

type opcode struct {
	tag            opTag
	a1, a2, b1, b2 int
}

// lcsLength returns the longest-common-subsequence length of two token
// sequences.
func lcsLength(a, b []string) int {
	a, b, prefix, suffix := trimCommon(a, b)
	dp := lcsTable(a, b)
	return dp[len(a)][len(b)] + prefix + suffix
}

// lcsOpcodes produces the ordered edit script between two token sequences:
// maximal runs tagged equal, delete (present only in a) or insert (present
// only in b).
func lcsOpcodes(a, b []string) []opcode {
	inner, innerB, prefix, suffix := trimCommon(a, b)
	dp := lcsTable(inner, innerB)

	// Backtrack from the bottom-right corner, collecting single-token ops.
	type step struct {
		tag  opTag
		i, j int
	}
	var steps []step
	i, j := len(inner), len(innerB)
	for i > 0 && j > 0 {
		if inner[i-1] == innerB[j-1] {
			steps = append(steps, step{opEqual, i - 1, j - 1})
			i--
			j--
		} else if dp[i-1][j] >= dp[i][j-1] {
			steps = append(steps, step{opDelete, i - 1, j})
			i--
		} else {
			steps = append(steps, step{opInsert, i, j - 1})
			j--
		}
	}
	for i > 0 {
		steps = append(steps, step{opDelete, i - 1, j})
		i--
	}
	for j > 0 {
		steps = append(steps, step{opInsert, i, j - 1})
		j--
	}

	// Reverse into forward order and merge runs, offsetting by the trimmed
	// common prefix.
	var ops []opcode
	if prefix > 0 {
		ops = append(ops, opcode{opEqual, 0, prefix, 0, prefix})
	}
	for k := len(steps) - 1; k >= 0; k-- {
		s := steps[k]
		var op opcode
		switch s.tag {
		case opEqual:
			op = opcode{opEqual, prefix + s.i, prefix + s.i + 1, prefix + s.j, prefix + s.j + 1}
		case opDelete:
			op = opcode{opDelete, prefix + s.i, prefix + s.i + 1, prefix + s.j, prefix + s.j}
		case opInsert:
			op = opcode{opInsert, prefix + s.i, prefix + s.i, prefix + s.j, prefix + s.j + 1}
		}
		if n := len(ops); n > 0 && ops[n-1].tag == op.tag && ops[n-1].a2 == op.a1 && ops[n-1].b2 == op.b1 {
			ops[n-1].a2 = op.a2
			ops[n-1].b2 = op.b2
		} else {
			ops = append(ops, op)
		}
	}
	if suffix > 0 {
		aStart := len(a) - suffix
		bStart := len(b) - suffix
		if n := len(ops); n > 0 && ops[n-1].tag == opEqual && ops[n-1].a2 == aStart && ops[n-1].b2 == bStart {
			ops[n-1].a2 = len(a)
			ops[n-1].b2 = len(b)
		} else {
			ops = append(ops, opcode{opEqual, aStart, len(a), bStart, len(b)})
		}
	}
	return ops
}

// trimCommon strips the shared prefix and suffix before the quadratic DP;
// OCR outputs of the same page are mostly identical, which keeps the table
// small.
func trimCommon(a, b []string) (ta, tb []string, prefix, suffix int) {
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	for suffix < len(a)-prefix && suffix < len(b)-prefix &&
		a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}
	return a[prefix : len(a)-suffix], b[prefix : len(b)-suffix], prefix, suffix
}

func lcsTable(a, b []string) [][]int {
	dp := make([][]int, len(a)+1)
	for i := range dp {
		dp[i] = make([]int, len(b)+1)
	}
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else if dp[i-1][j] >= dp[i][j-1] {
				dp[i][j] = dp[i-1][j]
			} else {
				dp[i][j] = dp[i][j-1]
			}
		}
	}
	return dp
}
