package services

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"x-scraper/models"
)

// stopwords is a compact english list; feed content is short enough that a
// full IR-grade list buys nothing.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true, "has": true,
	"have": true, "he": true, "in": true, "is": true, "it": true, "its": true,
	"of": true, "on": true, "or": true, "that": true, "the": true, "this": true,
	"to": true, "was": true, "we": true, "were": true, "will": true, "with": true,
	"you": true, "your": true, "i": true, "my": true, "me": true, "not": true,
	"no": true, "so": true, "if": true, "they": true, "their": true, "them": true,
	"our": true, "all": true, "can": true, "do": true, "just": true, "what": true,
}

// TFIDFResult is the batch-wide term weighting over post content plus a 2D
// projection of the document-term matrix for similarity visualization. It is
// a pure function of the canonical record set; nothing feeds back into the
// per-record signal fields.
type TFIDFResult struct {
	Terms      []string
	Weights    []float64    // batch weight per term (sum of tf-idf over documents)
	Matrix     [][]float64  // document × term tf-idf values
	Projection [][2]float64 // one 2D point per document
}

// ComputeTFIDF builds the bag-of-words tf-idf weighting across all documents
// in the batch. Vocabulary is capped at maxFeatures terms (ranked by total
// occurrence count) and terms appearing in fewer than minDocFreq documents
// are dropped. idf = ln((1+N)/(1+df)) + 1.
func ComputeTFIDF(docs []string, maxFeatures, minDocFreq int) *TFIDFResult {
	n := len(docs)
	res := &TFIDFResult{}
	if n == 0 {
		return res
	}

	tokenized := make([][]string, n)
	docFreq := make(map[string]int)
	totalFreq := make(map[string]int)

	for i, doc := range docs {
		toks := tokenize(doc)
		tokenized[i] = toks

		inDoc := make(map[string]bool)
		for _, t := range toks {
			totalFreq[t]++
			if !inDoc[t] {
				inDoc[t] = true
				docFreq[t]++
			}
		}
	}

	type cand struct {
		term  string
		total int
	}
	cands := make([]cand, 0, len(docFreq))
	for term, df := range docFreq {
		if df >= minDocFreq {
			cands = append(cands, cand{term, totalFreq[term]})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].total != cands[j].total {
			return cands[i].total > cands[j].total
		}
		return cands[i].term < cands[j].term
	})
	if maxFeatures > 0 && len(cands) > maxFeatures {
		cands = cands[:maxFeatures]
	}

	res.Terms = make([]string, len(cands))
	for i, c := range cands {
		res.Terms[i] = c.term
	}
	sort.Strings(res.Terms)

	if len(res.Terms) == 0 {
		return res
	}

	col := make(map[string]int, len(res.Terms))
	for i, t := range res.Terms {
		col[t] = i
	}

	res.Weights = make([]float64, len(res.Terms))
	res.Matrix = make([][]float64, n)
	for i, toks := range tokenized {
		row := make([]float64, len(res.Terms))
		counts := make(map[string]int)
		for _, t := range toks {
			counts[t]++
		}
		for term, tf := range counts {
			j, ok := col[term]
			if !ok {
				continue
			}
			idf := math.Log(float64(1+n)/float64(1+docFreq[term])) + 1
			w := float64(tf) * idf
			row[j] = w
			res.Weights[j] += w
		}
		res.Matrix[i] = row
	}

	res.Projection = project2D(res.Matrix)
	return res
}

// TopTerms returns the k heaviest vocabulary terms for the batch report.
func (r *TFIDFResult) TopTerms(k int) []models.TermWeight {
	out := make([]models.TermWeight, len(r.Terms))
	for i, t := range r.Terms {
		out[i] = models.TermWeight{Term: t, Weight: r.Weights[i]}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Term < out[j].Term
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// project2D reduces the document-term matrix to two principal components.
// Degenerate batches (too few documents or terms, or zero variance) get the
// zero projection instead of an error.
func project2D(matrix [][]float64) [][2]float64 {
	n := len(matrix)
	proj := make([][2]float64, n)
	if n < 3 || len(matrix[0]) < 2 {
		return proj
	}
	d := len(matrix[0])

	data := mat.NewDense(n, d, nil)
	for i, row := range matrix {
		data.SetRow(i, row)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return proj
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	_, cols := vecs.Dims()
	if cols < 2 {
		return proj
	}

	var projected mat.Dense
	projected.Mul(data, vecs.Slice(0, d, 0, 2))

	for i := 0; i < n; i++ {
		proj[i] = [2]float64{projected.At(i, 0), projected.At(i, 1)}
	}
	return proj
}

// tokenize lowercases and splits content into word tokens, dropping
// stopwords and single characters.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 || stopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}
