package services

import (
	"crypto/sha1"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"x-scraper/models"
	"x-scraper/utils"
)

var (
	// statusIDRe captures the numeric post id from a /status/<id> href.
	statusIDRe = regexp.MustCompile(`/status/(\d+)`)
	// countRe matches an abbreviated numeral like "1.2K" or "300".
	countRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)([KkMmBb]?)$`)
	// countTokenRe finds the first numeral-with-suffix token inside button text.
	countTokenRe = regexp.MustCompile(`[\d,.]+[KkMmBb]?`)
	// viewsRe finds "<count> views" in plain container text.
	viewsRe = regexp.MustCompile(`(?i)([\d,.]+[KMB]?)\s*views?`)
)

// Extractor parses one HTML snapshot into zero or more PostRecords. It is a
// pure transformation: a malformed container is skipped and counted, never
// surfaced as an error for the snapshot.
type Extractor struct {
	logger *utils.Logger
}

// NewExtractor creates an Extractor with the given logger.
func NewExtractor(logger *utils.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract parses the snapshot HTML and returns the records it yields plus
// per-snapshot diagnostics.
func (e *Extractor) Extract(snap models.RawSnapshot) ([]*models.PostRecord, models.ExtractStats) {
	var stats models.ExtractStats

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err != nil {
		e.logger.Warn("[extractor] %s snapshot #%d unparsable: %v", snap.Hashtag, snap.Seq, err)
		return nil, stats
	}

	containers := doc.Find(`[data-testid="tweet"]`)
	if containers.Length() == 0 {
		// Older captures wrap posts in bare divs; fall back to the innermost
		// divs carrying both a time element and a post body, so a feed
		// wrapper never yields its posts a second time.
		containers = doc.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
			if !hasPostParts(s) {
				return false
			}
			nested := false
			s.Find("div").EachWithBreak(func(_ int, d *goquery.Selection) bool {
				if hasPostParts(d) {
					nested = true
					return false
				}
				return true
			})
			return !nested
		})
	}

	records := make([]*models.PostRecord, 0, containers.Length())

	containers.Each(func(i int, sel *goquery.Selection) {
		stats.Containers++

		rec, badCounts := e.extractContainer(sel, snap.Hashtag)
		stats.UnparsableCounts += badCounts
		if rec == nil {
			stats.Skipped++
			e.logger.Debug("[extractor] %s snapshot #%d container %d skipped: no usable fields",
				snap.Hashtag, snap.Seq, i)
			return
		}

		stats.Extracted++
		records = append(records, rec)
	})

	e.logger.Info("[extractor] %s snapshot #%d: %d containers → %d records (%d skipped, %d bad counts)",
		snap.Hashtag, snap.Seq, stats.Containers, stats.Extracted, stats.Skipped, stats.UnparsableCounts)

	return records, stats
}

// hasPostParts reports whether a div holds the two markers of a rendered
// post: a time element and a tweetText body.
func hasPostParts(s *goquery.Selection) bool {
	return s.Find("time").Length() > 0 && s.Find(`[data-testid="tweetText"]`).Length() > 0
}

// extractContainer pulls every field out of one post container. A nil record
// means the container yielded nothing extractable at all.
func (e *Extractor) extractContainer(sel *goquery.Selection, queried string) (*models.PostRecord, int) {
	id := extractID(sel)
	displayName, handle := extractUser(sel)
	tsISO, tsRelative := extractTimestamps(sel)
	content := extractContent(sel)

	if id.Status != models.FieldOK && content.Value == "" && tsISO.Status != models.FieldOK && tsRelative.Status != models.FieldOK {
		return nil, 0
	}

	badCounts := 0
	tally := func(cf models.CountField) int {
		if cf.Status == models.FieldMalformed {
			badCounts++
		}
		return cf.N
	}

	rec := &models.PostRecord{
		ID:                id.Value,
		DisplayName:       displayName.Value,
		Handle:            handle.Value,
		Username:          handle.Value,
		TimestampISO:      tsISO.Value,
		TimestampRelative: tsRelative.Value,
		Content:           content.Value,
		ReplyCount:        tally(extractButtonCount(sel, "reply")),
		RetweetCount:      tally(extractButtonCount(sel, "retweet")),
		LikeCount:         tally(extractButtonCount(sel, "like")),
		ViewCount:         tally(extractViewCount(sel)),
		QueriedHashtag:    queried,
		SeenHashtags:      []string{queried},
	}

	rec.Hashtags, rec.Mentions = ScanTokens(rec.Content)

	if rec.ID == "" {
		rec.ID = SyntheticID(rec.Handle, rec.TimestampRelative, rec.Content)
	}

	return rec, badCounts
}

// extractID recovers the post id from any /status/<id> href in the container,
// preferring the permalink that wraps the time element.
func extractID(sel *goquery.Selection) models.Field {
	if a := sel.Find("time").First().Closest("a"); a.Length() > 0 {
		if href, ok := a.Attr("href"); ok {
			if m := statusIDRe.FindStringSubmatch(href); m != nil {
				return models.Field{Value: m[1], Status: models.FieldOK}
			}
		}
	}

	var id string
	sel.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok {
			return true
		}
		if m := statusIDRe.FindStringSubmatch(href); m != nil {
			id = m[1]
			return false
		}
		return true
	})
	if id != "" {
		return models.Field{Value: id, Status: models.FieldOK}
	}
	return models.Field{Status: models.FieldMissing}
}

// extractUser pulls display name and handle from the User-Name block.
func extractUser(sel *goquery.Selection) (displayName, handle models.Field) {
	displayName = models.Field{Status: models.FieldMissing}
	handle = models.Field{Status: models.FieldMissing}

	block := sel.Find(`[data-testid="User-Name"]`).First()
	if block.Length() == 0 {
		return displayName, handle
	}

	a := block.Find("a").First()
	if a.Length() == 0 {
		return displayName, handle
	}

	if href, ok := a.Attr("href"); ok && href != "" {
		parts := strings.Split(strings.TrimRight(href, "/"), "/")
		if h := parts[len(parts)-1]; h != "" {
			handle = models.Field{Value: h, Status: models.FieldOK}
		}
	}

	if span := a.Find("span").First(); span.Length() > 0 {
		if name := strings.TrimSpace(span.Text()); name != "" {
			displayName = models.Field{Value: name, Status: models.FieldOK}
		}
	}

	return displayName, handle
}

// extractTimestamps reads the time element: the machine-readable datetime
// attribute when present, the rendered relative text otherwise.
func extractTimestamps(sel *goquery.Selection) (iso, relative models.Field) {
	iso = models.Field{Status: models.FieldMissing}
	relative = models.Field{Status: models.FieldMissing}

	t := sel.Find("time").First()
	if t.Length() == 0 {
		return iso, relative
	}

	if dt, ok := t.Attr("datetime"); ok && dt != "" {
		iso = models.Field{Value: dt, Status: models.FieldOK}
	}
	if rel := strings.TrimSpace(t.Text()); rel != "" {
		relative = models.Field{Value: rel, Status: models.FieldOK}
	}

	return iso, relative
}

// extractContent reads the post body, falling back to the whole container
// text when the tweetText node is absent.
func extractContent(sel *goquery.Selection) models.Field {
	body := sel.Find(`[data-testid="tweetText"]`).First()
	if body.Length() > 0 {
		return models.Field{Value: normalizeText(body.Text()), Status: models.FieldOK}
	}
	if txt := normalizeText(sel.Text()); txt != "" {
		return models.Field{Value: txt, Status: models.FieldOK}
	}
	return models.Field{Status: models.FieldMissing}
}

// extractButtonCount reads one engagement button (reply/retweet/like) from
// the action group.
func extractButtonCount(sel *goquery.Selection, testID string) models.CountField {
	btn := sel.Find(fmt.Sprintf(`div[role="group"] [data-testid=%q]`, testID)).First()
	if btn.Length() == 0 {
		return models.CountField{Status: models.FieldMissing}
	}

	text := strings.TrimSpace(btn.Text())
	if text == "" {
		if label, ok := btn.Attr("aria-label"); ok {
			text = label
		}
	}
	if text == "" {
		return models.CountField{Status: models.FieldMissing}
	}

	tok := countTokenRe.FindString(text)
	if tok == "" {
		return models.CountField{Status: models.FieldMalformed}
	}
	n, ok := ParseCount(tok)
	if !ok {
		return models.CountField{Status: models.FieldMalformed}
	}
	return models.CountField{N: n, Status: models.FieldOK}
}

// extractViewCount finds the view counter, first through an aria-label
// mentioning views, then by pattern over the raw container text.
func extractViewCount(sel *goquery.Selection) models.CountField {
	var text string
	sel.Find("[aria-label]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		label, _ := s.Attr("aria-label")
		if strings.Contains(strings.ToLower(label), "view") {
			text = label
			return false
		}
		return true
	})

	if text == "" {
		if m := viewsRe.FindStringSubmatch(sel.Text()); m != nil {
			text = m[1]
		}
	}
	if text == "" {
		return models.CountField{Status: models.FieldMissing}
	}

	tok := countTokenRe.FindString(text)
	if tok == "" {
		return models.CountField{Status: models.FieldMalformed}
	}
	n, ok := ParseCount(tok)
	if !ok {
		return models.CountField{Status: models.FieldMalformed}
	}
	return models.CountField{N: n, Status: models.FieldOK}
}

// ParseCount converts an abbreviated numeral ("1.2K", "3M", "300") to an
// integer. Whitespace and thousands separators are stripped; suffixes K, M
// and B multiply by 1e3, 1e6 and 1e9 (case-insensitive). The bool result is
// false when the text does not match the numeral-with-suffix pattern.
func ParseCount(s string) (int, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false
	}

	m := countRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	num, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}

	switch strings.ToUpper(m[2]) {
	case "K":
		num *= 1e3
	case "M":
		num *= 1e6
	case "B":
		num *= 1e9
	}

	return int(num), true
}

// ScanTokens collects hashtags and mentions from post content: tokens
// beginning with '#' or '@', trailing punctuation stripped, first-seen order,
// case preserved as authored.
func ScanTokens(content string) (hashtags, mentions []string) {
	seenTags := make(map[string]bool)
	seenMentions := make(map[string]bool)

	for _, tok := range strings.Fields(content) {
		if len(tok) < 2 {
			continue
		}
		marker := tok[0]
		if marker != '#' && marker != '@' {
			continue
		}

		trimmed := strings.TrimRightFunc(tok, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		if len(trimmed) < 2 {
			continue
		}

		switch marker {
		case '#':
			if !seenTags[trimmed] {
				seenTags[trimmed] = true
				hashtags = append(hashtags, trimmed)
			}
		case '@':
			if !seenMentions[trimmed] {
				seenMentions[trimmed] = true
				mentions = append(mentions, trimmed)
			}
		}
	}

	return hashtags, mentions
}

// SyntheticID derives a stable id for posts whose permalink could not be
// recovered, so dedup still works across overlapping snapshots.
func SyntheticID(handle, timestamp, content string) string {
	h := sha1.New()
	h.Write([]byte(handle))
	h.Write([]byte{'|'})
	h.Write([]byte(timestamp))
	h.Write([]byte{'|'})
	h.Write([]byte(content))
	return "sha1-" + fmt.Sprintf("%x", h.Sum(nil))
}

// normalizeText collapses runs of whitespace into single spaces.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
