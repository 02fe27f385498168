package extract

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/coa-verifier/constants"
	"github.com/joseph-ayodele/coa-verifier/internal/entity"
)

// substance names start with a Latin letter; later characters may be any letter or digit
const namePattern = `([A-Za-z][\p{L}\p{N}_-]+)`

var tablePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)결과\s*검출량.*?잔류허용기준.*?\n(.*?)※`),
	regexp.MustCompile(`(?s)Results\s*검출량.*?MRL.*?\n(.*?)※`),
	regexp.MustCompile(`(?s)결과.*?\(Results\).*?검출량.*?잔류허용기준.*?\n(.*?)※`),
	regexp.MustCompile(`(?s)검정결과.*?\n.*?결과.*?검출량.*?잔류허용기준.*?\n(.*?)확인`),
	regexp.MustCompile(`(?s)결과\s*\(Results\).*?검출량\s*\(mg/kg\).*?검토의견.*?\n(.*?)확인`),
}

// rowTier is one row shape inside an isolated table.
type rowTier struct {
	name    string
	re      *regexp.Regexp
	limit   int // capture group of the stated limit
	opinion int
}

// columns are separated by horizontal space; a row never continues onto the next line
const sp = `[ \t]+`

var rowTiers = []rowTier{
	{name: "limit_dash_opinion", re: regexp.MustCompile(`(?:Analytical` + sp + `|Results` + sp + `)?` + namePattern + sp + `([\d.]+)` + sp + `([\d.]+[ \t]*[†*]?)[ \t]*-` + sp + `(적합|부적합)`), limit: 3, opinion: 4},
	{name: "text_dash_opinion", re: regexp.MustCompile(namePattern + sp + `([\d.]+)` + sp + `([^\n\r-]+)` + sp + `-` + sp + `(\S+)`), limit: 3, opinion: 4},
	{name: "text_opinion", re: regexp.MustCompile(namePattern + sp + `([\d.]+)` + sp + `([^\n\r-]+)` + sp + `(\S+)`), limit: 3, opinion: 4},
	{name: "no_comparison", re: regexp.MustCompile(namePattern + sp + `([\d.]+)` + sp + `(-)` + sp + `(-)` + sp + `(-)`), limit: 3, opinion: 5},
}

var (
	reFallbackRow   = regexp.MustCompile(`^(?:Analytical\s+|Results\s+)?` + namePattern + `\s+([\d.]+)\s+(.*?)\s+(.+?)$`)
	reRowShape      = regexp.MustCompile(`[A-Za-z][\p{L}\p{N}_-]+\s+[\d.]+`)
	reFootnoteEnd   = regexp.MustCompile(`\d{4}년\s*\d{2}월\s*\d{2}일|대표이사|확인`)
	reLimitRun      = regexp.MustCompile(`([\d.]+\s*[†*]?)`)
	reFirstNumber   = regexp.MustCompile(`\d+\.?\d*`)
	reNumericToken  = regexp.MustCompile(`^[\d.]+$`)
	reLimitToken    = regexp.MustCompile(`^\d[\d.]*[†*T]?$`)
	reOpinionToken  = regexp.MustCompile(`^(적합|부적합|-|해당없음)$`)
	reTrailingValue = regexp.MustCompile(`\s+[\d.]+\s*$`)
	reDigit         = regexp.MustCompile(`\d`)
	reStartsLetter  = regexp.MustCompile(`^[A-Za-z]`)
)

var footnoteKeywords = []string{"Article", "농수산물", "품질관리법", "Agricultural", "fishery"}

// RowParseError describes a result row that was skipped.
type RowParseError struct {
	Line   string
	Token  string
	Reason string
}

func (e *RowParseError) Error() string {
	return fmt.Sprintf("result row %q: %s (%q)", e.Line, e.Reason, e.Token)
}

// RowParser recovers result-table rows from certificate text.
type RowParser struct {
	logger *slog.Logger
}

func NewRowParser(logger *slog.Logger) *RowParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &RowParser{logger: logger}
}

// rawRow is a row before numeric parsing.
type rawRow struct {
	pos       int
	name      string
	detection string
	limitText string
	opinion   constants.Opinion
	line      string
}

// Parse returns the deduplicated result rows in table order.
func (p *RowParser) Parse(text string) []entity.ResultRow {
	var raws []rawRow
	if table, idx, ok := isolateTable(text); ok {
		raws = tierRows(table)
		mode := "tiers"
		if len(raws) == 0 {
			raws = tokenRows(table)
			mode = "tokens"
		}
		p.logger.Debug("extract.rows.table", "pattern", idx, "mode", mode, "rows", len(raws))
	} else {
		raws = fallbackRows(text)
		p.logger.Debug("extract.rows.fallback", "rows", len(raws))
	}

	rows := make([]entity.ResultRow, 0, len(raws))
	seen := make(map[[2]string]struct{}, len(raws))
	for _, raw := range raws {
		key := [2]string{raw.name, raw.detection}
		if _, dup := seen[key]; dup {
			continue
		}
		row, err := raw.toRow()
		if err != nil {
			p.logger.Warn("extract.rows.skip", "error", err)
			continue
		}
		seen[key] = struct{}{}
		rows = append(rows, row)
	}
	return rows
}

func isolateTable(text string) (string, int, bool) {
	for i, re := range tablePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1], i, true
		}
	}
	return "", -1, false
}

// tierRows runs every tier over the table. A match overlapping an already accepted one is dropped.
func tierRows(table string) []rawRow {
	type span struct{ start, end int }
	var (
		accepted []span
		rows     []rawRow
	)
	overlaps := func(s span) bool {
		for _, a := range accepted {
			if s.start < a.end && a.start < s.end {
				return true
			}
		}
		return false
	}
	for _, tier := range rowTiers {
		for _, loc := range tier.re.FindAllStringSubmatchIndex(table, -1) {
			s := span{loc[0], loc[1]}
			if overlaps(s) {
				continue
			}
			accepted = append(accepted, s)
			group := func(i int) string {
				if loc[2*i] < 0 {
					return ""
				}
				return table[loc[2*i]:loc[2*i+1]]
			}
			name, det := group(1), group(2)
			limitText := strings.TrimSpace(group(tier.limit))
			name, limitText = splitMiskeyedLimit(name, det, limitText)
			rows = append(rows, rawRow{
				pos:       loc[0],
				name:      name,
				detection: det,
				limitText: limitText,
				opinion:   constants.ParseOpinion(group(tier.opinion)),
				line:      table[loc[0]:loc[1]],
			})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].pos < rows[j].pos })
	return rows
}

// splitMiskeyedLimit handles a limit column that repeats the detection token before the real
// limit: the repeated token belongs to the name.
func splitMiskeyedLimit(name, det, limitText string) (string, string) {
	fields := strings.Fields(limitText)
	if len(fields) < 2 || fields[0] != det || !reFirstNumber.MatchString(strings.Join(fields[1:], " ")) {
		return name, limitText
	}
	return name + " " + det, strings.Join(fields[1:], " ")
}

// tokenRows splits table lines on whitespace when no tier matched.
func tokenRows(table string) []rawRow {
	var rows []rawRow
	pos := 0
	for _, line := range strings.Split(table, "\n") {
		lineStart := pos
		pos += len(line) + 1
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "(") || !reStartsLetter.MatchString(line) {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 || !reNumericToken.MatchString(parts[1]) {
			continue
		}
		row := rawRow{pos: lineStart, name: parts[0], detection: parts[1], limitText: "-", opinion: constants.NotApplicable, line: line}
		for _, tok := range parts[2:] {
			if reLimitToken.MatchString(tok) {
				row.limitText = tok
				break
			}
		}
		for _, tok := range parts[2:] {
			if reOpinionToken.MatchString(tok) {
				row.opinion = constants.ParseOpinion(tok)
				break
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// fallbackRows scans the whole document line by line, skipping the statute footnote block.
func fallbackRows(text string) []rawRow {
	var (
		rows       []rawRow
		inFootnote bool
		pos        int
	)
	for _, line := range strings.Split(text, "\n") {
		lineStart := pos
		pos += len(line) + 1
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(line, "농수산물") && strings.Contains(line, "품질관리법") {
			inFootnote = true
			continue
		}
		if inFootnote {
			if reFootnoteEnd.MatchString(line) {
				inFootnote = false
			}
			continue
		}
		if hasFootnoteKeyword(line) && !reRowShape.MatchString(line) {
			continue
		}
		m := reFallbackRow.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name, det := m[1], m[2]
		rest := strings.TrimSpace(m[3] + " " + m[4])
		if f := strings.Fields(rest); len(f) > 0 && f[0] == det {
			name += " " + det
			rest = strings.Join(f[1:], " ")
		}
		rows = append(rows, rawRow{
			pos:       lineStart,
			name:      name,
			detection: det,
			limitText: statedLimitIn(rest, det),
			opinion:   constants.ParseOpinion(rest),
			line:      line,
		})
	}
	return rows
}

func hasFootnoteKeyword(line string) bool {
	for _, k := range footnoteKeywords {
		if strings.Contains(line, k) {
			return true
		}
	}
	return false
}

// statedLimitIn returns the first numeric run whose number is not the detection token.
func statedLimitIn(rest, det string) string {
	for _, m := range reLimitRun.FindAllString(rest, -1) {
		num := reFirstNumber.FindString(m)
		if num == "" || num == det {
			continue
		}
		return strings.TrimSpace(m)
	}
	return "-"
}

// LookupName strips a trailing stray numeral from a display name.
func LookupName(name string) string {
	if !reDigit.MatchString(name) {
		return name
	}
	return strings.TrimSpace(reTrailingValue.ReplaceAllString(name, ""))
}

func (r rawRow) toRow() (entity.ResultRow, error) {
	det, err := decimal.NewFromString(r.detection)
	if err != nil {
		return entity.ResultRow{}, &RowParseError{Line: r.line, Token: r.detection, Reason: "detection value is not a number"}
	}
	limitText := strings.TrimSpace(r.limitText)
	if limitText == "" {
		limitText = "-"
	}
	row := entity.ResultRow{
		Name:            r.name,
		LookupName:      LookupName(r.name),
		Detection:       det,
		DetectionText:   r.detection,
		StatedLimitText: limitText,
		StatedOpinion:   r.opinion,
	}
	if num := reFirstNumber.FindString(limitText); num != "" {
		if v, err := decimal.NewFromString(num); err == nil {
			row.StatedLimit = &v
		}
	}
	return row, nil
}
