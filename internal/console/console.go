package console

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/osaetin-tails/rag-demo/internal/service"
)

const check = "✅"

// Printer writes the user-facing console output: banners, ingestion
// progress, answers and turn errors. Styles degrade to plain text when w is
// not a terminal.
type Printer struct {
	out            io.Writer
	bannerStyle    lipgloss.Style
	doneStyle      lipgloss.Style
	summaryStyle   lipgloss.Style
	errorStyle     lipgloss.Style
	highlightStyle lipgloss.Style
}

func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		out:            w,
		bannerStyle:    r.NewStyle().Bold(true),
		doneStyle:      r.NewStyle().Foreground(lipgloss.Color("10")),
		summaryStyle:   r.NewStyle().Foreground(lipgloss.Color("8")),
		errorStyle:     r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		highlightStyle: r.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
	}
}

// Banner prints title framed by five dashes on each side.
func (p *Printer) Banner(title string) {
	fmt.Fprintln(p.out, p.bannerStyle.Render("-----"+title+"-----"))
}

// Step starts a progress line that Done completes.
func (p *Printer) Step(msg string) {
	fmt.Fprint(p.out, msg+"... ")
}

func (p *Printer) Done(detail string) {
	if detail != "" {
		detail += " "
	}
	fmt.Fprintln(p.out, detail+p.doneStyle.Render(check))
}

// Begin and End report ingestion stages as progress lines.
func (p *Printer) Begin(stage service.Stage) { p.Step(string(stage)) }

func (p *Printer) End(_ service.Stage, detail string) { p.Done(detail) }

func (p *Printer) Summary(summary string) {
	if summary == "" {
		return
	}
	fmt.Fprintln(p.out, p.summaryStyle.Render("Overview: "+summary))
}

func (p *Printer) Prompt() {
	fmt.Fprint(p.out, "> ")
}

// Answer prints the model output verbatim followed by a blank line.
func (p *Printer) Answer(text string) {
	fmt.Fprintf(p.out, "%s\n\n", text)
}

func (p *Printer) Error(err error) {
	fmt.Fprintln(p.out, p.errorStyle.Render("error: "+err.Error()))
}

// Excerpt returns text with the sentence that shares the most words with
// query highlighted.
func (p *Printer) Excerpt(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{text}
	}
	qTokens := toTokenSet(query)
	bestIdx, bestScore := -1, 0
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	out := make([]string, len(sentences))
	for i := range sentences {
		sent := strings.Join(strings.Fields(sentences[i]), " ")
		if i == bestIdx {
			sent = p.highlightStyle.Render(sent)
		}
		out[i] = sent
	}
	return strings.Join(out, " ")
}

var (
	unicodeWordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe    = regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`)
)

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
