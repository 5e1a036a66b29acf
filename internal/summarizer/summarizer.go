// Package summarizer turns a repository README into a short prose
// summary and a list of notable facts.
package summarizer

import (
	"regexp"
	"strings"
)

const maxFacts = 6

// Summary is the condensed view of a README.
type Summary struct {
	Summary   string   `json:"summary"`
	CoolFacts []string `json:"cool_facts"`
}

// Summarize builds a summary from raw README markdown.
func Summarize(readme string) *Summary {
	plain := markdownToPlainText(readme)
	return &Summary{
		Summary:   buildSummary(plain),
		CoolFacts: buildFacts(plain),
	}
}

var (
	reHeaders     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	reBold        = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	reItalic      = regexp.MustCompile(`\*([^*]+)\*`)
	reImage       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	reLink        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	reCodeBlock   = regexp.MustCompile("(?s)```.*?```")
	reInlineCode  = regexp.MustCompile("`([^`]+)`")
	reHRule       = regexp.MustCompile(`(?m)^---+$`)
	reListMarker  = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	reNumMarker   = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	reBlockquote  = regexp.MustCompile(`(?m)^>\s*`)
	reHTMLTag     = regexp.MustCompile(`<[^>]*>`)
	reBlankLines  = regexp.MustCompile(`\n\s*\n`)
	reEdgeSpace   = regexp.MustCompile(`(?m)^\s+|\s+$`)
	reManySpaces  = regexp.MustCompile(`\s+`)
	reAllCaps     = regexp.MustCompile(`^[A-Z\s]+$`)
	reBareMarker  = regexp.MustCompile(`^[•\-*+]\s*$`)
	reBareNumbers = regexp.MustCompile(`^[\d.\s]+$`)
)

// markdownToPlainText strips markdown syntax, keeping the visible text.
// Code blocks and images drop their content; list items become bullet
// lines.
func markdownToPlainText(md string) string {
	s := md
	s = reCodeBlock.ReplaceAllString(s, "")
	s = reImage.ReplaceAllString(s, "$1")
	s = reLink.ReplaceAllString(s, "$1")
	s = reHeaders.ReplaceAllString(s, "")
	s = reBold.ReplaceAllString(s, "$1")
	s = reItalic.ReplaceAllString(s, "$1")
	s = reInlineCode.ReplaceAllString(s, "$1")
	s = reHRule.ReplaceAllString(s, "")
	s = reListMarker.ReplaceAllString(s, "• ")
	s = reNumMarker.ReplaceAllString(s, "")
	s = reBlockquote.ReplaceAllString(s, "")
	s = reHTMLTag.ReplaceAllString(s, "")
	s = reBlankLines.ReplaceAllString(s, "\n\n")
	s = reEdgeSpace.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// buildSummary joins the first meaningful lines of the plain text into
// one paragraph.
func buildSummary(plain string) string {
	meaningful := []string{}
	for _, line := range strings.Split(plain, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		// Skip headers, bare list markers and code-block leftovers
		if len(trimmed) <= 20 || len(trimmed) >= 500 {
			continue
		}
		if reAllCaps.MatchString(trimmed) || reBareMarker.MatchString(trimmed) || reBareNumbers.MatchString(trimmed) {
			continue
		}
		meaningful = append(meaningful, trimmed)
	}

	take := 5
	if take > len(meaningful) {
		take = len(meaningful)
	}
	summary := strings.TrimSpace(strings.Join(meaningful[:take], " "))

	if len(summary) < 100 && len(meaningful) > 5 {
		end := 10
		if end > len(meaningful) {
			end = len(meaningful)
		}
		summary += " " + strings.TrimSpace(strings.Join(meaningful[5:end], " "))
	}

	summary = strings.TrimSpace(reManySpaces.ReplaceAllString(summary, " "))

	if len(summary) < 50 {
		cut := plain
		if len(cut) > 500 {
			cut = cut[:500]
		}
		summary = strings.TrimSpace(cut)
	}
	return summary
}

type factRule struct {
	keyword string
	fact    string
}

var technologyRules = []factRule{
	{"typescript", "Built with TypeScript for enhanced type safety"},
	{"react", "Uses React for modern user interface development"},
	{"next", "Powered by Next.js for full-stack React applications"},
	{"vue", "Built with Vue.js for reactive user interfaces"},
	{"angular", "Uses Angular for enterprise-grade applications"},
	{"node", "Backend powered by Node.js runtime"},
	{"python", "Developed using Python programming language"},
	{"golang", "Built with Go for high-performance applications"},
	{"rust", "Developed in Rust for memory safety and performance"},
}

var featureRules = []struct {
	keywords []string
	fact     string
}{
	{[]string{"api", "rest"}, "Includes RESTful API endpoints for data access"},
	{[]string{"database", "sql"}, "Database integration for persistent data storage"},
	{[]string{"docker", "container"}, "Containerized with Docker for easy deployment"},
	{[]string{"test", "testing"}, "Comprehensive testing suite for reliability"},
	{[]string{"ci/cd", "github actions"}, "Automated CI/CD pipeline for continuous integration"},
	{[]string{"documentation", "docs"}, "Well-documented codebase with comprehensive guides"},
	{[]string{"open source", "opensource"}, "Open source project promoting collaboration"},
}

var defaultFacts = []string{
	"Open source project with active community",
	"Well-structured codebase following best practices",
	"Modern development workflow and tooling",
	"Comprehensive documentation and examples",
}

// buildFacts scans the plain text for technology and feature keywords.
// At most maxFacts are returned; when nothing matches, generic facts
// stand in.
func buildFacts(plain string) []string {
	lower := strings.ToLower(plain)
	facts := []string{}
	seen := map[string]bool{}

	for _, rule := range technologyRules {
		if strings.Contains(lower, rule.keyword) && !seen[rule.fact] {
			facts = append(facts, rule.fact)
			seen[rule.fact] = true
		}
	}
	for _, rule := range featureRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				facts = append(facts, rule.fact)
				break
			}
		}
	}
	if strings.Contains(lower, "license") && strings.Contains(lower, "mit") {
		facts = append(facts, "MIT licensed for maximum flexibility")
	}

	if len(facts) == 0 {
		facts = append(facts, defaultFacts...)
	}
	if len(facts) > maxFacts {
		facts = facts[:maxFacts]
	}
	return facts
}
