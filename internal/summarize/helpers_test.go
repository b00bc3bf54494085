package summarize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Epistemic-Technology/casebrief/internal/llm"
	"github.com/Epistemic-Technology/casebrief/internal/llm/llmtest"
	"github.com/Epistemic-Technology/casebrief/models"
)

var pageToken = regexp.MustCompile(`PG\d+`)

// tokens returns the distinct page tokens in text in order of first
// appearance.
func tokens(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range pageToken.FindAllString(text, -1) {
		if !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}

// echo answers every prompt with a bullet per page token it contains, so
// summaries carry exactly the pages they were built from.
func echo(req llm.Request) (string, error) {
	toks := tokens(req.Prompt)
	if len(toks) == 0 {
		return `""`, nil
	}
	return "- " + strings.Join(toks, "\n- "), nil
}

// echoFake routes every label through echo, with a fixed memory log.
func echoFake() *llmtest.Fake {
	f := llmtest.New()
	f.Default = echo
	f.Reply("memory_update", "Incident Overview:\n- MEMORY")
	f.Reply("memory_verify", "Incident Overview:\n- MEMORY")
	return f
}

// makeDocs returns n pages whose content names their page token.
func makeDocs(n int) []models.Page {
	docs := make([]models.Page, n)
	for i := range docs {
		docs[i] = models.Page{
			Content:    fmt.Sprintf("Report text on PG%d.\nSecond line.", i+1),
			PageNumber: i + 1,
		}
	}
	return docs
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Window = 0
	opts.Workers = 4
	return opts
}
