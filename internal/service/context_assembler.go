package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aqstack/ragstore/internal/config"
	"github.com/aqstack/ragstore/internal/model"
)

const (
	maxSnippetChars  = 1500
	truncationMarker = "... [content truncated]"
)

// ContextResult is a prompt-ready context block plus the citations backing it,
// in inclusion order.
type ContextResult struct {
	Context   string            `json:"context"`
	Citations []*model.Citation `json:"citations"`
	Used      int               `json:"used"`
}

type ContextAssembler struct {
	retrieval *RetrievalService
	budget    int
}

func NewContextAssembler(retrieval *RetrievalService, cfg config.RetrievalConfig) *ContextAssembler {
	return &ContextAssembler{retrieval: retrieval, budget: cfg.ContextBudget}
}

// Assemble retrieves for the query and packs ranked results into a bounded
// context string. Results are taken greedily in rank order; a result whose
// formatted block would overflow the budget is skipped, not truncated away.
func (a *ContextAssembler) Assemble(ctx context.Context, query string, k int, minScore float32, allowedDocIDs []string) (*ContextResult, error) {
	results, err := a.retrieval.Retrieve(ctx, query, k, minScore, allowedDocIDs)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	var citations []*model.Citation
	var included []*model.SearchResult
	seenCitation := make(map[string]struct{})
	spent := 0
	for _, res := range results {
		if isNearDuplicate(included, res) {
			continue
		}
		block := formatBlock(res)
		// budget is in characters, so count runes like the chunk windows do
		cost := utf8.RuneCountInString(block)
		if len(included) > 0 {
			cost += len("\n\n")
		}
		if spent+cost > a.budget {
			continue
		}
		spent += cost
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(block)
		included = append(included, res)
		key := res.DocumentName + "\x00" + res.Locator
		if _, ok := seenCitation[key]; !ok {
			seenCitation[key] = struct{}{}
			citations = append(citations, &model.Citation{
				DocumentName: res.DocumentName,
				Locator:      res.Locator,
			})
		}
	}
	return &ContextResult{
		Context:   sb.String(),
		Citations: citations,
		Used:      len(included),
	}, nil
}

// isNearDuplicate reports whether res overlaps an already included result: the
// same document at an adjacent ordinal shares most of its text through the
// chunk overlap window.
func isNearDuplicate(included []*model.SearchResult, res *model.SearchResult) bool {
	for _, prior := range included {
		if prior.DocumentID != res.DocumentID {
			continue
		}
		diff := prior.Ordinal - res.Ordinal
		if diff == 1 || diff == -1 {
			return true
		}
	}
	return false
}

func formatBlock(res *model.SearchResult) string {
	content := truncateAtWord(res.Content, maxSnippetChars)
	if res.Locator == "" {
		return fmt.Sprintf("File: %s\nContent: %s", res.DocumentName, content)
	}
	return fmt.Sprintf("File: %s\nLocation: %s\nContent: %s", res.DocumentName, res.Locator, content)
}

// truncateAtWord cuts s to at most limit runes, backing up to the last word
// boundary when one exists in the tail, and appends a truncation marker.
func truncateAtWord(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	cut := string(runes[:limit])
	if idx := strings.LastIndexByte(cut, ' '); idx > limit/2 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ") + truncationMarker
}
