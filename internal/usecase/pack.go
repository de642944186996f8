package usecase

import (
	"strings"

	"paperrag/internal/domain"
	"paperrag/internal/port"
)

const excerptSeparator = "\n\n---\n\n"

// PackedExcerpts is the set of passages placed into one prompt.
type PackedExcerpts struct {
	Hits         []domain.ScoredHit
	BudgetTokens int
	UsedTokens   int
	Skipped      int
}

// Text joins the excerpts in rank order with a horizontal rule between them.
func (p PackedExcerpts) Text() string {
	texts := make([]string, len(p.Hits))
	for i, h := range p.Hits {
		texts[i] = h.Chunk.Text
	}
	return strings.Join(texts, excerptSeparator)
}

// PackUseCase selects the leading hits of a ranking under a token budget.
type PackUseCase struct {
	tokenizer port.Tokenizer
	budget    int
}

// NewPackUseCase creates a packer. A budget of 0 disables the token limit.
func NewPackUseCase(tokenizer port.Tokenizer, budgetTokens int) *PackUseCase {
	return &PackUseCase{
		tokenizer: tokenizer,
		budget:    budgetTokens,
	}
}

// Pack keeps up to limit hits in rank order. Hits that would overflow the
// budget are skipped, except the first, which is always kept so a prompt is
// never empty.
func (u *PackUseCase) Pack(hits []domain.ScoredHit, limit int) PackedExcerpts {
	if limit > len(hits) {
		limit = len(hits)
	}
	packed := PackedExcerpts{
		Hits:         make([]domain.ScoredHit, 0, limit),
		BudgetTokens: u.budget,
	}

	for _, h := range hits[:max(limit, 0)] {
		tokens := u.tokenizer.CountTokens(h.Chunk.Text)
		if u.budget > 0 && len(packed.Hits) > 0 && packed.UsedTokens+tokens > u.budget {
			packed.Skipped++
			continue
		}
		packed.Hits = append(packed.Hits, h)
		packed.UsedTokens += tokens
	}

	return packed
}
