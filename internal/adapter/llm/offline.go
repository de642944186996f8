package llm

import (
	"context"
	"strings"
)

const excerptSeparator = "\n\n---\n\n"

// Offline is a deterministic stand-in for a hosted model. It answers with
// the leading sentence of each excerpt found in the user prompt, which keeps
// the pipeline usable without network access or an API key.
type Offline struct {
	maxBullets int
}

func NewOffline() *Offline {
	return &Offline{maxBullets: 7}
}

func (o *Offline) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	body := userPrompt
	if i := strings.Index(body, "EXCERPTS:"); i >= 0 {
		body = body[i+len("EXCERPTS:"):]
	}

	var bullets []string
	for _, excerpt := range strings.Split(body, excerptSeparator) {
		sentence := leadingSentence(excerpt)
		if sentence == "" {
			continue
		}
		bullets = append(bullets, "- "+sentence)
		if len(bullets) == o.maxBullets {
			break
		}
	}
	if len(bullets) == 0 {
		return "- No supporting excerpts were provided.", nil
	}
	return strings.Join(bullets, "\n"), nil
}

func leadingSentence(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}
	if i := strings.IndexAny(text, ".!?"); i >= 0 {
		return text[:i+1]
	}
	const limit = 200
	if runes := []rune(text); len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return text
}

func (o *Offline) ModelName() string {
	return "offline"
}
