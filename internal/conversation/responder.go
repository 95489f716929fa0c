package conversation

import (
	"context"
	"math/rand/v2"
	"strings"
)

// Responder turns retrieved context into an answer for query.
type Responder interface {
	Compose(ctx context.Context, query, retrieved string) (string, error)
}

var answerTemplates = []string{
	"எனது குறிப்புகளின்படி: {context}\n\nஇது உங்கள் கேள்விக்கான பதில்: இதில் இருந்து, {query} பற்றி மேலே கொடுக்கப்பட்ட தகவல்கள் உள்ளன.",
	"ஆவணங்களிலிருந்து கிடைத்த தகவல்:\n{context}\n\n{query} - இது பற்றி மேலே உள்ள தகவல்களைப் பார்க்கவும்.",
	"எனது தரவுகளின்படி:\n{context}\n\nஇந்தத் தகவல்களின் அடிப்படையில், உங்கள் கேள்விக்கான பதில் காணப்படுகிறது.",
}

// TemplateResponder fills one of a fixed set of answer templates, chosen
// with the injected random source.
type TemplateResponder struct {
	rng *rand.Rand
}

func NewTemplateResponder(rng *rand.Rand) *TemplateResponder {
	return &TemplateResponder{rng: rng}
}

func (t *TemplateResponder) Compose(_ context.Context, query, retrieved string) (string, error) {
	tpl := answerTemplates[t.rng.IntN(len(answerTemplates))]
	return strings.NewReplacer("{context}", retrieved, "{query}", query).Replace(tpl), nil
}
