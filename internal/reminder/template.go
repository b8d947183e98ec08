package reminder

import (
	"context"

	"github.com/frahmantamala/credify/internal/debt"
)

// TemplateGenerator writes a fixed Portuguese message offline. It is used when no
// API key is configured.
type TemplateGenerator struct{}

func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

func (g *TemplateGenerator) Generate(ctx context.Context, req debt.ReminderRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return render(messageTemplate, req, "pt-BR")
}
