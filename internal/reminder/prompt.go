package reminder

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/frahmantamala/credify/internal/debt"
	"github.com/frahmantamala/credify/internal/money"
)

var funcs = template.FuncMap{
	"brl":  money.FormatBRL,
	"date": money.FormatDate,
}

var promptTemplate = template.Must(template.New("prompt").Funcs(funcs).Parse(
	`Crie uma mensagem profissional e gentil para o devedor {{.DebtorName}}. ` +
		`Status: {{.Status.Label}}. Valor: {{brl .RemainingAmount}}. ` +
		`Data de vencimento original: {{date .DueDate}}. ` +
		`Juros acumulados: {{brl .AccruedInterest}}. ` +
		`Foque em clareza financeira e mantenha um tom de confiança. Seja breve.` +
		`{{if ne .Language "pt-BR"}} Responda no idioma {{.Language}}.{{end}}`))

var messageTemplate = template.Must(template.New("message").Funcs(funcs).Parse(
	`Olá, {{.DebtorName}}! ` +
		`{{if eq .Status "OVERDUE"}}Identificamos que o pagamento com vencimento em {{date .DueDate}} está em atraso há {{.DaysLate}} {{if eq .DaysLate 1}}dia{{else}}dias{{end}}. ` +
		`O valor atualizado é {{brl .RemainingAmount}}, incluindo {{brl .AccruedInterest}} de juros.` +
		`{{else if eq .Status "DUE_SOON"}}Passando para lembrar que o pagamento de {{brl .RemainingAmount}} vence em {{date .DueDate}}.` +
		`{{else if eq .Status "PAID"}}Confirmamos a quitação total. Obrigado pela pontualidade!` +
		`{{else}}O saldo em aberto é de {{brl .RemainingAmount}}, com vencimento em {{date .DueDate}}.{{end}}` +
		`{{if ne .Status "PAID"}} Qualquer dúvida, estou à disposição.{{end}}`))

type templateData struct {
	debt.ReminderRequest
	Language string
}

func render(t *template.Template, req debt.ReminderRequest, language string) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, templateData{ReminderRequest: req, Language: language}); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// Prompt builds the instruction sent to the text generation model.
func Prompt(req debt.ReminderRequest, language string) (string, error) {
	return render(promptTemplate, req, language)
}
