package notify

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// LowBalanceTitle is the fixed headline for balance warnings.
const LowBalanceTitle = "Atenção: Saldo Baixo!"

// ptBR renders numbers with Brazilian decimal separators ("3,50").
var ptBR = message.NewPrinter(language.BrazilianPortuguese)

// LowBalanceMessage renders the balance warning body with the amount in
// BRL comma-decimal form.
func LowBalanceMessage(balance float64) string {
	return ptBR.Sprintf("Seu saldo atual é de R$ %.2f. Recarregue para evitar interrupções.", balance)
}

// LineDelayTitle composes the headline for a delayed line. The title is
// also the suppression key for the one-hour window, so it must stay
// deterministic for a given line name.
func LineDelayTitle(lineName string) string {
	return "Atraso na " + lineName
}

// LineDelayMessage composes the delay details body.
func LineDelayMessage(reason string, delayMinutes int) string {
	return ptBR.Sprintf("Motivo: %s. Tempo estimado de atraso: %d minutos.", reason, delayMinutes)
}
