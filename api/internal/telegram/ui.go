package telegram

import (
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"calc-api/api/internal/interpret"
	"calc-api/api/internal/util"
)

const maxMessage = 3900

func makeEngineKeyboard(names []string) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(names))
	for _, n := range names {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(n, cbEngine+n))
	}
	reset := tgbotapi.NewInlineKeyboardButtonData("Clear variables", cbReset)
	return tgbotapi.NewInlineKeyboardMarkup(row, tgbotapi.NewInlineKeyboardRow(reset))
}

// esc escapes legacy Markdown control characters.
func esc(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "[", "\\[")
	return s
}

func formatRecords(recs []interpret.Record, saved int) string {
	if len(recs) == 0 {
		return "I did not find anything to calculate."
	}
	var b strings.Builder
	for _, rec := range recs {
		if rec.Assign {
			fmt.Fprintf(&b, "📌 *%s* = %s\n", esc(rec.Expr), esc(fmt.Sprint(rec.Result)))
			continue
		}
		fmt.Fprintf(&b, "• %s = *%s*\n", esc(rec.Expr), esc(fmt.Sprint(rec.Result)))
	}
	if saved > 0 {
		fmt.Fprintf(&b, "\nSaved %d variable(s), see /vars.", saved)
	}
	return util.Truncate(strings.TrimRight(b.String(), "\n"), maxMessage)
}

func formatVars(vars interpret.Vars) string {
	if len(vars) == 0 {
		return "No variables yet."
	}
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Variables:\n")
	for _, k := range names {
		fmt.Fprintf(&b, "*%s* = %s\n", esc(k), esc(fmt.Sprint(vars[k])))
	}
	return util.Truncate(strings.TrimRight(b.String(), "\n"), maxMessage)
}
