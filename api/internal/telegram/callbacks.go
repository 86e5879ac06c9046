package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	cbEngine = "engine:"
	cbReset  = "vars:reset"
)

func (r *Router) handleCallback(cq tgbotapi.CallbackQuery) {
	if _, err := r.Bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		r.log().Debug("callback answer", zap.Error(err))
	}
	if cq.Message == nil {
		return
	}
	cid := cq.Message.Chat.ID

	switch data := cq.Data; {
	case strings.HasPrefix(data, cbEngine):
		r.switchEngine(cid, strings.TrimPrefix(data, cbEngine))
	case data == cbReset:
		r.st.resetVars(cid)
		r.send(cid, "Variables cleared.")
	}
}
