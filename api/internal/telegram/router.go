package telegram

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"calc-api/api/internal/calc"
	"calc-api/api/internal/interpret"
	"calc-api/api/internal/logger"
)

// Bot is the subset of *tgbotapi.BotAPI the router uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Runner runs an already downloaded image through the calculator pipeline.
type Runner interface {
	RunBytes(ctx context.Context, data []byte, vars interpret.Vars, engine string) calc.Outcome
}

type Router struct {
	Bot     Bot
	Pipe    Runner
	Engines []string // names offered by /engine
	Default string
	Timeout time.Duration
	Log     *zap.Logger

	// Client downloads photos; nil uses a 60s client.
	Client *http.Client
	// Debounce groups photos sent together; 0 uses the package default.
	Debounce time.Duration

	st state
}

func (r *Router) log() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	switch {
	case msg.IsCommand():
		r.HandleCommand(*msg)
	case len(msg.Photo) > 0:
		r.acceptPhoto(*msg)
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		r.acceptDocument(*msg)
	default:
		r.send(cid, "Send me a photo of a math expression. /start shows the commands.")
	}
}

func (r *Router) HandleCommand(msg tgbotapi.Message) {
	cid := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		r.send(cid, startText)
	case "health":
		r.send(cid, "✅ OK")
	case "engine":
		r.handleEngineCommand(cid, args)
	case "vars":
		r.sendMarkdown(cid, formatVars(r.st.varsFor(cid).snapshot()))
	case "reset":
		r.st.resetVars(cid)
		r.send(cid, "Variables cleared.")
	case "set":
		if len(args) != 2 {
			r.send(cid, "Usage: /set <name> <value>")
			return
		}
		r.st.varsFor(cid).set(args[0], parseValue(args[1]))
		r.sendMarkdown(cid, fmt.Sprintf("Saved *%s* = %s", esc(args[0]), esc(args[1])))
	default:
		r.send(cid, "Unknown command")
	}
}

func (r *Router) handleEngineCommand(chatID int64, args []string) {
	if len(args) == 0 {
		cur := r.st.engine(chatID)
		if cur == "" {
			cur = r.Default
		}
		msg := tgbotapi.NewMessage(chatID, "Current engine: "+cur+"\nAvailable: "+strings.Join(r.Engines, " | "))
		msg.ReplyMarkup = makeEngineKeyboard(r.Engines)
		_, _ = r.Bot.Send(msg)
		return
	}
	r.switchEngine(chatID, strings.ToLower(args[0]))
}

func (r *Router) switchEngine(chatID int64, name string) {
	if !slices.Contains(r.Engines, name) {
		r.send(chatID, "Unknown engine. Available: "+strings.Join(r.Engines, " | "))
		return
	}
	r.st.setEngine(chatID, name)
	r.send(chatID, "✅ Engine: "+name)
}

// solve runs one image through the pipeline with the chat's vars and engine,
// then folds assignments back into the chat.
func (r *Router) solve(ctx context.Context, chatID int64, img []byte) {
	log := r.log().With(zap.Int64("chat_id", chatID), zap.String("request_id", uuid.NewString()))
	ctx = logger.WithContext(ctx, log)
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cv := r.st.varsFor(chatID)
	out := r.Pipe.RunBytes(ctx, img, cv.snapshot(), r.st.engine(chatID))
	if !out.OK() {
		r.SendError(chatID, out.Err)
		return
	}
	saved := cv.apply(out.Records)
	log.Info("solved", zap.String("engine", out.Engine), zap.Int("records", len(out.Records)), zap.Int("saved", saved))
	r.sendMarkdown(chatID, formatRecords(out.Records, saved))
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		r.log().Warn("telegram send", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := r.Bot.Send(msg); err != nil {
		r.log().Warn("telegram send", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) SendError(chatID int64, err *calc.Error) {
	if err.Kind.Malformed() {
		r.send(chatID, "Could not read that image: "+err.Error())
		return
	}
	r.send(chatID, fmt.Sprintf("Calculation failed (%s): %v", err.Kind, err))
}

// parseValue keeps numbers as float64 so they serialize like the canvas client's vars.
func parseValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

const startText = "Send a photo of a handwritten expression and I will solve it.\n" +
	"Assignments like x = 5 are remembered for this chat.\n\n" +
	"Commands:\n" +
	"/engine [name] - show or switch the model\n" +
	"/vars - show saved variables\n" +
	"/set <name> <value> - save a variable\n" +
	"/reset - forget all variables\n" +
	"/health - check the bot"
