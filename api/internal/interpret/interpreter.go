package interpret

import (
	"context"
	"errors"
	"image"

	"go.uber.org/zap"

	"calc-api/api/internal/util"
)

// Interpreter reads a drawn math expression from an image and computes results.
type Interpreter interface {
	Name() string
	Interpret(ctx context.Context, img image.Image, vars Vars) ([]Record, error)
}

// Prompt is what a Model backend receives: the instruction and one encoded image.
type Prompt struct {
	Text  string
	Image []byte
	MIME  string
}

// Model is an external multimodal backend returning the raw reply text.
type Model interface {
	Name() string
	GetModel() string
	Generate(ctx context.Context, p Prompt) (string, error)
}

// Analyzer implements Interpreter on top of a Model.
type Analyzer struct {
	model   Model
	prompts *PromptBuilder
	maxSide int
	log     *zap.Logger
}

func NewAnalyzer(m Model, prompts *PromptBuilder, maxSide int, log *zap.Logger) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{model: m, prompts: prompts, maxSide: maxSide, log: log}
}

func (a *Analyzer) Name() string { return a.model.Name() }

func (a *Analyzer) Interpret(ctx context.Context, img image.Image, vars Vars) ([]Record, error) {
	if a.model == nil {
		return nil, errors.New("interpret: no model configured")
	}
	if a.prompts == nil {
		return nil, errors.New("interpret: no prompt configured")
	}
	text, err := a.prompts.Build(vars)
	if err != nil {
		return nil, err
	}
	data, mime, err := util.EncodeForModel(img, a.maxSide)
	if err != nil {
		return nil, err
	}

	reply, err := a.model.Generate(ctx, Prompt{Text: text, Image: data, MIME: mime})
	if err != nil {
		return nil, err
	}
	a.log.Debug("model reply",
		zap.String("engine", a.model.Name()),
		zap.String("model", a.model.GetModel()),
		zap.String("reply", util.Truncate(reply, 500)),
	)

	recs, err := ParseRecords(reply)
	if err != nil {
		return nil, err
	}
	return recs, nil
}
