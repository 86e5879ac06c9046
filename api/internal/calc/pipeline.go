package calc

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"calc-api/api/internal/interpret"
	"calc-api/api/internal/logger"
	"calc-api/api/internal/util"
)

// Selector resolves an engine name to an interpreter; interpret.Registry implements it.
type Selector interface {
	Select(name string) (interpret.Interpreter, error)
}

// Request is the decoded body of a calculate call.
type Request struct {
	Image  string         `json:"image"`
	Vars   interpret.Vars `json:"dict_of_vars"`
	Engine string         `json:"llm_name,omitempty"`
}

// Pipeline decodes the image and hands it to an interpreter. It holds no
// per-request state and is safe for concurrent use.
type Pipeline struct {
	sel Selector
	log *zap.Logger
}

func New(sel Selector, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{sel: sel, log: log}
}

// Run handles a data URI image: split on the first comma, base64-decode the
// payload, decode the image, interpret.
func (p *Pipeline) Run(ctx context.Context, req Request) Outcome {
	_, payload, err := util.SplitDataURL(req.Image)
	if err != nil {
		return p.fail(ctx, req.Engine, KindMissingDelimiter, err)
	}
	data, err := util.DecodeBase64(payload)
	if err != nil {
		return p.fail(ctx, req.Engine, KindInvalidBase64, err)
	}
	return p.RunBytes(ctx, data, req.Vars, req.Engine)
}

// RunBytes handles an already decoded image file.
func (p *Pipeline) RunBytes(ctx context.Context, data []byte, vars interpret.Vars, engine string) Outcome {
	img, format, err := util.DecodeImage(data)
	if err != nil {
		return p.fail(ctx, engine, KindInvalidImage, err)
	}

	in, err := p.sel.Select(engine)
	if err != nil {
		return p.fail(ctx, engine, KindUnknownEngine, err)
	}

	log := logger.From(ctx, p.log)
	log.Debug("interpreting image",
		zap.String("engine", in.Name()),
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()),
		zap.Int("vars", len(vars)),
	)

	recs, err := in.Interpret(ctx, img, vars)
	if err != nil {
		kind := KindUpstream
		var pe *interpret.ParseError
		if errors.As(err, &pe) {
			kind = KindParse
		}
		return p.fail(ctx, in.Name(), kind, err)
	}
	return success(in.Name(), recs)
}

func (p *Pipeline) fail(ctx context.Context, engine string, kind ErrorKind, err error) Outcome {
	log := logger.From(ctx, p.log)
	fields := []zap.Field{zap.String("kind", string(kind)), zap.Error(err)}
	if engine != "" {
		fields = append(fields, zap.String("engine", engine))
	}
	if kind.Malformed() {
		log.Warn("calculate: bad input", fields...)
	} else {
		log.Error("calculate: failed", fields...)
	}
	o := failure(kind, err)
	o.Engine = engine
	return o
}
