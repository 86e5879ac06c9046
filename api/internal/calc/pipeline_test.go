package calc

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"calc-api/api/internal/interpret"
)

// widthEcho answers with one record per call whose result is the image width.
type widthEcho struct {
	name string
	err  error
}

func (w *widthEcho) Name() string { return w.name }
func (w *widthEcho) Interpret(_ context.Context, img image.Image, vars interpret.Vars) ([]interpret.Record, error) {
	if w.err != nil {
		return nil, w.err
	}
	recs := []interpret.Record{{Expr: "width", Result: img.Bounds().Dx()}}
	for k, v := range vars {
		recs = append(recs, interpret.Record{Expr: k, Result: v, Assign: true})
	}
	return recs, nil
}

type staticSelector struct {
	in interpret.Interpreter
}

func (s staticSelector) Select(name string) (interpret.Interpreter, error) {
	if name != "" && name != s.in.Name() {
		return nil, fmt.Errorf("%w %q", interpret.ErrUnknownEngine, name)
	}
	return s.in, nil
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{0, 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func dataURI(t *testing.T, width, height int) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, width, height))
}

func newTestPipeline(t *testing.T, in interpret.Interpreter) *Pipeline {
	return New(staticSelector{in: in}, zaptest.NewLogger(t))
}

func TestRunSuccess(t *testing.T) {
	p := newTestPipeline(t, &widthEcho{name: "stub"})
	out := p.Run(context.Background(), Request{Image: dataURI(t, 12, 8), Vars: interpret.Vars{"x": 2.0}})
	if !out.OK() {
		t.Fatalf("Expected success, got %v", out.Err)
	}
	if len(out.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(out.Records))
	}
	if out.Records[0].Result != 12 {
		t.Errorf("Expected width 12, got %v", out.Records[0].Result)
	}
	if out.Engine != "stub" {
		t.Errorf("Expected engine stub, got %s", out.Engine)
	}
}

func TestRunEmptyResult(t *testing.T) {
	p := New(staticSelector{in: emptyInterp{}}, nil)
	out := p.Run(context.Background(), Request{Image: dataURI(t, 2, 2)})
	if !out.OK() {
		t.Fatalf("Expected success, got %v", out.Err)
	}
	if out.Records == nil || len(out.Records) != 0 {
		t.Errorf("Expected empty non-nil records, got %#v", out.Records)
	}
}

type emptyInterp struct{}

func (emptyInterp) Name() string { return "empty" }
func (emptyInterp) Interpret(context.Context, image.Image, interpret.Vars) ([]interpret.Record, error) {
	return nil, nil
}

func TestRunMalformedInput(t *testing.T) {
	p := newTestPipeline(t, &widthEcho{name: "stub"})
	tests := []struct {
		name  string
		image string
		kind  ErrorKind
	}{
		{"no comma", "data:image/png;base64iVBORw0KGgo", KindMissingDelimiter},
		{"empty", "", KindMissingDelimiter},
		{"bad base64", "data:image/png;base64,@@@not base64@@@", KindInvalidBase64},
		{"empty payload", "data:image/png;base64,", KindInvalidBase64},
		{"not an image", "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("hello world")), KindInvalidImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := p.Run(context.Background(), Request{Image: tt.image})
			if out.OK() {
				t.Fatal("Expected failure")
			}
			if out.Err.Kind != tt.kind {
				t.Errorf("Expected kind %s, got %s (%v)", tt.kind, out.Err.Kind, out.Err)
			}
			if !out.Err.Kind.Malformed() {
				t.Errorf("kind %s should be malformed", out.Err.Kind)
			}
			if len(out.Records) != 0 {
				t.Errorf("Expected no records, got %d", len(out.Records))
			}
		})
	}
}

func TestRunUpstreamErrorMessage(t *testing.T) {
	p := newTestPipeline(t, &widthEcho{name: "stub", err: errors.New("boom")})
	out := p.Run(context.Background(), Request{Image: dataURI(t, 4, 4)})
	if out.OK() {
		t.Fatal("Expected failure")
	}
	if out.Err.Kind != KindUpstream {
		t.Errorf("Expected upstream, got %s", out.Err.Kind)
	}
	if out.Err.Error() != "boom" {
		t.Errorf("Expected message boom, got %q", out.Err.Error())
	}
}

func TestRunParseError(t *testing.T) {
	pe := &interpret.ParseError{Reply: "??", Err: errors.New("bad")}
	p := newTestPipeline(t, &widthEcho{name: "stub", err: fmt.Errorf("stub: %w", pe)})
	out := p.Run(context.Background(), Request{Image: dataURI(t, 4, 4)})
	if out.OK() || out.Err.Kind != KindParse {
		t.Fatalf("Expected parse failure, got %+v", out.Err)
	}
	if out.Err.Kind.Malformed() {
		t.Error("parse failures are not caller errors")
	}
}

func TestRunUnknownEngine(t *testing.T) {
	p := newTestPipeline(t, &widthEcho{name: "stub"})
	out := p.Run(context.Background(), Request{Image: dataURI(t, 4, 4), Engine: "deepseek"})
	if out.OK() || out.Err.Kind != KindUnknownEngine {
		t.Fatalf("Expected unknown_engine, got %+v", out.Err)
	}
	if !errors.Is(out.Err, interpret.ErrUnknownEngine) {
		t.Error("Expected error to wrap ErrUnknownEngine")
	}
}

func TestRunBytes(t *testing.T) {
	p := newTestPipeline(t, &widthEcho{name: "stub"})
	out := p.RunBytes(context.Background(), pngBytes(t, 30, 5), nil, "")
	if !out.OK() || out.Records[0].Result != 30 {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestRunConcurrent(t *testing.T) {
	p := newTestPipeline(t, &widthEcho{name: "stub"})
	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 1; i <= 32; i++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			out := p.Run(context.Background(), Request{Image: dataURI(t, w, 3), Vars: interpret.Vars{fmt.Sprintf("v%d", w): w}})
			if !out.OK() {
				errs <- out.Err
				return
			}
			if len(out.Records) != 2 || out.Records[0].Result != w || out.Records[1].Expr != fmt.Sprintf("v%d", w) {
				errs <- fmt.Errorf("request %d got %+v", w, out.Records)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
