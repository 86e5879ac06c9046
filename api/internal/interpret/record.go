package interpret

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"calc-api/api/internal/util"
)

// Vars is the caller-supplied mapping of variable names to values (dict_of_vars).
type Vars map[string]any

// Record is one interpreted expression as returned to the client.
type Record struct {
	Expr   string `json:"expr"`
	Result any    `json:"result"`
	Assign bool   `json:"assign"`
}

// UnmarshalJSON accepts the loose shapes models produce: expr given as a number,
// assign given as a string or missing.
func (r *Record) UnmarshalJSON(b []byte) error {
	var raw struct {
		Expr   json.RawMessage `json:"expr"`
		Result json.RawMessage `json:"result"`
		Assign json.RawMessage `json:"assign"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw.Expr) == 0 && len(raw.Result) == 0 {
		return errors.New("record has neither expr nor result")
	}

	r.Expr = rawText(raw.Expr)
	r.Result = nil
	if len(raw.Result) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw.Result))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("result: %w", err)
		}
		r.Result = v
	}
	r.Assign = rawBool(raw.Assign)
	return nil
}

func rawText(m json.RawMessage) string {
	if len(m) == 0 || string(m) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(m, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(m))
}

func rawBool(m json.RawMessage) bool {
	if len(m) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(m, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(m, &s); err == nil {
		v, _ := strconv.ParseBool(strings.TrimSpace(s))
		return v
	}
	return false
}

// ParseError reports a model reply that could not be turned into records.
type ParseError struct {
	Reply string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse model reply: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseRecords turns a model reply into records. Accepted shapes, in order: a JSON array,
// an object wrapping the array under results/data/answers, a single record object, the
// outermost [...] span of a chattier reply, and a Python-literal list.
func ParseRecords(reply string) ([]Record, error) {
	txt := util.StripCodeFences(reply)
	if txt == "" {
		return nil, &ParseError{Reply: reply, Err: errors.New("empty reply")}
	}

	recs, err := decodeRecords(txt)
	if err == nil {
		return recs, nil
	}
	firstErr := err

	if i, j := strings.IndexByte(txt, '['), strings.LastIndexByte(txt, ']'); i >= 0 && j > i {
		span := txt[i : j+1]
		if recs, err := decodeRecords(span); err == nil {
			return recs, nil
		}
		if recs, err := decodeRecords(pythonToJSON(span)); err == nil {
			return recs, nil
		}
	}
	if recs, err := decodeRecords(pythonToJSON(txt)); err == nil {
		return recs, nil
	}
	return nil, &ParseError{Reply: reply, Err: firstErr}
}

func decodeRecords(s string) ([]Record, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "["):
		var recs []Record
		if err := json.Unmarshal([]byte(s), &recs); err != nil {
			return nil, err
		}
		if recs == nil {
			recs = []Record{}
		}
		return recs, nil
	case strings.HasPrefix(s, "{"):
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal([]byte(s), &wrapped); err != nil {
			return nil, err
		}
		// a single record may carry a list as its result, so a failed wrapper
		// decode falls through to the single-record shape
		for _, k := range []string{"results", "data", "answers"} {
			if v, ok := wrapped[k]; ok && bytes.HasPrefix(bytes.TrimSpace(v), []byte("[")) {
				if recs, err := decodeRecords(string(v)); err == nil {
					return recs, nil
				}
			}
		}
		var one Record
		if err := json.Unmarshal([]byte(s), &one); err != nil {
			return nil, err
		}
		return []Record{one}, nil
	default:
		return nil, fmt.Errorf("reply is not JSON: %q", util.Truncate(s, 80))
	}
}

// pythonToJSON rewrites a Python literal (single-quoted strings, True/False/None)
// into JSON. Text inside strings is left alone apart from quote escaping.
func pythonToJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var quote rune
	escaped := false
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		c := rs[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
				if c == '\'' {
					b.WriteRune('\'')
					continue
				}
				b.WriteRune('\\')
				b.WriteRune(c)
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
				b.WriteRune('"')
			case c == '"':
				b.WriteString(`\"`)
			default:
				b.WriteRune(c)
			}
			continue
		}
		switch {
		case c == '\'' || c == '"':
			quote = c
			b.WriteRune('"')
		case hasWord(rs, i, "True"):
			b.WriteString("true")
			i += len("True") - 1
		case hasWord(rs, i, "False"):
			b.WriteString("false")
			i += len("False") - 1
		case hasWord(rs, i, "None"):
			b.WriteString("null")
			i += len("None") - 1
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

func hasWord(rs []rune, i int, w string) bool {
	wr := []rune(w)
	if i+len(wr) > len(rs) || string(rs[i:i+len(wr)]) != w {
		return false
	}
	if i > 0 && isIdent(rs[i-1]) {
		return false
	}
	if end := i + len(wr); end < len(rs) && isIdent(rs[end]) {
		return false
	}
	return true
}

func isIdent(r rune) bool {
	return r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}

// ApplyAssignments folds records flagged assign into vars: vars[expr] = result.
// Numeric results are stored as float64 when they parse, mirroring how the canvas
// client keeps its dict_of_vars.
func ApplyAssignments(vars Vars, recs []Record) Vars {
	if vars == nil {
		vars = Vars{}
	}
	for _, r := range recs {
		if !r.Assign || strings.TrimSpace(r.Expr) == "" {
			continue
		}
		vars[strings.TrimSpace(r.Expr)] = numericOrRaw(r.Result)
	}
	return vars
}

func numericOrRaw(v any) any {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
		return t
	default:
		return v
	}
}
