package wire

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// DecodeError reports a line that could not be decoded, together with the
// raw input.
type DecodeError struct {
	Input string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %q: %v", e.Input, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// SyntaxError is the structural cause inside a DecodeError.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Msg)
}

// MaxLineLength is the longest record line a Decoder accepts, newline
// included.
const MaxLineLength = 64 << 10

// ErrLineTooLong is the cause of a DecodeError for a line over the limit.
// Its Input holds only the start of the line.
var ErrLineTooLong = errors.New("line too long")

const tooLongInput = 128

// Decoder reads records from a stream. Its only state is the read buffer,
// so a malformed line never affects the lines after it.
type Decoder struct {
	r   *bufio.Reader
	max int
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r), max: MaxLineLength}
}

// Decode returns the next record. It returns io.EOF at a clean end of
// stream, and a *DecodeError for a malformed line, a line longer than
// MaxLineLength, or a final line with no terminating newline.
func (d *Decoder) Decode() (Record, error) {
	line, err := d.readLine()
	switch {
	case errors.Is(err, ErrLineTooLong):
		return Record{}, &DecodeError{Input: string(line[:min(len(line), tooLongInput)]), Err: err}
	case errors.Is(err, io.EOF):
		if len(line) == 0 {
			return Record{}, io.EOF
		}
		return Record{}, &DecodeError{Input: string(line), Err: io.ErrUnexpectedEOF}
	case err != nil:
		return Record{}, err
	}

	line = bytes.TrimSuffix(line[:len(line)-1], []byte{'\r'})
	rec, perr := Parse(line)
	if perr != nil {
		return Record{}, &DecodeError{Input: string(line), Err: perr}
	}
	return rec, nil
}

// readLine returns the next line including its newline. Past d.max bytes it
// stops buffering, discards the rest of the line and returns what it kept
// with ErrLineTooLong.
func (d *Decoder) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := d.r.ReadSlice('\n')
		if len(line)+len(chunk) > d.max {
			line = append(line, chunk[:d.max-len(line)]...)
			if errors.Is(err, bufio.ErrBufferFull) {
				d.skipLine()
			}
			return line, ErrLineTooLong
		}
		line = append(line, chunk...)
		if !errors.Is(err, bufio.ErrBufferFull) {
			return line, err
		}
	}
}

// skipLine discards input through the next newline. A read error is left
// for the next Decode to report.
func (d *Decoder) skipLine() {
	for {
		if _, err := d.r.ReadSlice('\n'); !errors.Is(err, bufio.ErrBufferFull) {
			return
		}
	}
}

// Parse decodes a single line without its newline.
func Parse(line []byte) (Record, error) {
	p := parser{in: line}

	p.skipSpace()
	name := p.ident()
	if name == "" {
		return Record{}, p.errorf("expected record name")
	}
	kind, ok := kindByName(name)
	if !ok {
		return Record{}, &SyntaxError{Offset: p.pos - len(name), Msg: fmt.Sprintf("unknown record %q", name)}
	}

	args, err := p.args()
	if err != nil {
		return Record{}, err
	}
	p.skipSpace()
	if p.pos != len(p.in) {
		return Record{}, p.errorf("unexpected trailing input")
	}
	return build(kind, args, p.pos)
}

// arg is a parsed tuple element: a string or an unsigned integer.
type arg struct {
	str    string
	num    uint64
	isText bool
}

// shapes lists each record's arguments: s for string, n for integer.
var shapes = map[Kind]string{
	Size:     "n",
	Device:   "s",
	Set:      "sn",
	Message:  "ss",
	Finished: "s",
}

func build(kind Kind, args []arg, end int) (Record, error) {
	want := shapes[kind]

	shape := make([]byte, len(args))
	for i, a := range args {
		shape[i] = 'n'
		if a.isText {
			shape[i] = 's'
		}
	}
	if string(shape) != want {
		return Record{}, &SyntaxError{
			Offset: end,
			Msg:    fmt.Sprintf("%s takes (%s), got (%s)", kind, describe(want), describe(string(shape))),
		}
	}

	r := Record{Kind: kind}
	switch kind {
	case Size:
		r.Value = args[0].num
	case Device, Finished:
		r.Path = args[0].str
	case Set:
		r.Path, r.Value = args[0].str, args[1].num
	case Message:
		r.Path, r.Text = args[0].str, args[1].str
	}
	return r, nil
}

func describe(shape string) string {
	var b bytes.Buffer
	for i, c := range shape {
		if i > 0 {
			b.WriteString(", ")
		}
		if c == 's' {
			b.WriteString("string")
		} else {
			b.WriteString("integer")
		}
	}
	return b.String()
}

type parser struct {
	in  []byte
	pos int
}

func (p *parser) errorf(format string, a ...any) *SyntaxError {
	return &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf(format, a...)}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.in) {
		switch p.in[p.pos] {
		case ' ', '\t', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.in) {
		c := p.in[p.pos]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' {
			p.pos++
			continue
		}
		break
	}
	return string(p.in[start:p.pos])
}

// args parses "(a, b, ...)" allowing a trailing comma.
func (p *parser) args() ([]arg, error) {
	p.skipSpace()
	if p.pos >= len(p.in) || p.in[p.pos] != '(' {
		return nil, p.errorf("expected '('")
	}
	p.pos++

	var out []arg
	for {
		p.skipSpace()
		if p.pos >= len(p.in) {
			return nil, p.errorf("unterminated record")
		}
		if p.in[p.pos] == ')' {
			p.pos++
			return out, nil
		}
		a, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, a)

		p.skipSpace()
		if p.pos >= len(p.in) {
			return nil, p.errorf("unterminated record")
		}
		switch p.in[p.pos] {
		case ',':
			p.pos++
		case ')':
		default:
			return nil, p.errorf("expected ',' or ')'")
		}
	}
}

func (p *parser) value() (arg, error) {
	c := p.in[p.pos]
	switch {
	case c == '"':
		return p.quoted()
	case c >= '0' && c <= '9':
		start := p.pos
		for p.pos < len(p.in) && p.in[p.pos] >= '0' && p.in[p.pos] <= '9' {
			p.pos++
		}
		n, err := strconv.ParseUint(string(p.in[start:p.pos]), 10, 64)
		if err != nil {
			return arg{}, &SyntaxError{Offset: start, Msg: err.Error()}
		}
		return arg{num: n}, nil
	default:
		return arg{}, p.errorf("unexpected %q", c)
	}
}

func (p *parser) quoted() (arg, error) {
	start := p.pos
	p.pos++ // opening quote
	for p.pos < len(p.in) {
		switch p.in[p.pos] {
		case '\\':
			p.pos += 2
			continue
		case '"':
			p.pos++
			s, err := strconv.Unquote(string(p.in[start:p.pos]))
			if err != nil {
				return arg{}, &SyntaxError{Offset: start, Msg: "invalid string literal"}
			}
			return arg{str: s, isText: true}, nil
		}
		p.pos++
	}
	return arg{}, &SyntaxError{Offset: start, Msg: "unterminated string"}
}
