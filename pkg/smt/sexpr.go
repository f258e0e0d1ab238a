package smt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/samber/lo"
)

// sexpr is an S-expression as printed by SMT-LIB solvers: either an atom or a list
type sexpr struct {
	atom   string
	list   []sexpr
	isList bool
}

func (s sexpr) String() string {
	if !s.isList {
		return s.atom
	}
	return "(" + strings.Join(lo.Map(s.list, func(item sexpr, _ int) string { return item.String() }), " ") + ")"
}

// head returns the first atom of a list, or the empty string
func (s sexpr) head() string {
	if !s.isList || len(s.list) == 0 || s.list[0].isList {
		return ""
	}
	return s.list[0].atom
}

type sexprReader struct {
	reader *bufio.Reader
}

func newSExprReader(reader io.Reader) *sexprReader {
	return &sexprReader{reader: bufio.NewReader(reader)}
}

func parseSExpr(text string) (sexpr, error) {
	return newSExprReader(strings.NewReader(text)).Read()
}

// Read returns the next complete S-expression of the stream
func (r *sexprReader) Read() (sexpr, error) {
	if err := r.skipBlanks(); err != nil {
		return sexpr{}, err
	}
	char, _, err := r.reader.ReadRune()
	if err != nil {
		return sexpr{}, err
	}

	switch char {
	case '(':
		list := sexpr{isList: true, list: []sexpr{}}
		for {
			if err := r.skipBlanks(); err != nil {
				return sexpr{}, unexpectedEOF(err)
			}
			next, _, err := r.reader.ReadRune()
			if err != nil {
				return sexpr{}, unexpectedEOF(err)
			}
			if next == ')' {
				return list, nil
			}
			r.reader.UnreadRune()
			item, err := r.Read()
			if err != nil {
				return sexpr{}, unexpectedEOF(err)
			}
			list.list = append(list.list, item)
		}
	case ')':
		return sexpr{}, errors.New("unbalanced closing parenthesis")
	case '|':
		symbol, err := r.reader.ReadString('|')
		if err != nil {
			return sexpr{}, unexpectedEOF(err)
		}
		return sexpr{atom: symbol[:len(symbol)-1]}, nil
	case '"':
		var builder strings.Builder
		builder.WriteRune('"')
		for {
			next, _, err := r.reader.ReadRune()
			if err != nil {
				return sexpr{}, unexpectedEOF(err)
			}
			builder.WriteRune(next)
			if next != '"' {
				continue
			}
			// A doubled quote is an escaped quote inside the string literal
			if peek, _, err := r.reader.ReadRune(); err == nil && peek == '"' {
				builder.WriteRune(peek)
				continue
			} else if err == nil {
				r.reader.UnreadRune()
			}
			return sexpr{atom: builder.String()}, nil
		}
	default:
		var builder strings.Builder
		builder.WriteRune(char)
		for {
			next, _, err := r.reader.ReadRune()
			if err != nil {
				break
			}
			if unicode.IsSpace(next) || next == '(' || next == ')' {
				r.reader.UnreadRune()
				break
			}
			builder.WriteRune(next)
		}
		return sexpr{atom: builder.String()}, nil
	}
}

// skipBlanks consumes whitespace and ';' comments
func (r *sexprReader) skipBlanks() error {
	for {
		char, _, err := r.reader.ReadRune()
		if err != nil {
			return err
		}
		if char == ';' {
			if _, err := r.reader.ReadString('\n'); err != nil {
				return err
			}
			continue
		}
		if !unicode.IsSpace(char) {
			return r.reader.UnreadRune()
		}
	}
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("unterminated expression: %w", io.ErrUnexpectedEOF)
	}
	return err
}
