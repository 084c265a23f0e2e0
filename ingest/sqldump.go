// SPDX-License-Identifier: MIT

package ingest

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// SQLDumpReader parses the two MediaWiki table dumps kgraph ingests
// (page.sql, redirect.sql): a `CREATE TABLE` statement naming columns,
// followed by one or more `INSERT INTO ... VALUES (...), (...), ...;`
// statements. It only tokenizes what that shape needs — backtick names,
// unsigned numbers, quoted text, parens/comma/semicolon — not the
// teacher's full MySQL-dump grammar (cmd/qrank-builder/sqlreader.go also
// handles comments, negative numbers and slash-star blocks for tables
// this reader never touches).
type SQLDumpReader struct {
	lexer   sqlLexer
	columns []string
}

var errSQLParse = errors.New("ingest: sql parse error")

// NewSQLDumpReader skips to the first INSERT statement's VALUES clause,
// recording the column names declared by the preceding CREATE TABLE.
func NewSQLDumpReader(r io.Reader) (*SQLDumpReader, error) {
	rd := &SQLDumpReader{
		lexer:   sqlLexer{bufio.NewReader(r)},
		columns: make([]string, 0, 8),
	}
	if err := rd.skipUntil(sqlWord, "CREATE"); err != nil {
		return nil, err
	}
	if err := rd.parseCreate(); err != nil {
		return nil, err
	}
	if err := rd.skipUntil(sqlWord, "INSERT"); err != nil {
		return nil, err
	}
	if err := rd.skipUntil(sqlWord, "VALUES"); err != nil {
		return nil, err
	}
	return rd, nil
}

// Columns returns the table's declared column names, in order.
func (r *SQLDumpReader) Columns() []string { return r.columns }

// Read returns the next row's values as strings (SQL NULL becomes ""),
// or (nil, nil) at the end of the current INSERT statement.
func (r *SQLDumpReader) Read() ([]string, error) {
	token, _, err := r.lexer.read()
	if err != nil {
		return nil, err
	}
	if token == sqlSemicolon {
		return nil, nil
	}
	if token == sqlComma {
		token, _, err = r.lexer.read()
		if err != nil {
			return nil, err
		}
	}
	if token != sqlLeftParen {
		return nil, errSQLParse
	}

	row := make([]string, 0, len(r.columns))
	for {
		token, txt, err := r.lexer.read()
		if err != nil {
			return nil, err
		}
		switch {
		case token == sqlNumber || token == sqlText:
			row = append(row, txt)
		case token == sqlWord && txt == "NULL":
			row = append(row, "")
		default:
			return nil, errSQLParse
		}

		token, _, err = r.lexer.read()
		if err != nil {
			return nil, err
		}
		if token == sqlComma {
			continue
		}
		if token == sqlRightParen {
			break
		}
		return nil, errSQLParse
	}
	return row, nil
}

// Row converts a Read() result into a name -> value map using Columns().
func (r *SQLDumpReader) Row(values []string) map[string]string {
	out := make(map[string]string, len(values))
	for i, v := range values {
		if i < len(r.columns) {
			out[r.columns[i]] = v
		}
	}
	return out
}

func (r *SQLDumpReader) parseCreate() error {
	if err := r.skipUntil(sqlLeftParen, ""); err != nil {
		return err
	}
	for {
		token, text, err := r.lexer.read()
		if err != nil {
			return err
		}
		if token == sqlSemicolon {
			return nil
		}
		if token != sqlName {
			return r.skipUntil(sqlSemicolon, "")
		}
		r.columns = append(r.columns, text)
		if err := r.skipUntilEither(sqlComma, sqlRightParen); err != nil {
			return err
		}
	}
}

func (r *SQLDumpReader) skipUntil(token sqlToken, text string) error {
	for {
		tok, txt, err := r.lexer.read()
		if err != nil {
			return err
		}
		if tok == token && txt == text {
			return nil
		}
	}
}

// skipUntilEither skips a column's type specifier (which may itself
// contain parens, e.g. varbinary(255)) up to the next comma or the
// closing paren of the column list.
func (r *SQLDumpReader) skipUntilEither(t1, t2 sqlToken) error {
	depth := 0
	for {
		tok, _, err := r.lexer.read()
		if err != nil {
			return err
		}
		if tok == sqlLeftParen {
			depth++
			continue
		}
		if tok == sqlRightParen && depth > 0 {
			depth--
			continue
		}
		if tok == t1 || tok == t2 {
			return nil
		}
	}
}

// sqlToken is the minimal set of lexical classes NewSQLDumpReader's
// grammar needs.
type sqlToken int

const (
	sqlUnexpected sqlToken = iota
	sqlWord
	sqlName
	sqlNumber
	sqlText
	sqlLeftParen
	sqlRightParen
	sqlComma
	sqlSemicolon
)

type sqlLexer struct {
	reader *bufio.Reader
}

func (lex *sqlLexer) read() (sqlToken, string, error) {
	var c rune
	var err error
	for {
		c, _, err = lex.reader.ReadRune()
		if err != nil || !isSQLSpace(c) {
			break
		}
	}
	if err != nil {
		return sqlUnexpected, "", err
	}

	switch c {
	case '`':
		text, err := lex.readUntil('`')
		return sqlName, text, err
	case '\'':
		text, err := lex.readQuotedText()
		return sqlText, text, err
	case '(':
		return sqlLeftParen, "", nil
	case ')':
		return sqlRightParen, "", nil
	case ',':
		return sqlComma, "", nil
	case ';':
		return sqlSemicolon, "", nil
	}
	if isSQLWordChar(c) {
		return lex.readWord(c)
	}
	if c >= '0' && c <= '9' {
		return lex.readNumber(c)
	}
	return sqlUnexpected, string(c), nil
}

func (lex *sqlLexer) readWord(start rune) (sqlToken, string, error) {
	var buf strings.Builder
	buf.WriteRune(start)
	for {
		c, _, err := lex.reader.ReadRune()
		if err == io.EOF {
			break
		} else if err != nil {
			return sqlUnexpected, "", err
		}
		if isSQLWordChar(c) {
			buf.WriteRune(c)
			continue
		}
		if err := lex.reader.UnreadRune(); err != nil {
			return sqlUnexpected, "", err
		}
		break
	}
	return sqlWord, buf.String(), nil
}

// readNumber reads an unsigned integer: every field these two dump
// readers extract (page id, namespace, is_redirect) is non-negative.
func (lex *sqlLexer) readNumber(start rune) (sqlToken, string, error) {
	var buf strings.Builder
	buf.WriteRune(start)
	for {
		c, _, err := lex.reader.ReadRune()
		if err == io.EOF {
			break
		} else if err != nil {
			return sqlUnexpected, "", err
		}
		if c >= '0' && c <= '9' {
			buf.WriteRune(c)
			continue
		}
		if err := lex.reader.UnreadRune(); err != nil {
			return sqlUnexpected, "", err
		}
		break
	}
	return sqlNumber, buf.String(), nil
}

func (lex *sqlLexer) readUntil(delim rune) (string, error) {
	var buf strings.Builder
	for {
		c, _, err := lex.reader.ReadRune()
		if c == delim || err == io.EOF {
			break
		} else if err != nil {
			return "", err
		}
		buf.WriteRune(c)
	}
	return buf.String(), nil
}

// readQuotedText reads a single-quoted MySQL string literal, unescaping
// backslash-escaped quotes and backslashes so titles like "O'Brien"
// (dumped as 'O\'Brien') decode correctly.
func (lex *sqlLexer) readQuotedText() (string, error) {
	var buf strings.Builder
	for {
		c, _, err := lex.reader.ReadRune()
		if err == io.EOF {
			break
		} else if err != nil {
			return "", err
		}
		if c == '\'' {
			break
		}
		if c == '\\' {
			next, _, err := lex.reader.ReadRune()
			if err == io.EOF {
				break
			} else if err != nil {
				return "", err
			}
			buf.WriteRune(next)
			continue
		}
		buf.WriteRune(c)
	}
	return buf.String(), nil
}

func isSQLSpace(c rune) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
func isSQLWordChar(c rune) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '_'
}

// RedirectRow is one row of MediaWiki's redirect table relevant to
// kgraph: the source page id and the target page title.
type RedirectRow struct {
	FromPageID string
	ToTitle    string
}

// ReadRedirectsDump reads a redirect.sql dump, returning every row with a
// page-namespace (rd_namespace) of "0".
func ReadRedirectsDump(r io.Reader) ([]RedirectRow, error) {
	rd, err := NewSQLDumpReader(r)
	if err != nil {
		return nil, err
	}
	var rows []RedirectRow
	for {
		values, err := rd.Read()
		if err != nil {
			return rows, err
		}
		if values == nil {
			break
		}
		row := rd.Row(values)
		if row["rd_namespace"] != "0" {
			continue
		}
		rows = append(rows, RedirectRow{
			FromPageID: row["rd_from"],
			ToTitle:    row["rd_title"],
		})
	}
	return rows, nil
}

// PageRow is one row of MediaWiki's page table relevant to kgraph: the
// page id, its title, and whether it is itself a redirect.
type PageRow struct {
	PageID     string
	Title      string
	IsRedirect bool
}

// ReadPagesDump reads a page.sql dump, returning every namespace-0 page.
func ReadPagesDump(r io.Reader) ([]PageRow, error) {
	rd, err := NewSQLDumpReader(r)
	if err != nil {
		return nil, err
	}
	var rows []PageRow
	for {
		values, err := rd.Read()
		if err != nil {
			return rows, err
		}
		if values == nil {
			break
		}
		row := rd.Row(values)
		if row["page_namespace"] != "0" {
			continue
		}
		rows = append(rows, PageRow{
			PageID:     row["page_id"],
			Title:      row["page_title"],
			IsRedirect: row["page_is_redirect"] == "1",
		})
	}
	return rows, nil
}
