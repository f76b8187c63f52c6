package safety

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Renderings parses command as a shell program and returns one line per
// simple command: its words with quoting removed, followed by its
// redirections. Commands nested in pipelines, subshells and command
// substitutions are included. Unparseable input yields nil.
func Renderings(command string) []string {
	parser := syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		return nil
	}

	var out []string
	syntax.Walk(file, func(node syntax.Node) bool {
		stmt, ok := node.(*syntax.Stmt)
		if !ok {
			return true
		}
		if line := renderStmt(stmt); line != "" {
			out = append(out, line)
		}
		return true
	})
	return out
}

func renderStmt(stmt *syntax.Stmt) string {
	var parts []string
	if call, ok := stmt.Cmd.(*syntax.CallExpr); ok {
		for _, word := range call.Args {
			parts = append(parts, unquote(word.Parts))
		}
	}
	for _, redir := range stmt.Redirs {
		if redir.Word == nil {
			continue
		}
		parts = append(parts, redir.Op.String()+" "+unquote(redir.Word.Parts))
	}
	return strings.Join(parts, " ")
}

// unquote concatenates the literal content of word parts. Expansions are
// kept in their printed form.
func unquote(parts []syntax.WordPart) string {
	var sb strings.Builder
	for _, part := range parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			sb.WriteString(unquote(p.Parts))
		default:
			printer := syntax.NewPrinter()
			_ = printer.Print(&sb, part)
		}
	}
	return sb.String()
}
