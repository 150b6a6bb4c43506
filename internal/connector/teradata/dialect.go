package teradata

import "strings"

// dialect is Teradata SQL's identifier quoting (double quotes) and JDBC's
// positional "?" placeholder convention -- the same PreparedStatement
// syntax the original JDBC-backed connector sends over the wire.
type dialect struct{}

func (dialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (dialect) Placeholder(int) string { return "?" }
