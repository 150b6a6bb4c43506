package mysql

import "fmt"

// Options configures a mysql connector instance. DSN is passed straight to
// go-sql-driver/mysql's DSN parser (e.g. "user:pass@tcp(host:3306)/dbname").
// The same connector backs MariaDB and TiDB, both wire-compatible with
// MySQL's protocol.
type Options struct {
	DSN string
}

func (o Options) validate() error {
	if o.DSN == "" {
		return fmt.Errorf("mysql: Options.DSN must not be empty")
	}
	return nil
}
