package sqlite

import "fmt"

// Options configures a sqlite connector instance. Path is passed straight
// through to modernc.org/sqlite's driver DSN, so the usual sqlite DSN query
// parameters (e.g. "?_pragma=busy_timeout(5000)") are accepted verbatim.
type Options struct {
	Path string
}

func (o Options) validate() error {
	if o.Path == "" {
		return fmt.Errorf("sqlite: Options.Path must not be empty")
	}
	return nil
}
