// Package all registers every store backend. Import it for its side
// effects from binaries that select a backend at runtime:
//
//	import _ "nfa/internal/store/all"
package all

import (
	_ "nfa/internal/store/mssql"
	_ "nfa/internal/store/postgres"
	_ "nfa/internal/store/sqlite"
)
