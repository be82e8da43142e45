package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/tresorly/internal/dbx"
	"github.com/dmitrijs2005/tresorly/internal/server/repositories/users"
	"github.com/dmitrijs2005/tresorly/internal/server/repositories/vaults"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// runs against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Vaults(db dbx.DBTX) vaults.Repository
}
