package repositories

import (
	"context"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier 抽象 pgxpool.Pool 与 pgx.Tx 的公共查询能力，
// 使仓储方法既可直接访问连接池，也可挂载到事务会话上。
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ querier = (*pgxpool.Pool)(nil)
)

// pick 在事务会话存在时返回事务句柄，否则返回连接池。
func pick(db *pgxpool.Pool, sess txmanager.Session) querier {
	if sess != nil {
		if tx := sess.Tx(); tx != nil {
			return tx
		}
	}
	return db
}
