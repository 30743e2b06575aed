package migrate

import "database/sql"

// 文档注释：启动时保障收藏表存在
// 背景：收藏是唯一持久化实体；唯一约束放在表级，重复写入由数据库拒绝而非应用层判重。
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _favorites (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			business_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT _favorites_user_business UNIQUE (user_id, business_id)
		)`,
		`CREATE INDEX IF NOT EXISTS _favorites_user_idx ON _favorites(user_id)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
