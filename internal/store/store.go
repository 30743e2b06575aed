// 包 store: 收藏数据访问层；唯一的持久化实体，商家与评论均为临时对象不落库
package store

import (
	"context"
	"database/sql"
	"errors"

	"place-api/internal/logger"
	"place-api/internal/model"

	"github.com/lib/pq"
)

// Store: 数据库访问入口，持有连接池
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Close: 关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// ErrDuplicate: (user, business) 组合已存在；唯一约束违例统一翻译为此错误
var ErrDuplicate = errors.New("favorite already exists")

// IsDuplicate: 判断错误是否为重复收藏
func IsDuplicate(err error) bool { return errors.Is(err, ErrDuplicate) }

// List: 按用户列出全部收藏
func (s *Store) List(ctx context.Context, userID string) ([]model.Favorite, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, business_id, created_at FROM _favorites WHERE user_id=$1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Favorite{}
	for rows.Next() {
		var f model.Favorite
		if err := rows.Scan(&f.ID, &f.UserID, &f.BusinessID, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Add: 新增收藏并返回服务端分配的行
// 约束：(user_id, business_id) 唯一；违例必须失败而非静默重复，返回 ErrDuplicate
func (s *Store) Add(ctx context.Context, userID, businessID string) (*model.Favorite, error) {
	var f model.Favorite
	f.UserID = userID
	f.BusinessID = businessID
	err := s.db.QueryRowContext(ctx,
		"INSERT INTO _favorites(user_id, business_id) VALUES($1,$2) RETURNING id, created_at",
		userID, businessID).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			logger.L().Debug("favorite_duplicate", "user", userID, "business", businessID)
			return nil, ErrDuplicate
		}
		return nil, err
	}
	logger.L().Debug("favorite_added", "user", userID, "business", businessID, "id", f.ID)
	return &f, nil
}

// Remove: 删除收藏；不存在时不视为错误
func (s *Store) Remove(ctx context.Context, userID, businessID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM _favorites WHERE user_id=$1 AND business_id=$2", userID, businessID)
	if err != nil {
		return err
	}
	logger.L().Debug("favorite_removed", "user", userID, "business", businessID)
	return nil
}

// IsFavorited: 查询组合是否已收藏
func (s *Store) IsFavorited(ctx context.Context, userID, businessID string) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM _favorites WHERE user_id=$1 AND business_id=$2 LIMIT 1", userID, businessID)
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
