package store

import (
	"context"
	"fmt"

	"github.com/lib/pq"
)

// ListActiveUsers returns every active user. Audience filtering happens in
// the resolver, not in SQL, so counting and resolving share one code path.
func (db *DB) ListActiveUsers(ctx context.Context) ([]User, error) {
	query := `
		SELECT user_id, username, email, phone, push_token, city, tags,
		       active, allow_alerts, verified_email, verified_phone
		FROM users
		WHERE active = TRUE
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var user User
		err := rows.Scan(
			&user.UserID,
			&user.Username,
			&user.Email,
			&user.Phone,
			&user.PushToken,
			&user.City,
			pq.Array(&user.Tags),
			&user.Active,
			&user.AllowAlerts,
			&user.VerifiedEmail,
			&user.VerifiedPhone,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}
