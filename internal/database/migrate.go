package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the studio tables when they do not exist.  The unique key
// on waiting_list(lesson_id, user_id) backs the one-entry-per-lesson rule
// and tickets.remaining_count is unsigned so a bad decrement fails loudly.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		name          VARCHAR(255) NOT NULL DEFAULT '',
		password_hash VARCHAR(255) NOT NULL,
		role          ENUM('MEMBER','ADMIN') NOT NULL DEFAULT 'MEMBER',
		is_active     TINYINT(1) NOT NULL DEFAULT 1,
		consent_at    DATETIME NULL,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_token_hash (token_hash),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS ticket_groups (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name       VARCHAR(100) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_ticket_groups_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS lessons (
		id              BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		title           VARCHAR(255) NOT NULL,
		instructor      VARCHAR(255) NOT NULL DEFAULT '',
		starts_at       DATETIME NOT NULL,
		ends_at         DATETIME NOT NULL,
		max_capacity    INT UNSIGNED NOT NULL,
		price_cents     INT UNSIGNED NOT NULL DEFAULT 0,
		ticket_group_id BIGINT UNSIGNED NULL,
		created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_lessons_starts_at (starts_at),
		CONSTRAINT fk_lessons_group FOREIGN KEY (ticket_group_id) REFERENCES ticket_groups(id) ON DELETE SET NULL,
		CONSTRAINT chk_lessons_window CHECK (ends_at > starts_at),
		CONSTRAINT chk_lessons_capacity CHECK (max_capacity > 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id              BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id         BIGINT UNSIGNED NOT NULL,
		ticket_group_id BIGINT UNSIGNED NOT NULL,
		remaining_count INT UNSIGNED NOT NULL,
		expires_at      DATETIME NOT NULL,
		created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_tickets_user_group (user_id, ticket_group_id),
		CONSTRAINT fk_tickets_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		CONSTRAINT fk_tickets_group FOREIGN KEY (ticket_group_id) REFERENCES ticket_groups(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id               BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		lesson_id        BIGINT UNSIGNED NOT NULL,
		user_id          BIGINT UNSIGNED NULL,
		guest_name       VARCHAR(255) NOT NULL DEFAULT '',
		guest_email      VARCHAR(255) NOT NULL DEFAULT '',
		reservation_type ENUM('TRIAL','DROP_IN','TICKET') NOT NULL,
		payment_method   ENUM('PAY_NOW','PAY_AT_STUDIO','TICKET') NOT NULL,
		payment_status   ENUM('PENDING','PAID','CANCELLED','REFUNDED') NOT NULL,
		ticket_id        BIGINT UNSIGNED NULL,
		cancelled_at     DATETIME NULL,
		created_at       DATETIME NOT NULL,
		updated_at       DATETIME NOT NULL,
		KEY idx_reservations_lesson_status (lesson_id, payment_status),
		KEY idx_reservations_user_type (user_id, reservation_type, payment_status),
		CONSTRAINT fk_reservations_lesson FOREIGN KEY (lesson_id) REFERENCES lessons(id) ON DELETE CASCADE,
		CONSTRAINT fk_reservations_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL,
		CONSTRAINT fk_reservations_ticket FOREIGN KEY (ticket_id) REFERENCES tickets(id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS waiting_list (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		lesson_id  BIGINT UNSIGNED NOT NULL,
		user_id    BIGINT UNSIGNED NOT NULL,
		is_trial   TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_waiting_list_lesson_user (lesson_id, user_id),
		KEY idx_waiting_list_user (user_id),
		CONSTRAINT fk_waiting_lesson FOREIGN KEY (lesson_id) REFERENCES lessons(id) ON DELETE CASCADE,
		CONSTRAINT fk_waiting_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema statements in order.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
