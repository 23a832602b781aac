package store

import (
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/qazedu/examcenter/internal/model"
)

// CreateUser inserts a roster entry. The profile column matching the
// role is stored; the others stay NULL.
func (s *Store) CreateUser(u model.User) (int64, error) {
	var classID, subjectID sql.NullInt64
	switch u.Role {
	case model.RoleStudent:
		if u.Student == nil {
			return 0, model.NewValidation("student user requires a student profile")
		}
		classID = sql.NullInt64{Int64: u.Student.ClassID, Valid: true}
	case model.RoleTeacher:
		if u.Teacher == nil {
			return 0, model.NewValidation("teacher user requires a teacher profile")
		}
		subjectID = sql.NullInt64{Int64: u.Teacher.SubjectID, Valid: true}
	case model.RoleAdmin:
	default:
		return 0, model.NewValidation("unknown role %q", u.Role)
	}

	res, err := s.db.Exec(
		`INSERT INTO users (username, first_name, last_name, password_hash, role, active, class_id, subject_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.FirstName, u.LastName, u.PasswordHash, u.Role, u.Active, classID, subjectID, time.Now(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return 0, model.NewConflict("username already taken")
		}
		slog.Error("failed to create user", "username", u.Username, "error", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slog.Info("created user", "id", id, "username", u.Username, "role", u.Role)
	return id, nil
}

const userColumns = `id, username, first_name, last_name, password_hash, role, active, class_id, subject_id, created_at`

func scanUser(scan func(...any) error) (*model.User, error) {
	var u model.User
	var classID, subjectID sql.NullInt64
	if err := scan(
		&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.PasswordHash,
		&u.Role, &u.Active, &classID, &subjectID, &u.CreatedAt,
	); err != nil {
		return nil, err
	}
	switch u.Role {
	case model.RoleStudent:
		u.Student = &model.StudentProfile{ClassID: classID.Int64}
	case model.RoleTeacher:
		u.Teacher = &model.TeacherProfile{SubjectID: subjectID.Int64}
	}
	return &u, nil
}

// GetUserByID returns a user by id, or nil when absent.
func (s *Store) GetUserByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// GetUserByUsername returns a user by username, or nil when absent.
func (s *Store) GetUserByUsername(username string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// UserCount returns the total number of users.
func (s *Store) UserCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// DeleteUser removes a user and, for students, their results.
func (s *Store) DeleteUser(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int64
	if err := tx.QueryRow(`SELECT id FROM users WHERE id = ?`, id).Scan(&exists); err == sql.ErrNoRows {
		return model.NewNotFound("student")
	} else if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM results WHERE student_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM auth_sessions WHERE user_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM users WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateClass inserts a class.
func (s *Store) CreateClass(name string) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO classes (name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetClass returns a class by id.
func (s *Store) GetClass(id int64) (*model.Class, error) {
	var c model.Class
	err := s.db.QueryRow(`SELECT id, name FROM classes WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	if err == sql.ErrNoRows {
		return nil, model.NewNotFound("class")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListClassStudentIDs returns the ids of all students in a class.
func (s *Store) ListClassStudentIDs(classID int64) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT id FROM users WHERE role = ? AND class_id = ? ORDER BY id`,
		model.RoleStudent, classID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteClass removes a class together with its students and their
// results and sessions, all in one transaction.
func (s *Store) DeleteClass(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int64
	if err := tx.QueryRow(`SELECT id FROM classes WHERE id = ?`, id).Scan(&exists); err == sql.ErrNoRows {
		return model.NewNotFound("class")
	} else if err != nil {
		return err
	}

	if _, err := tx.Exec(
		`DELETE FROM results WHERE student_id IN (SELECT id FROM users WHERE role = ? AND class_id = ?)`,
		model.RoleStudent, id,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`DELETE FROM auth_sessions WHERE user_id IN (SELECT id FROM users WHERE role = ? AND class_id = ?)`,
		model.RoleStudent, id,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM users WHERE role = ? AND class_id = ?`, model.RoleStudent, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM classes WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateAuthSession persists a refresh token for a user.
func (s *Store) CreateAuthSession(sess model.AuthSession) error {
	_, err := s.db.Exec(
		`INSERT INTO auth_sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.CreatedAt, sess.ExpiresAt,
	)
	return err
}

// GetAuthSession returns the session for a token, or nil when missing
// or expired. Expired sessions are removed on read.
func (s *Store) GetAuthSession(token string) (*model.AuthSession, error) {
	var sess model.AuthSession
	err := s.db.QueryRow(
		`SELECT id, user_id, created_at, expires_at FROM auth_sessions WHERE id = ?`, token,
	).Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(sess.ExpiresAt) {
		_ = s.DeleteAuthSession(token)
		return nil, nil
	}
	return &sess, nil
}

// DeleteAuthSession removes a refresh token.
func (s *Store) DeleteAuthSession(token string) error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE id = ?`, token)
	return err
}
