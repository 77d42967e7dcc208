package domain

// User is an operator account. UserID is the login name the dispatch tables
// reference as the claiming agent; Role comes from the legacy "roll" column.
type User struct {
	ID           int64  `json:"id"`
	UserID       string `json:"user_id"`
	UserName     string `json:"username"`
	Role         string `json:"role"`
	PasswordHash string `json:"-"`
}

// Session is the authenticated identity derived from a verified token. It is
// never persisted in the dispatch tables, only checked per request.
type Session struct {
	TokenID  string `json:"-"`
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
