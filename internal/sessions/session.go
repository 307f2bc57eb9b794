package sessions

import "time"

// Session is a server-side login session. The opaque token is the redis key
// suffix; the signed cookie carries it back on each request.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}
