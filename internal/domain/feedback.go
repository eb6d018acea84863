package domain

import "time"

type Feedback struct {
	ID        int64
	UserID    int64
	Username  string
	Email     string
	Address   string
	Subject   string
	Message   string
	CreatedAt time.Time
}
