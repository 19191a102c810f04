package models

// UserProfile is the user service's view of an account holder.
type UserProfile struct {
	UserID   uint   `json:"user_id"`
	FullName string `json:"fullname"`
	Phone    string `json:"phone"`
}
