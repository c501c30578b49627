package model

const (
	RoleAdmin  int64 = 1
	RoleMember int64 = 2
)

type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
