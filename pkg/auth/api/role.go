package api

type Role string

const (
	AdminRole         Role = "ADMIN"
	AuthenticatedRole Role = "AUTHENTICATED"
	PublicRole        Role = "PUBLIC"
)
