package entity

// Roles reconocidos en el token JWT.
const (
	RoleAdmin     = "admin"
	RoleBodeguero = "bodeguero"
	RoleVendedor  = "vendedor"
)

// User actor que causa movimientos; solo se usa para mostrar y buscar por nombre.
type User struct {
	ID   string
	Name string
}
