package entity

// ReferenceKind tipo de entidad que originó un movimiento.
type ReferenceKind string

const (
	ReferenceOrder            ReferenceKind = "order"
	ReferenceReturnCase       ReferenceKind = "return_case"
	ReferenceManualAdjustment ReferenceKind = "manual_adjustment"
)

// ReferenceKinds tipos de referencia aceptados en intake.
var ReferenceKinds = []ReferenceKind{ReferenceOrder, ReferenceReturnCase, ReferenceManualAdjustment}

// ParseReferenceKind devuelve el tipo y true si s es reconocido.
func ParseReferenceKind(s string) (ReferenceKind, bool) {
	for _, k := range ReferenceKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Reference puntero informativo a la entidad que causó el movimiento. Nunca se desreferencia
// para decidir la corrección de un movimiento; solo para mostrar una etiqueta.
type Reference struct {
	Kind ReferenceKind
	ID   string
}
