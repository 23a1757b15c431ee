package entity

// BillingProfile datos de facturación de un cliente. Todos los campos son
// obligatorios para poder facturar excepto Email y Phone; la validación vive
// en internal/domain/billing (ValidateProfile) para mantenerla pura.
type BillingProfile struct {
	ClientID   string
	Name       string
	TaxID      string // NIF/NIE del cliente
	Address    string
	PostalCode string
	City       string
	Province   string
	Email      string // opcional
	Phone      string // opcional
}
