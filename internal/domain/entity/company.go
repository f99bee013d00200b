package entity

import "time"

// AnonymousCompanyName nombre literal de la empresa centinela por tienda para carritos sin identificar.
const AnonymousCompanyName = "Anonymous Customers"

// Company representa una cuenta B2B dentro de una tienda.
type Company struct {
	ID          string
	TenantID    string
	Name        string
	IsAnonymous bool // true solo para la empresa centinela "Anonymous Customers"
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CompanyUser miembro de una empresa. Puede estar enlazado a un cliente del proveedor.
type CompanyUser struct {
	ID                 string
	TenantID           string
	CompanyID          string
	Email              string
	Name               string
	ProviderCustomerID *int64 // id de cliente en el proveedor de comercio (nil si no está enlazado)
	Status             string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
