// Package entity holds the static registry of entity types the platform
// persists. Both access-layer interceptors consult it on every call; it is
// initialized at startup and never mutated, so lookups need no locking.
package entity

// Type tags an entity kind across the store, the access layer, and the audit
// trail. Dispatch is always over the tag, never over reflected type names.
type Type string

const (
	TypeCompany      Type = "company"
	TypeUser         Type = "user"
	TypeEmployee     Type = "employee"
	TypeCustomer     Type = "customer"
	TypeSupplier     Type = "supplier"
	TypeProduct      Type = "product"
	TypeInvoice      Type = "invoice"
	TypePayrollEntry Type = "payroll_entry"
	TypeBankAccount  Type = "bank_account"
)

// Well-known document fields. Every tenant-scoped record carries the owner
// field; shared-capable records may additionally carry the shared flag.
const (
	FieldID        = "id"
	FieldCompanyID = "companyId"
	FieldShared    = "isShared"
)

// Descriptor describes how the access layer treats one entity type.
type Descriptor struct {
	// TenantScoped entities are invisible outside their owning company.
	TenantScoped bool
	// SharedCapable entities may be flagged isShared and become readable
	// (never writable) across companies.
	SharedCapable bool
	// Audited entities produce an audit record on every create/update/delete.
	Audited bool
}

var descriptors = map[Type]Descriptor{
	// Global types: companies and users exist above any single tenant.
	TypeCompany: {Audited: true},
	TypeUser:    {Audited: true},

	// Tenant-owned business records.
	TypeEmployee:     {TenantScoped: true, Audited: true},
	TypeCustomer:     {TenantScoped: true, Audited: true},
	TypeInvoice:      {TenantScoped: true, Audited: true},
	TypePayrollEntry: {TenantScoped: true, Audited: true},
	TypeBankAccount:  {TenantScoped: true, Audited: true},

	// Catalog types a company may publish to every tenant.
	TypeProduct:  {TenantScoped: true, SharedCapable: true, Audited: true},
	TypeSupplier: {TenantScoped: true, SharedCapable: true, Audited: true},
}

// Describe returns the descriptor for a type. Unregistered types get the zero
// descriptor and false; the access layer forwards their calls unmodified.
func Describe(t Type) (Descriptor, bool) {
	d, ok := descriptors[t]
	return d, ok
}

// Registered reports whether the type is known to the registry.
func Registered(t Type) bool {
	_, ok := descriptors[t]
	return ok
}

// All returns every registered type. Order is unspecified.
func All() []Type {
	types := make([]Type, 0, len(descriptors))
	for t := range descriptors {
		types = append(types, t)
	}
	return types
}
