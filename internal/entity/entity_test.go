package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	t.Run("tenant-scoped types are audited", func(t *testing.T) {
		for _, typ := range []Type{TypeEmployee, TypeCustomer, TypeInvoice, TypePayrollEntry, TypeBankAccount} {
			d, ok := Describe(typ)
			require.True(t, ok, typ)
			require.True(t, d.TenantScoped, typ)
			require.True(t, d.Audited, typ)
			require.False(t, d.SharedCapable, typ)
		}
	})

	t.Run("catalog types are shared-capable", func(t *testing.T) {
		for _, typ := range []Type{TypeProduct, TypeSupplier} {
			d, ok := Describe(typ)
			require.True(t, ok, typ)
			require.True(t, d.TenantScoped, typ)
			require.True(t, d.SharedCapable, typ)
		}
	})

	t.Run("global types are not tenant-scoped", func(t *testing.T) {
		for _, typ := range []Type{TypeCompany, TypeUser} {
			d, ok := Describe(typ)
			require.True(t, ok, typ)
			require.False(t, d.TenantScoped, typ)
			require.True(t, d.Audited, typ)
		}
	})

	t.Run("unregistered type yields zero descriptor", func(t *testing.T) {
		d, ok := Describe(Type("audit_log"))
		require.False(t, ok)
		require.Zero(t, d)
		require.False(t, Registered(Type("audit_log")))
	})
}
