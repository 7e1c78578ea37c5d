package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"nucleo/internal/entity"
	"nucleo/internal/store"
	"nucleo/pkg/platform/sentinel"
)

type TenantFilterSuite struct {
	suite.Suite

	ctx  context.Context
	base *store.Memory
}

func TestTenantFilterSuite(t *testing.T) {
	suite.Run(t, new(TenantFilterSuite))
}

func (s *TenantFilterSuite) SetupTest() {
	s.ctx = context.Background()
	s.base = store.NewMemory()
}

func (s *TenantFilterSuite) filter(tenant string) store.Store {
	return NewTenantFilter(s.base, &TenantContext{TenantID: tenant})
}

func (s *TenantFilterSuite) seed(typ entity.Type, recs ...store.Record) {
	for _, rec := range recs {
		_, err := s.base.Create(s.ctx, typ, rec)
		s.Require().NoError(err)
	}
}

func (s *TenantFilterSuite) TestReadIsolation() {
	s.seed(entity.TypeInvoice,
		store.Record{"id": "inv-a", "companyId": "acme", "number": "INV-001"},
		store.Record{"id": "inv-b", "companyId": "globex", "number": "INV-002"},
		store.Record{"id": "inv-sys", "number": "INV-SYS"},
	)

	s.Run("find many returns own and ownerless rows", func() {
		recs, err := s.filter("acme").FindMany(s.ctx, entity.TypeInvoice, store.Query{})
		s.Require().NoError(err)
		s.Require().Len(recs, 2)
		s.Equal("inv-a", recs[0].ID())
		s.Equal("inv-sys", recs[1].ID())
	})

	s.Run("count sees the same set", func() {
		n, err := s.filter("globex").Count(s.ctx, entity.TypeInvoice, store.Where{})
		s.Require().NoError(err)
		s.Equal(int64(2), n)
	})

	s.Run("caller predicate composes with the scope", func() {
		rec, err := s.filter("acme").FindFirst(s.ctx, entity.TypeInvoice, store.Query{
			Where: store.Eq("number", "INV-002"),
		})
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.Nil(rec)
	})
}

func (s *TenantFilterSuite) TestFindUniqueMasksForeignRows() {
	s.seed(entity.TypeInvoice, store.Record{"id": "inv-b", "companyId": "globex"})

	rec, err := s.filter("acme").FindUnique(s.ctx, entity.TypeInvoice, "inv-b")
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.Nil(rec)

	missing, err := s.filter("acme").FindUnique(s.ctx, entity.TypeInvoice, "no-such-id")
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.Nil(missing)
}

func (s *TenantFilterSuite) TestSharedRowsReadableNotWritable() {
	s.seed(entity.TypeProduct,
		store.Record{"id": "prod-b", "companyId": "globex", "isShared": true, "name": "Widget"},
		store.Record{"id": "prod-priv", "companyId": "globex", "name": "Secret"},
	)

	s.Run("shared row visible across tenants", func() {
		rec, err := s.filter("acme").FindUnique(s.ctx, entity.TypeProduct, "prod-b")
		s.Require().NoError(err)
		s.Equal("Widget", rec["name"])
	})

	s.Run("unshared row stays hidden", func() {
		_, err := s.filter("acme").FindUnique(s.ctx, entity.TypeProduct, "prod-priv")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("shared row rejects foreign writes", func() {
		_, err := s.filter("acme").Update(s.ctx, entity.TypeProduct,
			store.Eq("id", "prod-b"), store.Record{"name": "Hijacked"})
		s.ErrorIs(err, sentinel.ErrNotFound)

		rec, err := s.base.FindUnique(s.ctx, entity.TypeProduct, "prod-b")
		s.Require().NoError(err)
		s.Equal("Widget", rec["name"])
	})

	s.Run("shared row rejects foreign deletes", func() {
		_, err := s.filter("acme").Delete(s.ctx, entity.TypeProduct, store.Eq("id", "prod-b"))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("shared flag means nothing on non shared-capable types", func() {
		s.seed(entity.TypeInvoice, store.Record{"id": "inv-shared", "companyId": "globex", "isShared": true})
		_, err := s.filter("acme").FindUnique(s.ctx, entity.TypeInvoice, "inv-shared")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *TenantFilterSuite) TestCreateInjectsOwner() {
	s.Run("missing owner is stamped", func() {
		rec, err := s.filter("acme").Create(s.ctx, entity.TypeCustomer, store.Record{"name": "Initech"})
		s.Require().NoError(err)
		s.Equal("acme", rec["companyId"])
	})

	s.Run("explicit owner is preserved", func() {
		rec, err := s.filter("acme").Create(s.ctx, entity.TypeCustomer,
			store.Record{"name": "Hooli", "companyId": "globex"})
		s.Require().NoError(err)
		s.Equal("globex", rec["companyId"])
	})

	s.Run("caller payload is not mutated", func() {
		data := store.Record{"name": "Umbrella"}
		_, err := s.filter("acme").Create(s.ctx, entity.TypeCustomer, data)
		s.Require().NoError(err)
		s.NotContains(data, "companyId")
	})

	s.Run("create many stamps every record", func() {
		n, err := s.filter("acme").CreateMany(s.ctx, entity.TypeEmployee, []store.Record{
			{"name": "Ann"}, {"name": "Bob"},
		})
		s.Require().NoError(err)
		s.Equal(int64(2), n)

		own, err := s.base.Count(s.ctx, entity.TypeEmployee, store.Eq("companyId", "acme"))
		s.Require().NoError(err)
		s.Equal(int64(2), own)
	})
}

func (s *TenantFilterSuite) TestWriteScoping() {
	s.seed(entity.TypeCustomer,
		store.Record{"id": "cust-a", "companyId": "acme", "name": "Initech"},
		store.Record{"id": "cust-b", "companyId": "globex", "name": "Hooli"},
		store.Record{"id": "cust-sys", "name": "System"},
	)

	s.Run("own row updates", func() {
		rec, err := s.filter("acme").Update(s.ctx, entity.TypeCustomer,
			store.Eq("id", "cust-a"), store.Record{"name": "Initech GmbH"})
		s.Require().NoError(err)
		s.Equal("Initech GmbH", rec["name"])
	})

	s.Run("foreign row reports not found", func() {
		_, err := s.filter("acme").Update(s.ctx, entity.TypeCustomer,
			store.Eq("id", "cust-b"), store.Record{"name": "Hijacked"})
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("ownerless rows are readable but not writable", func() {
		_, err := s.filter("acme").Delete(s.ctx, entity.TypeCustomer, store.Eq("id", "cust-sys"))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("bulk writes touch only owned rows", func() {
		n, err := s.filter("acme").UpdateMany(s.ctx, entity.TypeCustomer,
			store.Where{}, store.Record{"reviewed": true})
		s.Require().NoError(err)
		s.Equal(int64(1), n)
	})
}

func (s *TenantFilterSuite) TestUpsert() {
	s.Run("create branch stamps the owner", func() {
		rec, err := s.filter("acme").Upsert(s.ctx, entity.TypeSupplier,
			store.Eq("code", "SUP-1"),
			store.Record{"code": "SUP-1", "name": "Vandelay"},
			store.Record{"name": "Vandelay"})
		s.Require().NoError(err)
		s.Equal("acme", rec["companyId"])
	})

	s.Run("update branch never crosses tenants", func() {
		s.seed(entity.TypeSupplier, store.Record{"id": "sup-b", "code": "SUP-2", "companyId": "globex"})

		rec, err := s.filter("acme").Upsert(s.ctx, entity.TypeSupplier,
			store.Eq("code", "SUP-2"),
			store.Record{"code": "SUP-2", "name": "Duplicate"},
			store.Record{"name": "Hijacked"})
		s.Require().NoError(err)
		s.Equal("acme", rec["companyId"])

		original, err := s.base.FindUnique(s.ctx, entity.TypeSupplier, "sup-b")
		s.Require().NoError(err)
		s.NotContains(original, "name")
	})
}

func (s *TenantFilterSuite) TestUnscopedTypesPassThrough() {
	s.seed(entity.TypeCompany,
		store.Record{"id": "acme", "name": "Acme Corp"},
		store.Record{"id": "globex", "name": "Globex"},
	)

	recs, err := s.filter("acme").FindMany(s.ctx, entity.TypeCompany, store.Query{})
	s.Require().NoError(err)
	s.Len(recs, 2)

	rec, err := s.filter("acme").Create(s.ctx, entity.TypeCompany, store.Record{"name": "Initech"})
	s.Require().NoError(err)
	s.NotContains(rec, "companyId")
}

func (s *TenantFilterSuite) TestUnregisteredTypesPassThrough() {
	s.seed(entity.Type("webhook"), store.Record{"id": "wh-1", "companyId": "globex"})

	rec, err := s.filter("acme").FindUnique(s.ctx, entity.Type("webhook"), "wh-1")
	s.Require().NoError(err)
	s.Equal("wh-1", rec.ID())
}

func (s *TenantFilterSuite) TestWrapSkipsUnscopedCallers() {
	s.Same(s.base, WrapWithTenantFilter(s.base, nil))
	s.Same(s.base, WrapWithTenantFilter(s.base, &TenantContext{}))
}
