package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"nucleo/internal/entity"
	"nucleo/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *Memory
	ctx   context.Context
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemory()
	s.ctx = context.Background()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) seed(typ entity.Type, recs ...Record) {
	for _, rec := range recs {
		_, err := s.store.Create(s.ctx, typ, rec)
		s.Require().NoError(err)
	}
}

// TestCreateAndLookups verifies id assignment and point lookups.
func (s *MemoryStoreSuite) TestCreateAndLookups() {
	s.Run("assigns an id when the payload has none", func() {
		created, err := s.store.Create(s.ctx, entity.TypeProduct, Record{"name": "Bolt"})
		s.Require().NoError(err)
		s.NotEmpty(created.ID())

		found, err := s.store.FindUnique(s.ctx, entity.TypeProduct, created.ID())
		s.Require().NoError(err)
		s.Equal("Bolt", found["name"])
	})

	s.Run("preserves a caller-supplied id", func() {
		created, err := s.store.Create(s.ctx, entity.TypeProduct, Record{"id": "p-1", "name": "Nut"})
		s.Require().NoError(err)
		s.Equal("p-1", created.ID())
	})

	s.Run("rejects duplicate ids", func() {
		_, err := s.store.Create(s.ctx, entity.TypeProduct, Record{"id": "p-dup"})
		s.Require().NoError(err)
		_, err = s.store.Create(s.ctx, entity.TypeProduct, Record{"id": "p-dup"})
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("returns ErrNotFound for unknown ids", func() {
		_, err := s.store.FindUnique(s.ctx, entity.TypeProduct, "missing")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("does not alias stored state", func() {
		created, err := s.store.Create(s.ctx, entity.TypeProduct, Record{"id": "p-alias", "name": "Washer"})
		s.Require().NoError(err)
		created["name"] = "mutated"

		found, err := s.store.FindUnique(s.ctx, entity.TypeProduct, "p-alias")
		s.Require().NoError(err)
		s.Equal("Washer", found["name"])
	})
}

// TestQueries verifies predicate evaluation, ordering, and windows.
func (s *MemoryStoreSuite) TestQueries() {
	s.seed(entity.TypeInvoice,
		Record{"id": "i-1", "companyId": "acme", "total": 100, "status": "open"},
		Record{"id": "i-2", "companyId": "acme", "total": 250, "status": "paid"},
		Record{"id": "i-3", "companyId": "globex", "total": 75, "status": "open"},
	)

	s.Run("filters with composed predicates", func() {
		recs, err := s.store.FindMany(s.ctx, entity.TypeInvoice, Query{
			Where: All(Eq("companyId", "acme"), Eq("status", "open")),
		})
		s.Require().NoError(err)
		s.Require().Len(recs, 1)
		s.Equal("i-1", recs[0].ID())
	})

	s.Run("matches OR branches", func() {
		recs, err := s.store.FindMany(s.ctx, entity.TypeInvoice, Query{
			Where: Any(Eq("status", "paid"), Eq("companyId", "globex")),
		})
		s.Require().NoError(err)
		s.Len(recs, 2)
	})

	s.Run("orders and limits", func() {
		recs, err := s.store.FindMany(s.ctx, entity.TypeInvoice, Query{
			OrderBy: []Order{{Field: "total", Desc: true}},
			Limit:   2,
		})
		s.Require().NoError(err)
		s.Require().Len(recs, 2)
		s.Equal("i-2", recs[0].ID())
		s.Equal("i-1", recs[1].ID())
	})

	s.Run("compares numbers across concrete types", func() {
		recs, err := s.store.FindMany(s.ctx, entity.TypeInvoice, Query{
			Where: Gte("total", 100.0),
		})
		s.Require().NoError(err)
		s.Len(recs, 2)
	})

	s.Run("FindFirst returns ErrNotFound on no match", func() {
		_, err := s.store.FindFirst(s.ctx, entity.TypeInvoice, Query{Where: Eq("status", "void")})
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("counts matches", func() {
		n, err := s.store.Count(s.ctx, entity.TypeInvoice, Eq("status", "open"))
		s.Require().NoError(err)
		s.Equal(int64(2), n)
	})

	s.Run("aggregates numeric fields", func() {
		sum, err := s.store.Aggregate(s.ctx, entity.TypeInvoice, Aggregation{Field: "total", Func: AggSum})
		s.Require().NoError(err)
		s.Equal(425.0, sum)

		avg, err := s.store.Aggregate(s.ctx, entity.TypeInvoice, Aggregation{
			Where: Eq("companyId", "acme"), Field: "total", Func: AggAvg,
		})
		s.Require().NoError(err)
		s.Equal(175.0, avg)
	})

	s.Run("groups by field", func() {
		groups, err := s.store.GroupBy(s.ctx, entity.TypeInvoice, Grouping{By: "status"})
		s.Require().NoError(err)
		s.Require().Len(groups, 2)
		byKey := map[any]int64{}
		for _, g := range groups {
			byKey[g["key"]] = g["count"].(int64)
		}
		s.Equal(int64(2), byKey["open"])
		s.Equal(int64(1), byKey["paid"])
	})
}

// TestWrites verifies update, delete, and upsert semantics.
func (s *MemoryStoreSuite) TestWrites() {
	s.Run("update merges the patch into the first match", func() {
		s.seed(entity.TypeCustomer, Record{"id": "c-1", "name": "Old Name", "city": "Recife"})

		updated, err := s.store.Update(s.ctx, entity.TypeCustomer, Eq("id", "c-1"), Record{"name": "New Name"})
		s.Require().NoError(err)
		s.Equal("New Name", updated["name"])
		s.Equal("Recife", updated["city"])
	})

	s.Run("update with zero matches returns ErrNotFound", func() {
		_, err := s.store.Update(s.ctx, entity.TypeCustomer, Eq("id", "ghost"), Record{"name": "x"})
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("update never rewrites the id", func() {
		s.seed(entity.TypeCustomer, Record{"id": "c-2", "name": "Keep"})
		updated, err := s.store.Update(s.ctx, entity.TypeCustomer, Eq("id", "c-2"), Record{"id": "hijack", "name": "Kept"})
		s.Require().NoError(err)
		s.Equal("c-2", updated.ID())
	})

	s.Run("updateMany reports the affected count", func() {
		s.seed(entity.TypeEmployee,
			Record{"id": "e-1", "dept": "ops"},
			Record{"id": "e-2", "dept": "ops"},
			Record{"id": "e-3", "dept": "sales"},
		)
		n, err := s.store.UpdateMany(s.ctx, entity.TypeEmployee, Eq("dept", "ops"), Record{"active": true})
		s.Require().NoError(err)
		s.Equal(int64(2), n)
	})

	s.Run("delete returns the removed record", func() {
		s.seed(entity.TypeSupplier, Record{"id": "s-1", "name": "Acme Parts"})
		removed, err := s.store.Delete(s.ctx, entity.TypeSupplier, Eq("id", "s-1"))
		s.Require().NoError(err)
		s.Equal("Acme Parts", removed["name"])

		_, err = s.store.FindUnique(s.ctx, entity.TypeSupplier, "s-1")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("deleteMany reports zero on no match", func() {
		n, err := s.store.DeleteMany(s.ctx, entity.TypeSupplier, Eq("name", "nobody"))
		s.Require().NoError(err)
		s.Zero(n)
	})

	s.Run("upsert updates when the filter matches", func() {
		s.seed(entity.TypeProduct, Record{"id": "p-u", "sku": "SKU-1", "price": 10})
		rec, err := s.store.Upsert(s.ctx, entity.TypeProduct, Eq("sku", "SKU-1"),
			Record{"sku": "SKU-1", "price": 99}, Record{"price": 12})
		s.Require().NoError(err)
		s.Equal("p-u", rec.ID())
		s.Equal(12, rec["price"])
	})

	s.Run("upsert creates when the filter matches nothing", func() {
		rec, err := s.store.Upsert(s.ctx, entity.TypeProduct, Eq("sku", "SKU-NEW"),
			Record{"sku": "SKU-NEW", "price": 7}, Record{"price": 1})
		s.Require().NoError(err)
		s.NotEmpty(rec.ID())
		s.Equal(7, rec["price"])
	})
}
