package registry_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/reverse-proxy-manager/internal/registry"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/requestlog"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/route"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/routestore"
)

type failingLister struct {
	err error
}

func (f failingLister) List(context.Context) ([]route.Route, error) {
	return nil, f.err
}

type countingObserver struct {
	calls atomic.Int32
	last  atomic.Int32
}

func (o *countingObserver) ObserveReload(routes int) {
	o.calls.Add(1)
	o.last.Store(int32(routes))
}

var _ = Describe("Registry", func() {
	var (
		ctx      context.Context
		store    *routestore.MemoryStore
		lines    *requestlog.Logger
		observer *countingObserver
		reg      *registry.Registry
		log      *slog.Logger
	)

	BeforeEach(func() {
		ctx = context.Background()
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
		store = routestore.NewMemoryStore()
		lines = requestlog.New(requestlog.DefaultCapacity, nil)
		observer = &countingObserver{}
		reg = registry.New(store, log, lines, observer)
	})

	Describe("New", func() {
		It("should serve an empty snapshot before the first reload", func() {
			Expect(reg.Loaded()).To(BeFalse())
			Expect(reg.Current()).NotTo(BeNil())
			Expect(reg.Current().Len()).To(Equal(0))
			Expect(reg.Current().LoadedAt().IsZero()).To(BeTrue())
		})
	})

	Describe("Reload", func() {
		It("should publish the store contents", func() {
			created, _ := store.Create(ctx, route.Fields{Hostname: "a.example.com", TargetURL: "http://127.0.0.1:4000"})

			Expect(reg.Reload(ctx)).To(Succeed())

			Expect(reg.Loaded()).To(BeTrue())
			Expect(reg.Current().Routes()).To(Equal([]route.Route{created}))
			Expect(observer.calls.Load()).To(Equal(int32(1)))
			Expect(observer.last.Load()).To(Equal(int32(1)))
		})

		It("should replace rather than append", func() {
			first, _ := store.Create(ctx, route.Fields{Hostname: "a.example.com", TargetURL: "http://127.0.0.1:4000"})
			Expect(reg.Reload(ctx)).To(Succeed())

			Expect(store.Delete(ctx, first.ID)).To(Succeed())
			second, _ := store.Create(ctx, route.Fields{Hostname: "b.example.com", TargetURL: "http://127.0.0.1:4001"})
			Expect(reg.Reload(ctx)).To(Succeed())

			Expect(reg.Current().Routes()).To(Equal([]route.Route{second}))
		})

		It("should be idempotent", func() {
			_, _ = store.Create(ctx, route.Fields{Hostname: "a.example.com", TargetURL: "http://127.0.0.1:4000"})
			Expect(reg.Reload(ctx)).To(Succeed())
			before := reg.Current().Routes()

			Expect(reg.Reload(ctx)).To(Succeed())
			Expect(reg.Current().Routes()).To(Equal(before))
		})

		It("should log one setup line per route", func() {
			_, _ = store.Create(ctx, route.Fields{Hostname: "a.example.com", TargetURL: "http://127.0.0.1:4000"})
			Expect(reg.Reload(ctx)).To(Succeed())

			Expect(lines.Entries()[0].Message).To(Equal("Setting up proxy route: a.example.com -> http://127.0.0.1:4000"))
		})

		It("should not mutate a snapshot already handed out", func() {
			_, _ = store.Create(ctx, route.Fields{Hostname: "a.example.com", TargetURL: "http://127.0.0.1:4000"})
			Expect(reg.Reload(ctx)).To(Succeed())
			held := reg.Current()

			_, _ = store.Create(ctx, route.Fields{Hostname: "b.example.com", TargetURL: "http://127.0.0.1:4001"})
			Expect(reg.Reload(ctx)).To(Succeed())

			Expect(held.Len()).To(Equal(1))
			Expect(reg.Current().Len()).To(Equal(2))
		})

		Context("when the store fails", func() {
			It("should keep the previous snapshot and report the error", func() {
				_, _ = store.Create(ctx, route.Fields{Hostname: "a.example.com", TargetURL: "http://127.0.0.1:4000"})
				Expect(reg.Reload(ctx)).To(Succeed())
				previous := reg.Current()

				broken := registry.New(failingLister{err: errors.New("database is locked")}, log, lines, observer)
				err := broken.Reload(ctx)
				Expect(err).To(MatchError(ContainSubstring("database is locked")))
				Expect(broken.Loaded()).To(BeFalse())
				Expect(lines.Entries()[0].Message).To(HavePrefix("ERROR: Failed to reload proxy routes"))

				Expect(reg.Current()).To(BeIdenticalTo(previous))
			})
		})

		It("should be safe to call concurrently with lookups", func() {
			for i := 0; i < 10; i++ {
				_, _ = store.Create(ctx, route.Fields{Hostname: "a.example.com", TargetURL: "http://127.0.0.1:4000"})
			}

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(2)
				go func() {
					defer wg.Done()
					_ = reg.Reload(ctx)
				}()
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					snap := reg.Current()
					n := snap.Len()
					Expect(n == 0 || n == 10).To(BeTrue())
				}()
			}
			wg.Wait()

			Expect(reg.Current().Len()).To(Equal(10))
		})
	})

	Describe("Snapshot.Lookup", func() {
		It("should pick the first registered route for duplicate hostnames", func() {
			first, _ := store.Create(ctx, route.Fields{Hostname: "dup.example.com", TargetURL: "http://127.0.0.1:4000"})
			_, _ = store.Create(ctx, route.Fields{Hostname: "dup.example.com", TargetURL: "http://127.0.0.1:4001"})
			Expect(reg.Reload(ctx)).To(Succeed())

			r, ok := reg.Current().Lookup("dup.example.com")
			Expect(ok).To(BeTrue())
			Expect(r).To(Equal(first))
		})

		It("should report a miss for unknown hosts", func() {
			Expect(reg.Reload(ctx)).To(Succeed())
			_, ok := reg.Current().Lookup("nowhere.example.com")
			Expect(ok).To(BeFalse())
		})
	})
})
