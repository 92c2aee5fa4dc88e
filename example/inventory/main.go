// Command inventory is a small application wired entirely through autopilot:
// the store and the controller are resolved from references, and the
// controller is rebuilt for every request.
//
//	APP_DEBUG=true go run ./example/inventory
//	curl localhost:8000/api/v1/items/1
//	curl 'localhost:8000/_autopilot/resolve?ref=Store'
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/km-arc/go-autopilot/framework/app"
	"github.com/km-arc/go-autopilot/framework/autopilot"
	"github.com/km-arc/go-autopilot/framework/config"
	gohttp "github.com/km-arc/go-autopilot/framework/http"
	"github.com/km-arc/go-autopilot/framework/providers"
	"github.com/km-arc/go-autopilot/framework/routing"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := application.Register(&InventoryServiceProvider{}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := application.Run(ctx); err != nil {
		application.Log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// ── Domain ───────────────────────────────────────────────────────────────────

type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

// Store is the abstract dependency; the provider aliases it to memoryStore.
type Store interface {
	All() []Item
	Find(id string) (Item, bool)
}

type memoryStore struct{ items map[string]Item }

func newMemoryStore() *memoryStore {
	return &memoryStore{items: map[string]Item{
		"1": {ID: "1", Name: "bolt", Qty: 400},
		"2": {ID: "2", Name: "washer", Qty: 1200},
	}}
}

func (s *memoryStore) All() []Item {
	out := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memoryStore) Find(id string) (Item, bool) {
	it, ok := s.items[id]
	return it, ok
}

// ── Controller ───────────────────────────────────────────────────────────────

type ItemController struct {
	store Store
	log   *slog.Logger
}

func NewItemController(store Store, log *slog.Logger) *ItemController {
	return &ItemController{store: store, log: log}
}

func (c *ItemController) Index(w http.ResponseWriter, r *http.Request) {
	gohttp.NewResponse(w).Success(c.store.All())
}

func (c *ItemController) Show(w http.ResponseWriter, r *http.Request) {
	id := routing.Param(r, "id")
	it, ok := c.store.Find(id)
	if !ok {
		c.log.Debug("item not found", "id", id)
		gohttp.NewResponse(w).NotFound()
		return
	}
	gohttp.NewResponse(w).Success(it)
}

// ── Provider ─────────────────────────────────────────────────────────────────

var itemControllerRef = autopilot.NewReference("ItemController")

// InventoryServiceProvider registers the store and the controller and mounts
// the API routes.
type InventoryServiceProvider struct{}

func (p *InventoryServiceProvider) Register(c *autopilot.Container) error {
	ctors := autopilot.NewReflectiveRulebook()
	if err := ctors.Constructor(newMemoryStore); err != nil {
		return err
	}
	if err := ctors.Constructor(NewItemController, autopilot.Inject(1, providers.LoggerRef)); err != nil {
		return err
	}
	if err := c.RegisterInstantiatorRulebook(ctors); err != nil {
		return err
	}

	aliases := autopilot.NewAliasRulebook()
	aliases.Alias("Store", autopilot.MustParse("memoryStore{Main:Singleton}"))
	return c.RegisterInstantiatorRulebook(aliases)
}

func (p *InventoryServiceProvider) Boot(c *autopilot.Container) error {
	router, err := autopilot.Resolve[*routing.Router](c, providers.RouterRef)
	if err != nil {
		return err
	}
	cfg, err := autopilot.Resolve[*config.Config](c, providers.ConfigRef)
	if err != nil {
		return err
	}
	debug := cfg.App.Debug
	router.Prefix("/api/v1", func(api *routing.Router) {
		api.Get("/items", routing.Controller(c, itemControllerRef, debug, (*ItemController).Index))
		api.Get("/items/{id}", routing.Controller(c, itemControllerRef, debug, (*ItemController).Show))
	})
	return nil
}
