package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/km-arc/go-autopilot/framework/app"
	"github.com/km-arc/go-autopilot/framework/autopilot"
	"github.com/km-arc/go-autopilot/framework/config"
)

func TestInventory_Routes(t *testing.T) {
	a, err := app.NewWithConfig(&config.Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Register(&InventoryServiceProvider{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := a.Boot(); err != nil {
		t.Fatalf("Boot: %v", err)
	}
	router, err := a.Router()
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/items/2", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/items/2: got %d", rr.Code)
	}
	var body struct {
		Data Item `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Data.Name != "washer" {
		t.Errorf("got %+v", body.Data)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/items/9", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing item: got %d want 404", rr.Code)
	}

	// The store is a shared singleton behind the Store alias.
	s1, _ := autopilot.Resolve[Store](a.Container, autopilot.NewReference("Store"))
	s2, _ := autopilot.Resolve[Store](a.Container, autopilot.NewReference("Store"))
	if s1 == nil || s1 != s2 {
		t.Error("Store should resolve to the memoryStore singleton")
	}
}
