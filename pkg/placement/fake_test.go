package placement

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

type fakeProvider struct {
	rp          ResourceProvider
	inventories map[string]Inventory
	traits      []string
	aggregates  []string
	usages      map[string]int
}

// fakePlacement is an in-memory placement service.
type fakePlacement struct {
	mu        sync.Mutex
	providers map[string]*fakeProvider
	traits    map[string]bool
	classes   map[string]bool

	// bumps is how many upcoming generation checked writes will find the
	// provider updated by someone else.
	bumps    int
	requests int
	headers  http.Header
}

func newFakePlacement(t *testing.T) (*fakePlacement, *httptest.Server) {
	t.Helper()

	f := &fakePlacement{
		providers: map[string]*fakeProvider{},
		traits:    map[string]bool{"HW_CPU_X86_AVX2": true},
		classes:   map[string]bool{"VCPU": true, "MEMORY_MB": true},
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.mu.Lock()
			f.requests++
			f.headers = req.Header.Clone()
			f.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})

	r.Route("/resource_providers", func(r chi.Router) {
		r.Post("/", f.createProvider)
		r.Get("/", f.listProviders)
		r.Route("/{uuid}", func(r chi.Router) {
			r.Get("/", f.withProvider(func(w http.ResponseWriter, _ *http.Request, p *fakeProvider) {
				writeJSON(w, http.StatusOK, p.rp)
			}))
			r.Put("/", f.withProvider(f.updateProvider))
			r.Delete("/", f.deleteProvider)
			r.Get("/inventories", f.withProvider(func(w http.ResponseWriter, _ *http.Request, p *fakeProvider) {
				writeJSON(w, http.StatusOK, Inventories{Generation: p.rp.Generation, Inventories: p.inventories})
			}))
			r.Put("/inventories", f.withProvider(f.putInventories))
			r.Delete("/inventories", f.withProvider(func(w http.ResponseWriter, _ *http.Request, p *fakeProvider) {
				p.inventories = map[string]Inventory{}
				p.rp.Generation++
				w.WriteHeader(http.StatusNoContent)
			}))
			r.Put("/inventories/{class}", f.withProvider(f.putInventory))
			r.Delete("/inventories/{class}", f.withProvider(func(w http.ResponseWriter, req *http.Request, p *fakeProvider) {
				class := chi.URLParam(req, "class")
				if _, ok := p.inventories[class]; !ok {
					writeError(w, http.StatusNotFound, "", "no inventory of class "+class)
					return
				}
				delete(p.inventories, class)
				p.rp.Generation++
				w.WriteHeader(http.StatusNoContent)
			}))
			r.Get("/aggregates", f.withProvider(func(w http.ResponseWriter, _ *http.Request, p *fakeProvider) {
				writeJSON(w, http.StatusOK, Aggregates{Generation: p.rp.Generation, Aggregates: nonNil(p.aggregates)})
			}))
			r.Put("/aggregates", f.withProvider(f.putAggregates))
			r.Get("/traits", f.withProvider(func(w http.ResponseWriter, _ *http.Request, p *fakeProvider) {
				writeJSON(w, http.StatusOK, Traits{Generation: p.rp.Generation, Traits: nonNil(p.traits)})
			}))
			r.Put("/traits", f.withProvider(f.putTraits))
			r.Delete("/traits", f.withProvider(func(w http.ResponseWriter, _ *http.Request, p *fakeProvider) {
				p.traits = nil
				p.rp.Generation++
				w.WriteHeader(http.StatusNoContent)
			}))
			r.Get("/usages", f.withProvider(func(w http.ResponseWriter, _ *http.Request, p *fakeProvider) {
				writeJSON(w, http.StatusOK, Usages{Generation: p.rp.Generation, Usages: p.usages})
			}))
		})
	})

	r.Get("/traits", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var wanted map[string]bool
		if name := req.URL.Query().Get("name"); strings.HasPrefix(name, "in:") {
			wanted = map[string]bool{}
			for _, n := range strings.Split(strings.TrimPrefix(name, "in:"), ",") {
				wanted[n] = true
			}
		}
		out := []string{}
		for name := range f.traits {
			if wanted == nil || wanted[name] {
				out = append(out, name)
			}
		}
		sort.Strings(out)
		writeJSON(w, http.StatusOK, map[string][]string{"traits": out})
	})
	r.Put("/traits/{name}", f.ensureNamed(func() map[string]bool { return f.traits }))
	r.Delete("/traits/{name}", f.deleteNamed(func() map[string]bool { return f.traits }))

	r.Get("/resource_classes", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := []ResourceClass{}
		for name := range f.classes {
			out = append(out, ResourceClass{Name: name})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		writeJSON(w, http.StatusOK, map[string][]ResourceClass{"resource_classes": out})
	})
	r.Put("/resource_classes/{name}", f.ensureNamed(func() map[string]bool { return f.classes }))
	r.Delete("/resource_classes/{name}", f.deleteNamed(func() map[string]bool { return f.classes }))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakePlacement) setBumps(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bumps = n
}

func (f *fakePlacement) bumpsLeft() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bumps
}

func (f *fakePlacement) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func (f *fakePlacement) lastHeaders() http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.headers
}

func (f *fakePlacement) providerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.providers)
}

func (f *fakePlacement) setUsage(providerUUID, class string, used int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.providers[providerUUID].usages[class] = used
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	body := map[string]interface{}{
		"errors": []map[string]interface{}{{
			"status": status,
			"title":  http.StatusText(status),
			"detail": detail,
			"code":   code,
		}},
	}
	writeJSON(w, status, body)
}

func (f *fakePlacement) withProvider(h func(http.ResponseWriter, *http.Request, *fakeProvider)) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		p, ok := f.providers[chi.URLParam(req, "uuid")]
		if !ok {
			writeError(w, http.StatusNotFound, "placement.undefined_code", "No resource provider with uuid "+chi.URLParam(req, "uuid")+" found")
			return
		}
		h(w, req, p)
	}
}

// checkGeneration rejects a stale generation, simulating concurrent writers
// while bumps is positive.
func (f *fakePlacement) checkGeneration(w http.ResponseWriter, p *fakeProvider, generation int) bool {
	if f.bumps > 0 {
		f.bumps--
		p.rp.Generation++
	}
	if generation != p.rp.Generation {
		writeError(w, http.StatusConflict, concurrentUpdateCode, "resource provider generation conflict")
		return false
	}
	p.rp.Generation++
	return true
}

func (f *fakePlacement) createProvider(w http.ResponseWriter, req *http.Request) {
	var body providerBody
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "", err.Error())
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.providers {
		if p.rp.Name == body.Name || p.rp.UUID == body.UUID {
			writeError(w, http.StatusConflict, "placement.duplicate_name", "Conflicting resource provider "+body.Name+" already exists.")
			return
		}
	}
	rp := ResourceProvider{UUID: body.UUID, Name: body.Name, ParentProviderUUID: body.ParentProviderUUID, RootProviderUUID: body.UUID}
	if parent, ok := f.providers[body.ParentProviderUUID]; ok {
		rp.RootProviderUUID = parent.rp.RootProviderUUID
	}
	f.providers[rp.UUID] = &fakeProvider{rp: rp, inventories: map[string]Inventory{}, usages: map[string]int{}}
	writeJSON(w, http.StatusOK, rp)
}

func (f *fakePlacement) listProviders(w http.ResponseWriter, req *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := req.URL.Query()
	out := []ResourceProvider{}
	for _, p := range f.providers {
		if name := q.Get("name"); name != "" && p.rp.Name != name {
			continue
		}
		if id := q.Get("in_tree"); id != "" && p.rp.RootProviderUUID != f.rootOf(id) {
			continue
		}
		out = append(out, p.rp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	writeJSON(w, http.StatusOK, map[string][]ResourceProvider{"resource_providers": out})
}

func (f *fakePlacement) rootOf(id string) string {
	if p, ok := f.providers[id]; ok {
		return p.rp.RootProviderUUID
	}
	return ""
}

func (f *fakePlacement) updateProvider(w http.ResponseWriter, req *http.Request, p *fakeProvider) {
	var body providerBody
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "", err.Error())
		return
	}
	p.rp.Name = body.Name
	p.rp.ParentProviderUUID = body.ParentProviderUUID
	p.rp.Generation++
	writeJSON(w, http.StatusOK, p.rp)
}

func (f *fakePlacement) deleteProvider(w http.ResponseWriter, req *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := chi.URLParam(req, "uuid")
	if _, ok := f.providers[id]; !ok {
		writeError(w, http.StatusNotFound, "", "not found")
		return
	}
	delete(f.providers, id)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakePlacement) putInventories(w http.ResponseWriter, req *http.Request, p *fakeProvider) {
	var body Inventories
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "", err.Error())
		return
	}
	if !f.checkGeneration(w, p, body.Generation) {
		return
	}
	p.inventories = body.Inventories
	writeJSON(w, http.StatusOK, Inventories{Generation: p.rp.Generation, Inventories: p.inventories})
}

func (f *fakePlacement) putInventory(w http.ResponseWriter, req *http.Request, p *fakeProvider) {
	var body inventoryBody
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "", err.Error())
		return
	}
	if !f.checkGeneration(w, p, body.Generation) {
		return
	}
	p.inventories[chi.URLParam(req, "class")] = body.Inventory
	writeJSON(w, http.StatusOK, inventoryBody{Generation: p.rp.Generation, Inventory: body.Inventory})
}

func (f *fakePlacement) putAggregates(w http.ResponseWriter, req *http.Request, p *fakeProvider) {
	var body Aggregates
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "", err.Error())
		return
	}
	if !f.checkGeneration(w, p, body.Generation) {
		return
	}
	p.aggregates = body.Aggregates
	writeJSON(w, http.StatusOK, Aggregates{Generation: p.rp.Generation, Aggregates: p.aggregates})
}

func (f *fakePlacement) putTraits(w http.ResponseWriter, req *http.Request, p *fakeProvider) {
	var body Traits
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "", err.Error())
		return
	}
	for _, trait := range body.Traits {
		if !f.traits[trait] {
			writeError(w, http.StatusBadRequest, "", "No such trait(s): "+trait)
			return
		}
	}
	if !f.checkGeneration(w, p, body.Generation) {
		return
	}
	p.traits = body.Traits
	writeJSON(w, http.StatusOK, Traits{Generation: p.rp.Generation, Traits: p.traits})
}

func (f *fakePlacement) ensureNamed(set func() map[string]bool) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		name := chi.URLParam(req, "name")
		if set()[name] {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		set()[name] = true
		w.WriteHeader(http.StatusCreated)
	}
}

func (f *fakePlacement) deleteNamed(set func() map[string]bool) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		name := chi.URLParam(req, "name")
		if !set()[name] {
			writeError(w, http.StatusNotFound, "", "No such "+name)
			return
		}
		delete(set(), name)
		w.WriteHeader(http.StatusNoContent)
	}
}
