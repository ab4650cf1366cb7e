package main

import (
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/danielgtaylor/exhandler"
	"github.com/danielgtaylor/exhandler/adapters/exchi"
	"github.com/danielgtaylor/exhandler/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/text/language"
)

// ClassWidgetGone marks widgets which existed but were deleted.
var ClassWidgetGone = exhandler.NewClass("demo.WidgetGone", exhandler.ClassException)

// WidgetGoneError is returned for deleted widgets.
type WidgetGoneError struct {
	ID int
}

func (e *WidgetGoneError) Error() string { return "widget " + strconv.Itoa(e.ID) + " is gone" }

func (e *WidgetGoneError) Class() *exhandler.Class { return ClassWidgetGone }

var demoMessages = exhandler.NewCatalog().
	Set(language.Und, "demo.WidgetGone.title", "Widget Gone").
	Set(language.Und, "demo.WidgetGone.detail", "Widget {ex.id} was deleted.").
	Set(language.Und, "demo.WidgetGone.instance", "{req.path}").
	Set(language.German, "demo.WidgetGone.detail", "Widget {ex.id} wurde gelöscht.")

var registry = prometheus.NewRegistry()

// Widget is created through the API.
type Widget struct {
	ID    int    `json:"id"`
	Name  string `json:"name" validate:"required,max=20"`
	Color string `json:"color" validate:"omitempty,oneof=red green blue"`
	Count int    `json:"count" validate:"gte=0,lte=100"`
}

type widgetStore struct {
	mu       sync.Mutex
	next     int
	widgets  map[int]*Widget
	deleted  map[int]bool
	validate *validator.Validate
	trans    ut.Translator
}

func newWidgetStore() *widgetStore {
	english := en.New()
	trans, _ := ut.New(english, english).GetTranslator("en")
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = entranslations.RegisterDefaultTranslations(validate, trans)

	return &widgetStore{
		next:     1,
		widgets:  map[int]*Widget{},
		deleted:  map[int]bool{},
		validate: validate,
		trans:    trans,
	}
}

func (s *widgetStore) id(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &exhandler.TypeMismatchError{Property: "id", Value: raw, RequiredType: "int", Err: err}
	}
	return id, nil
}

func (s *widgetStore) get(w http.ResponseWriter, r *http.Request) error {
	id, err := s.id(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	widget, ok := s.widgets[id]
	gone := s.deleted[id]
	s.mu.Unlock()

	if gone {
		return &WidgetGoneError{ID: id}
	}
	if !ok {
		return exhandler.NewNoRouteError(r)
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(widget)
}

func (s *widgetStore) create(w http.ResponseWriter, r *http.Request) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && ct != "application/json" {
		return &exhandler.UnsupportedMediaTypeError{ContentType: ct, Supported: []string{"application/json"}}
	}

	var widget Widget
	if err := json.NewDecoder(r.Body).Decode(&widget); err != nil {
		return &exhandler.BodyNotReadableError{Err: err}
	}
	if err := s.validate.Struct(&widget); err != nil {
		return exhandler.NewValidationError(err, s.trans)
	}

	s.mu.Lock()
	widget.ID = s.next
	s.next++
	s.widgets[widget.ID] = &widget
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	return json.NewEncoder(w).Encode(&widget)
}

func (s *widgetStore) delete(w http.ResponseWriter, r *http.Request) error {
	id, err := s.id(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.widgets[id]; !ok {
		return exhandler.NewNoRouteError(r)
	}
	delete(s.widgets, id)
	s.deleted[id] = true
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func newRouter(resolver *exhandler.Resolver) http.Handler {
	store := newWidgetStore()

	r := chi.NewMux()
	r.Use(middleware.DefaultChain(resolver))
	exchi.Register(r, resolver)

	r.Get("/widgets/{id}", exchi.Wrap(resolver, store.get))
	r.Post("/widgets", exchi.Wrap(resolver, store.create))
	r.Delete("/widgets/{id}", exchi.Wrap(resolver, store.delete))
	r.Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("demo panic")
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return r
}
