package exhandler

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Builder configures and builds a Resolver. A builder is not safe for
// concurrent use; the resolver it builds is.
//
//	resolver, err := exhandler.NewBuilder().
//		AddMessageHandler(ErrWidgetGone, http.StatusGone).
//		MessageSource(myCatalog).
//		DefaultContentType("application/json").
//		Build()
type Builder struct {
	handlers        map[*Class]ExceptionHandler
	types           map[reflect.Type]*Class
	defaultType     string
	formats         map[string]Format
	messages        MessageSource
	interpolator    Interpolator
	interpolatorSet bool
	logger          *zap.Logger
	registerer      prometheus.Registerer
	withDefaults    bool
	withMessages    bool
	policy          UnmatchedPolicy
	unwrap          bool
	qualified       bool
	verbose         bool
	errs            []error
}

// NewBuilder returns a builder with the default handlers and messages
// enabled and unmatched errors skipped.
func NewBuilder() *Builder {
	return &Builder{
		handlers:     map[*Class]ExceptionHandler{},
		types:        map[reflect.Type]*Class{},
		withDefaults: true,
		withMessages: true,
		qualified:    true,
	}
}

// AddHandler registers a handler for the class. It also serves all
// descendants of the class without a more specific registration. A later
// registration for the same class replaces an earlier one.
func (b *Builder) AddHandler(class *Class, handler ExceptionHandler) *Builder {
	if class == nil || handler == nil {
		b.errs = append(b.errs, errors.New("class and handler must not be nil"))
		return b
	}
	b.handlers[class] = handler
	return b
}

// AddMessageHandler registers a MessageHandler responding with status.
func (b *Builder) AddMessageHandler(class *Class, status int) *Builder {
	return b.AddHandler(class, NewMessageHandler(class, status))
}

// BindType assigns a class to errors of the prototype's dynamic type which do
// not implement Classifier, e.g. errors from other libraries.
//
//	b.BindType(&strconv.NumError{}, ClassTypeMismatch)
func (b *Builder) BindType(prototype error, class *Class) *Builder {
	if prototype == nil || class == nil {
		b.errs = append(b.errs, errors.New("prototype and class must not be nil"))
		return b
	}
	b.types[reflect.TypeOf(prototype)] = class
	return b
}

// DefaultContentType sets the content type used when the client does not
// state a preference or when its preference cannot be produced.
func (b *Builder) DefaultContentType(ct string) *Builder {
	b.defaultType = ct
	return b
}

// Formats replaces the formats used to encode response bodies, keyed by the
// media type each produces.
func (b *Builder) Formats(formats map[string]Format) *Builder {
	b.formats = formats
	return b
}

// MessageSource sets the source of message templates. Unless disabled with
// WithDefaultMessages(false), the bundled messages are used for keys it
// does not have.
func (b *Builder) MessageSource(src MessageSource) *Builder {
	b.messages = src
	return b
}

// Interpolator sets the template interpolator. Nil disables interpolation.
// The default is an ExprInterpolator.
func (b *Builder) Interpolator(i Interpolator) *Builder {
	b.interpolator = i
	b.interpolatorSet = true
	return b
}

// Logger sets the logger for handled errors. Defaults to `zap.L()`.
func (b *Builder) Logger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// Metrics registers problem response counters with the registerer.
func (b *Builder) Metrics(r prometheus.Registerer) *Builder {
	b.registerer = r
	return b
}

// WithDefaultHandlers toggles the built-in handlers for the framework error
// classes. They are registered before the provided handlers, which can
// therefore override any of them.
func (b *Builder) WithDefaultHandlers(enabled bool) *Builder {
	b.withDefaults = enabled
	return b
}

// WithDefaultMessages toggles chaining the bundled messages behind the
// configured message source.
func (b *Builder) WithDefaultMessages(enabled bool) *Builder {
	b.withMessages = enabled
	return b
}

// Unmatched sets the policy for errors without a matching handler.
func (b *Builder) Unmatched(p UnmatchedPolicy) *Builder {
	b.policy = p
	return b
}

// UnwrapCauses enables replacing an error without a specific handler by the
// first cause in its `Unwrap` chain which has one.
func (b *Builder) UnwrapCauses(enabled bool) *Builder {
	b.unwrap = enabled
	return b
}

// QualifiedNames selects fully-qualified (default) or simple class names as
// message key prefixes.
func (b *Builder) QualifiedNames(enabled bool) *Builder {
	b.qualified = enabled
	return b
}

// VerboseLogging logs client errors at debug level with the error instead of
// at info level without it.
func (b *Builder) VerboseLogging(enabled bool) *Builder {
	b.verbose = enabled
	return b
}

// Build finalizes the configuration into a read-only Resolver.
func (b *Builder) Build() (*Resolver, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	logger := loggerOrGlobal(b.logger)

	messages := b.messages
	if b.withMessages {
		if messages != nil {
			messages = Chain{messages, DefaultMessages()}
		} else {
			messages = DefaultMessages()
		}
	}

	interpolator := b.interpolator
	if !b.interpolatorSet {
		interpolator = NewExprInterpolator(logger)
	} else if interpolator == nil {
		interpolator = NoOpInterpolator{}
	}

	registry := &Registry{
		types:  make(map[reflect.Type]*Class, len(b.types)),
		policy: b.policy,
		unwrap: b.unwrap,
	}
	for t, c := range b.types {
		registry.types[t] = c
	}

	settings := Settings{
		Messages:       messages,
		Interpolator:   interpolator,
		Logger:         logger,
		QualifiedNames: b.qualified,
		Verbose:        b.verbose,
		ClassOf:        registry.ClassOf,
	}

	all := map[*Class]ExceptionHandler{}
	if b.withDefaults {
		for c, h := range defaultHandlers() {
			all[c] = h
		}
	}
	for c, h := range b.handlers {
		all[c] = h
	}

	registry.fallback = configure(NewStatusHandler(500), settings)
	registry.handlers = make(map[*Class]ExceptionHandler, len(all))
	for c, h := range all {
		registry.handlers[c] = configure(h, settings)
	}

	formats := b.formats
	if formats == nil {
		formats = DefaultFormats
	}
	defaultType := b.defaultType
	if defaultType == "" {
		defaultType = DefaultContentType
	}
	if _, ok := formats[defaultType]; !ok {
		return nil, fmt.Errorf("%w: no format for default content type %s", ErrUnknownFormat, defaultType)
	}

	r := &Resolver{
		registry:   registry,
		serializer: newSerializer(formats, defaultType),
		logger:     logger,
	}

	if b.registerer != nil {
		m, err := newMetrics(b.registerer)
		if err != nil {
			return nil, err
		}
		r.metrics = m
	}

	logger.Debug("Built exception resolver",
		zap.Int("handlers", registry.Len()),
		zap.Stringer("unmatched", registry.policy),
		zap.String("default_content_type", defaultType),
	)
	return r, nil
}

func configure(h ExceptionHandler, s Settings) ExceptionHandler {
	if c, ok := h.(Configurable); ok {
		return c.Configure(s)
	}
	return h
}
