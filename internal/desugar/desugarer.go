package desugar

import (
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrMalformedRange marks a result carrying two lower bounds, which
	// means a rule produced a broken compound range.
	ErrMalformedRange = errors.New("malformed desugared range")
	// ErrUnknownRange is returned in strict mode for requirements no rule
	// handles and the target grammar cannot parse.
	ErrUnknownRange = errors.New("unrecognised version requirement")
)

const defaultCacheSize = 4096

var doubleLowerBound = regexp.MustCompile(`^>= *[0-9.]+ *>= *([0-9.]+) *< *([0-9.]+)$`)

// RangeError carries the requirement that failed to desugar.
type RangeError struct {
	Req    string
	Result string
	Err    error
}

func (e *RangeError) Error() string {
	if e.Result != "" {
		return fmt.Sprintf("%v: %q -> %q", e.Err, e.Req, e.Result)
	}
	return fmt.Sprintf("%v: %q", e.Err, e.Req)
}

func (e *RangeError) Unwrap() error {
	return e.Err
}

// Desugarer applies the rule table with memoisation and optional checks.
// It is safe for concurrent use.
type Desugarer struct {
	rules     []Rule
	memo      *lru.Cache[string, string]
	cacheSize int
	strict    bool
	check     bool
	logger    *log.Logger
}

// Option configures a Desugarer.
type Option func(*Desugarer)

// WithStrict rejects requirements that match no rule and do not parse as a
// target-grammar constraint.
func WithStrict(strict bool) Option {
	return func(d *Desugarer) {
		d.strict = strict
	}
}

// WithCheck toggles the double-lower-bound sanity check.
func WithCheck(check bool) Option {
	return func(d *Desugarer) {
		d.check = check
	}
}

// WithLogger sets the logger used for pass-through diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(d *Desugarer) {
		d.logger = l
	}
}

// WithCacheSize sets the number of memoised requirements.
func WithCacheSize(n int) Option {
	return func(d *Desugarer) {
		d.cacheSize = n
	}
}

// New creates a Desugarer over the default rules. The sanity check is on
// unless disabled with WithCheck(false).
func New(opts ...Option) (*Desugarer, error) {
	d := &Desugarer{
		rules:     defaultRules,
		cacheSize: defaultCacheSize,
		check:     true,
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(d)
	}

	memo, err := lru.New[string, string](d.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating desugar cache: %w", err)
	}
	d.memo = memo
	return d, nil
}

// Desugar translates req. Errors are either ErrMalformedRange or, in strict
// mode, ErrUnknownRange, wrapped in a *RangeError.
func (d *Desugarer) Desugar(req string) (string, error) {
	if out, ok := d.memo.Get(req); ok {
		return out, nil
	}

	out, r, matched := apply(d.rules, req)
	if d.check {
		checked := out
		if !matched {
			checked = normalize(req)
		}
		if doubleLowerBound.MatchString(checked) {
			return "", &RangeError{Req: req, Result: checked, Err: ErrMalformedRange}
		}
	}

	if matched {
		d.logger.Debug("desugared", "rule", r.Name, "req", req, "range", out)
	} else {
		if d.strict {
			if _, err := semver.NewConstraint(req); err != nil {
				return "", &RangeError{Req: req, Err: ErrUnknownRange}
			}
		}
		d.logger.Debug("requirement passed through", "req", req)
	}

	d.memo.Add(req, out)
	return out, nil
}

// Rules returns the rules in evaluation order.
func (d *Desugarer) Rules() []Rule {
	out := make([]Rule, len(d.rules))
	copy(out, d.rules)
	return out
}
