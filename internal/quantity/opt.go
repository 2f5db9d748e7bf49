package quantity

import (
	"database/sql"
	"math"
	"strconv"
)

// Opt is a numeric value that may be undefined. The zero value is missing.
type Opt[T ~float64] struct {
	v  T
	ok bool
}

// Some wraps a value. NaN and infinities are stored as missing.
func Some[T ~float64](v T) Opt[T] {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Opt[T]{}
	}
	return Opt[T]{v: v, ok: true}
}

// None returns a missing value.
func None[T ~float64]() Opt[T] {
	return Opt[T]{}
}

// Get returns the value and whether it is defined.
func (o Opt[T]) Get() (T, bool) {
	return o.v, o.ok
}

// Valid reports whether the value is defined.
func (o Opt[T]) Valid() bool {
	return o.ok
}

// Or returns the value, or def when missing.
func (o Opt[T]) Or(def T) T {
	if !o.ok {
		return def
	}
	return o.v
}

// Format renders the value with prec decimals; missing renders as "".
func (o Opt[T]) Format(prec int) string {
	if !o.ok {
		return ""
	}
	return strconv.FormatFloat(float64(o.v), 'f', prec, 64)
}

// Null converts to a nullable SQL value.
func (o Opt[T]) Null() sql.NullFloat64 {
	return sql.NullFloat64{Float64: float64(o.v), Valid: o.ok}
}

// FromNull is the inverse of Null.
func FromNull[T ~float64](n sql.NullFloat64) Opt[T] {
	if !n.Valid {
		return None[T]()
	}
	return Some(T(n.Float64))
}

// Map applies f to a defined value.
func Map[T, U ~float64](o Opt[T], f func(T) U) Opt[U] {
	v, ok := o.Get()
	if !ok {
		return None[U]()
	}
	return Some(f(v))
}

// Map2 applies f when both values are defined.
func Map2[T, U, V ~float64](a Opt[T], b Opt[U], f func(T, U) V) Opt[V] {
	av, ok := a.Get()
	if !ok {
		return None[V]()
	}
	bv, ok := b.Get()
	if !ok {
		return None[V]()
	}
	return Some(f(av, bv))
}

// Div divides num by den, missing when den is zero or either side is missing.
func Div[T, U, V ~float64](num Opt[T], den Opt[U]) Opt[V] {
	d, ok := den.Get()
	if !ok || d == 0 {
		return None[V]()
	}
	n, ok := num.Get()
	if !ok {
		return None[V]()
	}
	return Some(V(float64(n) / float64(d)))
}

// Min returns the smaller defined value; missing if either is missing.
func Min[T ~float64](a, b Opt[T]) Opt[T] {
	return Map2(a, b, func(x, y T) T {
		if y < x {
			return y
		}
		return x
	})
}

// Values collects the defined values, skipping missing ones.
func Values[T ~float64](opts []Opt[T]) []float64 {
	out := make([]float64, 0, len(opts))
	for _, o := range opts {
		if v, ok := o.Get(); ok {
			out = append(out, float64(v))
		}
	}
	return out
}
