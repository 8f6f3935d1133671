package dbus

// Pair2..Pair5 are the plain value types a Tuple2..Tuple5 marker loads
// into and stores from — D-Bus STRUCT has no field names on the wire,
// so these are positional like the original's tuple-of-markers
// convention.
type Pair2[A, B any] struct {
	F0 A
	F1 B
}

type Pair3[A, B, C any] struct {
	F0 A
	F1 B
	F2 C
}

type Pair4[A, B, C, D any] struct {
	F0 A
	F1 B
	F2 C
	F3 D
}

type Pair5[A, B, C, D, E any] struct {
	F0 A
	F1 B
	F2 C
	F3 D
	F4 E
}

// Tuple2 is the Marker for a 2-field STRUCT. Every D-Bus struct is
// 8-byte aligned regardless of its fields (§6), matching the teacher's
// header-struct handling in header.go.
type Tuple2[A, B any, MA Marker[A], MB Marker[B]] struct{}

func (Tuple2[A, B, MA, MB]) alignment() uint32 { return 8 }

func (Tuple2[A, B, MA, MB]) writeSignature(b *SignatureBuilder) error {
	if err := b.OpenStruct(); err != nil {
		return err
	}
	var ma MA
	var mb MB
	if err := ma.writeSignature(b); err != nil {
		return err
	}
	if err := mb.writeSignature(b); err != nil {
		return err
	}
	return b.CloseStruct()
}

func (Tuple2[A, B, MA, MB]) load(r *Body) (Pair2[A, B], error) {
	var zero Pair2[A, B]
	var ma MA
	var mb MB
	if err := r.align(ma.alignment()); err != nil {
		return zero, err
	}
	a, err := ma.load(r)
	if err != nil {
		return zero, err
	}
	if err := r.align(mb.alignment()); err != nil {
		return zero, err
	}
	b, err := mb.load(r)
	if err != nil {
		return zero, err
	}
	return Pair2[A, B]{F0: a, F1: b}, nil
}

func (Tuple2[A, B, MA, MB]) store(w *BodyBuf, v Pair2[A, B]) error {
	var ma MA
	var mb MB
	w.buf.Align(ma.alignment())
	if err := ma.store(w, v.F0); err != nil {
		return err
	}
	w.buf.Align(mb.alignment())
	return mb.store(w, v.F1)
}

// Tuple3 is the Marker for a 3-field STRUCT.
type Tuple3[A, B, C any, MA Marker[A], MB Marker[B], MC Marker[C]] struct{}

func (Tuple3[A, B, C, MA, MB, MC]) alignment() uint32 { return 8 }

func (Tuple3[A, B, C, MA, MB, MC]) writeSignature(b *SignatureBuilder) error {
	if err := b.OpenStruct(); err != nil {
		return err
	}
	var ma MA
	var mb MB
	var mc MC
	for _, err := range []error{ma.writeSignature(b), mb.writeSignature(b), mc.writeSignature(b)} {
		if err != nil {
			return err
		}
	}
	return b.CloseStruct()
}

func (Tuple3[A, B, C, MA, MB, MC]) load(r *Body) (Pair3[A, B, C], error) {
	var zero Pair3[A, B, C]
	var ma MA
	var mb MB
	var mc MC
	if err := r.align(ma.alignment()); err != nil {
		return zero, err
	}
	a, err := ma.load(r)
	if err != nil {
		return zero, err
	}
	if err := r.align(mb.alignment()); err != nil {
		return zero, err
	}
	b, err := mb.load(r)
	if err != nil {
		return zero, err
	}
	if err := r.align(mc.alignment()); err != nil {
		return zero, err
	}
	c, err := mc.load(r)
	if err != nil {
		return zero, err
	}
	return Pair3[A, B, C]{F0: a, F1: b, F2: c}, nil
}

func (Tuple3[A, B, C, MA, MB, MC]) store(w *BodyBuf, v Pair3[A, B, C]) error {
	var ma MA
	var mb MB
	var mc MC
	w.buf.Align(ma.alignment())
	if err := ma.store(w, v.F0); err != nil {
		return err
	}
	w.buf.Align(mb.alignment())
	if err := mb.store(w, v.F1); err != nil {
		return err
	}
	w.buf.Align(mc.alignment())
	return mc.store(w, v.F2)
}

// Tuple4 is the Marker for a 4-field STRUCT.
type Tuple4[A, B, C, D any, MA Marker[A], MB Marker[B], MC Marker[C], MD Marker[D]] struct{}

func (Tuple4[A, B, C, D, MA, MB, MC, MD]) alignment() uint32 { return 8 }

func (Tuple4[A, B, C, D, MA, MB, MC, MD]) writeSignature(b *SignatureBuilder) error {
	if err := b.OpenStruct(); err != nil {
		return err
	}
	var ma MA
	var mb MB
	var mc MC
	var md MD
	for _, err := range []error{ma.writeSignature(b), mb.writeSignature(b), mc.writeSignature(b), md.writeSignature(b)} {
		if err != nil {
			return err
		}
	}
	return b.CloseStruct()
}

func (Tuple4[A, B, C, D, MA, MB, MC, MD]) load(r *Body) (Pair4[A, B, C, D], error) {
	var zero Pair4[A, B, C, D]
	var ma MA
	var mb MB
	var mc MC
	var md MD
	if err := r.align(ma.alignment()); err != nil {
		return zero, err
	}
	a, err := ma.load(r)
	if err != nil {
		return zero, err
	}
	if err := r.align(mb.alignment()); err != nil {
		return zero, err
	}
	b, err := mb.load(r)
	if err != nil {
		return zero, err
	}
	if err := r.align(mc.alignment()); err != nil {
		return zero, err
	}
	c, err := mc.load(r)
	if err != nil {
		return zero, err
	}
	if err := r.align(md.alignment()); err != nil {
		return zero, err
	}
	d, err := md.load(r)
	if err != nil {
		return zero, err
	}
	return Pair4[A, B, C, D]{F0: a, F1: b, F2: c, F3: d}, nil
}

func (Tuple4[A, B, C, D, MA, MB, MC, MD]) store(w *BodyBuf, v Pair4[A, B, C, D]) error {
	var ma MA
	var mb MB
	var mc MC
	var md MD
	w.buf.Align(ma.alignment())
	if err := ma.store(w, v.F0); err != nil {
		return err
	}
	w.buf.Align(mb.alignment())
	if err := mb.store(w, v.F1); err != nil {
		return err
	}
	w.buf.Align(mc.alignment())
	if err := mc.store(w, v.F2); err != nil {
		return err
	}
	w.buf.Align(md.alignment())
	return md.store(w, v.F3)
}

// Tuple5 is the Marker for a 5-field STRUCT.
type Tuple5[A, B, C, D, E any, MA Marker[A], MB Marker[B], MC Marker[C], MD Marker[D], ME Marker[E]] struct{}

func (Tuple5[A, B, C, D, E, MA, MB, MC, MD, ME]) alignment() uint32 { return 8 }

func (Tuple5[A, B, C, D, E, MA, MB, MC, MD, ME]) writeSignature(b *SignatureBuilder) error {
	if err := b.OpenStruct(); err != nil {
		return err
	}
	var ma MA
	var mb MB
	var mc MC
	var md MD
	var me ME
	for _, err := range []error{ma.writeSignature(b), mb.writeSignature(b), mc.writeSignature(b), md.writeSignature(b), me.writeSignature(b)} {
		if err != nil {
			return err
		}
	}
	return b.CloseStruct()
}

func (Tuple5[A, B, C, D, E, MA, MB, MC, MD, ME]) load(r *Body) (Pair5[A, B, C, D, E], error) {
	var zero Pair5[A, B, C, D, E]
	var ma MA
	var mb MB
	var mc MC
	var md MD
	var me ME
	if err := r.align(ma.alignment()); err != nil {
		return zero, err
	}
	a, err := ma.load(r)
	if err != nil {
		return zero, err
	}
	if err := r.align(mb.alignment()); err != nil {
		return zero, err
	}
	b, err := mb.load(r)
	if err != nil {
		return zero, err
	}
	if err := r.align(mc.alignment()); err != nil {
		return zero, err
	}
	c, err := mc.load(r)
	if err != nil {
		return zero, err
	}
	if err := r.align(md.alignment()); err != nil {
		return zero, err
	}
	d, err := md.load(r)
	if err != nil {
		return zero, err
	}
	if err := r.align(me.alignment()); err != nil {
		return zero, err
	}
	e, err := me.load(r)
	if err != nil {
		return zero, err
	}
	return Pair5[A, B, C, D, E]{F0: a, F1: b, F2: c, F3: d, F4: e}, nil
}

func (Tuple5[A, B, C, D, E, MA, MB, MC, MD, ME]) store(w *BodyBuf, v Pair5[A, B, C, D, E]) error {
	var ma MA
	var mb MB
	var mc MC
	var md MD
	var me ME
	w.buf.Align(ma.alignment())
	if err := ma.store(w, v.F0); err != nil {
		return err
	}
	w.buf.Align(mb.alignment())
	if err := mb.store(w, v.F1); err != nil {
		return err
	}
	w.buf.Align(mc.alignment())
	if err := mc.store(w, v.F2); err != nil {
		return err
	}
	w.buf.Align(md.alignment())
	if err := md.store(w, v.F3); err != nil {
		return err
	}
	w.buf.Align(me.alignment())
	return me.store(w, v.F4)
}

// LoadStruct reads a struct using Tuple marker T, aligning first.
func LoadStruct[P any, T Marker[P]](r *Body) (P, error) {
	return Load[P, T](r)
}

// StoreStruct writes a struct using Tuple marker T.
func StoreStruct[P any, T Marker[P]](w *BodyBuf, v P) error {
	return Store[P, T](w, v)
}
