package wam

import (
	"math"
	"math/big"

	"github.com/brunokim/prolog-engine/atoms"
	"github.com/brunokim/prolog-engine/logic"
)

// ---- Arithmetic evaluation
//
// Integers have arbitrary precision; dividing two integers yields an exact
// result, integral or rational. Any float operand makes the whole
// expression float.

type numKind int

const (
	intKind numKind = iota
	ratKind
	floatKind
)

func kindOf(c Constant) numKind {
	switch c.(type) {
	case WInt:
		return intKind
	case WRat:
		return ratKind
	case WFloat:
		return floatKind
	}
	panic("kindOf: not a number")
}

func maxKind(k1, k2 numKind) numKind {
	if k1 > k2 {
		return k1
	}
	return k2
}

// normalizeRat demotes an integral rational to an integer.
func normalizeRat(r *big.Rat) Constant {
	if r.IsInt() {
		return WInt{Value: new(big.Int).Set(r.Num())}
	}
	return WRat{Value: r}
}

func toFloat(c Constant) float64 {
	switch t := c.(type) {
	case WInt:
		f, _ := new(big.Float).SetInt(t.Value).Float64()
		return f
	case WRat:
		f, _ := t.Value.Float64()
		return f
	case WFloat:
		return float64(t)
	}
	panic("toFloat: not a number")
}

func toRat(c Constant) *big.Rat {
	switch t := c.(type) {
	case WInt:
		return new(big.Rat).SetInt(t.Value)
	case WRat:
		return t.Value
	}
	panic("toRat: not exact")
}

// evalArith evaluates an arithmetic expression cell into a number constant.
func (m *Machine) evalArith(c Cell) (Constant, error) {
	c = deref(c)
	switch t := c.(type) {
	case WInt, WFloat, WRat:
		return t.(Constant), nil
	case *Ref:
		return nil, m.throwTerm(instantiationError("is/2"))
	case WAtom:
		switch atoms.Atom(t).String() {
		case "pi":
			return WFloat(math.Pi), nil
		case "e":
			return WFloat(math.E), nil
		case "inf", "infinite":
			return WFloat(math.Inf(1)), nil
		case "nan":
			return WFloat(math.NaN()), nil
		case "epsilon":
			return WFloat(2.220446049250313e-16), nil
		case "max_tagged_integer":
			return WInt{Value: big.NewInt(math.MaxInt64)}, nil
		}
		return nil, m.evaluableError(Functor{Name: atoms.Atom(t), Arity: 0})
	case *Struct:
		args := make([]Constant, len(t.Args))
		for i, arg := range t.Args {
			val, err := m.evalArith(arg)
			if err != nil {
				return nil, err
			}
			args[i] = val
		}
		switch len(args) {
		case 1:
			return m.evalUnary(t.Name.String(), args[0], t.Functor())
		case 2:
			return m.evalBinary(t.Name.String(), args[0], args[1], t.Functor())
		}
		return nil, m.evaluableError(t.Functor())
	default:
		return nil, m.throwTerm(typeError("evaluable", fromCell(c), "is/2"))
	}
}

func (m *Machine) evaluableError(f Functor) error {
	ind := logic.NewComp("/", logic.Atom{Name: f.Name.String()}, logic.NewInt(int64(f.Arity)))
	return m.throwTerm(errorTerm(logic.NewComp("type_error", logic.Atom{Name: "evaluable"}, ind), "is/2"))
}

func (m *Machine) zeroDivisor() error {
	return m.throwTerm(evaluationError("zero_divisor", "is/2"))
}

func (m *Machine) wantInteger(c Constant) (*big.Int, error) {
	if i, ok := c.(WInt); ok {
		return i.Value, nil
	}
	return nil, m.throwTerm(typeError("integer", fromCell(c), "is/2"))
}

func (m *Machine) evalUnary(op string, x Constant, f Functor) (Constant, error) {
	switch op {
	case "-":
		switch t := x.(type) {
		case WInt:
			return WInt{Value: new(big.Int).Neg(t.Value)}, nil
		case WRat:
			return normalizeRat(new(big.Rat).Neg(t.Value)), nil
		case WFloat:
			return WFloat(-t), nil
		}
	case "+":
		return x, nil
	case "abs":
		switch t := x.(type) {
		case WInt:
			return WInt{Value: new(big.Int).Abs(t.Value)}, nil
		case WRat:
			return normalizeRat(new(big.Rat).Abs(t.Value)), nil
		case WFloat:
			return WFloat(math.Abs(float64(t))), nil
		}
	case "sign":
		switch t := x.(type) {
		case WInt:
			return WInt{Value: big.NewInt(int64(t.Value.Sign()))}, nil
		case WRat:
			return WInt{Value: big.NewInt(int64(t.Value.Sign()))}, nil
		case WFloat:
			switch {
			case t > 0:
				return WFloat(1), nil
			case t < 0:
				return WFloat(-1), nil
			}
			return WFloat(0), nil
		}
	case "float":
		return WFloat(toFloat(x)), nil
	case "truncate":
		return truncateToInt(x), nil
	case "floor":
		return roundToInt(x, math.Floor), nil
	case "ceiling":
		return roundToInt(x, math.Ceil), nil
	case "round":
		return roundToInt(x, math.Round), nil
	case "float_integer_part":
		return WFloat(math.Trunc(toFloat(x))), nil
	case "float_fractional_part":
		v := toFloat(x)
		return WFloat(v - math.Trunc(v)), nil
	case "sqrt":
		return WFloat(math.Sqrt(toFloat(x))), nil
	case "sin":
		return WFloat(math.Sin(toFloat(x))), nil
	case "cos":
		return WFloat(math.Cos(toFloat(x))), nil
	case "tan":
		return WFloat(math.Tan(toFloat(x))), nil
	case "asin":
		return WFloat(math.Asin(toFloat(x))), nil
	case "acos":
		return WFloat(math.Acos(toFloat(x))), nil
	case "atan":
		return WFloat(math.Atan(toFloat(x))), nil
	case "exp":
		return WFloat(math.Exp(toFloat(x))), nil
	case "log":
		v := toFloat(x)
		if v <= 0 {
			return nil, m.throwTerm(evaluationError("undefined", "is/2"))
		}
		return WFloat(math.Log(v)), nil
	case "msb":
		i, err := m.wantInteger(x)
		if err != nil {
			return nil, err
		}
		if i.Sign() <= 0 {
			return nil, m.throwTerm(evaluationError("undefined", "is/2"))
		}
		return WInt{Value: big.NewInt(int64(i.BitLen() - 1))}, nil
	case `\`:
		i, err := m.wantInteger(x)
		if err != nil {
			return nil, err
		}
		return WInt{Value: new(big.Int).Not(i)}, nil
	}
	return nil, m.evaluableError(f)
}

func truncateToInt(x Constant) Constant {
	switch t := x.(type) {
	case WInt:
		return t
	case WRat:
		return WInt{Value: new(big.Int).Quo(t.Value.Num(), t.Value.Denom())}
	case WFloat:
		i, _ := big.NewFloat(math.Trunc(float64(t))).Int(nil)
		return WInt{Value: i}
	}
	panic("truncateToInt: not a number")
}

func roundToInt(x Constant, round func(float64) float64) Constant {
	switch t := x.(type) {
	case WInt:
		return t
	case WRat:
		f, _ := t.Value.Float64()
		i, _ := big.NewFloat(round(f)).Int(nil)
		return WInt{Value: i}
	case WFloat:
		i, _ := big.NewFloat(round(float64(t))).Int(nil)
		return WInt{Value: i}
	}
	panic("roundToInt: not a number")
}

func (m *Machine) evalBinary(op string, x, y Constant, f Functor) (Constant, error) {
	switch op {
	case "+", "-", "*":
		if maxKind(kindOf(x), kindOf(y)) == floatKind {
			a, b := toFloat(x), toFloat(y)
			switch op {
			case "+":
				return WFloat(a + b), nil
			case "-":
				return WFloat(a - b), nil
			default:
				return WFloat(a * b), nil
			}
		}
		a, b := toRat(x), toRat(y)
		r := new(big.Rat)
		switch op {
		case "+":
			r.Add(a, b)
		case "-":
			r.Sub(a, b)
		default:
			r.Mul(a, b)
		}
		return normalizeRat(r), nil
	case "/":
		if maxKind(kindOf(x), kindOf(y)) == floatKind {
			b := toFloat(y)
			if b == 0 {
				return nil, m.zeroDivisor()
			}
			return WFloat(toFloat(x) / b), nil
		}
		a, b := toRat(x), toRat(y)
		if b.Sign() == 0 {
			return nil, m.zeroDivisor()
		}
		return normalizeRat(new(big.Rat).Quo(a, b)), nil
	case "rdiv":
		a, b := toRat(x), toRat(y)
		if b.Sign() == 0 {
			return nil, m.zeroDivisor()
		}
		return normalizeRat(new(big.Rat).Quo(a, b)), nil
	case "//":
		a, err := m.wantInteger(x)
		if err != nil {
			return nil, err
		}
		b, err := m.wantInteger(y)
		if err != nil {
			return nil, err
		}
		if b.Sign() == 0 {
			return nil, m.zeroDivisor()
		}
		return WInt{Value: new(big.Int).Quo(a, b)}, nil
	case "mod":
		a, err := m.wantInteger(x)
		if err != nil {
			return nil, err
		}
		b, err := m.wantInteger(y)
		if err != nil {
			return nil, err
		}
		if b.Sign() == 0 {
			return nil, m.zeroDivisor()
		}
		// Result takes the divisor's sign.
		r := new(big.Int).Mod(a, b)
		if r.Sign() != 0 && b.Sign() < 0 {
			r.Add(r, b)
		}
		return WInt{Value: r}, nil
	case "rem":
		a, err := m.wantInteger(x)
		if err != nil {
			return nil, err
		}
		b, err := m.wantInteger(y)
		if err != nil {
			return nil, err
		}
		if b.Sign() == 0 {
			return nil, m.zeroDivisor()
		}
		return WInt{Value: new(big.Int).Rem(a, b)}, nil
	case "min":
		if numCellValue(x).Cmp(numCellValue(y)) <= 0 {
			return x, nil
		}
		return y, nil
	case "max":
		if numCellValue(x).Cmp(numCellValue(y)) >= 0 {
			return x, nil
		}
		return y, nil
	case "**":
		return WFloat(math.Pow(toFloat(x), toFloat(y))), nil
	case "^":
		a, aInt := x.(WInt)
		b, bInt := y.(WInt)
		if aInt && bInt {
			if b.Value.Sign() < 0 {
				if !a.Value.IsInt64() || (a.Value.Int64() != 1 && a.Value.Int64() != -1) {
					return nil, m.throwTerm(typeError("float", fromCell(y), "is/2"))
				}
				r := new(big.Rat).SetFrac(big.NewInt(1), a.Value)
				return normalizeRat(r), nil
			}
			if !b.Value.IsInt64() {
				return nil, m.throwTerm(resourceError("memory", "is/2"))
			}
			return WInt{Value: new(big.Int).Exp(a.Value, b.Value, nil)}, nil
		}
		return WFloat(math.Pow(toFloat(x), toFloat(y))), nil
	case ">>", "<<", `/\`, `\/`, "xor":
		a, err := m.wantInteger(x)
		if err != nil {
			return nil, err
		}
		b, err := m.wantInteger(y)
		if err != nil {
			return nil, err
		}
		switch op {
		case ">>", "<<":
			if b.Sign() < 0 {
				return nil, m.throwTerm(evaluationError("undefined", "is/2"))
			}
			if !b.IsUint64() || b.Uint64() > math.MaxUint32 {
				if op == "<<" {
					return nil, m.throwTerm(resourceError("memory", "is/2"))
				}
				// A right shift past every bit leaves only the sign.
				if a.Sign() < 0 {
					return WInt{Value: big.NewInt(-1)}, nil
				}
				return WInt{Value: big.NewInt(0)}, nil
			}
			n := uint(b.Uint64())
			if op == ">>" {
				return WInt{Value: new(big.Int).Rsh(a, n)}, nil
			}
			return WInt{Value: new(big.Int).Lsh(a, n)}, nil
		case `/\`:
			return WInt{Value: new(big.Int).And(a, b)}, nil
		case `\/`:
			return WInt{Value: new(big.Int).Or(a, b)}, nil
		default:
			return WInt{Value: new(big.Int).Xor(a, b)}, nil
		}
	case "atan", "atan2":
		return WFloat(math.Atan2(toFloat(x), toFloat(y))), nil
	case "gcd":
		a, err := m.wantInteger(x)
		if err != nil {
			return nil, err
		}
		b, err := m.wantInteger(y)
		if err != nil {
			return nil, err
		}
		return WInt{Value: new(big.Int).GCD(nil, nil, new(big.Int).Abs(a), new(big.Int).Abs(b))}, nil
	}
	return nil, m.evaluableError(f)
}

// compareArith returns the numeric order of two evaluated expressions.
func (m *Machine) compareArith(c1, c2 Cell) (ordering, error) {
	x, err := m.evalArith(c1)
	if err != nil {
		return equal, err
	}
	y, err := m.evalArith(c2)
	if err != nil {
		return equal, err
	}
	if kindOf(x) == floatKind || kindOf(y) == floatKind {
		a, b := toFloat(x), toFloat(y)
		switch {
		case a < b:
			return less, nil
		case a > b:
			return more, nil
		}
		return equal, nil
	}
	switch toRat(x).Cmp(toRat(y)) {
	case -1:
		return less, nil
	case 1:
		return more, nil
	}
	return equal, nil
}
