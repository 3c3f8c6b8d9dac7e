// Package info computes entropy, mutual information and the
// redundancy/synergy/unique decomposition of mutual information over
// discrete joint distributions of one to three variables.
//
// For three variables the axes are read as (X, Y, Z) with Z the target:
// X and Y are the two sources whose information about Z is decomposed.
package info

import (
	"fmt"
	"math"

	"tipnet/domain/core"
)

// Quantity names, in reporting order.
const (
	NameHX       = "H(X)"
	NameHY       = "H(Y)"
	NameHXgivenY = "H(X|Y)"
	NameHYgivenX = "H(Y|X)"
	NameIXY      = "I(X;Y)"
	NameIXZ      = "I(X;Z)"
	NameIYZ      = "I(Y;Z)"
	NameIYZgX    = "I(Y,Z|X)"
	NameIXZgY    = "I(X,Z|Y)"
	NameII       = "II"
	NameITotal   = "Itotal"
	NameRMin     = "Rmin"
	NameISource  = "Isource"
	NameRMMI     = "RMMI"
	NameR        = "R(Z;Y,X)"
	NameS        = "S(Z;Y,X)"
	NameUXZ      = "U(Z,X)"
	NameUYZ      = "U(Z,Y)"
)

// Quantity is one named information value.
type Quantity struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type options struct {
	base    float64
	samples int
	alpha   float64
}

// Option configures New.
type Option func(*options)

// WithBase sets the logarithm base (default 2, i.e. bits).
func WithBase(base float64) Option {
	return func(o *options) { o.base = base }
}

// WithSignificance requests a G-test of I(X;Y) for a two-variable table
// estimated from n samples at level alpha.
func WithSignificance(n int, alpha float64) Option {
	return func(o *options) {
		o.samples = n
		o.alpha = alpha
	}
}

// Info holds every quantity defined for the table's dimensionality.
// Fields that do not apply stay zero.
type Info struct {
	Dims int
	Base float64

	HX, HY             float64
	HXgivenY, HYgivenX float64
	IXY                float64

	IXZ, IYZ         float64
	IYZgivenX        float64 // I(Y;Z|X)
	IXZgivenY        float64 // I(X;Z|Y)
	II, ITotal       float64
	RMMI, ISource    float64
	RMin, R, S       float64
	UXZ, UYZ         float64
	SignificanceDone bool
	MIPValue         float64
	MISignificant    bool
}

// New computes the information quantities of pdf.
func New(pdf *Table, opts ...Option) (*Info, error) {
	o := options{base: 2}
	for _, fn := range opts {
		fn(&o)
	}
	if o.base <= 0 || o.base == 1 {
		return nil, fmt.Errorf("invalid logarithm base %v", o.base)
	}
	if pdf == nil {
		return nil, fmt.Errorf("nil probability table")
	}
	if pdf.Dims() < 1 || pdf.Dims() > MaxDims {
		return nil, fmt.Errorf("%w: the number of variables should be 1..%d, got %d", core.ErrDimension, MaxDims, pdf.Dims())
	}

	in := &Info{Dims: pdf.Dims(), Base: o.base}
	switch in.Dims {
	case 1:
		in.HX = Entropy(pdf.Data(), o.base)
	case 2:
		in.compute2D(pdf)
		if o.samples > 0 {
			in.SignificanceDone = true
			df := (pdf.Marginal(0).Support() - 1) * (pdf.Marginal(1).Support() - 1)
			in.MIPValue = GTestPValue(in.IXY, o.base, o.samples, df)
			in.MISignificant = in.MIPValue <= o.alpha
		}
	case 3:
		if o.samples > 0 {
			return nil, fmt.Errorf("significance test is only defined for two variables")
		}
		in.compute3D(pdf)
	}
	return in, nil
}

func (in *Info) compute2D(pdf *Table) {
	px, py := pdf.Marginal(0), pdf.Marginal(1)

	in.HX = Entropy(px.Data(), in.Base)
	in.HY = Entropy(py.Data(), in.Base)
	in.HYgivenX = conditionalEntropy(px, pdf, in.Base)
	in.HXgivenY = conditionalEntropy(py, pdf.Transpose(), in.Base)
	in.IXY = mutualInformation(px, py, pdf, in.Base)
}

func (in *Info) compute3D(pdf *Table) {
	px, py, pz := pdf.Marginal(0), pdf.Marginal(1), pdf.Marginal(2)
	pxy, pyz, pxz := pdf.Marginal(0, 1), pdf.Marginal(1, 2), pdf.Marginal(0, 2)

	in.HX = Entropy(px.Data(), in.Base)
	in.HY = Entropy(py.Data(), in.Base)

	in.IXZ = mutualInformation(px, pz, pxz, in.Base)
	in.IYZ = mutualInformation(py, pz, pyz, in.Base)
	in.IXY = mutualInformation(px, py, pxy, in.Base)

	in.IYZgivenX = ConditionalMutualInformation(pdf, 0, in.Base)
	in.IXZgivenY = ConditionalMutualInformation(pdf, 1, in.Base)

	in.II = in.IYZgivenX - in.IYZ
	in.ITotal = in.II + in.IXZ + in.IYZ

	in.RMMI = math.Min(in.IXZ, in.IYZ)
	if h := math.Min(in.HX, in.HY); h > 0 {
		in.ISource = in.IXY / h
	}
	if in.II < 0 {
		in.RMin = -in.II
	}
	in.R = in.RMin + in.ISource*(in.RMMI-in.RMin)

	in.S = in.R + in.II
	in.UXZ = in.IXZ - in.R
	in.UYZ = in.IYZ - in.R
}

// All lists the quantities of this table's dimensionality in reporting order.
func (in *Info) All() []Quantity {
	switch in.Dims {
	case 1:
		return []Quantity{{NameHX, in.HX}}
	case 2:
		return []Quantity{
			{NameHX, in.HX}, {NameHY, in.HY},
			{NameHXgivenY, in.HXgivenY}, {NameHYgivenX, in.HYgivenX},
			{NameIXY, in.IXY},
		}
	default:
		return []Quantity{
			{NameHX, in.HX}, {NameHY, in.HY},
			{NameIXZ, in.IXZ}, {NameIYZ, in.IYZ}, {NameIXY, in.IXY},
			{NameIYZgX, in.IYZgivenX}, {NameIXZgY, in.IXZgivenY},
			{NameII, in.II}, {NameITotal, in.ITotal},
			{NameRMin, in.RMin}, {NameISource, in.ISource}, {NameRMMI, in.RMMI},
			{NameR, in.R}, {NameS, in.S},
			{NameUXZ, in.UXZ}, {NameUYZ, in.UYZ},
		}
	}
}

// Get looks a quantity up by name.
func (in *Info) Get(name string) (float64, bool) {
	for _, q := range in.All() {
		if q.Name == name {
			return q.Value, true
		}
	}
	return 0, false
}

// Entropy returns the Shannon entropy of a mass vector in the given base.
// The vector is normalized first; zero cells contribute nothing.
func Entropy(p []float64, base float64) float64 {
	total := 0.0
	for _, v := range p {
		total += v
	}
	if total <= 0 {
		return 0
	}
	h := 0.0
	for _, v := range p {
		if v > 0 {
			q := v / total
			h -= q * math.Log(q)
		}
	}
	return h / math.Log(base)
}

// conditionalEntropy computes H(Y|X) from p(x) and p(x,y).
func conditionalEntropy(px, pxy *Table, base float64) float64 {
	nx, ny := pxy.shape[0], pxy.shape[1]
	h := 0.0
	for x := 0; x < nx; x++ {
		mx := px.data[x]
		if mx <= 0 {
			continue
		}
		for y := 0; y < ny; y++ {
			j := pxy.data[x*ny+y]
			if j > 0 {
				h -= j * math.Log(j/mx)
			}
		}
	}
	return h / math.Log(base)
}

// mutualInformation computes I(X;Y) from the marginals and the joint table.
func mutualInformation(px, py, pxy *Table, base float64) float64 {
	nx, ny := pxy.shape[0], pxy.shape[1]
	mi := 0.0
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			j := pxy.data[x*ny+y]
			if j > 0 {
				mi += j * math.Log(j/(px.data[x]*py.data[y]))
			}
		}
	}
	return mi / math.Log(base)
}

// ConditionalMutualInformation computes the mutual information between the
// two axes of a three-axis table other than given, conditioned on given:
// given=0 yields I(Y;Z|X), given=1 yields I(X;Z|Y).
func ConditionalMutualInformation(pdf *Table, given int, base float64) float64 {
	if pdf.Dims() != 3 || (given != 0 && given != 1) {
		panic("info: conditional mutual information needs a three-axis table conditioned on axis 0 or 1")
	}
	nx, ny, nz := pdf.shape[0], pdf.shape[1], pdf.shape[2]
	pc := pdf.Marginal(given)
	pxy := pdf.Marginal(0, 1)
	pcz := pdf.Marginal(given, 2)

	cmi := 0.0
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			for z := 0; z < nz; z++ {
				p := pdf.data[(x*ny+y)*nz+z]
				if p <= 0 {
					continue
				}
				c := x
				if given == 1 {
					c = y
				}
				num := p * pc.data[c]
				den := pcz.data[c*nz+z] * pxy.data[x*ny+y]
				cmi += p * math.Log(num/den)
			}
		}
	}
	return cmi / math.Log(base)
}
