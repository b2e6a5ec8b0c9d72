// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package algorithms

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// tensor is a trainable parameter with its gradient and Adam moments.
type tensor struct {
	val  []float64
	grad []float64
	m    []float64
	v    []float64
}

func newTensor(n int) *tensor {
	return &tensor{
		val:  make([]float64, n),
		grad: make([]float64, n),
		m:    make([]float64, n),
		v:    make([]float64, n),
	}
}

// adam implements Adam with bias correction.
type adam struct {
	lr, beta1, beta2, eps float64
	step                  int
	bc1, bc2              float64
}

func newAdam(lr float64) *adam {
	return &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-8}
}

// begin advances the step counter. Call once per batch before updates.
func (a *adam) begin() {
	a.step++
	a.bc1 = 1 - math.Pow(a.beta1, float64(a.step))
	a.bc2 = 1 - math.Pow(a.beta2, float64(a.step))
}

func (a *adam) update(val, grad, m, v []float64) {
	stepSize := a.lr / a.bc1
	sqrtBC2 := math.Sqrt(a.bc2)
	for k, g := range grad {
		m[k] = a.beta1*m[k] + (1-a.beta1)*g
		v[k] = a.beta2*v[k] + (1-a.beta2)*g*g
		val[k] -= stepSize * m[k] / (math.Sqrt(v[k])/sqrtBC2 + a.eps)
	}
}

func (a *adam) updateTensor(t *tensor) {
	a.update(t.val, t.grad, t.m, t.v)
}

// ========== Embedding ==========

// embedding is a lookup table updated lazily: only rows touched by the
// current batch receive an Adam step.
type embedding struct {
	t       *tensor
	rows    int
	dim     int
	touched []int
	mark    []bool
}

func newEmbedding(rows, dim int, rng *rand.Rand) *embedding {
	e := &embedding{t: newTensor(rows * dim), rows: rows, dim: dim, mark: make([]bool, rows)}
	for k := range e.t.val {
		e.t.val[k] = rng.NormFloat64() * 0.01
	}
	return e
}

func (e *embedding) row(i int) []float64 {
	return e.t.val[i*e.dim : (i+1)*e.dim]
}

func (e *embedding) accumulate(i int, g []float64) {
	if !e.mark[i] {
		e.mark[i] = true
		e.touched = append(e.touched, i)
	}
	floats.Add(e.t.grad[i*e.dim:(i+1)*e.dim], g)
}

func (e *embedding) step(opt *adam) {
	for _, i := range e.touched {
		lo, hi := i*e.dim, (i+1)*e.dim
		opt.update(e.t.val[lo:hi], e.t.grad[lo:hi], e.t.m[lo:hi], e.t.v[lo:hi])
		clear(e.t.grad[lo:hi])
		e.mark[i] = false
	}
	e.touched = e.touched[:0]
}

// ========== Linear ==========

// linear computes Z = X*W + b with W stored in x out.
type linear struct {
	in, out int
	w, b    *tensor
	x       *mat.Dense
}

func newLinear(in, out int, rng *rand.Rand) *linear {
	l := &linear{in: in, out: out, w: newTensor(in * out), b: newTensor(out)}
	bound := math.Sqrt(6 / float64(in+out))
	for k := range l.w.val {
		l.w.val[k] = (rng.Float64()*2 - 1) * bound
	}
	return l
}

func (l *linear) weights() *mat.Dense {
	return mat.NewDense(l.in, l.out, l.w.val)
}

func (l *linear) forward(x *mat.Dense, train bool) *mat.Dense {
	r, _ := x.Dims()
	z := mat.NewDense(r, l.out, nil)
	z.Mul(x, l.weights())
	for i := 0; i < r; i++ {
		floats.Add(z.RawRowView(i), l.b.val)
	}
	if train {
		l.x = x
	}
	return z
}

func (l *linear) backward(dz *mat.Dense) *mat.Dense {
	gw := mat.NewDense(l.in, l.out, l.w.grad)
	gw.Mul(l.x.T(), dz)

	clear(l.b.grad)
	r, _ := dz.Dims()
	for i := 0; i < r; i++ {
		floats.Add(l.b.grad, dz.RawRowView(i))
	}

	dx := mat.NewDense(r, l.in, nil)
	dx.Mul(dz, l.weights().T())
	return dx
}

func (l *linear) step(opt *adam) {
	opt.updateTensor(l.w)
	opt.updateTensor(l.b)
}

// ========== Batch normalization ==========

const batchNormEps = 1e-5

type batchNorm struct {
	features    int
	momentum    float64
	gamma, beta *tensor
	runMean     []float64
	runVar      []float64

	xhat   *mat.Dense
	invStd []float64
}

func newBatchNorm(features int) *batchNorm {
	bn := &batchNorm{
		features: features,
		momentum: 0.1,
		gamma:    newTensor(features),
		beta:     newTensor(features),
		runMean:  make([]float64, features),
		runVar:   make([]float64, features),
	}
	for j := 0; j < features; j++ {
		bn.gamma.val[j] = 1
		bn.runVar[j] = 1
	}
	return bn
}

func (bn *batchNorm) forward(x *mat.Dense, train bool) *mat.Dense {
	r, c := x.Dims()
	y := mat.NewDense(r, c, nil)

	if !train {
		for j := 0; j < c; j++ {
			inv := 1 / math.Sqrt(bn.runVar[j]+batchNormEps)
			for i := 0; i < r; i++ {
				y.Set(i, j, bn.gamma.val[j]*(x.At(i, j)-bn.runMean[j])*inv+bn.beta.val[j])
			}
		}
		return y
	}

	bn.xhat = mat.NewDense(r, c, nil)
	bn.invStd = make([]float64, c)
	n := float64(r)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, x)
		mean := floats.Sum(col) / n
		var variance float64
		for _, v := range col {
			d := v - mean
			variance += d * d
		}
		variance /= n

		inv := 1 / math.Sqrt(variance+batchNormEps)
		bn.invStd[j] = inv
		for i, v := range col {
			xh := (v - mean) * inv
			bn.xhat.Set(i, j, xh)
			y.Set(i, j, bn.gamma.val[j]*xh+bn.beta.val[j])
		}

		bn.runMean[j] = (1-bn.momentum)*bn.runMean[j] + bn.momentum*mean
		bn.runVar[j] = (1-bn.momentum)*bn.runVar[j] + bn.momentum*variance*n/(n-1)
	}
	return y
}

func (bn *batchNorm) backward(dy *mat.Dense) *mat.Dense {
	r, c := dy.Dims()
	dx := mat.NewDense(r, c, nil)
	n := float64(r)

	for j := 0; j < c; j++ {
		var sumDy, sumDyXhat float64
		for i := 0; i < r; i++ {
			g := dy.At(i, j)
			sumDy += g
			sumDyXhat += g * bn.xhat.At(i, j)
		}
		bn.gamma.grad[j] = sumDyXhat
		bn.beta.grad[j] = sumDy

		// dxhat = dy * gamma, so its sums scale by gamma as well.
		gamma := bn.gamma.val[j]
		scale := gamma * bn.invStd[j] / n
		for i := 0; i < r; i++ {
			dx.Set(i, j, scale*(n*dy.At(i, j)-sumDy-bn.xhat.At(i, j)*sumDyXhat))
		}
	}
	return dx
}

func (bn *batchNorm) step(opt *adam) {
	opt.updateTensor(bn.gamma)
	opt.updateTensor(bn.beta)
}

// ========== Activation and dropout ==========

type relu struct {
	mask *mat.Dense
}

func (a *relu) forward(z *mat.Dense, train bool) *mat.Dense {
	r, c := z.Dims()
	y := mat.NewDense(r, c, nil)
	var mask *mat.Dense
	if train {
		mask = mat.NewDense(r, c, nil)
	}
	for i := 0; i < r; i++ {
		src, dst := z.RawRowView(i), y.RawRowView(i)
		for j, v := range src {
			if v > 0 {
				dst[j] = v
				if train {
					mask.Set(i, j, 1)
				}
			}
		}
	}
	if train {
		a.mask = mask
	}
	return y
}

func (a *relu) backward(dy *mat.Dense) *mat.Dense {
	var dz mat.Dense
	dz.MulElem(dy, a.mask)
	return &dz
}

// dropout is inverted dropout: kept units are scaled by 1/(1-p) during training.
type dropout struct {
	p    float64
	mask *mat.Dense
}

func (d *dropout) forward(x *mat.Dense, train bool, rng *rand.Rand) *mat.Dense {
	if !train || d.p == 0 {
		return x
	}
	r, c := x.Dims()
	d.mask = mat.NewDense(r, c, nil)
	keep := 1 / (1 - d.p)
	for i := 0; i < r; i++ {
		row := d.mask.RawRowView(i)
		for j := range row {
			if rng.Float64() >= d.p {
				row[j] = keep
			}
		}
	}
	var y mat.Dense
	y.MulElem(x, d.mask)
	return &y
}

func (d *dropout) backward(dy *mat.Dense) *mat.Dense {
	if d.p == 0 {
		return dy
	}
	var dx mat.Dense
	dx.MulElem(dy, d.mask)
	return &dx
}

// hiddenLayer is Linear -> ReLU -> BatchNorm -> Dropout.
type hiddenLayer struct {
	lin  *linear
	act  relu
	bn   *batchNorm
	drop dropout
}

func (h *hiddenLayer) forward(x *mat.Dense, train bool, rng *rand.Rand) *mat.Dense {
	y := h.lin.forward(x, train)
	y = h.act.forward(y, train)
	y = h.bn.forward(y, train)
	return h.drop.forward(y, train, rng)
}

func (h *hiddenLayer) backward(dy *mat.Dense) *mat.Dense {
	d := h.drop.backward(dy)
	d = h.bn.backward(d)
	d = h.act.backward(d)
	return h.lin.backward(d)
}

func (h *hiddenLayer) step(opt *adam) {
	h.lin.step(opt)
	h.bn.step(opt)
}

// ========== Network ==========

// ncfNet is the GMF + MLP network of NeuralCF.
type ncfNet struct {
	gmfDim  int
	mlpHalf int

	gmfUser, gmfItem *embedding
	mlpUser, mlpItem *embedding
	hidden           []*hiddenLayer
	out              *linear
}

func newNCFNet(users, items int, cfg *NCFConfig, rng *rand.Rand) *ncfNet {
	n := &ncfNet{
		gmfDim:  cfg.EmbeddingDim,
		mlpHalf: cfg.Layers[0] / 2,
	}
	n.gmfUser = newEmbedding(users, n.gmfDim, rng)
	n.gmfItem = newEmbedding(items, n.gmfDim, rng)
	n.mlpUser = newEmbedding(users, n.mlpHalf, rng)
	n.mlpItem = newEmbedding(items, n.mlpHalf, rng)

	for l := 0; l+1 < len(cfg.Layers); l++ {
		n.hidden = append(n.hidden, &hiddenLayer{
			lin:  newLinear(cfg.Layers[l], cfg.Layers[l+1], rng),
			bn:   newBatchNorm(cfg.Layers[l+1]),
			drop: dropout{p: cfg.Dropout},
		})
	}
	n.out = newLinear(n.gmfDim+cfg.Layers[len(cfg.Layers)-1], 1, rng)
	return n
}

// forward scores (users[r], items[r]) pairs. With train unset it writes no
// state and is safe for concurrent use.
func (n *ncfNet) forward(users, items []int, train bool, rng *rand.Rand) []float64 {
	b := len(users)
	gmf := mat.NewDense(b, n.gmfDim, nil)
	x := mat.NewDense(b, 2*n.mlpHalf, nil)
	for r := 0; r < b; r++ {
		floats.MulTo(gmf.RawRowView(r), n.gmfUser.row(users[r]), n.gmfItem.row(items[r]))
		row := x.RawRowView(r)
		copy(row[:n.mlpHalf], n.mlpUser.row(users[r]))
		copy(row[n.mlpHalf:], n.mlpItem.row(items[r]))
	}

	h := x
	for _, layer := range n.hidden {
		h = layer.forward(h, train, rng)
	}

	_, hc := h.Dims()
	cat := mat.NewDense(b, n.gmfDim+hc, nil)
	for r := 0; r < b; r++ {
		row := cat.RawRowView(r)
		copy(row[:n.gmfDim], gmf.RawRowView(r))
		copy(row[n.gmfDim:], h.RawRowView(r))
	}

	z := n.out.forward(cat, train)
	return mat.Col(nil, 0, z)
}

// backward propagates dLoss/dOutput through the network cached by the last
// training forward pass and accumulates every gradient.
func (n *ncfNet) backward(users, items []int, dout []float64) {
	b := len(users)
	dcat := n.out.backward(mat.NewDense(b, 1, dout))

	_, cc := dcat.Dims()
	dh := mat.NewDense(b, cc-n.gmfDim, nil)
	grad := make([]float64, n.gmfDim)
	for r := 0; r < b; r++ {
		row := dcat.RawRowView(r)
		copy(dh.RawRowView(r), row[n.gmfDim:])

		dgmf := row[:n.gmfDim]
		floats.MulTo(grad, dgmf, n.gmfItem.row(items[r]))
		n.gmfUser.accumulate(users[r], grad)
		floats.MulTo(grad, dgmf, n.gmfUser.row(users[r]))
		n.gmfItem.accumulate(items[r], grad)
	}

	for l := len(n.hidden) - 1; l >= 0; l-- {
		dh = n.hidden[l].backward(dh)
	}

	for r := 0; r < b; r++ {
		row := dh.RawRowView(r)
		n.mlpUser.accumulate(users[r], row[:n.mlpHalf])
		n.mlpItem.accumulate(items[r], row[n.mlpHalf:])
	}
}

func (n *ncfNet) step(opt *adam) {
	opt.begin()
	n.gmfUser.step(opt)
	n.gmfItem.step(opt)
	n.mlpUser.step(opt)
	n.mlpItem.step(opt)
	for _, layer := range n.hidden {
		layer.step(opt)
	}
	n.out.step(opt)
}

// values returns every learned array, running statistics included, in a
// fixed order. The slices alias the live parameters.
func (n *ncfNet) values() [][]float64 {
	vals := [][]float64{n.gmfUser.t.val, n.gmfItem.t.val, n.mlpUser.t.val, n.mlpItem.t.val}
	for _, layer := range n.hidden {
		vals = append(vals,
			layer.lin.w.val, layer.lin.b.val,
			layer.bn.gamma.val, layer.bn.beta.val,
			layer.bn.runMean, layer.bn.runVar)
	}
	return append(vals, n.out.w.val, n.out.b.val)
}

func (n *ncfNet) snapshot() [][]float64 {
	live := n.values()
	out := make([][]float64, len(live))
	for k, v := range live {
		out[k] = make([]float64, len(v))
		copy(out[k], v)
	}
	return out
}

// load copies saved into the live parameters. It reports false on a shape mismatch.
func (n *ncfNet) load(saved [][]float64) bool {
	live := n.values()
	if len(saved) != len(live) {
		return false
	}
	for k := range live {
		if len(saved[k]) != len(live[k]) {
			return false
		}
	}
	for k := range live {
		copy(live[k], saved[k])
	}
	return true
}
