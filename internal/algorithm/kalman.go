package algorithm

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/jengzang/car-location-go/internal/models"
	"github.com/jengzang/car-location-go/internal/spatial"
)

// Kalman runs a constant-velocity Kalman filter over the session's fixes.
// State is east/north position and velocity in metres, relative to the first
// fix of the session. Whenever the filter cannot produce a finite estimate the
// observed fix is emitted instead, keeping Process total.
type Kalman struct {
	opts Options

	origin   *models.RawLocationPoint
	lastTime int64
	x        *mat.VecDense // e, n, ve, vn
	p        *mat.Dense
}

// NewKalman creates a Kalman filter
func NewKalman(opts Options) *Kalman {
	return &Kalman{opts: opts}
}

// ID returns the algorithm identifier
func (a *Kalman) ID() string { return KalmanID }

// Process feeds each valid fix to the filter and emits its estimate
func (a *Kalman) Process(batch []models.RawLocationPoint) []models.ProcessedLocationPoint {
	out := make([]models.ProcessedLocationPoint, 0, len(batch))
	for _, p := range batch {
		if !p.Valid() {
			continue
		}
		out = append(out, a.step(p))
	}
	return out
}

func (a *Kalman) accuracy() float64 {
	if a.opts.HorizontalAccuracy > 0 {
		return a.opts.HorizontalAccuracy
	}
	return DefaultOptions().HorizontalAccuracy
}

func (a *Kalman) step(p models.RawLocationPoint) models.ProcessedLocationPoint {
	observed := models.ProcessedLocationPoint{
		Timestamp:   p.Timestamp,
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		SpeedMps:    p.SpeedMps,
		AlgorithmID: a.ID(),
	}

	if a.origin == nil {
		a.reset(p)
		return observed
	}

	east, north := spatial.ToLocal(a.origin.Latitude, a.origin.Longitude, p.Latitude, p.Longitude)
	if p.Timestamp > a.lastTime {
		a.predict(float64(p.Timestamp-a.lastTime) / 1000.0)
		a.lastTime = p.Timestamp
	}
	if !a.update(east, north) {
		a.reset(p)
		return observed
	}

	lat, lon := spatial.FromLocal(a.origin.Latitude, a.origin.Longitude, a.x.AtVec(0), a.x.AtVec(1))
	if !finite(lat) || !finite(lon) {
		a.reset(p)
		return observed
	}
	observed.Latitude = lat
	observed.Longitude = lon
	if p.SpeedMps != nil {
		observed.SpeedMps = models.Float64(math.Hypot(a.x.AtVec(2), a.x.AtVec(3)))
	}
	return observed
}

// reset anchors the filter at p with zero velocity
func (a *Kalman) reset(p models.RawLocationPoint) {
	fix := p
	a.origin = &fix
	a.lastTime = p.Timestamp
	a.x = mat.NewVecDense(4, nil)

	acc := a.accuracy()
	v := math.Max(a.opts.DistancePerSecond, 1)
	a.p = mat.NewDense(4, 4, []float64{
		acc * acc, 0, 0, 0,
		0, acc * acc, 0, 0,
		0, 0, v * v, 0,
		0, 0, 0, v * v,
	})
}

func (a *Kalman) predict(dt float64) {
	f := mat.NewDense(4, 4, []float64{
		1, 0, dt, 0,
		0, 1, 0, dt,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	qPos := a.opts.DistancePerSecond * a.opts.DistancePerSecond * dt
	qVel := a.opts.SpeedPerSecond * a.opts.SpeedPerSecond * dt
	q := mat.NewDiagDense(4, []float64{qPos, qPos, qVel, qVel})

	var x mat.VecDense
	x.MulVec(f, a.x)

	var fp, p mat.Dense
	fp.Mul(f, a.p)
	p.Mul(&fp, f.T())
	p.Add(&p, q)

	a.x = &x
	a.p = &p
}

// update folds in a position measurement. It reports false when the
// innovation covariance cannot be inverted.
func (a *Kalman) update(east, north float64) bool {
	h := mat.NewDense(2, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
	})
	acc := a.accuracy()
	r := mat.NewDiagDense(2, []float64{acc * acc, acc * acc})

	var hx, y mat.VecDense
	hx.MulVec(h, a.x)
	y.SubVec(mat.NewVecDense(2, []float64{east, north}), &hx)

	var ph, s, sInv, k mat.Dense
	ph.Mul(a.p, h.T())
	s.Mul(h, &ph)
	s.Add(&s, r)
	if err := sInv.Inverse(&s); err != nil {
		return false
	}
	k.Mul(&ph, &sInv)

	var ky, x mat.VecDense
	ky.MulVec(&k, &y)
	x.AddVec(a.x, &ky)

	var kh, ikh, p mat.Dense
	kh.Mul(&k, h)
	ikh.Sub(identity4, &kh)
	p.Mul(&ikh, a.p)

	a.x = &x
	a.p = &p
	return true
}

var identity4 = mat.NewDiagDense(4, []float64{1, 1, 1, 1})

func (*Kalman) variant() {}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
