package trajectory

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"
)

const (
	controlVectorScale = 1.2
	minSamplesPerSpan  = 16
	maxSamplesPerSpan  = 4000
	sampleSpacing      = 0.01 // m
)

// span is one cubic hermite piece: p(s) = a0 + a1 s + a2 s^2 + a3 s^3, s in [0,1].
type span struct {
	a0, a1, a2, a3 r2.Point
}

func hermite(p0, p1, m0, m1 r2.Point) span {
	return span{
		a0: p0,
		a1: m0,
		a2: p0.Mul(-3).Sub(m0.Mul(2)).Add(p1.Mul(3)).Sub(m1),
		a3: p0.Mul(2).Add(m0).Sub(p1.Mul(2)).Add(m1),
	}
}

func (s span) position(t float64) r2.Point {
	return s.a0.Add(s.a1.Mul(t)).Add(s.a2.Mul(t * t)).Add(s.a3.Mul(t * t * t))
}

func (s span) velocity(t float64) r2.Point {
	return s.a1.Add(s.a2.Mul(2 * t)).Add(s.a3.Mul(3 * t * t))
}

func (s span) acceleration(t float64) r2.Point {
	return s.a2.Mul(2).Add(s.a3.Mul(6 * t))
}

// approxLength sums chords over a coarse sampling.
func (s span) approxLength() float64 {
	length := 0.0
	prev := s.position(0)
	for i := 1; i <= minSamplesPerSpan; i++ {
		next := s.position(float64(i) / minSamplesPerSpan)
		length += next.Sub(prev).Norm()
		prev = next
	}
	return length
}

// pathPoint is a pose along the path with its curvature in rad/m.
type pathPoint struct {
	pose      Pose
	curvature float64
}

// sample returns the pose and curvature at t. fallback is used as heading
// where the derivative vanishes.
func (s span) sample(t, fallback float64) pathPoint {
	pos := s.position(t)
	d := s.velocity(t)
	dd := s.acceleration(t)

	speedSq := d.Dot(d)
	if speedSq < 1e-12 {
		return pathPoint{pose: PoseAt(pos, fallback)}
	}
	return pathPoint{
		pose:      PoseAt(pos, math.Atan2(d.Y, d.X)),
		curvature: d.Cross(dd) / math.Pow(speedSq, 1.5),
	}
}

// buildSpans fits a C2 continuous cubic spline through start, the interior
// waypoints and end. Headings at the ends are honored, interior tangents are
// solved from the continuity equations.
func buildSpans(start Pose, interior []r2.Point, end Pose) ([]span, error) {
	knots := make([]r2.Point, 0, len(interior)+2)
	knots = append(knots, start.Translation())
	knots = append(knots, interior...)
	knots = append(knots, end.Translation())

	startScale := controlVectorScale * knots[1].Sub(knots[0]).Norm()
	endScale := controlVectorScale * knots[len(knots)-1].Sub(knots[len(knots)-2]).Norm()
	startTangent := r2.Point{X: math.Cos(start.Heading), Y: math.Sin(start.Heading)}.Mul(startScale)
	endTangent := r2.Point{X: math.Cos(end.Heading), Y: math.Sin(end.Heading)}.Mul(endScale)

	tangents := make([]r2.Point, len(knots))
	tangents[0] = startTangent
	tangents[len(knots)-1] = endTangent

	if n := len(interior); n > 0 {
		// m[i-1] + 4 m[i] + m[i+1] = 3 (p[i+1] - p[i-1])
		a := mat.NewDense(n, n, nil)
		bx := mat.NewVecDense(n, nil)
		by := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			a.Set(i, i, 4)
			if i > 0 {
				a.Set(i, i-1, 1)
			}
			if i < n-1 {
				a.Set(i, i+1, 1)
			}
			rhs := knots[i+2].Sub(knots[i]).Mul(3)
			if i == 0 {
				rhs = rhs.Sub(startTangent)
			}
			if i == n-1 {
				rhs = rhs.Sub(endTangent)
			}
			bx.SetVec(i, rhs.X)
			by.SetVec(i, rhs.Y)
		}

		var mx, my mat.VecDense
		if err := mx.SolveVec(a, bx); err != nil {
			return nil, fmt.Errorf("%w: solving spline tangents: %w", ErrInfeasibleTrajectory, err)
		}
		if err := my.SolveVec(a, by); err != nil {
			return nil, fmt.Errorf("%w: solving spline tangents: %w", ErrInfeasibleTrajectory, err)
		}
		for i := 0; i < n; i++ {
			tangents[i+1] = r2.Point{X: mx.AtVec(i), Y: my.AtVec(i)}
		}
	}

	spans := make([]span, 0, len(knots)-1)
	for i := 0; i+1 < len(knots); i++ {
		spans = append(spans, hermite(knots[i], knots[i+1], tangents[i], tangents[i+1]))
	}
	return spans, nil
}

// samplePath walks every span at roughly sampleSpacing and drops repeated points.
func samplePath(spans []span, startHeading float64) []pathPoint {
	points := []pathPoint{spans[0].sample(0, startHeading)}
	for _, s := range spans {
		steps := int(math.Ceil(s.approxLength() / sampleSpacing))
		if steps < minSamplesPerSpan {
			steps = minSamplesPerSpan
		} else if steps > maxSamplesPerSpan {
			steps = maxSamplesPerSpan
		}
		for i := 1; i <= steps; i++ {
			last := points[len(points)-1]
			point := s.sample(float64(i)/float64(steps), last.pose.Heading)
			if point.pose.Distance(last.pose) < 1e-9 {
				continue
			}
			points = append(points, point)
		}
	}
	return points
}
