package colour

import (
	"fmt"
	"math"
	"math/rand"
)

// DefaultMaxIterations bounds the number of Lloyd refinement passes.
const DefaultMaxIterations = 100

// KMeans clusters a frequency ranking with weighted k-means.
// Every distinct colour is a single point weighted by its count, which gives
// the same centroids as repeating the colour count times.
type KMeans struct {
	maxIterations int
	seed          int64
}

// KMeansOption configures a KMeans.
type KMeansOption func(*KMeans)

// WithSeed sets the seed for k-means++ initialisation.
func WithSeed(seed int64) KMeansOption {
	return func(k *KMeans) {
		k.seed = seed
	}
}

// WithMaxIterations sets the maximum number of refinement iterations.
func WithMaxIterations(n int) KMeansOption {
	return func(k *KMeans) {
		if n > 0 {
			k.maxIterations = n
		}
	}
}

// NewKMeans creates a new KMeans with default settings.
func NewKMeans(opts ...KMeansOption) *KMeans {
	k := &KMeans{
		maxIterations: DefaultMaxIterations,
		seed:          1,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// point3D represents a point in normalised (0-1) RGB space.
type point3D struct {
	R, G, B float64
}

func toPoint(c RGB) point3D {
	return point3D{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

// distanceSq returns the squared Euclidean distance between two points.
func (p point3D) distanceSq(other point3D) float64 {
	dr := p.R - other.R
	dg := p.G - other.G
	db := p.B - other.B
	return dr*dr + dg*dg + db*db
}

// toRGB scales back to 8-bit channels, rounding and clamping each.
func (p point3D) toRGB() RGB {
	return RGB{R: clampChannel(p.R), G: clampChannel(p.G), B: clampChannel(p.B)}
}

func clampChannel(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v*255))))
}

// Cluster partitions the ranking into exactly k clusters. The returned
// clusters are in centroid index order and some may have no assignments.
// Every ranking entry appears in exactly one cluster, in ranking order.
func (km *KMeans) Cluster(ranking Ranking, k int) ([]Cluster, error) {
	if len(ranking) == 0 {
		return nil, ErrEmptyInput
	}
	if k < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidClusterCount, k)
	}

	points := make([]point3D, len(ranking))
	weights := make([]float64, len(ranking))
	for i, f := range ranking {
		points[i] = toPoint(f.Colour)
		weights[i] = float64(f.Count)
	}

	// #nosec G404 -- clustering needs reproducibility, not secrecy
	rng := rand.New(rand.NewSource(km.seed))
	centroids := initializeCentroidsKMeansPlusPlus(rng, points, weights, k)
	assignments := km.lloyd(points, weights, centroids)

	clusters := make([]Cluster, k)
	for i, c := range centroids {
		clusters[i] = Cluster{Centroid: c.toRGB(), Assignments: []Frequency{}}
	}
	for i, f := range ranking {
		a := assignments[i]
		clusters[a].Assignments = append(clusters[a].Assignments, f)
	}
	return clusters, nil
}

// lloyd refines centroids in place and returns the final assignment of
// each point.
func (km *KMeans) lloyd(points []point3D, weights []float64, centroids []point3D) []int {
	assignments := make([]int, len(points))
	for i := range assignments {
		assignments[i] = -1
	}

	for iter := 0; iter < km.maxIterations; iter++ {
		changed := 0
		for i, p := range points {
			nearest := findNearestCentroid(p, centroids)
			if assignments[i] != nearest {
				assignments[i] = nearest
				changed++
			}
		}
		if changed == 0 {
			break
		}
		recalculateCentroids(points, weights, assignments, centroids)
	}

	return assignments
}

// initializeCentroidsKMeansPlusPlus picks k starting centroids. The first is
// drawn with probability proportional to weight, each following one
// proportional to weight times squared distance to the nearest chosen
// centroid. Once every point coincides with a centroid the remainder
// duplicate the last pick.
func initializeCentroidsKMeansPlusPlus(rng *rand.Rand, points []point3D, weights []float64, k int) []point3D {
	centroids := make([]point3D, 0, k)
	centroids = append(centroids, points[pickWeighted(rng, weights)])

	nearest := make([]float64, len(points))
	for i, p := range points {
		nearest[i] = p.distanceSq(centroids[0])
	}

	scores := make([]float64, len(points))
	for len(centroids) < k {
		total := 0.0
		for i := range points {
			scores[i] = weights[i] * nearest[i]
			total += scores[i]
		}

		var next point3D
		if total == 0 {
			next = centroids[len(centroids)-1]
		} else {
			next = points[pickWeighted(rng, scores)]
		}
		centroids = append(centroids, next)

		for i, p := range points {
			if d := p.distanceSq(next); d < nearest[i] {
				nearest[i] = d
			}
		}
	}

	return centroids
}

// pickWeighted returns an index drawn with probability proportional to its
// weight. Zero-weight entries are never returned unless all are zero.
func pickWeighted(rng *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return rng.Intn(len(weights))
	}

	target := rng.Float64() * total
	cumulative := 0.0
	last := 0
	for i, w := range weights {
		if w == 0 {
			continue
		}
		cumulative += w
		last = i
		if cumulative > target {
			return i
		}
	}
	return last
}

// findNearestCentroid finds the index of the nearest centroid to a point.
// Ties go to the lowest index.
func findNearestCentroid(point point3D, centroids []point3D) int {
	minDist := math.MaxFloat64
	nearest := 0

	for i, centroid := range centroids {
		dist := point.distanceSq(centroid)
		if dist < minDist {
			minDist = dist
			nearest = i
		}
	}

	return nearest
}

// recalculateCentroids moves each centroid to the weighted mean of its
// points. A centroid with no points keeps its position.
func recalculateCentroids(points []point3D, weights []float64, assignments []int, centroids []point3D) {
	sums := make([]point3D, len(centroids))
	totals := make([]float64, len(centroids))

	for i, point := range points {
		cluster := assignments[i]
		w := weights[i]
		sums[cluster].R += point.R * w
		sums[cluster].G += point.G * w
		sums[cluster].B += point.B * w
		totals[cluster] += w
	}

	for i := range centroids {
		if totals[i] > 0 {
			centroids[i] = point3D{
				R: sums[i].R / totals[i],
				G: sums[i].G / totals[i],
				B: sums[i].B / totals[i],
			}
		}
	}
}
