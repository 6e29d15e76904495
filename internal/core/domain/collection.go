package domain

import (
	"math"
	"sort"
)

// DistanceMetric is the similarity function a collection ranks by.
type DistanceMetric string

// Supported distance metrics.
const (
	DistanceCosine    DistanceMetric = "cosine"
	DistanceDot       DistanceMetric = "dot"
	DistanceEuclidean DistanceMetric = "euclid"
)

// IsValid returns true if the metric is recognised.
func (d DistanceMetric) IsValid() bool {
	switch d {
	case DistanceCosine, DistanceDot, DistanceEuclidean:
		return true
	default:
		return false
	}
}

// CollectionStatus is the health of a collection as reported by its backend.
type CollectionStatus string

// Collection statuses.
const (
	CollectionGreen  CollectionStatus = "green"
	CollectionYellow CollectionStatus = "yellow"
	CollectionRed    CollectionStatus = "red"
)

// Collection is a named, dimension-typed partition of the vector index.
type Collection struct {
	Name       string           `json:"name"`
	Dimension  int              `json:"vector_dimension"`
	Distance   DistanceMetric   `json:"distance_metric"`
	PointCount int              `json:"point_count"`
	Status     CollectionStatus `json:"status"`
}

// CheckDimension fails fast when a vector does not fit the collection.
func (c *Collection) CheckDimension(vector []float32) error {
	if len(vector) != c.Dimension {
		return &DimensionMismatchError{Collection: c.Name, Expected: c.Dimension, Got: len(vector)}
	}
	return nil
}

// HealthStatus summarises backend reachability.
type HealthStatus struct {
	Status           string            `json:"status"`
	CollectionsCount int               `json:"collections_count"`
	Components       map[string]string `json:"components"`
}

// Health states.
const (
	HealthOK       = "healthy"
	HealthDegraded = "degraded"
)

// Similarity scores b against a under metric. Higher is always better:
// euclidean distance d is reported as 1/(1+d). Cosine against a zero
// vector scores 0.
func Similarity(metric DistanceMetric, a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	switch metric {
	case DistanceDot:
		return dot(a, b)
	case DistanceEuclidean:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return 1 / (1 + math.Sqrt(sum))
	default:
		na, nb := math.Sqrt(dot(a, a)), math.Sqrt(dot(b, b))
		if na == 0 || nb == 0 {
			return 0
		}
		return dot(a, b) / (na * nb)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// SortHits orders hits by descending score, then ascending ID.
func SortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
}
