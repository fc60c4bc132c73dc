package geo

import "testing"

func TestHaversineMeters_ZeroDistance(t *testing.T) {
    d := HaversineMeters(10, 20, 10, 20)
    if d < 0 || d > 1e-6 {
        t.Fatalf("zero distance expected ~0, got %v", d)
    }
}

func TestHaversineMeters_KnownDistance(t *testing.T) {
    // One degree of latitude is roughly 111.2 km.
    d := HaversineKm(9.0, 38.7, 10.0, 38.7)
    if d < 110 || d > 112 {
        t.Fatalf("one degree latitude expected ~111 km, got %v", d)
    }
}

func TestEstimateETAMinutes(t *testing.T) {
    if got := EstimateETAMinutes(20, 40); got != 30 {
        t.Fatalf("EstimateETAMinutes(20, 40) = %d, want 30", got)
    }
    if got := EstimateETAMinutes(10, 0); got != -1 {
        t.Fatalf("zero speed should return -1, got %d", got)
    }
}
