package core

import "testing"

func newTestHeader(minX, minY, minZ, maxX, maxY, maxZ float64) *Header {
	h := NewHeader()
	h.MinX, h.MinY, h.MinZ = minX, minY, minZ
	h.MaxX, h.MaxY, h.MaxZ = maxX, maxY, maxZ
	return h
}

func TestPointCloudCoordinatesSurviveRoundTrip(t *testing.T) {
	h := newTestHeader(0, 0, 0, 100, 100, 50)
	pc := NewPointCloud(h)

	p := pc.AddPoint()
	p.SetX(12.34)
	p.SetY(56.78)
	p.SetZ(9.01)

	got, ok := pc.GetPoint(0, nil)
	if !ok {
		t.Fatal("GetPoint(0) = false, want true")
	}
	// X/Y/Z are quantized through the header's 0.01 scale, so round-trip
	// precision is bounded by that, not exact float equality.
	if d := got.X() - 12.34; d < -0.01 || d > 0.01 {
		t.Errorf("X = %v, want ~12.34", got.X())
	}
	if d := got.Y() - 56.78; d < -0.01 || d > 0.01 {
		t.Errorf("Y = %v, want ~56.78", got.Y())
	}
	if d := got.Z() - 9.01; d < -0.01 || d > 0.01 {
		t.Errorf("Z = %v, want ~9.01", got.Z())
	}
}

func TestSoftDeleteMonotonicity(t *testing.T) {
	h := newTestHeader(0, 0, 0, 10, 10, 10)
	pc := NewPointCloud(h)
	for i := 0; i < 5; i++ {
		p := pc.AddPoint()
		p.SetX(float64(i))
		p.SetY(float64(i))
		p.SetZ(float64(i))
	}
	h.NumberOfPointRecords = 5

	if err := pc.DeletePoint(2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if h.NumberOfPointRecords != 4 {
		t.Fatalf("live count after one delete = %d, want 4", h.NumberOfPointRecords)
	}
	// deleting the same point again must not double-decrement.
	if err := pc.DeletePoint(2); err != nil {
		t.Fatalf("re-delete: %v", err)
	}
	if h.NumberOfPointRecords != 4 {
		t.Fatalf("live count after re-deleting the same point = %d, want 4", h.NumberOfPointRecords)
	}
	if pc.NumPoints() != 5 {
		t.Fatalf("NumPoints() = %d, want 5 (soft-delete keeps the slot)", pc.NumPoints())
	}
	if _, ok := pc.GetPoint(2, nil); ok {
		t.Fatal("GetPoint should not surface a soft-deleted point")
	}
}

func TestDeleteDeletedCompactsBelowThreshold(t *testing.T) {
	h := newTestHeader(0, 0, 0, 10, 10, 10)
	pc := NewPointCloud(h)
	for i := 0; i < 10; i++ {
		p := pc.AddPoint()
		p.SetX(float64(i))
		p.SetY(float64(i))
		p.SetZ(float64(i))
	}
	h.NumberOfPointRecords = 10

	// delete 5 of 10 (50% live), below the 0.75 stay-soft-deleted threshold.
	for i := 0; i < 5; i++ {
		if err := pc.DeletePoint(i); err != nil {
			t.Fatalf("delete %d: %v", i, err)
		}
	}
	if err := pc.DeleteDeleted(); err != nil {
		t.Fatalf("compact: %v", err)
	}
	if pc.NumPoints() != 5 {
		t.Fatalf("NumPoints() after compaction = %d, want 5", pc.NumPoints())
	}
	for i := 0; i < pc.NumPoints(); i++ {
		if _, ok := pc.GetPoint(i, nil); !ok {
			t.Fatalf("point %d should be live after compaction", i)
		}
	}
}

func TestDeleteDeletedSkipsCompactionAboveThreshold(t *testing.T) {
	h := newTestHeader(0, 0, 0, 10, 10, 10)
	pc := NewPointCloud(h)
	for i := 0; i < 10; i++ {
		p := pc.AddPoint()
		p.SetX(float64(i))
		p.SetY(float64(i))
		p.SetZ(float64(i))
	}
	h.NumberOfPointRecords = 10

	// delete 1 of 10 (90% live), above the 0.75 threshold: stays soft-deleted.
	if err := pc.DeletePoint(0); err != nil {
		t.Fatal(err)
	}
	if err := pc.DeleteDeleted(); err != nil {
		t.Fatalf("compact: %v", err)
	}
	if pc.NumPoints() != 10 {
		t.Fatalf("NumPoints() = %d, want 10 (compaction should have been skipped)", pc.NumPoints())
	}
}

func TestQueryFindsPointsInsideRectangle(t *testing.T) {
	h := newTestHeader(0, 0, 0, 100, 100, 10)
	h.NumberOfPointRecords = 4
	pc := NewPointCloud(h)
	coords := [][2]float64{{5, 5}, {50, 50}, {95, 95}, {-10, -10}}
	for _, c := range coords {
		p := pc.AddPoint()
		p.SetX(c[0])
		p.SetY(c[1])
		p.SetZ(0)
	}
	pc.RebuildIndices()

	hits := pc.Query(Rectangle{BBox{0, 0, 60, 60}}, nil)
	if len(hits) != 2 {
		t.Fatalf("Query found %d points, want 2 (5,5) and (50,50)", len(hits))
	}
}

func TestKNNReturnsNearestFirst(t *testing.T) {
	h := newTestHeader(0, 0, 0, 100, 100, 10)
	h.NumberOfPointRecords = 3
	pc := NewPointCloud(h)
	coords := [][3]float64{{0, 0, 0}, {10, 0, 0}, {50, 0, 0}}
	for _, c := range coords {
		p := pc.AddPoint()
		p.SetX(c[0])
		p.SetY(c[1])
		p.SetZ(c[2])
	}
	pc.RebuildIndices()

	hits := pc.KNN(0, 0, 0, 2, nil)
	if len(hits) != 2 {
		t.Fatalf("KNN(k=2) returned %d points, want 2", len(hits))
	}
	if hits[0].X() != 0 {
		t.Fatalf("nearest point X = %v, want 0", hits[0].X())
	}
}

// TestKNNFindsAcrossSplitPlaneWhenFarSubtreeMayBeCloser exercises the kd-tree
// prune rule with a far subtree whose closest possible point (distance ~3.01)
// sits squarely between sqrt(F) and F for the best distance F=5 accumulated
// from the root and near subtree. The prune must compare squared distances
// on both sides or it will wrongly stop at the farther near-side point.
func TestKNNFindsAcrossSplitPlaneWhenFarSubtreeMayBeCloser(t *testing.T) {
	h := newTestHeader(-10, -10, -10, 10, 10, 10)
	h.NumberOfPointRecords = 3
	pc := NewPointCloud(h)
	coords := [][3]float64{
		{3, 4, 0},    // root (median x=3), distance 5 from origin
		{0, 5, 0},    // near (left, x<3) leaf, distance 5 from origin
		{3.01, 0, 0}, // far (right, x>3) leaf, distance ~3.01 from origin
	}
	for _, c := range coords {
		p := pc.AddPoint()
		p.SetX(c[0])
		p.SetY(c[1])
		p.SetZ(c[2])
	}
	pc.RebuildIndices()

	hits := pc.KNN(0, 0, 0, 1, nil)
	if len(hits) != 1 {
		t.Fatalf("KNN(k=1) returned %d points, want 1", len(hits))
	}
	if got := hits[0].X(); got < 3.0 || got > 3.02 {
		t.Fatalf("nearest point X = %v, want ~3.01 (the true nearest, across the split plane)", got)
	}
}

func TestAddAttributePreservesExistingValues(t *testing.T) {
	h := newTestHeader(0, 0, 0, 10, 10, 10)
	pc := NewPointCloud(h)
	p := pc.AddPoint()
	p.SetX(1)
	p.SetY(2)
	p.SetZ(3)

	if err := pc.AddAttribute(NewAttribute("Intensity", Uint16)); err != nil {
		t.Fatalf("add attribute: %v", err)
	}
	got, ok := pc.GetPoint(0, nil)
	if !ok {
		t.Fatal("point missing after AddAttribute")
	}
	if got.X() != 1 || got.Y() != 2 || got.Z() != 3 {
		t.Fatalf("coordinates changed after AddAttribute: (%v,%v,%v)", got.X(), got.Y(), got.Z())
	}
	got.SetValue("Intensity", 42)
	if got.Value("Intensity") != 42 {
		t.Fatalf("Intensity = %v, want 42", got.Value("Intensity"))
	}
}

func TestAddAttributeIsIdempotent(t *testing.T) {
	h := newTestHeader(0, 0, 0, 10, 10, 10)
	pc := NewPointCloud(h)
	pc.AddPoint()

	attr := NewAttribute("Intensity", Uint16)
	if err := pc.AddAttribute(attr); err != nil {
		t.Fatal(err)
	}
	size := pc.pointSize()
	if err := pc.AddAttribute(attr); err != nil {
		t.Fatalf("re-adding the same attribute definition should be a no-op, got: %v", err)
	}
	if pc.pointSize() != size {
		t.Fatalf("point size changed on idempotent re-add: %d -> %d", size, pc.pointSize())
	}
}
