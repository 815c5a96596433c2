package tree

import "testing"

func TestFindMapsRangesToIndices(t *testing.T) {
	st, err := FromWeights([]int64{2, 0, 5})
	if err != nil {
		t.Fatalf("FromWeights() error = %v", err)
	}
	if st.TotalSum() != 7 {
		t.Fatalf("TotalSum() = %d, want 7", st.TotalSum())
	}

	counts := map[int]int{}
	for v := int64(1); v <= st.TotalSum(); v++ {
		idx, err := st.Find(v)
		if err != nil {
			t.Fatalf("Find(%d) error = %v", v, err)
		}
		counts[idx]++
	}
	if counts[0] != 2 || counts[1] != 0 || counts[2] != 5 {
		t.Fatalf("hits per index = %v, want map[0:2 2:5]", counts)
	}
}

func TestFindOutOfRange(t *testing.T) {
	st, _ := FromWeights([]int64{1, 1})
	for _, v := range []int64{0, 3, -1} {
		if _, err := st.Find(v); err == nil {
			t.Errorf("Find(%d) should fail", v)
		}
	}
}

func TestUpdateAndPrefixSum(t *testing.T) {
	st, err := FromWeights([]int64{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("FromWeights() error = %v", err)
	}
	if err := st.Update(2, 10); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	tests := []struct {
		index int
		want  int64
	}{{0, 1}, {1, 3}, {2, 13}, {4, 22}}
	for _, tt := range tests {
		got, err := st.PrefixSum(tt.index)
		if err != nil || got != tt.want {
			t.Errorf("PrefixSum(%d) = %d, %v; want %d", tt.index, got, err, tt.want)
		}
	}
	if w, _ := st.Query(2); w != 10 {
		t.Errorf("Query(2) = %d, want 10", w)
	}
	if err := st.Update(5, 1); err == nil {
		t.Error("Update out of range should fail")
	}
	if err := st.Update(0, -1); err == nil {
		t.Error("negative weight should be rejected")
	}
}

func TestSingleLeaf(t *testing.T) {
	st, err := FromWeights([]int64{3})
	if err != nil {
		t.Fatalf("FromWeights() error = %v", err)
	}
	for v := int64(1); v <= 3; v++ {
		if idx, err := st.Find(v); err != nil || idx != 0 {
			t.Fatalf("Find(%d) = %d, %v", v, idx, err)
		}
	}
}

func TestRebuildRejectsBadInput(t *testing.T) {
	if _, err := NewSegmentTree(0); err == nil {
		t.Error("size 0 should be rejected")
	}
	st, _ := NewSegmentTree(2)
	if err := st.Rebuild([]int64{1}); err == nil {
		t.Error("length mismatch should be rejected")
	}
	if err := st.Rebuild([]int64{1, -2}); err == nil {
		t.Error("negative weight should be rejected")
	}
}
