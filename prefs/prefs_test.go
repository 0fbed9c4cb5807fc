package prefs

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nasa-jpl/autoflat/flat"
)

func TestOpenMissingIsEmpty(t *testing.T) {
	f, err := Open(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := f.Estimate(flat.Key{Filter: "Lum", Binning: 1}); ok {
		t.Error("empty store should know nothing")
	}
}

func TestRoundTripThroughDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.SetEstimate(flat.Key{Filter: "Lum", Binning: 1}, 2.75); err != nil {
		t.Fatal(err)
	}
	if err := f.SetEstimate(flat.Key{Filter: "Ha", Binning: 2}, 41.2); err != nil {
		t.Fatal(err)
	}
	g, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	want := map[flat.Key]float64{
		{Filter: "Lum", Binning: 1}: 2.75,
		{Filter: "Ha", Binning: 2}:  41.2,
	}
	if diff := cmp.Diff(want, g.All()); diff != "" {
		t.Errorf("estimates (-want +got):\n%s", diff)
	}
}

func TestFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "e.yml")
	if err := ioutil.WriteFile(path, []byte("Lum/1: 3\nO III/2: 60.5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	v, ok := f.Estimate(flat.Key{Filter: "O III", Binning: 2})
	if !ok || v != 60.5 {
		t.Errorf("expected 60.5, got %v %v", v, ok)
	}
}

func TestSeedFromFile(t *testing.T) {
	f, _ := Open(filepath.Join(t.TempDir(), "e.yml"))
	f.SetEstimate(flat.Key{Filter: "R", Binning: 1}, 4)
	s, _ := flat.NewFrameSet(flat.Filter{Slot: 2, Name: "R"}, 1, 5, 1)
	flat.Seed([]*flat.FrameSet{s}, f)
	if s.Exposure != 4 {
		t.Errorf("expected exposure seeded to 4, got %f", s.Exposure)
	}
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("a/b/3")
	if err != nil {
		t.Fatal(err)
	}
	if k != (flat.Key{Filter: "a/b", Binning: 3}) {
		t.Errorf("unexpected key %+v", k)
	}
	for _, bad := range []string{"", "Lum", "/2", "Lum/x", "Lum/0"} {
		if _, err := ParseKey(bad); err == nil {
			t.Errorf("%q should not parse", bad)
		}
	}
}
