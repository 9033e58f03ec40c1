package backend

import (
	"context"
	"testing"
)

func TestOpenLocalFamilies(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		model       string
		wantBackend string
		wantErr     bool
	}{
		{name: "gpt family", model: "gpt/toy", wantBackend: "local"},
		{name: "opt family", model: "opt/toy", wantBackend: "local"},
		{name: "no family separator", model: "gpt2", wantErr: true},
		{name: "unknown family", model: "bert/toy", wantErr: true},
		{name: "unknown local variant", model: "gpt/125m", wantErr: true},
		{name: "mesh without cluster", model: "mesh/opt-125m", wantErr: true},
		{name: "mesh bad size", model: "mesh/opt-9000b", wantErr: true},
		{name: "mesh wrong shape", model: "mesh/gpt-125m", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s, info, err := Open(context.Background(), tc.model, Options{})
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.model)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open(%q): %v", tc.model, err)
			}
			if info.Backend != tc.wantBackend {
				t.Fatalf("got backend %q, want %q", info.Backend, tc.wantBackend)
			}
			if s.Name() != tc.model {
				t.Fatalf("got name %q, want %q", s.Name(), tc.model)
			}
			if info.NumDevices != 1 || info.VocabSize == 0 {
				t.Fatalf("incomplete info: %+v", info)
			}
		})
	}
}

func TestLocalFamiliesDiffer(t *testing.T) {
	t.Parallel()

	gpt, _, err := Open(context.Background(), "gpt/toy", Options{})
	if err != nil {
		t.Fatal(err)
	}
	opt, _, err := Open(context.Background(), "opt/toy", Options{})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	run := func(s Stepper) []float32 {
		sess := NewSession()
		cache := s.NewCache()
		var res StepResult
		for _, tok := range []int32{10, 20, 30} {
			var err error
			res, err = s.Step(ctx, sess, tok, cache, StepOptions{})
			if err != nil {
				t.Fatal(err)
			}
			cache = res.Cache
			sess.Advance()
		}
		return res.Logits
	}

	a, b := run(gpt), run(opt)
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("gpt and opt families produced identical logits; mask handling is not wired")
	}
}

func TestLocalStepThreadsCache(t *testing.T) {
	t.Parallel()

	s, _, err := Open(context.Background(), "gpt/toy", Options{})
	if err != nil {
		t.Fatal(err)
	}
	sess := NewSession()
	cache := s.NewCache()
	for k := 1; k <= 4; k++ {
		res, err := s.Step(context.Background(), sess, int32(k), cache, StepOptions{})
		if err != nil {
			t.Fatal(err)
		}
		cache = res.Cache
		sess.Advance()
		if cache.Step != k {
			t.Fatalf("cache fill pointer %d after %d tokens", cache.Step, k)
		}
		if sess.Steps() != k {
			t.Fatalf("session counter %d after %d tokens", sess.Steps(), k)
		}
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	t.Parallel()

	a, b := NewSession(), NewSession()
	if a.ID() == b.ID() {
		t.Fatal("sessions must have distinct ids")
	}
	a.Advance()
	a.Advance()
	if b.Steps() != 0 {
		t.Fatal("advancing one session leaked into another")
	}
}
