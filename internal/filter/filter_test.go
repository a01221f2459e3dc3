package filter

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"

	"github.com/dshills/privfilter/internal/classify"
	"github.com/dshills/privfilter/internal/flatten"
	"github.com/dshills/privfilter/internal/selection"
)

func quietFilter(opts ...Option) *Filter {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return New(append([]Option{WithLogger(logger)}, opts...)...)
}

func mustImport(t *testing.T, f *Filter, name, src string) Snapshot {
	t.Helper()
	snap, err := f.Import(name, []byte(src))
	if err != nil {
		t.Fatalf("Import(%s): %v", name, err)
	}
	return snap
}

func TestImport_SeedsSensitivePaths(t *testing.T) {
	f := quietFilter()
	snap := mustImport(t, f, "person.json", `{"name": "Alice Tan", "age": 30, "id": "S1234567A"}`)

	if diff := cmp.Diff([]string{"name", "age", "id"}, flatten.Paths(snap.Entries)); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"name", "id"}, snap.Redactions); diff != "" {
		t.Errorf("redactions mismatch (-want +got):\n%s", diff)
	}
	if snap.State != selection.StateSeeded {
		t.Errorf("State = %q, want seeded", snap.State)
	}
	if snap.Generation != 1 || !snap.Loaded() {
		t.Errorf("Generation = %d, want 1", snap.Generation)
	}
	if snap.LeafCount() != 3 {
		t.Errorf("LeafCount = %d, want 3", snap.LeafCount())
	}
}

func TestRemoveThenAddRestoresSeed(t *testing.T) {
	f := quietFilter()
	seeded := mustImport(t, f, "a.json", `{"address": {"city": "X", "postal": "123456"}}`)
	want := []string{"address.city", "address.postal"}
	if diff := cmp.Diff(want, seeded.Redactions); diff != "" {
		t.Fatalf("seeded mismatch (-want +got):\n%s", diff)
	}

	if _, err := f.Remove("address.city"); err != nil {
		t.Fatal(err)
	}
	snap, err := f.Add("address.city")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, snap.Redactions); diff != "" {
		t.Errorf("redactions mismatch (-want +got):\n%s", diff)
	}
	if snap.State != selection.StateEdited {
		t.Errorf("State = %q, want edited", snap.State)
	}
}

func TestReplace_RejectsNonObjectAndKeepsState(t *testing.T) {
	f := quietFilter()
	mustImport(t, f, "a.json", `{"name": "Alice"}`)
	if _, err := f.Remove("name"); err != nil {
		t.Fatal(err)
	}
	before := f.Snapshot()

	inputs := []struct {
		name string
		data string
	}{
		{"number.json", `42`},
		{"array.json", `[{"name": "x"}]`},
		{"string.json", `"hi"`},
		{"null.json", `null`},
		{"broken.json", `{"name": `},
		{"empty.json", ``},
		{"broken.yaml", "a: [1, 2"},
	}
	for _, in := range inputs {
		t.Run(in.name, func(t *testing.T) {
			_, err := f.Import(in.name, []byte(in.data))
			if !errors.Is(err, ErrMalformedDocument) {
				t.Fatalf("err = %v, want ErrMalformedDocument", err)
			}
			if len(errors.GetAllHints(err)) == 0 {
				t.Error("expected a hint on the rejection")
			}
			if diff := cmp.Diff(before, f.Snapshot()); diff != "" {
				t.Errorf("state changed after rejection (-before +after):\n%s", diff)
			}
		})
	}
}

func TestReplace_RejectsUnsupportedValues(t *testing.T) {
	f := quietFilter()
	if _, err := f.Replace("x", map[string]any{"f": func() {}}); !errors.Is(err, ErrMalformedDocument) {
		t.Errorf("err = %v, want ErrMalformedDocument", err)
	}
	if f.Snapshot().Loaded() {
		t.Error("rejected first document should leave the filter empty")
	}
}

func TestReplace_TooDeep(t *testing.T) {
	f := quietFilter(WithMaxDepth(3))
	_, err := f.Import("deep.json", []byte(`{"a": {"b": {"c": {"d": 1}}}}`))
	if !errors.Is(err, ErrMalformedDocument) || !errors.Is(err, flatten.ErrTooDeep) {
		t.Errorf("err = %v, want ErrMalformedDocument and ErrTooDeep", err)
	}
}

func TestReplace_DiscardsEdits(t *testing.T) {
	f := quietFilter()
	mustImport(t, f, "a.json", `{"name": "A", "note": "x", "email": "a@b.co"}`)
	if _, err := f.Add("note"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Remove("email"); err != nil {
		t.Fatal(err)
	}

	snap, err := f.Replace("b.json", map[string]any{"dob": "2000-01-01", "note": "y"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"dob"}, snap.Redactions); diff != "" {
		t.Errorf("redactions mismatch (-want +got):\n%s", diff)
	}
	if snap.State != selection.StateSeeded || snap.Generation != 2 || snap.FileName != "b.json" {
		t.Errorf("snapshot = %s gen %d file %s", snap.State, snap.Generation, snap.FileName)
	}
}

func TestReplace_NoSensitiveFields(t *testing.T) {
	f := quietFilter()
	snap := mustImport(t, f, "plain.json", `{"count": 3, "items": []}`)
	if len(snap.Redactions) != 0 || len(snap.Sensitive) != 0 {
		t.Errorf("unexpected findings: %v", snap.Redactions)
	}
	if snap.State != selection.StateSeeded {
		t.Errorf("State = %q, want seeded", snap.State)
	}
}

func TestReplace_DoesNotRetainInput(t *testing.T) {
	f := quietFilter()
	in := map[string]any{"name": "Alice"}
	if _, err := f.Replace("m", in); err != nil {
		t.Fatal(err)
	}
	in["name"] = "Mallory"
	snap := f.Snapshot()
	if snap.Entries[0].Value != "Alice" {
		t.Errorf("filter observed caller mutation: %v", snap.Entries[0].Value)
	}
}

func TestImport_UnwrapsEnvelope(t *testing.T) {
	src := `{
		"version": "https://schema.openattestation.com/2.0/schema.json",
		"data": {
			"recipient": {
				"name": "3b9c4f2e-8d7a-4c1b-9e6f-0a1b2c3d4e5f:string:Alice Tan",
				"nric": "6c2d8e4f-1a3b-4c5d-8e7f-9a0b1c2d3e4f:string:S1234567A"
			}
		},
		"signature": {"type": "SHA3MerkleProof", "targetHash": "abc"}
	}`

	f := quietFilter()
	snap := mustImport(t, f, "cert.json", src)
	if snap.Envelope == "" {
		t.Error("Envelope not reported")
	}
	if diff := cmp.Diff([]string{"recipient.name", "recipient.nric"}, snap.Redactions); diff != "" {
		t.Errorf("redactions mismatch (-want +got):\n%s", diff)
	}

	raw := quietFilter(WithUnwrap(false))
	snap = mustImport(t, raw, "cert.json", src)
	if snap.Envelope != "" {
		t.Errorf("Envelope = %q with unwrapping off", snap.Envelope)
	}
	if snap.Entries[0].Path != "version" {
		t.Errorf("first path = %q, want version", snap.Entries[0].Path)
	}
}

func TestEdits_BeforeLoad(t *testing.T) {
	f := quietFilter()
	if _, err := f.Add("a"); !errors.Is(err, ErrNoDocument) {
		t.Errorf("Add err = %v, want ErrNoDocument", err)
	}
	if _, err := f.Remove("a"); !errors.Is(err, ErrNoDocument) {
		t.Errorf("Remove err = %v, want ErrNoDocument", err)
	}
	if _, err := f.Toggle("a"); !errors.Is(err, ErrNoDocument) {
		t.Errorf("Toggle err = %v, want ErrNoDocument", err)
	}
	if _, err := f.SetRedactions([]string{"a"}); !errors.Is(err, ErrNoDocument) {
		t.Errorf("SetRedactions err = %v, want ErrNoDocument", err)
	}
	snap := f.Snapshot()
	if snap.Loaded() || snap.State != selection.StateEmpty {
		t.Errorf("Snapshot before load = %+v", snap)
	}
}

func TestEdits_UnknownPath(t *testing.T) {
	f := quietFilter()
	mustImport(t, f, "a.json", `{"name": "A", "tags": ["x"]}`)
	before := f.Snapshot()

	if _, err := f.Add("nope"); !errors.Is(err, ErrUnknownPath) {
		t.Errorf("Add err = %v, want ErrUnknownPath", err)
	}
	if _, err := f.Toggle("nope"); !errors.Is(err, ErrUnknownPath) {
		t.Errorf("Toggle err = %v, want ErrUnknownPath", err)
	}
	if _, err := f.SetRedactions([]string{"tags[0]", "tags"}); !errors.Is(err, ErrUnknownPath) {
		t.Errorf("SetRedactions err = %v, want ErrUnknownPath", err)
	}
	if diff := cmp.Diff(before, f.Snapshot()); diff != "" {
		t.Errorf("state changed after rejected edit:\n%s", diff)
	}
}

func TestRemove_AbsentPathIsNoOp(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"unknown path", "nope"},
		{"unselected leaf", "tags[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := quietFilter()
			before := mustImport(t, f, "a.json", `{"name": "A", "tags": ["x"]}`)

			snap, err := f.Remove(tt.path)
			if err != nil {
				t.Fatalf("Remove(%q): %v", tt.path, err)
			}
			if diff := cmp.Diff(before.Redactions, snap.Redactions); diff != "" {
				t.Errorf("redactions mismatch (-want +got):\n%s", diff)
			}
			if snap.State != selection.StateEdited {
				t.Errorf("State = %q, want edited", snap.State)
			}
			if snap.Revision != before.Revision+1 {
				t.Errorf("Revision = %d, want %d", snap.Revision, before.Revision+1)
			}
		})
	}
}

func TestToggleInvolution(t *testing.T) {
	f := quietFilter()
	mustImport(t, f, "a.json", `{"name": "A", "note": "x"}`)
	before := f.Snapshot().Redactions
	for _, p := range []string{"name", "note"} {
		if _, err := f.Toggle(p); err != nil {
			t.Fatal(err)
		}
		snap, err := f.Toggle(p)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(before, snap.Redactions); diff != "" {
			t.Errorf("Toggle(%q) twice mismatch (-want +got):\n%s", p, diff)
		}
	}
}

func TestSetRedactions(t *testing.T) {
	f := quietFilter()
	mustImport(t, f, "a.json", `{"name": "A", "note": "x", "email": "a@b.co"}`)
	snap, err := f.SetRedactions([]string{"note", "name"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"name", "note"}, snap.Redactions); diff != "" {
		t.Errorf("redactions mismatch (-want +got):\n%s", diff)
	}
	if !snap.Redacted("note") || snap.Redacted("email") {
		t.Error("Redacted gave wrong answers")
	}
}

func TestSnapshotLookups(t *testing.T) {
	f := quietFilter()
	mustImport(t, f, "a.json", `{"name": "A", "note": "x", "email": "a@b.co"}`)
	snap, err := f.SetRedactions([]string{"name", "note"})
	if err != nil {
		t.Fatal(err)
	}

	selected := snap.RedactionSet()
	for _, e := range snap.Entries {
		if selected[e.Path] != snap.Redacted(e.Path) {
			t.Errorf("RedactionSet[%q] = %v, Redacted = %v", e.Path, selected[e.Path], snap.Redacted(e.Path))
		}
	}

	byPath := snap.DescriptorsByPath()
	if len(byPath) != len(snap.Sensitive) {
		t.Fatalf("DescriptorsByPath has %d entries, want %d", len(byPath), len(snap.Sensitive))
	}
	for _, e := range snap.Entries {
		want, wantOK := snap.Descriptor(e.Path)
		got, ok := byPath[e.Path]
		if ok != wantOK || got.Category != want.Category || got.Severity != want.Severity {
			t.Errorf("DescriptorsByPath[%q] = %+v/%v, want %+v/%v", e.Path, got, ok, want, wantOK)
		}
	}
}

func TestSubscribe(t *testing.T) {
	f := quietFilter()
	var mu sync.Mutex
	var order []string
	record := func(tag string) func(Snapshot) {
		return func(s Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, tag+":"+strings.Join(s.Redactions, ","))
		}
	}
	cancelA := f.Subscribe(record("a"))
	f.Subscribe(record("b"))

	mustImport(t, f, "a.json", `{"name": "A"}`)
	cancelA()
	if _, err := f.Remove("name"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Import("bad.json", []byte(`1`)); err == nil {
		t.Fatal("expected rejection")
	}

	want := []string{"a:name", "b:name", "b:"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	f := quietFilter()
	snap := mustImport(t, f, "a.json", `{"name": "A"}`)
	snap.Redactions[0] = "changed"
	snap.Entries[0].Path = "changed"
	again := f.Snapshot()
	if again.Redactions[0] != "name" || again.Entries[0].Path != "name" {
		t.Error("mutating a snapshot changed the filter")
	}
}

func TestWithClassifier(t *testing.T) {
	rules, err := classify.ParseRules([]byte("ignore: [name]\n"))
	if err != nil {
		t.Fatal(err)
	}
	c, err := rules.Build()
	if err != nil {
		t.Fatal(err)
	}
	f := quietFilter(WithClassifier(c))
	snap := mustImport(t, f, "a.json", `{"name": "A", "dob": "2000-01-01"}`)
	if diff := cmp.Diff([]string{"dob"}, snap.Redactions); diff != "" {
		t.Errorf("redactions mismatch (-want +got):\n%s", diff)
	}
}

func TestConcurrentEdits(t *testing.T) {
	f := quietFilter()
	mustImport(t, f, "a.json", `{"a": "1", "b": "2", "c": "3"}`)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := []string{"a", "b", "c"}[i%3]
			_, _ = f.Toggle(p)
			_ = f.Snapshot()
		}(i)
	}
	wg.Wait()
	if got := f.Snapshot().Revision; got != 51 {
		t.Errorf("Revision = %d, want 51", got)
	}
}

func TestLogsDoNotLeakValues(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := New(WithLogger(logger))
	mustImport(t, f, "a.json", `{"nric": "S1234567A", "name": "Alice Tan"}`)
	if _, err := f.Replace("n.json", json.Number("5")); err == nil {
		t.Fatal("expected rejection")
	}
	out := buf.String()
	for _, secret := range []string{"S1234567A", "Alice Tan"} {
		if strings.Contains(out, secret) {
			t.Errorf("log leaked %q:\n%s", secret, out)
		}
	}
	if !strings.Contains(out, "filter: document loaded") || !strings.Contains(out, "filter: document rejected") {
		t.Errorf("expected load and rejection logs:\n%s", out)
	}
}

// gateRule blocks the first classification of a leaf named "gate" until
// release is closed.
type gateRule struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGateRule() *gateRule {
	return &gateRule{entered: make(chan struct{}), release: make(chan struct{})}
}

func (r *gateRule) ID() string { return "gate" }

func (r *gateRule) Test(e flatten.Entry) (classify.Match, bool, error) {
	if e.Path == "gate" {
		r.once.Do(func() {
			close(r.entered)
			<-r.release
		})
	}
	return classify.Match{}, false, nil
}

func gatedFilter(gate *gateRule) *Filter {
	rules := append(classify.DefaultRules(), gate)
	return quietFilter(WithClassifier(classify.New(rules)))
}

func waitEntered(t *testing.T, gate *gateRule) {
	t.Helper()
	select {
	case <-gate.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("classification never reached the gate")
	}
}

func TestEditWaitsForReplace(t *testing.T) {
	gate := newGateRule()
	f := gatedFilter(gate)
	mustImport(t, f, "a.json", `{"name": "A", "age": 1}`)

	imported := make(chan error, 1)
	go func() {
		_, err := f.Import("b.json", []byte(`{"name": "B", "age": 2, "gate": "x"}`))
		imported <- err
	}()
	waitEntered(t, gate)

	toggled := make(chan Snapshot, 1)
	go func() {
		snap, err := f.Toggle("age")
		if err != nil {
			t.Errorf("Toggle: %v", err)
		}
		toggled <- snap
	}()

	select {
	case snap := <-toggled:
		t.Fatalf("toggle applied while a replacement was in progress: %+v", snap.Redactions)
	case <-time.After(50 * time.Millisecond):
	}

	close(gate.release)
	if err := <-imported; err != nil {
		t.Fatalf("Import: %v", err)
	}
	snap := <-toggled

	if snap.Generation != 2 {
		t.Errorf("toggle applied to generation %d, want 2", snap.Generation)
	}
	if diff := cmp.Diff([]string{"name", "age"}, f.Snapshot().Redactions); diff != "" {
		t.Errorf("toggle was seeded over (-want +got):\n%s", diff)
	}
	if got := f.Snapshot().State; got != selection.StateEdited {
		t.Errorf("State = %q, want edited", got)
	}
}

func TestReplacementsApplyInOrder(t *testing.T) {
	gate := newGateRule()
	f := gatedFilter(gate)

	first := make(chan error, 1)
	go func() {
		_, err := f.Import("first.json", []byte(`{"name": "A", "gate": "x"}`))
		first <- err
	}()
	waitEntered(t, gate)

	second := make(chan error, 1)
	go func() {
		_, err := f.Import("second.json", []byte(`{"name": "B"}`))
		second <- err
	}()

	select {
	case <-second:
		t.Fatal("second import finished while the first was still classifying")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate.release)
	if err := <-first; err != nil {
		t.Fatalf("first Import: %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("second Import: %v", err)
	}

	snap := f.Snapshot()
	if snap.FileName != "second.json" || snap.Generation != 2 {
		t.Errorf("displayed %s generation %d, want second.json generation 2", snap.FileName, snap.Generation)
	}
}

func TestSnapshotDuringReplace(t *testing.T) {
	gate := newGateRule()
	f := gatedFilter(gate)
	mustImport(t, f, "a.json", `{"name": "A"}`)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.Import("b.json", []byte(`{"name": "B", "gate": "x"}`))
	}()
	waitEntered(t, gate)

	if got := f.Snapshot().FileName; got != "a.json" {
		t.Errorf("Snapshot during replace shows %q, want a.json", got)
	}
	close(gate.release)
	<-done
	if got := f.Snapshot().FileName; got != "b.json" {
		t.Errorf("Snapshot after replace shows %q, want b.json", got)
	}
}
