package plan

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/torosent/harraw/internal/interpolator"
	"github.com/torosent/harraw/internal/step"
	"github.com/torosent/harraw/internal/tags"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func expand(t *testing.T, dir string, opts ...Option) (Plan, error) {
	t.Helper()
	return NewExpander(nil, nil, opts...).Expand(filepath.Join(dir, "benchmark.yml"), DefaultAccessor)
}

func names(p Plan) []string {
	out := make([]string, len(p))
	for i, s := range p {
		out[i] = s.Name()
	}
	return out
}

func items(t *testing.T, p Plan) []any {
	t.Helper()
	out := make([]any, len(p))
	for i, s := range p {
		req, ok := s.(*step.Request)
		if !ok || req.Item() == nil {
			t.Fatalf("step %d is %T without item", i, s)
		}
		if req.Item().Index != i {
			t.Errorf("step %d has index %d", i, req.Item().Index)
		}
		out[i] = req.Item().Value
	}
	return out
}

func reverse(n int, swap func(i, j int)) {
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		swap(i, j)
	}
}

func TestExpandSimpleSteps(t *testing.T) {
	dir := writeFiles(t, map[string]string{"benchmark.yml": `
plan:
  - name: Wait
    delay:
      seconds: 1
  - name: Shell
    exec:
      command: echo hi
  - name: Set
    assign:
      key: a
      value: b
  - name: Check
    assert:
      key: a
      value: b
  - name: Fetch
    request:
      url: /users
`})

	p, err := expand(t, dir)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	want := []string{"Wait", "Shell", "Set", "Check", "Fetch"}
	if got := names(p); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("names = %v, want %v", got, want)
	}
	if _, ok := p[0].(*step.Delay); !ok {
		t.Errorf("step 0 is %T, want *step.Delay", p[0])
	}
	if _, ok := p[4].(*step.Request); !ok {
		t.Errorf("step 4 is %T, want *step.Request", p[4])
	}
}

func TestClassifyOrder(t *testing.T) {
	request := map[string]any{"url": "/x"}
	tests := []struct {
		name string
		def  step.Definition
		want Kind
	}{
		{"with_items", step.Definition{"request": request, "with_items": []any{1}, "with_items_range": map[string]any{}}, KindWithItems},
		{"range", step.Definition{"request": request, "with_items_range": map[string]any{}, "with_items_from_csv": "a.csv"}, KindWithItemsRange},
		{"csv", step.Definition{"request": request, "with_items_from_csv": "a.csv", "with_items_from_file": "a.yml"}, KindWithItemsFromCSV},
		{"file", step.Definition{"request": request, "with_items_from_file": "a.yml"}, KindWithItemsFromFile},
		{"generator without request", step.Definition{"with_items": []any{1}, "delay": map[string]any{}}, KindDelay},
		{"delay before request", step.Definition{"request": request, "delay": map[string]any{}}, KindDelay},
		{"exec before assign", step.Definition{"exec": map[string]any{}, "assign": map[string]any{}}, KindExec},
		{"assign before assert", step.Definition{"assign": map[string]any{}, "assert": map[string]any{}}, KindAssign},
		{"item-level assign is not a kind", step.Definition{"request": request, "assign": "out"}, KindRequest},
		{"unknown", step.Definition{"name": "x", "foo": map[string]any{}}, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.def); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithItems(t *testing.T) {
	dir := writeFiles(t, map[string]string{"benchmark.yml": `
plan:
  - name: Fetch {{ item }}
    request:
      url: /api/{{ item }}
    with_items:
      - 1
      - 2
      - 3
`})
	p, err := expand(t, dir)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	got := items(t, p)
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("items = %v, want [1 2 3]", got)
	}
}

func TestPick(t *testing.T) {
	tests := []struct {
		name    string
		pick    string
		want    int
		wantErr string
	}{
		{name: "default", want: 3},
		{name: "two", pick: "pick: 2", want: 2},
		{name: "zero", pick: "pick: 0", want: 0},
		{name: "too many", pick: "pick: 4", wantErr: "pick option should not be greater than the provided items, but was 4"},
		{name: "negative", pick: "pick: -1", wantErr: "pick option should not be negative, but was -1"},
		{name: "not a number", pick: "pick: many", wantErr: "pick option should be an integer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeFiles(t, map[string]string{"benchmark.yml": `
plan:
  - name: Wait
    delay:
      seconds: 0
  - name: Fetch
    request:
      url: /api/{{ item }}
    ` + tt.pick + `
    with_items: [1, 2, 3]
`})
			p, err := expand(t, dir)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Expand() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expand() error = %v", err)
			}
			if got := len(p) - 1; got != tt.want {
				t.Errorf("generated %d steps, want %d", got, tt.want)
			}
		})
	}
}

func TestShuffleAppliesBeforePick(t *testing.T) {
	dir := writeFiles(t, map[string]string{"benchmark.yml": `
plan:
  - name: Fetch
    request:
      url: /api/{{ item }}
    shuffle: true
    pick: 1
    with_items: [1, 2, 3]
`})
	p, err := expand(t, dir, WithShuffle(reverse))
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if got := items(t, p); len(got) != 1 || got[0] != 3 {
		t.Fatalf("items = %v, want [3]", got)
	}

	seen := map[any]bool{}
	for i := 0; i < 200 && len(seen) < 3; i++ {
		p, err := expand(t, dir)
		if err != nil {
			t.Fatalf("Expand() error = %v", err)
		}
		seen[items(t, p)[0]] = true
	}
	if len(seen) != 3 {
		t.Errorf("random shuffle surfaced %v, want all three items", seen)
	}
}

func TestWithItemsRejectsInterpolation(t *testing.T) {
	dir := writeFiles(t, map[string]string{"benchmark.yml": `
plan:
  - name: Fetch
    request:
      url: /api/{{ item }}
    pick: 1
    with_items:
      - plain
      - "{{ secret }}"
`})
	_, err := expand(t, dir)
	if !errors.Is(err, interpolator.ErrInterpolationNotAllowed) {
		t.Fatalf("Expand() error = %v, want ErrInterpolationNotAllowed", err)
	}
}

func TestRange(t *testing.T) {
	tests := []struct {
		name    string
		rng     string
		want    []any
		wantErr error
		errText string
	}{
		{name: "step two", rng: "{start: 2, step: 2, stop: 20}", want: []any{2, 4, 6, 8, 10, 12, 14, 16, 18, 20}},
		{name: "default step", rng: "{start: 1, stop: 3}", want: []any{1, 2, 3}},
		{name: "stop before start", rng: "{start: 5, stop: 3}", want: nil},
		{name: "zero start", rng: "{start: 0, stop: 3}", want: nil},
		{name: "non numeric stop", rng: "{start: 1, step: 2, stop: foo}", errText: "Stop needs to be a number"},
		{name: "interpolated stop", rng: "{start: 1, stop: \"{{ max }}\"}", wantErr: interpolator.ErrInterpolationNotAllowed},
		{name: "missing start", rng: "{stop: 3}", errText: "Start property is mandatory"},
		{name: "zero step", rng: "{start: 1, step: 0, stop: 3}", errText: "Step needs to be a positive number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeFiles(t, map[string]string{"benchmark.yml": `
plan:
  - name: Wait
    delay:
      seconds: 0
  - name: Fetch
    request:
      url: /api/{{ item }}
    with_items_range: ` + tt.rng + `
`})
			p, err := expand(t, dir)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expand() error = %v, want %v", err, tt.wantErr)
				}
				return
			case tt.errText != "":
				if err == nil || !strings.Contains(err.Error(), tt.errText) {
					t.Fatalf("Expand() error = %v, want %q", err, tt.errText)
				}
				return
			case err != nil:
				t.Fatalf("Expand() error = %v", err)
			}
			got := items(t, p[1:])
			if len(got) != len(tt.want) {
				t.Fatalf("items = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("items[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCSVGenerator(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"benchmark.yml": `
plan:
  - name: Fetch
    request:
      url: /api/{{ item.id }}
    with_items_from_csv: ./fixtures/users.csv
  - name: Quoted
    request:
      url: /api/{{ item.id }}
    pick: 1
    with_items_from_csv:
      file_name: fixtures/quoted.csv
      quote_char: "'"
`,
		"fixtures/users.csv":  "id,name\n1,alice\n2,bob\n",
		"fixtures/quoted.csv": "id,name\n1,'a, b'\n2,c\n",
	})
	p, err := expand(t, dir)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	got := items(t, p[:2])
	if got[1].(map[string]any)["name"] != "bob" {
		t.Errorf("items = %v", got)
	}
	quoted := p[2].(*step.Request).Item().Value.(map[string]any)
	if quoted["name"] != "a, b" {
		t.Errorf("quoted name = %q, want %q", quoted["name"], "a, b")
	}
	if len(p) != 3 {
		t.Errorf("len(plan) = %d, want 3", len(p))
	}
}

func TestGeneratorPathRejectsInterpolation(t *testing.T) {
	for _, key := range []string{"with_items_from_csv", "with_items_from_file"} {
		t.Run(key, func(t *testing.T) {
			dir := writeFiles(t, map[string]string{"benchmark.yml": `
plan:
  - name: Fetch
    request:
      url: /api/{{ item }}
    ` + key + `: ./fixtures/{{ memory }}.csv
`})
			_, err := expand(t, dir)
			if !errors.Is(err, interpolator.ErrInterpolationNotAllowed) {
				t.Fatalf("Expand() error = %v, want ErrInterpolationNotAllowed", err)
			}
		})
	}
}

func TestFileGenerator(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"benchmark.yml": `
plan:
  - name: Fetch
    request:
      url: /api/{{ item.id }}
    with_items_from_file: data/items.yml
`,
		"data/items.yml": "- id: 1\n- id: 2\n- id: 3\n",
	})
	p, err := expand(t, dir)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	got := items(t, p)
	if len(got) != 3 || got[2].(map[string]any)["id"] != 3 {
		t.Errorf("items = %v", got)
	}
}

func TestIncludeSplicesPositionally(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"benchmark.yml": `
plan:
  - name: First
    delay:
      seconds: 0
  - name: Include comments
    include: nested/comments.yml
  - name: Last
    delay:
      seconds: 0
`,
		"nested/comments.yml": `
- name: Comment A
  request:
    url: /comments/a
- name: Include deeper
  include: deeper.yml
`,
		"nested/deeper.yml": `
- name: Comment B
  request:
    url: /comments/b
`,
	})
	p, err := expand(t, dir)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	want := "First,Comment A,Comment B,Last"
	if got := strings.Join(names(p), ","); got != want {
		t.Errorf("names = %s, want %s", got, want)
	}
}

func TestIncludeErrors(t *testing.T) {
	t.Run("interpolated path", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"benchmark.yml": "plan:\n  - name: Inc\n    include: \"{{ memory }}.yml\"\n"})
		_, err := expand(t, dir)
		if !errors.Is(err, interpolator.ErrInterpolationNotAllowed) {
			t.Fatalf("Expand() error = %v, want ErrInterpolationNotAllowed", err)
		}
	})
	t.Run("cycle", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{
			"benchmark.yml": "plan:\n  - include: a.yml\n",
			"a.yml":         "- include: b.yml\n",
			"b.yml":         "- include: a.yml\n",
		})
		_, err := expand(t, dir)
		if !errors.Is(err, ErrIncludeCycle) {
			t.Fatalf("Expand() error = %v, want ErrIncludeCycle", err)
		}
	})
	t.Run("missing file", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"benchmark.yml": "plan:\n  - include: nope.yml\n"})
		if _, err := expand(t, dir); err == nil {
			t.Fatal("Expand() error = nil, want error")
		}
	})
}

func TestTagFiltering(t *testing.T) {
	dir := writeFiles(t, map[string]string{"benchmark.yml": `
plan:
  - name: Tagged
    tags: [tag1]
    delay: {seconds: 0}
  - name: Never
    tags: [never, tag1]
    delay: {seconds: 0}
  - name: Always
    tags: [always]
    delay: {seconds: 0}
  - name: Untagged
    delay: {seconds: 0}
`})
	filter, err := tags.NewFilter([]string{"tag1"}, nil)
	if err != nil {
		t.Fatalf("NewFilter() error = %v", err)
	}
	p, err := NewExpander(filter, nil).Expand(filepath.Join(dir, "benchmark.yml"), DefaultAccessor)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if got := strings.Join(names(p), ","); got != "Tagged,Always" {
		t.Errorf("names = %s, want Tagged,Always", got)
	}

	p, err = NewExpander(nil, nil).Expand(filepath.Join(dir, "benchmark.yml"), DefaultAccessor)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if got := strings.Join(names(p), ","); got != "Tagged,Always,Untagged" {
		t.Errorf("unfiltered names = %s", got)
	}
}

func TestUnknownNode(t *testing.T) {
	dir := writeFiles(t, map[string]string{"benchmark.yml": "plan:\n  - name: Mystery\n    frobnicate:\n      level: 9\n"})
	_, err := expand(t, dir)
	if !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("Expand() error = %v, want ErrUnknownNode", err)
	}
	if !strings.Contains(err.Error(), "frobnicate") {
		t.Errorf("error %q does not show the fragment", err)
	}
}

func TestEmptyPlan(t *testing.T) {
	dir := writeFiles(t, map[string]string{"benchmark.yml": "plan:\n  - name: Skipped\n    tags: [never]\n    delay: {seconds: 0}\n"})
	if _, err := expand(t, dir); !errors.Is(err, ErrEmptyPlan) {
		t.Fatalf("Expand() error = %v, want ErrEmptyPlan", err)
	}
}

func TestMissingAccessor(t *testing.T) {
	dir := writeFiles(t, map[string]string{"benchmark.yml": "steps: []\n"})
	if _, err := expand(t, dir); err == nil || !strings.Contains(err.Error(), "plan") {
		t.Fatalf("Expand() error = %v, want missing node error", err)
	}
}

func TestListTagsAndTasks(t *testing.T) {
	dir := writeFiles(t, map[string]string{"benchmark.yml": `
plan:
  - name: A
    tags: [users, smoke]
    delay: {seconds: 0}
  - name: B
    tags: [posts]
    delay: {seconds: 0}
  - name: C
    delay: {seconds: 0}
`})
	path := filepath.Join(dir, "benchmark.yml")

	got, err := ListTags(path, DefaultAccessor)
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	if strings.Join(got, ",") != "posts,smoke,users" {
		t.Errorf("ListTags() = %v", got)
	}

	filter, err := tags.NewFilter(nil, []string{"posts"})
	if err != nil {
		t.Fatalf("NewFilter() error = %v", err)
	}
	tasks, err := ListTasks(path, DefaultAccessor, filter)
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if len(tasks) != 2 || !strings.Contains(tasks[0], "name: A") || !strings.Contains(tasks[1], "name: C") {
		t.Errorf("ListTasks() = %q", tasks)
	}

	none, err := tags.NewFilter([]string{"missing"}, nil)
	if err != nil {
		t.Fatalf("NewFilter() error = %v", err)
	}
	if _, err := ListTasks(path, DefaultAccessor, none); !errors.Is(err, ErrNoItems) {
		t.Errorf("ListTasks() error = %v, want ErrNoItems", err)
	}
}

func TestListTagsUntaggedAndEmpty(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"untagged.yml": "plan:\n  - name: A\n    delay: {seconds: 0}\n",
		"empty.yml":    "plan: []\n",
	})

	got, err := ListTags(filepath.Join(dir, "untagged.yml"), DefaultAccessor)
	if err != nil {
		t.Fatalf("ListTags(untagged) error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ListTags(untagged) = %v, want empty", got)
	}

	if _, err := ListTags(filepath.Join(dir, "empty.yml"), DefaultAccessor); !errors.Is(err, ErrNoItems) {
		t.Errorf("ListTags(empty) error = %v, want ErrNoItems", err)
	}
}
