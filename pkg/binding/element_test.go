package binding

import (
	"reflect"
	"testing"
	"time"

	"github.com/vango-dev/meld/pkg/dom"
)

func parse(t *testing.T, markup string) *dom.Document {
	t.Helper()
	d, err := dom.ParseString(markup)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	return d
}

func find(t *testing.T, d *dom.Document, id string) dom.NodeID {
	t.Helper()
	n := d.FindByAttr(d.Root(), "id", id)
	if n == dom.Nil {
		t.Fatalf("no element with id %q", id)
	}
	return n
}

func TestElementAggregates(t *testing.T) {
	d := parse(t, `<div meld:id="c1">
		<input id="m" meld:model.defer.debounce-500="name">
		<input id="f" meld:field.lazy="title" meld:db="book" meld:pk="7">
		<button id="b" meld:click.prevent.stop="save" meld:keyup.enter="search"></button>
		<span id="l" meld:loading.class.remove="idle"></span>
		<div id="p" meld:poll-5000="tick"></div>
		<div id="q" meld:poll-soon></div>
		<p id="e" meld:error:email meld:error:name meld:key="row-1" meld:target="b"></p>
	</div>`)
	root := d.FindByAttr(d.Root(), "meld:id", "c1")

	m := New(d, find(t, d, "m"), root, "")
	if m.Model == nil || m.Model.Name != "name" || !m.Model.IsDefer || m.Model.IsLazy {
		t.Fatalf("model = %+v", m.Model)
	}
	if !m.Model.HasDebounce || m.Model.Debounce != 500*time.Millisecond {
		t.Errorf("debounce = %v/%v", m.Model.Debounce, m.Model.HasDebounce)
	}
	if m.Model.EventType != "input" {
		t.Errorf("EventType = %q", m.Model.EventType)
	}
	if m.Role() != RoleModel {
		t.Errorf("Role = %v, want model", m.Role())
	}

	f := New(d, find(t, d, "f"), root, "")
	if f.Role() != RoleDatabase {
		t.Errorf("Role = %v, want database", f.Role())
	}
	if f.DB == nil || f.DB.Name != "book" || f.DB.PK != "7" {
		t.Errorf("DB = %+v", f.DB)
	}
	if f.Field.EventType != "blur" {
		t.Errorf("field EventType = %q, want blur", f.Field.EventType)
	}

	b := New(d, find(t, d, "b"), root, "")
	if len(b.Actions) != 2 {
		t.Fatalf("actions = %d, want 2", len(b.Actions))
	}
	click := b.Actions[0]
	if click.Name != "save" || click.EventType != "click" || !click.PreventDefault || !click.StopPropagation {
		t.Errorf("click = %+v", click)
	}
	key := b.Actions[1]
	if key.KeyFilter != "enter" || !key.MatchesKey("Enter") || key.MatchesKey("a") {
		t.Errorf("keyup = %+v", key)
	}
	if b.Role() != RoleAction {
		t.Errorf("Role = %v, want action", b.Role())
	}

	l := New(d, find(t, d, "l"), root, "")
	if l.Loading == nil || l.Loading.Mode != LoadingRemoveClass || l.Loading.Value != "idle" {
		t.Errorf("loading = %+v", l.Loading)
	}
	if l.Role() != RoleLoading {
		t.Errorf("Role = %v, want loading", l.Role())
	}

	p := New(d, find(t, d, "p"), root, "")
	if p.Poll == nil || p.Poll.Method != "tick" || p.Poll.Interval != 5*time.Second {
		t.Errorf("poll = %+v", p.Poll)
	}

	q := New(d, find(t, d, "q"), root, "")
	if q.Poll == nil || q.Poll.Interval != 0 {
		t.Errorf("poll = %+v, want default interval", q.Poll)
	}
	if len(q.Fallbacks) != 1 {
		t.Errorf("Fallbacks = %v, want one entry", q.Fallbacks)
	}

	e := New(d, find(t, d, "e"), root, "")
	if !reflect.DeepEqual(e.Errors, []string{"email", "name"}) {
		t.Errorf("Errors = %v", e.Errors)
	}
	if e.Key != "row-1" || e.Target != "b" {
		t.Errorf("Key = %q Target = %q", e.Key, e.Target)
	}
	if e.Role() != RoleNone {
		t.Errorf("Role = %v, want none", e.Role())
	}
}

func TestActionKeyFilterLastTokenWins(t *testing.T) {
	d := parse(t, `<input id="a" meld:keydown.shift.enter.prevent="go"><input id="b" meld:keydown.enter.shift="go">`)
	for i := 0; i < 50; i++ {
		a := New(d, find(t, d, "a"), dom.Nil, "")
		if got := a.Actions[0].KeyFilter; got != "enter" {
			t.Fatalf("build %d: KeyFilter = %q, want enter", i, got)
		}
		if !a.Actions[0].PreventDefault {
			t.Fatal("prevent modifier lost")
		}
		b := New(d, find(t, d, "b"), dom.Nil, "")
		if got := b.Actions[0].KeyFilter; got != "shift" {
			t.Fatalf("build %d: KeyFilter = %q, want shift", i, got)
		}
	}
}

func TestElementDebounceFallback(t *testing.T) {
	d := parse(t, `<input id="a" meld:model.debounce-oops="x">`)
	e := New(d, find(t, d, "a"), dom.Nil, "")
	if e.Model.HasDebounce {
		t.Error("malformed debounce should fall back to the default")
	}
	if len(e.Fallbacks) != 1 || e.Fallbacks[0] != "meld:model.debounce-oops" {
		t.Errorf("Fallbacks = %v", e.Fallbacks)
	}
}

func TestGetValue(t *testing.T) {
	d := parse(t, `<form>
		<input id="text" value="hello">
		<input id="cb" type="checkbox" checked>
		<input id="cb2" type="checkbox">
		<select id="one"><option value="a">A</option><option value="b" selected>B</option></select>
		<select id="many" multiple>
			<option value="x" selected>X</option>
			<option value="y">Y</option>
			<option selected>z</option>
		</select>
		<select id="none" multiple><option value="x">X</option></select>
		<textarea id="ta">body</textarea>
	</form>`)

	tests := []struct {
		id   string
		want any
	}{
		{"text", "hello"},
		{"cb", true},
		{"cb2", false},
		{"one", "b"},
		{"many", []string{"x", "z"}},
		{"none", []string{}},
		{"ta", "body"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := New(d, find(t, d, tt.id), dom.Nil, "").GetValue()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("GetValue() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestSetValue(t *testing.T) {
	d := parse(t, `<form>
		<input id="text">
		<input id="cb" type="checkbox">
		<input id="r1" type="radio" name="g" value="a">
		<input id="r2" type="radio" name="g" value="b">
		<select id="one"><option value="a">A</option><option value="b">B</option></select>
		<select id="many" multiple><option value="x">X</option><option value="y">Y</option></select>
	</form>`)
	el := func(id string) *Element { return New(d, find(t, d, id), dom.Nil, "") }

	el("text").SetValue(42.0)
	if got := el("text").GetValue(); got != "42" {
		t.Errorf("text = %v, want 42", got)
	}

	el("cb").SetValue("yes")
	if got := el("cb").GetValue(); got != true {
		t.Errorf("checkbox = %v, want true", got)
	}
	el("cb").SetValue(false)
	if got := el("cb").GetValue(); got != false {
		t.Errorf("checkbox = %v, want false", got)
	}

	el("r1").SetValue("b")
	el("r2").SetValue("b")
	if d.Checked(find(t, d, "r1")) || !d.Checked(find(t, d, "r2")) {
		t.Error("radio should be checked only when its value matches")
	}

	el("one").SetValue("b")
	if got := el("one").GetValue(); got != "b" {
		t.Errorf("select = %v, want b", got)
	}

	el("many").SetValue([]any{"y"})
	if got := el("many").GetValue(); !reflect.DeepEqual(got, []string{"y"}) {
		t.Errorf("multi-select = %v, want [y]", got)
	}
}

func TestNearestBoundAncestor(t *testing.T) {
	d := parse(t, `<div id="root" meld:id="c1">
		<section id="outer" meld:click="open">
			<div id="plain"><span id="leaf">x</span></div>
		</section>
		<p id="bare"><b id="b">y</b></p>
	</div>`)
	root := find(t, d, "root")

	leaf := New(d, find(t, d, "leaf"), root, "")
	anc := leaf.NearestBoundAncestor()
	if anc == nil || anc.Node() != find(t, d, "outer") {
		t.Fatalf("NearestBoundAncestor = %v, want outer", anc)
	}
	if !anc.IsSame(New(d, find(t, d, "outer"), root, "")) {
		t.Error("IsSame should compare node identity")
	}
	if anc.IsSame(leaf) {
		t.Error("different nodes should not be the same")
	}

	// the component root is the boundary
	if got := New(d, find(t, d, "b"), root, "").NearestBoundAncestor(); got != nil {
		t.Errorf("NearestBoundAncestor = %v, want nil at the boundary", got.Node())
	}
	// without a boundary the walk reaches the root element
	if got := New(d, find(t, d, "b"), dom.Nil, "").NearestBoundAncestor(); got == nil || got.Node() != root {
		t.Error("walk without boundary should find the component root")
	}

	if got := Resolve(d, find(t, d, "outer"), root, ""); got == nil || got.Node() != find(t, d, "outer") {
		t.Error("Resolve should return a bound node itself")
	}
}

func TestTruthyAndStringify(t *testing.T) {
	truthy := []any{true, "x", 1.0, 3, []any{1}}
	falsy := []any{nil, false, "", "false", 0.0, 0, []string{}}
	for _, v := range truthy {
		if !Truthy(v) {
			t.Errorf("Truthy(%#v) = false", v)
		}
	}
	for _, v := range falsy {
		if Truthy(v) {
			t.Errorf("Truthy(%#v) = true", v)
		}
	}

	if got := Stringify(1.5); got != "1.5" {
		t.Errorf("Stringify(1.5) = %q", got)
	}
	if got := Stringify(nil); got != "" {
		t.Errorf("Stringify(nil) = %q", got)
	}
}
