package nav

import (
	"testing"

	"go-survey-console/internal/model"
	"go-survey-console/internal/rbac"
)

func viewer(pages ...model.PageKey) rbac.Set {
	m := map[model.PageKey]model.Capabilities{}
	for _, p := range pages {
		m[p] = model.Capabilities{View: true}
	}
	return rbac.Set{Matrix: m}
}

func ids(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func find(entries []Entry, id string) (Entry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

func TestBuildFiltersByView(t *testing.T) {
	set := viewer(model.PageDashboard, model.PageEnquiries, model.PageTax, model.PageProfile)
	got := ids(Build(set, Context{}))
	want := []string{"dashboard", "enquiries", "additional-settings", "profile"}
	if !equal(got, want) {
		t.Fatalf("Build = %v, want %v", got, want)
	}

	settings, _ := find(Build(set, Context{}), "additional-settings")
	if len(settings.Children) != 1 || settings.Children[0].ID != "tax" {
		t.Fatalf("settings children = %+v", settings.Children)
	}
}

func TestBuildEmptySet(t *testing.T) {
	if got := Build(rbac.Set{}, Context{SelectedSurveyID: "3"}); len(got) != 0 {
		t.Fatalf("empty set produced %v", ids(got))
	}
	if got := BuildBottom(rbac.Set{}); len(got) != 0 {
		t.Fatalf("empty set produced bottom %v", ids(got))
	}
}

func TestSurveyGroup(t *testing.T) {
	set := viewer(model.PageSurveyCustomer, model.PageSurveyArticle, model.PageSurveyPet, model.PageSurveyService)

	if _, ok := find(Build(set, Context{}), "survey-detail"); ok {
		t.Fatalf("survey group shown without a selected survey")
	}

	tests := []struct {
		goods string
		want  []string
	}{
		{model.GoodsTypeArticle, []string{"survey-customer", "survey-article", "survey-service"}},
		{model.GoodsTypePet, []string{"survey-customer", "survey-pet", "survey-service"}},
		{"", []string{"survey-customer", "survey-article", "survey-service"}},
	}
	for _, tt := range tests {
		group, ok := find(Build(set, Context{SelectedSurveyID: "9", GoodsType: tt.goods}), "survey-detail")
		if !ok {
			t.Fatalf("goods %q: survey group missing", tt.goods)
		}
		if group.Label != "Survey Detail ( 9 )" {
			t.Fatalf("label = %q", group.Label)
		}
		if got := ids(group.Children); !equal(got, tt.want) {
			t.Fatalf("goods %q: children = %v, want %v", tt.goods, got, tt.want)
		}
		if group.Children[0].To != "/survey/9/customer" {
			t.Fatalf("customer link = %q", group.Children[0].To)
		}
	}
}

func TestSuperadminSeesEverything(t *testing.T) {
	got := Build(rbac.Set{Superadmin: true}, Context{SelectedSurveyID: "1"})
	if len(got) != len(sidebar) {
		t.Fatalf("superadmin sees %d entries, want %d", len(got), len(sidebar))
	}
	if b := BuildBottom(rbac.Set{Superadmin: true}); len(b) != len(bottom) {
		t.Fatalf("superadmin bottom = %d entries", len(b))
	}
}

func TestBuildBottomOrder(t *testing.T) {
	got := ids(BuildBottom(viewer(model.PageProfile, model.PageDashboard)))
	if !equal(got, []string{"dashboard", "profile"}) {
		t.Fatalf("BuildBottom = %v", got)
	}
}
