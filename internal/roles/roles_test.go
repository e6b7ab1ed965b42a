package roles

import "testing"

func TestRouteForKnownRoles(t *testing.T) {
	cases := map[Role]string{
		Admin:     "/dashboard/admin",
		Doctor:    "/dashboard/doctor",
		Nurse:     "/dashboard/nurse",
		Reception: "/dashboard/reception",
	}
	for role, want := range cases {
		if got := RouteFor(role); got != want {
			t.Fatalf("RouteFor(%s) = %s, want %s", role, got, want)
		}
	}
}

func TestRouteForUnknownRoleFallsBack(t *testing.T) {
	if got := RouteFor(Role("janitor")); got != DefaultRoute {
		t.Fatalf("RouteFor(janitor) = %s, want %s", got, DefaultRoute)
	}
	if got := RouteFor(Role("")); got != DefaultRoute {
		t.Fatalf("RouteFor(empty) = %s, want %s", got, DefaultRoute)
	}
}

func TestParse(t *testing.T) {
	if role, ok := Parse("doctor"); !ok || role != Doctor {
		t.Fatalf("Parse(doctor) = %s, %v", role, ok)
	}
	if _, ok := Parse("unknown_role"); ok {
		t.Fatalf("Parse(unknown_role) accepted")
	}
}

func TestEffective(t *testing.T) {
	if got := Effective(Nurse, []Role{Admin, Nurse}); got != Nurse {
		t.Fatalf("current role should win, got %s", got)
	}
	if got := Effective("", []Role{Doctor, Admin}); got != Doctor {
		t.Fatalf("first ordered role should win, got %s", got)
	}
	if got := Effective("", nil); got != "" {
		t.Fatalf("empty inputs should resolve to zero role, got %s", got)
	}
}
