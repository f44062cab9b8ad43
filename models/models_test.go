package models

import "testing"

func TestDeriveStopType(t *testing.T) {
	cases := []struct {
		category string
		want     string
	}{
		{"restaurant", StopTypeRestaurant},
		{"Fast Food", StopTypeRestaurant},
		{"Fine Dining", StopTypeRestaurant},
		{"餐饮服务", StopTypeRestaurant},
		{"Hotel", StopTypeLodging},
		{"accommodation", StopTypeLodging},
		{"住宿服务", StopTypeLodging},
		{"museum", StopTypeAttraction},
		{"scenic spot", StopTypeAttraction},
		{"", StopTypeAttraction},
	}
	for _, c := range cases {
		if got := DeriveStopType(c.category); got != c.want {
			t.Errorf("DeriveStopType(%q) = %q, want %q", c.category, got, c.want)
		}
	}
}
