// 指示: miu200521358
package collada

import "testing"

func TestSanitizeID(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Hips", "Hips"},
		{"Left Arm", "Left_Arm"},
		{"1stBone", "_1stBone"},
		{"ＡＢＣ", "ABC"},
		{"", "_"},
		{"head.001", "head.001"},
		{"頭<top>", "頭_top_"},
		{"  padded  ", "padded"},
	}
	for _, tc := range cases {
		if got := sanitizeID(tc.input); got != tc.want {
			t.Fatalf("sanitizeID(%q) got=%q want=%q", tc.input, got, tc.want)
		}
	}
}

func TestIDRegistryUniqueAddsSuffix(t *testing.T) {
	registry := newIDRegistry()
	got := []string{registry.unique("Body"), registry.unique("Body"), registry.unique("Body"), registry.unique("Body_2")}
	want := []string{"Body", "Body_2", "Body_3", "Body_2_2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unique[%d] got=%s want=%s", i, got[i], want[i])
		}
	}
}
