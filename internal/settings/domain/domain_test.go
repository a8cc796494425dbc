package domain

import "testing"

func TestHasSMTP(t *testing.T) {
	cases := []struct {
		name string
		in   BusinessSettings
		want bool
	}{
		{"complete", BusinessSettings{SMTPHost: "h", SMTPUser: "u", SMTPPassword: "p"}, true},
		{"missing host", BusinessSettings{SMTPUser: "u", SMTPPassword: "p"}, false},
		{"missing user", BusinessSettings{SMTPHost: "h", SMTPPassword: "p"}, false},
		{"missing password", BusinessSettings{SMTPHost: "h", SMTPUser: "u"}, false},
		{"whitespace only", BusinessSettings{SMTPHost: " ", SMTPUser: "u", SMTPPassword: "p"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.HasSMTP(); got != tc.want {
				t.Fatalf("HasSMTP() = %v, want %v", got, tc.want)
			}
		})
	}
}
